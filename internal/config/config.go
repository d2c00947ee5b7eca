package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix  = "UPTIME_"
	envFileVar = "UPTIME_CONFIG"
)

type Config struct {
	LogLevel  string `koanf:"log_level"`
	LogFormat string `koanf:"log_format"`

	HTTPAddr  string `koanf:"http_addr"`
	HTTPSAddr string `koanf:"https_addr"`

	APIBaseURL   string        `koanf:"api_base_url"`
	APITimeout   time.Duration `koanf:"api_timeout"`
	APIRateLimit int           `koanf:"api_rate_limit"`

	CognitoRegion       string `koanf:"cognito_region"`
	CognitoUserPoolID   string `koanf:"cognito_user_pool_id"`
	CognitoClientID     string `koanf:"cognito_client_id"`
	CognitoClientSecret string `koanf:"cognito_client_secret"`
	CognitoEndpoint     string `koanf:"cognito_endpoint"`

	SessionKey  string `koanf:"session_key"`
	SessionFile string `koanf:"session_file"`

	RateLimit       int           `koanf:"rate_limit"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`

	// TrustedProxies lists reverse proxies, as CIDRs or addresses, whose
	// X-Forwarded-For header is believed.
	TrustedProxies []string `koanf:"trusted_proxies"`

	ExportBucket     string        `koanf:"export_bucket"`
	ExportTTL        time.Duration `koanf:"export_ttl"`
	ExportPurgeEvery time.Duration `koanf:"export_purge_every"`
	S3Region         string        `koanf:"s3_region"`
	S3Endpoint       string        `koanf:"s3_endpoint"`
	S3AccessKey      string        `koanf:"s3_access_key"`
	S3SecretKey      string        `koanf:"s3_secret_key"`

	PostgresUser     string `koanf:"postgres_user"`
	PostgresPassword string `koanf:"postgres_password"`
	PostgresHost     string `koanf:"postgres_host"`
	PostgresPort     string `koanf:"postgres_port"`
	PostgresDatabase string `koanf:"postgres_database"`
	PostgresSSLMode  string `koanf:"postgres_ssl_mode"`
}

func Default() *Config {
	return &Config{
		LogLevel:         "info",
		LogFormat:        "text",
		HTTPAddr:         ":8080",
		APITimeout:       30 * time.Second,
		SessionKey:       "default",
		SessionFile:      defaultSessionFile(),
		RateLimit:        100,
		RateLimitWindow:  time.Minute,
		ExportTTL:        24 * time.Hour,
		ExportPurgeEvery: 30 * time.Minute,
		S3Region:         "us-east-1",
		PostgresPort:     "5432",
		PostgresDatabase: "uptime_dashboard",
		PostgresSSLMode:  "disable",
	}
}

// Load layers defaults, the YAML file named by UPTIME_CONFIG, then
// UPTIME_* environment variables.
func Load() (*Config, error) {
	k := koanf.New(".")

	if path := os.Getenv(envFileVar); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		return strings.TrimPrefix(strings.ToLower(s), strings.ToLower(envPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("load config env: %w", err)
	}

	cfg := Default()
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.APIBaseURL == "" {
		errs = append(errs, errors.New("api_base_url is required"))
	} else if u, err := url.Parse(c.APIBaseURL); err != nil || !u.IsAbs() {
		errs = append(errs, fmt.Errorf("api_base_url must be an absolute url: %q", c.APIBaseURL))
	}
	if c.CognitoUserPoolID == "" {
		errs = append(errs, errors.New("cognito_user_pool_id is required"))
	} else if poolRegion := c.CognitoPoolRegion(); poolRegion == "" {
		errs = append(errs, fmt.Errorf("cognito_user_pool_id must look like <region>_<id>: %q", c.CognitoUserPoolID))
	} else if c.CognitoRegion != "" && c.CognitoRegion != poolRegion {
		errs = append(errs, fmt.Errorf("cognito_region %q does not match user pool %q", c.CognitoRegion, c.CognitoUserPoolID))
	}
	if c.CognitoClientID == "" {
		errs = append(errs, errors.New("cognito_client_id is required"))
	}
	if c.RateLimit <= 0 || c.RateLimitWindow <= 0 {
		errs = append(errs, errors.New("rate_limit and rate_limit_window must be positive"))
	}
	return errors.Join(errs...)
}

// CognitoPoolRegion is the region prefix of the user pool id, or "" when the
// id is not of the form <region>_<id>.
func (c *Config) CognitoPoolRegion() string {
	region, id, ok := strings.Cut(c.CognitoUserPoolID, "_")
	if !ok || region == "" || id == "" {
		return ""
	}
	return region
}

// IdentityRegion is the explicit cognito_region, falling back to the region
// the user pool lives in.
func (c *Config) IdentityRegion() string {
	if c.CognitoRegion != "" {
		return c.CognitoRegion
	}
	return c.CognitoPoolRegion()
}

// PostgresEnabled reports whether a database host was configured. Without
// one the server keeps sessions on disk and skips access logs and archives.
func (c *Config) PostgresEnabled() bool {
	return c.PostgresHost != ""
}

func (c *Config) ExportArchiveEnabled() bool {
	return c.ExportBucket != "" && c.PostgresEnabled()
}

func defaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".uptimectl-session.json"
	}
	return filepath.Join(dir, "uptimectl", "session.json")
}
