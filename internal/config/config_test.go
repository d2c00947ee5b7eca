package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sdko-org/uptime-dashboard/internal/config"
	. "github.com/smartystreets/goconvey/convey"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, kv := range os.Environ() {
		key, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(key, "UPTIME_") {
			t.Setenv(key, "")
			_ = os.Unsetenv(key)
		}
	}
}

func TestLoad(t *testing.T) {
	Convey("Given a config loader", t, func() {
		clearEnv(t)

		Convey("When only defaults apply", func() {
			cfg, err := config.Load()

			Convey("Then the defaults are returned", func() {
				So(err, ShouldBeNil)
				So(cfg.HTTPAddr, ShouldEqual, ":8080")
				So(cfg.APITimeout, ShouldEqual, 30*time.Second)
				So(cfg.RateLimit, ShouldEqual, 100)
				So(cfg.SessionKey, ShouldEqual, "default")
				So(cfg.PostgresEnabled(), ShouldBeFalse)
			})

			Convey("And validation reports the missing upstream settings", func() {
				err := cfg.Validate()
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "api_base_url is required")
				So(err.Error(), ShouldContainSubstring, "cognito_user_pool_id is required")
			})
		})

		Convey("When environment variables are set", func() {
			t.Setenv("UPTIME_API_BASE_URL", "https://api.example.com")
			t.Setenv("UPTIME_COGNITO_USER_POOL_ID", "us-east-1_pool")
			t.Setenv("UPTIME_COGNITO_CLIENT_ID", "client")
			t.Setenv("UPTIME_API_TIMEOUT", "5s")
			t.Setenv("UPTIME_RATE_LIMIT", "7")

			cfg, err := config.Load()

			Convey("Then they override the defaults", func() {
				So(err, ShouldBeNil)
				So(cfg.APIBaseURL, ShouldEqual, "https://api.example.com")
				So(cfg.APITimeout, ShouldEqual, 5*time.Second)
				So(cfg.RateLimit, ShouldEqual, 7)
				So(cfg.Validate(), ShouldBeNil)
			})
		})

		Convey("When a YAML file is named", func() {
			path := filepath.Join(t.TempDir(), "config.yaml")
			content := "api_base_url: https://yaml.example.com\nhttp_addr: \":9090\"\nexport_ttl: 2h\n"
			So(os.WriteFile(path, []byte(content), 0o600), ShouldBeNil)
			t.Setenv("UPTIME_CONFIG", path)
			t.Setenv("UPTIME_HTTP_ADDR", ":7070")

			cfg, err := config.Load()

			Convey("Then file values load and env wins over the file", func() {
				So(err, ShouldBeNil)
				So(cfg.APIBaseURL, ShouldEqual, "https://yaml.example.com")
				So(cfg.ExportTTL, ShouldEqual, 2*time.Hour)
				So(cfg.HTTPAddr, ShouldEqual, ":7070")
			})
		})

		Convey("When the base url is relative", func() {
			cfg := config.Default()
			cfg.APIBaseURL = "/api"
			cfg.CognitoUserPoolID = "us-east-1_pool"
			cfg.CognitoClientID = "client"

			Convey("Then validation rejects it", func() {
				So(cfg.Validate(), ShouldNotBeNil)
			})
		})
	})
}

func TestCognitoPool(t *testing.T) {
	Convey("Given an otherwise valid configuration", t, func() {
		cfg := config.Default()
		cfg.APIBaseURL = "https://api.example.com"
		cfg.CognitoClientID = "client"

		Convey("When only the user pool is set", func() {
			cfg.CognitoUserPoolID = "eu-west-1_AbCdEf"

			Convey("Then the region is taken from the pool", func() {
				So(cfg.Validate(), ShouldBeNil)
				So(cfg.CognitoPoolRegion(), ShouldEqual, "eu-west-1")
				So(cfg.IdentityRegion(), ShouldEqual, "eu-west-1")
			})
		})

		Convey("When the region disagrees with the pool", func() {
			cfg.CognitoUserPoolID = "eu-west-1_AbCdEf"
			cfg.CognitoRegion = "us-east-1"

			err := cfg.Validate()
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "does not match user pool")
		})

		Convey("When the pool id has no region prefix", func() {
			cfg.CognitoUserPoolID = "AbCdEf"

			err := cfg.Validate()
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "<region>_<id>")
			So(cfg.IdentityRegion(), ShouldBeEmpty)
		})
	})
}
