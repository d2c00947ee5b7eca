package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"
)

type Endpoint struct {
	ID                 string    `json:"endpoint_id" yaml:"endpoint_id"`
	URL                string    `json:"url" yaml:"url"`
	Name               string    `json:"name,omitempty" yaml:"name,omitempty"`
	Description        string    `json:"description,omitempty" yaml:"description,omitempty"`
	IsActive           bool      `json:"is_active" yaml:"is_active"`
	CheckInterval      int       `json:"check_interval,omitempty" yaml:"check_interval,omitempty"`
	Tags               []string  `json:"tags,omitempty" yaml:"tags,omitempty"`
	ExpectedStatusCode int       `json:"expected_status_code,omitempty" yaml:"expected_status_code,omitempty"`
	NotificationEmail  string    `json:"notification_email,omitempty" yaml:"notification_email,omitempty"`
	CreatedAt          Timestamp `json:"created_at" yaml:"created_at"`
}

// DisplayName falls back to the URL when no name was given.
func (e Endpoint) DisplayName() string {
	if e.Name != "" {
		return e.Name
	}
	return e.URL
}

// EndpointInput is the create/update body. Nil fields are not sent.
type EndpointInput struct {
	URL                *string  `json:"url,omitempty"`
	Name               *string  `json:"name,omitempty"`
	Description        *string  `json:"description,omitempty"`
	IsActive           *bool    `json:"is_active,omitempty"`
	CheckInterval      *int     `json:"check_interval,omitempty"`
	Tags               []string `json:"tags,omitempty"`
	ExpectedStatusCode *int     `json:"expected_status_code,omitempty"`
	NotificationEmail  *string  `json:"notification_email,omitempty"`
}

type EndpointPage struct {
	Data  []Endpoint `json:"data" yaml:"data"`
	Total int        `json:"total" yaml:"total"`
	Page  int        `json:"page" yaml:"page"`
	Limit int        `json:"limit" yaml:"limit"`
}

type Log struct {
	ID                    string       `json:"log_id" yaml:"log_id"`
	EndpointID            string       `json:"endpoint_id" yaml:"endpoint_id"`
	Timestamp             Timestamp    `json:"timestamp" yaml:"timestamp"`
	StatusCode            int          `json:"status_code" yaml:"status_code"`
	ResponseTime          float64      `json:"response_time" yaml:"response_time"`
	DNSLatency            float64      `json:"dns_latency" yaml:"dns_latency"`
	ConnectLatency        float64      `json:"connect_latency" yaml:"connect_latency"`
	TotalLatency          float64      `json:"total_latency" yaml:"total_latency"`
	IsUp                  bool         `json:"is_up" yaml:"is_up"`
	IsSecure              bool         `json:"is_secure" yaml:"is_secure"`
	CertificateValid      *bool        `json:"certificate_valid" yaml:"certificate_valid,omitempty"`
	CertificateExpiryDate *Timestamp   `json:"certificate_expiry_date" yaml:"certificate_expiry_date,omitempty"`
	CertificateIssuer     *string      `json:"certificate_issuer" yaml:"certificate_issuer,omitempty"`
	TLSVersion            *string      `json:"tls_version" yaml:"tls_version,omitempty"`
	SecureProtocol        OptionalText `json:"secure_protocol" yaml:"secure_protocol,omitempty"`
	ErrorMessage          *string      `json:"error_message" yaml:"error_message,omitempty"`
}

// Error returns the check error, treating the backend's "None" placeholder
// as no error.
func (l Log) Error() string {
	if l.ErrorMessage == nil {
		return ""
	}
	msg := strings.TrimSpace(*l.ErrorMessage)
	if msg == "None" {
		return ""
	}
	return msg
}

type LogPage struct {
	Logs       []Log  `json:"logs" yaml:"logs"`
	TotalCount int    `json:"total_count" yaml:"total_count"`
	NextToken  string `json:"next_token,omitempty" yaml:"next_token,omitempty"`
	HasMore    bool   `json:"has_more" yaml:"has_more"`
}

// Statistics is an aggregate over logs in a window. A nil field means the
// backend had no data for it.
type Statistics struct {
	TotalChecks         *int64           `json:"total_checks,omitempty" yaml:"total_checks,omitempty"`
	UptimePercentage    *float64         `json:"uptime_percentage,omitempty" yaml:"uptime_percentage,omitempty"`
	AverageResponseTime *float64         `json:"average_response_time,omitempty" yaml:"average_response_time,omitempty"`
	FastestResponseTime *float64         `json:"fastest_response_time,omitempty" yaml:"fastest_response_time,omitempty"`
	SlowestResponseTime *float64         `json:"slowest_response_time,omitempty" yaml:"slowest_response_time,omitempty"`
	ErrorsCount         *int64           `json:"errors_count,omitempty" yaml:"errors_count,omitempty"`
	SSLValidPercentage  *float64         `json:"ssl_valid_percentage,omitempty" yaml:"ssl_valid_percentage,omitempty"`
	StatusCodes         map[string]int64 `json:"status_codes,omitempty" yaml:"status_codes,omitempty"`
	DailyStats          []DailyStat      `json:"daily_stats,omitempty" yaml:"daily_stats,omitempty"`
}

type DailyStat struct {
	Date                string   `json:"date" yaml:"date"`
	UptimePercentage    *float64 `json:"uptime_percentage,omitempty" yaml:"uptime_percentage,omitempty"`
	AverageResponseTime *float64 `json:"average_response_time,omitempty" yaml:"average_response_time,omitempty"`
	ChecksCount         *int64   `json:"checks_count,omitempty" yaml:"checks_count,omitempty"`
}

// Normalize drops zero measurements so that absent and zero both read as
// "no data".
func (s *Statistics) Normalize() {
	s.TotalChecks = nonZeroInt(s.TotalChecks)
	s.UptimePercentage = nonZeroFloat(s.UptimePercentage)
	s.AverageResponseTime = nonZeroFloat(s.AverageResponseTime)
	s.FastestResponseTime = nonZeroFloat(s.FastestResponseTime)
	s.SlowestResponseTime = nonZeroFloat(s.SlowestResponseTime)
	s.ErrorsCount = nonZeroInt(s.ErrorsCount)
	s.SSLValidPercentage = nonZeroFloat(s.SSLValidPercentage)
	for code, count := range s.StatusCodes {
		if count == 0 {
			delete(s.StatusCodes, code)
		}
	}
	for i := range s.DailyStats {
		d := &s.DailyStats[i]
		d.UptimePercentage = nonZeroFloat(d.UptimePercentage)
		d.AverageResponseTime = nonZeroFloat(d.AverageResponseTime)
		d.ChecksCount = nonZeroInt(d.ChecksCount)
	}
}

// HasData reports whether any headline figure is present.
func (s *Statistics) HasData() bool {
	if s == nil {
		return false
	}
	return s.TotalChecks != nil || s.UptimePercentage != nil || s.AverageResponseTime != nil
}

func nonZeroFloat(v *float64) *float64 {
	if v == nil || *v == 0 {
		return nil
	}
	return v
}

func nonZeroInt(v *int64) *int64 {
	if v == nil || *v == 0 {
		return nil
	}
	return v
}

type TimeRange struct {
	Start time.Time `json:"start" yaml:"start"`
	End   time.Time `json:"end" yaml:"end"`
}

var ErrInvalidRange = errors.New("time range start must not be after end")

func (r TimeRange) Validate() error {
	if r.Start.IsZero() || r.End.IsZero() {
		return errors.New("time range requires both start and end")
	}
	if r.Start.After(r.End) {
		return ErrInvalidRange
	}
	return nil
}

// OptionalText accepts a JSON string, bool or number and keeps its text form.
// The backend has sent secure_protocol as each of these.
type OptionalText string

func (o *OptionalText) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*o = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*o = OptionalText(s)
	default:
		if _, err := strconv.ParseFloat(string(data), 64); err != nil && string(data) != "true" && string(data) != "false" {
			return errors.New("optional text: unsupported json value " + string(data))
		}
		*o = OptionalText(data)
	}
	return nil
}

func String(v string) *string  { return &v }
func Bool(v bool) *bool        { return &v }
func Int(v int) *int           { return &v }
func Float(v float64) *float64 { return &v }
func Int64(v int64) *int64     { return &v }
