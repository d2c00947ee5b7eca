// Package view holds the presentation rules shared by the dashboard server
// and the CLI: status badges, "No data" formatting, pagination, date ranges,
// export filenames and form validation.
package view

import (
	"fmt"

	"github.com/sdko-org/uptime-dashboard/internal/models"
)

type Status string

const (
	StatusOnline  Status = "online"
	StatusWarning Status = "warning"
	StatusOffline Status = "offline"
	StatusUnknown Status = "unknown"
)

const (
	onlineThreshold  = 99.0
	warningThreshold = 95.0
)

// NoData is shown wherever a measurement is absent.
const NoData = "No data"

// DeriveStatus maps an uptime percentage onto a badge.
func DeriveStatus(stats *models.Statistics) Status {
	if stats == nil || stats.UptimePercentage == nil {
		return StatusUnknown
	}
	switch uptime := *stats.UptimePercentage; {
	case uptime >= onlineThreshold:
		return StatusOnline
	case uptime >= warningThreshold:
		return StatusWarning
	default:
		return StatusOffline
	}
}

// EndpointStatus is DeriveStatus for one endpoint; paused endpoints are
// always unknown.
func EndpointStatus(ep models.Endpoint, stats *models.Statistics) Status {
	if !ep.IsActive {
		return StatusUnknown
	}
	return DeriveStatus(stats)
}

func Percent(v *float64) (string, bool) {
	if v == nil || *v == 0 {
		return NoData, false
	}
	return fmt.Sprintf("%.2f%%", *v), true
}

func Millis(v *float64) (string, bool) {
	if v == nil || *v == 0 {
		return NoData, false
	}
	return fmt.Sprintf("%.0f ms", *v), true
}

func Count(v *int64) (string, bool) {
	if v == nil || *v == 0 {
		return NoData, false
	}
	return fmt.Sprintf("%d", *v), true
}

// Summary is the rendered form of a Statistics value. Each field falls back
// to NoData on its own.
type Summary struct {
	Status       Status `json:"status" yaml:"status"`
	Uptime       string `json:"uptime" yaml:"uptime"`
	AvgResponse  string `json:"average_response_time" yaml:"average_response_time"`
	Fastest      string `json:"fastest_response_time" yaml:"fastest_response_time"`
	Slowest      string `json:"slowest_response_time" yaml:"slowest_response_time"`
	TotalChecks  string `json:"total_checks" yaml:"total_checks"`
	Errors       string `json:"errors_count" yaml:"errors_count"`
	SSLValid     string `json:"ssl_valid" yaml:"ssl_valid"`
	HasAnyFigure bool   `json:"has_data" yaml:"has_data"`
}

func Summarize(stats *models.Statistics) Summary {
	if stats == nil {
		stats = &models.Statistics{}
	}
	s := Summary{Status: DeriveStatus(stats), HasAnyFigure: stats.HasData()}
	s.Uptime, _ = Percent(stats.UptimePercentage)
	s.AvgResponse, _ = Millis(stats.AverageResponseTime)
	s.Fastest, _ = Millis(stats.FastestResponseTime)
	s.Slowest, _ = Millis(stats.SlowestResponseTime)
	s.TotalChecks, _ = Count(stats.TotalChecks)
	s.Errors, _ = Count(stats.ErrorsCount)
	s.SSLValid, _ = Percent(stats.SSLValidPercentage)
	return s
}
