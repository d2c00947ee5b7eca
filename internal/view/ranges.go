package view

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/sdko-org/uptime-dashboard/internal/models"
)

const (
	dateLayout = "2006-01-02"
	// MaxRange bounds statistics and export windows.
	MaxRange = 90 * 24 * time.Hour
)

var (
	ErrUnknownPreset = errors.New("unknown range preset")
	ErrRangeTooLong  = errors.New("time range must not exceed 90 days")
)

var presets = map[string]time.Duration{
	"24h": 24 * time.Hour,
	"7d":  7 * 24 * time.Hour,
	"30d": 30 * 24 * time.Hour,
}

// RangePreset returns the window ending at now for "24h", "7d" or "30d".
func RangePreset(name string, now time.Time) (models.TimeRange, error) {
	d, ok := presets[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return models.TimeRange{}, fmt.Errorf("%w: %q", ErrUnknownPreset, name)
	}
	now = now.UTC()
	return models.TimeRange{Start: now.Add(-d), End: now}, nil
}

// ParseRange reads a start and end given as dates or RFC 3339 timestamps.
// A date-only end covers that whole day.
func ParseRange(start, end string) (models.TimeRange, error) {
	s, _, err := parseBound(start)
	if err != nil {
		return models.TimeRange{}, fmt.Errorf("start: %w", err)
	}
	e, dateOnly, err := parseBound(end)
	if err != nil {
		return models.TimeRange{}, fmt.Errorf("end: %w", err)
	}
	if dateOnly {
		e = e.Add(24*time.Hour - time.Second)
	}

	r := models.TimeRange{Start: s, End: e}
	if err := r.Validate(); err != nil {
		return models.TimeRange{}, err
	}
	if r.End.Sub(r.Start) > MaxRange {
		return models.TimeRange{}, ErrRangeTooLong
	}
	return r, nil
}

func parseBound(raw string) (time.Time, bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false, errors.New("is required")
	}
	if t, err := time.Parse(dateLayout, raw); err == nil {
		return t.UTC(), true, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("invalid time %q, want YYYY-MM-DD or RFC 3339", raw)
	}
	return t.UTC(), false, nil
}

// ResolveRange prefers an explicit start/end and falls back to a preset,
// defaulting to the last 24 hours.
func ResolveRange(preset, start, end string, now time.Time) (models.TimeRange, error) {
	if start != "" || end != "" {
		return ParseRange(start, end)
	}
	if preset == "" {
		preset = "24h"
	}
	return RangePreset(preset, now)
}

var unsafeFilename = regexp.MustCompile(`[^a-z0-9.-]+`)

// ExportFilename names a CSV download after the endpoint host and the range.
func ExportFilename(ep models.Endpoint, r models.TimeRange) string {
	name := ep.URL
	if u, err := url.Parse(ep.URL); err == nil && u.Host != "" {
		name = u.Host
	}
	name = strings.Trim(unsafeFilename.ReplaceAllString(strings.ToLower(name), "-"), "-")
	if name == "" {
		name = "endpoint"
	}
	return fmt.Sprintf("logs-%s-%s-to-%s.csv", name, r.Start.UTC().Format(dateLayout), r.End.UTC().Format(dateLayout))
}
