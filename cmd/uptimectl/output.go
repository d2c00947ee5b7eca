package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/sdko-org/uptime-dashboard/internal/models"
	"github.com/sdko-org/uptime-dashboard/internal/session"
	"github.com/sdko-org/uptime-dashboard/internal/view"
	"gopkg.in/yaml.v3"
)

type format string

const (
	formatTable format = "table"
	formatJSON  format = "json"
	formatYAML  format = "yaml"
)

func parseFormat(raw string) (format, error) {
	switch f := format(strings.ToLower(strings.TrimSpace(raw))); f {
	case formatTable, formatJSON, formatYAML:
		return f, nil
	case "yml":
		return formatYAML, nil
	case "":
		return formatTable, nil
	}
	return "", usagef("unknown output format %q, want table, json or yaml", raw)
}

type endpointList struct {
	Data       []models.Endpoint `json:"data" yaml:"data"`
	Pagination view.Pagination   `json:"pagination" yaml:"pagination"`
}

type statsOutput struct {
	EndpointID string             `json:"endpoint_id,omitempty" yaml:"endpoint_id,omitempty"`
	Range      models.TimeRange   `json:"range" yaml:"range"`
	Statistics *models.Statistics `json:"statistics" yaml:"statistics"`
	Summary    view.Summary       `json:"summary" yaml:"summary"`
}

type table struct {
	tw *tabwriter.Writer
}

func newTable(w io.Writer) *table {
	return &table{tw: tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)}
}

func (t *table) row(cols ...string) {
	fmt.Fprintln(t.tw, strings.Join(cols, "\t"))
}

func (t *table) flush() error {
	return t.tw.Flush()
}

func (a *app) render(rawFormat string, v any, printTable func(*table)) error {
	return render(a.out, rawFormat, v, printTable)
}

func render(w io.Writer, rawFormat string, v any, printTable func(*table)) error {
	f, err := parseFormat(rawFormat)
	if err != nil {
		return err
	}
	switch f {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	t := newTable(w)
	printTable(t)
	return t.flush()
}

func printStatus(t *table, st session.Status) {
	t.row("STATE", st.State.String())
	if st.User != nil {
		t.row("USERNAME", st.User.Username)
		t.row("EMAIL", st.User.Email)
		if st.User.Name != "" {
			t.row("NAME", st.User.Name)
		}
	}
}

func onOff(active bool) string {
	if active {
		return "active"
	}
	return "paused"
}

func printEndpoints(t *table, eps []models.Endpoint, p view.Pagination) {
	t.row("ID", "NAME", "URL", "STATE", "INTERVAL", "TAGS")
	for _, ep := range eps {
		interval := "-"
		if ep.CheckInterval > 0 {
			interval = fmt.Sprintf("%ds", ep.CheckInterval)
		}
		t.row(ep.ID, ep.DisplayName(), ep.URL, onOff(ep.IsActive), interval, strings.Join(ep.Tags, ","))
	}
	if p.Total == 0 {
		t.row("No endpoints found")
		return
	}
	t.row("")
	t.row(fmt.Sprintf("Showing %d-%d of %d, page %d/%d", p.From, p.To, p.Total, p.Page, p.Pages))
}

func printEndpoint(t *table, ep models.Endpoint) {
	t.row("ID", ep.ID)
	t.row("NAME", ep.DisplayName())
	t.row("URL", ep.URL)
	t.row("STATE", onOff(ep.IsActive))
	if ep.Description != "" {
		t.row("DESCRIPTION", ep.Description)
	}
	if ep.CheckInterval > 0 {
		t.row("INTERVAL", fmt.Sprintf("%ds", ep.CheckInterval))
	}
	if ep.ExpectedStatusCode > 0 {
		t.row("EXPECTED STATUS", fmt.Sprint(ep.ExpectedStatusCode))
	}
	if len(ep.Tags) > 0 {
		t.row("TAGS", strings.Join(ep.Tags, ","))
	}
	if ep.NotificationEmail != "" {
		t.row("NOTIFY", ep.NotificationEmail)
	}
	if !ep.CreatedAt.IsZero() {
		t.row("CREATED", ep.CreatedAt.UTC().Format(time.RFC3339))
	}
}

func printLogs(t *table, page *models.LogPage) {
	t.row("TIME", "STATUS", "UP", "RESPONSE", "TLS", "ERROR")
	for _, l := range page.Logs {
		resp, _ := view.Millis(&l.ResponseTime)
		tls := "-"
		if l.TLSVersion != nil && *l.TLSVersion != "" {
			tls = *l.TLSVersion
		}
		errText := l.Error()
		if errText == "" {
			errText = "-"
		}
		t.row(l.Timestamp.UTC().Format(time.RFC3339), fmt.Sprint(l.StatusCode), fmt.Sprint(l.IsUp), resp, tls, errText)
	}
	if len(page.Logs) == 0 {
		t.row("No logs found")
	}
	if page.HasMore {
		t.row("")
		t.row("More results: --next-token " + page.NextToken)
	}
}

func printStats(t *table, endpointID string, r models.TimeRange, s view.Summary) {
	scope := "all endpoints"
	if endpointID != "" {
		scope = endpointID
	}
	t.row("SCOPE", scope)
	t.row("RANGE", r.Start.UTC().Format(time.RFC3339)+" to "+r.End.UTC().Format(time.RFC3339))
	t.row("STATUS", string(s.Status))
	t.row("UPTIME", s.Uptime)
	t.row("AVG RESPONSE", s.AvgResponse)
	t.row("FASTEST", s.Fastest)
	t.row("SLOWEST", s.Slowest)
	t.row("CHECKS", s.TotalChecks)
	t.row("ERRORS", s.Errors)
	t.row("SSL VALID", s.SSLValid)
}
