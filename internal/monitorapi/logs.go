package monitorapi

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sdko-org/uptime-dashboard/internal/models"
)

type LogService struct {
	client *Client
}

type ListLogsParams struct {
	Limit     int
	NextToken string
}

func (p ListLogsParams) apply(q url.Values) url.Values {
	if p.Limit > 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}
	if p.NextToken != "" {
		q.Set("next_token", p.NextToken)
	}
	return q
}

// StatsParams selects per-endpoint statistics when EndpointID is set and
// account-wide statistics otherwise.
type StatsParams struct {
	EndpointID string
	Range      models.TimeRange
}

func rangeQuery(r models.TimeRange) url.Values {
	q := url.Values{}
	q.Set("start_time", r.Start.UTC().Format(time.RFC3339))
	q.Set("end_time", r.End.UTC().Format(time.RFC3339))
	return q
}

func (s *LogService) List(ctx context.Context, endpointID string, params ListLogsParams) (*models.LogPage, error) {
	if err := checkID(endpointID); err != nil {
		return nil, err
	}
	var page models.LogPage
	err := s.client.sendJSON(ctx, &call{
		method: http.MethodGet,
		route:  "/logs/{id}",
		path:   []string{"logs", endpointID},
		query:  params.apply(url.Values{}),
	}, &page)
	if err != nil {
		return nil, err
	}
	return finishLogPage(&page), nil
}

func (s *LogService) ListRange(ctx context.Context, endpointID string, r models.TimeRange, params ListLogsParams) (*models.LogPage, error) {
	if err := checkID(endpointID); err != nil {
		return nil, err
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	var page models.LogPage
	err := s.client.sendJSON(ctx, &call{
		method: http.MethodGet,
		route:  "/logs/{id}/time-range",
		path:   []string{"logs", endpointID, "time-range"},
		query:  params.apply(rangeQuery(r)),
	}, &page)
	if err != nil {
		return nil, err
	}
	return finishLogPage(&page), nil
}

func finishLogPage(page *models.LogPage) *models.LogPage {
	if page.Logs == nil {
		page.Logs = []models.Log{}
	}
	page.HasMore = page.HasMore || page.NextToken != ""
	return page
}

// Stats returns statistics with zero values normalised to absent, so callers
// can tell "no data" from a real measurement.
func (s *LogService) Stats(ctx context.Context, params StatsParams) (*models.Statistics, error) {
	if err := params.Range.Validate(); err != nil {
		return nil, err
	}
	cl := &call{
		method: http.MethodGet,
		route:  "/logs/stats",
		path:   []string{"logs", "stats"},
		query:  rangeQuery(params.Range),
	}
	if params.EndpointID != "" {
		if err := checkID(params.EndpointID); err != nil {
			return nil, err
		}
		cl.route = "/logs/stats/{id}"
		cl.path = append(cl.path, params.EndpointID)
	}

	var stats models.Statistics
	if err := s.client.sendJSON(ctx, cl, &stats); err != nil {
		return nil, err
	}
	stats.Normalize()
	return &stats, nil
}

// Export fetches the CSV for a range as one opaque byte stream.
func (s *LogService) Export(ctx context.Context, endpointID string, r models.TimeRange) ([]byte, error) {
	if err := checkID(endpointID); err != nil {
		return nil, err
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	cl := &call{
		method: http.MethodGet,
		route:  "/logs/{id}/export",
		path:   []string{"logs", endpointID, "export"},
		query:  rangeQuery(r),
		accept: "text/csv",
	}
	resp, err := s.client.send(ctx, cl)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Method: cl.method, Path: cl.route, Err: fmt.Errorf("read export body: %w", err)}
	}
	return data, nil
}
