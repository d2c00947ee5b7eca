package monitorapi

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/sdko-org/uptime-dashboard/internal/models"
)

var (
	errEmptyID   = errors.New("endpoint id is required")
	errInvalidID = errors.New("endpoint id must be a single path segment")
)

// checkID rejects ids that would change the request path once joined onto
// the base URL.
func checkID(id string) error {
	switch {
	case id == "":
		return errEmptyID
	case id == "." || id == "..", strings.ContainsAny(id, "/\\"):
		return errInvalidID
	}
	return nil
}

type EndpointService struct {
	client *Client
}

type ListEndpointsParams struct {
	Page   int
	Limit  int
	Search string
	Tags   []string
}

func (p ListEndpointsParams) query() url.Values {
	q := url.Values{}
	if p.Page > 0 {
		q.Set("page", strconv.Itoa(p.Page))
	}
	if p.Limit > 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}
	if s := strings.TrimSpace(p.Search); s != "" {
		q.Set("search", s)
	}
	for _, tag := range p.Tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			q.Add("tags", tag)
		}
	}
	return q
}

func (s *EndpointService) List(ctx context.Context, params ListEndpointsParams) (*models.EndpointPage, error) {
	var page models.EndpointPage
	err := s.client.sendJSON(ctx, &call{
		method: http.MethodGet,
		route:  "/endpoints",
		path:   []string{"endpoints"},
		query:  params.query(),
	}, &page)
	if err != nil {
		return nil, err
	}
	if page.Data == nil {
		page.Data = []models.Endpoint{}
	}
	return &page, nil
}

func (s *EndpointService) Get(ctx context.Context, id string) (*models.Endpoint, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	var ep models.Endpoint
	err := s.client.sendJSON(ctx, &call{
		method: http.MethodGet,
		route:  "/endpoints/{id}",
		path:   []string{"endpoints", id},
	}, &ep)
	if err != nil {
		return nil, err
	}
	return &ep, nil
}

func (s *EndpointService) Create(ctx context.Context, in models.EndpointInput) (*models.Endpoint, error) {
	var ep models.Endpoint
	err := s.client.sendJSON(ctx, &call{
		method: http.MethodPost,
		route:  "/endpoints",
		path:   []string{"endpoints"},
		body:   in,
	}, &ep)
	if err != nil {
		return nil, err
	}
	return &ep, nil
}

func (s *EndpointService) Update(ctx context.Context, id string, in models.EndpointInput) (*models.Endpoint, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	var ep models.Endpoint
	err := s.client.sendJSON(ctx, &call{
		method: http.MethodPut,
		route:  "/endpoints/{id}",
		path:   []string{"endpoints", id},
		body:   in,
	}, &ep)
	if err != nil {
		return nil, err
	}
	return &ep, nil
}

// SetActive pauses or resumes monitoring by updating only is_active.
func (s *EndpointService) SetActive(ctx context.Context, id string, active bool) (*models.Endpoint, error) {
	return s.Update(ctx, id, models.EndpointInput{IsActive: models.Bool(active)})
}

func (s *EndpointService) Delete(ctx context.Context, id string) error {
	if err := checkID(id); err != nil {
		return err
	}
	return s.client.sendJSON(ctx, &call{
		method: http.MethodDelete,
		route:  "/endpoints/{id}",
		path:   []string{"endpoints", id},
	}, nil)
}
