package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/sdko-org/uptime-dashboard/internal/models"
	"github.com/sdko-org/uptime-dashboard/internal/monitorapi"
	"github.com/sdko-org/uptime-dashboard/internal/view"
)

type endpointListResponse struct {
	Data       []models.Endpoint `json:"data"`
	Pagination view.Pagination   `json:"pagination"`
	Search     string            `json:"search,omitempty"`
	Tags       []string          `json:"tags,omitempty"`
}

type dashboardResponse struct {
	Endpoints  endpointCounts     `json:"endpoints"`
	Statistics *models.Statistics `json:"statistics"`
	Summary    view.Summary       `json:"summary"`
	Range      models.TimeRange   `json:"range"`
}

type endpointCounts struct {
	Total    int `json:"total"`
	Active   int `json:"active"`
	Inactive int `json:"inactive"`
}

type statusRequest struct {
	IsActive *bool `json:"is_active"`
}

func queryInt(r *http.Request, name string) int {
	n, _ := strconv.Atoi(r.URL.Query().Get(name))
	return n
}

func queryTags(r *http.Request) []string {
	var tags []string
	for _, raw := range r.URL.Query()["tags"] {
		for _, tag := range strings.Split(raw, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				tags = append(tags, tag)
			}
		}
	}
	return tags
}

func (h *DashboardHandler) ListEndpoints(w http.ResponseWriter, r *http.Request) {
	page, limit := view.NormalizePage(queryInt(r, "page"), queryInt(r, "limit"))
	params := monitorapi.ListEndpointsParams{
		Page:   page,
		Limit:  limit,
		Search: strings.TrimSpace(r.URL.Query().Get("search")),
		Tags:   queryTags(r),
	}

	result, err := h.endpoints.List(r.Context(), params)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, endpointListResponse{
		Data:       result.Data,
		Pagination: view.Paginate(result.Total, page, limit),
		Search:     params.Search,
		Tags:       params.Tags,
	})
}

func (h *DashboardHandler) GetEndpoint(w http.ResponseWriter, r *http.Request) {
	ep, err := h.endpoints.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ep)
}

func (h *DashboardHandler) CreateEndpoint(w http.ResponseWriter, r *http.Request) {
	var in models.EndpointInput
	if err := decodeBody(w, r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	rawURL := ""
	if in.URL != nil {
		rawURL = *in.URL
	}
	if err := view.ValidateEndpointURL(rawURL); err != nil {
		h.writeError(w, r, err)
		return
	}

	ep, err := h.endpoints.Create(r.Context(), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.log.WithField("endpoint_id", ep.ID).Info("Endpoint created")
	writeJSON(w, http.StatusCreated, ep)
}

func (h *DashboardHandler) UpdateEndpoint(w http.ResponseWriter, r *http.Request) {
	var in models.EndpointInput
	if err := decodeBody(w, r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	if in.URL != nil {
		if err := view.ValidateEndpointURL(*in.URL); err != nil {
			h.writeError(w, r, err)
			return
		}
	}

	ep, err := h.endpoints.Update(r.Context(), mux.Vars(r)["id"], in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ep)
}

func (h *DashboardHandler) SetEndpointStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if req.IsActive == nil {
		h.writeError(w, r, &view.ValidationError{Field: "is_active", Message: "is_active is required"})
		return
	}

	ep, err := h.endpoints.SetActive(r.Context(), mux.Vars(r)["id"], *req.IsActive)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ep)
}

func (h *DashboardHandler) DeleteEndpoint(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.endpoints.Delete(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.log.WithField("endpoint_id", id).Info("Endpoint deleted")
	w.WriteHeader(http.StatusNoContent)
}

// Dashboard summarises the account: endpoint counts and overall statistics
// for the selected range.
func (h *DashboardHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	rng, err := h.rangeFromQuery(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	page, err := h.endpoints.List(r.Context(), monitorapi.ListEndpointsParams{Page: 1, Limit: view.MaxPageSize})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	stats, err := h.logs.Stats(r.Context(), monitorapi.StatsParams{Range: rng})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	counts := endpointCounts{Total: page.Total}
	for _, ep := range page.Data {
		if ep.IsActive {
			counts.Active++
		}
	}
	if counts.Total < len(page.Data) {
		counts.Total = len(page.Data)
	}
	counts.Inactive = len(page.Data) - counts.Active

	writeJSON(w, http.StatusOK, dashboardResponse{
		Endpoints:  counts,
		Statistics: stats,
		Summary:    view.Summarize(stats),
		Range:      rng,
	})
}

func (h *DashboardHandler) rangeFromQuery(r *http.Request) (models.TimeRange, error) {
	q := r.URL.Query()
	return view.ResolveRange(q.Get("range"), q.Get("start"), q.Get("end"), h.now())
}
