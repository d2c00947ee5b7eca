package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sdko-org/uptime-dashboard/internal/models"
	"github.com/sdko-org/uptime-dashboard/internal/monitorapi"
	"github.com/sdko-org/uptime-dashboard/internal/storage"
	"github.com/sdko-org/uptime-dashboard/internal/view"
	"github.com/sirupsen/logrus"
)

const defaultLogLimit = 20

type statsResponse struct {
	EndpointID string             `json:"endpoint_id,omitempty"`
	Statistics *models.Statistics `json:"statistics"`
	Summary    view.Summary       `json:"summary"`
	Range      models.TimeRange   `json:"range"`
}

func hasRangeQuery(r *http.Request) bool {
	q := r.URL.Query()
	return q.Get("range") != "" || q.Get("start") != "" || q.Get("end") != ""
}

// ListLogs pages through check results, optionally restricted to a range.
func (h *DashboardHandler) ListLogs(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	limit := queryInt(r, "limit")
	if limit <= 0 || limit > view.MaxPageSize {
		limit = defaultLogLimit
	}
	params := monitorapi.ListLogsParams{Limit: limit, NextToken: r.URL.Query().Get("next_token")}

	var (
		page *models.LogPage
		err  error
	)
	if hasRangeQuery(r) {
		var rng models.TimeRange
		if rng, err = h.rangeFromQuery(r); err != nil {
			h.writeError(w, r, err)
			return
		}
		page, err = h.logs.ListRange(r.Context(), id, rng, params)
	} else {
		page, err = h.logs.List(r.Context(), id, params)
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *DashboardHandler) EndpointStats(w http.ResponseWriter, r *http.Request) {
	h.stats(w, r, mux.Vars(r)["id"])
}

func (h *DashboardHandler) OverallStats(w http.ResponseWriter, r *http.Request) {
	h.stats(w, r, "")
}

func (h *DashboardHandler) stats(w http.ResponseWriter, r *http.Request, endpointID string) {
	rng, err := h.rangeFromQuery(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	stats, err := h.logs.Stats(r.Context(), monitorapi.StatsParams{EndpointID: endpointID, Range: rng})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, statsResponse{
		EndpointID: endpointID,
		Statistics: stats,
		Summary:    view.Summarize(stats),
		Range:      rng,
	})
}

// ExportLogs streams the CSV for a range as an attachment. Closed ranges are
// served from and written to the export archive when one is configured.
func (h *DashboardHandler) ExportLogs(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	rng, err := h.rangeFromQuery(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	ep, err := h.endpoints.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	log := h.log.WithFields(logrus.Fields{
		"endpoint_id": id,
		"start":       rng.Start,
		"end":         rng.End,
	})

	archivable := h.archive != nil && h.archive.Archivable(rng)
	var data []byte
	source := "api"
	if archivable {
		data, err = h.archive.Get(r.Context(), id, rng)
		switch {
		case err == nil:
			source = "archive"
		case errors.Is(err, storage.ErrNotFound):
		default:
			log.WithError(err).Warn("Export archive lookup failed")
		}
	}

	if source == "api" {
		if data, err = h.logs.Export(r.Context(), id, rng); err != nil {
			h.writeError(w, r, err)
			return
		}
		if archivable {
			if err := h.archive.Put(r.Context(), id, rng, data); err != nil {
				log.WithError(err).Warn("Failed to archive export")
			}
		}
	}

	log.WithFields(logrus.Fields{"source": source, "bytes": len(data)}).Info("Serving log export")
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", view.ExportFilename(*ep, rng)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
