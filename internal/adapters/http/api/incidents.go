// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/hedvall/vakthund/internal/domain/model"
)

// IncidentDependencies defines the interface for incident read operations.
type IncidentDependencies interface {
	Recent(ctx context.Context, n int) ([]model.StoredIncident, error)
}

// IncidentsHandler handles dashboard read requests.
type IncidentsHandler struct {
	deps IncidentDependencies
}

// NewIncidentsHandler creates a new incidents handler.
func NewIncidentsHandler(deps IncidentDependencies) *IncidentsHandler {
	return &IncidentsHandler{deps: deps}
}

// HandleGetIncidents handles GET /api/incidents requests. An optional
// ?limit=N narrows the read; the service clamps it to its configured cap.
func (h *IncidentsHandler) HandleGetIncidents(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_incidents"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		n, err := strconv.Atoi(limitStr)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
			return
		}
		limit = n
	}
	incidents, err := h.deps.Recent(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "store_error", Wrap(op, err))
		return
	}
	if incidents == nil {
		incidents = []model.StoredIncident{}
	}
	writeJSON(w, http.StatusOK, incidents)
}
