// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"
)

// SyncDependencies defines the interface for the manual sync trigger.
type SyncDependencies interface {
	TriggerSync(ctx context.Context)
}

// SyncHandler handles manual sync trigger requests.
type SyncHandler struct {
	deps SyncDependencies
}

// NewSyncHandler creates a new sync handler.
func NewSyncHandler(deps SyncDependencies) *SyncHandler {
	return &SyncHandler{deps: deps}
}

// HandleFetch handles GET /api/fetch-police-data requests: one immediate
// out-of-cycle live sync. Fetch failures are absorbed by the pipeline, so
// the response is always an acknowledgement.
func (h *SyncHandler) HandleFetch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	h.deps.TriggerSync(r.Context())
	writeJSON(w, http.StatusOK, messageResponse{Message: "Sync triggered successfully!"})
}
