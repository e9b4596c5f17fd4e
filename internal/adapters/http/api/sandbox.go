// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hedvall/vakthund/internal/domain/model"
)

// SandboxDependencies defines the interface for sandbox injection.
type SandboxDependencies interface {
	Inject(ctx context.Context, in model.Incident) (model.StoredIncident, error)
}

// SandboxHandler handles QA sandbox injection requests.
type SandboxHandler struct {
	deps SandboxDependencies
}

// NewSandboxHandler creates a new sandbox handler.
func NewSandboxHandler(deps SandboxDependencies) *SandboxHandler {
	return &SandboxHandler{deps: deps}
}

// HandleInject handles POST /api/test-sandbox/inject requests. The body may
// be deliberately malformed incident data; only unparseable JSON is a
// request error, everything else is scored as-is.
func (h *SandboxHandler) HandleInject(w http.ResponseWriter, r *http.Request) {
	const op = "api.sandbox_inject"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var in model.Incident
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	rec, err := h.deps.Inject(r.Context(), in)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "store_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, injectResponse{
		Message: "Corrupt data injected and scored!",
		Result:  rec,
	})
}
