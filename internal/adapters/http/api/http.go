// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/hedvall/vakthund/internal/domain/model"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Recent returns up to n stored incidents, newest first.
	Recent(ctx context.Context, n int) ([]model.StoredIncident, error)

	// Inject scores and stores a sandbox incident, returning the record.
	Inject(ctx context.Context, in model.Incident) (model.StoredIncident, error)

	// TriggerSync runs one immediate out-of-cycle live sync.
	TriggerSync(ctx context.Context)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler    *HealthHandler
	statsHandler     *StatsHandler
	incidentsHandler *IncidentsHandler
	sandboxHandler   *SandboxHandler
	syncHandler      *SyncHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:    NewHealthHandler(),
		statsHandler:     NewStatsHandler(statsProvider),
		incidentsHandler: NewIncidentsHandler(deps),
		sandboxHandler:   NewSandboxHandler(deps),
		syncHandler:      NewSyncHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/api/incidents", MetricsMiddleware(s.incidentsHandler.HandleGetIncidents, "incidents"))
	mux.HandleFunc("/api/test-sandbox/inject", MetricsMiddleware(s.sandboxHandler.HandleInject, "sandbox_inject"))
	mux.HandleFunc("/api/fetch-police-data", MetricsMiddleware(s.syncHandler.HandleFetch, "fetch_police_data"))
}

type messageResponse struct {
	Message string `json:"message"`
}

type injectResponse struct {
	Message string               `json:"message"`
	Result  model.StoredIncident `json:"result"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// NewKind tags a sentinel kind with the failing operation.
func NewKind(op string, kind error) error {
	return fmt.Errorf("%s: %w", op, kind)
}

// WrapKind tags a sentinel kind with the operation and an underlying cause.
func WrapKind(op string, kind, err error) error {
	return fmt.Errorf("%s: %w: %v", op, kind, err)
}

// Wrap tags an error with the failing operation.
func Wrap(op string, err error) error {
	return fmt.Errorf("%s: %w", op, err)
}
