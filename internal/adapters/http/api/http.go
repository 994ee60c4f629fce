// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	service "github.com/okian/wastesync/internal/app"
	"github.com/okian/wastesync/internal/domain/model"
)

const (
	defaultMaxRecentLimit = 1000
	maxBodyBytes          = 4 << 20
)

// Dependencies required by HTTP handlers. *service.Service satisfies it.
type Dependencies interface {
	Sync(ctx context.Context, obs any, opts ...service.SyncOption) (service.Result, error)
	SyncAsync(ctx context.Context, obs any, opts ...service.SyncOption) (service.Result, error)
	Recent(ctx context.Context, since time.Time, limit int) ([]model.StoredRecord, error)
	Aggregate(ctx context.Context, since time.Time) ([]service.Total, error)
	TestConnection(ctx context.Context) error
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler    *HealthHandler
	statsHandler     *StatsHandler
	foodWasteHandler *FoodWasteHandler
}

// NewServer creates a new API server with all handlers. maxRecent caps the
// limit accepted by the recent-records endpoint.
func NewServer(deps Dependencies, statsProvider StatsProvider, maxRecent int) *Server {
	if maxRecent <= 0 {
		maxRecent = defaultMaxRecentLimit
	}
	return &Server{
		healthHandler:    NewHealthHandler(deps),
		statsHandler:     NewStatsHandler(statsProvider),
		foodWasteHandler: NewFoodWasteHandler(deps, maxRecent),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/readyz", MetricsMiddleware(s.healthHandler.HandleReady, "readyz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/food-waste", MetricsMiddleware(s.foodWasteHandler.HandlePost, "food_waste"))
	mux.HandleFunc("/food-waste/recent", MetricsMiddleware(s.foodWasteHandler.HandleRecent, "food_waste_recent"))
	mux.HandleFunc("/food-waste/aggregate", MetricsMiddleware(s.foodWasteHandler.HandleAggregate, "food_waste_aggregate"))
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

func methodNotAllowed(w http.ResponseWriter, allow string) {
	w.Header().Set("Allow", allow)
	writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
}
