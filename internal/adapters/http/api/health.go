package api

import (
	"context"
	"net/http"

	"github.com/okian/wastesync/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Pinger reports whether the sink is reachable.
type Pinger interface {
	TestConnection(ctx context.Context) error
}

// HealthHandler handles health and readiness requests.
type HealthHandler struct {
	pinger  Pinger
	metrics http.Handler
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(p Pinger) *HealthHandler {
	return &HealthHandler{
		pinger:  p,
		metrics: promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}),
	}
}

// HandleHealth serves the service metrics in Prometheus text format.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	h.metrics.ServeHTTP(w, r)
}

// HandleReady reports 200 when the sink answers a ping and 503 otherwise.
func (h *HealthHandler) HandleReady(w http.ResponseWriter, r *http.Request) {
	const op = "api.ready"
	if err := h.pinger.TestConnection(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "unavailable", WrapKind(op, ErrUnavailable, err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
