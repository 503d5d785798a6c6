// Package ops serves the operational endpoints: health and Prometheus metrics.
// They live on their own listener so the relay keeps every path.
package ops

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/okian/flightrelay/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HealthHandler reports liveness and the relay's fixed settings.
type HealthHandler struct {
	upstreamURL string
	started     time.Time
}

// NewHealthHandler creates a health handler.
func NewHealthHandler(upstreamURL string) *HealthHandler {
	return &HealthHandler{upstreamURL: upstreamURL, started: time.Now()}
}

type healthResponse struct {
	Status   string `json:"status"`
	Upstream string `json:"upstream"`
	Uptime   string `json:"uptime"`
}

// HandleHealth handles GET /healthz requests.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(healthResponse{
		Status:   "ok",
		Upstream: h.upstreamURL,
		Uptime:   time.Since(h.started).Round(time.Second).String(),
	})
}

// Register attaches /healthz and /metrics to mux.
func Register(_ context.Context, mux *http.ServeMux, health *HealthHandler) {
	if mux == nil {
		panic("mux is nil")
	}
	mux.HandleFunc("GET /healthz", health.HandleHealth)
	mux.Handle("GET /metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))
}
