package handlers

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsHandler exposes the default Prometheus registry.
type MetricsHandler struct{}

func NewMetricsHandler() *MetricsHandler { return &MetricsHandler{} }

func (h *MetricsHandler) RegisterRoutes(mux *http.ServeMux) {
	metrics := promhttp.Handler()
	mux.Handle("GET /metrics", metrics)
	mux.Handle("GET /api/metrics", metrics)
}
