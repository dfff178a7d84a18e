package handlers

import (
	"net/http"
	"os"
	"runtime"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-sqlchat/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-sqlchat/pkg/config"
	"github.com/ekaya-inc/ekaya-sqlchat/pkg/llm"
	"github.com/ekaya-inc/ekaya-sqlchat/pkg/models"
	"github.com/ekaya-inc/ekaya-sqlchat/pkg/services"
)

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status    string                   `json:"status"`
	Analytics models.AnalyticsSnapshot `json:"analytics"`
}

// PingResponse contains service status and version information.
type PingResponse struct {
	Status      string `json:"status"`
	Version     string `json:"version"`
	Service     string `json:"service"`
	GoVersion   string `json:"go_version"`
	Hostname    string `json:"hostname"`
	Environment string `json:"environment"`

	// Datasources lists the adapter types compiled into this binary.
	Datasources []string `json:"datasources"`
	// LLMCircuit is the SQL generator's circuit state. Empty when questions
	// are forwarded to a query service.
	LLMCircuit     string `json:"llm_circuit,omitempty"`
	HistoryEntries int    `json:"history_entries"`
}

// HealthHandler handles health check and ping endpoints.
type HealthHandler struct {
	cfg       *config.Config
	analytics *services.Analytics
	history   *services.History
	breaker   *llm.CircuitBreaker
	logger    *zap.Logger
}

// NewHealthHandler creates a new HealthHandler. breaker may be nil.
func NewHealthHandler(
	cfg *config.Config,
	analytics *services.Analytics,
	history *services.History,
	breaker *llm.CircuitBreaker,
	logger *zap.Logger,
) *HealthHandler {
	return &HealthHandler{cfg: cfg, analytics: analytics, history: history, breaker: breaker, logger: logger}
}

// RegisterRoutes registers the health handler's routes on the given mux.
func (h *HealthHandler) RegisterRoutes(mux *http.ServeMux) {
	handle(mux, http.MethodGet, "/health", h.Health)
	handle(mux, http.MethodGet, "/ping", h.Ping)
}

// Health handles GET /health. It always reports "ok" along with the
// current analytics snapshot.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{Status: "ok", Analytics: h.analytics.Snapshot()}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to encode health response", zap.Error(err))
	}
}

// Ping handles GET /ping requests.
// Returns detailed service information including version and environment.
func (h *HealthHandler) Ping(w http.ResponseWriter, r *http.Request) {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	response := PingResponse{
		Status:      "ok",
		Version:     h.cfg.Version,
		Service:     "ekaya-sqlchat",
		GoVersion:   runtime.Version(),
		Hostname:    hostname,
		Environment: h.cfg.Env,
		Datasources: datasource.RegisteredTypes(),
	}
	if h.breaker != nil {
		response.LLMCircuit = h.breaker.State().String()
	}
	if h.history != nil {
		response.HistoryEntries = h.history.Len()
	}

	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to encode ping response", zap.Error(err))
	}
}
