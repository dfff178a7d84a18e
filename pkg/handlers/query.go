package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-sqlchat/pkg/logging"
	"github.com/ekaya-inc/ekaya-sqlchat/pkg/models"
	"github.com/ekaya-inc/ekaya-sqlchat/pkg/services"
)

// QueryResponse is the 200 reply to POST /query.
type QueryResponse struct {
	Query         string                   `json:"query"`
	Results       []map[string]any         `json:"results"`
	ExecutionTime float64                  `json:"execution_time"`
	Success       bool                     `json:"success"`
	Analytics     models.AnalyticsSnapshot `json:"analytics"`
}

// QueryFailureResponse is the 500 reply to POST /query. Query echoes the
// question; SQL is set when generation succeeded.
type QueryFailureResponse struct {
	Error         string                   `json:"error"`
	Query         string                   `json:"query"`
	Database      string                   `json:"database"`
	SQL           string                   `json:"sql,omitempty"`
	Results       []map[string]any         `json:"results"`
	ExecutionTime float64                  `json:"execution_time"`
	Success       bool                     `json:"success"`
	Analytics     models.AnalyticsSnapshot `json:"analytics"`
}

// QueryHandler turns questions into query results.
type QueryHandler struct {
	runner    services.QueryRunner
	analytics *services.Analytics
	logger    *zap.Logger
}

// NewQueryHandler creates a new QueryHandler. analytics is the aggregator the
// runner records into; its snapshot is attached to every reply.
func NewQueryHandler(runner services.QueryRunner, analytics *services.Analytics, logger *zap.Logger) *QueryHandler {
	return &QueryHandler{runner: runner, analytics: analytics, logger: logger}
}

// RegisterRoutes registers POST /query on the given mux.
func (h *QueryHandler) RegisterRoutes(mux *http.ServeMux) {
	handle(mux, http.MethodPost, "/query", h.Query)
}

// Query handles POST /query.
func (h *QueryHandler) Query(w http.ResponseWriter, r *http.Request) {
	var req models.QueryRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	req.Database = strings.TrimSpace(req.Database)
	if req.Database == "" {
		_ = ErrorResponse(w, http.StatusBadRequest, errDatabaseRequired)
		return
	}

	result := h.runner.Run(r.Context(), req)

	h.logger.Info("Query processed",
		zap.String("request_id", logging.RequestID(r.Context())),
		zap.String("database", req.Database),
		zap.String("question", logging.SanitizeQuery(req.Query)),
		zap.String("sql", logging.SanitizeQuery(result.SQL)),
		zap.Float64("execution_time", result.ExecutionTimeSeconds),
		zap.Bool("success", result.Success))

	snapshot := h.analytics.Snapshot()

	if !result.Success {
		resp := QueryFailureResponse{
			Error:         logging.SanitizeText(result.Error()),
			Query:         req.Query,
			Database:      req.Database,
			SQL:           result.SQL,
			Results:       []map[string]any{},
			ExecutionTime: result.ExecutionTimeSeconds,
			Analytics:     snapshot,
		}
		if err := WriteJSON(w, http.StatusInternalServerError, resp); err != nil {
			h.logger.Error("Failed to encode response", zap.Error(err))
		}
		return
	}

	resp := QueryResponse{
		Query:         result.SQL,
		Results:       result.Rows,
		ExecutionTime: result.ExecutionTimeSeconds,
		Success:       true,
		Analytics:     snapshot,
	}
	if err := WriteJSON(w, http.StatusOK, resp); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}
