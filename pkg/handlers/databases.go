package handlers

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-sqlchat/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-sqlchat/pkg/logging"
	"github.com/ekaya-inc/ekaya-sqlchat/pkg/models"
	"github.com/ekaya-inc/ekaya-sqlchat/pkg/services"
)

// errDatabaseRequired is the reply for requests without a database name.
const errDatabaseRequired = "Database name required"

// DatabasesResponse is returned by GET /databases.
type DatabasesResponse struct {
	Databases []string `json:"databases"`
}

// TablesResponse is returned by GET /tables.
type TablesResponse struct {
	Tables []string `json:"tables"`
}

// ColumnsResponse is returned by GET /columns.
type ColumnsResponse struct {
	Columns models.SchemaMap `json:"columns"`
}

// SchemaHandler serves the schema pass-through endpoints.
type SchemaHandler struct {
	runner services.QueryRunner
	logger *zap.Logger
}

// NewSchemaHandler creates a new SchemaHandler.
func NewSchemaHandler(runner services.QueryRunner, logger *zap.Logger) *SchemaHandler {
	return &SchemaHandler{runner: runner, logger: logger}
}

// RegisterRoutes registers the schema routes on the given mux.
func (h *SchemaHandler) RegisterRoutes(mux *http.ServeMux) {
	handle(mux, http.MethodGet, "/databases", h.ListDatabases)
	handle(mux, http.MethodGet, "/tables", h.ListTables)
	handle(mux, http.MethodGet, "/columns", h.ListColumns)
}

// ListDatabases handles GET /databases.
func (h *SchemaHandler) ListDatabases(w http.ResponseWriter, r *http.Request) {
	databases, err := h.runner.ListDatabases(r.Context())
	if err != nil {
		h.fail(w, "list databases", err)
		return
	}
	if databases == nil {
		databases = []string{}
	}
	if err := WriteJSON(w, http.StatusOK, DatabasesResponse{Databases: databases}); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

// ListTables handles GET /tables?database=<name>.
func (h *SchemaHandler) ListTables(w http.ResponseWriter, r *http.Request) {
	database := strings.TrimSpace(r.URL.Query().Get("database"))
	if database == "" {
		_ = ErrorResponse(w, http.StatusBadRequest, errDatabaseRequired)
		return
	}

	tables, err := h.runner.ListTables(r.Context(), database)
	if err != nil {
		h.fail(w, "list tables", err)
		return
	}
	if tables == nil {
		tables = []string{}
	}
	if err := WriteJSON(w, http.StatusOK, TablesResponse{Tables: tables}); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

// ListColumns handles GET /columns?database=<name>.
func (h *SchemaHandler) ListColumns(w http.ResponseWriter, r *http.Request) {
	database := strings.TrimSpace(r.URL.Query().Get("database"))
	if database == "" {
		_ = ErrorResponse(w, http.StatusBadRequest, errDatabaseRequired)
		return
	}

	schema, err := h.runner.FetchSchema(r.Context(), database)
	if err != nil {
		h.fail(w, "fetch columns", err)
		return
	}
	if schema == nil {
		schema = models.SchemaMap{}
	}
	if err := WriteJSON(w, http.StatusOK, ColumnsResponse{Columns: schema}); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

// fail maps a lookup error to 400 for bad input and 500 otherwise.
func (h *SchemaHandler) fail(w http.ResponseWriter, op string, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, apperrors.ErrConfig) {
		status = http.StatusBadRequest
	}
	msg := logging.SanitizeError(err)
	h.logger.Error("Schema lookup failed", zap.String("op", op), zap.String("error", msg))
	_ = ErrorResponse(w, status, msg)
}
