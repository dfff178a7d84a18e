package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-sqlchat/pkg/models"
	"github.com/ekaya-inc/ekaya-sqlchat/pkg/services"
)

// HistoryResponse is returned by GET /history, newest entry first.
type HistoryResponse struct {
	History []models.QueryHistoryEntry `json:"history"`
}

// HistoryHandler serves recently answered questions.
type HistoryHandler struct {
	history *services.History
	logger  *zap.Logger
}

func NewHistoryHandler(history *services.History, logger *zap.Logger) *HistoryHandler {
	return &HistoryHandler{history: history, logger: logger}
}

func (h *HistoryHandler) RegisterRoutes(mux *http.ServeMux) {
	handle(mux, http.MethodGet, "/history", h.List)
}

// List handles GET /history.
func (h *HistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	if err := WriteJSON(w, http.StatusOK, HistoryResponse{History: h.history.List()}); err != nil {
		h.logger.Error("Failed to encode history response", zap.Error(err))
	}
}
