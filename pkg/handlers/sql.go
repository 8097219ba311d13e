package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/reportly-app/reportly/pkg/auth"
	sqltext "github.com/reportly-app/reportly/pkg/sql"
)

// SQLTextRequest carries SQL text to transform.
type SQLTextRequest struct {
	SQL string `json:"sql"`
}

// FormatResponse holds reformatted SQL.
type FormatResponse struct {
	Formatted string `json:"formatted"`
}

// HighlightResponse holds SQL as escaped HTML with keyword spans.
type HighlightResponse struct {
	HTML string `json:"html"`
}

// SQLHandler serves the editor's SQL text transforms.
type SQLHandler struct {
	logger *zap.Logger
}

// NewSQLHandler creates a new SQL handler.
func NewSQLHandler(logger *zap.Logger) *SQLHandler {
	return &SQLHandler{logger: logger}
}

// RegisterRoutes registers the SQL handler's routes on the given mux.
func (h *SQLHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	mux.HandleFunc("POST /api/sql/format", authMiddleware.RequireAuth(h.Format))
	mux.HandleFunc("POST /api/sql/highlight", authMiddleware.RequireAuth(h.Highlight))
}

// Format handles POST /api/sql/format
func (h *SQLHandler) Format(w http.ResponseWriter, r *http.Request) {
	var req SQLTextRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}
	writeSuccess(w, http.StatusOK, FormatResponse{Formatted: sqltext.Format(req.SQL)}, h.logger)
}

// Highlight handles POST /api/sql/highlight
func (h *SQLHandler) Highlight(w http.ResponseWriter, r *http.Request) {
	var req SQLTextRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}
	writeSuccess(w, http.StatusOK, HighlightResponse{HTML: sqltext.Highlight(req.SQL)}, h.logger)
}
