package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/jinzhu/inflection"
	"go.uber.org/zap"

	"github.com/reportly-app/reportly/pkg/auth"
	"github.com/reportly-app/reportly/pkg/models"
	"github.com/reportly-app/reportly/pkg/services"
)

// ScriptSummaryResponse is one library entry.
type ScriptSummaryResponse struct {
	models.ScriptSummary
	// VersionLabel reads "1 version" or "3 versions".
	VersionLabel string `json:"version_label"`
}

// ListScriptsResponse wraps the library for the frontend.
type ListScriptsResponse struct {
	Scripts []ScriptSummaryResponse `json:"scripts"`
}

// ListVersionsResponse wraps a title's versions.
type ListVersionsResponse struct {
	Title    string                 `json:"title"`
	Versions []models.ScriptVersion `json:"versions"`
}

// ScriptsHandler serves the script library.
type ScriptsHandler struct {
	scripts    services.ScriptService
	pricingURL string
	logger     *zap.Logger
}

// NewScriptsHandler creates a new scripts handler.
func NewScriptsHandler(scripts services.ScriptService, pricingURL string, logger *zap.Logger) *ScriptsHandler {
	return &ScriptsHandler{
		scripts:    scripts,
		pricingURL: pricingURL,
		logger:     logger,
	}
}

// RegisterRoutes registers the scripts handler's routes on the given mux.
func (h *ScriptsHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, userMiddleware UserMiddleware) {
	mux.HandleFunc("GET /api/scripts", authMiddleware.RequireAuth(userMiddleware(h.List)))
	mux.HandleFunc("POST /api/scripts", authMiddleware.RequireAuth(userMiddleware(h.Create)))
	mux.HandleFunc("GET /api/scripts/versions", authMiddleware.RequireAuth(userMiddleware(h.Versions)))
}

// VersionLabel renders a version count with the right noun form.
func VersionLabel(n int) string {
	noun := "version"
	if n != 1 {
		noun = inflection.Plural(noun)
	}
	return fmt.Sprintf("%d %s", n, noun)
}

// List handles GET /api/scripts. An optional ?q= keeps titles containing
// the query, ignoring case.
func (h *ScriptsHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r, h.logger)
	if !ok {
		return
	}

	library, err := h.scripts.Library(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err, "list_failed", "Failed to list scripts", h.pricingURL, h.logger)
		return
	}

	library = models.FilterByTitle(library, r.URL.Query().Get("q"))
	writeSuccess(w, http.StatusOK, ListScriptsResponse{Scripts: toSummaryResponses(library)}, h.logger)
}

// Create handles POST /api/scripts
func (h *ScriptsHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r, h.logger)
	if !ok {
		return
	}

	var req services.CreateScriptRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	script, err := h.scripts.CreateScript(r.Context(), userID, req)
	if err != nil {
		writeServiceError(w, err, "create_failed", "Failed to create script", h.pricingURL, h.logger)
		return
	}

	writeSuccess(w, http.StatusCreated, script, h.logger)
}

// Versions handles GET /api/scripts/versions?title=
func (h *ScriptsHandler) Versions(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r, h.logger)
	if !ok {
		return
	}

	title := strings.TrimSpace(r.URL.Query().Get("title"))
	if title == "" {
		writeError(w, http.StatusBadRequest, "missing_title", "Query parameter title is required", h.logger)
		return
	}

	versions, err := h.scripts.LoadVersions(r.Context(), userID, title)
	if err != nil {
		writeServiceError(w, err, "list_failed", "Failed to load versions", h.pricingURL, h.logger)
		return
	}

	writeSuccess(w, http.StatusOK, ListVersionsResponse{Title: title, Versions: versions}, h.logger)
}

func toSummaryResponses(library []models.ScriptSummary) []ScriptSummaryResponse {
	out := make([]ScriptSummaryResponse, len(library))
	for i, s := range library {
		out[i] = ScriptSummaryResponse{ScriptSummary: s, VersionLabel: VersionLabel(s.VersionCount)}
	}
	return out
}
