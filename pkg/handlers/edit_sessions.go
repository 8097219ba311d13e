package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/reportly-app/reportly/pkg/auth"
	"github.com/reportly-app/reportly/pkg/models"
	"github.com/reportly-app/reportly/pkg/services"
)

// EditorCookies remembers the caller's open edit session across reloads.
// *auth.SessionStore implements it.
type EditorCookies interface {
	RememberEditSession(w http.ResponseWriter, r *http.Request, userID, editSessionID string) error
	CurrentEditSession(r *http.Request, userID string) (string, bool)
	ForgetEditSession(w http.ResponseWriter, r *http.Request) error
}

var _ EditorCookies = (*auth.SessionStore)(nil)

// DetectChangesRequest carries the editor's current content.
type DetectChangesRequest struct {
	Content string `json:"content"`
}

// SaveScriptRequest is the body of a save. An empty mode takes the
// session's default for the given content.
type SaveScriptRequest struct {
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Tags        []string `json:"tags"`
	Content     string   `json:"content"`
	Mode        string   `json:"mode"`
}

// RestoreVersionRequest selects the version to restore.
type RestoreVersionRequest struct {
	Version int `json:"version"`
}

// EditSessionsHandler serves the script editor.
type EditSessionsHandler struct {
	sessions   services.EditSessionService
	cookies    EditorCookies
	pricingURL string
	logger     *zap.Logger
}

// NewEditSessionsHandler creates a new edit sessions handler.
func NewEditSessionsHandler(sessions services.EditSessionService, cookies EditorCookies, pricingURL string, logger *zap.Logger) *EditSessionsHandler {
	return &EditSessionsHandler{
		sessions:   sessions,
		cookies:    cookies,
		pricingURL: pricingURL,
		logger:     logger,
	}
}

// RegisterRoutes registers the edit sessions handler's routes on the given mux.
func (h *EditSessionsHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, userMiddleware UserMiddleware) {
	mux.HandleFunc("POST /api/scripts/{sid}/edit", authMiddleware.RequireAuth(userMiddleware(h.Begin)))
	mux.HandleFunc("GET /api/edit-sessions/current", authMiddleware.RequireAuth(h.Current))
	mux.HandleFunc("GET /api/edit-sessions/{esid}", authMiddleware.RequireAuth(h.Get))
	mux.HandleFunc("POST /api/edit-sessions/{esid}/changes", authMiddleware.RequireAuth(h.DetectChanges))
	mux.HandleFunc("POST /api/edit-sessions/{esid}/save", authMiddleware.RequireAuth(userMiddleware(h.Save)))
	mux.HandleFunc("POST /api/edit-sessions/{esid}/restore", authMiddleware.RequireAuth(userMiddleware(h.Restore)))
	mux.HandleFunc("DELETE /api/edit-sessions/{esid}", authMiddleware.RequireAuth(h.Discard))
}

// Begin handles POST /api/scripts/{sid}/edit
func (h *EditSessionsHandler) Begin(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r, h.logger)
	if !ok {
		return
	}
	scriptID, ok := ParseScriptID(w, r, h.logger)
	if !ok {
		return
	}

	view, err := h.sessions.BeginEdit(r.Context(), userID, scriptID)
	if err != nil {
		writeServiceError(w, err, "edit_failed", "Failed to open script for editing", h.pricingURL, h.logger)
		return
	}

	if err := h.cookies.RememberEditSession(w, r, userID, view.ID); err != nil {
		// The session is usable without the cookie; only resume-on-reload is lost.
		h.logger.Warn("Failed to remember edit session",
			zap.String("session_id", view.ID),
			zap.Error(err))
	}

	writeSuccess(w, http.StatusCreated, view, h.logger)
}

// Current handles GET /api/edit-sessions/current
func (h *EditSessionsHandler) Current(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r, h.logger)
	if !ok {
		return
	}

	sessionID, ok := h.cookies.CurrentEditSession(r, userID)
	if !ok {
		writeError(w, http.StatusNotFound, "session_not_found", "No edit session in progress", h.logger)
		return
	}

	view, err := h.sessions.Get(userID, sessionID)
	if err != nil {
		writeServiceError(w, err, "get_failed", "Failed to load edit session", h.pricingURL, h.logger)
		return
	}

	writeSuccess(w, http.StatusOK, view, h.logger)
}

// Get handles GET /api/edit-sessions/{esid}
func (h *EditSessionsHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r, h.logger)
	if !ok {
		return
	}
	sessionID, ok := ParseEditSessionID(w, r, h.logger)
	if !ok {
		return
	}

	view, err := h.sessions.Get(userID, sessionID)
	if err != nil {
		writeServiceError(w, err, "get_failed", "Failed to load edit session", h.pricingURL, h.logger)
		return
	}

	writeSuccess(w, http.StatusOK, view, h.logger)
}

// DetectChanges handles POST /api/edit-sessions/{esid}/changes
func (h *EditSessionsHandler) DetectChanges(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r, h.logger)
	if !ok {
		return
	}
	sessionID, ok := ParseEditSessionID(w, r, h.logger)
	if !ok {
		return
	}

	var req DetectChangesRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	report, err := h.sessions.DetectContentChange(userID, sessionID, req.Content)
	if err != nil {
		writeServiceError(w, err, "detect_failed", "Failed to compare content", h.pricingURL, h.logger)
		return
	}

	writeSuccess(w, http.StatusOK, report, h.logger)
}

// Save handles POST /api/edit-sessions/{esid}/save
func (h *EditSessionsHandler) Save(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r, h.logger)
	if !ok {
		return
	}
	sessionID, ok := ParseEditSessionID(w, r, h.logger)
	if !ok {
		return
	}

	var req SaveScriptRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	var mode models.SaveMode
	if req.Mode == "" {
		changes, err := h.sessions.DetectContentChange(userID, sessionID, req.Content)
		if err != nil {
			writeServiceError(w, err, "save_failed", "Failed to save script", h.pricingURL, h.logger)
			return
		}
		mode = changes.DefaultMode
	} else {
		parsed, err := models.ParseSaveMode(req.Mode)
		if err != nil {
			writeServiceError(w, err, "save_failed", "Failed to save script", h.pricingURL, h.logger)
			return
		}
		mode = parsed
	}

	result, err := h.sessions.Save(r.Context(), userID, sessionID, services.SaveRequest{
		Description: req.Description,
		Category:    req.Category,
		Tags:        req.Tags,
		Content:     req.Content,
		Mode:        mode,
	})
	if err != nil {
		writeServiceError(w, err, "save_failed", "Failed to save script", h.pricingURL, h.logger)
		return
	}

	h.forget(w, r, sessionID)
	writeSuccess(w, http.StatusOK, result, h.logger)
}

// Restore handles POST /api/edit-sessions/{esid}/restore
func (h *EditSessionsHandler) Restore(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r, h.logger)
	if !ok {
		return
	}
	sessionID, ok := ParseEditSessionID(w, r, h.logger)
	if !ok {
		return
	}

	var req RestoreVersionRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	view, err := h.sessions.Restore(r.Context(), userID, sessionID, req.Version)
	if err != nil {
		writeServiceError(w, err, "restore_failed", "Failed to restore version", h.pricingURL, h.logger)
		return
	}

	writeSuccess(w, http.StatusOK, view, h.logger)
}

// Discard handles DELETE /api/edit-sessions/{esid}
func (h *EditSessionsHandler) Discard(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r, h.logger)
	if !ok {
		return
	}
	sessionID, ok := ParseEditSessionID(w, r, h.logger)
	if !ok {
		return
	}

	if err := h.sessions.Discard(userID, sessionID); err != nil {
		writeServiceError(w, err, "discard_failed", "Failed to discard edit session", h.pricingURL, h.logger)
		return
	}

	h.forget(w, r, sessionID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *EditSessionsHandler) forget(w http.ResponseWriter, r *http.Request, sessionID string) {
	if err := h.cookies.ForgetEditSession(w, r); err != nil {
		h.logger.Warn("Failed to clear edit session cookie",
			zap.String("session_id", sessionID),
			zap.Error(err))
	}
}
