package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/reportly-app/reportly/pkg/auth"
	"github.com/reportly-app/reportly/pkg/models"
	"github.com/reportly-app/reportly/pkg/services"
)

// SettingsHandler serves the caller's profile, preferences and avatar.
type SettingsHandler struct {
	settings services.UserSettingsService
	logger   *zap.Logger
}

// NewSettingsHandler creates a new settings handler.
func NewSettingsHandler(settings services.UserSettingsService, logger *zap.Logger) *SettingsHandler {
	return &SettingsHandler{settings: settings, logger: logger}
}

// RegisterRoutes registers the settings handler's routes on the given mux.
func (h *SettingsHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, userMiddleware UserMiddleware) {
	mux.HandleFunc("GET /api/settings", authMiddleware.RequireAuth(userMiddleware(h.Get)))
	mux.HandleFunc("PUT /api/settings", authMiddleware.RequireAuth(userMiddleware(h.Update)))
	mux.HandleFunc("POST /api/settings/avatar", authMiddleware.RequireAuth(userMiddleware(h.UploadAvatar)))
	mux.HandleFunc("DELETE /api/settings/avatar", authMiddleware.RequireAuth(userMiddleware(h.RemoveAvatar)))
}

// Get handles GET /api/settings
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r, h.logger)
	if !ok {
		return
	}

	settings, err := h.settings.Get(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err, "get_failed", "Failed to load settings", "", h.logger)
		return
	}

	writeSuccess(w, http.StatusOK, settings, h.logger)
}

// Update handles PUT /api/settings
// Fields left out of the body keep their stored values.
func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r, h.logger)
	if !ok {
		return
	}

	var patch models.ProfilePatch
	if !decodeJSON(w, r, &patch, h.logger) {
		return
	}

	settings, err := h.settings.UpdateProfile(r.Context(), userID, patch)
	if err != nil {
		writeServiceError(w, err, "update_failed", "Failed to update settings", "", h.logger)
		return
	}

	writeSuccess(w, http.StatusOK, settings, h.logger)
}

// UploadAvatar handles POST /api/settings/avatar
// The image is the multipart "avatar" part.
func (h *SettingsHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r, h.logger)
	if !ok {
		return
	}

	if !isMultipart(r) {
		writeError(w, http.StatusBadRequest, "invalid_request", "Expected a multipart form", h.logger)
		return
	}
	if !parseMultipart(w, r, h.logger) {
		return
	}
	file, err := formFile(r, "avatar")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid avatar upload", h.logger)
		return
	}
	if file == nil {
		writeError(w, http.StatusBadRequest, "missing_file", "An avatar image is required", h.logger)
		return
	}

	settings, err := h.settings.UploadAvatar(r.Context(), userID, &services.LogoUpload{
		FileName: file.FileName,
		Data:     file.Data,
	})
	if err != nil {
		writeServiceError(w, err, "upload_failed", "Failed to update avatar", "", h.logger)
		return
	}

	writeSuccess(w, http.StatusOK, settings, h.logger)
}

// RemoveAvatar handles DELETE /api/settings/avatar
func (h *SettingsHandler) RemoveAvatar(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r, h.logger)
	if !ok {
		return
	}

	settings, err := h.settings.RemoveAvatar(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err, "remove_failed", "Failed to remove avatar", "", h.logger)
		return
	}

	writeSuccess(w, http.StatusOK, settings, h.logger)
}
