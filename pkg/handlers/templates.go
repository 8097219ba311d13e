package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/reportly-app/reportly/pkg/auth"
	"github.com/reportly-app/reportly/pkg/models"
	"github.com/reportly-app/reportly/pkg/report"
	"github.com/reportly-app/reportly/pkg/services"
)

// ListTemplatesResponse wraps templates with the themes a layout may name.
type ListTemplatesResponse struct {
	Templates []*models.DesignTemplate `json:"templates"`
	Themes    []string                 `json:"themes"`
}

// TemplatesHandler serves design templates.
//
// Create and update accept either a JSON body or a multipart form whose
// "template" field holds the JSON and whose optional "logo" part holds an image.
type TemplatesHandler struct {
	templates  services.DesignTemplateService
	pricingURL string
	logger     *zap.Logger
}

// NewTemplatesHandler creates a new templates handler.
func NewTemplatesHandler(templates services.DesignTemplateService, pricingURL string, logger *zap.Logger) *TemplatesHandler {
	return &TemplatesHandler{
		templates:  templates,
		pricingURL: pricingURL,
		logger:     logger,
	}
}

// RegisterRoutes registers the templates handler's routes on the given mux.
func (h *TemplatesHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, userMiddleware UserMiddleware) {
	mux.HandleFunc("GET /api/templates", authMiddleware.RequireAuth(userMiddleware(h.List)))
	mux.HandleFunc("POST /api/templates", authMiddleware.RequireAuth(userMiddleware(h.Create)))
	mux.HandleFunc("GET /api/templates/{tid}", authMiddleware.RequireAuth(userMiddleware(h.Get)))
	mux.HandleFunc("PUT /api/templates/{tid}", authMiddleware.RequireAuth(userMiddleware(h.Update)))
	mux.HandleFunc("DELETE /api/templates/{tid}", authMiddleware.RequireAuth(userMiddleware(h.Delete)))
	mux.HandleFunc("GET /api/templates/{tid}/design", authMiddleware.RequireAuth(userMiddleware(h.Design)))
}

// List handles GET /api/templates
func (h *TemplatesHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r, h.logger)
	if !ok {
		return
	}

	templates, err := h.templates.List(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err, "list_failed", "Failed to list templates", h.pricingURL, h.logger)
		return
	}
	if templates == nil {
		templates = []*models.DesignTemplate{}
	}

	writeSuccess(w, http.StatusOK, ListTemplatesResponse{Templates: templates, Themes: report.Themes()}, h.logger)
}

// Create handles POST /api/templates
func (h *TemplatesHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r, h.logger)
	if !ok {
		return
	}

	var in services.TemplateInput
	logo, ok := h.readTemplateBody(w, r, &in)
	if !ok {
		return
	}

	tmpl, err := h.templates.Create(r.Context(), userID, in, logo)
	if err != nil {
		writeServiceError(w, err, "create_failed", "Failed to create template", h.pricingURL, h.logger)
		return
	}

	writeSuccess(w, http.StatusCreated, tmpl, h.logger)
}

// Get handles GET /api/templates/{tid}
func (h *TemplatesHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r, h.logger)
	if !ok {
		return
	}
	id, ok := ParseTemplateID(w, r, h.logger)
	if !ok {
		return
	}

	tmpl, err := h.templates.Get(r.Context(), userID, id)
	if err != nil {
		writeServiceError(w, err, "get_failed", "Failed to load template", h.pricingURL, h.logger)
		return
	}

	writeSuccess(w, http.StatusOK, tmpl, h.logger)
}

// Update handles PUT /api/templates/{tid}
// Fields left out of the body keep their stored values.
func (h *TemplatesHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r, h.logger)
	if !ok {
		return
	}
	id, ok := ParseTemplateID(w, r, h.logger)
	if !ok {
		return
	}

	var patch models.DesignTemplatePatch
	logo, ok := h.readTemplateBody(w, r, &patch)
	if !ok {
		return
	}

	tmpl, err := h.templates.Update(r.Context(), userID, id, patch, logo)
	if err != nil {
		writeServiceError(w, err, "update_failed", "Failed to update template", h.pricingURL, h.logger)
		return
	}

	writeSuccess(w, http.StatusOK, tmpl, h.logger)
}

// Delete handles DELETE /api/templates/{tid}
func (h *TemplatesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r, h.logger)
	if !ok {
		return
	}
	id, ok := ParseTemplateID(w, r, h.logger)
	if !ok {
		return
	}

	if err := h.templates.Delete(r.Context(), userID, id); err != nil {
		writeServiceError(w, err, "delete_failed", "Failed to delete template", h.pricingURL, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Design handles GET /api/templates/{tid}/design
func (h *TemplatesHandler) Design(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r, h.logger)
	if !ok {
		return
	}
	id, ok := ParseTemplateID(w, r, h.logger)
	if !ok {
		return
	}

	design, err := h.templates.Apply(r.Context(), userID, id)
	if err != nil {
		writeServiceError(w, err, "apply_failed", "Failed to load template design", h.pricingURL, h.logger)
		return
	}

	writeSuccess(w, http.StatusOK, design, h.logger)
}

// readTemplateBody decodes the template JSON into v and returns the optional
// logo upload.
func (h *TemplatesHandler) readTemplateBody(w http.ResponseWriter, r *http.Request, v any) (*services.LogoUpload, bool) {
	if !isMultipart(r) {
		return nil, decodeJSON(w, r, v, h.logger)
	}

	if !parseMultipart(w, r, h.logger) {
		return nil, false
	}
	if raw := r.FormValue("template"); raw != "" {
		if err := json.Unmarshal([]byte(raw), v); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "Invalid template field", h.logger)
			return nil, false
		}
	}

	file, err := formFile(r, "logo")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid logo upload", h.logger)
		return nil, false
	}
	if file == nil {
		return nil, true
	}
	return &services.LogoUpload{FileName: file.FileName, Data: file.Data}, true
}
