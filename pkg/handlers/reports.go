package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/reportly-app/reportly/pkg/auth"
	"github.com/reportly-app/reportly/pkg/models"
	"github.com/reportly-app/reportly/pkg/report"
	"github.com/reportly-app/reportly/pkg/services"
)

// ReportsHandler previews data files and generates spreadsheets.
type ReportsHandler struct {
	reports    services.ReportService
	pricingURL string
	logger     *zap.Logger
}

// NewReportsHandler creates a new reports handler.
func NewReportsHandler(reports services.ReportService, pricingURL string, logger *zap.Logger) *ReportsHandler {
	return &ReportsHandler{
		reports:    reports,
		pricingURL: pricingURL,
		logger:     logger,
	}
}

// RegisterRoutes registers the reports handler's routes on the given mux.
func (h *ReportsHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, userMiddleware UserMiddleware) {
	mux.HandleFunc("POST /api/reports/preview", authMiddleware.RequireAuth(h.Preview))
	mux.HandleFunc("POST /api/reports/generate", authMiddleware.RequireAuth(userMiddleware(h.Generate)))
}

// Preview handles POST /api/reports/preview
// Unsupported file types come back as a one-cell table, not an error.
func (h *ReportsHandler) Preview(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUser(w, r, h.logger); !ok {
		return
	}
	if !parseMultipart(w, r, h.logger) {
		return
	}

	file, ok := h.requireDataFile(w, r)
	if !ok {
		return
	}

	table, err := h.reports.Preview(file.FileName, bytes.NewReader(file.Data))
	if err != nil {
		writeError(w, http.StatusBadRequest, "parse_failed", fmt.Sprintf("Could not read %s", file.FileName), h.logger)
		return
	}

	writeSuccess(w, http.StatusOK, table, h.logger)
}

// Generate handles POST /api/reports/generate
// Responds with the workbook as an attachment.
func (h *ReportsHandler) Generate(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r, h.logger)
	if !ok {
		return
	}
	if !parseMultipart(w, r, h.logger) {
		return
	}

	file, ok := h.requireDataFile(w, r)
	if !ok {
		return
	}
	table, err := h.reports.Preview(file.FileName, bytes.NewReader(file.Data))
	if err != nil {
		writeError(w, http.StatusBadRequest, "parse_failed", fmt.Sprintf("Could not read %s", file.FileName), h.logger)
		return
	}
	if !table.Supported {
		writeError(w, http.StatusBadRequest, "unsupported_file", report.UnsupportedFileMessage, h.logger)
		return
	}

	req := services.GenerateRequest{Table: table.Rows}

	if raw := strings.TrimSpace(r.FormValue("design")); raw != "" {
		var layout models.DesignLayout
		if err := json.Unmarshal([]byte(raw), &layout); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_design", "Invalid design field", h.logger)
			return
		}
		req.Layout = &layout
	}

	if raw := strings.TrimSpace(r.FormValue("template_id")); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_template_id", "Invalid template ID format", h.logger)
			return
		}
		req.TemplateID = &id
	}

	logo, err := formFile(r, "logo")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid logo upload", h.logger)
		return
	}
	if logo != nil {
		req.Logo = logo.Data
	}

	result, err := h.reports.Generate(r.Context(), userID, req)
	if err != nil {
		writeServiceError(w, err, "generate_failed", "Failed to generate report", h.pricingURL, h.logger)
		return
	}

	w.Header().Set("Content-Type", result.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.FileName))
	w.Header().Set("Content-Length", strconv.Itoa(len(result.Data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(result.Data); err != nil {
		h.logger.Warn("Failed to write report",
			zap.String("file_name", result.FileName),
			zap.Error(err))
	}
}

func (h *ReportsHandler) requireDataFile(w http.ResponseWriter, r *http.Request) (*upload, bool) {
	file, err := formFile(r, "file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid file upload", h.logger)
		return nil, false
	}
	if file == nil {
		writeError(w, http.StatusBadRequest, "missing_file", "A data file is required", h.logger)
		return nil, false
	}
	return file, true
}
