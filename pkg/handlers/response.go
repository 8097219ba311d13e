package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/reportly-app/reportly/pkg/apperrors"
	"github.com/reportly-app/reportly/pkg/auth"
	"github.com/reportly-app/reportly/pkg/logging"
	"github.com/reportly-app/reportly/pkg/report"
)

// ApiResponse is the envelope for successful JSON responses.
type ApiResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// UpgradeRequiredResponse is returned when a plan limit blocks a request.
type UpgradeRequiredResponse struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	PricingURL string `json:"pricing_url"`
}

// UserMiddleware wraps a handler with a user-scoped database connection.
type UserMiddleware func(http.HandlerFunc) http.HandlerFunc

// ErrorResponse writes a JSON error response and returns any encoding error.
func ErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(map[string]string{
		"error":   errorCode,
		"message": message,
	})
}

// WriteJSON writes a JSON response and returns any encoding error.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	if statusCode != http.StatusOK {
		w.WriteHeader(statusCode)
	}
	return json.NewEncoder(w).Encode(data)
}

// writeSuccess wraps data in ApiResponse.
func writeSuccess(w http.ResponseWriter, statusCode int, data any, logger *zap.Logger) {
	if err := WriteJSON(w, statusCode, ApiResponse{Success: true, Data: data}); err != nil {
		logger.Error("Failed to write response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, statusCode int, errorCode, message string, logger *zap.Logger) {
	if err := ErrorResponse(w, statusCode, errorCode, message); err != nil {
		logger.Error("Failed to write error response", zap.Error(err))
	}
}

// writeServiceError maps a service error to its HTTP status. Unrecognized
// errors are logged and reported as fallbackCode with a 500.
func writeServiceError(w http.ResponseWriter, err error, fallbackCode, fallbackMessage, pricingURL string, logger *zap.Logger) {
	switch {
	case errors.Is(err, apperrors.ErrValidation):
		writeError(w, http.StatusBadRequest, "validation_error", apperrors.Message(err), logger)
	case errors.Is(err, apperrors.ErrInvalidVersion):
		writeError(w, http.StatusBadRequest, "invalid_version", "Version must be a positive whole number", logger)
	case errors.Is(err, report.ErrNoData):
		writeError(w, http.StatusBadRequest, "no_data", "The data file has no header row", logger)
	case errors.Is(err, report.ErrInvalidImage):
		writeError(w, http.StatusBadRequest, "invalid_image", "Logo must be a PNG, JPEG or GIF image", logger)
	case errors.Is(err, apperrors.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, "session_not_found", "Edit session not found or expired", logger)
	case errors.Is(err, apperrors.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "Resource not found", logger)
	case errors.Is(err, apperrors.ErrSaveInProgress):
		writeError(w, http.StatusConflict, "save_in_progress", "A save is already in progress", logger)
	case errors.Is(err, apperrors.ErrConflict):
		writeError(w, http.StatusConflict, "conflict", "A script with this title already exists", logger)
	case errors.Is(err, apperrors.ErrReportLimitReached), errors.Is(err, apperrors.ErrScriptLimitReached):
		resp := UpgradeRequiredResponse{Error: "upgrade_required", Message: err.Error(), PricingURL: pricingURL}
		if err := WriteJSON(w, http.StatusPaymentRequired, resp); err != nil {
			logger.Error("Failed to write error response", zap.Error(err))
		}
	default:
		logger.Error(fallbackMessage, zap.String("error", logging.SanitizeError(err)))
		writeError(w, http.StatusInternalServerError, fallbackCode, fallbackMessage, logger)
	}
}

// requireUser returns the authenticated user's id, writing a 401 when absent.
func requireUser(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (string, bool) {
	userID, err := auth.RequireUserIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "Authentication required", logger)
		return "", false
	}
	return userID, true
}

// decodeJSON reads the request body into v, writing a 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any, logger *zap.Logger) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request body", logger)
		return false
	}
	return true
}
