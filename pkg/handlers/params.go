package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ParseScriptID extracts and validates the script row ID from the request path.
// Expects path parameter: sid
func ParseScriptID(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (uuid.UUID, bool) {
	return parseUUID(w, r, "sid", "invalid_script_id", "Invalid script ID format", logger)
}

// ParseTemplateID extracts and validates the design template ID from the request path.
// Expects path parameter: tid
func ParseTemplateID(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (uuid.UUID, bool) {
	return parseUUID(w, r, "tid", "invalid_template_id", "Invalid template ID format", logger)
}

// ParseEditSessionID extracts and validates the edit session ID from the request path.
// Returns the ID in its canonical string form.
// Expects path parameter: esid
func ParseEditSessionID(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (string, bool) {
	id, ok := parseUUID(w, r, "esid", "invalid_session_id", "Invalid edit session ID format", logger)
	if !ok {
		return "", false
	}
	return id.String(), true
}

// parseUUID is the internal helper that does the actual parsing work.
func parseUUID(w http.ResponseWriter, r *http.Request, pathParam, errorCode, errorMessage string, logger *zap.Logger) (uuid.UUID, bool) {
	idStr := r.PathValue(pathParam)
	id, err := uuid.Parse(idStr)
	if err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, errorCode, errorMessage); err != nil {
			logger.Error("Failed to write error response", zap.Error(err))
		}
		return uuid.Nil, false
	}
	return id, true
}
