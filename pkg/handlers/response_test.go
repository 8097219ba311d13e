package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/reportly-app/reportly/pkg/apperrors"
	"github.com/reportly-app/reportly/pkg/report"
)

func TestErrorResponse(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		errorCode  string
		message    string
	}{
		{"bad request", http.StatusBadRequest, "bad_request", "invalid input"},
		{"not found", http.StatusNotFound, "not_found", "resource not found"},
		{"internal error", http.StatusInternalServerError, "internal_error", "something went wrong"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()

			err := ErrorResponse(w, tt.statusCode, tt.errorCode, tt.message)
			if err != nil {
				t.Fatalf("ErrorResponse returned error: %v", err)
			}

			resp := w.Result()
			defer resp.Body.Close()

			if resp.StatusCode != tt.statusCode {
				t.Errorf("status code = %d, want %d", resp.StatusCode, tt.statusCode)
			}
			if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %q, want %q", ct, "application/json")
			}

			var body map[string]string
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				t.Fatalf("failed to decode response body: %v", err)
			}
			if body["error"] != tt.errorCode {
				t.Errorf("body[error] = %q, want %q", body["error"], tt.errorCode)
			}
			if body["message"] != tt.message {
				t.Errorf("body[message] = %q, want %q", body["message"], tt.message)
			}
		})
	}
}

func TestWriteJSON_NonOKStatus(t *testing.T) {
	w := httptest.NewRecorder()

	err := WriteJSON(w, http.StatusCreated, map[string]int{"count": 5})
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
}

func TestWriteJSON_UnencodableData(t *testing.T) {
	w := httptest.NewRecorder()

	err := WriteJSON(w, http.StatusOK, make(chan int))
	assert.Error(t, err)
}

func TestWriteServiceError_StatusMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"validation", apperrors.Validation("title is required"), http.StatusBadRequest, "validation_error"},
		{"invalid version", fmt.Errorf("%w: %q", apperrors.ErrInvalidVersion, "x"), http.StatusBadRequest, "invalid_version"},
		{"no data", report.ErrNoData, http.StatusBadRequest, "no_data"},
		{"invalid image", fmt.Errorf("logo: %w", report.ErrInvalidImage), http.StatusBadRequest, "invalid_image"},
		{"session not found", apperrors.ErrSessionNotFound, http.StatusNotFound, "session_not_found"},
		{"not found", fmt.Errorf("script: %w", apperrors.ErrNotFound), http.StatusNotFound, "not_found"},
		{"save in progress", apperrors.ErrSaveInProgress, http.StatusConflict, "save_in_progress"},
		{"conflict", apperrors.ErrConflict, http.StatusConflict, "conflict"},
		{"report limit", apperrors.ErrReportLimitReached, http.StatusPaymentRequired, "upgrade_required"},
		{"script limit", apperrors.ErrScriptLimitReached, http.StatusPaymentRequired, "upgrade_required"},
		{"unknown", errors.New("connection reset"), http.StatusInternalServerError, "fallback"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()

			writeServiceError(w, tt.err, "fallback", "Something failed", "https://reportly.test/pricing", zap.NewNop())

			assert.Equal(t, tt.wantStatus, w.Code)
			var body map[string]string
			require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
			assert.Equal(t, tt.wantCode, body["error"])
		})
	}
}

func TestWriteServiceError_ValidationMessageIsUserFacing(t *testing.T) {
	w := httptest.NewRecorder()

	writeServiceError(w, apperrors.Validation("title is required"), "fallback", "Something failed", "", zap.NewNop())

	var body map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "title is required", body["message"])
}

func TestWriteServiceError_LimitCarriesPricingURL(t *testing.T) {
	w := httptest.NewRecorder()

	writeServiceError(w, apperrors.ErrReportLimitReached, "fallback", "Something failed", "https://reportly.test/pricing", zap.NewNop())

	var body UpgradeRequiredResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "https://reportly.test/pricing", body.PricingURL)
	assert.Equal(t, apperrors.ErrReportLimitReached.Error(), body.Message)
}

func TestWriteServiceError_LogsUnknownErrors(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	w := httptest.NewRecorder()

	writeServiceError(w, errors.New("boom"), "fallback", "Something failed", "", zap.New(core))

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "Something failed", logs.All()[0].Message)
}

func TestRequireUser_MissingClaims(t *testing.T) {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	_, ok := requireUser(w, req, zap.NewNop())

	assert.False(t, ok)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
