package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newSQLMux() *http.ServeMux {
	mux := http.NewServeMux()
	NewSQLHandler(zap.NewNop()).RegisterRoutes(mux, testAuthMiddleware(testUserID))
	return mux
}

func TestSQLHandler_Format(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/sql/format", strings.NewReader(`{"sql":"select * from t where x=1"}`))
	newSQLMux().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp FormatResponse
	decodeData(t, rec.Body, &resp)
	assert.Equal(t, "SELECT *\nFROM t\nWHERE x=1;", resp.Formatted)
}

func TestSQLHandler_Highlight(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/sql/highlight", strings.NewReader(`{"sql":"select a < b"}`))
	newSQLMux().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp HighlightResponse
	decodeData(t, rec.Body, &resp)
	assert.Contains(t, resp.HTML, `<span class="sql-keyword">select</span>`)
	assert.Contains(t, resp.HTML, "&lt;")
}

func TestSQLHandler_InvalidBody(t *testing.T) {
	rec := httptest.NewRecorder()
	newSQLMux().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/sql/format", strings.NewReader("nope")))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
