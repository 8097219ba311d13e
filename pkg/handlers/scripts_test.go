package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/reportly-app/reportly/pkg/apperrors"
	"github.com/reportly-app/reportly/pkg/models"
)

func newScriptsMux(svc *mockScriptService, userID string) *http.ServeMux {
	mux := http.NewServeMux()
	NewScriptsHandler(svc, "https://reportly.test/pricing", zap.NewNop()).
		RegisterRoutes(mux, testAuthMiddleware(userID), passthroughUser)
	return mux
}

func TestVersionLabel(t *testing.T) {
	assert.Equal(t, "0 versions", VersionLabel(0))
	assert.Equal(t, "1 version", VersionLabel(1))
	assert.Equal(t, "3 versions", VersionLabel(3))
}

func TestScriptsHandler_List(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := &mockScriptService{library: []models.ScriptSummary{
		{Latest: &models.Script{ID: uuid.New(), Title: "Sales", Version: 2}, VersionCount: 2, LastUpdated: now},
	}}

	rec := httptest.NewRecorder()
	newScriptsMux(svc, testUserID).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/scripts", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp ListScriptsResponse
	decodeData(t, rec.Body, &resp)
	require.Len(t, resp.Scripts, 1)
	assert.Equal(t, "Sales", resp.Scripts[0].Latest.Title)
	assert.Equal(t, "2 versions", resp.Scripts[0].VersionLabel)
}

func TestScriptsHandler_ListFiltersByTitle(t *testing.T) {
	svc := &mockScriptService{library: []models.ScriptSummary{
		{Latest: &models.Script{ID: uuid.New(), Title: "Sales by Region", Version: 1}, VersionCount: 1},
		{Latest: &models.Script{ID: uuid.New(), Title: "Churn", Version: 1}, VersionCount: 1},
	}}

	rec := httptest.NewRecorder()
	newScriptsMux(svc, testUserID).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/scripts?q=sales", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp ListScriptsResponse
	decodeData(t, rec.Body, &resp)
	require.Len(t, resp.Scripts, 1)
	assert.Equal(t, "Sales by Region", resp.Scripts[0].Latest.Title)
}

func TestScriptsHandler_RequiresAuth(t *testing.T) {
	rec := httptest.NewRecorder()
	newScriptsMux(&mockScriptService{}, "").ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/scripts", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestScriptsHandler_Create(t *testing.T) {
	svc := &mockScriptService{created: &models.Script{ID: uuid.New(), Title: "Sales", Version: 1}}
	body := `{"title":"Sales","category":"finance","tags":["q1"],"content":"select 1"}`

	rec := httptest.NewRecorder()
	newScriptsMux(svc, testUserID).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/scripts", strings.NewReader(body)))

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "Sales", svc.lastRequest.Title)
	assert.Equal(t, "select 1", svc.lastRequest.Content)
	assert.Equal(t, []string{"q1"}, svc.lastRequest.Tags)
}

func TestScriptsHandler_CreateLimitReached(t *testing.T) {
	svc := &mockScriptService{err: apperrors.ErrScriptLimitReached}

	rec := httptest.NewRecorder()
	newScriptsMux(svc, testUserID).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/scripts", strings.NewReader(`{"title":"x"}`)))

	assert.Equal(t, http.StatusPaymentRequired, rec.Code)
}

func TestScriptsHandler_CreateInvalidBody(t *testing.T) {
	rec := httptest.NewRecorder()
	newScriptsMux(&mockScriptService{}, testUserID).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/scripts", strings.NewReader("{")))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_request", decodeErrorCode(t, rec.Body))
}

func TestScriptsHandler_Versions(t *testing.T) {
	svc := &mockScriptService{versions: []models.ScriptVersion{{Version: 2}, {Version: 1}}}

	rec := httptest.NewRecorder()
	newScriptsMux(svc, testUserID).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/scripts/versions?title=Monthly+Sales", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Monthly Sales", svc.lastTitle)
	var resp ListVersionsResponse
	decodeData(t, rec.Body, &resp)
	assert.Len(t, resp.Versions, 2)
}

func TestScriptsHandler_VersionsRequiresTitle(t *testing.T) {
	rec := httptest.NewRecorder()
	newScriptsMux(&mockScriptService{}, testUserID).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/scripts/versions", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "missing_title", decodeErrorCode(t, rec.Body))
}
