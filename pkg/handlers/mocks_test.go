package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/reportly-app/reportly/pkg/apperrors"
	"github.com/reportly-app/reportly/pkg/auth"
	"github.com/reportly-app/reportly/pkg/models"
	"github.com/reportly-app/reportly/pkg/report"
	"github.com/reportly-app/reportly/pkg/services"
)

const testUserID = "user-1"

// mockAuthService authenticates every request as userID, or rejects all
// requests when userID is empty.
type mockAuthService struct {
	userID string
}

func (m *mockAuthService) ValidateRequest(r *http.Request) (*auth.Claims, string, error) {
	if m.userID == "" {
		return nil, "", auth.ErrNoUser
	}
	return &auth.Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: m.userID}}, "token", nil
}

func testAuthMiddleware(userID string) *auth.Middleware {
	return auth.NewMiddleware(&mockAuthService{userID: userID}, zap.NewNop())
}

// passthroughUser stands in for the database scope middleware.
func passthroughUser(next http.HandlerFunc) http.HandlerFunc {
	return next
}

type mockScriptService struct {
	library  []models.ScriptSummary
	versions []models.ScriptVersion
	created  *models.Script
	err      error

	lastTitle   string
	lastRequest services.CreateScriptRequest
}

func (m *mockScriptService) Library(ctx context.Context, userID string) ([]models.ScriptSummary, error) {
	return m.library, m.err
}

func (m *mockScriptService) LoadVersions(ctx context.Context, userID, title string) ([]models.ScriptVersion, error) {
	m.lastTitle = title
	return m.versions, m.err
}

func (m *mockScriptService) CreateScript(ctx context.Context, userID string, req services.CreateScriptRequest) (*models.Script, error) {
	m.lastRequest = req
	if m.err != nil {
		return nil, m.err
	}
	return m.created, nil
}

type mockEditSessionService struct {
	view    *services.EditSessionView
	changes *services.ChangeReport
	result  *services.SaveResult
	err     error
	saveErr error

	lastSave    services.SaveRequest
	lastVersion int
	discarded   string
}

func (m *mockEditSessionService) BeginEdit(ctx context.Context, userID string, scriptID uuid.UUID) (*services.EditSessionView, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.view, nil
}

func (m *mockEditSessionService) Get(userID, sessionID string) (*services.EditSessionView, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.view, nil
}

func (m *mockEditSessionService) DetectContentChange(userID, sessionID, content string) (*services.ChangeReport, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.changes, nil
}

func (m *mockEditSessionService) Save(ctx context.Context, userID, sessionID string, req services.SaveRequest) (*services.SaveResult, error) {
	m.lastSave = req
	if m.saveErr != nil {
		return nil, m.saveErr
	}
	return m.result, nil
}

func (m *mockEditSessionService) Restore(ctx context.Context, userID, sessionID string, version int) (*services.EditSessionView, error) {
	m.lastVersion = version
	if m.err != nil {
		return nil, m.err
	}
	return m.view, nil
}

func (m *mockEditSessionService) Discard(userID, sessionID string) error {
	if m.err != nil {
		return m.err
	}
	m.discarded = sessionID
	return nil
}

type mockEditorCookies struct {
	current    string
	remembered string
	forgotten  bool
}

func (m *mockEditorCookies) RememberEditSession(w http.ResponseWriter, r *http.Request, userID, editSessionID string) error {
	m.remembered = editSessionID
	return nil
}

func (m *mockEditorCookies) CurrentEditSession(r *http.Request, userID string) (string, bool) {
	return m.current, m.current != ""
}

func (m *mockEditorCookies) ForgetEditSession(w http.ResponseWriter, r *http.Request) error {
	m.forgotten = true
	return nil
}

type mockTemplateService struct {
	template  *models.DesignTemplate
	templates []*models.DesignTemplate
	design    *services.AppliedDesign
	err       error

	lastInput services.TemplateInput
	lastPatch models.DesignTemplatePatch
	lastLogo  *services.LogoUpload
}

func (m *mockTemplateService) List(ctx context.Context, userID string) ([]*models.DesignTemplate, error) {
	return m.templates, m.err
}

func (m *mockTemplateService) Get(ctx context.Context, userID string, id uuid.UUID) (*models.DesignTemplate, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.template, nil
}

func (m *mockTemplateService) Create(ctx context.Context, userID string, in services.TemplateInput, logo *services.LogoUpload) (*models.DesignTemplate, error) {
	m.lastInput = in
	m.lastLogo = logo
	if m.err != nil {
		return nil, m.err
	}
	return m.template, nil
}

func (m *mockTemplateService) Update(ctx context.Context, userID string, id uuid.UUID, patch models.DesignTemplatePatch, logo *services.LogoUpload) (*models.DesignTemplate, error) {
	m.lastPatch = patch
	m.lastLogo = logo
	if m.err != nil {
		return nil, m.err
	}
	return m.template, nil
}

func (m *mockTemplateService) Delete(ctx context.Context, userID string, id uuid.UUID) error {
	return m.err
}

func (m *mockTemplateService) Apply(ctx context.Context, userID string, id uuid.UUID) (*services.AppliedDesign, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.design, nil
}

func (m *mockTemplateService) Logo(ctx context.Context, tmpl *models.DesignTemplate) ([]byte, error) {
	return nil, m.err
}

type mockReportService struct {
	result *report.Result
	err    error

	lastRequest services.GenerateRequest
}

func (m *mockReportService) Preview(fileName string, r io.Reader) (*report.Table, error) {
	return report.ParseDataFile(fileName, r)
}

func (m *mockReportService) Generate(ctx context.Context, userID string, req services.GenerateRequest) (*report.Result, error) {
	m.lastRequest = req
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

type mockUsageService struct {
	usage *models.Usage
	err   error
}

func (m *mockUsageService) CheckReportLimit(ctx context.Context, userID string) error {
	return m.err
}

func (m *mockUsageService) CheckScriptLimit(ctx context.Context, userID string) error {
	return m.err
}

func (m *mockUsageService) Usage(ctx context.Context, userID string) (*models.Usage, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.usage, nil
}

type mockStore struct {
	objects map[string][]byte
	types   map[string]string
	err     error
}

func (m *mockStore) Put(ctx context.Context, key, contentType string, data []byte) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	if m.objects == nil {
		m.objects = map[string][]byte{}
		m.types = map[string]string{}
	}
	m.objects[key] = data
	m.types[key] = contentType
	return "/storage/" + key, nil
}

func (m *mockStore) Get(ctx context.Context, key string) ([]byte, string, error) {
	if m.err != nil {
		return nil, "", m.err
	}
	data, ok := m.objects[key]
	if !ok {
		return nil, "", apperrors.ErrNotFound
	}
	return data, m.types[key], nil
}

func (m *mockStore) Delete(ctx context.Context, key string) error {
	if m.err != nil {
		return m.err
	}
	delete(m.objects, key)
	delete(m.types, key)
	return nil
}

type mockUserSettingsService struct {
	settings *models.UserSettings
	err      error

	lastPatch  models.ProfilePatch
	lastUpload *services.LogoUpload
	removed    bool
}

func (m *mockUserSettingsService) result(userID string) (*models.UserSettings, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.settings != nil {
		return m.settings, nil
	}
	return models.DefaultUserSettings(userID), nil
}

func (m *mockUserSettingsService) Get(ctx context.Context, userID string) (*models.UserSettings, error) {
	return m.result(userID)
}

func (m *mockUserSettingsService) UpdateProfile(ctx context.Context, userID string, patch models.ProfilePatch) (*models.UserSettings, error) {
	m.lastPatch = patch
	return m.result(userID)
}

func (m *mockUserSettingsService) UploadAvatar(ctx context.Context, userID string, upload *services.LogoUpload) (*models.UserSettings, error) {
	m.lastUpload = upload
	return m.result(userID)
}

func (m *mockUserSettingsService) RemoveAvatar(ctx context.Context, userID string) (*models.UserSettings, error) {
	m.removed = true
	return m.result(userID)
}

// decodeData unwraps an ApiResponse envelope into v.
func decodeData(t *testing.T, body io.Reader, v any) {
	t.Helper()
	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	require.NoError(t, json.NewDecoder(body).Decode(&envelope))
	require.True(t, envelope.Success)
	require.NoError(t, json.Unmarshal(envelope.Data, v))
}

func decodeErrorCode(t *testing.T, body io.Reader) string {
	t.Helper()
	var resp map[string]string
	require.NoError(t, json.NewDecoder(body).Decode(&resp))
	return resp["error"]
}

type formFilePart struct {
	field    string
	fileName string
	data     []byte
}

// multipartRequest builds a multipart POST to path.
func multipartRequest(t *testing.T, path string, fields map[string]string, files ...formFilePart) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for _, f := range files {
		part, err := mw.CreateFormFile(f.field, f.fileName)
		require.NoError(t, err)
		_, err = part.Write(f.data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decodeJSONBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rec.Body).Decode(v))
}
