package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/reportly-app/reportly/pkg/apperrors"
	"github.com/reportly-app/reportly/pkg/models"
)

// fakeScriptRepository keeps script rows in memory with the same version
// numbering rules as the database.
type fakeScriptRepository struct {
	mu   sync.Mutex
	rows []*models.Script

	insertErr error
	updateErr error
	listErr   error
	countErr  error

	// insertGate, when set, blocks InsertNextVersion until it is closed.
	insertGate    chan struct{}
	insertStarted chan struct{}

	// versionGate, when set, blocks GetVersion until it is closed.
	versionGate    chan struct{}
	versionStarted chan struct{}
}

func (f *fakeScriptRepository) copyRow(s *models.Script) *models.Script {
	c := *s
	c.Tags = append([]string(nil), s.Tags...)
	return &c
}

func (f *fakeScriptRepository) ListByUser(ctx context.Context, userID string) ([]*models.Script, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []*models.Script
	for _, r := range f.rows {
		if r.UserID == userID {
			out = append(out, f.copyRow(r))
		}
	}
	return out, nil
}

func (f *fakeScriptRepository) ListVersions(ctx context.Context, userID, title string) ([]*models.Script, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]*models.Script, 0)
	for _, r := range f.rows {
		if r.UserID == userID && r.Title == title {
			out = append(out, f.copyRow(r))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

func (f *fakeScriptRepository) GetByID(ctx context.Context, userID string, id uuid.UUID) (*models.Script, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rows {
		if r.UserID == userID && r.ID == id {
			return f.copyRow(r), nil
		}
	}
	return nil, fmt.Errorf("script %s: %w", id, apperrors.ErrNotFound)
}

func (f *fakeScriptRepository) GetVersion(ctx context.Context, userID, title string, version int) (*models.Script, error) {
	if f.versionStarted != nil {
		close(f.versionStarted)
	}
	if f.versionGate != nil {
		<-f.versionGate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rows {
		if r.UserID == userID && r.Title == title && r.Version == version {
			return f.copyRow(r), nil
		}
	}
	return nil, fmt.Errorf("version %d: %w", version, apperrors.ErrNotFound)
}

func (f *fakeScriptRepository) CountTitles(ctx context.Context, userID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.countErr != nil {
		return 0, f.countErr
	}
	titles := map[string]bool{}
	for _, r := range f.rows {
		if r.UserID == userID {
			titles[r.Title] = true
		}
	}
	return len(titles), nil
}

func (f *fakeScriptRepository) CreateFirst(ctx context.Context, s *models.Script) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rows {
		if r.UserID == s.UserID && r.Title == s.Title {
			return apperrors.ErrConflict
		}
	}
	s.ID = uuid.New()
	s.Version = 1
	s.CreatedAt = time.Now()
	s.UpdatedAt = s.CreatedAt
	f.rows = append(f.rows, f.copyRow(s))
	return nil
}

func (f *fakeScriptRepository) InsertNextVersion(ctx context.Context, s *models.Script) error {
	if f.insertStarted != nil {
		close(f.insertStarted)
	}
	if f.insertGate != nil {
		<-f.insertGate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return f.insertErr
	}
	next := 1
	for _, r := range f.rows {
		if r.UserID == s.UserID && r.Title == s.Title && r.Version >= next {
			next = r.Version + 1
		}
	}
	s.ID = uuid.New()
	s.Version = next
	s.CreatedAt = time.Now()
	s.UpdatedAt = s.CreatedAt
	f.rows = append(f.rows, f.copyRow(s))
	return nil
}

func (f *fakeScriptRepository) UpdateInPlace(ctx context.Context, s *models.Script) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	for i, r := range f.rows {
		if r.UserID == s.UserID && r.ID == s.ID {
			s.UpdatedAt = time.Now()
			updated := f.copyRow(r)
			updated.SQLScript = s.SQLScript
			updated.Description = s.Description
			updated.Category = s.Category
			updated.Tags = append([]string(nil), s.Tags...)
			updated.UpdatedAt = s.UpdatedAt
			f.rows[i] = updated
			return nil
		}
	}
	return apperrors.ErrNotFound
}

func (f *fakeScriptRepository) rowsFor(title string) []*models.Script {
	out, _ := f.ListVersions(context.Background(), testUser, title)
	return out
}

type mockUserSettingsRepository struct {
	plan  models.Plan
	err   error
	calls int

	settings     map[string]*models.UserSettings
	updateErr    error
	setAvatarErr error
}

func (m *mockUserSettingsRepository) Get(ctx context.Context, userID string) (*models.UserSettings, error) {
	if m.err != nil {
		return nil, m.err
	}
	if s, ok := m.settings[userID]; ok {
		c := *s
		return &c, nil
	}
	return models.DefaultUserSettings(userID), nil
}

func (m *mockUserSettingsRepository) UpdateProfile(ctx context.Context, s *models.UserSettings) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	stored, _ := m.Get(ctx, s.UserID)
	avatarURL, avatarPath := stored.AvatarURL, stored.AvatarPath
	c := *s
	c.AvatarURL, c.AvatarPath = avatarURL, avatarPath
	c.UpdatedAt = time.Now()
	m.put(&c)
	*s = c
	return nil
}

func (m *mockUserSettingsRepository) SetAvatar(ctx context.Context, userID, url, path string) error {
	if m.setAvatarErr != nil {
		return m.setAvatarErr
	}
	stored, _ := m.Get(ctx, userID)
	stored.AvatarURL, stored.AvatarPath = url, path
	m.put(stored)
	return nil
}

func (m *mockUserSettingsRepository) put(s *models.UserSettings) {
	if m.settings == nil {
		m.settings = map[string]*models.UserSettings{}
	}
	m.settings[s.UserID] = s
}

func (m *mockUserSettingsRepository) GetPlan(ctx context.Context, userID string) (models.Plan, error) {
	m.calls++
	if m.err != nil {
		return "", m.err
	}
	if m.plan == "" {
		return models.PlanFree, nil
	}
	return m.plan, nil
}

type mockReportGenerationRepository struct {
	count     int
	countErr  error
	createErr error
	created   []*models.ReportGeneration
	since     time.Time
}

func (m *mockReportGenerationRepository) Create(ctx context.Context, gen *models.ReportGeneration) error {
	if m.createErr != nil {
		return m.createErr
	}
	gen.ID = uuid.New()
	m.created = append(m.created, gen)
	return nil
}

func (m *mockReportGenerationRepository) CountSince(ctx context.Context, userID string, since time.Time) (int, error) {
	m.since = since
	return m.count, m.countErr
}

type mockDesignTemplateRepository struct {
	templates map[uuid.UUID]*models.DesignTemplate
	createErr error
	updateErr error
	creates   int
	updates   int
}

func newMockTemplateRepo() *mockDesignTemplateRepository {
	return &mockDesignTemplateRepository{templates: map[uuid.UUID]*models.DesignTemplate{}}
}

func (m *mockDesignTemplateRepository) List(ctx context.Context, userID string) ([]*models.DesignTemplate, error) {
	var out []*models.DesignTemplate
	for _, t := range m.templates {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *mockDesignTemplateRepository) GetByID(ctx context.Context, userID string, id uuid.UUID) (*models.DesignTemplate, error) {
	t, ok := m.templates[id]
	if !ok || t.UserID != userID {
		return nil, apperrors.ErrNotFound
	}
	c := *t
	return &c, nil
}

func (m *mockDesignTemplateRepository) Create(ctx context.Context, tmpl *models.DesignTemplate) error {
	m.creates++
	if m.createErr != nil {
		return m.createErr
	}
	tmpl.ID = uuid.New()
	c := *tmpl
	m.templates[tmpl.ID] = &c
	return nil
}

func (m *mockDesignTemplateRepository) Update(ctx context.Context, tmpl *models.DesignTemplate) error {
	m.updates++
	if m.updateErr != nil {
		return m.updateErr
	}
	c := *tmpl
	m.templates[tmpl.ID] = &c
	return nil
}

func (m *mockDesignTemplateRepository) Delete(ctx context.Context, userID string, id uuid.UUID) error {
	if _, ok := m.templates[id]; !ok {
		return apperrors.ErrNotFound
	}
	delete(m.templates, id)
	return nil
}

type storedObject struct {
	data        []byte
	contentType string
}

type mockStore struct {
	objects   map[string]storedObject
	putErr    error
	getErr    error
	deleteErr error
	deleted   []string
}

func newMockStore() *mockStore {
	return &mockStore{objects: map[string]storedObject{}}
}

func (m *mockStore) Put(ctx context.Context, key, contentType string, data []byte) (string, error) {
	if m.putErr != nil {
		return "", m.putErr
	}
	m.objects[key] = storedObject{data: data, contentType: contentType}
	return "http://storage.test/" + key, nil
}

func (m *mockStore) Get(ctx context.Context, key string) ([]byte, string, error) {
	if m.getErr != nil {
		return nil, "", m.getErr
	}
	obj, ok := m.objects[key]
	if !ok {
		return nil, "", apperrors.ErrNotFound
	}
	return obj.data, obj.contentType, nil
}

func (m *mockStore) Delete(ctx context.Context, key string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.deleted = append(m.deleted, key)
	delete(m.objects, key)
	return nil
}

type mockUsageService struct {
	reportErr error
	scriptErr error
	usage     *models.Usage
}

func (m *mockUsageService) CheckReportLimit(ctx context.Context, userID string) error {
	return m.reportErr
}

func (m *mockUsageService) CheckScriptLimit(ctx context.Context, userID string) error {
	return m.scriptErr
}

func (m *mockUsageService) Usage(ctx context.Context, userID string) (*models.Usage, error) {
	return m.usage, nil
}
