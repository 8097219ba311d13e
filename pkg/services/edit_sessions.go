package services

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/reportly-app/reportly/pkg/apperrors"
	"github.com/reportly-app/reportly/pkg/models"
	"github.com/reportly-app/reportly/pkg/repositories"
)

// WorkingCopy is the editor's unsaved state.
type WorkingCopy struct {
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Tags        []string `json:"tags"`
	Content     string   `json:"content"`
	Version     int      `json:"version"`
}

// EditSession is one script being edited. Original is the version the
// editor loaded (or last restored) and is the baseline for change detection.
type EditSession struct {
	ID        string
	UserID    string
	CreatedAt time.Time

	mu       sync.Mutex
	original models.Script
	working  WorkingCopy

	// busy is held for the whole of a save or a restore.
	busy atomic.Bool
}

// EditSessionView is a snapshot of a session for callers.
type EditSessionView struct {
	ID        string        `json:"id"`
	Original  models.Script `json:"original"`
	Working   WorkingCopy   `json:"working"`
	CreatedAt time.Time     `json:"created_at"`
}

// ChangeReport answers whether content differs from the baseline and which
// save mode that implies.
type ChangeReport struct {
	Changed     bool            `json:"changed"`
	DefaultMode models.SaveMode `json:"default_mode"`
}

// SaveRequest is an edit to persist. Mode must be set; callers resolve a
// missing mode with DefaultSaveMode first.
type SaveRequest struct {
	Description string
	Category    string
	Tags        []string
	Content     string
	Mode        models.SaveMode
}

// SaveResult is the persisted row plus the refreshed lists.
type SaveResult struct {
	Saved    *models.Script         `json:"saved"`
	Library  []models.ScriptSummary `json:"library"`
	Versions []models.ScriptVersion `json:"versions"`
}

// DetectContentChange reports whether content differs from the baseline.
// The comparison is exact, whitespace included.
func DetectContentChange(original models.Script, content string) bool {
	return content != original.SQLScript
}

// DefaultSaveMode is NewVersion when content changed, UpdateInPlace otherwise.
func DefaultSaveMode(original models.Script, content string) models.SaveMode {
	if DetectContentChange(original, content) {
		return models.SaveModeNewVersion
	}
	return models.SaveModeUpdateInPlace
}

func (e *EditSession) view() *EditSessionView {
	e.mu.Lock()
	defer e.mu.Unlock()
	working := e.working
	working.Tags = append([]string(nil), e.working.Tags...)
	return &EditSessionView{ID: e.ID, Original: e.original, Working: working, CreatedAt: e.CreatedAt}
}

func (e *EditSession) baseline() models.Script {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.original
}

func workingFrom(s models.Script) WorkingCopy {
	return WorkingCopy{
		Description: s.Description,
		Category:    s.Category,
		Tags:        append([]string(nil), s.Tags...),
		Content:     s.SQLScript,
		Version:     s.Version,
	}
}

// EditSessionService manages in-progress script edits.
type EditSessionService interface {
	// BeginEdit loads a stored row and opens a session on it.
	BeginEdit(ctx context.Context, userID string, scriptID uuid.UUID) (*EditSessionView, error)
	Get(userID, sessionID string) (*EditSessionView, error)
	DetectContentChange(userID, sessionID, content string) (*ChangeReport, error)
	// Save persists the edit and ends the session. On failure the session
	// is left as it was.
	Save(ctx context.Context, userID, sessionID string, req SaveRequest) (*SaveResult, error)
	// Restore makes a stored version the working copy and the new baseline.
	Restore(ctx context.Context, userID, sessionID string, version int) (*EditSessionView, error)
	Discard(userID, sessionID string) error
}

type editSessionService struct {
	scriptRepo repositories.ScriptRepository
	scripts    ScriptService
	sessions   *cache.Cache
	ttl        time.Duration
	logger     *zap.Logger
}

// NewEditSessionService creates a service whose sessions expire after ttl
// of inactivity.
func NewEditSessionService(
	scriptRepo repositories.ScriptRepository,
	scripts ScriptService,
	ttl time.Duration,
	logger *zap.Logger,
) EditSessionService {
	return &editSessionService{
		scriptRepo: scriptRepo,
		scripts:    scripts,
		sessions:   cache.New(ttl, 10*time.Minute),
		ttl:        ttl,
		logger:     logger.Named("edit-sessions"),
	}
}

var _ EditSessionService = (*editSessionService)(nil)

// lookup finds a session owned by userID and extends its expiry.
func (s *editSessionService) lookup(userID, sessionID string) (*EditSession, error) {
	v, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, apperrors.ErrSessionNotFound
	}
	session := v.(*EditSession)
	if session.UserID != userID {
		return nil, apperrors.ErrSessionNotFound
	}
	s.sessions.Set(sessionID, session, s.ttl)
	return session, nil
}

func (s *editSessionService) BeginEdit(ctx context.Context, userID string, scriptID uuid.UUID) (*EditSessionView, error) {
	script, err := s.scriptRepo.GetByID(ctx, userID, scriptID)
	if err != nil {
		return nil, err
	}

	session := &EditSession{
		ID:        uuid.NewString(),
		UserID:    userID,
		CreatedAt: time.Now(),
		original:  *script,
		working:   workingFrom(*script),
	}
	s.sessions.Set(session.ID, session, s.ttl)

	s.logger.Debug("Began edit session",
		zap.String("session_id", session.ID),
		zap.String("script_id", scriptID.String()),
		zap.Int("version", script.Version))
	return session.view(), nil
}

func (s *editSessionService) Get(userID, sessionID string) (*EditSessionView, error) {
	session, err := s.lookup(userID, sessionID)
	if err != nil {
		return nil, err
	}
	return session.view(), nil
}

func (s *editSessionService) DetectContentChange(userID, sessionID, content string) (*ChangeReport, error) {
	session, err := s.lookup(userID, sessionID)
	if err != nil {
		return nil, err
	}
	original := session.baseline()
	return &ChangeReport{
		Changed:     DetectContentChange(original, content),
		DefaultMode: DefaultSaveMode(original, content),
	}, nil
}

func (s *editSessionService) Save(ctx context.Context, userID, sessionID string, req SaveRequest) (*SaveResult, error) {
	session, err := s.lookup(userID, sessionID)
	if err != nil {
		return nil, err
	}

	if !session.busy.CompareAndSwap(false, true) {
		return nil, apperrors.ErrSaveInProgress
	}
	defer session.busy.Store(false)

	description := strings.TrimSpace(req.Description)
	if description == "" {
		return nil, apperrors.Validation("description is required")
	}
	if req.Mode != models.SaveModeNewVersion && req.Mode != models.SaveModeUpdateInPlace {
		return nil, apperrors.Validation("save mode is required")
	}
	tags := models.NormalizeTags(req.Tags)
	category := strings.TrimSpace(req.Category)

	original := session.baseline()
	if err := checkScriptText(original.Title, description, category, tags); err != nil {
		return nil, err
	}

	saved := original
	saved.Description = description
	saved.Category = category
	saved.Tags = tags
	saved.SQLScript = req.Content

	switch req.Mode {
	case models.SaveModeNewVersion:
		if err := s.scriptRepo.InsertNextVersion(ctx, &saved); err != nil {
			s.logger.Error("Failed to save new version",
				zap.String("session_id", sessionID), zap.Error(err))
			return nil, err
		}
	case models.SaveModeUpdateInPlace:
		if err := s.scriptRepo.UpdateInPlace(ctx, &saved); err != nil {
			s.logger.Error("Failed to update version in place",
				zap.String("session_id", sessionID), zap.Error(err))
			return nil, err
		}
	}

	// The write is committed; the session ends even if refreshing fails.
	s.sessions.Delete(sessionID)

	library, err := s.scripts.Library(ctx, userID)
	if err != nil {
		return nil, err
	}
	versions, err := s.scripts.LoadVersions(ctx, userID, saved.Title)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Saved script",
		zap.String("script_id", saved.ID.String()),
		zap.String("mode", string(req.Mode)),
		zap.Int("version", saved.Version))

	return &SaveResult{Saved: &saved, Library: library, Versions: versions}, nil
}

func (s *editSessionService) Restore(ctx context.Context, userID, sessionID string, version int) (*EditSessionView, error) {
	session, err := s.lookup(userID, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.busy.CompareAndSwap(false, true) {
		return nil, apperrors.ErrSaveInProgress
	}
	defer session.busy.Store(false)

	original := session.baseline()
	row, err := s.scriptRepo.GetVersion(ctx, userID, original.Title, version)
	if err != nil {
		return nil, err
	}

	session.mu.Lock()
	session.original = *row
	session.working.Content = row.SQLScript
	session.working.Description = row.Description
	session.working.Version = row.Version
	session.mu.Unlock()

	return session.view(), nil
}

func (s *editSessionService) Discard(userID, sessionID string) error {
	if _, err := s.lookup(userID, sessionID); err != nil {
		return err
	}
	s.sessions.Delete(sessionID)
	return nil
}
