package services

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/reportly-app/reportly/pkg/apperrors"
	"github.com/reportly-app/reportly/pkg/models"
	"github.com/reportly-app/reportly/pkg/repositories"
	"github.com/reportly-app/reportly/pkg/sql"
)

// CreateScriptRequest holds the fields of a brand new script.
type CreateScriptRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Tags        []string `json:"tags"`
	Content     string   `json:"content"`
}

// ScriptService reads the script library and creates scripts. Edits go
// through EditSessionService.
type ScriptService interface {
	// Library returns one summary per title, most recently updated first.
	Library(ctx context.Context, userID string) ([]models.ScriptSummary, error)
	// LoadVersions returns a title's versions ascending. An unknown title
	// yields an empty list.
	LoadVersions(ctx context.Context, userID, title string) ([]models.ScriptVersion, error)
	// CreateScript stores version 1 of a new title.
	CreateScript(ctx context.Context, userID string, req CreateScriptRequest) (*models.Script, error)
}

type scriptService struct {
	scriptRepo repositories.ScriptRepository
	usage      UsageService
	logger     *zap.Logger
}

// NewScriptService creates a new script service.
func NewScriptService(scriptRepo repositories.ScriptRepository, usage UsageService, logger *zap.Logger) ScriptService {
	return &scriptService{
		scriptRepo: scriptRepo,
		usage:      usage,
		logger:     logger.Named("scripts"),
	}
}

var _ ScriptService = (*scriptService)(nil)

func (s *scriptService) Library(ctx context.Context, userID string) ([]models.ScriptSummary, error) {
	rows, err := s.scriptRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return models.GroupScripts(rows), nil
}

func (s *scriptService) LoadVersions(ctx context.Context, userID, title string) ([]models.ScriptVersion, error) {
	rows, err := s.scriptRepo.ListVersions(ctx, userID, title)
	if err != nil {
		return nil, err
	}
	versions := make([]models.ScriptVersion, len(rows))
	for i, row := range rows {
		versions[i] = models.VersionOf(row)
	}
	return versions, nil
}

func (s *scriptService) CreateScript(ctx context.Context, userID string, req CreateScriptRequest) (*models.Script, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, apperrors.Validation("title is required")
	}
	tags := models.NormalizeTags(req.Tags)
	if err := checkScriptText(title, req.Description, req.Category, tags); err != nil {
		return nil, err
	}

	if err := s.usage.CheckScriptLimit(ctx, userID); err != nil {
		return nil, err
	}

	script := &models.Script{
		UserID:      userID,
		Title:       title,
		Description: strings.TrimSpace(req.Description),
		Category:    strings.TrimSpace(req.Category),
		Tags:        tags,
		SQLScript:   req.Content,
	}
	if err := s.scriptRepo.CreateFirst(ctx, script); err != nil {
		return nil, err
	}

	s.logger.Info("Created script",
		zap.String("user_id", userID),
		zap.String("script_id", script.ID.String()))
	return script, nil
}

// checkScriptText screens the free-text fields a script carries.
func checkScriptText(title, description, category string, tags []string) error {
	fields := [][2]string{
		{"title", title},
		{"description", description},
		{"category", category},
	}
	for _, tag := range tags {
		fields = append(fields, [2]string{"tags", tag})
	}
	return sql.CheckFields(fields...)
}
