package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/reportly-app/reportly/pkg/apperrors"
	"github.com/reportly-app/reportly/pkg/models"
	"github.com/reportly-app/reportly/pkg/report"
	"github.com/reportly-app/reportly/pkg/repositories"
	"github.com/reportly-app/reportly/pkg/sql"
	"github.com/reportly-app/reportly/pkg/storage"
)

// LogoUpload is an image supplied with a template or report request.
type LogoUpload struct {
	FileName string
	Data     []byte
}

// TemplateInput holds the fields of a new template.
type TemplateInput struct {
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Layout      models.DesignLayout `json:"layout"`
}

// AppliedDesign is a template's layout ready to prefill a report.
type AppliedDesign struct {
	TemplateID uuid.UUID           `json:"template_id"`
	Layout     models.DesignLayout `json:"layout"`
	LogoURL    string              `json:"logo_url,omitempty"`
}

// DesignTemplateService manages saved branding snapshots.
type DesignTemplateService interface {
	List(ctx context.Context, userID string) ([]*models.DesignTemplate, error)
	Get(ctx context.Context, userID string, id uuid.UUID) (*models.DesignTemplate, error)
	Create(ctx context.Context, userID string, in TemplateInput, logo *LogoUpload) (*models.DesignTemplate, error)
	Update(ctx context.Context, userID string, id uuid.UUID, patch models.DesignTemplatePatch, logo *LogoUpload) (*models.DesignTemplate, error)
	Delete(ctx context.Context, userID string, id uuid.UUID) error
	Apply(ctx context.Context, userID string, id uuid.UUID) (*AppliedDesign, error)
	// Logo fetches a template's stored logo. It returns nil when the
	// template has none.
	Logo(ctx context.Context, tmpl *models.DesignTemplate) ([]byte, error)
}

type designTemplateService struct {
	repo   repositories.DesignTemplateRepository
	store  storage.Store
	now    func() time.Time
	logger *zap.Logger
}

// NewDesignTemplateService creates a new design template service.
func NewDesignTemplateService(repo repositories.DesignTemplateRepository, store storage.Store, logger *zap.Logger) DesignTemplateService {
	return &designTemplateService{
		repo:   repo,
		store:  store,
		now:    time.Now,
		logger: logger.Named("templates"),
	}
}

var _ DesignTemplateService = (*designTemplateService)(nil)

func (s *designTemplateService) List(ctx context.Context, userID string) ([]*models.DesignTemplate, error) {
	return s.repo.List(ctx, userID)
}

func (s *designTemplateService) Get(ctx context.Context, userID string, id uuid.UUID) (*models.DesignTemplate, error) {
	return s.repo.GetByID(ctx, userID, id)
}

func (s *designTemplateService) Create(ctx context.Context, userID string, in TemplateInput, logo *LogoUpload) (*models.DesignTemplate, error) {
	tmpl := &models.DesignTemplate{
		UserID:      userID,
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		Layout:      in.Layout.WithDefaults(),
	}
	if err := validateTemplate(tmpl); err != nil {
		return nil, err
	}

	if logo != nil {
		if err := s.uploadLogo(ctx, tmpl, logo); err != nil {
			return nil, err
		}
	}

	if err := s.repo.Create(ctx, tmpl); err != nil {
		return nil, err
	}

	s.logger.Info("Created design template",
		zap.String("user_id", userID),
		zap.String("template_id", tmpl.ID.String()))
	return tmpl, nil
}

func (s *designTemplateService) Update(ctx context.Context, userID string, id uuid.UUID, patch models.DesignTemplatePatch, logo *LogoUpload) (*models.DesignTemplate, error) {
	current, err := s.repo.GetByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	updated := *current
	if patch.Name != nil {
		updated.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Description != nil {
		updated.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.Layout != nil {
		updated.Layout = patch.Layout.WithDefaults()
	}
	if err := validateTemplate(&updated); err != nil {
		return nil, err
	}

	if logo != nil {
		if err := s.uploadLogo(ctx, &updated, logo); err != nil {
			return nil, err
		}
	}

	if err := s.repo.Update(ctx, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (s *designTemplateService) Delete(ctx context.Context, userID string, id uuid.UUID) error {
	return s.repo.Delete(ctx, userID, id)
}

func (s *designTemplateService) Apply(ctx context.Context, userID string, id uuid.UUID) (*AppliedDesign, error) {
	tmpl, err := s.repo.GetByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	return &AppliedDesign{
		TemplateID: tmpl.ID,
		Layout:     tmpl.Layout.WithDefaults(),
		LogoURL:    tmpl.LogoURL,
	}, nil
}

func (s *designTemplateService) Logo(ctx context.Context, tmpl *models.DesignTemplate) ([]byte, error) {
	if tmpl.LogoPath == "" {
		return nil, nil
	}
	data, _, err := s.store.Get(ctx, tmpl.LogoPath)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch logo of template %s: %w", tmpl.ID, err)
	}
	return data, nil
}

// uploadLogo stores the logo and points tmpl at it. tmpl is untouched on failure.
func (s *designTemplateService) uploadLogo(ctx context.Context, tmpl *models.DesignTemplate, upload *LogoUpload) error {
	logo, err := decodeLogo(upload.Data)
	if err != nil {
		return err
	}

	key := storage.LogoKey(tmpl.UserID, s.now(), upload.FileName)
	url, err := s.store.Put(ctx, key, logo.ContentType(), logo.Data)
	if err != nil {
		s.logger.Error("Logo upload failed", zap.String("key", key), zap.Error(err))
		return err
	}

	tmpl.LogoURL = url
	tmpl.LogoPath = key
	return nil
}

func validateTemplate(tmpl *models.DesignTemplate) error {
	if tmpl.Name == "" {
		return apperrors.Validation("template name is required")
	}
	if err := checkLayoutText(tmpl.Layout, [2]string{"name", tmpl.Name}, [2]string{"description", tmpl.Description}); err != nil {
		return err
	}
	return report.ValidateTheme(tmpl.Layout.TableTheme)
}

func checkLayoutText(layout models.DesignLayout, extra ...[2]string) error {
	fields := append(extra,
		[2]string{"header_text", layout.HeaderText},
		[2]string{"footer_text", layout.FooterText},
	)
	return sql.CheckFields(fields...)
}

// decodeLogo turns an undecodable image into a validation error.
func decodeLogo(data []byte) (*report.Logo, error) {
	logo, err := report.DecodeLogo(data)
	if errors.Is(err, report.ErrInvalidImage) {
		return nil, apperrors.Validation("logo must be a PNG, JPEG or GIF image")
	}
	return logo, err
}
