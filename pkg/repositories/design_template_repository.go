package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/reportly-app/reportly/pkg/apperrors"
	"github.com/reportly-app/reportly/pkg/database"
	"github.com/reportly-app/reportly/pkg/models"
)

// DesignTemplateRepository provides data access for design templates.
type DesignTemplateRepository interface {
	// List returns the user's templates newest first.
	List(ctx context.Context, userID string) ([]*models.DesignTemplate, error)
	GetByID(ctx context.Context, userID string, id uuid.UUID) (*models.DesignTemplate, error)
	Create(ctx context.Context, tmpl *models.DesignTemplate) error
	Update(ctx context.Context, tmpl *models.DesignTemplate) error
	Delete(ctx context.Context, userID string, id uuid.UUID) error
}

type designTemplateRepository struct{}

// NewDesignTemplateRepository creates a new DesignTemplateRepository.
func NewDesignTemplateRepository() DesignTemplateRepository {
	return &designTemplateRepository{}
}

var _ DesignTemplateRepository = (*designTemplateRepository)(nil)

const templateColumns = `id, user_id, template_name, description, layout_config, logo_url, logo_path, created_at, updated_at`

func (r *designTemplateRepository) List(ctx context.Context, userID string) ([]*models.DesignTemplate, error) {
	scope, ok := database.GetUserScope(ctx)
	if !ok {
		return nil, errNoUserScope
	}

	sql := `SELECT ` + templateColumns + `
		FROM design_templates
		WHERE user_id = $1
		ORDER BY created_at DESC`

	rows, err := scope.Conn.Query(ctx, sql, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	defer rows.Close()

	templates := make([]*models.DesignTemplate, 0)
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan template: %w", err)
		}
		templates = append(templates, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating templates: %w", err)
	}
	return templates, nil
}

func (r *designTemplateRepository) GetByID(ctx context.Context, userID string, id uuid.UUID) (*models.DesignTemplate, error) {
	scope, ok := database.GetUserScope(ctx)
	if !ok {
		return nil, errNoUserScope
	}

	sql := `SELECT ` + templateColumns + `
		FROM design_templates
		WHERE user_id = $1 AND id = $2`

	t, err := scanTemplate(scope.Conn.QueryRow(ctx, sql, userID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("template %s: %w", id, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get template: %w", err)
	}
	return t, nil
}

func (r *designTemplateRepository) Create(ctx context.Context, tmpl *models.DesignTemplate) error {
	scope, ok := database.GetUserScope(ctx)
	if !ok {
		return errNoUserScope
	}

	layout, err := json.Marshal(tmpl.Layout)
	if err != nil {
		return fmt.Errorf("failed to encode layout: %w", err)
	}

	now := time.Now()
	tmpl.ID = uuid.New()
	tmpl.CreatedAt = now
	tmpl.UpdatedAt = now

	sql := `
		INSERT INTO design_templates (
			id, user_id, template_name, description, layout_config, logo_url, logo_path, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err = scope.Conn.Exec(ctx, sql,
		tmpl.ID, tmpl.UserID, tmpl.Name, tmpl.Description, layout,
		nullable(tmpl.LogoURL), nullable(tmpl.LogoPath),
		tmpl.CreatedAt, tmpl.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create template: %w", err)
	}
	return nil
}

func (r *designTemplateRepository) Update(ctx context.Context, tmpl *models.DesignTemplate) error {
	scope, ok := database.GetUserScope(ctx)
	if !ok {
		return errNoUserScope
	}

	layout, err := json.Marshal(tmpl.Layout)
	if err != nil {
		return fmt.Errorf("failed to encode layout: %w", err)
	}

	tmpl.UpdatedAt = time.Now()

	sql := `
		UPDATE design_templates
		SET template_name = $3,
		    description = $4,
		    layout_config = $5,
		    logo_url = $6,
		    logo_path = $7,
		    updated_at = $8
		WHERE user_id = $1 AND id = $2`

	result, err := scope.Conn.Exec(ctx, sql,
		tmpl.UserID, tmpl.ID,
		tmpl.Name, tmpl.Description, layout,
		nullable(tmpl.LogoURL), nullable(tmpl.LogoPath),
		tmpl.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update template: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("template %s: %w", tmpl.ID, apperrors.ErrNotFound)
	}
	return nil
}

func (r *designTemplateRepository) Delete(ctx context.Context, userID string, id uuid.UUID) error {
	scope, ok := database.GetUserScope(ctx)
	if !ok {
		return errNoUserScope
	}

	result, err := scope.Conn.Exec(ctx, `DELETE FROM design_templates WHERE user_id = $1 AND id = $2`, userID, id)
	if err != nil {
		return fmt.Errorf("failed to delete template: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("template %s: %w", id, apperrors.ErrNotFound)
	}
	return nil
}

// scanTemplate decodes layout_config leniently: unknown keys are ignored and
// missing ones take their defaults.
func scanTemplate(row pgx.Row) (*models.DesignTemplate, error) {
	var t models.DesignTemplate
	var description, logoURL, logoPath *string
	var layout []byte

	err := row.Scan(
		&t.ID, &t.UserID, &t.Name, &description, &layout,
		&logoURL, &logoPath, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(layout) > 0 {
		if err := json.Unmarshal(layout, &t.Layout); err != nil {
			return nil, fmt.Errorf("failed to decode layout of template %s: %w", t.ID, err)
		}
	}
	t.Layout = t.Layout.WithDefaults()

	t.Description = deref(description)
	t.LogoURL = deref(logoURL)
	t.LogoPath = deref(logoPath)
	return &t, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
