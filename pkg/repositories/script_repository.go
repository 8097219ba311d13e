package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/reportly-app/reportly/pkg/apperrors"
	"github.com/reportly-app/reportly/pkg/database"
	"github.com/reportly-app/reportly/pkg/models"
)

// ScriptRepository provides data access for script versions.
type ScriptRepository interface {
	// ListByUser returns every stored version of every script.
	ListByUser(ctx context.Context, userID string) ([]*models.Script, error)
	// ListVersions returns a title's versions ascending by version number.
	ListVersions(ctx context.Context, userID, title string) ([]*models.Script, error)
	GetByID(ctx context.Context, userID string, id uuid.UUID) (*models.Script, error)
	GetVersion(ctx context.Context, userID, title string, version int) (*models.Script, error)
	// CountTitles counts distinct script titles.
	CountTitles(ctx context.Context, userID string) (int, error)

	// CreateFirst inserts version 1 of a new title.
	CreateFirst(ctx context.Context, script *models.Script) error
	// InsertNextVersion inserts a row numbered one past the title's highest
	// version, computed in the same statement.
	InsertNextVersion(ctx context.Context, script *models.Script) error
	// UpdateInPlace rewrites content and metadata of an existing row.
	UpdateInPlace(ctx context.Context, script *models.Script) error
}

type scriptRepository struct{}

// NewScriptRepository creates a new ScriptRepository.
func NewScriptRepository() ScriptRepository {
	return &scriptRepository{}
}

var _ ScriptRepository = (*scriptRepository)(nil)

const scriptColumns = `id, user_id, title, description, sql_script, categories, tags, version, created_at, updated_at`

func (r *scriptRepository) ListByUser(ctx context.Context, userID string) ([]*models.Script, error) {
	scope, ok := database.GetUserScope(ctx)
	if !ok {
		return nil, errNoUserScope
	}

	sql := `SELECT ` + scriptColumns + `
		FROM script_library
		WHERE user_id = $1
		ORDER BY updated_at DESC`

	rows, err := scope.Conn.Query(ctx, sql, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list scripts: %w", err)
	}
	return collectScripts(rows)
}

func (r *scriptRepository) ListVersions(ctx context.Context, userID, title string) ([]*models.Script, error) {
	scope, ok := database.GetUserScope(ctx)
	if !ok {
		return nil, errNoUserScope
	}

	sql := `SELECT ` + scriptColumns + `
		FROM script_library
		WHERE user_id = $1 AND title = $2
		ORDER BY version::int ASC`

	rows, err := scope.Conn.Query(ctx, sql, userID, title)
	if err != nil {
		return nil, fmt.Errorf("failed to list versions: %w", err)
	}
	return collectScripts(rows)
}

func (r *scriptRepository) GetByID(ctx context.Context, userID string, id uuid.UUID) (*models.Script, error) {
	scope, ok := database.GetUserScope(ctx)
	if !ok {
		return nil, errNoUserScope
	}

	sql := `SELECT ` + scriptColumns + `
		FROM script_library
		WHERE user_id = $1 AND id = $2`

	s, err := scanScript(scope.Conn.QueryRow(ctx, sql, userID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("script %s: %w", id, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get script: %w", err)
	}
	return s, nil
}

func (r *scriptRepository) GetVersion(ctx context.Context, userID, title string, version int) (*models.Script, error) {
	scope, ok := database.GetUserScope(ctx)
	if !ok {
		return nil, errNoUserScope
	}

	sql := `SELECT ` + scriptColumns + `
		FROM script_library
		WHERE user_id = $1 AND title = $2 AND version = $3`

	s, err := scanScript(scope.Conn.QueryRow(ctx, sql, userID, title, models.FormatVersion(version)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("version %d of %q: %w", version, title, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get script version: %w", err)
	}
	return s, nil
}

func (r *scriptRepository) CountTitles(ctx context.Context, userID string) (int, error) {
	scope, ok := database.GetUserScope(ctx)
	if !ok {
		return 0, errNoUserScope
	}

	var count int
	err := scope.Conn.QueryRow(ctx,
		`SELECT COUNT(DISTINCT title) FROM script_library WHERE user_id = $1`, userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count scripts: %w", err)
	}
	return count, nil
}

func (r *scriptRepository) CreateFirst(ctx context.Context, script *models.Script) error {
	scope, ok := database.GetUserScope(ctx)
	if !ok {
		return errNoUserScope
	}

	now := time.Now()
	script.ID = uuid.New()
	script.Version = 1
	script.CreatedAt = now
	script.UpdatedAt = now

	sql := `
		INSERT INTO script_library (
			id, user_id, title, description, sql_script, categories, tags, version, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, '1', $8, $9)`

	_, err := scope.Conn.Exec(ctx, sql,
		script.ID, script.UserID, script.Title, script.Description, script.SQLScript,
		categoriesOf(script.Category), tagsOf(script.Tags),
		script.CreatedAt, script.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("script %q already exists: %w", script.Title, apperrors.ErrConflict)
		}
		return fmt.Errorf("failed to create script: %w", err)
	}
	return nil
}

func (r *scriptRepository) InsertNextVersion(ctx context.Context, script *models.Script) error {
	scope, ok := database.GetUserScope(ctx)
	if !ok {
		return errNoUserScope
	}

	now := time.Now()
	script.ID = uuid.New()
	script.CreatedAt = now
	script.UpdatedAt = now

	sql := `
		INSERT INTO script_library (
			id, user_id, title, description, sql_script, categories, tags, version, created_at, updated_at
		)
		SELECT $1::uuid, $2::text, $3::text, $4::text, $5::text, $6::text[], $7::text[],
		       (COALESCE(MAX(version::int), 0) + 1)::text, $8::timestamptz, $9::timestamptz
		FROM script_library
		WHERE user_id = $2 AND title = $3
		RETURNING version`

	var version string
	err := scope.Conn.QueryRow(ctx, sql,
		script.ID, script.UserID, script.Title, script.Description, script.SQLScript,
		categoriesOf(script.Category), tagsOf(script.Tags),
		script.CreatedAt, script.UpdatedAt,
	).Scan(&version)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("concurrent save of %q: %w", script.Title, apperrors.ErrConflict)
		}
		return fmt.Errorf("failed to insert script version: %w", err)
	}

	if script.Version, err = models.ParseVersion(version); err != nil {
		return err
	}
	return nil
}

func (r *scriptRepository) UpdateInPlace(ctx context.Context, script *models.Script) error {
	scope, ok := database.GetUserScope(ctx)
	if !ok {
		return errNoUserScope
	}

	script.UpdatedAt = time.Now()

	sql := `
		UPDATE script_library
		SET sql_script = $3,
		    description = $4,
		    categories = $5,
		    tags = $6,
		    updated_at = $7
		WHERE user_id = $1 AND id = $2`

	result, err := scope.Conn.Exec(ctx, sql,
		script.UserID, script.ID,
		script.SQLScript, script.Description,
		categoriesOf(script.Category), tagsOf(script.Tags),
		script.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update script: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("script %s: %w", script.ID, apperrors.ErrNotFound)
	}
	return nil
}

func collectScripts(rows pgx.Rows) ([]*models.Script, error) {
	defer rows.Close()

	scripts := make([]*models.Script, 0)
	for rows.Next() {
		s, err := scanScript(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan script: %w", err)
		}
		scripts = append(scripts, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating scripts: %w", err)
	}
	return scripts, nil
}

// scanScript applies the row defaults: NULL description becomes "", the
// first category is the script's category, and version text is parsed.
func scanScript(row pgx.Row) (*models.Script, error) {
	var s models.Script
	var description *string
	var categories []string
	var version string

	err := row.Scan(
		&s.ID, &s.UserID, &s.Title, &description, &s.SQLScript,
		&categories, &s.Tags, &version, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if description != nil {
		s.Description = *description
	}
	if len(categories) > 0 {
		s.Category = categories[0]
	}
	if s.Tags == nil {
		s.Tags = []string{}
	}
	if s.Version, err = models.ParseVersion(version); err != nil {
		return nil, err
	}
	return &s, nil
}

func categoriesOf(category string) []string {
	if category == "" {
		return []string{}
	}
	return []string{category}
}

func tagsOf(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
