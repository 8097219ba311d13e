package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/reportly-app/reportly/pkg/database"
	"github.com/reportly-app/reportly/pkg/models"
)

// UserSettingsRepository reads and writes per-user settings. Plans are
// written by the billing system, not by this service.
type UserSettingsRepository interface {
	// GetPlan returns the user's plan; a user without settings is on the free plan.
	GetPlan(ctx context.Context, userID string) (models.Plan, error)
	// Get returns the user's settings, or the defaults when no row exists.
	Get(ctx context.Context, userID string) (*models.UserSettings, error)
	// UpdateProfile writes the profile and preference fields, creating the
	// row when needed. It refreshes s from the stored row.
	UpdateProfile(ctx context.Context, s *models.UserSettings) error
	// SetAvatar points the user at a stored avatar. Empty url and path
	// clear it.
	SetAvatar(ctx context.Context, userID, url, path string) error
}

type userSettingsRepository struct{}

// NewUserSettingsRepository creates a new UserSettingsRepository.
func NewUserSettingsRepository() UserSettingsRepository {
	return &userSettingsRepository{}
}

var _ UserSettingsRepository = (*userSettingsRepository)(nil)

const settingsColumns = `user_id, full_name, email, phone_number, dark_mode, email_reports,
	product_updates, security_alerts, current_plan, avatar, avatar_path, created_at, updated_at`

func (r *userSettingsRepository) GetPlan(ctx context.Context, userID string) (models.Plan, error) {
	scope, ok := database.GetUserScope(ctx)
	if !ok {
		return "", errNoUserScope
	}

	var plan string
	err := scope.Conn.QueryRow(ctx,
		`SELECT current_plan FROM user_settings WHERE user_id = $1`, userID,
	).Scan(&plan)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.PlanFree, nil
		}
		return "", fmt.Errorf("failed to get plan: %w", err)
	}
	return models.ParsePlan(plan), nil
}

func (r *userSettingsRepository) Get(ctx context.Context, userID string) (*models.UserSettings, error) {
	scope, ok := database.GetUserScope(ctx)
	if !ok {
		return nil, errNoUserScope
	}

	sql := `SELECT ` + settingsColumns + ` FROM user_settings WHERE user_id = $1`

	s, err := scanSettings(scope.Conn.QueryRow(ctx, sql, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.DefaultUserSettings(userID), nil
		}
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}
	return s, nil
}

func (r *userSettingsRepository) UpdateProfile(ctx context.Context, s *models.UserSettings) error {
	scope, ok := database.GetUserScope(ctx)
	if !ok {
		return errNoUserScope
	}

	sql := `
		INSERT INTO user_settings (
			user_id, full_name, email, phone_number, dark_mode,
			email_reports, product_updates, security_alerts
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id) DO UPDATE
		SET full_name = EXCLUDED.full_name,
		    email = EXCLUDED.email,
		    phone_number = EXCLUDED.phone_number,
		    dark_mode = EXCLUDED.dark_mode,
		    email_reports = EXCLUDED.email_reports,
		    product_updates = EXCLUDED.product_updates,
		    security_alerts = EXCLUDED.security_alerts,
		    updated_at = now()
		RETURNING ` + settingsColumns

	stored, err := scanSettings(scope.Conn.QueryRow(ctx, sql,
		s.UserID, s.FullName, s.Email, s.PhoneNumber, s.DarkMode,
		s.EmailReports, s.ProductUpdates, s.SecurityAlerts,
	))
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}
	*s = *stored
	return nil
}

func (r *userSettingsRepository) SetAvatar(ctx context.Context, userID, url, path string) error {
	scope, ok := database.GetUserScope(ctx)
	if !ok {
		return errNoUserScope
	}

	sql := `
		INSERT INTO user_settings (user_id, avatar, avatar_path)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE
		SET avatar = EXCLUDED.avatar,
		    avatar_path = EXCLUDED.avatar_path,
		    updated_at = now()`

	if _, err := scope.Conn.Exec(ctx, sql, userID, nullable(url), nullable(path)); err != nil {
		return fmt.Errorf("failed to set avatar: %w", err)
	}
	return nil
}

func scanSettings(row pgx.Row) (*models.UserSettings, error) {
	var s models.UserSettings
	var plan string
	var avatar, avatarPath *string

	err := row.Scan(
		&s.UserID, &s.FullName, &s.Email, &s.PhoneNumber, &s.DarkMode, &s.EmailReports,
		&s.ProductUpdates, &s.SecurityAlerts, &plan, &avatar, &avatarPath, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	s.Plan = models.ParsePlan(plan)
	s.AvatarURL = deref(avatar)
	s.AvatarPath = deref(avatarPath)
	return &s, nil
}
