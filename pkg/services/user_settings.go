package services

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/reportly-app/reportly/pkg/apperrors"
	"github.com/reportly-app/reportly/pkg/models"
	"github.com/reportly-app/reportly/pkg/report"
	"github.com/reportly-app/reportly/pkg/repositories"
	"github.com/reportly-app/reportly/pkg/sql"
	"github.com/reportly-app/reportly/pkg/storage"
)

// MaxAvatarBytes caps avatar uploads.
const MaxAvatarBytes = 2 << 20

// UserSettingsService manages a user's profile, preferences and avatar.
type UserSettingsService interface {
	Get(ctx context.Context, userID string) (*models.UserSettings, error)
	UpdateProfile(ctx context.Context, userID string, patch models.ProfilePatch) (*models.UserSettings, error)
	// UploadAvatar stores a new avatar and points the settings at it. When
	// any step fails the previous avatar stays in place.
	UploadAvatar(ctx context.Context, userID string, upload *LogoUpload) (*models.UserSettings, error)
	// RemoveAvatar deletes the stored avatar and clears it from the settings.
	// When any step fails the avatar URL stays in place.
	RemoveAvatar(ctx context.Context, userID string) (*models.UserSettings, error)
}

type userSettingsService struct {
	repo   repositories.UserSettingsRepository
	store  storage.Store
	newID  func() string
	logger *zap.Logger
}

// NewUserSettingsService creates a new user settings service.
func NewUserSettingsService(repo repositories.UserSettingsRepository, store storage.Store, logger *zap.Logger) UserSettingsService {
	return &userSettingsService{
		repo:   repo,
		store:  store,
		newID:  uuid.NewString,
		logger: logger.Named("settings"),
	}
}

var _ UserSettingsService = (*userSettingsService)(nil)

func (s *userSettingsService) Get(ctx context.Context, userID string) (*models.UserSettings, error) {
	return s.repo.Get(ctx, userID)
}

func (s *userSettingsService) UpdateProfile(ctx context.Context, userID string, patch models.ProfilePatch) (*models.UserSettings, error) {
	settings, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	patch.Apply(settings)
	settings.FullName = strings.TrimSpace(settings.FullName)
	settings.Email = strings.TrimSpace(settings.Email)
	settings.PhoneNumber = strings.TrimSpace(settings.PhoneNumber)

	if err := validateProfile(settings); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateProfile(ctx, settings); err != nil {
		s.logger.Error("Failed to update profile", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}
	return settings, nil
}

func (s *userSettingsService) UploadAvatar(ctx context.Context, userID string, upload *LogoUpload) (*models.UserSettings, error) {
	if upload == nil || len(upload.Data) == 0 {
		return nil, apperrors.Validation("avatar image is required")
	}
	if len(upload.Data) > MaxAvatarBytes {
		return nil, apperrors.Validation("avatar must be smaller than 2 MB")
	}
	img, err := report.DecodeLogo(upload.Data)
	if errors.Is(err, report.ErrInvalidImage) {
		return nil, apperrors.Validation("avatar must be a PNG, JPEG or GIF image")
	}
	if err != nil {
		return nil, err
	}

	current, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	key := storage.AvatarKey(userID, s.newID(), img.Extension)
	url, err := s.store.Put(ctx, key, img.ContentType(), img.Data)
	if err != nil {
		s.logger.Error("Avatar upload failed", zap.String("key", key), zap.Error(err))
		return nil, err
	}

	if err := s.repo.SetAvatar(ctx, userID, url, key); err != nil {
		s.logger.Error("Failed to record avatar", zap.String("user_id", userID), zap.Error(err))
		s.discard(ctx, key)
		return nil, err
	}

	if current.AvatarPath != "" && current.AvatarPath != key {
		s.discard(ctx, current.AvatarPath)
	}

	s.logger.Info("Avatar updated", zap.String("user_id", userID), zap.String("key", key))
	return s.repo.Get(ctx, userID)
}

func (s *userSettingsService) RemoveAvatar(ctx context.Context, userID string) (*models.UserSettings, error) {
	current, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if current.AvatarPath == "" {
		return current, nil
	}

	if err := s.store.Delete(ctx, current.AvatarPath); err != nil {
		s.logger.Error("Failed to delete avatar", zap.String("key", current.AvatarPath), zap.Error(err))
		return nil, err
	}
	if err := s.repo.SetAvatar(ctx, userID, "", ""); err != nil {
		s.logger.Error("Failed to clear avatar", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("Avatar removed", zap.String("user_id", userID))
	current.AvatarURL = ""
	current.AvatarPath = ""
	return current, nil
}

// discard deletes an object nothing points at any more.
func (s *userSettingsService) discard(ctx context.Context, key string) {
	if err := s.store.Delete(ctx, key); err != nil {
		s.logger.Warn("Failed to delete orphaned avatar", zap.String("key", key), zap.Error(err))
	}
}

func validateProfile(settings *models.UserSettings) error {
	if settings.Email != "" {
		addr, err := mail.ParseAddress(settings.Email)
		if err != nil || addr.Address != settings.Email {
			return apperrors.Validation("email %q is not a valid address", settings.Email)
		}
	}
	return sql.CheckFields(
		[2]string{"full_name", settings.FullName},
		[2]string{"phone_number", settings.PhoneNumber},
	)
}
