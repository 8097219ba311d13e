package services

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/reportly-app/reportly/pkg/apperrors"
	"github.com/reportly-app/reportly/pkg/models"
	"github.com/reportly-app/reportly/pkg/repositories"
)

// UsageLimits are the free tier's caps.
type UsageLimits struct {
	MonthlyReports int
	Scripts        int
	// PlanCacheTTL is how long a user's plan is remembered.
	PlanCacheTTL time.Duration
}

// UsageService enforces plan limits and reports usage.
type UsageService interface {
	// CheckReportLimit returns ErrReportLimitReached when the user has used
	// this month's report generations.
	CheckReportLimit(ctx context.Context, userID string) error
	// CheckScriptLimit returns ErrScriptLimitReached when one more script
	// title would exceed the cap.
	CheckScriptLimit(ctx context.Context, userID string) error
	Usage(ctx context.Context, userID string) (*models.Usage, error)
}

type usageService struct {
	settingsRepo repositories.UserSettingsRepository
	reportRepo   repositories.ReportGenerationRepository
	scriptRepo   repositories.ScriptRepository
	limits       UsageLimits
	plans        *cache.Cache
	now          func() time.Time
	logger       *zap.Logger
}

// NewUsageService creates a new usage service.
func NewUsageService(
	settingsRepo repositories.UserSettingsRepository,
	reportRepo repositories.ReportGenerationRepository,
	scriptRepo repositories.ScriptRepository,
	limits UsageLimits,
	logger *zap.Logger,
) UsageService {
	return &usageService{
		settingsRepo: settingsRepo,
		reportRepo:   reportRepo,
		scriptRepo:   scriptRepo,
		limits:       limits,
		plans:        cache.New(limits.PlanCacheTTL, 2*limits.PlanCacheTTL),
		now:          time.Now,
		logger:       logger.Named("usage"),
	}
}

var _ UsageService = (*usageService)(nil)

// plan returns the user's tier. A failed lookup is treated as the free tier.
func (s *usageService) plan(ctx context.Context, userID string) models.Plan {
	if cached, ok := s.plans.Get(userID); ok {
		return cached.(models.Plan)
	}

	plan, err := s.settingsRepo.GetPlan(ctx, userID)
	if err != nil {
		s.logger.Warn("Failed to read plan, applying free tier limits",
			zap.String("user_id", userID), zap.Error(err))
		return models.PlanFree
	}
	s.plans.SetDefault(userID, plan)
	return plan
}

// monthStart is 00:00 UTC on the first of the current month.
func (s *usageService) monthStart() time.Time {
	now := s.now().UTC()
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func (s *usageService) CheckReportLimit(ctx context.Context, userID string) error {
	if s.plan(ctx, userID).IsUnlimited() {
		return nil
	}

	count, err := s.reportRepo.CountSince(ctx, userID, s.monthStart())
	if err != nil {
		s.logger.Error("Failed to count report generations, allowing request",
			zap.String("user_id", userID), zap.Error(err))
		return nil
	}
	if count >= s.limits.MonthlyReports {
		return apperrors.ErrReportLimitReached
	}
	return nil
}

func (s *usageService) CheckScriptLimit(ctx context.Context, userID string) error {
	if s.plan(ctx, userID).IsUnlimited() {
		return nil
	}

	count, err := s.scriptRepo.CountTitles(ctx, userID)
	if err != nil {
		s.logger.Error("Failed to count scripts, allowing request",
			zap.String("user_id", userID), zap.Error(err))
		return nil
	}
	if count >= s.limits.Scripts {
		return apperrors.ErrScriptLimitReached
	}
	return nil
}

func (s *usageService) Usage(ctx context.Context, userID string) (*models.Usage, error) {
	plan := s.plan(ctx, userID)

	reports, err := s.reportRepo.CountSince(ctx, userID, s.monthStart())
	if err != nil {
		return nil, err
	}
	scripts, err := s.scriptRepo.CountTitles(ctx, userID)
	if err != nil {
		return nil, err
	}

	var reportLimit, scriptLimit *int
	if !plan.IsUnlimited() {
		r, sc := s.limits.MonthlyReports, s.limits.Scripts
		reportLimit, scriptLimit = &r, &sc
	}

	return &models.Usage{
		Plan:    plan,
		Reports: models.NewUsageMetric(reports, reportLimit),
		Scripts: models.NewUsageMetric(scripts, scriptLimit),
	}, nil
}
