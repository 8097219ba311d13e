package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/reportly-app/reportly/pkg/database"
	"github.com/reportly-app/reportly/pkg/models"
)

// ReportGenerationRepository records produced reports.
type ReportGenerationRepository interface {
	Create(ctx context.Context, gen *models.ReportGeneration) error
	// CountSince counts successful generations at or after since.
	CountSince(ctx context.Context, userID string, since time.Time) (int, error)
}

type reportGenerationRepository struct{}

// NewReportGenerationRepository creates a new ReportGenerationRepository.
func NewReportGenerationRepository() ReportGenerationRepository {
	return &reportGenerationRepository{}
}

var _ ReportGenerationRepository = (*reportGenerationRepository)(nil)

func (r *reportGenerationRepository) Create(ctx context.Context, gen *models.ReportGeneration) error {
	scope, ok := database.GetUserScope(ctx)
	if !ok {
		return errNoUserScope
	}

	gen.ID = uuid.New()
	if gen.GeneratedAt.IsZero() {
		gen.GeneratedAt = time.Now()
	}
	if gen.ExportType == "" {
		gen.ExportType = models.ExportTypeExcel
	}

	sql := `
		INSERT INTO report_generations (
			id, user_id, generated_at, export_type, export_success, file_name,
			file_size_kb, template_id, generation_duration_ms, is_scheduled
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := scope.Conn.Exec(ctx, sql,
		gen.ID, gen.UserID, gen.GeneratedAt, gen.ExportType, gen.ExportSuccess, gen.FileName,
		gen.FileSizeKB, gen.TemplateID, gen.GenerationDurationMs, gen.IsScheduled,
	)
	if err != nil {
		return fmt.Errorf("failed to record report generation: %w", err)
	}
	return nil
}

func (r *reportGenerationRepository) CountSince(ctx context.Context, userID string, since time.Time) (int, error) {
	scope, ok := database.GetUserScope(ctx)
	if !ok {
		return 0, errNoUserScope
	}

	var count int
	err := scope.Conn.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM report_generations
		WHERE user_id = $1 AND generated_at >= $2 AND export_success`,
		userID, since,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count report generations: %w", err)
	}
	return count, nil
}
