package services

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/reportly-app/reportly/pkg/models"
	"github.com/reportly-app/reportly/pkg/report"
	"github.com/reportly-app/reportly/pkg/repositories"
)

// GenerateRequest describes one report to produce. A nil Layout takes the
// template's layout, or the defaults when there is no template. A nil Logo
// falls back to the template's stored logo.
type GenerateRequest struct {
	Table      [][]string
	Layout     *models.DesignLayout
	Logo       []byte
	TemplateID *uuid.UUID
}

// ReportService previews data files and generates reports.
type ReportService interface {
	Preview(fileName string, r io.Reader) (*report.Table, error)
	Generate(ctx context.Context, userID string, req GenerateRequest) (*report.Result, error)
}

type reportService struct {
	assembler *report.Assembler
	usage     UsageService
	templates DesignTemplateService
	genRepo   repositories.ReportGenerationRepository
	now       func() time.Time
	logger    *zap.Logger
}

// NewReportService creates a new report service.
func NewReportService(
	assembler *report.Assembler,
	usage UsageService,
	templates DesignTemplateService,
	genRepo repositories.ReportGenerationRepository,
	logger *zap.Logger,
) ReportService {
	return &reportService{
		assembler: assembler,
		usage:     usage,
		templates: templates,
		genRepo:   genRepo,
		now:       time.Now,
		logger:    logger.Named("reports"),
	}
}

var _ ReportService = (*reportService)(nil)

func (s *reportService) Preview(fileName string, r io.Reader) (*report.Table, error) {
	return report.ParseDataFile(fileName, r)
}

func (s *reportService) Generate(ctx context.Context, userID string, req GenerateRequest) (*report.Result, error) {
	if err := s.usage.CheckReportLimit(ctx, userID); err != nil {
		return nil, err
	}

	layout := models.DesignLayout{}.WithDefaults()
	logo := req.Logo

	if req.TemplateID != nil {
		tmpl, err := s.templates.Get(ctx, userID, *req.TemplateID)
		if err != nil {
			return nil, err
		}
		layout = tmpl.Layout.WithDefaults()
		if len(logo) == 0 {
			if logo, err = s.templates.Logo(ctx, tmpl); err != nil {
				return nil, err
			}
		}
	}
	if req.Layout != nil {
		layout = *req.Layout
	}

	if err := checkLayoutText(layout); err != nil {
		return nil, err
	}
	if len(logo) > 0 {
		if _, err := decodeLogo(logo); err != nil {
			return nil, err
		}
	}

	start := s.now()
	result, err := s.assembler.Assemble(report.NewDesign(req.Table, layout, logo))
	if err != nil {
		return nil, err
	}
	elapsed := s.now().Sub(start)

	gen := &models.ReportGeneration{
		UserID:               userID,
		GeneratedAt:          start,
		ExportType:           models.ExportTypeExcel,
		ExportSuccess:        true,
		FileName:             result.FileName,
		FileSizeKB:           (len(result.Data) + 1023) / 1024,
		TemplateID:           req.TemplateID,
		GenerationDurationMs: int(elapsed.Milliseconds()),
	}
	if err := s.genRepo.Create(ctx, gen); err != nil {
		s.logger.Error("Failed to record report generation",
			zap.String("user_id", userID), zap.Error(err))
	}

	s.logger.Info("Generated report",
		zap.String("user_id", userID),
		zap.String("file_name", result.FileName),
		zap.Int("rows", result.Layout.TableLastRow-result.Layout.TableFirstRow),
		zap.Duration("elapsed", elapsed))
	return result, nil
}
