package models

import (
	"time"

	"github.com/google/uuid"
)

// ExportTypeExcel is the only export the service produces.
const ExportTypeExcel = "excel"

// ReportGeneration records one produced report; the monthly cap counts these.
type ReportGeneration struct {
	ID                   uuid.UUID  `json:"id"`
	UserID               string     `json:"user_id"`
	GeneratedAt          time.Time  `json:"generated_at"`
	ExportType           string     `json:"export_type"`
	ExportSuccess        bool       `json:"export_success"`
	FileName             string     `json:"file_name"`
	FileSizeKB           int        `json:"file_size_kb"`
	TemplateID           *uuid.UUID `json:"template_id,omitempty"`
	GenerationDurationMs int        `json:"generation_duration_ms"`
	IsScheduled          bool       `json:"is_scheduled"`
}
