package models

import (
	"time"

	"github.com/google/uuid"
)

// DefaultTableTheme is used when a layout names no theme.
const DefaultTableTheme = "TableStyleMedium2"

// DesignLayout is the branding snapshot stored with a template.
type DesignLayout struct {
	HeaderText     string `json:"header_text"`
	FooterText     string `json:"footer_text"`
	TableTheme     string `json:"table_theme"`
	ShowBorders    bool   `json:"show_borders"`
	AutoFitColumns bool   `json:"auto_fit_columns"`
}

// WithDefaults fills fields a stored layout may lack.
func (l DesignLayout) WithDefaults() DesignLayout {
	if l.TableTheme == "" {
		l.TableTheme = DefaultTableTheme
	}
	return l
}

// DesignTemplate is a named, reusable branding snapshot.
type DesignTemplate struct {
	ID          uuid.UUID    `json:"id"`
	UserID      string       `json:"user_id"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Layout      DesignLayout `json:"layout"`
	LogoURL     string       `json:"logo_url,omitempty"`
	// LogoPath is the object storage key behind LogoURL.
	LogoPath  string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DesignTemplatePatch carries the fields of an update. Nil means unchanged.
type DesignTemplatePatch struct {
	Name        *string       `json:"name,omitempty"`
	Description *string       `json:"description,omitempty"`
	Layout      *DesignLayout `json:"layout,omitempty"`
}
