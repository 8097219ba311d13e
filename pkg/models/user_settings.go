package models

import "time"

// UserSettings is a user's profile and preferences. Plan is read-only here.
type UserSettings struct {
	UserID         string `json:"user_id"`
	FullName       string `json:"full_name"`
	Email          string `json:"email"`
	PhoneNumber    string `json:"phone_number"`
	DarkMode       bool   `json:"dark_mode"`
	EmailReports   bool   `json:"email_reports"`
	ProductUpdates bool   `json:"product_updates"`
	SecurityAlerts bool   `json:"security_alerts"`
	Plan           Plan   `json:"current_plan"`
	AvatarURL      string `json:"avatar,omitempty"`
	// AvatarPath is the object storage key behind AvatarURL.
	AvatarPath string    `json:"-"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// DefaultUserSettings is what a user without a stored row sees.
func DefaultUserSettings(userID string) *UserSettings {
	return &UserSettings{
		UserID:         userID,
		EmailReports:   true,
		ProductUpdates: true,
		SecurityAlerts: true,
		Plan:           PlanFree,
	}
}

// ProfilePatch carries the profile fields of an update. Nil means unchanged.
type ProfilePatch struct {
	FullName       *string `json:"full_name,omitempty"`
	Email          *string `json:"email,omitempty"`
	PhoneNumber    *string `json:"phone_number,omitempty"`
	DarkMode       *bool   `json:"dark_mode,omitempty"`
	EmailReports   *bool   `json:"email_reports,omitempty"`
	ProductUpdates *bool   `json:"product_updates,omitempty"`
	SecurityAlerts *bool   `json:"security_alerts,omitempty"`
}

// Apply copies the set fields onto s.
func (p ProfilePatch) Apply(s *UserSettings) {
	if p.FullName != nil {
		s.FullName = *p.FullName
	}
	if p.Email != nil {
		s.Email = *p.Email
	}
	if p.PhoneNumber != nil {
		s.PhoneNumber = *p.PhoneNumber
	}
	if p.DarkMode != nil {
		s.DarkMode = *p.DarkMode
	}
	if p.EmailReports != nil {
		s.EmailReports = *p.EmailReports
	}
	if p.ProductUpdates != nil {
		s.ProductUpdates = *p.ProductUpdates
	}
	if p.SecurityAlerts != nil {
		s.SecurityAlerts = *p.SecurityAlerts
	}
}
