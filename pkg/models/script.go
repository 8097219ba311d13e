package models

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/reportly-app/reportly/pkg/apperrors"
)

// Script is one stored version of a user's script. Rows sharing UserID and
// Title are the versions of one logical script.
type Script struct {
	ID          uuid.UUID `json:"id"`
	UserID      string    `json:"user_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Tags        []string  `json:"tags"`
	SQLScript   string    `json:"sql_script"`
	Version     int       `json:"version"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ScriptVersion is the history entry shown when browsing a script's versions.
type ScriptVersion struct {
	ID          uuid.UUID `json:"id"`
	Version     int       `json:"version"`
	Description string    `json:"description"`
	SQLScript   string    `json:"sql_script"`
	CreatedAt   time.Time `json:"created_at"`
}

// VersionOf projects a stored row onto its history entry.
func VersionOf(s *Script) ScriptVersion {
	return ScriptVersion{
		ID:          s.ID,
		Version:     s.Version,
		Description: s.Description,
		SQLScript:   s.SQLScript,
		CreatedAt:   s.CreatedAt,
	}
}

// ScriptSummary is the library entry for one title: its latest version plus
// how many versions exist.
type ScriptSummary struct {
	Latest       *Script   `json:"latest"`
	VersionCount int       `json:"version_count"`
	LastUpdated  time.Time `json:"last_updated"`
}

// GroupScripts builds the library projection from every stored row: one
// summary per title whose representative is the numerically highest
// version. Summaries are ordered by most recent update across the group,
// ties broken by title.
func GroupScripts(rows []*Script) []ScriptSummary {
	byTitle := make(map[string]*ScriptSummary)
	var order []string

	for _, row := range rows {
		summary, ok := byTitle[row.Title]
		if !ok {
			summary = &ScriptSummary{Latest: row, LastUpdated: row.UpdatedAt}
			byTitle[row.Title] = summary
			order = append(order, row.Title)
		}
		summary.VersionCount++
		if row.Version > summary.Latest.Version {
			summary.Latest = row
		}
		if row.UpdatedAt.After(summary.LastUpdated) {
			summary.LastUpdated = row.UpdatedAt
		}
	}

	summaries := make([]ScriptSummary, 0, len(order))
	for _, title := range order {
		summaries = append(summaries, *byTitle[title])
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		if !summaries[i].LastUpdated.Equal(summaries[j].LastUpdated) {
			return summaries[i].LastUpdated.After(summaries[j].LastUpdated)
		}
		return summaries[i].Latest.Title < summaries[j].Latest.Title
	})
	return summaries
}

// FilterByTitle keeps the summaries whose title contains query, ignoring
// case. A blank query keeps everything.
func FilterByTitle(summaries []ScriptSummary, query string) []ScriptSummary {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return summaries
	}
	out := make([]ScriptSummary, 0, len(summaries))
	for _, s := range summaries {
		if strings.Contains(strings.ToLower(s.Latest.Title), query) {
			out = append(out, s)
		}
	}
	return out
}

// SaveMode decides how an edit is persisted.
type SaveMode string

const (
	// SaveModeNewVersion inserts a row with the next version number.
	SaveModeNewVersion SaveMode = "new"
	// SaveModeUpdateInPlace rewrites the loaded row, keeping its id and version.
	SaveModeUpdateInPlace SaveMode = "update"
)

// ParseSaveMode converts the wire value. Callers resolve an empty value to
// the session's default before calling.
func ParseSaveMode(s string) (SaveMode, error) {
	switch SaveMode(s) {
	case SaveModeNewVersion, SaveModeUpdateInPlace:
		return SaveMode(s), nil
	}
	return "", apperrors.Validation("unknown save mode %q", s)
}

// ParseVersion reads a stored version number. A missing value counts as
// version 1; anything other than a positive base-10 integer is rejected.
func ParseVersion(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 1, nil
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("%w: %q", apperrors.ErrInvalidVersion, s)
		}
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 1 {
		return 0, fmt.Errorf("%w: %q", apperrors.ErrInvalidVersion, s)
	}
	return v, nil
}

// FormatVersion renders a version number the way it is stored.
func FormatVersion(v int) string {
	return strconv.Itoa(v)
}

// NormalizeTags trims tags, drops blanks and duplicates, and keeps first-seen order.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	return out
}
