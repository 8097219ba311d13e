package apperrors

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("conflict")
	ErrValidation         = errors.New("validation failed")
	ErrInvalidVersion     = errors.New("invalid version number")
	ErrSessionNotFound    = errors.New("edit session not found")
	ErrSaveInProgress     = errors.New("a save is already in progress for this edit session")
	ErrReportLimitReached = errors.New("monthly report generation limit reached")
	ErrScriptLimitReached = errors.New("script limit reached")
)

// Validation wraps ErrValidation with a user-facing message.
// errors.Is(err, ErrValidation) holds for the returned error.
func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Message returns the user-facing part of a validation error.
func Message(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	prefix := ErrValidation.Error() + ": "
	if i := strings.Index(msg, prefix); i >= 0 {
		return msg[i+len(prefix):]
	}
	return msg
}
