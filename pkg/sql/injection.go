package sql

import (
	libinjection "github.com/corazawaf/libinjection-go"

	"github.com/reportly-app/reportly/pkg/apperrors"
)

// CheckText rejects free text that carries markup or script the UI would
// render, such as titles, descriptions, tags and report header text. The
// returned error wraps apperrors.ErrValidation and names the field.
//
// Example:
//
//	err := CheckText("description", "Monthly revenue by region")
//	// err == nil
//
//	err = CheckText("description", `<script>alert(1)</script>`)
//	// errors.Is(err, apperrors.ErrValidation) == true
func CheckText(field, value string) error {
	if value == "" {
		return nil
	}
	if libinjection.IsXSS(value) {
		return apperrors.Validation("%s contains markup that is not allowed", field)
	}
	return nil
}

// CheckFields runs CheckText over field/value pairs in order and returns the
// first rejection.
func CheckFields(fields ...[2]string) error {
	for _, f := range fields {
		if err := CheckText(f[0], f[1]); err != nil {
			return err
		}
	}
	return nil
}
