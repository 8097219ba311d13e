package report

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/reportly-app/reportly/pkg/apperrors"
	"github.com/reportly-app/reportly/pkg/models"
)

// Built-in table style families and how many variants each has.
var themeFamilies = []struct {
	prefix string
	count  int
}{
	{"TableStyleLight", 21},
	{"TableStyleMedium", 28},
	{"TableStyleDark", 11},
}

// Themes lists every built-in table style name in display order.
func Themes() []string {
	var names []string
	for _, fam := range themeFamilies {
		for i := 1; i <= fam.count; i++ {
			names = append(names, fmt.Sprintf("%s%d", fam.prefix, i))
		}
	}
	return names
}

// ValidateTheme accepts a built-in table style name. Empty means the default.
func ValidateTheme(name string) error {
	if name == "" {
		return nil
	}
	for _, fam := range themeFamilies {
		suffix, ok := strings.CutPrefix(name, fam.prefix)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(suffix)
		if err == nil && n >= 1 && n <= fam.count && strconv.Itoa(n) == suffix {
			return nil
		}
	}
	return apperrors.Validation("unknown table theme %q", name)
}

func themeOrDefault(name string) string {
	if name == "" {
		return models.DefaultTableTheme
	}
	return name
}
