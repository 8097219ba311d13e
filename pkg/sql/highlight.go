package sql

import (
	"regexp"
	"strings"
)

// CSS classes the editor styles highlighted tokens with.
const (
	KeywordClass  = "sql-keyword"
	FunctionClass = "sql-function"
)

var highlightKeywords = []string{
	"SELECT", "FROM", "WHERE", "INSERT", "INTO", "UPDATE", "DELETE", "JOIN", "ON",
	"GROUP BY", "ORDER BY", "HAVING", "AS", "AND", "OR", "NOT", "NULL",
}

var highlightFunctions = []string{"COUNT", "SUM", "AVG", "MIN", "MAX", "NOW"}

var (
	highlightPattern = wordPattern(append(append([]string{}, highlightKeywords...), highlightFunctions...))
	functionSet      = toSet(highlightFunctions)
	htmlEscaper      = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
)

// Highlight returns sql as HTML with keywords and functions wrapped in spans.
// The text is escaped first, so the result contains no raw '<' or '>' from
// the input. Matching is a whole-word regex scan, not tokenization: keywords
// inside string literals are highlighted too.
func Highlight(sql string) string {
	escaped := htmlEscaper.Replace(sql)
	return highlightPattern.ReplaceAllStringFunc(escaped, func(match string) string {
		class := KeywordClass
		if functionSet[strings.ToUpper(match)] {
			class = FunctionClass
		}
		return `<span class="` + class + `">` + match + `</span>`
	})
}

// wordPattern matches any of words as a whole word, case-insensitively.
// Longer alternatives come first so "GROUP BY" wins over a shorter prefix.
func wordPattern(words []string) *regexp.Regexp {
	alternatives := make([]string, len(words))
	for i, w := range words {
		alternatives[i] = strings.ReplaceAll(regexp.QuoteMeta(w), " ", `\s+`)
	}
	sortByLengthDesc(alternatives)
	return regexp.MustCompile(`(?i)\b(?:` + strings.Join(alternatives, "|") + `)\b`)
}

func sortByLengthDesc(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && len(s[j]) > len(s[j-1]); j-- {
			s[j], s[j-1] = s[j-1], s[j]
		}
	}
}

func toSet(words []string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}
