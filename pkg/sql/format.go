package sql

import (
	"regexp"
	"strings"
)

var formatKeywords = []string{
	"SELECT", "FROM", "WHERE", "INSERT", "INTO", "UPDATE", "DELETE", "JOIN",
	"LEFT", "RIGHT", "INNER", "OUTER", "ON", "AS", "GROUP BY", "ORDER BY",
	"HAVING", "AND", "OR", "NOT", "NULL", "LIMIT", "OFFSET", "VALUES",
	"CREATE", "ALTER", "DROP", "TABLE",
}

var (
	whitespacePattern = regexp.MustCompile(`\s+`)
	formatPattern     = wordPattern(formatKeywords)
	clausePattern     = regexp.MustCompile(` (FROM|WHERE|GROUP BY|ORDER BY|HAVING)\b`)
)

// Format normalizes sql: whitespace collapsed to single spaces, keywords
// uppercased, a line break before each FROM, WHERE, GROUP BY, ORDER BY and
// HAVING clause, and a terminating semicolon. Format(Format(s)) == Format(s).
//
// Format is textual. It does not know about string literals or comments, so
// a keyword inside a quoted string is rewritten like any other.
func Format(sql string) string {
	out := strings.TrimSpace(sql)
	if out == "" {
		return ""
	}

	out = whitespacePattern.ReplaceAllString(out, " ")
	out = formatPattern.ReplaceAllStringFunc(out, strings.ToUpper)
	out = clausePattern.ReplaceAllString(out, "\n$1")

	if !strings.HasSuffix(out, ";") {
		out += ";"
	}
	return out
}
