package sql

import (
	"regexp"
	"strings"
)

var (
	// A fence tag is a whole word ending the fence line (```sqlite, ```pgsql).
	// On a single-line fence only known dialect words count as tags, so
	// ```SELECT 1``` keeps its statement.
	fencePattern = regexp.MustCompile("(?i)```(?:[a-z0-9_+-]*[ \t]*(?:\r?\n|$)|" +
		`(?:sql|mysql|mariadb|postgresql|postgres|pgsql|sqlite|tsql|plsql)\b)?`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// CleanSQL isolates the statement from a model's free-text reply.
// It removes code fences, collapses whitespace runs to one space, trims, and
// strips trailing semicolons. It performs no semantic validation and may return "".
//
// CleanSQL(CleanSQL(s)) == CleanSQL(s) for every s.
func CleanSQL(raw string) string {
	cleaned := fencePattern.ReplaceAllString(raw, "")
	cleaned = whitespacePattern.ReplaceAllString(cleaned, " ")
	cleaned = strings.TrimSpace(cleaned)

	for strings.HasSuffix(cleaned, ";") {
		cleaned = strings.TrimSpace(strings.TrimSuffix(cleaned, ";"))
	}

	return cleaned
}
