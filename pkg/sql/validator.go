// Package sql cleans and checks SQL produced by the language model.
package sql

import (
	"errors"
	"strings"
	"unicode"
)

var (
	// ErrEmptyStatement indicates nothing was left to execute.
	ErrEmptyStatement = errors.New("generated SQL is empty")

	// ErrMultipleStatements indicates the query contains multiple SQL statements.
	ErrMultipleStatements = errors.New("multiple SQL statements not allowed; only single statements are permitted")

	// ErrNotReadOnly indicates a write statement while read-only mode is on.
	ErrNotReadOnly = errors.New("only read statements (SELECT, WITH, SHOW, DESCRIBE, EXPLAIN) are allowed in read-only mode")
)

// readKeywords are statement leaders accepted in read-only mode.
var readKeywords = map[string]bool{
	"SELECT":   true,
	"WITH":     true,
	"SHOW":     true,
	"DESCRIBE": true,
	"DESC":     true,
	"EXPLAIN":  true,
	"VALUES":   true,
}

// ValidateStatement checks a cleaned statement before execution.
// Semicolons inside quoted strings and identifiers are allowed; any other
// semicolon means more than one statement.
func ValidateStatement(statement string, readOnly bool) error {
	if strings.TrimSpace(statement) == "" {
		return ErrEmptyStatement
	}
	if hasSemicolonOutsideStrings(statement) {
		return ErrMultipleStatements
	}
	if readOnly && !IsReadOnly(statement) {
		return ErrNotReadOnly
	}
	return nil
}

// IsReadOnly reports whether the statement starts with a read keyword.
// Leading whitespace, parentheses and comments are skipped.
func IsReadOnly(statement string) bool {
	return readKeywords[leadingKeyword(statement)]
}

// leadingKeyword returns the first word of the statement, uppercased.
func leadingKeyword(statement string) string {
	s := statement
	for {
		s = strings.TrimLeftFunc(s, func(r rune) bool { return unicode.IsSpace(r) || r == '(' })
		switch {
		case strings.HasPrefix(s, "--"):
			if i := strings.IndexByte(s, '\n'); i >= 0 {
				s = s[i+1:]
				continue
			}
			return ""
		case strings.HasPrefix(s, "/*"):
			if i := strings.Index(s, "*/"); i >= 0 {
				s = s[i+2:]
				continue
			}
			return ""
		}
		break
	}

	end := strings.IndexFunc(s, func(r rune) bool { return !unicode.IsLetter(r) })
	if end < 0 {
		end = len(s)
	}
	return strings.ToUpper(s[:end])
}

// hasSemicolonOutsideStrings returns true if the SQL contains any semicolon
// outside of string literals and quoted identifiers.
func hasSemicolonOutsideStrings(sqlQuery string) bool {
	const (
		stateNormal = iota
		stateSingleQuote
		stateDoubleQuote
		stateBacktick
	)

	state := stateNormal
	prevChar := rune(0)

	for _, char := range sqlQuery {
		switch state {
		case stateNormal:
			switch char {
			case ';':
				return true
			case '\'':
				state = stateSingleQuote
			case '"':
				state = stateDoubleQuote
			case '`':
				state = stateBacktick
			}
		case stateSingleQuote:
			// Handles both backslash escape (\') and SQL standard escape (''):
			// a doubled quote exits and immediately re-enters the string.
			if char == '\'' && prevChar != '\\' {
				state = stateNormal
			}
		case stateDoubleQuote:
			if char == '"' && prevChar != '\\' {
				state = stateNormal
			}
		case stateBacktick:
			if char == '`' {
				state = stateNormal
			}
		}
		prevChar = char
	}

	return false
}
