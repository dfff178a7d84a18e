package tools

import (
	"encoding/json"
	"regexp"

	"github.com/mark3labs/mcp-go/mcp"
)

// ErrorResponse represents a structured error in tool results.
// Errors are returned as successful tool results with IsError set so the
// calling model can read the details and retry with different input.
type ErrorResponse struct {
	Error   bool   `json:"error"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// NewErrorResult creates a tool result containing a structured error.
// Use this for recoverable/actionable errors (bad arguments, unknown table,
// a generated statement the database rejected).
func NewErrorResult(code, message string) *mcp.CallToolResult {
	return NewErrorResultWithDetails(code, message, nil)
}

// NewErrorResultWithDetails creates an error result with additional context.
func NewErrorResultWithDetails(code, message string, details any) *mcp.CallToolResult {
	resp := ErrorResponse{
		Error:   true,
		Code:    code,
		Message: message,
		Details: details,
	}
	jsonBytes, _ := json.Marshal(resp)
	result := mcp.NewToolResultText(string(jsonBytes))
	result.IsError = true
	return result
}

// sqlStateRegex matches SQLSTATE codes as printed by pgx "(SQLSTATE 42P01)"
// and by the MySQL driver "Error 1146 (42S02): ...".
var sqlStateRegex = regexp.MustCompile(`\((?:SQLSTATE )?([0-9A-Z]{5})\)`)

// SQLErrorCode maps a database error message to a short error code.
// Returns "" when the message carries no SQLSTATE.
func SQLErrorCode(message string) string {
	matches := sqlStateRegex.FindStringSubmatch(message)
	if len(matches) < 2 {
		return ""
	}
	return mapSQLStateToCode(matches[1])
}

// mapSQLStateToCode maps a SQLSTATE code to a human-readable error code.
func mapSQLStateToCode(sqlState string) string {
	switch sqlState {
	case "42601", "42000":
		return "syntax_error"
	case "42703", "42S22":
		return "undefined_column"
	case "42P01", "42S02":
		return "undefined_table"
	case "22012":
		return "division_by_zero"
	case "22P02", "22007":
		return "invalid_input"
	case "57014", "70100":
		return "query_canceled"
	}

	switch sqlState[:2] {
	case "22":
		return "data_exception"
	case "23":
		return "constraint_violation"
	case "28":
		return "access_denied"
	}
	return "sql_error"
}
