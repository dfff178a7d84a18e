package tools

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// trimString removes leading and trailing whitespace from a string.
// This is a common helper used across MCP tool parameter validation.
func trimString(s string) string {
	return strings.TrimSpace(s)
}

// jsonResult marshals v into a text tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}
	return mcp.NewToolResultText(string(b)), nil
}

// requireDatabase reads the required "database" argument. The returned tool
// result is non-nil when the argument is missing or blank.
func requireDatabase(req mcp.CallToolRequest) (string, *mcp.CallToolResult) {
	database := trimString(req.GetString("database", ""))
	if database == "" {
		return "", NewErrorResult("invalid_parameters", "parameter 'database' is required")
	}
	return database, nil
}
