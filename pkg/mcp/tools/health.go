package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

type healthResult struct {
	Status       string `json:"status"`
	Version      string `json:"version"`
	TotalQueries int64  `json:"total_queries"`
}

// RegisterHealthTool adds a health check tool to the MCP server.
// The tool returns the server status, version and how many questions were answered.
func RegisterHealthTool(s *server.MCPServer, deps *ToolDeps) {
	tool := mcp.NewTool(
		"health",
		mcp.WithDescription("Returns server health status and version"),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return jsonResult(healthResult{
			Status:       "ok",
			Version:      deps.Version,
			TotalQueries: deps.Analytics.Snapshot().TotalQueries,
		})
	})
}
