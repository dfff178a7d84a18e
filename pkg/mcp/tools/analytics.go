package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// RegisterAnalyticsTool registers the analytics tool, which returns the
// per-question timing and success summary.
func RegisterAnalyticsTool(s *server.MCPServer, deps *ToolDeps) {
	tool := mcp.NewTool(
		"analytics",
		mcp.WithDescription("Returns per-question counts, average execution time and success rates for all questions asked so far."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return jsonResult(deps.Analytics.Snapshot())
	})
}
