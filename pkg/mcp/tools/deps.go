package tools

import (
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-sqlchat/pkg/services"
)

// ToolDeps contains dependencies shared by every sqlchat tool.
type ToolDeps struct {
	Runner    services.QueryRunner
	Analytics *services.Analytics
	Version   string
	Logger    *zap.Logger
}

// RegisterAll adds every sqlchat tool to the MCP server.
func RegisterAll(s *server.MCPServer, deps *ToolDeps) {
	RegisterSchemaTools(s, deps)
	RegisterAskTool(s, deps)
	RegisterAnalyticsTool(s, deps)
	RegisterHealthTool(s, deps)
}
