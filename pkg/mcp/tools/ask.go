package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/ekaya-inc/ekaya-sqlchat/pkg/logging"
	"github.com/ekaya-inc/ekaya-sqlchat/pkg/models"
)

type askResult struct {
	SQL           string           `json:"sql"`
	Results       []map[string]any `json:"results"`
	RowCount      int              `json:"row_count"`
	ExecutionTime float64          `json:"execution_time"`
}

// RegisterAskTool registers ask_database, which answers a natural-language
// question by generating and running SQL. Every call is tracked in analytics.
func RegisterAskTool(s *server.MCPServer, deps *ToolDeps) {
	tool := mcp.NewTool(
		"ask_database",
		mcp.WithDescription(
			"Answer a natural-language question about a database. "+
				"The question is translated to SQL using the database schema, the SQL is executed, "+
				"and the generated SQL is returned with the result rows.",
		),
		mcp.WithString(
			"question",
			mcp.Required(),
			mcp.Description("The question in plain language, e.g. 'how many orders were placed last week'"),
		),
		mcp.WithString(
			"database",
			mcp.Required(),
			mcp.Description("Database name as returned by list_databases"),
		),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(false),
		mcp.WithOpenWorldHintAnnotation(true),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		database, bad := requireDatabase(req)
		if bad != nil {
			return bad, nil
		}
		question := req.GetString("question", "")

		result := deps.Runner.Run(ctx, models.QueryRequest{Query: question, Database: database})
		if !result.Success {
			code := SQLErrorCode(result.Error())
			if code == "" {
				code = "query_failed"
			}
			return NewErrorResultWithDetails(code, logging.SanitizeText(result.Error()), map[string]any{
				"sql":            result.SQL,
				"execution_time": result.ExecutionTimeSeconds,
			}), nil
		}

		return jsonResult(askResult{
			SQL:           result.SQL,
			Results:       result.Rows,
			RowCount:      len(result.Rows),
			ExecutionTime: result.ExecutionTimeSeconds,
		})
	})
}
