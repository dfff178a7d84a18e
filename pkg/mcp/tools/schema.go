package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-sqlchat/pkg/logging"
	"github.com/ekaya-inc/ekaya-sqlchat/pkg/models"
)

// RegisterSchemaTools registers list_databases and get_columns.
func RegisterSchemaTools(s *server.MCPServer, deps *ToolDeps) {
	registerListDatabasesTool(s, deps)
	registerGetColumnsTool(s, deps)
}

func registerListDatabasesTool(s *server.MCPServer, deps *ToolDeps) {
	tool := mcp.NewTool(
		"list_databases",
		mcp.WithDescription("List the databases on the connected server that questions can be asked against."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		databases, err := deps.Runner.ListDatabases(ctx)
		if err != nil {
			deps.Logger.Warn("list_databases failed", zap.String("error", logging.SanitizeError(err)))
			return NewErrorResult("schema_error", logging.SanitizeError(err)), nil
		}
		if databases == nil {
			databases = []string{}
		}
		return jsonResult(map[string]any{"databases": databases})
	})
}

func registerGetColumnsTool(s *server.MCPServer, deps *ToolDeps) {
	tool := mcp.NewTool(
		"get_columns",
		mcp.WithDescription(
			"Get the tables of a database and the column names of each table. "+
				"Pass 'table' to return a single table.",
		),
		mcp.WithString(
			"database",
			mcp.Required(),
			mcp.Description("Database name as returned by list_databases"),
		),
		mcp.WithString(
			"table",
			mcp.Description("Optional table name to restrict the result to"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		database, bad := requireDatabase(req)
		if bad != nil {
			return bad, nil
		}

		schema, err := deps.Runner.FetchSchema(ctx, database)
		if err != nil {
			deps.Logger.Warn("get_columns failed",
				zap.String("database", database),
				zap.String("error", logging.SanitizeError(err)))
			return NewErrorResult("schema_error", logging.SanitizeError(err)), nil
		}

		if table := trimString(req.GetString("table", "")); table != "" {
			columns, ok := schema[table]
			if !ok {
				return NewErrorResultWithDetails("table_not_found",
					"no table named '"+table+"' in database '"+database+"'",
					map[string]any{"tables": schema.TableNames()}), nil
			}
			schema = models.SchemaMap{table: columns}
		}

		return jsonResult(map[string]any{"database": database, "columns": schema})
	})
}
