package tools

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-sqlchat/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-sqlchat/pkg/models"
	"github.com/ekaya-inc/ekaya-sqlchat/pkg/services"
)

// fakeRunner is a QueryRunner that records runs into analytics like the real pipeline.
type fakeRunner struct {
	mu        sync.Mutex
	databases []string
	schema    models.SchemaMap
	result    *models.QueryResult
	schemaErr error
	analytics *services.Analytics
	requests  []models.QueryRequest
}

var _ services.QueryRunner = (*fakeRunner)(nil)

func (f *fakeRunner) Run(ctx context.Context, req models.QueryRequest) *models.QueryResult {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	f.analytics.Track(req.Query, f.result.ExecutionTimeSeconds, f.result.Success)
	return f.result
}

func (f *fakeRunner) ListDatabases(ctx context.Context) ([]string, error) {
	return f.databases, f.schemaErr
}

func (f *fakeRunner) ListTables(ctx context.Context, database string) ([]string, error) {
	return f.schema.TableNames(), f.schemaErr
}

func (f *fakeRunner) FetchSchema(ctx context.Context, database string) (models.SchemaMap, error) {
	if f.schemaErr != nil {
		return nil, f.schemaErr
	}
	if database != "shop" {
		return nil, apperrors.SchemaError("fetch schema", errors.New("unknown database '"+database+"'"))
	}
	return f.schema, nil
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{
		databases: []string{"shop", "hr"},
		schema: models.SchemaMap{
			"users":  {"id", "name", "email"},
			"orders": {"id", "user_id", "total"},
		},
		result:    models.NewSuccessResult("SELECT * FROM users", []map[string]any{{"id": float64(1), "name": "Ada"}}, 0.25),
		analytics: services.NewAnalytics(),
	}
}

func newToolServer(runner *fakeRunner) *server.MCPServer {
	s := server.NewMCPServer("test", "1.0.0", server.WithToolCapabilities(true))
	RegisterAll(s, &ToolDeps{
		Runner:    runner,
		Analytics: runner.analytics,
		Version:   "1.2.3",
		Logger:    zap.NewNop(),
	})
	return s
}

// callTool invokes a tool through HandleMessage and returns the text content and isError flag.
func callTool(t *testing.T, s *server.MCPServer, name string, args map[string]any) (string, bool) {
	t.Helper()

	msg, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "tools/call",
		"params":  map[string]any{"name": name, "arguments": args},
	})
	require.NoError(t, err)

	raw, err := json.Marshal(s.HandleMessage(context.Background(), msg))
	require.NoError(t, err)

	var response struct {
		Result struct {
			IsError bool `json:"isError"`
			Content []struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"content"`
		} `json:"result"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(raw, &response))
	require.Nil(t, response.Error, "unexpected JSON-RPC error")
	require.NotEmpty(t, response.Result.Content)
	return response.Result.Content[0].Text, response.Result.IsError
}

// getTextContent extracts the text string from the first text content item
func getTextContent(result *mcp.CallToolResult) string {
	if len(result.Content) == 0 {
		return ""
	}
	if text, ok := result.Content[0].(mcp.TextContent); ok {
		return text.Text
	}
	return ""
}
