package handlers

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ekaya-inc/ekaya-sqlchat/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-sqlchat/pkg/models"
	"github.com/ekaya-inc/ekaya-sqlchat/pkg/services"
)

// fakeRunner is a QueryRunner backed by fixed data. Run records through a
// RunRecorder the same way the real pipeline does.
type fakeRunner struct {
	mu        sync.Mutex
	databases []string
	schema    models.SchemaMap
	result    *models.QueryResult
	schemaErr error
	recorder  services.RunRecorder
	runs      []models.QueryRequest
}

var _ services.QueryRunner = (*fakeRunner)(nil)

func newFakeRunner() *fakeRunner {
	return &fakeRunner{
		databases: []string{"hr", "shop"},
		schema: models.SchemaMap{
			"orders": {"id", "user_id", "total"},
			"users":  {"id", "name"},
		},
		result: models.NewSuccessResult("SELECT * FROM users",
			[]map[string]any{{"id": float64(1), "name": "Ada"}, {"id": float64(2), "name": "Grace"}}, 0.5),
		recorder: services.RunRecorder{Analytics: services.NewAnalytics(), History: services.NewHistory(10)},
	}
}

func (f *fakeRunner) Run(ctx context.Context, req models.QueryRequest) *models.QueryResult {
	f.mu.Lock()
	f.runs = append(f.runs, req)
	f.mu.Unlock()
	f.recorder.Record(req, f.result, time.Now())
	return f.result
}

func (f *fakeRunner) ListDatabases(ctx context.Context) ([]string, error) {
	if f.schemaErr != nil {
		return nil, f.schemaErr
	}
	return f.databases, nil
}

func (f *fakeRunner) ListTables(ctx context.Context, database string) ([]string, error) {
	if f.schemaErr != nil {
		return nil, f.schemaErr
	}
	if database != "shop" {
		return nil, apperrors.SchemaError("list tables", errors.New("unknown database"))
	}
	return f.schema.TableNames(), nil
}

func (f *fakeRunner) FetchSchema(ctx context.Context, database string) (models.SchemaMap, error) {
	if f.schemaErr != nil {
		return nil, f.schemaErr
	}
	if database != "shop" {
		return nil, apperrors.SchemaError("fetch schema", errors.New("unknown database"))
	}
	return f.schema, nil
}
