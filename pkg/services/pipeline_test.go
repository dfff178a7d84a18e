package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ekaya-inc/ekaya-sqlchat/pkg/llm"
	"github.com/ekaya-inc/ekaya-sqlchat/pkg/models"
)

type pipelineFixture struct {
	pipeline  *QueryPipeline
	factory   *fakeFactory
	llm       *llm.MockLLMClient
	analytics *Analytics
	history   *History
	logs      *observer.ObservedLogs
}

func newPipelineFixture(t *testing.T, response string, llmTimeout time.Duration) *pipelineFixture {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(core)

	factory := newFakeFactory()
	mock := llm.NewMockLLMClient(response)
	analytics := NewAnalytics()
	history := NewHistory(10)

	pipeline := NewQueryPipeline(
		NewSchemaInspector(factory, time.Second, logger),
		NewSQLGenerator(mock, GeneratorConfig{Temperature: 0.2, MaxTokens: 512, Timeout: llmTimeout}, logger),
		NewQueryExecutor(factory, ExecutorConfig{Timeout: time.Second}, logger),
		RunRecorder{Analytics: analytics, History: history},
		logger,
	)
	return &pipelineFixture{pipeline, factory, mock, analytics, history, logs}
}

// Scenario: a valid question against a known table returns its rows.
func TestQueryPipeline_Success(t *testing.T) {
	f := newPipelineFixture(t, "```sql\nSELECT * FROM users;\n```", time.Second)

	result := f.pipeline.Run(context.Background(), models.QueryRequest{Query: "show all users", Database: "shop"})

	require.True(t, result.Success)
	assert.Nil(t, result.ErrorMessage)
	assert.Equal(t, "SELECT * FROM users", result.SQL)
	require.Len(t, result.Rows, 2)
	assert.GreaterOrEqual(t, result.ExecutionTimeSeconds, 0.0)

	// All rows share one key set.
	for _, row := range result.Rows {
		assert.ElementsMatch(t, []string{"id", "name", "email"}, keys(row))
	}

	rec, ok := f.analytics.Record("show all users")
	require.True(t, ok)
	assert.Equal(t, int64(1), rec.Count)
	assert.Equal(t, int64(1), rec.SuccessCount)

	entries := f.history.List()
	require.Len(t, entries, 1)
	assert.Equal(t, "SELECT * FROM users", entries[0].SQL)
	assert.Equal(t, "shop", entries[0].Database)
	assert.Equal(t, 2, entries[0].RowCount)

	assert.Equal(t, 1, f.logs.FilterMessage("Query completed").Len())

	opens, closes := f.factory.counts()
	assert.Equal(t, 2, opens, "one connection for schema, one for execution")
	assert.Equal(t, opens, closes)
}

// Scenario: the language model times out.
func TestQueryPipeline_GenerationTimeout(t *testing.T) {
	f := newPipelineFixture(t, "", 20*time.Millisecond)
	f.llm.GenerateResponseFunc = func(ctx context.Context, prompt, systemMessage string, temperature float64, maxTokens int) (*llm.GenerateResponseResult, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	result := f.pipeline.Run(context.Background(), models.QueryRequest{Query: "show all users", Database: "shop"})

	assert.False(t, result.Success)
	assert.Equal(t, "", result.SQL)
	require.NotNil(t, result.ErrorMessage)
	assert.NotEmpty(t, *result.ErrorMessage)
	assert.NotNil(t, result.Rows)
	assert.Empty(t, result.Rows)

	rec, ok := f.analytics.Record("show all users")
	require.True(t, ok)
	assert.Equal(t, int64(1), rec.Count)
	assert.Equal(t, int64(1), rec.ErrorCount)
	assert.Zero(t, f.history.Len(), "failures are not kept in history")
}

// Scenario: the generated SQL names a table that does not exist.
func TestQueryPipeline_ExecutionFailureKeepsSQL(t *testing.T) {
	f := newPipelineFixture(t, "SELECT * FROM missing", time.Second)

	result := f.pipeline.Run(context.Background(), models.QueryRequest{Query: "show the missing table", Database: "shop"})

	assert.False(t, result.Success)
	assert.Equal(t, "SELECT * FROM missing", result.SQL)
	assert.Empty(t, result.Rows)
	assert.Contains(t, result.Error(), "doesn't exist")

	rec, _ := f.analytics.Record("show the missing table")
	assert.Equal(t, int64(1), rec.ErrorCount)
	assert.Equal(t, 1, f.logs.FilterMessage("Query failed").Len())
}

func TestQueryPipeline_SchemaFailureSkipsModel(t *testing.T) {
	f := newPipelineFixture(t, "SELECT 1", time.Second)

	result := f.pipeline.Run(context.Background(), models.QueryRequest{Query: "anything", Database: "nope"})

	assert.False(t, result.Success)
	assert.Equal(t, "", result.SQL)
	assert.Zero(t, f.llm.Calls(), "model not called when schema fails")

	snap := f.analytics.Snapshot()
	assert.Equal(t, int64(1), snap.TotalQueries)
	assert.Equal(t, 100.0, snap.ErrorRatePercent)
}

func TestQueryPipeline_EmptyQuestionDoesNotCrash(t *testing.T) {
	f := newPipelineFixture(t, "", time.Second)

	result := f.pipeline.Run(context.Background(), models.QueryRequest{Query: "", Database: "shop"})

	assert.False(t, result.Success)
	_, ok := f.analytics.Record("")
	assert.True(t, ok)
}

func TestQueryPipeline_FlagsInjectionButStillRuns(t *testing.T) {
	f := newPipelineFixture(t, "SELECT * FROM users", time.Second)

	result := f.pipeline.Run(context.Background(), models.QueryRequest{Query: "' OR 1=1--", Database: "shop"})

	assert.True(t, result.Success)
	assert.Equal(t, 1, f.logs.FilterMessage("Question matches SQL injection fingerprint").Len())
}

func TestQueryPipeline_ReadOnlyRejectionIsAudited(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(core)
	factory := newFakeFactory()

	pipeline := NewQueryPipeline(
		NewSchemaInspector(factory, time.Second, logger),
		NewSQLGenerator(llm.NewMockLLMClient("DELETE FROM users"), GeneratorConfig{Timeout: time.Second}, logger),
		NewQueryExecutor(factory, ExecutorConfig{Timeout: time.Second, ReadOnly: true}, logger),
		RunRecorder{Analytics: NewAnalytics()},
		logger,
	)

	result := pipeline.Run(context.Background(), models.QueryRequest{Query: "remove every user", Database: "shop"})

	assert.False(t, result.Success)
	assert.Equal(t, "DELETE FROM users", result.SQL)
	rejected := logs.FilterMessage("Generated statement rejected").All()
	require.Len(t, rejected, 1)
	assert.Equal(t, "security_audit", rejected[0].LoggerName)
}

func TestQueryPipeline_ConcurrentRuns(t *testing.T) {
	const runs = 20
	f := newPipelineFixture(t, "SELECT * FROM users", time.Second)

	var wg sync.WaitGroup
	for i := 0; i < runs; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.pipeline.Run(context.Background(), models.QueryRequest{Query: "show all users", Database: "shop"})
		}()
	}
	wg.Wait()

	rec, _ := f.analytics.Record("show all users")
	assert.Equal(t, int64(runs), rec.Count)
	assert.Equal(t, 10, f.history.Len(), "history capped at its capacity")
}

func keys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
