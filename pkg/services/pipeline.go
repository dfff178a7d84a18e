package services

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-sqlchat/pkg/audit"
	"github.com/ekaya-inc/ekaya-sqlchat/pkg/logging"
	"github.com/ekaya-inc/ekaya-sqlchat/pkg/metrics"
	"github.com/ekaya-inc/ekaya-sqlchat/pkg/models"
	sqlutil "github.com/ekaya-inc/ekaya-sqlchat/pkg/sql"
)

// QueryRunner answers questions and schema lookups for the gateway.
// It is implemented in-process by QueryPipeline and remotely by queryservice.Client.
type QueryRunner interface {
	// Run never returns an error: every failure is reported in the result.
	Run(ctx context.Context, req models.QueryRequest) *models.QueryResult
	ListDatabases(ctx context.Context) ([]string, error)
	ListTables(ctx context.Context, database string) ([]string, error)
	FetchSchema(ctx context.Context, database string) (models.SchemaMap, error)
}

// RunRecorder receives the outcome of every run. Both QueryPipeline and the
// remote query-service client report through it.
type RunRecorder struct {
	Analytics *Analytics
	History   *History
}

// Record tracks one run in analytics and, on success, in history.
func (r RunRecorder) Record(req models.QueryRequest, result *models.QueryResult, at time.Time) {
	if r.Analytics != nil {
		r.Analytics.Track(req.Query, result.ExecutionTimeSeconds, result.Success)
	}
	if r.History != nil && result.Success {
		r.History.Add(models.QueryHistoryEntry{
			NaturalQuery:  req.Query,
			SQL:           result.SQL,
			Database:      req.Database,
			ExecutionTime: result.ExecutionTimeSeconds,
			RowCount:      len(result.Rows),
			Timestamp:     at,
		})
	}
	metrics.ObservePipeline(result.Success, result.ExecutionTimeSeconds)
}

// QueryPipeline runs schema introspection, SQL generation and execution in sequence.
type QueryPipeline struct {
	schema    SchemaInspector
	generator SQLGenerator
	executor  QueryExecutor
	recorder  RunRecorder
	auditor   *audit.SecurityAuditor
	logger    *zap.Logger
}

// NewQueryPipeline wires the three stages and the run recorder.
func NewQueryPipeline(schema SchemaInspector, generator SQLGenerator, executor QueryExecutor, recorder RunRecorder, logger *zap.Logger) *QueryPipeline {
	return &QueryPipeline{
		schema:    schema,
		generator: generator,
		executor:  executor,
		recorder:  recorder,
		auditor:   audit.NewSecurityAuditor(logger),
		logger:    logger.Named("pipeline"),
	}
}

var _ QueryRunner = (*QueryPipeline)(nil)

// Run executes one question end to end. Exactly one analytics entry is
// recorded per call, whatever the outcome.
func (p *QueryPipeline) Run(ctx context.Context, req models.QueryRequest) *models.QueryResult {
	start := time.Now()
	elapsed := func() float64 { return time.Since(start).Seconds() }

	p.flagInjection(ctx, req)

	schema, err := p.schema.FetchSchema(ctx, req.Database)
	metrics.ObserveStage("schema", err)
	if err != nil {
		return p.finish(ctx, req, models.NewFailedResult("", err, elapsed()), start)
	}

	statement, err := p.generator.GenerateSQL(ctx, req.Query, schema)
	metrics.ObserveStage("generate", err)
	if err != nil {
		return p.finish(ctx, req, models.NewFailedResult("", err, elapsed()), start)
	}

	rows, err := p.executor.Execute(ctx, req.Database, statement)
	metrics.ObserveStage("execute", err)
	if errors.Is(err, sqlutil.ErrNotReadOnly) || errors.Is(err, sqlutil.ErrMultipleStatements) {
		p.auditor.LogStatementRejected(ctx, req.Database, statement, err)
	}
	if err != nil {
		return p.finish(ctx, req, models.NewFailedResult(statement, err, elapsed()), start)
	}

	return p.finish(ctx, req, models.NewSuccessResult(statement, rows, elapsed()), start)
}

func (p *QueryPipeline) finish(ctx context.Context, req models.QueryRequest, result *models.QueryResult, start time.Time) *models.QueryResult {
	p.recorder.Record(req, result, start)

	fields := []zap.Field{
		zap.String("request_id", logging.RequestID(ctx)),
		zap.String("database", req.Database),
		zap.String("question", logging.TruncateString(req.Query, 200)),
		zap.String("sql", logging.SanitizeQuery(result.SQL)),
		zap.Float64("execution_time", result.ExecutionTimeSeconds),
	}
	if result.Success {
		p.logger.Info("Query completed", append(fields, zap.Int("rows", len(result.Rows)))...)
	} else {
		p.logger.Warn("Query failed", append(fields, zap.String("error", logging.SanitizeText(result.Error())))...)
	}
	return result
}

// flagInjection audits questions that look like SQL injection payloads.
// The question is answered either way; this is a signal only.
func (p *QueryPipeline) flagInjection(ctx context.Context, req models.QueryRequest) {
	check := sqlutil.CheckForInjection("query", req.Query)
	if check == nil || !check.IsSQLi {
		return
	}
	metrics.IncrementInjectionFlag()
	p.auditor.LogInjectionFlag(ctx, req.Database, check.Field, req.Query, check.Fingerprint)
}

// ListDatabases implements QueryRunner.
func (p *QueryPipeline) ListDatabases(ctx context.Context) ([]string, error) {
	return p.schema.ListDatabases(ctx)
}

// ListTables implements QueryRunner.
func (p *QueryPipeline) ListTables(ctx context.Context, database string) ([]string, error) {
	return p.schema.ListTables(ctx, database)
}

// FetchSchema implements QueryRunner.
func (p *QueryPipeline) FetchSchema(ctx context.Context, database string) (models.SchemaMap, error) {
	return p.schema.FetchSchema(ctx, database)
}
