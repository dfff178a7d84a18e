package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-sqlchat/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-sqlchat/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-sqlchat/pkg/logging"
	sqlutil "github.com/ekaya-inc/ekaya-sqlchat/pkg/sql"
)

// QueryExecutor runs one generated statement against a named database.
type QueryExecutor interface {
	Execute(ctx context.Context, database, statement string) ([]map[string]any, error)
}

// ExecutorConfig bounds statement execution.
type ExecutorConfig struct {
	Timeout  time.Duration
	ReadOnly bool // Reject statements that are not reads
}

type queryExecutor struct {
	factory datasource.ConnectionFactory
	cfg     ExecutorConfig
	logger  *zap.Logger
}

// NewQueryExecutor creates a QueryExecutor that opens one connection per call.
func NewQueryExecutor(factory datasource.ConnectionFactory, cfg ExecutorConfig, logger *zap.Logger) QueryExecutor {
	return &queryExecutor{
		factory: factory,
		cfg:     cfg,
		logger:  logger.Named("query-executor"),
	}
}

var _ QueryExecutor = (*queryExecutor)(nil)

func (e *queryExecutor) Execute(ctx context.Context, database, statement string) ([]map[string]any, error) {
	if err := sqlutil.ValidateStatement(statement, e.cfg.ReadOnly); err != nil {
		e.logger.Warn("Statement rejected before execution",
			zap.String("sql", logging.SanitizeQuery(statement)),
			zap.Error(err))
		return nil, apperrors.ExecutionError("statement rejected", err)
	}

	if e.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.Timeout)
		defer cancel()
	}

	conn, err := e.factory.Open(ctx, database)
	if err != nil {
		return nil, e.executionError(ctx, fmt.Sprintf("failed to connect to %q", database), err)
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			e.logger.Warn("Failed to close connection", zap.String("error", logging.SanitizeError(cerr)))
		}
	}()

	start := time.Now()
	rows, err := conn.Query(ctx, statement)
	if err != nil {
		return nil, e.executionError(ctx, "failed to execute statement", err)
	}
	if rows == nil {
		rows = []map[string]any{}
	}

	e.logger.Debug("Statement executed",
		zap.String("request_id", logging.RequestID(ctx)),
		zap.String("database", database),
		zap.Int("rows", len(rows)),
		zap.Duration("elapsed", time.Since(start)))

	return rows, nil
}

func (e *queryExecutor) executionError(ctx context.Context, message string, err error) error {
	err = withTimeoutHint(ctx, e.cfg.Timeout, err)
	e.logger.Error(message,
		zap.String("request_id", logging.RequestID(ctx)),
		zap.String("error", logging.SanitizeError(err)))
	return apperrors.ExecutionError(message, err)
}
