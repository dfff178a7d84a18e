package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-sqlchat/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-sqlchat/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-sqlchat/pkg/logging"
	"github.com/ekaya-inc/ekaya-sqlchat/pkg/models"
)

// SchemaInspector reads database, table and column names from the datasource.
// Nothing is cached: every call opens its own connection and closes it before returning.
type SchemaInspector interface {
	// ListDatabases returns user databases, system schemas excluded.
	ListDatabases(ctx context.Context) ([]string, error)

	// ListTables returns the tables of database in sorted order.
	ListTables(ctx context.Context, database string) ([]string, error)

	// FetchSchema returns every table of database with its columns in engine order.
	FetchSchema(ctx context.Context, database string) (models.SchemaMap, error)
}

type schemaInspector struct {
	factory datasource.ConnectionFactory
	timeout time.Duration
	logger  *zap.Logger
}

// NewSchemaInspector creates a SchemaInspector. Each call is bounded by timeout.
func NewSchemaInspector(factory datasource.ConnectionFactory, timeout time.Duration, logger *zap.Logger) SchemaInspector {
	return &schemaInspector{
		factory: factory,
		timeout: timeout,
		logger:  logger.Named("schema-inspector"),
	}
}

var _ SchemaInspector = (*schemaInspector)(nil)

func (s *schemaInspector) ListDatabases(ctx context.Context) ([]string, error) {
	var databases []string
	err := s.withConnection(ctx, "", func(ctx context.Context, conn datasource.Connection) error {
		var err error
		databases, err = conn.ListDatabases(ctx)
		return err
	})
	if err != nil {
		return nil, s.schemaError(ctx, "failed to list databases", err)
	}
	if databases == nil {
		databases = []string{}
	}
	return databases, nil
}

func (s *schemaInspector) ListTables(ctx context.Context, database string) ([]string, error) {
	if database == "" {
		return nil, apperrors.ConfigError("database is required")
	}

	var tables []string
	err := s.withConnection(ctx, database, func(ctx context.Context, conn datasource.Connection) error {
		var err error
		tables, err = conn.ListTables(ctx)
		return err
	})
	if err != nil {
		return nil, s.schemaError(ctx, fmt.Sprintf("failed to list tables of %q", database), err)
	}
	if tables == nil {
		tables = []string{}
	}
	sort.Strings(tables)
	return tables, nil
}

func (s *schemaInspector) FetchSchema(ctx context.Context, database string) (models.SchemaMap, error) {
	if database == "" {
		return nil, apperrors.ConfigError("database is required")
	}

	schema := models.SchemaMap{}
	err := s.withConnection(ctx, database, func(ctx context.Context, conn datasource.Connection) error {
		tables, err := conn.ListTables(ctx)
		if err != nil {
			return fmt.Errorf("list tables: %w", err)
		}
		for _, table := range tables {
			columns, err := conn.ListColumns(ctx, table)
			if err != nil {
				return fmt.Errorf("list columns of %s: %w", table, err)
			}
			if columns == nil {
				columns = []string{}
			}
			schema[table] = columns
		}
		return nil
	})
	if err != nil {
		return nil, s.schemaError(ctx, fmt.Sprintf("failed to read schema of %q", database), err)
	}

	s.logger.Debug("Schema fetched",
		zap.String("database", database),
		zap.Int("tables", len(schema)),
		zap.Int("columns", schema.ColumnCount()))

	return schema, nil
}

// withConnection opens a connection bounded by the inspector timeout, runs fn
// and closes the connection on every path.
func (s *schemaInspector) withConnection(ctx context.Context, database string, fn func(context.Context, datasource.Connection) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	conn, err := s.factory.Open(ctx, database)
	if err != nil {
		return withTimeoutHint(ctx, s.timeout, fmt.Errorf("connect: %w", err))
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			s.logger.Warn("Failed to close connection", zap.String("error", logging.SanitizeError(cerr)))
		}
	}()

	return withTimeoutHint(ctx, s.timeout, fn(ctx, conn))
}

func (s *schemaInspector) schemaError(ctx context.Context, message string, err error) error {
	s.logger.Error(message,
		zap.String("request_id", logging.RequestID(ctx)),
		zap.String("error", logging.SanitizeError(err)))
	return apperrors.SchemaError(message, err)
}

// withTimeoutHint rewrites err to say the stage timed out when its deadline passed.
func withTimeoutHint(ctx context.Context, timeout time.Duration, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("timed out after %s: %w (%v)", timeout, context.DeadlineExceeded, err)
	}
	return err
}
