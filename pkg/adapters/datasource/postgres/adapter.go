package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/ekaya-inc/ekaya-sqlchat/pkg/adapters/datasource"
)

// Adapter provides PostgreSQL connectivity over one pgx connection.
type Adapter struct {
	conn *pgx.Conn
}

// NewAdapter dials PostgreSQL. An empty database connects to the maintenance database.
func NewAdapter(ctx context.Context, cfg datasource.ConnectionConfig) (*Adapter, error) {
	conn, err := pgx.Connect(ctx, buildConnectionString(cfg))
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	return &Adapter{conn: conn}, nil
}

// Ping verifies the server is reachable with valid credentials.
func (a *Adapter) Ping(ctx context.Context) error {
	if err := a.conn.Ping(ctx); err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}
	return nil
}

// ListDatabases returns connectable, non-template databases.
func (a *Adapter) ListDatabases(ctx context.Context) ([]string, error) {
	const query = `
		SELECT datname
		FROM pg_database
		WHERE datallowconn AND NOT datistemplate
		ORDER BY datname
	`
	return a.queryStrings(ctx, query)
}

// ListTables returns base tables outside the system schemas.
// Tables outside public are schema-qualified.
func (a *Adapter) ListTables(ctx context.Context) ([]string, error) {
	const query = `
		SELECT CASE WHEN table_schema = 'public' THEN table_name
		            ELSE table_schema || '.' || table_name END
		FROM information_schema.tables
		WHERE table_type = 'BASE TABLE'
		  AND table_schema NOT IN ('pg_catalog', 'information_schema', 'pg_toast')
		ORDER BY table_schema, table_name
	`
	return a.queryStrings(ctx, query)
}

// ListColumns returns column names in ordinal order.
func (a *Adapter) ListColumns(ctx context.Context, table string) ([]string, error) {
	const query = `
		SELECT column_name
		FROM information_schema.columns
		WHERE table_schema = $1 AND table_name = $2
		ORDER BY ordinal_position
	`
	schema, name := splitTableName(table)
	return a.queryStrings(ctx, query, schema, name)
}

// Query runs a statement once and returns all rows.
func (a *Adapter) Query(ctx context.Context, statement string) ([]map[string]any, error) {
	rows, err := a.conn.Query(ctx, statement)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	result := make([]map[string]any, 0)
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("failed to read row values: %w", err)
		}

		rowMap := make(map[string]any, len(fields))
		for i, fd := range fields {
			rowMap[fd.Name] = normalizeValue(values[i])
		}
		result = append(result, rowMap)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Close releases the connection.
func (a *Adapter) Close() error {
	return a.conn.Close(context.Background())
}

func (a *Adapter) queryStrings(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := a.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query metadata: %w", err)
	}

	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan metadata: %w", err)
	}
	if names == nil {
		names = []string{}
	}
	return names, nil
}

// normalizeValue converts pgx-decoded values into JSON-friendly forms.
func normalizeValue(v any) any {
	switch t := v.(type) {
	case []byte:
		return string(t)
	case [16]byte:
		return uuid.UUID(t).String()
	case pgtype.Numeric:
		f, err := t.Float64Value()
		if err != nil || !f.Valid {
			return nil
		}
		return f.Float64
	default:
		return v
	}
}

// Ensure Adapter implements Connection at compile time.
var _ datasource.Connection = (*Adapter)(nil)
