package mssql

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/microsoft/go-mssqldb"

	"github.com/ekaya-inc/ekaya-sqlchat/pkg/adapters/datasource"
)

// Adapter provides SQL Server connectivity over a single connection.
type Adapter struct {
	db *sql.DB
}

// NewAdapter opens a SQL Server handle limited to one connection.
func NewAdapter(ctx context.Context, cfg datasource.ConnectionConfig) (*Adapter, error) {
	db, err := sql.Open("sqlserver", buildConnectionString(cfg))
	if err != nil {
		return nil, fmt.Errorf("open SQL auth connection: %w", err)
	}
	db.SetMaxOpenConns(1)
	return newAdapterWithDB(db), nil
}

func newAdapterWithDB(db *sql.DB) *Adapter {
	return &Adapter{db: db}
}

// Ping verifies the server is reachable with valid credentials.
func (a *Adapter) Ping(ctx context.Context) error {
	var one int
	if err := a.db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("test query failed: %w", err)
	}
	return nil
}

// ListDatabases returns user databases; database_id 1-4 are master, tempdb, model and msdb.
func (a *Adapter) ListDatabases(ctx context.Context) ([]string, error) {
	return a.queryStrings(ctx, `SELECT name FROM sys.databases WHERE database_id > 4 AND state = 0 ORDER BY name`)
}

// ListTables returns base tables; tables outside dbo are schema-qualified.
func (a *Adapter) ListTables(ctx context.Context) ([]string, error) {
	const query = `
		SELECT CASE WHEN TABLE_SCHEMA = 'dbo' THEN TABLE_NAME
		            ELSE TABLE_SCHEMA + '.' + TABLE_NAME END
		FROM INFORMATION_SCHEMA.TABLES
		WHERE TABLE_TYPE = 'BASE TABLE'
		ORDER BY TABLE_SCHEMA, TABLE_NAME
	`
	return a.queryStrings(ctx, query)
}

// ListColumns returns column names in ordinal order.
func (a *Adapter) ListColumns(ctx context.Context, table string) ([]string, error) {
	const query = `
		SELECT COLUMN_NAME
		FROM INFORMATION_SCHEMA.COLUMNS
		WHERE TABLE_SCHEMA = @p1 AND TABLE_NAME = @p2
		ORDER BY ORDINAL_POSITION
	`
	schema, name := parseSchemaTable(table)
	return a.queryStrings(ctx, query, schema, name)
}

// Query runs a statement once and returns all rows.
func (a *Adapter) Query(ctx context.Context, statement string) ([]map[string]any, error) {
	rows, err := a.db.QueryContext(ctx, statement)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return datasource.ScanRows(rows)
}

// Close releases the connection.
func (a *Adapter) Close() error {
	return a.db.Close()
}

func (a *Adapter) queryStrings(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := a.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query metadata: %w", err)
	}
	defer rows.Close()

	return datasource.ScanStrings(rows)
}

// Ensure Adapter implements Connection at compile time.
var _ datasource.Connection = (*Adapter)(nil)
