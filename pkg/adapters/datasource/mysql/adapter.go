package mysql

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ekaya-inc/ekaya-sqlchat/pkg/adapters/datasource"
)

// systemDatabases are hidden from ListDatabases.
var systemDatabases = map[string]bool{
	"information_schema": true,
	"mysql":              true,
	"performance_schema": true,
	"sys":                true,
}

// Adapter provides MySQL connectivity over a single connection.
type Adapter struct {
	db *sql.DB
}

// NewAdapter opens a MySQL handle limited to one connection.
// The handle is lazy; the first statement dials the server.
func NewAdapter(ctx context.Context, cfg datasource.ConnectionConfig) (*Adapter, error) {
	db, err := sql.Open("mysql", buildDSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("open mysql connection: %w", err)
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

// ListDatabases runs SHOW DATABASES and drops the system schemas.
func (a *Adapter) ListDatabases(ctx context.Context) ([]string, error) {
	rows, err := a.db.QueryContext(ctx, "SHOW DATABASES")
	if err != nil {
		return nil, fmt.Errorf("show databases: %w", err)
	}
	defer rows.Close()

	names, err := datasource.ScanStrings(rows)
	if err != nil {
		return nil, err
	}

	result := make([]string, 0, len(names))
	for _, name := range names {
		if !systemDatabases[name] {
			result = append(result, name)
		}
	}
	return result, nil
}

// ListTables runs SHOW TABLES against the connected database.
func (a *Adapter) ListTables(ctx context.Context) ([]string, error) {
	rows, err := a.db.QueryContext(ctx, "SHOW TABLES")
	if err != nil {
		return nil, fmt.Errorf("show tables: %w", err)
	}
	defer rows.Close()

	return datasource.ScanStrings(rows)
}

// ListColumns runs SHOW COLUMNS and returns the Field column in table order.
func (a *Adapter) ListColumns(ctx context.Context, table string) ([]string, error) {
	rows, err := a.db.QueryContext(ctx, "SHOW COLUMNS FROM "+quoteIdentifier(table))
	if err != nil {
		return nil, fmt.Errorf("show columns from %s: %w", table, err)
	}
	defer rows.Close()

	described, err := datasource.ScanRows(rows)
	if err != nil {
		return nil, err
	}

	columns := make([]string, 0, len(described))
	for _, row := range described {
		columns = append(columns, datasource.StringValue(row["Field"]))
	}
	return columns, nil
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

// Ensure Adapter implements Connection at compile time.
var _ datasource.Connection = (*Adapter)(nil)
