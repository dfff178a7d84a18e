package datasource

import (
	"context"
	"time"
)

// ConnectionConfig describes how to reach one database server.
// Database is empty for server-level operations such as listing databases.
type ConnectionConfig struct {
	Type           string
	Host           string
	Port           int // 0 = adapter default
	User           string
	Password       string
	Database       string
	SSLMode        string
	ConnectTimeout time.Duration
}

// WithDatabase returns a copy of the config scoped to the named database.
func (c ConnectionConfig) WithDatabase(name string) ConnectionConfig {
	c.Database = name
	return c
}

// Connection is one open session against a datasource.
// Each implementation owns its connection and must be closed when done.
type Connection interface {
	// Ping verifies the server is reachable with valid credentials.
	Ping(ctx context.Context) error

	// ListDatabases returns user databases on the server, excluding system schemas.
	ListDatabases(ctx context.Context) ([]string, error)

	// ListTables returns the base tables of the connected database.
	ListTables(ctx context.Context) ([]string, error)

	// ListColumns returns the column names of a table in ordinal order.
	ListColumns(ctx context.Context, table string) ([]string, error)

	// Query runs a statement once and returns every row as a column->value map.
	// Text values arrive as string, never []byte.
	Query(ctx context.Context, statement string) ([]map[string]any, error)

	// Close releases the connection.
	Close() error
}
