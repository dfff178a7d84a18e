package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ekaya-inc/ekaya-sqlchat/pkg/adapters/datasource"
)

// fakeDatabase is one database as seen by fakeConnection.
type fakeDatabase struct {
	tables  []string            // ListTables order
	columns map[string][]string // table -> columns
	rows    []map[string]any    // returned by any query naming a known table
}

// fakeFactory serves fakeConnections over an in-memory catalog and counts
// opens and closes so tests can check that every connection is released.
type fakeFactory struct {
	mu        sync.Mutex
	databases map[string]*fakeDatabase
	openErr   error
	queryErr  error
	block     bool // block every call until the context ends
	opens     int
	closes    int
	queries   []string
}

func newFakeFactory() *fakeFactory {
	return &fakeFactory{databases: map[string]*fakeDatabase{
		"shop": {
			tables: []string{"users", "orders"},
			columns: map[string][]string{
				"users":  {"id", "name", "email"},
				"orders": {"id", "user_id", "total"},
			},
			rows: []map[string]any{
				{"id": int64(1), "name": "Ada", "email": "ada@example.com"},
				{"id": int64(2), "name": "Linus", "email": "linus@example.com"},
			},
		},
	}}
}

func (f *fakeFactory) Open(ctx context.Context, database string) (datasource.Connection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.openErr != nil {
		return nil, f.openErr
	}
	if database != "" {
		if _, ok := f.databases[database]; !ok {
			return nil, fmt.Errorf("Error 1049 (42000): Unknown database '%s'", database)
		}
	}
	f.opens++
	return &fakeConnection{factory: f, database: database}, nil
}

func (f *fakeFactory) Info() datasource.DatasourceAdapterInfo {
	return datasource.DatasourceAdapterInfo{Type: "fake", Dialect: "MySQL"}
}

func (f *fakeFactory) counts() (opens, closes int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.opens, f.closes
}

type fakeConnection struct {
	factory  *fakeFactory
	database string
}

func (c *fakeConnection) wait(ctx context.Context) error {
	if c.factory.block {
		<-ctx.Done()
		return ctx.Err()
	}
	return nil
}

func (c *fakeConnection) Ping(ctx context.Context) error { return c.wait(ctx) }

func (c *fakeConnection) ListDatabases(ctx context.Context) ([]string, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	var names []string
	for name := range c.factory.databases {
		names = append(names, name)
	}
	return names, nil
}

func (c *fakeConnection) ListTables(ctx context.Context) ([]string, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	return c.factory.databases[c.database].tables, nil
}

func (c *fakeConnection) ListColumns(ctx context.Context, table string) ([]string, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	return c.factory.databases[c.database].columns[table], nil
}

func (c *fakeConnection) Query(ctx context.Context, statement string) ([]map[string]any, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	c.factory.mu.Lock()
	c.factory.queries = append(c.factory.queries, statement)
	c.factory.mu.Unlock()

	if c.factory.queryErr != nil {
		return nil, c.factory.queryErr
	}
	db := c.factory.databases[c.database]
	for _, table := range db.tables {
		if containsWord(statement, table) {
			return db.rows, nil
		}
	}
	return nil, fmt.Errorf("Error 1146 (42S02): Table '%s.missing' doesn't exist", c.database)
}

func (c *fakeConnection) Close() error {
	c.factory.mu.Lock()
	defer c.factory.mu.Unlock()
	c.factory.closes++
	return nil
}

func containsWord(s, word string) bool {
	for i := 0; i+len(word) <= len(s); i++ {
		if s[i:i+len(word)] != word {
			continue
		}
		before := i == 0 || s[i-1] == ' '
		after := i+len(word) == len(s) || s[i+len(word)] == ' '
		if before && after {
			return true
		}
	}
	return false
}

var errBoom = errors.New("boom")
