// Package testhelpers starts disposable database servers for integration tests.
package testhelpers

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"sync"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql" // MySQL driver for seeding
	"github.com/jackc/pgx/v5"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/ekaya-inc/ekaya-sqlchat/pkg/adapters/datasource"
)

// Images used for the test servers.
const (
	MySQLImage    = "mysql:8.0"
	PostgresImage = "postgres:16-alpine"
)

// TestDatabase is the database created and seeded on every test server.
const TestDatabase = "shop"

const testPassword = "test_password"

// TestServer is a running database container with the shop database seeded.
type TestServer struct {
	Container testcontainers.Container
	Config    datasource.ConnectionConfig
}

// shopSchema is seeded into both engines. Statements are portable between
// MySQL and PostgreSQL.
var shopSchema = []string{
	`CREATE TABLE users (id INT PRIMARY KEY, name VARCHAR(100) NOT NULL, email VARCHAR(200))`,
	`CREATE TABLE orders (id INT PRIMARY KEY, user_id INT NOT NULL, total DECIMAL(10,2) NOT NULL)`,
	`INSERT INTO users (id, name, email) VALUES (1, 'Ada', 'ada@example.com'), (2, 'Grace', 'grace@example.com'), (3, 'Linus', NULL)`,
	`INSERT INTO orders (id, user_id, total) VALUES (1, 1, 19.99), (2, 1, 5.00), (3, 2, 42.50)`,
}

var (
	sharedMySQL     *TestServer
	sharedMySQLOnce sync.Once
	sharedMySQLErr  error

	sharedPostgres     *TestServer
	sharedPostgresOnce sync.Once
	sharedPostgresErr  error
)

// GetMySQL returns a shared MySQL container for integration tests.
// The container is created once and reused across all tests in the run.
func GetMySQL(t *testing.T) *TestServer {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode (requires Docker)")
	}

	sharedMySQLOnce.Do(func() {
		sharedMySQL, sharedMySQLErr = setupMySQL()
	})
	if sharedMySQLErr != nil {
		t.Fatalf("Failed to setup MySQL: %v", sharedMySQLErr)
	}
	return sharedMySQL
}

// GetPostgres returns a shared PostgreSQL container for integration tests.
func GetPostgres(t *testing.T) *TestServer {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode (requires Docker)")
	}

	sharedPostgresOnce.Do(func() {
		sharedPostgres, sharedPostgresErr = setupPostgres()
	})
	if sharedPostgresErr != nil {
		t.Fatalf("Failed to setup PostgreSQL: %v", sharedPostgresErr)
	}
	return sharedPostgres
}

func setupMySQL() (*TestServer, error) {
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        MySQLImage,
			ExposedPorts: []string{"3306/tcp"},
			Env: map[string]string{
				"MYSQL_ROOT_PASSWORD": testPassword,
				"MYSQL_DATABASE":      TestDatabase,
			},
			WaitingFor: wait.ForLog("port: 3306  MySQL Community Server").
				WithStartupTimeout(120 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start mysql container: %w", err)
	}

	cfg, err := containerConfig(ctx, container, "mysql", "3306", "root")
	if err != nil {
		return nil, err
	}

	dsn := fmt.Sprintf("root:%s@tcp(%s:%d)/%s", testPassword, cfg.Host, cfg.Port, TestDatabase)
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open mysql: %w", err)
	}
	defer db.Close()

	if err := waitForPing(ctx, db.PingContext); err != nil {
		return nil, fmt.Errorf("mysql never became reachable: %w", err)
	}
	for _, stmt := range shopSchema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("failed to seed mysql: %w", err)
		}
	}

	return &TestServer{Container: container, Config: cfg}, nil
}

func setupPostgres() (*TestServer, error) {
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        PostgresImage,
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_DB":       TestDatabase,
				"POSTGRES_USER":     "ekaya",
				"POSTGRES_PASSWORD": testPassword,
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	cfg, err := containerConfig(ctx, container, "postgres", "5432", "ekaya")
	if err != nil {
		return nil, err
	}
	cfg.SSLMode = "disable"

	connStr := fmt.Sprintf("postgres://ekaya:%s@%s:%d/%s?sslmode=disable", testPassword, cfg.Host, cfg.Port, TestDatabase)

	var conn *pgx.Conn
	err = waitForPing(ctx, func(ctx context.Context) error {
		c, err := pgx.Connect(ctx, connStr)
		if err != nil {
			return err
		}
		conn = c
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("postgres never became reachable: %w", err)
	}
	defer conn.Close(ctx)

	for _, stmt := range shopSchema {
		if _, err := conn.Exec(ctx, stmt); err != nil {
			return nil, fmt.Errorf("failed to seed postgres: %w", err)
		}
	}

	return &TestServer{Container: container, Config: cfg}, nil
}

func containerConfig(ctx context.Context, container testcontainers.Container, dsType, port, user string) (datasource.ConnectionConfig, error) {
	host, err := container.Host(ctx)
	if err != nil {
		return datasource.ConnectionConfig{}, fmt.Errorf("failed to get container host: %w", err)
	}

	mapped, err := container.MappedPort(ctx, port)
	if err != nil {
		return datasource.ConnectionConfig{}, fmt.Errorf("failed to get container port: %w", err)
	}
	portNum, err := strconv.Atoi(mapped.Port())
	if err != nil {
		return datasource.ConnectionConfig{}, fmt.Errorf("invalid mapped port %q: %w", mapped.Port(), err)
	}

	return datasource.ConnectionConfig{
		Type:           dsType,
		Host:           host,
		Port:           portNum,
		User:           user,
		Password:       testPassword,
		ConnectTimeout: 10 * time.Second,
	}, nil
}

// waitForPing retries ping for up to ten seconds.
func waitForPing(ctx context.Context, ping func(context.Context) error) error {
	var err error
	for i := 0; i < 20; i++ {
		if err = ping(ctx); err == nil {
			return nil
		}
		time.Sleep(500 * time.Millisecond)
	}
	return err
}
