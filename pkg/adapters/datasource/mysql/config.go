package mysql

import (
	"net"
	"strconv"
	"strings"

	mysqldriver "github.com/go-sql-driver/mysql"

	"github.com/ekaya-inc/ekaya-sqlchat/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-sqlchat/pkg/config"
)

// DefaultPort returns the default MySQL port.
func DefaultPort() int {
	return 3306
}

// buildDSN builds a go-sql-driver DSN. The driver formats credentials itself, so
// passwords containing @, / or : need no escaping.
// When running in Docker, localhost is resolved to host.docker.internal.
func buildDSN(cfg datasource.ConnectionConfig) string {
	port := cfg.Port
	if port <= 0 {
		port = DefaultPort()
	}

	dsn := mysqldriver.NewConfig()
	dsn.User = cfg.User
	dsn.Passwd = cfg.Password
	dsn.Net = "tcp"
	dsn.Addr = net.JoinHostPort(config.ResolveHostForDocker(cfg.Host), strconv.Itoa(port))
	dsn.DBName = cfg.Database
	dsn.AllowNativePasswords = true

	if cfg.ConnectTimeout > 0 {
		dsn.Timeout = cfg.ConnectTimeout
	}

	switch strings.ToLower(cfg.SSLMode) {
	case "true", "required", "require":
		dsn.TLSConfig = "true"
	case "skip-verify", "preferred":
		dsn.TLSConfig = "skip-verify"
	case "false", "disable", "":
		dsn.TLSConfig = "false"
	default:
		dsn.TLSConfig = cfg.SSLMode
	}

	return dsn.FormatDSN()
}

// quoteIdentifier quotes a table name with backticks, doubling embedded backticks.
func quoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}
