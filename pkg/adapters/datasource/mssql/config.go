package mssql

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/ekaya-inc/ekaya-sqlchat/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-sqlchat/pkg/config"
)

// DefaultPort returns the default SQL Server port.
func DefaultPort() int {
	return 1433
}

// buildConnectionString builds a sqlserver:// URL for SQL Server authentication.
// An empty database connects to the login's default database.
func buildConnectionString(cfg datasource.ConnectionConfig) string {
	port := cfg.Port
	if port <= 0 {
		port = DefaultPort()
	}

	query := url.Values{}
	if cfg.Database != "" {
		query.Add("database", cfg.Database)
	}

	switch strings.ToLower(cfg.SSLMode) {
	case "disable", "false":
		query.Add("encrypt", "false")
	case "require", "required", "true":
		query.Add("encrypt", "true")
	case "skip-verify":
		query.Add("encrypt", "true")
		query.Add("TrustServerCertificate", "true")
	}

	if secs := int(cfg.ConnectTimeout.Seconds()); secs > 0 {
		query.Add("connection timeout", fmt.Sprintf("%d", secs))
	}

	return fmt.Sprintf("sqlserver://%s:%s@%s:%d?%s",
		url.QueryEscape(cfg.User),
		url.QueryEscape(cfg.Password),
		config.ResolveHostForDocker(cfg.Host),
		port,
		query.Encode(),
	)
}
