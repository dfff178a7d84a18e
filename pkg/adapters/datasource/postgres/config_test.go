package postgres

import (
	"net/url"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/ekaya-sqlchat/pkg/adapters/datasource"
)

func TestBuildConnectionString_EscapesCredentials(t *testing.T) {
	connStr := buildConnectionString(datasource.ConnectionConfig{
		Host:           "db.internal",
		Port:           6543,
		User:           "report@team",
		Password:       "p@ss/w#rd?",
		Database:       "sales",
		SSLMode:        "disable",
		ConnectTimeout: 7 * time.Second,
	})

	u, err := url.Parse(connStr)
	require.NoError(t, err)
	assert.Equal(t, "postgresql", u.Scheme)
	assert.Equal(t, "report@team", u.User.Username())
	password, _ := u.User.Password()
	assert.Equal(t, "p@ss/w#rd?", password)
	assert.Equal(t, "db.internal:6543", u.Host)
	assert.Equal(t, "/sales", u.Path)
	assert.Equal(t, "disable", u.Query().Get("sslmode"))
	assert.Equal(t, "7", u.Query().Get("connect_timeout"))
}

func TestBuildConnectionString_Defaults(t *testing.T) {
	connStr := buildConnectionString(datasource.ConnectionConfig{Host: "db.internal", User: "postgres"})

	u, err := url.Parse(connStr)
	require.NoError(t, err)
	assert.Equal(t, "db.internal:5432", u.Host)
	assert.Equal(t, "/postgres", u.Path)
	assert.Equal(t, "prefer", u.Query().Get("sslmode"))
	assert.Empty(t, u.Query().Get("connect_timeout"))
}

func TestSplitTableName(t *testing.T) {
	tests := []struct {
		in         string
		wantSchema string
		wantTable  string
	}{
		{"orders", "public", "orders"},
		{"billing.invoices", "billing", "invoices"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			schema, table := splitTableName(tt.in)
			assert.Equal(t, tt.wantSchema, schema)
			assert.Equal(t, tt.wantTable, table)
		})
	}
}

func TestNormalizeValue(t *testing.T) {
	id := uuid.MustParse("7f9c24e5-1c3e-4b8a-9a51-2b7d6a3c9e10")

	assert.Equal(t, "text", normalizeValue([]byte("text")))
	assert.Equal(t, id.String(), normalizeValue([16]byte(id)))
	assert.Equal(t, int64(5), normalizeValue(int64(5)))
	assert.Nil(t, normalizeValue(nil))

	var num pgtype.Numeric
	require.NoError(t, num.Scan("12.5"))
	assert.Equal(t, 12.5, normalizeValue(num))

	assert.Nil(t, normalizeValue(pgtype.Numeric{}))
}
