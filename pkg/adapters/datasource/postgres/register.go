package postgres

import (
	"context"

	"github.com/ekaya-inc/ekaya-sqlchat/pkg/adapters/datasource"
)

func init() {
	datasource.Register(datasource.DatasourceAdapterRegistration{
		Info: datasource.DatasourceAdapterInfo{
			Type:        "postgres",
			DisplayName: "PostgreSQL",
			Description: "Connect to PostgreSQL 12+, Aurora PostgreSQL, Supabase",
			Dialect:     "PostgreSQL",
			DefaultPort: DefaultPort(),
		},
		Factory: func(ctx context.Context, cfg datasource.ConnectionConfig) (datasource.Connection, error) {
			return NewAdapter(ctx, cfg)
		},
	})
}
