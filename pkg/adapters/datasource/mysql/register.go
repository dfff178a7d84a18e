package mysql

import (
	"context"

	"github.com/ekaya-inc/ekaya-sqlchat/pkg/adapters/datasource"
)

func init() {
	datasource.Register(datasource.DatasourceAdapterRegistration{
		Info: datasource.DatasourceAdapterInfo{
			Type:        "mysql",
			DisplayName: "MySQL",
			Description: "Connect to MySQL 5.7+, MariaDB, Aurora MySQL",
			Dialect:     "MySQL",
			DefaultPort: DefaultPort(),
		},
		Factory: func(ctx context.Context, cfg datasource.ConnectionConfig) (datasource.Connection, error) {
			return NewAdapter(ctx, cfg)
		},
	})
}
