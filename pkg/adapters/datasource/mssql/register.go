package mssql

import (
	"context"

	"github.com/ekaya-inc/ekaya-sqlchat/pkg/adapters/datasource"
)

func init() {
	datasource.Register(datasource.DatasourceAdapterRegistration{
		Info: datasource.DatasourceAdapterInfo{
			Type:        "mssql",
			DisplayName: "Microsoft SQL Server",
			Description: "Connect to SQL Server 2019+, Azure SQL Database",
			Dialect:     "T-SQL",
			DefaultPort: DefaultPort(),
		},
		Factory: func(ctx context.Context, cfg datasource.ConnectionConfig) (datasource.Connection, error) {
			return NewAdapter(ctx, cfg)
		},
	})
}
