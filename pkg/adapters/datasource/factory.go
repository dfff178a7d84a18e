package datasource

import (
	"context"
	"fmt"
	"strings"
)

// ConnectionFactory opens connections to the configured datasource.
type ConnectionFactory interface {
	// Open connects to the server. An empty database opens a server-level session.
	Open(ctx context.Context, database string) (Connection, error)

	// Info describes the adapter behind this factory.
	Info() DatasourceAdapterInfo
}

type registryFactory struct {
	base ConnectionConfig
	info DatasourceAdapterInfo
	open func(ctx context.Context, cfg ConnectionConfig) (Connection, error)
}

// NewConnectionFactory returns a factory for base.Type backed by the global registry.
func NewConnectionFactory(base ConnectionConfig) (ConnectionFactory, error) {
	if !IsRegistered(base.Type) {
		return nil, fmt.Errorf("unsupported datasource type: %s (registered: %s)",
			base.Type, strings.Join(RegisteredTypes(), ", "))
	}
	info, _ := GetInfo(base.Type)
	return &registryFactory{base: base, info: info, open: GetFactory(base.Type)}, nil
}

// RegisteredTypes returns the type names of all registered adapters, sorted.
func RegisteredTypes() []string {
	infos := RegisteredAdapters()
	types := make([]string, len(infos))
	for i, info := range infos {
		types[i] = info.Type
	}
	return types
}

func (f *registryFactory) Open(ctx context.Context, database string) (Connection, error) {
	cfg := f.base.WithDatabase(database)
	if cfg.Port == 0 {
		cfg.Port = f.info.DefaultPort
	}
	return f.open(ctx, cfg)
}

func (f *registryFactory) Info() DatasourceAdapterInfo {
	return f.info
}

// Ensure registryFactory implements ConnectionFactory at compile time.
var _ ConnectionFactory = (*registryFactory)(nil)
