// Package warehouse provisions the traffic table and appends rows to it.
// BigQuery is the default backend; Snowflake and PostgreSQL share a
// database/sql implementation.
package warehouse

import (
	"context"
	"fmt"

	"github.com/ignite/similarweb-ingest/internal/config"
	"github.com/ignite/similarweb-ingest/internal/domain"
)

// Warehouse is a destination for traffic rows.
type Warehouse interface {
	// TableID returns the fully qualified destination identifier.
	TableID() string
	// EnsureTable creates the namespace and table when absent. It never
	// alters an existing table.
	EnsureTable(ctx context.Context) error
	// InsertRows appends rows in one bulk operation. Empty input is a no-op.
	InsertRows(ctx context.Context, rows []domain.TrafficRow) error
	Ping(ctx context.Context) error
	Close() error
}

// New opens the backend selected by cfg.Backend.
func New(ctx context.Context, cfg config.WarehouseConfig) (Warehouse, error) {
	switch cfg.Backend {
	case config.BackendBigQuery, "":
		return NewBigQuery(ctx, cfg)
	case config.BackendSnowflake:
		return NewSnowflake(cfg)
	case config.BackendPostgres:
		return NewPostgres(cfg)
	default:
		return nil, fmt.Errorf("unknown warehouse backend %q", cfg.Backend)
	}
}

// QualifiedName returns the identifier the configured backend reports from
// TableID. PostgreSQL tables live in the connection's database, so the
// project part is dropped there.
func QualifiedName(cfg config.WarehouseConfig) string {
	if cfg.Backend == config.BackendPostgres {
		return fmt.Sprintf("%s.%s", cfg.Dataset, cfg.Table)
	}
	return cfg.TableID()
}
