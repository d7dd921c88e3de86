// Package peeringdb dumps every table of a PeeringDB database mirror.
package peeringdb

import (
	"context"
	"fmt"
	"log/slog"

	"peerdata/internal/connectors"
	"peerdata/internal/storage"
	"peerdata/internal/table"
)

// Store is the part of storage.DB the collector reads.
type Store interface {
	ListTables(ctx context.Context) ([]string, error)
	DumpTable(ctx context.Context, name string) (*table.Table, error)
}

var _ Store = (*storage.DB)(nil)

type Collector struct {
	store  Store
	logger *slog.Logger
}

func New(store Store, logger *slog.Logger) *Collector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Collector{store: store, logger: logger.With("collector", "PDB")}
}

func (c *Collector) Name() string { return "PDB" }

// Collect returns one dataset per table, named after the table.
func (c *Collector) Collect(ctx context.Context) ([]connectors.Dataset, error) {
	names, err := c.store.ListTables(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	c.logger.Info("tables listed", "count", len(names))

	out := make([]connectors.Dataset, 0, len(names))
	for _, name := range names {
		t, err := c.store.DumpTable(ctx, name)
		if err != nil {
			return nil, err
		}
		c.logger.Info("table exported", "table", name, "rows", t.Len())
		out = append(out, connectors.Dataset{Name: name, Table: t})
	}
	return out, nil
}
