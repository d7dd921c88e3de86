// Package connectors holds the collector contract, the shared HTTP client and
// the service that writes collector output to disk.
package connectors

import (
	"context"

	"peerdata/internal/table"
)

// Dataset is one named output of a collector: a table, or a raw download
// kept byte for byte.
type Dataset struct {
	Name  string
	Table *table.Table
	Raw   []byte
	Ext   string
}

type Collector interface {
	// Name is the output subdirectory, e.g. "HE".
	Name() string
	Collect(ctx context.Context) ([]Dataset, error)
}
