// Package rir downloads the NRO adoption reports and the combined delegated
// stats, and splits the latter into header, record and summary tables.
package rir

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/dustin/go-humanize"

	"peerdata/internal/connectors"
)

type URLs struct {
	RIRAdoption     string
	EconomyAdoption string
	DelegatedStats  string
}

type Collector struct {
	client *connectors.Client
	urls   URLs
	logger *slog.Logger
}

func New(client *connectors.Client, urls URLs, logger *slog.Logger) *Collector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Collector{client: client, urls: urls, logger: logger.With("collector", "RIR")}
}

func (c *Collector) Name() string { return "RIR" }

// Collect keeps the downloads byte for byte next to the parsed tables. A
// missing adoption report is logged; the delegated stats are required.
func (c *Collector) Collect(ctx context.Context) ([]connectors.Dataset, error) {
	var datasets []connectors.Dataset
	for _, dl := range []struct{ name, url string }{
		{"rir_adoption", c.urls.RIRAdoption},
		{"economy_adoption", c.urls.EconomyAdoption},
	} {
		if dl.url == "" {
			continue
		}
		body, err := c.client.Get(ctx, dl.url)
		if err != nil {
			c.logger.Warn("download skipped", "name", dl.name, "error", err)
			continue
		}
		datasets = append(datasets, connectors.Dataset{Name: dl.name, Raw: body, Ext: ".csv"})
	}

	body, err := c.client.Get(ctx, c.urls.DelegatedStats)
	if err != nil {
		return nil, fmt.Errorf("delegated stats: %w", err)
	}
	datasets = append(datasets, connectors.Dataset{Name: "nro_extended", Raw: body, Ext: ".csv"})

	stats, err := ParseDelegatedStats(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	c.logger.Info("delegated stats parsed",
		"records", humanize.Comma(int64(stats.Records.Len())),
		"summaries", stats.Summary.Len())

	return append(datasets,
		connectors.Dataset{Name: "Summary", Table: stats.Summary},
		connectors.Dataset{Name: "Records", Table: stats.Records},
		connectors.Dataset{Name: "Header", Table: stats.Header},
	), nil
}
