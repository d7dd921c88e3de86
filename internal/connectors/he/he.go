// Package he scrapes the exchange and country reports of bgp.he.net.
package he

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"peerdata/internal/connectors"
	"peerdata/internal/table"
)

type Collector struct {
	client  *connectors.Client
	baseURL string
	workers int
	logger  *slog.Logger
}

func New(client *connectors.Client, baseURL string, workers int, logger *slog.Logger) *Collector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Collector{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		workers: workers,
		logger:  logger.With("collector", "HE"),
	}
}

func (c *Collector) Name() string { return "HE" }

func (c *Collector) Collect(ctx context.Context) ([]connectors.Dataset, error) {
	countries, err := c.Countries(ctx)
	if err != nil {
		return nil, err
	}
	lines, err := c.CountryLines(ctx, countries)
	if err != nil {
		return nil, err
	}
	exchanges, err := c.Exchanges(ctx)
	if err != nil {
		return nil, err
	}
	members, err := c.Members(ctx, exchanges)
	if err != nil {
		return nil, err
	}

	datasets := []connectors.Dataset{
		{Name: "Countries", Table: countries},
		{Name: "Country_Lines", Table: lines},
		{Name: "Exchange_Data", Table: exchanges},
	}
	if members.Len() == 0 {
		c.logger.Warn("no exchange members found")
		return datasets, nil
	}
	datasets = append(datasets, connectors.Dataset{Name: "Exchange_Members", Table: members})

	consolidated, err := Consolidate(exchanges, members, lines, countries)
	if err != nil {
		c.logger.Error("consolidated data skipped", "error", err)
		return datasets, nil
	}
	return append(datasets, connectors.Dataset{Name: "Consolidated_Data", Table: consolidated}), nil
}

func (c *Collector) Countries(ctx context.Context) (*table.Table, error) {
	doc, err := c.client.GetDocument(ctx, c.baseURL+"/report/world")
	if err != nil {
		return nil, fmt.Errorf("countries: %w", err)
	}
	out := ParseCountries(doc, c.baseURL)
	c.logger.Info("countries parsed", "rows", out.Len())
	return out, nil
}

func (c *Collector) Exchanges(ctx context.Context) (*table.Table, error) {
	doc, err := c.client.GetDocument(ctx, c.baseURL+"/report/exchanges")
	if err != nil {
		return nil, fmt.Errorf("exchanges: %w", err)
	}
	out := ParseExchanges(doc, c.baseURL)
	c.logger.Info("exchanges parsed", "rows", out.Len())
	return out, nil
}

// CountryLines fetches every country report. Failed countries are logged and skipped.
func (c *Collector) CountryLines(ctx context.Context, countries *table.Table) (*table.Table, error) {
	slots := make([]*table.Table, countries.Len())
	err := connectors.ForEach(ctx, c.workers, countries.Len(), func(ctx context.Context, i int) error {
		row := countries.Rows[i]
		u := countries.Cell(row, "url")
		if u == "" {
			return nil
		}
		doc, err := c.client.GetDocument(ctx, u)
		if err != nil {
			return err
		}
		slots[i] = ParseCountryLines(doc, c.baseURL, countries.Cell(row, "cc"), countries.Cell(row, "index"))
		return nil
	}, func(i int, err error) {
		c.logger.Warn("country skipped", "cc", countries.Cell(countries.Rows[i], "cc"), "error", err)
	})
	if err != nil {
		return nil, err
	}

	out := table.New(countryLineColumns...)
	for _, t := range slots {
		if t != nil {
			out.Rows = append(out.Rows, t.Rows...)
		}
	}
	c.logger.Info("country lines parsed", "rows", out.Len())
	return out, nil
}

// Members fetches every exchange's member table on the worker pool and
// stacks them in exchange order. Failed exchanges are logged and skipped.
func (c *Collector) Members(ctx context.Context, exchanges *table.Table) (*table.Table, error) {
	slots := make([]*table.Table, exchanges.Len())
	err := connectors.ForEach(ctx, c.workers, exchanges.Len(), func(ctx context.Context, i int) error {
		row := exchanges.Rows[i]
		u := exchanges.Cell(row, "url")
		if u == "" {
			return nil
		}
		doc, err := c.client.GetDocument(ctx, u)
		if err != nil {
			return err
		}
		slots[i] = ParseMembers(doc, exchanges.Cell(row, "internetExchange"), exchanges.Cell(row, "index"))
		return nil
	}, func(i int, err error) {
		row := exchanges.Rows[i]
		c.logger.Warn("exchange skipped",
			"exchange", exchanges.Cell(row, "internetExchange"),
			"url", exchanges.Cell(row, "url"),
			"error", err)
	})
	if err != nil {
		return nil, err
	}

	out := table.Concat(slots...)
	c.logger.Info("exchange members parsed", "rows", out.Len())
	return out, nil
}

// Consolidate joins members to their exchange, to the country line of the
// same ASN, and to the country name of that line.
func Consolidate(exchanges, members, lines, countries *table.Table) (*table.Table, error) {
	out, err := table.Join(members, exchanges, "ParentIndex", "index", table.InnerJoin, [2]string{"_member", "_exchange"})
	if err != nil {
		return nil, err
	}
	out, err = table.Join(out, lines, "ASN", "asn", table.LeftJoin, [2]string{"_x", "_y"})
	if err != nil {
		return nil, err
	}
	out.Rename(map[string]string{"cc_x": "exchange_cc", "cc_y": "country_line_cc"})

	names, err := countries.Select("cc", "name")
	if err != nil {
		return nil, err
	}
	out, err = table.Join(out, names, "country_line_cc", "cc", table.InnerJoin, [2]string{"", "_country"})
	if err != nil {
		return nil, err
	}
	out.Drop("cc")
	return out, nil
}
