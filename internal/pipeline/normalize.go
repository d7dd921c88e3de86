package pipeline

import (
	"fmt"
	"log/slog"

	"github.com/zeebo/xxh3"

	"peerdata/internal"
	"peerdata/internal/config"
	"peerdata/internal/table"
	"peerdata/internal/util"
)

// Normalizer maps the raw rows of one source onto the canonical schema.
type Normalizer struct {
	source  internal.Source
	mapping map[string][]internal.Column
	filter  *RowFilter
	logger  *slog.Logger
}

type NormalizeStats struct {
	Input      int
	Filtered   int
	Duplicates int
	Output     int
	Renamed    []string
	Conflicts  []string
}

func NewNormalizer(src config.SourceConfig, logger *slog.Logger) (*Normalizer, error) {
	filter, err := CompileRowFilter(src.Filter)
	if err != nil {
		return nil, fmt.Errorf("source %s: %w", src.Name, err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{
		source:  src.Name,
		mapping: src.Mapping(),
		filter:  filter,
		logger:  logger.With("source", string(src.Name)),
	}, nil
}

type assignment struct {
	field int
	col   internal.Column
}

// Normalize converts raw into canonical records. raw is not modified.
func (n *Normalizer) Normalize(raw *table.Table) ([]internal.Record, NormalizeStats) {
	stats := NormalizeStats{Input: raw.Len()}

	t := table.New(raw.Columns...)
	t.Rows = raw.Rows
	if renamed := t.UniqueColumns(); len(renamed) > 0 {
		stats.Renamed = renamed
		n.logger.Warn("duplicate columns renamed", "columns", renamed)
	}

	plan, conflicts := n.plan(t.Columns)
	if len(conflicts) > 0 {
		stats.Conflicts = conflicts
		n.logger.Warn("columns mapped more than once, keeping first", "fields", conflicts)
	}

	out := make([]internal.Record, 0, t.Len())
	seen := make(map[xxh3.Uint128]struct{}, t.Len())
	var buf []byte
	for i, row := range t.Rows {
		if n.filter != nil {
			ok, err := n.filter.Match(t.RowMap(row))
			if err != nil {
				n.logger.Debug("filter evaluation failed", "row", i+2, "error", err)
			}
			if !ok {
				stats.Filtered++
				continue
			}
		}

		rec := internal.Record{Source: n.source}
		for _, a := range plan {
			rec.Set(a.col, cellValue(a.col, row[a.field]))
		}

		buf = fingerprint(buf[:0], &rec)
		h := xxh3.Hash128(buf)
		if _, dup := seen[h]; dup {
			stats.Duplicates++
			continue
		}
		seen[h] = struct{}{}
		out = append(out, rec)
	}
	stats.Output = len(out)
	return out, stats
}

func (n *Normalizer) plan(columns []string) ([]assignment, []string) {
	var (
		plan      []assignment
		conflicts []string
		taken     [internal.NumColumns]bool
	)
	for i, name := range columns {
		for _, col := range n.mapping[name] {
			if taken[col] {
				conflicts = append(conflicts, name+"->"+col.String())
				continue
			}
			taken[col] = true
			plan = append(plan, assignment{field: i, col: col})
		}
	}
	return plan, conflicts
}

// fingerprint encodes the mapped values with a presence byte per column.
func fingerprint(buf []byte, rec *internal.Record) []byte {
	for _, v := range rec.Values {
		if v == nil {
			buf = append(buf, 0x00)
			continue
		}
		buf = append(buf, 0x01)
		buf = append(buf, *v...)
		buf = append(buf, 0x1f)
	}
	return buf
}

// cellValue converts a raw cell of column c into its nullable form. The ASN
// column also treats None/NULL/N/A as missing.
func cellValue(c internal.Column, v string) *string {
	if c == internal.ColASN {
		return util.NullIfMissing(v)
	}
	return util.NullIfBlank(v)
}
