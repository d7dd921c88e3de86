package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/dustin/go-humanize"

	"peerdata/internal"
	"peerdata/internal/config"
	"peerdata/internal/table"
)

var ErrNoMatch = errors.New("no file matches pattern")

// NewestMatch expands pattern (relative to root unless absolute) and returns
// the most recently modified regular file.
func NewestMatch(root, pattern string) (string, error) {
	if !filepath.IsAbs(pattern) {
		pattern = filepath.Join(root, pattern)
	}
	matches, err := doublestar.FilepathGlob(pattern)
	if err != nil {
		return "", fmt.Errorf("glob error: %w", err)
	}

	var (
		best     string
		bestInfo os.FileInfo
	)
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		if bestInfo == nil || info.ModTime().After(bestInfo.ModTime()) ||
			(info.ModTime().Equal(bestInfo.ModTime()) && m > best) {
			best, bestInfo = m, info
		}
	}
	if best == "" {
		return "", fmt.Errorf("%w: %s", ErrNoMatch, pattern)
	}
	return best, nil
}

type ConsolidateOptions struct {
	DataDir string
	Mode    KeyMode
	// KeepDuplicates skips the dedupe step; null ASNs are still dropped.
	KeepDuplicates bool
	// Explicit overrides of the derive globs. Unlike globs, these must be readable.
	AllowListPath string
	CountriesPath string
}

type SourceReport struct {
	Source  internal.Source
	Path    string
	Stats   NormalizeStats
	Skipped error
}

type ConsolidateResult struct {
	Records []internal.Record
	Sources []SourceReport
	Dedupe  DedupeStats
}

type Consolidator struct {
	sources *config.Sources
	opts    ConsolidateOptions
	logger  *slog.Logger
}

func NewConsolidator(sources *config.Sources, opts ConsolidateOptions, logger *slog.Logger) *Consolidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Consolidator{sources: sources, opts: opts, logger: logger}
}

// Run loads every configured source, normalizes, merges and derives. A source
// that is missing or unreadable is logged and skipped.
func (c *Consolidator) Run(ctx context.Context) (ConsolidateResult, error) {
	var (
		res    ConsolidateResult
		merged []internal.Record
	)
	for _, src := range c.sources.Sources {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		report := c.loadSource(src, &merged)
		res.Sources = append(res.Sources, report)
	}

	if c.opts.KeepDuplicates {
		res.Records, res.Dedupe = dropNullIdentity(merged)
	} else {
		d := NewDeduper(c.sources.Priority, c.opts.Mode)
		res.Records, res.Dedupe = d.Dedupe(merged)
	}
	c.logger.Info("merged sources",
		"input", humanize.Comma(int64(res.Dedupe.Input)),
		"output", humanize.Comma(int64(res.Dedupe.Output)),
		"null_asn", res.Dedupe.NullIdentity,
		"mode", string(c.opts.Mode))

	deriver, err := c.deriver()
	if err != nil {
		return res, err
	}
	deriver.Apply(res.Records)
	return res, nil
}

func (c *Consolidator) loadSource(src config.SourceConfig, merged *[]internal.Record) SourceReport {
	report := SourceReport{Source: src.Name}
	log := c.logger.With("source", string(src.Name))

	p, err := NewestMatch(c.opts.DataDir, src.Path)
	if err != nil {
		log.Warn("source skipped", "error", err)
		report.Skipped = err
		return report
	}
	report.Path = p

	raw, err := table.ReadFile(p, src.InputEncoding())
	if err != nil {
		log.Warn("source skipped", "path", p, "error", err)
		report.Skipped = err
		return report
	}

	n, err := NewNormalizer(src, c.logger)
	if err != nil {
		log.Warn("source skipped", "error", err)
		report.Skipped = err
		return report
	}
	records, stats := n.Normalize(raw)
	report.Stats = stats
	*merged = append(*merged, records...)

	log.Info("source loaded",
		"path", p,
		"rows", humanize.Comma(int64(stats.Input)),
		"kept", humanize.Comma(int64(stats.Output)),
		"filtered", stats.Filtered,
		"duplicates", stats.Duplicates)
	return report
}

func (c *Consolidator) deriver() (*Deriver, error) {
	d := c.sources.Derive

	allow := AllowList{}
	switch {
	case c.opts.AllowListPath != "":
		enc, err := table.ParseEncoding(d.AllowListEncoding)
		if err != nil {
			return nil, err
		}
		allow, err = LoadAllowList(c.opts.AllowListPath, d.AllowListColumn, enc)
		if err != nil {
			return nil, err
		}
	case d.AllowList != "":
		if p, err := NewestMatch(c.opts.DataDir, d.AllowList); err != nil {
			c.logger.Warn("allow list not found, IsPeering will be false", "error", err)
		} else if enc, err := table.ParseEncoding(d.AllowListEncoding); err != nil {
			return nil, err
		} else if loaded, err := LoadAllowList(p, d.AllowListColumn, enc); err != nil {
			c.logger.Warn("allow list unreadable, IsPeering will be false", "path", p, "error", err)
		} else {
			allow = loaded
		}
	}

	var countries map[string]string
	enc, err := table.ParseEncoding(d.CountriesEncoding)
	if err != nil {
		return nil, err
	}
	switch {
	case c.opts.CountriesPath != "":
		countries, err = LoadCountries(c.opts.CountriesPath, enc)
		if err != nil {
			return nil, err
		}
	case d.Countries != "":
		if p, err := NewestMatch(c.opts.DataDir, d.Countries); err != nil {
			c.logger.Warn("countries not found, Country stays empty", "error", err)
		} else if loaded, err := LoadCountries(p, enc); err != nil {
			c.logger.Warn("countries unreadable, Country stays empty", "path", p, "error", err)
		} else {
			countries = loaded
		}
	}

	c.logger.Debug("derive inputs", "allow_list", len(allow), "countries", len(countries))
	return NewDeriver(d, allow, countries), nil
}

func dropNullIdentity(records []internal.Record) ([]internal.Record, DedupeStats) {
	stats := DedupeStats{Input: len(records)}
	out := make([]internal.Record, 0, len(records))
	for _, rec := range records {
		id, ok := recordIdentity(&rec)
		if !ok {
			stats.NullIdentity++
			continue
		}
		if id.Numeric {
			stats.Numeric++
		} else {
			stats.Opaque++
		}
		out = append(out, rec)
	}
	stats.Output = len(out)
	return out, stats
}
