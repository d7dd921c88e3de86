package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"peerdata/internal"
	"peerdata/internal/config"
	"peerdata/internal/connectors"
	"peerdata/internal/connectors/he"
	"peerdata/internal/connectors/ixpdb"
	"peerdata/internal/connectors/peeringdb"
	"peerdata/internal/connectors/rir"
	"peerdata/internal/pipeline"
	"peerdata/internal/storage"
	"peerdata/internal/table"
	"peerdata/internal/util"
)

func (a *app) export(ctx context.Context, c connectors.Collector) error {
	res, err := connectors.NewExportService(c, a.writer, a.logger).CollectAndWrite(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("%s export done datasets=%d rows=%s\n", c.Name(), res.Datasets, humanize.Comma(int64(res.Rows)))
	return nil
}

func heExportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "he:export",
		Short: "Scrape bgp.he.net exchanges, members and country reports",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := he.New(connectors.NewClientFromConfig(a.cfg), a.cfg.HEBaseURL, a.cfg.Workers, a.logger)
			return a.export(cmd.Context(), c)
		},
	}
}

func ixpdbExportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ixpdb:export",
		Short: "Export providers, organizations and participants from the IXPDB API",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := ixpdb.New(connectors.NewClientFromConfig(a.cfg), a.cfg.IXPDBBaseURL, a.cfg.Workers, a.logger)
			return a.export(cmd.Context(), c)
		},
	}
}

func rirExportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rir:export",
		Short: "Download NRO adoption reports and split the delegated stats",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := rir.New(connectors.NewClientFromConfig(a.cfg), rir.URLs{
				RIRAdoption:     a.cfg.RIRAdoptionURL,
				EconomyAdoption: a.cfg.EconomyAdoptionURL,
				DelegatedStats:  a.cfg.NROStatsURL,
			}, a.logger)
			return a.export(cmd.Context(), c)
		},
	}
}

func pdbExportCmd(a *app) *cobra.Command {
	var driver, dsn string
	cmd := &cobra.Command{
		Use:   "pdb:export",
		Short: "Dump every table of a PeeringDB database to CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			name := util.FirstNonEmpty(driver, a.cfg.PDBDriver)
			source := util.FirstNonEmpty(dsn, a.cfg.PDBDSN)
			if err := a.cfg.Require("PDB_DSN", source); err != nil {
				return err
			}
			db, err := storage.Open(cmd.Context(), name, source)
			if err != nil {
				return err
			}
			defer db.Close()
			return a.export(cmd.Context(), peeringdb.New(db, a.logger))
		},
	}
	cmd.Flags().StringVar(&driver, "driver", "", "Database driver, mysql or sqlite (default $PDB_DRIVER)")
	cmd.Flags().StringVar(&dsn, "dsn", "", "Data source name (default $PDB_DSN)")
	return cmd
}

type consolidateFlags struct {
	key            string
	xlsx           bool
	keepDuplicates bool
	allowList      string
	countries      string
	sources        string
}

func consolidateCmd(a *app) *cobra.Command {
	var f consolidateFlags
	cmd := &cobra.Command{
		Use:   "consolidate",
		Short: "Merge every source into one deduplicated CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.consolidate(cmd.Context(), f)
		},
	}
	cmd.Flags().StringVar(&f.key, "key", string(pipeline.KeyASN), "Dedupe key: asn or composite (Organization_Id, ASN, IX_ID)")
	cmd.Flags().BoolVar(&f.xlsx, "xlsx", false, "Also write an XLSX copy")
	cmd.Flags().BoolVar(&f.keepDuplicates, "keep-duplicates", false, "Skip deduplication, only drop rows without an ASN")
	cmd.Flags().StringVar(&f.allowList, "allow-list", "", "Peering allow list, CSV or XLSX with an ASN column")
	cmd.Flags().StringVar(&f.countries, "countries", "", "Country lookup CSV with cc and name columns")
	cmd.Flags().StringVar(&f.sources, "sources", "", "Source mapping YAML (default $SOURCES_CONFIG or built in)")
	return cmd
}

func (a *app) consolidate(ctx context.Context, f consolidateFlags) error {
	mode, err := pipeline.ParseKeyMode(f.key)
	if err != nil {
		return err
	}
	sources, err := config.LoadSources(util.FirstNonEmpty(f.sources, a.cfg.SourcesConfig))
	if err != nil {
		return err
	}

	res, err := pipeline.NewConsolidator(sources, pipeline.ConsolidateOptions{
		DataDir:        a.cfg.DataDir,
		Mode:           mode,
		KeepDuplicates: f.keepDuplicates,
		AllowListPath:  f.allowList,
		CountriesPath:  f.countries,
	}, a.logger).Run(ctx)
	if err != nil {
		return err
	}

	t := pipeline.RecordsToTable(res.Records)
	out, err := a.writer.WriteTable(ctx, "Consolidated", "Consolidated_Data_All_Source", t)
	if err != nil {
		return err
	}
	if f.xlsx {
		xp := a.writer.Path("Consolidated", "Consolidated_Data_All_Source", ".xlsx")
		if err := pipeline.ExportTableToXLSX(t, "Consolidated", xp); err != nil {
			return err
		}
		if err := a.writer.Publish(ctx, xp); err != nil {
			return err
		}
	}

	loaded := 0
	for _, s := range res.Sources {
		if s.Skipped == nil {
			loaded++
		}
	}
	fmt.Printf("consolidate done sources=%d/%d rows=%s output=%s\n",
		loaded, len(res.Sources), humanize.Comma(int64(len(res.Records))), out)
	return nil
}

func dedupeCmd(a *app) *cobra.Command {
	var (
		input    string
		key      string
		priority []string
	)
	cmd := &cobra.Command{
		Use:   "dedupe",
		Short: "Deduplicate an existing consolidated CSV by ASN and source priority",
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := pipeline.ParseKeyMode(key)
			if err != nil {
				return err
			}
			sources, err := config.LoadSources(a.cfg.SourcesConfig)
			if err != nil {
				return err
			}
			order := sources.Priority
			if len(priority) > 0 {
				order = make([]internal.Source, 0, len(priority))
				for _, p := range priority {
					order = append(order, internal.Source(strings.ToUpper(strings.TrimSpace(p))))
				}
			}
			enc, err := table.ParseEncoding(a.cfg.OutputEncoding)
			if err != nil {
				return err
			}
			raw, err := table.ReadFile(input, enc)
			if err != nil {
				return err
			}

			records, stats := pipeline.NewDeduper(order, mode).Dedupe(pipeline.RecordsFromTable(raw))
			out, err := a.writer.WriteTable(cmd.Context(), "Consolidated", "Filtered_ASN_Data", pipeline.RecordsToTable(records))
			if err != nil {
				return err
			}
			fmt.Printf("dedupe done input=%s output=%s null_asn=%d file=%s\n",
				humanize.Comma(int64(stats.Input)), humanize.Comma(int64(stats.Output)), stats.NullIdentity, out)
			return nil
		},
	}
	cmd.Flags().StringVar(&input, "input", "", "Consolidated CSV to deduplicate")
	cmd.Flags().StringVar(&key, "key", string(pipeline.KeyASN), "Dedupe key: asn or composite")
	cmd.Flags().StringSliceVar(&priority, "priority", nil, "Source priority, highest first (default from the sources config)")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func reportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "report",
		Short: "Build the Country/ASN report from RIR, IXPDB and HE output",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			enc, err := table.ParseEncoding(a.cfg.OutputEncoding)
			if err != nil {
				return err
			}
			report, err := pipeline.BuildReport(pipeline.LoadReportInputs(a.cfg.DataDir, enc, a.logger))
			if err != nil {
				return err
			}
			if _, err := a.writer.WriteTable(ctx, "Report", "Consolidated_Report", report); err != nil {
				return err
			}
			cleaned, err := pipeline.CleanReport(report)
			if err != nil {
				return err
			}
			out, err := a.writer.WriteTable(ctx, "Report", "Cleaned_Consolidated_Report", cleaned)
			if err != nil {
				return err
			}
			fmt.Printf("report done rows=%s cleaned=%s output=%s\n",
				humanize.Comma(int64(report.Len())), humanize.Comma(int64(cleaned.Len())), filepath.Base(out))
			return nil
		},
	}
}
