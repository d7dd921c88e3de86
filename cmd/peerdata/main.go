package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"peerdata/internal/config"
	"peerdata/internal/output"
	"peerdata/internal/table"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := rootCmd()
	cmd.SetContext(ctx)
	must(cmd.Execute())
}

// app is the state shared by every subcommand, built once flags are parsed.
type app struct {
	cfg    config.Config
	logger *slog.Logger
	writer *output.Writer
}

type rootFlags struct {
	logLevel string
	dataDir  string
	outDir   string
	encoding string
}

func rootCmd() *cobra.Command {
	var (
		flags rootFlags
		a     = &app{}
	)

	cmd := &cobra.Command{
		Use:           "peerdata",
		Short:         "Collect and consolidate internet peering data",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd.Context(), flags)
		},
	}

	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&flags.dataDir, "data-dir", "", "Directory holding collector output (default $DATA_DIR)")
	cmd.PersistentFlags().StringVar(&flags.outDir, "out", "", "Output directory (default $OUTPUT_DIR)")
	cmd.PersistentFlags().StringVar(&flags.encoding, "encoding", "", "Output encoding, utf-8 or latin1 (default $OUTPUT_ENCODING)")

	cmd.AddCommand(
		heExportCmd(a),
		ixpdbExportCmd(a),
		rirExportCmd(a),
		pdbExportCmd(a),
		consolidateCmd(a),
		dedupeCmd(a),
		reportCmd(a),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Printf("peerdata %s\n", version)
			},
		},
	)
	return cmd
}

func (a *app) init(ctx context.Context, flags rootFlags) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if flags.dataDir != "" {
		cfg.DataDir = flags.dataDir
	}
	if flags.outDir != "" {
		cfg.OutputDir = flags.outDir
	}
	if flags.encoding != "" {
		cfg.OutputEncoding = flags.encoding
	}
	enc, err := table.ParseEncoding(cfg.OutputEncoding)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = newLogger(flags.logLevel).With("run", uuid.NewString())
	slog.SetDefault(a.logger)

	a.writer = output.NewWriter(cfg.OutputDir, enc, time.Now(), a.logger)
	if cfg.OutputS3Bucket != "" {
		up, err := output.NewS3Uploader(ctx, cfg.OutputS3Bucket, cfg.OutputS3Prefix)
		if err != nil {
			return fmt.Errorf("s3: %w", err)
		}
		a.writer.Uploader = up
	}
	return nil
}

func newLogger(level string) *slog.Logger {
	lvl := slog.LevelInfo
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
