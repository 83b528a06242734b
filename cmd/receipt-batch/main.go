package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/receipt-recognizer/internal/common"
	"github.com/joseph-ayodele/receipt-recognizer/internal/core"
)

const dayLayout = "2006-01-02"

type batchOptions struct {
	configFile string
	inmem      bool
	dir        string
	out        string
	from       string
	to         string
	skipHidden bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &batchOptions{}
	cmd := &cobra.Command{
		Use:   "receipt-batch",
		Short: "Recognize a directory of receipt photos and export them to XLSX",
		Long: `receipt-batch walks a directory of receipt images, recognizes each one
and writes every stored receipt in the date range to a single XLSX workbook.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), opts)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&opts.configFile, "config", "c", "", "YAML config file")
	f.BoolVar(&opts.inmem, "inmem", false, "use an in-memory SQLite database")
	f.StringVar(&opts.dir, "dir", "", "directory to process receipts from (required)")
	f.StringVar(&opts.out, "out", "", "output XLSX path (defaults to receipts.xlsx next to --dir)")
	f.StringVar(&opts.from, "from", "", "from date YYYY-MM-DD")
	f.StringVar(&opts.to, "to", "", "to date YYYY-MM-DD")
	f.BoolVar(&opts.skipHidden, "skip-hidden", true, "skip dot-files and dot-directories")
	_ = cmd.MarkFlagRequired("dir")
	return cmd
}

func parseDay(flag, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(dayLayout, value)
	if err != nil {
		return nil, fmt.Errorf("invalid --%s date, use YYYY-MM-DD: %w", flag, err)
	}
	return &t, nil
}

func run(ctx context.Context, opts *batchOptions) error {
	from, err := parseDay("from", opts.from)
	if err != nil {
		return err
	}
	to, err := parseDay("to", opts.to)
	if err != nil {
		return err
	}
	out := opts.out
	if out == "" {
		out = filepath.Join(filepath.Dir(opts.dir), "receipts.xlsx")
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	cfg, err := common.LoadConfigFile(opts.configFile)
	if err != nil {
		return err
	}
	if opts.inmem {
		cfg.Database.DSN = ":memory:"
	}
	if cfg.Database.DSN == "" {
		return errors.New("a database is required: set DB_URL or pass --inmem")
	}

	app, err := core.Build(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to build recognizer", "error", err)
		return err
	}
	defer app.Close()

	logger.Info("starting ingestion", "dir", opts.dir)
	results, stats, err := app.Ingestor.IngestDirectory(ctx, opts.dir, opts.skipHidden)
	if err != nil {
		logger.Error("failed to ingest directory", "error", err)
		return err
	}
	for _, r := range results {
		if r.Err != "" {
			logger.Warn("file failed", "path", r.SourcePath, "error", r.Err)
		}
	}
	logger.Info("ingestion complete",
		"scanned", stats.Scanned,
		"matched", stats.Matched,
		"succeeded", stats.Succeeded,
		"failed", stats.Failed,
		"deduplicated", stats.Deduplicated)

	logger.Info("exporting to XLSX", "output", out)
	xlsxBytes, err := app.Exporter.ExportXLSX(ctx, from, to)
	if err != nil {
		logger.Error("failed to export receipts", "error", err)
		return err
	}
	if err := os.WriteFile(out, xlsxBytes, 0o644); err != nil {
		logger.Error("failed to write output file", "error", err)
		return err
	}

	logger.Info("batch processing complete",
		"files_recognized", stats.Succeeded,
		"failures", stats.Failed,
		"output_file", out)

	fmt.Printf("Batch processing complete!\n")
	fmt.Printf("- Files recognized: %d\n", stats.Succeeded)
	fmt.Printf("- Duplicates: %d\n", stats.Deduplicated)
	fmt.Printf("- Failures: %d\n", stats.Failed)
	fmt.Printf("- Output: %s\n", out)
	return nil
}
