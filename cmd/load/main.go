// Command load ingests one spreadsheet into the sales table and exits.
// It runs the same pipeline the API's upload endpoint uses, so a file
// loaded from the shell lands identically to one loaded over HTTP.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/trpdata/salesloader/internal/config"
	"github.com/trpdata/salesloader/internal/ingest"
	"github.com/trpdata/salesloader/internal/logging"
	"github.com/trpdata/salesloader/internal/source"
	"github.com/trpdata/salesloader/internal/store"
)

func main() {
	var (
		file  = flag.String("file", "", "path to the spreadsheet to load (.xlsx, .xlsm, or .csv)")
		sheet = flag.String("sheet", "", "worksheet name for Excel files (default: first sheet)")
		table = flag.String("table", "", "override the target table name")
	)
	flag.Parse()

	if *file == "" {
		flag.Usage()
		os.Exit(2)
	}

	if err := godotenv.Overload(); err == nil {
		slog.Info("loaded .env file")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	if *table != "" {
		cfg.Ingest.Table = *table
	}
	if *sheet == "" {
		*sheet = cfg.Ingest.Sheet
	}

	tab, err := source.Open(*file, *sheet)
	if err != nil {
		slog.Error("failed to read input", "file", *file, "error", err)
		os.Exit(1)
	}
	slog.Info("input parsed", "file", *file, "columns", len(tab.Headers), "rows", len(tab.Rows))

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Ingest.Timeout)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	client := store.New(pool, cfg.Ingest.Schema, cfg.Ingest.Table)
	if err := client.Ping(ctx); err != nil {
		slog.Error("database unreachable", "error", err)
		os.Exit(1)
	}

	pipeline := ingest.New(ingest.SalesSchema, client)
	report, err := pipeline.Run(ctx, tab.Headers, tab.Rows)
	if err != nil {
		slog.Error("ingestion failed", "error", err)
		os.Exit(1)
	}

	slog.Info("ingestion completed",
		"run_id", report.RunID,
		"rows", report.Rows,
		"loaded", report.Loaded,
		"unmapped", report.Unmapped,
		"duration_ms", report.Duration,
	)
	for target, header := range report.Mapping {
		slog.Debug("column mapped", "target", target, "source", header)
	}
}
