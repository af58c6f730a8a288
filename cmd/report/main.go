// Package main renders a stored backtest run as markdown and CSV.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"weekly-options-lab/internal/config"
	"weekly-options-lab/internal/reporting"
	pgstore "weekly-options-lab/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML run configuration (required)")
	runID := flag.String("run-id", "", "Run ID to report on (required)")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string (overrides config)")
	format := flag.String("format", "markdown", "Output format: markdown or json")
	output := flag.String("output", "-", "Output path, or - for stdout")
	tradesCSV := flag.String("trades-csv", "", "Also write the trade list CSV to this path")
	signalsCSV := flag.String("signals-csv", "", "Also write the per-signal CSV to this path")

	flag.Parse()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	if *configPath == "" {
		logger.Fatal().Msg("--config is required")
	}
	if *runID == "" {
		logger.Fatal().Msg("--run-id is required")
	}
	if *format != "markdown" && *format != "json" {
		logger.Fatal().Str("format", *format).Msg("--format must be markdown or json")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("load config")
	}

	dsn := *postgresDSN
	if dsn == "" {
		dsn = cfg.Storage.PostgresDSN
	}
	if dsn == "" {
		logger.Fatal().Msg("--postgres-dsn (or storage.postgres_dsn) is required")
	}

	ctx := context.Background()

	pool, err := pgstore.NewPool(ctx, dsn)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect to postgres")
	}
	defer pool.Close()

	gen := reporting.NewGenerator(
		pgstore.NewRunStore(pool),
		pgstore.NewTradeStore(pool),
		pgstore.NewDailyResultStore(pool),
		pgstore.NewMissingPriceStore(pool),
	)

	report, err := gen.Generate(ctx, *runID)
	if err != nil {
		logger.Fatal().Err(err).Str("run_id", *runID).Msg("generate report")
	}

	var rendered string
	switch *format {
	case "markdown":
		rendered = reporting.RenderMarkdown(report)
	case "json":
		out, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			logger.Fatal().Err(err).Msg("marshal report")
		}
		rendered = string(out) + "\n"
	}

	if err := writeOutput(*output, rendered); err != nil {
		logger.Fatal().Err(err).Msg("write report")
	}

	if *tradesCSV != "" {
		if err := writeOutput(*tradesCSV, reporting.RenderTradesCSV(report.Trades)); err != nil {
			logger.Fatal().Err(err).Msg("write trades csv")
		}
		logger.Info().Str("path", *tradesCSV).Msg("trade list written")
	}
	if *signalsCSV != "" {
		if err := writeOutput(*signalsCSV, reporting.RenderSignalsCSV(report.Signals)); err != nil {
			logger.Fatal().Err(err).Msg("write signals csv")
		}
		logger.Info().Str("path", *signalsCSV).Msg("signal breakdown written")
	}
}

func writeOutput(path, content string) error {
	if path == "-" {
		_, err := fmt.Print(content)
		return err
	}
	return os.WriteFile(path, []byte(content), 0o644)
}
