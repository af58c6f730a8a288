// Package main loads CSV bar and option quote files into ClickHouse.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"weekly-options-lab/internal/config"
	"weekly-options-lab/internal/ingestion"
	"weekly-options-lab/internal/storage"
	chstore "weekly-options-lab/internal/storage/clickhouse"
	"weekly-options-lab/internal/storage/memory"
	"weekly-options-lab/internal/storage/migrations"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML run configuration (required)")
	kind := flag.String("kind", "bars", "Input kind: bars or quotes")
	file := flag.String("file", "-", "CSV file path, or - for stdin")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string (overrides config)")
	useMemory := flag.Bool("use-memory", false, "Validate only, load into in-memory stores")
	migrate := flag.Bool("migrate", false, "Run ClickHouse migrations before loading")

	flag.Parse()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	if *configPath == "" {
		logger.Fatal().Msg("--config is required")
	}
	if *kind != "bars" && *kind != "quotes" {
		logger.Fatal().Str("kind", *kind).Msg("--kind must be bars or quotes")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("load config")
	}
	loc, err := cfg.Location()
	if err != nil {
		logger.Fatal().Err(err).Msg("resolve timezone")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Warn().Str("signal", sig.String()).Msg("shutting down")
		cancel()
	}()

	var barStore storage.BarStore = memory.NewBarStore()
	var priceStore storage.OptionPriceStore = memory.NewOptionPriceStore()

	if !*useMemory {
		dsn := *clickhouseDSN
		if dsn == "" {
			dsn = cfg.Storage.ClickhouseDSN
		}
		if dsn == "" {
			logger.Fatal().Msg("--clickhouse-dsn (or storage.clickhouse_dsn) is required without --use-memory")
		}
		conn, err := chstore.NewConn(ctx, dsn)
		if err != nil {
			logger.Fatal().Err(err).Msg("connect to clickhouse")
		}
		defer conn.Close()

		if *migrate {
			if err := migrations.RunClickhouseMigrations(ctx, conn); err != nil {
				logger.Fatal().Err(err).Msg("run migrations")
			}
			logger.Info().Msg("migrations applied")
		}

		barStore = chstore.NewBarStore(conn, loc)
		priceStore = chstore.NewOptionPriceStore(conn, loc)
	}

	var in io.Reader = os.Stdin
	if *file != "-" {
		f, err := os.Open(*file)
		if err != nil {
			logger.Fatal().Err(err).Msg("open input file")
		}
		defer f.Close()
		in = f
	}

	var result *ingestion.Result
	switch *kind {
	case "bars":
		result, err = ingestion.NewBarLoader(barStore, loc, logger).LoadCSV(ctx, cfg.Run.Symbol, in)
	case "quotes":
		result, err = ingestion.NewQuoteLoader(priceStore, loc, logger).LoadCSV(ctx, cfg.Run.Symbol, in)
	}
	if err != nil {
		logger.Fatal().Err(err).Msg("load failed")
	}

	fmt.Printf("Loaded %d %s (%d invalid rows skipped)\n", result.Inserted, *kind, result.Skipped)
}
