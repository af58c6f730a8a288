// Package main runs one backtest over a stored bar range.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"weekly-options-lab/internal/backtest"
	"weekly-options-lab/internal/config"
	"weekly-options-lab/internal/idhash"
	"weekly-options-lab/internal/observability"
	"weekly-options-lab/internal/pricing"
	"weekly-options-lab/internal/reporting"
	"weekly-options-lab/internal/storage"
	chstore "weekly-options-lab/internal/storage/clickhouse"
	"weekly-options-lab/internal/storage/memory"
	pgstore "weekly-options-lab/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML run configuration (required)")
	fromFlag := flag.String("from", "", "Range start, YYYY-MM-DD or RFC3339, exchange timezone (required)")
	toFlag := flag.String("to", "", "Range end, YYYY-MM-DD or RFC3339, exchange timezone (required)")
	runID := flag.String("run-id", "", "Run ID (default: derived from symbol, range, and config)")

	// Storage
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string (overrides config)")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string (overrides config)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage (no bars unless ingested in-process)")

	// Output
	outputJSON := flag.Bool("json", false, "Output full run result as JSON")
	persistResult := flag.Bool("persist", true, "Persist run records to PostgreSQL")
	metricsAddr := flag.String("metrics-addr", "", "Prometheus metrics HTTP address (empty to disable)")

	flag.Parse()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	if *configPath == "" {
		logger.Fatal().Msg("--config is required")
	}
	if *fromFlag == "" || *toFlag == "" {
		logger.Fatal().Msg("--from and --to are required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("load config")
	}
	loc, err := cfg.Location()
	if err != nil {
		logger.Fatal().Err(err).Msg("resolve timezone")
	}
	capital, err := cfg.InitialCapital()
	if err != nil {
		logger.Fatal().Err(err).Msg("parse initial capital")
	}
	lc, err := cfg.LifecycleConfig()
	if err != nil {
		logger.Fatal().Err(err).Msg("map strategy config")
	}

	from, err := parseRangeTime(*fromFlag, loc)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse --from")
	}
	to, err := parseRangeTime(*toFlag, loc)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse --to")
	}
	if !to.After(from) {
		logger.Fatal().Msg("--to must be after --from")
	}

	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.Handler())
			logger.Info().Str("addr", *metricsAddr).Msg("metrics server started")
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil && err != http.ErrServerClosed {
				logger.Error().Err(err).Msg("metrics server failed")
			}
		}()
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

	// Stores. A run reads bars and quotes from ClickHouse and persists its
	// records to PostgreSQL; either side falls back to memory.
	var barStore storage.BarStore = memory.NewBarStore()
	var priceStore storage.OptionPriceStore = memory.NewOptionPriceStore()
	var stores backtest.Stores

	chDSN := pickDSN(*clickhouseDSN, cfg.Storage.ClickhouseDSN)
	pgDSN := pickDSN(*postgresDSN, cfg.Storage.PostgresDSN)

	if !*useMemory {
		if chDSN == "" {
			logger.Fatal().Msg("--clickhouse-dsn (or storage.clickhouse_dsn) is required without --use-memory")
		}
		conn, err := chstore.NewConn(ctx, chDSN)
		if err != nil {
			logger.Fatal().Err(err).Msg("connect to clickhouse")
		}
		defer conn.Close()
		barStore = chstore.NewBarStore(conn, loc)
		priceStore = chstore.NewOptionPriceStore(conn, loc)

		if *persistResult {
			if pgDSN == "" {
				logger.Fatal().Msg("--postgres-dsn (or storage.postgres_dsn) is required with --persist")
			}
			pool, err := pgstore.NewPool(ctx, pgDSN)
			if err != nil {
				logger.Fatal().Err(err).Msg("connect to postgres")
			}
			defer pool.Close()
			stores = backtest.Stores{
				Runs:    pgstore.NewRunStore(pool),
				Trades:  pgstore.NewTradeStore(pool),
				Daily:   pgstore.NewDailyResultStore(pool),
				Missing: pgstore.NewMissingPriceStore(pool),
			}
		}
	}

	runCfg := backtest.Config{
		RunID:          *runID,
		Symbol:         cfg.Run.Symbol,
		InitialCapital: capital,
		MinTick:        cfg.Run.MinTick,
		Lifecycle:      lc,
	}
	if runCfg.RunID == "" {
		runCfg.RunID = idhash.ComputeRunID(runCfg.Symbol, from.Unix(), to.Unix(), lc.Fingerprint())
	}

	runner := backtest.NewRunner(barStore, pricing.NewStoreSource(priceStore, cfg.Run.Symbol),
		pricing.NewRangeValidator(), nil, stores, logger)

	logger.Info().
		Str("run_id", runCfg.RunID).
		Str("symbol", runCfg.Symbol).
		Time("from", from).
		Time("to", to).
		Msg("backtest started")

	result, runErr := runner.Run(ctx, runCfg, from, to)
	if result == nil {
		logger.Fatal().Err(runErr).Msg("backtest failed before producing a result")
	}

	if *outputJSON {
		out, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			logger.Fatal().Err(err).Msg("marshal result")
		}
		fmt.Println(string(out))
	} else {
		fmt.Print(reporting.RenderMarkdown(reporting.Build(result, nil)))
	}

	if runErr != nil {
		os.Exit(1)
	}
}

// parseRangeTime accepts a date (midnight, exchange timezone) or a full
// RFC3339 timestamp.
func parseRangeTime(s string, loc *time.Location) (time.Time, error) {
	if t, err := time.ParseInLocation("2006-01-02", s, loc); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q (want YYYY-MM-DD or RFC3339)", s)
	}
	return t.In(loc), nil
}

func pickDSN(flagValue, configValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return configValue
}
