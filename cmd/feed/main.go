// Package main serves stored bars over websocket, or tails a remote feed.
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

	"weekly-options-lab/internal/config"
	"weekly-options-lab/internal/feed"
	"weekly-options-lab/internal/storage"
	chstore "weekly-options-lab/internal/storage/clickhouse"
	"weekly-options-lab/internal/storage/memory"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML run configuration (required)")
	mode := flag.String("mode", "serve", "Mode: serve (stream stored bars) or tail (print a remote feed)")
	addr := flag.String("addr", ":8080", "Listen address for serve mode")
	feedURL := flag.String("url", "", "Feed websocket URL for tail mode (overrides config)")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string (overrides config)")
	useMemory := flag.Bool("use-memory", false, "Serve from an empty in-memory bar store")

	flag.Parse()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	if *configPath == "" {
		logger.Fatal().Msg("--config is required")
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

	switch *mode {
	case "serve":
		var barStore storage.BarStore = memory.NewBarStore()
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
			barStore = chstore.NewBarStore(conn, loc)
		}
		runServer(ctx, *addr, barStore, logger)

	case "tail":
		url := *feedURL
		if url == "" {
			url = cfg.Feed.URL
		}
		if url == "" {
			logger.Fatal().Msg("--url (or feed.url) is required in tail mode")
		}
		runTail(ctx, url, cfg, loc, logger)

	default:
		logger.Fatal().Str("mode", *mode).Msg("--mode must be serve or tail")
	}
}

func runServer(ctx context.Context, addr string, bars storage.BarStore, logger zerolog.Logger) {
	srv := &http.Server{
		Addr:    addr,
		Handler: feed.NewServer(bars, logger).Routes(),
	}

	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()

	logger.Info().Str("addr", addr).Msg("feed server started")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal().Err(err).Msg("feed server failed")
	}
}

// runTail subscribes to a remote feed and prints each bar as a JSON line.
func runTail(ctx context.Context, url string, cfg *config.Config, loc *time.Location, logger zerolog.Logger) {
	clientCfg := feed.DefaultClientConfig()
	clientCfg.ReconnectDelay = cfg.Feed.ReconnectDelay
	clientCfg.PingInterval = cfg.Feed.PingInterval

	client, err := feed.NewClient(ctx, url, cfg.Run.Symbol, loc, &clientCfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect to feed")
	}
	defer client.Close()

	enc := json.NewEncoder(os.Stdout)
	for {
		select {
		case <-ctx.Done():
			return
		case bar, ok := <-client.Bars():
			if !ok {
				return
			}
			if err := enc.Encode(bar); err != nil {
				fmt.Fprintf(os.Stderr, "encode bar: %v\n", err)
			}
		}
	}
}
