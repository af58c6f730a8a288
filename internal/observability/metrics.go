// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Feed metrics
	BarsReceived   prometheus.Counter
	FeedReconnects prometheus.Counter
	FeedErrors     *prometheus.CounterVec

	// Backtest metrics
	BarsProcessed    prometheus.Counter
	InvalidBars      prometheus.Counter
	SignalsTriggered *prometheus.CounterVec
	TradesOpened     prometheus.Counter
	TradesClosed     *prometheus.CounterVec
	SignalsAbandoned prometheus.Counter
	MissingPrices    prometheus.Counter
	WeeksSkipped     prometheus.Counter

	// Run metrics
	RunsTotal   *prometheus.CounterVec
	RunDuration prometheus.Histogram

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "weekly_options_lab"
	}

	return &Metrics{
		// Feed metrics
		BarsReceived: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "bars_received_total",
			Help:      "Total number of bar frames received from the stream",
		}),
		FeedReconnects: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "reconnects_total",
			Help:      "Total number of websocket reconnect attempts",
		}),
		FeedErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "errors_total",
			Help:      "Total number of feed errors by type",
		}, []string{"error_type"}),

		// Backtest metrics
		BarsProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "bars_processed_total",
			Help:      "Total number of bars fed through the engine",
		}),
		InvalidBars: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "invalid_bars_total",
			Help:      "Total number of bars skipped by OHLC validation",
		}),
		SignalsTriggered: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "signals_triggered_total",
			Help:      "Total number of signals triggered by type",
		}, []string{"signal"}),
		TradesOpened: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "trades_opened_total",
			Help:      "Total number of trades opened",
		}),
		TradesClosed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "trades_closed_total",
			Help:      "Total number of trades closed by exit reason",
		}, []string{"exit_reason"}),
		SignalsAbandoned: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "signals_abandoned_total",
			Help:      "Total number of signals abandoned for want of a usable entry quote",
		}),
		MissingPrices: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "missing_prices_total",
			Help:      "Total number of unresolved option quote lookups",
		}),
		WeeksSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "weeks_skipped_total",
			Help:      "Total number of weeks skipped because zones could not be established",
		}),

		// Run metrics
		RunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "runs_total",
			Help:      "Total number of backtest runs by terminal status",
		}, []string{"status"}),
		RunDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "run_duration_seconds",
			Help:      "Wall clock duration of backtest runs in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		}),

		// Database metrics
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),
	}
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordBarReceived increments the feed bars received counter.
func RecordBarReceived() {
	DefaultMetrics.BarsReceived.Inc()
}

// RecordFeedReconnect increments the reconnect counter.
func RecordFeedReconnect() {
	DefaultMetrics.FeedReconnects.Inc()
}

// RecordFeedError records a feed error by type.
func RecordFeedError(errorType string) {
	DefaultMetrics.FeedErrors.WithLabelValues(errorType).Inc()
}

// RecordBarProcessed increments the engine bar counter.
func RecordBarProcessed() {
	DefaultMetrics.BarsProcessed.Inc()
}

// RecordInvalidBar increments the skipped bar counter.
func RecordInvalidBar() {
	DefaultMetrics.InvalidBars.Inc()
}

// RecordSignalTriggered increments the per-signal counter.
func RecordSignalTriggered(signal string) {
	DefaultMetrics.SignalsTriggered.WithLabelValues(signal).Inc()
}

// RecordTradeOpened increments the trades opened counter.
func RecordTradeOpened() {
	DefaultMetrics.TradesOpened.Inc()
}

// RecordTradeClosed increments the trades closed counter for an exit reason.
func RecordTradeClosed(exitReason string) {
	DefaultMetrics.TradesClosed.WithLabelValues(exitReason).Inc()
}

// RecordSignalAbandoned increments the abandoned signal counter.
func RecordSignalAbandoned() {
	DefaultMetrics.SignalsAbandoned.Inc()
}

// RecordMissingPrice increments the unresolved quote counter.
func RecordMissingPrice() {
	DefaultMetrics.MissingPrices.Inc()
}

// RecordWeekSkipped increments the skipped week counter.
func RecordWeekSkipped() {
	DefaultMetrics.WeeksSkipped.Inc()
}

// RecordRun records a completed run with its terminal status.
func RecordRun(status string, durationSeconds float64) {
	DefaultMetrics.RunsTotal.WithLabelValues(status).Inc()
	DefaultMetrics.RunDuration.Observe(durationSeconds)
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
