package storage

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"weekly-options-lab/internal/domain"
)

// BarStore provides access to hourly spot bar storage.
type BarStore interface {
	// InsertBulk adds multiple bars. Fails entire batch on duplicate (symbol, timestamp).
	InsertBulk(ctx context.Context, symbol string, bars []*domain.Bar) error

	// GetByTimeRange retrieves bars for a symbol within [from, to] (inclusive),
	// ordered by timestamp ASC.
	GetByTimeRange(ctx context.Context, symbol string, from, to time.Time) ([]*domain.Bar, error)

	// GetLatestTimestamp returns the newest stored bar timestamp for a symbol.
	// Returns ErrNotFound when no bars exist.
	GetLatestTimestamp(ctx context.Context, symbol string) (time.Time, error)
}

// OptionQuote is one stored option premium observation.
type OptionQuote struct {
	Timestamp time.Time
	Symbol    string
	Strike    float64
	Side      domain.OptionSide
	Expiry    time.Time
	Price     decimal.Decimal
}

// OptionPriceStore provides access to option quote storage.
type OptionPriceStore interface {
	// InsertBulk adds multiple quotes. Fails entire batch on duplicate
	// (symbol, strike, side, expiry, timestamp).
	InsertBulk(ctx context.Context, quotes []*OptionQuote) error

	// GetPriceAt retrieves the premium quoted at or immediately before ts
	// for a contract. Returns ErrNotFound when no quote exists.
	GetPriceAt(ctx context.Context, symbol string, ts time.Time, strike float64, side domain.OptionSide, expiry time.Time) (decimal.Decimal, error)
}

// RunStore provides access to backtest run storage.
type RunStore interface {
	// Insert adds a new run record. Returns ErrDuplicateKey if run_id exists.
	Insert(ctx context.Context, r *domain.RunResult) error

	// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, runID string) (*domain.RunResult, error)
}

// TradeStore provides access to closed trade storage.
type TradeStore interface {
	// Insert adds a new trade. Returns ErrDuplicateKey if trade_id exists.
	Insert(ctx context.Context, t *domain.Trade) error

	// InsertBulk adds multiple trades atomically. Fails entire batch on any duplicate.
	InsertBulk(ctx context.Context, trades []*domain.Trade) error

	// GetByID retrieves a trade by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, tradeID string) (*domain.Trade, error)

	// GetByRunID retrieves all trades for a run, ordered by entry time ASC.
	GetByRunID(ctx context.Context, runID string) ([]*domain.Trade, error)
}

// DailyResultStore provides access to per-day capital snapshot storage.
type DailyResultStore interface {
	// InsertBulk adds multiple snapshots. Fails entire batch on duplicate (run_id, date).
	InsertBulk(ctx context.Context, results []*domain.DailyResult) error

	// GetByRunID retrieves all snapshots for a run, ordered by date ASC.
	GetByRunID(ctx context.Context, runID string) ([]*domain.DailyResult, error)
}

// MissingPriceStore provides access to the unresolved-quote audit log.
type MissingPriceStore interface {
	// InsertBulk adds multiple records for a run.
	InsertBulk(ctx context.Context, runID string, records []domain.MissingPrice) error

	// GetByRunID retrieves all records for a run, ordered by timestamp ASC.
	GetByRunID(ctx context.Context, runID string) ([]domain.MissingPrice, error)
}
