// Package ingestion loads bar and option quote history from CSV into
// storage. Implausible rows are skipped and counted, never fatal; a
// malformed file or a duplicate batch is.
package ingestion

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"weekly-options-lab/internal/domain"
	"weekly-options-lab/internal/storage"
)

// timestampLayout is the human-readable timestamp form accepted next to
// plain unix seconds.
const timestampLayout = "2006-01-02 15:04:05"

// insertBatchSize bounds one InsertBulk call.
const insertBatchSize = 1000

// Result counts what one load did.
type Result struct {
	Inserted int
	Skipped  int
}

// BarLoader reads bar CSV (timestamp,open,high,low,close,volume) into a
// bar store.
type BarLoader struct {
	store  storage.BarStore
	loc    *time.Location
	logger zerolog.Logger
}

// NewBarLoader creates a bar CSV loader. loc interprets human-readable
// timestamps; nil defaults to UTC.
func NewBarLoader(store storage.BarStore, loc *time.Location, logger zerolog.Logger) *BarLoader {
	if loc == nil {
		loc = time.UTC
	}
	return &BarLoader{
		store:  store,
		loc:    loc,
		logger: logger.With().Str("component", "ingestion").Logger(),
	}
}

// LoadCSV parses and stores all rows for one symbol. Rows failing OHLC
// validation are skipped and counted; parse errors on individual fields
// count as skips too. Returns the batch insert error unchanged, so a
// duplicate load surfaces as storage.ErrDuplicateKey.
func (l *BarLoader) LoadCSV(ctx context.Context, symbol string, r io.Reader) (*Result, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	res := &Result{}
	var batch []*domain.Bar
	line := 0

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return res, fmt.Errorf("read csv line %d: %w", line+1, err)
		}
		line++

		if line == 1 && isHeader(record) {
			continue
		}

		bar, err := parseBarRecord(record, l.loc)
		if err != nil {
			res.Skipped++
			l.logger.Warn().Err(err).Int("line", line).Msg("bar row skipped")
			continue
		}
		if err := bar.Validate(); err != nil {
			res.Skipped++
			l.logger.Warn().Err(err).Int("line", line).Time("ts", bar.Timestamp).Msg("implausible bar row skipped")
			continue
		}

		batch = append(batch, bar)
		if len(batch) >= insertBatchSize {
			if err := l.store.InsertBulk(ctx, symbol, batch); err != nil {
				return res, err
			}
			res.Inserted += len(batch)
			batch = batch[:0]
		}
	}

	if len(batch) > 0 {
		if err := l.store.InsertBulk(ctx, symbol, batch); err != nil {
			return res, err
		}
		res.Inserted += len(batch)
	}

	l.logger.Info().Str("symbol", symbol).
		Int("inserted", res.Inserted).Int("skipped", res.Skipped).
		Msg("bar csv loaded")
	return res, nil
}

func parseBarRecord(record []string, loc *time.Location) (*domain.Bar, error) {
	if len(record) < 6 {
		return nil, fmt.Errorf("want 6 columns, got %d", len(record))
	}

	ts, err := parseTimestamp(record[0], loc)
	if err != nil {
		return nil, fmt.Errorf("parse timestamp %q: %w", record[0], err)
	}

	fields := make([]float64, 4)
	for i, name := range []string{"open", "high", "low", "close"} {
		v, err := strconv.ParseFloat(strings.TrimSpace(record[i+1]), 64)
		if err != nil {
			return nil, fmt.Errorf("parse %s %q: %w", name, record[i+1], err)
		}
		fields[i] = v
	}

	volume, err := strconv.ParseInt(strings.TrimSpace(record[5]), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse volume %q: %w", record[5], err)
	}

	return &domain.Bar{
		Timestamp: ts,
		Open:      fields[0],
		High:      fields[1],
		Low:       fields[2],
		Close:     fields[3],
		Volume:    volume,
	}, nil
}

// QuoteLoader reads option quote CSV (timestamp,strike,side,expiry,price)
// into a quote store.
type QuoteLoader struct {
	store  storage.OptionPriceStore
	loc    *time.Location
	logger zerolog.Logger
}

// NewQuoteLoader creates an option quote CSV loader. loc interprets
// human-readable timestamps; nil defaults to UTC.
func NewQuoteLoader(store storage.OptionPriceStore, loc *time.Location, logger zerolog.Logger) *QuoteLoader {
	if loc == nil {
		loc = time.UTC
	}
	return &QuoteLoader{
		store:  store,
		loc:    loc,
		logger: logger.With().Str("component", "ingestion").Logger(),
	}
}

// LoadCSV parses and stores all quote rows for one symbol.
func (l *QuoteLoader) LoadCSV(ctx context.Context, symbol string, r io.Reader) (*Result, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	res := &Result{}
	var batch []*storage.OptionQuote
	line := 0

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return res, fmt.Errorf("read csv line %d: %w", line+1, err)
		}
		line++

		if line == 1 && isHeader(record) {
			continue
		}

		quote, err := parseQuoteRecord(record, symbol, l.loc)
		if err != nil {
			res.Skipped++
			l.logger.Warn().Err(err).Int("line", line).Msg("quote row skipped")
			continue
		}

		batch = append(batch, quote)
		if len(batch) >= insertBatchSize {
			if err := l.store.InsertBulk(ctx, batch); err != nil {
				return res, err
			}
			res.Inserted += len(batch)
			batch = batch[:0]
		}
	}

	if len(batch) > 0 {
		if err := l.store.InsertBulk(ctx, batch); err != nil {
			return res, err
		}
		res.Inserted += len(batch)
	}

	l.logger.Info().Str("symbol", symbol).
		Int("inserted", res.Inserted).Int("skipped", res.Skipped).
		Msg("quote csv loaded")
	return res, nil
}

func parseQuoteRecord(record []string, symbol string, loc *time.Location) (*storage.OptionQuote, error) {
	if len(record) < 5 {
		return nil, fmt.Errorf("want 5 columns, got %d", len(record))
	}

	ts, err := parseTimestamp(record[0], loc)
	if err != nil {
		return nil, fmt.Errorf("parse timestamp %q: %w", record[0], err)
	}

	strike, err := strconv.ParseFloat(strings.TrimSpace(record[1]), 64)
	if err != nil {
		return nil, fmt.Errorf("parse strike %q: %w", record[1], err)
	}
	if strike <= 0 {
		return nil, fmt.Errorf("strike must be positive, got %g", strike)
	}

	side := domain.OptionSide(strings.ToUpper(strings.TrimSpace(record[2])))
	if side != domain.SideCall && side != domain.SidePut {
		return nil, fmt.Errorf("unknown option side %q", record[2])
	}

	expiry, err := parseTimestamp(record[3], loc)
	if err != nil {
		return nil, fmt.Errorf("parse expiry %q: %w", record[3], err)
	}

	price, err := decimal.NewFromString(strings.TrimSpace(record[4]))
	if err != nil {
		return nil, fmt.Errorf("parse price %q: %w", record[4], err)
	}
	if price.IsNegative() {
		return nil, fmt.Errorf("price must be non-negative, got %s", price)
	}

	return &storage.OptionQuote{
		Timestamp: ts,
		Symbol:    symbol,
		Strike:    strike,
		Side:      side,
		Expiry:    expiry,
		Price:     price,
	}, nil
}

// parseTimestamp accepts unix seconds or "2006-01-02 15:04:05" in loc.
func parseTimestamp(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0).In(loc), nil
	}
	return time.ParseInLocation(timestampLayout, s, loc)
}

// isHeader reports whether the first CSV record is a column header row,
// detected by a non-numeric first field.
func isHeader(record []string) bool {
	if len(record) == 0 {
		return false
	}
	first := strings.TrimSpace(record[0])
	if _, err := strconv.ParseInt(first, 10, 64); err == nil {
		return false
	}
	if _, err := time.Parse(timestampLayout, first); err == nil {
		return false
	}
	return true
}
