package ingestion

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"weekly-options-lab/internal/domain"
	"weekly-options-lab/internal/storage"
	"weekly-options-lab/internal/storage/memory"
)

var loaderLoc = time.FixedZone("IST", 5*3600+1800)

func TestBarLoader_LoadCSV(t *testing.T) {
	input := strings.Join([]string{
		"timestamp,open,high,low,close,volume",
		"2025-03-03 09:15:00,25100,25150,25000,25050,1200",
		"2025-03-03 10:15:00,25050,25090,25010,25080,900",
	}, "\n")

	store := memory.NewBarStore()
	loader := NewBarLoader(store, loaderLoc, zerolog.Nop())

	res, err := loader.LoadCSV(context.Background(), "NIFTY", strings.NewReader(input))
	if err != nil {
		t.Fatalf("LoadCSV: %v", err)
	}
	if res.Inserted != 2 || res.Skipped != 0 {
		t.Fatalf("result = %+v, want 2 inserted, 0 skipped", res)
	}

	first := time.Date(2025, 3, 3, 9, 15, 0, 0, loaderLoc)
	bars, err := store.GetByTimeRange(context.Background(), "NIFTY", first, first.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("GetByTimeRange: %v", err)
	}
	if len(bars) != 2 {
		t.Fatalf("stored bars = %d, want 2", len(bars))
	}
	if !bars[0].Timestamp.Equal(first) || bars[0].Close != 25050 || bars[0].Volume != 1200 {
		t.Fatalf("first bar = %+v", bars[0])
	}
}

func TestBarLoader_UnixTimestamps(t *testing.T) {
	ts := time.Date(2025, 3, 3, 9, 15, 0, 0, loaderLoc)
	input := "ts,open,high,low,close,volume\n" +
		strings.Join([]string{
			strconv.FormatInt(ts.Unix(), 10), "25100", "25150", "25000", "25050", "100",
		}, ",")

	store := memory.NewBarStore()
	loader := NewBarLoader(store, loaderLoc, zerolog.Nop())

	res, err := loader.LoadCSV(context.Background(), "NIFTY", strings.NewReader(input))
	if err != nil {
		t.Fatalf("LoadCSV: %v", err)
	}
	if res.Inserted != 1 {
		t.Fatalf("inserted = %d, want 1", res.Inserted)
	}

	bars, err := store.GetByTimeRange(context.Background(), "NIFTY", ts, ts)
	if err != nil || len(bars) != 1 {
		t.Fatalf("stored bars = %v (err %v), want 1", bars, err)
	}
	if !bars[0].Timestamp.Equal(ts) {
		t.Fatalf("timestamp = %v, want %v", bars[0].Timestamp, ts)
	}
}

func TestBarLoader_SkipsBadRows(t *testing.T) {
	// One unparseable timestamp, one bar with high < low.
	input := strings.Join([]string{
		"timestamp,open,high,low,close,volume",
		"2025-03-03 09:15:00,25100,25150,25000,25050,1200",
		"not-a-time,1,2,1,1,1",
		"2025-03-03 10:15:00,25100,24000,25000,25050,1",
		"2025-03-03 11:15:00,25050,25090,25010,25080,900",
	}, "\n")

	store := memory.NewBarStore()
	loader := NewBarLoader(store, loaderLoc, zerolog.Nop())

	res, err := loader.LoadCSV(context.Background(), "NIFTY", strings.NewReader(input))
	if err != nil {
		t.Fatalf("LoadCSV: %v", err)
	}
	if res.Inserted != 2 || res.Skipped != 2 {
		t.Fatalf("result = %+v, want 2 inserted, 2 skipped", res)
	}
}

func TestBarLoader_DuplicateLoadFails(t *testing.T) {
	input := "2025-03-03 09:15:00,25100,25150,25000,25050,1200\n"

	store := memory.NewBarStore()
	loader := NewBarLoader(store, loaderLoc, zerolog.Nop())
	ctx := context.Background()

	if _, err := loader.LoadCSV(ctx, "NIFTY", strings.NewReader(input)); err != nil {
		t.Fatalf("first load: %v", err)
	}
	_, err := loader.LoadCSV(ctx, "NIFTY", strings.NewReader(input))
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Fatalf("err = %v, want ErrDuplicateKey", err)
	}
}

func TestQuoteLoader_LoadCSV(t *testing.T) {
	// One unknown side, one non-positive strike.
	input := strings.Join([]string{
		"timestamp,strike,side,expiry,price",
		"2025-03-03 10:15:00,24750,PE,2025-03-06 15:30:00,100.25",
		"2025-03-03 10:15:00,25000,ce,2025-03-06 15:30:00,55",
		"2025-03-03 10:15:00,25000,XX,2025-03-06 15:30:00,55",
		"2025-03-03 10:15:00,-50,PE,2025-03-06 15:30:00,55",
	}, "\n")

	store := memory.NewOptionPriceStore()
	loader := NewQuoteLoader(store, loaderLoc, zerolog.Nop())

	res, err := loader.LoadCSV(context.Background(), "NIFTY", strings.NewReader(input))
	if err != nil {
		t.Fatalf("LoadCSV: %v", err)
	}
	if res.Inserted != 2 || res.Skipped != 2 {
		t.Fatalf("result = %+v, want 2 inserted, 2 skipped", res)
	}

	ts := time.Date(2025, 3, 3, 10, 15, 0, 0, loaderLoc)
	expiry := time.Date(2025, 3, 6, 15, 30, 0, 0, loaderLoc)
	price, err := store.GetPriceAt(context.Background(), "NIFTY", ts, 24750, domain.SidePut, expiry)
	if err != nil {
		t.Fatalf("GetPriceAt: %v", err)
	}
	if !price.Equal(decimal.RequireFromString("100.25")) {
		t.Fatalf("price = %s, want 100.25", price)
	}

	// Lowercase side normalized to CE
	price, err = store.GetPriceAt(context.Background(), "NIFTY", ts, 25000, domain.SideCall, expiry)
	if err != nil {
		t.Fatalf("GetPriceAt CE: %v", err)
	}
	if !price.Equal(decimal.NewFromInt(55)) {
		t.Fatalf("price = %s, want 55", price)
	}
}
