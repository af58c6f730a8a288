package config

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestParse_DefaultsApplied(t *testing.T) {
	cfg, err := Parse([]byte(`
run:
  symbol: NIFTY
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if cfg.Run.Timezone != "Asia/Kolkata" {
		t.Fatalf("Timezone = %q, want Asia/Kolkata", cfg.Run.Timezone)
	}
	if cfg.Run.MinTick != 0.05 {
		t.Fatalf("MinTick = %v, want 0.05", cfg.Run.MinTick)
	}

	lc, err := cfg.LifecycleConfig()
	if err != nil {
		t.Fatalf("LifecycleConfig: %v", err)
	}
	if lc.LotSize != 75 {
		t.Fatalf("LotSize = %d, want 75", lc.LotSize)
	}
	if !lc.CommissionPerLot.Equal(decimal.NewFromInt(40)) {
		t.Fatalf("CommissionPerLot = %s, want 40", lc.CommissionPerLot)
	}
	if !lc.HedgeEnabled || lc.HedgeOffsetSteps != 4 {
		t.Fatalf("hedge = %t/%d, want enabled with 4 steps", lc.HedgeEnabled, lc.HedgeOffsetSteps)
	}
	if lc.ExpiryWeekday != time.Thursday || lc.ExpiryHour != 15 || lc.ExpiryMinute != 30 {
		t.Fatalf("expiry = %v %02d:%02d, want Thursday 15:30",
			lc.ExpiryWeekday, lc.ExpiryHour, lc.ExpiryMinute)
	}
	if !lc.ProgressiveSLEnabled {
		t.Fatal("progressive SL should default to enabled")
	}
	if !lc.ProgressiveSL.PerLotAmount.Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("PerLotAmount = %s, want 1000", lc.ProgressiveSL.PerLotAmount)
	}

	capital, err := cfg.InitialCapital()
	if err != nil {
		t.Fatalf("InitialCapital: %v", err)
	}
	if !capital.Equal(decimal.NewFromInt(1000000)) {
		t.Fatalf("InitialCapital = %s, want 1000000", capital)
	}
}

func TestParse_ExplicitFalseSurvivesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
run:
  symbol: NIFTY
strategy:
  hedge:
    enabled: false
  progressive_sl:
    enabled: false
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	lc, err := cfg.LifecycleConfig()
	if err != nil {
		t.Fatalf("LifecycleConfig: %v", err)
	}
	if lc.HedgeEnabled {
		t.Fatal("hedge.enabled: false must not be overridden by the default")
	}
	if lc.ProgressiveSLEnabled {
		t.Fatal("progressive_sl.enabled: false must not be overridden by the default")
	}
	if !lc.ScheduledExitEnabled {
		t.Fatal("untouched scheduled_exit.enabled should keep its default")
	}
}

func TestParse_Overrides(t *testing.T) {
	cfg, err := Parse([]byte(`
run:
  symbol: BANKNIFTY
  initial_capital: "2500000"
  min_tick: 0.1
strategy:
  lot_size: 15
  strike_step: 100
  scheduled_exit:
    close: true
    weekday: 2
  predictor_exit_confidence: 0.75
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	lc, err := cfg.LifecycleConfig()
	if err != nil {
		t.Fatalf("LifecycleConfig: %v", err)
	}
	if lc.LotSize != 15 || lc.StrikeStep != 100 {
		t.Fatalf("lot/step = %d/%g, want 15/100", lc.LotSize, lc.StrikeStep)
	}
	if !lc.ScheduledExitClose || lc.ScheduledExitWeekday != time.Tuesday {
		t.Fatalf("scheduled exit = close %t, weekday %v, want close on Tuesday",
			lc.ScheduledExitClose, lc.ScheduledExitWeekday)
	}
	if lc.ScheduledExitHour != 13 {
		t.Fatalf("ScheduledExitHour = %d, want default 13", lc.ScheduledExitHour)
	}
	if lc.PredictorExitConfidence != 0.75 {
		t.Fatalf("PredictorExitConfidence = %v, want 0.75", lc.PredictorExitConfidence)
	}
}

func TestParse_ValidationFailures(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"missing symbol", "run: {}"},
		{"negative min tick", "run: {symbol: NIFTY, min_tick: -1}"},
		{"risk above one", "run: {symbol: NIFTY}\nstrategy: {risk_per_trade_pct: 1.5}"},
		{"bad weekday", "run: {symbol: NIFTY}\nstrategy: {expiry: {weekday: 9}}"},
		{"confidence above one", "run: {symbol: NIFTY}\nstrategy: {predictor_exit_confidence: 2}"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Parse([]byte(tc.yaml)); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestParse_MalformedYAML(t *testing.T) {
	_, err := Parse([]byte("run: [not a mapping"))
	if err == nil || !strings.Contains(err.Error(), "parse config") {
		t.Fatalf("err = %v, want parse failure", err)
	}
}

func TestConfig_BadDecimalFields(t *testing.T) {
	cfg, err := Parse([]byte(`
run:
  symbol: NIFTY
  initial_capital: "lots"
strategy:
  commission_per_lot: "free"
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if _, err := cfg.InitialCapital(); err == nil {
		t.Fatal("expected initial capital parse error")
	}
	if _, err := cfg.LifecycleConfig(); err == nil {
		t.Fatal("expected commission parse error")
	}
}
