// Package config loads YAML run configuration. Defaults are applied with
// creasty/defaults, then the struct is validated; a validation failure is
// fatal and surfaced to the caller before any run starts.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"weekly-options-lab/internal/lifecycle"
	"weekly-options-lab/internal/stoploss"
)

var validate = validator.New()

// Config is the full YAML run configuration.
type Config struct {
	Run      RunConfig      `yaml:"run"`
	Strategy StrategyConfig `yaml:"strategy"`
	Storage  StorageConfig  `yaml:"storage"`
	Feed     FeedConfig     `yaml:"feed"`
}

// RunConfig identifies the instrument and capital for a run.
type RunConfig struct {
	Symbol         string  `yaml:"symbol" validate:"required"`
	Timezone       string  `yaml:"timezone" default:"Asia/Kolkata" validate:"required"`
	InitialCapital string  `yaml:"initial_capital" default:"1000000" validate:"required"`
	MinTick        float64 `yaml:"min_tick" default:"0.05" validate:"gt=0"`
}

// StrategyConfig holds the signal and lifecycle knobs.
type StrategyConfig struct {
	RiskPerTradePct  float64 `yaml:"risk_per_trade_pct" default:"0.02" validate:"gt=0,lte=1"`
	LotSize          int     `yaml:"lot_size" default:"75" validate:"gt=0"`
	CommissionPerLot string  `yaml:"commission_per_lot" default:"40"`
	StrikeStep       float64 `yaml:"strike_step" default:"50" validate:"gt=0"`

	Hedge struct {
		Enabled     *bool `yaml:"enabled" default:"true"`
		OffsetSteps int   `yaml:"offset_steps" default:"4" validate:"gte=1"`
	} `yaml:"hedge"`

	ScheduledExit struct {
		Enabled *bool `yaml:"enabled" default:"true"`
		Close   bool  `yaml:"close"`
		Weekday int   `yaml:"weekday" default:"3" validate:"gte=0,lte=6"`
		Hour    int   `yaml:"hour" default:"13" validate:"gte=0,lte=23"`
		Minute  int   `yaml:"minute" default:"15" validate:"gte=0,lte=59"`
	} `yaml:"scheduled_exit"`

	Expiry struct {
		Weekday int `yaml:"weekday" default:"4" validate:"gte=0,lte=6"`
		Hour    int `yaml:"hour" default:"15" validate:"gte=0,lte=23"`
		Minute  int `yaml:"minute" default:"30" validate:"gte=0,lte=59"`
	} `yaml:"expiry"`

	ProgressiveSL struct {
		Enabled           *bool   `yaml:"enabled" default:"true"`
		PerLotAmount      string  `yaml:"per_lot_amount" default:"1000"`
		Day2Factor        float64 `yaml:"day2_factor" default:"0.5" validate:"gt=0,lte=1"`
		Day2Hour          int     `yaml:"day2_hour" default:"13" validate:"gte=0,lte=23"`
		Day2Minute        int     `yaml:"day2_minute" default:"0" validate:"gte=0,lte=59"`
		ProfitTriggerPct  float64 `yaml:"profit_trigger_pct" default:"60" validate:"gte=0,lte=100"`
		DayNProfitLockPct float64 `yaml:"dayn_profit_lock_pct" default:"30" validate:"gte=0,lte=100"`
	} `yaml:"progressive_sl"`

	PredictorExitConfidence float64 `yaml:"predictor_exit_confidence" validate:"gte=0,lte=1"`
}

// StorageConfig carries backend DSNs. Empty DSNs select in-memory stores.
type StorageConfig struct {
	PostgresDSN   string `yaml:"postgres_dsn"`
	ClickhouseDSN string `yaml:"clickhouse_dsn"`
}

// FeedConfig configures the streaming bar client.
type FeedConfig struct {
	URL            string        `yaml:"url"`
	ReconnectDelay time.Duration `yaml:"reconnect_delay" default:"5s"`
	PingInterval   time.Duration `yaml:"ping_interval" default:"30s"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse unmarshals a YAML document, applies defaults, and validates.
func Parse(b []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply config defaults: %w", err)
	}

	if err := validate.Struct(&c); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// Location resolves the configured exchange timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Run.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Run.Timezone, err)
	}
	return loc, nil
}

// InitialCapital parses the configured starting capital.
func (c *Config) InitialCapital() (decimal.Decimal, error) {
	capital, err := decimal.NewFromString(c.Run.InitialCapital)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse initial_capital: %w", err)
	}
	if !capital.IsPositive() {
		return decimal.Zero, fmt.Errorf("initial_capital must be positive, got %s", capital)
	}
	return capital, nil
}

// LifecycleConfig maps the strategy section onto lifecycle parameters.
func (c *Config) LifecycleConfig() (lifecycle.Config, error) {
	s := c.Strategy

	commission, err := decimal.NewFromString(s.CommissionPerLot)
	if err != nil {
		return lifecycle.Config{}, fmt.Errorf("parse commission_per_lot: %w", err)
	}
	perLot, err := decimal.NewFromString(s.ProgressiveSL.PerLotAmount)
	if err != nil {
		return lifecycle.Config{}, fmt.Errorf("parse progressive_sl.per_lot_amount: %w", err)
	}

	return lifecycle.Config{
		RiskPerTradePct:  s.RiskPerTradePct,
		LotSize:          s.LotSize,
		CommissionPerLot: commission,
		StrikeStep:       s.StrikeStep,

		HedgeEnabled:     boolVal(s.Hedge.Enabled),
		HedgeOffsetSteps: s.Hedge.OffsetSteps,

		ScheduledExitEnabled: boolVal(s.ScheduledExit.Enabled),
		ScheduledExitClose:   s.ScheduledExit.Close,
		ScheduledExitWeekday: time.Weekday(s.ScheduledExit.Weekday),
		ScheduledExitHour:    s.ScheduledExit.Hour,
		ScheduledExitMinute:  s.ScheduledExit.Minute,

		ExpiryWeekday: time.Weekday(s.Expiry.Weekday),
		ExpiryHour:    s.Expiry.Hour,
		ExpiryMinute:  s.Expiry.Minute,

		ProgressiveSLEnabled: boolVal(s.ProgressiveSL.Enabled),
		ProgressiveSL: stoploss.Config{
			PerLotAmount:      perLot,
			Day2Factor:        s.ProgressiveSL.Day2Factor,
			Day2Hour:          s.ProgressiveSL.Day2Hour,
			Day2Minute:        s.ProgressiveSL.Day2Minute,
			ProfitTriggerPct:  s.ProgressiveSL.ProfitTriggerPct,
			DayNProfitLockPct: s.ProgressiveSL.DayNProfitLockPct,
		},

		PredictorExitConfidence: s.PredictorExitConfidence,
	}, nil
}

func boolVal(p *bool) bool {
	return p != nil && *p
}
