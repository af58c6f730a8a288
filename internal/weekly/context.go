package weekly

import (
	"time"

	"weekly-options-lab/internal/domain"
)

// Context is the mutable per-week aggregate state. One live instance exists
// per run per week; it is created at the first bar of a new week and replaced
// at the next boundary. All trackers live here, never in package state, so
// concurrent runs stay isolated.
type Context struct {
	WeekStart time.Time

	Zones *domain.WeeklyZones
	Bias  domain.WeeklyBias

	// FirstHourBar is whichever bar arrives first this week; it persists
	// even if Monday data is missing.
	FirstHourBar *domain.Bar

	// Bars seen this week, in arrival order.
	Bars []*domain.Bar

	// Running weekly extremes.
	MaxHigh  float64
	MinLow   float64
	MaxClose float64
	MinClose float64

	// Zone touch latches.
	ResistanceTouched bool
	SupportTouched    bool

	// One-shot candidate trackers for S4/S7 breakout and S8 breakdown.
	// The candidate records persist across bars within the week; the fired
	// latches make each trigger fire at most once per week.
	S4BreakoutCandleHigh *float64
	S4BreakoutFired      bool
	S8BreakdownCandleLow *float64
	S8BreakdownFired     bool

	// At-most-one-signal-per-week latch.
	SignalTriggered bool
	TriggeredType   domain.SignalType
	TriggeredAt     time.Time
}

// NewContext creates the context for the week starting at weekStart. Zones
// may be nil when the previous week could not produce them; the signal engine
// then skips evaluation for the whole week.
func NewContext(weekStart time.Time, zones *domain.WeeklyZones, bias domain.WeeklyBias) *Context {
	return &Context{
		WeekStart: weekStart,
		Zones:     zones,
		Bias:      bias,
	}
}

// Update folds a completed bar into the context. Must be called exactly once
// per bar, before signal evaluation for that bar.
func (c *Context) Update(bar *domain.Bar) {
	if c.FirstHourBar == nil {
		c.FirstHourBar = bar
		c.MaxHigh = bar.High
		c.MinLow = bar.Low
		c.MaxClose = bar.Close
		c.MinClose = bar.Close
	} else {
		if bar.High > c.MaxHigh {
			c.MaxHigh = bar.High
		}
		if bar.Low < c.MinLow {
			c.MinLow = bar.Low
		}
		if bar.Close > c.MaxClose {
			c.MaxClose = bar.Close
		}
		if bar.Close < c.MinClose {
			c.MinClose = bar.Close
		}
	}

	c.Bars = append(c.Bars, bar)

	if c.Zones != nil {
		if bar.High >= c.Zones.Resistance.Bottom {
			c.ResistanceTouched = true
		}
		if bar.Low <= c.Zones.Support.Top {
			c.SupportTouched = true
		}
	}
}

// CurrentBar returns the most recently applied bar, or nil before the first
// update.
func (c *Context) CurrentBar() *domain.Bar {
	if len(c.Bars) == 0 {
		return nil
	}
	return c.Bars[len(c.Bars)-1]
}

// FirstBar returns the week's first bar, or nil before the first update.
func (c *Context) FirstBar() *domain.Bar {
	if len(c.Bars) == 0 {
		return nil
	}
	return c.Bars[0]
}

// IsSecondBar reports whether the current bar is the week's second.
func (c *Context) IsSecondBar() bool {
	return len(c.Bars) == 2
}

// PriorBars returns this week's bars excluding the current one.
func (c *Context) PriorBars() []*domain.Bar {
	if len(c.Bars) < 2 {
		return nil
	}
	return c.Bars[:len(c.Bars)-1]
}

// PriorExtremes returns max high, min low, max close, min close over this
// week's bars excluding the current one. ok is false when fewer than two bars
// have been seen.
func (c *Context) PriorExtremes() (maxHigh, minLow, maxClose, minClose float64, ok bool) {
	prior := c.PriorBars()
	if len(prior) == 0 {
		return 0, 0, 0, 0, false
	}
	maxHigh, minLow = prior[0].High, prior[0].Low
	maxClose, minClose = prior[0].Close, prior[0].Close
	for _, b := range prior[1:] {
		if b.High > maxHigh {
			maxHigh = b.High
		}
		if b.Low < minLow {
			minLow = b.Low
		}
		if b.Close > maxClose {
			maxClose = b.Close
		}
		if b.Close < minClose {
			minClose = b.Close
		}
	}
	return maxHigh, minLow, maxClose, minClose, true
}

// MarkTriggered latches the one-signal-per-week flag.
func (c *Context) MarkTriggered(sig domain.SignalType, at time.Time) {
	c.SignalTriggered = true
	c.TriggeredType = sig
	c.TriggeredAt = at
}
