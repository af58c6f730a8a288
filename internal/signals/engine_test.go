package signals

import (
	"testing"
	"time"

	"weekly-options-lab/internal/domain"
	"weekly-options-lab/internal/weekly"
)

var testLoc = time.FixedZone("IST", 5*3600+1800)

// Monday of a fixed test week.
var monday = time.Date(2025, 3, 3, 9, 0, 0, 0, testLoc)

func testZones() *domain.WeeklyZones {
	return &domain.WeeklyZones{
		Resistance:       domain.Zone{Top: 25500, Bottom: 25450},
		Support:          domain.Zone{Top: 25050, Bottom: 25000},
		ResistanceMargin: 150,
		SupportMargin:    150,
		PrevWeekHigh:     25500,
		PrevWeekLow:      25000,
		PrevWeekClose:    25300,
		MaxBodyTop:       25450,
		MinBodyBottom:    25050,
	}
}

func newTestContext(bias domain.WeeklyBias) *weekly.Context {
	return weekly.NewContext(weekly.WeekStart(monday), testZones(), bias)
}

func bar(ts time.Time, open, high, low, close float64) *domain.Bar {
	return &domain.Bar{Timestamp: ts, Open: open, High: high, Low: low, Close: close, Volume: 1000}
}

// feed updates the context and evaluates one bar, mirroring the driver's
// per-bar order.
func feed(e *Engine, ctx *weekly.Context, b *domain.Bar) domain.SignalResult {
	ctx.Update(b)
	return e.Evaluate(b, ctx, b.Timestamp.Add(time.Hour))
}

func TestEngine_NoZonesNoSignal(t *testing.T) {
	e := NewEngine(50)
	ctx := weekly.NewContext(weekly.WeekStart(monday), nil, domain.BiasNeutral)

	res := feed(e, ctx, bar(monday, 25100, 25200, 25050, 25150))
	if res.Triggered {
		t.Fatal("no zones must mean no signal")
	}
}

func TestEngine_BearTrap(t *testing.T) {
	e := NewEngine(50)
	ctx := newTestContext(domain.BiasNeutral)

	// First bar opens above support bottom, closes below it.
	first := bar(monday, 25100, 25120, 24900, 24980)
	if res := feed(e, ctx, first); res.Triggered {
		t.Fatal("no signal may fire on the week's first bar")
	}

	// Second bar recovers above the first bar's low.
	res := feed(e, ctx, bar(monday.Add(time.Hour), 24980, 25060, 24950, 25040))
	if !res.Triggered || res.Type != domain.SignalS1 {
		t.Fatalf("expected S1, got %+v", res)
	}
	if res.Direction != domain.DirectionBullish || res.Side != domain.SidePut {
		t.Errorf("S1 must sell puts, got %s/%s", res.Direction, res.Side)
	}

	// Stop loss: first-bar low minus first-bar body (25100-24980 = 120).
	if res.StopLoss != 24780 {
		t.Errorf("stop loss %v, want 24780", res.StopLoss)
	}
	// Bullish strike rounds down to the 50-point grid.
	if res.Strike != 24750 {
		t.Errorf("strike %v, want 24750", res.Strike)
	}
	if !ctx.SignalTriggered || ctx.TriggeredType != domain.SignalS1 {
		t.Error("trigger must latch the weekly context")
	}
}

func TestEngine_PriorityS1BeatsS3(t *testing.T) {
	e := NewEngine(50)
	ctx := newTestContext(domain.BiasBearish)

	// First bar satisfies both setups: opened above support bottom and
	// closed below it (S1), touched the resistance zone and was rejected
	// (S3). The second bar closes inside (first low, first close), which
	// confirms both.
	feed(e, ctx, bar(monday, 25100, 25460, 24900, 24980))
	res := feed(e, ctx, bar(monday.Add(time.Hour), 24980, 25000, 24930, 24950))

	if !res.Triggered {
		t.Fatal("expected a signal")
	}
	if res.Type != domain.SignalS1 {
		t.Fatalf("priority order broken: got %s, want S1", res.Type)
	}
}

func TestEngine_AtMostOneSignalPerWeek(t *testing.T) {
	e := NewEngine(50)
	ctx := newTestContext(domain.BiasNeutral)

	feed(e, ctx, bar(monday, 25100, 25120, 24900, 24980))
	first := feed(e, ctx, bar(monday.Add(time.Hour), 24980, 25060, 24950, 25040))
	if !first.Triggered {
		t.Fatal("setup should trigger S1")
	}

	triggeredCount := 1
	ts := monday.Add(2 * time.Hour)
	for i := 0; i < 20; i++ {
		res := feed(e, ctx, bar(ts, 25040, 25600, 24500, 24600))
		if res.Triggered {
			triggeredCount++
		}
		ts = ts.Add(time.Hour)
	}
	if triggeredCount != 1 {
		t.Errorf("got %d signals in one week, want exactly 1", triggeredCount)
	}
}

func TestEngine_SupportHold(t *testing.T) {
	e := NewEngine(50)
	ctx := newTestContext(domain.BiasBullish)

	// Opened near prev close, dipped into the support band, closed back
	// above the zone.
	feed(e, ctx, bar(monday, 25300, 25320, 25020, 25200))
	res := feed(e, ctx, bar(monday.Add(time.Hour), 25200, 25260, 25150, 25250))

	if !res.Triggered || res.Type != domain.SignalS2 {
		t.Fatalf("expected S2, got %+v", res)
	}
	if res.StopLoss != 25000 {
		t.Errorf("stop loss %v, want support bottom 25000", res.StopLoss)
	}
}

func TestEngine_SupportHold_RequiresBullishBias(t *testing.T) {
	e := NewEngine(50)
	ctx := newTestContext(domain.BiasBearish)

	feed(e, ctx, bar(monday, 25300, 25320, 25020, 25200))
	res := feed(e, ctx, bar(monday.Add(time.Hour), 25200, 25260, 25150, 25250))
	if res.Triggered && res.Type == domain.SignalS2 {
		t.Fatal("S2 must not fire without a bullish bias")
	}
}

func TestEngine_ResistanceHold_LateBreakdown(t *testing.T) {
	e := NewEngine(50)
	ctx := newTestContext(domain.BiasBearish)

	feed(e, ctx, bar(monday, 25300, 25350, 25200, 25280))
	feed(e, ctx, bar(monday.Add(time.Hour), 25280, 25330, 25210, 25260))
	// Close below all prior weekly lows and closes, and below resistance
	// bottom.
	res := feed(e, ctx, bar(monday.Add(2*time.Hour), 25260, 25270, 25100, 25150))

	if !res.Triggered || res.Type != domain.SignalS3 {
		t.Fatalf("expected S3, got %+v", res)
	}
	if res.StopLoss != 25500 {
		t.Errorf("stop loss %v, want prev week high 25500", res.StopLoss)
	}
	if res.Side != domain.SideCall {
		t.Errorf("bearish signal must sell calls, got %s", res.Side)
	}
	// Bearish strike rounds up.
	if res.Strike != 25500 {
		t.Errorf("strike %v, want 25500", res.Strike)
	}
}

func TestEngine_BiasFailureBullish(t *testing.T) {
	e := NewEngine(50)
	ctx := newTestContext(domain.BiasBearish)

	// Bearish week gaps open above resistance top.
	feed(e, ctx, bar(monday, 25550, 25600, 25520, 25580))
	// Same-day close above the first-hour high fires the breakout tracker.
	res := feed(e, ctx, bar(monday.Add(time.Hour), 25580, 25650, 25560, 25620))

	if !res.Triggered || res.Type != domain.SignalS4 {
		t.Fatalf("expected S4, got %+v", res)
	}
	if res.StopLoss != 25520 {
		t.Errorf("stop loss %v, want first-hour low 25520", res.StopLoss)
	}
	if res.Direction != domain.DirectionBullish {
		t.Errorf("S4 is bullish, got %s", res.Direction)
	}
}

func TestEngine_BiasFailureBearish(t *testing.T) {
	e := NewEngine(50)
	ctx := newTestContext(domain.BiasBullish)

	// Bullish week gaps below support bottom; first hour closes below the
	// previous-week low.
	feed(e, ctx, bar(monday, 24900, 24950, 24850, 24880))
	res := feed(e, ctx, bar(monday.Add(time.Hour), 24880, 24890, 24800, 24830))

	if !res.Triggered || res.Type != domain.SignalS5 {
		t.Fatalf("expected S5, got %+v", res)
	}
	if res.StopLoss != 24950 {
		t.Errorf("stop loss %v, want first-hour high 24950", res.StopLoss)
	}
}

func TestEngine_WeaknessConfirmed(t *testing.T) {
	e := NewEngine(50)
	ctx := newTestContext(domain.BiasBearish)

	// First bar stalls inside the resistance zone (close within the zone,
	// so S3's rejection branch stays quiet).
	feed(e, ctx, bar(monday, 25440, 25490, 25420, 25470))
	res := feed(e, ctx, bar(monday.Add(time.Hour), 25470, 25475, 25390, 25400))

	if !res.Triggered || res.Type != domain.SignalS6 {
		t.Fatalf("expected S6, got %+v", res)
	}
	if res.StopLoss != 25500 {
		t.Errorf("stop loss %v, want prev week high 25500", res.StopLoss)
	}
}

func TestEngine_BreakoutConfirmed(t *testing.T) {
	e := NewEngine(50)
	ctx := newTestContext(domain.BiasNeutral)

	tuesday := monday.AddDate(0, 0, 1)
	feed(e, ctx, bar(monday, 25100, 25200, 25050, 25150))
	feed(e, ctx, bar(monday.Add(time.Hour), 25150, 25190, 25120, 25180))
	// Tuesday candidate: bullish, closes above the first-hour high, makes
	// a new weekly high.
	if res := feed(e, ctx, bar(tuesday, 25180, 25260, 25170, 25250)); res.Triggered {
		t.Fatalf("candidate bar must not trigger, got %s", res.Type)
	}
	// Close above the candidate high with a fresh weekly high/close.
	res := feed(e, ctx, bar(tuesday.Add(time.Hour), 25250, 25560, 25240, 25520))

	if !res.Triggered || res.Type != domain.SignalS7 {
		t.Fatalf("expected S7, got %+v", res)
	}
	if res.StopLoss != 25050 {
		t.Errorf("stop loss %v, want first-hour low 25050", res.StopLoss)
	}
}

func TestEngine_BreakoutConfirmed_TooCloseUnderPrevHigh(t *testing.T) {
	e := NewEngine(50)
	ctx := newTestContext(domain.BiasNeutral)

	tuesday := monday.AddDate(0, 0, 1)
	feed(e, ctx, bar(monday, 25100, 25200, 25050, 25150))
	feed(e, ctx, bar(monday.Add(time.Hour), 25150, 25190, 25120, 25180))
	feed(e, ctx, bar(tuesday, 25180, 25260, 25170, 25250))
	// 25480 is less than 0.40% under the previous-week high 25500.
	res := feed(e, ctx, bar(tuesday.Add(time.Hour), 25250, 25490, 25240, 25480))

	if res.Triggered {
		t.Fatalf("close too near the previous-week high must be rejected, got %s", res.Type)
	}
}

func TestEngine_BreakdownConfirmed(t *testing.T) {
	e := NewEngine(50)
	ctx := newTestContext(domain.BiasNeutral)

	tuesday := monday.AddDate(0, 0, 1)
	// First hour touches the resistance zone.
	feed(e, ctx, bar(monday, 25460, 25480, 25400, 25420))
	feed(e, ctx, bar(monday.Add(time.Hour), 25420, 25440, 25405, 25410))
	// Tuesday candidate: bearish, closes below the first-hour low, makes a
	// new weekly low.
	if res := feed(e, ctx, bar(tuesday, 25400, 25405, 25370, 25380)); res.Triggered {
		t.Fatalf("candidate bar must not trigger, got %s", res.Type)
	}
	// Close below the candidate low with a fresh weekly low/close.
	res := feed(e, ctx, bar(tuesday.Add(time.Hour), 25380, 25385, 25340, 25350))

	if !res.Triggered || res.Type != domain.SignalS8 {
		t.Fatalf("expected S8, got %+v", res)
	}
	if res.StopLoss != 25480 {
		t.Errorf("stop loss %v, want first-hour high 25480", res.StopLoss)
	}
	if res.Strike != 25500 {
		t.Errorf("strike %v, want 25500 (rounded up)", res.Strike)
	}
}

func TestRoundStrike(t *testing.T) {
	tests := []struct {
		price float64
		step  float64
		dir   domain.Direction
		want  float64
	}{
		{24780, 50, domain.DirectionBullish, 24750},
		{24800, 50, domain.DirectionBullish, 24800},
		{25480, 50, domain.DirectionBearish, 25500},
		{25500, 50, domain.DirectionBearish, 25500},
		{25480, 100, domain.DirectionBearish, 25500},
		{25480, 0, domain.DirectionBearish, 25480},
	}

	for _, tt := range tests {
		if got := RoundStrike(tt.price, tt.step, tt.dir); got != tt.want {
			t.Errorf("RoundStrike(%v, %v, %s) = %v, want %v",
				tt.price, tt.step, tt.dir, got, tt.want)
		}
	}
}
