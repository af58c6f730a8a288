package stoploss

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

var testLoc = time.FixedZone("IST", 5*3600+1800)

func d(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func newTestMachine() *Machine {
	// 10 lots, 1000 per lot: initial stop -10000. Max profit 44200.
	return NewMachine(DefaultConfig(), 10, d(44200))
}

func TestMachine_InitialStop(t *testing.T) {
	m := newTestMachine()

	if m.Stage() != StageInitial {
		t.Fatalf("stage %s, want INITIAL", m.Stage())
	}
	if !m.StopLevel().Equal(d(-10000)) {
		t.Errorf("initial stop %s, want -10000", m.StopLevel())
	}

	now := time.Date(2025, 3, 3, 11, 0, 0, 0, testLoc)
	if m.Update(now, 1, d(-5000)) {
		t.Error("pnl -5000 must not hit a -10000 stop")
	}
	if m.Update(now, 1, d(-10000)) != true {
		t.Error("pnl at the stop level must hit")
	}
}

func TestMachine_Day2HalfStage(t *testing.T) {
	m := newTestMachine()

	morning := time.Date(2025, 3, 4, 11, 0, 0, 0, testLoc)
	m.Update(morning, 2, d(-1000))
	if m.Stage() != StageInitial {
		t.Fatal("day 2 before 13:00 must not advance")
	}

	afternoon := time.Date(2025, 3, 4, 13, 0, 0, 0, testLoc)
	m.Update(afternoon, 2, d(-1000))
	if m.Stage() != StageHalf {
		t.Fatalf("stage %s, want HALF", m.Stage())
	}
	if !m.StopLevel().Equal(d(-5000)) {
		t.Errorf("half stop %s, want -5000", m.StopLevel())
	}
}

func TestMachine_Day3Breakeven(t *testing.T) {
	m := newTestMachine()

	now := time.Date(2025, 3, 5, 10, 0, 0, 0, testLoc)
	hit := m.Update(now, 3, d(-100))
	if m.Stage() != StageBreakeven {
		t.Fatalf("stage %s, want BREAKEVEN", m.Stage())
	}
	if !m.StopLevel().Equal(decimal.Zero) {
		t.Errorf("breakeven stop %s, want 0", m.StopLevel())
	}
	if !hit {
		t.Error("negative pnl at breakeven must hit")
	}
}

func TestMachine_Day4ProfitLock(t *testing.T) {
	m := newTestMachine()

	now := time.Date(2025, 3, 6, 10, 0, 0, 0, testLoc)
	m.Update(now, 4, d(20000))
	if m.Stage() != StageProfitLock {
		t.Fatalf("stage %s, want PROFIT_LOCK", m.Stage())
	}
	// 30% of 44200.
	if !m.StopLevel().Equal(d(13260)) {
		t.Errorf("profit lock stop %s, want 13260", m.StopLevel())
	}

	if !m.Update(now.Add(time.Hour), 4, d(13000)) {
		t.Error("pnl below locked profit must hit")
	}
}

func TestMachine_ProfitTriggerPreemptsTimeRules(t *testing.T) {
	m := newTestMachine()

	// Day 1, pnl at 60% of max profit: jumps straight to BREAKEVEN.
	now := time.Date(2025, 3, 3, 12, 0, 0, 0, testLoc)
	m.Update(now, 1, d(26520))
	if m.Stage() != StageBreakeven {
		t.Fatalf("stage %s, want BREAKEVEN via profit trigger", m.Stage())
	}

	history := m.History()
	if len(history) != 1 || history[0].Trigger != "profit trigger" {
		t.Errorf("unexpected history %+v", history)
	}
}

func TestMachine_NoRegression(t *testing.T) {
	m := newTestMachine()

	// Reach breakeven via profit trigger on day 1.
	now := time.Date(2025, 3, 3, 12, 0, 0, 0, testLoc)
	m.Update(now, 1, d(30000))
	if m.Stage() != StageBreakeven {
		t.Fatal("setup should reach BREAKEVEN")
	}

	// A later day-2 afternoon must not fall back to HALF.
	day2 := time.Date(2025, 3, 4, 14, 0, 0, 0, testLoc)
	m.Update(day2, 2, d(1000))
	if m.Stage() != StageBreakeven {
		t.Fatalf("stage %s regressed from BREAKEVEN", m.Stage())
	}

	// Stage order must be monotone across an arbitrary update sequence.
	prev := m.Stage()
	days := []int{2, 3, 3, 4, 4, 5}
	for i, day := range days {
		m.Update(day2.Add(time.Duration(i)*time.Hour), day, d(1000))
		if m.Stage() < prev {
			t.Fatalf("stage regressed from %s to %s", prev, m.Stage())
		}
		prev = m.Stage()
	}
}

func TestMachine_StopOnlyChangesOnTransition(t *testing.T) {
	m := newTestMachine()
	now := time.Date(2025, 3, 3, 10, 0, 0, 0, testLoc)

	before := m.StopLevel()
	for i := 0; i < 5; i++ {
		m.Update(now.Add(time.Duration(i)*time.Hour), 1, d(500))
	}
	if !m.StopLevel().Equal(before) {
		t.Error("stop level changed without a recorded transition")
	}
	if len(m.History()) != 0 {
		t.Errorf("unexpected transitions %+v", m.History())
	}
}
