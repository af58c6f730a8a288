package weekly

import (
	"testing"
	"time"

	"weekly-options-lab/internal/domain"
)

func TestWeekStart_Boundary(t *testing.T) {
	tests := []struct {
		name string
		at   time.Time
		want time.Time
	}{
		{
			"monday morning maps to prior sunday",
			time.Date(2025, 3, 3, 9, 15, 0, 0, testLoc), // Monday
			time.Date(2025, 3, 2, 9, 15, 0, 0, testLoc), // Sunday
		},
		{
			"sunday after boundary starts new week",
			time.Date(2025, 3, 2, 10, 0, 0, 0, testLoc),
			time.Date(2025, 3, 2, 9, 15, 0, 0, testLoc),
		},
		{
			"sunday before boundary belongs to prior week",
			time.Date(2025, 3, 2, 8, 0, 0, 0, testLoc),
			time.Date(2025, 2, 23, 9, 15, 0, 0, testLoc),
		},
		{
			"friday close still same week",
			time.Date(2025, 3, 7, 15, 0, 0, 0, testLoc),
			time.Date(2025, 3, 2, 9, 15, 0, 0, testLoc),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := WeekStart(tt.at); !got.Equal(tt.want) {
				t.Errorf("WeekStart(%v) = %v, want %v", tt.at, got, tt.want)
			}
		})
	}
}

func TestSameWeek(t *testing.T) {
	mon := time.Date(2025, 3, 3, 10, 0, 0, 0, testLoc)
	fri := time.Date(2025, 3, 7, 14, 0, 0, 0, testLoc)
	nextMon := time.Date(2025, 3, 10, 10, 0, 0, 0, testLoc)

	if !SameWeek(mon, fri) {
		t.Error("monday and friday should share a week")
	}
	if SameWeek(fri, nextMon) {
		t.Error("friday and next monday should not share a week")
	}
}

func TestTradingDay_SkipsWeekends(t *testing.T) {
	entry := time.Date(2025, 3, 3, 10, 0, 0, 0, testLoc) // Monday

	tests := []struct {
		name string
		at   time.Time
		want int
	}{
		{"entry day", entry, 1},
		{"same day later", entry.Add(4 * time.Hour), 1},
		{"tuesday", entry.AddDate(0, 0, 1), 2},
		{"thursday", entry.AddDate(0, 0, 3), 4},
		{"next monday skips weekend", entry.AddDate(0, 0, 7), 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TradingDay(entry, tt.at); got != tt.want {
				t.Errorf("TradingDay = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestContext_Update(t *testing.T) {
	zones := &domain.WeeklyZones{
		Resistance: domain.Zone{Top: 25500, Bottom: 25450},
		Support:    domain.Zone{Top: 25050, Bottom: 25000},
	}
	mon := time.Date(2025, 3, 3, 10, 0, 0, 0, testLoc)
	ctx := NewContext(WeekStart(mon), zones, domain.BiasBullish)

	first := makeBar(mon, 25200, 25300, 25180, 25250)
	ctx.Update(first)

	if ctx.FirstHourBar != first {
		t.Fatal("first bar must become the first-hour bar")
	}
	if ctx.MaxHigh != 25300 || ctx.MinLow != 25180 {
		t.Errorf("running extremes %v/%v after first bar", ctx.MaxHigh, ctx.MinLow)
	}

	second := makeBar(mon.Add(time.Hour), 25250, 25470, 25020, 25400)
	ctx.Update(second)

	if ctx.FirstHourBar != first {
		t.Error("first-hour bar must persist across updates")
	}
	if ctx.MaxHigh != 25470 || ctx.MinLow != 25020 {
		t.Errorf("running extremes %v/%v after second bar", ctx.MaxHigh, ctx.MinLow)
	}
	if !ctx.ResistanceTouched {
		t.Error("high 25470 >= resistance bottom 25450 must latch touch")
	}
	if !ctx.SupportTouched {
		t.Error("low 25020 <= support top 25050 must latch touch")
	}
	if !ctx.IsSecondBar() {
		t.Error("IsSecondBar after two updates")
	}

	maxHigh, minLow, maxClose, minClose, ok := ctx.PriorExtremes()
	if !ok {
		t.Fatal("PriorExtremes should be available")
	}
	if maxHigh != 25300 || minLow != 25180 || maxClose != 25250 || minClose != 25250 {
		t.Errorf("prior extremes exclude current bar: got %v/%v/%v/%v",
			maxHigh, minLow, maxClose, minClose)
	}
}

func TestContext_TriggerLatch(t *testing.T) {
	mon := time.Date(2025, 3, 3, 10, 0, 0, 0, testLoc)
	ctx := NewContext(WeekStart(mon), nil, domain.BiasNeutral)

	if ctx.SignalTriggered {
		t.Fatal("new context must start unlatched")
	}
	ctx.MarkTriggered(domain.SignalS3, mon)
	if !ctx.SignalTriggered || ctx.TriggeredType != domain.SignalS3 {
		t.Error("latch should record the winning signal")
	}
}
