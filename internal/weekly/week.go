// Package weekly derives support/resistance zones and directional bias from
// the previous trading week and tracks the mutable per-week context the
// signal engine evaluates against.
package weekly

import "time"

// Week boundary: a new trading week begins Sunday 09:15 exchange time.
const (
	boundaryHour   = 9
	boundaryMinute = 15
)

// WeekStart returns the start of the trading week containing t: the most
// recent Sunday 09:15 at or before t, in t's location.
func WeekStart(t time.Time) time.Time {
	daysBack := int(t.Weekday() - time.Sunday)
	candidate := time.Date(t.Year(), t.Month(), t.Day()-daysBack,
		boundaryHour, boundaryMinute, 0, 0, t.Location())
	if t.Before(candidate) {
		candidate = candidate.AddDate(0, 0, -7)
	}
	return candidate
}

// SameWeek reports whether two timestamps fall in the same trading week.
func SameWeek(a, b time.Time) bool {
	return WeekStart(a).Equal(WeekStart(b))
}

// SameDay reports whether two timestamps fall on the same calendar day.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// TradingDay returns the 1-indexed trading day of t relative to entry,
// counting only weekdays. Entry day is day 1.
func TradingDay(entry, t time.Time) int {
	if t.Before(entry) {
		return 1
	}
	day := 1
	cur := time.Date(entry.Year(), entry.Month(), entry.Day(), 0, 0, 0, 0, entry.Location())
	end := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	for cur.Before(end) {
		cur = cur.AddDate(0, 0, 1)
		if cur.Weekday() == time.Saturday || cur.Weekday() == time.Sunday {
			continue
		}
		day++
	}
	return day
}
