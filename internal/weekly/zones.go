package weekly

import (
	"math"
	"sort"

	"weekly-options-lab/internal/domain"
)

// marginMultiple and minTickFloor define the zone margin formula:
// margin = 3 * zone width, floored at 5 * min tick.
const (
	marginMultiple = 3.0
	minTickFloor   = 5.0
)

// fourHourBucket identifies a fixed 4-hour slot within a trading day.
type fourHourBucket struct {
	year   int
	day    int // day of year
	bucket int // hour / 4
}

// CalculateZones derives weekly zones from the complete set of bars for the
// immediately preceding week. Pure: identical inputs always produce identical
// zones. Returns a WeekDataError wrapping ErrInsufficientData when the
// previous week has no bars.
func CalculateZones(prevWeekBars []*domain.Bar, minTick float64) (*domain.WeeklyZones, error) {
	if len(prevWeekBars) == 0 {
		return nil, domain.ErrInsufficientData
	}

	bars := make([]*domain.Bar, len(prevWeekBars))
	copy(bars, prevWeekBars)
	sort.SliceStable(bars, func(i, j int) bool {
		return bars[i].Timestamp.Before(bars[j].Timestamp)
	})

	weekHigh := bars[0].High
	weekLow := bars[0].Low
	for _, b := range bars {
		if b.High > weekHigh {
			weekHigh = b.High
		}
		if b.Low < weekLow {
			weekLow = b.Low
		}
	}
	weekClose := bars[len(bars)-1].Close

	maxBodyTop, minBodyBottom := bucketBodies(bars)

	resistance := domain.Zone{
		Top:    math.Max(weekHigh, maxBodyTop),
		Bottom: math.Min(weekHigh, maxBodyTop),
	}
	support := domain.Zone{
		Top:    math.Max(weekLow, minBodyBottom),
		Bottom: math.Min(weekLow, minBodyBottom),
	}

	return &domain.WeeklyZones{
		Resistance:       resistance,
		Support:          support,
		ResistanceMargin: zoneMargin(resistance, minTick),
		SupportMargin:    zoneMargin(support, minTick),
		PrevWeekHigh:     weekHigh,
		PrevWeekLow:      weekLow,
		PrevWeekClose:    weekClose,
		MaxBodyTop:       maxBodyTop,
		MinBodyBottom:    minBodyBottom,
	}, nil
}

// bucketBodies partitions the week into fixed 4-hour buckets (hour / 4 per
// day) and computes each bucket's body from its first open and last close.
// Returns the max body top and min body bottom across all buckets.
func bucketBodies(bars []*domain.Bar) (maxTop, minBottom float64) {
	type body struct {
		open  float64
		close float64
	}
	buckets := make(map[fourHourBucket]*body)
	order := make([]fourHourBucket, 0, len(bars))

	for _, b := range bars {
		key := fourHourBucket{
			year:   b.Timestamp.Year(),
			day:    b.Timestamp.YearDay(),
			bucket: b.Timestamp.Hour() / 4,
		}
		if cur, ok := buckets[key]; ok {
			cur.close = b.Close
		} else {
			buckets[key] = &body{open: b.Open, close: b.Close}
			order = append(order, key)
		}
	}

	first := buckets[order[0]]
	maxTop = math.Max(first.open, first.close)
	minBottom = math.Min(first.open, first.close)
	for _, key := range order[1:] {
		b := buckets[key]
		top := math.Max(b.open, b.close)
		bottom := math.Min(b.open, b.close)
		if top > maxTop {
			maxTop = top
		}
		if bottom < minBottom {
			minBottom = bottom
		}
	}
	return maxTop, minBottom
}

// zoneMargin applies the margin formula to one zone.
func zoneMargin(z domain.Zone, minTick float64) float64 {
	margin := marginMultiple * z.Width()
	floor := minTickFloor * minTick
	if margin < floor {
		return floor
	}
	return margin
}

// ComputeBias picks the week's lean by comparing the previous close's
// distance to the extreme 4h bucket bodies: the closer side wins, closer to
// the resistance body means BEARISH, closer to the support body means
// BULLISH, equal distance means NEUTRAL.
func ComputeBias(zones *domain.WeeklyZones) domain.WeeklyBias {
	distResistance := math.Abs(zones.PrevWeekClose - zones.MaxBodyTop)
	distSupport := math.Abs(zones.PrevWeekClose - zones.MinBodyBottom)

	switch {
	case distResistance < distSupport:
		return domain.BiasBearish
	case distSupport < distResistance:
		return domain.BiasBullish
	default:
		return domain.BiasNeutral
	}
}
