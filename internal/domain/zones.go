package domain

// Zone is a price band used as support or resistance.
// Invariant: Top >= Bottom.
type Zone struct {
	Top    float64
	Bottom float64
}

// Width returns the zone height.
func (z Zone) Width() float64 {
	return z.Top - z.Bottom
}

// Contains reports whether price lies inside the zone (inclusive).
func (z Zone) Contains(price float64) bool {
	return price >= z.Bottom && price <= z.Top
}

// WeeklyZones holds the support/resistance bands derived from the previous
// week's bars. Immutable for the duration of the week.
type WeeklyZones struct {
	Resistance Zone // upper zone: weekly high vs max 4h bucket body top
	Support    Zone // lower zone: weekly low vs min 4h bucket body bottom

	// Margins are 3x the respective zone width, floored at 5x min tick.
	ResistanceMargin float64
	SupportMargin    float64

	// Raw previous-week levels.
	PrevWeekHigh  float64
	PrevWeekLow   float64
	PrevWeekClose float64

	// Extreme 4h bucket bodies, retained for bias computation.
	MaxBodyTop    float64
	MinBodyBottom float64
}

// WeeklyBias is the week's directional lean.
type WeeklyBias string

// Bias constants.
const (
	BiasBullish WeeklyBias = "BULLISH"
	BiasBearish WeeklyBias = "BEARISH"
	BiasNeutral WeeklyBias = "NEUTRAL"
)
