package domain

import "time"

// SignalType identifies one of the eight weekly signals.
type SignalType string

// Signal type constants, in strict priority order.
const (
	SignalS1 SignalType = "S1" // bear trap, bullish
	SignalS2 SignalType = "S2" // support hold, bullish
	SignalS3 SignalType = "S3" // resistance hold, bearish
	SignalS4 SignalType = "S4" // bias failure, bullish
	SignalS5 SignalType = "S5" // bias failure, bearish
	SignalS6 SignalType = "S6" // weakness confirmed, bearish
	SignalS7 SignalType = "S7" // breakout confirmed, bullish
	SignalS8 SignalType = "S8" // breakdown confirmed, bearish
)

// AllSignalTypes lists signal types in evaluation priority order.
var AllSignalTypes = []SignalType{
	SignalS1, SignalS2, SignalS3, SignalS4,
	SignalS5, SignalS6, SignalS7, SignalS8,
}

// Direction is the directional lean of a signal or trade.
type Direction string

// Direction constants.
const (
	DirectionBullish Direction = "BULLISH"
	DirectionBearish Direction = "BEARISH"
)

// OptionSide is CALL or PUT.
type OptionSide string

// Option side constants.
const (
	SideCall OptionSide = "CE"
	SidePut  OptionSide = "PE"
)

// SideForDirection returns the option side sold for a signal direction:
// bullish signals sell puts, bearish signals sell calls.
func SideForDirection(d Direction) OptionSide {
	if d == DirectionBullish {
		return SidePut
	}
	return SideCall
}

// SignalResult is the outcome of one engine evaluation. The zero value means
// no signal; a nil-check or exception is never used for the no-signal case.
type SignalResult struct {
	Triggered bool

	Type       SignalType
	Direction  Direction
	Side       OptionSide // side of the sold (main) option
	Strike     float64    // stop loss rounded to the exchange strike step
	StopLoss   float64    // spot stop price
	EntryTime  time.Time
	EntryPrice float64 // spot at trigger
	Confidence float64
	Reason     string
}

// NoSignal is the canonical not-triggered result.
var NoSignal = SignalResult{}
