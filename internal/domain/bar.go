package domain

import "time"

// Bar represents one hour's OHLC+volume sample.
// Bars are immutable once produced and ordered strictly by timestamp.
type Bar struct {
	Timestamp time.Time // bar open time, exchange timezone
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    int64
}

// BodyTop returns the higher of open and close.
func (b *Bar) BodyTop() float64 {
	if b.Close > b.Open {
		return b.Close
	}
	return b.Open
}

// BodyBottom returns the lower of open and close.
func (b *Bar) BodyBottom() float64 {
	if b.Close < b.Open {
		return b.Close
	}
	return b.Open
}

// BodySize returns the absolute open-to-close distance.
func (b *Bar) BodySize() float64 {
	return b.BodyTop() - b.BodyBottom()
}

// Range returns high minus low.
func (b *Bar) Range() float64 {
	return b.High - b.Low
}

// IsBullish reports whether the bar closed above its open.
func (b *Bar) IsBullish() bool {
	return b.Close > b.Open
}

// IsBearish reports whether the bar closed below its open.
func (b *Bar) IsBearish() bool {
	return b.Close < b.Open
}

// Validate checks OHLC plausibility. A bar failing validation is skipped,
// never fatal to a run.
func (b *Bar) Validate() error {
	if b.Timestamp.IsZero() {
		return ErrInvalidBar
	}
	if b.Open <= 0 || b.High <= 0 || b.Low <= 0 || b.Close <= 0 {
		return ErrInvalidBar
	}
	if b.High < b.Low {
		return ErrInvalidBar
	}
	if b.Open > b.High || b.Open < b.Low || b.Close > b.High || b.Close < b.Low {
		return ErrInvalidBar
	}
	if b.Volume < 0 {
		return ErrInvalidBar
	}
	return nil
}
