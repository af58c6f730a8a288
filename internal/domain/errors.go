package domain

import (
	"errors"
	"fmt"
	"time"
)

// Domain errors.
var (
	// ErrInvalidBar is returned for implausible OHLC data. The offending bar
	// is skipped; the run continues.
	ErrInvalidBar = errors.New("invalid bar data")

	// ErrInsufficientData is returned when a week has no bars to derive
	// zones from. Fatal to that week's evaluation only.
	ErrInsufficientData = errors.New("insufficient data for weekly zones")
)

// WeekDataError wraps ErrInsufficientData with the offending week start so a
// failed run can name the week that could not be evaluated.
type WeekDataError struct {
	WeekStart time.Time
	Err       error
}

func (e *WeekDataError) Error() string {
	return fmt.Sprintf("week %s: %v", e.WeekStart.Format("2006-01-02"), e.Err)
}

func (e *WeekDataError) Unwrap() error {
	return e.Err
}
