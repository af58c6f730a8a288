// Package prediction defines the ML prediction collaborator. Predictions are
// advisory: the lifecycle controller decides whether to act, and the
// predictor never mutates core state.
package prediction

import (
	"context"

	"weekly-options-lab/internal/domain"
)

// Action is the recommended action for an open trade.
type Action string

// Action constants.
const (
	ActionHold Action = "HOLD"
	ActionExit Action = "EXIT"
)

// State is the read-only trade snapshot handed to the predictor.
type State struct {
	SignalType   domain.SignalType
	Direction    domain.Direction
	TradingDay   int
	CurrentPnl   float64 // fraction of max receivable profit
	SpotDistance float64 // fraction of spot between price and stop
}

// Prediction is the predictor's recommendation.
type Prediction struct {
	Action     Action
	Confidence float64
}

// Predictor recommends an action for an open trade.
type Predictor interface {
	Predict(ctx context.Context, state State) (Prediction, error)
}

// StaticPredictor always recommends HOLD; the default when no model is
// wired in.
type StaticPredictor struct{}

// NewStaticPredictor creates the default no-op predictor.
func NewStaticPredictor() *StaticPredictor {
	return &StaticPredictor{}
}

// Predict implements Predictor.
func (p *StaticPredictor) Predict(_ context.Context, _ State) (Prediction, error) {
	return Prediction{Action: ActionHold, Confidence: 1}, nil
}

var _ Predictor = (*StaticPredictor)(nil)
