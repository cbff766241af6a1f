package service

import "TradeDesk/internal/domain/models"

// SignalGenerator turns a candle series into a directional vote. Implementations
// are pure: the same series always yields the same signal.
type SignalGenerator interface {
	Name() string
	Evaluate(candles []models.Candle) models.Signal
}
