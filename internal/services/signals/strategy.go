package signals

import (
	"fmt"

	"TradeDesk/internal/domain/models"
	"TradeDesk/internal/domain/service"
)

const (
	StrategySMA       = "sma"
	StrategyRSI       = "rsi"
	StrategyBollinger = "bollinger"
	StrategyCombined  = "combined"
)

// New resolves a strategy by name.
func New(name string) (service.SignalGenerator, error) {
	switch name {
	case StrategySMA:
		return NewSMACrossover(), nil
	case StrategyRSI:
		return NewRSIThreshold(), nil
	case StrategyBollinger:
		return NewBollingerBands(), nil
	case StrategyCombined, "":
		return NewCombinator(), nil
	default:
		return nil, fmt.Errorf("%w: %q", models.ErrUnknownStrategy, name)
	}
}

// Preview evaluates every base generator plus the given strategy.
func Preview(strategy service.SignalGenerator, candles []models.Candle) (models.Signal, map[string]models.Signal) {
	out := make(map[string]models.Signal, 3)
	for _, g := range NewCombinator().Members() {
		out[g.Name()] = g.Evaluate(candles)
	}
	return strategy.Evaluate(candles), out
}
