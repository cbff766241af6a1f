package signals

import (
	"TradeDesk/internal/domain/models"
	"TradeDesk/internal/services/features"
)

// RSIThreshold votes against overbought and oversold momentum.
type RSIThreshold struct {
	Period     int
	Oversold   float64
	Overbought float64
}

func NewRSIThreshold() *RSIThreshold {
	return &RSIThreshold{Period: 14, Oversold: 30, Overbought: 70}
}

func (g *RSIThreshold) Name() string { return "rsi" }

func (g *RSIThreshold) Evaluate(candles []models.Candle) models.Signal {
	if len(candles) < g.Period+1 {
		return models.HoldSignal()
	}
	rsi, ok := features.RSI(models.Closes(candles), g.Period)
	if !ok {
		return models.HoldSignal()
	}
	return g.fromRSI(rsi)
}

// fromRSI maps an RSI reading to a vote. Confidence grows linearly with the
// distance past the threshold, reaching 100 at 0 and 100 respectively.
func (g *RSIThreshold) fromRSI(rsi float64) models.Signal {
	switch {
	case rsi < g.Oversold:
		return models.NewSignal(models.Buy, (g.Oversold-rsi)/g.Oversold*100)
	case rsi > g.Overbought:
		return models.NewSignal(models.Sell, (rsi-g.Overbought)/(100-g.Overbought)*100)
	default:
		return models.HoldSignal()
	}
}
