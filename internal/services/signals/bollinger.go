package signals

import (
	"TradeDesk/internal/domain/models"
	"TradeDesk/internal/services/features"
)

// BollingerBands votes when the close touches or leaves the band envelope.
type BollingerBands struct {
	Period int
	K      float64
}

func NewBollingerBands() *BollingerBands {
	return &BollingerBands{Period: 20, K: 2}
}

func (g *BollingerBands) Name() string { return "bollinger" }

func (g *BollingerBands) Evaluate(candles []models.Candle) models.Signal {
	if len(candles) < g.Period {
		return models.HoldSignal()
	}
	closes := models.Closes(candles)
	_, upper, lower, _ := features.Bands(closes, g.Period, g.K)
	width := upper - lower
	if width <= 0 {
		return models.HoldSignal()
	}
	last := closes[len(closes)-1]

	switch {
	case last <= lower:
		return models.NewSignal(models.Buy, (lower-last)/width*100)
	case last >= upper:
		return models.NewSignal(models.Sell, (last-upper)/width*100)
	default:
		return models.HoldSignal()
	}
}
