package signals

import (
	"TradeDesk/internal/domain/models"
	"TradeDesk/internal/services/features"
)

// SMACrossover votes with the short average relative to the long one,
// confirmed by the close being on the same side of the short average.
type SMACrossover struct {
	Short int
	Long  int
}

func NewSMACrossover() *SMACrossover {
	return &SMACrossover{Short: 20, Long: 50}
}

func (g *SMACrossover) Name() string { return "sma" }

func (g *SMACrossover) Evaluate(candles []models.Candle) models.Signal {
	if len(candles) < g.Long {
		return models.HoldSignal()
	}
	closes := models.Closes(candles)
	short, _ := features.SMA(closes, g.Short)
	long, _ := features.SMA(closes, g.Long)
	last := closes[len(closes)-1]
	if long <= 0 {
		return models.HoldSignal()
	}

	switch {
	case short > long && last > short:
		return models.NewSignal(models.Buy, (short-long)/long*100)
	case short < long && last < short:
		return models.NewSignal(models.Sell, (long-short)/long*100)
	default:
		return models.HoldSignal()
	}
}
