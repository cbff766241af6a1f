package signals

import (
	"TradeDesk/internal/domain/models"
	"TradeDesk/internal/domain/service"
)

// Combinator aggregates member votes by majority with a minimum quorum.
// The winning side's confidence is the mean of its members' confidences.
type Combinator struct {
	members []service.SignalGenerator
	quorum  int
}

// NewCombinator builds the default ensemble of SMA, RSI and Bollinger.
func NewCombinator() *Combinator {
	return NewCombinatorOf(2, NewSMACrossover(), NewRSIThreshold(), NewBollingerBands())
}

// NewCombinatorOf builds an ensemble over arbitrary members.
func NewCombinatorOf(quorum int, members ...service.SignalGenerator) *Combinator {
	return &Combinator{members: members, quorum: quorum}
}

func (c *Combinator) Name() string { return "combined" }

// Members returns the ensemble's generators.
func (c *Combinator) Members() []service.SignalGenerator { return c.members }

func (c *Combinator) Evaluate(candles []models.Candle) models.Signal {
	votes := make([]models.Signal, 0, len(c.members))
	for _, m := range c.members {
		votes = append(votes, m.Evaluate(candles))
	}
	return Combine(votes, c.quorum)
}

// Combine reduces a set of votes into one signal.
func Combine(votes []models.Signal, quorum int) models.Signal {
	var buys, sells []float64
	for _, v := range votes {
		switch v.Direction {
		case models.Buy:
			buys = append(buys, v.Confidence)
		case models.Sell:
			sells = append(sells, v.Confidence)
		}
	}

	switch {
	case len(buys) > len(sells) && len(buys) >= quorum:
		return models.NewSignal(models.Buy, mean(buys))
	case len(sells) > len(buys) && len(sells) >= quorum:
		return models.NewSignal(models.Sell, mean(sells))
	default:
		return models.HoldSignal()
	}
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}
