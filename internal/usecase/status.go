package usecase

import (
	"context"
	"fmt"
	"sort"

	"TradeDesk/internal/domain/models"
	drepo "TradeDesk/internal/domain/repository"
	"TradeDesk/internal/services/signals"
	applogger "TradeDesk/pkg/logger"
)

// Status values open positions at live prices. Price or balance lookups
// that fail are logged and reported as unavailable rather than failing the
// whole view.
func (e *Engine) Status(ctx context.Context) models.Status {
	e.mu.RLock()
	positions := make([]models.Position, 0, len(e.positions))
	for _, p := range e.positions {
		positions = append(positions, p)
	}
	recent := e.ledger.Recent(e.cfg.RecentTrades)
	trading := e.trading
	strategy := e.strategy.Name()
	e.mu.RUnlock()

	st := models.Status{
		Running:      e.Running(),
		Simulated:    e.cfg.Simulated,
		Strategy:     strategy,
		QuoteAsset:   e.cfg.QuoteAsset,
		Positions:    make([]models.PositionView, 0, len(positions)),
		RecentTrades: recent,
		Workers:      e.Workers(),
		Config:       trading,
	}

	balance, err := e.exec.GetBalance(ctx, e.cfg.QuoteAsset)
	if err != nil {
		e.logger.Warn("status balance unavailable", applogger.Error(err))
	}
	st.Balance = balance

	for _, p := range sortPositions(positions) {
		price, err := e.prices.Price(ctx, p.Symbol)
		if err != nil {
			e.logger.Warn("status price unavailable",
				applogger.String("symbol", p.Symbol),
				applogger.Error(err),
			)
			price = 0
		}
		view := p.Value(price)
		st.PositionsValue += view.CurrentValue
		st.Positions = append(st.Positions, view)
	}
	st.TotalValue = st.Balance + st.PositionsValue
	return st
}

// Preview evaluates the base generators and the active strategy on the
// latest candles without acting.
func (e *Engine) Preview(ctx context.Context, symbol, interval string) (models.SignalPreview, error) {
	iv := drepo.Interval(interval)
	if !drepo.IsValidInterval(iv) {
		return models.SignalPreview{}, fmt.Errorf("%w: %q", models.ErrInvalidInterval, interval)
	}
	candles, err := e.market.GetCandles(ctx, symbol, iv, e.cfg.CandleLimit)
	if err != nil {
		return models.SignalPreview{}, fmt.Errorf("get candles: %w", err)
	}
	price, ok := models.LastClose(candles)
	if !ok {
		return models.SignalPreview{}, models.ErrNoMarketData
	}
	strategy := e.Strategy()
	combined, each := signals.Preview(strategy, candles)
	return models.SignalPreview{
		Symbol:     symbol,
		Interval:   interval,
		Price:      price,
		Strategy:   strategy.Name(),
		Combined:   combined,
		Generators: each,
	}, nil
}

func sortPositions(ps []models.Position) []models.Position {
	sort.Slice(ps, func(i, j int) bool { return ps[i].Symbol < ps[j].Symbol })
	return ps
}
