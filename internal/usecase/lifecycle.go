package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"TradeDesk/internal/domain/models"
	"TradeDesk/internal/services/sizing"
	applogger "TradeDesk/pkg/logger"
)

func newPosition(symbol string, qty, entry float64, cfg models.TradingConfig, at time.Time) models.Position {
	return models.Position{
		Symbol:     symbol,
		Quantity:   qty,
		EntryPrice: entry,
		EntryTime:  at,
		StopLoss:   entry * (1 - cfg.StopLossFraction),
		TakeProfit: entry * (1 + cfg.TakeProfitFraction),
	}
}

// act applies an actionable signal. The caller holds the symbol lock.
func (e *Engine) act(ctx context.Context, symbol string, sig models.Signal, price float64, cfg models.TradingConfig) error {
	switch sig.Direction {
	case models.Buy:
		return e.openPosition(ctx, symbol, price, cfg)
	case models.Sell:
		_, err := e.closePosition(ctx, symbol, price, models.ReasonSignal)
		return err
	default:
		return nil
	}
}

// openPosition sizes and places a market buy, then records the position at
// the fill price. The caller holds the symbol lock.
func (e *Engine) openPosition(ctx context.Context, symbol string, price float64, cfg models.TradingConfig) error {
	if _, ok := e.Position(symbol); ok {
		return models.ErrPositionExists
	}

	balance, err := e.exec.GetBalance(ctx, e.cfg.QuoteAsset)
	if err != nil {
		e.metrics.RecordError("balance")
		return fmt.Errorf("get balance: %w", err)
	}
	filters, err := e.exec.GetSymbolFilters(ctx, symbol)
	if err != nil {
		e.metrics.RecordError("filters")
		return fmt.Errorf("get filters: %w", err)
	}
	qty, err := sizing.OrderQuantity(balance, price, cfg, filters)
	if err != nil {
		if errors.Is(err, models.ErrInsufficientFunds) {
			e.logger.Warn("entry skipped: insufficient funds",
				applogger.String("symbol", symbol),
				applogger.Any("balance", balance),
				applogger.Any("min_order_notional", cfg.MinOrderNotional),
			)
		}
		return err
	}

	order, err := e.exec.PlaceOrder(ctx, symbol, models.SideBuy, qty)
	if err != nil {
		e.metrics.RecordOrder(symbol, models.SideBuy, "error")
		return fmt.Errorf("place buy order: %w", err)
	}
	if order == nil {
		e.metrics.RecordOrder(symbol, models.SideBuy, "rejected")
		return models.ErrOrderRejected
	}
	e.metrics.RecordOrder(symbol, models.SideBuy, "filled")
	if order.Quantity > 0 {
		qty = order.Quantity
	}
	price = fillPrice(order, price)

	pos := newPosition(symbol, qty, price, cfg, time.Now().UTC())
	rec := newTradeRecord(symbol, models.SideBuy, price, qty, e.cfg.Simulated)
	rec.Reason = models.ReasonSignal

	e.mu.Lock()
	e.positions[symbol] = pos
	e.ledger.Append(rec)
	e.mu.Unlock()

	e.logger.Info("position opened",
		applogger.String("symbol", symbol),
		applogger.Any("quantity", qty),
		applogger.Any("entry_price", price),
		applogger.Any("stop_loss", pos.StopLoss),
		applogger.Any("take_profit", pos.TakeProfit),
		applogger.Bool("simulated", e.cfg.Simulated),
	)
	e.persist(ctx)
	e.notify(ctx, rec)
	return nil
}

// closePosition sells the whole position at price and books the profit.
// The caller holds the symbol lock.
func (e *Engine) closePosition(ctx context.Context, symbol string, price float64, reason string) (models.TradeRecord, error) {
	pos, ok := e.Position(symbol)
	if !ok {
		return models.TradeRecord{}, models.ErrPositionNotFound
	}

	order, err := e.exec.PlaceOrder(ctx, symbol, models.SideSell, pos.Quantity)
	if err != nil {
		e.metrics.RecordOrder(symbol, models.SideSell, "error")
		return models.TradeRecord{}, fmt.Errorf("place sell order: %w", err)
	}
	if order == nil {
		e.metrics.RecordOrder(symbol, models.SideSell, "rejected")
		return models.TradeRecord{}, models.ErrOrderRejected
	}
	e.metrics.RecordOrder(symbol, models.SideSell, "filled")
	price = fillPrice(order, price)

	profit := (price - pos.EntryPrice) * pos.Quantity
	rec := newTradeRecord(symbol, models.SideSell, price, pos.Quantity, e.cfg.Simulated)
	rec.Profit = &profit
	rec.Reason = reason

	e.mu.Lock()
	delete(e.positions, symbol)
	e.ledger.Append(rec)
	e.mu.Unlock()

	e.logger.Info("position closed",
		applogger.String("symbol", symbol),
		applogger.String("reason", reason),
		applogger.Any("exit_price", price),
		applogger.Any("profit", profit),
	)
	e.persist(ctx)
	e.notify(ctx, rec)
	return rec, nil
}

// fillPrice prefers the executed price so the ledger matches the account.
func fillPrice(order *models.OrderResult, quoted float64) float64 {
	if order.FilledPrice > 0 {
		return order.FilledPrice
	}
	return quoted
}

// checkRisk closes the position when price crosses either bound.
// The caller holds the symbol lock.
func (e *Engine) checkRisk(ctx context.Context, symbol string, price float64) error {
	pos, ok := e.Position(symbol)
	if !ok || !pos.RiskBreached(price) {
		return nil
	}
	reason := models.ReasonTakeProfit
	if price <= pos.StopLoss {
		reason = models.ReasonStopLoss
	}
	_, err := e.closePosition(ctx, symbol, price, reason)
	return err
}

// CreatePosition records an operator-supplied position without sizing or
// placing an order. It still refuses to stack on an open position.
func (e *Engine) CreatePosition(ctx context.Context, symbol string, qty, entry float64) (models.Position, error) {
	if qty <= 0 || entry <= 0 {
		return models.Position{}, fmt.Errorf("quantity and entry price must be positive")
	}
	unlock := e.lockSymbol(symbol)
	defer unlock()

	if _, ok := e.Position(symbol); ok {
		return models.Position{}, models.ErrPositionExists
	}
	pos := newPosition(symbol, qty, entry, e.Config(), time.Now().UTC())
	rec := newTradeRecord(symbol, models.SideBuy, entry, qty, e.cfg.Simulated)
	rec.Reason = models.ReasonManual

	e.mu.Lock()
	e.positions[symbol] = pos
	e.ledger.Append(rec)
	e.mu.Unlock()

	e.logger.Info("position created manually",
		applogger.String("symbol", symbol),
		applogger.Any("quantity", qty),
		applogger.Any("entry_price", entry),
	)
	e.persist(ctx)
	e.notify(ctx, rec)
	return pos, nil
}

// ClosePosition sells the position at the current market price.
func (e *Engine) ClosePosition(ctx context.Context, symbol string) (models.TradeRecord, error) {
	unlock := e.lockSymbol(symbol)
	defer unlock()

	if _, ok := e.Position(symbol); !ok {
		return models.TradeRecord{}, models.ErrPositionNotFound
	}
	price, err := e.prices.Price(ctx, symbol)
	if err != nil || price <= 0 {
		return models.TradeRecord{}, fmt.Errorf("%w: %s: %v", models.ErrPriceUnavailable, symbol, err)
	}
	return e.closePosition(ctx, symbol, price, models.ReasonManual)
}

// UpdateRiskBounds overrides stop-loss and/or take-profit. Setting the same
// values twice yields the same position.
func (e *Engine) UpdateRiskBounds(ctx context.Context, symbol string, stopLoss, takeProfit *float64) (models.Position, error) {
	unlock := e.lockSymbol(symbol)
	defer unlock()

	e.mu.Lock()
	pos, ok := e.positions[symbol]
	if !ok {
		e.mu.Unlock()
		return models.Position{}, models.ErrPositionNotFound
	}
	if stopLoss != nil {
		pos.StopLoss = *stopLoss
	}
	if takeProfit != nil {
		pos.TakeProfit = *takeProfit
	}
	e.positions[symbol] = pos
	e.mu.Unlock()

	e.logger.Info("risk bounds updated",
		applogger.String("symbol", symbol),
		applogger.Any("stop_loss", pos.StopLoss),
		applogger.Any("take_profit", pos.TakeProfit),
	)
	e.persist(ctx)
	return pos, nil
}
