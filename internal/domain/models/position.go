package models

import "time"

// Position is an open long holding. StopLoss and TakeProfit are fixed at
// open time unless an operator overrides them.
type Position struct {
	Symbol     string    `json:"symbol" db:"symbol"`
	Quantity   float64   `json:"quantity" db:"quantity"`
	EntryPrice float64   `json:"entry_price" db:"entry_price"`
	EntryTime  time.Time `json:"entry_time" db:"entry_time"`
	StopLoss   float64   `json:"stop_loss" db:"stop_loss"`
	TakeProfit float64   `json:"take_profit" db:"take_profit"`
}

// RiskBreached reports whether price has crossed either bound.
func (p Position) RiskBreached(price float64) bool {
	return price <= p.StopLoss || price >= p.TakeProfit
}

// PositionView is a position valued at the live market price.
type PositionView struct {
	Position
	CurrentPrice   float64 `json:"current_price"`
	CurrentValue   float64 `json:"current_value"`
	PnL            float64 `json:"pnl"`
	PnLPercent     float64 `json:"pnl_percent"`
	PriceAvailable bool    `json:"price_available"`
}

// Value fills the live valuation fields from price.
func (p Position) Value(price float64) PositionView {
	v := PositionView{Position: p, CurrentPrice: price, PriceAvailable: price > 0}
	if price <= 0 {
		return v
	}
	v.CurrentValue = p.Quantity * price
	v.PnL = (price - p.EntryPrice) * p.Quantity
	if p.EntryPrice > 0 {
		v.PnLPercent = (price - p.EntryPrice) / p.EntryPrice * 100
	}
	return v
}
