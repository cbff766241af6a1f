package models

import "time"

// Side is the order side sent to an execution service.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// TradeRecord is one executed (or simulated) trade. Profit is set only on
// records that close a position.
type TradeRecord struct {
	ID        string    `json:"id" ch:"id" db:"id"`
	Timestamp time.Time `json:"timestamp" ch:"ts" db:"ts"`
	Symbol    string    `json:"symbol" ch:"symbol" db:"symbol"`
	Action    Side      `json:"action" ch:"action" db:"action"`
	Price     float64   `json:"price" ch:"price" db:"price"`
	Quantity  float64   `json:"quantity" ch:"quantity" db:"quantity"`
	Simulated bool      `json:"simulated" ch:"simulated" db:"simulated"`
	Profit    *float64  `json:"profit,omitempty" ch:"profit" db:"profit"`
	Reason    string    `json:"reason,omitempty" ch:"reason" db:"reason"`
}

// Notional is quantity times price.
func (t TradeRecord) Notional() float64 {
	return t.Quantity * t.Price
}

// SymbolFilters are exchange lot-size constraints.
type SymbolFilters struct {
	MinQty   float64 `json:"min_qty"`
	MaxQty   float64 `json:"max_qty"`
	StepSize float64 `json:"step_size"`
}

// OrderResult is an acknowledged market order.
type OrderResult struct {
	OrderID     string  `json:"order_id"`
	Symbol      string  `json:"symbol"`
	Side        Side    `json:"side"`
	Quantity    float64 `json:"quantity"`
	Status      string  `json:"status"`
	FilledPrice float64 `json:"filled_price,omitempty"`
}

// Close reasons recorded on SELL trades.
const (
	ReasonSignal     = "signal"
	ReasonStopLoss   = "stop_loss"
	ReasonTakeProfit = "take_profit"
	ReasonManual     = "manual"
)
