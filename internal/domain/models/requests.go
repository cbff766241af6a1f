package models

// Requests for the control surface. Bound by echo, defaulted by
// creasty/defaults and validated by validator/v10.

type StartRequest struct {
	Symbol   string `json:"symbol" default:"BTCUSDT" validate:"required,uppercase"`
	Interval string `json:"interval" default:"1h" validate:"oneof=1m 3m 5m 15m 30m 1h 2h 4h 6h 8h 12h 1d"`
	Strategy string `json:"strategy" validate:"omitempty,oneof=sma rsi bollinger combined"`
}

type StopRequest struct {
	Symbol   string `json:"symbol" validate:"omitempty,uppercase"`
	Interval string `json:"interval" validate:"omitempty,oneof=1m 3m 5m 15m 30m 1h 2h 4h 6h 8h 12h 1d"`
}

type CreatePositionRequest struct {
	Symbol     string  `json:"symbol" validate:"required,uppercase"`
	Quantity   float64 `json:"quantity" validate:"gt=0"`
	EntryPrice float64 `json:"entry_price" validate:"gt=0"`
}

type UpdatePositionRequest struct {
	Symbol     string   `param:"symbol" validate:"required"`
	StopLoss   *float64 `json:"stop_loss" validate:"omitempty,gt=0"`
	TakeProfit *float64 `json:"take_profit" validate:"omitempty,gt=0"`
}

type SymbolParam struct {
	Symbol string `param:"symbol" validate:"required"`
}

type TradesRequest struct {
	Limit int `query:"limit" default:"50" validate:"gte=1,lte=1000"`
}

type BalanceRequest struct {
	Asset string `query:"asset" default:"USDT" validate:"required,uppercase"`
}

type SignalsRequest struct {
	Symbol   string `query:"symbol" default:"BTCUSDT" validate:"required,uppercase"`
	Interval string `query:"interval" default:"1h" validate:"oneof=1m 3m 5m 15m 30m 1h 2h 4h 6h 8h 12h 1d"`
}
