package models

// WorkerKey identifies one periodic worker.
type WorkerKey struct {
	Symbol   string `json:"symbol"`
	Interval string `json:"interval"`
}

func (k WorkerKey) String() string { return k.Symbol + "_" + k.Interval }

// Status is the operator view of the engine.
type Status struct {
	Running        bool           `json:"running"`
	Simulated      bool           `json:"test_mode"`
	Strategy       string         `json:"strategy"`
	QuoteAsset     string         `json:"quote_asset"`
	Balance        float64        `json:"balance"`
	PositionsValue float64        `json:"positions_value"`
	TotalValue     float64        `json:"total_value"`
	Positions      []PositionView `json:"positions"`
	RecentTrades   []TradeRecord  `json:"recent_trades"`
	Workers        []WorkerKey    `json:"workers"`
	Config         TradingConfig  `json:"config"`
}
