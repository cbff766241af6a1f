package models

// EngineState is the persisted snapshot. It is always written whole.
type EngineState struct {
	Positions   map[string]Position `json:"positions"`
	TradeLedger []TradeRecord       `json:"trade_ledger"`
}

// EmptyState returns a state with non-nil collections.
func EmptyState() EngineState {
	return EngineState{
		Positions:   make(map[string]Position),
		TradeLedger: make([]TradeRecord, 0),
	}
}
