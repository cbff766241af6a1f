package models

// Statistics summarizes the trade ledger. Counts and profit figures cover
// closing trades only; TotalVolume covers every record.
type Statistics struct {
	TotalTrades     int     `json:"total_trades"`
	WinningTrades   int     `json:"winning_trades"`
	LosingTrades    int     `json:"losing_trades"`
	WinRate         float64 `json:"win_rate"`
	TotalProfit     float64 `json:"total_profit"`
	AverageProfit   float64 `json:"average_profit"`
	BestTrade       float64 `json:"best_trade"`
	WorstTrade      float64 `json:"worst_trade"`
	TotalVolume     float64 `json:"total_volume"`
	ActivePositions int     `json:"active_positions"`
}
