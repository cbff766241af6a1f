package models

import "time"

// Candle is one OHLCV bar. Series are ordered oldest to newest.
type Candle struct {
	OpenTime time.Time `json:"open_time"`
	Open     float64   `json:"open"`
	High     float64   `json:"high"`
	Low      float64   `json:"low"`
	Close    float64   `json:"close"`
	Volume   float64   `json:"volume"`
}

// Closes extracts the close prices of a series.
func Closes(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}

// LastClose returns the close of the newest candle, or false for an empty series.
func LastClose(candles []Candle) (float64, bool) {
	if len(candles) == 0 {
		return 0, false
	}
	return candles[len(candles)-1].Close, true
}
