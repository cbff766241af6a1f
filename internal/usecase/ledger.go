package usecase

import (
	"time"

	"TradeDesk/internal/domain/models"

	"github.com/google/uuid"
)

// Ledger is a capped, append-only trade history. The oldest record is
// evicted once capacity is reached. It is not safe for concurrent use;
// Engine guards it.
type Ledger struct {
	capacity int
	records  []models.TradeRecord
}

func NewLedger(capacity int) *Ledger {
	return &Ledger{capacity: capacity, records: make([]models.TradeRecord, 0, capacity)}
}

func (l *Ledger) Append(rec models.TradeRecord) {
	l.records = append(l.records, rec)
	if over := len(l.records) - l.capacity; over > 0 {
		l.records = append(l.records[:0:0], l.records[over:]...)
	}
}

// Load replaces the history, keeping the newest records that fit.
func (l *Ledger) Load(recs []models.TradeRecord) {
	if over := len(recs) - l.capacity; over > 0 {
		recs = recs[over:]
	}
	l.records = append(make([]models.TradeRecord, 0, l.capacity), recs...)
}

func (l *Ledger) Len() int { return len(l.records) }

// Records returns a copy, oldest first.
func (l *Ledger) Records() []models.TradeRecord {
	out := make([]models.TradeRecord, len(l.records))
	copy(out, l.records)
	return out
}

// Recent returns up to n records, newest first.
func (l *Ledger) Recent(n int) []models.TradeRecord {
	if n <= 0 || n > len(l.records) {
		n = len(l.records)
	}
	out := make([]models.TradeRecord, 0, n)
	for i := len(l.records) - 1; i >= len(l.records)-n; i-- {
		out = append(out, l.records[i])
	}
	return out
}

// ComputeStatistics summarizes closing trades. Opening trades only count
// toward volume.
func ComputeStatistics(records []models.TradeRecord, activePositions int) models.Statistics {
	st := models.Statistics{ActivePositions: activePositions}
	first := true
	for _, r := range records {
		st.TotalVolume += r.Notional()
		if r.Profit == nil {
			continue
		}
		p := *r.Profit
		st.TotalTrades++
		st.TotalProfit += p
		switch {
		case p > 0:
			st.WinningTrades++
		case p < 0:
			st.LosingTrades++
		}
		if first || p > st.BestTrade {
			st.BestTrade = p
		}
		if first || p < st.WorstTrade {
			st.WorstTrade = p
		}
		first = false
	}
	if st.TotalTrades > 0 {
		st.WinRate = float64(st.WinningTrades) / float64(st.TotalTrades) * 100
		st.AverageProfit = st.TotalProfit / float64(st.TotalTrades)
	}
	return st
}

func newTradeRecord(symbol string, side models.Side, price, qty float64, simulated bool) models.TradeRecord {
	return models.TradeRecord{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Symbol:    symbol,
		Action:    side,
		Price:     price,
		Quantity:  qty,
		Simulated: simulated,
	}
}
