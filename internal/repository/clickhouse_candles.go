package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"TradeDesk/internal/domain/models"
	domrepo "TradeDesk/internal/domain/repository"
	pkgch "TradeDesk/pkg/clickhouse"
	applogger "TradeDesk/pkg/logger"
)

// CandlesSchema returns the DDL for the candle table read by CHCandleStore.
func CandlesSchema(table string) []string {
	return []string{fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS %s (
            symbol    LowCardinality(String),
            interval  LowCardinality(String),
            open_time DateTime64(3, 'UTC'),
            open      Float64,
            high      Float64,
            low       Float64,
            close     Float64,
            volume    Float64
        ) ENGINE = ReplacingMergeTree
        ORDER BY (symbol, interval, open_time)
    `, table)}
}

// CHCandleStore implements MarketData backed by a ClickHouse candle table,
// for replaying warehoused history instead of calling the exchange.
type CHCandleStore struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

func NewCHCandleStore(ch *pkgch.Client, table string, l *applogger.Logger) *CHCandleStore {
	return &CHCandleStore{db: ch.DB(), table: table, l: l}
}

// GetCandles returns the latest limit candles, oldest first.
func (s *CHCandleStore) GetCandles(ctx context.Context, symbol string, interval domrepo.Interval, limit int) ([]models.Candle, error) {
	start := time.Now()
	const qtpl = `
        SELECT open_time, open, high, low, close, volume
        FROM %s FINAL
        WHERE symbol = ? AND interval = ?
        ORDER BY open_time DESC
        LIMIT ?
    `
	q := fmt.Sprintf(qtpl, s.table)
	rows, err := s.db.QueryContext(ctx, q, symbol, string(interval), limit)
	if err != nil {
		s.l.Error("clickhouse get_candles query error",
			applogger.String("table", s.table),
			applogger.String("symbol", symbol),
			applogger.String("interval", string(interval)),
			applogger.Error(err),
		)
		return nil, fmt.Errorf("get candles: %w", err)
	}
	defer rows.Close()

	out := make([]models.Candle, 0, limit)
	for rows.Next() {
		var c models.Candle
		if err := rows.Scan(&c.OpenTime, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, fmt.Errorf("scan candle: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	// newest-first from the query; callers want oldest first
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}

	s.l.Debug("clickhouse get_candles ok",
		applogger.String("symbol", symbol),
		applogger.String("interval", string(interval)),
		applogger.Int("rows", len(out)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return out, nil
}

// Price returns the close of the newest 1m candle. It serves as the
// PriceSource when market data comes from the warehouse.
func (s *CHCandleStore) Price(ctx context.Context, symbol string) (float64, error) {
	var price float64
	if err := s.db.QueryRowContext(ctx, latestCloseQuery(s.table), symbol, string(domrepo.Interval1m)).Scan(&price); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("%w: %s", models.ErrPriceUnavailable, symbol)
		}
		return 0, fmt.Errorf("latest close: %w", err)
	}
	return price, nil
}

func latestCloseQuery(table string) string {
	return fmt.Sprintf(`SELECT close FROM %s FINAL WHERE symbol = ? AND interval = ? ORDER BY open_time DESC LIMIT 1`, table)
}
