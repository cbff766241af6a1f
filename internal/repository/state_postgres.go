package repository

import (
	"context"
	"fmt"
	"time"

	"TradeDesk/internal/domain/models"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS positions (
        symbol      TEXT PRIMARY KEY,
        quantity    DOUBLE PRECISION NOT NULL,
        entry_price DOUBLE PRECISION NOT NULL,
        entry_time  TIMESTAMPTZ NOT NULL,
        stop_loss   DOUBLE PRECISION NOT NULL,
        take_profit DOUBLE PRECISION NOT NULL
    )`,
	`CREATE TABLE IF NOT EXISTS trades (
        id        TEXT PRIMARY KEY,
        ts        TIMESTAMPTZ NOT NULL,
        symbol    TEXT NOT NULL,
        action    TEXT NOT NULL,
        price     DOUBLE PRECISION NOT NULL,
        quantity  DOUBLE PRECISION NOT NULL,
        simulated BOOLEAN NOT NULL DEFAULT FALSE,
        profit    DOUBLE PRECISION,
        reason    TEXT NOT NULL DEFAULT ''
    )`,
	`CREATE INDEX IF NOT EXISTS trades_ts_idx ON trades (ts)`,
}

// PostgresConfig holds connection pool settings.
type PostgresConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// PostgresStateStore keeps positions and the ledger in two tables. Save
// rewrites both inside one transaction so readers never see a partial
// snapshot.
type PostgresStateStore struct {
	db *sqlx.DB
}

// ConnectPostgres opens the pool, pings it and creates the schema.
func ConnectPostgres(ctx context.Context, cfg PostgresConfig) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	for _, stmt := range postgresSchema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("init schema: %w", err)
		}
	}
	return db, nil
}

func NewPostgresStateStore(db *sqlx.DB) *PostgresStateStore {
	return &PostgresStateStore{db: db}
}

func (s *PostgresStateStore) Load(ctx context.Context) (models.EngineState, error) {
	st := models.EmptyState()

	var positions []models.Position
	if err := s.db.SelectContext(ctx, &positions,
		`SELECT symbol, quantity, entry_price, entry_time, stop_loss, take_profit FROM positions`); err != nil {
		return models.EngineState{}, fmt.Errorf("select positions: %w", err)
	}
	for _, p := range positions {
		p.EntryTime = p.EntryTime.UTC()
		st.Positions[p.Symbol] = p
	}

	if err := s.db.SelectContext(ctx, &st.TradeLedger,
		`SELECT id, ts, symbol, action, price, quantity, simulated, profit, reason FROM trades ORDER BY ts ASC, id ASC`); err != nil {
		return models.EngineState{}, fmt.Errorf("select trades: %w", err)
	}
	for i := range st.TradeLedger {
		st.TradeLedger[i].Timestamp = st.TradeLedger[i].Timestamp.UTC()
	}
	return st, nil
}

func (s *PostgresStateStore) Save(ctx context.Context, st models.EngineState) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM positions`); err != nil {
		return fmt.Errorf("clear positions: %w", err)
	}
	for _, p := range st.Positions {
		if _, err := tx.NamedExecContext(ctx, `
            INSERT INTO positions (symbol, quantity, entry_price, entry_time, stop_loss, take_profit)
            VALUES (:symbol, :quantity, :entry_price, :entry_time, :stop_loss, :take_profit)`, p); err != nil {
			return fmt.Errorf("insert position %s: %w", p.Symbol, err)
		}
	}

	ids := make([]string, 0, len(st.TradeLedger))
	for _, r := range st.TradeLedger {
		ids = append(ids, r.ID)
		if _, err := tx.NamedExecContext(ctx, `
            INSERT INTO trades (id, ts, symbol, action, price, quantity, simulated, profit, reason)
            VALUES (:id, :ts, :symbol, :action, :price, :quantity, :simulated, :profit, :reason)
            ON CONFLICT (id) DO NOTHING`, r); err != nil {
			return fmt.Errorf("insert trade %s: %w", r.ID, err)
		}
	}
	// ledger is capped; drop what the engine evicted
	if _, err := tx.ExecContext(ctx, `DELETE FROM trades WHERE NOT (id = ANY($1))`, pq.Array(ids)); err != nil {
		return fmt.Errorf("prune trades: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *PostgresStateStore) Close() error {
	return s.db.Close()
}
