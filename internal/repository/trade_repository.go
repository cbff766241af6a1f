package repository

import (
	"context"
	"database/sql"
	"fmt"

	"TradeDesk/internal/domain/models"
	"TradeDesk/internal/domain/repository"
	pkgkafka "TradeDesk/pkg/kafka"
)

// TradesSchema returns the DDL for the trade events table.
func TradesSchema(table string) []string {
	return []string{fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS %s (
            id        String,
            ts        DateTime64(3, 'UTC'),
            symbol    LowCardinality(String),
            action    LowCardinality(String),
            price     Float64,
            quantity  Float64,
            simulated Bool,
            profit    Nullable(Float64),
            reason    LowCardinality(String)
        ) ENGINE = ReplacingMergeTree
        ORDER BY (symbol, ts, id)
    `, table)}
}

// ClickHouseStorage implements Storage for ClickHouse. Rows are keyed by
// trade id so a retried insert collapses on merge.
type ClickHouseStorage struct {
	db    *sql.DB
	table string
}

// NewClickHouseStorage creates ClickHouse storage.
func NewClickHouseStorage(db *sql.DB, table string) repository.Storage {
	return &ClickHouseStorage{db: db, table: table}
}

func (s *ClickHouseStorage) insertSQL() string {
	return fmt.Sprintf("INSERT INTO %s (id, ts, symbol, action, price, quantity, simulated, profit, reason) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)", s.table)
}

func (s *ClickHouseStorage) Store(ctx context.Context, t *models.TradeRecord) error {
	_, err := s.db.ExecContext(ctx, s.insertSQL(), tradeArgs(t)...)
	if err != nil {
		return fmt.Errorf("insert trade %s: %w", t.ID, err)
	}
	return nil
}

// StoreBatch inserts records in one ClickHouse block.
func (s *ClickHouseStorage) StoreBatch(ctx context.Context, trades []*models.TradeRecord) error {
	if len(trades) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, s.insertSQL())
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare batch: %w", err)
	}
	defer stmt.Close()

	for _, t := range trades {
		if t == nil || t.ID == "" {
			continue
		}
		if _, err := stmt.ExecContext(ctx, tradeArgs(t)...); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("append trade %s: %w", t.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}

func (s *ClickHouseStorage) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func tradeArgs(t *models.TradeRecord) []interface{} {
	return []interface{}{
		t.ID,
		t.Timestamp,
		t.Symbol,
		string(t.Action),
		t.Price,
		t.Quantity,
		t.Simulated,
		t.Profit,
		t.Reason,
	}
}

// KafkaPublisher implements Publisher for Kafka, keyed by symbol.
type KafkaPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaPublisher creates Kafka publisher.
func NewKafkaPublisher(producer *pkgkafka.Producer, topic string) repository.Publisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

func (p *KafkaPublisher) Publish(ctx context.Context, t *models.TradeRecord) error {
	return p.producer.Publish(ctx, p.topic, []byte(t.Symbol), t)
}

func (p *KafkaPublisher) PublishBatch(ctx context.Context, trades []*models.TradeRecord) error {
	if len(trades) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, 0, len(trades))
	for _, t := range trades {
		if t == nil {
			continue
		}
		msgs = append(msgs, pkgkafka.Message{Key: []byte(t.Symbol), Value: t})
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

// Health checks broker reachability through the shared producer.
func (p *KafkaPublisher) Health(ctx context.Context) error {
	return p.producer.Health(ctx)
}
