package usecase

import (
	"context"
	"fmt"
	"time"

	"TradeDesk/internal/domain/models"
	drepo "TradeDesk/internal/domain/repository"
)

const (
	BackendNone       = "none"
	BackendKafka      = "kafka"
	BackendClickHouse = "clickhouse"
)

// TradeRecorder routes ledger records to the configured event backend.
type TradeRecorder struct {
	pub     drepo.Publisher
	store   drepo.Storage
	metrics drepo.Metrics
	backend string
}

// NewTradeRecorder creates a new TradeRecorder instance. pub or store may be
// nil when their backend is not selected.
func NewTradeRecorder(pub drepo.Publisher, store drepo.Storage, metrics drepo.Metrics, backend string) *TradeRecorder {
	if backend == "" {
		backend = BackendNone
	}
	return &TradeRecorder{pub: pub, store: store, metrics: metrics, backend: backend}
}

// Backend returns the selected backend name.
func (r *TradeRecorder) Backend() string { return r.backend }

// Process records a single trade on the configured backend.
func (r *TradeRecorder) Process(ctx context.Context, rec *models.TradeRecord) error {
	if rec == nil {
		return fmt.Errorf("trade record is nil")
	}

	start := time.Now()
	var err error
	switch r.backend {
	case BackendNone:
		return nil
	case BackendKafka:
		err = r.pub.Publish(ctx, rec)
	case BackendClickHouse:
		err = r.store.Store(ctx, rec)
	default:
		err = fmt.Errorf("unknown backend: %s", r.backend)
	}

	if err != nil {
		r.metrics.RecordError("record_trade")
		return fmt.Errorf("record trade: %w", err)
	}

	r.metrics.RecordMessageSent(r.backend, rec.Symbol)
	r.metrics.RecordLatency("record_trade", time.Since(start).Seconds())
	return nil
}

// ProcessBatch records multiple trades in one call.
func (r *TradeRecorder) ProcessBatch(ctx context.Context, recs []*models.TradeRecord) error {
	if len(recs) == 0 || r.backend == BackendNone {
		return nil
	}

	start := time.Now()
	var err error
	switch r.backend {
	case BackendKafka:
		err = r.pub.PublishBatch(ctx, recs)
	case BackendClickHouse:
		err = r.store.StoreBatch(ctx, recs)
	default:
		err = fmt.Errorf("unknown backend: %s", r.backend)
	}

	if err != nil {
		r.metrics.RecordError("record_trade_batch")
		return fmt.Errorf("record batch: %w", err)
	}

	for _, rec := range recs {
		r.metrics.RecordMessageSent(r.backend, rec.Symbol)
	}
	r.metrics.RecordLatency("record_trade_batch", time.Since(start).Seconds())
	return nil
}

// Health pings the selected backend. The none backend is always healthy.
func (r *TradeRecorder) Health(ctx context.Context) error {
	var err error
	switch r.backend {
	case BackendNone:
		return nil
	case BackendKafka:
		err = r.pub.Health(ctx)
	case BackendClickHouse:
		err = r.store.Health(ctx)
	default:
		err = fmt.Errorf("unknown backend: %s", r.backend)
	}
	if err != nil {
		return fmt.Errorf("%s backend: %w", r.backend, err)
	}
	return nil
}
