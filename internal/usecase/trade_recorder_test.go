package usecase

import (
	"context"
	"errors"
	"testing"

	"TradeDesk/internal/domain/models"
	"TradeDesk/pkg/metrics"
)

type fakePublisher struct {
	sent      []*models.TradeRecord
	err       error
	healthErr error
}

func (p *fakePublisher) Publish(_ context.Context, r *models.TradeRecord) error {
	if p.err != nil {
		return p.err
	}
	p.sent = append(p.sent, r)
	return nil
}

func (p *fakePublisher) PublishBatch(_ context.Context, rs []*models.TradeRecord) error {
	if p.err != nil {
		return p.err
	}
	p.sent = append(p.sent, rs...)
	return nil
}

func (p *fakePublisher) Health(context.Context) error { return p.healthErr }

type fakeStorage struct {
	stored    int
	healthErr error
}

func (s *fakeStorage) Store(context.Context, *models.TradeRecord) error {
	s.stored++
	return nil
}

func (s *fakeStorage) StoreBatch(_ context.Context, rs []*models.TradeRecord) error {
	s.stored += len(rs)
	return nil
}

func (s *fakeStorage) Health(context.Context) error { return s.healthErr }

func TestTradeRecorderRoutesToKafka(t *testing.T) {
	pub := &fakePublisher{}
	r := NewTradeRecorder(pub, nil, metrics.Noop{}, BackendKafka)
	rec := &models.TradeRecord{ID: "1", Symbol: "BTCUSDT"}
	if err := r.Process(context.Background(), rec); err != nil {
		t.Fatalf("process: %v", err)
	}
	if err := r.ProcessBatch(context.Background(), []*models.TradeRecord{rec, rec}); err != nil {
		t.Fatalf("batch: %v", err)
	}
	if len(pub.sent) != 3 {
		t.Fatalf("expected 3 published records, got %d", len(pub.sent))
	}
	if err := r.Health(context.Background()); err != nil {
		t.Fatalf("healthy publisher reported %v", err)
	}
}

func TestTradeRecorderBatchToClickHouse(t *testing.T) {
	store := &fakeStorage{}
	r := NewTradeRecorder(nil, store, metrics.Noop{}, BackendClickHouse)
	recs := []*models.TradeRecord{{ID: "1", Symbol: "BTCUSDT"}, {ID: "2", Symbol: "ETHUSDT"}}
	if err := r.ProcessBatch(context.Background(), recs); err != nil {
		t.Fatalf("batch: %v", err)
	}
	if store.stored != 2 {
		t.Fatalf("expected 2 stored records, got %d", store.stored)
	}
}

func TestTradeRecorderHealth(t *testing.T) {
	ctx := context.Background()
	if err := NewTradeRecorder(nil, nil, metrics.Noop{}, BackendNone).Health(ctx); err != nil {
		t.Fatalf("none backend should be healthy: %v", err)
	}
	down := errors.New("no broker")
	err := NewTradeRecorder(&fakePublisher{healthErr: down}, nil, metrics.Noop{}, BackendKafka).Health(ctx)
	if !errors.Is(err, down) {
		t.Fatalf("expected broker error, got %v", err)
	}
	err = NewTradeRecorder(nil, &fakeStorage{healthErr: down}, metrics.Noop{}, BackendClickHouse).Health(ctx)
	if !errors.Is(err, down) {
		t.Fatalf("expected storage error, got %v", err)
	}
}

func TestTradeRecorderNoneAndErrors(t *testing.T) {
	r := NewTradeRecorder(nil, nil, metrics.Noop{}, "")
	if r.Backend() != BackendNone {
		t.Fatalf("expected none backend, got %s", r.Backend())
	}
	if err := r.Process(context.Background(), &models.TradeRecord{ID: "1"}); err != nil {
		t.Fatalf("none backend should accept: %v", err)
	}
	if err := r.Process(context.Background(), nil); err == nil {
		t.Fatalf("nil record should fail")
	}

	boom := errors.New("broker down")
	r = NewTradeRecorder(&fakePublisher{err: boom}, nil, metrics.Noop{}, BackendKafka)
	if err := r.Process(context.Background(), &models.TradeRecord{ID: "1"}); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped broker error, got %v", err)
	}
}
