package logger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type capturePublisher struct {
	mu      sync.Mutex
	batches [][]AggregatedLogEntry
	topics  []string
}

func (p *capturePublisher) PublishMessage(_ context.Context, topic string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	p.batches = append(p.batches, payload.([]AggregatedLogEntry))
	return nil
}

func (p *capturePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.batches)
}

func TestCollectorAggregatesOnClose(t *testing.T) {
	pub := &capturePublisher{}
	c := NewLogCollector(&CollectionConfig{TimeInterval: time.Hour, CountThreshold: 100, Publisher: pub})

	for i := 0; i < 3; i++ {
		c.AddLog("error", "order failed", map[string]interface{}{"symbol": "BTCUSDT"}, "lifecycle.go:10")
	}
	c.AddLog("error", "persist failed", nil, "engine.go:20")
	c.Close()

	if pub.count() != 1 {
		t.Fatalf("expected one batch, got %d", pub.count())
	}
	batch := pub.batches[0]
	if len(batch) != 2 {
		t.Fatalf("expected 2 unique entries, got %d", len(batch))
	}
	if batch[0].Count != 3 || batch[0].Message != "order failed" {
		t.Fatalf("expected most frequent first, got %+v", batch[0])
	}
	if pub.topics[0] != "logs.errors" {
		t.Fatalf("unexpected topic %s", pub.topics[0])
	}
}

func TestLoggerFeedsCollector(t *testing.T) {
	pub := &capturePublisher{}
	l := NewNop()
	l.AddCollector(&CollectionConfig{TimeInterval: time.Hour, CountThreshold: 100, Publisher: pub})
	l.Error("boom", Error(errors.New("x")), String("symbol", "ETHUSDT"))
	l.Info("not collected")
	l.RemoveCollector()

	if pub.count() != 1 || len(pub.batches[0]) != 1 {
		t.Fatalf("expected single collected error, got %+v", pub.batches)
	}
	if got := pub.batches[0][0].Fields["symbol"]; got != "ETHUSDT" {
		t.Fatalf("expected symbol field, got %v", got)
	}
}

func TestChildLoggerSeesLaterCollector(t *testing.T) {
	pub := &capturePublisher{}
	root := NewNop()
	child := root.With(String("component", "engine"))
	root.AddCollector(&CollectionConfig{TimeInterval: time.Hour, CountThreshold: 100, Publisher: pub})
	child.Error("persist state failed")
	root.RemoveCollector()

	if pub.count() != 1 || pub.batches[0][0].Message != "persist state failed" {
		t.Fatalf("child entry not collected: %+v", pub.batches)
	}
}
