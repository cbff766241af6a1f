package binance

import (
	"context"
	"errors"
	"testing"
	"time"

	"TradeDesk/internal/domain/models"
)

type stubPrices struct {
	price float64
	err   error
	calls int
}

func (s *stubPrices) Price(context.Context, string) (float64, error) {
	s.calls++
	return s.price, s.err
}

type recordingWatcher struct{ watched []string }

func (w *recordingWatcher) Watch(symbol string) { w.watched = append(w.watched, symbol) }

func TestPriceBookPrefersStream(t *testing.T) {
	rest := &stubPrices{price: 1}
	w := &recordingWatcher{}
	pb := NewPriceBook(rest, w, time.Minute)
	pb.Update("BTCUSDT", 40000, time.Now())

	p, err := pb.Price(context.Background(), "BTCUSDT")
	if err != nil || p != 40000 {
		t.Fatalf("unexpected %v %v", p, err)
	}
	if rest.calls != 0 {
		t.Fatalf("fallback should not be called")
	}
	if len(w.watched) != 1 || w.watched[0] != "BTCUSDT" {
		t.Fatalf("symbol not watched: %v", w.watched)
	}
}

func TestPriceBookFallsBackAndCaches(t *testing.T) {
	rest := &stubPrices{price: 2000}
	pb := NewPriceBook(rest, nil, time.Minute)
	for i := 0; i < 2; i++ {
		p, err := pb.Price(context.Background(), "ETHUSDT")
		if err != nil || p != 2000 {
			t.Fatalf("unexpected %v %v", p, err)
		}
	}
	if rest.calls != 1 {
		t.Fatalf("expected one fallback call, got %d", rest.calls)
	}
}

func TestPriceBookUnavailable(t *testing.T) {
	pb := NewPriceBook(nil, nil, time.Minute)
	if _, err := pb.Price(context.Background(), "X"); !errors.Is(err, models.ErrPriceUnavailable) {
		t.Fatalf("expected ErrPriceUnavailable, got %v", err)
	}
}
