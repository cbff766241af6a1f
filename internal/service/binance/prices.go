package binance

import (
	"context"
	"fmt"
	"time"

	"TradeDesk/internal/domain/models"
	drepo "TradeDesk/internal/domain/repository"
	"TradeDesk/internal/service/cache"
	svcmetrics "TradeDesk/internal/service/metrics"
)

// Watcher is the part of Stream the price book needs.
type Watcher interface {
	Watch(symbol string)
}

// PriceBook serves prices from the stream while they are fresh and falls
// back to REST otherwise. REST answers are cached for the same window.
type PriceBook struct {
	quotes   *cache.TTLCache[float64]
	fallback drepo.PriceSource
	watcher  Watcher
}

var _ drepo.PriceSource = (*PriceBook)(nil)

// NewPriceBook creates a price book. watcher may be nil when streaming is
// disabled.
func NewPriceBook(fallback drepo.PriceSource, watcher Watcher, maxStaleness time.Duration) *PriceBook {
	if maxStaleness <= 0 {
		maxStaleness = 15 * time.Second
	}
	return &PriceBook{
		quotes:   cache.NewTTLCache[float64](maxStaleness),
		fallback: fallback,
		watcher:  watcher,
	}
}

// SetWatcher attaches the stream after construction.
func (p *PriceBook) SetWatcher(w Watcher) { p.watcher = w }

// Update records a streamed price. It matches PriceHandler.
func (p *PriceBook) Update(symbol string, price float64, _ time.Time) {
	if price > 0 {
		p.quotes.Set(symbol, price)
	}
}

// Price returns a fresh quote, asking the fallback on a miss.
func (p *PriceBook) Price(ctx context.Context, symbol string) (float64, error) {
	if p.watcher != nil {
		p.watcher.Watch(symbol)
	}
	if v, ok := p.quotes.Get(symbol); ok {
		svcmetrics.PriceLookups.WithLabelValues("stream").Inc()
		return v, nil
	}
	if p.fallback == nil {
		return 0, fmt.Errorf("%w: %s", models.ErrPriceUnavailable, symbol)
	}
	svcmetrics.PriceLookups.WithLabelValues("rest").Inc()
	v, err := p.fallback.Price(ctx, symbol)
	if err != nil {
		return 0, err
	}
	p.quotes.Set(symbol, v)
	return v, nil
}
