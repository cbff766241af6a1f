package repository

import (
	"context"

	"TradeDesk/internal/domain/models"
)

// MarketData supplies candle series, oldest first.
type MarketData interface {
	GetCandles(ctx context.Context, symbol string, interval Interval, limit int) ([]models.Candle, error)
}

// Execution places orders and reports account state. A nil result with a
// nil error means the order was not acknowledged.
type Execution interface {
	GetBalance(ctx context.Context, asset string) (float64, error)
	GetSymbolFilters(ctx context.Context, symbol string) (models.SymbolFilters, error)
	PlaceOrder(ctx context.Context, symbol string, side models.Side, quantity float64) (*models.OrderResult, error)
}

// PriceSource resolves the current market price of a symbol.
type PriceSource interface {
	Price(ctx context.Context, symbol string) (float64, error)
}

// StateStore persists the engine snapshot. Save replaces the stored state
// atomically; Load returns an empty state when nothing was saved yet.
type StateStore interface {
	Load(ctx context.Context) (models.EngineState, error)
	Save(ctx context.Context, state models.EngineState) error
	Close() error
}

// TradeNotifier receives every record appended to the ledger.
type TradeNotifier interface {
	Notify(ctx context.Context, rec models.TradeRecord) error
}

// Publisher delivers trade records to an event stream.
type Publisher interface {
	Publish(ctx context.Context, rec *models.TradeRecord) error
	PublishBatch(ctx context.Context, recs []*models.TradeRecord) error
	Health(ctx context.Context) error
}

// Storage appends trade records to an analytical store.
type Storage interface {
	Store(ctx context.Context, rec *models.TradeRecord) error
	StoreBatch(ctx context.Context, recs []*models.TradeRecord) error
	Health(ctx context.Context) error
}

type Metrics interface {
	RecordCycle(symbol, interval, result string)
	RecordDecision(symbol string, direction models.Direction)
	RecordOrder(symbol string, side models.Side, result string)
	RecordMessageSent(backend, symbol string)
	RecordError(kind string)
	RecordLastPrice(symbol string, price float64)
	RecordOpenPositions(n int)
	RecordLatency(op string, seconds float64)
}
