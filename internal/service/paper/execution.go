package paper

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"TradeDesk/internal/domain/models"
	drepo "TradeDesk/internal/domain/repository"
	applogger "TradeDesk/pkg/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Option configures Execution.
type Option func(*Config)

// Config holds the simulated account settings.
type Config struct {
	QuoteAsset      string
	StartingBalance float64
	Filters         models.SymbolFilters
}

func WithQuoteAsset(asset string) Option {
	return func(c *Config) {
		if asset != "" {
			c.QuoteAsset = asset
		}
	}
}

func WithStartingBalance(v float64) Option {
	return func(c *Config) {
		if v >= 0 {
			c.StartingBalance = v
		}
	}
}

// WithFilters sets the lot-size constraints reported for every symbol.
func WithFilters(f models.SymbolFilters) Option {
	return func(c *Config) { c.Filters = f }
}

// Execution simulates market orders against an in-memory account. Fills
// happen at the current price of the PriceSource.
type Execution struct {
	prices drepo.PriceSource
	logger *applogger.Logger
	cfg    Config

	mu       sync.Mutex
	balances map[string]decimal.Decimal
}

func NewExecution(prices drepo.PriceSource, l *applogger.Logger, opts ...Option) *Execution {
	cfg := Config{
		QuoteAsset:      "USDT",
		StartingBalance: 10000,
		Filters:         models.SymbolFilters{MinQty: 0.00001, StepSize: 0.00001},
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Execution{
		prices: prices,
		logger: l,
		cfg:    cfg,
		balances: map[string]decimal.Decimal{
			cfg.QuoteAsset: decimal.NewFromFloat(cfg.StartingBalance),
		},
	}
}

func (e *Execution) GetBalance(_ context.Context, asset string) (float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.balances[asset].InexactFloat64(), nil
}

func (e *Execution) GetSymbolFilters(context.Context, string) (models.SymbolFilters, error) {
	return e.cfg.Filters, nil
}

// PlaceOrder fills a market order in full. Buys beyond the cash balance and
// sells beyond the held quantity are rejected with a nil result.
func (e *Execution) PlaceOrder(ctx context.Context, symbol string, side models.Side, quantity float64) (*models.OrderResult, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("paper order %s: quantity must be positive", symbol)
	}
	price, err := e.prices.Price(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("paper order %s: %w", symbol, err)
	}
	if price <= 0 {
		return nil, fmt.Errorf("paper order %s: %w", symbol, models.ErrPriceUnavailable)
	}

	base := e.baseAsset(symbol)
	qty := decimal.NewFromFloat(quantity)
	notional := qty.Mul(decimal.NewFromFloat(price))

	e.mu.Lock()
	quote := e.balances[e.cfg.QuoteAsset]
	held := e.balances[base]
	switch side {
	case models.SideBuy:
		if notional.GreaterThan(quote) {
			e.mu.Unlock()
			e.logger.Warn("paper buy rejected: insufficient balance",
				applogger.String("symbol", symbol),
				applogger.String("notional", notional.String()),
				applogger.String("balance", quote.String()),
			)
			return nil, nil
		}
		e.balances[e.cfg.QuoteAsset] = quote.Sub(notional)
		e.balances[base] = held.Add(qty)
	case models.SideSell:
		// positions restored from an earlier run have no simulated holding
		if held.LessThan(qty) {
			held = qty
		}
		e.balances[e.cfg.QuoteAsset] = quote.Add(notional)
		e.balances[base] = held.Sub(qty)
	default:
		e.mu.Unlock()
		return nil, fmt.Errorf("paper order %s: unknown side %q", symbol, side)
	}
	e.mu.Unlock()

	res := &models.OrderResult{
		OrderID:     uuid.NewString(),
		Symbol:      symbol,
		Side:        side,
		Quantity:    quantity,
		Status:      "FILLED",
		FilledPrice: price,
	}
	e.logger.Info("paper order filled",
		applogger.String("order_id", res.OrderID),
		applogger.String("symbol", symbol),
		applogger.String("side", string(side)),
		applogger.Float64("quantity", quantity),
		applogger.Float64("price", price),
	)
	return res, nil
}

func (e *Execution) baseAsset(symbol string) string {
	if b, ok := strings.CutSuffix(symbol, e.cfg.QuoteAsset); ok && b != "" {
		return b
	}
	return symbol
}
