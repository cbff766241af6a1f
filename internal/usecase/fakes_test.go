package usecase

import (
	"context"
	"errors"
	"sync"

	"TradeDesk/internal/domain/models"
	drepo "TradeDesk/internal/domain/repository"
	applogger "TradeDesk/pkg/logger"
	"TradeDesk/pkg/metrics"
)

type fakeMarket struct {
	mu      sync.Mutex
	candles []models.Candle
	err     error
	calls   int
}

func (m *fakeMarket) set(c []models.Candle) {
	m.mu.Lock()
	m.candles = c
	m.mu.Unlock()
}

func (m *fakeMarket) GetCandles(context.Context, string, drepo.Interval, int) ([]models.Candle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.candles, m.err
}

func (m *fakeMarket) Price(context.Context, string) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := models.LastClose(m.candles); ok {
		return c, nil
	}
	return 0, models.ErrPriceUnavailable
}

type fakeExec struct {
	mu      sync.Mutex
	balance float64
	filters models.SymbolFilters
	orders  []models.OrderResult
	err     error
	reject  bool
	fill    float64
}

func newFakeExec(balance float64) *fakeExec {
	return &fakeExec{balance: balance, filters: models.SymbolFilters{MinQty: 0.00001, StepSize: 0.00001}}
}

func (e *fakeExec) GetBalance(context.Context, string) (float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.balance, nil
}

func (e *fakeExec) GetSymbolFilters(context.Context, string) (models.SymbolFilters, error) {
	return e.filters, nil
}

func (e *fakeExec) PlaceOrder(_ context.Context, symbol string, side models.Side, qty float64) (*models.OrderResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return nil, e.err
	}
	if e.reject {
		return nil, nil
	}
	res := models.OrderResult{OrderID: "o1", Symbol: symbol, Side: side, Quantity: qty, Status: "FILLED", FilledPrice: e.fill}
	e.orders = append(e.orders, res)
	return &res, nil
}

func (e *fakeExec) orderCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.orders)
}

type memStore struct {
	mu    sync.Mutex
	state models.EngineState
	saves int
	err   error
}

func (s *memStore) Load(context.Context) (models.EngineState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Positions == nil {
		return models.EmptyState(), nil
	}
	return s.state, nil
}

func (s *memStore) Save(_ context.Context, st models.EngineState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.state = st
	s.saves++
	return nil
}

func (s *memStore) Close() error { return nil }

type recordingNotifier struct {
	mu   sync.Mutex
	recs []models.TradeRecord
}

func (n *recordingNotifier) Notify(_ context.Context, rec models.TradeRecord) error {
	n.mu.Lock()
	n.recs = append(n.recs, rec)
	n.mu.Unlock()
	return errors.New("downstream unavailable")
}

// falling returns n candles whose closes step down by one, ending at last.
func falling(n int, last float64) []models.Candle {
	out := make([]models.Candle, n)
	for i := range out {
		c := last + float64(n-1-i)
		out[i] = models.Candle{Open: c, High: c, Low: c, Close: c, Volume: 1}
	}
	return out
}

// rising returns n candles whose closes step up by one, ending at last.
func rising(n int, last float64) []models.Candle {
	out := make([]models.Candle, n)
	for i := range out {
		c := last - float64(n-1-i)
		out[i] = models.Candle{Open: c, High: c, Low: c, Close: c, Volume: 1}
	}
	return out
}

func flat(n int, price float64) []models.Candle {
	out := make([]models.Candle, n)
	for i := range out {
		out[i] = models.Candle{Open: price, High: price, Low: price, Close: price, Volume: 1}
	}
	return out
}

type harness struct {
	market *fakeMarket
	exec   *fakeExec
	store  *memStore
	engine *Engine
}

func newHarness(t interface{ Fatalf(string, ...any) }, balance float64, opts ...EngineOption) *harness {
	h := &harness{market: &fakeMarket{}, exec: newFakeExec(balance), store: &memStore{}}
	opts = append([]EngineOption{WithStrategy("rsi"), WithSimulated(true)}, opts...)
	e, err := NewEngine(h.market, h.exec, h.market, h.store, metrics.Noop{}, applogger.NewNop(), opts...)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	h.engine = e
	return h
}
