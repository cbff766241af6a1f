package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"TradeDesk/internal/domain/models"
	drepo "TradeDesk/internal/domain/repository"
	"TradeDesk/internal/domain/service"
	"TradeDesk/internal/services/signals"
	applogger "TradeDesk/pkg/logger"
)

// EngineOption configures Engine.
type EngineOption func(*EngineConfig)

// EngineConfig holds the static engine settings.
type EngineConfig struct {
	QuoteAsset      string
	CandleLimit     int
	CycleInterval   time.Duration
	ActionThreshold float64
	LedgerCapacity  int
	RecentTrades    int
	Simulated       bool
	Strategy        string
	Trading         models.TradingConfig
	Notifier        drepo.TradeNotifier
}

// WithQuoteAsset sets the asset whose balance funds entries.
func WithQuoteAsset(asset string) EngineOption {
	return func(c *EngineConfig) { c.QuoteAsset = asset }
}

// WithCandleLimit sets how many candles each cycle fetches.
func WithCandleLimit(n int) EngineOption {
	return func(c *EngineConfig) {
		if n > 0 {
			c.CandleLimit = n
		}
	}
}

// WithCycleInterval sets the idle time between cycles.
func WithCycleInterval(d time.Duration) EngineOption {
	return func(c *EngineConfig) {
		if d > 0 {
			c.CycleInterval = d
		}
	}
}

// WithActionThreshold sets the confidence a signal must exceed to act.
func WithActionThreshold(v float64) EngineOption {
	return func(c *EngineConfig) { c.ActionThreshold = v }
}

// WithLedgerCapacity caps the trade ledger.
func WithLedgerCapacity(n int) EngineOption {
	return func(c *EngineConfig) {
		if n > 0 {
			c.LedgerCapacity = n
		}
	}
}

// WithSimulated marks every recorded trade as simulated.
func WithSimulated(sim bool) EngineOption {
	return func(c *EngineConfig) { c.Simulated = sim }
}

// WithStrategy selects the initial strategy by name.
func WithStrategy(name string) EngineOption {
	return func(c *EngineConfig) { c.Strategy = name }
}

// WithTradingConfig sets the initial risk parameters.
func WithTradingConfig(tc models.TradingConfig) EngineOption {
	return func(c *EngineConfig) { c.Trading = tc }
}

// WithNotifier forwards every ledger append.
func WithNotifier(n drepo.TradeNotifier) EngineOption {
	return func(c *EngineConfig) { c.Notifier = n }
}

type worker struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Engine evaluates signals per (symbol, interval) and manages the lifecycle
// of at most one long position per symbol.
type Engine struct {
	market  drepo.MarketData
	exec    drepo.Execution
	prices  drepo.PriceSource
	store   drepo.StateStore
	metrics drepo.Metrics
	logger  *applogger.Logger
	cfg     EngineConfig

	// mu guards positions, ledger, trading and strategy.
	mu        sync.RWMutex
	positions map[string]models.Position
	ledger    *Ledger
	trading   models.TradingConfig
	strategy  service.SignalGenerator

	symMu    sync.Mutex
	symLocks map[string]*sync.Mutex

	saveMu sync.Mutex

	running atomic.Bool
	wmu     sync.Mutex
	workers map[models.WorkerKey]*worker
}

// NewEngine creates an Engine. Call Restore before starting workers.
func NewEngine(
	market drepo.MarketData,
	exec drepo.Execution,
	prices drepo.PriceSource,
	store drepo.StateStore,
	metrics drepo.Metrics,
	logger *applogger.Logger,
	opts ...EngineOption,
) (*Engine, error) {
	cfg := EngineConfig{
		QuoteAsset:      "USDT",
		CandleLimit:     100,
		CycleInterval:   60 * time.Second,
		ActionThreshold: 50,
		LedgerCapacity:  1000,
		RecentTrades:    10,
		Strategy:        signals.StrategyCombined,
		Trading:         models.DefaultTradingConfig(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := validateTrading(cfg.Trading); err != nil {
		return nil, err
	}
	strategy, err := signals.New(cfg.Strategy)
	if err != nil {
		return nil, err
	}

	return &Engine{
		market:    market,
		exec:      exec,
		prices:    prices,
		store:     store,
		metrics:   metrics,
		logger:    logger,
		cfg:       cfg,
		positions: make(map[string]models.Position),
		ledger:    NewLedger(cfg.LedgerCapacity),
		trading:   cfg.Trading,
		strategy:  strategy,
		symLocks:  make(map[string]*sync.Mutex),
		workers:   make(map[models.WorkerKey]*worker),
	}, nil
}

// Restore loads the persisted positions and ledger.
func (e *Engine) Restore(ctx context.Context) error {
	st, err := e.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("restore state: %w", err)
	}

	e.mu.Lock()
	e.positions = make(map[string]models.Position, len(st.Positions))
	for sym, p := range st.Positions {
		e.positions[sym] = p
	}
	e.ledger.Load(st.TradeLedger)
	n := len(e.positions)
	trades := e.ledger.Len()
	e.mu.Unlock()

	e.metrics.RecordOpenPositions(n)
	e.logger.Info("engine state restored",
		applogger.Int("positions", n),
		applogger.Int("trades", trades),
	)
	return nil
}

// Snapshot returns a deep copy of the persisted state.
func (e *Engine) Snapshot() models.EngineState {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.snapshotLocked()
}

func (e *Engine) snapshotLocked() models.EngineState {
	st := models.EngineState{
		Positions:   make(map[string]models.Position, len(e.positions)),
		TradeLedger: e.ledger.Records(),
	}
	for sym, p := range e.positions {
		st.Positions[sym] = p
	}
	return st
}

// Config returns the current risk parameters.
func (e *Engine) Config() models.TradingConfig {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.trading
}

// UpdateConfig applies a partial update. Open positions keep their bounds;
// the next cycle reads the new values.
func (e *Engine) UpdateConfig(patch models.ConfigPatch) (models.TradingConfig, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	next := e.trading.Apply(patch)
	if err := validateTrading(next); err != nil {
		return e.trading, err
	}
	e.trading = next
	e.logger.Info("trading config updated", applogger.Any("config", next))
	return next, nil
}

func validateTrading(c models.TradingConfig) error {
	switch {
	case c.MaxPositionFraction <= 0 || c.MaxPositionFraction > 1:
		return fmt.Errorf("%w: max_position_fraction must be in (0, 1]", models.ErrInvalidConfig)
	case c.StopLossFraction <= 0 || c.StopLossFraction >= 1:
		return fmt.Errorf("%w: stop_loss_fraction must be in (0, 1)", models.ErrInvalidConfig)
	case c.TakeProfitFraction <= 0:
		return fmt.Errorf("%w: take_profit_fraction must be positive", models.ErrInvalidConfig)
	case c.MinOrderNotional < 0:
		return fmt.Errorf("%w: min_order_notional must not be negative", models.ErrInvalidConfig)
	}
	return nil
}

// Strategy returns the active strategy.
func (e *Engine) Strategy() service.SignalGenerator {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.strategy
}

// SetStrategy swaps the active strategy. Swapping is refused while workers run.
func (e *Engine) SetStrategy(name string) error {
	g, err := signals.New(name)
	if err != nil {
		return err
	}
	e.wmu.Lock()
	busy := len(e.workers) > 0
	e.wmu.Unlock()

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.strategy.Name() == g.Name() {
		return nil
	}
	if busy {
		return models.ErrEngineBusy
	}
	e.strategy = g
	return nil
}

// Simulated reports whether trades are recorded as simulated.
func (e *Engine) Simulated() bool { return e.cfg.Simulated }

// Running reports the cooperative run flag.
func (e *Engine) Running() bool { return e.running.Load() }

// Position returns the open position for symbol.
func (e *Engine) Position(symbol string) (models.Position, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	p, ok := e.positions[symbol]
	return p, ok
}

// Positions returns all open positions ordered by symbol.
func (e *Engine) Positions() []models.Position {
	e.mu.RLock()
	out := make([]models.Position, 0, len(e.positions))
	for _, p := range e.positions {
		out = append(out, p)
	}
	e.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// Trades returns up to limit ledger records, newest first.
func (e *Engine) Trades(limit int) []models.TradeRecord {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.ledger.Recent(limit)
}

// Statistics recomputes the ledger summary.
func (e *Engine) Statistics() models.Statistics {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return ComputeStatistics(e.ledger.Records(), len(e.positions))
}

// Balance returns the free balance of asset from the execution service.
func (e *Engine) Balance(ctx context.Context, asset string) (float64, error) {
	if asset == "" {
		asset = e.cfg.QuoteAsset
	}
	return e.exec.GetBalance(ctx, asset)
}

// lockSymbol serializes lifecycle mutations for one symbol.
func (e *Engine) lockSymbol(symbol string) func() {
	e.symMu.Lock()
	l, ok := e.symLocks[symbol]
	if !ok {
		l = &sync.Mutex{}
		e.symLocks[symbol] = l
	}
	e.symMu.Unlock()
	l.Lock()
	return l.Unlock
}

// persist writes the whole state. Failures are logged; the in-memory state
// stays authoritative.
func (e *Engine) persist(ctx context.Context) {
	e.saveMu.Lock()
	defer e.saveMu.Unlock()

	start := time.Now()
	st := e.Snapshot()
	if err := e.store.Save(ctx, st); err != nil {
		e.metrics.RecordError("persist")
		e.logger.Error("persist state failed", applogger.Error(err))
		return
	}
	e.metrics.RecordOpenPositions(len(st.Positions))
	e.metrics.RecordLatency("persist", time.Since(start).Seconds())
}

func (e *Engine) notify(ctx context.Context, rec models.TradeRecord) {
	if e.cfg.Notifier == nil {
		return
	}
	if err := e.cfg.Notifier.Notify(ctx, rec); err != nil {
		e.logger.Warn("trade notification failed",
			applogger.String("trade_id", rec.ID),
			applogger.String("symbol", rec.Symbol),
			applogger.Error(err),
		)
	}
}
