package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"TradeDesk/internal/domain/models"
	drepo "TradeDesk/internal/domain/repository"
	applogger "TradeDesk/pkg/logger"
)

// RunCycle fetches candles, acts on an actionable signal and then applies
// the risk bounds at the latest close. It returns models.ErrNoMarketData when
// the source returned nothing.
func (e *Engine) RunCycle(ctx context.Context, symbol string, interval drepo.Interval) error {
	start := time.Now()
	cfg := e.Config()
	strategy := e.Strategy()

	candles, err := e.market.GetCandles(ctx, symbol, interval, e.cfg.CandleLimit)
	if err != nil {
		e.metrics.RecordCycle(symbol, string(interval), "error")
		e.metrics.RecordError("market_data")
		e.logger.Error("fetch candles failed",
			applogger.String("symbol", symbol),
			applogger.String("interval", string(interval)),
			applogger.Error(err),
		)
		return fmt.Errorf("get candles: %w", err)
	}
	price, ok := models.LastClose(candles)
	if !ok {
		e.metrics.RecordCycle(symbol, string(interval), "empty")
		e.logger.Warn("no candles, cycle skipped",
			applogger.String("symbol", symbol),
			applogger.String("interval", string(interval)),
		)
		return models.ErrNoMarketData
	}
	e.metrics.RecordLastPrice(symbol, price)

	sig := strategy.Evaluate(candles)
	e.metrics.RecordDecision(symbol, sig.Direction)
	e.logger.Debug("signal evaluated",
		applogger.String("symbol", symbol),
		applogger.String("interval", string(interval)),
		applogger.String("strategy", strategy.Name()),
		applogger.String("direction", string(sig.Direction)),
		applogger.Any("confidence", sig.Confidence),
		applogger.Any("price", price),
	)

	unlock := e.lockSymbol(symbol)
	defer unlock()

	if sig.IsActionable(e.cfg.ActionThreshold) {
		if err := e.act(ctx, symbol, sig, price, cfg); err != nil {
			e.logActionError(symbol, sig, err)
		}
	}
	if err := e.checkRisk(ctx, symbol, price); err != nil {
		e.logger.Error("risk exit failed", applogger.String("symbol", symbol), applogger.Error(err))
	}

	e.metrics.RecordCycle(symbol, string(interval), "ok")
	e.metrics.RecordLatency("cycle", time.Since(start).Seconds())
	return nil
}

func (e *Engine) logActionError(symbol string, sig models.Signal, err error) {
	switch {
	case errors.Is(err, models.ErrPositionExists), errors.Is(err, models.ErrPositionNotFound):
		e.logger.Debug("signal ignored",
			applogger.String("symbol", symbol),
			applogger.String("direction", string(sig.Direction)),
			applogger.String("reason", err.Error()),
		)
	case errors.Is(err, models.ErrInsufficientFunds):
		// already logged by sizing
	default:
		e.logger.Error("signal action failed",
			applogger.String("symbol", symbol),
			applogger.String("direction", string(sig.Direction)),
			applogger.Error(err),
		)
	}
}

// Start sets the run flag and launches a worker for (symbol, interval). A
// non-empty strategy replaces the active one when no worker is running.
func (e *Engine) Start(ctx context.Context, symbol, interval, strategy string) error {
	iv := drepo.Interval(interval)
	if !drepo.IsValidInterval(iv) {
		return fmt.Errorf("%w: %q", models.ErrInvalidInterval, interval)
	}
	if strategy != "" {
		if err := e.SetStrategy(strategy); err != nil {
			return err
		}
	}

	key := models.WorkerKey{Symbol: symbol, Interval: interval}
	e.wmu.Lock()
	defer e.wmu.Unlock()
	if _, exists := e.workers[key]; exists {
		return models.ErrWorkerExists
	}

	e.running.Store(true)
	wctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	w := &worker{cancel: cancel, done: make(chan struct{})}
	e.workers[key] = w
	go e.runWorker(wctx, key, iv, w)

	e.logger.Info("worker started",
		applogger.String("worker", key.String()),
		applogger.String("strategy", e.Strategy().Name()),
		applogger.Duration("cycle_interval_ms", e.cfg.CycleInterval),
	)
	return nil
}

// runWorker loops until the run flag drops or its context is cancelled.
// Cycles run on a context detached from cancellation so in-flight calls
// finish.
func (e *Engine) runWorker(ctx context.Context, key models.WorkerKey, iv drepo.Interval, w *worker) {
	defer func() {
		e.wmu.Lock()
		if e.workers[key] == w {
			delete(e.workers, key)
		}
		e.wmu.Unlock()
		close(w.done)
		e.logger.Info("worker stopped", applogger.String("worker", key.String()))
	}()

	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
		if !e.running.Load() {
			return
		}
		_ = e.RunCycle(context.WithoutCancel(ctx), key.Symbol, iv)
		timer.Reset(e.cfg.CycleInterval)
	}
}

// Stop clears the run flag, cancels every worker and waits for them to
// return or for ctx to expire.
func (e *Engine) Stop(ctx context.Context) error {
	e.running.Store(false)

	e.wmu.Lock()
	ws := make([]*worker, 0, len(e.workers))
	for _, w := range e.workers {
		w.cancel()
		ws = append(ws, w)
	}
	e.wmu.Unlock()

	for _, w := range ws {
		select {
		case <-w.done:
		case <-ctx.Done():
			return fmt.Errorf("stop workers: %w", ctx.Err())
		}
	}
	e.logger.Info("engine stopped", applogger.Int("workers", len(ws)))
	return nil
}

// StopWorker stops a single worker. The run flag drops with the last one.
func (e *Engine) StopWorker(ctx context.Context, symbol, interval string) error {
	key := models.WorkerKey{Symbol: symbol, Interval: interval}
	e.wmu.Lock()
	w, ok := e.workers[key]
	if !ok {
		e.wmu.Unlock()
		return models.ErrWorkerNotFound
	}
	w.cancel()
	if len(e.workers) == 1 {
		e.running.Store(false)
	}
	e.wmu.Unlock()

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("stop worker %s: %w", key, ctx.Err())
	}
}

// Workers lists the active workers.
func (e *Engine) Workers() []models.WorkerKey {
	e.wmu.Lock()
	out := make([]models.WorkerKey, 0, len(e.workers))
	for k := range e.workers {
		out = append(out, k)
	}
	e.wmu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// Shutdown stops all workers and writes a final snapshot.
func (e *Engine) Shutdown(ctx context.Context) error {
	err := e.Stop(ctx)
	e.persist(ctx)
	return err
}
