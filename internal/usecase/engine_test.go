package usecase

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"TradeDesk/internal/domain/models"
)

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestStopLossRoundTrip(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 1000)

	h.market.set(falling(20, 100))
	if err := h.engine.RunCycle(ctx, "BTCUSDT", "1h"); err != nil {
		t.Fatalf("cycle: %v", err)
	}
	pos, ok := h.engine.Position("BTCUSDT")
	if !ok {
		t.Fatalf("expected open position")
	}
	if !near(pos.Quantity, 1) || pos.EntryPrice != 100 || !near(pos.StopLoss, 98) || !near(pos.TakeProfit, 103) {
		t.Fatalf("unexpected position %+v", pos)
	}

	// a tick exactly at the stop-loss closes the position
	h.market.set(falling(20, pos.StopLoss))
	if err := h.engine.RunCycle(ctx, "BTCUSDT", "1h"); err != nil {
		t.Fatalf("cycle: %v", err)
	}
	if _, ok := h.engine.Position("BTCUSDT"); ok {
		t.Fatalf("position should be closed by stop-loss")
	}
	trades := h.engine.Trades(0)
	if len(trades) != 2 {
		t.Fatalf("expected 2 ledger records, got %d", len(trades))
	}
	exit := trades[0]
	want := (pos.StopLoss - pos.EntryPrice) * pos.Quantity
	if exit.Action != models.SideSell || exit.Reason != models.ReasonStopLoss || exit.Profit == nil || !near(*exit.Profit, want) {
		t.Fatalf("unexpected exit record %+v", exit)
	}
	if math.Abs(*exit.Profit+2) > 1e-6 || exit.Price != pos.StopLoss {
		t.Fatalf("expected exit at 0.98P with profit -2, got %+v", exit)
	}
	if !exit.Simulated {
		t.Fatalf("records should be marked simulated")
	}

	st := h.engine.Statistics()
	if st.TotalTrades != 1 || st.LosingTrades != 1 || !near(st.WorstTrade, want) || st.ActivePositions != 0 {
		t.Fatalf("unexpected statistics %+v", st)
	}
	if len(h.store.state.Positions) != 0 || len(h.store.state.TradeLedger) != 2 {
		t.Fatalf("persisted state out of date: %+v", h.store.state)
	}
}

func TestTakeProfitOnHold(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 1000)
	if _, err := h.engine.CreatePosition(ctx, "ETHUSDT", 2, 100); err != nil {
		t.Fatalf("create: %v", err)
	}

	h.market.set(flat(20, 104))
	if err := h.engine.RunCycle(ctx, "ETHUSDT", "15m"); err != nil {
		t.Fatalf("cycle: %v", err)
	}
	if _, ok := h.engine.Position("ETHUSDT"); ok {
		t.Fatalf("position should be closed by take-profit")
	}
	exit := h.engine.Trades(1)[0]
	if exit.Reason != models.ReasonTakeProfit || !near(*exit.Profit, 8) {
		t.Fatalf("unexpected exit %+v", exit)
	}
}

func TestNoDoubleOpen(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 1000)

	h.market.set(falling(20, 100))
	_ = h.engine.RunCycle(ctx, "BTCUSDT", "1h")
	first, ok := h.engine.Position("BTCUSDT")
	if !ok {
		t.Fatalf("expected open position")
	}
	h.market.set(falling(20, 99.5))
	_ = h.engine.RunCycle(ctx, "BTCUSDT", "1h")

	again, ok := h.engine.Position("BTCUSDT")
	if !ok || again.EntryPrice != first.EntryPrice || !again.EntryTime.Equal(first.EntryTime) || again.Quantity != first.Quantity {
		t.Fatalf("existing position changed: before %+v after %+v", first, again)
	}

	if h.exec.orderCount() != 1 {
		t.Fatalf("expected a single buy order, got %d", h.exec.orderCount())
	}
	if len(h.engine.Positions()) != 1 || len(h.engine.Trades(0)) != 1 {
		t.Fatalf("expected one position and one record")
	}
}

func TestSellSignalClosesPosition(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 1000)
	if _, err := h.engine.CreatePosition(ctx, "BTCUSDT", 1, 101); err != nil {
		t.Fatalf("create: %v", err)
	}

	h.market.set(rising(20, 102))
	if err := h.engine.RunCycle(ctx, "BTCUSDT", "1h"); err != nil {
		t.Fatalf("cycle: %v", err)
	}
	if _, ok := h.engine.Position("BTCUSDT"); ok {
		t.Fatalf("position should be closed by the sell signal")
	}
	if h.exec.orderCount() != 1 || h.exec.orders[0].Side != models.SideSell {
		t.Fatalf("expected one sell order, got %+v", h.exec.orders)
	}
	exit := h.engine.Trades(1)[0]
	if exit.Action != models.SideSell || exit.Reason != models.ReasonSignal || exit.Profit == nil || !near(*exit.Profit, 1) {
		t.Fatalf("unexpected exit %+v", exit)
	}
}

func TestSellSignalWithoutPositionIsIgnored(t *testing.T) {
	h := newHarness(t, 1000)
	h.market.set(rising(20, 102))
	if err := h.engine.RunCycle(context.Background(), "BTCUSDT", "1h"); err != nil {
		t.Fatalf("cycle: %v", err)
	}
	if h.exec.orderCount() != 0 || len(h.engine.Positions()) != 0 || len(h.engine.Trades(0)) != 0 {
		t.Fatalf("a sell with no position must not trade")
	}
	if h.store.saves != 0 {
		t.Fatalf("nothing should be persisted, got %d saves", h.store.saves)
	}
}

func TestLedgerBooksFillPrice(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 1000)
	h.exec.fill = 100.5

	h.market.set(falling(20, 100))
	if err := h.engine.RunCycle(ctx, "BTCUSDT", "1h"); err != nil {
		t.Fatalf("cycle: %v", err)
	}
	pos, ok := h.engine.Position("BTCUSDT")
	if !ok || pos.EntryPrice != 100.5 || !near(pos.StopLoss, 100.5*(1-0.02)) {
		t.Fatalf("position should be booked at the fill, got %+v", pos)
	}

	h.exec.mu.Lock()
	h.exec.fill = 102
	h.exec.mu.Unlock()
	h.market.set(rising(20, 101))
	if err := h.engine.RunCycle(ctx, "BTCUSDT", "1h"); err != nil {
		t.Fatalf("cycle: %v", err)
	}
	exit := h.engine.Trades(1)[0]
	if exit.Price != 102 || exit.Profit == nil || !near(*exit.Profit, 1.5*pos.Quantity) {
		t.Fatalf("exit should be booked at the fill, got %+v", exit)
	}
}

func TestFailedOrderLeavesStateUntouched(t *testing.T) {
	ctx := context.Background()
	for name, setup := range map[string]func(*fakeExec){
		"error":    func(e *fakeExec) { e.err = errors.New("exchange down") },
		"rejected": func(e *fakeExec) { e.reject = true },
	} {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t, 1000)
			setup(h.exec)
			h.market.set(falling(20, 100))
			if err := h.engine.RunCycle(ctx, "BTCUSDT", "1h"); err != nil {
				t.Fatalf("cycle: %v", err)
			}
			if len(h.engine.Positions()) != 0 || len(h.engine.Trades(0)) != 0 {
				t.Fatalf("state must not change on a failed order")
			}
			if h.store.saves != 0 {
				t.Fatalf("nothing should be persisted, got %d saves", h.store.saves)
			}
		})
	}
}

func TestInsufficientFundsSkipsEntry(t *testing.T) {
	h := newHarness(t, 50)
	h.market.set(falling(20, 100))
	if err := h.engine.RunCycle(context.Background(), "BTCUSDT", "1h"); err != nil {
		t.Fatalf("cycle: %v", err)
	}
	if h.exec.orderCount() != 0 || len(h.engine.Positions()) != 0 {
		t.Fatalf("entry must be skipped below the minimum notional")
	}
}

func TestEmptyCandlesSkipCycle(t *testing.T) {
	h := newHarness(t, 1000)
	if err := h.engine.RunCycle(context.Background(), "BTCUSDT", "1h"); !errors.Is(err, models.ErrNoMarketData) {
		t.Fatalf("expected ErrNoMarketData, got %v", err)
	}
}

func TestZeroStatistics(t *testing.T) {
	h := newHarness(t, 1000)
	if st := h.engine.Statistics(); st != (models.Statistics{}) {
		t.Fatalf("expected zero statistics, got %+v", st)
	}
}

func TestManualLifecycle(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 1000)
	h.market.set(flat(5, 110))

	pos, err := h.engine.CreatePosition(ctx, "SOLUSDT", 3, 100)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if h.exec.orderCount() != 0 {
		t.Fatalf("manual create must not place an order")
	}
	if _, err := h.engine.CreatePosition(ctx, "SOLUSDT", 1, 100); !errors.Is(err, models.ErrPositionExists) {
		t.Fatalf("expected ErrPositionExists, got %v", err)
	}

	sl, tp := 95.0, 120.0
	for i := 0; i < 2; i++ {
		pos, err = h.engine.UpdateRiskBounds(ctx, "SOLUSDT", &sl, &tp)
		if err != nil || pos.StopLoss != 95 || pos.TakeProfit != 120 {
			t.Fatalf("override %d: %+v %v", i, pos, err)
		}
	}
	if _, err := h.engine.UpdateRiskBounds(ctx, "XRPUSDT", &sl, nil); !errors.Is(err, models.ErrPositionNotFound) {
		t.Fatalf("expected ErrPositionNotFound, got %v", err)
	}

	rec, err := h.engine.ClosePosition(ctx, "SOLUSDT")
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if rec.Reason != models.ReasonManual || rec.Price != 110 || !near(*rec.Profit, 30) {
		t.Fatalf("unexpected close record %+v", rec)
	}
	if _, err := h.engine.ClosePosition(ctx, "SOLUSDT"); !errors.Is(err, models.ErrPositionNotFound) {
		t.Fatalf("expected ErrPositionNotFound, got %v", err)
	}
}

func TestCreatePositionRejectsNonPositive(t *testing.T) {
	h := newHarness(t, 1000)
	if _, err := h.engine.CreatePosition(context.Background(), "BTCUSDT", 0, 100); err == nil {
		t.Fatalf("expected error for zero quantity")
	}
}

func TestLedgerCapacity(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 1000, WithLedgerCapacity(3))
	h.market.set(flat(5, 100))
	for i := 0; i < 2; i++ {
		if _, err := h.engine.CreatePosition(ctx, "BTCUSDT", 1, 90); err != nil {
			t.Fatalf("create: %v", err)
		}
		if _, err := h.engine.ClosePosition(ctx, "BTCUSDT"); err != nil {
			t.Fatalf("close: %v", err)
		}
	}
	trades := h.engine.Trades(0)
	if len(trades) != 3 {
		t.Fatalf("expected ledger capped at 3, got %d", len(trades))
	}
	if trades[2].Action != models.SideSell {
		t.Fatalf("oldest record should have been evicted, got %+v", trades[2])
	}
}

func TestUpdateConfig(t *testing.T) {
	h := newHarness(t, 1000)
	bad := 1.5
	if _, err := h.engine.UpdateConfig(models.ConfigPatch{MaxPositionFraction: &bad}); !errors.Is(err, models.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
	if h.engine.Config() != models.DefaultTradingConfig() {
		t.Fatalf("config must be unchanged after a rejected patch")
	}
	sl := 0.05
	cfg, err := h.engine.UpdateConfig(models.ConfigPatch{StopLossFraction: &sl})
	if err != nil || cfg.StopLossFraction != 0.05 || cfg.TakeProfitFraction != 0.03 {
		t.Fatalf("unexpected %+v %v", cfg, err)
	}
}

func TestRestoreAndNotify(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 1000)
	h.store.state = models.EngineState{
		Positions: map[string]models.Position{
			"BTCUSDT": {Symbol: "BTCUSDT", Quantity: 1, EntryPrice: 100, StopLoss: 98, TakeProfit: 103},
		},
		TradeLedger: []models.TradeRecord{{ID: "a", Symbol: "BTCUSDT", Action: models.SideBuy, Price: 100, Quantity: 1}},
	}
	if err := h.engine.Restore(ctx); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if _, ok := h.engine.Position("BTCUSDT"); !ok || len(h.engine.Trades(0)) != 1 {
		t.Fatalf("state not restored")
	}

	n := &recordingNotifier{}
	h2 := newHarness(t, 1000, WithNotifier(n))
	if _, err := h2.engine.CreatePosition(ctx, "ETHUSDT", 1, 10); err != nil {
		t.Fatalf("create should succeed even when the notifier fails: %v", err)
	}
	if len(n.recs) != 1 || n.recs[0].Reason != models.ReasonManual {
		t.Fatalf("notifier not called: %+v", n.recs)
	}
}

func TestPersistFailureKeepsMemoryState(t *testing.T) {
	h := newHarness(t, 1000)
	h.store.err = errors.New("disk full")
	if _, err := h.engine.CreatePosition(context.Background(), "BTCUSDT", 1, 100); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, ok := h.engine.Position("BTCUSDT"); !ok {
		t.Fatalf("in-memory state must survive a failed save")
	}
}

func TestWorkers(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 1000, WithCycleInterval(time.Hour))
	h.market.set(flat(20, 100))

	if err := h.engine.Start(ctx, "BTCUSDT", "7m", ""); !errors.Is(err, models.ErrInvalidInterval) {
		t.Fatalf("expected ErrInvalidInterval, got %v", err)
	}
	if err := h.engine.Start(ctx, "BTCUSDT", "1h", ""); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := h.engine.Start(ctx, "BTCUSDT", "1h", ""); !errors.Is(err, models.ErrWorkerExists) {
		t.Fatalf("expected ErrWorkerExists, got %v", err)
	}
	if err := h.engine.Start(ctx, "ETHUSDT", "4h", ""); err != nil {
		t.Fatalf("second worker: %v", err)
	}
	if err := h.engine.SetStrategy("sma"); !errors.Is(err, models.ErrEngineBusy) {
		t.Fatalf("expected ErrEngineBusy, got %v", err)
	}
	if !h.engine.Running() || len(h.engine.Workers()) != 2 {
		t.Fatalf("expected two running workers, got %v", h.engine.Workers())
	}

	stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := h.engine.StopWorker(stopCtx, "BTCUSDT", "1h"); err != nil {
		t.Fatalf("stop worker: %v", err)
	}
	if !h.engine.Running() {
		t.Fatalf("engine should keep running with one worker left")
	}
	if err := h.engine.StopWorker(stopCtx, "BTCUSDT", "1h"); !errors.Is(err, models.ErrWorkerNotFound) {
		t.Fatalf("expected ErrWorkerNotFound, got %v", err)
	}
	if err := h.engine.Shutdown(stopCtx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if h.engine.Running() || len(h.engine.Workers()) != 0 {
		t.Fatalf("engine should be stopped")
	}
	if err := h.engine.SetStrategy("sma"); err != nil {
		t.Fatalf("strategy swap after stop: %v", err)
	}
}

func TestUnknownStrategy(t *testing.T) {
	h := newHarness(t, 1000)
	if err := h.engine.SetStrategy("macd"); !errors.Is(err, models.ErrUnknownStrategy) {
		t.Fatalf("expected ErrUnknownStrategy, got %v", err)
	}
}
