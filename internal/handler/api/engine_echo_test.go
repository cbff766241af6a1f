package api

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"TradeDesk/internal/domain/models"
	drepo "TradeDesk/internal/domain/repository"
	"TradeDesk/internal/service/paper"
	"TradeDesk/internal/usecase"
	applogger "TradeDesk/pkg/logger"
	"TradeDesk/pkg/metrics"

	"github.com/labstack/echo/v4"
)

type flatMarket struct{ price float64 }

func (m flatMarket) GetCandles(_ context.Context, _ string, _ drepo.Interval, limit int) ([]models.Candle, error) {
	out := make([]models.Candle, limit)
	for i := range out {
		out[i] = models.Candle{Open: m.price, High: m.price, Low: m.price, Close: m.price, Volume: 1}
	}
	return out, nil
}

func (m flatMarket) Price(context.Context, string) (float64, error) { return m.price, nil }

type memStore struct {
	mu    sync.Mutex
	state models.EngineState
}

func (s *memStore) Load(context.Context) (models.EngineState, error) { return models.EmptyState(), nil }
func (s *memStore) Save(_ context.Context, st models.EngineState) error {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
	return nil
}
func (s *memStore) Close() error { return nil }

type envelope struct {
	Status int             `json:"status"`
	Data   json.RawMessage `json:"data"`
}

func newTestServer(t *testing.T) *echo.Echo {
	t.Helper()
	l := applogger.NewNop()
	market := flatMarket{price: 100}
	exec := paper.NewExecution(market, l)
	engine, err := usecase.NewEngine(market, exec, market, &memStore{}, metrics.Noop{}, l, usecase.WithSimulated(true))
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	e := echo.New()
	NewEngineHandler(l, engine).RegisterRoutes(e)
	return e
}

func do(t *testing.T, e *echo.Echo, method, path, body string) (int, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("%s %s: decode %q: %v", method, path, rec.Body.String(), err)
	}
	return rec.Code, env
}

func TestPositionRoutes(t *testing.T) {
	e := newTestServer(t)

	code, env := do(t, e, http.MethodPost, "/api/positions", `{"symbol":"BTCUSDT","quantity":0.5,"entry_price":100}`)
	if code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d", code)
	}
	var pos models.Position
	if err := json.Unmarshal(env.Data, &pos); err != nil {
		t.Fatalf("decode position: %v", err)
	}
	if math.Abs(pos.StopLoss-98) > 1e-9 || math.Abs(pos.TakeProfit-103) > 1e-9 {
		t.Fatalf("unexpected bounds %+v", pos)
	}

	if code, _ := do(t, e, http.MethodPost, "/api/positions", `{"symbol":"BTCUSDT","quantity":1,"entry_price":100}`); code != http.StatusConflict {
		t.Fatalf("duplicate create: expected 409, got %d", code)
	}

	code, env = do(t, e, http.MethodPut, "/api/positions/BTCUSDT", `{"stop_loss":90}`)
	if code != http.StatusOK {
		t.Fatalf("update: expected 200, got %d", code)
	}
	if err := json.Unmarshal(env.Data, &pos); err != nil || pos.StopLoss != 90 || math.Abs(pos.TakeProfit-103) > 1e-9 {
		t.Fatalf("unexpected update result %+v %v", pos, err)
	}

	if code, _ := do(t, e, http.MethodDelete, "/api/positions/ETHUSDT", ""); code != http.StatusNotFound {
		t.Fatalf("close missing: expected 404, got %d", code)
	}

	code, env = do(t, e, http.MethodDelete, "/api/positions/BTCUSDT", "")
	if code != http.StatusOK {
		t.Fatalf("close: expected 200, got %d", code)
	}
	var rec models.TradeRecord
	if err := json.Unmarshal(env.Data, &rec); err != nil {
		t.Fatalf("decode trade: %v", err)
	}
	if rec.Action != models.SideSell || rec.Reason != models.ReasonManual || !rec.Simulated {
		t.Fatalf("unexpected close record %+v", rec)
	}

	code, env = do(t, e, http.MethodGet, "/api/statistics", "")
	if code != http.StatusOK {
		t.Fatalf("statistics: expected 200, got %d", code)
	}
	var st models.Statistics
	if err := json.Unmarshal(env.Data, &st); err != nil || st.TotalTrades != 1 || st.ActivePositions != 0 {
		t.Fatalf("unexpected statistics %+v %v", st, err)
	}
}

func TestValidationErrors(t *testing.T) {
	e := newTestServer(t)
	cases := []struct {
		method, path, body string
	}{
		{http.MethodPost, "/api/start", `{"symbol":"BTCUSDT","interval":"7m"}`},
		{http.MethodPost, "/api/start", `{"symbol":"BTCUSDT","strategy":"macd"}`},
		{http.MethodPost, "/api/positions", `{"symbol":"BTCUSDT","quantity":0,"entry_price":100}`},
		{http.MethodPut, "/api/config", `{"max_position_fraction":2}`},
		{http.MethodGet, "/api/trades?limit=5000", ""},
	}
	for _, tc := range cases {
		if code, _ := do(t, e, tc.method, tc.path, tc.body); code != http.StatusBadRequest {
			t.Fatalf("%s %s: expected 400, got %d", tc.method, tc.path, code)
		}
	}
}

func TestConfigRoundTrip(t *testing.T) {
	e := newTestServer(t)
	code, env := do(t, e, http.MethodPut, "/api/config", `{"stop_loss_fraction":0.05}`)
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	var cfg models.TradingConfig
	if err := json.Unmarshal(env.Data, &cfg); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if cfg.StopLossFraction != 0.05 || cfg.MaxPositionFraction != 0.1 {
		t.Fatalf("unexpected config %+v", cfg)
	}
}

func TestStartStop(t *testing.T) {
	e := newTestServer(t)
	if code, _ := do(t, e, http.MethodPost, "/api/start", `{"symbol":"BTCUSDT","interval":"1h","strategy":"rsi"}`); code != http.StatusOK {
		t.Fatalf("start: expected 200, got %d", code)
	}
	if code, _ := do(t, e, http.MethodPost, "/api/start", `{"symbol":"BTCUSDT","interval":"1h"}`); code != http.StatusConflict {
		t.Fatalf("second start: expected 409, got %d", code)
	}
	if code, _ := do(t, e, http.MethodPost, "/api/stop", `{"symbol":"BTCUSDT"}`); code != http.StatusOK {
		t.Fatalf("stop symbol: expected 200, got %d", code)
	}
	if code, _ := do(t, e, http.MethodPost, "/api/stop", `{"symbol":"BTCUSDT","interval":"1h"}`); code != http.StatusNotFound {
		t.Fatalf("stop missing worker: expected 404, got %d", code)
	}

	code, env := do(t, e, http.MethodGet, "/api/status", "")
	if code != http.StatusOK {
		t.Fatalf("status: expected 200, got %d", code)
	}
	var st models.Status
	if err := json.Unmarshal(env.Data, &st); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if st.Running || len(st.Workers) != 0 || st.Strategy != "rsi" || !st.Simulated {
		t.Fatalf("unexpected status %+v", st)
	}
}

func TestBalanceAndSignals(t *testing.T) {
	e := newTestServer(t)
	code, env := do(t, e, http.MethodGet, "/api/balance", "")
	if code != http.StatusOK {
		t.Fatalf("balance: expected 200, got %d", code)
	}
	var bal struct {
		Asset   string  `json:"asset"`
		Balance float64 `json:"balance"`
	}
	if err := json.Unmarshal(env.Data, &bal); err != nil || bal.Asset != "USDT" || bal.Balance != 10000 {
		t.Fatalf("unexpected balance %+v %v", bal, err)
	}

	code, env = do(t, e, http.MethodGet, "/api/signals?symbol=BTCUSDT&interval=4h", "")
	if code != http.StatusOK {
		t.Fatalf("signals: expected 200, got %d", code)
	}
	var prev models.SignalPreview
	if err := json.Unmarshal(env.Data, &prev); err != nil {
		t.Fatalf("decode preview: %v", err)
	}
	if prev.Price != 100 || prev.Interval != "4h" || len(prev.Generators) == 0 {
		t.Fatalf("unexpected preview %+v", prev)
	}
}
