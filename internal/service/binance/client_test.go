package binance

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"TradeDesk/internal/domain/models"
	"TradeDesk/internal/service/ratelimit"
	pkgcache "TradeDesk/pkg/cache"
	applogger "TradeDesk/pkg/logger"
)

func newTestClient(t *testing.T, h http.HandlerFunc, opts ...ClientOption) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	opts = append([]ClientOption{WithBaseURL(srv.URL), WithCredentials("key", "secret")}, opts...)
	return NewClient(applogger.NewNop(), ratelimit.New(), opts...)
}

func TestGetCandlesParsesKlines(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v3/klines" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("interval") != "1h" || r.URL.Query().Get("limit") != "2" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`[
			[1700000000000,"100.0","110.0","95.0","105.0","12.5",1700003599999,"0",1,"0","0","0"],
			[1700003600000,"105.0","112.0","101.0","111.0","8.0",1700007199999,"0",1,"0","0","0"]
		]`))
	})
	candles, err := c.GetCandles(context.Background(), "BTCUSDT", "1h", 2)
	if err != nil {
		t.Fatalf("get candles: %v", err)
	}
	if len(candles) != 2 {
		t.Fatalf("expected 2 candles, got %d", len(candles))
	}
	if candles[1].Close != 111 || candles[0].Volume != 12.5 {
		t.Fatalf("unexpected values %+v", candles)
	}
	if !candles[0].OpenTime.Equal(time.UnixMilli(1700000000000)) {
		t.Fatalf("unexpected open time %v", candles[0].OpenTime)
	}
}

func TestPrice(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"symbol":"BTCUSDT","price":"40000.50"}`))
	})
	p, err := c.Price(context.Background(), "BTCUSDT")
	if err != nil || p != 40000.5 {
		t.Fatalf("unexpected %v %v", p, err)
	}
}

func TestSymbolFiltersAreCached(t *testing.T) {
	var calls atomic.Int32
	mc := pkgcache.NewMemoryCache()
	defer mc.Close()
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"symbols":[{"symbol":"BTCUSDT","filters":[
			{"filterType":"PRICE_FILTER","tickSize":"0.01"},
			{"filterType":"LOT_SIZE","minQty":"0.00001","maxQty":"9000","stepSize":"0.00001"}
		]}]}`))
	}, WithFilterCache(mc, time.Minute))

	for i := 0; i < 2; i++ {
		f, err := c.GetSymbolFilters(context.Background(), "BTCUSDT")
		if err != nil {
			t.Fatalf("filters: %v", err)
		}
		if f.StepSize != 0.00001 || f.MaxQty != 9000 {
			t.Fatalf("unexpected filters %+v", f)
		}
	}
	if calls.Load() != 1 {
		t.Fatalf("expected one exchange call, got %d", calls.Load())
	}
}

func TestSignedBalanceRequest(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-MBX-APIKEY") != "key" {
			t.Errorf("missing api key header")
		}
		raw := r.URL.RawQuery
		q, _ := url.ParseQuery(raw)
		sig := q.Get("signature")
		q.Del("signature")
		if sig == "" || sig != sign("secret", q.Encode()) {
			t.Errorf("bad signature for %s", raw)
		}
		_, _ = w.Write([]byte(`{"balances":[{"asset":"BTC","free":"0.1","locked":"0"},{"asset":"USDT","free":"1000.25","locked":"5"}]}`))
	})
	bal, err := c.GetBalance(context.Background(), "USDT")
	if err != nil || bal != 1000.25 {
		t.Fatalf("unexpected %v %v", bal, err)
	}
	bal, err = c.GetBalance(context.Background(), "ETH")
	if err != nil || bal != 0 {
		t.Fatalf("missing asset should be zero, got %v %v", bal, err)
	}
}

func TestPlaceOrder(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		q := r.URL.Query()
		if q.Get("type") != "MARKET" || q.Get("side") != "BUY" || q.Get("quantity") != "0.0025" {
			t.Errorf("unexpected order params %s", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`{"orderId":42,"symbol":"BTCUSDT","status":"FILLED","executedQty":"0.0025","cummulativeQuoteQty":"100"}`))
	})
	res, err := c.PlaceOrder(context.Background(), "BTCUSDT", models.SideBuy, 0.0025)
	if err != nil || res == nil {
		t.Fatalf("unexpected %v %v", res, err)
	}
	if res.OrderID != "42" || res.Quantity != 0.0025 || res.FilledPrice != 40000 {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestPlaceOrderRejectedIsNil(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"orderId":7,"symbol":"BTCUSDT","status":"REJECTED","executedQty":"0"}`))
	})
	res, err := c.PlaceOrder(context.Background(), "BTCUSDT", models.SideSell, 1)
	if err != nil || res != nil {
		t.Fatalf("expected nil result, got %+v %v", res, err)
	}
}

func TestAPIErrorDecoded(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":-1121,"msg":"Invalid symbol."}`))
	})
	_, err := c.Price(context.Background(), "NOPE")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != -1121 || apiErr.HTTPStatus != 400 {
		t.Fatalf("unexpected %+v", apiErr)
	}
}

func TestSignedRequiresCredentials(t *testing.T) {
	c := NewClient(applogger.NewNop(), nil, WithBaseURL("http://127.0.0.1:1"))
	if _, err := c.GetBalance(context.Background(), "USDT"); err == nil {
		t.Fatalf("expected credentials error")
	}
}

func TestParseKlinesShortRow(t *testing.T) {
	if _, err := parseKlines([][]any{{"1", "2"}}); err == nil {
		t.Fatalf("expected error for short row")
	}
}
