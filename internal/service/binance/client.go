package binance

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"TradeDesk/internal/domain/models"
	drepo "TradeDesk/internal/domain/repository"
	svcmetrics "TradeDesk/internal/service/metrics"
	"TradeDesk/internal/service/ratelimit"
	pkgcache "TradeDesk/pkg/cache"
	xhttp "TradeDesk/pkg/http"
	applogger "TradeDesk/pkg/logger"
	"TradeDesk/pkg/util"

	"github.com/shopspring/decimal"
)

// ClientOption configures Client.
type ClientOption func(*ClientConfig)

// ClientConfig holds exchange client settings.
type ClientConfig struct {
	BaseURL     string
	APIKey      string
	APISecret   string
	RecvWindow  int64
	Timeout     time.Duration
	RateBurst   float64
	RatePerSec  float64
	FiltersTTL  time.Duration
	FilterCache pkgcache.Service
}

// WithBaseURL overrides the REST endpoint (testnet, httptest).
func WithBaseURL(u string) ClientOption {
	return func(c *ClientConfig) {
		if u != "" {
			c.BaseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithCredentials sets the API key pair used for signed endpoints.
func WithCredentials(key, secret string) ClientOption {
	return func(c *ClientConfig) {
		c.APIKey = key
		c.APISecret = secret
	}
}

// WithRecvWindow sets the signed request validity window in milliseconds.
func WithRecvWindow(ms int64) ClientOption {
	return func(c *ClientConfig) {
		if ms > 0 {
			c.RecvWindow = ms
		}
	}
}

// WithTimeout sets the HTTP timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *ClientConfig) {
		if d > 0 {
			c.Timeout = d
		}
	}
}

// WithRateLimit sets the client-side token bucket.
func WithRateLimit(burst, perSec float64) ClientOption {
	return func(c *ClientConfig) {
		if burst > 0 && perSec > 0 {
			c.RateBurst = burst
			c.RatePerSec = perSec
		}
	}
}

// WithFilterCache caches exchangeInfo lot-size filters.
func WithFilterCache(cache pkgcache.Service, ttl time.Duration) ClientOption {
	return func(c *ClientConfig) {
		c.FilterCache = cache
		if ttl > 0 {
			c.FiltersTTL = ttl
		}
	}
}

// APIError is an error payload returned by the exchange.
type APIError struct {
	HTTPStatus int    `json:"-"`
	Code       int    `json:"code"`
	Msg        string `json:"msg"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("binance error %d (http %d): %s", e.Code, e.HTTPStatus, e.Msg)
}

func (e *APIError) Unwrap() error { return models.ErrUpstream }

// Client talks to the Binance spot REST API. It serves as MarketData,
// PriceSource and live Execution.
type Client struct {
	http    *xhttp.Client
	cfg     ClientConfig
	limiter *ratelimit.Limiter
	logger  *applogger.Logger
	now     func() time.Time
}

var (
	_ drepo.MarketData  = (*Client)(nil)
	_ drepo.Execution   = (*Client)(nil)
	_ drepo.PriceSource = (*Client)(nil)
)

// NewClient creates an exchange client.
func NewClient(l *applogger.Logger, limiter *ratelimit.Limiter, opts ...ClientOption) *Client {
	cfg := ClientConfig{
		BaseURL:    "https://api.binance.com",
		RecvWindow: 5000,
		Timeout:    10 * time.Second,
		RateBurst:  20,
		RatePerSec: 10,
		FiltersTTL: time.Hour,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if limiter == nil {
		limiter = ratelimit.New()
	}
	svcmetrics.Register()
	return &Client{
		http:    xhttp.NewClient(xhttp.WithTimeout(cfg.Timeout)),
		cfg:     cfg,
		limiter: limiter,
		logger:  l,
		now:     time.Now,
	}
}

// GetCandles fetches klines, oldest first.
func (c *Client) GetCandles(ctx context.Context, symbol string, interval drepo.Interval, limit int) ([]models.Candle, error) {
	var raw [][]any
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("interval", string(interval))
	q.Set("limit", strconv.Itoa(limit))
	if err := c.public(ctx, "klines", "/api/v3/klines", q, &raw); err != nil {
		return nil, err
	}
	return parseKlines(raw)
}

// Price returns the last traded price.
func (c *Client) Price(ctx context.Context, symbol string) (float64, error) {
	var resp struct {
		Symbol string `json:"symbol"`
		Price  string `json:"price"`
	}
	q := url.Values{}
	q.Set("symbol", symbol)
	if err := c.public(ctx, "ticker_price", "/api/v3/ticker/price", q, &resp); err != nil {
		return 0, err
	}
	p, err := strconv.ParseFloat(resp.Price, 64)
	if err != nil || p <= 0 {
		return 0, fmt.Errorf("%w: %s: bad price %q", models.ErrPriceUnavailable, symbol, resp.Price)
	}
	return p, nil
}

// GetSymbolFilters returns the LOT_SIZE filter, cached when a cache is set.
func (c *Client) GetSymbolFilters(ctx context.Context, symbol string) (models.SymbolFilters, error) {
	if c.cfg.FilterCache == nil {
		return c.fetchFilters(ctx, symbol)
	}
	return pkgcache.GetOrLoad(ctx, c.cfg.FilterCache, "filters:"+symbol, c.cfg.FiltersTTL,
		func(ctx context.Context) (models.SymbolFilters, error) {
			return c.fetchFilters(ctx, symbol)
		})
}

func (c *Client) fetchFilters(ctx context.Context, symbol string) (models.SymbolFilters, error) {
	var info struct {
		Symbols []struct {
			Symbol  string `json:"symbol"`
			Filters []struct {
				FilterType string `json:"filterType"`
				MinQty     string `json:"minQty"`
				MaxQty     string `json:"maxQty"`
				StepSize   string `json:"stepSize"`
			} `json:"filters"`
		} `json:"symbols"`
	}
	q := url.Values{}
	q.Set("symbol", symbol)
	if err := c.public(ctx, "exchange_info", "/api/v3/exchangeInfo", q, &info); err != nil {
		return models.SymbolFilters{}, err
	}
	for _, s := range info.Symbols {
		if s.Symbol != symbol {
			continue
		}
		for _, f := range s.Filters {
			if f.FilterType != "LOT_SIZE" {
				continue
			}
			return models.SymbolFilters{
				MinQty:   util.ParseFloatDefault(f.MinQty, 0),
				MaxQty:   util.ParseFloatDefault(f.MaxQty, 0),
				StepSize: util.ParseFloatDefault(f.StepSize, 0),
			}, nil
		}
	}
	return models.SymbolFilters{}, fmt.Errorf("no LOT_SIZE filter for %s", symbol)
}

// GetBalance returns the free balance of asset. An asset missing from the
// account is a zero balance.
func (c *Client) GetBalance(ctx context.Context, asset string) (float64, error) {
	var acct struct {
		Balances []struct {
			Asset  string `json:"asset"`
			Free   string `json:"free"`
			Locked string `json:"locked"`
		} `json:"balances"`
	}
	if err := c.signed(ctx, "account", xhttp.MethodGet, "/api/v3/account", url.Values{}, &acct); err != nil {
		return 0, err
	}
	for _, b := range acct.Balances {
		if b.Asset == asset {
			return util.ParseFloatDefault(b.Free, 0), nil
		}
	}
	return 0, nil
}

// PlaceOrder submits a MARKET order. Rejected or expired orders return a
// nil result.
func (c *Client) PlaceOrder(ctx context.Context, symbol string, side models.Side, quantity float64) (*models.OrderResult, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("side", string(side))
	q.Set("type", "MARKET")
	q.Set("quantity", decimal.NewFromFloat(quantity).String())
	q.Set("newOrderRespType", "RESULT")

	var resp struct {
		OrderID     int64  `json:"orderId"`
		Symbol      string `json:"symbol"`
		Status      string `json:"status"`
		ExecutedQty string `json:"executedQty"`
		QuoteQty    string `json:"cummulativeQuoteQty"`
	}
	if err := c.signed(ctx, "order", xhttp.MethodPost, "/api/v3/order", q, &resp); err != nil {
		return nil, err
	}

	c.logger.Info("order acknowledged",
		applogger.String("symbol", symbol),
		applogger.String("side", string(side)),
		applogger.String("status", resp.Status),
		applogger.Int64("order_id", resp.OrderID),
	)
	switch resp.Status {
	case "REJECTED", "EXPIRED", "CANCELED", "EXPIRED_IN_MATCH":
		return nil, nil
	}

	res := &models.OrderResult{
		OrderID:  strconv.FormatInt(resp.OrderID, 10),
		Symbol:   resp.Symbol,
		Side:     side,
		Quantity: util.ParseFloatDefault(resp.ExecutedQty, quantity),
		Status:   resp.Status,
	}
	if res.Quantity > 0 {
		res.FilledPrice = util.ParseFloatDefault(resp.QuoteQty, 0) / res.Quantity
	}
	return res, nil
}

func (c *Client) public(ctx context.Context, endpoint, path string, q url.Values, dest any) error {
	return c.do(ctx, endpoint, &xhttp.RequestOptions{
		Method:   xhttp.MethodGet,
		URL:      c.cfg.BaseURL + path,
		RawQuery: q.Encode(),
	}, dest)
}

func (c *Client) signed(ctx context.Context, endpoint, method, path string, q url.Values, dest any) error {
	if c.cfg.APIKey == "" || c.cfg.APISecret == "" {
		return errors.New("binance credentials not configured")
	}
	q.Set("recvWindow", strconv.FormatInt(c.cfg.RecvWindow, 10))
	q.Set("timestamp", strconv.FormatInt(c.now().UnixMilli(), 10))
	payload := q.Encode()
	return c.do(ctx, endpoint, &xhttp.RequestOptions{
		Method:   method,
		URL:      c.cfg.BaseURL + path,
		Headers:  map[string]string{"X-MBX-APIKEY": c.cfg.APIKey},
		RawQuery: payload + "&signature=" + sign(c.cfg.APISecret, payload),
	}, dest)
}

func (c *Client) do(ctx context.Context, endpoint string, opts *xhttp.RequestOptions, dest any) error {
	if err := c.limiter.Wait(ctx, "binance", c.cfg.RateBurst, c.cfg.RatePerSec); err != nil {
		return fmt.Errorf("rate limit: %w", err)
	}
	start := time.Now()
	err := c.http.SendAndParse(ctx, opts, dest)
	svcmetrics.ExchangeLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if err == nil {
		return nil
	}
	svcmetrics.ExchangeErrors.WithLabelValues(endpoint).Inc()

	var se *xhttp.StatusError
	if errors.As(err, &se) {
		apiErr := &APIError{HTTPStatus: se.StatusCode}
		if json.Unmarshal(se.Body, apiErr) != nil || apiErr.Msg == "" {
			apiErr.Msg = string(se.Body)
		}
		c.logger.Warn("exchange request rejected",
			applogger.String("endpoint", endpoint),
			applogger.Int("http_status", se.StatusCode),
			applogger.Int("code", apiErr.Code),
			applogger.String("msg", apiErr.Msg),
		)
		return apiErr
	}
	return fmt.Errorf("%w: binance %s: %w", models.ErrUpstream, endpoint, err)
}

// sign returns the hex HMAC-SHA256 of payload.
func sign(secret, payload string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(payload))
	return hex.EncodeToString(h.Sum(nil))
}

// parseKlines decodes [openTime, open, high, low, close, volume, ...] rows.
func parseKlines(raw [][]any) ([]models.Candle, error) {
	out := make([]models.Candle, 0, len(raw))
	for i, row := range raw {
		if len(row) < 6 {
			return nil, fmt.Errorf("kline %d: short row (%d fields)", i, len(row))
		}
		ms, err := util.Int64(row[0])
		if err != nil {
			return nil, fmt.Errorf("kline %d open time: %w", i, err)
		}
		var vals [5]float64
		for j := 0; j < 5; j++ {
			v, err := util.Float64(row[j+1])
			if err != nil {
				return nil, fmt.Errorf("kline %d field %d: %w", i, j+1, err)
			}
			vals[j] = v
		}
		out = append(out, models.Candle{
			OpenTime: time.UnixMilli(ms).UTC(),
			Open:     vals[0],
			High:     vals[1],
			Low:      vals[2],
			Close:    vals[3],
			Volume:   vals[4],
		})
	}
	return out, nil
}
