package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	svcmetrics "TradeDesk/internal/service/metrics"
	applogger "TradeDesk/pkg/logger"
	"TradeDesk/pkg/util"

	"github.com/gorilla/websocket"
)

// PriceHandler receives every ticker update.
type PriceHandler func(symbol string, price float64, at time.Time)

// StreamOption configures Stream.
type StreamOption func(*Stream)

// WithStreamURL sets the websocket endpoint.
func WithStreamURL(u string) StreamOption {
	return func(s *Stream) {
		if u != "" {
			s.url = u
		}
	}
}

// WithReconnectDelay sets the pause between reconnect attempts.
func WithReconnectDelay(d time.Duration) StreamOption {
	return func(s *Stream) {
		if d > 0 {
			s.reconnectDelay = d
		}
	}
}

// WithPingInterval sets the keepalive ping period.
func WithPingInterval(d time.Duration) StreamOption {
	return func(s *Stream) {
		if d > 0 {
			s.pingInterval = d
		}
	}
}

// Stream subscribes to miniTicker updates over a single websocket and
// resubscribes every watched symbol after a reconnect.
type Stream struct {
	url            string
	reconnectDelay time.Duration
	pingInterval   time.Duration
	onPrice        PriceHandler
	logger         *applogger.Logger

	mu      sync.Mutex
	conn    *websocket.Conn
	symbols map[string]struct{}
	nextID  int64
}

// NewStream creates a stream that reports prices to onPrice.
func NewStream(l *applogger.Logger, onPrice PriceHandler, opts ...StreamOption) *Stream {
	s := &Stream{
		url:            "wss://stream.binance.com:9443/ws",
		reconnectDelay: 5 * time.Second,
		pingInterval:   30 * time.Second,
		onPrice:        onPrice,
		logger:         l,
		symbols:        make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	svcmetrics.Register()
	return s
}

type miniTicker struct {
	Event     string `json:"e"`
	EventTime int64  `json:"E"`
	Symbol    string `json:"s"`
	Close     string `json:"c"`
}

// Watch adds symbol to the subscription set, subscribing immediately when
// connected.
func (s *Stream) Watch(symbol string) {
	symbol = strings.ToUpper(symbol)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.symbols[symbol]; ok {
		return
	}
	s.symbols[symbol] = struct{}{}
	if s.conn != nil {
		if err := s.subscribeLocked([]string{symbol}); err != nil {
			s.logger.Warn("stream subscribe failed", applogger.String("symbol", symbol), applogger.Error(err))
		}
	}
}

// Watching reports whether symbol is in the subscription set.
func (s *Stream) Watching(symbol string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.symbols[strings.ToUpper(symbol)]
	return ok
}

// Run connects and reads until ctx is cancelled, reconnecting on errors.
func (s *Stream) Run(ctx context.Context) {
	for {
		err := s.session(ctx)
		if ctx.Err() != nil {
			return
		}
		svcmetrics.StreamReconnects.Inc()
		s.logger.Warn("price stream disconnected",
			applogger.Error(err),
			applogger.Duration("retry_in_ms", s.reconnectDelay),
		)
		select {
		case <-ctx.Done():
			return
		case <-time.After(s.reconnectDelay):
		}
	}
}

func (s *Stream) session(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return fmt.Errorf("stream connect: %w", err)
	}

	s.mu.Lock()
	s.conn = conn
	syms := make([]string, 0, len(s.symbols))
	for sym := range s.symbols {
		syms = append(syms, sym)
	}
	var subErr error
	if len(syms) > 0 {
		subErr = s.subscribeLocked(syms)
	}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.conn = nil
		s.mu.Unlock()
		_ = conn.Close()
	}()
	if subErr != nil {
		return subErr
	}
	s.logger.Info("price stream connected", applogger.Strings("symbols", syms))

	readTimeout := 2 * s.pingInterval
	_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readTimeout))
	})

	sessCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go s.pingLoop(sessCtx, conn)
	go func() {
		<-sessCtx.Done()
		_ = conn.SetReadDeadline(time.Now())
	}()

	for {
		_, b, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("stream read: %w", err)
		}
		_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
		s.handle(b)
	}
}

func (s *Stream) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(s.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.mu.Lock()
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
			s.mu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

func (s *Stream) handle(b []byte) {
	var m miniTicker
	if err := json.Unmarshal(b, &m); err != nil || m.Event != "24hrMiniTicker" {
		// subscription acks and other frames
		return
	}
	price, err := util.Float64(m.Close)
	if err != nil || price <= 0 {
		return
	}
	svcmetrics.StreamMessages.WithLabelValues(m.Symbol).Inc()
	at := time.UnixMilli(m.EventTime).UTC()
	if m.EventTime == 0 {
		at = time.Now().UTC()
	}
	if s.onPrice != nil {
		s.onPrice(m.Symbol, price, at)
	}
}

// subscribeLocked sends a SUBSCRIBE frame. The caller holds s.mu, which
// also serializes writes on the connection.
func (s *Stream) subscribeLocked(symbols []string) error {
	params := make([]string, len(symbols))
	for i, sym := range symbols {
		params[i] = strings.ToLower(sym) + "@miniTicker"
	}
	s.nextID++
	return s.conn.WriteJSON(map[string]any{
		"method": "SUBSCRIBE",
		"params": params,
		"id":     s.nextID,
	})
}
