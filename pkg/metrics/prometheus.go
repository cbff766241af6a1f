package metrics

import (
	"TradeDesk/internal/domain/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	cycles        *prometheus.CounterVec
	decisions     *prometheus.CounterVec
	orders        *prometheus.CounterVec
	messagesSent  *prometheus.CounterVec
	errorsTotal   *prometheus.CounterVec
	lastPrice     *prometheus.GaugeVec
	openPositions prometheus.Gauge
	latency       *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		cycles: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradedesk_cycles_total",
				Help: "Total number of worker cycles by outcome",
			},
			[]string{"symbol", "interval", "result"},
		),
		decisions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradedesk_signal_decisions_total",
				Help: "Total number of strategy decisions by direction",
			},
			[]string{"symbol", "direction"},
		),
		orders: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradedesk_orders_total",
				Help: "Total number of orders placed by outcome",
			},
			[]string{"symbol", "side", "result"},
		),
		messagesSent: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradedesk_trade_events_sent_total",
				Help: "Total number of trade events sent to backend",
			},
			[]string{"backend", "symbol"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradedesk_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		lastPrice: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "tradedesk_last_price",
				Help: "Last observed close for a symbol",
			},
			[]string{"symbol"},
		),
		openPositions: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "tradedesk_open_positions",
				Help: "Number of open positions",
			},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tradedesk_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordCycle records a finished worker cycle.
func (r *Recorder) RecordCycle(symbol, interval, result string) {
	r.cycles.WithLabelValues(symbol, interval, result).Inc()
}

// RecordDecision records the direction chosen by the active strategy.
func (r *Recorder) RecordDecision(symbol string, direction models.Direction) {
	r.decisions.WithLabelValues(symbol, string(direction)).Inc()
}

// RecordOrder records an order attempt outcome.
func (r *Recorder) RecordOrder(symbol string, side models.Side, result string) {
	r.orders.WithLabelValues(symbol, string(side), result).Inc()
}

// RecordMessageSent records a trade event sent to a backend.
func (r *Recorder) RecordMessageSent(backend, symbol string) {
	r.messagesSent.WithLabelValues(backend, symbol).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLastPrice records the last price for a symbol.
func (r *Recorder) RecordLastPrice(symbol string, price float64) {
	r.lastPrice.WithLabelValues(symbol).Set(price)
}

// RecordOpenPositions sets the open position gauge.
func (r *Recorder) RecordOpenPositions(n int) {
	r.openPositions.Set(float64(n))
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
