package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	ExchangeLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tradedesk",
			Subsystem: "exchange",
			Name:      "request_seconds",
			Help:      "Latency of exchange REST calls",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	ExchangeErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tradedesk",
			Subsystem: "exchange",
			Name:      "errors_total",
			Help:      "Errors by exchange endpoint",
		},
		[]string{"endpoint"},
	)

	StreamReconnects = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "tradedesk",
			Subsystem: "stream",
			Name:      "reconnects_total",
			Help:      "Price stream reconnect attempts",
		},
	)

	StreamMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tradedesk",
			Subsystem: "stream",
			Name:      "messages_total",
			Help:      "Ticker messages received by symbol",
		},
		[]string{"symbol"},
	)

	PriceLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tradedesk",
			Subsystem: "prices",
			Name:      "lookups_total",
			Help:      "Price lookups by source (stream or rest)",
		},
		[]string{"source"},
	)
)

func Register() {
	once.Do(func() {
		prometheus.MustRegister(ExchangeLatency, ExchangeErrors, StreamReconnects, StreamMessages, PriceLookups)
	})
}
