//go:build wireinject
// +build wireinject

package di

import (
	"TradeDesk/pkg/config"
	"TradeDesk/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideRedisClient,
		ProvideCache,
		ProvideClickHouseClient,
		ProvideKafkaProducer,

		// Exchange and market data
		ProvideRateLimiter,
		ProvideBinanceClient,
		ProvideCandleStore,
		ProvideMarketData,
		ProvidePriceBook,
		ProvidePriceStream,
		ProvidePriceSource,
		ProvideExecution,

		// Persistence and events
		ProvideStateStore,
		ProvideTradeRecorder,
		ProvideTradePipeline,

		// Use cases
		ProvideEngine,

		// Transport
		ProvideEngineHandler,
		ProvideHTTPServer,
		ProvideLogPublisher,

		// Application server
		ProvideApp,
	)
	return nil, nil, nil
}
