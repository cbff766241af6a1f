package di

import (
	"context"
	"fmt"
	"time"

	"TradeDesk/internal/domain/models"
	"TradeDesk/internal/domain/repository"
	"TradeDesk/internal/handler/api"
	mid "TradeDesk/internal/middleware"
	internalrepo "TradeDesk/internal/repository"
	"TradeDesk/internal/service/binance"
	"TradeDesk/internal/service/paper"
	"TradeDesk/internal/service/ratelimit"
	"TradeDesk/internal/usecase"
	pkgcache "TradeDesk/pkg/cache"
	pkgch "TradeDesk/pkg/clickhouse"
	"TradeDesk/pkg/config"
	xhttp "TradeDesk/pkg/http"
	pkgkafka "TradeDesk/pkg/kafka"
	applogger "TradeDesk/pkg/logger"
	"TradeDesk/pkg/metrics"
	"TradeDesk/pkg/queue"
	"TradeDesk/pkg/server"

	"github.com/redis/go-redis/v9"
)

func needsRedis(cfg *config.Config) bool {
	return cfg.Cache.Redis.Enabled
}

func needsClickHouse(cfg *config.Config) bool {
	return cfg.Market.Source == "clickhouse" || cfg.Events.Backend == usecase.BackendClickHouse
}

func needsKafka(cfg *config.Config) bool {
	return cfg.Events.Backend == usecase.BackendKafka ||
		(cfg.Logging.Collector.Enabled && cfg.Logging.Collector.Sink == "kafka")
}

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:   cfg.Logging.Level,
		Format:  cfg.Logging.Format,
		Output:  cfg.Logging.Output,
		Service: "tradedesk",
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideRedisClient connects the shared Redis client. It returns nil when
// Redis is disabled.
func ProvideRedisClient(cfg *config.Config, l *applogger.Logger) (*redis.Client, func(), error) {
	if !needsRedis(cfg) {
		return nil, func() {}, nil
	}
	rc, err := pkgcache.NewRedisCache(
		pkgcache.WithRedisHost(cfg.Cache.Redis.Host),
		pkgcache.WithRedisPort(cfg.Cache.Redis.Port),
		pkgcache.WithRedisPassword(cfg.Cache.Redis.Password),
		pkgcache.WithRedisDB(cfg.Cache.Redis.DB),
		pkgcache.WithRedisPrefix(cfg.Cache.Redis.Prefix),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("redis: %w", err)
	}
	l.Info("redis connected",
		applogger.String("host", cfg.Cache.Redis.Host),
		applogger.Int("port", cfg.Cache.Redis.Port),
	)
	return rc.Client(), func() { _ = rc.Close() }, nil
}

// ProvideCache builds the exchange metadata cache: in-process only, or
// in-process in front of Redis.
func ProvideCache(cfg *config.Config, rdb *redis.Client) (pkgcache.Service, func()) {
	if rdb == nil {
		mc := pkgcache.NewMemoryCache(pkgcache.WithMemoryMaxSize(cfg.Cache.MemorySize))
		return mc, func() { _ = mc.Close() }
	}
	lc := pkgcache.NewLayeredCache(
		pkgcache.NewRedisCacheFromClient(rdb, cfg.Cache.Redis.Prefix),
		pkgcache.WithLayeredMemorySize(cfg.Cache.MemorySize),
	)
	// the shared client is closed by ProvideRedisClient
	return lc, func() {}
}

// ProvideClickHouseClient connects ClickHouse and creates the candle and
// trade tables. It returns nil when no component reads or writes ClickHouse.
func ProvideClickHouseClient(cfg *config.Config, l *applogger.Logger) (*pkgch.Client, func(), error) {
	if !needsClickHouse(cfg) {
		return nil, func() {}, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stmts := []string{"CREATE DATABASE IF NOT EXISTS " + cfg.ClickHouse.Database}
	stmts = append(stmts, internalrepo.CandlesSchema(chTable(cfg, cfg.ClickHouse.CandlesTable))...)
	stmts = append(stmts, internalrepo.TradesSchema(chTable(cfg, cfg.ClickHouse.TradesTable))...)
	if err := client.InitSchema(ctx, stmts); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	l.Info("clickhouse connected", applogger.String("database", cfg.ClickHouse.Database))
	return client, func() { _ = client.Close() }, nil
}

func chTable(cfg *config.Config, table string) string {
	return cfg.ClickHouse.Database + "." + table
}

// ProvideKafkaProducer creates the Kafka producer. It returns nil when
// neither the trade events nor the log collector use Kafka.
func ProvideKafkaProducer(cfg *config.Config, l *applogger.Logger) (*pkgkafka.Producer, func(), error) {
	if !needsKafka(cfg) {
		return nil, func() {}, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithClientID("tradedesk"),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithMaxAttempts(cfg.Kafka.MaxAttempts),
		pkgkafka.WithBatching(cfg.Kafka.BatchSize, cfg.Kafka.Linger),
		pkgkafka.WithWriteTimeout(cfg.Kafka.WriteTimeout),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}
	l.Info("kafka producer ready",
		applogger.Strings("brokers", cfg.Kafka.Brokers),
		applogger.String("topic", cfg.Kafka.Topic),
	)
	return producer, func() { _ = producer.Close() }, nil
}

// ProvideRateLimiter creates the limiter shared by exchange calls.
func ProvideRateLimiter() *ratelimit.Limiter {
	return ratelimit.New()
}

// ProvideBinanceClient creates the exchange REST client.
func ProvideBinanceClient(cfg *config.Config, l *applogger.Logger, limiter *ratelimit.Limiter, c pkgcache.Service) *binance.Client {
	return binance.NewClient(l.With(applogger.String("component", "binance")), limiter,
		binance.WithBaseURL(cfg.Binance.BaseURL),
		binance.WithCredentials(cfg.Binance.APIKey, cfg.Binance.APISecret),
		binance.WithRecvWindow(cfg.Binance.RecvWindow),
		binance.WithTimeout(cfg.Binance.Timeout),
		binance.WithRateLimit(cfg.Binance.RateLimit.Capacity, cfg.Binance.RateLimit.Refill),
		binance.WithFilterCache(c, cfg.Binance.FiltersTTL),
	)
}

// ProvideCandleStore returns the ClickHouse candle reader, or nil when the
// market source is the exchange.
func ProvideCandleStore(cfg *config.Config, ch *pkgch.Client, l *applogger.Logger) *internalrepo.CHCandleStore {
	if cfg.Market.Source != "clickhouse" || ch == nil {
		return nil
	}
	return internalrepo.NewCHCandleStore(ch, chTable(cfg, cfg.ClickHouse.CandlesTable), l)
}

// ProvideMarketData selects the candle source.
func ProvideMarketData(client *binance.Client, candles *internalrepo.CHCandleStore) repository.MarketData {
	if candles != nil {
		return candles
	}
	return client
}

// ProvidePriceBook creates the price book over the selected REST source.
func ProvidePriceBook(cfg *config.Config, client *binance.Client, candles *internalrepo.CHCandleStore) *binance.PriceBook {
	var fallback repository.PriceSource = client
	if candles != nil {
		fallback = candles
	}
	return binance.NewPriceBook(fallback, nil, cfg.Binance.Stream.MaxStaleness)
}

// ProvidePriceStream creates the ticker stream feeding the price book. It
// returns nil when streaming is disabled or candles come from ClickHouse.
func ProvidePriceStream(cfg *config.Config, l *applogger.Logger, book *binance.PriceBook) *binance.Stream {
	if !cfg.Binance.Stream.Enabled || cfg.Market.Source != "binance" {
		return nil
	}
	s := binance.NewStream(l.With(applogger.String("component", "stream")), book.Update,
		binance.WithStreamURL(cfg.Binance.Stream.URL),
		binance.WithReconnectDelay(cfg.Binance.Stream.ReconnectDelay),
		binance.WithPingInterval(cfg.Binance.Stream.PingInterval),
	)
	book.SetWatcher(s)
	return s
}

// ProvidePriceSource exposes the price book to the engine.
func ProvidePriceSource(book *binance.PriceBook) repository.PriceSource {
	return book
}

// ProvideExecution routes orders to the paper account in test mode and to
// the exchange otherwise.
func ProvideExecution(cfg *config.Config, client *binance.Client, prices repository.PriceSource, l *applogger.Logger) repository.Execution {
	if !cfg.Trading.TestMode {
		l.Warn("live trading enabled", applogger.String("base_url", cfg.Binance.BaseURL))
		return client
	}
	return paper.NewExecution(prices, l.With(applogger.String("component", "paper")),
		paper.WithQuoteAsset(cfg.Trading.QuoteAsset),
		paper.WithStartingBalance(cfg.Paper.StartingBalance),
		paper.WithFilters(models.SymbolFilters{MinQty: cfg.Paper.MinQty, StepSize: cfg.Paper.StepSize}),
	)
}

// ProvideStateStore opens the configured snapshot store.
func ProvideStateStore(cfg *config.Config, rdb *redis.Client) (repository.StateStore, func(), error) {
	switch cfg.Persistence.Type {
	case "redis":
		if rdb == nil {
			return nil, nil, fmt.Errorf("state store: redis client not configured")
		}
		return internalrepo.NewRedisStateStore(rdb, cfg.Persistence.RedisKey), func() {}, nil
	case "postgres":
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		pg := cfg.Persistence.Postgres
		db, err := internalrepo.ConnectPostgres(ctx, internalrepo.PostgresConfig{
			DSN:             cfg.PostgresDSN(),
			MaxOpenConns:    pg.MaxOpenConns,
			MaxIdleConns:    pg.MaxIdleConns,
			ConnMaxLifetime: pg.ConnMaxLifetime,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("state store: %w", err)
		}
		store := internalrepo.NewPostgresStateStore(db)
		return store, func() { _ = store.Close() }, nil
	default:
		store, err := internalrepo.NewFileStateStore(cfg.Persistence.FilePath)
		if err != nil {
			return nil, nil, fmt.Errorf("state store: %w", err)
		}
		return store, func() {}, nil
	}
}

// ProvideTradeRecorder routes ledger records to the configured backend.
func ProvideTradeRecorder(
	cfg *config.Config,
	producer *pkgkafka.Producer,
	ch *pkgch.Client,
	metrics repository.Metrics,
) *usecase.TradeRecorder {
	var (
		pub   repository.Publisher
		store repository.Storage
	)
	if cfg.Events.Backend == usecase.BackendKafka && producer != nil {
		pub = internalrepo.NewKafkaPublisher(producer, cfg.Kafka.Topic)
	}
	if cfg.Events.Backend == usecase.BackendClickHouse && ch != nil {
		store = internalrepo.NewClickHouseStorage(ch.DB(), chTable(cfg, cfg.ClickHouse.TradesTable))
	}
	return usecase.NewTradeRecorder(pub, store, metrics, cfg.Events.Backend)
}

// ProvideTradePipeline buffers records between the engine and the event
// backend. It returns nil when events are disabled.
func ProvideTradePipeline(cfg *config.Config, recorder *usecase.TradeRecorder, metrics repository.Metrics) *mid.TradePipeline {
	if recorder.Backend() == usecase.BackendNone {
		return nil
	}
	return mid.NewTradePipeline(recorder, metrics,
		mid.WithBufferSize(cfg.Events.BufferSize),
		mid.WithMaxBackoff(cfg.Events.MaxBackoff),
	)
}

// ProvideEngine creates the trading engine.
func ProvideEngine(
	cfg *config.Config,
	market repository.MarketData,
	exec repository.Execution,
	prices repository.PriceSource,
	store repository.StateStore,
	metrics repository.Metrics,
	l *applogger.Logger,
	pipeline *mid.TradePipeline,
) (*usecase.Engine, error) {
	opts := []usecase.EngineOption{
		usecase.WithQuoteAsset(cfg.Trading.QuoteAsset),
		usecase.WithCandleLimit(cfg.Trading.CandleLimit),
		usecase.WithCycleInterval(cfg.Trading.CycleInterval),
		usecase.WithActionThreshold(cfg.Trading.ActionThreshold),
		usecase.WithLedgerCapacity(cfg.Trading.LedgerCapacity),
		usecase.WithSimulated(cfg.Trading.TestMode),
		usecase.WithStrategy(cfg.Trading.Strategy),
		usecase.WithTradingConfig(cfg.Trading.Risk),
	}
	if pipeline != nil {
		opts = append(opts, usecase.WithNotifier(pipeline))
	}
	engine, err := usecase.NewEngine(market, exec, prices, store, metrics,
		l.With(applogger.String("component", "engine")), opts...)
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	return engine, nil
}

// ProvideEngineHandler creates the control API handler.
func ProvideEngineHandler(l *applogger.Logger, engine *usecase.Engine) *api.EngineHandler {
	return api.NewEngineHandler(l, engine)
}

// ProvideHTTPServer creates the echo server with the control API mounted.
// /readyz checks the event backend and Redis when they are in use.
func ProvideHTTPServer(
	cfg *config.Config,
	l *applogger.Logger,
	h *api.EngineHandler,
	recorder *usecase.TradeRecorder,
	rdb *redis.Client,
) *xhttp.Server {
	opts := []xhttp.ServerOption{
		xhttp.WithHost(cfg.Server.Host),
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithCORS(cfg.Server.CORS),
		xhttp.WithMetrics(cfg.Metrics.Enabled, cfg.Metrics.Path),
		xhttp.WithReadinessCheck("events", recorder.Health),
	}
	if rdb != nil {
		opts = append(opts, xhttp.WithReadinessCheck("redis", func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}))
	}
	return xhttp.NewServer(l, h, opts...)
}

// ProvideLogPublisher selects where aggregated error logs go. It returns
// nil when the collector is disabled.
func ProvideLogPublisher(cfg *config.Config, rdb *redis.Client, producer *pkgkafka.Producer, l *applogger.Logger) applogger.Publisher {
	if !cfg.Logging.Collector.Enabled {
		return nil
	}
	switch cfg.Logging.Collector.Sink {
	case "kafka":
		if producer != nil {
			return producer
		}
	case "redis":
		if rdb != nil {
			return queue.NewRedisPublisher(l, rdb, queue.WithSource("tradedesk"))
		}
	}
	return nil
}

// ProvideApp assembles the application.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	engine *usecase.Engine,
	pipeline *mid.TradePipeline,
	stream *binance.Stream,
	httpServer *xhttp.Server,
	logPub applogger.Publisher,
) *server.App {
	opts := []server.Option{}
	if pipeline != nil {
		opts = append(opts, server.WithPipeline(pipeline))
	}
	if stream != nil {
		opts = append(opts, server.WithPriceStream(stream))
	}
	if logPub != nil {
		opts = append(opts, server.WithLogPublisher(logPub))
	}
	return server.New(cfg, l, engine, httpServer, opts...)
}
