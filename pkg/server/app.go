package server

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"TradeDesk/internal/domain/models"
	mid "TradeDesk/internal/middleware"
	"TradeDesk/internal/service/binance"
	"TradeDesk/internal/usecase"
	"TradeDesk/pkg/config"
	xhttp "TradeDesk/pkg/http"
	applogger "TradeDesk/pkg/logger"
)

// Option configures App.
type Option func(*App)

// WithPipeline attaches the trade event pipeline.
func WithPipeline(p *mid.TradePipeline) Option {
	return func(a *App) { a.pipeline = p }
}

// WithPriceStream attaches the live ticker stream.
func WithPriceStream(s *binance.Stream) Option {
	return func(a *App) { a.stream = s }
}

// WithLogPublisher enables error log aggregation to an external sink.
func WithLogPublisher(p applogger.Publisher) Option {
	return func(a *App) { a.logPub = p }
}

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	logger     *applogger.Logger
	engine     *usecase.Engine
	httpServer *xhttp.Server
	pipeline   *mid.TradePipeline
	stream     *binance.Stream
	logPub     applogger.Publisher
}

// New creates a new App instance with all dependencies.
func New(cfg *config.Config, l *applogger.Logger, engine *usecase.Engine, httpServer *xhttp.Server, opts ...Option) *App {
	a := &App{
		cfg:        cfg,
		logger:     l,
		engine:     engine,
		httpServer: httpServer,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Engine returns the trading engine.
func (a *App) Engine() *usecase.Engine { return a.engine }

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := a.Start(ctx); err != nil {
		return err
	}

	// Wait for interrupt
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.logger.Info("shutdown signal received")
	return a.Shutdown(ctx)
}

// Start restores engine state and brings up every background component.
func (a *App) Start(ctx context.Context) error {
	if a.logPub != nil {
		a.logger.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   a.cfg.Logging.Collector.FlushInterval,
			CountThreshold: a.cfg.Logging.Collector.Threshold,
			Topic:          a.cfg.Logging.Collector.Topic,
			Publisher:      a.logPub,
		})
		a.logger.Info("log collector enabled", applogger.String("sink", a.cfg.Logging.Collector.Sink))
	}

	if err := a.engine.Restore(ctx); err != nil {
		a.logger.Error("restore failed", applogger.Error(err))
		return err
	}

	if a.pipeline != nil {
		a.pipeline.Start(ctx)
		a.logger.Info("trade pipeline started", applogger.String("backend", a.cfg.Events.Backend))
	}

	if a.stream != nil {
		for _, p := range a.engine.Positions() {
			a.stream.Watch(p.Symbol)
		}
		go a.stream.Run(ctx)
		a.logger.Info("price stream started", applogger.String("url", a.cfg.Binance.Stream.URL))
	}

	if err := a.httpServer.Start(); err != nil {
		a.logger.Error("http server start error", applogger.Error(err))
		return err
	}

	for _, w := range a.cfg.Trading.Autostart {
		err := a.engine.Start(ctx, w.Symbol, w.Interval, "")
		if err != nil && !errors.Is(err, models.ErrWorkerExists) {
			a.logger.Error("autostart failed",
				applogger.String("symbol", w.Symbol),
				applogger.String("interval", w.Interval),
				applogger.Error(err),
			)
		}
	}

	a.logger.Info("tradedesk started",
		applogger.String("env", a.cfg.Environment),
		applogger.Bool("test_mode", a.cfg.Trading.TestMode),
		applogger.String("strategy", a.cfg.Trading.Strategy),
		applogger.String("market_source", a.cfg.Market.Source),
		applogger.String("persistence", a.cfg.Persistence.Type),
		applogger.Int("port", a.cfg.Server.Port),
	)
	return nil
}

// Shutdown stops the HTTP server first so no new commands arrive, then the
// workers (writing a final snapshot), then the event pipeline.
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down...")

	timeout := a.cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.logger.Error("http shutdown error", applogger.Error(err))
	}

	var firstErr error
	if err := a.engine.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("engine shutdown error", applogger.Error(err))
		firstErr = err
	}

	if a.pipeline != nil {
		if n := a.pipeline.Pending(); n > 0 {
			a.logger.Warn("dropping buffered trade events", applogger.Int("pending", n))
		}
		a.pipeline.Stop()
	}

	// flushes whatever the collector still holds
	a.logger.RemoveCollector()

	a.logger.Info("shutdown complete")
	return firstErr
}
