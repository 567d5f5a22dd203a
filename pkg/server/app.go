package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	domrepo "RiskScore/internal/domain/repository"
	mid "RiskScore/internal/middleware"
	"RiskScore/pkg/cache"
	"RiskScore/pkg/config"
	xhttp "RiskScore/pkg/http"
	pkgkafka "RiskScore/pkg/kafka"
	applogger "RiskScore/pkg/logger"
)

// App encapsulates the entire application lifecycle. Optional components
// (consumer, pipeline, producer, cache) are nil when disabled.
type App struct {
	cfg        *config.Config
	log        *applogger.Logger
	httpServer *xhttp.Server
	consumer   *pkgkafka.Consumer
	handlers   []pkgkafka.MessageHandler
	pipeline   *mid.AuditPipeline
	producer   *pkgkafka.Producer
	cache      cache.Service
	store      domrepo.CursorStore
}

// Option attaches an optional component to the App.
type Option func(*App)

// WithConsumer runs consumer with the given handlers.
func WithConsumer(consumer *pkgkafka.Consumer, handlers ...pkgkafka.MessageHandler) Option {
	return func(a *App) {
		a.consumer = consumer
		a.handlers = handlers
	}
}

// WithAuditPipeline starts the pipeline with the app and flushes it on
// shutdown.
func WithAuditPipeline(p *mid.AuditPipeline) Option {
	return func(a *App) { a.pipeline = p }
}

// WithProducer closes the producer on shutdown, after everything that
// publishes through it.
func WithProducer(p *pkgkafka.Producer) Option {
	return func(a *App) { a.producer = p }
}

func WithCache(c cache.Service) Option {
	return func(a *App) { a.cache = c }
}

func WithCursorStore(s domrepo.CursorStore) Option {
	return func(a *App) { a.store = s }
}

// New creates a new App instance with all dependencies.
func New(cfg *config.Config, log *applogger.Logger, httpServer *xhttp.Server, opts ...Option) *App {
	a := &App{cfg: cfg, log: log, httpServer: httpServer}
	for _, opt := range opts {
		opt(a)
	}
	if a.log == nil {
		a.log = applogger.Nop()
	}
	return a
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Start(ctx); err != nil {
		_ = a.Shutdown(context.Background())
		return err
	}

	<-ctx.Done()
	a.log.Info("shutdown signal received")
	return a.Shutdown(context.Background())
}

// Start launches background components and the HTTP server.
func (a *App) Start(ctx context.Context) error {
	if a.pipeline != nil {
		// the pipeline outlives ctx so Shutdown can flush it
		a.pipeline.Start(context.WithoutCancel(ctx))
		a.log.Info("verdict audit pipeline started", applogger.String("topic", a.cfg.Kafka.VerdictTopic))
	}

	if a.consumer != nil && len(a.handlers) > 0 {
		topics := make([]string, 0, len(a.handlers))
		for _, h := range a.handlers {
			a.consumer.RegisterHandler(h)
			topics = append(topics, h.Topic())
		}
		if err := a.consumer.Start(); err != nil {
			return fmt.Errorf("kafka consumer: %w", err)
		}
		a.log.Info("kafka consumer started", applogger.Strings("topics", topics))
	}

	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}
	return nil
}

// Shutdown stops intake first (HTTP, consumer), then flushes and closes
// the sinks they feed.
func (a *App) Shutdown(ctx context.Context) error {
	a.log.Info("shutting down...")
	timeout := a.cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := a.httpServer.Stop(ctx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}

	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.log.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	if a.pipeline != nil {
		if err := a.pipeline.Stop(ctx); err != nil {
			a.log.Warn("audit pipeline stop error", applogger.Error(err))
		}
	}

	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn("cursor store close error", applogger.Error(err))
		}
	}

	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.log.Warn("cache close error", applogger.Error(err))
		}
	}

	a.log.Info("shutdown complete")
	// the collector publishes through the producer, so it goes first
	a.log.RemoveCollector()

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "kafka producer close error: %v\n", err)
		}
	}
	return nil
}
