package di

import (
	"context"
	"fmt"
	"time"

	"RiskScore/internal/domain/repository"
	domsvc "RiskScore/internal/domain/service"
	"RiskScore/internal/handler/api"
	mid "RiskScore/internal/middleware"
	internalrepo "RiskScore/internal/repository"
	svcmetrics "RiskScore/internal/service/metrics"
	"RiskScore/internal/service/ratelimit"
	"RiskScore/internal/services/artifacts"
	"RiskScore/internal/services/inference"
	"RiskScore/internal/usecase"
	"RiskScore/pkg/cache"
	pkgch "RiskScore/pkg/clickhouse"
	"RiskScore/pkg/config"
	xhttp "RiskScore/pkg/http"
	pkgkafka "RiskScore/pkg/kafka"
	applogger "RiskScore/pkg/logger"
	"RiskScore/pkg/metrics"
	"RiskScore/pkg/server"

	"github.com/labstack/echo/v4"
)

// ProvideLogger creates the application logger from config.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(applogger.String("env", cfg.Environment)), nil
}

// ProvideMetrics creates a Prometheus metrics recorder and registers the
// per-endpoint inference collectors.
func ProvideMetrics() repository.Metrics {
	svcmetrics.Register()
	return metrics.New()
}

// ProvideArtifacts loads the artifact registry. A bad artifact file is
// fatal before serving.
func ProvideArtifacts(cfg *config.Config) (*artifacts.Registry, error) {
	return artifacts.Load(cfg.Artifacts.Path)
}

// ProvideModelService creates the shared client for the model-serving
// process. An empty URL yields a client that answers ErrNotConfigured.
func ProvideModelService(cfg *config.Config) *inference.HTTPServiceBase {
	return inference.NewHTTPServiceBase(cfg.Model.ServiceURL, cfg.Model.Timeout)
}

func ProvideMouseModel(base *inference.HTTPServiceBase) domsvc.MouseModel {
	return inference.NewHTTPMouseModel(base)
}

func ProvideFraudModel(base *inference.HTTPServiceBase) domsvc.FraudModel {
	return inference.NewHTTPFraudModel(base)
}

func ProvideTabularModel(base *inference.HTTPServiceBase) domsvc.TabularModel {
	return inference.NewHTTPTabularModel(base)
}

// ProvideKafkaProducer creates a Kafka producer, or nil when Kafka is off.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatching(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.BatchBytes, cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideAuditPipeline builds the verdict audit pipeline on top of the
// producer, or nil when Kafka is off.
func ProvideAuditPipeline(producer *pkgkafka.Producer, m repository.Metrics, l *applogger.Logger, cfg *config.Config) *mid.AuditPipeline {
	if producer == nil {
		return nil
	}
	pub := internalrepo.NewKafkaVerdictPublisher(producer, cfg.Kafka.VerdictTopic)
	return mid.NewAuditPipeline(pub, m,
		mid.WithBufferSize(cfg.Audit.BufferSize),
		mid.WithBatching(cfg.Audit.BatchSize, cfg.Audit.FlushInterval),
		mid.WithRetry(cfg.Audit.MaxRetries, 0, 0),
		mid.WithMaxRPS(cfg.Audit.MaxPerSecond),
		mid.WithPipelineLogger(l),
	)
}

// ProvideVerdictCache builds the memory cache, layered over Redis when
// enabled, or nil when caching is off.
func ProvideVerdictCache(cfg *config.Config) (cache.Service, error) {
	if !cfg.Cache.Enabled {
		return nil, nil
	}
	mem := cache.NewMemoryCache(
		cache.WithMemoryMaxSize(cfg.Cache.MaxEntries),
		cache.WithMemoryDefaultTTL(cfg.Cache.TTL),
	)
	if !cfg.Cache.Redis.Enabled {
		return mem, nil
	}
	rc, err := cache.NewRedisCache(
		cache.WithRedisAddr(cfg.Cache.Redis.Addr),
		cache.WithRedisPassword(cfg.Cache.Redis.Password),
		cache.WithRedisDB(cfg.Cache.Redis.DB),
		cache.WithRedisPrefix(cfg.Cache.Redis.Prefix),
	)
	if err != nil {
		_ = mem.Close()
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return cache.NewLayeredCache(mem, rc), nil
}

// ProvideDispatcher creates the inference dispatcher.
func ProvideDispatcher(
	reg *artifacts.Registry,
	mouse domsvc.MouseModel,
	fraud domsvc.FraudModel,
	tabular domsvc.TabularModel,
	verdictCache cache.Service,
	pipeline *mid.AuditPipeline,
	m repository.Metrics,
	l *applogger.Logger,
	cfg *config.Config,
) *usecase.InferenceDispatcher {
	opts := []usecase.DispatcherOption{
		usecase.WithDispatcherMetrics(m),
		usecase.WithDispatcherLogger(l),
	}
	if verdictCache != nil {
		opts = append(opts, usecase.WithVerdictCache(verdictCache, cfg.Cache.TTL))
	}
	if pipeline != nil {
		opts = append(opts, usecase.WithVerdictSink(pipeline))
	}
	return usecase.NewInferenceDispatcher(reg, mouse, fraud, tabular, opts...)
}

// ProvideClickHouseClient creates a ClickHouse client when cursor sessions
// are stored there, nil otherwise.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if cfg.Cursor.Store != config.StoreClickHouse {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, nil
}

// ProvideCursorStore picks the cursor session store and ensures its schema.
func ProvideCursorStore(ch *pkgch.Client, l *applogger.Logger) (repository.CursorStore, error) {
	var store repository.CursorStore
	if ch != nil {
		chs := internalrepo.NewCHCursorStore(ch)
		chs.SetLogger(l)
		store = chs
	} else {
		store = internalrepo.NewMemoryCursorStore()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.Init(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("cursor store schema: %w", err)
	}
	return store, nil
}

func ProvideCursorSessions(store repository.CursorStore, d *usecase.InferenceDispatcher, m repository.Metrics, l *applogger.Logger, cfg *config.Config) *usecase.CursorSessions {
	return usecase.NewCursorSessions(store, d, cfg.Cursor.MaxSessions, m, l)
}

// ProvideKafkaConsumer creates a Kafka consumer, or nil when disabled.
func ProvideKafkaConsumer(cfg *config.Config, l *applogger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled || !cfg.Kafka.Consumer.Enabled {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerStartOffset(cfg.Kafka.Consumer.StartOffset),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
		pkgkafka.WithConsumerLogger(l),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.SetHook(pkgkafka.TraceHook())
	return consumer, nil
}

// ProvideKafkaCursorHandler handles the cursor ingest topic.
func ProvideKafkaCursorHandler(sessions *usecase.CursorSessions, m repository.Metrics, cfg *config.Config) *usecase.KafkaCursorHandler {
	return usecase.NewKafkaCursorHandler(cfg.Kafka.CursorTopic, sessions, m)
}

// ProvideHTTPHandler groups every route handler.
func ProvideHTTPHandler(cfg *config.Config, l *applogger.Logger, d *usecase.InferenceDispatcher, sessions *usecase.CursorSessions) xhttp.Handler {
	var mw []echo.MiddlewareFunc
	if cfg.RateLimit.Enabled {
		mw = append(mw, ratelimit.Middleware(ratelimit.New(), cfg.RateLimit.Capacity, cfg.RateLimit.RefillPerSec))
	}
	return xhttp.Handlers{
		api.NewInferenceEchoHandler(l, d, mw...),
		api.NewCursorEchoHandler(l, sessions),
		api.NewMouseStreamHandler(l, d, cfg.Server.CORS.AllowOrigins),
	}
}

// ProvideHTTPServer creates the echo server with health checks for every
// configured dependency.
func ProvideHTTPServer(
	cfg *config.Config,
	h xhttp.Handler,
	l *applogger.Logger,
	models *inference.HTTPServiceBase,
	store repository.CursorStore,
) *xhttp.Server {
	opts := []xhttp.ServerOption{
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithSlowThreshold(cfg.Server.SlowThreshold),
		xhttp.WithBodyLimit(cfg.Server.BodyLimit),
		xhttp.WithCORS(cfg.Server.CORS.AllowOrigins...),
		xhttp.WithLogger(l),
		xhttp.WithHealthCheck("cursor_store", store.Health),
	}
	if models.Configured() {
		opts = append(opts, xhttp.WithHealthCheck("model_service", models.Ping))
	}
	return xhttp.NewServer(h, opts...)
}

// ProvideApp assembles the application and attaches the log collector when
// logs are shipped to Kafka.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	srv *xhttp.Server,
	producer *pkgkafka.Producer,
	pipeline *mid.AuditPipeline,
	consumer *pkgkafka.Consumer,
	kh *usecase.KafkaCursorHandler,
	verdictCache cache.Service,
	store repository.CursorStore,
) *server.App {
	opts := []server.Option{
		server.WithCursorStore(store),
	}
	if producer != nil {
		opts = append(opts, server.WithProducer(producer))
		if cfg.Logging.Collector.Enabled {
			l.AddCollector(&applogger.CollectionConfig{
				TimeInterval:   cfg.Logging.Collector.Interval,
				CountThreshold: cfg.Logging.Collector.CountThreshold,
				Topic:          cfg.Kafka.LogTopic,
				Publisher:      producer,
			})
		}
	}
	if pipeline != nil {
		opts = append(opts, server.WithAuditPipeline(pipeline))
	}
	if consumer != nil {
		opts = append(opts, server.WithConsumer(consumer, kh))
	}
	if verdictCache != nil {
		opts = append(opts, server.WithCache(verdictCache))
	}
	return server.New(cfg, l, srv, opts...)
}
