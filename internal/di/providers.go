package di

import (
	"context"
	"fmt"
	"time"

	"SignalDesk/internal/domain/repository"
	"SignalDesk/internal/handler/api"
	internalrepo "SignalDesk/internal/repository"
	"SignalDesk/internal/service/ratelimit"
	"SignalDesk/internal/service/signalapi"
	"SignalDesk/internal/usecase"
	"SignalDesk/pkg/cache"
	pkgch "SignalDesk/pkg/clickhouse"
	"SignalDesk/pkg/config"
	xhttp "SignalDesk/pkg/http"
	pkgkafka "SignalDesk/pkg/kafka"
	applogger "SignalDesk/pkg/logger"
	"SignalDesk/pkg/metrics"
	"SignalDesk/pkg/server"
)

// Probe is what a one-shot upstream check needs.
type Probe struct {
	Config  *config.Config
	Source  repository.SignalSource
	Log     *applogger.Logger
	Metrics repository.Metrics
}

// Sinks are the optional snapshot destinations besides the snapshot store.
type Sinks []repository.SnapshotSink

// ProvideLogger creates the application logger from config.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(applogger.String("env", cfg.Environment)), nil
}

// ProvideMetrics creates a Prometheus metrics recorder, or a no-op one when disabled.
func ProvideMetrics(cfg *config.Config) repository.Metrics {
	if !cfg.Metrics.Enabled {
		return repository.NopMetrics{}
	}
	return metrics.New(nil)
}

// ProvideHTTPClient creates the upstream HTTP client.
func ProvideHTTPClient(cfg *config.Config) *xhttp.Client {
	return xhttp.NewClient(xhttp.WithTimeout(cfg.Upstream.Timeout))
}

// ProvideSignalSource builds the REST or webhook source selected by upstream.mode.
func ProvideSignalSource(
	cfg *config.Config,
	client *xhttp.Client,
	log *applogger.Logger,
	m repository.Metrics,
) (repository.SignalSource, error) {
	breaker := signalapi.DefaultBreakerSettings()
	breaker.ConsecutiveFailures = cfg.Upstream.Breaker.ConsecutiveFailures
	breaker.OpenTimeout = cfg.Upstream.Breaker.OpenTimeout

	opts := []signalapi.Option{
		signalapi.WithLogger(log),
		signalapi.WithMetrics(m),
		signalapi.WithBreaker(breaker),
	}
	switch cfg.Upstream.Mode {
	case config.ModeAPI:
		return signalapi.NewAPISource(cfg.Upstream.BaseURL, client, opts...), nil
	case config.ModeWebhook:
		w := cfg.Upstream.Webhook
		return signalapi.NewWebhookSource(signalapi.WebhookURLs{
			Strategy:     w.StrategyURL,
			Regime:       w.RegimeURL,
			CurrentNews:  w.CurrentNewsURL,
			UpcomingNews: w.UpcomingNewsURL,
			Health:       w.HealthURL,
		}, client, opts...), nil
	default:
		return nil, fmt.Errorf("unknown upstream mode %q", cfg.Upstream.Mode)
	}
}

// ProvideCache creates the snapshot cache: in-memory only, or memory in front of Redis.
func ProvideCache(cfg *config.Config, log *applogger.Logger) (cache.Service, func(), error) {
	if !cfg.Cache.Redis.Enabled {
		c := cache.NewMemoryCache(cache.WithMemoryMaxSize(cfg.Cache.MemoryMaxSize))
		return c, func() { _ = c.Close() }, nil
	}

	r := cfg.Cache.Redis
	remote, err := cache.NewRedisCache(
		cache.WithRedisHost(r.Host),
		cache.WithRedisPort(r.Port),
		cache.WithRedisPassword(r.Password),
		cache.WithRedisDB(r.DB),
		cache.WithRedisPrefix(r.Prefix),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("redis cache: %w", err)
	}
	c := cache.NewLayeredCache(remote, cache.WithLayeredMemorySize(cfg.Cache.MemoryMaxSize))
	cleanup := func() {
		if err := c.Close(); err != nil {
			log.Warn("cache close error", applogger.Error(err))
		}
	}
	return c, cleanup, nil
}

// ProvideSnapshotStore keeps the last snapshot per pair and scope in the cache.
func ProvideSnapshotStore(c cache.Service, cfg *config.Config) repository.SnapshotStore {
	return internalrepo.NewCacheSnapshotStore(c, cfg.Cache.SnapshotTTL)
}

// ProvideKafkaProducer creates a Kafka producer, or nil when kafka is disabled.
func ProvideKafkaProducer(cfg *config.Config, log *applogger.Logger) (*pkgkafka.Producer, func(), error) {
	if !cfg.Kafka.Enabled {
		return nil, func() {}, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithTopic(cfg.Kafka.Topic),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}
	cleanup := func() {
		if err := producer.Close(); err != nil {
			log.Warn("kafka producer close error", applogger.Error(err))
		}
	}
	return producer, cleanup, nil
}

// ProvideClickHouseClient connects to ClickHouse and creates the history table, or
// returns nil when clickhouse is disabled.
func ProvideClickHouseClient(cfg *config.Config, log *applogger.Logger) (*pkgch.Client, func(), error) {
	if !cfg.ClickHouse.Enabled {
		return nil, func() {}, nil
	}
	ch := cfg.ClickHouse
	client, err := pkgch.NewClient(
		pkgch.WithHost(ch.Host),
		pkgch.WithPort(ch.Port),
		pkgch.WithDatabase(ch.Database),
		pkgch.WithCredentials(ch.User, ch.Password),
		pkgch.WithHTTP(ch.UseHTTP),
		pkgch.WithAsyncInsert(ch.AsyncInsert, ch.WaitForAsync),
		pkgch.WithTimeouts(ch.DialTimeout, ch.ReadTimeout, ch.WriteTimeout),
		pkgch.WithMaxExecutionTime(ch.MaxExecutionTime),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.InitSchema(ctx, internalrepo.HistorySchema(ch.Database, ch.Table)); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	cleanup := func() {
		if err := client.Close(); err != nil {
			log.Warn("clickhouse close error", applogger.Error(err))
		}
	}
	return client, cleanup, nil
}

// ProvideSinks collects the enabled Kafka and ClickHouse sinks.
func ProvideSinks(cfg *config.Config, producer *pkgkafka.Producer, ch *pkgch.Client) Sinks {
	var sinks Sinks
	if producer != nil {
		sinks = append(sinks, internalrepo.NewKafkaSnapshotPublisher(producer))
	}
	if ch != nil {
		sinks = append(sinks, internalrepo.NewClickHouseSignalHistory(ch.DB(), ch.Database()+"."+cfg.ClickHouse.Table))
	}
	return sinks
}

// ProvideHub creates the orchestrator hub.
func ProvideHub(
	cfg *config.Config,
	source repository.SignalSource,
	store repository.SnapshotStore,
	sinks Sinks,
	log *applogger.Logger,
	m repository.Metrics,
) (*usecase.Hub, func()) {
	hub := usecase.NewHub(usecase.HubConfig{
		Interval:  cfg.Polling.Interval,
		FreePairs: cfg.Polling.FreePairs,
		IdleTTL:   cfg.Polling.IdleTTL,
	}, source,
		usecase.WithStore(store),
		usecase.WithHubSinks(sinks...),
		usecase.WithHubLogger(log),
		usecase.WithHubMetrics(m),
	)
	return hub, hub.Close
}

// ProvideRefreshLimiter creates the per-client refresh limiter.
func ProvideRefreshLimiter(cfg *config.Config) *ratelimit.Limiter {
	return ratelimit.New(cfg.RateLimit.RefreshRPS, cfg.RateLimit.RefreshBurst)
}

// ProvideHandler creates the dashboard HTTP handler.
func ProvideHandler(log *applogger.Logger, hub *usecase.Hub, limiter *ratelimit.Limiter) xhttp.Handler {
	return api.NewDashboardHandler(log, hub, limiter)
}

// ProvideHTTPServer creates the echo server.
func ProvideHTTPServer(cfg *config.Config, handler xhttp.Handler, log *applogger.Logger) *xhttp.Server {
	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	return xhttp.NewServer(handler, log,
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithCORS(cfg.Server.CORS),
		xhttp.WithMetricsPath(metricsPath),
	)
}

// ProvideApp creates the application.
func ProvideApp(
	cfg *config.Config,
	log *applogger.Logger,
	srv *xhttp.Server,
	hub *usecase.Hub,
	limiter *ratelimit.Limiter,
) *server.App {
	return server.New(cfg, log, srv, hub, limiter)
}
