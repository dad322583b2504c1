package di

import (
	"fmt"
	"time"

	"SectorFlow/internal/domain/repository"
	"SectorFlow/internal/handler/api"
	internalrepo "SectorFlow/internal/repository"
	"SectorFlow/internal/service/polygon"
	"SectorFlow/internal/service/ratelimit"
	"SectorFlow/internal/service/wikipedia"
	"SectorFlow/internal/usecase"
	"SectorFlow/pkg/cache"
	"SectorFlow/pkg/config"
	xhttp "SectorFlow/pkg/http"
	pkgkafka "SectorFlow/pkg/kafka"
	applogger "SectorFlow/pkg/logger"
	"SectorFlow/pkg/metrics"
	"SectorFlow/pkg/server"
	"SectorFlow/pkg/util"

	"github.com/sony/gobreaker"
)

// ProvideLogger creates the application logger from config.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	return applogger.New(&applogger.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Output:  cfg.Log.Output,
		Service: "sectorflow",
	})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideCache returns an in-memory cache, fronting Redis when enabled.
func ProvideCache(cfg *config.Config, l *applogger.Logger) (cache.Service, func(), error) {
	memOpts := []cache.MemoryOption{
		cache.WithMemoryMaxSize(cfg.Cache.MemoryMaxSize),
		cache.WithMemoryDefaultTTL(cfg.Polygon.CacheTTL),
	}
	if !cfg.Cache.Redis.Enabled {
		mc := cache.NewMemoryCache(memOpts...)
		return mc, func() { _ = mc.Close() }, nil
	}

	rc, err := cache.NewRedisCache(
		cache.WithRedisAddr(cfg.Cache.Redis.Addr),
		cache.WithRedisAuth(cfg.Cache.Redis.Password, cfg.Cache.Redis.DB),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("redis cache: %w", err)
	}
	l.Info("redis cache connected", applogger.String("addr", cfg.Cache.Redis.Addr))
	lc := cache.NewLayeredCache(rc, memOpts...)
	return lc, func() { _ = lc.Close() }, nil
}

// ProvideRateLimiter creates the per-host limiter for market-data calls.
func ProvideRateLimiter(cfg *config.Config) *ratelimit.Limiter {
	return ratelimit.New(cfg.Polygon.RPS, cfg.Polygon.Burst)
}

// ProvideSnapshotProvider creates the Polygon client.
func ProvideSnapshotProvider(
	cfg *config.Config,
	store cache.Service,
	limiter *ratelimit.Limiter,
	m repository.Metrics,
	l *applogger.Logger,
) repository.SnapshotProvider {
	breaker := polygon.NewBreaker(polygon.BreakerSettings{
		ConsecutiveFailures: cfg.Polygon.Breaker.ConsecutiveFailures,
		OpenTimeout:         cfg.Polygon.Breaker.OpenTimeout,
		OnStateChange: func(name string, from, to gobreaker.State) {
			l.Warn("circuit breaker state changed",
				applogger.String("breaker", name),
				applogger.String("from", from.String()),
				applogger.String("to", to.String()),
			)
			if to == gobreaker.StateOpen {
				m.RecordError("breaker_open")
			}
		},
	})
	return polygon.New(cfg.Polygon.APIKey,
		polygon.WithBaseURL(cfg.Polygon.BaseURL),
		polygon.WithHTTPClient(xhttp.NewClient(xhttp.WithTimeout(cfg.Polygon.Timeout))),
		polygon.WithLimiter(limiter),
		polygon.WithBreaker(breaker),
		polygon.WithCache(store, cfg.Polygon.CacheTTL),
		polygon.WithLogger(l.With(applogger.String("component", "polygon"))),
	)
}

// ProvideConstituentResolver creates the Wikipedia constituent scraper.
func ProvideConstituentResolver(cfg *config.Config, store cache.Service, l *applogger.Logger) repository.ConstituentResolver {
	return wikipedia.NewResolver(
		wikipedia.WithURL(cfg.Constituents.URL),
		wikipedia.WithHTTPClient(xhttp.NewClient(
			xhttp.WithTimeout(cfg.Constituents.Timeout),
			xhttp.WithUserAgent(cfg.Constituents.UserAgent),
		)),
		wikipedia.WithCache(store, cfg.Constituents.CacheTTL),
		wikipedia.WithLogger(l.With(applogger.String("component", "constituents"))),
	)
}

// ProvideKafkaProducer creates a Kafka producer, or nil when Kafka is disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, func(), error) {
	if !cfg.Kafka.Enabled {
		return nil, func() {}, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithWriteTimeout(cfg.Kafka.Producer.WriteTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, func() { _ = producer.Close() }, nil
}

// ProvideFlowPublisher publishes results to Kafka when a producer exists.
func ProvideFlowPublisher(cfg *config.Config, producer *pkgkafka.Producer) repository.FlowPublisher {
	if producer == nil {
		return internalrepo.NopFlowPublisher{}
	}
	return internalrepo.NewKafkaFlowPublisher(producer, cfg.Kafka.Topic)
}

// ProvideSectorAggregator creates the aggregator for the configured sectors.
func ProvideSectorAggregator(cfg *config.Config) *usecase.SectorAggregator {
	return usecase.NewSectorAggregator(cfg.Flow.Sectors, usecase.WithZeroFill(cfg.Flow.ZeroFill))
}

// ProvideSnapshotSource creates the collector feeding each refresh cycle.
func ProvideSnapshotSource(
	cfg *config.Config,
	resolver repository.ConstituentResolver,
	provider repository.SnapshotProvider,
	agg *usecase.SectorAggregator,
	m repository.Metrics,
	l *applogger.Logger,
) usecase.SnapshotSource {
	return usecase.NewSnapshotCollector(resolver, provider, m,
		l.With(applogger.String("component", "collector")),
		usecase.WithWorkers(cfg.Refresh.Workers),
		usecase.WithSectorFilter(agg.Tracks),
	)
}

// ProvideRefreshController creates the controller owning the published result.
func ProvideRefreshController(
	cfg *config.Config,
	source usecase.SnapshotSource,
	agg *usecase.SectorAggregator,
	pub repository.FlowPublisher,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.RefreshController {
	return usecase.NewRefreshController(source, agg, pub, m,
		l.With(applogger.String("component", "refresh")),
		cfg.Refresh.Interval,
	)
}

// ProvideDisplayLocation loads the zone used for rendered timestamps.
func ProvideDisplayLocation(cfg *config.Config) *time.Location {
	return util.LoadLocation(cfg.Display.Timezone)
}

// ProvideHTTPHandler creates the money-flow API handler.
func ProvideHTTPHandler(l *applogger.Logger, ctrl *usecase.RefreshController, loc *time.Location) xhttp.Handler {
	return api.NewFlowsEchoHandler(l, ctrl, loc)
}

// ProvideHTTPServer creates the echo server.
func ProvideHTTPServer(cfg *config.Config, h xhttp.Handler, l *applogger.Logger) *xhttp.Server {
	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	return xhttp.NewServer(h, l.With(applogger.String("component", "http")),
		xhttp.WithHost(cfg.Server.Host),
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithSlowRequest(cfg.Server.SlowRequest),
		xhttp.WithCORS(cfg.Server.CORS),
		xhttp.WithMetrics(metricsPath, nil),
	)
}

// ProvideApp assembles the application and routes error logs to the
// operations topic when Kafka is enabled.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	ctrl *usecase.RefreshController,
	srv *xhttp.Server,
	producer *pkgkafka.Producer,
	loc *time.Location,
) (*server.App, func()) {
	if producer != nil {
		l.AttachAlerts(&applogger.AlertConfig{
			FlushInterval:  cfg.Kafka.Alerts.FlushInterval,
			CountThreshold: cfg.Kafka.Alerts.CountThreshold,
			Topic:          cfg.Kafka.AlertsTopic,
			Publisher:      producer,
		})
	}
	app := server.New(cfg, l, ctrl, srv, loc)
	return app, l.DetachAlerts
}
