package di

import (
	"context"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"ShapeFinder/internal/domain/repository"
	"ShapeFinder/internal/domain/service"
	"ShapeFinder/internal/handler/api"
	internalrepo "ShapeFinder/internal/repository"
	"ShapeFinder/internal/service/broadcast"
	"ShapeFinder/internal/service/ratelimit"
	"ShapeFinder/internal/services/dtw"
	"ShapeFinder/internal/services/ranking"
	"ShapeFinder/internal/usecase"
	"ShapeFinder/pkg/cache"
	pkgch "ShapeFinder/pkg/clickhouse"
	"ShapeFinder/pkg/config"
	xhttp "ShapeFinder/pkg/http"
	pkgkafka "ShapeFinder/pkg/kafka"
	applogger "ShapeFinder/pkg/logger"
	"ShapeFinder/pkg/metrics"
	"ShapeFinder/pkg/postgres"
	"ShapeFinder/pkg/queue"
	"ShapeFinder/pkg/server"
)

const (
	initTimeout   = 10 * time.Second
	hubBufferSize = 32
	l1MaxItems    = 10000
	l1TTL         = 5 * time.Minute
)

// ProvideLogger creates the application logger from the log section.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideSeriesStore opens the configured backend and ensures its schema.
func ProvideSeriesStore(cfg *config.Config, l *applogger.Logger) (repository.SeriesStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
	defer cancel()

	var store repository.SeriesStore
	switch cfg.Storage.Backend {
	case "clickhouse":
		client, err := pkgch.NewClient(ctx,
			pkgch.WithHost(cfg.ClickHouse.Host),
			pkgch.WithPort(cfg.ClickHouse.Port),
			pkgch.WithDatabase(cfg.ClickHouse.Database),
			pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
			pkgch.WithMaxConnections(10, 5),
			pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
			pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
			pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
			pkgch.WithBatchSize(cfg.ClickHouse.InsertBatch),
		)
		if err != nil {
			return nil, fmt.Errorf("clickhouse client: %w", err)
		}
		chStore := internalrepo.NewClickHouseSeriesStore(client)
		chStore.SetLogger(l)
		store = chStore
	case "postgres":
		pool, err := postgres.NewPool(ctx, cfg.Postgres.DSN, postgres.WithMaxConns(cfg.Postgres.MaxConns))
		if err != nil {
			return nil, fmt.Errorf("postgres pool: %w", err)
		}
		store = internalrepo.NewPostgresSeriesStore(pool)
	default:
		store = internalrepo.NewMemorySeriesStore()
	}

	if err := store.Init(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("%s schema: %w", cfg.Storage.Backend, err)
	}
	l.Info("series store ready", applogger.String("backend", cfg.Storage.Backend))
	return store, nil
}

// ProvideRedisCache connects to Redis when it is enabled; nil otherwise.
func ProvideRedisCache(cfg *config.Config) (*cache.RedisCache, error) {
	if !cfg.Redis.Enabled {
		return nil, nil
	}
	rc, err := cache.NewRedisCache(context.Background(),
		cache.WithRedisAddr(cfg.Redis.Addr),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return rc, nil
}

// ProvideCache stacks an in-process L1 over Redis, or uses L1 alone.
func ProvideCache(rc *cache.RedisCache) cache.Service {
	l1 := cache.NewMemoryCache(
		cache.WithMemoryMaxSize(l1MaxItems),
		cache.WithMemoryTTL(l1TTL),
	)
	if rc == nil {
		return l1
	}
	return cache.NewLayeredCache(l1, rc, l1TTL)
}

// ProvideFeatureCache keys feature sequences by series content.
func ProvideFeatureCache(c cache.Service, cfg *config.Config, m repository.Metrics, l *applogger.Logger) repository.FeatureCache {
	fc := internalrepo.NewFeatureCache(c, cfg.Redis.TTL, m)
	fc.SetLogger(l)
	return fc
}

// ProvideEngine builds the DTW engine from the matching section.
func ProvideEngine(cfg *config.Config) (*dtw.Engine, error) {
	mode, err := dtw.ParseMode(cfg.Matching.DistanceMode)
	if err != nil {
		return nil, err
	}
	return dtw.NewEngine(
		dtw.WithMode(mode),
		dtw.WithApproxThreshold(cfg.Matching.ApproxThreshold),
		dtw.WithRadius(cfg.Matching.Radius),
	), nil
}

// ProvideRanker ranks candidates with the engine on a bounded pool.
func ProvideRanker(engine *dtw.Engine, cfg *config.Config) service.Ranker {
	return ranking.New(engine, ranking.WithWorkers(cfg.Matching.Workers))
}

// ProvideKafkaProducer creates a Kafka producer when Kafka is enabled; nil otherwise.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideReportPublisher publishes reports to Kafka. Without a producer the
// matcher runs with no publisher.
func ProvideReportPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.ReportPublisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaReportPublisher(producer, cfg.Kafka.TopicReports)
}

// ProvideHub creates the WebSocket report hub.
func ProvideHub(l *applogger.Logger) *broadcast.Hub {
	return broadcast.NewHub(hubBufferSize, l)
}

// ProvideMatcher creates the match use case.
func ProvideMatcher(
	store repository.SeriesStore,
	fc repository.FeatureCache,
	ranker service.Ranker,
	publisher repository.ReportPublisher,
	hub *broadcast.Hub,
	m repository.Metrics,
	cfg *config.Config,
	l *applogger.Logger,
) *usecase.MatcherUseCase {
	return usecase.NewMatcherUseCase(store, fc, ranker, publisher, hub, m, usecase.MatcherConfig{
		Period:        cfg.Matching.Period,
		NeighborCount: cfg.Matching.NeighborCount,
		Mode:          cfg.Matching.DistanceMode,
		Workers:       cfg.Matching.Workers,
		Timeout:       cfg.Matching.Timeout,
	}, l)
}

// ProvideSeriesIngest creates the series ingest use case.
func ProvideSeriesIngest(store repository.SeriesStore, fc repository.FeatureCache, m repository.Metrics, cfg *config.Config, l *applogger.Logger) *usecase.SeriesIngestUseCase {
	return usecase.NewSeriesIngestUseCase(store, fc, m, cfg.Storage.Backend, cfg.Matching.DateThreshold, l)
}

// ProvideLimiter limits match requests per client.
func ProvideLimiter(cfg *config.Config) *ratelimit.Limiter {
	return ratelimit.New(float64(cfg.Server.RateBurst), cfg.Server.RateLimit)
}

// ProvideJobQueue creates the Redis job queue and registers the match job.
// It needs Redis; nil otherwise.
func ProvideJobQueue(rc *cache.RedisCache, matcher *usecase.MatcherUseCase, cfg *config.Config, l *applogger.Logger) *queue.RedisQueue {
	if rc == nil {
		return nil
	}
	q := queue.NewRedisQueue(l, queue.QueueConfig{
		Workers:    cfg.Redis.Queue.Workers,
		RetryLimit: cfg.Redis.Queue.RetryLimit,
		RetryDelay: cfg.Redis.Queue.RetryDelay,
	}, rc.Client())
	q.RegisterJob(usecase.NewMatchJob(matcher))
	return q
}

// ProvideJobPublisher exposes the queue to handlers without a typed nil.
func ProvideJobPublisher(q *queue.RedisQueue) queue.Publisher {
	if q == nil {
		return nil
	}
	return q
}

// ProvideHandlers collects every HTTP handler.
func ProvideHandlers(
	l *applogger.Logger,
	ingest *usecase.SeriesIngestUseCase,
	matcher *usecase.MatcherUseCase,
	limiter *ratelimit.Limiter,
	jobs queue.Publisher,
	hub *broadcast.Hub,
) []xhttp.Handler {
	return []xhttp.Handler{
		api.NewSeriesHandler(l, ingest),
		api.NewMatchHandler(l, matcher, ingest, limiter, jobs),
		api.NewReportsHandler(hub),
	}
}

// ProvideHTTPServer creates the Echo server.
func ProvideHTTPServer(cfg *config.Config, l *applogger.Logger, handlers []xhttp.Handler) *xhttp.Server {
	opts := []xhttp.ServerOption{
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithCORS(cfg.Server.CORS),
	}
	if cfg.Metrics.Enabled {
		opts = append(opts, xhttp.WithMetricsPath(cfg.Metrics.Path))
	}
	return xhttp.NewServer(l, handlers, opts...)
}

// ProvideKafkaConsumer consumes match requests when Kafka is enabled; nil otherwise.
func ProvideKafkaConsumer(cfg *config.Config, l *applogger.Logger, matcher *usecase.MatcherUseCase, m repository.Metrics) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(l,
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.RegisterHandler(usecase.NewKafkaMatchHandler(cfg.Kafka.TopicRequests, matcher, m))
	consumer.WithConsumerHook(pkgkafka.HookFuncs{
		Err: func(_ context.Context, topic string, _ kafkago.Message, err error) {
			l.Warn("match request retry", applogger.String("topic", topic), applogger.Error(err))
		},
	})
	return consumer, nil
}

// ProvideApp creates the application server. Closers run in reverse
// dependency order: live viewers, outbound reports, storage, cache.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	httpServer *xhttp.Server,
	consumer *pkgkafka.Consumer,
	jobs *queue.RedisQueue,
	limiter *ratelimit.Limiter,
	hub *broadcast.Hub,
	publisher repository.ReportPublisher,
	store repository.SeriesStore,
	c cache.Service,
) *server.App {
	closers := []server.Closer{
		{Name: "hub", Close: func() error { hub.Close(); return nil }},
	}
	if publisher != nil {
		closers = append(closers, server.Closer{Name: "report publisher", Close: publisher.Close})
	}
	closers = append(closers,
		server.Closer{Name: "series store", Close: store.Close},
		server.Closer{Name: "cache", Close: c.Close},
	)
	return server.New(cfg, l, httpServer, consumer, jobs, limiter, closers...)
}
