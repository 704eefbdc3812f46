package di

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"ExitPulse/internal/domain/repository"
	"ExitPulse/internal/handler/api"
	mid "ExitPulse/internal/middleware"
	internalrepo "ExitPulse/internal/repository"
	icache "ExitPulse/internal/service/cache"
	"ExitPulse/internal/services/convergence"
	"ExitPulse/internal/services/divergence"
	sigsvc "ExitPulse/internal/services/signal"
	"ExitPulse/internal/usecase"
	pkgcache "ExitPulse/pkg/cache"
	pkgch "ExitPulse/pkg/clickhouse"
	"ExitPulse/pkg/config"
	pkgkafka "ExitPulse/pkg/kafka"
	"ExitPulse/pkg/metrics"
	"ExitPulse/pkg/server"
)

// ProvideClickHouseClient creates a ClickHouse client.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	// Initialize schema
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := client.InitSchema(ctx, []string{
		"CREATE DATABASE IF NOT EXISTS exitpulse",
		"CREATE TABLE IF NOT EXISTS exitpulse.asset_returns_1d (ticker String, bucket Date, ret Float64) ENGINE=MergeTree ORDER BY (ticker, bucket)",
		"CREATE TABLE IF NOT EXISTS exitpulse.asset_returns_1w (ticker String, bucket Date, ret Float64) ENGINE=MergeTree ORDER BY (ticker, bucket)",
		"CREATE TABLE IF NOT EXISTS exitpulse.asset_returns_1mo (ticker String, bucket Date, ret Float64) ENGINE=MergeTree ORDER BY (ticker, bucket)",
		"CREATE TABLE IF NOT EXISTS exitpulse.trade_returns (strategy String, ticker String, tf String, position_id String, closed_at DateTime, realized_return Float64) ENGINE=MergeTree ORDER BY (strategy, ticker, closed_at)",
		"CREATE TABLE IF NOT EXISTS exitpulse.equity_curve (strategy String, ticker String, tf String, bucket DateTime, equity Float64) ENGINE=MergeTree ORDER BY (strategy, ticker, bucket)",
		"CREATE TABLE IF NOT EXISTS exitpulse.exit_signals (generated_at DateTime, position_id String, ticker String, strategy String, signal_type String, confidence Float64, composite Float64) ENGINE=MergeTree ORDER BY (strategy, generated_at)",
	}); err != nil {
		_ = client.Close() // cannot log here (DI layer no logger); propagate error
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	return client, nil
}

// ProvideKafkaProducer creates a Kafka producer.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
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
		return nil, fmt.Errorf("kafka producer: %w", err)
	}

	return producer, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideSignalArchive creates ClickHouse archive repository.
func ProvideSignalArchive(chClient *pkgch.Client, cfg *config.Config) repository.Archive {
	table := cfg.ClickHouse.ArchiveTable
	if table == "" {
		table = "exit_signals"
	}
	return internalrepo.NewClickHouseArchive(chClient.DB(), cfg.ClickHouse.Database+"."+table)
}

// ProvideSignalPublisher creates Kafka publisher repository.
func ProvideSignalPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.Publisher {
	return internalrepo.NewKafkaSignalPublisher(producer, cfg.Kafka.Topic)
}

// ProvideReturnStore creates the ClickHouse return-series store.
func ProvideReturnStore(chClient *pkgch.Client) repository.ReturnStore {
	return internalrepo.NewCHReturnStore(chClient)
}

// ProvideKafkaConsumer creates a Kafka consumer configured from YAML.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideKafkaSignalsHandler registers handler for the signals topic.
func ProvideKafkaSignalsHandler(archive repository.Archive, metrics repository.Metrics, cfg *config.Config) *usecase.KafkaSignalsHandler {
	return usecase.NewKafkaSignalsHandler(cfg.Kafka.Topic, archive, metrics)
}

// ProvideGenerator builds the signal generator from configured thresholds.
func ProvideGenerator(cfg *config.Config) *sigsvc.Generator {
	thresholds := sigsvc.DefaultThresholds()
	t := cfg.Engine.Thresholds
	if t.Sell > 0 && t.StrongSell > t.Sell && t.ExitImmediately > t.StrongSell {
		thresholds[sigsvc.ThresholdSell] = t.Sell
		thresholds[sigsvc.ThresholdStrongSell] = t.StrongSell
		thresholds[sigsvc.ThresholdExitImmediately] = t.ExitImmediately
	}
	return sigsvc.NewGenerator(
		divergence.NewDetector(nil),
		convergence.NewAnalyzer(cfg.Engine.MinSamples, cfg.Engine.PreferredSamples),
		sigsvc.NewClassifier(thresholds),
		cfg.Engine.HistoryCap,
	)
}

// ProvideArchiveProcessor creates the backend router for emitted signals.
func ProvideArchiveProcessor(
	pub repository.Publisher,
	archive repository.Archive,
	metrics repository.Metrics,
	cfg *config.Config,
) *usecase.ArchiveProcessor {
	return usecase.NewArchiveProcessor(
		pub,
		archive,
		metrics,
		cfg.Backend.Type,
		cfg.Backend.BatchSize,
		cfg.Backend.BatchTimeout,
	)
}

// ProvideArchivePipeline wraps the processor with validation, throttling and
// buffering.
func ProvideArchivePipeline(
	processor *usecase.ArchiveProcessor,
	metrics repository.Metrics,
	cfg *config.Config,
) *mid.ArchivePipeline {
	opts := []mid.PipelineOption{}
	if cfg.Engine.Pipeline.MaxRPS > 0 {
		opts = append(opts, mid.WithMaxRPS(cfg.Engine.Pipeline.MaxRPS))
	}
	if cfg.Engine.Pipeline.BufferSize > 0 {
		opts = append(opts, mid.WithBufferSize(cfg.Engine.Pipeline.BufferSize))
	}
	return mid.NewArchivePipeline(processor, metrics, opts...)
}

// ProvideEvaluateUseCase assembles the evaluation path.
func ProvideEvaluateUseCase(
	store repository.ReturnStore,
	gen *sigsvc.Generator,
	pipe *mid.ArchivePipeline,
	metrics repository.Metrics,
	cfg *config.Config,
) *usecase.EvaluateUseCase {
	eval := usecase.NewEvaluateUseCase(store, gen, pipe, metrics, cfg.Engine.MinSamples, cfg.Engine.PreferredSamples)
	eval.SetCache(provideSummaryCache(cfg), cfg.Engine.CacheTTL)
	return eval
}

// ProvideOptimizeUseCase assembles the threshold feedback path.
func ProvideOptimizeUseCase(
	archive repository.Archive,
	gen *sigsvc.Generator,
	metrics repository.Metrics,
) *usecase.OptimizeUseCase {
	return usecase.NewOptimizeUseCase(archive, gen, metrics)
}

// provideSummaryCache picks Redis when configured, in-process LRU otherwise.
func provideSummaryCache(cfg *config.Config) pkgcache.Service {
	r := cfg.Engine.Redis
	if r.Enabled && r.Addr != "" {
		host, port := splitHostPort(r.Addr)
		rc, err := pkgcache.NewRedisCache(
			pkgcache.WithRedisHost(host),
			pkgcache.WithRedisPort(port),
			pkgcache.WithRedisPassword(r.Password),
			pkgcache.WithRedisDB(r.DB),
			pkgcache.WithRedisPool(r.PoolSize, r.MinIdleConns, r.PoolTimeout),
			pkgcache.WithRedisPrefix("exitpulse"),
		)
		if err == nil {
			return pkgcache.NewLayeredCache(rc, pkgcache.WithLayeredMemorySize(256))
		}
		// fall through to memory cache on connect failure
	}
	return pkgcache.NewMemoryCache()
}

func splitHostPort(addr string) (string, int) {
	host, portStr, found := strings.Cut(addr, ":")
	if !found {
		return addr, 6379
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		port = 6379
	}
	return host, port
}

// ProvideStatsHandler builds the plain net/http stats surface. Its response
// cache is Redis-backed when Redis is enabled so replicas share one cache.
func ProvideStatsHandler(eval *usecase.EvaluateUseCase, gen *sigsvc.Generator, cfg *config.Config) *api.StatsHandler {
	h := api.NewStatsHandler(eval, gen)
	r := cfg.Engine.Redis
	if r.Enabled && r.Addr != "" {
		h.SetCache(icache.NewRedisCache(icache.RedisConfig{
			Addr:     r.Addr,
			Password: r.Password,
			DB:       r.DB,
			Prefix:   "exitpulse:stats",
		}))
	} else {
		h.SetCache(icache.NewTTLCache())
	}
	return h
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	pipe *mid.ArchivePipeline,
	eval *usecase.EvaluateUseCase,
	opt *usecase.OptimizeUseCase,
	processor *usecase.ArchiveProcessor,
	stats *api.StatsHandler,
	consumer *pkgkafka.Consumer,
	kh *usecase.KafkaSignalsHandler,
	chClient *pkgch.Client,
	m repository.Metrics,
) *server.App {
	if consumer != nil {
		consumer.WithConsumerHook(pkgkafka.NewHookChain(pkgkafka.MetricsHook{
			Latency: func(_ string, seconds float64) { m.RecordLatency("kafka_handle", seconds) },
			Errors:  func(_ string) { m.RecordError("kafka_handle") },
		}))
	}
	app := server.New(cfg, pipe, eval, opt, consumer, kh, chClient)
	app.ArchiveProc = processor
	app.SetStatsHandler(stats)
	return app
}
