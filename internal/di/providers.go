package di

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	domrepo "ForecastArena/internal/domain/repository"
	domservice "ForecastArena/internal/domain/service"
	"ForecastArena/internal/ensemble"
	"ForecastArena/internal/handler/api"
	mid "ForecastArena/internal/middleware"
	internalrepo "ForecastArena/internal/repository"
	"ForecastArena/internal/sampler"
	cachesvc "ForecastArena/internal/service/cache"
	"ForecastArena/internal/service/ratelimit"
	"ForecastArena/internal/service/stream"
	"ForecastArena/internal/services/predictors"
	"ForecastArena/internal/tournament"
	"ForecastArena/internal/usecase"
	"ForecastArena/internal/validity"
	pkgcache "ForecastArena/pkg/cache"
	pkgch "ForecastArena/pkg/clickhouse"
	"ForecastArena/pkg/config"
	pkgkafka "ForecastArena/pkg/kafka"
	"ForecastArena/pkg/logger"
	"ForecastArena/pkg/metrics"
	"ForecastArena/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	level := "info"
	if cfg.Environment == "development" {
		level = "debug"
	}
	return logger.New(&logger.Config{Level: level, Format: "json", Output: "stdout"})
}

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

	candleTable := func(name string) string {
		return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS arena.%s (
            bucket DateTime, symbol String,
            open Float64, high Float64, low Float64, close Float64, vol Float64
        ) ENGINE=ReplacingMergeTree ORDER BY (symbol, bucket)`, name)
	}
	if err := client.InitSchema(ctx, []string{
		"CREATE DATABASE IF NOT EXISTS arena",
		candleTable("candles_1m"),
		candleTable("candles_5m"),
		candleTable("candles_15m"),
		candleTable("candles_1h"),
		`CREATE TABLE IF NOT EXISTS arena.audit_records (
            benchmark_id String, model_id String, symbol String, horizon String,
            round UInt32, snap_time DateTime, prediction Float64, label UInt8,
            log_loss Float64, brier Float64, baseline_delta Float64,
            failed UInt8, fail_reason String
        ) ENGINE=MergeTree ORDER BY (benchmark_id, model_id, horizon, round)`,
		`CREATE TABLE IF NOT EXISTS arena.pivot_events (
            symbol String, horizon String, event_time DateTime,
            price Float64, confirmed UInt8
        ) ENGINE=MergeTree ORDER BY (symbol, horizon, event_time)`,
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

// ProvideKafkaConsumer creates a Kafka consumer, or nil when the audit
// consumer is disabled.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Consumer.Enabled {
		return nil, nil
	}
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

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() domrepo.Metrics {
	return metrics.New()
}

// ProvideCandleStore creates the ClickHouse candle repository.
func ProvideCandleStore(chClient *pkgch.Client, l *logger.Logger) *internalrepo.CHCandleStore {
	store := internalrepo.NewCHCandleStore(chClient)
	store.SetLogger(l)
	return store
}

// ProvideCandleProvider exposes the candle store read side.
func ProvideCandleProvider(store *internalrepo.CHCandleStore) domrepo.CandleProvider {
	return store
}

// ProvideCandleWriter exposes the candle store write side.
func ProvideCandleWriter(store *internalrepo.CHCandleStore) domrepo.CandleWriter {
	return store
}

// ProvideAuditSink publishes audit records to Kafka.
func ProvideAuditSink(producer *pkgkafka.Producer, cfg *config.Config) domrepo.AuditSink {
	return internalrepo.NewKafkaAuditSink(producer, cfg.Kafka.AuditTopic)
}

// ProvideAuditStore persists audit records consumed from Kafka.
func ProvideAuditStore(chClient *pkgch.Client, cfg *config.Config) domrepo.AuditStore {
	return internalrepo.NewCHAuditStore(chClient.DB(), cfg.ClickHouse.Database+".audit_records")
}

// ProvidePivotProvider serves confirmed pivot annotations.
func ProvidePivotProvider(chClient *pkgch.Client, cfg *config.Config) domrepo.PivotProvider {
	return internalrepo.NewCHPivotStore(chClient.DB(), cfg.ClickHouse.Database+".pivot_events")
}

// ProvideKafkaAuditHandler registers the handler for the audit topic.
func ProvideKafkaAuditHandler(store domrepo.AuditStore, m domrepo.Metrics, cfg *config.Config) *usecase.KafkaAuditHandler {
	return usecase.NewKafkaAuditHandler(cfg.Kafka.AuditTopic, store, m)
}

// ProvideMarketStream creates the WebSocket tick stream, or nil when
// live ingestion is disabled.
func ProvideMarketStream(cfg *config.Config) domrepo.MarketStream {
	if !cfg.Stream.Enabled {
		return nil
	}
	return stream.New(
		cfg.Stream.APIKey,
		cfg.Stream.WebSocketURL,
		cfg.Stream.Symbols,
		cfg.Stream.ReconnectDelay,
		cfg.Stream.PingInterval,
	)
}

// ProvideTickCollector creates the live candle ingestion pipeline, or
// nil when no stream is configured.
func ProvideTickCollector(
	ms domrepo.MarketStream,
	writer domrepo.CandleWriter,
	m domrepo.Metrics,
) *usecase.TickCollector {
	if ms == nil {
		return nil
	}
	proc := usecase.NewTickProcessor(writer, m, 100)
	pipe := mid.NewIngestPipeline(proc, m,
		mid.WithMaxRPS(50),
		mid.WithBufferSize(2000),
	)
	return usecase.NewTickCollector(ms, proc, m, pipe)
}

// ProvideTournamentEngine creates the elimination engine, with YAML
// overrides applied on top of the standard parameters.
func ProvideTournamentEngine(cfg *config.Config, l *logger.Logger, m domrepo.Metrics) *tournament.Engine {
	tc := tournament.DefaultConfig()
	if cfg.Benchmark.ArenaSize > 0 {
		tc.ArenaSize = cfg.Benchmark.ArenaSize
	}
	if cfg.Benchmark.StabilityWindow > 0 {
		tc.StabilityWindow = cfg.Benchmark.StabilityWindow
	}
	if cfg.Benchmark.SanityLossBound > 0 {
		tc.SanityLossBound = cfg.Benchmark.SanityLossBound
	}
	if cfg.Benchmark.QualifyPct > 0 {
		tc.QualifyPct = cfg.Benchmark.QualifyPct
	}
	if cfg.Benchmark.RegretLimit > 0 {
		tc.RegretLimit = cfg.Benchmark.RegretLimit
	}
	if cfg.Benchmark.EarlyRounds > 0 {
		tc.EarlyRounds = cfg.Benchmark.EarlyRounds
	}
	return tournament.NewEngine(tc, domrepo.AllHorizons(), l, m)
}

// ProvideValidityEngine creates the prediction validity gates.
func ProvideValidityEngine() *validity.Engine {
	return validity.NewEngine(validity.DefaultConfig())
}

// ProvideCombiner creates the ensemble weight combiner.
func ProvideCombiner() *ensemble.Combiner {
	return ensemble.NewCombiner(ensemble.DefaultConfig())
}

// ProvideBenchmarkRunner creates the round loop use case.
func ProvideBenchmarkRunner(
	candles domrepo.CandleProvider,
	pivots domrepo.PivotProvider,
	audit domrepo.AuditSink,
	engine *tournament.Engine,
	gates *validity.Engine,
	combiner *ensemble.Combiner,
	m domrepo.Metrics,
	l *logger.Logger,
) *usecase.BenchmarkRunner {
	return usecase.NewBenchmarkRunner(candles, pivots, audit, engine, gates, combiner, m, l)
}

// ProvideCandlesUseCase creates the candle query use case.
func ProvideCandlesUseCase(candles domrepo.CandleProvider) *usecase.CandlesUseCase {
	return usecase.NewCandlesUseCase(candles)
}

// ProvideScheduleBuilder creates the benchmark schedule builder.
func ProvideScheduleBuilder(candles domrepo.CandleProvider) *usecase.ScheduleBuilder {
	return usecase.NewScheduleBuilder(candles)
}

// ProvideBytesCache creates the report cache, Redis when configured,
// in-process otherwise.
func ProvideBytesCache(cfg *config.Config) (cachesvc.BytesCache, error) {
	if !cfg.Redis.Enabled {
		return cachesvc.NewServiceCache(pkgcache.NewMemoryCache()), nil
	}
	host, port := splitHostPort(cfg.Redis.Addr)
	rc, err := pkgcache.NewRedisCache(
		pkgcache.WithRedisHost(host),
		pkgcache.WithRedisPort(port),
		pkgcache.WithRedisPassword(cfg.Redis.Password),
		pkgcache.WithRedisDB(cfg.Redis.DB),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	layered := pkgcache.NewLayeredCache(rc, pkgcache.WithLayeredMemorySize(512))
	return cachesvc.NewServiceCache(layered), nil
}

// ProvideReportUseCase creates the report assembly use case.
func ProvideReportUseCase(c cachesvc.BytesCache, cfg *config.Config) *usecase.ReportUseCase {
	return usecase.NewReportUseCase(c, cfg.Redis.CacheTTL)
}

// ProvidePredictionSources builds one HTTP source per configured endpoint.
func ProvidePredictionSources(cfg *config.Config) []domservice.PredictionSource {
	limiter := ratelimit.New()
	timeout := cfg.Predictors.Timeout
	sources := make([]domservice.PredictionSource, 0, len(cfg.Predictors.Endpoints))
	for _, ep := range cfg.Predictors.Endpoints {
		opts := []predictors.Option{}
		if cfg.Predictors.RetryAttempts > 0 {
			opts = append(opts, predictors.WithRetry(cfg.Predictors.RetryAttempts))
		}
		if cfg.Predictors.RatePerSecond > 0 {
			opts = append(opts, predictors.WithRateLimit(limiter, cfg.Predictors.RatePerSecond))
		}
		sources = append(sources, predictors.NewHTTPPredictionSource(ep.ID, ep.URL, timeout, opts...))
	}
	return sources
}

// ProvideSamplerConfig maps YAML sampler settings onto the defaults.
func ProvideSamplerConfig(cfg *config.Config) sampler.Config {
	sc := sampler.DefaultConfig()
	if cfg.Sampler.Target > 0 {
		sc.Target = cfg.Sampler.Target
	}
	if cfg.Sampler.MaxDistance > 0 {
		sc.MaxDistance = cfg.Sampler.MaxDistance
	}
	if cfg.Sampler.MinSeparation > 0 {
		sc.MinSeparation = cfg.Sampler.MinSeparation
	}
	if cfg.Sampler.MinPositiveFrac > 0 {
		sc.MinPositiveFrac = cfg.Sampler.MinPositiveFrac
	}
	if cfg.Sampler.MaxPositiveFrac > 0 {
		sc.MaxPositiveFrac = cfg.Sampler.MaxPositiveFrac
	}
	if cfg.Sampler.MinMinority > 0 {
		sc.MinMinority = cfg.Sampler.MinMinority
	}
	return sc
}

// ProvideBenchmarkService creates the benchmark trigger service.
func ProvideBenchmarkService(
	builder *usecase.ScheduleBuilder,
	runner *usecase.BenchmarkRunner,
	report *usecase.ReportUseCase,
	sources []domservice.PredictionSource,
	samplerCfg sampler.Config,
	l *logger.Logger,
) *usecase.BenchmarkService {
	return usecase.NewBenchmarkService(builder, runner, report, sources, samplerCfg, l)
}

// ProvideArenaHandler creates the HTTP API handler.
func ProvideArenaHandler(
	l *logger.Logger,
	report *usecase.ReportUseCase,
	candles *usecase.CandlesUseCase,
	bench *usecase.BenchmarkService,
) *api.ArenaHandler {
	return api.NewArenaHandler(l, report, candles, bench)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	collector *usecase.TickCollector,
	consumer *pkgkafka.Consumer,
	kh *usecase.KafkaAuditHandler,
	chClient *pkgch.Client,
	audit domrepo.AuditSink,
	handler *api.ArenaHandler,
) *server.App {
	if consumer != nil {
		consumer.WithConsumerHook(pkgkafka.NoopHook{})
	}
	app := server.New(cfg, collector, consumer, kh, chClient)
	app.SetHTTPHandler(handler)
	app.AuditSink = audit
	return app
}

func splitHostPort(addr string) (string, int) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		if addr != "" {
			return addr, 6379
		}
		return "localhost", 6379
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 {
		port = 6379
	}
	return host, port
}
