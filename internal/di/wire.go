//go:build wireinject
// +build wireinject

package di

import (
	"ForecastArena/pkg/config"
	"ForecastArena/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Observability
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,
		ProvideBytesCache,

		// Repositories
		ProvideCandleStore,
		ProvideCandleProvider,
		ProvideCandleWriter,
		ProvideAuditSink,
		ProvideAuditStore,
		ProvidePivotProvider,
		ProvideMarketStream,

		// Scoring engines
		ProvideTournamentEngine,
		ProvideValidityEngine,
		ProvideCombiner,
		ProvideSamplerConfig,
		ProvidePredictionSources,

		// Use cases
		ProvideKafkaAuditHandler,
		ProvideTickCollector,
		ProvideBenchmarkRunner,
		ProvideCandlesUseCase,
		ProvideScheduleBuilder,
		ProvideReportUseCase,
		ProvideBenchmarkService,

		// HTTP surface
		ProvideArenaHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
