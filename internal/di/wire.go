//go:build wireinject
// +build wireinject

package di

import (
	"ExitPulse/pkg/config"
	"ExitPulse/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Metrics
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,

		// Repositories (with business logic)
		ProvideReturnStore,
		ProvideSignalArchive,
		ProvideSignalPublisher,

		// Engine
		ProvideGenerator,

		// Use cases
		ProvideArchiveProcessor,
		ProvideArchivePipeline,
		ProvideEvaluateUseCase,
		ProvideOptimizeUseCase,
		ProvideKafkaSignalsHandler,

		// HTTP surfaces
		ProvideStatsHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
