//go:build wireinject
// +build wireinject

package di

import (
	"SectorFlow/pkg/config"
	"SectorFlow/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideCache,
		ProvideRateLimiter,
		ProvideKafkaProducer,

		// Repositories
		ProvideSnapshotProvider,
		ProvideConstituentResolver,
		ProvideFlowPublisher,

		// Use cases
		ProvideSectorAggregator,
		ProvideSnapshotSource,
		ProvideRefreshController,

		// Presentation
		ProvideDisplayLocation,
		ProvideHTTPHandler,
		ProvideHTTPServer,

		// Application server
		ProvideApp,
	)
	return nil, nil, nil
}
