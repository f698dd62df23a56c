//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"ShapeFinder/pkg/config"
	"ShapeFinder/pkg/server"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,

		// Storage and caching
		ProvideSeriesStore,
		ProvideRedisCache,
		ProvideCache,
		ProvideFeatureCache,

		// Matching core
		ProvideEngine,
		ProvideRanker,

		// Report delivery
		ProvideKafkaProducer,
		ProvideReportPublisher,
		ProvideHub,

		// Use cases
		ProvideMatcher,
		ProvideSeriesIngest,

		// Transports
		ProvideLimiter,
		ProvideJobQueue,
		ProvideJobPublisher,
		ProvideHandlers,
		ProvideHTTPServer,
		ProvideKafkaConsumer,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
