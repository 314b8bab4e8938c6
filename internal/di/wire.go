//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"ChainPulse/pkg/config"
	"ChainPulse/pkg/server"
)

// engineSet builds the providers and use cases behind every entry point.
var engineSet = wire.NewSet(
	ProvideLogger,
	ProvideMetrics,
	ProvideClientSettings,
	ProvideRedisCache,
	ProvideSnapshotStore,

	// Providers
	ProvideBinance,
	ProvideDefiLlama,
	ProvideOnChain,
	ProvideSocialProviders,
	ProvideNewsProviders,
	ProvideNFTMarket,
	ProvideExecutionGateway,

	// Use cases
	ProvideSentimentAggregator,
	ProvideTVLAnalyzer,
	ProvideNFTAnalyzer,
	ProvideMarketAnalyzer,
	ProvideProtocolRouter,
	ProvideTradePolicy,
	ProvideTradeExecutor,
	ProvideEngine,
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		engineSet,

		// Outbound channels
		ProvideKafkaProducer,
		ProvideBroadcaster,
		ProvideNotifier,

		// Background work
		ProvideJobLock,
		ProvideScheduler,
		ProvideKafkaConsumer,
		ProvideTradeCommandHandler,

		// Application server
		ProvideHTTPServer,
		ProvideApp,
	)
	return &server.App{}, nil
}

// InitializeEngine wires the use cases for one-shot commands.
func InitializeEngine(cfg *config.Config) (*Engine, error) {
	wire.Build(
		engineSet,
		ProvideSilentNotifier,
	)
	return &Engine{}, nil
}
