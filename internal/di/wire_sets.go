package di

import "github.com/google/wire"

// SuperSet combines all provider sets for the hub process.
var SuperSet = wire.NewSet(
	ConfigProviders,
	ObservabilityProviders,
	StorageProviders,
	HubProviders,
	newContainer,
)

// ConfigProviders provides configuration and logging.
var ConfigProviders = wire.NewSet(
	provideConfig,
	provideLoggerBundle,
	provideLogger,
	provideLogLevel,
)

// ObservabilityProviders provides metrics and tracing.
var ObservabilityProviders = wire.NewSet(
	provideCollector,
	provideTracing,
)

// StorageProviders selects the item and session stores by driver.
var StorageProviders = wire.NewSet(
	provideDynamoDBAPI,
	provideRedisClient,
	provideItemStore,
	provideSessionStore,
)

// HubProviders builds the hub, its limiters and its HTTP surface.
var HubProviders = wire.NewSet(
	provideRegistry,
	provideCommandLimiter,
	provideIPLimiter,
	provideMonitorReporter,
	provideHub,
	provideServer,
	provideRouter,
)
