//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"mpgraph/infrastructure/config"

	"github.com/google/wire"
)

// CommonSet holds the providers shared by every entrypoint
var CommonSet = wire.NewSet(
	ProvideLogger,
	ProvideAWSConfig,
	ProvideDynamoDBClient,
	ProvideSimilarityStore,
	ProvideMetrics,
)

// SyncSet wires the sync pipeline
var SyncSet = wire.NewSet(
	ProvideEventBridgeClient,
	ProvideDataSource,
	ProvideGraphStore,
	ProvideDocumentStore,
	ProvideEventPublisher,
	ProvideTracerProvider,
	ProvideTracer,
	ProvidePipeline,
	wire.Struct(new(SyncContainer), "*"),
)

// APISet wires the read API
var APISet = wire.NewSet(
	ProvideSimilarityReader,
	ProvideGetSimilarityHandler,
	ProvideRouter,
	wire.Struct(new(APIContainer), "*"),
)

// InitializeSyncContainer creates a fully wired sync container
func InitializeSyncContainer(ctx context.Context, cfg *config.Config) (*SyncContainer, func(), error) {
	wire.Build(CommonSet, SyncSet)
	return nil, nil, nil // Wire will replace this
}

// InitializeAPIContainer creates a fully wired API container
func InitializeAPIContainer(ctx context.Context, cfg *config.Config) (*APIContainer, func(), error) {
	wire.Build(CommonSet, APISet)
	return nil, nil, nil // Wire will replace this
}
