// Package di wires the sync pipeline and the read API from configuration.
package di

import (
	"context"

	"mpgraph/application/pipeline"
	"mpgraph/infrastructure/config"
	"mpgraph/interfaces/http/rest"
	"mpgraph/pkg/observability"

	"go.uber.org/zap"
)

// SyncContainer holds the dependencies of a sync run
type SyncContainer struct {
	Config   *config.Config
	Logger   *zap.Logger
	Pipeline *pipeline.Pipeline
	Metrics  *observability.Metrics
	Tracing  *observability.TracerProvider
}

// Flush exports queued spans and syncs the logger without stopping either.
// Warm Lambda invocations call it before returning.
func (c *SyncContainer) Flush(ctx context.Context) {
	if c.Tracing != nil {
		if err := c.Tracing.ForceFlush(ctx); err != nil {
			c.Logger.Warn("Failed to flush spans", zap.Error(err))
		}
	}
	_ = c.Logger.Sync()
}

// Shutdown flushes spans and the logger.
func (c *SyncContainer) Shutdown(ctx context.Context) {
	if c.Tracing != nil {
		if err := c.Tracing.Shutdown(ctx); err != nil {
			c.Logger.Warn("Failed to shut down tracing", zap.Error(err))
		}
	}
	_ = c.Logger.Sync()
}

// APIContainer holds the dependencies of the read API
type APIContainer struct {
	Config *config.Config
	Logger *zap.Logger
	Router *rest.Router
}
