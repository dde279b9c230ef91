// Package main implements the scheduled Lambda that runs a similarity sync.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"mpgraph/application/pipeline"
	"mpgraph/application/ports"
	"mpgraph/infrastructure/config"
	"mpgraph/infrastructure/di"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"
)

var container *di.SyncContainer

func initContainer() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	container, _, err = di.InitializeSyncContainer(context.Background(), cfg)
	if err != nil {
		log.Fatalf("Failed to initialize dependency container: %v", err)
	}

	log.Println("Sync handler initialized successfully")
}

// StageOverrides is the optional event detail. Unset fields keep the
// configured value.
type StageOverrides struct {
	CreateDivisions     *bool `json:"createDivisions,omitempty"`
	CreateMPs           *bool `json:"createMps,omitempty"`
	CreateRelationships *bool `json:"createRelationships,omitempty"`
}

// Apply returns stages with the overrides set.
func (o StageOverrides) Apply(stages pipeline.Stages) pipeline.Stages {
	if o.CreateDivisions != nil {
		stages.Divisions = *o.CreateDivisions
	}
	if o.CreateMPs != nil {
		stages.Legislators = *o.CreateMPs
	}
	if o.CreateRelationships != nil {
		stages.Relationships = *o.CreateRelationships
	}
	return stages
}

func parseOverrides(detail json.RawMessage) (StageOverrides, error) {
	var o StageOverrides
	if len(detail) == 0 || string(detail) == "null" {
		return o, nil
	}
	if err := json.Unmarshal(detail, &o); err != nil {
		return o, fmt.Errorf("invalid event detail: %w", err)
	}
	return o, nil
}

// HandleScheduledSync runs the pipeline for one EventBridge invocation
func HandleScheduledSync(ctx context.Context, event events.CloudWatchEvent) (*ports.SyncSummary, error) {
	logger := container.Logger.With(
		zap.String("event_id", event.ID),
		zap.String("detail_type", event.DetailType),
	)

	defer container.Flush(context.WithoutCancel(ctx))

	overrides, err := parseOverrides(event.Detail)
	if err != nil {
		logger.Error("Rejected sync event", zap.Error(err))
		return nil, err
	}

	p := container.Pipeline.WithStages(overrides.Apply(container.Pipeline.Stages()))
	summary, err := p.Run(ctx)

	if url := container.Config.PushgatewayURL; url != "" {
		if perr := container.Metrics.Push(context.WithoutCancel(ctx), url, "mpgraph_sync"); perr != nil {
			logger.Warn("Failed to push metrics", zap.Error(perr))
		}
	}

	if err != nil {
		logger.Error("Sync failed", zap.Error(err))
		return summary, err
	}
	return summary, nil
}

func main() {
	initContainer()
	lambda.Start(HandleScheduledSync)
}
