// Package eventbridge publishes pipeline events to AWS EventBridge.
package eventbridge

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"mpgraph/application/ports"
	apperrors "mpgraph/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"go.uber.org/zap"
)

// DetailTypeSyncCompleted is the detail-type of the completion event.
const DetailTypeSyncCompleted = "SimilaritySyncCompleted"

// API is the subset of the EventBridge client the publisher uses.
type API interface {
	PutEvents(ctx context.Context, params *eventbridge.PutEventsInput, optFns ...func(*eventbridge.Options)) (*eventbridge.PutEventsOutput, error)
}

// Publisher implements ports.EventPublisher using AWS EventBridge
type Publisher struct {
	client   API
	eventBus string
	source   string
	logger   *zap.Logger
	now      func() time.Time
}

var _ ports.EventPublisher = (*Publisher)(nil)

// NewPublisher creates a new EventBridge publisher
func NewPublisher(client API, eventBus, source string, logger *zap.Logger) *Publisher {
	if eventBus == "" {
		eventBus = "default"
	}
	if source == "" {
		source = "mpgraph.sync"
	}
	return &Publisher{
		client:   client,
		eventBus: eventBus,
		source:   source,
		logger:   logger,
		now:      time.Now,
	}
}

// PublishSyncCompleted sends one SimilaritySyncCompleted event.
func (p *Publisher) PublishSyncCompleted(ctx context.Context, summary ports.SyncSummary) error {
	detail, err := json.Marshal(summary)
	if err != nil {
		return apperrors.NewInternalError("failed to marshal sync summary").WithCause(err)
	}

	output, err := p.client.PutEvents(ctx, &eventbridge.PutEventsInput{
		Entries: []types.PutEventsRequestEntry{{
			EventBusName: aws.String(p.eventBus),
			Source:       aws.String(p.source),
			DetailType:   aws.String(DetailTypeSyncCompleted),
			Detail:       aws.String(string(detail)),
			Time:         aws.Time(p.now().UTC()),
		}},
	})
	if err != nil {
		return apperrors.NewExternalError("eventbridge", err)
	}

	if output.FailedEntryCount > 0 {
		for i, entry := range output.Entries {
			if entry.ErrorCode != nil {
				p.logger.Error("EventBridge entry failed",
					zap.Int("entry", i),
					zap.String("code", aws.ToString(entry.ErrorCode)),
					zap.String("message", aws.ToString(entry.ErrorMessage)),
				)
			}
		}
		return apperrors.NewExternalError("eventbridge", fmt.Errorf("%d events failed to publish", output.FailedEntryCount))
	}

	p.logger.Info("Published sync completed event",
		zap.String("run_id", summary.RunID),
		zap.String("event_bus", p.eventBus),
	)
	return nil
}
