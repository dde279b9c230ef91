// Package dynamodb implements the graph store and the similarity document
// store on DynamoDB single-table layouts.
package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "mpgraph/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"
)

// Key prefixes shared by the graph table items.
const (
	legislatorPrefix = "LEGISLATOR#"
	divisionPrefix   = "DIVISION#"
	votePrefix       = "VOTE#"
	namePrefix       = "NAME#"
	metadataSK       = "METADATA"

	entityLegislator = "LEGISLATOR"
	entityDivision   = "DIVISION"
	entityVotedFor   = "VOTED_FOR"
	entitySimilarity = "SIMILARITY"
)

// maxBatchWriteItems is the DynamoDB BatchWriteItem request limit.
const maxBatchWriteItems = 25

// API is the subset of the DynamoDB client the stores use.
type API interface {
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
}

var _ API = (*dynamodb.Client)(nil)

// describeTable checks that the table exists and is usable.
func describeTable(ctx context.Context, client API, table string) error {
	out, err := client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(table)})
	if err != nil {
		if errorCode(err) == "ResourceNotFoundException" {
			return apperrors.NewNotFoundError(fmt.Sprintf("table %s", table)).WithCause(err)
		}
		return apperrors.NewDatabaseError("describe table", err)
	}
	if out.Table != nil && out.Table.TableStatus == types.TableStatusDeleting {
		return apperrors.NewUnavailableError(fmt.Sprintf("table %s", table))
	}
	return nil
}

// errorCode returns the service error code carried by err, if any.
func errorCode(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return ""
}

// batchWriter writes put requests in chunks of maxBatchWriteItems and
// resubmits UnprocessedItems a bounded number of times.
type batchWriter struct {
	client      API
	table       string
	maxAttempts int
	baseDelay   time.Duration
	logger      *zap.Logger
}

func newBatchWriter(client API, table string, logger *zap.Logger) *batchWriter {
	return &batchWriter{
		client:      client,
		table:       table,
		maxAttempts: 5,
		baseDelay:   50 * time.Millisecond,
		logger:      logger,
	}
}

func (w *batchWriter) write(ctx context.Context, requests []types.WriteRequest) error {
	for start := 0; start < len(requests); start += maxBatchWriteItems {
		end := start + maxBatchWriteItems
		if end > len(requests) {
			end = len(requests)
		}
		if err := w.writeChunk(ctx, requests[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (w *batchWriter) writeChunk(ctx context.Context, chunk []types.WriteRequest) error {
	pending := chunk
	delay := w.baseDelay
	for attempt := 1; ; attempt++ {
		out, err := w.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]types.WriteRequest{w.table: pending},
		})
		if err != nil {
			return apperrors.NewDatabaseError("batch write", err)
		}

		pending = out.UnprocessedItems[w.table]
		if len(pending) == 0 {
			return nil
		}
		if attempt >= w.maxAttempts {
			return apperrors.NewDatabaseError("batch write",
				fmt.Errorf("%d items still unprocessed after %d attempts", len(pending), attempt))
		}

		w.logger.Debug("Resubmitting unprocessed items",
			zap.Int("attempt", attempt),
			zap.Int("unprocessed", len(pending)),
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
}
