package dynamodb

import (
	"context"
	"fmt"
	"time"

	"mpgraph/application/ports"
	"mpgraph/domain"
	apperrors "mpgraph/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

const similaritySK = "SIMILARITY"

// similarityItem is one legislator's similarity document.
type similarityItem struct {
	PK         string             `dynamodbav:"PK"`
	SK         string             `dynamodbav:"SK"`
	EntityType string             `dynamodbav:"EntityType"`
	ID         int                `dynamodbav:"id"`
	Name       string             `dynamodbav:"name"`
	Similarity []domain.PeerScore `dynamodbav:"similarity"`
	RunID      string             `dynamodbav:"runId,omitempty"`
	UpdatedAt  string             `dynamodbav:"updatedAt"`
}

func (it similarityItem) toDomain() *domain.SimilarityRecord {
	updated, _ := time.Parse(time.RFC3339, it.UpdatedAt)
	return &domain.SimilarityRecord{
		ID:         it.ID,
		Name:       it.Name,
		Similarity: it.Similarity,
		RunID:      it.RunID,
		UpdatedAt:  updated,
	}
}

// SimilarityStore writes similarity documents in batches and reads them
// back by legislator id.
type SimilarityStore struct {
	client    API
	tableName string
	writer    *batchWriter
	logger    *zap.Logger
}

var (
	_ ports.DocumentStore    = (*SimilarityStore)(nil)
	_ ports.SimilarityReader = (*SimilarityStore)(nil)
)

// NewSimilarityStore creates a SimilarityStore over tableName.
func NewSimilarityStore(client API, tableName string, logger *zap.Logger) *SimilarityStore {
	return &SimilarityStore{
		client:    client,
		tableName: tableName,
		writer:    newBatchWriter(client, tableName, logger),
		logger:    logger,
	}
}

// Connect verifies the table exists.
func (s *SimilarityStore) Connect(ctx context.Context) error {
	if err := describeTable(ctx, s.client, s.tableName); err != nil {
		return err
	}
	s.logger.Info("Connected to DynamoDB similarity table", zap.String("table", s.tableName))
	return nil
}

// Close is a no-op; the SDK client is shared.
func (s *SimilarityStore) Close(context.Context) error { return nil }

// InsertBatch writes records with BatchWriteItem. Existing documents for the
// same legislator are replaced.
func (s *SimilarityStore) InsertBatch(ctx context.Context, records []domain.SimilarityRecord) error {
	if len(records) == 0 {
		return nil
	}
	requests := make([]types.WriteRequest, 0, len(records))
	for _, r := range records {
		av, err := attributevalue.MarshalMap(similarityItem{
			PK:         legislatorPK(r.ID),
			SK:         similaritySK,
			EntityType: entitySimilarity,
			ID:         r.ID,
			Name:       r.Name,
			Similarity: r.Similarity,
			RunID:      r.RunID,
			UpdatedAt:  r.UpdatedAt.UTC().Format(time.RFC3339),
		})
		if err != nil {
			return apperrors.NewInternalError(fmt.Sprintf("failed to marshal similarity for %d", r.ID)).WithCause(err)
		}
		requests = append(requests, types.WriteRequest{PutRequest: &types.PutRequest{Item: av}})
	}

	if err := s.writer.write(ctx, requests); err != nil {
		return err
	}
	s.logger.Debug("Inserted similarity batch", zap.Int("records", len(records)))
	return nil
}

// GetSimilarity reads one legislator's document.
func (s *SimilarityStore) GetSimilarity(ctx context.Context, legislatorID int) (*domain.SimilarityRecord, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: legislatorPK(legislatorID)},
			"SK": &types.AttributeValueMemberS{Value: similaritySK},
		},
	})
	if err != nil {
		return nil, apperrors.NewDatabaseError("get similarity", err)
	}
	if len(out.Item) == 0 {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("similarity for legislator %d", legislatorID))
	}

	var item similarityItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, apperrors.NewInternalError("failed to unmarshal similarity").WithCause(err)
	}
	return item.toDomain(), nil
}
