// Package redis implements the similarity document store on Redis.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"mpgraph/application/ports"
	"mpgraph/domain"
	apperrors "mpgraph/pkg/errors"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const defaultKeyPrefix = "similarity"

// SimilarityStore keeps one JSON document per legislator at
// {prefix}:legislator:{id} and the set of stored ids at {prefix}:legislators.
type SimilarityStore struct {
	client *redis.Client
	prefix string
	logger *zap.Logger
}

var (
	_ ports.DocumentStore    = (*SimilarityStore)(nil)
	_ ports.SimilarityReader = (*SimilarityStore)(nil)
)

// NewSimilarityStore creates a SimilarityStore. client is shared across runs
// and is closed by whoever created it.
func NewSimilarityStore(client *redis.Client, prefix string, logger *zap.Logger) *SimilarityStore {
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &SimilarityStore{client: client, prefix: prefix, logger: logger}
}

func (s *SimilarityStore) recordKey(id int) string {
	return s.prefix + ":legislator:" + strconv.Itoa(id)
}

func (s *SimilarityStore) indexKey() string {
	return s.prefix + ":legislators"
}

// Connect pings the server.
func (s *SimilarityStore) Connect(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return apperrors.NewDatabaseError("redis ping", err)
	}
	s.logger.Info("Connected to Redis", zap.String("addr", s.client.Options().Addr))
	return nil
}

// Close ends a run. The client stays open so the next run can Connect again.
func (s *SimilarityStore) Close(context.Context) error {
	return nil
}

// InsertBatch writes every record in one pipeline.
func (s *SimilarityStore) InsertBatch(ctx context.Context, records []domain.SimilarityRecord) error {
	if len(records) == 0 {
		return nil
	}

	pipe := s.client.Pipeline()
	for _, r := range records {
		data, err := json.Marshal(r)
		if err != nil {
			return apperrors.NewInternalError(fmt.Sprintf("failed to marshal similarity for %d", r.ID)).WithCause(err)
		}
		pipe.Set(ctx, s.recordKey(r.ID), data, 0)
		pipe.SAdd(ctx, s.indexKey(), r.ID)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return apperrors.NewDatabaseError("redis insert similarity batch", err)
	}

	s.logger.Debug("Inserted similarity batch", zap.Int("records", len(records)))
	return nil
}

// GetSimilarity reads one legislator's document.
func (s *SimilarityStore) GetSimilarity(ctx context.Context, legislatorID int) (*domain.SimilarityRecord, error) {
	data, err := s.client.Get(ctx, s.recordKey(legislatorID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("similarity for legislator %d", legislatorID))
	}
	if err != nil {
		return nil, apperrors.NewDatabaseError("redis get similarity", err)
	}

	var record domain.SimilarityRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, apperrors.NewInternalError("failed to unmarshal similarity").WithCause(err)
	}
	return &record, nil
}

// Count returns how many legislators have a stored document.
func (s *SimilarityStore) Count(ctx context.Context) (int64, error) {
	n, err := s.client.SCard(ctx, s.indexKey()).Result()
	if err != nil {
		return 0, apperrors.NewDatabaseError("redis count similarity", err)
	}
	return n, nil
}
