package handlers

import (
	"context"

	"mpgraph/application/ports"
	"mpgraph/application/queries"
	apperrors "mpgraph/pkg/errors"

	"go.uber.org/zap"
)

// GetSimilarityHandler handles similarity lookups
type GetSimilarityHandler struct {
	reader ports.SimilarityReader
	logger *zap.Logger
}

// NewGetSimilarityHandler creates a new similarity handler
func NewGetSimilarityHandler(reader ports.SimilarityReader, logger *zap.Logger) *GetSimilarityHandler {
	return &GetSimilarityHandler{
		reader: reader,
		logger: logger,
	}
}

// Handle executes the similarity query
func (h *GetSimilarityHandler) Handle(ctx context.Context, query queries.GetSimilarityQuery) (*queries.GetSimilarityResult, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	record, err := h.reader.GetSimilarity(ctx, query.LegislatorID)
	if err != nil {
		if !apperrors.IsNotFound(err) {
			h.logger.Error("Failed to read similarity",
				zap.Int("legislator_id", query.LegislatorID),
				zap.Error(err),
			)
		}
		return nil, apperrors.Wrapf(err, "get similarity for legislator %d", query.LegislatorID)
	}

	return queries.NewGetSimilarityResult(record), nil
}
