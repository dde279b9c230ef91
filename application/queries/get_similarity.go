// Package queries holds the read-side queries served by the HTTP API.
package queries

import (
	"time"

	"mpgraph/domain"
	apperrors "mpgraph/pkg/errors"
)

// GetSimilarityQuery represents a query for one legislator's similarity document
type GetSimilarityQuery struct {
	LegislatorID int
}

// Validate validates the GetSimilarityQuery
func (q GetSimilarityQuery) Validate() error {
	if q.LegislatorID <= 0 {
		return apperrors.NewValidationError("legislator id must be a positive integer")
	}
	return nil
}

// GetSimilarityResult is the read model returned by the API
type GetSimilarityResult struct {
	ID         int         `json:"id"`
	Name       string      `json:"name"`
	Similarity []PeerScore `json:"similarity"`
	RunID      string      `json:"runId,omitempty"`
	UpdatedAt  string      `json:"updatedAt,omitempty"`
}

// PeerScore is one similar legislator
type PeerScore struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// formatTime renders zero times as empty
func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// NewGetSimilarityResult maps a stored record to the read model
func NewGetSimilarityResult(r *domain.SimilarityRecord) *GetSimilarityResult {
	peers := make([]PeerScore, 0, len(r.Similarity))
	for _, p := range r.Similarity {
		peers = append(peers, PeerScore{Name: p.Name, Score: p.Score})
	}
	return &GetSimilarityResult{
		ID:         r.ID,
		Name:       r.Name,
		Similarity: peers,
		RunID:      r.RunID,
		UpdatedAt:  formatTime(r.UpdatedAt),
	}
}
