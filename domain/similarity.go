package domain

import "time"

// SimilarPeer is one row returned by a graph store similarity query.
type SimilarPeer struct {
	Name  string
	ID    int
	Score float64
}

// PeerScore is the persisted form of a similar peer.
type PeerScore struct {
	Name  string  `json:"name" dynamodbav:"name"`
	Score float64 `json:"score" dynamodbav:"score"`
}

// SimilarityRecord is the document written for each legislator that has
// similar peers.
type SimilarityRecord struct {
	ID         int         `json:"id" dynamodbav:"id"`
	Name       string      `json:"name" dynamodbav:"name"`
	Similarity []PeerScore `json:"similarity" dynamodbav:"similarity"`
	RunID      string      `json:"runId,omitempty" dynamodbav:"runId,omitempty"`
	UpdatedAt  time.Time   `json:"updatedAt" dynamodbav:"updatedAt"`
}

// NewSimilarityRecord builds a record from query results, keeping the order
// the store returned them in.
func NewSimilarityRecord(l Legislator, peers []SimilarPeer, runID string, at time.Time) SimilarityRecord {
	scores := make([]PeerScore, 0, len(peers))
	for _, p := range peers {
		scores = append(scores, PeerScore{Name: p.Name, Score: p.Score})
	}
	return SimilarityRecord{
		ID:         l.ID,
		Name:       l.Name,
		Similarity: scores,
		RunID:      runID,
		UpdatedAt:  at.UTC(),
	}
}
