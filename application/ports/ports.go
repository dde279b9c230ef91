// Package ports declares the collaborators the sync pipeline depends on.
// Adapters live under infrastructure/.
package ports

import (
	"context"

	"mpgraph/domain"
)

// LegislatorSource pages through current members.
type LegislatorSource interface {
	Legislators(ctx context.Context, offset, limit int) ([]domain.Legislator, error)
}

// DivisionSource pages through recorded divisions.
type DivisionSource interface {
	Divisions(ctx context.Context, offset, limit int) ([]domain.Division, error)
}

// VoteSource pages through a single legislator's voting history.
type VoteSource interface {
	MemberVotes(ctx context.Context, legislatorID, offset, limit int) ([]domain.MemberVote, error)
}

// DataSource is the full inbound API surface.
type DataSource interface {
	LegislatorSource
	DivisionSource
	VoteSource
}

// GraphStore persists legislators, divisions and vote edges and exposes the
// store's similarity capability.
type GraphStore interface {
	// Connect acquires the store connection for the run.
	Connect(ctx context.Context) error

	// Close releases the connection acquired by Connect.
	Close(ctx context.Context) error

	// UpsertLegislator creates or updates a legislator node.
	UpsertLegislator(ctx context.Context, l domain.Legislator) error

	// UpsertDivision creates or updates a division node.
	UpsertDivision(ctx context.Context, d domain.Division) error

	// UpsertVotedFor creates or updates the edge between a legislator and a
	// division. Both nodes must already exist.
	UpsertVotedFor(ctx context.Context, v domain.VotedFor) error

	// PrepareSimilarityProjection builds whatever the similarity query runs
	// against. Called once after the graph is populated.
	PrepareSimilarityProjection(ctx context.Context) error

	// QuerySimilarity returns the peers most similar to the named
	// legislator. No rows means the legislator has no graph presence.
	QuerySimilarity(ctx context.Context, name string) ([]domain.SimilarPeer, error)
}

// DocumentStore receives flushed similarity batches.
type DocumentStore interface {
	Connect(ctx context.Context) error
	InsertBatch(ctx context.Context, records []domain.SimilarityRecord) error
	Close(ctx context.Context) error
}

// SimilarityReader is the read side of the document store.
type SimilarityReader interface {
	GetSimilarity(ctx context.Context, legislatorID int) (*domain.SimilarityRecord, error)
}

// SyncSummary is published when a run completes.
type SyncSummary struct {
	RunID              string         `json:"run_id"`
	Divisions          int            `json:"divisions"`
	Legislators        int            `json:"legislators"`
	Edges              int            `json:"edges"`
	DroppedVotes       int            `json:"dropped_votes"`
	DroppedLegislators int            `json:"dropped_legislators"`
	SimilarityRecords  int            `json:"similarity_records"`
	SimilarityBatches  int            `json:"similarity_batches"`
	StageDurationsMS   map[string]int `json:"stage_durations_ms"`
	CompletedAtRFC3339 string         `json:"completed_at"`
}

// EventPublisher announces pipeline outcomes.
type EventPublisher interface {
	PublishSyncCompleted(ctx context.Context, summary SyncSummary) error
}
