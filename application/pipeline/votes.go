package pipeline

import (
	"context"
	"fmt"

	"mpgraph/application/ports"
	"mpgraph/domain"

	"go.uber.org/zap"
)

// VotePageSize is the page size the votes API serves member votes in.
const VotePageSize = 25

// LinkResult is the output of a vote link.
type LinkResult struct {
	Edges        int
	DroppedVotes int
	// DroppedByLegislator holds only legislators with at least one dropped vote.
	DroppedByLegislator map[int]int
}

// VoteLinker walks each legislator's voting history and writes one VotedFor
// edge per vote on a known division.
type VoteLinker struct {
	source   ports.VoteSource
	graph    ports.GraphStore
	logger   *zap.Logger
	recorder Recorder
	paging   PageOptions
}

// NewVoteLinker creates a VoteLinker. A zero PageOptions falls back to
// VotePageSize pages and the default page ceiling.
func NewVoteLinker(source ports.VoteSource, graph ports.GraphStore, paging PageOptions, logger *zap.Logger) *VoteLinker {
	if paging.PageSize <= 0 {
		paging.PageSize = VotePageSize
	}
	return &VoteLinker{
		source:   source,
		graph:    graph,
		logger:   logger,
		recorder: nopRecorder{},
		paging:   paging,
	}
}

// Run links every legislator in order. known is built once from the
// ingested divisions; votes on any other division are dropped.
func (v *VoteLinker) Run(ctx context.Context, legislators []domain.Legislator, known domain.DivisionSet) (*LinkResult, error) {
	result := &LinkResult{DroppedByLegislator: make(map[int]int)}

	for idx, l := range legislators {
		edges, dropped, err := v.collect(ctx, l, known)
		if err != nil {
			return result, err
		}
		if dropped > 0 {
			result.DroppedByLegislator[l.ID] = dropped
			result.DroppedVotes += dropped
			v.recorder.VotesDropped(dropped)
		}

		v.logger.Debug("Creating relationships for MP",
			zap.Int("index", idx),
			zap.String("name", l.Name),
			zap.Int("votes", len(edges)),
			zap.Int("dropped", dropped),
		)

		written := 0
		for _, e := range edges {
			if err := v.graph.UpsertVotedFor(ctx, e); err != nil {
				v.recorder.EdgesUpserted(written)
				result.Edges += written
				return result, fmt.Errorf("upsert vote %d->%d: %w", e.LegislatorID, e.DivisionID, err)
			}
			written++
		}
		result.Edges += written
		v.recorder.EdgesUpserted(written)
	}

	v.logger.Debug("Created relationships in graph",
		zap.Int("edges", result.Edges),
		zap.Int("dropped_votes", result.DroppedVotes),
	)
	return result, nil
}

// collect pages through one legislator's votes, offset starting at zero,
// and keeps the votes whose division is known.
func (v *VoteLinker) collect(ctx context.Context, l domain.Legislator, known domain.DivisionSet) ([]domain.VotedFor, int, error) {
	fetch := func(ctx context.Context, offset, limit int) ([]domain.MemberVote, error) {
		return v.source.MemberVotes(ctx, l.ID, offset, limit)
	}
	votes, stats, err := Paginate(ctx, fetch, v.paging)
	if err != nil {
		return nil, 0, fmt.Errorf("fetch votes for legislator %d: %w", l.ID, err)
	}
	if !stats.Exhausted {
		v.logger.Warn("Vote pagination hit page ceiling",
			zap.Int("legislator_id", l.ID),
			zap.Int("pages", stats.Pages),
		)
	}

	edges := make([]domain.VotedFor, 0, len(votes))
	dropped := 0
	for _, mv := range votes {
		if !known.Contains(mv.Division.ID) {
			dropped++
			continue
		}
		edges = append(edges, domain.VotedFor{
			LegislatorID: l.ID,
			DivisionID:   mv.Division.ID,
			VotedAye:     mv.VotedAye,
		})
	}
	return edges, dropped, nil
}
