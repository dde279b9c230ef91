package pipeline

import (
	"context"
	"fmt"

	"mpgraph/application/ports"
	"mpgraph/domain"

	"go.uber.org/zap"
)

// LegislatorResult is the output of a legislator ingest.
type LegislatorResult struct {
	Legislators []domain.Legislator
	GraphWrites int
	Pages       int
	// Dropped counts members that failed validation.
	Dropped int
}

// LegislatorIngestor pulls current members into memory and writes each one
// to the graph as a node.
type LegislatorIngestor struct {
	source   ports.LegislatorSource
	graph    ports.GraphStore
	logger   *zap.Logger
	recorder Recorder
	paging   PageOptions
}

// NewLegislatorIngestor creates a LegislatorIngestor. paging carries the
// run-configured loop count (MaxPages), page size, stride and the short page
// threshold (FullPage).
func NewLegislatorIngestor(source ports.LegislatorSource, graph ports.GraphStore, paging PageOptions, logger *zap.Logger) *LegislatorIngestor {
	return &LegislatorIngestor{
		source:   source,
		graph:    graph,
		logger:   logger,
		recorder: nopRecorder{},
		paging:   paging,
	}
}

// Run fetches legislators then upserts them in fetch order. Invalid members
// are dropped after pagination so they never shorten a page.
func (i *LegislatorIngestor) Run(ctx context.Context) (*LegislatorResult, error) {
	fetched, stats, err := Paginate(ctx, i.source.Legislators, i.paging)
	if err != nil {
		return nil, fmt.Errorf("fetch legislators: %w", err)
	}

	result := &LegislatorResult{Pages: stats.Pages}
	legislators := make([]domain.Legislator, 0, len(fetched))
	for _, l := range fetched {
		if err := l.Validate(); err != nil {
			i.logger.Warn("Skipping malformed member", zap.Int("id", l.ID), zap.Error(err))
			result.Dropped++
			continue
		}
		legislators = append(legislators, l)
	}
	if result.Dropped > 0 {
		i.recorder.LegislatorsDropped(result.Dropped)
	}
	result.Legislators = legislators

	i.logger.Debug("Created MPs in memory",
		zap.Int("count", len(legislators)),
		zap.Int("dropped", result.Dropped),
		zap.Int("pages", stats.Pages),
		zap.Bool("exhausted", stats.Exhausted),
	)

	for _, l := range legislators {
		if err := i.graph.UpsertLegislator(ctx, l); err != nil {
			i.recorder.NodesUpserted("legislator", result.GraphWrites)
			return result, fmt.Errorf("upsert legislator %d: %w", l.ID, err)
		}
		result.GraphWrites++
	}
	i.recorder.NodesUpserted("legislator", result.GraphWrites)

	i.logger.Debug("Created MPs in graph", zap.Int("count", result.GraphWrites))
	return result, nil
}
