package pipeline

import (
	"context"
	"fmt"

	"mpgraph/application/ports"
	"mpgraph/domain"

	"go.uber.org/zap"
)

// DivisionPageSize is the page size the votes API serves divisions in.
const DivisionPageSize = 25

// DivisionResult is the output of a division ingest.
type DivisionResult struct {
	Divisions   []domain.Division
	GraphWrites int
	Pages       int
}

// DivisionIngestor pulls every division into memory and writes each one to
// the graph as a node.
type DivisionIngestor struct {
	source   ports.DivisionSource
	graph    ports.GraphStore
	logger   *zap.Logger
	recorder Recorder
	paging   PageOptions
}

// NewDivisionIngestor creates a DivisionIngestor. A zero PageOptions falls
// back to DivisionPageSize pages and the default page ceiling.
func NewDivisionIngestor(source ports.DivisionSource, graph ports.GraphStore, paging PageOptions, logger *zap.Logger) *DivisionIngestor {
	if paging.PageSize <= 0 {
		paging.PageSize = DivisionPageSize
	}
	return &DivisionIngestor{
		source:   source,
		graph:    graph,
		logger:   logger,
		recorder: nopRecorder{},
		paging:   paging,
	}
}

// Run fetches all divisions then upserts them in fetch order. Duplicates
// returned by the source are kept; the graph upsert absorbs them.
func (i *DivisionIngestor) Run(ctx context.Context) (*DivisionResult, error) {
	divisions, stats, err := Paginate(ctx, i.source.Divisions, i.paging)
	if err != nil {
		return nil, fmt.Errorf("fetch divisions: %w", err)
	}
	if !stats.Exhausted {
		i.logger.Warn("Division pagination hit page ceiling",
			zap.Int("pages", stats.Pages),
			zap.Int("max_pages", i.paging.withDefaults().MaxPages),
		)
	}
	i.logger.Debug("Created divisions in memory",
		zap.Int("count", len(divisions)),
		zap.Int("pages", stats.Pages),
	)

	result := &DivisionResult{Divisions: divisions, Pages: stats.Pages}
	for _, d := range divisions {
		if err := i.graph.UpsertDivision(ctx, d); err != nil {
			i.recorder.NodesUpserted("division", result.GraphWrites)
			return result, fmt.Errorf("upsert division %d: %w", d.ID, err)
		}
		result.GraphWrites++
	}
	i.recorder.NodesUpserted("division", result.GraphWrites)

	i.logger.Debug("Created divisions in graph", zap.Int("count", result.GraphWrites))
	return result, nil
}
