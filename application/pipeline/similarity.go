package pipeline

import (
	"context"
	"fmt"
	"time"

	"mpgraph/application/ports"
	"mpgraph/domain"

	"go.uber.org/zap"
)

// DefaultBatchSize is the number of similarity records per document store
// insert.
const DefaultBatchSize = 10

// batch is a bounded buffer of similarity records.
type batch struct {
	limit   int
	records []domain.SimilarityRecord
}

func newBatch(limit int) *batch {
	return &batch{limit: limit, records: make([]domain.SimilarityRecord, 0, limit)}
}

// add appends r and reports whether the batch is now full.
func (b *batch) add(r domain.SimilarityRecord) bool {
	b.records = append(b.records, r)
	return len(b.records) >= b.limit
}

// drain returns the buffered records and empties the batch.
func (b *batch) drain() []domain.SimilarityRecord {
	out := b.records
	b.records = make([]domain.SimilarityRecord, 0, b.limit)
	return out
}

func (b *batch) len() int { return len(b.records) }

// ExportResult is the output of a similarity export.
type ExportResult struct {
	Records int
	Batches int
	// Empty counts legislators whose query returned no peers.
	Empty int
}

// SimilarityExporter queries the graph store for each legislator's peers and
// streams the results into the document store in bounded batches.
type SimilarityExporter struct {
	graph     ports.GraphStore
	docs      ports.DocumentStore
	logger    *zap.Logger
	recorder  Recorder
	batchSize int
	now       func() time.Time
}

// NewSimilarityExporter creates a SimilarityExporter. batchSize <= 0 uses
// DefaultBatchSize.
func NewSimilarityExporter(graph ports.GraphStore, docs ports.DocumentStore, batchSize int, logger *zap.Logger) *SimilarityExporter {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &SimilarityExporter{
		graph:     graph,
		docs:      docs,
		logger:    logger,
		recorder:  nopRecorder{},
		batchSize: batchSize,
		now:       time.Now,
	}
}

// Run exports similarity for legislators in order. A legislator with no
// peers takes no slot in a batch.
func (e *SimilarityExporter) Run(ctx context.Context, legislators []domain.Legislator, runID string) (*ExportResult, error) {
	result := &ExportResult{}
	buf := newBatch(e.batchSize)

	for _, l := range legislators {
		peers, err := e.graph.QuerySimilarity(ctx, l.Name)
		if err != nil {
			return result, fmt.Errorf("query similarity for %q: %w", l.Name, err)
		}
		if len(peers) == 0 {
			result.Empty++
			continue
		}

		record := domain.NewSimilarityRecord(l, peers, runID, e.now().UTC())
		if buf.add(record) {
			if err := e.flush(ctx, buf, result); err != nil {
				return result, err
			}
		}
	}

	if buf.len() > 0 {
		if err := e.flush(ctx, buf, result); err != nil {
			return result, err
		}
	}

	e.logger.Debug("Exported similarities",
		zap.Int("records", result.Records),
		zap.Int("batches", result.Batches),
		zap.Int("empty", result.Empty),
	)
	return result, nil
}

func (e *SimilarityExporter) flush(ctx context.Context, buf *batch, result *ExportResult) error {
	records := buf.drain()
	if err := e.docs.InsertBatch(ctx, records); err != nil {
		return fmt.Errorf("insert similarity batch %d: %w", result.Batches+1, err)
	}
	result.Batches++
	result.Records += len(records)
	e.recorder.BatchFlushed(len(records))
	e.logger.Debug("Flushed similarity batch",
		zap.Int("batch", result.Batches),
		zap.Int("size", len(records)),
	)
	return nil
}
