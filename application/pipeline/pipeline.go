// Package pipeline implements the sync run that builds the voting graph and
// exports legislator similarity.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"mpgraph/application/ports"
	"mpgraph/domain"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
)

// Stages toggles the ingest stages. A disabled stage yields an empty
// collection to the stages after it.
type Stages struct {
	Divisions     bool
	Legislators   bool
	Relationships bool
}

// AllStages enables every stage.
func AllStages() Stages {
	return Stages{Divisions: true, Legislators: true, Relationships: true}
}

// Options configures a Pipeline.
type Options struct {
	Stages           Stages
	DivisionPaging   PageOptions
	LegislatorPaging PageOptions
	VotePaging       PageOptions
	BatchSize        int
}

// Pipeline sequences the sync stages in dependency order.
type Pipeline struct {
	source    ports.DataSource
	graph     ports.GraphStore
	docs      ports.DocumentStore
	publisher ports.EventPublisher
	logger    *zap.Logger
	recorder  Recorder
	tracer    trace.Tracer
	opts      Options
	newRunID  func() string
	now       func() time.Time
}

// Option customises a Pipeline.
type Option func(*Pipeline)

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(p *Pipeline) {
		if r != nil {
			p.recorder = r
		}
	}
}

// WithTracer sets the tracer used for stage spans.
func WithTracer(t trace.Tracer) Option {
	return func(p *Pipeline) {
		if t != nil {
			p.tracer = t
		}
	}
}

// WithPublisher sets the completion event publisher.
func WithPublisher(pub ports.EventPublisher) Option {
	return func(p *Pipeline) { p.publisher = pub }
}

// WithRunID fixes the run id generator.
func WithRunID(fn func() string) Option {
	return func(p *Pipeline) { p.newRunID = fn }
}

// NewPipeline creates a Pipeline.
func NewPipeline(source ports.DataSource, graph ports.GraphStore, docs ports.DocumentStore, opts Options, logger *zap.Logger, options ...Option) *Pipeline {
	p := &Pipeline{
		source:   source,
		graph:    graph,
		docs:     docs,
		logger:   logger,
		recorder: nopRecorder{},
		tracer:   noop.NewTracerProvider().Tracer("mpgraph/pipeline"),
		opts:     opts,
		newRunID: func() string { return uuid.New().String() },
		now:      time.Now,
	}
	for _, o := range options {
		o(p)
	}
	return p
}

// Stages reports the enabled stages.
func (p *Pipeline) Stages() Stages {
	return p.opts.Stages
}

// WithStages returns a copy of p that runs the given stages.
func (p *Pipeline) WithStages(s Stages) *Pipeline {
	cp := *p
	cp.opts.Stages = s
	return &cp
}

// Run executes one sync. The graph connection is closed even when a stage
// fails; the stage error is returned.
func (p *Pipeline) Run(ctx context.Context) (summary *ports.SyncSummary, err error) {
	runID := p.newRunID()
	logger := p.logger.With(zap.String("run_id", runID))
	summary = &ports.SyncSummary{RunID: runID, StageDurationsMS: make(map[string]int)}

	ctx, span := p.tracer.Start(ctx, "pipeline.Run", trace.WithAttributes(attribute.String("run_id", runID)))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	lp := p.opts.LegislatorPaging
	logger.Info("Creating Mps", zap.Int("count", lp.MaxPages*lp.PageSize))

	if err := p.graph.Connect(ctx); err != nil {
		return summary, fmt.Errorf("connect graph store: %w", err)
	}
	defer func() {
		if cerr := p.graph.Close(context.WithoutCancel(ctx)); cerr != nil {
			logger.Error("Failed to close graph store", zap.Error(cerr))
			if err == nil {
				err = fmt.Errorf("close graph store: %w", cerr)
			}
		}
	}()

	var divisions []domain.Division
	if p.opts.Stages.Divisions {
		err = p.timed(ctx, logger, summary, StageDivisions, func(ctx context.Context) error {
			ing := NewDivisionIngestor(p.source, p.graph, p.opts.DivisionPaging, logger)
			ing.recorder = p.recorder
			res, err := ing.Run(ctx)
			if res != nil {
				divisions = res.Divisions
				summary.Divisions = res.GraphWrites
			}
			return err
		})
		if err != nil {
			return summary, err
		}
	}

	var legislators []domain.Legislator
	if p.opts.Stages.Legislators {
		err = p.timed(ctx, logger, summary, StageLegislators, func(ctx context.Context) error {
			ing := NewLegislatorIngestor(p.source, p.graph, p.opts.LegislatorPaging, logger)
			ing.recorder = p.recorder
			res, err := ing.Run(ctx)
			if res != nil {
				legislators = res.Legislators
				summary.Legislators = res.GraphWrites
				summary.DroppedLegislators = res.Dropped
			}
			return err
		})
		if err != nil {
			return summary, err
		}
	}

	if p.opts.Stages.Relationships {
		if !p.opts.Stages.Divisions {
			logger.Warn("Linking votes without ingesting divisions; every vote will be dropped",
				zap.String("stage", StageVotes),
			)
		}
		known := domain.NewDivisionSet(divisions)
		err = p.timed(ctx, logger, summary, StageVotes, func(ctx context.Context) error {
			linker := NewVoteLinker(p.source, p.graph, p.opts.VotePaging, logger)
			linker.recorder = p.recorder
			res, err := linker.Run(ctx, legislators, known)
			summary.Edges = res.Edges
			summary.DroppedVotes = res.DroppedVotes
			return err
		})
		if err != nil {
			return summary, err
		}
	}

	err = p.timed(ctx, logger, summary, StageProjection, p.graph.PrepareSimilarityProjection)
	if err != nil {
		return summary, fmt.Errorf("prepare similarity projection: %w", err)
	}

	if err = p.exportSimilarity(ctx, logger, summary, legislators, runID); err != nil {
		return summary, err
	}

	summary.CompletedAtRFC3339 = p.now().UTC().Format(time.RFC3339)
	if p.publisher != nil {
		if perr := p.publisher.PublishSyncCompleted(ctx, *summary); perr != nil {
			return summary, fmt.Errorf("publish sync completed: %w", perr)
		}
	}

	logger.Info("END",
		zap.Int("divisions", summary.Divisions),
		zap.Int("legislators", summary.Legislators),
		zap.Int("edges", summary.Edges),
		zap.Int("dropped_votes", summary.DroppedVotes),
		zap.Int("dropped_legislators", summary.DroppedLegislators),
		zap.Int("similarity_records", summary.SimilarityRecords),
	)
	return summary, nil
}

// exportSimilarity owns the document store connection for the export stage.
func (p *Pipeline) exportSimilarity(ctx context.Context, logger *zap.Logger, summary *ports.SyncSummary, legislators []domain.Legislator, runID string) (err error) {
	if err := p.docs.Connect(ctx); err != nil {
		return fmt.Errorf("connect document store: %w", err)
	}
	defer func() {
		if cerr := p.docs.Close(context.WithoutCancel(ctx)); cerr != nil {
			logger.Error("Failed to close document store", zap.Error(cerr))
			if err == nil {
				err = fmt.Errorf("close document store: %w", cerr)
			}
		}
	}()

	return p.timed(ctx, logger, summary, StageSimilarity, func(ctx context.Context) error {
		exp := NewSimilarityExporter(p.graph, p.docs, p.opts.BatchSize, logger)
		exp.recorder = p.recorder
		exp.now = p.now
		res, err := exp.Run(ctx, legislators, runID)
		summary.SimilarityRecords = res.Records
		summary.SimilarityBatches = res.Batches
		return err
	})
}

// timed runs fn inside a span and records its wall-clock duration.
func (p *Pipeline) timed(ctx context.Context, logger *zap.Logger, summary *ports.SyncSummary, stage string, fn func(context.Context) error) error {
	ctx, span := p.tracer.Start(ctx, "pipeline."+stage, trace.WithAttributes(attribute.String("stage", stage)))
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)

	summary.StageDurationsMS[stage] = int(elapsed.Milliseconds())
	p.recorder.StageCompleted(stage, elapsed, err)
	logger.Info("stage timing", zap.String("stage", stage), zap.Duration("duration", elapsed))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}
