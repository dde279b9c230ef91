package pipeline

import "time"

// Stage names used in logs, metrics and spans.
const (
	StageDivisions   = "divisions"
	StageLegislators = "legislators"
	StageVotes       = "relationships"
	StageProjection  = "projection"
	StageSimilarity  = "similarities"
)

// Recorder receives pipeline counters. observability.Metrics implements it.
type Recorder interface {
	StageCompleted(stage string, duration time.Duration, err error)
	NodesUpserted(kind string, n int)
	EdgesUpserted(n int)
	VotesDropped(n int)
	LegislatorsDropped(n int)
	BatchFlushed(size int)
}

type nopRecorder struct{}

func (nopRecorder) StageCompleted(string, time.Duration, error) {}
func (nopRecorder) NodesUpserted(string, int)                   {}
func (nopRecorder) EdgesUpserted(int)                           {}
func (nopRecorder) VotesDropped(int)                            {}
func (nopRecorder) LegislatorsDropped(int)                      {}
func (nopRecorder) BatchFlushed(int)                            {}
