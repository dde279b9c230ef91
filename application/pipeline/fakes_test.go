package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"mpgraph/application/ports"
	"mpgraph/domain"

	"github.com/stretchr/testify/mock"
)

// fakeSource serves legislators and divisions as fixed pages and member
// votes by slicing each legislator's full history.
type fakeSource struct {
	legislatorPages [][]domain.Legislator
	divisionPages   [][]domain.Division
	votes           map[int][]domain.MemberVote

	legislatorCalls int
	divisionCalls   int
	voteOffsets     map[int][]int
	voteErr         error
}

func (s *fakeSource) Legislators(_ context.Context, _, _ int) ([]domain.Legislator, error) {
	call := s.legislatorCalls
	s.legislatorCalls++
	if call >= len(s.legislatorPages) {
		return nil, nil
	}
	return s.legislatorPages[call], nil
}

func (s *fakeSource) Divisions(_ context.Context, _, _ int) ([]domain.Division, error) {
	call := s.divisionCalls
	s.divisionCalls++
	if call >= len(s.divisionPages) {
		return nil, nil
	}
	return s.divisionPages[call], nil
}

func (s *fakeSource) MemberVotes(_ context.Context, legislatorID, offset, limit int) ([]domain.MemberVote, error) {
	if s.voteErr != nil {
		return nil, s.voteErr
	}
	if s.voteOffsets == nil {
		s.voteOffsets = make(map[int][]int)
	}
	s.voteOffsets[legislatorID] = append(s.voteOffsets[legislatorID], offset)
	all := s.votes[legislatorID]
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

// fakeGraph is an upsert-semantics graph store that logs every call.
type fakeGraph struct {
	mu sync.Mutex

	calls       []string
	legislators map[int]domain.Legislator
	divisions   map[int]domain.Division
	edges       map[[2]int]domain.VotedFor
	similar     map[string][]domain.SimilarPeer

	failOn  string
	failErr error
}

func newFakeGraph() *fakeGraph {
	return &fakeGraph{
		legislators: make(map[int]domain.Legislator),
		divisions:   make(map[int]domain.Division),
		edges:       make(map[[2]int]domain.VotedFor),
		similar:     make(map[string][]domain.SimilarPeer),
	}
}

func (g *fakeGraph) record(call string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, call)
	if g.failOn != "" && g.failOn == call {
		return g.failErr
	}
	return nil
}

func (g *fakeGraph) Connect(context.Context) error { return g.record("connect") }
func (g *fakeGraph) Close(context.Context) error   { return g.record("close") }

func (g *fakeGraph) UpsertLegislator(_ context.Context, l domain.Legislator) error {
	if err := g.record(fmt.Sprintf("legislator:%d", l.ID)); err != nil {
		return err
	}
	g.legislators[l.ID] = l
	return nil
}

func (g *fakeGraph) UpsertDivision(_ context.Context, d domain.Division) error {
	if err := g.record(fmt.Sprintf("division:%d", d.ID)); err != nil {
		return err
	}
	g.divisions[d.ID] = d
	return nil
}

func (g *fakeGraph) UpsertVotedFor(_ context.Context, v domain.VotedFor) error {
	if err := g.record(fmt.Sprintf("edge:%d:%d", v.LegislatorID, v.DivisionID)); err != nil {
		return err
	}
	g.edges[[2]int{v.LegislatorID, v.DivisionID}] = v
	return nil
}

func (g *fakeGraph) PrepareSimilarityProjection(context.Context) error {
	return g.record("projection")
}

func (g *fakeGraph) QuerySimilarity(_ context.Context, name string) ([]domain.SimilarPeer, error) {
	if err := g.record("similarity:" + name); err != nil {
		return nil, err
	}
	return g.similar[name], nil
}

// callsWithPrefix returns the logged calls starting with prefix, in order.
func (g *fakeGraph) callsWithPrefix(prefix string) []string {
	var out []string
	for _, c := range g.calls {
		if len(c) >= len(prefix) && c[:len(prefix)] == prefix {
			out = append(out, c)
		}
	}
	return out
}

// fakeDocs records every flushed batch.
type fakeDocs struct {
	batches   [][]domain.SimilarityRecord
	connected bool
	closed    bool
	insertErr error
}

func (d *fakeDocs) Connect(context.Context) error {
	d.connected = true
	return nil
}

func (d *fakeDocs) InsertBatch(_ context.Context, records []domain.SimilarityRecord) error {
	if d.insertErr != nil {
		return d.insertErr
	}
	d.batches = append(d.batches, records)
	return nil
}

func (d *fakeDocs) Close(context.Context) error {
	d.closed = true
	return nil
}

func (d *fakeDocs) sizes() []int {
	out := make([]int, 0, len(d.batches))
	for _, b := range d.batches {
		out = append(out, len(b))
	}
	return out
}

// mockPublisher is a testify mock of ports.EventPublisher.
type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishSyncCompleted(ctx context.Context, summary ports.SyncSummary) error {
	args := m.Called(ctx, summary)
	return args.Error(0)
}

// countingRecorder captures Recorder calls.
type countingRecorder struct {
	stages  []string
	nodes   map[string]int
	edges   int
	dropped int
	invalid int
	flushes []int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{nodes: make(map[string]int)}
}

func (r *countingRecorder) StageCompleted(stage string, _ time.Duration, _ error) {
	r.stages = append(r.stages, stage)
}
func (r *countingRecorder) NodesUpserted(kind string, n int) { r.nodes[kind] += n }
func (r *countingRecorder) EdgesUpserted(n int)              { r.edges += n }
func (r *countingRecorder) VotesDropped(n int)               { r.dropped += n }
func (r *countingRecorder) LegislatorsDropped(n int)         { r.invalid += n }
func (r *countingRecorder) BatchFlushed(size int)            { r.flushes = append(r.flushes, size) }

func makeLegislators(start, n int) []domain.Legislator {
	out := make([]domain.Legislator, 0, n)
	for i := 0; i < n; i++ {
		id := start + i
		out = append(out, domain.Legislator{ID: id, Name: fmt.Sprintf("MP %d", id)})
	}
	return out
}

func makeDivisions(start, n int) []domain.Division {
	out := make([]domain.Division, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, domain.Division{ID: start + i, Title: fmt.Sprintf("Division %d", start+i)})
	}
	return out
}

func makeVotes(legislatorID int, divisionIDs ...int) []domain.MemberVote {
	out := make([]domain.MemberVote, 0, len(divisionIDs))
	for i, id := range divisionIDs {
		out = append(out, domain.MemberVote{
			LegislatorID: legislatorID,
			VotedAye:     i%2 == 0,
			Division:     domain.Division{ID: id},
		})
	}
	return out
}
