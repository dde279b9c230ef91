package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"mpgraph/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLegislatorIngestor_Run(t *testing.T) {
	t.Run("stops after short page", func(t *testing.T) {
		src := &fakeSource{legislatorPages: [][]domain.Legislator{
			makeLegislators(1, 25),
			makeLegislators(26, 25),
			makeLegislators(51, 10),
		}}
		graph := newFakeGraph()
		paging := PageOptions{MaxPages: 5, PageSize: 25, FullPage: 20}

		res, err := NewLegislatorIngestor(src, graph, paging, zap.NewNop()).Run(context.Background())

		require.NoError(t, err)
		assert.Len(t, res.Legislators, 60)
		assert.Equal(t, 60, res.GraphWrites)
		assert.Equal(t, 3, res.Pages)
		assert.Equal(t, 3, src.legislatorCalls)
	})

	t.Run("malformed member does not end pagination", func(t *testing.T) {
		first := makeLegislators(1, 20)
		first[2].Name = ""
		src := &fakeSource{legislatorPages: [][]domain.Legislator{
			first,
			makeLegislators(21, 20),
			makeLegislators(41, 5),
		}}
		graph := newFakeGraph()
		rec := newCountingRecorder()
		ing := NewLegislatorIngestor(src, graph, PageOptions{MaxPages: 30, PageSize: 20, FullPage: 20}, zap.NewNop())
		ing.recorder = rec

		res, err := ing.Run(context.Background())

		require.NoError(t, err)
		assert.Equal(t, 3, src.legislatorCalls)
		assert.Len(t, res.Legislators, 44)
		assert.Equal(t, 44, res.GraphWrites)
		assert.Equal(t, 1, res.Dropped)
		assert.Equal(t, 1, rec.invalid)
		assert.NotContains(t, graph.callsWithPrefix("legislator:"), "legislator:3")
	})

	t.Run("upserts in fetch order", func(t *testing.T) {
		src := &fakeSource{legislatorPages: [][]domain.Legislator{
			{{ID: 9, Name: "Nine"}, {ID: 3, Name: "Three"}},
		}}
		graph := newFakeGraph()

		_, err := NewLegislatorIngestor(src, graph, PageOptions{PageSize: 25, FullPage: 20}, zap.NewNop()).Run(context.Background())

		require.NoError(t, err)
		assert.Equal(t, []string{"legislator:9", "legislator:3"}, graph.callsWithPrefix("legislator:"))
	})

	t.Run("write failure aborts", func(t *testing.T) {
		src := &fakeSource{legislatorPages: [][]domain.Legislator{makeLegislators(1, 3)}}
		graph := newFakeGraph()
		graph.failOn = "legislator:2"
		graph.failErr = errors.New("write refused")

		res, err := NewLegislatorIngestor(src, graph, PageOptions{PageSize: 25}, zap.NewNop()).Run(context.Background())

		require.Error(t, err)
		assert.ErrorIs(t, err, graph.failErr)
		assert.Equal(t, 1, res.GraphWrites)
	})
}

func TestDivisionIngestor_Run(t *testing.T) {
	t.Run("keeps duplicates", func(t *testing.T) {
		first := makeDivisions(1, 25)
		src := &fakeSource{divisionPages: [][]domain.Division{first, {first[0], {ID: 40}}}}
		graph := newFakeGraph()

		res, err := NewDivisionIngestor(src, graph, PageOptions{}, zap.NewNop()).Run(context.Background())

		require.NoError(t, err)
		assert.Len(t, res.Divisions, 27)
		assert.Equal(t, 27, res.GraphWrites)
		assert.Len(t, graph.divisions, 26)
	})

	t.Run("page ceiling bounds the loop", func(t *testing.T) {
		pages := make([][]domain.Division, 10)
		for i := range pages {
			pages[i] = makeDivisions(i*25+1, 25)
		}
		src := &fakeSource{divisionPages: pages}

		res, err := NewDivisionIngestor(src, newFakeGraph(), PageOptions{MaxPages: 4}, zap.NewNop()).Run(context.Background())

		require.NoError(t, err)
		assert.Equal(t, 4, res.Pages)
		assert.Len(t, res.Divisions, 100)
	})
}

func TestVoteLinker_Run(t *testing.T) {
	t.Run("drops votes on unknown divisions", func(t *testing.T) {
		known := domain.NewDivisionSet(makeDivisions(1, 25))
		ids := make([]int, 0, 30)
		for i := 1; i <= 25; i++ {
			ids = append(ids, i)
		}
		ids = append(ids, 101, 102, 103, 104, 105)
		src := &fakeSource{votes: map[int][]domain.MemberVote{7: makeVotes(7, ids...)}}
		graph := newFakeGraph()
		legislators := []domain.Legislator{{ID: 7, Name: "Seven"}}

		res, err := NewVoteLinker(src, graph, PageOptions{}, zap.NewNop()).Run(context.Background(), legislators, known)

		require.NoError(t, err)
		assert.Equal(t, 25, res.Edges)
		assert.Equal(t, 5, res.DroppedVotes)
		assert.Equal(t, map[int]int{7: 5}, res.DroppedByLegislator)
		assert.Equal(t, []int{0, 25}, src.voteOffsets[7])
		for key := range graph.edges {
			assert.True(t, known.Contains(key[1]), "edge to unknown division %d", key[1])
		}
	})

	t.Run("offset restarts per legislator", func(t *testing.T) {
		known := domain.NewDivisionSet(makeDivisions(1, 50))
		src := &fakeSource{votes: map[int][]domain.MemberVote{
			1: makeVotes(1, seq(1, 26)...),
			2: makeVotes(2, seq(1, 3)...),
		}}
		legislators := makeLegislators(1, 2)

		res, err := NewVoteLinker(src, newFakeGraph(), PageOptions{}, zap.NewNop()).Run(context.Background(), legislators, known)

		require.NoError(t, err)
		assert.Equal(t, 29, res.Edges)
		assert.Equal(t, []int{0, 25}, src.voteOffsets[1])
		assert.Equal(t, []int{0}, src.voteOffsets[2])
	})

	t.Run("edges follow legislator then filter order", func(t *testing.T) {
		known := domain.NewDivisionSet(makeDivisions(1, 10))
		src := &fakeSource{votes: map[int][]domain.MemberVote{
			1: makeVotes(1, 3, 99, 1),
			2: makeVotes(2, 2),
		}}
		graph := newFakeGraph()

		_, err := NewVoteLinker(src, graph, PageOptions{}, zap.NewNop()).Run(context.Background(), makeLegislators(1, 2), known)

		require.NoError(t, err)
		assert.Equal(t, []string{"edge:1:3", "edge:1:1", "edge:2:2"}, graph.callsWithPrefix("edge:"))
	})

	t.Run("fetch failure aborts", func(t *testing.T) {
		src := &fakeSource{voteErr: errors.New("timeout")}

		_, err := NewVoteLinker(src, newFakeGraph(), PageOptions{}, zap.NewNop()).Run(context.Background(), makeLegislators(1, 1), domain.DivisionSet{})

		require.Error(t, err)
		assert.ErrorIs(t, err, src.voteErr)
	})
}

func TestSimilarityExporter_Run(t *testing.T) {
	peers := []domain.SimilarPeer{{Name: "Peer", ID: 900, Score: 0.75}}

	t.Run("flushes full batches and the remainder", func(t *testing.T) {
		graph := newFakeGraph()
		var legislators []domain.Legislator
		for i := 1; i <= 30; i++ {
			l := domain.Legislator{ID: i, Name: fmt.Sprintf("MP %d", i)}
			legislators = append(legislators, l)
			// every fourth legislator has no peers: 7 empty, 23 with results
			if i%4 != 0 {
				graph.similar[l.Name] = peers
			}
		}
		docs := &fakeDocs{}
		rec := newCountingRecorder()
		exp := NewSimilarityExporter(graph, docs, 10, zap.NewNop())
		exp.recorder = rec

		res, err := exp.Run(context.Background(), legislators, "run-1")

		require.NoError(t, err)
		assert.Equal(t, []int{10, 10, 3}, docs.sizes())
		assert.Equal(t, 23, res.Records)
		assert.Equal(t, 3, res.Batches)
		assert.Equal(t, 7, res.Empty)
		assert.Equal(t, []int{10, 10, 3}, rec.flushes)

		seen := make(map[int]int)
		for _, b := range docs.batches {
			for _, r := range b {
				seen[r.ID]++
				assert.Equal(t, "run-1", r.RunID)
			}
		}
		assert.Len(t, seen, 23)
		for id, n := range seen {
			assert.Equal(t, 1, n, "legislator %d flushed more than once", id)
		}
	})

	t.Run("exact multiple has no empty flush", func(t *testing.T) {
		graph := newFakeGraph()
		legislators := makeLegislators(1, 20)
		for _, l := range legislators {
			graph.similar[l.Name] = peers
		}
		docs := &fakeDocs{}

		_, err := NewSimilarityExporter(graph, docs, 10, zap.NewNop()).Run(context.Background(), legislators, "run")

		require.NoError(t, err)
		assert.Equal(t, []int{10, 10}, docs.sizes())
	})

	t.Run("no results means no flush", func(t *testing.T) {
		docs := &fakeDocs{}

		res, err := NewSimilarityExporter(newFakeGraph(), docs, 10, zap.NewNop()).Run(context.Background(), makeLegislators(1, 5), "run")

		require.NoError(t, err)
		assert.Empty(t, docs.batches)
		assert.Equal(t, 5, res.Empty)
	})

	t.Run("record keeps peer order", func(t *testing.T) {
		graph := newFakeGraph()
		graph.similar["MP 1"] = []domain.SimilarPeer{{Name: "B", Score: 0.9}, {Name: "A", Score: 0.4}}
		docs := &fakeDocs{}

		_, err := NewSimilarityExporter(graph, docs, 10, zap.NewNop()).Run(context.Background(), makeLegislators(1, 1), "run")

		require.NoError(t, err)
		require.Len(t, docs.batches, 1)
		rec := docs.batches[0][0]
		assert.Equal(t, 1, rec.ID)
		assert.Equal(t, "MP 1", rec.Name)
		assert.Equal(t, []domain.PeerScore{{Name: "B", Score: 0.9}, {Name: "A", Score: 0.4}}, rec.Similarity)
	})

	t.Run("insert failure aborts", func(t *testing.T) {
		graph := newFakeGraph()
		graph.similar["MP 1"] = peers
		docs := &fakeDocs{insertErr: errors.New("throttled")}

		_, err := NewSimilarityExporter(graph, docs, 1, zap.NewNop()).Run(context.Background(), makeLegislators(1, 1), "run")

		require.Error(t, err)
		assert.ErrorIs(t, err, docs.insertErr)
	})
}

func seq(from, n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = from + i
	}
	return out
}
