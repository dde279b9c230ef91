package services

import (
	"testing"

	"mpgraph/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildProjection() *VotingProjection {
	p := NewVotingProjection()
	p.AddLegislator(1, "Alice")
	p.AddLegislator(2, "Bob")
	p.AddLegislator(3, "Carol")
	p.AddLegislator(4, "Dave")

	// Alice and Bob agree on everything, Carol disagrees on one division,
	// Dave never voted.
	for _, div := range []int{100, 101, 102} {
		p.AddVote(domain.VotedFor{LegislatorID: 1, DivisionID: div, VotedAye: true})
		p.AddVote(domain.VotedFor{LegislatorID: 2, DivisionID: div, VotedAye: true})
	}
	p.AddVote(domain.VotedFor{LegislatorID: 3, DivisionID: 100, VotedAye: true})
	p.AddVote(domain.VotedFor{LegislatorID: 3, DivisionID: 101, VotedAye: false})
	return p
}

func TestVotingProjection_MostSimilar(t *testing.T) {
	p := buildProjection()

	peers := p.MostSimilar("Alice", 10)
	require.Len(t, peers, 2)

	assert.Equal(t, "Bob", peers[0].Name)
	assert.Equal(t, 2, peers[0].ID)
	assert.InDelta(t, 1.0, peers[0].Score, 1e-9)

	// min: 1 + 1 + 0 = 2, max: 1 + 2 + 1 = 4
	assert.Equal(t, "Carol", peers[1].Name)
	assert.InDelta(t, 0.5, peers[1].Score, 1e-9)
}

func TestVotingProjection_EmptyResults(t *testing.T) {
	p := buildProjection()

	t.Run("unknown name", func(t *testing.T) {
		assert.Empty(t, p.MostSimilar("Nobody", 5))
	})

	t.Run("isolated legislator", func(t *testing.T) {
		assert.Empty(t, p.MostSimilar("Dave", 5))
	})
}

func TestVotingProjection_TopK(t *testing.T) {
	p := buildProjection()

	peers := p.MostSimilar("Alice", 1)
	require.Len(t, peers, 1)
	assert.Equal(t, "Bob", peers[0].Name)

	assert.Len(t, p.MostSimilar("Alice", 0), 2)
}

func TestVotingProjection_Counts(t *testing.T) {
	p := buildProjection()

	// Upserting an existing edge does not add a vote.
	p.AddVote(domain.VotedFor{LegislatorID: 1, DivisionID: 100, VotedAye: false})

	assert.Equal(t, 4, p.Legislators())
	assert.Equal(t, 8, p.Votes())
}
