package services

import (
	"sort"

	"mpgraph/domain"
)

// DefaultTopK is the number of peers returned when no limit is given.
const DefaultTopK = 10

// VotingProjection is an in-memory bipartite projection of legislators and
// the divisions they voted in. Graph stores without a native similarity
// algorithm build one of these once per run and query it per legislator.
type VotingProjection struct {
	byName map[string]int
	names  map[int]string
	order  []int
	votes  map[int]map[int]float64
}

// NewVotingProjection creates an empty projection.
func NewVotingProjection() *VotingProjection {
	return &VotingProjection{
		byName: make(map[string]int),
		names:  make(map[int]string),
		votes:  make(map[int]map[int]float64),
	}
}

// AddLegislator registers a legislator node. The first id registered for a
// display name owns that name.
func (p *VotingProjection) AddLegislator(id int, name string) {
	if _, seen := p.names[id]; !seen {
		p.order = append(p.order, id)
	}
	p.names[id] = name
	if _, taken := p.byName[name]; !taken {
		p.byName[name] = id
	}
}

// AddVote registers a vote edge. Re-adding the same pair overwrites it.
func (p *VotingProjection) AddVote(v domain.VotedFor) {
	divisions, ok := p.votes[v.LegislatorID]
	if !ok {
		divisions = make(map[int]float64)
		p.votes[v.LegislatorID] = divisions
	}
	divisions[v.DivisionID] = v.Weight()
}

// Legislators returns the number of registered legislators.
func (p *VotingProjection) Legislators() int {
	return len(p.names)
}

// Votes returns the number of registered vote edges.
func (p *VotingProjection) Votes() int {
	n := 0
	for _, divisions := range p.votes {
		n += len(divisions)
	}
	return n
}

// MostSimilar returns up to topK peers of the named legislator ordered by
// descending weighted Jaccard similarity over their votes. Unknown names,
// legislators without votes and zero scores yield no rows.
func (p *VotingProjection) MostSimilar(name string, topK int) []domain.SimilarPeer {
	if topK <= 0 {
		topK = DefaultTopK
	}
	id, ok := p.byName[name]
	if !ok {
		return nil
	}
	source := p.votes[id]
	if len(source) == 0 {
		return nil
	}

	peers := make([]domain.SimilarPeer, 0)
	for _, other := range p.order {
		if other == id {
			continue
		}
		score := weightedJaccard(source, p.votes[other])
		if score <= 0 {
			continue
		}
		peers = append(peers, domain.SimilarPeer{Name: p.names[other], ID: other, Score: score})
	}

	sort.SliceStable(peers, func(i, j int) bool {
		if peers[i].Score != peers[j].Score {
			return peers[i].Score > peers[j].Score
		}
		return peers[i].Name < peers[j].Name
	})
	if len(peers) > topK {
		peers = peers[:topK]
	}
	return peers
}

func weightedJaccard(a, b map[int]float64) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	var num, den float64
	for division, wa := range a {
		wb := b[division]
		num += min(wa, wb)
		den += max(wa, wb)
	}
	for division, wb := range b {
		if _, shared := a[division]; !shared {
			den += wb
		}
	}
	if den == 0 {
		return 0
	}
	return num / den
}
