package domain

// MemberVote is one entry of a legislator's voting history as returned by
// the source.
type MemberVote struct {
	LegislatorID int
	VotedAye     bool
	WasTeller    bool
	Division     Division
}

// VotedFor is the edge linking a legislator to a division they voted in.
type VotedFor struct {
	LegislatorID int
	DivisionID   int
	VotedAye     bool
}

// Weight is the edge weight used by the similarity projection. Agreeing
// votes on a division share a weight, disagreeing votes do not.
func (v VotedFor) Weight() float64 {
	if v.VotedAye {
		return 1.0
	}
	return 2.0
}
