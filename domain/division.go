package domain

import (
	"fmt"
	"time"
)

// Division is a single recorded vote event in the Commons.
type Division struct {
	ID         int
	Title      string
	Date       time.Time
	Number     int
	AyeCount   int
	NoCount    int
	Attributes map[string]string
}

// Validate checks the fields the graph stores key on.
func (d Division) Validate() error {
	if d.ID <= 0 {
		return fmt.Errorf("division id must be positive, got %d", d.ID)
	}
	return nil
}

// Properties flattens the division into scalar graph node properties.
func (d Division) Properties() map[string]any {
	props := map[string]any{
		"DivisionId": d.ID,
		"Title":      d.Title,
		"Number":     d.Number,
		"AyeCount":   d.AyeCount,
		"NoCount":    d.NoCount,
	}
	if !d.Date.IsZero() {
		props["Date"] = d.Date.Format(time.RFC3339)
	}
	for k, v := range d.Attributes {
		if _, taken := props[k]; !taken {
			props[k] = v
		}
	}
	return props
}

// DivisionSet is a membership index over ingested divisions.
type DivisionSet map[int]struct{}

// NewDivisionSet indexes divisions by id. Duplicates collapse.
func NewDivisionSet(divisions []Division) DivisionSet {
	set := make(DivisionSet, len(divisions))
	for _, d := range divisions {
		set[d.ID] = struct{}{}
	}
	return set
}

// Contains reports whether the division id was ingested this run.
func (s DivisionSet) Contains(id int) bool {
	_, ok := s[id]
	return ok
}
