// Package domain holds the entities the sync pipeline moves between the
// parliament API, the graph store and the document store.
package domain

import (
	"fmt"
	"strings"
)

// Legislator is a sitting member tracked by the graph.
type Legislator struct {
	ID                  int
	Name                string
	ListName            string
	Party               string
	Gender              string
	MembershipFrom      string
	MembershipStartDate string
	Attributes          map[string]string
}

// Validate checks the fields the graph stores key on.
func (l Legislator) Validate() error {
	if l.ID <= 0 {
		return fmt.Errorf("legislator id must be positive, got %d", l.ID)
	}
	if strings.TrimSpace(l.Name) == "" {
		return fmt.Errorf("legislator %d has no display name", l.ID)
	}
	return nil
}

// Properties flattens the legislator into scalar properties suitable for a
// graph node.
func (l Legislator) Properties() map[string]any {
	props := map[string]any{
		"id":                  l.ID,
		"nameDisplayAs":       l.Name,
		"nameListAs":          l.ListName,
		"party":               l.Party,
		"gender":              l.Gender,
		"membershipFrom":      l.MembershipFrom,
		"membershipStartDate": l.MembershipStartDate,
	}
	for k, v := range l.Attributes {
		if _, taken := props[k]; !taken {
			props[k] = v
		}
	}
	return props
}
