package parliament

import (
	"strconv"
	"strings"
	"time"

	"mpgraph/domain"
)

// apiTimeLayout is the zone-less timestamp format both APIs emit.
const apiTimeLayout = "2006-01-02T15:04:05"

type memberSearchResponse struct {
	Items        []memberItem `json:"items"`
	TotalResults int          `json:"totalResults"`
	Skip         int          `json:"skip"`
	Take         int          `json:"take"`
}

type memberItem struct {
	Value memberValue `json:"value"`
}

type memberValue struct {
	ID                    int             `json:"id"`
	NameListAs            string          `json:"nameListAs"`
	NameDisplayAs         string          `json:"nameDisplayAs"`
	NameFullTitle         string          `json:"nameFullTitle"`
	NameAddressAs         string          `json:"nameAddressAs"`
	LatestParty           party           `json:"latestParty"`
	Gender                string          `json:"gender"`
	LatestHouseMembership houseMembership `json:"latestHouseMembership"`
	ThumbnailURL          string          `json:"thumbnailUrl"`
}

type party struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	Abbreviation string `json:"abbreviation"`
}

type houseMembership struct {
	MembershipFrom      string `json:"membershipFrom"`
	MembershipFromID    int    `json:"membershipFromId"`
	House               int    `json:"house"`
	MembershipStartDate string `json:"membershipStartDate"`
}

func (m memberValue) toDomain() domain.Legislator {
	attrs := make(map[string]string)
	putNonEmpty(attrs, "nameFullTitle", m.NameFullTitle)
	putNonEmpty(attrs, "nameAddressAs", m.NameAddressAs)
	putNonEmpty(attrs, "partyAbbreviation", m.LatestParty.Abbreviation)
	putNonEmpty(attrs, "thumbnailUrl", m.ThumbnailURL)
	if m.LatestHouseMembership.MembershipFromID != 0 {
		attrs["membershipFromId"] = strconv.Itoa(m.LatestHouseMembership.MembershipFromID)
	}

	return domain.Legislator{
		ID:                  m.ID,
		Name:                m.NameDisplayAs,
		ListName:            m.NameListAs,
		Party:               m.LatestParty.Name,
		Gender:              m.Gender,
		MembershipFrom:      m.LatestHouseMembership.MembershipFrom,
		MembershipStartDate: m.LatestHouseMembership.MembershipStartDate,
		Attributes:          attrs,
	}
}

type divisionDTO struct {
	DivisionID         int    `json:"DivisionId"`
	Date               string `json:"Date"`
	PublicationUpdated string `json:"PublicationUpdated"`
	Number             int    `json:"Number"`
	IsDeferred         bool   `json:"IsDeferred"`
	EVELType           string `json:"EVELType"`
	EVELCountry        string `json:"EVELCountry"`
	Title              string `json:"Title"`
	AyeCount           int    `json:"AyeCount"`
	NoCount            int    `json:"NoCount"`
}

func (d divisionDTO) toDomain() domain.Division {
	attrs := make(map[string]string)
	putNonEmpty(attrs, "PublicationUpdated", d.PublicationUpdated)
	putNonEmpty(attrs, "EVELType", d.EVELType)
	putNonEmpty(attrs, "EVELCountry", d.EVELCountry)
	if d.IsDeferred {
		attrs["IsDeferred"] = "true"
	}

	return domain.Division{
		ID:         d.DivisionID,
		Title:      d.Title,
		Date:       parseTime(d.Date),
		Number:     d.Number,
		AyeCount:   d.AyeCount,
		NoCount:    d.NoCount,
		Attributes: attrs,
	}
}

type memberVotingDTO struct {
	MemberID          int         `json:"MemberId"`
	MemberVotedAye    bool        `json:"MemberVotedAye"`
	MemberWasTeller   bool        `json:"MemberWasTeller"`
	PublishedDivision divisionDTO `json:"PublishedDivision"`
}

func (v memberVotingDTO) toDomain(legislatorID int) domain.MemberVote {
	id := v.MemberID
	if id == 0 {
		id = legislatorID
	}
	return domain.MemberVote{
		LegislatorID: id,
		VotedAye:     v.MemberVotedAye,
		WasTeller:    v.MemberWasTeller,
		Division:     v.PublishedDivision.toDomain(),
	}
}

func parseTime(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	if t, err := time.Parse(apiTimeLayout, s); err == nil {
		return t
	}
	return time.Time{}
}

func putNonEmpty(m map[string]string, key, value string) {
	if value != "" {
		m[key] = value
	}
}
