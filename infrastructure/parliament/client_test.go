package parliament

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"mpgraph/application/pipeline"
	apperrors "mpgraph/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const membersPage = `{
  "items": [
    {"value": {
      "id": 172,
      "nameListAs": "Abbott, Ms Diane",
      "nameDisplayAs": "Ms Diane Abbott",
      "nameFullTitle": "Rt Hon Diane Abbott MP",
      "latestParty": {"id": 8, "name": "Independent", "abbreviation": "Ind"},
      "gender": "F",
      "latestHouseMembership": {
        "membershipFrom": "Hackney North and Stoke Newington",
        "membershipFromId": 3488,
        "house": 1,
        "membershipStartDate": "1987-06-11T00:00:00"
      }
    }},
    {"value": {"id": 0, "nameDisplayAs": ""}}
  ],
  "totalResults": 650
}`

const divisionsPage = `[
  {"DivisionId": 1700, "Date": "2024-03-12T00:00:00", "Number": 512, "Title": "Safety of Rwanda Bill", "AyeCount": 312, "NoCount": 250, "IsDeferred": false},
  {"DivisionId": 1699, "Date": "2024-03-11T00:00:00", "Number": 511, "Title": "Finance Bill", "AyeCount": 290, "NoCount": 180, "IsDeferred": true}
]`

const votingPage = `[
  {"MemberId": 172, "MemberVotedAye": false, "MemberWasTeller": false,
   "PublishedDivision": {"DivisionId": 1700, "Date": "2024-03-12T00:00:00", "Title": "Safety of Rwanda Bill", "AyeCount": 312, "NoCount": 250}}
]`

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	cfg := DefaultConfig()
	cfg.MembersURL = srv.URL
	cfg.VotesURL = srv.URL + "/"
	cfg.RateLimit = 1000
	cfg.RateBurst = 100
	return NewClient(cfg, srv.Client(), zap.NewNop())
}

func TestClient_Legislators(t *testing.T) {
	var gotQuery map[string]string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, membersSearchPath, r.URL.Path)
		gotQuery = map[string]string{
			"House":           r.URL.Query().Get("House"),
			"IsCurrentMember": r.URL.Query().Get("IsCurrentMember"),
			"skip":            r.URL.Query().Get("skip"),
			"take":            r.URL.Query().Get("take"),
		}
		_, _ = w.Write([]byte(membersPage))
	})

	got, err := c.Legislators(context.Background(), 50, 25)

	require.NoError(t, err)
	assert.Equal(t, map[string]string{"House": "1", "IsCurrentMember": "true", "skip": "50", "take": "25"}, gotQuery)
	require.Len(t, got, 2, "page is returned as served")
	assert.Error(t, got[1].Validate())
	assert.Equal(t, 172, got[0].ID)
	assert.Equal(t, "Ms Diane Abbott", got[0].Name)
	assert.Equal(t, "Independent", got[0].Party)
	assert.Equal(t, "Hackney North and Stoke Newington", got[0].MembershipFrom)
	assert.Equal(t, "Ind", got[0].Attributes["partyAbbreviation"])
}

func TestClient_Divisions(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, divisionsPath, r.URL.Path)
		assert.Equal(t, "25", r.URL.Query().Get("queryParameters.skip"))
		assert.Equal(t, "25", r.URL.Query().Get("queryParameters.take"))
		_, _ = w.Write([]byte(divisionsPage))
	})

	got, err := c.Divisions(context.Background(), 25, 25)

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 1700, got[0].ID)
	assert.Equal(t, "Safety of Rwanda Bill", got[0].Title)
	assert.Equal(t, time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC), got[0].Date)
	assert.Equal(t, "true", got[1].Attributes["IsDeferred"])
}

func TestClient_MemberVotes(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, memberVotingPath, r.URL.Path)
		assert.Equal(t, "172", r.URL.Query().Get("queryParameters.memberId"))
		assert.Equal(t, "0", r.URL.Query().Get("queryParameters.skip"))
		_, _ = w.Write([]byte(votingPage))
	})

	got, err := c.MemberVotes(context.Background(), 172, 0, 25)

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 172, got[0].LegislatorID)
	assert.False(t, got[0].VotedAye)
	assert.Equal(t, 1700, got[0].Division.ID)
}

func TestClient_EmptyPage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	})

	got, err := c.Divisions(context.Background(), 5000, 25)

	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestClient_Errors(t *testing.T) {
	t.Run("non-2xx is an external error", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "upstream exploded", http.StatusBadGateway)
		})

		_, err := c.Divisions(context.Background(), 0, 25)

		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeExternal))
		assert.Contains(t, err.Error(), "502")
	})

	t.Run("malformed body is an external error", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"not":"an array"`))
		})

		_, err := c.Divisions(context.Background(), 0, 25)

		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeExternal))
	})

	t.Run("no retries", func(t *testing.T) {
		var calls int32
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			w.WriteHeader(http.StatusInternalServerError)
		})

		_, err := c.MemberVotes(context.Background(), 1, 0, 25)

		require.Error(t, err)
		assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	})

	t.Run("breaker opens after repeated failures", func(t *testing.T) {
		var calls int32
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			w.WriteHeader(http.StatusServiceUnavailable)
		})

		for i := 0; i < 5; i++ {
			_, err := c.Divisions(context.Background(), 0, 25)
			require.Error(t, err)
		}
		_, err := c.Divisions(context.Background(), 0, 25)

		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeUnavailable))
		assert.Equal(t, int32(5), atomic.LoadInt32(&calls))
	})

	t.Run("cancelled context", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`[]`))
		})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := c.Divisions(ctx, 0, 25)

		assert.Error(t, err)
	})
}

func TestClient_LegislatorsPaginateOverMalformedMember(t *testing.T) {
	const total = 45
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		skip, _ := strconv.Atoi(r.URL.Query().Get("skip"))
		take, _ := strconv.Atoi(r.URL.Query().Get("take"))

		items := []map[string]any{}
		for id := skip + 1; id <= total && id <= skip+take; id++ {
			name := "MP " + strconv.Itoa(id)
			if id == 3 {
				name = ""
			}
			items = append(items, map[string]any{"value": map[string]any{"id": id, "nameDisplayAs": name}})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"items": items, "totalResults": total})
	})

	got, stats, err := pipeline.Paginate(context.Background(), c.Legislators,
		pipeline.PageOptions{PageSize: 20, FullPage: 20, MaxPages: 30})

	require.NoError(t, err)
	assert.Equal(t, 3, stats.Pages)
	assert.True(t, stats.Exhausted)
	assert.Len(t, got, total)
}
