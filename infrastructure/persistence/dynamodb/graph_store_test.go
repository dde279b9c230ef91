package dynamodb

import (
	"context"
	"errors"
	"testing"

	"mpgraph/domain"
	apperrors "mpgraph/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func seedGraph(t *testing.T, s *GraphStore) {
	t.Helper()
	ctx := context.Background()
	for _, l := range []domain.Legislator{
		{ID: 1, Name: "Alice"},
		{ID: 2, Name: "Bob"},
		{ID: 3, Name: "Carol"},
	} {
		require.NoError(t, s.UpsertLegislator(ctx, l))
	}
	for id := 10; id <= 13; id++ {
		require.NoError(t, s.UpsertDivision(ctx, domain.Division{ID: id, Title: "D"}))
	}
	votes := []domain.VotedFor{
		{LegislatorID: 1, DivisionID: 10, VotedAye: true},
		{LegislatorID: 1, DivisionID: 11, VotedAye: false},
		{LegislatorID: 2, DivisionID: 10, VotedAye: true},
		{LegislatorID: 2, DivisionID: 11, VotedAye: false},
		{LegislatorID: 3, DivisionID: 10, VotedAye: true},
		{LegislatorID: 3, DivisionID: 12, VotedAye: true},
	}
	for _, v := range votes {
		require.NoError(t, s.UpsertVotedFor(ctx, v))
	}
}

func TestGraphStore_Connect(t *testing.T) {
	t.Run("existing table", func(t *testing.T) {
		s := NewGraphStore(newFakeTable("graph"), "graph", 0, zap.NewNop())
		assert.NoError(t, s.Connect(context.Background()))
	})

	t.Run("missing table is not found", func(t *testing.T) {
		s := NewGraphStore(newFakeTable("graph"), "other", 0, zap.NewNop())
		err := s.Connect(context.Background())
		assert.True(t, apperrors.IsNotFound(err))
	})
}

func TestGraphStore_UpsertsAreIdempotent(t *testing.T) {
	table := newFakeTable("graph")
	s := NewGraphStore(table, "graph", 0, zap.NewNop())

	seedGraph(t, s)
	first := table.count()
	seedGraph(t, s)

	assert.Equal(t, 3+4+6, first)
	assert.Equal(t, first, table.count())
}

func TestGraphStore_ItemKeys(t *testing.T) {
	table := newFakeTable("graph")
	s := NewGraphStore(table, "graph", 0, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, s.UpsertLegislator(ctx, domain.Legislator{ID: 172, Name: "Ms Diane Abbott"}))
	require.NoError(t, s.UpsertVotedFor(ctx, domain.VotedFor{LegislatorID: 172, DivisionID: 1700}))

	assert.Contains(t, table.items, "LEGISLATOR#172|METADATA")
	edge := table.items["LEGISLATOR#172|VOTE#1700"]
	require.NotNil(t, edge)
	assert.Equal(t, "DIVISION#1700", edgeString(edge, "GSI2PK"))
	assert.Equal(t, "VOTED_FOR", edgeString(edge, "EntityType"))
}

func TestGraphStore_Similarity(t *testing.T) {
	table := newFakeTable("graph")
	table.pageSize = 4
	s := NewGraphStore(table, "graph", 5, zap.NewNop())
	ctx := context.Background()
	seedGraph(t, s)

	_, err := s.QuerySimilarity(ctx, "Alice")
	require.Error(t, err, "query before projection")

	require.NoError(t, s.PrepareSimilarityProjection(ctx))
	assert.Greater(t, len(table.scanInputs), 1, "scan should page")
	assert.NotNil(t, table.scanInputs[0].FilterExpression)

	peers, err := s.QuerySimilarity(ctx, "Alice")
	require.NoError(t, err)
	require.Len(t, peers, 2)
	assert.Equal(t, "Bob", peers[0].Name)
	assert.Equal(t, 2, peers[0].ID)
	assert.InDelta(t, 1.0, peers[0].Score, 1e-9)
	assert.Equal(t, "Carol", peers[1].Name)

	none, err := s.QuerySimilarity(ctx, "Nobody")
	require.NoError(t, err)
	assert.Empty(t, none)

	require.NoError(t, s.Close(ctx))
	_, err = s.QuerySimilarity(ctx, "Alice")
	assert.Error(t, err)
}

func TestGraphStore_PutFailure(t *testing.T) {
	table := newFakeTable("graph")
	table.putErr = errors.New("ProvisionedThroughputExceededException")
	s := NewGraphStore(table, "graph", 0, zap.NewNop())

	err := s.UpsertDivision(context.Background(), domain.Division{ID: 1})

	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeDatabase))
}

func edgeString(item map[string]types.AttributeValue, key string) string {
	if v, ok := item[key].(*types.AttributeValueMemberS); ok {
		return v.Value
	}
	return ""
}
