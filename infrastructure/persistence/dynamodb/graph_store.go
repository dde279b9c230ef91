package dynamodb

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"mpgraph/application/ports"
	"mpgraph/domain"
	"mpgraph/domain/services"
	apperrors "mpgraph/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"go.uber.org/zap"
)

// legislatorItem is the METADATA item of a legislator partition.
type legislatorItem struct {
	PK                  string            `dynamodbav:"PK"`
	SK                  string            `dynamodbav:"SK"`
	GSI1PK              string            `dynamodbav:"GSI1PK"` // lookup by display name
	GSI1SK              string            `dynamodbav:"GSI1SK"`
	EntityType          string            `dynamodbav:"EntityType"`
	LegislatorID        int               `dynamodbav:"LegislatorID"`
	Name                string            `dynamodbav:"Name"`
	ListName            string            `dynamodbav:"ListName,omitempty"`
	Party               string            `dynamodbav:"Party,omitempty"`
	Gender              string            `dynamodbav:"Gender,omitempty"`
	MembershipFrom      string            `dynamodbav:"MembershipFrom,omitempty"`
	MembershipStartDate string            `dynamodbav:"MembershipStartDate,omitempty"`
	Attributes          map[string]string `dynamodbav:"Attributes,omitempty"`
	UpdatedAt           string            `dynamodbav:"UpdatedAt"`
}

// divisionItem is the METADATA item of a division partition.
type divisionItem struct {
	PK         string            `dynamodbav:"PK"`
	SK         string            `dynamodbav:"SK"`
	EntityType string            `dynamodbav:"EntityType"`
	DivisionID int               `dynamodbav:"DivisionID"`
	Title      string            `dynamodbav:"Title"`
	Date       string            `dynamodbav:"Date,omitempty"`
	Number     int               `dynamodbav:"Number"`
	AyeCount   int               `dynamodbav:"AyeCount"`
	NoCount    int               `dynamodbav:"NoCount"`
	Attributes map[string]string `dynamodbav:"Attributes,omitempty"`
	UpdatedAt  string            `dynamodbav:"UpdatedAt"`
}

// voteItem is a VOTED_FOR edge stored in the legislator's partition.
type voteItem struct {
	PK           string  `dynamodbav:"PK"`
	SK           string  `dynamodbav:"SK"`
	GSI2PK       string  `dynamodbav:"GSI2PK"` // votes by division
	GSI2SK       string  `dynamodbav:"GSI2SK"`
	EntityType   string  `dynamodbav:"EntityType"`
	LegislatorID int     `dynamodbav:"LegislatorID"`
	DivisionID   int     `dynamodbav:"DivisionID"`
	VotedAye     bool    `dynamodbav:"VotedAye"`
	Weight       float64 `dynamodbav:"Weight"`
	UpdatedAt    string  `dynamodbav:"UpdatedAt"`
}

// projectionItem is the union of fields read back when building the
// similarity projection.
type projectionItem struct {
	EntityType   string  `dynamodbav:"EntityType"`
	LegislatorID int     `dynamodbav:"LegislatorID"`
	Name         string  `dynamodbav:"Name"`
	DivisionID   int     `dynamodbav:"DivisionID"`
	VotedAye     bool    `dynamodbav:"VotedAye"`
	Weight       float64 `dynamodbav:"Weight"`
}

// GraphStore keeps the voting graph as an adjacency list in one table and
// answers similarity queries from an in-memory projection of it.
type GraphStore struct {
	client    API
	tableName string
	topK      int
	logger    *zap.Logger
	now       func() time.Time

	mu         sync.RWMutex
	projection *services.VotingProjection
}

var _ ports.GraphStore = (*GraphStore)(nil)

// NewGraphStore creates a GraphStore over tableName.
func NewGraphStore(client API, tableName string, topK int, logger *zap.Logger) *GraphStore {
	if topK <= 0 {
		topK = services.DefaultTopK
	}
	return &GraphStore{
		client:    client,
		tableName: tableName,
		topK:      topK,
		logger:    logger,
		now:       time.Now,
	}
}

// Connect verifies the table exists.
func (s *GraphStore) Connect(ctx context.Context) error {
	if err := describeTable(ctx, s.client, s.tableName); err != nil {
		return err
	}
	s.logger.Info("Connected to DynamoDB graph table", zap.String("table", s.tableName))
	return nil
}

// Close drops the in-memory projection. The SDK client has nothing to release.
func (s *GraphStore) Close(context.Context) error {
	s.mu.Lock()
	s.projection = nil
	s.mu.Unlock()
	return nil
}

func legislatorPK(id int) string { return legislatorPrefix + strconv.Itoa(id) }
func divisionPK(id int) string   { return divisionPrefix + strconv.Itoa(id) }

// UpsertLegislator writes the legislator METADATA item.
func (s *GraphStore) UpsertLegislator(ctx context.Context, l domain.Legislator) error {
	if err := l.Validate(); err != nil {
		return apperrors.NewValidationError(err.Error())
	}
	return s.put(ctx, "put legislator", legislatorItem{
		PK:                  legislatorPK(l.ID),
		SK:                  metadataSK,
		GSI1PK:              namePrefix + l.Name,
		GSI1SK:              legislatorPK(l.ID),
		EntityType:          entityLegislator,
		LegislatorID:        l.ID,
		Name:                l.Name,
		ListName:            l.ListName,
		Party:               l.Party,
		Gender:              l.Gender,
		MembershipFrom:      l.MembershipFrom,
		MembershipStartDate: l.MembershipStartDate,
		Attributes:          l.Attributes,
		UpdatedAt:           s.now().UTC().Format(time.RFC3339),
	})
}

// UpsertDivision writes the division METADATA item.
func (s *GraphStore) UpsertDivision(ctx context.Context, d domain.Division) error {
	if err := d.Validate(); err != nil {
		return apperrors.NewValidationError(err.Error())
	}
	item := divisionItem{
		PK:         divisionPK(d.ID),
		SK:         metadataSK,
		EntityType: entityDivision,
		DivisionID: d.ID,
		Title:      d.Title,
		Number:     d.Number,
		AyeCount:   d.AyeCount,
		NoCount:    d.NoCount,
		Attributes: d.Attributes,
		UpdatedAt:  s.now().UTC().Format(time.RFC3339),
	}
	if !d.Date.IsZero() {
		item.Date = d.Date.UTC().Format(time.RFC3339)
	}
	return s.put(ctx, "put division", item)
}

// UpsertVotedFor writes the edge item under the legislator partition keyed
// by division, so a rerun overwrites rather than duplicates.
func (s *GraphStore) UpsertVotedFor(ctx context.Context, v domain.VotedFor) error {
	return s.put(ctx, "put voted for", voteItem{
		PK:           legislatorPK(v.LegislatorID),
		SK:           votePrefix + strconv.Itoa(v.DivisionID),
		GSI2PK:       divisionPK(v.DivisionID),
		GSI2SK:       legislatorPK(v.LegislatorID),
		EntityType:   entityVotedFor,
		LegislatorID: v.LegislatorID,
		DivisionID:   v.DivisionID,
		VotedAye:     v.VotedAye,
		Weight:       v.Weight(),
		UpdatedAt:    s.now().UTC().Format(time.RFC3339),
	})
}

func (s *GraphStore) put(ctx context.Context, op string, item any) error {
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return apperrors.NewInternalError(fmt.Sprintf("failed to marshal %s item", op)).WithCause(err)
	}
	if _, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      av,
	}); err != nil {
		return apperrors.NewDatabaseError(op, err)
	}
	return nil
}

// PrepareSimilarityProjection scans legislator and edge items into a fresh
// in-memory projection.
func (s *GraphStore) PrepareSimilarityProjection(ctx context.Context) error {
	filter := expression.Name("EntityType").In(
		expression.Value(entityLegislator),
		expression.Value(entityVotedFor),
	)
	projection := expression.NamesList(
		expression.Name("EntityType"),
		expression.Name("LegislatorID"),
		expression.Name("Name"),
		expression.Name("DivisionID"),
		expression.Name("VotedAye"),
		expression.Name("Weight"),
	)
	expr, err := expression.NewBuilder().WithFilter(filter).WithProjection(projection).Build()
	if err != nil {
		return apperrors.NewInternalError("failed to build projection scan").WithCause(err)
	}

	proj := services.NewVotingProjection()
	paginator := dynamodb.NewScanPaginator(s.client, &dynamodb.ScanInput{
		TableName:                 aws.String(s.tableName),
		FilterExpression:          expr.Filter(),
		ProjectionExpression:      expr.Projection(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	pages := 0
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return apperrors.NewDatabaseError("scan graph table", err)
		}
		pages++

		var items []projectionItem
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &items); err != nil {
			return apperrors.NewInternalError("failed to unmarshal graph items").WithCause(err)
		}
		for _, it := range items {
			switch it.EntityType {
			case entityLegislator:
				proj.AddLegislator(it.LegislatorID, it.Name)
			case entityVotedFor:
				proj.AddVote(domain.VotedFor{
					LegislatorID: it.LegislatorID,
					DivisionID:   it.DivisionID,
					VotedAye:     it.VotedAye,
				})
			}
		}
	}

	s.mu.Lock()
	s.projection = proj
	s.mu.Unlock()

	s.logger.Info("Similarity projection ready",
		zap.Int("legislators", proj.Legislators()),
		zap.Int("votes", proj.Votes()),
		zap.Int("scan_pages", pages),
	)
	return nil
}

// QuerySimilarity ranks peers of the named legislator from the projection.
func (s *GraphStore) QuerySimilarity(_ context.Context, name string) ([]domain.SimilarPeer, error) {
	s.mu.RLock()
	proj := s.projection
	s.mu.RUnlock()
	if proj == nil {
		return nil, apperrors.NewInternalError("similarity projection has not been prepared")
	}
	return proj.MostSimilar(name, s.topK), nil
}
