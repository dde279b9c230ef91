// Package neo4j implements the graph store on Neo4j with the Graph Data
// Science library providing node similarity.
package neo4j

import (
	"context"
	"fmt"

	"mpgraph/application/ports"
	"mpgraph/domain"
	"mpgraph/domain/services"
	apperrors "mpgraph/pkg/errors"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"
)

const (
	mergeLegislatorCypher = `MERGE (m:Mp {id: $id}) SET m += $props`

	mergeDivisionCypher = `MERGE (d:Division {DivisionId: $id}) SET d += $props`

	mergeVotedForCypher = `
MATCH (m:Mp {id: $mpId})
MATCH (d:Division {DivisionId: $divisionId})
MERGE (m)-[r:VOTED_FOR]->(d)
SET r.votedAye = $votedAye, r.weight = $weight
RETURN count(r) AS linked`

	dropProjectionCypher = `CALL gds.graph.drop($graph, false) YIELD graphName RETURN graphName`

	createProjectionCypher = `
CALL gds.graph.project(
  $graph,
  ['Mp', 'Division'],
  {VOTED_FOR: {properties: 'weight'}}
)
YIELD graphName, nodeCount, relationshipCount
RETURN graphName, nodeCount, relationshipCount`

	similarityCypher = `
MATCH (a:Mp {nameDisplayAs: $name})
CALL gds.nodeSimilarity.filtered.stream($graph, {
  sourceNodeFilter: a,
  topK: $topK,
  relationshipWeightProperty: 'weight'
})
YIELD node1, node2, similarity
WITH gds.util.asNode(node2) AS peer, similarity
WHERE peer:Mp
RETURN $name AS source, peer.nameDisplayAs AS name, similarity AS score, peer.id AS id
ORDER BY score DESC, name ASC`
)

// Config holds the Neo4j connection settings.
type Config struct {
	URI        string
	Username   string
	Password   string
	Database   string
	Projection string
	TopK       int
}

// runFunc executes one Cypher statement and collects its records.
type runFunc func(ctx context.Context, mode neo4j.AccessMode, cypher string, params map[string]any) ([]*neo4j.Record, error)

// GraphStore writes legislators, divisions and VOTED_FOR relationships to
// Neo4j and reads similarity from a GDS projection.
type GraphStore struct {
	cfg    Config
	driver neo4j.DriverWithContext
	run    runFunc
	logger *zap.Logger
}

var _ ports.GraphStore = (*GraphStore)(nil)

// NewGraphStore creates a GraphStore. No connection is made until Connect.
func NewGraphStore(cfg Config, logger *zap.Logger) *GraphStore {
	if cfg.TopK <= 0 {
		cfg.TopK = services.DefaultTopK
	}
	if cfg.Projection == "" {
		cfg.Projection = "mpVotes"
	}
	return &GraphStore{cfg: cfg, logger: logger}
}

// Connect opens the driver and verifies the server is reachable.
func (s *GraphStore) Connect(ctx context.Context) error {
	driver, err := neo4j.NewDriverWithContext(s.cfg.URI, neo4j.BasicAuth(s.cfg.Username, s.cfg.Password, ""))
	if err != nil {
		return apperrors.NewDatabaseError("neo4j connect", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return apperrors.NewDatabaseError("neo4j verify connectivity", err)
	}
	s.driver = driver
	s.run = s.sessionRun

	s.logger.Info("Connected to Neo4j", zap.String("uri", s.cfg.URI), zap.String("database", s.cfg.Database))
	return nil
}

// Close releases the driver.
func (s *GraphStore) Close(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}
	err := s.driver.Close(ctx)
	s.driver = nil
	s.run = nil
	if err != nil {
		return apperrors.NewDatabaseError("neo4j close", err)
	}
	return nil
}

func (s *GraphStore) sessionRun(ctx context.Context, mode neo4j.AccessMode, cypher string, params map[string]any) ([]*neo4j.Record, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: mode, DatabaseName: s.cfg.Database})
	defer session.Close(ctx)

	result, err := session.Run(ctx, cypher, params)
	if err != nil {
		return nil, err
	}
	return result.Collect(ctx)
}

func (s *GraphStore) exec(ctx context.Context, op string, mode neo4j.AccessMode, cypher string, params map[string]any) ([]*neo4j.Record, error) {
	if s.run == nil {
		return nil, apperrors.NewInternalError("neo4j graph store is not connected")
	}
	records, err := s.run(ctx, mode, cypher, params)
	if err != nil {
		return nil, apperrors.NewDatabaseError(op, err)
	}
	return records, nil
}

// UpsertLegislator merges an Mp node keyed by id.
func (s *GraphStore) UpsertLegislator(ctx context.Context, l domain.Legislator) error {
	if err := l.Validate(); err != nil {
		return apperrors.NewValidationError(err.Error())
	}
	_, err := s.exec(ctx, "merge legislator", neo4j.AccessModeWrite, mergeLegislatorCypher, map[string]any{
		"id":    l.ID,
		"props": l.Properties(),
	})
	return err
}

// UpsertDivision merges a Division node keyed by DivisionId.
func (s *GraphStore) UpsertDivision(ctx context.Context, d domain.Division) error {
	if err := d.Validate(); err != nil {
		return apperrors.NewValidationError(err.Error())
	}
	_, err := s.exec(ctx, "merge division", neo4j.AccessModeWrite, mergeDivisionCypher, map[string]any{
		"id":    d.ID,
		"props": d.Properties(),
	})
	return err
}

// UpsertVotedFor merges the VOTED_FOR relationship. When either node is
// missing nothing is written and a warning is logged.
func (s *GraphStore) UpsertVotedFor(ctx context.Context, v domain.VotedFor) error {
	records, err := s.exec(ctx, "merge voted for", neo4j.AccessModeWrite, mergeVotedForCypher, map[string]any{
		"mpId":       v.LegislatorID,
		"divisionId": v.DivisionID,
		"votedAye":   v.VotedAye,
		"weight":     v.Weight(),
	})
	if err != nil {
		return err
	}
	if len(records) == 0 || getInt(records[0], "linked") == 0 {
		s.logger.Warn("VOTED_FOR not created, node missing",
			zap.Int("legislator_id", v.LegislatorID),
			zap.Int("division_id", v.DivisionID),
		)
	}
	return nil
}

// PrepareSimilarityProjection replaces the named GDS projection with a
// fresh one over Mp, Division and weighted VOTED_FOR.
func (s *GraphStore) PrepareSimilarityProjection(ctx context.Context) error {
	params := map[string]any{"graph": s.cfg.Projection}
	if _, err := s.exec(ctx, "drop projection", neo4j.AccessModeWrite, dropProjectionCypher, params); err != nil {
		return err
	}
	records, err := s.exec(ctx, "create projection", neo4j.AccessModeWrite, createProjectionCypher, params)
	if err != nil {
		return err
	}
	if len(records) > 0 {
		s.logger.Info("Similarity projection ready",
			zap.String("graph", getString(records[0], "graphName")),
			zap.Int("nodes", getInt(records[0], "nodeCount")),
			zap.Int("relationships", getInt(records[0], "relationshipCount")),
		)
	}
	return nil
}

// QuerySimilarity streams filtered node similarity for one Mp.
func (s *GraphStore) QuerySimilarity(ctx context.Context, name string) ([]domain.SimilarPeer, error) {
	records, err := s.exec(ctx, "node similarity", neo4j.AccessModeRead, similarityCypher, map[string]any{
		"name":  name,
		"graph": s.cfg.Projection,
		"topK":  s.cfg.TopK,
	})
	if err != nil {
		return nil, err
	}

	peers := make([]domain.SimilarPeer, 0, len(records))
	for _, rec := range records {
		peers = append(peers, domain.SimilarPeer{
			Name:  getString(rec, "name"),
			ID:    getInt(rec, "id"),
			Score: getFloat(rec, "score"),
		})
	}
	return peers, nil
}

func getString(record *neo4j.Record, key string) string {
	if val, ok := record.Get(key); ok && val != nil {
		if s, ok := val.(string); ok {
			return s
		}
		return fmt.Sprint(val)
	}
	return ""
}

func getInt(record *neo4j.Record, key string) int {
	if val, ok := record.Get(key); ok && val != nil {
		switch n := val.(type) {
		case int64:
			return int(n)
		case int:
			return n
		case float64:
			return int(n)
		}
	}
	return 0
}

func getFloat(record *neo4j.Record, key string) float64 {
	if val, ok := record.Get(key); ok && val != nil {
		switch n := val.(type) {
		case float64:
			return n
		case int64:
			return float64(n)
		}
	}
	return 0
}
