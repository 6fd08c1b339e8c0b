// Copyright 2025 Corvus Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package neo4jgraph is a graph.Store backed by a Neo4j server. Entities
// become nodes keyed by their lowercased name, relations become edges keyed
// by predicate; repeated inserts merge confidence as a running mean and
// union the evidence chunk ids, matching the in-process store.
package neo4jgraph

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/corvus-ai/corvus/core"
	"github.com/corvus-ai/corvus/graph"
)

// Config holds the Neo4j connection settings.
type Config struct {
	URI      string
	User     string
	Password string
	Database string

	// ConnectTimeout bounds driver connection establishment. Zero means 10s.
	ConnectTimeout time.Duration
}

// Store implements graph.Store on a Neo4j database.
type Store struct {
	driver   neo4j.DriverWithContext
	database string
	logger   *slog.Logger
}

var _ graph.Store = (*Store)(nil)

// New connects to Neo4j and verifies connectivity before returning.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Store, error) {
	if cfg.URI == "" {
		return nil, fmt.Errorf("neo4jgraph: URI required")
	}
	if cfg.User == "" {
		cfg.User = "neo4j"
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.User, cfg.Password, ""), func(c *neo4j.Config) {
		c.SocketConnectTimeout = cfg.ConnectTimeout
	})
	if err != nil {
		return nil, fmt.Errorf("neo4jgraph: init driver: %w", err)
	}

	verifyCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()
	if err := driver.VerifyConnectivity(verifyCtx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("neo4jgraph: verify connectivity: %w", err)
	}

	return &Store{
		driver:   driver,
		database: cfg.Database,
		logger:   logger.With("component", "neo4jgraph"),
	}, nil
}

// Close shuts down the underlying driver.
func (s *Store) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

const mergeTriplesCypher = `
UNWIND $triples AS t
MERGE (a:Entity {name_lc: t.subject_lc})
ON CREATE SET a.name = t.subject, a.type = t.subject_type
MERGE (b:Entity {name_lc: t.object_lc})
ON CREATE SET b.name = t.object, b.type = t.object_type
MERGE (a)-[r:RELATES {predicate: t.predicate}]->(b)
ON CREATE SET r.confidence_sum = t.confidence,
              r.observations = 1,
              r.confidence = t.confidence,
              r.chunk_ids = t.chunk_ids
ON MATCH SET  r.confidence = (r.confidence_sum + t.confidence) / (r.observations + 1),
              r.confidence_sum = r.confidence_sum + t.confidence,
              r.observations = r.observations + 1,
              r.chunk_ids = r.chunk_ids + [c IN t.chunk_ids WHERE NOT c IN r.chunk_ids]
`

// InsertTriples merges triples into the graph with one UNWIND batch. If the
// batch fails, each triple is retried individually so one bad statement does
// not discard the rest.
func (s *Store) InsertTriples(ctx context.Context, triples []core.Triple) (graph.InsertStats, error) {
	var stats graph.InsertStats

	params := make([]map[string]any, 0, len(triples))
	valid := make([]core.Triple, 0, len(triples))
	for _, t := range triples {
		if t.Subject == "" || t.Object == "" {
			stats.Failed++
			continue
		}
		params = append(params, tripleParams(t))
		valid = append(valid, t)
	}
	if len(params) == 0 {
		return stats, nil
	}

	session := s.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: s.database,
	})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, mergeTriplesCypher, map[string]any{"triples": params})
		if err != nil {
			return nil, err
		}
		_, err = res.Consume(ctx)
		return nil, err
	})
	if err == nil {
		stats.Succeeded += len(params)
		return stats, nil
	}

	s.logger.Warn("batch triple insert failed, retrying per triple", "error", err, "count", len(params))
	for i, p := range params {
		_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
			res, err := tx.Run(ctx, mergeTriplesCypher, map[string]any{"triples": []map[string]any{p}})
			if err != nil {
				return nil, err
			}
			_, err = res.Consume(ctx)
			return nil, err
		})
		if err != nil {
			stats.Failed++
			s.logger.Warn("triple insert failed",
				"subject", valid[i].Subject,
				"predicate", valid[i].Predicate,
				"object", valid[i].Object,
				"error", err)
			continue
		}
		stats.Succeeded++
	}
	return stats, nil
}

// Neighbors returns the triples adjacent to an entity.
func (s *Store) Neighbors(ctx context.Context, entity string, direction graph.Direction) ([]core.Triple, error) {
	var pattern string
	switch direction {
	case graph.DirectionOut:
		pattern = `MATCH (a:Entity {name_lc: $name})-[r:RELATES]->(b:Entity)`
	case graph.DirectionIn:
		pattern = `MATCH (b:Entity)-[r:RELATES]->(a:Entity {name_lc: $name})`
	case graph.DirectionBoth:
		pattern = `MATCH (a:Entity {name_lc: $name})-[r:RELATES]-(b:Entity)`
	default:
		return nil, graph.ErrInvalidDirection
	}

	query := pattern + `
RETURN startNode(r).name AS subject, startNode(r).type AS subject_type,
       r.predicate AS predicate, r.confidence AS confidence, r.chunk_ids AS chunk_ids,
       endNode(r).name AS object, endNode(r).type AS object_type`

	return s.readTriples(ctx, query, map[string]any{"name": strings.ToLower(entity)})
}

// Path returns the triples along a shortest path between two entities.
func (s *Store) Path(ctx context.Context, from, to string, maxDepth int) ([]core.Triple, error) {
	if maxDepth <= 0 {
		return nil, nil
	}

	// Variable-length bounds cannot be parameterized in Cypher.
	query := fmt.Sprintf(`
MATCH (a:Entity {name_lc: $from}), (b:Entity {name_lc: $to}),
      p = shortestPath((a)-[:RELATES*..%d]-(b))
UNWIND relationships(p) AS r
RETURN startNode(r).name AS subject, startNode(r).type AS subject_type,
       r.predicate AS predicate, r.confidence AS confidence, r.chunk_ids AS chunk_ids,
       endNode(r).name AS object, endNode(r).type AS object_type`, maxDepth)

	return s.readTriples(ctx, query, map[string]any{
		"from": strings.ToLower(from),
		"to":   strings.ToLower(to),
	})
}

func (s *Store) readTriples(ctx context.Context, query string, params map[string]any) ([]core.Triple, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeRead,
		DatabaseName: s.database,
	})
	defer session.Close(ctx)

	records, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		return res.Collect(ctx)
	})
	if err != nil {
		return nil, err
	}

	var results []core.Triple
	for _, rec := range records.([]*neo4j.Record) {
		results = append(results, tripleFromRecord(rec))
	}
	return results, nil
}

func tripleParams(t core.Triple) map[string]any {
	chunkIDs := make([]any, 0, len(t.ChunkIds))
	for _, id := range t.ChunkIds {
		chunkIDs = append(chunkIDs, int64(id))
	}
	return map[string]any{
		"subject":      t.Subject,
		"subject_lc":   strings.ToLower(t.Subject),
		"subject_type": string(t.SubjectType),
		"predicate":    t.Predicate,
		"object":       t.Object,
		"object_lc":    strings.ToLower(t.Object),
		"object_type":  string(t.ObjectType),
		"confidence":   t.Confidence,
		"chunk_ids":    chunkIDs,
	}
}

func tripleFromRecord(rec *neo4j.Record) core.Triple {
	var t core.Triple
	if v, ok := rec.Get("subject"); ok {
		t.Subject, _ = v.(string)
	}
	if v, ok := rec.Get("subject_type"); ok {
		if s, ok := v.(string); ok {
			t.SubjectType = core.EntityType(s)
		}
	}
	if v, ok := rec.Get("predicate"); ok {
		t.Predicate, _ = v.(string)
	}
	if v, ok := rec.Get("object"); ok {
		t.Object, _ = v.(string)
	}
	if v, ok := rec.Get("object_type"); ok {
		if s, ok := v.(string); ok {
			t.ObjectType = core.EntityType(s)
		}
	}
	if v, ok := rec.Get("confidence"); ok {
		t.Confidence, _ = v.(float64)
	}
	if v, ok := rec.Get("chunk_ids"); ok {
		if ids, ok := v.([]any); ok {
			for _, raw := range ids {
				if n, ok := raw.(int64); ok {
					t.ChunkIds = append(t.ChunkIds, core.ID(n))
				}
			}
		}
	}
	return t
}
