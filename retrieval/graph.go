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


package retrieval

import (
	"context"
	"slices"
	"strings"

	"github.com/corvus-ai/corvus/core"
)

// Base relevance for how the query matched an entity name.
const (
	exactMatchScore     = 1.0
	substringMatchScore = 0.7

	maxRelatedEntities = 5
)

// entityEvidence accumulates what the knowledge base knows about one
// matched entity.
type entityEvidence struct {
	name      string
	entType   core.EntityType
	base      float32
	relations []core.Triple
	chunkIds  []core.ID
	chunkSeen map[core.ID]struct{}
}

func (ev *entityEvidence) addChunk(id core.ID) {
	if _, seen := ev.chunkSeen[id]; seen {
		return
	}
	ev.chunkSeen[id] = struct{}{}
	ev.chunkIds = append(ev.chunkIds, id)
}

// addRelation records a relation the entity participates in, its type when
// the relation carries one, and the chunks evidencing the relation.
func (ev *entityEvidence) addRelation(rel core.Triple, entType core.EntityType, hostChunk core.ID) {
	ev.relations = append(ev.relations, rel)
	if entType != "" {
		ev.entType = entType
	}
	ev.addChunk(hostChunk)
	for _, id := range rel.ChunkIds {
		ev.addChunk(id)
	}
}

// graphHalf scans the knowledge base's extracted entities and relations for
// matches against the query. An entity matches exactly (case-insensitive)
// or as a substring in either direction; relevance grows with the entity's
// relation count and evidence chunk count.
func (e *Engine) graphHalf(ctx context.Context, kbID core.ID, query string) ([]core.GraphEntityResult, error) {
	chunks, err := e.stores.Chunks.ListByKnowledgeBase(ctx, kbID)
	if err != nil {
		return nil, err
	}

	queryLower := strings.ToLower(strings.TrimSpace(query))
	if queryLower == "" {
		return nil, nil
	}

	matched := make(map[string]*entityEvidence)
	var order []string

	// First pass: match entities across every chunk's entity list.
	for _, chunk := range chunks {
		for _, name := range chunk.Entities {
			base := matchScore(queryLower, strings.ToLower(name))
			if base == 0 {
				continue
			}

			key := strings.ToLower(name)
			ev, ok := matched[key]
			if !ok {
				ev = &entityEvidence{
					name:      name,
					entType:   core.EntityConcept,
					base:      base,
					chunkSeen: make(map[core.ID]struct{}),
				}
				matched[key] = ev
				order = append(order, key)
			}
			if base > ev.base {
				ev.base = base
			}
			ev.addChunk(chunk.Id)
		}
	}

	// Second pass: every relation involving a matched entity contributes to
	// its relevance, supplies related entities and can carry its type. The
	// relation's chunks count as evidence too. Scanning relations only after
	// all entities are matched keeps the outcome independent of chunk order.
	for _, chunk := range chunks {
		for _, rel := range chunk.Relations {
			subjKey := strings.ToLower(rel.Subject)
			objKey := strings.ToLower(rel.Object)
			if ev, ok := matched[subjKey]; ok {
				ev.addRelation(rel, rel.SubjectType, chunk.Id)
			}
			if ev, ok := matched[objKey]; ok && objKey != subjKey {
				ev.addRelation(rel, rel.ObjectType, chunk.Id)
			}
		}
	}

	results := make([]core.GraphEntityResult, 0, len(order))
	for _, key := range order {
		ev := matched[key]

		relevance := ev.base
		relevance += min(0.5, 0.1*float32(len(ev.relations)))
		relevance += min(0.3, 0.05*float32(len(ev.chunkIds)))
		if relevance > 1.0 {
			relevance = 1.0
		}

		results = append(results, core.GraphEntityResult{
			Name:      ev.name,
			Type:      ev.entType,
			Relevance: relevance,
			Related:   relatedEntities(ev.name, ev.relations),
			ChunkIds:  ev.chunkIds,
		})
	}

	slices.SortFunc(results, func(a, b core.GraphEntityResult) int {
		switch {
		case a.Relevance > b.Relevance:
			return -1
		case a.Relevance < b.Relevance:
			return 1
		}
		return strings.Compare(a.Name, b.Name)
	})
	return results, nil
}

// matchScore rates how well the query matches an entity name. Both inputs
// must already be lowercased.
func matchScore(query, entity string) float32 {
	if entity == "" {
		return 0
	}
	if query == entity {
		return exactMatchScore
	}
	if strings.Contains(query, entity) || strings.Contains(entity, query) {
		return substringMatchScore
	}
	return 0
}

// relatedEntities lists the other side of an entity's relations, capped.
func relatedEntities(name string, relations []core.Triple) []core.RelatedEntity {
	nameLower := strings.ToLower(name)
	seen := make(map[string]struct{})
	var related []core.RelatedEntity

	for _, rel := range relations {
		other := rel.Object
		otherType := rel.ObjectType
		if strings.ToLower(other) == nameLower {
			other = rel.Subject
			otherType = rel.SubjectType
		}
		key := strings.ToLower(other)
		if key == nameLower {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		related = append(related, core.RelatedEntity{
			Name:     other,
			Type:     otherType,
			Relation: rel.Predicate,
		})
		if len(related) == maxRelatedEntities {
			break
		}
	}
	return related
}
