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


// Package memgraph is an in-process graph.Store backed by adjacency maps.
// It is the default store for embedded deployments and tests.
package memgraph

import (
	"context"
	"strings"
	"sync"

	"github.com/corvus-ai/corvus/core"
	"github.com/corvus-ai/corvus/graph"
)

// pathStep is one node reached during breadth-first search, with the edge
// that led there so the path can be reconstructed.
type pathStep struct {
	entity string
	via    string
	prev   int
}

// Store keeps merged triples and per-entity adjacency in memory. Repeated
// inserts of the same logical triple merge through core.TripleSet rules:
// mean confidence, unioned evidence chunks.
type Store struct {
	mu  sync.RWMutex
	set *core.TripleSet

	// lowercase entity name -> triple keys where the entity is subject/object
	out map[string][]string
	in  map[string][]string

	indexed map[string]struct{}
}

var _ graph.Store = (*Store)(nil)

// New creates an empty in-process graph store.
func New() *Store {
	return &Store{
		set:     core.NewTripleSet(),
		out:     make(map[string][]string),
		in:      make(map[string][]string),
		indexed: make(map[string]struct{}),
	}
}

// InsertTriples merges triples into the graph. Triples with an empty
// subject or object cannot form an edge and count as failed.
func (s *Store) InsertTriples(ctx context.Context, triples []core.Triple) (graph.InsertStats, error) {
	var stats graph.InsertStats
	if err := ctx.Err(); err != nil {
		return stats, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range triples {
		if t.Subject == "" || t.Object == "" {
			stats.Failed++
			continue
		}

		key := t.Key()
		s.set.Add(t)
		if _, seen := s.indexed[key]; !seen {
			s.indexed[key] = struct{}{}
			s.out[strings.ToLower(t.Subject)] = append(s.out[strings.ToLower(t.Subject)], key)
			s.in[strings.ToLower(t.Object)] = append(s.in[strings.ToLower(t.Object)], key)
		}
		stats.Succeeded++
	}
	return stats, nil
}

// Neighbors returns the triples adjacent to an entity.
func (s *Store) Neighbors(ctx context.Context, entity string, direction graph.Direction) ([]core.Triple, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	name := strings.ToLower(entity)
	var keys []string
	switch direction {
	case graph.DirectionOut:
		keys = s.out[name]
	case graph.DirectionIn:
		keys = s.in[name]
	case graph.DirectionBoth:
		keys = append(append([]string{}, s.out[name]...), s.in[name]...)
	default:
		return nil, graph.ErrInvalidDirection
	}

	seen := make(map[string]struct{}, len(keys))
	var results []core.Triple
	for _, key := range keys {
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		if t, ok := s.set.Get(key); ok {
			results = append(results, t)
		}
	}
	return results, nil
}

// Path finds a shortest path between two entities by breadth-first search
// over undirected edges, up to maxDepth edges long.
func (s *Store) Path(ctx context.Context, from, to string, maxDepth int) ([]core.Triple, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if maxDepth <= 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	start := strings.ToLower(from)
	goal := strings.ToLower(to)
	if start == goal {
		return nil, nil
	}

	steps := []pathStep{{entity: start, prev: -1}}
	visited := map[string]struct{}{start: {}}
	frontier := []int{0}

	for depth := 0; depth < maxDepth && len(frontier) > 0; depth++ {
		var next []int
		for _, si := range frontier {
			cur := steps[si].entity
			for _, key := range append(append([]string{}, s.out[cur]...), s.in[cur]...) {
				t, ok := s.set.Get(key)
				if !ok {
					continue
				}

				other := strings.ToLower(t.Object)
				if other == cur {
					other = strings.ToLower(t.Subject)
				}
				if _, seen := visited[other]; seen {
					continue
				}
				visited[other] = struct{}{}

				steps = append(steps, pathStep{entity: other, via: key, prev: si})
				if other == goal {
					return s.walkBack(steps, len(steps)-1), nil
				}
				next = append(next, len(steps)-1)
			}
		}
		frontier = next
	}
	return nil, nil
}

// Close releases nothing; the store lives in process memory.
func (s *Store) Close(ctx context.Context) error {
	return nil
}

// Len reports the number of distinct logical triples.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.set.Len()
}

// walkBack reconstructs the path ending at steps[last] in start-to-goal
// order.
func (s *Store) walkBack(steps []pathStep, last int) []core.Triple {
	var keys []string
	for i := last; steps[i].prev >= 0; i = steps[i].prev {
		keys = append(keys, steps[i].via)
	}

	results := make([]core.Triple, 0, len(keys))
	for i := len(keys) - 1; i >= 0; i-- {
		if t, ok := s.set.Get(keys[i]); ok {
			results = append(results, t)
		}
	}
	return results
}
