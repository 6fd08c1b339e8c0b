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


// Package graph defines the knowledge-graph store abstraction shared by the
// in-process and Neo4j implementations.
package graph

import (
	"context"
	"errors"

	"github.com/corvus-ai/corvus/core"
)

// ErrInvalidDirection indicates an unrecognized traversal direction.
var ErrInvalidDirection = errors.New("invalid traversal direction")

// Direction selects which edges a traversal follows relative to an entity.
type Direction int

const (
	// DirectionOut follows edges where the entity is the subject.
	DirectionOut Direction = iota + 1
	// DirectionIn follows edges where the entity is the object.
	DirectionIn
	// DirectionBoth follows edges in either role.
	DirectionBoth
)

func (d Direction) String() string {
	switch d {
	case DirectionOut:
		return "out"
	case DirectionIn:
		return "in"
	case DirectionBoth:
		return "both"
	default:
		return "unknown"
	}
}

// InsertStats reports the outcome of a batch triple insert. A triple that
// cannot form an edge counts as failed without failing the batch.
type InsertStats struct {
	Succeeded int
	Failed    int
}

// Store is a knowledge graph of extracted relation triples.
type Store interface {
	// InsertTriples merges triples into the graph. Per-triple failures are
	// reported in the stats; the returned error covers batch-level failures
	// only.
	InsertTriples(ctx context.Context, triples []core.Triple) (InsertStats, error)

	// Neighbors returns the triples adjacent to an entity. Matching is
	// case-insensitive on the entity name.
	Neighbors(ctx context.Context, entity string, direction Direction) ([]core.Triple, error)

	// Path returns the triples along a shortest path between two entities,
	// traversing at most maxDepth edges. A nil slice means no path exists.
	Path(ctx context.Context, from, to string, maxDepth int) ([]core.Triple, error)

	// Close releases the store's resources.
	Close(ctx context.Context) error
}
