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


package vector

import (
	"context"
	"fmt"
	"math"
	"slices"
	"strconv"
	"sync"
)

// entry is one indexed vector. The vector is stored unit-normalized so a
// query reduces to a dot product.
type entry struct {
	id  string
	ref ChunkRef
	vec []float32
}

// Flat is a brute-force cosine-similarity index. It scans every stored
// vector per query, which is exact and fast enough for per-knowledge-base
// collections of embedded chunks.
type Flat struct {
	mu      sync.RWMutex
	dim     int
	entries []entry
	byID    map[string]int
}

var _ Index = (*Flat)(nil)

// NewFlat creates an empty flat index. A dim of 0 defers the dimension to
// the first Add or Load.
func NewFlat(dim int) *Flat {
	return &Flat{
		dim:  dim,
		byID: make(map[string]int),
	}
}

// Add indexes vectors with their chunk references. Vector IDs are derived
// from the chunk ID, so re-embedding a chunk replaces its old vector.
func (f *Flat) Add(ctx context.Context, vectors [][]float32, refs []ChunkRef) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(vectors) != len(refs) {
		return nil, fmt.Errorf("%w: %d vectors, %d refs", ErrRefMismatch, len(vectors), len(refs))
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	ids := make([]string, 0, len(vectors))
	for i, vec := range vectors {
		if f.dim == 0 {
			f.dim = len(vec)
		}
		if len(vec) != f.dim {
			return nil, fmt.Errorf("%w: got %d, index has %d", ErrDimensionMismatch, len(vec), f.dim)
		}

		id := strconv.FormatUint(uint64(refs[i].ChunkId), 10)
		e := entry{id: id, ref: refs[i], vec: normalize(vec)}

		if pos, ok := f.byID[id]; ok {
			f.entries[pos] = e
		} else {
			f.byID[id] = len(f.entries)
			f.entries = append(f.entries, e)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Query scans all stored vectors and returns the k best hits by cosine
// similarity, mapped to a [0, 1] score.
func (f *Flat) Query(ctx context.Context, vec []float32, k int) ([]Hit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if k <= 0 {
		return nil, nil
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	if len(f.entries) == 0 {
		return nil, nil
	}
	if len(vec) != f.dim {
		return nil, fmt.Errorf("%w: got %d, index has %d", ErrDimensionMismatch, len(vec), f.dim)
	}

	q := normalize(vec)
	hits := make([]Hit, 0, len(f.entries))
	for _, e := range f.entries {
		// Cosine of unit vectors is their dot product; map [-1, 1] to [0, 1].
		score := (1 + dotProduct(q, e.vec)) / 2
		if score < 0 {
			score = 0
		}
		if score > 1 {
			score = 1
		}
		hits = append(hits, Hit{VectorId: e.id, Ref: e.ref, Score: score})
	}

	slices.SortFunc(hits, func(a, b Hit) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		}
		// Equal scores resolve by document position for a stable order.
		return a.Ref.Index - b.Ref.Index
	})

	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Remove deletes vectors by ID. Unknown IDs are ignored. Returns how many
// vectors were removed.
func (f *Flat) Remove(ids ...string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	removed := 0
	for _, id := range ids {
		pos, ok := f.byID[id]
		if !ok {
			continue
		}
		last := len(f.entries) - 1
		if pos != last {
			f.entries[pos] = f.entries[last]
			f.byID[f.entries[pos].id] = pos
		}
		f.entries = f.entries[:last]
		delete(f.byID, id)
		removed++
	}
	return removed
}

// Len reports the number of indexed vectors.
func (f *Flat) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.entries)
}

// Dimension reports the vector dimension, 0 until the first Add or Load.
func (f *Flat) Dimension() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.dim
}

// dotProduct calculates the dot product of two vectors.
func dotProduct(a, b []float32) float32 {
	var sum float32
	minLen := len(a)
	if len(b) < minLen {
		minLen = len(b)
	}
	for i := 0; i < minLen; i++ {
		sum += a[i] * b[i]
	}
	return sum
}

// normalize returns a unit-length copy of vec. Zero vectors are copied
// unchanged.
func normalize(vec []float32) []float32 {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}

	out := make([]float32, len(vec))
	if sum == 0 {
		copy(out, vec)
		return out
	}

	norm := float32(math.Sqrt(sum))
	for i, v := range vec {
		out[i] = v / norm
	}
	return out
}
