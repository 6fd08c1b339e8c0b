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
	"errors"
	"fmt"
	"path/filepath"

	"github.com/corvus-ai/corvus/core"
)

var (
	// ErrDimensionMismatch indicates a vector whose length differs from the
	// index dimension.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	// ErrRefMismatch indicates Add was called with differing numbers of
	// vectors and chunk references.
	ErrRefMismatch = errors.New("vector/ref count mismatch")
	// ErrCorruptIndex indicates a persisted index file that cannot be decoded.
	ErrCorruptIndex = errors.New("corrupt index file")
)

// ChunkRef ties an indexed vector back to its chunk.
type ChunkRef struct {
	ChunkId    core.ID
	DocumentId core.ID
	Index      int
}

// Hit is one query result, scored in [0, 1] where 1 is an exact match.
type Hit struct {
	VectorId string
	Ref      ChunkRef
	Score    float32
}

// Index stores embeddings and answers nearest-neighbor queries.
type Index interface {
	// Add indexes vectors with their chunk references and returns the
	// assigned vector IDs. Re-adding a chunk replaces its previous vector.
	Add(ctx context.Context, vectors [][]float32, refs []ChunkRef) ([]string, error)

	// Query returns up to k hits ordered by descending score.
	Query(ctx context.Context, vector []float32, k int) ([]Hit, error)

	// Remove deletes vectors by ID, ignoring unknown IDs. Returns how many
	// vectors were removed.
	Remove(ids ...string) int

	// Save writes the index to path atomically.
	Save(path string) error

	// Load replaces the index contents from path.
	Load(path string) error

	// Len reports the number of indexed vectors.
	Len() int

	// Dimension reports the vector dimension, 0 until the first Add.
	Dimension() int
}

// IndexPath returns the canonical on-disk location of a knowledge base's
// vector index under the given data directory.
func IndexPath(dataDir string, kbID core.ID) string {
	return filepath.Join(dataDir, "indexes", fmt.Sprintf("kb_%d.idx", kbID))
}
