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

package reindex

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/corvus-ai/corvus/ai"
	"github.com/corvus-ai/corvus/core"
	"github.com/corvus-ai/corvus/resources"
	"github.com/corvus-ai/corvus/storage"
	"github.com/corvus-ai/corvus/vector"
)

const (
	// DefaultBatchSize is the default number of chunks embedded per batch.
	DefaultBatchSize = 100

	// DefaultReportInterval is how often progress is reported (chunks).
	DefaultReportInterval = 100

	// DefaultMaxRetries is the default retry budget per embedding batch.
	DefaultMaxRetries = 3

	// DefaultRetryDelay is the default base delay for exponential backoff.
	DefaultRetryDelay = 1 * time.Second
)

// Summary reports what a reindexing run did.
type Summary struct {
	Chunks  int
	Batches int
	Elapsed time.Duration
}

// Reindexer rebuilds a knowledge base's vector index from its stored
// chunks, re-embedding every chunk with the knowledge base's current
// embedding model. The fresh index replaces the old one atomically and the
// cached handle is evicted so the next search loads the rebuilt index.
type Reindexer struct {
	dataDir  string
	stores   *storage.Stores
	cache    *resources.Cache
	embedder ai.Embedder
	logger   *slog.Logger

	batchSize      int
	reportInterval int
	maxRetries     int
	retryDelay     time.Duration
	progress       Progress
}

// Option configures a Reindexer.
type Option func(*Reindexer)

// WithBatchSize sets how many chunks are embedded per batch.
func WithBatchSize(n int) Option {
	return func(r *Reindexer) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

// WithMaxRetries sets the retry budget per embedding batch.
func WithMaxRetries(n int) Option {
	return func(r *Reindexer) {
		if n > 0 {
			r.maxRetries = n
		}
	}
}

// WithRetryDelay sets the base delay for exponential backoff.
func WithRetryDelay(d time.Duration) Option {
	return func(r *Reindexer) {
		if d > 0 {
			r.retryDelay = d
		}
	}
}

// WithProgress sets a progress callback, invoked every report interval.
func WithProgress(p Progress) Option {
	return func(r *Reindexer) { r.progress = p }
}

// WithReportInterval sets how many chunks pass between progress reports.
func WithReportInterval(n int) Option {
	return func(r *Reindexer) {
		if n > 0 {
			r.reportInterval = n
		}
	}
}

// WithLogger sets a custom logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reindexer) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewReindexer creates a reindexer. dataDir is the root data directory
// holding the per-knowledge-base index files.
func NewReindexer(dataDir string, stores *storage.Stores, cache *resources.Cache, provider ai.AIProvider, opts ...Option) (*Reindexer, error) {
	if stores == nil {
		return nil, ErrStoresRequired
	}
	if cache == nil {
		return nil, ErrCacheRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	r := &Reindexer{
		dataDir:        dataDir,
		stores:         stores,
		cache:          cache,
		embedder:       provider.Embedder(),
		logger:         slog.Default(),
		batchSize:      DefaultBatchSize,
		reportInterval: DefaultReportInterval,
		maxRetries:     DefaultMaxRetries,
		retryDelay:     DefaultRetryDelay,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With("component", "reindex")
	return r, nil
}

// Run rebuilds the knowledge base's vector index. Chunks are re-embedded in
// batches with retry; the rebuilt index replaces the old file atomically and
// the cached handle is evicted. A failed run leaves the old index in place.
func (r *Reindexer) Run(ctx context.Context, kbID core.ID) (*Summary, error) {
	kb, err := r.stores.KnowledgeBases.GetKnowledgeBase(ctx, kbID)
	if err != nil {
		return nil, err
	}

	chunks, err := r.stores.Chunks.ListByKnowledgeBase(ctx, kbID)
	if err != nil {
		return nil, fmt.Errorf("failed to list chunks: %w", err)
	}

	total := len(chunks)
	r.logger.Info("reindexing started",
		"kb", kbID, "chunks", total, "batchSize", r.batchSize, "model", kb.EmbeddingModel)

	track := newTracker(r.progress, total, r.reportInterval)
	idx := vector.NewFlat(0)
	batches := 0

	for start := 0; start < total; start += r.batchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		end := min(start+r.batchSize, total)
		batch := chunks[start:end]

		if err := r.reindexBatch(ctx, kb, idx, batch); err != nil {
			return nil, err
		}
		batches++
		track.advance(len(batch))
	}

	if err := idx.Save(vector.IndexPath(r.dataDir, kbID)); err != nil {
		return nil, fmt.Errorf("failed to save index: %w", err)
	}
	r.cache.Evict(kbID)

	track.finish()
	elapsed := track.elapsed()
	r.logger.Info("reindexing complete", "kb", kbID, "chunks", total, "elapsed", elapsed)

	return &Summary{Chunks: total, Batches: batches, Elapsed: elapsed}, nil
}

// reindexBatch embeds one batch of chunks into the fresh index and updates
// the chunk records to reference the new embeddings.
func (r *Reindexer) reindexBatch(ctx context.Context, kb *core.KnowledgeBase, idx vector.Index, batch []*core.Chunk) error {
	texts := make([]string, len(batch))
	for i, c := range batch {
		texts[i] = c.Content
	}

	var embeddings [][]float32
	err := RetryWithBackoff(ctx, func() error {
		var err error
		embeddings, err = r.embedder.EmbedTexts(ctx, texts)
		return err
	}, r.maxRetries, r.retryDelay)
	if err != nil {
		return fmt.Errorf("failed to generate embeddings after %d attempts: %w", r.maxRetries, err)
	}
	if len(embeddings) != len(batch) {
		return fmt.Errorf("embedding count mismatch: expected %d, got %d", len(batch), len(embeddings))
	}

	refs := make([]vector.ChunkRef, len(batch))
	for i, c := range batch {
		refs[i] = vector.ChunkRef{ChunkId: c.Id, DocumentId: c.DocumentId, Index: c.Index}
	}
	ids, err := idx.Add(ctx, embeddings, refs)
	if err != nil {
		return fmt.Errorf("failed to index embeddings: %w", err)
	}

	for i, c := range batch {
		c.VectorId = ids[i]
		c.HasEmbedding = true
		c.EmbeddingModel = kb.EmbeddingModel
	}
	if _, err := r.stores.Chunks.UpdateChunks(ctx, batch...); err != nil {
		return fmt.Errorf("failed to update chunks: %w", err)
	}
	return nil
}
