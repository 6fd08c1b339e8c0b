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
	"log/slog"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/corvus-ai/corvus/ai"
	"github.com/corvus-ai/corvus/core"
	"github.com/corvus-ai/corvus/resources"
	"github.com/corvus-ai/corvus/storage"
	"github.com/corvus-ai/corvus/vector"
)

// DefaultTopK is the result limit when the caller does not set one.
const DefaultTopK = 5

// Options selects which retrieval halves run and how many results to keep.
type Options struct {
	TopK      int
	UseVector bool
	UseGraph  bool
}

// Result is the outcome of one retrieval call.
type Result struct {
	Chunks   []core.RetrievalResult
	Entities []core.GraphEntityResult
}

// Engine runs hybrid retrieval over a knowledge base: vector similarity on
// embedded chunks and entity matching over the extracted graph evidence.
// Either half failing degrades to an empty half rather than failing the
// search.
type Engine struct {
	stores   *storage.Stores
	cache    *resources.Cache
	embedder ai.Embedder
	logger   *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine) error

// WithLogger sets a custom logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) error {
		if logger == nil {
			logger = slog.Default()
		}
		e.logger = logger
		return nil
	}
}

// NewEngine creates a retrieval engine.
func NewEngine(stores *storage.Stores, cache *resources.Cache, provider ai.AIProvider, opts ...Option) (*Engine, error) {
	if stores == nil {
		return nil, ErrStoresRequired
	}
	if cache == nil {
		return nil, ErrCacheRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	e := &Engine{
		stores:   stores,
		cache:    cache,
		embedder: provider.Embedder(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	e.logger = e.logger.With("component", "retrieval")
	return e, nil
}

// Search retrieves chunks and graph entities relevant to the query.
func (e *Engine) Search(ctx context.Context, kbID core.ID, query string, opts Options) (*Result, error) {
	return e.SearchWithMonitor(ctx, kbID, query, opts, nil)
}

// SearchWithMonitor is Search with observation hooks.
func (e *Engine) SearchWithMonitor(ctx context.Context, kbID core.ID, query string, opts Options, monitor Monitor) (*Result, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	monitor.Start(query)

	if !opts.UseVector && !opts.UseGraph {
		return &Result{}, nil
	}
	if opts.TopK <= 0 {
		opts.TopK = DefaultTopK
	}

	kb, err := e.stores.KnowledgeBases.GetKnowledgeBase(ctx, kbID)
	if err != nil {
		return nil, err
	}

	var (
		vectorHits    []vector.Hit
		graphEntities []core.GraphEntityResult
	)

	g, gctx := errgroup.WithContext(ctx)
	if opts.UseVector {
		g.Go(func() error {
			hits, err := e.vectorHalf(gctx, kb, query, opts.TopK)
			if err != nil {
				e.logger.Warn("vector half degraded", "kb", kbID, "err", err)
				return nil
			}
			vectorHits = hits
			monitor.AfterVectorSearch(hits)
			return nil
		})
	}
	if opts.UseGraph {
		g.Go(func() error {
			entities, err := e.graphHalf(gctx, kbID, query)
			if err != nil {
				e.logger.Warn("graph half degraded", "kb", kbID, "err", err)
				return nil
			}
			graphEntities = entities
			monitor.AfterGraphMatch(entities)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result, err := e.merge(ctx, vectorHits, graphEntities, opts.TopK)
	if err != nil {
		return nil, err
	}
	monitor.Finish(result.Chunks)
	return result, nil
}

// vectorHalf embeds the query and asks the knowledge base's index for the
// nearest chunks.
func (e *Engine) vectorHalf(ctx context.Context, kb *core.KnowledgeBase, query string, topK int) ([]vector.Hit, error) {
	idx, err := e.cache.Vector(ctx, kb)
	if err != nil {
		return nil, err
	}
	embedding, err := e.embedder.EmbedText(ctx, query)
	if err != nil {
		return nil, err
	}
	return idx.Query(ctx, embedding, topK)
}

// merge combines the two halves into ranked results. Vector hits that also
// appear as graph evidence are marked as coming from both sources; their
// vector score stands. Graph-only evidence chunks enter with their entity's
// relevance score. Duplicates keep the highest score.
func (e *Engine) merge(ctx context.Context, hits []vector.Hit, entities []core.GraphEntityResult, topK int) (*Result, error) {
	// Graph evidence: chunk id -> best entity relevance.
	evidence := make(map[core.ID]float32)
	for _, ent := range entities {
		for _, id := range ent.ChunkIds {
			if ent.Relevance > evidence[id] {
				evidence[id] = ent.Relevance
			}
		}
	}

	byChunk := make(map[core.ID]*core.RetrievalResult)
	var order []core.ID

	for _, hit := range hits {
		source := core.SourceVector
		if _, both := evidence[hit.Ref.ChunkId]; both {
			source = core.SourceBoth
		}
		if existing, ok := byChunk[hit.Ref.ChunkId]; ok {
			if hit.Score > existing.Score {
				existing.Score = hit.Score
			}
			continue
		}
		byChunk[hit.Ref.ChunkId] = &core.RetrievalResult{
			ChunkId:    hit.Ref.ChunkId,
			DocumentId: hit.Ref.DocumentId,
			Index:      hit.Ref.Index,
			Score:      clampScore(hit.Score),
			Source:     source,
		}
		order = append(order, hit.Ref.ChunkId)
	}

	for id, relevance := range evidence {
		// A chunk that is already a vector hit keeps its vector score.
		if _, ok := byChunk[id]; ok {
			continue
		}
		byChunk[id] = &core.RetrievalResult{
			ChunkId: id,
			Score:   clampScore(relevance),
			Source:  core.SourceGraph,
		}
		order = append(order, id)
	}

	if len(order) == 0 {
		return &Result{Entities: entities}, nil
	}

	// Fill in chunk content and annotations.
	chunks, err := e.stores.Chunks.GetChunks(ctx, order...)
	if err != nil {
		return nil, err
	}
	found := make(map[core.ID]struct{}, len(chunks))
	for _, c := range chunks {
		r := byChunk[c.Id]
		r.DocumentId = c.DocumentId
		r.Index = c.Index
		r.Content = c.Content
		r.Entities = c.Entities
		r.Relations = c.Relations
		found[c.Id] = struct{}{}
	}

	results := make([]core.RetrievalResult, 0, len(order))
	for _, id := range order {
		// Drop hits whose chunk no longer exists (stale index entry).
		if _, ok := found[id]; !ok {
			continue
		}
		results = append(results, *byChunk[id])
	}

	slices.SortFunc(results, func(a, b core.RetrievalResult) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		}
		return a.Index - b.Index
	})
	if len(results) > topK {
		results = results[:topK]
	}

	return &Result{Chunks: results, Entities: entities}, nil
}

func clampScore(s float32) float32 {
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}
