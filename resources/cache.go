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


package resources

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/corvus-ai/corvus/ai"
	"github.com/corvus-ai/corvus/core"
	"github.com/corvus-ai/corvus/graph"
	"github.com/corvus-ai/corvus/graph/memgraph"
	"github.com/corvus-ai/corvus/vector"
)

var (
	// ErrFeatureDisabled indicates the knowledge base has the requested
	// resource kind switched off.
	ErrFeatureDisabled = errors.New("feature disabled for knowledge base")
	// ErrNoExtractorFactory indicates the cache was built without an
	// extraction provider.
	ErrNoExtractorFactory = errors.New("no extractor factory configured")
)

// VectorFactory constructs a vector index for a knowledge base.
type VectorFactory func(ctx context.Context, kb *core.KnowledgeBase) (vector.Index, error)

// GraphFactory constructs a graph store for a knowledge base.
type GraphFactory func(ctx context.Context, kb *core.KnowledgeBase) (graph.Store, error)

// ExtractorFactory constructs an entity extractor for a knowledge base.
type ExtractorFactory func(ctx context.Context, kb *core.KnowledgeBase) (ai.EntityExtractor, error)

// Cache hands out per-knowledge-base resource handles. Construction of each
// (kind, knowledge base) pair runs at most once at a time via singleflight;
// successful handles are memoized, errors are returned to every waiter and
// never cached.
type Cache struct {
	dataDir string
	logger  *slog.Logger

	group singleflight.Group

	mu         sync.Mutex
	vectors    map[core.ID]vector.Index
	graphs     map[core.ID]graph.Store
	extractors map[core.ID]ai.EntityExtractor
	saveLocks  map[core.ID]*sync.Mutex

	newVector    VectorFactory
	newGraph     GraphFactory
	newExtractor ExtractorFactory
}

// Option configures a Cache.
type Option func(*Cache)

// WithVectorFactory overrides how vector indexes are constructed.
func WithVectorFactory(f VectorFactory) Option {
	return func(c *Cache) { c.newVector = f }
}

// WithGraphFactory overrides how graph stores are constructed.
func WithGraphFactory(f GraphFactory) Option {
	return func(c *Cache) { c.newGraph = f }
}

// WithExtractorFactory overrides how entity extractors are constructed.
func WithExtractorFactory(f ExtractorFactory) Option {
	return func(c *Cache) { c.newExtractor = f }
}

// WithProvider wires the extractor factory to a shared AI provider.
func WithProvider(provider ai.AIProvider) Option {
	return func(c *Cache) {
		c.newExtractor = func(ctx context.Context, kb *core.KnowledgeBase) (ai.EntityExtractor, error) {
			return provider.EntityExtractor(), nil
		}
	}
}

// New creates a resource cache rooted at dataDir. Without options the cache
// loads flat vector indexes from disk and builds in-process graph stores;
// extractor construction requires WithProvider or WithExtractorFactory.
func New(dataDir string, logger *slog.Logger, opts ...Option) *Cache {
	if logger == nil {
		logger = slog.Default()
	}

	c := &Cache{
		dataDir:    dataDir,
		logger:     logger.With("component", "resources"),
		vectors:    make(map[core.ID]vector.Index),
		graphs:     make(map[core.ID]graph.Store),
		extractors: make(map[core.ID]ai.EntityExtractor),
		saveLocks:  make(map[core.ID]*sync.Mutex),
	}

	c.newVector = func(ctx context.Context, kb *core.KnowledgeBase) (vector.Index, error) {
		idx := vector.NewFlat(0)
		path := vector.IndexPath(c.dataDir, kb.Id)
		if _, err := os.Stat(path); err == nil {
			if err := idx.Load(path); err != nil {
				return nil, err
			}
			c.logger.Debug("loaded vector index", "kb", kb.Id, "vectors", idx.Len())
		}
		return idx, nil
	}
	c.newGraph = func(ctx context.Context, kb *core.KnowledgeBase) (graph.Store, error) {
		return memgraph.New(), nil
	}

	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Vector returns the knowledge base's vector index, constructing it on
// first use.
func (c *Cache) Vector(ctx context.Context, kb *core.KnowledgeBase) (vector.Index, error) {
	if !kb.EnableVectorStore {
		return nil, fmt.Errorf("%w: vector store, kb %d", ErrFeatureDisabled, kb.Id)
	}

	c.mu.Lock()
	if idx, ok := c.vectors[kb.Id]; ok {
		c.mu.Unlock()
		return idx, nil
	}
	c.mu.Unlock()

	v, err, _ := c.group.Do(fmt.Sprintf("vector:%d", kb.Id), func() (any, error) {
		c.mu.Lock()
		if idx, ok := c.vectors[kb.Id]; ok {
			c.mu.Unlock()
			return idx, nil
		}
		c.mu.Unlock()

		idx, err := c.newVector(ctx, kb)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.vectors[kb.Id] = idx
		c.mu.Unlock()
		return idx, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(vector.Index), nil
}

// Graph returns the knowledge base's graph store, constructing it on first
// use.
func (c *Cache) Graph(ctx context.Context, kb *core.KnowledgeBase) (graph.Store, error) {
	if !kb.EnableGraphStore {
		return nil, fmt.Errorf("%w: graph store, kb %d", ErrFeatureDisabled, kb.Id)
	}

	c.mu.Lock()
	if g, ok := c.graphs[kb.Id]; ok {
		c.mu.Unlock()
		return g, nil
	}
	c.mu.Unlock()

	v, err, _ := c.group.Do(fmt.Sprintf("graph:%d", kb.Id), func() (any, error) {
		c.mu.Lock()
		if g, ok := c.graphs[kb.Id]; ok {
			c.mu.Unlock()
			return g, nil
		}
		c.mu.Unlock()

		g, err := c.newGraph(ctx, kb)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.graphs[kb.Id] = g
		c.mu.Unlock()
		return g, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(graph.Store), nil
}

// Extractor returns the knowledge base's entity extractor, constructing it
// on first use.
func (c *Cache) Extractor(ctx context.Context, kb *core.KnowledgeBase) (ai.EntityExtractor, error) {
	if !kb.EnableExtraction {
		return nil, fmt.Errorf("%w: extraction, kb %d", ErrFeatureDisabled, kb.Id)
	}
	if c.newExtractor == nil {
		return nil, ErrNoExtractorFactory
	}

	c.mu.Lock()
	if e, ok := c.extractors[kb.Id]; ok {
		c.mu.Unlock()
		return e, nil
	}
	c.mu.Unlock()

	v, err, _ := c.group.Do(fmt.Sprintf("extractor:%d", kb.Id), func() (any, error) {
		c.mu.Lock()
		if e, ok := c.extractors[kb.Id]; ok {
			c.mu.Unlock()
			return e, nil
		}
		c.mu.Unlock()

		e, err := c.newExtractor(ctx, kb)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.extractors[kb.Id] = e
		c.mu.Unlock()
		return e, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(ai.EntityExtractor), nil
}

// SaveVector persists the knowledge base's cached vector index. Concurrent
// saves for the same knowledge base serialize on a per-KB mutex so a slow
// write cannot be overwritten by an older snapshot mid-flight. Saving a
// knowledge base with no cached index is a no-op.
func (c *Cache) SaveVector(ctx context.Context, kbID core.ID) error {
	c.mu.Lock()
	idx, ok := c.vectors[kbID]
	if !ok {
		c.mu.Unlock()
		return nil
	}
	lock, ok := c.saveLocks[kbID]
	if !ok {
		lock = &sync.Mutex{}
		c.saveLocks[kbID] = lock
	}
	c.mu.Unlock()

	lock.Lock()
	defer lock.Unlock()
	return idx.Save(vector.IndexPath(c.dataDir, kbID))
}

// Evict drops all cached resources of a knowledge base. The graph store is
// closed since it may hold external connections.
func (c *Cache) Evict(kbID core.ID) {
	c.mu.Lock()
	g := c.graphs[kbID]
	delete(c.vectors, kbID)
	delete(c.graphs, kbID)
	delete(c.extractors, kbID)
	delete(c.saveLocks, kbID)
	c.mu.Unlock()

	if g != nil {
		if err := g.Close(context.Background()); err != nil {
			c.logger.Warn("closing evicted graph store", "kb", kbID, "error", err)
		}
	}
}
