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

// Package corvus wires storage, AI services, ingestion, retrieval and chat
// into one engine over a single data directory.
package corvus

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/corvus-ai/corvus/ai"
	"github.com/corvus-ai/corvus/ai/openai"
	"github.com/corvus-ai/corvus/chat"
	"github.com/corvus-ai/corvus/core"
	"github.com/corvus-ai/corvus/graph"
	"github.com/corvus-ai/corvus/graph/neo4jgraph"
	"github.com/corvus-ai/corvus/ingestion"
	"github.com/corvus-ai/corvus/reindex"
	"github.com/corvus-ai/corvus/resources"
	"github.com/corvus-ai/corvus/retrieval"
	"github.com/corvus-ai/corvus/storage"
	"github.com/corvus-ai/corvus/storage/badger"
)

// Engine is the assembled system: badger-backed stores, an AI provider, the
// per-knowledge-base resource cache, the ingestion pipeline, the retrieval
// engine and the chat assembler, all sharing one data directory.
type Engine struct {
	dataDir   string
	backend   *badger.Backend
	stores    *storage.Stores
	provider  ai.AIProvider
	cache     *resources.Cache
	pipeline  *ingestion.Pipeline
	retriever *retrieval.Engine
	assembler *chat.Assembler
	logger    *slog.Logger
}

// Option configures an Engine.
type Option func(*engineOptions)

type engineOptions struct {
	aiConfig *ai.Config
	provider ai.AIProvider
	logger   *slog.Logger
	poolSize int
	inMemory bool
	neo4j    *neo4jgraph.Config
}

// WithAIConfig sets the AI service configuration used when no provider is
// injected.
func WithAIConfig(cfg *ai.Config) Option {
	return func(o *engineOptions) {
		if cfg != nil {
			o.aiConfig = cfg
		}
	}
}

// WithProvider injects an AI provider, bypassing the default OpenAI-
// compatible one. The engine takes ownership and closes it on Close.
func WithProvider(p ai.AIProvider) Option {
	return func(o *engineOptions) { o.provider = p }
}

// WithLogger sets a custom logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *engineOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithPoolSize sets the ingestion worker pool size.
func WithPoolSize(n int) Option {
	return func(o *engineOptions) {
		if n > 0 {
			o.poolSize = n
		}
	}
}

// WithInMemory keeps all storage in memory. Vector indexes are still written
// under the data directory.
func WithInMemory() Option {
	return func(o *engineOptions) { o.inMemory = true }
}

// WithNeo4j backs graph storage with a Neo4j server instead of the
// in-process store.
func WithNeo4j(cfg neo4jgraph.Config) Option {
	return func(o *engineOptions) { o.neo4j = &cfg }
}

// Open assembles an engine over dataDir. The badger database lives under
// dataDir/db and vector indexes under dataDir/indexes.
func Open(dataDir string, opts ...Option) (*Engine, error) {
	options := &engineOptions{
		aiConfig: ai.DefaultConfig(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}
	logger := options.logger

	backend, err := badger.OpenBackend(filepath.Join(dataDir, "db"), options.inMemory)
	if err != nil {
		return nil, err
	}

	stores, err := badger.NewStores(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	provider := options.provider
	if provider == nil {
		provider, err = openai.NewProvider(options.aiConfig)
		if err != nil {
			stores.Close()
			backend.Close()
			return nil, err
		}
	}

	cacheOpts := []resources.Option{resources.WithProvider(provider)}
	if options.neo4j != nil {
		cfg := *options.neo4j
		cacheOpts = append(cacheOpts, resources.WithGraphFactory(
			func(ctx context.Context, kb *core.KnowledgeBase) (graph.Store, error) {
				return neo4jgraph.New(ctx, cfg, logger)
			}))
	}
	cache := resources.New(dataDir, logger, cacheOpts...)

	var pipelineOpts []ingestion.Option
	pipelineOpts = append(pipelineOpts, ingestion.WithLogger(logger))
	if options.poolSize > 0 {
		pipelineOpts = append(pipelineOpts, ingestion.WithPoolSize(options.poolSize))
	}
	pipeline, err := ingestion.NewPipeline(stores, provider, cache, pipelineOpts...)
	if err != nil {
		provider.Close()
		stores.Close()
		backend.Close()
		return nil, err
	}

	retriever, err := retrieval.NewEngine(stores, cache, provider, retrieval.WithLogger(logger))
	if err != nil {
		pipeline.Release()
		provider.Close()
		stores.Close()
		backend.Close()
		return nil, err
	}

	assembler, err := chat.NewAssembler(stores, retriever, provider, chat.WithLogger(logger))
	if err != nil {
		pipeline.Release()
		provider.Close()
		stores.Close()
		backend.Close()
		return nil, err
	}

	return &Engine{
		dataDir:   dataDir,
		backend:   backend,
		stores:    stores,
		provider:  provider,
		cache:     cache,
		pipeline:  pipeline,
		retriever: retriever,
		assembler: assembler,
		logger:    logger,
	}, nil
}

// Close tears the engine down in reverse dependency order. In-flight
// ingestion work is drained first.
func (e *Engine) Close() error {
	e.pipeline.Release()

	if err := e.provider.Close(); err != nil {
		e.logger.Error("error closing AI provider", "err", err)
	}

	if err := e.stores.Close(); err != nil {
		e.logger.Error("error closing stores", "err", err)
		return err
	}
	if err := e.backend.Close(); err != nil {
		e.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}

// Stores exposes the persistence layer.
func (e *Engine) Stores() *storage.Stores {
	return e.stores
}

// Provider exposes the AI services.
func (e *Engine) Provider() ai.AIProvider {
	return e.provider
}

// Cache exposes the per-knowledge-base resource cache.
func (e *Engine) Cache() *resources.Cache {
	return e.cache
}

// Pipeline exposes the ingestion pipeline.
func (e *Engine) Pipeline() *ingestion.Pipeline {
	return e.pipeline
}

// Retriever exposes the hybrid retrieval engine.
func (e *Engine) Retriever() *retrieval.Engine {
	return e.retriever
}

// Assembler exposes the chat turn assembler.
func (e *Engine) Assembler() *chat.Assembler {
	return e.assembler
}

// NewReindexer creates a reindexer bound to the engine's stores and cache.
func (e *Engine) NewReindexer(opts ...reindex.Option) (*reindex.Reindexer, error) {
	opts = append([]reindex.Option{reindex.WithLogger(e.logger)}, opts...)
	return reindex.NewReindexer(e.dataDir, e.stores, e.cache, e.provider, opts...)
}
