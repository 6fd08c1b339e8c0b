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


package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/corvus-ai/corvus/ai"
	"github.com/corvus-ai/corvus/core"
	"github.com/corvus-ai/corvus/resources"
	"github.com/corvus-ai/corvus/storage"
)

const (
	// DefaultPoolSize is the number of concurrent document workers.
	DefaultPoolSize = 4
	// DefaultStageTimeout bounds each pipeline stage of one document.
	DefaultStageTimeout = 60 * time.Second
	// defaultQueueSize bounds the submission queue feeding the pool.
	defaultQueueSize = 128
)

// docPhase tracks where an in-flight document currently is.
type docPhase int

const (
	phaseQueued docPhase = iota + 1
	phaseRunning
)

// TriggerResult reports the outcome of a Submit call. A document already in
// flight is not an error: Accepted is false and Status carries its current
// state.
type TriggerResult struct {
	Accepted bool
	Status   core.DocumentStatus
}

// PipelineStatus is the observable processing state of a document.
type PipelineStatus struct {
	Status        core.DocumentStatus
	InQueue       bool
	Running       bool
	ChunkCount    int
	EntityCount   int
	RelationCount int
	Error         string
}

// Pipeline runs submitted documents through the processing stages on a
// bounded worker pool. Submissions are dispatched in FIFO order.
type Pipeline struct {
	stores   *storage.Stores
	provider ai.AIProvider
	cache    *resources.Cache

	pool  *ants.Pool
	queue chan core.ID

	stageTimeout time.Duration
	logger       *slog.Logger

	mu       sync.Mutex
	active   map[core.ID]docPhase
	canceled map[core.ID]struct{}
	closed   bool
	submits  sync.WaitGroup

	done           chan struct{}
	dispatcherDone chan struct{}
	releaseOnce    sync.Once
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the worker pool size. Default is 4.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}
		if p.pool != nil {
			p.pool.Release()
		}
		pool, err := ants.NewPool(size, ants.WithNonblocking(true))
		if err != nil {
			return err
		}
		p.pool = pool
		return nil
	}
}

// WithStageTimeout bounds each stage of one document run. Default is 60s.
func WithStageTimeout(d time.Duration) Option {
	return func(p *Pipeline) error {
		if d <= 0 {
			return fmt.Errorf("stage timeout must be positive")
		}
		p.stageTimeout = d
		return nil
	}
}

// WithLogger sets a custom logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates a document processing pipeline.
func NewPipeline(stores *storage.Stores, provider ai.AIProvider, cache *resources.Cache, opts ...Option) (*Pipeline, error) {
	if stores == nil {
		return nil, ErrStoresRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}
	if cache == nil {
		return nil, ErrCacheRequired
	}

	pool, err := ants.NewPool(DefaultPoolSize, ants.WithNonblocking(true))
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		stores:         stores,
		provider:       provider,
		cache:          cache,
		pool:           pool,
		queue:          make(chan core.ID, defaultQueueSize),
		stageTimeout:   DefaultStageTimeout,
		logger:         slog.Default(),
		active:         make(map[core.ID]docPhase),
		canceled:       make(map[core.ID]struct{}),
		done:           make(chan struct{}),
		dispatcherDone: make(chan struct{}),
	}

	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.pool.Release()
			return nil, optErr
		}
	}
	p.logger = p.logger.With("component", "ingestion")

	go p.dispatch()

	return p, nil
}

// dispatch feeds queued documents to the pool one at a time, which preserves
// submission order. A full pool is polled rather than blocked on so shutdown
// stays responsive.
func (p *Pipeline) dispatch() {
	defer close(p.dispatcherDone)
	for {
		select {
		case <-p.done:
			return
		case id, ok := <-p.queue:
			if !ok {
				return
			}
			if !p.dispatchOne(id) {
				return
			}
		}
	}
}

// dispatchOne hands a document to the pool, waiting out a saturated pool.
// Returns false when the pipeline shut down during the wait.
func (p *Pipeline) dispatchOne(docID core.ID) bool {
	for {
		err := p.pool.Submit(func() { p.runDocument(docID) })
		if err == nil {
			return true
		}
		if !errors.Is(err, ants.ErrPoolOverload) {
			p.logger.Error("worker submission failed", "document", docID, "err", err)
			p.finish(docID)
			return true
		}
		select {
		case <-p.done:
			p.finish(docID)
			return false
		case <-time.After(5 * time.Millisecond):
		}
	}
}

// Submit queues a document for processing. A document that is already
// queued or running is not queued twice; the result reports its current
// status with Accepted=false.
func (p *Pipeline) Submit(ctx context.Context, documentID core.ID) (TriggerResult, error) {
	doc, err := p.stores.Documents.GetDocument(ctx, documentID)
	if err != nil {
		return TriggerResult{}, err
	}
	if _, err := p.stores.KnowledgeBases.GetKnowledgeBase(ctx, doc.KnowledgeBaseId); err != nil {
		return TriggerResult{}, fmt.Errorf("loading knowledge base %d: %w", doc.KnowledgeBaseId, err)
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return TriggerResult{}, ErrPipelineClosed
	}
	if _, inFlight := p.active[documentID]; inFlight {
		p.mu.Unlock()
		return TriggerResult{Accepted: false, Status: doc.Status}, nil
	}
	p.active[documentID] = phaseQueued
	delete(p.canceled, documentID)
	p.submits.Add(1)
	p.mu.Unlock()
	defer p.submits.Done()

	select {
	case p.queue <- documentID:
		return TriggerResult{Accepted: true, Status: doc.Status}, nil
	case <-p.done:
		p.finish(documentID)
		return TriggerResult{}, ErrPipelineClosed
	case <-ctx.Done():
		p.finish(documentID)
		return TriggerResult{}, ctx.Err()
	}
}

// Status reports the processing state of a document.
func (p *Pipeline) Status(ctx context.Context, documentID core.ID) (*PipelineStatus, error) {
	doc, err := p.stores.Documents.GetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	phase, inFlight := p.active[documentID]
	p.mu.Unlock()

	return &PipelineStatus{
		Status:        doc.Status,
		InQueue:       inFlight && phase == phaseQueued,
		Running:       inFlight && phase == phaseRunning,
		ChunkCount:    doc.ChunkCount,
		EntityCount:   doc.EntityCount,
		RelationCount: doc.RelationCount,
		Error:         doc.ErrorMessage,
	}, nil
}

// Cancel requests cancellation of an in-flight document. The flag is
// consulted between stages; the current stage finishes first. Returns false
// when the document is not in flight.
func (p *Pipeline) Cancel(documentID core.ID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, inFlight := p.active[documentID]; !inFlight {
		return false
	}
	p.canceled[documentID] = struct{}{}
	return true
}

// Wait blocks until no documents are queued or running. Test helper and
// shutdown aid; new submissions during the wait extend it.
func (p *Pipeline) Wait(ctx context.Context) error {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for {
		p.mu.Lock()
		idle := len(p.active) == 0
		p.mu.Unlock()
		if idle {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Release stops the dispatcher and the worker pool. Queued documents that
// have not started are dropped; Submit calls blocked on a full queue return
// ErrPipelineClosed. The pipeline must not be used afterwards.
func (p *Pipeline) Release() {
	p.releaseOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		p.mu.Unlock()

		// Unblock pending Submits and the dispatcher, then wait until no
		// Submit can touch the queue before closing it.
		close(p.done)
		p.submits.Wait()
		close(p.queue)
		<-p.dispatcherDone

		// Drop whatever the dispatcher never picked up.
		for id := range p.queue {
			p.finish(id)
		}
		p.pool.Release()
	})
}

// setPhase transitions an in-flight document's phase.
func (p *Pipeline) setPhase(documentID core.ID, phase docPhase) {
	p.mu.Lock()
	p.active[documentID] = phase
	p.mu.Unlock()
}

// finish removes a document from the in-flight set.
func (p *Pipeline) finish(documentID core.ID) {
	p.mu.Lock()
	delete(p.active, documentID)
	delete(p.canceled, documentID)
	p.mu.Unlock()
}

// isCanceled reports whether cancellation was requested for a document.
func (p *Pipeline) isCanceled(documentID core.ID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.canceled[documentID]
	return ok
}
