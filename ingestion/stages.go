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
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/corvus-ai/corvus/chunker"
	"github.com/corvus-ai/corvus/core"
	"github.com/corvus-ai/corvus/vector"
)

// runDocument executes the full stage sequence for one document on a pool
// worker. It never lets a panic reach the pool.
func (p *Pipeline) runDocument(documentID core.ID) {
	defer p.finish(documentID)
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("worker panic", "document", documentID, "panic", r)
			p.fail(context.Background(), documentID, fmt.Sprintf("internal error: %v", r))
		}
	}()

	p.setPhase(documentID, phaseRunning)
	ctx := context.Background()
	start := time.Now()

	doc, err := p.stores.Documents.GetDocument(ctx, documentID)
	if err != nil {
		p.logger.Error("loading document", "document", documentID, "err", err)
		return
	}
	kb, err := p.stores.KnowledgeBases.GetKnowledgeBase(ctx, doc.KnowledgeBaseId)
	if err != nil {
		p.fail(ctx, documentID, fmt.Sprintf("loading knowledge base: %v", err))
		return
	}
	firstRun := doc.ProcessedAt.IsZero()

	if err := p.stores.Documents.SetStatus(ctx, documentID, core.DocumentStatusProcessing, ""); err != nil {
		p.logger.Error("marking document processing", "document", documentID, "err", err)
		return
	}

	// Stage 1: chunk. The only fatal stage.
	chunks, deleted, err := p.chunkStage(ctx, kb, doc)
	if err != nil {
		p.logger.Error("chunking failed", "document", documentID, "err", err)
		p.fail(ctx, documentID, err.Error())
		return
	}
	if p.checkCanceled(ctx, documentID) {
		return
	}

	vectorStored := false
	graphStored := false
	var entities []string
	triples := core.NewTripleSet()

	if len(chunks) > 0 {
		// Stage 2: embed.
		if kb.EnableVectorStore {
			embedded, err := p.embedStage(ctx, kb, chunks)
			if err != nil {
				p.logger.Warn("embedding stage degraded", "document", documentID, "err", err)
			}
			vectorStored = embedded > 0
		}
		if p.checkCanceled(ctx, documentID) {
			return
		}

		// Stage 3: extract.
		if kb.EnableExtraction {
			entities, err = p.extractStage(ctx, kb, chunks, triples)
			if err != nil {
				p.logger.Warn("extraction stage degraded", "document", documentID, "err", err)
			}
		}
		if p.checkCanceled(ctx, documentID) {
			return
		}

		// Stage 4: graph store.
		if kb.EnableGraphStore && triples.Len() > 0 {
			graphStored, err = p.graphStage(ctx, kb, triples.Triples())
			if err != nil {
				p.logger.Warn("graph stage degraded", "document", documentID, "err", err)
			}
		}
	}

	doc.ChunkCount = len(chunks)
	doc.CharCount = utf8.RuneCountInString(doc.Content)
	doc.WordCount = len(strings.Fields(doc.Content))
	doc.EntityCount = len(entities)
	doc.RelationCount = triples.Len()
	doc.VectorStored = vectorStored
	doc.GraphStored = graphStored
	doc.ProcessingTime = time.Since(start)
	doc.ProcessedAt = time.Now().UTC()
	doc.Status = core.DocumentStatusCompleted
	doc.ErrorMessage = ""

	if _, err := p.stores.Documents.UpdateDocument(ctx, doc); err != nil {
		p.logger.Error("finalizing document", "document", documentID, "err", err)
		return
	}

	docDelta := 0
	if firstRun {
		docDelta = 1
	}
	if err := p.stores.KnowledgeBases.AddCounts(ctx, kb.Id, docDelta, len(chunks)-deleted); err != nil {
		p.logger.Error("updating knowledge base counters", "kb", kb.Id, "err", err)
	}

	p.logger.Info("document processed",
		"document", documentID,
		"chunks", len(chunks),
		"entities", len(entities),
		"relations", triples.Len(),
		"elapsed", doc.ProcessingTime)
}

// chunkStage splits the document and persists the chunk records, replacing
// any chunks from a previous run. Returns the new chunks and the number of
// old chunks removed.
func (p *Pipeline) chunkStage(ctx context.Context, kb *core.KnowledgeBase, doc *core.Document) ([]*core.Chunk, int, error) {
	stageCtx, cancel := context.WithTimeout(ctx, p.stageTimeout)
	defer cancel()

	splitter, err := chunker.ForDocument(kb, doc)
	if err != nil {
		return nil, 0, &FatalStageError{Stage: "chunk", Err: err}
	}
	pieces, err := splitter.Split(doc.Content)
	if err != nil {
		return nil, 0, &FatalStageError{Stage: "chunk", Err: err}
	}

	p.removeStaleVectors(stageCtx, kb, doc)

	deleted, err := p.stores.Chunks.DeleteByDocument(stageCtx, doc.Id)
	if err != nil {
		return nil, 0, &FatalStageError{Stage: "chunk", Err: err}
	}

	chunks := make([]*core.Chunk, 0, len(pieces))
	for i, piece := range pieces {
		chunks = append(chunks, &core.Chunk{
			DocumentId: doc.Id,
			Index:      i,
			Content:    piece.Text,
			StartPos:   piece.Start,
			EndPos:     piece.End,
			CharCount:  utf8.RuneCountInString(piece.Text),
			WordCount:  len(strings.Fields(piece.Text)),
		})
	}
	if len(chunks) == 0 {
		return nil, deleted, nil
	}

	if _, err := p.stores.Chunks.AddChunks(stageCtx, chunks...); err != nil {
		return nil, deleted, &FatalStageError{Stage: "chunk", Err: err}
	}
	return chunks, deleted, nil
}

// removeStaleVectors drops the previous run's vectors from the index. The
// replacement chunks get fresh IDs, so without this the old vectors would
// linger and keep surfacing in queries. Best effort: a failure here only
// leaves stale entries behind, which retrieval already filters out.
func (p *Pipeline) removeStaleVectors(ctx context.Context, kb *core.KnowledgeBase, doc *core.Document) {
	if !kb.EnableVectorStore {
		return
	}
	old, err := p.stores.Chunks.ListByDocument(ctx, doc.Id)
	if err != nil {
		p.logger.Warn("listing previous chunks failed", "document", doc.Id, "err", err)
		return
	}
	staleIds := make([]string, 0, len(old))
	for _, c := range old {
		if c.HasEmbedding {
			staleIds = append(staleIds, c.VectorId)
		}
	}
	if len(staleIds) == 0 {
		return
	}

	idx, err := p.cache.Vector(ctx, kb)
	if err != nil {
		p.logger.Warn("stale vector cleanup skipped", "document", doc.Id, "err", err)
		return
	}
	if n := idx.Remove(staleIds...); n > 0 {
		p.logger.Debug("removed stale vectors", "document", doc.Id, "vectors", n)
		if err := p.cache.SaveVector(ctx, kb.Id); err != nil {
			p.logger.Warn("persisting vector index failed", "kb", kb.Id, "err", err)
		}
	}
}

// embedStage embeds the chunks and adds them to the knowledge base's vector
// index. A failed batch call falls back to embedding chunks one at a time;
// chunks that still fail stay embedding-absent. Returns how many chunks
// were embedded.
func (p *Pipeline) embedStage(ctx context.Context, kb *core.KnowledgeBase, chunks []*core.Chunk) (int, error) {
	stageCtx, cancel := context.WithTimeout(ctx, p.stageTimeout)
	defer cancel()

	idx, err := p.cache.Vector(stageCtx, kb)
	if err != nil {
		return 0, &PartialStageError{Stage: "embed", Err: err}
	}
	embedder := p.provider.Embedder()

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}

	var embedded []*core.Chunk
	var vectors [][]float32

	batch, err := embedder.EmbedTexts(stageCtx, texts)
	if err == nil && len(batch) == len(chunks) {
		embedded = chunks
		vectors = batch
	} else {
		if err != nil {
			p.logger.Warn("batch embedding failed, retrying per chunk", "err", err)
		} else {
			p.logger.Warn("batch embedding size mismatch, retrying per chunk",
				"expected", len(chunks), "received", len(batch))
		}
		for i, c := range chunks {
			vec, embErr := embedder.EmbedText(stageCtx, texts[i])
			if embErr != nil {
				p.logger.Warn("chunk embedding failed", "chunk", c.Id, "err", embErr)
				continue
			}
			embedded = append(embedded, c)
			vectors = append(vectors, vec)
		}
	}
	if len(embedded) == 0 {
		return 0, &PartialStageError{Stage: "embed", Err: fmt.Errorf("no chunks embedded")}
	}

	refs := make([]vector.ChunkRef, len(embedded))
	for i, c := range embedded {
		refs[i] = vector.ChunkRef{ChunkId: c.Id, DocumentId: c.DocumentId, Index: c.Index}
	}
	ids, err := idx.Add(stageCtx, vectors, refs)
	if err != nil {
		return 0, &PartialStageError{Stage: "embed", Err: err}
	}

	for i, c := range embedded {
		c.VectorId = ids[i]
		c.HasEmbedding = true
		c.EmbeddingModel = kb.EmbeddingModel
	}
	if _, err := p.stores.Chunks.UpdateChunks(stageCtx, embedded...); err != nil {
		return 0, &PartialStageError{Stage: "embed", Err: err}
	}

	if err := p.cache.SaveVector(stageCtx, kb.Id); err != nil {
		p.logger.Warn("persisting vector index failed", "kb", kb.Id, "err", err)
	}
	return len(embedded), nil
}

// extractStage extracts entities and relation triples per chunk, back-fills
// the chunk records and merges all triples into the document-level set.
// Returns the distinct entity names in first-seen order.
func (p *Pipeline) extractStage(ctx context.Context, kb *core.KnowledgeBase, chunks []*core.Chunk, triples *core.TripleSet) ([]string, error) {
	stageCtx, cancel := context.WithTimeout(ctx, p.stageTimeout)
	defer cancel()

	extractor, err := p.cache.Extractor(stageCtx, kb)
	if err != nil {
		return nil, &PartialStageError{Stage: "extract", Err: err}
	}

	var entities []string
	seen := make(map[string]struct{})
	var updated []*core.Chunk

	for _, c := range chunks {
		ext, err := extractor.Extract(stageCtx, c.Content)
		if err != nil {
			p.logger.Warn("chunk extraction failed", "chunk", c.Id, "err", err)
			continue
		}

		names := make([]string, 0, len(ext.Entities))
		for _, e := range ext.Entities {
			names = append(names, e.Name)
			if _, dup := seen[e.Name]; !dup {
				seen[e.Name] = struct{}{}
				entities = append(entities, e.Name)
			}
		}
		c.Entities = names

		rels := make([]core.Triple, 0, len(ext.Triples))
		for _, t := range ext.Triples {
			t.ChunkIds = []core.ID{c.Id}
			triples.Add(t)
			rels = append(rels, t)
		}
		c.Relations = rels
		updated = append(updated, c)
	}

	if len(updated) == 0 {
		return nil, &PartialStageError{Stage: "extract", Err: fmt.Errorf("no chunks extracted")}
	}
	if _, err := p.stores.Chunks.UpdateChunks(stageCtx, updated...); err != nil {
		return entities, &PartialStageError{Stage: "extract", Err: err}
	}
	return entities, nil
}

// graphStage merges the document's aggregated triples into the knowledge
// graph. Returns whether at least one triple landed.
func (p *Pipeline) graphStage(ctx context.Context, kb *core.KnowledgeBase, triples []core.Triple) (bool, error) {
	stageCtx, cancel := context.WithTimeout(ctx, p.stageTimeout)
	defer cancel()

	store, err := p.cache.Graph(stageCtx, kb)
	if err != nil {
		return false, &PartialStageError{Stage: "graph", Err: err}
	}

	stats, err := store.InsertTriples(stageCtx, triples)
	if err != nil {
		return false, &PartialStageError{Stage: "graph", Err: err}
	}
	if stats.Failed > 0 {
		p.logger.Warn("some triples failed to insert", "failed", stats.Failed, "succeeded", stats.Succeeded)
	}
	return stats.Succeeded > 0, nil
}

// checkCanceled fails the document when cancellation was requested between
// stages.
func (p *Pipeline) checkCanceled(ctx context.Context, documentID core.ID) bool {
	if !p.isCanceled(documentID) {
		return false
	}
	p.fail(ctx, documentID, "canceled")
	return true
}

// fail marks a document failed with an error message.
func (p *Pipeline) fail(ctx context.Context, documentID core.ID, msg string) {
	if err := p.stores.Documents.SetStatus(ctx, documentID, core.DocumentStatusFailed, msg); err != nil {
		p.logger.Error("marking document failed", "document", documentID, "err", err)
	}
}
