package retrieval

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corvus-ai/corvus/ai/mock"
	"github.com/corvus-ai/corvus/core"
	"github.com/corvus-ai/corvus/resources"
	"github.com/corvus-ai/corvus/storage"
	"github.com/corvus-ai/corvus/storage/badger"
	"github.com/corvus-ai/corvus/vector"
)

type engineFixture struct {
	stores   *storage.Stores
	embedder *mock.MockEmbedder
	cache    *resources.Cache
	engine   *Engine
	kb       *core.KnowledgeBase
	doc      *core.Document
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()
	ctx := context.Background()

	stores, backend, err := badger.NewMemoryStores()
	require.NoError(t, err)
	t.Cleanup(func() {
		stores.Close()
		backend.Close()
	})

	embedder := mock.NewMockEmbedder()
	provider := mock.NewMockProviderWithServices(embedder, mock.NewMockExtractor(), mock.NewMockCompleter())
	cache := resources.New(t.TempDir(), nil, resources.WithProvider(provider))

	engine, err := NewEngine(stores, cache, provider)
	require.NoError(t, err)

	kb, err := stores.KnowledgeBases.AddKnowledgeBase(ctx, &core.KnowledgeBase{
		Name:              "test kb",
		EnableVectorStore: true,
		EnableGraphStore:  true,
		EnableExtraction:  true,
	})
	require.NoError(t, err)

	doc, err := stores.Documents.AddDocument(ctx, &core.Document{
		KnowledgeBaseId: kb.Id,
		Content:         "placeholder",
	})
	require.NoError(t, err)

	return &engineFixture{
		stores:   stores,
		embedder: embedder,
		cache:    cache,
		engine:   engine,
		kb:       kb,
		doc:      doc,
	}
}

// addChunk stores a chunk and embeds its content into the vector index.
func (f *engineFixture) addChunk(t *testing.T, index int, content string, entities []string, relations []core.Triple) *core.Chunk {
	t.Helper()
	ctx := context.Background()

	chunks, err := f.stores.Chunks.AddChunks(ctx, &core.Chunk{
		DocumentId: f.doc.Id,
		Index:      index,
		Content:    content,
		Entities:   entities,
		Relations:  relations,
	})
	require.NoError(t, err)
	c := chunks[0]

	idx, err := f.cache.Vector(ctx, f.kb)
	require.NoError(t, err)
	vec, err := f.embedder.EmbedText(ctx, content)
	require.NoError(t, err)
	_, err = idx.Add(ctx, [][]float32{vec}, []vector.ChunkRef{
		{ChunkId: c.Id, DocumentId: c.DocumentId, Index: c.Index},
	})
	require.NoError(t, err)
	return c
}

func TestEngine_BothFlagsOff(t *testing.T) {
	f := newEngineFixture(t)

	result, err := f.engine.Search(context.Background(), f.kb.Id, "anything", Options{})
	require.NoError(t, err)
	assert.Empty(t, result.Chunks)
	assert.Empty(t, result.Entities)
}

func TestEngine_UnknownKnowledgeBase(t *testing.T) {
	f := newEngineFixture(t)

	_, err := f.engine.Search(context.Background(), 999, "query", Options{UseVector: true})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestEngine_VectorSearch(t *testing.T) {
	f := newEngineFixture(t)
	f.addChunk(t, 0, "Machine learning is a subfield of artificial intelligence.", nil, nil)
	f.addChunk(t, 1, "Bread is baked from flour, water and salt.", nil, nil)

	result, err := f.engine.Search(context.Background(), f.kb.Id,
		"Machine learning is a subfield of artificial intelligence.",
		Options{UseVector: true, TopK: 2})
	require.NoError(t, err)
	require.NotEmpty(t, result.Chunks)

	// Identical text embeds identically, so the first chunk is an exact hit.
	top := result.Chunks[0]
	assert.Equal(t, 0, top.Index)
	assert.InDelta(t, 1.0, float64(top.Score), 1e-5)
	assert.Equal(t, core.SourceVector, top.Source)
	for i := 1; i < len(result.Chunks); i++ {
		assert.LessOrEqual(t, result.Chunks[i].Score, result.Chunks[i-1].Score)
	}
}

func TestEngine_GraphScenario(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	rel := core.Triple{
		Subject:     "张三",
		SubjectType: core.EntityPerson,
		Predicate:   "工作于",
		Object:      "腾讯",
		ObjectType:  core.EntityOrganization,
		Confidence:  0.9,
	}
	c := f.addChunk(t, 0, "张三在腾讯工作。", []string{"张三", "腾讯"}, []core.Triple{rel})

	result, err := f.engine.Search(ctx, f.kb.Id, "张三", Options{UseGraph: true, TopK: 5})
	require.NoError(t, err)

	require.NotEmpty(t, result.Entities)
	top := result.Entities[0]
	assert.Equal(t, "张三", top.Name)
	assert.Equal(t, core.EntityPerson, top.Type)
	// Exact match 1.0 stays capped at 1.0 with evidence bonuses.
	assert.InDelta(t, 1.0, float64(top.Relevance), 1e-6)
	require.Len(t, top.Related, 1)
	assert.Equal(t, "腾讯", top.Related[0].Name)
	assert.Equal(t, "工作于", top.Related[0].Relation)

	require.Len(t, result.Chunks, 1)
	assert.Equal(t, c.Id, result.Chunks[0].ChunkId)
	assert.Equal(t, core.SourceGraph, result.Chunks[0].Source)
	assert.Equal(t, "张三在腾讯工作。", result.Chunks[0].Content)
}

func TestEngine_RelationsBeforeEntityMention(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	// The relation lives in an earlier chunk than the entity's only mention
	// in an entity list. Matching must not depend on chunk order.
	rel := core.Triple{
		Subject:     "Alice",
		SubjectType: core.EntityPerson,
		Predicate:   "works_at",
		Object:      "Acme",
		ObjectType:  core.EntityOrganization,
	}
	relChunk := f.addChunk(t, 0, "Alice works at Acme.", []string{"Acme"}, []core.Triple{rel})
	entChunk := f.addChunk(t, 1, "Alice presented the quarterly report.", []string{"Alice"}, nil)

	result, err := f.engine.Search(ctx, f.kb.Id, "Alice", Options{UseGraph: true, TopK: 5})
	require.NoError(t, err)
	require.NotEmpty(t, result.Entities)

	var alice *core.GraphEntityResult
	for i := range result.Entities {
		if result.Entities[i].Name == "Alice" {
			alice = &result.Entities[i]
		}
	}
	require.NotNil(t, alice)
	assert.Equal(t, core.EntityPerson, alice.Type)
	require.Len(t, alice.Related, 1)
	assert.Equal(t, "Acme", alice.Related[0].Name)
	assert.Equal(t, "works_at", alice.Related[0].Relation)

	// The relation-bearing chunk counts as evidence alongside the chunk
	// that lists the entity.
	assert.ElementsMatch(t, []core.ID{entChunk.Id, relChunk.Id}, alice.ChunkIds)
	// Exact match 1.0 + one relation 0.1 + two chunks 0.1, capped.
	assert.InDelta(t, 1.0, float64(alice.Relevance), 1e-6)
}

func TestEngine_SubstringMatchScoresLower(t *testing.T) {
	f := newEngineFixture(t)

	f.addChunk(t, 0, "Acme Corporation builds anvils.", []string{"Acme Corporation"}, nil)

	result, err := f.engine.Search(context.Background(), f.kb.Id, "acme", Options{UseGraph: true})
	require.NoError(t, err)
	require.Len(t, result.Entities, 1)

	// Substring base 0.7 + one evidence chunk 0.05.
	assert.InDelta(t, 0.75, float64(result.Entities[0].Relevance), 1e-6)
}

func TestEngine_HybridMarksBothSources(t *testing.T) {
	f := newEngineFixture(t)
	content := "张三在腾讯工作。"
	f.addChunk(t, 0, content, []string{"张三"}, nil)

	result, err := f.engine.Search(context.Background(), f.kb.Id, content,
		Options{UseVector: true, UseGraph: true, TopK: 5})
	require.NoError(t, err)
	require.NotEmpty(t, result.Chunks)

	// The query embeds to an exact vector hit, and "张三" is a substring
	// match in the graph half, so the chunk comes from both sources.
	assert.Equal(t, core.SourceBoth, result.Chunks[0].Source)
	assert.InDelta(t, 1.0, float64(result.Chunks[0].Score), 1e-5)
}

func TestEngine_VectorFailureDegrades(t *testing.T) {
	f := newEngineFixture(t)
	f.addChunk(t, 0, "some indexed text", []string{"Widget"}, nil)

	f.embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return nil, errors.New("embedding service down")
	}

	result, err := f.engine.Search(context.Background(), f.kb.Id, "widget",
		Options{UseVector: true, UseGraph: true})
	require.NoError(t, err)

	// Vector half is empty, graph half still answers.
	require.Len(t, result.Entities, 1)
	assert.Equal(t, "Widget", result.Entities[0].Name)
	require.Len(t, result.Chunks, 1)
	assert.Equal(t, core.SourceGraph, result.Chunks[0].Source)
}

func TestEngine_TopKTruncation(t *testing.T) {
	f := newEngineFixture(t)
	for i := 0; i < 8; i++ {
		f.addChunk(t, i, "similar content variant", nil, nil)
	}

	result, err := f.engine.Search(context.Background(), f.kb.Id, "similar content variant",
		Options{UseVector: true, TopK: 3})
	require.NoError(t, err)
	assert.Len(t, result.Chunks, 3)
}

func TestEngine_MonitorHooks(t *testing.T) {
	f := newEngineFixture(t)
	f.addChunk(t, 0, "observed content", []string{"observed"}, nil)

	m := &recordingMonitor{}
	_, err := f.engine.SearchWithMonitor(context.Background(), f.kb.Id, "observed",
		Options{UseVector: true, UseGraph: true}, m)
	require.NoError(t, err)

	assert.Equal(t, "observed", m.query)
	assert.True(t, m.vectorCalled)
	assert.True(t, m.graphCalled)
	assert.True(t, m.finished)
}

type recordingMonitor struct {
	query        string
	vectorCalled bool
	graphCalled  bool
	finished     bool
}

func (m *recordingMonitor) Start(query string)                            { m.query = query }
func (m *recordingMonitor) AfterVectorSearch(_ []vector.Hit)              { m.vectorCalled = true }
func (m *recordingMonitor) AfterGraphMatch(_ []core.GraphEntityResult)    { m.graphCalled = true }
func (m *recordingMonitor) Finish(_ []core.RetrievalResult)               { m.finished = true }
