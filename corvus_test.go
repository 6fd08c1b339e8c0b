package corvus

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corvus-ai/corvus/ai/mock"
	"github.com/corvus-ai/corvus/chat"
	"github.com/corvus-ai/corvus/core"
	"github.com/corvus-ai/corvus/retrieval"
)

func openTestEngine(t *testing.T) *Engine {
	t.Helper()
	engine, err := Open(t.TempDir(), WithProvider(mock.NewMockProvider()), WithPoolSize(2))
	require.NoError(t, err)
	t.Cleanup(func() { engine.Close() })
	return engine
}

func TestOpen(t *testing.T) {
	t.Run("create new engine", func(t *testing.T) {
		engine := openTestEngine(t)

		assert.NotNil(t, engine.Stores())
		assert.NotNil(t, engine.Provider())
		assert.NotNil(t, engine.Cache())
		assert.NotNil(t, engine.Pipeline())
		assert.NotNil(t, engine.Retriever())
		assert.NotNil(t, engine.Assembler())
	})

	t.Run("can create reindexer", func(t *testing.T) {
		engine := openTestEngine(t)

		reindexer, err := engine.NewReindexer()
		require.NoError(t, err)
		assert.NotNil(t, reindexer)
	})
}

func TestEngine_Close(t *testing.T) {
	engine, err := Open(t.TempDir(), WithProvider(mock.NewMockProvider()))
	require.NoError(t, err)

	assert.NoError(t, engine.Close())
}

// TestEngine_EndToEnd exercises the full path: create a knowledge base,
// ingest a document, search it, then chat against it.
func TestEngine_EndToEnd(t *testing.T) {
	engine := openTestEngine(t)
	ctx := context.Background()

	kb, err := engine.Stores().KnowledgeBases.AddKnowledgeBase(ctx, &core.KnowledgeBase{
		Name:              "handbook",
		EnableVectorStore: true,
		EnableGraphStore:  true,
		EnableExtraction:  true,
		EmbeddingModel:    "mock-model",
	})
	require.NoError(t, err)

	doc, err := engine.Stores().Documents.AddDocument(ctx, &core.Document{
		KnowledgeBaseId: kb.Id,
		Title:           "onboarding",
		Content:         "Corvus ingests documents. Retrieval finds relevant chunks for questions.",
	})
	require.NoError(t, err)

	res, err := engine.Pipeline().Submit(ctx, doc.Id)
	require.NoError(t, err)
	require.True(t, res.Accepted)

	waitCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	require.NoError(t, engine.Pipeline().Wait(waitCtx))

	processed, err := engine.Stores().Documents.GetDocument(ctx, doc.Id)
	require.NoError(t, err)
	require.Equal(t, core.DocumentStatusCompleted, processed.Status)
	assert.Positive(t, processed.ChunkCount)

	result, err := engine.Retriever().Search(ctx, kb.Id,
		"Retrieval finds relevant chunks for questions.",
		retrieval.Options{UseVector: true, UseGraph: true, TopK: 3})
	require.NoError(t, err)
	assert.NotEmpty(t, result.Chunks)

	session, err := engine.Stores().Chats.AddSession(ctx, &core.ChatSession{
		KnowledgeBaseId: kb.Id,
		Title:           "help",
		UseVectorSearch: true,
		SearchTopK:      3,
	})
	require.NoError(t, err)

	sink := &chat.CollectSink{}
	msg, err := engine.Assembler().Turn(ctx, session.Id, "How does ingestion work?", sink)
	require.NoError(t, err)
	assert.False(t, msg.Partial)
	assert.Equal(t, msg.Content, sink.Text())
}
