package badger

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corvus-ai/corvus/core"
	"github.com/corvus-ai/corvus/storage"
)

func addTestDocument(t *testing.T, stores *storage.Stores) *core.Document {
	t.Helper()
	kb := addTestKB(t, stores)
	doc, err := stores.Documents.AddDocument(context.Background(), &core.Document{
		KnowledgeBaseId: kb.Id,
		Content:         "chunked document",
	})
	require.NoError(t, err)
	return doc
}

func TestChunkRepository_AddAssignsIDs(t *testing.T) {
	stores := newTestStores(t)
	ctx := context.Background()
	doc := addTestDocument(t, stores)

	chunks, err := stores.Chunks.AddChunks(ctx,
		&core.Chunk{DocumentId: doc.Id, Index: 0, Content: "first"},
		&core.Chunk{DocumentId: doc.Id, Index: 1, Content: "second"},
	)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.NotZero(t, chunks[0].Id)
	assert.NotZero(t, chunks[1].Id)
	assert.NotEqual(t, chunks[0].Id, chunks[1].Id)

	got, err := stores.Chunks.GetChunk(ctx, chunks[1].Id)
	require.NoError(t, err)
	assert.Equal(t, "second", got.Content)
}

func TestChunkRepository_ListByDocument_OrdinalOrder(t *testing.T) {
	stores := newTestStores(t)
	ctx := context.Background()
	doc := addTestDocument(t, stores)

	// Insert out of ordinal order.
	for _, idx := range []int{3, 0, 2, 1} {
		_, err := stores.Chunks.AddChunks(ctx, &core.Chunk{
			DocumentId: doc.Id,
			Index:      idx,
			Content:    fmt.Sprintf("chunk %d", idx),
		})
		require.NoError(t, err)
	}

	chunks, err := stores.Chunks.ListByDocument(ctx, doc.Id)
	require.NoError(t, err)
	require.Len(t, chunks, 4)
	for i, c := range chunks {
		assert.Equal(t, i, c.Index)
		assert.Equal(t, fmt.Sprintf("chunk %d", i), c.Content)
	}
}

func TestChunkRepository_ListByKnowledgeBase(t *testing.T) {
	stores := newTestStores(t)
	ctx := context.Background()
	doc := addTestDocument(t, stores)

	_, err := stores.Chunks.AddChunks(ctx,
		&core.Chunk{DocumentId: doc.Id, Index: 0, Content: "a"},
		&core.Chunk{DocumentId: doc.Id, Index: 1, Content: "b"},
	)
	require.NoError(t, err)

	chunks, err := stores.Chunks.ListByKnowledgeBase(ctx, doc.KnowledgeBaseId)
	require.NoError(t, err)
	assert.Len(t, chunks, 2)

	chunks, err = stores.Chunks.ListByKnowledgeBase(ctx, 999)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestChunkRepository_UpdateChunks(t *testing.T) {
	stores := newTestStores(t)
	ctx := context.Background()
	doc := addTestDocument(t, stores)

	chunks, err := stores.Chunks.AddChunks(ctx, &core.Chunk{
		DocumentId: doc.Id, Index: 0, Content: "plain",
	})
	require.NoError(t, err)

	c := chunks[0]
	c.HasEmbedding = true
	c.VectorId = fmt.Sprintf("%d", c.Id)
	c.Entities = []string{"Alice"}
	_, err = stores.Chunks.UpdateChunks(ctx, c)
	require.NoError(t, err)

	got, err := stores.Chunks.GetChunk(ctx, c.Id)
	require.NoError(t, err)
	assert.True(t, got.HasEmbedding)
	assert.Equal(t, []string{"Alice"}, got.Entities)

	_, err = stores.Chunks.UpdateChunks(ctx, &core.Chunk{Id: 999, DocumentId: doc.Id})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestChunkRepository_GetChunks_SkipsMissing(t *testing.T) {
	stores := newTestStores(t)
	ctx := context.Background()
	doc := addTestDocument(t, stores)

	chunks, err := stores.Chunks.AddChunks(ctx,
		&core.Chunk{DocumentId: doc.Id, Index: 0, Content: "a"},
		&core.Chunk{DocumentId: doc.Id, Index: 1, Content: "b"},
	)
	require.NoError(t, err)

	got, err := stores.Chunks.GetChunks(ctx, chunks[0].Id, 999, chunks[1].Id)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestChunkRepository_DeleteByDocument(t *testing.T) {
	stores := newTestStores(t)
	ctx := context.Background()
	doc := addTestDocument(t, stores)

	_, err := stores.Chunks.AddChunks(ctx,
		&core.Chunk{DocumentId: doc.Id, Index: 0, Content: "a"},
		&core.Chunk{DocumentId: doc.Id, Index: 1, Content: "b"},
		&core.Chunk{DocumentId: doc.Id, Index: 2, Content: "c"},
	)
	require.NoError(t, err)

	deleted, err := stores.Chunks.DeleteByDocument(ctx, doc.Id)
	require.NoError(t, err)
	assert.Equal(t, 3, deleted)

	chunks, err := stores.Chunks.ListByDocument(ctx, doc.Id)
	require.NoError(t, err)
	assert.Empty(t, chunks)

	chunks, err = stores.Chunks.ListByKnowledgeBase(ctx, doc.KnowledgeBaseId)
	require.NoError(t, err)
	assert.Empty(t, chunks)

	deleted, err = stores.Chunks.DeleteByDocument(ctx, doc.Id)
	require.NoError(t, err)
	assert.Zero(t, deleted)
}
