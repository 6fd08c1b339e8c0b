package vector

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/mus-format/mus-go/varint"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlat_AddAndQuery(t *testing.T) {
	ctx := context.Background()
	idx := NewFlat(3)

	ids, err := idx.Add(ctx,
		[][]float32{
			{1, 0, 0},
			{0, 1, 0},
			{0.9, 0.1, 0},
		},
		[]ChunkRef{
			{ChunkId: 1, DocumentId: 10, Index: 0},
			{ChunkId: 2, DocumentId: 10, Index: 1},
			{ChunkId: 3, DocumentId: 10, Index: 2},
		},
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2", "3"}, ids)
	assert.Equal(t, 3, idx.Len())

	hits, err := idx.Query(ctx, []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)

	// Exact match first, then the nearby vector.
	assert.Equal(t, "1", hits[0].VectorId)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-6)
	assert.Equal(t, "3", hits[1].VectorId)
	assert.Greater(t, hits[0].Score, hits[1].Score)

	for _, h := range hits {
		assert.GreaterOrEqual(t, h.Score, float32(0))
		assert.LessOrEqual(t, h.Score, float32(1))
	}
}

func TestFlat_QueryEmptyIndex(t *testing.T) {
	idx := NewFlat(0)

	hits, err := idx.Query(context.Background(), []float32{1, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestFlat_DimensionFromFirstAdd(t *testing.T) {
	ctx := context.Background()
	idx := NewFlat(0)
	assert.Zero(t, idx.Dimension())

	_, err := idx.Add(ctx, [][]float32{{1, 2, 3, 4}}, []ChunkRef{{ChunkId: 1, DocumentId: 1}})
	require.NoError(t, err)
	assert.Equal(t, 4, idx.Dimension())

	_, err = idx.Add(ctx, [][]float32{{1, 2}}, []ChunkRef{{ChunkId: 2, DocumentId: 1}})
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	_, err = idx.Query(ctx, []float32{1, 2}, 5)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestFlat_AddMismatchedRefs(t *testing.T) {
	idx := NewFlat(2)

	_, err := idx.Add(context.Background(), [][]float32{{1, 0}}, nil)
	assert.ErrorIs(t, err, ErrRefMismatch)
}

func TestFlat_ReAddReplacesVector(t *testing.T) {
	ctx := context.Background()
	idx := NewFlat(2)

	ref := ChunkRef{ChunkId: 7, DocumentId: 1, Index: 0}
	_, err := idx.Add(ctx, [][]float32{{1, 0}}, []ChunkRef{ref})
	require.NoError(t, err)

	_, err = idx.Add(ctx, [][]float32{{0, 1}}, []ChunkRef{ref})
	require.NoError(t, err)
	assert.Equal(t, 1, idx.Len())

	hits, err := idx.Query(ctx, []float32{0, 1}, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-6)
}

func TestFlat_Remove(t *testing.T) {
	ctx := context.Background()
	idx := NewFlat(2)

	_, err := idx.Add(ctx,
		[][]float32{
			{1, 0},
			{0, 1},
			{0.7, 0.7},
		},
		[]ChunkRef{
			{ChunkId: 1, DocumentId: 1, Index: 0},
			{ChunkId: 2, DocumentId: 1, Index: 1},
			{ChunkId: 3, DocumentId: 1, Index: 2},
		},
	)
	require.NoError(t, err)

	assert.Equal(t, 2, idx.Remove("1", "3", "no-such-id"))
	assert.Equal(t, 1, idx.Len())

	// Only the surviving vector answers queries.
	hits, err := idx.Query(ctx, []float32{1, 0}, 3)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "2", hits[0].VectorId)

	assert.Zero(t, idx.Remove("1"))
}

func TestFlat_OppositeVectorScoresZero(t *testing.T) {
	ctx := context.Background()
	idx := NewFlat(2)

	_, err := idx.Add(ctx, [][]float32{{1, 0}}, []ChunkRef{{ChunkId: 1, DocumentId: 1}})
	require.NoError(t, err)

	hits, err := idx.Query(ctx, []float32{-1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.InDelta(t, 0.0, hits[0].Score, 1e-6)
}

func TestFlat_SaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := IndexPath(t.TempDir(), 42)

	idx := NewFlat(3)
	_, err := idx.Add(ctx,
		[][]float32{
			{1, 0, 0},
			{0, 1, 0},
		},
		[]ChunkRef{
			{ChunkId: 1, DocumentId: 5, Index: 0},
			{ChunkId: 2, DocumentId: 5, Index: 1},
		},
	)
	require.NoError(t, err)
	require.NoError(t, idx.Save(path))

	loaded := NewFlat(0)
	require.NoError(t, loaded.Load(path))
	assert.Equal(t, 2, loaded.Len())
	assert.Equal(t, 3, loaded.Dimension())

	want, err := idx.Query(ctx, []float32{1, 0.2, 0}, 2)
	require.NoError(t, err)
	got, err := loaded.Query(ctx, []float32{1, 0.2, 0}, 2)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestFlat_LoadCorruptFile(t *testing.T) {
	path := IndexPath(t.TempDir(), 1)

	idx := NewFlat(2)
	_, err := idx.Add(context.Background(), [][]float32{{1, 0}}, []ChunkRef{{ChunkId: 1, DocumentId: 1}})
	require.NoError(t, err)
	require.NoError(t, idx.Save(path))

	data := []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff}
	require.NoError(t, os.WriteFile(path, data, 0o644))

	err = NewFlat(0).Load(path)
	assert.ErrorIs(t, err, ErrCorruptIndex)
}

func TestFlat_LoadTruncatedWithHugeCount(t *testing.T) {
	path := IndexPath(t.TempDir(), 2)

	// A header claiming billions of entries followed by no entry data must
	// fail decoding instead of sizing a slice off the claimed count.
	buf := make([]byte, 16)
	n := varint.PositiveInt.Marshal(384, buf)
	n += varint.PositiveInt.Marshal(1<<40, buf[n:])
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, buf[:n], 0o644))

	err := NewFlat(0).Load(path)
	assert.ErrorIs(t, err, ErrCorruptIndex)
}

func TestIndexPath(t *testing.T) {
	path := IndexPath("/data", 7)
	assert.Equal(t, "/data/indexes/kb_7.idx", path)
}
