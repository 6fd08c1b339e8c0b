package memgraph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corvus-ai/corvus/core"
	"github.com/corvus-ai/corvus/graph"
)

func triple(subject, predicate, object string, confidence float64, chunks ...core.ID) core.Triple {
	return core.Triple{
		Subject:     subject,
		SubjectType: core.EntityPerson,
		Predicate:   predicate,
		Object:      object,
		ObjectType:  core.EntityOrganization,
		Confidence:  confidence,
		ChunkIds:    chunks,
	}
}

func TestStore_InsertTriples(t *testing.T) {
	s := New()
	ctx := context.Background()

	stats, err := s.InsertTriples(ctx, []core.Triple{
		triple("张三", "工作于", "腾讯", 0.9, 1),
		triple("Alice", "works_at", "Acme", 0.8, 2),
		{Subject: "", Predicate: "broken", Object: "x"},
		{Subject: "x", Predicate: "broken", Object: ""},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Succeeded)
	assert.Equal(t, 2, stats.Failed)
	assert.Equal(t, 2, s.Len())
}

func TestStore_InsertMergesDuplicates(t *testing.T) {
	s := New()
	ctx := context.Background()

	_, err := s.InsertTriples(ctx, []core.Triple{triple("Alice", "works_at", "Acme", 0.8, 1)})
	require.NoError(t, err)
	_, err = s.InsertTriples(ctx, []core.Triple{triple("Alice", "works_at", "Acme", 0.6, 2)})
	require.NoError(t, err)

	assert.Equal(t, 1, s.Len())

	neighbors, err := s.Neighbors(ctx, "Alice", graph.DirectionOut)
	require.NoError(t, err)
	require.Len(t, neighbors, 1)
	assert.InDelta(t, 0.7, neighbors[0].Confidence, 1e-9)
	assert.Equal(t, []core.ID{1, 2}, neighbors[0].ChunkIds)
}

func TestStore_Neighbors_Directions(t *testing.T) {
	s := New()
	ctx := context.Background()

	_, err := s.InsertTriples(ctx, []core.Triple{
		triple("Alice", "works_at", "Acme", 0.9),
		triple("Acme", "located_in", "Berlin", 0.9),
	})
	require.NoError(t, err)

	out, err := s.Neighbors(ctx, "acme", graph.DirectionOut)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "Berlin", out[0].Object)

	in, err := s.Neighbors(ctx, "ACME", graph.DirectionIn)
	require.NoError(t, err)
	require.Len(t, in, 1)
	assert.Equal(t, "Alice", in[0].Subject)

	both, err := s.Neighbors(ctx, "Acme", graph.DirectionBoth)
	require.NoError(t, err)
	assert.Len(t, both, 2)

	_, err = s.Neighbors(ctx, "Acme", graph.Direction(0))
	assert.ErrorIs(t, err, graph.ErrInvalidDirection)

	none, err := s.Neighbors(ctx, "nobody", graph.DirectionBoth)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestStore_Path(t *testing.T) {
	s := New()
	ctx := context.Background()

	_, err := s.InsertTriples(ctx, []core.Triple{
		triple("Alice", "works_at", "Acme", 0.9),
		triple("Acme", "located_in", "Berlin", 0.9),
		triple("Berlin", "capital_of", "Germany", 0.9),
	})
	require.NoError(t, err)

	path, err := s.Path(ctx, "Alice", "Germany", 5)
	require.NoError(t, err)
	require.Len(t, path, 3)
	assert.Equal(t, "Alice", path[0].Subject)
	assert.Equal(t, "Germany", path[2].Object)

	// Depth limit blocks the three-hop path.
	path, err = s.Path(ctx, "Alice", "Germany", 2)
	require.NoError(t, err)
	assert.Empty(t, path)

	// Paths traverse edges in either direction.
	path, err = s.Path(ctx, "Germany", "Alice", 5)
	require.NoError(t, err)
	assert.Len(t, path, 3)

	path, err = s.Path(ctx, "Alice", "Nowhere", 5)
	require.NoError(t, err)
	assert.Empty(t, path)

	path, err = s.Path(ctx, "Alice", "alice", 5)
	require.NoError(t, err)
	assert.Empty(t, path)
}
