package chunker

import (
	"strings"
	"testing"

	"github.com/corvus-ai/corvus/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_UnknownStrategy(t *testing.T) {
	_, err := New(core.ChunkStrategy(99), 100, 10)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownStrategy)
}

func TestNew_OverlapMustBeBelowSize(t *testing.T) {
	_, err := New(core.ChunkStrategyFixed, 100, 100)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrInvalidChunkParams)
}

func TestNew_ZeroSizeUsesDefaults(t *testing.T) {
	s, err := New(core.ChunkStrategyDefault, 0, 0)
	require.NoError(t, err)
	require.NotNil(t, s)
}

func TestSplit_ShortTextSinglePiece(t *testing.T) {
	s, err := New(core.ChunkStrategyRecursive, 100, 10)
	require.NoError(t, err)

	pieces, err := s.Split("hello world")
	require.NoError(t, err)
	require.Len(t, pieces, 1)
	assert.Equal(t, "hello world", pieces[0].Text)
	assert.Equal(t, 0, pieces[0].Start)
	assert.Equal(t, 11, pieces[0].End)
}

func TestSplit_LongTextProducesMultiplePieces(t *testing.T) {
	text := strings.Repeat("one two three four five six seven eight nine ten. ", 20)

	s, err := New(core.ChunkStrategyRecursive, 120, 20)
	require.NoError(t, err)

	pieces, err := s.Split(text)
	require.NoError(t, err)
	require.Greater(t, len(pieces), 1)

	for _, p := range pieces {
		assert.LessOrEqual(t, len(p.Text), 120)
		assert.NotEmpty(t, strings.TrimSpace(p.Text))
	}
}

func TestSplit_SpansLocatePieces(t *testing.T) {
	text := strings.Repeat("alpha beta gamma delta epsilon. ", 15)

	s, err := New(core.ChunkStrategyRecursive, 80, 0)
	require.NoError(t, err)

	pieces, err := s.Split(text)
	require.NoError(t, err)
	require.Greater(t, len(pieces), 1)

	runes := []rune(text)
	for _, p := range pieces {
		require.GreaterOrEqual(t, p.Start, 0)
		require.LessOrEqual(t, p.End, len(runes))
		assert.Equal(t, p.Text, string(runes[p.Start:p.End]))
	}

	// Pieces arrive in document order.
	for i := 1; i < len(pieces); i++ {
		assert.GreaterOrEqual(t, pieces[i].Start, pieces[i-1].Start)
	}
}

func TestSplit_ChineseTextSentenceBoundaries(t *testing.T) {
	text := strings.Repeat("张三在腾讯工作。他住在深圳。李四是他的同事。", 10)

	s, err := New(core.ChunkStrategySemantic, 60, 0)
	require.NoError(t, err)

	pieces, err := s.Split(text)
	require.NoError(t, err)
	require.Greater(t, len(pieces), 1)

	runes := []rune(text)
	for _, p := range pieces {
		assert.Equal(t, p.Text, string(runes[p.Start:p.End]))
	}
}

func TestSplit_FixedStrategy(t *testing.T) {
	text := strings.Repeat("x", 250)

	s, err := New(core.ChunkStrategyFixed, 100, 0)
	require.NoError(t, err)

	pieces, err := s.Split(text)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(pieces), 3)
	for _, p := range pieces {
		assert.LessOrEqual(t, len(p.Text), 100)
	}
}

func TestForDocument_OverrideChain(t *testing.T) {
	kb := &core.KnowledgeBase{
		Name:                 "kb",
		DefaultChunkStrategy: core.ChunkStrategyParagraph,
		DefaultChunkSize:     200,
		DefaultChunkOverlap:  20,
	}

	t.Run("document inherits kb defaults", func(t *testing.T) {
		doc := &core.Document{Content: "text"}
		s, err := ForDocument(kb, doc)
		require.NoError(t, err)
		require.NotNil(t, s)
	})

	t.Run("document overrides win", func(t *testing.T) {
		doc := &core.Document{Content: "text", ChunkStrategy: core.ChunkStrategyFixed, ChunkSize: 50, ChunkOverlap: 5}
		s, err := ForDocument(kb, doc)
		require.NoError(t, err)
		require.NotNil(t, s)
	})

	t.Run("bad override rejected", func(t *testing.T) {
		doc := &core.Document{Content: "text", ChunkSize: 10, ChunkOverlap: 50}
		_, err := ForDocument(kb, doc)
		assert.Error(t, err)
	})
}
