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


package chunker

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/corvus-ai/corvus/core"
	"github.com/tmc/langchaingo/textsplitter"
)

// Default chunking parameters, applied when a knowledge base or document
// leaves size and overlap unset.
const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// ErrUnknownStrategy is returned for chunk strategies outside the known set.
var ErrUnknownStrategy = errors.New("unknown chunk strategy")

// Piece is one chunk of a document with its character span in the source
// text. Start and End are rune offsets; End is exclusive.
type Piece struct {
	Text  string
	Start int
	End   int
}

// Splitter cuts document text into pieces. Implementations are pure and
// safe for concurrent use.
type Splitter interface {
	Split(text string) ([]Piece, error)
}

// recursiveSeparators order splits from paragraph down to sentence
// boundaries, covering both CJK and Latin punctuation, before falling back
// to whitespace and raw characters.
var recursiveSeparators = []string{"\n\n", "\n", "。", "！", "？", "；", ". ", "! ", "? ", "，", ", ", " ", ""}

// paragraphSeparators keep whole paragraphs together where possible.
var paragraphSeparators = []string{"\n\n", "\n", " ", ""}

// New builds a Splitter for the given strategy. Zero size/overlap use the
// package defaults; overlap must stay below size.
func New(strategy core.ChunkStrategy, size, overlap int) (Splitter, error) {
	if size <= 0 {
		size = DefaultChunkSize
		overlap = DefaultChunkOverlap
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		return nil, fmt.Errorf("chunker: %w", core.ErrInvalidChunkParams)
	}

	var separators []string
	switch strategy {
	case core.ChunkStrategyDefault, core.ChunkStrategyRecursive, core.ChunkStrategySemantic:
		// Semantic chunking approximates sentence-boundary grouping with
		// sentence-level separators; a dedicated segmentation model is out
		// of scope here.
		separators = recursiveSeparators
	case core.ChunkStrategyParagraph:
		separators = paragraphSeparators
	case core.ChunkStrategyFixed:
		separators = []string{""}
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownStrategy, strategy)
	}

	return &textSplitter{
		inner: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(size),
			textsplitter.WithChunkOverlap(overlap),
			textsplitter.WithSeparators(separators),
		),
	}, nil
}

// ForDocument resolves the effective strategy and parameters for a document:
// document-level overrides win, then knowledge-base defaults, then package
// defaults.
func ForDocument(kb *core.KnowledgeBase, doc *core.Document) (Splitter, error) {
	strategy := doc.ChunkStrategy
	if strategy == core.ChunkStrategyDefault {
		strategy = kb.DefaultChunkStrategy
	}
	size := doc.ChunkSize
	if size == 0 {
		size = kb.DefaultChunkSize
	}
	overlap := doc.ChunkOverlap
	if overlap == 0 {
		overlap = kb.DefaultChunkOverlap
	}
	return New(strategy, size, overlap)
}

type textSplitter struct {
	inner textsplitter.TextSplitter
}

// Split cuts text into pieces and locates each piece's character span in
// the source. Pieces are returned in document order.
func (s *textSplitter) Split(text string) ([]Piece, error) {
	parts, err := s.inner.SplitText(text)
	if err != nil {
		return nil, err
	}

	pieces := make([]Piece, 0, len(parts))
	searchFrom := 0 // byte offset
	prevEnd := 0    // rune offset
	for _, part := range parts {
		if part == "" {
			continue
		}

		idx := strings.Index(text[searchFrom:], part)
		if idx >= 0 {
			byteStart := searchFrom + idx
			start := utf8.RuneCountInString(text[:byteStart])
			end := start + utf8.RuneCountInString(part)
			pieces = append(pieces, Piece{Text: part, Start: start, End: end})
			// Overlapping chunks share a prefix with the previous chunk, so
			// the next search begins just past this chunk's start.
			searchFrom = byteStart + 1
			prevEnd = end
			continue
		}

		// The splitter trimmed the piece beyond recognition; approximate the
		// span as starting where the previous piece ended.
		start := prevEnd
		end := start + utf8.RuneCountInString(part)
		pieces = append(pieces, Piece{Text: part, Start: start, End: end})
		prevEnd = end
	}

	return pieces, nil
}
