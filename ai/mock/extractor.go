package mock

import (
	"context"
	"strings"
	"unicode"

	"github.com/corvus-ai/corvus/ai"
	"github.com/corvus-ai/corvus/core"
)

// MockExtractor is a test double for ai.EntityExtractor.
// It allows custom behavior injection via function fields.
type MockExtractor struct {
	// ExtractFunc is called by Extract if set.
	// If nil, uses default naive extraction.
	ExtractFunc func(ctx context.Context, text string) (*ai.Extraction, error)

	callCount int
}

// NewMockExtractor creates a mock entity extractor with default behavior.
// Note: Returns concrete type to allow test assertions and behavior injection.
func NewMockExtractor() *MockExtractor {
	return &MockExtractor{}
}

// Extract produces a naive extraction: capitalized words become Concept
// entities, and consecutive entity pairs become low-confidence "related_to"
// triples. Deterministic and dependency-free, which is all tests need.
func (m *MockExtractor) Extract(ctx context.Context, text string) (*ai.Extraction, error) {
	m.callCount++

	if m.ExtractFunc != nil {
		return m.ExtractFunc(ctx, text)
	}

	out := &ai.Extraction{}
	seen := make(map[string]struct{})
	for _, word := range strings.Fields(text) {
		word = strings.Trim(word, ".,!?;:\"'()[]{}")
		if word == "" {
			continue
		}
		runes := []rune(word)
		if !unicode.IsUpper(runes[0]) {
			continue
		}
		if _, dup := seen[word]; dup {
			continue
		}
		seen[word] = struct{}{}
		out.Entities = append(out.Entities, ai.ExtractedEntity{
			Name: word,
			Type: core.EntityConcept,
		})
		if len(out.Entities) >= 5 {
			break
		}
	}

	for i := 1; i < len(out.Entities); i++ {
		out.Triples = append(out.Triples, core.Triple{
			Subject:     out.Entities[i-1].Name,
			SubjectType: out.Entities[i-1].Type,
			Predicate:   "related_to",
			Object:      out.Entities[i].Name,
			ObjectType:  out.Entities[i].Type,
			Confidence:  0.5,
		})
	}

	return out, nil
}

// CallCount returns the number of times Extract was called.
func (m *MockExtractor) CallCount() int {
	return m.callCount
}

// Reset clears the call count and custom functions.
func (m *MockExtractor) Reset() {
	m.callCount = 0
	m.ExtractFunc = nil
}
