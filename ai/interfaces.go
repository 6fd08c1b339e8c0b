package ai

import (
	"context"

	"github.com/corvus-ai/corvus/core"
)

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// The returned vector represents the semantic meaning of the text.
	// Returns an error if the embedding generation fails.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// Batch processing is more efficient than calling EmbedText multiple times.
	// The returned slice contains embeddings in the same order as the input texts.
	// Returns an error if any embedding generation fails.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// EntityExtractor extracts typed entities and relation triples from text.
// Implementations must be thread-safe for concurrent use.
type EntityExtractor interface {
	// Extract analyzes a chunk of text and returns the entities it mentions
	// together with (subject, predicate, object) relations between them.
	// Entity types are normalized onto the closed core.EntityType set.
	// Returns an empty extraction if nothing is found.
	Extract(ctx context.Context, text string) (*Extraction, error)
}

// Completer produces chat completions grounded in retrieved context.
// Implementations must be thread-safe for concurrent use.
type Completer interface {
	// Complete generates an assistant reply for the given request. When
	// req.OnDelta is set, response tokens are forwarded to it as they
	// arrive. Complete returns the full accumulated text; if the stream
	// dies partway it returns the partial text alongside the error.
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// Message is one prior turn of a conversation passed to a Completer.
type Message struct {
	Role    core.MessageRole
	Content string
}

// CompletionRequest carries everything a Completer needs for one reply.
type CompletionRequest struct {
	// System is the system prompt, including any retrieved context.
	System string

	// History holds the prior conversation turns, oldest first.
	History []Message

	// User is the current user message.
	User string

	// Temperature controls sampling randomness. Zero means deterministic.
	Temperature float64

	// MaxTokens caps the reply length. Zero means provider default.
	MaxTokens int

	// OnDelta, when non-nil, receives each streamed fragment of the reply.
	// Returning an error from OnDelta aborts the stream.
	OnDelta func(ctx context.Context, chunk []byte) error
}

// AIProvider aggregates AI services for convenient initialization and
// lifecycle management. A provider creates and manages Embedder,
// EntityExtractor and Completer instances, ensuring they share
// configuration and resources appropriately.
type AIProvider interface {
	// Embedder returns the text embedding service.
	// The returned Embedder is safe for concurrent use.
	Embedder() Embedder

	// EntityExtractor returns the entity and relation extraction service.
	// The returned EntityExtractor is safe for concurrent use.
	EntityExtractor() EntityExtractor

	// Completer returns the chat completion service.
	// The returned Completer is safe for concurrent use.
	Completer() Completer

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}
