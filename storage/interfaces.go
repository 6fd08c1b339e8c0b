package storage

import (
	"context"

	"github.com/corvus-ai/corvus/core"
)

// Repository provides common storage operations shared across all repositories.
// Implementations must be thread-safe and support concurrent access.
type Repository interface {
	// WithTransaction executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	// Close closes the repository and releases resources.
	Close() error
}

// KnowledgeBaseRepository provides operations for managing knowledge bases.
type KnowledgeBaseRepository interface {
	Repository

	// AddKnowledgeBase adds a knowledge base to storage.
	// Generates an ID from sequence and sets CreatedAt/UpdatedAt timestamps.
	AddKnowledgeBase(ctx context.Context, kb *core.KnowledgeBase) (*core.KnowledgeBase, error)

	// UpdateKnowledgeBase updates an existing knowledge base.
	// Updates the UpdatedAt timestamp automatically.
	// Returns ErrNotFound if the knowledge base doesn't exist.
	UpdateKnowledgeBase(ctx context.Context, kb *core.KnowledgeBase) (*core.KnowledgeBase, error)

	// DeleteKnowledgeBase removes a knowledge base by ID.
	// Returns ErrNotFound if it doesn't exist. Documents and chunks under
	// the knowledge base are NOT cascaded here; callers orchestrate that.
	DeleteKnowledgeBase(ctx context.Context, id core.ID) error

	// GetKnowledgeBase retrieves a knowledge base by ID.
	// Returns ErrNotFound if it doesn't exist.
	GetKnowledgeBase(ctx context.Context, id core.ID) (*core.KnowledgeBase, error)

	// ListKnowledgeBases retrieves all knowledge bases, ordered by ID.
	ListKnowledgeBases(ctx context.Context) ([]*core.KnowledgeBase, error)

	// AddCounts atomically adjusts the document and chunk counters of a
	// knowledge base. Deltas may be negative. Returns ErrNotFound if the
	// knowledge base doesn't exist.
	AddCounts(ctx context.Context, id core.ID, docDelta, chunkDelta int) error
}

// DocumentRepository provides operations for managing documents.
type DocumentRepository interface {
	Repository

	// AddDocument adds a document to storage.
	// Generates an ID from sequence, sets CreatedAt/UpdatedAt, and defaults
	// the status to Pending when unset.
	AddDocument(ctx context.Context, doc *core.Document) (*core.Document, error)

	// UpdateDocument updates an existing document.
	// Updates the UpdatedAt timestamp automatically.
	// Returns ErrNotFound if the document doesn't exist.
	UpdateDocument(ctx context.Context, doc *core.Document) (*core.Document, error)

	// DeleteDocument removes a document by ID, including its index entries.
	// Returns ErrNotFound if it doesn't exist.
	DeleteDocument(ctx context.Context, id core.ID) error

	// GetDocument retrieves a document by ID.
	// Returns ErrNotFound if it doesn't exist.
	GetDocument(ctx context.Context, id core.ID) (*core.Document, error)

	// ListByKnowledgeBase retrieves all documents in a knowledge base,
	// ordered by document ID (insertion order).
	ListByKnowledgeBase(ctx context.Context, kbID core.ID) ([]*core.Document, error)

	// SetStatus transitions a document's processing status. The error
	// message is stored verbatim for Failed transitions and cleared
	// otherwise. Returns ErrNotFound if the document doesn't exist.
	SetStatus(ctx context.Context, id core.ID, status core.DocumentStatus, errMsg string) error
}

// ChunkRepository provides operations for managing document chunks.
type ChunkRepository interface {
	Repository

	// AddChunks adds one or more chunks to storage.
	// Generates IDs from sequence and sets CreatedAt timestamps.
	// Returns the chunks with generated IDs populated.
	AddChunks(ctx context.Context, chunks ...*core.Chunk) ([]*core.Chunk, error)

	// UpdateChunks updates existing chunks.
	// Returns ErrNotFound if any chunk doesn't exist.
	UpdateChunks(ctx context.Context, chunks ...*core.Chunk) ([]*core.Chunk, error)

	// GetChunk retrieves a single chunk by ID.
	// Returns ErrNotFound if the chunk doesn't exist.
	GetChunk(ctx context.Context, id core.ID) (*core.Chunk, error)

	// GetChunks retrieves multiple chunks by their IDs.
	// Returns only the chunks that exist (no error for missing chunks).
	GetChunks(ctx context.Context, ids ...core.ID) ([]*core.Chunk, error)

	// ListByDocument retrieves all chunks of a document, ordered by their
	// ordinal index within the document.
	ListByDocument(ctx context.Context, docID core.ID) ([]*core.Chunk, error)

	// ListByKnowledgeBase retrieves all chunks across a knowledge base.
	ListByKnowledgeBase(ctx context.Context, kbID core.ID) ([]*core.Chunk, error)

	// DeleteByDocument removes all chunks of a document, including index
	// entries. Returns the number of chunks removed.
	DeleteByDocument(ctx context.Context, docID core.ID) (int, error)
}

// ChatRepository provides operations for managing chat sessions and messages.
type ChatRepository interface {
	Repository

	// AddSession adds a chat session to storage.
	// Generates an ID from sequence and sets timestamps.
	AddSession(ctx context.Context, s *core.ChatSession) (*core.ChatSession, error)

	// UpdateSession updates an existing session.
	// Returns ErrNotFound if the session doesn't exist.
	UpdateSession(ctx context.Context, s *core.ChatSession) (*core.ChatSession, error)

	// DeleteSession removes a session and all of its messages.
	// Returns ErrNotFound if the session doesn't exist.
	DeleteSession(ctx context.Context, id core.ID) error

	// GetSession retrieves a session by ID.
	// Returns ErrNotFound if it doesn't exist.
	GetSession(ctx context.Context, id core.ID) (*core.ChatSession, error)

	// ListSessionsByKnowledgeBase retrieves all sessions of a knowledge
	// base, ordered by session ID.
	ListSessionsByKnowledgeBase(ctx context.Context, kbID core.ID) ([]*core.ChatSession, error)

	// AddMessages appends messages to their sessions.
	// Generates IDs from sequence and sets CreatedAt timestamps. Message
	// IDs are monotonically increasing, so ID order is conversation order.
	AddMessages(ctx context.Context, msgs ...*core.ChatMessage) ([]*core.ChatMessage, error)

	// ListMessages retrieves all messages of a session in conversation
	// order (oldest first).
	ListMessages(ctx context.Context, sessionID core.ID) ([]*core.ChatMessage, error)

	// RecentMessages retrieves up to limit most recent messages of a
	// session, returned in conversation order (oldest first). This is the
	// sliding-window primitive used for chat context assembly.
	RecentMessages(ctx context.Context, sessionID core.ID, limit int) ([]*core.ChatMessage, error)
}

// Stores aggregates the repositories of one storage backend.
type Stores struct {
	KnowledgeBases KnowledgeBaseRepository
	Documents      DocumentRepository
	Chunks         ChunkRepository
	Chats          ChatRepository
}

// Close closes every repository, returning the first error encountered.
func (s *Stores) Close() error {
	var first error
	for _, r := range []Repository{s.KnowledgeBases, s.Documents, s.Chunks, s.Chats} {
		if r == nil {
			continue
		}
		if err := r.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
