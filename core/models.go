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


package core

import (
	"encoding/binary"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for domain entities.
// It is generated using content-based hashing or database sequences.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// DocumentStatus tracks a document through the ingestion pipeline.
type DocumentStatus int

const (
	// DocumentStatusPending means the document is stored but not yet processed.
	DocumentStatusPending DocumentStatus = iota + 1
	// DocumentStatusProcessing means a pipeline worker currently owns the document.
	DocumentStatusProcessing
	// DocumentStatusCompleted means all enabled stages finished.
	DocumentStatusCompleted
	// DocumentStatusFailed means chunking failed and the document has no usable state.
	DocumentStatusFailed
)

func (s DocumentStatus) String() string {
	switch s {
	case DocumentStatusPending:
		return "pending"
	case DocumentStatusProcessing:
		return "processing"
	case DocumentStatusCompleted:
		return "completed"
	case DocumentStatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ChunkStrategy selects how raw document text is split into chunks.
type ChunkStrategy int

const (
	// ChunkStrategyDefault defers to the knowledge base default.
	ChunkStrategyDefault ChunkStrategy = iota
	// ChunkStrategySemantic splits on semantic boundaries.
	ChunkStrategySemantic
	// ChunkStrategyFixed splits into fixed-size windows.
	ChunkStrategyFixed
	// ChunkStrategyRecursive splits recursively on separators.
	ChunkStrategyRecursive
	// ChunkStrategyParagraph splits on paragraph boundaries.
	ChunkStrategyParagraph
)

func (s ChunkStrategy) String() string {
	switch s {
	case ChunkStrategySemantic:
		return "semantic"
	case ChunkStrategyFixed:
		return "fixed"
	case ChunkStrategyRecursive:
		return "recursive"
	case ChunkStrategyParagraph:
		return "paragraph"
	default:
		return "default"
	}
}

// MessageRole identifies the author of a chat message.
type MessageRole int

const (
	// MessageRoleUser represents the human caller.
	MessageRoleUser MessageRole = iota + 1
	// MessageRoleAssistant represents the completion model.
	MessageRoleAssistant
	// MessageRoleSystem represents injected instructions.
	MessageRoleSystem
)

func (r MessageRole) String() string {
	switch r {
	case MessageRoleUser:
		return "user"
	case MessageRoleAssistant:
		return "assistant"
	case MessageRoleSystem:
		return "system"
	default:
		return "unknown"
	}
}

// KnowledgeBase is a tenant container for documents and their derived
// representations. It is created by the API layer and read-only to the core;
// its feature flags gate pipeline stages and retrieval halves.
type KnowledgeBase struct {
	Id          ID
	Name        string
	Description string

	DefaultChunkStrategy ChunkStrategy
	DefaultChunkSize     int
	DefaultChunkOverlap  int

	EnableVectorStore bool
	EnableGraphStore  bool
	EnableExtraction  bool

	EmbeddingModel string

	DocumentCount int
	TotalChunks   int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Document is one ingested text with its processing lifecycle state.
// Exactly one pipeline run may be active per document at a time.
type Document struct {
	Id              ID
	KnowledgeBaseId ID

	Title   string
	Content string
	Source  string

	// Zero values mean "use the knowledge base default".
	ChunkStrategy ChunkStrategy
	ChunkSize     int
	ChunkOverlap  int

	Status       DocumentStatus
	ErrorMessage string

	CharCount     int
	WordCount     int
	ChunkCount    int
	EntityCount   int
	RelationCount int

	VectorStored bool
	GraphStored  bool

	ProcessingTime time.Duration

	CreatedAt   time.Time
	UpdatedAt   time.Time
	ProcessedAt time.Time
}

// Chunk is a contiguous slice of a document treated as the unit of embedding
// and retrieval. Immutable once written except for the embedding and
// entity/relation back-fill fields set by later pipeline stages.
type Chunk struct {
	Id         ID
	DocumentId ID

	Index    int
	Content  string
	StartPos int
	EndPos   int

	CharCount int
	WordCount int

	VectorId       string // reference into the vector index, empty = embedding-absent
	HasEmbedding   bool
	EmbeddingModel string

	Entities  []string
	Relations []Triple

	CreatedAt time.Time
}

// ChatSession groups the messages of one conversation and carries its
// retrieval configuration.
type ChatSession struct {
	Id              ID
	KnowledgeBaseId ID

	Title string

	UseVectorSearch bool
	UseGraphSearch  bool
	SearchTopK      int

	MessageCount int
	TotalTokens  int

	LastActiveAt time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// RetrievedChunkRef is the persisted snapshot of one retrieval hit attached
// to an assistant message.
type RetrievedChunkRef struct {
	ChunkId    ID
	DocumentId ID
	Score      float32
}

// ChatMessage is one append-only turn in a session. Ordering by creation
// time defines the conversation.
type ChatMessage struct {
	Id        ID
	SessionId ID

	Role    MessageRole
	Content string

	// Partial marks an assistant message whose stream was cut short; the
	// content is whatever had been generated when the stream ended.
	Partial bool

	RetrievedChunks   []RetrievedChunkRef
	RetrievedEntities []string

	TokenCount     int
	ProcessingTime time.Duration

	CreatedAt time.Time
}

// RetrievalSource records which search half produced a retrieval result.
type RetrievalSource int

const (
	// SourceVector means the chunk came from vector similarity search only.
	SourceVector RetrievalSource = iota + 1
	// SourceGraph means the chunk came from graph evidence only.
	SourceGraph
	// SourceBoth means the chunk was a vector hit that also appears as graph evidence.
	SourceBoth
)

func (s RetrievalSource) String() string {
	switch s {
	case SourceVector:
		return "vector"
	case SourceGraph:
		return "graph"
	case SourceBoth:
		return "both"
	default:
		return "unknown"
	}
}

// RetrievalResult is one ranked chunk produced per query. Ephemeral, never
// persisted.
type RetrievalResult struct {
	ChunkId    ID
	DocumentId ID
	Index      int
	Content    string
	Score      float32
	Source     RetrievalSource
	Entities   []string
	Relations  []Triple
}

// RelatedEntity is a neighbor of a matched graph entity.
type RelatedEntity struct {
	Name     string
	Type     EntityType
	Relation string
}

// GraphEntityResult is one matched entity with its relevance and neighbors.
// Ephemeral, produced per query.
type GraphEntityResult struct {
	Name      string
	Type      EntityType
	Relevance float32
	Related   []RelatedEntity
	ChunkIds  []ID
}
