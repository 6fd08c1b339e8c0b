package core

import "fmt"

// ValidateKnowledgeBase checks that a knowledge base is internally consistent.
func ValidateKnowledgeBase(kb *KnowledgeBase) error {
	if kb == nil {
		return ErrInvalidKnowledgeBase
	}
	if kb.Name == "" {
		return fmt.Errorf("%w: %w", ErrInvalidKnowledgeBase, ErrEmptyName)
	}
	if kb.DefaultChunkSize > 0 && kb.DefaultChunkOverlap >= kb.DefaultChunkSize {
		return fmt.Errorf("%w: %w", ErrInvalidKnowledgeBase, ErrInvalidChunkParams)
	}
	return nil
}

// ValidateDocument checks a document before it enters storage.
func ValidateDocument(d *Document) error {
	if d == nil {
		return ErrInvalidDocument
	}
	if d.Content == "" {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrEmptyContent)
	}
	if d.KnowledgeBaseId == 0 {
		return fmt.Errorf("%w: missing knowledge base id", ErrInvalidDocument)
	}
	if d.Status != 0 && (d.Status < DocumentStatusPending || d.Status > DocumentStatusFailed) {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrInvalidStatus)
	}
	if d.ChunkSize > 0 && d.ChunkOverlap >= d.ChunkSize {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrInvalidChunkParams)
	}
	return nil
}

// ValidateChunk checks a chunk before it enters storage.
func ValidateChunk(c *Chunk) error {
	if c == nil {
		return ErrInvalidChunk
	}
	if c.DocumentId == 0 {
		return fmt.Errorf("%w: missing document id", ErrInvalidChunk)
	}
	if c.Index < 0 {
		return fmt.Errorf("%w: negative chunk index", ErrInvalidChunk)
	}
	return nil
}

// ValidateSession checks a chat session before it enters storage.
func ValidateSession(s *ChatSession) error {
	if s == nil {
		return ErrInvalidSession
	}
	if s.KnowledgeBaseId == 0 {
		return fmt.Errorf("%w: missing knowledge base id", ErrInvalidSession)
	}
	if s.SearchTopK < 0 {
		return fmt.Errorf("%w: negative top-k", ErrInvalidSession)
	}
	return nil
}

// ValidateMessage checks a chat message before it enters storage.
func ValidateMessage(m *ChatMessage) error {
	if m == nil {
		return ErrInvalidMessage
	}
	if m.SessionId == 0 {
		return fmt.Errorf("%w: missing session id", ErrInvalidMessage)
	}
	if m.Role < MessageRoleUser || m.Role > MessageRoleSystem {
		return fmt.Errorf("%w: %w", ErrInvalidMessage, ErrInvalidRole)
	}
	// Partial assistant messages may be empty when the stream died before the
	// first token; every other message needs content.
	if m.Content == "" && !m.Partial {
		return fmt.Errorf("%w: %w", ErrInvalidMessage, ErrEmptyContent)
	}
	return nil
}
