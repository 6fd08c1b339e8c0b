package core

import (
	"errors"
	"testing"
)

func TestValidateKnowledgeBase(t *testing.T) {
	tests := []struct {
		name    string
		kb      *KnowledgeBase
		wantErr error
	}{
		{
			name:    "nil knowledge base",
			kb:      nil,
			wantErr: ErrInvalidKnowledgeBase,
		},
		{
			name:    "missing name",
			kb:      &KnowledgeBase{},
			wantErr: ErrEmptyName,
		},
		{
			name:    "overlap not below size",
			kb:      &KnowledgeBase{Name: "kb", DefaultChunkSize: 100, DefaultChunkOverlap: 100},
			wantErr: ErrInvalidChunkParams,
		},
		{
			name: "valid",
			kb:   &KnowledgeBase{Name: "kb", DefaultChunkSize: 500, DefaultChunkOverlap: 50},
		},
		{
			name: "zero sizes use defaults",
			kb:   &KnowledgeBase{Name: "kb"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateKnowledgeBase(tt.kb)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateKnowledgeBase() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateKnowledgeBase() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateDocument(t *testing.T) {
	tests := []struct {
		name    string
		doc     *Document
		wantErr error
	}{
		{
			name:    "nil document",
			doc:     nil,
			wantErr: ErrInvalidDocument,
		},
		{
			name:    "empty content",
			doc:     &Document{KnowledgeBaseId: 1},
			wantErr: ErrEmptyContent,
		},
		{
			name:    "missing knowledge base id",
			doc:     &Document{Content: "text"},
			wantErr: ErrInvalidDocument,
		},
		{
			name:    "invalid status",
			doc:     &Document{KnowledgeBaseId: 1, Content: "text", Status: DocumentStatus(42)},
			wantErr: ErrInvalidStatus,
		},
		{
			name:    "overlap not below size",
			doc:     &Document{KnowledgeBaseId: 1, Content: "text", ChunkSize: 10, ChunkOverlap: 10},
			wantErr: ErrInvalidChunkParams,
		},
		{
			name: "valid pending document",
			doc:  &Document{KnowledgeBaseId: 1, Content: "text", Status: DocumentStatusPending},
		},
		{
			name: "zero status allowed before first persist",
			doc:  &Document{KnowledgeBaseId: 1, Content: "text"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDocument(tt.doc)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateDocument() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateDocument() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateChunk(t *testing.T) {
	if err := ValidateChunk(nil); !errors.Is(err, ErrInvalidChunk) {
		t.Errorf("ValidateChunk(nil) error = %v", err)
	}
	if err := ValidateChunk(&Chunk{Index: 0}); !errors.Is(err, ErrInvalidChunk) {
		t.Errorf("ValidateChunk() missing document id, error = %v", err)
	}
	if err := ValidateChunk(&Chunk{DocumentId: 1, Index: -1}); !errors.Is(err, ErrInvalidChunk) {
		t.Errorf("ValidateChunk() negative index, error = %v", err)
	}
	if err := ValidateChunk(&Chunk{DocumentId: 1, Index: 0, Content: "c"}); err != nil {
		t.Errorf("ValidateChunk() valid chunk, error = %v", err)
	}
}

func TestValidateSession(t *testing.T) {
	if err := ValidateSession(nil); !errors.Is(err, ErrInvalidSession) {
		t.Errorf("ValidateSession(nil) error = %v", err)
	}
	if err := ValidateSession(&ChatSession{}); !errors.Is(err, ErrInvalidSession) {
		t.Errorf("ValidateSession() missing kb id, error = %v", err)
	}
	if err := ValidateSession(&ChatSession{KnowledgeBaseId: 1, SearchTopK: -1}); !errors.Is(err, ErrInvalidSession) {
		t.Errorf("ValidateSession() negative top-k, error = %v", err)
	}
	if err := ValidateSession(&ChatSession{KnowledgeBaseId: 1, SearchTopK: 5}); err != nil {
		t.Errorf("ValidateSession() valid session, error = %v", err)
	}
}

func TestValidateMessage(t *testing.T) {
	tests := []struct {
		name    string
		msg     *ChatMessage
		wantErr error
	}{
		{
			name:    "nil message",
			msg:     nil,
			wantErr: ErrInvalidMessage,
		},
		{
			name:    "missing session id",
			msg:     &ChatMessage{Role: MessageRoleUser, Content: "hi"},
			wantErr: ErrInvalidMessage,
		},
		{
			name:    "invalid role",
			msg:     &ChatMessage{SessionId: 1, Role: MessageRole(9), Content: "hi"},
			wantErr: ErrInvalidRole,
		},
		{
			name:    "empty non-partial content",
			msg:     &ChatMessage{SessionId: 1, Role: MessageRoleUser},
			wantErr: ErrEmptyContent,
		},
		{
			name: "empty partial assistant message allowed",
			msg:  &ChatMessage{SessionId: 1, Role: MessageRoleAssistant, Partial: true},
		},
		{
			name: "valid user message",
			msg:  &ChatMessage{SessionId: 1, Role: MessageRoleUser, Content: "hi"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateMessage(tt.msg)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateMessage() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateMessage() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
