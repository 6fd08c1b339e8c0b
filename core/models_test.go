package core

import (
	"testing"
)

func TestIDFromContent(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name:    "same content produces same ID",
			content: "test content",
		},
		{
			name:    "empty string",
			content: "",
		},
		{
			name:    "long content",
			content: "This is a much longer piece of content that should still hash consistently",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id1 := IDFromContent(tt.content)
			id2 := IDFromContent(tt.content)

			if id1 != id2 {
				t.Errorf("IDFromContent() produced different IDs for same content: %d vs %d", id1, id2)
			}
		})
	}
}

func TestIDFromContent_Different(t *testing.T) {
	id1 := IDFromContent("content1")
	id2 := IDFromContent("content2")

	if id1 == id2 {
		t.Errorf("IDFromContent() produced same ID for different content")
	}
}

func TestDocumentStatus_String(t *testing.T) {
	tests := []struct {
		status DocumentStatus
		want   string
	}{
		{DocumentStatusPending, "pending"},
		{DocumentStatusProcessing, "processing"},
		{DocumentStatusCompleted, "completed"},
		{DocumentStatusFailed, "failed"},
		{DocumentStatus(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.status.String(); got != tt.want {
			t.Errorf("DocumentStatus(%d).String() = %q, want %q", tt.status, got, tt.want)
		}
	}
}

func TestNormalizeEntityType(t *testing.T) {
	tests := []struct {
		name  string
		label string
		want  EntityType
	}{
		{"canonical name", "Person", EntityPerson},
		{"lowercase canonical", "organization", EntityOrganization},
		{"uppercase canonical", "LOCATION", EntityLocation},
		{"alias company", "company", EntityOrganization},
		{"alias people", "People", EntityPerson},
		{"alias time", "time", EntityDate},
		{"unknown label falls back", "quasar", EntityConcept},
		{"empty label falls back", "", EntityConcept},
		{"whitespace label falls back", "   ", EntityConcept},
		{"padded canonical", "  Product  ", EntityProduct},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeEntityType(tt.label); got != tt.want {
				t.Errorf("NormalizeEntityType(%q) = %q, want %q", tt.label, got, tt.want)
			}
		})
	}
}
