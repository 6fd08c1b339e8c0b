package ai

import "github.com/corvus-ai/corvus/core"

// ExtractedEntity is a named entity identified in text, typed against the
// closed core.EntityType set.
type ExtractedEntity struct {
	// Name is the entity surface form as it should be stored in the graph.
	Name string

	// Type is the normalized entity category.
	Type core.EntityType
}

// Extraction is the result of analyzing one chunk of text.
type Extraction struct {
	// Entities lists the distinct entities mentioned in the text.
	Entities []ExtractedEntity

	// Triples lists the relations between entities, with per-relation
	// confidence. Triples reference entities by name; a triple may name
	// an entity absent from Entities, in which case it is typed Concept.
	Triples []core.Triple
}
