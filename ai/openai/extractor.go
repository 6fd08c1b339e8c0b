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


package openai

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/corvus-ai/corvus/ai"
	"github.com/corvus-ai/corvus/core"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// EntityExtractor implements ai.EntityExtractor using OpenAI-compatible chat APIs.
type EntityExtractor struct {
	client        llms.Model
	minConfidence float64
	logger        *slog.Logger
}

// entity and relation are internal types used for JSON unmarshaling.
// They match the structure expected from the LLM.
type entity struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type relation struct {
	Subject     string  `json:"subject"`
	SubjectType string  `json:"subject_type"`
	Predicate   string  `json:"predicate"`
	Object      string  `json:"object"`
	ObjectType  string  `json:"object_type"`
	Confidence  float64 `json:"confidence"`
}

// extraction is the wrapper structure for the LLM's JSON response.
type extraction struct {
	Entities  []entity   `json:"entities"`
	Relations []relation `json:"relations"`
}

// newEntityExtractor is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newEntityExtractor(config *ai.Config) (*EntityExtractor, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := openai.New(
		openai.WithBaseURL(config.ChatHost),
		openai.WithToken(config.APIKey),
		openai.WithModel(config.ExtractionModel),
	)
	if err != nil {
		return nil, err
	}

	return &EntityExtractor{
		client:        client,
		minConfidence: config.MinConfidence,
		logger:        slog.Default().With("component", "openai-extractor"),
	}, nil
}

// NewEntityExtractor creates a new entity extractor using the provided configuration.
//
// Returns ai.EntityExtractor interface to enforce abstraction.
func NewEntityExtractor(config *ai.Config) (ai.EntityExtractor, error) {
	return newEntityExtractor(config)
}

// Extract pulls entities and relations from text using an LLM. Relation
// confidence is filtered against the configured minimum; entity types are
// normalized onto the closed core.EntityType set.
func (e *EntityExtractor) Extract(ctx context.Context, text string) (*ai.Extraction, error) {
	text = truncateForPrompt(text)

	systemPrompt := buildExtractionPrompt()
	content := []llms.MessageContent{
		{
			Role: llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{
				llms.TextPart(systemPrompt),
			},
		},
		{
			Role: llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.TextPart(text),
			},
		},
	}

	// Try up to 3 times in case of malformed JSON
	var result extraction
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		response, err := e.client.GenerateContent(ctx, content, llms.WithTemperature(0.0), llms.WithJSONMode())
		if err != nil {
			e.logger.Error("failed to generate content", "attempt", attempt+1, "err", err)
			return nil, err
		}

		if len(response.Choices) < 1 {
			e.logger.Debug("no choices returned from model")
			return &ai.Extraction{}, nil
		}

		choice := response.Choices[0]

		// Strip markdown code fences if present
		responseText := strings.TrimSpace(choice.Content)
		responseText = strings.TrimPrefix(responseText, "```json")
		responseText = strings.TrimPrefix(responseText, "```")
		responseText = strings.TrimSuffix(responseText, "```")
		responseText = strings.TrimSpace(responseText)

		// Try to repair common JSON issues
		responseText = repairJSON(responseText)

		if err := json.Unmarshal([]byte(responseText), &result); err != nil {
			lastErr = err
			e.logger.Warn("error parsing extraction response",
				"attempt", attempt+1,
				"response", responseText,
				"err", err)
			continue
		}

		// Success
		lastErr = nil
		break
	}

	if lastErr != nil {
		e.logger.Error("failed to parse extraction response after retries", "err", lastErr)
		return nil, lastErr
	}

	out := &ai.Extraction{}

	// Known entity types take priority over types claimed inside relations.
	typeByName := make(map[string]core.EntityType, len(result.Entities))
	seen := make(map[string]struct{}, len(result.Entities))
	for _, ent := range result.Entities {
		name := strings.TrimSpace(ent.Name)
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}

		typed := core.NormalizeEntityType(ent.Type)
		typeByName[name] = typed
		out.Entities = append(out.Entities, ai.ExtractedEntity{Name: name, Type: typed})
	}

	entityType := func(name, claimed string) core.EntityType {
		if t, ok := typeByName[name]; ok {
			return t
		}
		return core.NormalizeEntityType(claimed)
	}

	for _, rel := range result.Relations {
		subject := strings.TrimSpace(rel.Subject)
		object := strings.TrimSpace(rel.Object)
		predicate := strings.TrimSpace(rel.Predicate)
		if subject == "" || object == "" || predicate == "" {
			continue
		}
		if rel.Confidence < e.minConfidence {
			continue
		}
		out.Triples = append(out.Triples, core.Triple{
			Subject:     subject,
			SubjectType: entityType(subject, rel.SubjectType),
			Predicate:   predicate,
			Object:      object,
			ObjectType:  entityType(object, rel.ObjectType),
			Confidence:  rel.Confidence,
		})
	}

	e.logger.Debug("extracted entities and relations",
		"entities", len(out.Entities),
		"relations", len(out.Triples))

	return out, nil
}
