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

package chat

import (
	"fmt"
	"strings"

	"github.com/corvus-ai/corvus/core"
	"github.com/corvus-ai/corvus/retrieval"
)

// maxRelatedInPrompt caps how many related entities appear per entity in the
// system prompt.
const maxRelatedInPrompt = 3

// buildSystemPrompt renders the grounding instructions plus retrieved
// context. Duplicate chunk contents collapse to one excerpt.
func buildSystemPrompt(kb *core.KnowledgeBase, retrieved *retrieval.Result) string {
	description := kb.Description
	if description == "" {
		description = "none"
	}

	var b strings.Builder
	fmt.Fprintf(&b, `You are an assistant that answers questions using the provided knowledge base content.

Knowledge base: %s
Description: %s

Guidelines:
1. Prefer the retrieved knowledge base content when answering.
2. If the knowledge base holds no relevant information, say so honestly.
3. Name the source when quoting specific content.
4. Keep answers accurate, concise and helpful.`, kb.Name, description)

	context := renderContext(retrieved)
	if context != "" {
		b.WriteString("\n\nRetrieved content:")
		b.WriteString(context)
	}
	return b.String()
}

func renderContext(retrieved *retrieval.Result) string {
	if retrieved == nil {
		return ""
	}

	var b strings.Builder

	seen := make(map[string]struct{})
	for _, chunk := range retrieved.Chunks {
		if _, dup := seen[chunk.Content]; dup {
			continue
		}
		seen[chunk.Content] = struct{}{}
		fmt.Fprintf(&b, "\n\nDocument excerpt %d:\n%s", chunk.Index, chunk.Content)
	}

	for _, ent := range retrieved.Entities {
		fmt.Fprintf(&b, "\n\nEntity: %s (%s)", ent.Name, ent.Type)
		if len(ent.Related) == 0 {
			continue
		}
		b.WriteString("\nRelated entities:")
		for i, rel := range ent.Related {
			if i == maxRelatedInPrompt {
				break
			}
			fmt.Fprintf(&b, "\n  - %s (%s)", rel.Name, rel.Relation)
		}
	}
	return b.String()
}
