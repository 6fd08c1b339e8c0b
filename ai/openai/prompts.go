package openai

import (
	"fmt"
	"strings"

	"github.com/corvus-ai/corvus/core"
)

const extractionResponseSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "entities": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "name": {
            "type": "string"
          },
          "type": {
            "type": "string"
          }
        },
        "required": ["name", "type"],
        "additionalProperties": false
      }
    },
    "relations": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "subject": {
            "type": "string"
          },
          "subject_type": {
            "type": "string"
          },
          "predicate": {
            "type": "string"
          },
          "object": {
            "type": "string"
          },
          "object_type": {
            "type": "string"
          },
          "confidence": {
            "type": "number",
            "minimum": 0,
            "maximum": 1
          }
        },
        "required": ["subject", "predicate", "object"],
        "additionalProperties": false
      }
    }
  },
  "required": ["entities", "relations"],
  "additionalProperties": false
}`

const extractionPromptTemplate = `Extract the named entities and the relations between them from the given text and return them as JSON.

Output ONLY valid JSON which complies with the schema given below. Do not include any preamble, explanation,
greeting, or acknowledgment. Start your response directly with the opening brace { and end with the closing
brace }. Your output must exactly follow this schema:

%s

Rules:
- Entity names keep the surface form used in the text; do not translate or paraphrase them.
- Type fields must match exactly one of the listed values: %s.
- A relation's subject and object should both appear in the entities list.
- Predicates are short verb phrases in the language of the text, e.g. "works_at", "located_in", "founded".
- Confidence is a number from 0.0 (guess) to 1.0 (explicitly stated). Rate based on how directly the text supports the relation.
- Include only entities and relations that are explicitly mentioned or clearly implied by the text. Do not hallucinate.
- If nothing can be identified, return "entities": [] and "relations": [].
- The JSON must parse without errors; no trailing commas, no extra keys, and no extraneous text outside the object.

Example:
Input: "Alice Chen joined Acme Corp in 2019 and now leads its Shanghai office."
Output:
{
  "entities": [
    {"name":"Alice Chen","type":"Person"},
    {"name":"Acme Corp","type":"Organization"},
    {"name":"2019","type":"Date"},
    {"name":"Shanghai","type":"Location"}
  ],
  "relations": [
    {"subject":"Alice Chen","subject_type":"Person","predicate":"works_at","object":"Acme Corp","object_type":"Organization","confidence":0.95},
    {"subject":"Alice Chen","subject_type":"Person","predicate":"leads_office_in","object":"Shanghai","object_type":"Location","confidence":0.9},
    {"subject":"Alice Chen","subject_type":"Person","predicate":"joined_in","object":"2019","object_type":"Date","confidence":0.9}
  ]
}

Example (nothing extractable):
Input: "ok thanks"
Output:
{
  "entities": [],
  "relations": []
}`

// buildExtractionPrompt creates the system prompt with entity types embedded.
func buildExtractionPrompt() string {
	names := make([]string, len(core.EntityTypes))
	for i, t := range core.EntityTypes {
		names[i] = string(t)
	}
	return fmt.Sprintf(extractionPromptTemplate,
		extractionResponseSchema,
		strings.Join(names, ", "))
}
