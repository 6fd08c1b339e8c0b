// Package openai implements the ai service interfaces against
// OpenAI-compatible HTTP APIs (OpenAI, Ollama, LocalAI, vLLM, etc).
//
// Three services are provided:
//
//   - Embedder: text embeddings via the embeddings endpoint
//   - EntityExtractor: entity and relation extraction via JSON-mode chat
//   - Completer: streamed chat completions
//
// All three share an ai.Config; NewProvider builds them together so they
// agree on hosts, models, and the API key.
//
// The extractor asks the model for strict JSON and retries up to three times
// on malformed output, with a small repair pass for the usual LLM quoting
// mistakes.
package openai
