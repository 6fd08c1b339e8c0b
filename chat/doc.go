// Package chat assembles retrieval-grounded conversation turns.
//
// Each turn persists the user message, retrieves knowledge base context per
// the session's search flags, builds a system prompt from the knowledge base
// and the retrieved evidence, replays a sliding window of recent messages,
// and streams the completion through an EventSink. Interrupted streams leave
// a partial assistant message behind; the user message is never lost.
package chat
