package chat

import "errors"

var (
	// ErrStoresRequired is returned by NewAssembler when stores is nil.
	ErrStoresRequired = errors.New("chat: stores is required")

	// ErrEngineRequired is returned by NewAssembler when the retrieval
	// engine is nil.
	ErrEngineRequired = errors.New("chat: retrieval engine is required")

	// ErrAIProviderRequired is returned by NewAssembler when the AI
	// provider is nil.
	ErrAIProviderRequired = errors.New("chat: AI provider is required")

	// ErrEmptyMessage is returned by Turn for a blank user message.
	ErrEmptyMessage = errors.New("chat: message is empty")
)
