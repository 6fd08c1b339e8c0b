package retrieval

import "errors"

var (
	// ErrStoresRequired is returned when repositories are not provided.
	ErrStoresRequired = errors.New("stores required")

	// ErrCacheRequired is returned when a resource cache is not provided.
	ErrCacheRequired = errors.New("resource cache required")

	// ErrAIProviderRequired is returned when an AI provider is not provided.
	ErrAIProviderRequired = errors.New("AI provider required")
)
