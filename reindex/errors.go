package reindex

import "errors"

var (
	// ErrInvalidMaxAttempts is returned when maxAttempts is <= 0
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")

	// ErrStoresRequired is returned by NewReindexer when stores is nil.
	ErrStoresRequired = errors.New("reindex: stores is required")

	// ErrCacheRequired is returned by NewReindexer when the resource cache is nil.
	ErrCacheRequired = errors.New("reindex: resource cache is required")

	// ErrAIProviderRequired is returned by NewReindexer when the AI provider is nil.
	ErrAIProviderRequired = errors.New("reindex: AI provider is required")
)
