package ingestion

import (
	"errors"
	"fmt"
)

var (
	// ErrStoresRequired is returned when repositories are not provided.
	ErrStoresRequired = errors.New("stores required")

	// ErrAIProviderRequired is returned when an AI provider is not provided.
	ErrAIProviderRequired = errors.New("AI provider required")

	// ErrCacheRequired is returned when a resource cache is not provided.
	ErrCacheRequired = errors.New("resource cache required")

	// ErrPipelineClosed is returned when submitting to a released pipeline.
	ErrPipelineClosed = errors.New("pipeline closed")
)

// FatalStageError marks a stage failure that aborts the run and fails the
// document. Only the chunking stage produces these.
type FatalStageError struct {
	Stage string
	Err   error
}

func (e *FatalStageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *FatalStageError) Unwrap() error { return e.Err }

// PartialStageError marks a stage failure the run survives: the document
// completes without that stage's output.
type PartialStageError struct {
	Stage string
	Err   error
}

func (e *PartialStageError) Error() string {
	return fmt.Sprintf("stage %s (non-fatal): %v", e.Stage, e.Err)
}

func (e *PartialStageError) Unwrap() error { return e.Err }
