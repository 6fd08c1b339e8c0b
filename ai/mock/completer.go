package mock

import (
	"context"
	"strings"

	"github.com/corvus-ai/corvus/ai"
)

// MockCompleter is a test double for ai.Completer.
// It allows custom behavior injection via function fields.
type MockCompleter struct {
	// CompleteFunc is called by Complete if set.
	// If nil, uses default canned behavior.
	CompleteFunc func(ctx context.Context, req ai.CompletionRequest) (string, error)

	// Reply overrides the default canned reply when CompleteFunc is nil.
	Reply string

	callCount int
}

// NewMockCompleter creates a mock completer with default canned behavior.
// Note: Returns concrete type to allow test assertions and behavior injection.
func NewMockCompleter() *MockCompleter {
	return &MockCompleter{}
}

// Complete returns a canned reply, streaming it word by word through
// req.OnDelta when the callback is set. A mid-stream OnDelta error aborts
// the stream and returns the text delivered so far, mirroring production
// behavior.
func (m *MockCompleter) Complete(ctx context.Context, req ai.CompletionRequest) (string, error) {
	m.callCount++

	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, req)
	}

	reply := m.Reply
	if reply == "" {
		reply = "Mock answer to: " + req.User
	}

	if req.OnDelta == nil {
		return reply, nil
	}

	var sent strings.Builder
	words := strings.SplitAfter(reply, " ")
	for _, w := range words {
		if err := ctx.Err(); err != nil {
			return sent.String(), err
		}
		if err := req.OnDelta(ctx, []byte(w)); err != nil {
			return sent.String(), err
		}
		sent.WriteString(w)
	}
	return sent.String(), nil
}

// CallCount returns the number of times Complete was called.
func (m *MockCompleter) CallCount() int {
	return m.callCount
}

// Reset clears the call count and custom functions.
func (m *MockCompleter) Reset() {
	m.callCount = 0
	m.CompleteFunc = nil
	m.Reply = ""
}
