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
	"strings"
	"time"

	"github.com/corvus-ai/corvus/core"
)

// EventType identifies what a turn event carries.
type EventType int

const (
	// EventContext reports how much retrieved context grounds the reply.
	EventContext EventType = iota + 1
	// EventDelta carries one streamed fragment of the assistant reply.
	EventDelta
	// EventDone marks a completed turn.
	EventDone
	// EventError marks a turn that ended with an error; any content
	// generated before the failure has been persisted as a partial message.
	EventError
)

func (t EventType) String() string {
	switch t {
	case EventContext:
		return "context"
	case EventDelta:
		return "delta"
	case EventDone:
		return "done"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is one observable step of a chat turn.
type Event struct {
	Type EventType

	// Delta is set for EventDelta.
	Delta string

	// Chunks and Entities are set for EventContext.
	Chunks   int
	Entities int

	// MessageId and ProcessingTime are set for EventDone.
	MessageId      core.ID
	ProcessingTime time.Duration

	// Err is set for EventError.
	Err error
}

// EventSink receives turn events as they happen. A Send error aborts the
// reply stream; content produced so far is still persisted.
type EventSink interface {
	Send(Event) error
}

// ChannelSink adapts an EventSink onto a buffered channel, for callers that
// consume events from another goroutine (an SSE writer, a TUI loop).
type ChannelSink struct {
	ch chan Event
}

// NewChannelSink creates a sink buffering up to size events.
func NewChannelSink(size int) *ChannelSink {
	if size < 1 {
		size = 1
	}
	return &ChannelSink{ch: make(chan Event, size)}
}

// Send blocks until the event is buffered.
func (s *ChannelSink) Send(e Event) error {
	s.ch <- e
	return nil
}

// Events returns the receive side of the sink.
func (s *ChannelSink) Events() <-chan Event {
	return s.ch
}

// Close closes the event channel. Call only after the turn has returned.
func (s *ChannelSink) Close() {
	close(s.ch)
}

// CollectSink records every event, for non-streaming callers and tests.
type CollectSink struct {
	Events []Event
}

// Send appends the event.
func (s *CollectSink) Send(e Event) error {
	s.Events = append(s.Events, e)
	return nil
}

// Text concatenates the collected delta fragments.
func (s *CollectSink) Text() string {
	var b strings.Builder
	for _, e := range s.Events {
		if e.Type == EventDelta {
			b.WriteString(e.Delta)
		}
	}
	return b.String()
}

// discardSink lets callers pass a nil sink.
type discardSink struct{}

func (discardSink) Send(Event) error { return nil }
