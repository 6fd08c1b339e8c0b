package chat

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corvus-ai/corvus/ai"
	"github.com/corvus-ai/corvus/ai/mock"
	"github.com/corvus-ai/corvus/core"
	"github.com/corvus-ai/corvus/resources"
	"github.com/corvus-ai/corvus/retrieval"
	"github.com/corvus-ai/corvus/storage"
	"github.com/corvus-ai/corvus/storage/badger"
)

type chatFixture struct {
	stores    *storage.Stores
	completer *mock.MockCompleter
	assembler *Assembler
	kb        *core.KnowledgeBase
}

func newChatFixture(t *testing.T) *chatFixture {
	t.Helper()
	ctx := context.Background()

	stores, backend, err := badger.NewMemoryStores()
	require.NoError(t, err)
	t.Cleanup(func() {
		stores.Close()
		backend.Close()
	})

	completer := mock.NewMockCompleter()
	provider := mock.NewMockProviderWithServices(mock.NewMockEmbedder(), mock.NewMockExtractor(), completer)
	cache := resources.New(t.TempDir(), nil, resources.WithProvider(provider))

	engine, err := retrieval.NewEngine(stores, cache, provider)
	require.NoError(t, err)
	assembler, err := NewAssembler(stores, engine, provider)
	require.NoError(t, err)

	kb, err := stores.KnowledgeBases.AddKnowledgeBase(ctx, &core.KnowledgeBase{
		Name:             "orbital mechanics",
		Description:      "course notes",
		EnableGraphStore: true,
	})
	require.NoError(t, err)

	return &chatFixture{
		stores:    stores,
		completer: completer,
		assembler: assembler,
		kb:        kb,
	}
}

// addSession creates a session with search disabled unless flags are set by
// the caller afterwards.
func (f *chatFixture) addSession(t *testing.T, s core.ChatSession) *core.ChatSession {
	t.Helper()
	s.KnowledgeBaseId = f.kb.Id
	created, err := f.stores.Chats.AddSession(context.Background(), &s)
	require.NoError(t, err)
	return created
}

func TestAssembler_TurnPersistsBothMessages(t *testing.T) {
	f := newChatFixture(t)
	session := f.addSession(t, core.ChatSession{Title: "first"})

	sink := &CollectSink{}
	msg, err := f.assembler.Turn(context.Background(), session.Id, "What is a Hohmann transfer?", sink)
	require.NoError(t, err)

	assert.Equal(t, core.MessageRoleAssistant, msg.Role)
	assert.False(t, msg.Partial)
	assert.NotEmpty(t, msg.Content)
	assert.Equal(t, msg.Content, sink.Text())
	assert.Positive(t, msg.ProcessingTime)

	msgs, err := f.stores.Chats.ListMessages(context.Background(), session.Id)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, core.MessageRoleUser, msgs[0].Role)
	assert.Equal(t, "What is a Hohmann transfer?", msgs[0].Content)
	assert.Equal(t, core.MessageRoleAssistant, msgs[1].Role)

	// Event order: context first, then deltas, then done.
	require.NotEmpty(t, sink.Events)
	assert.Equal(t, EventContext, sink.Events[0].Type)
	last := sink.Events[len(sink.Events)-1]
	assert.Equal(t, EventDone, last.Type)
	assert.Equal(t, msg.Id, last.MessageId)

	updated, err := f.stores.Chats.GetSession(context.Background(), session.Id)
	require.NoError(t, err)
	assert.Equal(t, 2, updated.MessageCount)
	assert.Equal(t, msgs[0].TokenCount+msg.TokenCount, updated.TotalTokens)
	assert.False(t, updated.LastActiveAt.IsZero())
}

func TestAssembler_WindowIsLastFiveBeforeTurn(t *testing.T) {
	f := newChatFixture(t)
	session := f.addSession(t, core.ChatSession{Title: "long"})
	ctx := context.Background()

	// Seed a 10-message history; the 11th turn must see exactly messages
	// 6..10, oldest first.
	for i := 1; i <= 10; i++ {
		role := core.MessageRoleUser
		if i%2 == 0 {
			role = core.MessageRoleAssistant
		}
		_, err := f.stores.Chats.AddMessages(ctx, &core.ChatMessage{
			SessionId: session.Id,
			Role:      role,
			Content:   fmt.Sprintf("message %d", i),
		})
		require.NoError(t, err)
	}

	var captured []ai.Message
	f.completer.CompleteFunc = func(ctx context.Context, req ai.CompletionRequest) (string, error) {
		captured = req.History
		return "ok", nil
	}

	_, err := f.assembler.Turn(ctx, session.Id, "message 11", nil)
	require.NoError(t, err)

	require.Len(t, captured, 5)
	for i, m := range captured {
		assert.Equal(t, fmt.Sprintf("message %d", i+6), m.Content)
	}
	assert.Equal(t, core.MessageRoleAssistant, captured[0].Role)
	assert.Equal(t, core.MessageRoleAssistant, captured[4].Role)
}

func TestAssembler_PartialPersistedOnStreamError(t *testing.T) {
	f := newChatFixture(t)
	session := f.addSession(t, core.ChatSession{Title: "flaky"})
	ctx := context.Background()

	streamErr := errors.New("connection reset")
	f.completer.CompleteFunc = func(ctx context.Context, req ai.CompletionRequest) (string, error) {
		require.NotNil(t, req.OnDelta)
		_ = req.OnDelta(ctx, []byte("half an "))
		_ = req.OnDelta(ctx, []byte("answer"))
		return "half an answer", streamErr
	}

	sink := &CollectSink{}
	msg, err := f.assembler.Turn(ctx, session.Id, "tell me everything", sink)
	require.ErrorIs(t, err, streamErr)
	require.NotNil(t, msg)

	assert.True(t, msg.Partial)
	assert.Equal(t, "half an answer", msg.Content)

	// Both messages survive the failed stream.
	msgs, listErr := f.stores.Chats.ListMessages(ctx, session.Id)
	require.NoError(t, listErr)
	require.Len(t, msgs, 2)
	assert.Equal(t, "tell me everything", msgs[0].Content)
	assert.True(t, msgs[1].Partial)

	last := sink.Events[len(sink.Events)-1]
	assert.Equal(t, EventError, last.Type)
	assert.ErrorIs(t, last.Err, streamErr)
}

func TestAssembler_SinkErrorAbortsStream(t *testing.T) {
	f := newChatFixture(t)
	session := f.addSession(t, core.ChatSession{Title: "gone"})

	sinkErr := errors.New("client went away")
	sink := &failingSink{failAfter: 2, err: sinkErr}

	msg, err := f.assembler.Turn(context.Background(), session.Id, "a long question", sink)
	require.ErrorIs(t, err, sinkErr)
	require.NotNil(t, msg)
	assert.True(t, msg.Partial)
}

func TestAssembler_RetrievedContextInPrompt(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	doc, err := f.stores.Documents.AddDocument(ctx, &core.Document{
		KnowledgeBaseId: f.kb.Id,
		Content:         "source",
	})
	require.NoError(t, err)
	_, err = f.stores.Chunks.AddChunks(ctx, &core.Chunk{
		DocumentId: doc.Id,
		Index:      0,
		Content:    "Apogee is the farthest point of an orbit.",
		Entities:   []string{"Apogee"},
	})
	require.NoError(t, err)

	session := f.addSession(t, core.ChatSession{
		Title:          "grounded",
		UseGraphSearch: true,
		SearchTopK:     3,
	})

	var system string
	f.completer.CompleteFunc = func(ctx context.Context, req ai.CompletionRequest) (string, error) {
		system = req.System
		return "grounded answer", nil
	}

	sink := &CollectSink{}
	_, err = f.assembler.Turn(ctx, session.Id, "apogee", sink)
	require.NoError(t, err)

	assert.Contains(t, system, "orbital mechanics")
	assert.Contains(t, system, "Apogee is the farthest point of an orbit.")
	assert.Contains(t, system, "Entity: Apogee")

	require.NotEmpty(t, sink.Events)
	assert.Equal(t, EventContext, sink.Events[0].Type)
	assert.Equal(t, 1, sink.Events[0].Chunks)
	assert.Equal(t, 1, sink.Events[0].Entities)

	msgs, err := f.stores.Chats.ListMessages(ctx, session.Id)
	require.NoError(t, err)
	assistant := msgs[len(msgs)-1]
	require.Len(t, assistant.RetrievedChunks, 1)
	assert.Equal(t, []string{"Apogee"}, assistant.RetrievedEntities)
}

func TestAssembler_SearchDisabledSkipsRetrieval(t *testing.T) {
	f := newChatFixture(t)
	session := f.addSession(t, core.ChatSession{Title: "plain"})

	sink := &CollectSink{}
	msg, err := f.assembler.Turn(context.Background(), session.Id, "hello", sink)
	require.NoError(t, err)

	assert.Equal(t, EventContext, sink.Events[0].Type)
	assert.Zero(t, sink.Events[0].Chunks)
	assert.Zero(t, sink.Events[0].Entities)
	assert.Empty(t, msg.RetrievedChunks)
}

func TestAssembler_EmptyMessage(t *testing.T) {
	f := newChatFixture(t)
	session := f.addSession(t, core.ChatSession{Title: "blank"})

	_, err := f.assembler.Turn(context.Background(), session.Id, "   ", nil)
	assert.ErrorIs(t, err, ErrEmptyMessage)
}

func TestAssembler_UnknownSession(t *testing.T) {
	f := newChatFixture(t)

	_, err := f.assembler.Turn(context.Background(), 999, "hi", nil)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestChannelSink(t *testing.T) {
	sink := NewChannelSink(4)
	require.NoError(t, sink.Send(Event{Type: EventDelta, Delta: "a"}))
	require.NoError(t, sink.Send(Event{Type: EventDone}))
	sink.Close()

	var got []Event
	for e := range sink.Events() {
		got = append(got, e)
	}
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].Delta)
	assert.Equal(t, EventDone, got[1].Type)
}

// failingSink accepts failAfter delta events and then errors.
type failingSink struct {
	failAfter int
	err       error
	deltas    int
}

func (s *failingSink) Send(e Event) error {
	if e.Type != EventDelta {
		return nil
	}
	s.deltas++
	if s.deltas > s.failAfter {
		return s.err
	}
	return nil
}
