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
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/tmc/langchaingo/llms"

	"github.com/corvus-ai/corvus/ai"
	"github.com/corvus-ai/corvus/core"
	"github.com/corvus-ai/corvus/retrieval"
	"github.com/corvus-ai/corvus/storage"
)

const (
	// HistoryWindow is how many persisted messages precede each turn in
	// the completion request.
	HistoryWindow = 5

	// defaultTokenModel names the tokenizer used for token accounting.
	defaultTokenModel = "gpt-4o-mini"
)

// Assembler runs chat turns: it persists the user message, retrieves
// grounding context, assembles the sliding-window prompt, streams the
// completion and persists the assistant reply. Turns within one session are
// serialized; turns across sessions run concurrently.
type Assembler struct {
	stores     *storage.Stores
	engine     *retrieval.Engine
	completer  ai.Completer
	tokenModel string
	logger     *slog.Logger

	mu           sync.Mutex
	sessionLocks map[core.ID]*sync.Mutex
}

// Option configures an Assembler.
type Option func(*Assembler) error

// WithLogger sets a custom logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(a *Assembler) error {
		if logger == nil {
			logger = slog.Default()
		}
		a.logger = logger
		return nil
	}
}

// WithTokenModel sets the model name used for token counting.
func WithTokenModel(model string) Option {
	return func(a *Assembler) error {
		if model != "" {
			a.tokenModel = model
		}
		return nil
	}
}

// NewAssembler creates a chat assembler.
func NewAssembler(stores *storage.Stores, engine *retrieval.Engine, provider ai.AIProvider, opts ...Option) (*Assembler, error) {
	if stores == nil {
		return nil, ErrStoresRequired
	}
	if engine == nil {
		return nil, ErrEngineRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	a := &Assembler{
		stores:       stores,
		engine:       engine,
		completer:    provider.Completer(),
		tokenModel:   defaultTokenModel,
		logger:       slog.Default(),
		sessionLocks: make(map[core.ID]*sync.Mutex),
	}
	for _, opt := range opts {
		if err := opt(a); err != nil {
			return nil, err
		}
	}
	a.logger = a.logger.With("component", "chat")
	return a, nil
}

// TurnOption tunes one turn.
type TurnOption func(*turnConfig)

type turnConfig struct {
	temperature float64
	maxTokens   int
}

// WithTemperature sets the completion sampling temperature for this turn.
func WithTemperature(t float64) TurnOption {
	return func(c *turnConfig) { c.temperature = t }
}

// WithMaxTokens caps the reply length for this turn.
func WithMaxTokens(n int) TurnOption {
	return func(c *turnConfig) { c.maxTokens = n }
}

// Turn runs one conversation turn and returns the persisted assistant
// message. The user message is persisted before anything can fail, so it is
// never lost. If the reply stream dies partway — caller disconnect, provider
// error, sink error — the content produced so far is persisted with
// Partial set and the stream error is returned alongside that message.
func (a *Assembler) Turn(ctx context.Context, sessionID core.ID, userText string, sink EventSink, opts ...TurnOption) (*core.ChatMessage, error) {
	userText = strings.TrimSpace(userText)
	if userText == "" {
		return nil, ErrEmptyMessage
	}
	if sink == nil {
		sink = discardSink{}
	}

	var cfg turnConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	lock := a.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	session, err := a.stores.Chats.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	kb, err := a.stores.KnowledgeBases.GetKnowledgeBase(ctx, session.KnowledgeBaseId)
	if err != nil {
		return nil, err
	}

	start := time.Now()

	userTokens := llms.CountTokens(a.tokenModel, userText)
	userMsgs, err := a.stores.Chats.AddMessages(ctx, &core.ChatMessage{
		SessionId:  sessionID,
		Role:       core.MessageRoleUser,
		Content:    userText,
		TokenCount: userTokens,
	})
	if err != nil {
		return nil, err
	}
	userMsg := userMsgs[0]

	retrieved := a.retrieve(ctx, session, userText)
	if err := sink.Send(Event{
		Type:     EventContext,
		Chunks:   len(retrieved.Chunks),
		Entities: len(retrieved.Entities),
	}); err != nil {
		return nil, err
	}

	history, err := a.window(ctx, sessionID, userMsg.Id)
	if err != nil {
		return nil, err
	}

	req := ai.CompletionRequest{
		System:      buildSystemPrompt(kb, retrieved),
		History:     history,
		User:        userText,
		Temperature: cfg.temperature,
		MaxTokens:   cfg.maxTokens,
		OnDelta: func(ctx context.Context, chunk []byte) error {
			return sink.Send(Event{Type: EventDelta, Delta: string(chunk)})
		},
	}

	reply, streamErr := a.completer.Complete(ctx, req)
	elapsed := time.Since(start)

	// Persistence must survive a canceled caller context.
	storeCtx := context.WithoutCancel(ctx)

	assistant := &core.ChatMessage{
		SessionId:         sessionID,
		Role:              core.MessageRoleAssistant,
		Content:           reply,
		Partial:           streamErr != nil,
		RetrievedChunks:   chunkRefs(retrieved),
		RetrievedEntities: entityNames(retrieved),
		TokenCount:        llms.CountTokens(a.tokenModel, reply),
		ProcessingTime:    elapsed,
	}
	msgs, err := a.stores.Chats.AddMessages(storeCtx, assistant)
	if err != nil {
		return nil, err
	}
	assistant = msgs[0]

	session.MessageCount += 2
	session.TotalTokens += userTokens + assistant.TokenCount
	session.LastActiveAt = time.Now().UTC()
	if _, err := a.stores.Chats.UpdateSession(storeCtx, session); err != nil {
		a.logger.Warn("session update failed", "session", sessionID, "err", err)
	}

	if streamErr != nil {
		a.logger.Warn("reply stream ended early",
			"session", sessionID, "message", assistant.Id, "err", streamErr)
		if err := sink.Send(Event{Type: EventError, Err: streamErr}); err != nil {
			return assistant, streamErr
		}
		return assistant, streamErr
	}

	if err := sink.Send(Event{
		Type:           EventDone,
		MessageId:      assistant.Id,
		ProcessingTime: elapsed,
	}); err != nil {
		return assistant, err
	}
	return assistant, nil
}

// retrieve runs hybrid search with the session's flags. A retrieval failure
// degrades to an ungrounded turn rather than failing it.
func (a *Assembler) retrieve(ctx context.Context, session *core.ChatSession, query string) *retrieval.Result {
	if !session.UseVectorSearch && !session.UseGraphSearch {
		return &retrieval.Result{}
	}

	result, err := a.engine.Search(ctx, session.KnowledgeBaseId, query, retrieval.Options{
		TopK:      session.SearchTopK,
		UseVector: session.UseVectorSearch,
		UseGraph:  session.UseGraphSearch,
	})
	if err != nil {
		a.logger.Warn("retrieval degraded", "session", session.Id, "err", err)
		return &retrieval.Result{}
	}
	return result
}

// window returns the last HistoryWindow messages persisted before the
// message with beforeID, oldest first.
func (a *Assembler) window(ctx context.Context, sessionID, beforeID core.ID) ([]ai.Message, error) {
	recent, err := a.stores.Chats.RecentMessages(ctx, sessionID, HistoryWindow+1)
	if err != nil {
		return nil, err
	}

	history := make([]ai.Message, 0, HistoryWindow)
	for _, m := range recent {
		if m.Id >= beforeID {
			continue
		}
		history = append(history, ai.Message{Role: m.Role, Content: m.Content})
	}
	if len(history) > HistoryWindow {
		history = history[len(history)-HistoryWindow:]
	}
	return history, nil
}

func (a *Assembler) sessionLock(sessionID core.ID) *sync.Mutex {
	a.mu.Lock()
	defer a.mu.Unlock()
	lock, ok := a.sessionLocks[sessionID]
	if !ok {
		lock = &sync.Mutex{}
		a.sessionLocks[sessionID] = lock
	}
	return lock
}

func chunkRefs(r *retrieval.Result) []core.RetrievedChunkRef {
	if len(r.Chunks) == 0 {
		return nil
	}
	refs := make([]core.RetrievedChunkRef, len(r.Chunks))
	for i, c := range r.Chunks {
		refs[i] = core.RetrievedChunkRef{
			ChunkId:    c.ChunkId,
			DocumentId: c.DocumentId,
			Score:      c.Score,
		}
	}
	return refs
}

func entityNames(r *retrieval.Result) []string {
	if len(r.Entities) == 0 {
		return nil
	}
	names := make([]string, len(r.Entities))
	for i, e := range r.Entities {
		names[i] = e.Name
	}
	return names
}
