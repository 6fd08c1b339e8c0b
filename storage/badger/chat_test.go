package badger

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corvus-ai/corvus/core"
	"github.com/corvus-ai/corvus/storage"
)

func addTestSession(t *testing.T, stores *storage.Stores) *core.ChatSession {
	t.Helper()
	kb := addTestKB(t, stores)
	s, err := stores.Chats.AddSession(context.Background(), &core.ChatSession{
		KnowledgeBaseId: kb.Id,
		Title:           "test chat",
		UseVectorSearch: true,
		SearchTopK:      5,
	})
	require.NoError(t, err)
	return s
}

func TestChatRepository_SessionLifecycle(t *testing.T) {
	stores := newTestStores(t)
	ctx := context.Background()
	s := addTestSession(t, stores)

	assert.NotZero(t, s.Id)
	assert.False(t, s.LastActiveAt.IsZero())

	got, err := stores.Chats.GetSession(ctx, s.Id)
	require.NoError(t, err)
	assert.Equal(t, "test chat", got.Title)
	assert.True(t, got.UseVectorSearch)

	got.Title = "renamed"
	got.MessageCount = 2
	_, err = stores.Chats.UpdateSession(ctx, got)
	require.NoError(t, err)

	got, err = stores.Chats.GetSession(ctx, s.Id)
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Title)
	assert.Equal(t, 2, got.MessageCount)

	_, err = stores.Chats.GetSession(ctx, 999)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestChatRepository_ListSessionsByKnowledgeBase(t *testing.T) {
	stores := newTestStores(t)
	ctx := context.Background()
	kb := addTestKB(t, stores)

	for i := 0; i < 3; i++ {
		_, err := stores.Chats.AddSession(ctx, &core.ChatSession{KnowledgeBaseId: kb.Id})
		require.NoError(t, err)
	}

	sessions, err := stores.Chats.ListSessionsByKnowledgeBase(ctx, kb.Id)
	require.NoError(t, err)
	assert.Len(t, sessions, 3)

	sessions, err = stores.Chats.ListSessionsByKnowledgeBase(ctx, 999)
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

func TestChatRepository_AddMessages_MonotonicIDs(t *testing.T) {
	stores := newTestStores(t)
	ctx := context.Background()
	s := addTestSession(t, stores)

	msgs, err := stores.Chats.AddMessages(ctx,
		&core.ChatMessage{SessionId: s.Id, Role: core.MessageRoleUser, Content: "hello"},
		&core.ChatMessage{SessionId: s.Id, Role: core.MessageRoleAssistant, Content: "hi"},
	)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.NotZero(t, msgs[0].Id)
	assert.Less(t, msgs[0].Id, msgs[1].Id)
}

func TestChatRepository_ListMessages_ConversationOrder(t *testing.T) {
	stores := newTestStores(t)
	ctx := context.Background()
	s := addTestSession(t, stores)

	for i := 0; i < 4; i++ {
		role := core.MessageRoleUser
		if i%2 == 1 {
			role = core.MessageRoleAssistant
		}
		_, err := stores.Chats.AddMessages(ctx, &core.ChatMessage{
			SessionId: s.Id,
			Role:      role,
			Content:   fmt.Sprintf("message %d", i),
		})
		require.NoError(t, err)
	}

	msgs, err := stores.Chats.ListMessages(ctx, s.Id)
	require.NoError(t, err)
	require.Len(t, msgs, 4)
	for i, m := range msgs {
		assert.Equal(t, fmt.Sprintf("message %d", i), m.Content)
	}
}

func TestChatRepository_RecentMessages_Window(t *testing.T) {
	stores := newTestStores(t)
	ctx := context.Background()
	s := addTestSession(t, stores)

	for i := 0; i < 10; i++ {
		role := core.MessageRoleUser
		if i%2 == 1 {
			role = core.MessageRoleAssistant
		}
		_, err := stores.Chats.AddMessages(ctx, &core.ChatMessage{
			SessionId: s.Id,
			Role:      role,
			Content:   fmt.Sprintf("message %d", i),
		})
		require.NoError(t, err)
	}

	// The window is the last 5 messages, returned oldest first.
	msgs, err := stores.Chats.RecentMessages(ctx, s.Id, 5)
	require.NoError(t, err)
	require.Len(t, msgs, 5)
	for i, m := range msgs {
		assert.Equal(t, fmt.Sprintf("message %d", i+5), m.Content)
	}

	// Fewer messages than the limit returns them all.
	msgs, err = stores.Chats.RecentMessages(ctx, s.Id, 20)
	require.NoError(t, err)
	assert.Len(t, msgs, 10)

	msgs, err = stores.Chats.RecentMessages(ctx, s.Id, 0)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestChatRepository_RecentMessages_DoesNotLeakAcrossSessions(t *testing.T) {
	stores := newTestStores(t)
	ctx := context.Background()
	s1 := addTestSession(t, stores)
	s2, err := stores.Chats.AddSession(ctx, &core.ChatSession{KnowledgeBaseId: s1.KnowledgeBaseId})
	require.NoError(t, err)

	_, err = stores.Chats.AddMessages(ctx,
		&core.ChatMessage{SessionId: s1.Id, Role: core.MessageRoleUser, Content: "in s1"},
		&core.ChatMessage{SessionId: s2.Id, Role: core.MessageRoleUser, Content: "in s2"},
	)
	require.NoError(t, err)

	msgs, err := stores.Chats.RecentMessages(ctx, s1.Id, 10)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "in s1", msgs[0].Content)
}

func TestChatRepository_DeleteSession_CascadesMessages(t *testing.T) {
	stores := newTestStores(t)
	ctx := context.Background()
	s := addTestSession(t, stores)

	_, err := stores.Chats.AddMessages(ctx,
		&core.ChatMessage{SessionId: s.Id, Role: core.MessageRoleUser, Content: "hello"},
		&core.ChatMessage{SessionId: s.Id, Role: core.MessageRoleAssistant, Content: "hi"},
	)
	require.NoError(t, err)

	require.NoError(t, stores.Chats.DeleteSession(ctx, s.Id))

	_, err = stores.Chats.GetSession(ctx, s.Id)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	msgs, err := stores.Chats.ListMessages(ctx, s.Id)
	require.NoError(t, err)
	assert.Empty(t, msgs)

	err = stores.Chats.DeleteSession(ctx, s.Id)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestChatRepository_AddMessageRejectsInvalid(t *testing.T) {
	stores := newTestStores(t)
	ctx := context.Background()
	s := addTestSession(t, stores)

	_, err := stores.Chats.AddMessages(ctx, &core.ChatMessage{
		SessionId: s.Id,
		Role:      core.MessageRoleUser,
	})
	assert.ErrorIs(t, err, core.ErrEmptyContent)

	// Partial assistant messages may be empty.
	_, err = stores.Chats.AddMessages(ctx, &core.ChatMessage{
		SessionId: s.Id,
		Role:      core.MessageRoleAssistant,
		Partial:   true,
	})
	assert.NoError(t, err)
}
