package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iyunix/go-muro/internal/domain"
	"github.com/iyunix/go-muro/internal/repository/conversation"
	"github.com/iyunix/go-muro/internal/repository/message"
)

func TestStoreTurnLifecycle(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	conv, err := store.Conversations().Create(ctx, &domain.Conversation{})
	require.NoError(t, err)

	user := &domain.Message{ConversationID: conv.ID, Role: domain.RoleUser, Content: "hi", Status: domain.StatusSent}
	assistant := &domain.Message{ConversationID: conv.ID, Role: domain.RoleAssistant, Status: domain.StatusSending}
	require.NoError(t, store.Messages().CreateTurn(ctx, user, assistant))

	won, err := store.Messages().Settle(ctx, assistant.ID, message.Failed("pa", "Client disconnected", ""))
	require.NoError(t, err)
	assert.True(t, won)

	won, err = store.Messages().Settle(ctx, assistant.ID, message.Sent("late"))
	require.NoError(t, err)
	assert.False(t, won)

	ok, err := store.Messages().ResetForRetry(ctx, assistant.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	msgs, err := store.Messages().FindByConversationID(ctx, conv.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, user.ID, msgs[0].ID)
	assert.Equal(t, domain.StatusSending, msgs[1].Status)
	assert.Nil(t, msgs[1].ErrorMessage)
}

func TestStoreRejectsOrphanMessages(t *testing.T) {
	store := NewStore()
	_, err := store.Messages().Create(context.Background(), &domain.Message{
		ConversationID: "nope", Role: domain.RoleAssistant, Status: domain.StatusSending,
	})
	assert.ErrorIs(t, err, conversation.ErrConversationNotFound)
}

func TestStoreDeleteCascades(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	conv, err := store.Conversations().Create(ctx, &domain.Conversation{})
	require.NoError(t, err)
	_, err = store.Messages().Create(ctx, &domain.Message{ConversationID: conv.ID, Role: domain.RoleUser, Content: "x", Status: domain.StatusSent})
	require.NoError(t, err)

	require.NoError(t, store.Conversations().Delete(ctx, conv.ID))
	count, err := store.Messages().CountByConversationID(ctx, conv.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestStoreFailNextSettle(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	conv, _ := store.Conversations().Create(ctx, &domain.Conversation{})
	row, err := store.Messages().Create(ctx, &domain.Message{ConversationID: conv.ID, Role: domain.RoleAssistant, Status: domain.StatusSending})
	require.NoError(t, err)

	boom := errors.New("disk full")
	store.FailNextSettle = boom
	_, err = store.Messages().Settle(ctx, row.ID, message.Sent("x"))
	assert.ErrorIs(t, err, boom)

	won, err := store.Messages().Settle(ctx, row.ID, message.Sent("x"))
	require.NoError(t, err)
	assert.True(t, won)
}
