package message

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iyunix/go-muro/internal/domain"
	"github.com/iyunix/go-muro/internal/repository"
)

func newTestRepo(t *testing.T) (MessageRepository, string) {
	t.Helper()
	db, err := repository.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = repository.Close(db) })

	conv := domain.Conversation{ID: "conv-1", CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC()}
	require.NoError(t, db.Create(&conv).Error)

	return NewMessageRepository(db, repository.NewClock(), repository.NopLogger{}), conv.ID
}

func placeholder(conversationID string) *domain.Message {
	return &domain.Message{ConversationID: conversationID, Role: domain.RoleAssistant, Status: domain.StatusSending}
}

func TestCreateTurnOrdersUserBeforeAssistant(t *testing.T) {
	repo, convID := newTestRepo(t)
	ctx := context.Background()

	user := &domain.Message{ConversationID: convID, Role: domain.RoleUser, Content: "hello", Status: domain.StatusSent}
	assistant := placeholder(convID)
	require.NoError(t, repo.CreateTurn(ctx, user, assistant))

	assert.NotEmpty(t, user.ID)
	assert.NotEmpty(t, assistant.ID)
	assert.True(t, assistant.CreatedAt.After(user.CreatedAt))

	messages, err := repo.FindByConversationID(ctx, convID)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, domain.RoleUser, messages[0].Role)
	assert.Equal(t, domain.RoleAssistant, messages[1].Role)
	assert.Equal(t, domain.StatusSending, messages[1].Status)
	assert.Equal(t, "", messages[1].Content)
}

func TestCreateRejectsInvalidRows(t *testing.T) {
	repo, convID := newTestRepo(t)
	ctx := context.Background()

	cases := map[string]*domain.Message{
		"nil":          nil,
		"no convo":     {Role: domain.RoleUser, Content: "x", Status: domain.StatusSent},
		"bad role":     {ConversationID: convID, Role: "system", Content: "x", Status: domain.StatusSent},
		"bad status":   {ConversationID: convID, Role: domain.RoleAssistant, Status: "queued"},
		"sending user": {ConversationID: convID, Role: domain.RoleUser, Content: "x", Status: domain.StatusSending},
		"empty user":   {ConversationID: convID, Role: domain.RoleUser, Content: "  ", Status: domain.StatusSent},
	}
	for name, msg := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := repo.Create(ctx, msg)
			assert.Error(t, err)
		})
	}

	count, err := repo.CountByConversationID(ctx, convID)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestSettleIsConditionalOnSending(t *testing.T) {
	repo, convID := newTestRepo(t)
	ctx := context.Background()

	row, err := repo.Create(ctx, placeholder(convID))
	require.NoError(t, err)

	won, err := repo.Settle(ctx, row.ID, Sent("done text"))
	require.NoError(t, err)
	assert.True(t, won)

	won, err = repo.Settle(ctx, row.ID, Failed("", "Client disconnected", ""))
	require.NoError(t, err)
	assert.False(t, won)

	stored, err := repo.FindByID(ctx, row.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSent, stored.Status)
	assert.Equal(t, "done text", stored.Content)
	assert.Nil(t, stored.ErrorMessage)
	assert.Nil(t, stored.ErrorDetail)
}

func TestSettleFailedKeepsPartialAndErrors(t *testing.T) {
	repo, convID := newTestRepo(t)
	ctx := context.Background()

	row, err := repo.Create(ctx, placeholder(convID))
	require.NoError(t, err)

	won, err := repo.Settle(ctx, row.ID, Failed("Sure ", "AI service is busy. Please try again in a moment.", "429 too many"))
	require.NoError(t, err)
	require.True(t, won)

	stored, err := repo.FindByID(ctx, row.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, stored.Status)
	assert.Equal(t, "Sure ", stored.Content)
	require.NotNil(t, stored.ErrorMessage)
	assert.Equal(t, "AI service is busy. Please try again in a moment.", *stored.ErrorMessage)
	require.NotNil(t, stored.ErrorDetail)
	assert.Equal(t, "429 too many", *stored.ErrorDetail)
}

func TestSettleRejectsInvalidOutcome(t *testing.T) {
	repo, convID := newTestRepo(t)
	ctx := context.Background()

	row, err := repo.Create(ctx, placeholder(convID))
	require.NoError(t, err)

	_, err = repo.Settle(ctx, row.ID, Outcome{Status: domain.StatusSending})
	assert.ErrorIs(t, err, ErrInvalidOutcome)
	_, err = repo.Settle(ctx, row.ID, Outcome{Status: domain.StatusFailed})
	assert.ErrorIs(t, err, ErrInvalidOutcome)
}

func TestResetForRetryOnlyFromFailed(t *testing.T) {
	repo, convID := newTestRepo(t)
	ctx := context.Background()

	row, err := repo.Create(ctx, placeholder(convID))
	require.NoError(t, err)

	ok, err := repo.ResetForRetry(ctx, row.ID)
	require.NoError(t, err)
	assert.False(t, ok, "sending row cannot be reset")

	_, err = repo.Settle(ctx, row.ID, Failed("part", "AI service temporarily unavailable. Please try again.", "boom"))
	require.NoError(t, err)

	ok, err = repo.ResetForRetry(ctx, row.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.ResetForRetry(ctx, row.ID)
	require.NoError(t, err)
	assert.False(t, ok, "second reset loses")

	stored, err := repo.FindByID(ctx, row.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSending, stored.Status)
	assert.Equal(t, "", stored.Content)
	assert.Nil(t, stored.ErrorMessage)
	assert.Nil(t, stored.ErrorDetail)
}

func TestFindByIDNotFound(t *testing.T) {
	repo, _ := newTestRepo(t)
	_, err := repo.FindByID(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrMessageNotFound)
}

func TestNewIDIsTimeOrdered(t *testing.T) {
	a := NewID()
	b := NewID()
	assert.Len(t, a, 36)
	assert.Less(t, a, b)
}

func TestFailAbandoned(t *testing.T) {
	repo, convID := newTestRepo(t)
	ctx := context.Background()

	stuck, err := repo.Create(ctx, placeholder(convID))
	require.NoError(t, err)
	done, err := repo.Create(ctx, placeholder(convID))
	require.NoError(t, err)
	_, err = repo.Settle(ctx, done.ID, Sent("ok"))
	require.NoError(t, err)

	n, err := repo.FailAbandoned(ctx, "Server restarted")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	stored, err := repo.FindByID(ctx, stuck.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, stored.Status)
	require.NotNil(t, stored.ErrorMessage)
	assert.Equal(t, "Server restarted", *stored.ErrorMessage)

	stored, err = repo.FindByID(ctx, done.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSent, stored.Status)
}
