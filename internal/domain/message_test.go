package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatus(t *testing.T) {
	for _, raw := range []string{"sending", "sent", "failed"} {
		st, err := ParseStatus(raw)
		require.NoError(t, err)
		assert.Equal(t, raw, string(st))
	}

	_, err := ParseStatus("archived")
	require.Error(t, err)
}

func TestStatusTerminal(t *testing.T) {
	assert.False(t, StatusSending.Terminal())
	assert.True(t, StatusSent.Terminal())
	assert.True(t, StatusFailed.Terminal())
	assert.False(t, Status("").Terminal())
}

func TestParseRole(t *testing.T) {
	r, err := ParseRole("assistant")
	require.NoError(t, err)
	assert.Equal(t, RoleAssistant, r)

	_, err = ParseRole("system")
	require.Error(t, err, "system rows are never stored")
}

func TestHistoryKeepsOrderAndDropsMetadata(t *testing.T) {
	msgs := []Message{
		{ID: "1", Role: RoleUser, Content: "hi", Status: StatusSent},
		{ID: "2", Role: RoleAssistant, Content: "hello", Status: StatusSent},
	}
	assert.Equal(t, []ChatMessage{
		{Role: RoleUser, Content: "hi"},
		{Role: RoleAssistant, Content: "hello"},
	}, History(msgs))
}

func TestDisplayTitle(t *testing.T) {
	c := &Conversation{}
	assert.Equal(t, "Untitled conversation", c.DisplayTitle())
	title := "Bid Comparison"
	c.Title = &title
	assert.Equal(t, "Bid Comparison", c.DisplayTitle())
}
