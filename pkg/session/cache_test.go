package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/deepwide/pkg/chat"
)

func TestCacheUnloadedVersusSeeded(t *testing.T) {
	c := NewHistoryCache()

	_, ok := c.Get("a")
	assert.False(t, ok)
	assert.False(t, c.Loaded("a"))

	c.Seed("a")
	msgs, ok := c.Get("a")
	require.True(t, ok)
	assert.Empty(t, msgs)
	assert.True(t, c.Loaded("a"))
}

func TestCacheGetReturnsCopy(t *testing.T) {
	c := NewHistoryCache()
	c.Seed("a")
	c.Append("a", chat.NewChatMessage(chat.RoleUser, "one"))

	msgs, ok := c.Get("a")
	require.True(t, ok)
	msgs[0].Content = "mutated"

	again, _ := c.Get("a")
	assert.Equal(t, "one", again[0].Content)
}

func TestCacheReplaceCopiesInput(t *testing.T) {
	c := NewHistoryCache()
	input := []chat.ChatMessage{chat.NewChatMessage(chat.RoleUser, "one")}
	c.Replace("a", input)
	input[0].Content = "mutated"

	msgs, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, "one", msgs[0].Content)
}

func TestCacheMove(t *testing.T) {
	c := NewHistoryCache()
	c.Append("temp-1", chat.NewChatMessage(chat.RoleUser, "draft"))

	c.Move("temp-1", "persisted")

	_, ok := c.Get("temp-1")
	assert.False(t, ok)
	msgs, ok := c.Get("persisted")
	require.True(t, ok)
	assert.Equal(t, "draft", msgs[0].Content)
}

func TestCacheAppendWithoutSeed(t *testing.T) {
	c := NewHistoryCache()
	c.Append("a", chat.NewChatMessage(chat.RoleUser, "one"))

	msgs, ok := c.Get("a")
	require.True(t, ok)
	assert.Len(t, msgs, 1)
}
