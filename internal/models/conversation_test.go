package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFeedScope(t *testing.T) {
	scope, err := ParseFeedScope("")
	require.NoError(t, err)
	assert.Equal(t, FeedScopeAll, scope)

	for _, s := range []string{"all", "direct", "group"} {
		scope, err := ParseFeedScope(s)
		require.NoError(t, err)
		assert.Equal(t, FeedScope(s), scope)
	}

	_, err = ParseFeedScope("starred")
	assert.Error(t, err)
	_, err = ParseFeedScope("Direct")
	assert.Error(t, err, "scopes are case sensitive")
}

func TestParseSearchScope(t *testing.T) {
	scope, err := ParseSearchScope("")
	require.NoError(t, err)
	assert.Equal(t, SearchScopeAll, scope)

	for _, s := range []string{"all", "people", "chats"} {
		scope, err := ParseSearchScope(s)
		require.NoError(t, err)
		assert.Equal(t, SearchScope(s), scope)
	}

	_, err = ParseSearchScope("messages")
	assert.Error(t, err)
}

func TestConversationTypeValid(t *testing.T) {
	assert.True(t, ConversationDirect.Valid())
	assert.True(t, ConversationGroup.Valid())
	assert.False(t, ConversationType("channel").Valid())
	assert.False(t, ConversationType("").Valid())
}
