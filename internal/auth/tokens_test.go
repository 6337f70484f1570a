package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenIssueAndRedeem(t *testing.T) {
	store := NewTokenStore(time.Minute)

	token, err := store.Issue("alice")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	playerID, ok := store.Redeem(token)
	require.True(t, ok)
	assert.Equal(t, "alice", playerID)

	// Tokens are single use.
	_, ok = store.Redeem(token)
	assert.False(t, ok)
}

func TestExpiredTokenRejected(t *testing.T) {
	store := NewTokenStore(time.Minute)
	store.ttl = -time.Second

	token, err := store.Issue("alice")
	require.NoError(t, err)

	_, ok := store.Redeem(token)
	assert.False(t, ok)
}

func TestAccessKeyVerification(t *testing.T) {
	hash, err := HashAccessKey("open-sesame")
	require.NoError(t, err)

	assert.True(t, VerifyAccessKey(hash, "open-sesame"))
	assert.False(t, VerifyAccessKey(hash, "wrong"))

	// No configured hash means open access.
	assert.True(t, VerifyAccessKey("", "anything"))
}
