package state

import (
	"crypto/ed25519"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/profile-client/pkg/profile"
	"github.com/code-payments/profile-client/pkg/testutil"
)

func TestClientCache_UnknownVersusAbsent(t *testing.T) {
	c := NewClientCache(8)
	owner := testutil.GenerateSolanaKeys(t, 1)[0]

	appState, known := c.AppState()
	assert.False(t, known)
	assert.Nil(t, appState)

	c.setAppState(c.currentSession(), nil)
	c.setUserProfile(c.currentSession(), owner, nil)

	appState, known = c.AppState()
	assert.True(t, known)
	assert.Nil(t, appState)

	userProfile, known := c.UserProfile(owner)
	assert.True(t, known)
	assert.Nil(t, userProfile)
}

func TestClientCache_ReturnsCopies(t *testing.T) {
	c := NewClientCache(8)
	owner := testutil.GenerateSolanaKeys(t, 1)[0]

	stored := &profile.UserProfileAccount{
		Owner:     owner,
		Username:  "alice",
		CreatedAt: 1700000000,
	}
	c.setUserProfile(c.currentSession(), owner, stored)

	stored.Username = "mallory"
	stored.Owner[0] ^= 0xff

	cached, known := c.UserProfile(owner)
	require.True(t, known)
	assert.Equal(t, "alice", cached.Username)
	assert.NotEqual(t, stored.Owner[0], cached.Owner[0])

	cached.Username = "eve"
	again, _ := c.UserProfile(owner)
	assert.Equal(t, "alice", again.Username)
}

func TestClientCache_Reset(t *testing.T) {
	c := NewClientCache(8)
	keys := testutil.GenerateSolanaKeys(t, 2)

	assert.Nil(t, c.Identity())
	assert.True(t, c.Reset(keys[0]))
	assert.EqualValues(t, keys[0], c.Identity())

	c.setAppState(c.currentSession(), &profile.AppStateAccount{Authority: keys[0]})
	c.setUserProfile(c.currentSession(), keys[0], nil)
	assert.Equal(t, 2, c.Len())

	// Same identity keeps entries, even as a distinct slice
	assert.False(t, c.Reset(append(ed25519.PublicKey{}, keys[0]...)))
	assert.Equal(t, 2, c.Len())

	assert.True(t, c.Reset(keys[1]))
	assert.Equal(t, 0, c.Len())

	_, known := c.AppState()
	assert.False(t, known)

	assert.True(t, c.Reset(nil))
	assert.Nil(t, c.Identity())
	assert.False(t, c.Reset(nil))
}

func TestClientCache_Budget(t *testing.T) {
	c := NewClientCache(3)
	owners := testutil.GenerateSolanaKeys(t, 5)

	for i, owner := range owners {
		c.setUserProfile(c.currentSession(), owner, &profile.UserProfileAccount{
			Owner:    owner,
			Username: fmt.Sprintf("user%d", i),
		})
	}
	assert.Equal(t, 3, c.Len())

	// The least recently written profiles are evicted first
	_, known := c.UserProfile(owners[0])
	assert.False(t, known)
	_, known = c.UserProfile(owners[1])
	assert.False(t, known)

	userProfile, known := c.UserProfile(owners[4])
	require.True(t, known)
	assert.Equal(t, "user4", userProfile.Username)
}

func TestClientCache_DropsWritesFromPreviousSession(t *testing.T) {
	c := NewClientCache(8)
	keys := testutil.GenerateSolanaKeys(t, 2)

	require.True(t, c.Reset(keys[0]))
	started := c.currentSession()

	require.True(t, c.Reset(keys[1]))
	c.setUserProfile(started, keys[0], &profile.UserProfileAccount{Owner: keys[0], Username: "alice"})
	c.setAppState(started, nil)

	assert.Equal(t, 0, c.Len())
	_, known := c.UserProfile(keys[0])
	assert.False(t, known)

	// Reconnecting the same identity does not start a new session
	current := c.currentSession()
	assert.NotEqual(t, started, current)
	require.False(t, c.Reset(keys[1]))
	c.setAppState(current, nil)
	assert.Equal(t, 1, c.Len())
}
