package state

import (
	"bytes"
	"crypto/ed25519"
	"sync"

	"github.com/mr-tron/base58"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/profile-client/pkg/cache"
	"github.com/code-payments/profile-client/pkg/profile"
)

const (
	appStateCacheKey      = "appState"
	profileCacheKeyPrefix = "profile:"

	cacheEntryWeight = 1
)

// ClientCache is the last known state of the program's accounts, as seen by
// one wallet session. An entry either holds a record or marks the account as
// absent. Entries are hints for display and never replace a fresh read.
type ClientCache struct {
	log *logrus.Entry

	// mu guards identity and session, and orders entry writes against Reset.
	// entries is itself safe for concurrent use.
	mu       sync.RWMutex
	identity ed25519.PublicKey
	session  uint64
	entries  cache.Cache
}

// cacheEntry wraps a record, where a nil record marks an absent account
type cacheEntry struct {
	record profile.Record
}

func NewClientCache(budget int) *ClientCache {
	return &ClientCache{
		log:     logrus.StandardLogger().WithField("type", "state/cache"),
		entries: cache.NewCache(budget),
	}
}

func profileCacheKey(owner ed25519.PublicKey) string {
	return profileCacheKeyPrefix + base58.Encode(owner)
}

// Identity returns the wallet the cache belongs to, or nil when no wallet is
// connected.
func (c *ClientCache) Identity() ed25519.PublicKey {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.identity
}

// Reset discards every entry when identity differs from the current session
// identity. It reports whether a reset happened.
func (c *ClientCache) Reset(identity ed25519.PublicKey) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if bytes.Equal(c.identity, identity) {
		return false
	}

	c.entries.Clear()
	c.identity = identity
	c.session++
	return true
}

// currentSession identifies the session entries are written for. A read
// captures it before going to the network, so that a result arriving after
// a Reset is discarded instead of leaking into the next session.
func (c *ClientCache) currentSession() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.session
}

// AppState returns the cached app state. known is false when the account has
// not been read in this session; a known nil record means it was absent.
func (c *ClientCache) AppState() (appState *profile.AppStateAccount, known bool) {
	record, known := c.get(appStateCacheKey)
	if record == nil {
		return nil, known
	}
	return record.(*profile.AppStateAccount).Clone(), true
}

// UserProfile returns the cached profile of owner, with the same semantics as
// AppState.
func (c *ClientCache) UserProfile(owner ed25519.PublicKey) (userProfile *profile.UserProfileAccount, known bool) {
	record, known := c.get(profileCacheKey(owner))
	if record == nil {
		return nil, known
	}
	return record.(*profile.UserProfileAccount).Clone(), true
}

// Len returns the number of cached entries, absence markers included.
func (c *ClientCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.entries.Len()
}

func (c *ClientCache) setAppState(session uint64, appState *profile.AppStateAccount) {
	var record profile.Record
	if appState != nil {
		record = appState.Clone()
	}
	c.set(session, appStateCacheKey, record)
}

func (c *ClientCache) setUserProfile(session uint64, owner ed25519.PublicKey, userProfile *profile.UserProfileAccount) {
	var record profile.Record
	if userProfile != nil {
		record = userProfile.Clone()
	}
	c.set(session, profileCacheKey(owner), record)
}

func (c *ClientCache) get(key string) (profile.Record, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	value, ok := c.entries.Retrieve(key)
	if !ok {
		return nil, false
	}
	return value.(*cacheEntry).record, true
}

func (c *ClientCache) set(session uint64, key string, record profile.Record) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if session != c.session {
		c.log.WithField("key", key).Debug("dropping record read in a previous session")
		return
	}

	if err := c.entries.Insert(key, &cacheEntry{record: record}, cacheEntryWeight); err != nil {
		c.log.WithError(err).WithField("key", key).Warn("failed to cache record")
	}
}
