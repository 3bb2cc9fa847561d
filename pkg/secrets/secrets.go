// Package secrets implements the Secret Store Client (SPEC_FULL.md
// §4.9): narrow per-(user, provider) token retrieval with a read-through
// TTL cache and single-flighted refreshes, so concurrent requests for
// the same credential during a cache miss share one upstream fetch
// instead of stampeding it. Refresh deduplication uses
// golang.org/x/sync/singleflight.
package secrets

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Token is a provider credential plus its expiry, as returned by a
// Store and cached by the Client.
type Token struct {
	Value     string
	ExpiresAt time.Time
}

func (t Token) expired(now time.Time) bool {
	return !t.ExpiresAt.IsZero() && now.After(t.ExpiresAt)
}

// Store is the backing persistence for secrets, e.g. a Postgres table
// scoped by RLS like every other tenant table in this system. Left as
// an interface so a Postgres-backed implementation (PostgresStore) and
// a test double can both satisfy the Client.
type Store interface {
	Get(ctx context.Context, userID, provider string) (Token, error)
	Put(ctx context.Context, userID, provider string, tok Token) error
}

type cacheKey struct {
	userID   string
	provider string
}

// Client is a read-through, single-flighted cache in front of a Store.
// Concurrent Gets for the same (user, provider) during a cache miss
// collapse into one Store.Get call — the stampede-avoidance property
// golang.org/x/sync/singleflight exists for.
type Client struct {
	store Store
	ttl   time.Duration

	cache sync.Map // cacheKey -> cacheEntry
	group singleflight.Group
}

type cacheEntry struct {
	tok       Token
	cachedAt  time.Time
}

// NewClient builds a Client with the given cache TTL. ttl bounds how
// long a Store-fetched token is trusted before being re-validated
// against the store, independent of the token's own ExpiresAt.
func NewClient(store Store, ttl time.Duration) *Client {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Client{store: store, ttl: ttl}
}

// Get returns the token for (userID, provider), serving from cache
// when fresh and falling through to a single-flighted Store.Get on a
// miss or expiry.
func (c *Client) Get(ctx context.Context, userID, provider string) (Token, error) {
	key := cacheKey{userID, provider}
	now := time.Now()

	if v, ok := c.cache.Load(key); ok {
		entry := v.(cacheEntry)
		if now.Sub(entry.cachedAt) < c.ttl && !entry.tok.expired(now) {
			return entry.tok, nil
		}
	}

	flightKey := fmt.Sprintf("%s\x00%s", userID, provider)
	v, err, _ := c.group.Do(flightKey, func() (any, error) {
		tok, err := c.store.Get(ctx, userID, provider)
		if err != nil {
			return Token{}, err
		}
		c.cache.Store(key, cacheEntry{tok: tok, cachedAt: time.Now()})
		return tok, nil
	})
	if err != nil {
		return Token{}, err
	}
	return v.(Token), nil
}

// Put writes a new token through to the Store and refreshes the cache
// entry immediately, so a subsequent Get on this process does not
// trigger a redundant Store round trip.
func (c *Client) Put(ctx context.Context, userID, provider string, tok Token) error {
	if err := c.store.Put(ctx, userID, provider, tok); err != nil {
		return err
	}
	c.cache.Store(cacheKey{userID, provider}, cacheEntry{tok: tok, cachedAt: time.Now()})
	return nil
}

// Invalidate drops a cached entry, forcing the next Get to hit the
// Store — used after a provider rejects a cached token as revoked.
func (c *Client) Invalidate(userID, provider string) {
	c.cache.Delete(cacheKey{userID, provider})
}
