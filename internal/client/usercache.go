package client

import (
	"context"
	"fmt"
	"sync"

	"github.com/fundwise/fundwise/internal/metrics"
	"github.com/fundwise/fundwise/internal/models"
	"github.com/fundwise/fundwise/internal/storage"
)

// UserCache is an in-memory mirror of other users' profiles, filled in
// batches from fund membership lists. Lookups are synchronous and never
// fail: a miss is served with a deterministic placeholder.
//
// The cache is never evicted entry-by-entry; it is cleared wholesale on
// sign-out via its session subscription.
type UserCache struct {
	session *Session
	docs    storage.DocumentStore

	mu    sync.RWMutex
	users map[string]models.User

	unsubscribe func()
}

// NewUserCache creates a cache bound to the session's identity
// lifecycle. Call Close on teardown.
func NewUserCache(session *Session, docs storage.DocumentStore) *UserCache {
	c := &UserCache{
		session: session,
		docs:    docs,
		users:   make(map[string]models.User),
	}
	c.unsubscribe = session.Subscribe(func(user *models.User) {
		if user == nil {
			c.clear()
		}
	})
	return c
}

// Get returns the profile for id. The current identity is answered from
// the session itself so callers always see its freshest fields; other
// ids come from the cache, and unknown ids get a placeholder.
func (c *UserCache) Get(id string) models.User {
	if current := c.session.CurrentUser(); current != nil && current.ID == id {
		metrics.UserCacheHits.Inc()
		return *current
	}

	c.mu.RLock()
	user, ok := c.users[id]
	c.mu.RUnlock()
	if ok {
		metrics.UserCacheHits.Inc()
		return user
	}

	metrics.UserCacheMisses.Inc()
	return placeholderUser(id)
}

// LoadBatch fetches the profiles for ids that are neither the current
// identity nor already cached, in one batched call. It resolves
// immediately when the filtered set is empty.
func (c *UserCache) LoadBatch(ctx context.Context, ids []string) error {
	currentID := ""
	if current := c.session.CurrentUser(); current != nil {
		currentID = current.ID
	}

	seen := make(map[string]bool, len(ids))
	var missing []string
	c.mu.RLock()
	for _, id := range ids {
		if id == "" || id == currentID || seen[id] {
			continue
		}
		seen[id] = true
		if _, ok := c.users[id]; !ok {
			missing = append(missing, id)
		}
	}
	c.mu.RUnlock()

	if len(missing) == 0 {
		return nil
	}

	fetched, err := c.docs.GetUsersByIDs(ctx, missing)
	if err != nil {
		return fmt.Errorf("failed to load users: %w", err)
	}

	c.mu.Lock()
	for id, user := range fetched {
		if user == nil || id == currentID {
			// The current identity's entry is owned by the session; a
			// batch result is never allowed to shadow it.
			continue
		}
		c.users[id] = *user
	}
	c.mu.Unlock()
	return nil
}

// Size returns the number of cached profiles.
func (c *UserCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.users)
}

// Close unsubscribes the cache from the session.
func (c *UserCache) Close() {
	if c.unsubscribe != nil {
		c.unsubscribe()
	}
}

func (c *UserCache) clear() {
	c.mu.Lock()
	c.users = make(map[string]models.User)
	c.mu.Unlock()
}

// placeholderUser builds the deterministic fallback profile for an
// unknown id.
func placeholderUser(id string) models.User {
	short := id
	if runes := []rune(id); len(runes) > 4 {
		// Truncate on rune boundaries so multi-byte ids stay valid UTF-8.
		short = string(runes[:4])
	}
	return models.User{
		ID:          id,
		DisplayName: "User " + short,
	}
}
