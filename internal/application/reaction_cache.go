package application

import (
	"sync"
	"time"
)

// reactionCache stores recently listed reactions per room so the polling
// clients in a full room do not each hit the store every second.
type reactionCache struct {
	mu         sync.RWMutex
	now        func() time.Time
	ttl        time.Duration
	maxEntries int
	entries    map[string]reactionCacheEntry
}

type reactionCacheEntry struct {
	reactions []Reaction
	expiresAt time.Time
}

func newReactionCache(ttl time.Duration, maxEntries int, now func() time.Time) *reactionCache {
	if ttl <= 0 {
		ttl = 2 * time.Second
	}
	if maxEntries <= 0 {
		maxEntries = 128
	}
	if now == nil {
		now = time.Now
	}
	return &reactionCache{
		now:        now,
		ttl:        ttl,
		maxEntries: maxEntries,
		entries:    make(map[string]reactionCacheEntry),
	}
}

func (c *reactionCache) Get(roomID string) ([]Reaction, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.RLock()
	entry, ok := c.entries[roomID]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if c.now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, roomID)
		c.mu.Unlock()
		return nil, false
	}
	return cloneReactions(entry.reactions), true
}

func (c *reactionCache) Store(roomID string, reactions []Reaction) {
	if c == nil {
		return
	}
	cloned := cloneReactions(reactions)
	expiry := c.now().Add(c.ttl)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.cleanupLocked()
	if len(c.entries) >= c.maxEntries {
		c.evictOneLocked()
	}
	c.entries[roomID] = reactionCacheEntry{reactions: cloned, expiresAt: expiry}
}

// Invalidate drops the cached listing for a room after a new reaction lands.
func (c *reactionCache) Invalidate(roomID string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	delete(c.entries, roomID)
	c.mu.Unlock()
}

func (c *reactionCache) cleanupLocked() {
	now := c.now()
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
		}
	}
}

func (c *reactionCache) evictOneLocked() {
	for key := range c.entries {
		delete(c.entries, key)
		return
	}
}

func cloneReactions(reactions []Reaction) []Reaction {
	if len(reactions) == 0 {
		return nil
	}
	out := make([]Reaction, len(reactions))
	copy(out, reactions)
	return out
}
