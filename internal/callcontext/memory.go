package callcontext

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	cc        *CallContext
	expiresAt time.Time
}

// MemoryCache is a bounded, process-local cache with per-entry TTL. Expired
// entries are dropped lazily on access and wholesale via Sweep; when the
// entry bound is hit the oldest call is evicted.
type MemoryCache struct {
	mu         sync.Mutex
	entries    map[string]memoryEntry
	ttl        time.Duration
	maxEntries int
}

func NewMemoryCache(ttl time.Duration, maxEntries int) *MemoryCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	if maxEntries <= 0 {
		maxEntries = 1000
	}
	return &MemoryCache{
		entries:    make(map[string]memoryEntry),
		ttl:        ttl,
		maxEntries: maxEntries,
	}
}

func (c *MemoryCache) Get(_ context.Context, callID string) (*CallContext, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[callID]
	if !ok {
		return nil, ErrNotFound
	}
	if time.Now().After(entry.expiresAt) {
		delete(c.entries, callID)
		return nil, ErrNotFound
	}
	return entry.cc.Clone(), nil
}

func (c *MemoryCache) Put(_ context.Context, cc *CallContext) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[cc.CallID]; !exists && len(c.entries) >= c.maxEntries {
		c.evictOldestLocked()
	}
	c.entries[cc.CallID] = memoryEntry{
		cc:        cc.Clone(),
		expiresAt: time.Now().Add(c.ttl),
	}
	return nil
}

func (c *MemoryCache) Delete(_ context.Context, callID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, callID)
	return nil
}

// Sweep removes expired entries and returns how many were dropped. Meant to
// run periodically so abandoned calls do not linger for the full map bound.
func (c *MemoryCache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	dropped := 0
	for id, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, id)
			dropped++
		}
	}
	return dropped
}

// Len reports the number of cached calls, expired or not.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *MemoryCache) evictOldestLocked() {
	var oldestID string
	var oldest time.Time
	for id, entry := range c.entries {
		if oldestID == "" || entry.expiresAt.Before(oldest) {
			oldestID = id
			oldest = entry.expiresAt
		}
	}
	if oldestID != "" {
		delete(c.entries, oldestID)
	}
}
