package photo

import (
	"sync"
	"sync/atomic"
	"time"
)

// CacheEntry is a cached collision verdict together with its lifetime.
type CacheEntry struct {
	Result     CollisionResult
	InsertedAt time.Time
	ExpiresAt  time.Time
}

// CacheStats reports cache occupancy. ValidEntries excludes entries that
// have expired but have not yet been evicted.
type CacheStats struct {
	TotalEntries int
	ValidEntries int
}

type cacheKey struct {
	userID   string
	filename string
}

type cacheEntry struct {
	result     CollisionResult
	insertedAt time.Time
	expiresAt  time.Time
	touched    atomic.Int64 // recency sequence, updated on every hit
}

// Cache is a bounded TTL cache of collision verdicts keyed by
// (userID, filename). Expiry is lazy: an entry past its deadline is a miss,
// never a negative result. When full, Put evicts the least recently used
// entry. Safe for concurrent use; lookups take only a read lock.
//
// Keys are the exact strings the caller supplied — no canonicalization —
// so the cache can never disagree with the store about which filenames are
// the same.
type Cache struct {
	maxEntries int
	clock      Clock

	mu      sync.RWMutex
	entries map[cacheKey]*cacheEntry
	seq     atomic.Int64
}

// NewCache creates a cache bounded to maxEntries. maxEntries must be
// positive.
func NewCache(maxEntries int, clock Clock) *Cache {
	if maxEntries <= 0 {
		maxEntries = 1
	}
	return &Cache{
		maxEntries: maxEntries,
		clock:      clock,
		entries:    make(map[cacheKey]*cacheEntry, maxEntries),
	}
}

// Get returns the cached verdict for (userID, filename). ok is false on a
// miss, including when the entry exists but has expired.
func (c *Cache) Get(userID, filename string) (CacheEntry, bool) {
	key := cacheKey{userID: userID, filename: filename}
	now := c.clock.Now()

	c.mu.RLock()
	e, found := c.entries[key]
	c.mu.RUnlock()

	if !found {
		return CacheEntry{}, false
	}
	if !now.Before(e.expiresAt) {
		// Expired entries are logically absent. Drop the entry so it
		// does not linger until capacity eviction.
		c.mu.Lock()
		if cur, still := c.entries[key]; still && cur == e {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return CacheEntry{}, false
	}

	e.touched.Store(c.seq.Add(1))
	return CacheEntry{
		Result:     e.result,
		InsertedAt: e.insertedAt,
		ExpiresAt:  e.expiresAt,
	}, true
}

// Put inserts or overwrites the verdict for (userID, filename) with the
// given ttl. At capacity the least recently used entry is evicted first, so
// the cache never holds more than maxEntries.
func (c *Cache) Put(userID, filename string, result CollisionResult, ttl time.Duration) {
	key := cacheKey{userID: userID, filename: filename}
	now := c.clock.Now()

	e := &cacheEntry{
		result:     result,
		insertedAt: now,
		expiresAt:  now.Add(ttl),
	}
	e.touched.Store(c.seq.Add(1))

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxEntries {
		c.evictLRU()
	}
	c.entries[key] = e
}

// evictLRU removes the entry with the oldest recency sequence.
// Caller must hold the write lock.
func (c *Cache) evictLRU() {
	var (
		oldestKey cacheKey
		oldestSeq int64
		first     = true
	)
	for k, e := range c.entries {
		if seq := e.touched.Load(); first || seq < oldestSeq {
			oldestKey = k
			oldestSeq = seq
			first = false
		}
	}
	if !first {
		delete(c.entries, oldestKey)
	}
}

// Invalidate removes the entry for (userID, filename) if present.
func (c *Cache) Invalidate(userID, filename string) {
	key := cacheKey{userID: userID, filename: filename}
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Clear removes all entries. Used by a full database reset.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.entries = make(map[cacheKey]*cacheEntry, c.maxEntries)
	c.mu.Unlock()
}

// Stats returns occupancy counts for observability.
func (c *Cache) Stats() CacheStats {
	now := c.clock.Now()

	c.mu.RLock()
	defer c.mu.RUnlock()

	stats := CacheStats{TotalEntries: len(c.entries)}
	for _, e := range c.entries {
		if now.Before(e.expiresAt) {
			stats.ValidEntries++
		}
	}
	return stats
}
