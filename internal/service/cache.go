package service

import (
	"crypto/md5"
	"encoding/hex"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// DefaultCacheTTL is how long a cached search result stays valid.
const DefaultCacheTTL = 30 * time.Minute

// SearchCache is a mutex-guarded TTL cache for search responses. Expired
// entries are evicted lazily on the next lookup; there is no background
// sweeper. TTL expiry is the only invalidation path, so reprocessing a
// document inside the window can serve stale results.
type SearchCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	ttl     time.Duration
	now     func() time.Time
}

type cacheEntry struct {
	response *SearchResponse
	storedAt time.Time
}

// NewSearchCache creates a SearchCache with the given TTL.
func NewSearchCache(ttl time.Duration) *SearchCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &SearchCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns the cached response for key if it is still inside the TTL
// window. An expired entry is removed and reported as a miss.
func (c *SearchCache) Get(key string) (*SearchResponse, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}

	if c.now().Sub(entry.storedAt) >= c.ttl {
		c.mu.Lock()
		// Re-check under the write lock; another goroutine may have
		// refreshed the entry.
		if current, ok := c.entries[key]; ok && c.now().Sub(current.storedAt) >= c.ttl {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil, false
	}

	return entry.response, true
}

// Put stores a response under key with the current timestamp.
func (c *SearchCache) Put(key string, response *SearchResponse) {
	c.mu.Lock()
	c.entries[key] = cacheEntry{response: response, storedAt: c.now()}
	c.mu.Unlock()
}

// Len returns the number of entries currently held, expired or not.
func (c *SearchCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// CacheKey derives a deterministic key from the normalized query, the sorted
// filter set, and the search mode, so equivalent requests share an entry.
// Mode keys basic, advanced, and hybrid responses apart; their result shapes
// differ even for identical queries.
func CacheKey(query string, filters SearchFilters, limit int, threshold float64, mode string) string {
	parts := []string{
		"q=" + strings.ToLower(strings.TrimSpace(query)),
		"mode=" + mode,
		"limit=" + strconv.Itoa(limit),
		"threshold=" + strconv.FormatFloat(threshold, 'f', 4, 64),
	}

	docIDs := append([]string(nil), filters.DocumentIDs...)
	sort.Strings(docIDs)
	parts = append(parts, "docs="+strings.Join(docIDs, ","))

	types := make([]string, 0, len(filters.ChunkTypes))
	for _, t := range filters.ChunkTypes {
		types = append(types, string(t))
	}
	sort.Strings(types)
	parts = append(parts, "types="+strings.Join(types, ","))

	digest := md5.Sum([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(digest[:])
}
