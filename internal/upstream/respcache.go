package upstream

import (
	"strings"
	"sync"
	"time"
)

// CacheKey builds the canonical response-cache key for a proxied query.
// Routes and the cache warmer must agree on this format.
func CacheKey(lat, lon, timezone, from, to string) string {
	return strings.Join([]string{lat, lon, timezone, from, to}, "|")
}

type cacheEntry struct {
	value     *Response
	expiresAt time.Time
}

// ResponseCache is a TTL cache for upstream responses, keyed by the full
// query string. Each proxy endpoint holds its own cache with its own TTL.
type ResponseCache struct {
	mu  sync.RWMutex
	ttl time.Duration
	m   map[string]cacheEntry
}

// NewResponseCache creates a cache whose entries expire after ttl.
func NewResponseCache(ttl time.Duration) *ResponseCache {
	return &ResponseCache{
		ttl: ttl,
		m:   make(map[string]cacheEntry),
	}
}

// Get returns the cached response for key if present and not expired.
func (c *ResponseCache) Get(key string) (*Response, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.m[key]
	if !ok || time.Now().After(entry.expiresAt) {
		return nil, false
	}
	return entry.value, true
}

// Set stores a response under key.
func (c *ResponseCache) Set(key string, value *Response) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[key] = cacheEntry{value: value, expiresAt: time.Now().Add(c.ttl)}
}
