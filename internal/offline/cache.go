// Package offline implements the availability-biased weather cache: a
// cache hit is served immediately, a stale hit additionally triggers a
// background refresh, and only a miss waits for the network.
package offline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ErrNoCachedData is returned when a location has no cache entry and the
// fetch fails. It is the only loud failure of the offline-first read.
var ErrNoCachedData = errors.New("no cached data available")

// DefaultStaleAfter is the staleness threshold used when none is given.
const DefaultStaleAfter = 30 * time.Minute

const cacheFileName = "weather-cache.json"

// FetchFunc fetches fresh weather data for a location id.
type FetchFunc func(ctx context.Context, locationID string) (json.RawMessage, error)

// Record is a cached weather snapshot for one location.
type Record struct {
	ID        string          `json:"id"`
	Data      json.RawMessage `json:"data"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// Cache serves weather data by location id, preferring availability over
// freshness. Entries are only ever overwritten, never evicted.
type Cache struct {
	mu         sync.Mutex
	entries    map[string]Record
	refreshing map[string]bool

	fetch      FetchFunc
	staleAfter time.Duration
	path       string // "" disables persistence
	log        zerolog.Logger
	now        func() time.Time
}

// NewCache creates a cache backed by fetch. dir may be empty to keep the
// cache purely in memory; otherwise entries are persisted there and
// restored on construction.
func NewCache(fetch FetchFunc, staleAfter time.Duration, dir string, log zerolog.Logger) (*Cache, error) {
	if staleAfter <= 0 {
		staleAfter = DefaultStaleAfter
	}

	c := &Cache{
		entries:    make(map[string]Record),
		refreshing: make(map[string]bool),
		fetch:      fetch,
		staleAfter: staleAfter,
		log:        log,
		now:        time.Now,
	}

	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create cache dir: %w", err)
		}
		c.path = filepath.Join(dir, cacheFileName)
		if err := c.load(); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// GetOfflineFirst returns weather data for the location. Fresh entries
// are returned without touching the network; stale entries are returned
// immediately while a refresh runs in the background; a miss fetches
// synchronously and caches the result.
func (c *Cache) GetOfflineFirst(ctx context.Context, locationID string) (json.RawMessage, error) {
	c.mu.Lock()
	rec, ok := c.entries[locationID]
	if ok {
		if c.now().Sub(rec.UpdatedAt) <= c.staleAfter {
			c.mu.Unlock()
			return rec.Data, nil
		}
		if !c.refreshing[locationID] {
			c.refreshing[locationID] = true
			go c.refresh(locationID)
		}
		c.mu.Unlock()
		return rec.Data, nil
	}
	c.mu.Unlock()

	data, err := c.fetch(ctx, locationID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoCachedData, err)
	}
	c.put(locationID, data)
	return data, nil
}

// Put overwrites the cache entry for a location with fresh data.
func (c *Cache) Put(locationID string, data json.RawMessage) {
	c.put(locationID, data)
}

// refresh replaces a stale entry with fresh data. Stale data is still
// useful data, so failures are logged and never surfaced.
func (c *Cache) refresh(locationID string) {
	defer func() {
		c.mu.Lock()
		delete(c.refreshing, locationID)
		c.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	data, err := c.fetch(ctx, locationID)
	if err != nil {
		c.log.Warn().Err(err).Str("location", locationID).Msg("background refresh failed")
		return
	}
	c.put(locationID, data)
}

func (c *Cache) put(locationID string, data json.RawMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[locationID] = Record{
		ID:        locationID,
		Data:      data,
		UpdatedAt: c.now(),
	}
	c.saveLocked()
}

// load restores persisted entries. Caller owns the lock state (only used
// during construction).
func (c *Cache) load() error {
	raw, err := os.ReadFile(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read weather cache: %w", err)
	}

	var entries map[string]Record
	if err := json.Unmarshal(raw, &entries); err != nil {
		return fmt.Errorf("decode weather cache: %w", err)
	}
	c.entries = entries
	return nil
}

// saveLocked persists all entries. Caller holds the lock. Failures are
// logged only; the in-memory cache stays authoritative.
func (c *Cache) saveLocked() {
	if c.path == "" {
		return
	}

	raw, err := json.MarshalIndent(c.entries, "", "  ")
	if err != nil {
		c.log.Warn().Err(err).Msg("weather cache encode failed")
		return
	}

	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		c.log.Warn().Err(err).Msg("weather cache write failed")
		return
	}
	if err := os.Rename(tmp, c.path); err != nil {
		c.log.Warn().Err(err).Msg("weather cache replace failed")
	}
}
