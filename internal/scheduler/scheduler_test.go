package scheduler

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/sirapopw/weather-dashboard/internal/store"
	"github.com/sirapopw/weather-dashboard/internal/upstream"
)

func TestWarmFollowedFillsCache(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(`{"current_weather":{}}`))
	}))
	defer srv.Close()

	locations := store.NewMemoryStore()
	locations.List("u1") // seed the ten cities

	cache := upstream.NewResponseCache(5 * time.Minute)
	client := upstream.NewClient(srv.Client(), srv.URL)
	s := New(locations, client, cache, 15*time.Minute, zerolog.Nop())

	s.warmFollowed()
	require.Equal(t, int64(10), hits.Load())

	// Every followed city now has a cache entry under the shared key.
	for _, loc := range locations.Followed() {
		lat := strconv.FormatFloat(loc.Lat, 'f', -1, 64)
		lon := strconv.FormatFloat(loc.Lon, 'f', -1, 64)
		_, ok := cache.Get(upstream.CacheKey(lat, lon, loc.Timezone, "", ""))
		require.True(t, ok, "expected cache entry for %s", loc.Name)
	}
}

func TestWarmFollowedSkipsUpstreamErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	locations := store.NewMemoryStore()
	locations.List("u1")

	cache := upstream.NewResponseCache(5 * time.Minute)
	s := New(locations, upstream.NewClient(srv.Client(), srv.URL), cache, 15*time.Minute, zerolog.Nop())

	s.warmFollowed()

	for _, loc := range locations.Followed() {
		lat := strconv.FormatFloat(loc.Lat, 'f', -1, 64)
		lon := strconv.FormatFloat(loc.Lon, 'f', -1, 64)
		_, ok := cache.Get(upstream.CacheKey(lat, lon, loc.Timezone, "", ""))
		require.False(t, ok)
	}
}
