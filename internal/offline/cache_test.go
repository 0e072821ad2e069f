package offline

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// countingFetch records calls and serves canned payloads.
type countingFetch struct {
	mu      sync.Mutex
	calls   int
	payload json.RawMessage
	err     error
	done    chan struct{} // signalled on every completed call
}

func newCountingFetch(payload string) *countingFetch {
	return &countingFetch{
		payload: json.RawMessage(payload),
		done:    make(chan struct{}, 16),
	}
}

func (c *countingFetch) fetch(ctx context.Context, locationID string) (json.RawMessage, error) {
	c.mu.Lock()
	c.calls++
	payload, err := c.payload, c.err
	c.mu.Unlock()

	c.done <- struct{}{}
	return payload, err
}

func (c *countingFetch) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func newTestCache(t *testing.T, fetch FetchFunc) *Cache {
	t.Helper()
	c, err := NewCache(fetch, 30*time.Minute, "", zerolog.Nop())
	require.NoError(t, err)
	return c
}

func TestFreshHitSkipsNetwork(t *testing.T) {
	cf := newCountingFetch(`{"temp":30}`)
	c := newTestCache(t, cf.fetch)

	now := time.Now()
	c.now = func() time.Time { return now }
	c.Put("loc-1", json.RawMessage(`{"temp":25}`))

	// Ten minutes later the entry is still fresh.
	c.now = func() time.Time { return now.Add(10 * time.Minute) }

	data, err := c.GetOfflineFirst(context.Background(), "loc-1")
	require.NoError(t, err)
	require.JSONEq(t, `{"temp":25}`, string(data))
	require.Zero(t, cf.count())
}

func TestStaleHitReturnsCachedAndRefreshesOnce(t *testing.T) {
	cf := newCountingFetch(`{"temp":30}`)
	c := newTestCache(t, cf.fetch)

	now := time.Now()
	c.now = func() time.Time { return now }
	c.Put("loc-1", json.RawMessage(`{"temp":25}`))

	c.now = func() time.Time { return now.Add(40 * time.Minute) }

	data, err := c.GetOfflineFirst(context.Background(), "loc-1")
	require.NoError(t, err)

	// The stale payload is served without waiting for the refresh.
	require.JSONEq(t, `{"temp":25}`, string(data))

	select {
	case <-cf.done:
	case <-time.After(2 * time.Second):
		t.Fatal("background refresh never ran")
	}
	require.Equal(t, 1, cf.count())

	// The refresh overwrote the entry; the next read is fresh.
	require.Eventually(t, func() bool {
		data, err := c.GetOfflineFirst(context.Background(), "loc-1")
		return err == nil && string(data) == `{"temp":30}`
	}, 2*time.Second, 5*time.Millisecond)
	require.Equal(t, 1, cf.count())
}

func TestMissFetchesSynchronously(t *testing.T) {
	cf := newCountingFetch(`{"temp":18}`)
	c := newTestCache(t, cf.fetch)

	data, err := c.GetOfflineFirst(context.Background(), "loc-9")
	require.NoError(t, err)
	require.JSONEq(t, `{"temp":18}`, string(data))
	require.Equal(t, 1, cf.count())

	// The result was cached; a second read stays local.
	_, err = c.GetOfflineFirst(context.Background(), "loc-9")
	require.NoError(t, err)
	require.Equal(t, 1, cf.count())
}

func TestMissAndFetchFailure(t *testing.T) {
	cf := newCountingFetch(``)
	cf.err = errors.New("upstream down")
	c := newTestCache(t, cf.fetch)

	_, err := c.GetOfflineFirst(context.Background(), "loc-1")
	require.ErrorIs(t, err, ErrNoCachedData)
}

func TestRefreshFailureKeepsStaleEntry(t *testing.T) {
	cf := newCountingFetch(``)
	cf.err = errors.New("upstream down")
	c := newTestCache(t, cf.fetch)

	now := time.Now()
	c.now = func() time.Time { return now }
	c.Put("loc-1", json.RawMessage(`{"temp":25}`))

	c.now = func() time.Time { return now.Add(40 * time.Minute) }

	data, err := c.GetOfflineFirst(context.Background(), "loc-1")
	require.NoError(t, err)
	require.JSONEq(t, `{"temp":25}`, string(data))

	select {
	case <-cf.done:
	case <-time.After(2 * time.Second):
		t.Fatal("background refresh never ran")
	}

	// The failed refresh left the stale entry in place.
	data, err = c.GetOfflineFirst(context.Background(), "loc-1")
	require.NoError(t, err)
	require.JSONEq(t, `{"temp":25}`, string(data))
}

func TestPersistenceRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cf := newCountingFetch(`{"temp":18}`)

	c, err := NewCache(cf.fetch, 30*time.Minute, dir, zerolog.Nop())
	require.NoError(t, err)
	c.Put("loc-1", json.RawMessage(`{"temp":25}`))

	reopened, err := NewCache(cf.fetch, 30*time.Minute, dir, zerolog.Nop())
	require.NoError(t, err)

	data, err := reopened.GetOfflineFirst(context.Background(), "loc-1")
	require.NoError(t, err)
	require.JSONEq(t, `{"temp":25}`, string(data))
	require.Zero(t, cf.count())
}
