package upstream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/require"
)

func TestCacheKey(t *testing.T) {
	key := CacheKey("13.75", "100.5", "Asia/Bangkok", "", "")
	require.Equal(t, "13.75|100.5|Asia/Bangkok||", key)
}

func TestResponseCacheExpiry(t *testing.T) {
	c := NewResponseCache(30 * time.Millisecond)

	_, ok := c.Get("k")
	require.False(t, ok)

	c.Set("k", &Response{StatusCode: 200, Body: []byte("v")})
	got, ok := c.Get("k")
	require.True(t, ok)
	require.Equal(t, []byte("v"), got.Body)

	time.Sleep(50 * time.Millisecond)
	_, ok = c.Get("k")
	require.False(t, ok)
}

func newTestBreaker() *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{Name: "test"})
}

func TestResilienceRetriesServerErrors(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	cfg := HTTPClientConfig{
		Client: srv.Client(),
		Backoff: BackoffConfig{
			MaxRetries:      3,
			InitialInterval: 5 * time.Millisecond,
			MaxInterval:     20 * time.Millisecond,
		},
	}

	resp, err := doRequestWithResilience(context.Background(), cfg, newTestBreaker(), func() (*http.Request, error) {
		return http.NewRequest(http.MethodGet, srv.URL, nil)
	})
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, int64(2), hits.Load())
}

func TestResilienceGivesUpAfterMaxRetries(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	cfg := HTTPClientConfig{
		Client: srv.Client(),
		Backoff: BackoffConfig{
			MaxRetries:      2,
			InitialInterval: 5 * time.Millisecond,
			MaxInterval:     20 * time.Millisecond,
		},
	}

	_, err := doRequestWithResilience(context.Background(), cfg, newTestBreaker(), func() (*http.Request, error) {
		return http.NewRequest(http.MethodGet, srv.URL, nil)
	})
	require.ErrorIs(t, err, errRateLimited)
	require.Equal(t, int64(3), hits.Load())
}

func TestResiliencePassesClientErrorsThrough(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	cfg := HTTPClientConfig{
		Client: srv.Client(),
		Backoff: BackoffConfig{
			MaxRetries:      3,
			InitialInterval: 5 * time.Millisecond,
		},
	}

	resp, err := doRequestWithResilience(context.Background(), cfg, newTestBreaker(), func() (*http.Request, error) {
		return http.NewRequest(http.MethodGet, srv.URL, nil)
	})
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Equal(t, int64(1), hits.Load())
}

func TestClientBuildsForecastQueries(t *testing.T) {
	var lastQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lastQuery = r.URL.RawQuery
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), srv.URL)
	ctx := context.Background()

	resp, err := c.Current(ctx, "13.75", "100.5", "Asia/Bangkok")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, lastQuery, "current_weather=true")
	require.Contains(t, lastQuery, "latitude=13.75")

	_, err = c.Hourly(ctx, "13.75", "100.5", "Asia/Bangkok", "2026-09-01", "2026-09-03")
	require.NoError(t, err)
	require.Contains(t, lastQuery, "hourly=")
	require.Contains(t, lastQuery, "start_date=2026-09-01")
	require.Contains(t, lastQuery, "end_date=2026-09-03")

	_, err = c.Daily(ctx, "13.75", "100.5", "Asia/Bangkok", "", "")
	require.NoError(t, err)
	require.Contains(t, lastQuery, "daily=")
	require.NotContains(t, lastQuery, "start_date")
}
