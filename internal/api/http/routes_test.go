package httpapi

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/sirapopw/weather-dashboard/internal/auth"
	"github.com/sirapopw/weather-dashboard/internal/store"
	"github.com/sirapopw/weather-dashboard/internal/upstream"
)

func newTestApp(upstreamURL string) (*fiber.App, Deps) {
	deps := Deps{
		Weather:      upstream.NewClient(&http.Client{Timeout: 5 * time.Second}, upstreamURL),
		Latest:       upstream.NewResponseCache(5 * time.Minute),
		Hourly:       upstream.NewResponseCache(30 * time.Minute),
		Daily:        upstream.NewResponseCache(60 * time.Minute),
		Locations:    store.NewMemoryStore(),
		Issuer:       auth.NewIssuer("test-secret", time.Hour),
		DemoUser:     "gogo",
		DemoPassword: "123456",
		Logger:       zerolog.Nop(),
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{"error": true, "message": err.Error()})
		},
	})
	RegisterRoutes(app, deps)
	return app, deps
}

// TestProxyServesFromCacheWithinWindow verifies that a second identical
// request inside the cache window does not hit the upstream again.
func TestProxyServesFromCacheWithinWindow(t *testing.T) {
	var hits atomic.Int64
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"current_weather":{"temperature":31.2}}`))
	}))
	defer up.Close()

	app, _ := newTestApp(up.URL)

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/weather/latest?lat=13.75&lon=100.5&timezone=Asia/Bangkok", nil)
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		if string(body) != `{"current_weather":{"temperature":31.2}}` {
			t.Fatalf("unexpected body: %s", body)
		}
	}

	if got := hits.Load(); got != 1 {
		t.Fatalf("expected 1 upstream hit, got %d", got)
	}
}

// TestProxyForwardsUpstreamStatus verifies that a non-retryable upstream
// status is passed through untouched and not cached.
func TestProxyForwardsUpstreamStatus(t *testing.T) {
	var hits atomic.Int64
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"reason":"no such endpoint"}`))
	}))
	defer up.Close()

	app, _ := newTestApp(up.URL)

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/weather/daily?lat=1&lon=2", nil)
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if resp.StatusCode != http.StatusNotFound {
			t.Fatalf("expected status %d, got %d", http.StatusNotFound, resp.StatusCode)
		}
		resp.Body.Close()
	}

	// Error responses are never cached.
	if got := hits.Load(); got != 2 {
		t.Fatalf("expected 2 upstream hits, got %d", got)
	}
}

// TestProxyEndpointsUseSeparateCaches verifies hourly and daily requests
// for the same coordinate do not share cache entries.
func TestProxyEndpointsUseSeparateCaches(t *testing.T) {
	var hits atomic.Int64
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer up.Close()

	app, _ := newTestApp(up.URL)

	for _, path := range []string{
		"/api/v1/weather/hourly?lat=1&lon=2",
		"/api/v1/weather/daily?lat=1&lon=2",
	} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected status %d for %s, got %d", http.StatusOK, path, resp.StatusCode)
		}
		resp.Body.Close()
	}

	if got := hits.Load(); got != 2 {
		t.Fatalf("expected 2 upstream hits, got %d", got)
	}
}

// TestProxyUpstreamFailure verifies a dead upstream yields 502.
func TestProxyUpstreamFailure(t *testing.T) {
	app, _ := newTestApp("http://127.0.0.1:1")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/weather/latest?lat=1&lon=2", nil)
	resp, err := app.Test(req, int((20 * time.Second).Milliseconds()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected status %d, got %d", http.StatusBadGateway, resp.StatusCode)
	}
}

// TestGeocodeUnavailableWithoutKey verifies the search endpoint reports
// unavailability when no geocoder key is configured.
func TestGeocodeUnavailableWithoutKey(t *testing.T) {
	app, _ := newTestApp("http://127.0.0.1:1")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/geocode?city=Paris", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected status %d, got %d", http.StatusServiceUnavailable, resp.StatusCode)
	}
}
