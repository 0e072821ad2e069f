package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig holds all runtime settings for the dashboard server and the
// client-side core (store, cache, feed).
type AppConfig struct {
	Port string

	// Upstream weather API.
	UpstreamBaseURL string
	HTTPTimeout     time.Duration

	// Proxy response cache windows per endpoint.
	LatestCacheTTL time.Duration
	HourlyCacheTTL time.Duration
	DailyCacheTTL  time.Duration

	// Client-side weather cache staleness threshold.
	StaleAfter time.Duration

	// Feed behaviour.
	DebounceDelay      time.Duration
	GeolocationTimeout time.Duration

	// Auth.
	AuthSecret   string
	TokenTTL     time.Duration
	DemoUser     string
	DemoPassword string

	// Geocoding; the search endpoint is disabled without a key.
	GeocoderAPIKey string

	// Interval for warming the proxy cache for followed locations.
	RefreshInterval time.Duration

	// Directory for client-side persisted state (store snapshot, weather cache).
	DataDir string

	LogLevel  string
	LogFormat string
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	cfg := &AppConfig{}

	cfg.Port = getenvDefault("PORT", "8080")
	cfg.UpstreamBaseURL = getenvDefault("UPSTREAM_BASE_URL", "https://api.open-meteo.com/v1/forecast")

	var err error
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", "10s"); err != nil {
		return nil, err
	}

	if cfg.LatestCacheTTL, err = getenvDuration("LATEST_CACHE_TTL", "5m"); err != nil {
		return nil, err
	}
	if cfg.HourlyCacheTTL, err = getenvDuration("HOURLY_CACHE_TTL", "30m"); err != nil {
		return nil, err
	}
	if cfg.DailyCacheTTL, err = getenvDuration("DAILY_CACHE_TTL", "60m"); err != nil {
		return nil, err
	}

	if cfg.StaleAfter, err = getenvDuration("STALE_AFTER", "30m"); err != nil {
		return nil, err
	}

	if cfg.DebounceDelay, err = getenvDuration("DEBOUNCE_DELAY", "300ms"); err != nil {
		return nil, err
	}
	if cfg.GeolocationTimeout, err = getenvDuration("GEOLOCATION_TIMEOUT", "5s"); err != nil {
		return nil, err
	}

	cfg.AuthSecret = getenvDefault("AUTH_SECRET", "dev-secret")
	if cfg.TokenTTL, err = getenvDuration("TOKEN_TTL", "24h"); err != nil {
		return nil, err
	}
	cfg.DemoUser = getenvDefault("DEMO_USER", "gogo")
	cfg.DemoPassword = getenvDefault("DEMO_PASSWORD", "123456")

	cfg.GeocoderAPIKey = os.Getenv("GEOCODER_API_KEY")

	if cfg.RefreshInterval, err = getenvDuration("REFRESH_INTERVAL", "15m"); err != nil {
		return nil, err
	}

	cfg.DataDir = getenvDefault("DATA_DIR", ".weather-dashboard")

	cfg.LogLevel = getenvDefault("LOG_LEVEL", "info")
	cfg.LogFormat = getenvDefault("LOG_FORMAT", "text")

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getenvDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
