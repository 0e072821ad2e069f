// Command dashboard-client exercises the client-side core against a
// running weather-dashboard server: it signs in, loads the location list
// through the reconciling store, reads weather offline-first and follows
// the selected city through the feed for a short while.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/sirapopw/weather-dashboard/internal/config"
	"github.com/sirapopw/weather-dashboard/internal/feed"
	"github.com/sirapopw/weather-dashboard/internal/fetch"
	"github.com/sirapopw/weather-dashboard/internal/locations"
	"github.com/sirapopw/weather-dashboard/internal/logging"
	"github.com/sirapopw/weather-dashboard/internal/offline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logg, err := logging.Setup(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to set up logging: %v\n", err)
		os.Exit(1)
	}

	baseURL := "http://localhost:" + cfg.Port
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	// Sign in and hold the bearer credential for all subsequent calls.
	var tokenMu sync.Mutex
	var token string
	tokenSource := func() string {
		tokenMu.Lock()
		defer tokenMu.Unlock()
		return token
	}

	fc := fetch.NewClient(baseURL, httpClient, tokenSource)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var login struct {
		AccessToken string `json:"accessToken"`
	}
	err = fc.JSON(ctx, "/api/v1/auth/login", fetch.Options{
		Method: "POST",
		Body:   map[string]string{"username": cfg.DemoUser, "password": cfg.DemoPassword},
	}, &login)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sign-in failed: %v\n", err)
		os.Exit(1)
	}
	tokenMu.Lock()
	token = login.AccessToken
	tokenMu.Unlock()

	// The reconciling store, restored from the last snapshot.
	snap, err := locations.NewSnapshotter(cfg.DataDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open data dir: %v\n", err)
		os.Exit(1)
	}
	store := locations.NewStore(locations.NewClient(fc), snap, logg)

	store.FetchLocations(ctx)
	if msg := store.Err(); msg != "" {
		fmt.Fprintf(os.Stderr, "failed to load locations: %s\n", msg)
		os.Exit(1)
	}

	list := store.Locations()
	fmt.Printf("Known locations (%d):\n", len(list))
	for _, lw := range list {
		marker := " "
		if lw.IsFollowed {
			marker = "*"
		}
		fmt.Printf("  %s %d %s (%s)\n", marker, lw.ID, lw.Name, lw.Timezone)
	}

	selected, ok := store.Selected()
	if !ok {
		fmt.Println("No locations available yet.")
		return
	}
	fmt.Printf("\nSelected: %s\n", selected.Name)

	// Offline-first read of the selected city's current conditions.
	cache, err := offline.NewCache(func(ctx context.Context, locationID string) (json.RawMessage, error) {
		id, err := strconv.Atoi(locationID)
		if err != nil {
			return nil, err
		}
		var target *feed.Coordinates
		timezone := "UTC"
		for _, lw := range store.Locations() {
			if lw.ID == id {
				target = &feed.Coordinates{Lat: lw.Lat, Lon: lw.Lon}
				timezone = lw.Timezone
				break
			}
		}
		if target == nil {
			return nil, fmt.Errorf("unknown location id %d", id)
		}
		var raw json.RawMessage
		path := fmt.Sprintf("/api/v1/weather/latest?lat=%g&lon=%g&timezone=%s", target.Lat, target.Lon, timezone)
		if err := fc.JSON(ctx, path, fetch.Options{}, &raw); err != nil {
			return nil, err
		}
		return raw, nil
	}, cfg.StaleAfter, cfg.DataDir, logg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open weather cache: %v\n", err)
		os.Exit(1)
	}

	data, err := cache.GetOfflineFirst(ctx, strconv.Itoa(selected.ID))
	if err != nil {
		fmt.Fprintf(os.Stderr, "weather unavailable: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("\nCurrent conditions for %s:\n%s\n", selected.Name, data)

	// Follow the selected city through the feed for a moment.
	updates := make(chan feed.State, 16)
	fd := feed.New(feed.Config{
		DebounceDelay:      cfg.DebounceDelay,
		GeolocationTimeout: cfg.GeolocationTimeout,
	}, func(ctx context.Context, coords feed.Coordinates) (json.RawMessage, error) {
		var raw json.RawMessage
		path := fmt.Sprintf("/api/v1/weather/latest?lat=%g&lon=%g", coords.Lat, coords.Lon)
		if err := fc.JSON(ctx, path, fetch.Options{}, &raw); err != nil {
			return nil, err
		}
		return raw, nil
	}, nil, func(s feed.State) {
		select {
		case updates <- s:
		default:
		}
	}, logg)
	defer fd.Close()

	fd.SetCoordinates(selected.Lat, selected.Lon)

	deadline := time.After(5 * time.Second)
	for {
		select {
		case s := <-updates:
			if s.Err != "" {
				fmt.Printf("feed error: %s\n", s.Err)
				return
			}
			if !s.Loading && s.Weather != nil {
				fmt.Printf("\nFeed update for (%g, %g):\n%s\n", s.Coordinates.Lat, s.Coordinates.Lon, s.Weather)
				return
			}
		case <-deadline:
			fmt.Println("no feed update received in time")
			return
		}
	}
}
