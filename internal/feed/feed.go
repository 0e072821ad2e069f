// Package feed converts a raw, possibly rapidly-changing coordinate
// stream into a disciplined, cancellation-safe sequence of weather
// fetches: debounced input, at most one authoritative fetch at a time,
// and no state updates after teardown.
package feed

import (
	"context"
	"encoding/json"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// coordEpsilon is the smallest coordinate change worth reacting to;
// anything below it is floating-point jitter.
const coordEpsilon = 1e-6

// WeatherFetcher fetches weather data for a coordinate. It must honour
// ctx cancellation.
type WeatherFetcher func(ctx context.Context, coords Coordinates) (json.RawMessage, error)

// Config controls feed behaviour.
type Config struct {
	DebounceDelay      time.Duration // default 300ms
	GeolocationTimeout time.Duration // default 5s
	GeolocationPoll    time.Duration // default 30s
	GeolocationEnabled bool
}

func (c Config) withDefaults() Config {
	if c.DebounceDelay <= 0 {
		c.DebounceDelay = 300 * time.Millisecond
	}
	if c.GeolocationTimeout <= 0 {
		c.GeolocationTimeout = 5 * time.Second
	}
	if c.GeolocationPoll <= 0 {
		c.GeolocationPoll = 30 * time.Second
	}
	return c
}

// State is the combined view the feed exposes: loading and error cover
// both the fetch lifecycle and geolocation.
type State struct {
	Weather     json.RawMessage
	Coordinates Coordinates
	Loading     bool
	Err         string
}

// Feed orchestrates geolocation, debouncing and cancellation-safe weather
// fetches into one consumable state machine.
type Feed struct {
	mu  sync.Mutex
	cfg Config
	log zerolog.Logger

	fetchWeather WeatherFetcher
	locator      Locator
	debouncer    *Debouncer
	onUpdate     func(State)

	closed  bool
	closeCh chan struct{}
	wg      sync.WaitGroup

	// current fetch; bumping gen invalidates any in-flight result.
	gen         uint64
	cancelFetch context.CancelFunc

	coords       Coordinates
	hasCoords    bool
	manual       bool
	weather      json.RawMessage
	fetchLoading bool
	fetchErr     string
	geoLoading   bool
	geoErr       string
}

// New creates and starts a feed. locator may be nil when geolocation is
// disabled. onUpdate, when non-nil, is invoked after every state change.
func New(cfg Config, fetchWeather WeatherFetcher, locator Locator, onUpdate func(State), log zerolog.Logger) *Feed {
	cfg = cfg.withDefaults()

	f := &Feed{
		cfg:          cfg,
		log:          log,
		fetchWeather: fetchWeather,
		locator:      locator,
		debouncer:    NewDebouncer(cfg.DebounceDelay),
		onUpdate:     onUpdate,
		closeCh:      make(chan struct{}),
	}

	f.wg.Add(1)
	go f.run()

	if cfg.GeolocationEnabled && locator != nil {
		f.wg.Add(1)
		go f.watchGeolocation()
	}

	return f
}

// SetCoordinates records a manual coordinate selection. Manual selection
// suppresses geolocation adoption until ResetManualSelection.
func (f *Feed) SetCoordinates(lat, lon float64) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.manual = true
	f.coords = Coordinates{Lat: lat, Lon: lon}
	f.hasCoords = true
	f.mu.Unlock()

	f.debouncer.Set(Coordinates{Lat: lat, Lon: lon})
	f.notify()
}

// ResetManualSelection re-enables geolocation adoption.
func (f *Feed) ResetManualSelection() {
	f.mu.Lock()
	f.manual = false
	f.mu.Unlock()
}

// Refetch re-runs the fetch for the current coordinates, bypassing the
// debouncer.
func (f *Feed) Refetch() {
	f.mu.Lock()
	if f.closed || !f.hasCoords {
		f.mu.Unlock()
		return
	}
	coords := f.coords
	f.mu.Unlock()

	f.startFetch(coords)
}

// State returns the current combined view.
func (f *Feed) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stateLocked()
}

// Close tears the feed down. In-flight work is cancelled and can no
// longer affect state; Close blocks until the background goroutines have
// stopped.
func (f *Feed) Close() {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.closed = true
	f.gen++ // invalidate any in-flight fetch
	if f.cancelFetch != nil {
		f.cancelFetch()
	}
	f.mu.Unlock()

	f.debouncer.Close()
	close(f.closeCh)
	f.wg.Wait()
}

// run consumes debounced coordinates and turns each into a fetch.
func (f *Feed) run() {
	defer f.wg.Done()

	for {
		select {
		case <-f.closeCh:
			return
		case coords := <-f.debouncer.C():
			f.startFetch(coords)
		}
	}
}

// startFetch cancels any in-flight fetch and starts a new authoritative
// one. A superseded fetch's result is discarded even if it completes.
func (f *Feed) startFetch(coords Coordinates) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	if f.cancelFetch != nil {
		f.cancelFetch()
	}
	f.gen++
	myGen := f.gen

	ctx, cancel := context.WithCancel(context.Background())
	f.cancelFetch = cancel
	f.fetchLoading = true
	f.fetchErr = ""
	f.wg.Add(1)
	f.mu.Unlock()

	f.notify()

	go func() {
		defer f.wg.Done()
		defer cancel()

		data, err := f.fetchWeather(ctx, coords)

		f.mu.Lock()
		if f.closed || f.gen != myGen {
			// Superseded or torn down; this result no longer exists.
			f.mu.Unlock()
			return
		}
		f.fetchLoading = false
		if err != nil {
			f.fetchErr = err.Error()
			f.weather = nil
		} else {
			f.weather = data
		}
		f.mu.Unlock()

		f.notify()
	}()
}

// watchGeolocation polls the locator and adopts its coordinates when
// allowed: geolocation enabled, permission granted, no manual override,
// and a change larger than the jitter epsilon.
func (f *Feed) watchGeolocation() {
	defer f.wg.Done()

	ticker := time.NewTicker(f.cfg.GeolocationPoll)
	defer ticker.Stop()

	f.pollGeolocation()
	for {
		select {
		case <-f.closeCh:
			return
		case <-ticker.C:
			f.pollGeolocation()
		}
	}
}

func (f *Feed) pollGeolocation() {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.geoLoading = true
	f.mu.Unlock()
	f.notify()

	ctx, cancel := context.WithTimeout(context.Background(), f.cfg.GeolocationTimeout)
	pos, err := f.locator.Current(ctx)
	cancel()

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.geoLoading = false
	if err != nil {
		f.geoErr = err.Error()
		f.mu.Unlock()
		f.notify()
		return
	}
	f.geoErr = ""

	adopt := f.locator.Granted() && !f.manual &&
		(!f.hasCoords ||
			math.Abs(f.coords.Lat-pos.Lat) > coordEpsilon ||
			math.Abs(f.coords.Lon-pos.Lon) > coordEpsilon)
	if adopt {
		f.coords = Coordinates{Lat: pos.Lat, Lon: pos.Lon}
		f.hasCoords = true
	}
	f.mu.Unlock()

	if adopt {
		f.debouncer.Set(Coordinates{Lat: pos.Lat, Lon: pos.Lon})
	}
	f.notify()
}

func (f *Feed) stateLocked() State {
	return State{
		Weather:     f.weather,
		Coordinates: f.coords,
		Loading:     f.fetchLoading || f.geoLoading,
		Err:         firstNonEmpty(f.fetchErr, f.geoErr),
	}
}

func (f *Feed) notify() {
	if f.onUpdate == nil {
		return
	}
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	state := f.stateLocked()
	f.mu.Unlock()
	f.onUpdate(state)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
