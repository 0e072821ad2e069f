package store

import (
	"errors"
	"sync"
	"time"

	"github.com/sirapopw/weather-dashboard/internal/weather"
)

var (
	// ErrNotFound is returned when a location id is unknown for a user.
	ErrNotFound = errors.New("location not found")
)

// cityTemplates seed every new user's list so the dashboard has data to
// show before the first city is added.
var cityTemplates = []weather.Location{
	{Name: "Bangkok", Lat: 13.7563, Lon: 100.5018, Timezone: "Asia/Bangkok"},
	{Name: "Chiang Mai", Lat: 18.7883, Lon: 98.9853, Timezone: "Asia/Bangkok"},
	{Name: "Tokyo", Lat: 35.6895, Lon: 139.6917, Timezone: "Asia/Tokyo"},
	{Name: "Seoul", Lat: 37.5665, Lon: 126.978, Timezone: "Asia/Seoul"},
	{Name: "Sydney", Lat: -33.8688, Lon: 151.2093, Timezone: "Australia/Sydney"},
	{Name: "London", Lat: 51.5072, Lon: -0.1276, Timezone: "Europe/London"},
	{Name: "Paris", Lat: 48.8566, Lon: 2.3522, Timezone: "Europe/Paris"},
	{Name: "New York", Lat: 40.7128, Lon: -74.006, Timezone: "America/New_York"},
	{Name: "Los Angeles", Lat: 34.0522, Lon: -118.2437, Timezone: "America/Los_Angeles"},
	{Name: "Vancouver", Lat: 49.2827, Lon: -123.1207, Timezone: "America/Vancouver"},
}

// userLocations holds one authenticated user's location list.
type userLocations struct {
	locations []weather.LocationWeather
	nextID    int
}

// MemoryStore is a concurrency-safe in-memory registry of per-user
// location lists backing the locations endpoint.
type MemoryStore struct {
	mu    sync.Mutex
	users map[string]*userLocations
}

// NewMemoryStore creates an empty registry.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: make(map[string]*userLocations)}
}

// ensureUser returns the user's list, seeding it from the city templates
// on first access. Caller must hold the lock.
func (s *MemoryStore) ensureUser(userID string) *userLocations {
	u, ok := s.users[userID]
	if ok {
		return u
	}

	u = &userLocations{}
	for i, tpl := range cityTemplates {
		loc := tpl
		loc.ID = i + 1
		loc.IsFollowed = true
		u.locations = append(u.locations, weather.NewMockLocationWeather(loc))
	}
	u.nextID = len(cityTemplates) + 1
	s.users[userID] = u
	return u
}

// List returns the user's full location list.
func (s *MemoryStore) List(userID string) []weather.LocationWeather {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.ensureUser(userID)
	out := make([]weather.LocationWeather, len(u.locations))
	copy(out, u.locations)
	return out
}

// Create appends a new location for the user and returns it with a fresh
// id and synthetic series attached.
func (s *MemoryStore) Create(userID string, p weather.NewLocationPayload) weather.LocationWeather {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.ensureUser(userID)

	followed := true
	if p.IsFollowed != nil {
		followed = *p.IsFollowed
	}

	loc := weather.NewMockLocationWeather(weather.Location{
		ID:         u.nextID,
		Name:       p.Name,
		Lat:        p.Lat,
		Lon:        p.Lon,
		Timezone:   p.Timezone,
		IsFollowed: followed,
	})
	u.nextID++
	u.locations = append(u.locations, loc)
	return loc
}

// SetFollowed updates a location's follow flag by id.
func (s *MemoryStore) SetFollowed(userID string, id int, followed bool) (weather.LocationWeather, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.ensureUser(userID)
	for i := range u.locations {
		if u.locations[i].ID == id {
			u.locations[i].IsFollowed = followed
			u.locations[i].LastUpdated = time.Now().UTC()
			return u.locations[i], nil
		}
	}
	return weather.LocationWeather{}, ErrNotFound
}

// Delete removes a location by id and returns the removed entry.
func (s *MemoryStore) Delete(userID string, id int) (weather.LocationWeather, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.ensureUser(userID)
	for i := range u.locations {
		if u.locations[i].ID == id {
			removed := u.locations[i]
			u.locations = append(u.locations[:i], u.locations[i+1:]...)
			return removed, nil
		}
	}
	return weather.LocationWeather{}, ErrNotFound
}

// Followed returns every followed location across all known users,
// deduplicated by coordinates. Used to warm the proxy response cache.
func (s *MemoryStore) Followed() []weather.Location {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[[2]float64]bool)
	var out []weather.Location
	for _, u := range s.users {
		for _, lw := range u.locations {
			if !lw.IsFollowed {
				continue
			}
			key := [2]float64{lw.Lat, lw.Lon}
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, lw.Location)
		}
	}
	return out
}
