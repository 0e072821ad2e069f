// Package locations implements the client-side source of truth for the
// dashboard: the list of known locations, the current selection and the
// compare-mode slots. All mutations go through a remote collaborator and
// every remote failure is absorbed into observable error state; nothing
// escapes the store boundary.
package locations

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/sirapopw/weather-dashboard/internal/weather"
)

// Store is the reconciling state container behind the dashboard UI.
// Operations are not serialized against each other; overlapping calls
// each apply their own outcome and the last to complete wins.
type Store struct {
	mu   sync.Mutex
	api  API
	snap *Snapshotter
	log  zerolog.Logger

	locations        []weather.LocationWeather
	selected         *weather.LocationWeather
	loading          bool
	errMsg           string
	compareMode      bool
	compareSelection [2]*int
}

// NewStore creates a Store. snap may be nil to disable persistence;
// otherwise the previous snapshot is restored.
func NewStore(api API, snap *Snapshotter, log zerolog.Logger) *Store {
	s := &Store{api: api, snap: snap, log: log}

	if snap != nil {
		restored, err := snap.Load()
		if err != nil {
			log.Warn().Err(err).Msg("snapshot restore failed")
		} else if restored != nil {
			s.locations = restored.Locations
			s.selected = restored.Selected
			s.compareMode = restored.CompareMode
			s.compareSelection = restored.CompareSelection
		}
	}

	return s
}

// reconcileSelected keeps the selection pointing at a live entry: empty
// list clears it, a surviving id keeps it, anything else falls back to
// the first entry.
func reconcileSelected(incoming []weather.LocationWeather, prev *weather.LocationWeather) *weather.LocationWeather {
	if len(incoming) == 0 {
		return nil
	}
	if prev == nil {
		v := incoming[0]
		return &v
	}
	for _, lw := range incoming {
		if lw.ID == prev.ID {
			v := lw
			return &v
		}
	}
	v := incoming[0]
	return &v
}

// reconcileCompareSelection drops slots whose id left the list. A slot is
// never reassigned to a different city.
func reconcileCompareSelection(selection [2]*int, incoming []weather.LocationWeather) [2]*int {
	ids := make(map[int]bool, len(incoming))
	for _, lw := range incoming {
		ids[lw.ID] = true
	}

	var next [2]*int
	for slot, id := range selection {
		if id != nil && ids[*id] {
			v := *id
			next[slot] = &v
		}
	}
	return next
}

// FetchLocations loads the full list from the remote collaborator and
// reconciles selection state. It is a no-op while a fetch is in flight or
// once the list is non-empty.
func (s *Store) FetchLocations(ctx context.Context) {
	s.mu.Lock()
	if s.loading || len(s.locations) > 0 {
		s.mu.Unlock()
		return
	}
	s.loading = true
	s.errMsg = ""
	s.mu.Unlock()

	list, err := s.api.List(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	if err != nil {
		s.errMsg = err.Error()
		return
	}

	s.locations = list
	s.selected = reconcileSelected(list, s.selected)
	s.compareSelection = reconcileCompareSelection(s.compareSelection, list)
	s.persistLocked()
}

// AddLocation creates a location remotely and appends it locally. The
// new entry becomes the selection when nothing was selected before.
// Callers validate the payload first (see ValidateNewLocation).
func (s *Store) AddLocation(ctx context.Context, payload weather.NewLocationPayload) {
	s.mu.Lock()
	s.loading = true
	s.errMsg = ""
	s.mu.Unlock()

	loc, err := s.api.Create(ctx, payload)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	if err != nil {
		s.errMsg = err.Error()
		return
	}

	s.locations = append(s.locations, loc)
	if s.selected == nil {
		v := loc
		s.selected = &v
	}
	s.persistLocked()
}

// SetSelectedByID selects the matching location. Unknown ids are ignored
// so stale UI events cannot corrupt state.
func (s *Store) SetSelectedByID(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, lw := range s.locations {
		if lw.ID == id {
			v := lw
			s.selected = &v
			s.persistLocked()
			return
		}
	}
}

// SetSelected sets the selection directly.
func (s *Store) SetSelected(loc weather.LocationWeather) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.selected = &loc
	s.persistLocked()
}

// ToggleFollow flips (or sets, when next is non-nil) a location's follow
// flag through the remote collaborator, then replaces the affected entry
// in place.
func (s *Store) ToggleFollow(ctx context.Context, id int, next *bool) {
	s.mu.Lock()
	var desired bool
	found := false
	for _, lw := range s.locations {
		if lw.ID == id {
			desired = !lw.IsFollowed
			found = true
			break
		}
	}
	if !found {
		s.mu.Unlock()
		return
	}
	if next != nil {
		desired = *next
	}
	s.mu.Unlock()

	updated, err := s.api.SetFollowed(ctx, id, desired)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.errMsg = err.Error()
		return
	}

	for i := range s.locations {
		if s.locations[i].ID == id {
			s.locations[i] = updated
			break
		}
	}
	if s.selected != nil && s.selected.ID == id {
		v := updated
		s.selected = &v
	}
	s.persistLocked()
}

// RemoveLocation deletes a location remotely, removes it locally and
// reconciles selection and compare slots.
func (s *Store) RemoveLocation(ctx context.Context, id int) {
	s.mu.Lock()
	s.errMsg = ""
	s.mu.Unlock()

	err := s.api.Delete(ctx, id)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.errMsg = err.Error()
		return
	}

	next := s.locations[:0:0]
	for _, lw := range s.locations {
		if lw.ID != id {
			next = append(next, lw)
		}
	}
	s.locations = next
	s.selected = reconcileSelected(next, s.selected)
	s.compareSelection = reconcileCompareSelection(s.compareSelection, next)
	s.persistLocked()
}

// SetCompareMode toggles compare mode. Turning it off always clears both
// slots so a stale slot cannot reappear when the mode comes back.
func (s *Store) SetCompareMode(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.compareMode = enabled
	if !enabled {
		s.compareSelection = [2]*int{}
	}
	s.persistLocked()
}

// SetCompareSelection sets one compare slot; the other is untouched.
// Slots outside {0,1} are ignored.
func (s *Store) SetCompareSelection(slot int, id *int) {
	if slot != 0 && slot != 1 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if id == nil {
		s.compareSelection[slot] = nil
	} else {
		v := *id
		s.compareSelection[slot] = &v
	}
	s.persistLocked()
}

// Upsert merges a location into the list, matching by id or name (first
// match wins). Zero-valued fields of loc are treated as absent and leave
// the existing entry's fields intact; an unmatched loc is appended.
func (s *Store) Upsert(loc weather.LocationWeather) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.locations {
		if s.locations[i].ID == loc.ID || s.locations[i].Name == loc.Name {
			s.locations[i] = mergeLocationWeather(s.locations[i], loc)
			s.persistLocked()
			return
		}
	}
	s.locations = append(s.locations, loc)
	s.persistLocked()
}

// ClearError clears the shared error field only.
func (s *Store) ClearError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errMsg = ""
}

// Locations returns a copy of the current list.
func (s *Store) Locations() []weather.LocationWeather {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]weather.LocationWeather, len(s.locations))
	copy(out, s.locations)
	return out
}

// Selected returns the current selection, if any.
func (s *Store) Selected() (weather.LocationWeather, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.selected == nil {
		return weather.LocationWeather{}, false
	}
	return *s.selected, true
}

// Loading reports whether a remote operation is in flight. It is an
// indicator, not a lock.
func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Err returns the last recorded error message, empty when none.
func (s *Store) Err() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errMsg
}

// CompareMode reports whether compare mode is enabled.
func (s *Store) CompareMode() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.compareMode
}

// CompareSelection returns a copy of both compare slots.
func (s *Store) CompareSelection() [2]*int {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out [2]*int
	for i, id := range s.compareSelection {
		if id != nil {
			v := *id
			out[i] = &v
		}
	}
	return out
}

// persistLocked saves the persisted slice of state. Caller holds the
// lock. Failures are logged, never surfaced.
func (s *Store) persistLocked() {
	if s.snap == nil {
		return
	}

	snap := Snapshot{
		Locations:        append([]weather.LocationWeather(nil), s.locations...),
		CompareMode:      s.compareMode,
		CompareSelection: s.compareSelection,
	}
	if s.selected != nil {
		v := *s.selected
		snap.Selected = &v
	}

	if err := s.snap.Save(snap); err != nil {
		s.log.Warn().Err(err).Msg("snapshot save failed")
	}
}

func mergeLocationWeather(dst, src weather.LocationWeather) weather.LocationWeather {
	if src.ID != 0 {
		dst.ID = src.ID
	}
	if src.Name != "" {
		dst.Name = src.Name
	}
	if src.Lat != 0 {
		dst.Lat = src.Lat
	}
	if src.Lon != 0 {
		dst.Lon = src.Lon
	}
	if src.Timezone != "" {
		dst.Timezone = src.Timezone
	}
	if src.IsFollowed {
		dst.IsFollowed = true
	}
	if src.Hourly != nil {
		dst.Hourly = src.Hourly
	}
	if src.Daily != nil {
		dst.Daily = src.Daily
	}
	if !src.LastUpdated.IsZero() {
		dst.LastUpdated = src.LastUpdated
	}
	return dst
}

// ValidateNewLocation enforces the caller-side invariants before a
// payload reaches the store: non-empty name, finite coordinates and a
// timezone.
func ValidateNewLocation(p weather.NewLocationPayload) error {
	if strings.TrimSpace(p.Name) == "" {
		return errors.New("name is required")
	}
	if math.IsNaN(p.Lat) || math.IsInf(p.Lat, 0) {
		return errors.New("latitude must be a finite number")
	}
	if math.IsNaN(p.Lon) || math.IsInf(p.Lon, 0) {
		return errors.New("longitude must be a finite number")
	}
	if p.Timezone == "" {
		return errors.New("timezone is required")
	}
	return nil
}
