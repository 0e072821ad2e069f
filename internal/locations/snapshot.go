package locations

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirapopw/weather-dashboard/internal/weather"
)

// snapshotName is the single named snapshot the store persists under.
const snapshotName = "location-store.json"

// Snapshot is the persisted slice of store state. A reload restores the
// last UI state from it.
type Snapshot struct {
	Locations        []weather.LocationWeather `json:"locations"`
	Selected         *weather.LocationWeather  `json:"selected,omitempty"`
	CompareMode      bool                      `json:"compareMode"`
	CompareSelection [2]*int                   `json:"compareSelection"`
}

// Snapshotter reads and writes the store snapshot in a data directory.
type Snapshotter struct {
	path string
}

// NewSnapshotter creates a snapshotter rooted at dir, creating dir if
// needed.
func NewSnapshotter(dir string) (*Snapshotter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &Snapshotter{path: filepath.Join(dir, snapshotName)}, nil
}

// Load reads the snapshot. A missing file returns (nil, nil).
func (s *Snapshotter) Load() (*Snapshot, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &snap, nil
}

// Save writes the snapshot atomically.
func (s *Snapshotter) Save(snap Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}
