package feed

import (
	"sync"
	"time"
)

// Coordinates is a latitude/longitude pair.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Debouncer delays propagation of a rapidly changing coordinate pair.
// Each Set resets the quiet-period timer; only the last value within a
// quiet period is emitted on C.
type Debouncer struct {
	mu     sync.Mutex
	delay  time.Duration
	timer  *time.Timer
	out    chan Coordinates
	closed bool
}

// NewDebouncer creates a debouncer with the given quiet period.
func NewDebouncer(delay time.Duration) *Debouncer {
	return &Debouncer{
		delay: delay,
		out:   make(chan Coordinates, 1),
	}
}

// Set schedules value for emission after the quiet period, replacing any
// pending value.
func (d *Debouncer) Set(value Coordinates) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, func() {
		d.emit(value)
	})
}

// C emits debounced coordinate values. A slow consumer only ever sees
// the most recent value.
func (d *Debouncer) C() <-chan Coordinates {
	return d.out
}

// Close stops any pending emission. Set becomes a no-op afterwards.
func (d *Debouncer) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.closed = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

func (d *Debouncer) emit(value Coordinates) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.mu.Unlock()

	// Keep only the latest value: drop a stale pending one if the
	// consumer has not picked it up yet.
	for {
		select {
		case d.out <- value:
			return
		default:
			select {
			case <-d.out:
			default:
			}
		}
	}
}
