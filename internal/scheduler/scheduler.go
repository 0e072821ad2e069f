package scheduler

import (
	"context"
	"strconv"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog"

	"github.com/sirapopw/weather-dashboard/internal/store"
	"github.com/sirapopw/weather-dashboard/internal/upstream"
	"github.com/sirapopw/weather-dashboard/internal/weather"
)

// Scheduler periodically warms the current-conditions response cache for
// every followed location, so dashboards keep seeing fresh data without
// paying the upstream round trip.
type Scheduler struct {
	scheduler *gocron.Scheduler
	locations *store.MemoryStore
	client    *upstream.Client
	cache     *upstream.ResponseCache
	interval  time.Duration
	logger    zerolog.Logger
}

// New creates a new Scheduler.
func New(
	locations *store.MemoryStore,
	client *upstream.Client,
	cache *upstream.ResponseCache,
	interval time.Duration,
	logger zerolog.Logger,
) *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		locations: locations,
		client:    client,
		cache:     cache,
		interval:  interval,
		logger:    logger,
	}
}

// Start schedules the periodic warm-up job and starts the scheduler.
func (s *Scheduler) Start() error {
	minutes := int(s.interval.Minutes())
	if minutes <= 0 {
		minutes = 15
	}

	_, err := s.scheduler.Every(minutes).Minutes().Do(s.warmFollowed)
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}

func (s *Scheduler) warmFollowed() {
	followed := s.locations.Followed()
	if len(followed) == 0 {
		return
	}

	s.logger.Debug().Int("locations", len(followed)).Msg("warming weather cache")

	for _, loc := range followed {
		s.warmOne(loc)
	}
}

func (s *Scheduler) warmOne(loc weather.Location) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	lat := strconv.FormatFloat(loc.Lat, 'f', -1, 64)
	lon := strconv.FormatFloat(loc.Lon, 'f', -1, 64)

	resp, err := s.client.Current(ctx, lat, lon, loc.Timezone)
	if err != nil {
		s.logger.Warn().Err(err).Str("name", loc.Name).Msg("cache warm fetch failed")
		return
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		s.logger.Warn().Int("status", resp.StatusCode).Str("name", loc.Name).Msg("cache warm fetch refused")
		return
	}

	s.cache.Set(upstream.CacheKey(lat, lon, loc.Timezone, "", ""), resp)
}
