package sensor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/s0up4200/seerrbridge/overseerr"
)

// asyncRefreshTimeout bounds refreshes that nobody waits on
const asyncRefreshTimeout = time.Minute

// Listener is notified after every refresh, successful or not
type Listener func(s *Sensor, r Reading)

// Set owns the five sensors of one Seerr instance
type Set struct {
	stats   overseerr.Stats
	logger  zerolog.Logger
	sensors map[Label]*Sensor
	order   []Label

	mu        sync.RWMutex
	listeners []Listener

	inflight sync.WaitGroup
}

// NewSet creates the sensor set. Nothing is polled until Refresh is called.
func NewSet(stats overseerr.Stats, logger zerolog.Logger) *Set {
	sensors := []*Sensor{
		newSensor(LabelMovies, "Movie requests", "mdi:movie",
			requestSensor(overseerr.Stats.MovieRequestCounts, overseerr.Stats.LastMovieRequest)),
		newSensor(LabelTV, "TV Show requests", "mdi:television-classic",
			requestSensor(overseerr.Stats.TVRequestCounts, overseerr.Stats.LastTVRequest)),
		newSensor(LabelPending, "Pending requests", "mdi:clock-alert-outline", fetchPending),
		newSensor(LabelTotal, "Total requests", "mdi:movie", fetchTotal),
		newSensor(LabelIssues, "Issues", "mdi:movie", fetchIssues),
	}

	set := &Set{
		stats:   stats,
		logger:  logger.With().Str("component", "sensor").Logger(),
		sensors: make(map[Label]*Sensor, len(sensors)),
	}
	for _, s := range sensors {
		set.sensors[s.label] = s
		set.order = append(set.order, s.label)
	}
	return set
}

// Sensors returns the sensors in a stable order
func (s *Set) Sensors() []*Sensor {
	out := make([]*Sensor, 0, len(s.order))
	for _, label := range s.order {
		out = append(out, s.sensors[label])
	}
	return out
}

// Get returns the sensor with the given label
func (s *Set) Get(label Label) (*Sensor, bool) {
	sensor, ok := s.sensors[label]
	return sensor, ok
}

// Subscribe registers a listener for refresh results
func (s *Set) Subscribe(l Listener) {
	s.mu.Lock()
	s.listeners = append(s.listeners, l)
	s.mu.Unlock()
}

// Refresh polls one sensor and returns its new reading. Remote failures are
// logged and reflected as an unknown state; only an unknown label is an error.
func (s *Set) Refresh(ctx context.Context, label Label) (Reading, error) {
	sensor, ok := s.sensors[label]
	if !ok {
		return Reading{}, fmt.Errorf("unknown sensor %q", label)
	}

	reading, err := sensor.update(ctx, s.stats)
	if err != nil {
		s.logger.Warn().Err(err).Str("sensor", string(label)).Msg("Unable to update Seerr sensor")
	} else {
		s.logger.Debug().
			Str("sensor", string(label)).
			Str("state", reading.StateString()).
			Msg("Updated sensor")
	}

	s.notify(sensor, reading)
	return reading, nil
}

// RefreshAsync refreshes a sensor in the background without blocking the caller
func (s *Set) RefreshAsync(label Label) {
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()

		ctx, cancel := context.WithTimeout(context.Background(), asyncRefreshTimeout)
		defer cancel()

		if _, err := s.Refresh(ctx, label); err != nil {
			s.logger.Error().Err(err).Msg("Background refresh failed")
		}
	}()
}

// RefreshAll runs the periodic update: pending, movies, tv and issues in
// turn, then total without waiting for it
func (s *Set) RefreshAll(ctx context.Context) {
	for _, label := range []Label{LabelPending, LabelMovies, LabelTV, LabelIssues} {
		if ctx.Err() != nil {
			return
		}
		_, _ = s.Refresh(ctx, label)
	}
	s.RefreshAsync(LabelTotal)
}

// Wait blocks until background refreshes have finished
func (s *Set) Wait() {
	s.inflight.Wait()
}

func (s *Set) notify(sensor *Sensor, reading Reading) {
	s.mu.RLock()
	listeners := make([]Listener, len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.RUnlock()

	for _, l := range listeners {
		l(sensor, reading)
	}
}
