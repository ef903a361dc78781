// Package sensor holds the five polled read models built from Seerr counters.
package sensor

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/s0up4200/seerrbridge/overseerr"
)

// Label identifies one sensor of the set
type Label string

const (
	LabelMovies  Label = "movies"
	LabelTV      Label = "tv"
	LabelPending Label = "pending"
	LabelTotal   Label = "total"
	LabelIssues  Label = "issues"
)

// Reading is a snapshot of a sensor. A nil State means unknown.
type Reading struct {
	State      *int           `json:"state"`
	Attributes map[string]any `json:"attributes"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// StateString renders the state the way home automation expects it
func (r Reading) StateString() string {
	if r.State == nil {
		return "unknown"
	}
	return strconv.Itoa(*r.State)
}

// fetchFunc polls the count and last-item accessors for one sensor
type fetchFunc func(ctx context.Context, stats overseerr.Stats) (int, map[string]any, error)

// Sensor is a single read model. Its reading is replaced wholesale on every
// refresh so state and attributes always come from the same poll.
type Sensor struct {
	label   Label
	name    string
	icon    string
	fetch   fetchFunc
	reading atomic.Pointer[Reading]
}

func newSensor(label Label, name, icon string, fetch fetchFunc) *Sensor {
	s := &Sensor{label: label, name: name, icon: icon, fetch: fetch}
	s.reading.Store(&Reading{Attributes: map[string]any{}})
	return s
}

// Label returns the sensor label
func (s *Sensor) Label() Label { return s.label }

// Name returns the display name
func (s *Sensor) Name() string { return "Seerr " + s.name }

// Icon returns the mdi icon name
func (s *Sensor) Icon() string { return s.icon }

// UniqueID returns the stable identifier of the sensor
func (s *Sensor) UniqueID() string { return "seerr_" + string(s.label) }

// EntityID returns the home automation entity id
func (s *Sensor) EntityID() string { return entityIDs[s.label] }

// Reading returns the current snapshot
func (s *Sensor) Reading() Reading {
	return *s.reading.Load()
}

// update polls the remote service and swaps in a new reading. On failure
// the state becomes unknown and the previous attributes stay in place.
func (s *Sensor) update(ctx context.Context, stats overseerr.Stats) (Reading, error) {
	state, attrs, err := s.fetch(ctx, stats)
	if err != nil {
		previous := s.reading.Load()
		next := &Reading{Attributes: previous.Attributes, UpdatedAt: time.Now()}
		s.reading.Store(next)
		return *next, fmt.Errorf("failed to update %s sensor: %w", s.label, err)
	}

	next := &Reading{State: &state, Attributes: attrs, UpdatedAt: time.Now()}
	s.reading.Store(next)
	return *next, nil
}

var entityIDs = map[Label]string{
	LabelMovies:  "sensor.seerr_movie_requests",
	LabelTV:      "sensor.seerr_tv_show_requests",
	LabelPending: "sensor.seerr_pending_requests",
	LabelTotal:   "sensor.seerr_total_requests",
	LabelIssues:  "sensor.seerr_issues",
}

func summary(req *overseerr.MediaRequest) any {
	if req == nil {
		return nil
	}
	return req.Summary()
}

// requestSensor builds the fetch for the movies and tv sensors
func requestSensor(
	counts func(overseerr.Stats, context.Context) (overseerr.RequestCounts, error),
	last func(overseerr.Stats, context.Context) (*overseerr.MediaRequest, error),
) fetchFunc {
	return func(ctx context.Context, stats overseerr.Stats) (int, map[string]any, error) {
		c, err := counts(stats, ctx)
		if err != nil {
			return 0, nil, err
		}
		lastRequest, err := last(stats, ctx)
		if err != nil {
			return 0, nil, err
		}
		return c.Total, map[string]any{
			"standard_requests": c.Standard,
			"4k_requests":       c.FourK,
			"pending_requests":  c.Pending,
			"approved_requests": c.Approved,
			"last_request":      summary(lastRequest),
		}, nil
	}
}

func fetchPending(ctx context.Context, stats overseerr.Stats) (int, map[string]any, error) {
	c, err := stats.PendingRequestCounts(ctx)
	if err != nil {
		return 0, nil, err
	}
	lastRequest, err := stats.LastPendingRequest(ctx)
	if err != nil {
		return 0, nil, err
	}
	return c.Total, map[string]any{
		"movies":               c.Movies,
		"tv_shows":             c.TV,
		"standard_requests":    c.Standard,
		"4k_requests":          c.FourK,
		"last_pending_request": summary(lastRequest),
	}, nil
}

func fetchTotal(ctx context.Context, stats overseerr.Stats) (int, map[string]any, error) {
	c, err := stats.TotalRequestCounts(ctx)
	if err != nil {
		return 0, nil, err
	}
	lastRequest, err := stats.LastRequest(ctx)
	if err != nil {
		return 0, nil, err
	}
	return c.Total, map[string]any{
		"movies":            c.Movies,
		"tv_shows":          c.TV,
		"standard_requests": c.Standard,
		"4k_requests":       c.FourK,
		"approved":          c.Approved,
		"pending":           c.Pending,
		"available":         c.Available,
		"processing":        c.Processing,
		"last_request":      summary(lastRequest),
	}, nil
}

func fetchIssues(ctx context.Context, stats overseerr.Stats) (int, map[string]any, error) {
	c, err := stats.IssueCounts(ctx)
	if err != nil {
		return 0, nil, err
	}
	lastIssue, err := stats.LastIssue(ctx)
	if err != nil {
		return 0, nil, err
	}

	attrs := c.Attributes()
	if lastIssue != nil {
		attrs["last_issue"] = lastIssue.Summary()
	}
	return c.Open, attrs, nil
}
