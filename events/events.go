// Package events carries webhook notifications to the configured sinks.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// TypeSeerr is the event type emitted for every accepted webhook payload
const TypeSeerr = "SEERR_EVENT"

// Event is one notification received from Seerr
type Event struct {
	ID         string          `json:"id"`
	Type       string          `json:"event_type"`
	WebhookID  string          `json:"webhook_id"`
	ReceivedAt time.Time       `json:"received_at"`
	Data       json.RawMessage `json:"data"`
}

// New wraps a raw webhook payload. data must be valid JSON.
func New(webhookID string, data []byte) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       TypeSeerr,
		WebhookID:  webhookID,
		ReceivedAt: time.Now().UTC(),
		Data:       json.RawMessage(data),
	}
}

// Fields decodes the payload into a generic map. A payload that is valid
// JSON but not an object has no fields.
func (e Event) Fields() (map[string]any, error) {
	var doc any
	if err := json.Unmarshal(e.Data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode event data: %w", err)
	}
	fields, ok := doc.(map[string]any)
	if !ok {
		return map[string]any{}, nil
	}
	return fields, nil
}

// Publisher delivers events somewhere
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// PublisherFunc adapts a function to Publisher
type PublisherFunc func(ctx context.Context, e Event) error

// Publish calls f(ctx, e)
func (f PublisherFunc) Publish(ctx context.Context, e Event) error {
	return f(ctx, e)
}

type subscriber struct {
	name      string
	publisher Publisher
}

// Bus fans an event out to every subscribed sink
type Bus struct {
	mu          sync.RWMutex
	subscribers []subscriber
	logger      zerolog.Logger
}

// NewBus creates an empty bus
func NewBus(logger zerolog.Logger) *Bus {
	return &Bus{logger: logger.With().Str("component", "events").Logger()}
}

// Subscribe adds a named sink
func (b *Bus) Subscribe(name string, p Publisher) {
	b.mu.Lock()
	b.subscribers = append(b.subscribers, subscriber{name: name, publisher: p})
	b.mu.Unlock()
}

// Len returns the number of sinks
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Publish delivers e to every sink. A failing sink does not stop delivery
// to the others; all failures are joined into the returned error.
func (b *Bus) Publish(ctx context.Context, e Event) error {
	b.mu.RLock()
	subscribers := make([]subscriber, len(b.subscribers))
	copy(subscribers, b.subscribers)
	b.mu.RUnlock()

	var errs []error
	for _, s := range subscribers {
		if err := s.publisher.Publish(ctx, e); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.name, err))
		}
	}

	b.logger.Debug().
		Str("event_id", e.ID).
		Int("sinks", len(subscribers)).
		Int("failed", len(errs)).
		Msg("Published event")

	return errors.Join(errs...)
}
