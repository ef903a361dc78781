// Package webhook receives Seerr notifications, refreshes the matching
// sensors and republishes the payload as an event.
package webhook

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/s0up4200/seerrbridge/events"
	"github.com/s0up4200/seerrbridge/sensor"
)

// maxBodySize caps the payload read from Seerr
const maxBodySize = 1 << 20

// ErrMalformedPayload is returned for bodies that are not valid JSON
var ErrMalformedPayload = errors.New("malformed webhook payload")

// Refresher is the part of the sensor set the receiver drives
type Refresher interface {
	Refresh(ctx context.Context, label sensor.Label) (sensor.Reading, error)
	RefreshAsync(label sensor.Label)
}

// Options configures a Receiver
type Options struct {
	// ID is the path segment Seerr posts to
	ID string
	// AuthHeader, when set, must match the Authorization header exactly
	AuthHeader string
}

// Receiver handles POST /api/webhook/:id
type Receiver struct {
	opts      Options
	sensors   Refresher
	publisher events.Publisher
	logger    zerolog.Logger
}

// New creates a Receiver
func New(opts Options, sensors Refresher, publisher events.Publisher, logger zerolog.Logger) *Receiver {
	return &Receiver{
		opts:      opts,
		sensors:   sensors,
		publisher: publisher,
		logger:    logger.With().Str("component", "webhook").Logger(),
	}
}

// DefaultID derives a stable webhook id from the Seerr connection settings,
// so the URL configured in Seerr survives restarts without exposing the key.
func DefaultID(baseURL, credential string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(baseURL+"#"+credential)).String()
}

// ID returns the webhook id the receiver answers to
func (r *Receiver) ID() string {
	return r.opts.ID
}

// RegisterRoutes registers the webhook route
func (r *Receiver) RegisterRoutes(g *echo.Group) {
	g.POST("/webhook/:id", r.Handle)
}

// Handle is the echo handler. Everything past id and auth checks answers 200
// so Seerr never retries a payload we chose to ignore.
func (r *Receiver) Handle(c echo.Context) error {
	if c.Param("id") != r.opts.ID {
		return echo.NewHTTPError(http.StatusNotFound, "unknown webhook")
	}

	if r.opts.AuthHeader != "" {
		got := c.Request().Header.Get(echo.HeaderAuthorization)
		if subtle.ConstantTimeCompare([]byte(got), []byte(r.opts.AuthHeader)) != 1 {
			r.logger.Warn().Str("remote_ip", c.RealIP()).Msg("Webhook call with invalid authorization")
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization")
		}
	}

	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxBodySize))
	if err != nil {
		r.logger.Debug().Err(err).Msg("Failed to read webhook body")
		return c.NoContent(http.StatusOK)
	}

	if err := r.Process(c.Request().Context(), body); err != nil {
		if errors.Is(err, ErrMalformedPayload) {
			r.logger.Debug().Err(err).Msg("Ignoring malformed webhook payload")
		} else {
			r.logger.Error().Err(err).Msg("Failed to publish webhook event")
		}
	}

	return c.NoContent(http.StatusOK)
}

// Process applies one payload: pending and media-type sensors are refreshed
// in turn, total is refreshed in the background, then the event is published.
func (r *Receiver) Process(ctx context.Context, body []byte) error {
	if len(bytes.TrimSpace(body)) == 0 {
		body = []byte("{}")
	}

	p, err := parsePayload(body)
	if err != nil {
		return err
	}

	log := r.logger.With().
		Str("notification_type", p.NotificationType).
		Str("media_type", p.MediaType).
		Logger()
	log.Debug().Msg("Received webhook")

	if p.isPending() {
		r.refresh(ctx, sensor.LabelPending)
	}

	switch p.MediaType {
	case "movie":
		r.refresh(ctx, sensor.LabelMovies)
	case "tv":
		r.refresh(ctx, sensor.LabelTV)
	case "":
		log.Debug().Msg("Payload has no media type")
	default:
		log.Debug().Msg("Unhandled media type")
	}

	r.sensors.RefreshAsync(sensor.LabelTotal)

	if err := r.publisher.Publish(ctx, events.New(r.opts.ID, body)); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

func (r *Receiver) refresh(ctx context.Context, label sensor.Label) {
	if _, err := r.sensors.Refresh(ctx, label); err != nil {
		r.logger.Error().Err(err).Str("sensor", string(label)).Msg("Failed to refresh sensor")
	}
}

type payload struct {
	NotificationType string
	MediaType        string
}

func (p payload) isPending() bool {
	return strings.EqualFold(p.NotificationType, "MEDIA_PENDING") ||
		strings.EqualFold(p.NotificationType, "pending")
}

// parsePayload extracts the routing fields. Missing or oddly typed fields
// leave the corresponding value empty, and any JSON that is not an object
// carries no routing fields at all.
func parsePayload(body []byte) (payload, error) {
	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return payload{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	var p payload
	raw, ok := doc.(map[string]any)
	if !ok {
		return p, nil
	}
	p.NotificationType, _ = raw["notification_type"].(string)
	if media, ok := raw["media"].(map[string]any); ok {
		p.MediaType, _ = media["media_type"].(string)
	}
	return p, nil
}
