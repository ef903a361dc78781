// Package mqtt publishes Seerr events and sensor readings to an MQTT broker,
// including Home Assistant discovery configs.
package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"github.com/s0up4200/seerrbridge/events"
	"github.com/s0up4200/seerrbridge/filter"
	"github.com/s0up4200/seerrbridge/sensor"
)

const (
	qosAtLeastOnce    byte = 1
	disconnectQuiesce      = 250
	payloadOnline          = "online"
	payloadOffline         = "offline"

	// Home Assistant reads this state payload as unknown
	payloadNone = "None"
)

// ErrNotConnected is returned when publishing before Connect succeeded
var ErrNotConnected = errors.New("mqtt client not connected")

// Config configures the sink
type Config struct {
	Broker          string
	ClientID        string
	Username        string
	Password        string
	TopicPrefix     string
	Discovery       bool
	DiscoveryPrefix string
	// Filter selects which events are forwarded; nil forwards all
	Filter *filter.Filter
}

// client is the part of paho.Client the sink uses
type client interface {
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
}

// Sink implements events.Publisher on top of a paho client
type Sink struct {
	client  client
	cfg     Config
	sensors []*sensor.Sensor
	logger  zerolog.Logger
}

// New builds a sink with a paho client. Connect must be called before use.
func New(cfg Config, sensors []*sensor.Sensor, logger zerolog.Logger) *Sink {
	s := newSink(nil, cfg, sensors, logger)

	opts := paho.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetOrderMatters(false).
		SetWill(s.statusTopic(), payloadOffline, qosAtLeastOnce, true).
		SetOnConnectHandler(func(paho.Client) { s.onConnect() }).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			s.logger.Warn().Err(err).Msg("Lost connection to broker")
		})
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	s.client = paho.NewClient(opts)
	return s
}

func newSink(c client, cfg Config, sensors []*sensor.Sensor, logger zerolog.Logger) *Sink {
	cfg.TopicPrefix = strings.Trim(cfg.TopicPrefix, "/")
	cfg.DiscoveryPrefix = strings.Trim(cfg.DiscoveryPrefix, "/")
	return &Sink{
		client:  c,
		cfg:     cfg,
		sensors: sensors,
		logger:  logger.With().Str("component", "mqtt").Str("broker", cfg.Broker).Logger(),
	}
}

// Connect opens the broker connection
func (s *Sink) Connect(ctx context.Context) error {
	if err := wait(ctx, s.client.Connect()); err != nil {
		return fmt.Errorf("failed to connect to broker %s: %w", s.cfg.Broker, err)
	}
	s.logger.Info().Str("client_id", s.cfg.ClientID).Msg("Connected to MQTT broker")
	return nil
}

// Close marks the bridge offline and disconnects
func (s *Sink) Close() {
	token := s.client.Publish(s.statusTopic(), qosAtLeastOnce, true, payloadOffline)
	token.WaitTimeout(time.Second)
	s.client.Disconnect(disconnectQuiesce)
}

// Publish forwards an event to <prefix>/event when it passes the filter
func (s *Sink) Publish(ctx context.Context, e events.Event) error {
	ok, err := s.cfg.Filter.Match(e)
	if err != nil {
		return fmt.Errorf("failed to filter event: %w", err)
	}
	if !ok {
		s.logger.Debug().Str("event_id", e.ID).Str("filter", s.cfg.Filter.String()).Msg("Event filtered out")
		return nil
	}

	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	return s.publish(ctx, s.topic("event"), false, data)
}

// PublishReading publishes retained state and attributes; its signature
// matches sensor.Listener
func (s *Sink) PublishReading(sn *sensor.Sensor, r sensor.Reading) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	log := s.logger.With().Str("sensor", string(sn.Label())).Logger()

	if err := s.publish(ctx, s.stateTopic(sn), true, statePayload(r)); err != nil {
		log.Warn().Err(err).Msg("Failed to publish sensor state")
		return
	}

	attrs, err := json.Marshal(r.Attributes)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to encode sensor attributes")
		return
	}
	if err := s.publish(ctx, s.attributesTopic(sn), true, attrs); err != nil {
		log.Warn().Err(err).Msg("Failed to publish sensor attributes")
	}
}

func statePayload(r sensor.Reading) string {
	if r.State == nil {
		return payloadNone
	}
	return r.StateString()
}

// PublishDiscovery announces every sensor to Home Assistant
func (s *Sink) PublishDiscovery(ctx context.Context) error {
	if !s.cfg.Discovery {
		return nil
	}

	for _, sn := range s.sensors {
		data, err := json.Marshal(s.discoveryConfig(sn))
		if err != nil {
			return fmt.Errorf("failed to encode discovery for %s: %w", sn.Label(), err)
		}
		if err := s.publish(ctx, s.discoveryTopic(sn), true, data); err != nil {
			return fmt.Errorf("failed to publish discovery for %s: %w", sn.Label(), err)
		}
	}

	s.logger.Debug().Int("sensors", len(s.sensors)).Msg("Published discovery configs")
	return nil
}

// onConnect runs after every (re)connect
func (s *Sink) onConnect() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.publish(ctx, s.statusTopic(), true, payloadOnline); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to publish availability")
	}
	if err := s.PublishDiscovery(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to publish discovery")
	}
	for _, sn := range s.sensors {
		if r := sn.Reading(); !r.UpdatedAt.IsZero() {
			s.PublishReading(sn, r)
		}
	}
}

func (s *Sink) publish(ctx context.Context, topic string, retained bool, payload any) error {
	if s.client == nil {
		return ErrNotConnected
	}
	if err := wait(ctx, s.client.Publish(topic, qosAtLeastOnce, retained, payload)); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// wait blocks on a paho token until it completes or ctx ends
func wait(ctx context.Context, token paho.Token) error {
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}
