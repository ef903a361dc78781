package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s0up4200/seerrbridge/events"
	"github.com/s0up4200/seerrbridge/filter"
	"github.com/s0up4200/seerrbridge/sensor"
)

// fakeToken is an already completed paho token
type fakeToken struct {
	err error
}

func (t *fakeToken) Wait() bool { return true }

func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }

func (t *fakeToken) Error() error { return t.err }

func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

type message struct {
	topic    string
	retained bool
	payload  string
}

// fakeClient records publishes instead of talking to a broker
type fakeClient struct {
	mu           sync.Mutex
	messages     []message
	connectErr   error
	publishErr   error
	disconnected bool
}

func (c *fakeClient) Connect() paho.Token {
	return &fakeToken{err: c.connectErr}
}

func (c *fakeClient) Disconnect(quiesce uint) {
	c.disconnected = true
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token {
	c.mu.Lock()
	defer c.mu.Unlock()

	var body string
	switch p := payload.(type) {
	case string:
		body = p
	case []byte:
		body = string(p)
	}
	c.messages = append(c.messages, message{topic: topic, retained: retained, payload: body})
	return &fakeToken{err: c.publishErr}
}

func (c *fakeClient) topics() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	topics := make([]string, 0, len(c.messages))
	for _, m := range c.messages {
		topics = append(topics, m.topic)
	}
	return topics
}

func testSensors() []*sensor.Sensor {
	return sensor.NewSet(nil, zerolog.Nop()).Sensors()
}

func newTestSink(c *fakeClient, cfg Config) *Sink {
	if cfg.TopicPrefix == "" {
		cfg.TopicPrefix = "seerr"
	}
	if cfg.DiscoveryPrefix == "" {
		cfg.DiscoveryPrefix = "homeassistant"
	}
	return newSink(c, cfg, testSensors(), zerolog.Nop())
}

func TestConnect(t *testing.T) {
	c := &fakeClient{}
	require.NoError(t, newTestSink(c, Config{}).Connect(context.Background()))

	c = &fakeClient{connectErr: errors.New("connection refused")}
	err := newTestSink(c, Config{Broker: "tcp://broker:1883"}).Connect(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tcp://broker:1883")
}

func TestPublishEvent(t *testing.T) {
	event := events.New("hook", []byte(`{"notification_type":"MEDIA_PENDING","media":{"media_type":"movie"}}`))

	t.Run("forwards to event topic", func(t *testing.T) {
		c := &fakeClient{}
		require.NoError(t, newTestSink(c, Config{TopicPrefix: "/seerr/"}).Publish(context.Background(), event))

		require.Len(t, c.messages, 1)
		assert.Equal(t, "seerr/event", c.messages[0].topic)
		assert.False(t, c.messages[0].retained)

		var decoded events.Event
		require.NoError(t, json.Unmarshal([]byte(c.messages[0].payload), &decoded))
		assert.Equal(t, event.ID, decoded.ID)
		assert.Equal(t, events.TypeSeerr, decoded.Type)
	})

	t.Run("filtered out", func(t *testing.T) {
		f, err := filter.Compile(`MediaType == "tv"`)
		require.NoError(t, err)

		c := &fakeClient{}
		require.NoError(t, newTestSink(c, Config{Filter: f}).Publish(context.Background(), event))
		assert.Empty(t, c.messages)
	})

	t.Run("filter match", func(t *testing.T) {
		f, err := filter.Compile(`NotificationType == "MEDIA_PENDING"`)
		require.NoError(t, err)

		c := &fakeClient{}
		require.NoError(t, newTestSink(c, Config{Filter: f}).Publish(context.Background(), event))
		assert.Len(t, c.messages, 1)
	})

	t.Run("publish failure", func(t *testing.T) {
		c := &fakeClient{publishErr: errors.New("not connected")}
		err := newTestSink(c, Config{}).Publish(context.Background(), event)
		assert.Error(t, err)
	})
}

func TestPublishReading(t *testing.T) {
	c := &fakeClient{}
	s := newTestSink(c, Config{})
	sn := testSensors()[0]

	state := 7
	s.PublishReading(sn, sensor.Reading{State: &state, Attributes: map[string]any{"4k_requests": 1}})

	require.Len(t, c.messages, 2)
	assert.Equal(t, message{topic: "seerr/sensor/movies/state", retained: true, payload: "7"}, c.messages[0])
	assert.Equal(t, "seerr/sensor/movies/attributes", c.messages[1].topic)
	assert.True(t, c.messages[1].retained)
	assert.JSONEq(t, `{"4k_requests":1}`, c.messages[1].payload)

	c.messages = nil
	s.PublishReading(sn, sensor.Reading{Attributes: map[string]any{}})
	require.Len(t, c.messages, 2)
	assert.Equal(t, "None", c.messages[0].payload)
	assert.JSONEq(t, `{}`, c.messages[1].payload)
}

func TestPublishDiscovery(t *testing.T) {
	t.Run("enabled", func(t *testing.T) {
		c := &fakeClient{}
		require.NoError(t, newTestSink(c, Config{Discovery: true}).PublishDiscovery(context.Background()))

		assert.Equal(t, []string{
			"homeassistant/sensor/seerr_movies/config",
			"homeassistant/sensor/seerr_tv/config",
			"homeassistant/sensor/seerr_pending/config",
			"homeassistant/sensor/seerr_total/config",
			"homeassistant/sensor/seerr_issues/config",
		}, c.topics())

		var cfg discoveryConfig
		require.NoError(t, json.Unmarshal([]byte(c.messages[0].payload), &cfg))
		assert.Equal(t, "Seerr Movie requests", cfg.Name)
		assert.Equal(t, "seerr_movies", cfg.UniqueID)
		assert.Equal(t, "mdi:movie", cfg.Icon)
		assert.Equal(t, "seerr/sensor/movies/state", cfg.StateTopic)
		assert.Equal(t, "seerr/sensor/movies/attributes", cfg.JSONAttributesTopic)
		assert.Equal(t, "seerr/status", cfg.AvailabilityTopic)
		assert.True(t, c.messages[0].retained)
	})

	t.Run("disabled", func(t *testing.T) {
		c := &fakeClient{}
		require.NoError(t, newTestSink(c, Config{Discovery: false}).PublishDiscovery(context.Background()))
		assert.Empty(t, c.messages)
	})
}

func TestOnConnectAndClose(t *testing.T) {
	c := &fakeClient{}
	s := newTestSink(c, Config{Discovery: true})

	s.onConnect()
	topics := c.topics()
	require.NotEmpty(t, topics)
	assert.Equal(t, "seerr/status", topics[0])
	assert.Equal(t, payloadOnline, c.messages[0].payload)
	assert.Len(t, topics, 6)

	s.Close()
	last := c.messages[len(c.messages)-1]
	assert.Equal(t, message{topic: "seerr/status", retained: true, payload: payloadOffline}, last)
	assert.True(t, c.disconnected)
}

func TestPublishWithoutClient(t *testing.T) {
	s := newSink(nil, Config{TopicPrefix: "seerr"}, nil, zerolog.Nop())
	err := s.Publish(context.Background(), events.New("hook", []byte(`{}`)))
	assert.ErrorIs(t, err, ErrNotConnected)
}
