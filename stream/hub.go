// Package stream pushes events and sensor readings to websocket clients.
package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/s0up4200/seerrbridge/events"
	"github.com/s0up4200/seerrbridge/sensor"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 512

	sendBuffer = 256
)

// Message types sent to clients
const (
	TypeEvent  = "event"
	TypeSensor = "sensor"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Message is the envelope written to clients
type Message struct {
	Type      string `json:"type"`
	Payload   any    `json:"payload"`
	Timestamp string `json:"timestamp"`
}

// SensorPayload is the payload of a sensor message
type SensorPayload struct {
	Label    sensor.Label   `json:"label"`
	EntityID string         `json:"entity_id"`
	Reading  sensor.Reading `json:"reading"`
}

// Hub tracks websocket clients and broadcasts to all of them
type Hub struct {
	clients    map[*client]bool
	broadcast  chan []byte
	register   chan *client
	unregister chan *client
	done       chan struct{}
	mu         sync.RWMutex
	logger     zerolog.Logger
}

type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// NewHub creates a hub. Run must be started before clients connect.
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*client]bool),
		broadcast:  make(chan []byte, sendBuffer),
		register:   make(chan *client),
		unregister: make(chan *client),
		done:       make(chan struct{}),
		logger:     logger.With().Str("component", "stream").Logger(),
	}
}

// Run serves registrations and broadcasts until ctx is done
func (h *Hub) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.mu.Lock()
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			h.mu.Unlock()
			return nil

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			h.mu.Unlock()
			h.logger.Debug().Str("remote", c.conn.RemoteAddr().String()).Msg("Client connected")

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			h.mu.Lock()
			for c := range h.clients {
				select {
				case c.send <- message:
				default:
					h.logger.Warn().Msg("Dropping slow client")
					close(c.send)
					delete(h.clients, c)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Broadcast queues a message for every connected client
func (h *Hub) Broadcast(msgType string, payload any) error {
	data, err := json.Marshal(Message{
		Type:      msgType,
		Payload:   payload,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("failed to encode %s message: %w", msgType, err)
	}

	select {
	case h.broadcast <- data:
		return nil
	default:
		return fmt.Errorf("broadcast queue full, dropped %s message", msgType)
	}
}

// Publish implements events.Publisher
func (h *Hub) Publish(ctx context.Context, e events.Event) error {
	return h.Broadcast(TypeEvent, e)
}

// PublishReading forwards a sensor refresh; its signature matches sensor.Listener
func (h *Hub) PublishReading(s *sensor.Sensor, r sensor.Reading) {
	payload := SensorPayload{Label: s.Label(), EntityID: s.EntityID(), Reading: r}
	if err := h.Broadcast(TypeSensor, payload); err != nil {
		h.logger.Warn().Err(err).Str("sensor", string(s.Label())).Msg("Failed to stream sensor reading")
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// HandleWebSocket upgrades GET /api/events
func (h *Hub) HandleWebSocket(c echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	cl := &client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}
	select {
	case h.register <- cl:
	case <-h.done:
		conn.Close()
		return nil
	}

	go cl.writePump()
	go cl.readPump()

	return nil
}

// readPump only drains control frames; clients have nothing to say
func (c *client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Debug().Err(err).Msg("Client closed unexpectedly")
			}
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
