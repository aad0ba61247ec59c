// Package status broadcasts stream lifecycle events (segment
// published, corruption recovery engaged, initialization parsed) to
// WebSocket subscribers, so a dashboard can show health without
// polling the HLS playlist.
package status

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"fragmenter/mp4frag"
)

// EventKind distinguishes the shape of Event.Data.
type EventKind string

const (
	EventSegment  EventKind = "segment"
	EventInit     EventKind = "init"
	EventRecovery EventKind = "recovery"
)

// Event is one status message broadcast to every connected client.
type Event struct {
	Type        EventKind `json:"type"`
	Sequence    int       `json:"sequence,omitempty"`
	DurationS   float64   `json:"durationS,omitempty"`
	TimestampMs int64     `json:"timestampMs,omitempty"`
	MIME        string    `json:"mime,omitempty"`
	Attempts    int       `json:"attempts,omitempty"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const (
	pingInterval = 25 * time.Second
	pingTimeout  = 5 * time.Second
	readDeadline = 60 * time.Second
)

type client struct {
	conn     *websocket.Conn
	mu       sync.Mutex
	isActive bool
}

// Hub fans status events out to every connected WebSocket client.
type Hub struct {
	mu      sync.Mutex
	clients map[uuid.UUID]*client
}

// NewHub constructs an empty Hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[uuid.UUID]*client)}
}

// Upgrade upgrades an HTTP request to a WebSocket connection and
// registers it as a Hub subscriber until the client disconnects.
func (h *Hub) Upgrade(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("status: error upgrading connection: %v", err)
		return
	}
	conn.SetReadLimit(512 * 1024)
	conn.SetReadDeadline(time.Now().Add(readDeadline))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(readDeadline))
		return nil
	})

	id := uuid.New()
	c := &client{conn: conn, isActive: true}

	h.mu.Lock()
	h.clients[id] = c
	h.mu.Unlock()

	go h.pingPump(id, c)
	go h.readPump(id, c)

	log.Printf("status: client %s connected", id)
}

func (h *Hub) pingPump(id uuid.UUID, c *client) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for range ticker.C {
		c.mu.Lock()
		if !c.isActive {
			c.mu.Unlock()
			return
		}
		c.conn.SetWriteDeadline(time.Now().Add(pingTimeout))
		err := c.conn.WriteMessage(websocket.PingMessage, []byte{})
		c.mu.Unlock()
		if err != nil {
			log.Printf("status: error sending ping to %s: %v", id, err)
			h.remove(id)
			return
		}
	}
}

func (h *Hub) readPump(id uuid.UUID, c *client) {
	defer func() {
		c.mu.Lock()
		c.isActive = false
		c.conn.Close()
		c.mu.Unlock()
		h.remove(id)
		log.Printf("status: client %s disconnected", id)
	}()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("status: read error from %s: %v", id, err)
			}
			return
		}
	}
}

func (h *Hub) remove(id uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, id)
}

// Broadcast sends ev to every currently connected client, one client
// after another. Each write gets its own short deadline (pingTimeout),
// so a slow or dead client delays the rest by at most that long, and a
// failed write drops that client.
func (h *Hub) Broadcast(ev Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		log.Printf("status: marshal event: %v", err)
		return
	}

	h.mu.Lock()
	targets := make(map[uuid.UUID]*client, len(h.clients))
	for id, c := range h.clients {
		targets[id] = c
	}
	h.mu.Unlock()

	for id, c := range targets {
		c.mu.Lock()
		c.conn.SetWriteDeadline(time.Now().Add(pingTimeout))
		err := c.conn.WriteMessage(websocket.TextMessage, payload)
		c.mu.Unlock()
		if err != nil {
			log.Printf("status: write error to %s: %v", id, err)
			h.remove(id)
		}
	}
}

// PublishHookFunc adapts Broadcast into the func(MediaSegment) shape
// mp4frag.Stream.SetPublishHook expects.
func (h *Hub) PublishHookFunc() func(mp4frag.MediaSegment) {
	return func(seg mp4frag.MediaSegment) {
		h.Broadcast(Event{
			Type:        EventSegment,
			Sequence:    seg.Sequence,
			DurationS:   seg.DurationS,
			TimestampMs: seg.TimestampMs,
		})
	}
}

// InitHookFunc adapts Broadcast into the func(mime string, ok bool)
// shape mp4frag.Stream.SetInitHook expects, firing once the
// initialization fragment has been parsed. MIME is empty when the
// stream could not resolve it.
func (h *Hub) InitHookFunc() func(mime string, ok bool) {
	return func(mime string, ok bool) {
		h.Broadcast(Event{Type: EventInit, MIME: mime})
	}
}

// RecoveryHookFunc adapts Broadcast into the func(attempts int) shape
// mp4frag.Stream.SetRecoveryHook expects, firing once MoofHunt
// corruption recovery engages.
func (h *Hub) RecoveryHookFunc() func(attempts int) {
	return func(attempts int) {
		h.Broadcast(Event{Type: EventRecovery, Attempts: attempts})
	}
}
