package broadcast

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/Ishswami-Tech/HealthCareBackend-sub004/internal/core/ports"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Should be configured properly for production
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

const (
	writeTimeout   = 10 * time.Second
	pongTimeout    = 60 * time.Second
	pingInterval   = 30 * time.Second
	sendBufferSize = 32
)

// Hub is the low-latency broadcast channel: UI clients subscribe to a
// consultation room over a websocket and receive every normalized event
// the tracker emits for it. Delivery is best effort; a slow client is
// dropped rather than allowed to stall the room.
type Hub struct {
	rooms  map[string]map[*client]struct{}
	mu     sync.RWMutex
	logger *zap.SugaredLogger
}

var _ ports.RoomBroadcaster = (*Hub)(nil)

func NewHub(logger *zap.SugaredLogger) *Hub {
	return &Hub{
		rooms:  make(map[string]map[*client]struct{}),
		logger: logger,
	}
}

type client struct {
	conn      *websocket.Conn
	send      chan []byte
	rooms     map[string]struct{}
	closeOnce sync.Once
}

type clientMessage struct {
	Action string `json:"action"`
	Room   string `json:"room"`
}

type roomEvent struct {
	Room    string      `json:"room"`
	Event   string      `json:"event"`
	Payload interface{} `json:"payload,omitempty"`
	SentAt  time.Time   `json:"sent_at"`
}

// HandleWebSocket upgrades the request and services the client until it
// disconnects.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warnw("websocket upgrade failed", "error", err)
		return
	}

	c := &client{
		conn:  conn,
		send:  make(chan []byte, sendBufferSize),
		rooms: make(map[string]struct{}),
	}

	go h.writePump(c)
	h.readPump(c)
}

// SendToRoom marshals the event once and fans it out to every client in
// the room.
func (h *Hub) SendToRoom(roomKey string, eventName string, payload interface{}) {
	data, err := json.Marshal(roomEvent{
		Room:    roomKey,
		Event:   eventName,
		Payload: payload,
		SentAt:  time.Now(),
	})
	if err != nil {
		h.logger.Warnw("failed to marshal room event",
			"room", roomKey,
			"event", eventName,
			"error", err,
		)
		return
	}

	// Sends happen under the read lock; drop closes the channel under the
	// write lock, so a send can never race a close.
	h.mu.RLock()
	var slow []*client
	for c := range h.rooms[roomKey] {
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	// Clients that cannot keep up get disconnected.
	for _, c := range slow {
		h.drop(c)
	}
}

// RoomSize returns the number of clients subscribed to a room.
func (h *Hub) RoomSize(roomKey string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomKey])
}

func (h *Hub) join(c *client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*client]struct{})
	}
	h.rooms[room][c] = struct{}{}
	c.rooms[room] = struct{}{}
}

func (h *Hub) leave(c *client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.detach(c, room)
}

// drop detaches the client from every room and closes it exactly once.
func (h *Hub) drop(c *client) {
	h.mu.Lock()
	for room := range c.rooms {
		h.detach(c, room)
	}
	c.closeOnce.Do(func() { close(c.send) })
	h.mu.Unlock()
	c.conn.Close()
}

// detach requires h.mu held.
func (h *Hub) detach(c *client, room string) {
	if members, ok := h.rooms[room]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	delete(c.rooms, room)
}

func (h *Hub) readPump(c *client) {
	defer h.drop(c)

	c.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongTimeout))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil || msg.Room == "" {
			continue
		}
		switch msg.Action {
		case "join":
			h.join(c, msg.Room)
		case "leave":
			h.leave(c, msg.Room)
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			if !ok {
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
