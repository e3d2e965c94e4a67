package server

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/posematch/internal/app"
)

// DefaultLiveInterval is the status broadcast period, about 15 Hz.
const DefaultLiveInterval = 66 * time.Millisecond

const writeWait = time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// StatusSource reports the current session status.
type StatusSource interface {
	Status() app.Status
}

// liveMessage is one frame of the /api/live feed.
type liveMessage struct {
	Status    app.Status `json:"status"`
	Timestamp int64      `json:"timestamp"`
}

// liveClient serializes writes to one connection.
type liveClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *liveClient) write(msg []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, msg)
}

// LiveHandler broadcasts session status to WebSocket clients.
type LiveHandler struct {
	source   StatusSource
	interval time.Duration
	clients  map[*liveClient]bool
	mu       sync.RWMutex

	done      chan struct{}
	closeOnce sync.Once
}

// NewLiveHandler creates a LiveHandler and starts its broadcast loop.
// A non-positive interval uses DefaultLiveInterval.
func NewLiveHandler(source StatusSource, interval time.Duration) *LiveHandler {
	if interval <= 0 {
		interval = DefaultLiveInterval
	}
	h := &LiveHandler{
		source:   source,
		interval: interval,
		clients:  make(map[*liveClient]bool),
		done:     make(chan struct{}),
	}
	go h.broadcast()
	return h
}

// ServeHTTP handles WebSocket upgrade requests. The current status is sent
// immediately, then on every broadcast tick.
func (h *LiveHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	client := &liveClient{conn: conn}
	if msg, err := h.message(); err == nil {
		if err := client.write(msg); err != nil {
			return
		}
	}

	h.mu.Lock()
	h.clients[client] = true
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, client)
		h.mu.Unlock()
	}()

	// Keep connection alive by reading messages
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

// Clients returns the number of connected clients.
func (h *LiveHandler) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close stops the broadcast loop. Connected clients stay open until they
// disconnect.
func (h *LiveHandler) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}

func (h *LiveHandler) message() ([]byte, error) {
	return json.Marshal(liveMessage{
		Status:    h.source.Status(),
		Timestamp: time.Now().UnixMilli(),
	})
}

// broadcast sends the status to all connected clients.
func (h *LiveHandler) broadcast() {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-h.done:
			return
		case <-ticker.C:
		}

		h.mu.RLock()
		clients := make([]*liveClient, 0, len(h.clients))
		for c := range h.clients {
			clients = append(clients, c)
		}
		h.mu.RUnlock()

		if len(clients) == 0 {
			continue
		}

		msg, err := h.message()
		if err != nil {
			log.Printf("live: encode status: %v", err)
			continue
		}

		for _, c := range clients {
			if err := c.write(msg); err != nil {
				// The read loop sees the closed connection and unregisters it.
				c.conn.Close()
			}
		}
	}
}
