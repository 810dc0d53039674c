package server

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/paddocktools/paddock/logging"
	"github.com/paddocktools/paddock/session"
)

// clientBufferSize is the per-client event queue depth. Clients that fall
// this far behind start losing events rather than stalling the publishers.
const clientBufferSize = 256

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The listener is a mode 0600 unix socket, so there is no
	// cross-origin surface to check.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub fans session events out to connected websocket clients. It implements
// session.Sink; Publish never blocks.
type Hub struct {
	logger *logrus.Entry

	mu      sync.Mutex
	clients map[*client]struct{}
}

type client struct {
	conn *websocket.Conn
	send chan session.Event
}

// NewHub returns an event hub with no clients.
func NewHub() *Hub {
	return &Hub{
		logger:  logging.NewLogger("events"),
		clients: make(map[*client]struct{}),
	}
}

// Publish queues the event for every connected client. Clients with full
// queues drop the event.
func (h *Hub) Publish(event session.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- event:
		default:
			h.logger.WithField("topic", event.Topic).Debug("Dropping event for slow client")
		}
	}
}

// ServeHTTP upgrades the request to a websocket and streams events until the
// client disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("Websocket upgrade failed")
		return
	}

	c := &client{
		conn: conn,
		send: make(chan session.Event, clientBufferSize),
	}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.logger.Debug("Event client connected")

	go h.writeLoop(c)
	h.readLoop(c)
}

// writeLoop drains the client's queue onto the wire.
func (h *Hub) writeLoop(c *client) {
	for event := range c.send {
		if err := c.conn.WriteJSON(event); err != nil {
			h.remove(c)
			return
		}
	}
}

// readLoop consumes (and discards) client frames so pings and close frames
// are processed. Returning removes the client.
func (h *Hub) readLoop(c *client) {
	defer h.remove(c)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	_, present := h.clients[c]
	if present {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()

	if present {
		_ = c.conn.Close()
		h.logger.Debug("Event client disconnected")
	}
}

// Close disconnects all clients.
func (h *Hub) Close() {
	h.mu.Lock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		h.remove(c)
	}
}
