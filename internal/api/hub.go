package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/CodeMonkeyCybersecurity/sharingan/internal/logger"
	"github.com/CodeMonkeyCybersecurity/sharingan/pkg/types"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// Events queued per client before the client is considered stuck.
	clientBuffer = 32
)

var upgrader = websocket.Upgrader{
	HandshakeTimeout: 10 * time.Second,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		// Non-browser clients send no Origin header.
		return origin == "" || allowedOrigin(origin)
	},
}

// Hub fans job lifecycle events out to connected websocket clients.
// Publish never blocks the caller; a full hub drops the event and a
// stuck client gets disconnected rather than slowing the rest.
type Hub struct {
	register   chan *wsClient
	unregister chan *wsClient
	events     chan types.Event
	done       chan struct{}
	log        *logger.Logger

	mu      sync.RWMutex
	clients map[*wsClient]bool
}

func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		events:     make(chan types.Event, 256),
		done:       make(chan struct{}),
		clients:    make(map[*wsClient]bool),
		log:        log.WithComponent("event-hub"),
	}
}

// Publish queues an event for broadcast, dropping it if the hub is
// backed up.
func (h *Hub) Publish(event types.Event) {
	select {
	case h.events <- event:
	default:
		h.log.Debugw("Event dropped, hub backlog full",
			"type", event.Type,
			"job_id", event.JobID,
		)
	}
}

// ClientCount reports how many websocket clients are attached.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Run dispatches events until ctx is cancelled, then closes every
// client connection. Pumps that outlive Run bail out on the done
// channel instead of blocking on register/unregister.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.log.Debugw("Websocket client connected", "clients", h.ClientCount())

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()

		case event := <-h.events:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- event:
				default:
					delete(h.clients, client)
					close(client.send)
				}
			}
			h.mu.Unlock()
		}
	}
}

// ServeWS upgrades the request and attaches the client to the hub.
func (h *Hub) ServeWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warnw("Websocket upgrade failed",
			"error", err.Error(),
			"ip", c.ClientIP(),
		)
		return
	}

	client := &wsClient{
		conn: conn,
		send: make(chan types.Event, clientBuffer),
	}
	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump(h)
}

type wsClient struct {
	conn *websocket.Conn
	send chan types.Event
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case event, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(event); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards client messages; the stream is one-way. Reading is
// still required to process pongs and notice closed connections.
func (c *wsClient) readPump(h *Hub) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
