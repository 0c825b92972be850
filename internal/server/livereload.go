package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/goliatone/go-blog/internal/logging"
	"github.com/goliatone/go-blog/internal/metrics"
	"github.com/goliatone/go-blog/pkg/interfaces"
)

// LiveReloadPath is the WebSocket endpoint the injected client connects to.
const LiveReloadPath = "/__livereload"

// ReloadMessage asks connected browsers to reload the page.
const ReloadMessage = "reload"

const (
	clientBuffer = 4
	writeTimeout = 5 * time.Second
)

// Hub tracks live reload clients and broadcasts reload messages to them.
type Hub struct {
	logger  interfaces.Logger
	metrics metrics.Recorder

	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool
}

type client struct {
	conn *websocket.Conn
	send chan string
}

// NewHub creates an empty hub.
func NewHub(logger interfaces.Logger, recorder metrics.Recorder) *Hub {
	if logger == nil {
		logger = logging.NoOp()
	}
	return &Hub{
		logger:  logger,
		metrics: metrics.OrNoop(recorder),
		clients: make(map[*client]struct{}),
	}
}

// ServeHTTP upgrades the request and keeps the connection until either side
// closes it.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"localhost:*", "127.0.0.1:*", "[::1]:*"},
	})
	if err != nil {
		h.logger.Warn("server.livereload.accept_failed", "error", err)
		return
	}

	c := &client{conn: conn, send: make(chan string, clientBuffer)}
	if !h.register(c) {
		conn.Close(websocket.StatusGoingAway, "server shutting down")
		return
	}
	defer h.unregister(c)

	// Reads are discarded; CloseRead handles control frames and cancels ctx
	// when the browser goes away.
	ctx := conn.CloseRead(r.Context())
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-c.send:
			if !ok {
				conn.Close(websocket.StatusGoingAway, "server shutting down")
				return
			}
			if err := write(ctx, conn, msg); err != nil {
				if !errors.Is(err, context.Canceled) {
					h.logger.Debug("server.livereload.write_failed", "error", err)
				}
				return
			}
		}
	}
}

func write(ctx context.Context, conn *websocket.Conn, msg string) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, []byte(msg))
}

func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	h.metrics.SetLiveReloadClients(len(h.clients))
	h.logger.Debug("server.livereload.connected", "clients", len(h.clients))
	return true
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	h.metrics.SetLiveReloadClients(len(h.clients))
	c.conn.Close(websocket.StatusNormalClosure, "")
}

// Broadcast queues msg for every client. Slow clients whose buffer is full
// miss the message rather than blocking the rebuild loop.
func (h *Hub) Broadcast(msg string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	delivered := 0
	for c := range h.clients {
		select {
		case c.send <- msg:
			delivered++
		default:
			h.logger.Debug("server.livereload.client_slow")
		}
	}
	return delivered
}

// Reload broadcasts ReloadMessage.
func (h *Hub) Reload() int {
	return h.Broadcast(ReloadMessage)
}

// Clients returns the number of connected browsers.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for c := range h.clients {
		close(c.send)
		delete(h.clients, c)
	}
	h.metrics.SetLiveReloadClients(0)
}
