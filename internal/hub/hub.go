// Package hub pushes marker sets to connected map pages over WebSocket.
package hub

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	ws "github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/metric"

	"github.com/potamap/potamap/pkg/core"
	"github.com/potamap/potamap/pkg/streaming"
)

const (
	sendChSize = 16
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	readLimit  = 512
)

// Snapshot returns the marker set a newly connected client starts from.
type Snapshot func() core.MarkerSet

// Hub fans marker sets out to every connected client. Each client has a
// single write goroutine fed by a bounded channel; a client whose channel
// is full misses the message.
type Hub struct {
	mu       sync.RWMutex
	clients  map[uuid.UUID]*client
	closed   bool
	upgrader ws.Upgrader
	snapshot Snapshot
	logger   *slog.Logger

	// OTEL metrics
	clientsGauge metric.Int64ObservableGauge
	dropped      metric.Int64Counter
}

type client struct {
	id     uuid.UUID
	conn   *ws.Conn
	sendCh chan []byte
	done   chan struct{}
	once   sync.Once
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

// New creates a Hub. snapshot may be nil, in which case clients receive
// nothing until the next broadcast.
func New(logger *slog.Logger, snapshot Snapshot) (*Hub, error) {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Hub{
		clients:  make(map[uuid.UUID]*client),
		snapshot: snapshot,
		logger:   logger,
		upgrader: ws.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
	}

	m := meter()

	var err error

	h.clientsGauge, err = m.Int64ObservableGauge(
		"hub.clients",
		metric.WithDescription("Connected WebSocket clients"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating clients gauge: %w", err)
	}

	_, err = m.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			o.ObserveInt64(h.clientsGauge, int64(h.Len()))
			return nil
		},
		h.clientsGauge,
	)
	if err != nil {
		return nil, fmt.Errorf("registering clients callback: %w", err)
	}

	h.dropped, err = m.Int64Counter(
		"hub.dropped",
		metric.WithDescription("Messages dropped for slow clients"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating dropped counter: %w", err)
	}

	return h, nil
}

// ServeHTTP upgrades the request and registers the client.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	c := &client{
		id:     uuid.New(),
		conn:   conn,
		sendCh: make(chan []byte, sendChSize),
		done:   make(chan struct{}),
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = conn.Close()
		return
	}
	h.clients[c.id] = c
	h.mu.Unlock()

	h.logger.Debug("WebSocket client connected", "client", c.id, "remote", r.RemoteAddr)

	// registered first so no broadcast between snapshot and registration is lost
	if h.snapshot != nil {
		if data, err := streaming.MarkersMessage(h.snapshot()); err != nil {
			h.logger.Error("Failed to encode snapshot", "error", err)
		} else {
			h.send(c, data)
		}
	}

	go h.writeLoop(c)
	go h.readLoop(c)
}

// Broadcast queues data for every client without blocking.
func (h *Hub) Broadcast(data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		h.send(c, data)
	}
}

// PublishMarkers broadcasts a marker set. It never blocks and can be used as
// a store subscriber.
func (h *Hub) PublishMarkers(set core.MarkerSet) {
	data, err := streaming.MarkersMessage(set)
	if err != nil {
		h.logger.Error("Failed to encode marker set", "seq", set.Seq, "error", err)
		return
	}
	h.Broadcast(data)
}

func (h *Hub) send(c *client, data []byte) {
	select {
	case c.sendCh <- data:
	case <-c.done:
	default:
		h.dropped.Add(context.Background(), 1)
		h.logger.Warn("WebSocket client send buffer full, dropping message", "client", c.id)
	}
}

// Len returns the number of connected clients.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects all clients and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	clients := h.clients
	h.clients = make(map[uuid.UUID]*client)
	h.mu.Unlock()

	for _, c := range clients {
		_ = c.conn.WriteControl(ws.CloseMessage,
			ws.FormatCloseMessage(ws.CloseGoingAway, "server shutting down"),
			time.Now().Add(writeWait))
		c.close()
	}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	if cur, ok := h.clients[c.id]; ok && cur == c {
		delete(h.clients, c.id)
	}
	h.mu.Unlock()
	c.close()
}

// writeLoop drains sendCh and writes messages to the WebSocket.
// It is the only goroutine writing data frames to the connection.
func (h *Hub) writeLoop(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		h.remove(c)
	}()

	for {
		select {
		case <-c.done:
			return
		case data := <-c.sendCh:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				h.logger.Debug("WebSocket SetWriteDeadline error", "client", c.id, "error", err)
				return
			}
			if err := c.conn.WriteMessage(ws.TextMessage, data); err != nil {
				h.logger.Debug("WebSocket write error", "client", c.id, "error", err)
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(ws.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				h.logger.Debug("WebSocket ping error", "client", c.id, "error", err)
				return
			}
		}
	}
}

// readLoop discards client messages and notices disconnects.
func (h *Hub) readLoop(c *client) {
	defer h.remove(c)

	c.conn.SetReadLimit(readLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if ws.IsUnexpectedCloseError(err, ws.CloseGoingAway, ws.CloseNormalClosure) {
				h.logger.Debug("WebSocket read error", "client", c.id, "error", err)
			}
			h.logger.Debug("WebSocket client disconnected", "client", c.id)
			return
		}
	}
}
