package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
)

// Connection represents a single WebSocket client. sendMu serializes
// writes from the read loop and any background turn goroutines sending
// events concurrently for the same connection — coder/websocket does
// not allow concurrent writers.
type Connection struct {
	ID     string
	UserID string

	conn   *websocket.Conn
	sendMu sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc

	// gone is set once a send fails; the workflow producing events for
	// this connection keeps running (§4.7 Reliability), but further
	// sends are skipped rather than retried against a dead socket.
	gone bool
	mu   sync.Mutex
}

func newConnection(parentCtx context.Context, conn *websocket.Conn) *Connection {
	ctx, cancel := context.WithCancel(parentCtx)
	return &Connection{
		ID:     uuid.NewString(),
		conn:   conn,
		ctx:    ctx,
		cancel: cancel,
	}
}

// IsGone reports whether the last send to this connection failed.
func (c *Connection) IsGone() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gone
}

func (c *Connection) markGone() {
	c.mu.Lock()
	c.gone = true
	c.mu.Unlock()
}

// SendFrame marshals and writes one ServerFrame, with a bounded write
// timeout. A failed send marks the connection gone but returns no
// error to the caller's event loop — the producing turn must continue
// regardless (§4.7 Reliability: "failed sends mark the connection as
// gone, but the workflow continues in the background").
func (c *Connection) SendFrame(writeTimeout time.Duration, frame ServerFrame) {
	if c.IsGone() {
		return
	}
	data, err := json.Marshal(frame)
	if err != nil {
		slog.Warn("gateway: failed to marshal server frame", "connection_id", c.ID, "error", err)
		return
	}

	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	writeCtx, cancel := context.WithTimeout(c.ctx, writeTimeout)
	defer cancel()
	if err := c.conn.Write(writeCtx, websocket.MessageText, data); err != nil {
		slog.Warn("gateway: send failed, marking connection gone", "connection_id", c.ID, "error", err)
		c.markGone()
	}
}

func (c *Connection) close() {
	c.cancel()
	_ = c.conn.Close(websocket.StatusNormalClosure, "")
}

// Hub tracks active connections and the active sender for each
// in-flight session, so a reconnect (a fresh connection sending
// confirmation_response or a new query for the same session_id) can
// rebind the Agent's outbound sender without disrupting the running
// turn (§4.7 Reliability).
type Hub struct {
	mu          sync.RWMutex
	connections map[string]*Connection
	sessionConn map[string]*Connection // session_id -> current sender
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{
		connections: make(map[string]*Connection),
		sessionConn: make(map[string]*Connection),
	}
}

func (h *Hub) register(c *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.connections[c.ID] = c
}

func (h *Hub) unregister(c *Connection) {
	h.mu.Lock()
	delete(h.connections, c.ID)
	for sid, bound := range h.sessionConn {
		if bound == c {
			delete(h.sessionConn, sid)
		}
	}
	h.mu.Unlock()
	c.close()
}

// BindSession rebinds sessionID's active sender to c — called when a
// query starts a new turn, and again when a confirmation_response or
// resumed query arrives on a different (reconnected) connection.
func (h *Hub) BindSession(sessionID string, c *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sessionConn[sessionID] = c
}

// SenderFor returns the connection currently bound to sessionID, or
// nil if none is bound (the turn's events are then dropped silently —
// the workflow still persists its result to the database).
func (h *Hub) SenderFor(sessionID string) *Connection {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.sessionConn[sessionID]
}

// ActiveConnections returns the count of active WebSocket connections.
func (h *Hub) ActiveConnections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}
