package live

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/forgeops/stocksync/pkg/logger"
)

// WSConn adapts a gorilla websocket connection to the registry transport on
// the write side and the session Conn on the read side. Sends marshal the
// event to JSON under the deadline carried by the send context.
type WSConn struct {
	conn *websocket.Conn

	mu     sync.Mutex
	closed bool
}

// NewWSConn wraps an upgraded websocket connection.
func NewWSConn(conn *websocket.Conn) *WSConn {
	return &WSConn{conn: conn}
}

// Send writes one event as a JSON text message.
func (c *WSConn) Send(ctx context.Context, ev Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrConnClosed
	}

	deadline := time.Now().Add(10 * time.Second)
	if d, ok := ctx.Deadline(); ok {
		deadline = d
	}
	if err := c.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return c.conn.WriteJSON(ev)
}

// ReadMessage blocks for the next text message from the client.
func (c *WSConn) ReadMessage() ([]byte, error) {
	_, payload, err := c.conn.ReadMessage()
	if err != nil {
		if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
			return nil, io.EOF
		}
		if errors.Is(err, net.ErrClosed) {
			return nil, ErrConnClosed
		}
		return nil, err
	}
	return payload, nil
}

// Close sends a close frame and closes the underlying connection.
func (c *WSConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true

	deadline := time.Now().Add(time.Second)
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
	return c.conn.Close()
}

// AuthFunc authenticates an upgrade request, returning the session identity.
type AuthFunc func(r *http.Request) (identity string, err error)

// Handler upgrades HTTP requests to live sessions. The requested interest
// set comes from the repeated "location" query parameter; no locations means
// the session receives every broadcast.
type Handler struct {
	hub      *Hub
	auth     AuthFunc
	syncs    BatchApplier
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

// NewHandler creates a websocket upgrade handler. syncs may be nil to
// disable sync batches over the socket.
func NewHandler(hub *Hub, auth AuthFunc, syncs BatchApplier, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		hub:    hub,
		auth:   auth,
		syncs:  syncs,
		logger: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	identity, err := h.auth(r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	locations := r.URL.Query()["location"]

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response.
		h.logger.Warn("websocket upgrade failed", logger.Error(err))
		return
	}

	wsConn := NewWSConn(conn)
	if err := h.hub.Connect(identity, wsConn, locations); err != nil {
		h.logger.Warn("session connect rejected",
			slog.String("identity", identity), logger.Error(err))
		_ = wsConn.Close()
		return
	}

	session := NewSession(h.hub, identity, h.syncs, h.logger)
	if err := session.Run(r.Context(), wsConn); err != nil {
		h.logger.Debug("session ended with error",
			slog.String("identity", identity), logger.Error(err))
	}
}
