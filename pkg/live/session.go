package live

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/forgeops/stocksync/pkg/logger"
	"github.com/forgeops/stocksync/pkg/syncer"
)

// Inbound control message types.
const (
	msgSubscribeLocations = "subscribe_locations"
	msgHeartbeat          = "heartbeat"
	msgPing               = "ping"
	msgSyncRequest        = "sync_request"
)

// Conn is the read side of one client connection.
type Conn interface {
	// ReadMessage blocks for the next inbound message payload. It returns
	// io.EOF (or a wrapped close error) when the client goes away.
	ReadMessage() ([]byte, error)
}

// BatchApplier applies offline operation batches submitted over the live
// connection.
type BatchApplier interface {
	ApplyBatch(ctx context.Context, userID uuid.UUID, ops []syncer.Operation, lastSync time.Time) (*syncer.BatchResult, error)
}

// Session drives the inbound side of one live connection: it reads control
// messages until the connection drops and answers each one through the hub.
// Unknown message types get an error event; the connection stays open.
type Session struct {
	hub      *Hub
	syncs    BatchApplier
	identity string
	logger   *slog.Logger
}

// NewSession creates a session for one connected identity. syncs may be nil
// when the deployment does not accept sync batches over the socket.
func NewSession(hub *Hub, identity string, syncs BatchApplier, log *slog.Logger) *Session {
	if log == nil {
		log = slog.Default()
	}
	return &Session{
		hub:      hub,
		syncs:    syncs,
		identity: identity,
		logger:   log,
	}
}

type inboundMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Run reads until the connection drops or the context is canceled, then
// removes the session from the hub. A clean client close returns nil.
func (s *Session) Run(ctx context.Context, conn Conn) error {
	defer s.hub.Disconnect(s.identity)

	for {
		payload, err := conn.ReadMessage()
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, ErrConnClosed) || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read failed: %w", err)
		}

		var msg inboundMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			s.hub.SendTo(s.identity, errorEvent("malformed message"))
			continue
		}

		s.handle(ctx, msg)
	}
}

func (s *Session) handle(ctx context.Context, msg inboundMessage) {
	switch msg.Type {
	case msgPing:
		s.hub.SendTo(s.identity, pongEvent(s.hub.now()))

	case msgHeartbeat:
		s.hub.Heartbeat(s.identity)

	case msgSubscribeLocations:
		var data struct {
			Locations []string `json:"locations"`
		}
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			s.hub.SendTo(s.identity, errorEvent("malformed subscribe_locations payload"))
			return
		}
		if err := s.hub.Subscribe(s.identity, data.Locations); err != nil {
			s.hub.SendTo(s.identity, errorEvent("subscription failed"))
		}

	case msgSyncRequest:
		s.handleSyncRequest(ctx, msg.Data)

	default:
		s.hub.SendTo(s.identity, errorEvent(fmt.Sprintf("unknown message type: %s", msg.Type)))
	}
}

func (s *Session) handleSyncRequest(ctx context.Context, raw json.RawMessage) {
	if s.syncs == nil {
		s.hub.SendTo(s.identity, errorEvent("sync is not available on this connection"))
		return
	}

	userID, err := uuid.Parse(s.identity)
	if err != nil {
		s.hub.SendTo(s.identity, errorEvent("sync requires a user session"))
		return
	}

	var data struct {
		Operations []syncer.Operation `json:"operations"`
		LastSync   time.Time          `json:"last_sync"`
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		s.hub.SendTo(s.identity, errorEvent("malformed sync_request payload"))
		return
	}

	result, err := s.syncs.ApplyBatch(ctx, userID, data.Operations, data.LastSync)
	if err != nil {
		s.logger.WarnContext(ctx, "live sync batch rejected",
			logger.UserID(userID), logger.Error(err))
		s.hub.SendTo(s.identity, errorEvent(err.Error()))
		return
	}

	s.hub.SendTo(s.identity, syncResponseEvent(result))
}
