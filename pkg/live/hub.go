package live

import (
	"log/slog"
	"time"

	"github.com/forgeops/stocksync/pkg/notifier"
	"github.com/forgeops/stocksync/pkg/registry"
	"github.com/forgeops/stocksync/pkg/stock"
)

// Hub is the engine's push surface. It owns the session registry and
// translates domain happenings into wire events: stock changes fan out to
// sessions watching the touched location, alerts and notifications go
// point-to-point to their owner.
type Hub struct {
	sessions *registry.Registry[Event]
	logger   *slog.Logger
	now      func() time.Time
}

// HubOption configures a Hub.
type HubOption func(*Hub)

// WithHubLogger sets the logger for the Hub and its registry.
func WithHubLogger(log *slog.Logger) HubOption {
	return func(h *Hub) {
		if log != nil {
			h.logger = log
		}
	}
}

// WithHubClock overrides the time source. Used by tests.
func WithHubClock(now func() time.Time) HubOption {
	return func(h *Hub) {
		if now != nil {
			h.now = now
		}
	}
}

// WithRegistryOptions passes options through to the underlying registry.
func WithRegistryOptions(opts ...registry.Option[Event]) HubOption {
	return func(h *Hub) {
		h.sessions = registry.New(opts...)
	}
}

// NewHub creates a hub with an empty session registry.
func NewHub(opts ...HubOption) *Hub {
	h := &Hub{
		logger: slog.Default(),
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(h)
	}

	if h.sessions == nil {
		h.sessions = registry.New(registry.WithLogger[Event](h.logger))
	}

	return h
}

// Connect registers a session for the identity, replacing any existing one,
// and acknowledges it with a connection_established event.
func (h *Hub) Connect(identity string, transport registry.Transport[Event], locations []string) error {
	if err := h.sessions.Connect(identity, transport, locations); err != nil {
		return err
	}
	h.sessions.SendTo(identity, connectionEstablishedEvent(identity, locations, h.now()))
	return nil
}

// Disconnect removes the identity's session.
func (h *Hub) Disconnect(identity string) {
	h.sessions.Disconnect(identity)
}

// Subscribe replaces the identity's watched locations and acknowledges the
// change.
func (h *Hub) Subscribe(identity string, locations []string) error {
	if err := h.sessions.UpdateInterest(identity, locations); err != nil {
		return err
	}
	h.sessions.SendTo(identity, subscriptionUpdatedEvent(locations, h.now()))
	return nil
}

// Heartbeat refreshes the session's liveness and acknowledges it.
func (h *Hub) Heartbeat(identity string) {
	h.sessions.Touch(identity)
	h.sessions.SendTo(identity, heartbeatAckEvent(h.now()))
}

// BroadcastStockChange fans an applied stock change out to every session
// watching the touched location.
func (h *Hub) BroadcastStockChange(level stock.Level, change float64, kind stock.MovementKind) {
	h.sessions.BroadcastToInterest(level.LocationID.String(), inventoryUpdateEvent(level, change, kind))
}

// AnnounceStockAlert fans a fired stock alert out to every session watching
// the touched location.
func (h *Hub) AnnounceStockAlert(level stock.Level, severity string) {
	h.sessions.BroadcastToInterest(level.LocationID.String(), lowStockAlertEvent(level, severity, h.now()))
}

// Push delivers a freshly created notification to its owner's session, if
// connected. Implements the dispatcher's live delivery hook.
func (h *Hub) Push(identity string, n notifier.Notification) {
	h.sessions.SendTo(identity, inAppNotificationEvent(n))
}

// RelayBarcodeScan sends a decoded barcode payload back to the scanning
// user's session.
func (h *Hub) RelayBarcodeScan(identity string, payload any) {
	h.sessions.SendTo(identity, barcodeScanResultEvent(payload, h.now()))
}

// SendTo delivers an arbitrary event to one identity, best effort.
func (h *Hub) SendTo(identity string, ev Event) {
	h.sessions.SendTo(identity, ev)
}

// Snapshot returns a diagnostic view of all live sessions.
func (h *Hub) Snapshot() []registry.SessionInfo {
	return h.sessions.Snapshot()
}

// Len returns the number of live sessions.
func (h *Hub) Len() int {
	return h.sessions.Len()
}

// Close tears down every session.
func (h *Hub) Close() error {
	return h.sessions.Close()
}
