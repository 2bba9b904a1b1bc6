package live

import (
	"time"

	"github.com/forgeops/stocksync/pkg/notifier"
	"github.com/forgeops/stocksync/pkg/stock"
	"github.com/forgeops/stocksync/pkg/syncer"
)

// EventType identifies an outbound event on a live connection.
type EventType string

const (
	EventConnectionEstablished EventType = "connection_established"
	EventInventoryUpdate       EventType = "inventory_update"
	EventLowStockAlert         EventType = "low_stock_alert"
	EventInAppNotification     EventType = "in_app_notification"
	EventBarcodeScanResult     EventType = "barcode_scan_result"
	EventSyncResponse          EventType = "sync_response"
	EventPong                  EventType = "pong"
	EventHeartbeatAck          EventType = "heartbeat_ack"
	EventSubscriptionUpdated   EventType = "subscription_updated"
	EventError                 EventType = "error"
)

// Event is the outbound wire envelope. Every message a client receives is
// one of these.
type Event struct {
	Type EventType `json:"type"`
	Data any       `json:"data,omitempty"`
}

func connectionEstablishedEvent(identity string, locations []string, at time.Time) Event {
	return Event{Type: EventConnectionEstablished, Data: map[string]any{
		"user_id":              identity,
		"subscribed_locations": locations,
		"timestamp":            at,
	}}
}

func inventoryUpdateEvent(level stock.Level, change float64, kind stock.MovementKind) Event {
	return Event{Type: EventInventoryUpdate, Data: map[string]any{
		"item_id":       level.ItemID,
		"location_id":   level.LocationID,
		"item_name":     level.ItemName,
		"quantity":      level.Quantity,
		"change":        change,
		"movement_kind": kind,
		"updated_at":    level.UpdatedAt,
	}}
}

func lowStockAlertEvent(level stock.Level, severity string, at time.Time) Event {
	return Event{Type: EventLowStockAlert, Data: map[string]any{
		"item_id":       level.ItemID,
		"location_id":   level.LocationID,
		"item_name":     level.ItemName,
		"quantity":      level.Quantity,
		"reorder_point": level.ReorderPoint,
		"severity":      severity,
		"timestamp":     at,
	}}
}

func inAppNotificationEvent(n notifier.Notification) Event {
	return Event{Type: EventInAppNotification, Data: n}
}

func barcodeScanResultEvent(payload any, at time.Time) Event {
	return Event{Type: EventBarcodeScanResult, Data: map[string]any{
		"result":    payload,
		"timestamp": at,
	}}
}

func syncResponseEvent(result *syncer.BatchResult) Event {
	return Event{Type: EventSyncResponse, Data: result}
}

func pongEvent(at time.Time) Event {
	return Event{Type: EventPong, Data: map[string]any{"timestamp": at}}
}

func heartbeatAckEvent(at time.Time) Event {
	return Event{Type: EventHeartbeatAck, Data: map[string]any{"timestamp": at}}
}

func subscriptionUpdatedEvent(locations []string, at time.Time) Event {
	return Event{Type: EventSubscriptionUpdated, Data: map[string]any{
		"locations": locations,
		"timestamp": at,
	}}
}

func errorEvent(message string) Event {
	return Event{Type: EventError, Data: map[string]any{"message": message}}
}
