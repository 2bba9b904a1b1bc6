package notifier

import (
	"time"

	"github.com/google/uuid"
)

// Kind classifies what a notification is about.
type Kind string

const (
	KindLowStock          Kind = "low_stock"
	KindOutOfStock        Kind = "out_of_stock"
	KindExpirationWarning Kind = "expiration_warning"
	KindSystemAlert       Kind = "system_alert"
	KindOrderConfirmation Kind = "order_confirmation"
	KindWasteAlert        Kind = "waste_alert"
)

// Priority orders notifications by urgency. Urgent is the only level that
// bypasses quiet hours.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Valid reports whether the priority is one of the known levels.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Notification is one fired alert or direct message. It is immutable once
// created; read state lives on the in-app DeliveryAttempt, never here.
type Notification struct {
	ID         uuid.UUID      `json:"id"`
	RuleID     *uuid.UUID     `json:"rule_id,omitempty"`
	UserID     uuid.UUID      `json:"user_id"`
	Title      string         `json:"title"`
	Body       string         `json:"body"`
	Kind       Kind           `json:"kind"`
	Priority   Priority       `json:"priority"`
	ItemID     *uuid.UUID     `json:"item_id,omitempty"`
	LocationID *uuid.UUID     `json:"location_id,omitempty"`
	Data       map[string]any `json:"data,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	ExpiresAt  *time.Time     `json:"expires_at,omitempty"`
}

// IsExpired returns true if the notification has expired at the given time.
func (n *Notification) IsExpired(at time.Time) bool {
	if n.ExpiresAt == nil {
		return false
	}
	return at.After(*n.ExpiresAt)
}
