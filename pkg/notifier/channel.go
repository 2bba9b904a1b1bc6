package notifier

import (
	"time"

	"github.com/google/uuid"
)

// Channel is the closed set of delivery channels.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
	ChannelPush  Channel = "push"
	ChannelInApp Channel = "in_app"
)

// AllChannels lists every known channel in preference order.
func AllChannels() []Channel {
	return []Channel{ChannelEmail, ChannelSMS, ChannelPush, ChannelInApp}
}

// Valid reports whether the channel is one of the known variants.
func (c Channel) Valid() bool {
	switch c {
	case ChannelEmail, ChannelSMS, ChannelPush, ChannelInApp:
		return true
	}
	return false
}

// AttemptStatus tracks the lifecycle of one delivery attempt.
type AttemptStatus string

const (
	StatusPending   AttemptStatus = "pending"
	StatusSent      AttemptStatus = "sent"
	StatusDelivered AttemptStatus = "delivered"
	StatusFailed    AttemptStatus = "failed"
	StatusRead      AttemptStatus = "read"
)

// DeliveryAttempt is the outcome record of trying to deliver one notification
// over one channel. A notification has at most one attempt per channel
// actually selected.
type DeliveryAttempt struct {
	ID             uuid.UUID     `json:"id"`
	NotificationID uuid.UUID     `json:"notification_id"`
	Channel        Channel       `json:"channel"`
	Status         AttemptStatus `json:"status"`
	Recipient      string        `json:"recipient"`
	ProviderRef    string        `json:"provider_ref,omitempty"`
	ErrorMessage   string        `json:"error_message,omitempty"`
	RetryCount     int           `json:"retry_count"`
	SentAt         *time.Time    `json:"sent_at,omitempty"`
	DeliveredAt    *time.Time    `json:"delivered_at,omitempty"`
	ReadAt         *time.Time    `json:"read_at,omitempty"`
	FailedAt       *time.Time    `json:"failed_at,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
}
