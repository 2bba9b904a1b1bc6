package notifier

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Storage handles persistence of notifications, delivery attempts, and user
// preferences.
type Storage interface {
	// CreateNotification stores a new notification. Notifications are
	// immutable after creation.
	CreateNotification(ctx context.Context, n Notification) error

	// GetNotification retrieves one notification by id.
	GetNotification(ctx context.Context, id uuid.UUID) (*Notification, error)

	// ListNotifications returns a user's notifications, newest first.
	ListNotifications(ctx context.Context, userID uuid.UUID, opts ListOptions) ([]Notification, error)

	// LatestMatching returns the most recent notification for the
	// (user, item, location, kind) tuple, or ErrNotificationNotFound.
	// Used for cooldown suppression.
	LatestMatching(ctx context.Context, userID uuid.UUID, itemID, locationID *uuid.UUID, kind Kind) (*Notification, error)

	// CreateAttempt stores a new delivery attempt.
	CreateAttempt(ctx context.Context, a DeliveryAttempt) error

	// UpdateAttempt replaces a stored attempt (status transitions).
	UpdateAttempt(ctx context.Context, a DeliveryAttempt) error

	// GetAttempt retrieves one attempt by id.
	GetAttempt(ctx context.Context, id uuid.UUID) (*DeliveryAttempt, error)

	// AttemptsFor returns every attempt recorded for a notification.
	AttemptsFor(ctx context.Context, notificationID uuid.UUID) ([]DeliveryAttempt, error)

	// InAppAttempt returns the in-app attempt for a notification, or
	// ErrAttemptNotFound if the in-app channel was not selected.
	InAppAttempt(ctx context.Context, notificationID uuid.UUID) (*DeliveryAttempt, error)

	// Preference returns a user's stored preference or ErrPreferenceNotFound.
	Preference(ctx context.Context, userID uuid.UUID) (*Preference, error)

	// SavePreference inserts or replaces a user's preference.
	SavePreference(ctx context.Context, p Preference) error

	// DeleteOlderThan removes notifications created before the cutoff along
	// with their attempts, returning how many notifications were removed.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}

// ListOptions provides filtering and pagination for listing notifications.
type ListOptions struct {
	Limit      int        // Maximum notifications to return (0 = no limit)
	Offset     int        // Notifications to skip for pagination
	OnlyUnread bool       // Only notifications without a READ in-app attempt
	Kinds      []Kind     // If set, only these kinds
	Since      *time.Time // If set, only notifications created after this time
}
