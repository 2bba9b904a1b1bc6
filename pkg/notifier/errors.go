package notifier

import "errors"

var (
	// ErrNotificationNotFound is returned when a notification id is unknown.
	ErrNotificationNotFound = errors.New("notification not found")

	// ErrAttemptNotFound is returned when a delivery attempt id is unknown.
	ErrAttemptNotFound = errors.New("delivery attempt not found")

	// ErrPreferenceNotFound is returned when a user has no stored preference.
	ErrPreferenceNotFound = errors.New("user preference not found")

	// ErrNoSink is returned when a channel has no configured sink.
	ErrNoSink = errors.New("no sink configured for channel")

	// ErrInvalidWindow is returned for malformed quiet-hours bounds.
	ErrInvalidWindow = errors.New("invalid quiet-hours window")

	// ErrInvalidRequest is returned for dispatch requests missing required fields.
	ErrInvalidRequest = errors.New("invalid dispatch request")

	// ErrNoRecipient marks a channel skipped because no recipient address is configured.
	ErrNoRecipient = errors.New("no recipient address configured")

	// ErrInvalidSinkConfig is returned for incomplete sink configuration.
	ErrInvalidSinkConfig = errors.New("invalid sink configuration")

	// ErrSinkSendFailed wraps provider delivery failures.
	ErrSinkSendFailed = errors.New("sink send failed")
)
