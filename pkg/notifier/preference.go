package notifier

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Window is a time-of-day window that may wrap midnight, in "HH:MM" form.
type Window struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Validate checks both bounds parse as "HH:MM".
func (w Window) Validate() error {
	if _, err := time.Parse("15:04", w.Start); err != nil {
		return fmt.Errorf("%w: start %q", ErrInvalidWindow, w.Start)
	}
	if _, err := time.Parse("15:04", w.End); err != nil {
		return fmt.Errorf("%w: end %q", ErrInvalidWindow, w.End)
	}
	return nil
}

// Contains reports whether the given time's time-of-day falls inside the
// window. A window whose start is after its end wraps midnight
// (22:00-08:00 covers 23:00 and 07:00 but not 12:00).
func (w Window) Contains(at time.Time) bool {
	start, err := time.Parse("15:04", w.Start)
	if err != nil {
		return false
	}
	end, err := time.Parse("15:04", w.End)
	if err != nil {
		return false
	}

	minute := at.Hour()*60 + at.Minute()
	startMin := start.Hour()*60 + start.Minute()
	endMin := end.Hour()*60 + end.Minute()

	if startMin <= endMin {
		return minute >= startMin && minute <= endMin
	}
	return minute >= startMin || minute <= endMin
}

// Preference is one user's delivery configuration. Created lazily with
// defaults on first access.
type Preference struct {
	UserID      uuid.UUID `json:"user_id"`
	Email       string    `json:"email,omitempty"`
	PhoneNumber string    `json:"phone_number,omitempty"`
	PushToken   string    `json:"push_token,omitempty"`

	EmailEnabled bool `json:"email_enabled"`
	SMSEnabled   bool `json:"sms_enabled"`
	PushEnabled  bool `json:"push_enabled"`
	InAppEnabled bool `json:"in_app_enabled"`

	QuietHoursEnabled bool   `json:"quiet_hours_enabled"`
	QuietHours        Window `json:"quiet_hours"`

	// KindOverrides maps "<kind>_<channel>" to an explicit enable flag.
	// Absent keys default to enabled.
	KindOverrides map[string]bool `json:"kind_overrides,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DefaultPreference returns the preference applied when a user has none:
// every channel except SMS enabled, quiet hours off with the conventional
// overnight window retained as the default bounds.
func DefaultPreference(userID uuid.UUID) Preference {
	return Preference{
		UserID:       userID,
		EmailEnabled: true,
		SMSEnabled:   false,
		PushEnabled:  true,
		InAppEnabled: true,
		QuietHours:   Window{Start: "22:00", End: "08:00"},
	}
}

// overrideKey builds the KindOverrides map key for a (kind, channel) pair.
func overrideKey(kind Kind, channel Channel) string {
	return string(kind) + "_" + string(channel)
}

// ChannelEnabled applies the preference gates for one (kind, channel) pair:
// the global per-channel flag AND the per-(kind,channel) override must both
// allow it. An absent override defaults to enabled.
func (p Preference) ChannelEnabled(kind Kind, channel Channel) bool {
	var global bool
	switch channel {
	case ChannelEmail:
		global = p.EmailEnabled
	case ChannelSMS:
		global = p.SMSEnabled
	case ChannelPush:
		global = p.PushEnabled
	case ChannelInApp:
		global = p.InAppEnabled
	default:
		return false
	}
	if !global {
		return false
	}

	if enabled, ok := p.KindOverrides[overrideKey(kind, channel)]; ok {
		return enabled
	}
	return true
}

// RecipientFor resolves the channel's recipient address. Empty means no
// address is configured.
func (p Preference) RecipientFor(channel Channel) string {
	switch channel {
	case ChannelEmail:
		return p.Email
	case ChannelSMS:
		return p.PhoneNumber
	case ChannelPush:
		return p.PushToken
	case ChannelInApp:
		return p.UserID.String()
	}
	return ""
}
