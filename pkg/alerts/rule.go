package alerts

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/forgeops/stocksync/pkg/notifier"
)

// Condition holds the kind-specific trigger parameters of a rule. Which
// field is required depends on the rule's kind.
type Condition struct {
	// StockThreshold is the quantity at or under which a low_stock rule
	// fires. Required for low_stock.
	StockThreshold *float64 `json:"stock_threshold,omitempty"`

	// DaysUntilExpiration is the shelf-life horizon for expiration_warning
	// rules. Required for expiration_warning.
	DaysUntilExpiration *int `json:"days_until_expiration,omitempty"`
}

// Rule is one user's standing alert configuration. A nil LocationID or empty
// Category means the rule covers every location or category.
type Rule struct {
	ID         uuid.UUID          `json:"id"`
	UserID     uuid.UUID          `json:"user_id"`
	Name       string             `json:"name"`
	Kind       notifier.Kind      `json:"kind"`
	LocationID *uuid.UUID         `json:"location_id,omitempty"`
	Category   string             `json:"category,omitempty"`
	Condition  Condition          `json:"condition"`
	Channels   []notifier.Channel `json:"channels"`
	Priority   notifier.Priority  `json:"priority,omitempty"`
	Active     bool               `json:"active"`
	QuietHours *notifier.Window   `json:"quiet_hours,omitempty"`
	CreatedAt  time.Time          `json:"created_at"`
	UpdatedAt  time.Time          `json:"updated_at"`
}

// RuleKinds lists the kinds a rule may evaluate.
func RuleKinds() []notifier.Kind {
	return []notifier.Kind{
		notifier.KindLowStock,
		notifier.KindOutOfStock,
		notifier.KindExpirationWarning,
		notifier.KindSystemAlert,
	}
}

func validRuleKind(k notifier.Kind) bool {
	for _, kind := range RuleKinds() {
		if kind == k {
			return true
		}
	}
	return false
}

// Validate checks structural and kind-specific requirements. Called at
// creation and update time so invalid rules never reach the evaluator.
func (r Rule) Validate() error {
	if r.UserID == uuid.Nil {
		return fmt.Errorf("%w: user id is required", ErrInvalidRule)
	}
	if r.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidRule)
	}
	if !validRuleKind(r.Kind) {
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidRule, r.Kind)
	}
	if len(r.Channels) == 0 {
		return fmt.Errorf("%w: at least one channel is required", ErrInvalidRule)
	}
	for _, ch := range r.Channels {
		if !ch.Valid() {
			return fmt.Errorf("%w: unknown channel %q", ErrInvalidRule, ch)
		}
	}
	if r.Priority != "" && !r.Priority.Valid() {
		return fmt.Errorf("%w: unknown priority %q", ErrInvalidRule, r.Priority)
	}
	if r.QuietHours != nil {
		if err := r.QuietHours.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidRule, err)
		}
	}

	switch r.Kind {
	case notifier.KindLowStock:
		if r.Condition.StockThreshold == nil {
			return fmt.Errorf("%w: low_stock requires a stock threshold", ErrInvalidRule)
		}
		if *r.Condition.StockThreshold < 0 {
			return fmt.Errorf("%w: stock threshold must not be negative", ErrInvalidRule)
		}
	case notifier.KindExpirationWarning:
		if r.Condition.DaysUntilExpiration == nil {
			return fmt.Errorf("%w: expiration_warning requires days until expiration", ErrInvalidRule)
		}
		if *r.Condition.DaysUntilExpiration <= 0 {
			return fmt.Errorf("%w: days until expiration must be positive", ErrInvalidRule)
		}
	}
	return nil
}

// priorityOrDefault resolves the rule's dispatch priority, falling back to a
// kind-appropriate default when unset.
func (r Rule) priorityOrDefault() notifier.Priority {
	if r.Priority != "" {
		return r.Priority
	}
	switch r.Kind {
	case notifier.KindOutOfStock:
		return notifier.PriorityUrgent
	case notifier.KindLowStock:
		return notifier.PriorityHigh
	default:
		return notifier.PriorityMedium
	}
}
