package alerts

import (
	"context"

	"github.com/google/uuid"

	"github.com/forgeops/stocksync/pkg/notifier"
)

// Storage persists alert rules.
type Storage interface {
	// Create stores a new rule.
	Create(ctx context.Context, r Rule) error

	// Get retrieves one rule owned by the user, or ErrRuleNotFound.
	Get(ctx context.Context, id, userID uuid.UUID) (*Rule, error)

	// Update replaces a rule. Ownership is enforced: updating another
	// user's rule yields ErrRuleNotFound.
	Update(ctx context.Context, r Rule) error

	// Delete removes a rule owned by the user, or ErrRuleNotFound.
	Delete(ctx context.Context, id, userID uuid.UUID) error

	// ListByUser returns every rule owned by the user, newest first.
	ListByUser(ctx context.Context, userID uuid.UUID) ([]Rule, error)

	// ListActiveByKind returns every active rule of the given kind across
	// all users. Used by evaluation passes.
	ListActiveByKind(ctx context.Context, kind notifier.Kind) ([]Rule, error)
}
