package stock

import (
	"context"

	"github.com/google/uuid"
)

// Provider is the boundary to the authoritative stock store. The engine only
// consumes this interface; the backing persistence lives outside this module.
type Provider interface {
	// Get returns the current level for one (item, location) pair.
	// Unknown pairs yield ErrStockNotFound.
	Get(ctx context.Context, itemID, locationID uuid.UUID) (Level, error)

	// BelowReorder lists levels at or under their reorder point, narrowed by
	// the filter.
	BelowReorder(ctx context.Context, f Filter) ([]Level, error)

	// List returns all levels matching the filter.
	List(ctx context.Context, f Filter) ([]Level, error)

	// ApplyDelta applies a signed quantity change and returns the resulting
	// level. The resulting quantity saturates at zero: for starting quantity
	// q and change d the result is max(0, q+d). An audit transaction is
	// recorded for every applied delta.
	ApplyDelta(ctx context.Context, d Delta) (Level, error)
}
