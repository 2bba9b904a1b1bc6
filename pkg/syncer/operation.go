package syncer

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/forgeops/stocksync/pkg/stock"
)

// Operation is one stock change queued on a client while it was offline.
// LocalID is the client-assigned identifier used to correlate outcomes and
// to dedupe replays of the same batch.
type Operation struct {
	LocalID    string             `json:"local_id"`
	ItemID     uuid.UUID          `json:"item_id"`
	LocationID uuid.UUID          `json:"location_id"`
	Change     float64            `json:"change"`
	Kind       stock.MovementKind `json:"kind"`
	ClientTime time.Time          `json:"client_time"`
	Notes      string             `json:"notes,omitempty"`
}

// Validate checks the operation is structurally complete.
func (o Operation) Validate() error {
	if o.LocalID == "" {
		return fmt.Errorf("%w: local id is required", ErrInvalidOperation)
	}
	if o.ItemID == uuid.Nil {
		return fmt.Errorf("%w: item id is required", ErrInvalidOperation)
	}
	if o.LocationID == uuid.Nil {
		return fmt.Errorf("%w: location id is required", ErrInvalidOperation)
	}
	switch o.Kind {
	case stock.MovementSale, stock.MovementAdjustment, stock.MovementReceive,
		stock.MovementWaste, stock.MovementTransfer, stock.MovementCount:
	default:
		return fmt.Errorf("%w: unknown movement kind %q", ErrInvalidOperation, o.Kind)
	}
	return nil
}

// Outcome statuses. Each operation in a batch resolves to exactly one.
const (
	StatusProcessed = "processed"
	StatusFailed    = "failed"
	StatusDuplicate = "duplicate"
)

// Outcome is the per-operation result of a batch application.
type Outcome struct {
	LocalID     string     `json:"local_id"`
	Status      string     `json:"status"`
	ServerID    *uuid.UUID `json:"server_id,omitempty"`
	NewQuantity *float64   `json:"new_quantity,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// BatchResult summarizes one batch application. ServerChanges carries levels
// the server updated since the client's last sync, when one was given.
type BatchResult struct {
	Outcomes      []Outcome     `json:"outcomes"`
	Processed     int           `json:"processed"`
	Failed        int           `json:"failed"`
	Duplicate     int           `json:"duplicate"`
	SyncedAt      time.Time     `json:"synced_at"`
	ServerChanges []stock.Level `json:"server_changes,omitempty"`
}
