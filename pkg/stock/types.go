package stock

import (
	"time"

	"github.com/google/uuid"
)

// MovementKind classifies how a stock quantity changed.
type MovementKind string

const (
	MovementSale       MovementKind = "sale"
	MovementAdjustment MovementKind = "adjustment"
	MovementReceive    MovementKind = "receive"
	MovementWaste      MovementKind = "waste"
	MovementTransfer   MovementKind = "transfer"
	MovementCount      MovementKind = "count"
)

// Level is the authoritative stock state of one item at one location.
type Level struct {
	ItemID        uuid.UUID `json:"item_id"`
	LocationID    uuid.UUID `json:"location_id"`
	ItemName      string    `json:"item_name"`
	Category      string    `json:"category"`
	Quantity      float64   `json:"quantity"`
	ReorderPoint  float64   `json:"reorder_point"`
	ShelfLifeDays int       `json:"shelf_life_days,omitempty"` // 0 means the item does not expire
	UpdatedAt     time.Time `json:"updated_at"`
}

// BelowReorder reports whether the level is at or under its reorder point.
func (l Level) BelowReorder() bool {
	return l.Quantity <= l.ReorderPoint
}

// Delta describes one signed quantity change to apply.
type Delta struct {
	ItemID     uuid.UUID
	LocationID uuid.UUID
	Change     float64
	UserID     uuid.UUID
	Kind       MovementKind
	Notes      string
}

// Transaction is the audit record of one applied Delta.
type Transaction struct {
	ID                uuid.UUID    `json:"id"`
	ItemID            uuid.UUID    `json:"item_id"`
	LocationID        uuid.UUID    `json:"location_id"`
	Change            float64      `json:"change"`
	ResultingQuantity float64      `json:"resulting_quantity"`
	UserID            uuid.UUID    `json:"user_id"`
	Kind              MovementKind `json:"kind"`
	Notes             string       `json:"notes,omitempty"`
	CreatedAt         time.Time    `json:"created_at"`
}

// Filter narrows queries to a location and/or item category.
// Zero values match everything.
type Filter struct {
	LocationID *uuid.UUID
	Category   string
}

// Matches reports whether a level satisfies the filter.
func (f Filter) Matches(l Level) bool {
	if f.LocationID != nil && *f.LocationID != l.LocationID {
		return false
	}
	if f.Category != "" && f.Category != l.Category {
		return false
	}
	return true
}
