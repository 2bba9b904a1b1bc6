package stock_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgeops/stocksync/pkg/stock"
)

func seedLevel(p *stock.MemoryProvider, qty, reorder float64) (uuid.UUID, uuid.UUID) {
	itemID := uuid.New()
	locationID := uuid.New()
	p.Seed(stock.Level{
		ItemID:       itemID,
		LocationID:   locationID,
		ItemName:     "espresso beans",
		Category:     "coffee",
		Quantity:     qty,
		ReorderPoint: reorder,
	})
	return itemID, locationID
}

func TestMemoryProvider_ApplyDelta(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		starting float64
		change   float64
		want     float64
	}{
		{name: "positive delta", starting: 10, change: 5, want: 15},
		{name: "negative delta", starting: 10, change: -7, want: 3},
		{name: "clamps at zero", starting: 3, change: -10, want: 0},
		{name: "zero delta", starting: 4, change: 0, want: 4},
		{name: "exact drain", starting: 6, change: -6, want: 0},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p := stock.NewMemoryProvider()
			itemID, locationID := seedLevel(p, tt.starting, 5)

			level, err := p.ApplyDelta(context.Background(), stock.Delta{
				ItemID:     itemID,
				LocationID: locationID,
				Change:     tt.change,
				UserID:     uuid.New(),
				Kind:       stock.MovementAdjustment,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, level.Quantity)

			got, err := p.Get(context.Background(), itemID, locationID)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Quantity)
		})
	}
}

func TestMemoryProvider_ApplyDelta_NotFound(t *testing.T) {
	t.Parallel()

	p := stock.NewMemoryProvider()

	_, err := p.ApplyDelta(context.Background(), stock.Delta{
		ItemID:     uuid.New(),
		LocationID: uuid.New(),
		Change:     1,
	})
	require.ErrorIs(t, err, stock.ErrStockNotFound)
}

func TestMemoryProvider_ApplyDelta_RecordsTransaction(t *testing.T) {
	t.Parallel()

	p := stock.NewMemoryProvider()
	itemID, locationID := seedLevel(p, 10, 5)
	userID := uuid.New()

	_, err := p.ApplyDelta(context.Background(), stock.Delta{
		ItemID:     itemID,
		LocationID: locationID,
		Change:     -4,
		UserID:     userID,
		Kind:       stock.MovementSale,
		Notes:      "register 2",
	})
	require.NoError(t, err)

	txs := p.Transactions()
	require.Len(t, txs, 1)
	assert.Equal(t, -4.0, txs[0].Change)
	assert.Equal(t, 6.0, txs[0].ResultingQuantity)
	assert.Equal(t, userID, txs[0].UserID)
	assert.Equal(t, stock.MovementSale, txs[0].Kind)
	assert.False(t, txs[0].CreatedAt.IsZero())
}

func TestMemoryProvider_BelowReorder(t *testing.T) {
	t.Parallel()

	p := stock.NewMemoryProvider()
	lowItem, lowLoc := seedLevel(p, 3, 5)
	seedLevel(p, 50, 5)

	levels, err := p.BelowReorder(context.Background(), stock.Filter{})
	require.NoError(t, err)
	require.Len(t, levels, 1)
	assert.Equal(t, lowItem, levels[0].ItemID)

	// Location filter excluding the low item yields nothing.
	otherLoc := uuid.New()
	levels, err = p.BelowReorder(context.Background(), stock.Filter{LocationID: &otherLoc})
	require.NoError(t, err)
	assert.Empty(t, levels)

	levels, err = p.BelowReorder(context.Background(), stock.Filter{LocationID: &lowLoc})
	require.NoError(t, err)
	assert.Len(t, levels, 1)
}

func TestMemoryProvider_FilterByCategory(t *testing.T) {
	t.Parallel()

	p := stock.NewMemoryProvider()
	p.Seed(stock.Level{ItemID: uuid.New(), LocationID: uuid.New(), Category: "dairy", Quantity: 1, ReorderPoint: 5})
	p.Seed(stock.Level{ItemID: uuid.New(), LocationID: uuid.New(), Category: "coffee", Quantity: 1, ReorderPoint: 5})

	levels, err := p.BelowReorder(context.Background(), stock.Filter{Category: "dairy"})
	require.NoError(t, err)
	require.Len(t, levels, 1)
	assert.Equal(t, "dairy", levels[0].Category)
}
