package syncer_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgeops/stocksync/pkg/stock"
	"github.com/forgeops/stocksync/pkg/syncer"
)

type changeRecorder struct {
	mu      sync.Mutex
	changes []float64
}

func (r *changeRecorder) BroadcastStockChange(_ stock.Level, change float64, _ stock.MovementKind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, change)
}

func (r *changeRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.changes)
}

type evalRecorder struct {
	mu    sync.Mutex
	items []uuid.UUID
}

func (r *evalRecorder) EvaluateItem(_ context.Context, itemID, _ uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, itemID)
	return nil
}

func seedProvider(levels ...stock.Level) *stock.MemoryProvider {
	p := stock.NewMemoryProvider()
	for _, l := range levels {
		p.Seed(l)
	}
	return p
}

func TestReconcilerApplyBatch(t *testing.T) {
	t.Parallel()

	itemID := uuid.New()
	locationID := uuid.New()
	baseLevel := stock.Level{
		ItemID: itemID, LocationID: locationID,
		ItemName: "Tomatoes", Category: "produce",
		Quantity: 50, ReorderPoint: 10,
	}

	t.Run("mixed batch resolves per operation", func(t *testing.T) {
		t.Parallel()

		provider := seedProvider(baseLevel)
		r := syncer.NewReconciler(provider)
		userID := uuid.New()

		ops := []syncer.Operation{
			{LocalID: "op-1", ItemID: itemID, LocationID: locationID, Change: -5, Kind: stock.MovementSale},
			{LocalID: "op-2", ItemID: uuid.New(), LocationID: locationID, Change: -1, Kind: stock.MovementSale},
			{LocalID: "op-3", ItemID: itemID, LocationID: locationID, Change: 20, Kind: stock.MovementReceive},
		}

		result, err := r.ApplyBatch(context.Background(), userID, ops, time.Time{})
		require.NoError(t, err)
		require.Len(t, result.Outcomes, 3)

		assert.Equal(t, 2, result.Processed)
		assert.Equal(t, 1, result.Failed)
		assert.Zero(t, result.Duplicate)
		assert.False(t, result.SyncedAt.IsZero())

		first := result.Outcomes[0]
		assert.Equal(t, "op-1", first.LocalID)
		assert.Equal(t, syncer.StatusProcessed, first.Status)
		require.NotNil(t, first.NewQuantity)
		assert.InDelta(t, 45, *first.NewQuantity, 0.001)
		require.NotNil(t, first.ServerID)

		second := result.Outcomes[1]
		assert.Equal(t, syncer.StatusFailed, second.Status)
		assert.Contains(t, second.Error, "unknown item")
		assert.Nil(t, second.NewQuantity)

		third := result.Outcomes[2]
		assert.Equal(t, syncer.StatusProcessed, third.Status)
		require.NotNil(t, third.NewQuantity)
		assert.InDelta(t, 65, *third.NewQuantity, 0.001)
	})

	t.Run("quantities clamp at zero", func(t *testing.T) {
		t.Parallel()

		provider := seedProvider(baseLevel)
		r := syncer.NewReconciler(provider)

		result, err := r.ApplyBatch(context.Background(), uuid.New(), []syncer.Operation{
			{LocalID: "op-1", ItemID: itemID, LocationID: locationID, Change: -500, Kind: stock.MovementWaste},
		}, time.Time{})
		require.NoError(t, err)

		require.NotNil(t, result.Outcomes[0].NewQuantity)
		assert.Zero(t, *result.Outcomes[0].NewQuantity)
	})

	t.Run("replayed batch reports duplicates without reapplying", func(t *testing.T) {
		t.Parallel()

		provider := seedProvider(baseLevel)
		r := syncer.NewReconciler(provider)
		userID := uuid.New()
		ops := []syncer.Operation{
			{LocalID: "op-1", ItemID: itemID, LocationID: locationID, Change: -5, Kind: stock.MovementSale},
		}

		first, err := r.ApplyBatch(context.Background(), userID, ops, time.Time{})
		require.NoError(t, err)
		require.Equal(t, 1, first.Processed)

		replay, err := r.ApplyBatch(context.Background(), userID, ops, time.Time{})
		require.NoError(t, err)
		assert.Equal(t, 1, replay.Duplicate)
		assert.Zero(t, replay.Processed)
		assert.Equal(t, syncer.StatusDuplicate, replay.Outcomes[0].Status)

		level, err := provider.Get(context.Background(), itemID, locationID)
		require.NoError(t, err)
		assert.InDelta(t, 45, level.Quantity, 0.001)
	})

	t.Run("same local id from another user applies", func(t *testing.T) {
		t.Parallel()

		provider := seedProvider(baseLevel)
		r := syncer.NewReconciler(provider)
		ops := []syncer.Operation{
			{LocalID: "op-1", ItemID: itemID, LocationID: locationID, Change: -5, Kind: stock.MovementSale},
		}

		_, err := r.ApplyBatch(context.Background(), uuid.New(), ops, time.Time{})
		require.NoError(t, err)

		other, err := r.ApplyBatch(context.Background(), uuid.New(), ops, time.Time{})
		require.NoError(t, err)
		assert.Equal(t, 1, other.Processed)
	})

	t.Run("invalid operations fail without ledger entry", func(t *testing.T) {
		t.Parallel()

		provider := seedProvider(baseLevel)
		r := syncer.NewReconciler(provider)
		userID := uuid.New()

		bad, err := r.ApplyBatch(context.Background(), userID, []syncer.Operation{
			{LocalID: "", ItemID: itemID, LocationID: locationID, Change: -5, Kind: stock.MovementSale},
			{LocalID: "op-x", ItemID: itemID, LocationID: locationID, Change: -5, Kind: "theft"},
		}, time.Time{})
		require.NoError(t, err)
		assert.Equal(t, 2, bad.Failed)
		assert.Contains(t, bad.Outcomes[0].Error, "local id")
		assert.Contains(t, bad.Outcomes[1].Error, "movement kind")
	})

	t.Run("failed operation can be retried", func(t *testing.T) {
		t.Parallel()

		provider := seedProvider() // nothing seeded, first attempt fails
		r := syncer.NewReconciler(provider)
		userID := uuid.New()
		ops := []syncer.Operation{
			{LocalID: "op-1", ItemID: itemID, LocationID: locationID, Change: -5, Kind: stock.MovementSale},
		}

		first, err := r.ApplyBatch(context.Background(), userID, ops, time.Time{})
		require.NoError(t, err)
		require.Equal(t, 1, first.Failed)

		provider.Seed(baseLevel)
		retry, err := r.ApplyBatch(context.Background(), userID, ops, time.Time{})
		require.NoError(t, err)
		assert.Equal(t, 1, retry.Processed, "retry after failure must not be treated as duplicate")
	})

	t.Run("empty batch rejected", func(t *testing.T) {
		t.Parallel()

		r := syncer.NewReconciler(seedProvider(baseLevel))
		_, err := r.ApplyBatch(context.Background(), uuid.New(), nil, time.Time{})
		require.ErrorIs(t, err, syncer.ErrEmptyBatch)
	})

	t.Run("applied changes are broadcast and evaluated", func(t *testing.T) {
		t.Parallel()

		provider := seedProvider(baseLevel)
		broadcaster := &changeRecorder{}
		evaluator := &evalRecorder{}
		r := syncer.NewReconciler(provider,
			syncer.WithChangeBroadcaster(broadcaster),
			syncer.WithItemEvaluator(evaluator))

		_, err := r.ApplyBatch(context.Background(), uuid.New(), []syncer.Operation{
			{LocalID: "op-1", ItemID: itemID, LocationID: locationID, Change: -5, Kind: stock.MovementSale},
			{LocalID: "op-2", ItemID: uuid.New(), LocationID: locationID, Change: -1, Kind: stock.MovementSale},
		}, time.Time{})
		require.NoError(t, err)

		assert.Equal(t, 1, broadcaster.count(), "failed operations must not broadcast")
		evaluator.mu.Lock()
		defer evaluator.mu.Unlock()
		require.Len(t, evaluator.items, 1)
		assert.Equal(t, itemID, evaluator.items[0])
	})

	t.Run("reports server changes since last sync", func(t *testing.T) {
		t.Parallel()

		provider := seedProvider(baseLevel)
		r := syncer.NewReconciler(provider)

		result, err := r.ApplyBatch(context.Background(), uuid.New(), []syncer.Operation{
			{LocalID: "op-1", ItemID: itemID, LocationID: locationID, Change: -5, Kind: stock.MovementSale},
		}, time.Now().Add(-time.Hour))
		require.NoError(t, err)

		require.Len(t, result.ServerChanges, 1)
		assert.Equal(t, itemID, result.ServerChanges[0].ItemID)
	})
}

func TestReconcilerConcurrentBatches(t *testing.T) {
	t.Parallel()

	itemID := uuid.New()
	locationID := uuid.New()
	provider := seedProvider(stock.Level{
		ItemID: itemID, LocationID: locationID,
		ItemName: "Flour", Quantity: 1000, ReorderPoint: 10,
	})
	r := syncer.NewReconciler(provider)

	const workers = 8
	const opsPerWorker = 10

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			userID := uuid.New()
			for i := 0; i < opsPerWorker; i++ {
				_, err := r.ApplyBatch(context.Background(), userID, []syncer.Operation{{
					LocalID: fmt.Sprintf("w%d-op%d", w, i),
					ItemID:  itemID, LocationID: locationID,
					Change: -1, Kind: stock.MovementSale,
				}}, time.Time{})
				assert.NoError(t, err)
			}
		}(w)
	}
	wg.Wait()

	level, err := provider.Get(context.Background(), itemID, locationID)
	require.NoError(t, err)
	assert.InDelta(t, 1000-workers*opsPerWorker, level.Quantity, 0.001)
}

type failingLedger struct{}

func (failingLedger) MarkApplied(context.Context, uuid.UUID, string) (bool, error) {
	return false, errors.New("ledger down")
}

func (failingLedger) Forget(context.Context, uuid.UUID, string) error {
	return errors.New("ledger down")
}

func TestReconcilerLedgerOutageDegradesToApplying(t *testing.T) {
	t.Parallel()

	itemID := uuid.New()
	locationID := uuid.New()
	provider := seedProvider(stock.Level{
		ItemID: itemID, LocationID: locationID,
		ItemName: "Milk", Quantity: 10, ReorderPoint: 2,
	})
	r := syncer.NewReconciler(provider, syncer.WithLedger(failingLedger{}))

	result, err := r.ApplyBatch(context.Background(), uuid.New(), []syncer.Operation{
		{LocalID: "op-1", ItemID: itemID, LocationID: locationID, Change: -2, Kind: stock.MovementSale},
	}, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Processed)
}
