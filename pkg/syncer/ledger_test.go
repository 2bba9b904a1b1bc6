package syncer_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgeops/stocksync/pkg/syncer"
)

func TestMemoryLedger(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("first application wins", func(t *testing.T) {
		t.Parallel()

		ledger := syncer.NewMemoryLedger(time.Hour)
		userID := uuid.New()

		first, err := ledger.MarkApplied(ctx, userID, "op-1")
		require.NoError(t, err)
		assert.True(t, first)

		replay, err := ledger.MarkApplied(ctx, userID, "op-1")
		require.NoError(t, err)
		assert.False(t, replay)
	})

	t.Run("scoped per user", func(t *testing.T) {
		t.Parallel()

		ledger := syncer.NewMemoryLedger(time.Hour)

		first, err := ledger.MarkApplied(ctx, uuid.New(), "op-1")
		require.NoError(t, err)
		assert.True(t, first)

		other, err := ledger.MarkApplied(ctx, uuid.New(), "op-1")
		require.NoError(t, err)
		assert.True(t, other)
	})

	t.Run("forget releases the entry", func(t *testing.T) {
		t.Parallel()

		ledger := syncer.NewMemoryLedger(time.Hour)
		userID := uuid.New()

		_, err := ledger.MarkApplied(ctx, userID, "op-1")
		require.NoError(t, err)
		require.NoError(t, ledger.Forget(ctx, userID, "op-1"))

		again, err := ledger.MarkApplied(ctx, userID, "op-1")
		require.NoError(t, err)
		assert.True(t, again)
	})

	t.Run("entries expire after the ttl", func(t *testing.T) {
		t.Parallel()

		ledger := syncer.NewMemoryLedger(50 * time.Millisecond)
		userID := uuid.New()

		_, err := ledger.MarkApplied(ctx, userID, "op-1")
		require.NoError(t, err)

		time.Sleep(80 * time.Millisecond)

		again, err := ledger.MarkApplied(ctx, userID, "op-1")
		require.NoError(t, err)
		assert.True(t, again)
	})
}
