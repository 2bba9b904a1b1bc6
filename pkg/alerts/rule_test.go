package alerts_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgeops/stocksync/pkg/alerts"
	"github.com/forgeops/stocksync/pkg/notifier"
)

func floatPtr(f float64) *float64 { return &f }
func intPtr(i int) *int           { return &i }

func validLowStockRule() alerts.Rule {
	return alerts.Rule{
		ID:        uuid.New(),
		UserID:    uuid.New(),
		Name:      "Low tomatoes",
		Kind:      notifier.KindLowStock,
		Condition: alerts.Condition{StockThreshold: floatPtr(10)},
		Channels:  []notifier.Channel{notifier.ChannelInApp},
		Active:    true,
	}
}

func TestRuleValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*alerts.Rule)
		wantErr string
	}{
		{
			name:   "valid low stock rule",
			mutate: func(r *alerts.Rule) {},
		},
		{
			name: "valid out of stock rule without condition",
			mutate: func(r *alerts.Rule) {
				r.Kind = notifier.KindOutOfStock
				r.Condition = alerts.Condition{}
			},
		},
		{
			name: "valid expiration rule",
			mutate: func(r *alerts.Rule) {
				r.Kind = notifier.KindExpirationWarning
				r.Condition = alerts.Condition{DaysUntilExpiration: intPtr(3)}
			},
		},
		{
			name:    "missing user",
			mutate:  func(r *alerts.Rule) { r.UserID = uuid.Nil },
			wantErr: "user id",
		},
		{
			name:    "missing name",
			mutate:  func(r *alerts.Rule) { r.Name = "" },
			wantErr: "name",
		},
		{
			name:    "unknown kind",
			mutate:  func(r *alerts.Rule) { r.Kind = "restock_reminder" },
			wantErr: "unknown kind",
		},
		{
			name:    "no channels",
			mutate:  func(r *alerts.Rule) { r.Channels = nil },
			wantErr: "at least one channel",
		},
		{
			name:    "unknown channel",
			mutate:  func(r *alerts.Rule) { r.Channels = []notifier.Channel{"fax"} },
			wantErr: "unknown channel",
		},
		{
			name:    "low stock without threshold",
			mutate:  func(r *alerts.Rule) { r.Condition = alerts.Condition{} },
			wantErr: "stock threshold",
		},
		{
			name:    "negative threshold",
			mutate:  func(r *alerts.Rule) { r.Condition.StockThreshold = floatPtr(-1) },
			wantErr: "negative",
		},
		{
			name: "expiration without horizon",
			mutate: func(r *alerts.Rule) {
				r.Kind = notifier.KindExpirationWarning
				r.Condition = alerts.Condition{}
			},
			wantErr: "days until expiration",
		},
		{
			name: "zero day horizon",
			mutate: func(r *alerts.Rule) {
				r.Kind = notifier.KindExpirationWarning
				r.Condition = alerts.Condition{DaysUntilExpiration: intPtr(0)}
			},
			wantErr: "positive",
		},
		{
			name: "malformed quiet hours",
			mutate: func(r *alerts.Rule) {
				r.QuietHours = &notifier.Window{Start: "late", End: "08:00"}
			},
			wantErr: "invalid",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rule := validLowStockRule()
			tt.mutate(&rule)

			err := rule.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, alerts.ErrInvalidRule)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestMemoryStorageOwnership(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	storage := alerts.NewMemoryStorage()
	rule := validLowStockRule()
	require.NoError(t, storage.Create(ctx, rule))

	t.Run("owner can read", func(t *testing.T) {
		t.Parallel()
		got, err := storage.Get(ctx, rule.ID, rule.UserID)
		require.NoError(t, err)
		assert.Equal(t, rule.Name, got.Name)
	})

	t.Run("non-owner gets not found", func(t *testing.T) {
		t.Parallel()
		_, err := storage.Get(ctx, rule.ID, uuid.New())
		require.ErrorIs(t, err, alerts.ErrRuleNotFound)

		stranger := rule
		stranger.UserID = uuid.New()
		require.ErrorIs(t, storage.Update(ctx, stranger), alerts.ErrRuleNotFound)
		require.ErrorIs(t, storage.Delete(ctx, rule.ID, uuid.New()), alerts.ErrRuleNotFound)
	})

	t.Run("inactive rules excluded from kind listing", func(t *testing.T) {
		t.Parallel()
		inactive := validLowStockRule()
		inactive.Active = false
		require.NoError(t, storage.Create(ctx, inactive))

		active, err := storage.ListActiveByKind(ctx, notifier.KindLowStock)
		require.NoError(t, err)
		for _, r := range active {
			assert.True(t, r.Active)
		}
	})
}
