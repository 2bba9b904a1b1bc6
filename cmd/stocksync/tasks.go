package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/forgeops/stocksync/pkg/notifier"
	"github.com/forgeops/stocksync/pkg/stock"
)

// dailySummaryTask sends every manager and admin a morning digest of the
// items sitting at or below their reorder points.
func dailySummaryTask(levels stock.Provider, dispatcher *notifier.Dispatcher, identities *staticIdentities) func(context.Context) error {
	return func(ctx context.Context) error {
		recipients := identities.Elevated()
		if len(recipients) == 0 {
			return nil
		}

		low, err := levels.BelowReorder(ctx, stock.Filter{})
		if err != nil {
			return err
		}

		var body strings.Builder
		if len(low) == 0 {
			body.WriteString("All items are above their reorder points.")
		} else {
			fmt.Fprintf(&body, "%d item(s) need restocking:\n", len(low))
			for _, l := range low {
				fmt.Fprintf(&body, "- %s: %.1f on hand (reorder at %.1f)\n", l.ItemName, l.Quantity, l.ReorderPoint)
			}
		}

		outcomes := dispatcher.DispatchBulk(ctx, notifier.BulkRequest{
			UserIDs:  recipients,
			Title:    "Daily Inventory Summary",
			Body:     body.String(),
			Kind:     notifier.KindSystemAlert,
			Priority: notifier.PriorityLow,
			Data:     map[string]any{"low_stock_count": len(low)},
			Channels: []notifier.Channel{notifier.ChannelInApp, notifier.ChannelEmail},
		})
		for _, o := range outcomes {
			if o.Error != "" {
				return fmt.Errorf("summary for %s: %s", o.UserID, o.Error)
			}
		}
		return nil
	}
}

// cleanupTask purges notifications older than the retention window.
func cleanupTask(dispatcher *notifier.Dispatcher, retention time.Duration, log *slog.Logger) func(context.Context) error {
	return func(ctx context.Context) error {
		deleted, err := dispatcher.DeleteOlderThan(ctx, time.Now().Add(-retention))
		if err != nil {
			return err
		}
		if deleted > 0 {
			log.InfoContext(ctx, "Purged old notifications", "deleted", deleted)
		}
		return nil
	}
}
