// Package notifier dispatches notifications across email, SMS, push, and
// in-app channels with per-user preferences and quiet hours.
//
// A Dispatcher persists every notification before attempting delivery, so
// the record survives provider outages. Each selected channel is attempted
// independently; one channel failing never blocks the others. The in-app
// channel is special: the stored record is the delivery, and a LivePusher
// forwards it to a connected session when one exists.
//
// Quiet hours suppress delivery entirely for non-urgent notifications. The
// window may wrap midnight (22:00-08:00). Urgent priority always goes out.
//
// Basic usage:
//
//	d := notifier.NewDispatcher(storage,
//		notifier.WithSink(notifier.ChannelEmail, emailSink),
//		notifier.WithLivePusher(hub),
//	)
//
//	notif, err := d.Dispatch(ctx, notifier.Request{
//		UserID:   userID,
//		Title:    "Low Stock Alert: Tomatoes",
//		Kind:     notifier.KindLowStock,
//		Priority: notifier.PriorityMedium,
//		Channels: []notifier.Channel{notifier.ChannelInApp, notifier.ChannelEmail},
//	})
//
// Storage has two implementations: MemoryStorage for tests and single-node
// setups, and PGStorage backed by pgx for production.
package notifier
