package notifier_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgeops/stocksync/pkg/notifier"
)

type fakeSink struct {
	mu    sync.Mutex
	sends []string
	err   error
}

func (f *fakeSink) Send(_ context.Context, recipient, subject, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.sends = append(f.sends, recipient+"|"+subject)
	return "ref-" + subject, nil
}

func (f *fakeSink) sent() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sends...)
}

type fakePusher struct {
	mu     sync.Mutex
	pushed []notifier.Notification
}

func (f *fakePusher) Push(_ string, n notifier.Notification) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pushed = append(f.pushed, n)
}

func (f *fakePusher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pushed)
}

func attemptsByChannel(t *testing.T, storage notifier.Storage, notifID uuid.UUID) map[notifier.Channel]notifier.DeliveryAttempt {
	t.Helper()
	attempts, err := storage.AttemptsFor(context.Background(), notifID)
	require.NoError(t, err)
	out := make(map[notifier.Channel]notifier.DeliveryAttempt, len(attempts))
	for _, a := range attempts {
		out[a.Channel] = a
	}
	return out
}

func TestDispatcherDispatch(t *testing.T) {
	t.Parallel()

	fixedClock := func(at time.Time) func() time.Time {
		return func() time.Time { return at }
	}
	noon := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	t.Run("defaults to in-app only", func(t *testing.T) {
		t.Parallel()

		storage := notifier.NewMemoryStorage()
		pusher := &fakePusher{}
		d := notifier.NewDispatcher(storage,
			notifier.WithLivePusher(pusher),
			notifier.WithDispatcherClock(fixedClock(noon)))

		notif, err := d.Dispatch(context.Background(), notifier.Request{
			UserID: uuid.New(),
			Title:  "Low Stock Alert: Tomatoes",
			Body:   "Tomatoes is running low at Main Kitchen. Current: 3.0, Threshold: 10.0",
			Kind:   notifier.KindLowStock,
		})
		require.NoError(t, err)
		require.NotNil(t, notif)
		assert.Equal(t, notifier.PriorityMedium, notif.Priority)

		attempts := attemptsByChannel(t, storage, notif.ID)
		require.Len(t, attempts, 1)
		inApp := attempts[notifier.ChannelInApp]
		assert.Equal(t, notifier.StatusDelivered, inApp.Status)
		require.NotNil(t, inApp.DeliveredAt)
		assert.Equal(t, 1, pusher.count())
	})

	t.Run("quiet hours suppress non-urgent", func(t *testing.T) {
		t.Parallel()

		storage := notifier.NewMemoryStorage()
		userID := uuid.New()
		pref := notifier.DefaultPreference(userID)
		pref.QuietHoursEnabled = true
		require.NoError(t, storage.SavePreference(context.Background(), pref))

		lateNight := time.Date(2025, 6, 15, 23, 30, 0, 0, time.UTC)
		d := notifier.NewDispatcher(storage,
			notifier.WithDispatcherClock(fixedClock(lateNight)))

		notif, err := d.Dispatch(context.Background(), notifier.Request{
			UserID:   userID,
			Title:    "Low Stock Alert: Milk",
			Kind:     notifier.KindLowStock,
			Priority: notifier.PriorityMedium,
			Channels: []notifier.Channel{notifier.ChannelInApp, notifier.ChannelEmail},
		})
		require.NoError(t, err)

		// The record exists but nothing was delivered.
		stored, err := storage.GetNotification(context.Background(), notif.ID)
		require.NoError(t, err)
		assert.Equal(t, notifier.KindLowStock, stored.Kind)

		attempts, err := storage.AttemptsFor(context.Background(), notif.ID)
		require.NoError(t, err)
		assert.Empty(t, attempts)
	})

	t.Run("urgent bypasses quiet hours", func(t *testing.T) {
		t.Parallel()

		storage := notifier.NewMemoryStorage()
		userID := uuid.New()
		pref := notifier.DefaultPreference(userID)
		pref.QuietHoursEnabled = true
		require.NoError(t, storage.SavePreference(context.Background(), pref))

		lateNight := time.Date(2025, 6, 15, 23, 30, 0, 0, time.UTC)
		d := notifier.NewDispatcher(storage,
			notifier.WithDispatcherClock(fixedClock(lateNight)))

		notif, err := d.Dispatch(context.Background(), notifier.Request{
			UserID:   userID,
			Title:    "OUT OF STOCK: Milk",
			Kind:     notifier.KindOutOfStock,
			Priority: notifier.PriorityUrgent,
		})
		require.NoError(t, err)

		attempts := attemptsByChannel(t, storage, notif.ID)
		require.Len(t, attempts, 1)
		assert.Equal(t, notifier.StatusDelivered, attempts[notifier.ChannelInApp].Status)
	})

	t.Run("channel failures are isolated", func(t *testing.T) {
		t.Parallel()

		storage := notifier.NewMemoryStorage()
		userID := uuid.New()
		pref := notifier.DefaultPreference(userID)
		pref.Email = "chef@example.com"
		pref.PushToken = "device-token-1"
		require.NoError(t, storage.SavePreference(context.Background(), pref))

		email := &fakeSink{err: errors.New("smtp timeout")}
		push := &fakeSink{}
		d := notifier.NewDispatcher(storage,
			notifier.WithSink(notifier.ChannelEmail, email),
			notifier.WithSink(notifier.ChannelPush, push),
			notifier.WithDispatcherClock(fixedClock(noon)))

		notif, err := d.Dispatch(context.Background(), notifier.Request{
			UserID:   userID,
			Title:    "Low Stock Alert: Flour",
			Kind:     notifier.KindLowStock,
			Channels: []notifier.Channel{notifier.ChannelEmail, notifier.ChannelPush},
		})
		require.NoError(t, err)

		attempts := attemptsByChannel(t, storage, notif.ID)
		require.Len(t, attempts, 2)

		failed := attempts[notifier.ChannelEmail]
		assert.Equal(t, notifier.StatusFailed, failed.Status)
		assert.Contains(t, failed.ErrorMessage, "smtp timeout")
		require.NotNil(t, failed.FailedAt)

		sent := attempts[notifier.ChannelPush]
		assert.Equal(t, notifier.StatusSent, sent.Status)
		assert.NotEmpty(t, sent.ProviderRef)
		assert.Len(t, push.sent(), 1)
	})

	t.Run("skips channels without recipient", func(t *testing.T) {
		t.Parallel()

		storage := notifier.NewMemoryStorage()
		userID := uuid.New()
		pref := notifier.DefaultPreference(userID)
		pref.SMSEnabled = true // enabled but no phone number on file
		require.NoError(t, storage.SavePreference(context.Background(), pref))

		sms := &fakeSink{}
		d := notifier.NewDispatcher(storage,
			notifier.WithSink(notifier.ChannelSMS, sms),
			notifier.WithDispatcherClock(fixedClock(noon)))

		notif, err := d.Dispatch(context.Background(), notifier.Request{
			UserID:   userID,
			Title:    "OUT OF STOCK: Eggs",
			Kind:     notifier.KindOutOfStock,
			Channels: []notifier.Channel{notifier.ChannelSMS},
		})
		require.NoError(t, err)

		attempts, err := storage.AttemptsFor(context.Background(), notif.ID)
		require.NoError(t, err)
		assert.Empty(t, attempts)
		assert.Empty(t, sms.sent())
	})

	t.Run("missing sink records failed attempt", func(t *testing.T) {
		t.Parallel()

		storage := notifier.NewMemoryStorage()
		userID := uuid.New()
		pref := notifier.DefaultPreference(userID)
		pref.Email = "chef@example.com"
		require.NoError(t, storage.SavePreference(context.Background(), pref))

		d := notifier.NewDispatcher(storage,
			notifier.WithDispatcherClock(fixedClock(noon)))

		notif, err := d.Dispatch(context.Background(), notifier.Request{
			UserID:   userID,
			Title:    "Low Stock Alert: Butter",
			Kind:     notifier.KindLowStock,
			Channels: []notifier.Channel{notifier.ChannelEmail},
		})
		require.NoError(t, err)

		attempts := attemptsByChannel(t, storage, notif.ID)
		require.Len(t, attempts, 1)
		assert.Equal(t, notifier.StatusFailed, attempts[notifier.ChannelEmail].Status)
		assert.Contains(t, attempts[notifier.ChannelEmail].ErrorMessage, "no sink")
	})

	t.Run("email without address records failed attempt", func(t *testing.T) {
		t.Parallel()

		storage := notifier.NewMemoryStorage()
		userID := uuid.New()
		// Default preference has no email address on file.
		require.NoError(t, storage.SavePreference(context.Background(), notifier.DefaultPreference(userID)))

		email := &fakeSink{}
		d := notifier.NewDispatcher(storage,
			notifier.WithSink(notifier.ChannelEmail, email),
			notifier.WithDispatcherClock(fixedClock(noon)))

		notif, err := d.Dispatch(context.Background(), notifier.Request{
			UserID:   userID,
			Title:    "Low Stock Alert: Cream",
			Kind:     notifier.KindLowStock,
			Channels: []notifier.Channel{notifier.ChannelEmail},
		})
		require.NoError(t, err)

		attempts := attemptsByChannel(t, storage, notif.ID)
		require.Len(t, attempts, 1)
		assert.Equal(t, notifier.StatusFailed, attempts[notifier.ChannelEmail].Status)
		assert.Contains(t, attempts[notifier.ChannelEmail].ErrorMessage, "no recipient")
		assert.Empty(t, email.sent(), "sink must not be called without an address")
	})

	t.Run("canceled context records no attempt", func(t *testing.T) {
		t.Parallel()

		storage := notifier.NewMemoryStorage()
		userID := uuid.New()
		pref := notifier.DefaultPreference(userID)
		pref.Email = "chef@example.com"
		require.NoError(t, storage.SavePreference(context.Background(), pref))

		email := &fakeSink{}
		d := notifier.NewDispatcher(storage,
			notifier.WithSink(notifier.ChannelEmail, email),
			notifier.WithDispatcherClock(fixedClock(noon)))

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		notif, err := d.Dispatch(ctx, notifier.Request{
			UserID:   userID,
			Title:    "Low Stock Alert: Sugar",
			Kind:     notifier.KindLowStock,
			Channels: []notifier.Channel{notifier.ChannelEmail},
		})
		require.NoError(t, err)

		// The notification record survives, but the send that never ran must
		// not leave a zero-value attempt behind.
		attempts, err := storage.AttemptsFor(context.Background(), notif.ID)
		require.NoError(t, err)
		assert.Empty(t, attempts)
		assert.Empty(t, email.sent())

		_, err = storage.GetAttempt(context.Background(), uuid.Nil)
		require.ErrorIs(t, err, notifier.ErrAttemptNotFound)
	})

	t.Run("creates default preference on first dispatch", func(t *testing.T) {
		t.Parallel()

		storage := notifier.NewMemoryStorage()
		userID := uuid.New()
		d := notifier.NewDispatcher(storage,
			notifier.WithDispatcherClock(fixedClock(noon)))

		_, err := d.Dispatch(context.Background(), notifier.Request{
			UserID: userID,
			Title:  "System maintenance tonight",
			Kind:   notifier.KindSystemAlert,
		})
		require.NoError(t, err)

		pref, err := storage.Preference(context.Background(), userID)
		require.NoError(t, err)
		assert.True(t, pref.InAppEnabled)
		assert.False(t, pref.SMSEnabled)
	})

	t.Run("rejects invalid requests", func(t *testing.T) {
		t.Parallel()

		d := notifier.NewDispatcher(notifier.NewMemoryStorage())

		_, err := d.Dispatch(context.Background(), notifier.Request{
			Title: "no user",
			Kind:  notifier.KindSystemAlert,
		})
		require.ErrorIs(t, err, notifier.ErrInvalidRequest)

		_, err = d.Dispatch(context.Background(), notifier.Request{
			UserID: uuid.New(),
			Title:  "bad priority",
			Kind:   notifier.KindSystemAlert,
			Priority: notifier.Priority("asap"),
		})
		require.ErrorIs(t, err, notifier.ErrInvalidRequest)
	})
}

func TestDispatcherMarkRead(t *testing.T) {
	t.Parallel()

	storage := notifier.NewMemoryStorage()
	userID := uuid.New()
	d := notifier.NewDispatcher(storage)

	notif, err := d.Dispatch(context.Background(), notifier.Request{
		UserID: userID,
		Title:  "Low Stock Alert: Rice",
		Kind:   notifier.KindLowStock,
	})
	require.NoError(t, err)

	t.Run("marks owned notification read", func(t *testing.T) {
		ok, err := d.MarkRead(context.Background(), notif.ID, userID)
		require.NoError(t, err)
		assert.True(t, ok)

		attempt, err := storage.InAppAttempt(context.Background(), notif.ID)
		require.NoError(t, err)
		assert.Equal(t, notifier.StatusRead, attempt.Status)
		require.NotNil(t, attempt.ReadAt)
	})

	t.Run("rejects other users", func(t *testing.T) {
		ok, err := d.MarkRead(context.Background(), notif.ID, uuid.New())
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("unknown notification is not an error", func(t *testing.T) {
		ok, err := d.MarkRead(context.Background(), uuid.New(), userID)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestDispatcherSummarize(t *testing.T) {
	t.Parallel()

	storage := notifier.NewMemoryStorage()
	userID := uuid.New()
	d := notifier.NewDispatcher(storage)

	first, err := d.Dispatch(context.Background(), notifier.Request{
		UserID:   userID,
		Title:    "Low Stock Alert: Rice",
		Kind:     notifier.KindLowStock,
		Priority: notifier.PriorityMedium,
	})
	require.NoError(t, err)

	_, err = d.Dispatch(context.Background(), notifier.Request{
		UserID:   userID,
		Title:    "OUT OF STOCK: Milk",
		Kind:     notifier.KindOutOfStock,
		Priority: notifier.PriorityUrgent,
	})
	require.NoError(t, err)

	summary, err := d.Summarize(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.TotalUnread)
	assert.Equal(t, 1, summary.ByKind[notifier.KindLowStock])
	assert.Equal(t, 1, summary.ByKind[notifier.KindOutOfStock])
	assert.Equal(t, 1, summary.ByPriority[notifier.PriorityUrgent])
	assert.Len(t, summary.Recent, 2)

	ok, err := d.MarkRead(context.Background(), first.ID, userID)
	require.NoError(t, err)
	require.True(t, ok)

	summary, err = d.Summarize(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.TotalUnread)
	assert.Zero(t, summary.ByKind[notifier.KindLowStock])
}

type flakyStorage struct {
	notifier.Storage
	failFor uuid.UUID
}

func (s *flakyStorage) CreateNotification(ctx context.Context, n notifier.Notification) error {
	if n.UserID == s.failFor {
		return errors.New("connection reset")
	}
	return s.Storage.CreateNotification(ctx, n)
}

func TestDispatcherDispatchBulk(t *testing.T) {
	t.Parallel()

	okUser := uuid.New()
	badUser := uuid.New()
	storage := &flakyStorage{Storage: notifier.NewMemoryStorage(), failFor: badUser}
	d := notifier.NewDispatcher(storage)

	outcomes := d.DispatchBulk(context.Background(), notifier.BulkRequest{
		UserIDs: []uuid.UUID{okUser, badUser},
		Title:   "Inventory count scheduled for Friday",
		Kind:    notifier.KindSystemAlert,
	})
	require.Len(t, outcomes, 2)

	assert.Equal(t, "processed", outcomes[0].Status)
	require.NotNil(t, outcomes[0].NotificationID)

	assert.Equal(t, "failed", outcomes[1].Status)
	assert.Contains(t, outcomes[1].Error, "connection reset")
	assert.Nil(t, outcomes[1].NotificationID)
}

func TestDispatcherUpdateAttemptStatus(t *testing.T) {
	t.Parallel()

	storage := notifier.NewMemoryStorage()
	userID := uuid.New()
	pref := notifier.DefaultPreference(userID)
	pref.Email = "chef@example.com"
	require.NoError(t, storage.SavePreference(context.Background(), pref))

	email := &fakeSink{}
	d := notifier.NewDispatcher(storage, notifier.WithSink(notifier.ChannelEmail, email))

	notif, err := d.Dispatch(context.Background(), notifier.Request{
		UserID:   userID,
		Title:    "Low Stock Alert: Sugar",
		Kind:     notifier.KindLowStock,
		Channels: []notifier.Channel{notifier.ChannelEmail},
	})
	require.NoError(t, err)

	attempts := attemptsByChannel(t, storage, notif.ID)
	attempt := attempts[notifier.ChannelEmail]
	require.Equal(t, notifier.StatusSent, attempt.Status)

	err = d.UpdateAttemptStatus(context.Background(), attempt.ID, notifier.StatusDelivered, "provider-123")
	require.NoError(t, err)

	updated, err := storage.GetAttempt(context.Background(), attempt.ID)
	require.NoError(t, err)
	assert.Equal(t, notifier.StatusDelivered, updated.Status)
	assert.Equal(t, "provider-123", updated.ProviderRef)
	require.NotNil(t, updated.DeliveredAt)

	err = d.UpdateAttemptStatus(context.Background(), uuid.New(), notifier.StatusDelivered, "")
	require.ErrorIs(t, err, notifier.ErrAttemptNotFound)
}
