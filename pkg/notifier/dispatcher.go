package notifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/forgeops/stocksync/pkg/async"
	"github.com/forgeops/stocksync/pkg/logger"
)

// LivePusher pushes a freshly created notification to the owner's live
// session, if one is connected. Best effort: the in-app attempt is considered
// delivered by the stored record alone.
type LivePusher interface {
	Push(userID string, n Notification)
}

// Request describes one notification to dispatch.
type Request struct {
	UserID     uuid.UUID
	RuleID     *uuid.UUID
	Title      string
	Body       string
	Kind       Kind
	Priority   Priority
	ItemID     *uuid.UUID
	LocationID *uuid.UUID
	Data       map[string]any
	ExpiresAt  *time.Time

	// Channels requested by the triggering rule or caller. Empty defaults
	// to in-app only.
	Channels []Channel
}

// Validate rejects structurally incomplete requests.
func (r Request) Validate() error {
	if r.UserID == uuid.Nil {
		return fmt.Errorf("%w: user id is required", ErrInvalidRequest)
	}
	if r.Title == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidRequest)
	}
	if r.Kind == "" {
		return fmt.Errorf("%w: kind is required", ErrInvalidRequest)
	}
	if r.Priority != "" && !r.Priority.Valid() {
		return fmt.Errorf("%w: unknown priority %q", ErrInvalidRequest, r.Priority)
	}
	for _, ch := range r.Channels {
		if !ch.Valid() {
			return fmt.Errorf("%w: unknown channel %q", ErrInvalidRequest, ch)
		}
	}
	return nil
}

// Dispatcher turns dispatch requests into persisted notifications and
// per-channel delivery attempts, honoring user preferences and quiet hours.
type Dispatcher struct {
	storage Storage
	sinks   map[Channel]Sink
	live    LivePusher
	logger  *slog.Logger
	now     func() time.Time
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithSink registers the sink used for one external channel.
func WithSink(ch Channel, s Sink) DispatcherOption {
	return func(d *Dispatcher) {
		if ch != ChannelInApp && s != nil {
			d.sinks[ch] = s
		}
	}
}

// WithLivePusher sets the live push surface for in-app notifications.
func WithLivePusher(p LivePusher) DispatcherOption {
	return func(d *Dispatcher) {
		d.live = p
	}
}

// WithDispatcherLogger sets the logger for the Dispatcher.
func WithDispatcherLogger(log *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if log != nil {
			d.logger = log
		}
	}
}

// WithDispatcherClock overrides the time source. Used by temporal tests.
func WithDispatcherClock(now func() time.Time) DispatcherOption {
	return func(d *Dispatcher) {
		if now != nil {
			d.now = now
		}
	}
}

// NewDispatcher creates a notification dispatcher.
func NewDispatcher(storage Storage, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		storage: storage,
		sinks:   make(map[Channel]Sink),
		logger:  slog.Default(),
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Dispatch persists the notification, applies preference and quiet-hours
// gates, and attempts delivery on each surviving channel independently. The
// returned notification exists even when every delivery attempt failed or
// quiet hours suppressed delivery entirely.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (*Notification, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.Priority == "" {
		req.Priority = PriorityMedium
	}

	now := d.now()
	notif := Notification{
		ID:         uuid.New(),
		RuleID:     req.RuleID,
		UserID:     req.UserID,
		Title:      req.Title,
		Body:       req.Body,
		Kind:       req.Kind,
		Priority:   req.Priority,
		ItemID:     req.ItemID,
		LocationID: req.LocationID,
		Data:       req.Data,
		CreatedAt:  now,
		ExpiresAt:  req.ExpiresAt,
	}

	// Store first: the record must survive even if every delivery fails.
	if err := d.storage.CreateNotification(ctx, notif); err != nil {
		return nil, fmt.Errorf("failed to store notification: %w", err)
	}

	pref := d.resolvePreference(ctx, req.UserID)

	if pref.QuietHoursEnabled && pref.QuietHours.Contains(now) && notif.Priority != PriorityUrgent {
		d.logger.InfoContext(ctx, "suppressing delivery during quiet hours",
			logger.NotificationID(notif.ID),
			logger.UserID(notif.UserID),
			slog.String("priority", string(notif.Priority)))
		return &notif, nil
	}

	channels := req.Channels
	if len(channels) == 0 {
		channels = []Channel{ChannelInApp}
	}

	var external []Channel
	for _, ch := range dedupeChannels(channels) {
		if !pref.ChannelEnabled(notif.Kind, ch) {
			continue
		}
		if ch == ChannelInApp {
			d.deliverInApp(ctx, notif, pref)
			continue
		}
		if (ch == ChannelSMS || ch == ChannelPush) && pref.RecipientFor(ch) == "" {
			d.logger.DebugContext(ctx, "skipping channel without recipient",
				logger.NotificationID(notif.ID),
				logger.Channel(string(ch)))
			continue
		}
		external = append(external, ch)
	}

	// External sends are independent units of work: run them in parallel and
	// record one attempt per channel regardless of sibling outcomes.
	futures := make([]*async.Future[DeliveryAttempt], len(external))
	for i, ch := range external {
		futures[i] = async.Async(ctx, ch, func(ctx context.Context, ch Channel) (DeliveryAttempt, error) {
			return d.attemptExternal(ctx, ch, notif, pref), nil
		})
	}
	attempts, errs := async.CollectAll(futures...)
	for i, attempt := range attempts {
		// A future that never ran (canceled context) yields a zero-value
		// attempt; there is nothing real to record.
		if errs[i] != nil || attempt.ID == uuid.Nil {
			d.logger.WarnContext(ctx, "channel send did not run",
				logger.NotificationID(notif.ID),
				logger.Channel(string(external[i])),
				logger.Error(errs[i]))
			continue
		}
		d.recordAttempt(ctx, attempt)
	}

	return &notif, nil
}

// resolvePreference loads the user's preference, lazily creating the default
// when absent. A storage failure degrades to the in-memory default so a
// broken preference row never blocks an alert.
func (d *Dispatcher) resolvePreference(ctx context.Context, userID uuid.UUID) Preference {
	pref, err := d.storage.Preference(ctx, userID)
	if err == nil {
		return *pref
	}

	def := DefaultPreference(userID)
	def.CreatedAt = d.now()
	def.UpdatedAt = def.CreatedAt

	if errors.Is(err, ErrPreferenceNotFound) {
		if err := d.storage.SavePreference(ctx, def); err != nil {
			d.logger.WarnContext(ctx, "failed to persist default preference",
				logger.UserID(userID), logger.Error(err))
		}
	} else {
		d.logger.WarnContext(ctx, "failed to load preference, using defaults",
			logger.UserID(userID), logger.Error(err))
	}

	return def
}

// deliverInApp records the in-app attempt as already delivered: the stored
// notification is the delivery. The live push is best effort on top.
func (d *Dispatcher) deliverInApp(ctx context.Context, notif Notification, pref Preference) {
	now := d.now()
	attempt := DeliveryAttempt{
		ID:             uuid.New(),
		NotificationID: notif.ID,
		Channel:        ChannelInApp,
		Status:         StatusDelivered,
		Recipient:      pref.RecipientFor(ChannelInApp),
		SentAt:         &now,
		DeliveredAt:    &now,
		CreatedAt:      now,
	}
	d.recordAttempt(ctx, attempt)

	if d.live != nil {
		d.live.Push(notif.UserID.String(), notif)
	}
}

// attemptExternal invokes the channel's sink and builds the attempt record.
func (d *Dispatcher) attemptExternal(ctx context.Context, ch Channel, notif Notification, pref Preference) DeliveryAttempt {
	now := d.now()
	attempt := DeliveryAttempt{
		ID:             uuid.New(),
		NotificationID: notif.ID,
		Channel:        ch,
		Recipient:      pref.RecipientFor(ch),
		CreatedAt:      now,
	}

	sink, ok := d.sinks[ch]
	if !ok {
		attempt.Status = StatusFailed
		attempt.ErrorMessage = ErrNoSink.Error()
		attempt.FailedAt = &now
		return attempt
	}

	if attempt.Recipient == "" {
		attempt.Status = StatusFailed
		attempt.ErrorMessage = ErrNoRecipient.Error()
		attempt.FailedAt = &now
		return attempt
	}

	providerRef, err := sink.Send(ctx, attempt.Recipient, notif.Title, notif.Body)
	sentAt := d.now()
	if err != nil {
		attempt.Status = StatusFailed
		attempt.ErrorMessage = err.Error()
		attempt.FailedAt = &sentAt
		d.logger.WarnContext(ctx, "channel delivery failed",
			logger.NotificationID(notif.ID),
			logger.Channel(string(ch)),
			logger.Error(err))
		return attempt
	}

	attempt.Status = StatusSent
	attempt.ProviderRef = providerRef
	attempt.SentAt = &sentAt
	return attempt
}

func (d *Dispatcher) recordAttempt(ctx context.Context, attempt DeliveryAttempt) {
	if err := d.storage.CreateAttempt(ctx, attempt); err != nil {
		d.logger.ErrorContext(ctx, "failed to record delivery attempt",
			logger.NotificationID(attempt.NotificationID),
			logger.Channel(string(attempt.Channel)),
			logger.Error(err))
	}
}

func dedupeChannels(channels []Channel) []Channel {
	seen := make(map[Channel]struct{}, len(channels))
	out := make([]Channel, 0, len(channels))
	for _, ch := range channels {
		if _, ok := seen[ch]; ok {
			continue
		}
		seen[ch] = struct{}{}
		out = append(out, ch)
	}
	return out
}

// MarkRead transitions the notification's in-app attempt to read. Returns
// false when the notification does not exist, is not owned by the user, or
// has no in-app attempt.
func (d *Dispatcher) MarkRead(ctx context.Context, notificationID, userID uuid.UUID) (bool, error) {
	notif, err := d.storage.GetNotification(ctx, notificationID)
	if err != nil {
		if errors.Is(err, ErrNotificationNotFound) {
			return false, nil
		}
		return false, err
	}
	if notif.UserID != userID {
		return false, nil
	}

	attempt, err := d.storage.InAppAttempt(ctx, notificationID)
	if err != nil {
		if errors.Is(err, ErrAttemptNotFound) {
			return false, nil
		}
		return false, err
	}

	now := d.now()
	attempt.Status = StatusRead
	attempt.ReadAt = &now
	if err := d.storage.UpdateAttempt(ctx, *attempt); err != nil {
		return false, err
	}
	return true, nil
}

// UpdateAttemptStatus is the entry point for provider status callbacks
// (delivery receipts, bounce webhooks). It applies the status with the
// matching timestamp.
func (d *Dispatcher) UpdateAttemptStatus(ctx context.Context, attemptID uuid.UUID, status AttemptStatus, providerRef string) error {
	attempt, err := d.storage.GetAttempt(ctx, attemptID)
	if err != nil {
		return err
	}

	now := d.now()
	attempt.Status = status
	if providerRef != "" {
		attempt.ProviderRef = providerRef
	}
	switch status {
	case StatusSent:
		attempt.SentAt = &now
	case StatusDelivered:
		attempt.DeliveredAt = &now
	case StatusRead:
		attempt.ReadAt = &now
	case StatusFailed:
		attempt.FailedAt = &now
	}

	return d.storage.UpdateAttempt(ctx, *attempt)
}

// Summary aggregates a user's unread notifications for dashboards.
type Summary struct {
	TotalUnread int              `json:"total_unread"`
	ByKind      map[Kind]int     `json:"by_kind"`
	ByPriority  map[Priority]int `json:"by_priority"`
	Recent      []Notification   `json:"recent"`
}

// Summarize computes unread counts by kind and priority plus the ten most
// recent notifications. "Unread" means no READ in-app attempt exists.
func (d *Dispatcher) Summarize(ctx context.Context, userID uuid.UUID) (*Summary, error) {
	unread, err := d.storage.ListNotifications(ctx, userID, ListOptions{OnlyUnread: true})
	if err != nil {
		return nil, err
	}

	s := &Summary{
		TotalUnread: len(unread),
		ByKind:      make(map[Kind]int),
		ByPriority:  make(map[Priority]int),
	}
	for _, n := range unread {
		s.ByKind[n.Kind]++
		s.ByPriority[n.Priority]++
	}

	recent, err := d.storage.ListNotifications(ctx, userID, ListOptions{Limit: 10})
	if err != nil {
		return nil, err
	}
	s.Recent = recent

	return s, nil
}

// List returns a user's notifications with the given options.
func (d *Dispatcher) List(ctx context.Context, userID uuid.UUID, opts ListOptions) ([]Notification, error) {
	return d.storage.ListNotifications(ctx, userID, opts)
}

// BulkRequest fans one message out to several users.
type BulkRequest struct {
	UserIDs    []uuid.UUID
	Title      string
	Body       string
	Kind       Kind
	Priority   Priority
	ItemID     *uuid.UUID
	LocationID *uuid.UUID
	Data       map[string]any
	ExpiresAt  *time.Time
	Channels   []Channel
}

// BulkOutcome reports one user's result from a bulk dispatch.
type BulkOutcome struct {
	UserID         uuid.UUID  `json:"user_id"`
	NotificationID *uuid.UUID `json:"notification_id,omitempty"`
	Status         string     `json:"status"` // processed or failed
	Error          string     `json:"error,omitempty"`
}

// DispatchBulk runs the full per-user dispatch pipeline for every target
// user independently. Partial success is expected and reported per user.
func (d *Dispatcher) DispatchBulk(ctx context.Context, req BulkRequest) []BulkOutcome {
	outcomes := make([]BulkOutcome, 0, len(req.UserIDs))

	for _, userID := range req.UserIDs {
		notif, err := d.Dispatch(ctx, Request{
			UserID:     userID,
			Title:      req.Title,
			Body:       req.Body,
			Kind:       req.Kind,
			Priority:   req.Priority,
			ItemID:     req.ItemID,
			LocationID: req.LocationID,
			Data:       req.Data,
			ExpiresAt:  req.ExpiresAt,
			Channels:   req.Channels,
		})
		if err != nil {
			outcomes = append(outcomes, BulkOutcome{
				UserID: userID,
				Status: "failed",
				Error:  err.Error(),
			})
			continue
		}
		outcomes = append(outcomes, BulkOutcome{
			UserID:         userID,
			NotificationID: &notif.ID,
			Status:         "processed",
		})
	}

	return outcomes
}

// DeleteOlderThan removes notifications and their attempts past the
// retention horizon. Used by the scheduler's cleanup task.
func (d *Dispatcher) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	return d.storage.DeleteOlderThan(ctx, cutoff)
}

// Storage exposes the underlying storage for collaborating components
// (rule evaluation consults recent notifications through it).
func (d *Dispatcher) Storage() Storage {
	return d.storage
}
