package syncer

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/forgeops/stocksync/pkg/logger"
	"github.com/forgeops/stocksync/pkg/stock"
)

// ItemEvaluator runs a targeted alert pass after a stock change.
type ItemEvaluator interface {
	EvaluateItem(ctx context.Context, itemID, locationID uuid.UUID) error
}

// ChangeBroadcaster relays an applied stock change to live sessions watching
// the touched location.
type ChangeBroadcaster interface {
	BroadcastStockChange(level stock.Level, change float64, kind stock.MovementKind)
}

// Reconciler applies batches of offline operations against the stock
// provider. Operations within a batch resolve independently; one bad op
// never aborts its siblings.
type Reconciler struct {
	levels      stock.Provider
	ledger      Ledger
	evaluator   ItemEvaluator
	broadcaster ChangeBroadcaster
	logger      *slog.Logger
	now         func() time.Time

	keys *keyMutex
}

// ReconcilerOption configures a Reconciler.
type ReconcilerOption func(*Reconciler)

// WithLedger sets the dedup ledger. Defaults to a 7-day memory ledger.
func WithLedger(l Ledger) ReconcilerOption {
	return func(r *Reconciler) {
		if l != nil {
			r.ledger = l
		}
	}
}

// WithItemEvaluator sets the alert pass run after each applied operation.
func WithItemEvaluator(e ItemEvaluator) ReconcilerOption {
	return func(r *Reconciler) {
		r.evaluator = e
	}
}

// WithChangeBroadcaster sets the live relay for applied changes.
func WithChangeBroadcaster(b ChangeBroadcaster) ReconcilerOption {
	return func(r *Reconciler) {
		r.broadcaster = b
	}
}

// WithReconcilerLogger sets the logger for the Reconciler.
func WithReconcilerLogger(log *slog.Logger) ReconcilerOption {
	return func(r *Reconciler) {
		if log != nil {
			r.logger = log
		}
	}
}

// WithReconcilerClock overrides the time source.
func WithReconcilerClock(now func() time.Time) ReconcilerOption {
	return func(r *Reconciler) {
		if now != nil {
			r.now = now
		}
	}
}

// NewReconciler creates a batch reconciler over the given stock provider.
func NewReconciler(levels stock.Provider, opts ...ReconcilerOption) *Reconciler {
	r := &Reconciler{
		levels: levels,
		ledger: NewMemoryLedger(7 * 24 * time.Hour),
		logger: slog.Default(),
		now:    time.Now,
		keys:   newKeyMutex(),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// ApplyBatch applies every operation in order, producing one outcome per
// operation keyed by its client-local id. Operations touching the same
// (item, location) are serialized; the batch as a whole is not transactional.
// When lastSync is non-zero the result also carries levels the server has
// changed since then, so the client can refresh its local cache.
func (r *Reconciler) ApplyBatch(ctx context.Context, userID uuid.UUID, ops []Operation, lastSync time.Time) (*BatchResult, error) {
	if len(ops) == 0 {
		return nil, ErrEmptyBatch
	}

	result := &BatchResult{
		Outcomes: make([]Outcome, 0, len(ops)),
	}

	for _, op := range ops {
		outcome := r.applyOne(ctx, userID, op)
		switch outcome.Status {
		case StatusProcessed:
			result.Processed++
		case StatusDuplicate:
			result.Duplicate++
		default:
			result.Failed++
		}
		result.Outcomes = append(result.Outcomes, outcome)
	}

	result.SyncedAt = r.now()

	if !lastSync.IsZero() {
		changed, err := r.changedSince(ctx, lastSync)
		if err != nil {
			r.logger.WarnContext(ctx, "failed to collect server changes",
				logger.UserID(userID), logger.Error(err))
		} else {
			result.ServerChanges = changed
		}
	}

	r.logger.InfoContext(ctx, "applied sync batch",
		logger.UserID(userID),
		slog.Int("processed", result.Processed),
		slog.Int("failed", result.Failed),
		slog.Int("duplicate", result.Duplicate))

	return result, nil
}

func (r *Reconciler) applyOne(ctx context.Context, userID uuid.UUID, op Operation) Outcome {
	outcome := Outcome{LocalID: op.LocalID}

	if err := op.Validate(); err != nil {
		outcome.Status = StatusFailed
		outcome.Error = err.Error()
		return outcome
	}

	key := itemKey{item: op.ItemID, location: op.LocationID}
	r.keys.lock(key)
	defer r.keys.unlock(key)

	first, err := r.ledger.MarkApplied(ctx, userID, op.LocalID)
	if err != nil {
		// A dead ledger must not block syncing. Apply anyway and accept the
		// small replay window.
		r.logger.WarnContext(ctx, "dedup ledger unavailable, applying without dedup",
			logger.UserID(userID), logger.Error(err))
		first = true
	} else if !first {
		outcome.Status = StatusDuplicate
		return outcome
	}

	level, err := r.levels.ApplyDelta(ctx, stock.Delta{
		ItemID:     op.ItemID,
		LocationID: op.LocationID,
		Change:     op.Change,
		UserID:     userID,
		Kind:       op.Kind,
		Notes:      op.Notes,
	})
	if err != nil {
		if ferr := r.ledger.Forget(ctx, userID, op.LocalID); ferr != nil {
			r.logger.WarnContext(ctx, "failed to release ledger entry",
				logger.UserID(userID), logger.Error(ferr))
		}
		outcome.Status = StatusFailed
		if errors.Is(err, stock.ErrStockNotFound) {
			outcome.Error = "unknown item or location"
		} else {
			outcome.Error = err.Error()
		}
		return outcome
	}

	serverID := uuid.New()
	quantity := level.Quantity
	outcome.Status = StatusProcessed
	outcome.ServerID = &serverID
	outcome.NewQuantity = &quantity

	if r.broadcaster != nil {
		r.broadcaster.BroadcastStockChange(level, op.Change, op.Kind)
	}
	if r.evaluator != nil {
		if err := r.evaluator.EvaluateItem(ctx, op.ItemID, op.LocationID); err != nil {
			r.logger.WarnContext(ctx, "post-sync alert pass failed",
				logger.ItemID(op.ItemID),
				logger.LocationID(op.LocationID),
				logger.Error(err))
		}
	}

	return outcome
}

// changedSince lists levels the server updated after the client's last sync.
func (r *Reconciler) changedSince(ctx context.Context, lastSync time.Time) ([]stock.Level, error) {
	levels, err := r.levels.List(ctx, stock.Filter{})
	if err != nil {
		return nil, err
	}
	var changed []stock.Level
	for _, l := range levels {
		if l.UpdatedAt.After(lastSync) {
			changed = append(changed, l)
		}
	}
	return changed, nil
}
