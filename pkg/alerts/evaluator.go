package alerts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/forgeops/stocksync/pkg/logger"
	"github.com/forgeops/stocksync/pkg/notifier"
	"github.com/forgeops/stocksync/pkg/stock"
)

// Severity labels carried on live stock alerts.
const (
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Config holds the per-kind cooldown windows. A fired alert suppresses
// repeats for the same (user, item, location, kind) within its window.
type Config struct {
	LowStockCooldown   time.Duration `env:"ALERT_LOW_STOCK_COOLDOWN" envDefault:"24h"`
	OutOfStockCooldown time.Duration `env:"ALERT_OUT_OF_STOCK_COOLDOWN" envDefault:"12h"`
	ExpirationCooldown time.Duration `env:"ALERT_EXPIRATION_COOLDOWN" envDefault:"24h"`
}

func (c Config) cooldownFor(kind notifier.Kind) time.Duration {
	switch kind {
	case notifier.KindOutOfStock:
		return c.OutOfStockCooldown
	case notifier.KindExpirationWarning:
		return c.ExpirationCooldown
	default:
		return c.LowStockCooldown
	}
}

// Dispatcher is the slice of the notification dispatcher the evaluator needs.
type Dispatcher interface {
	Dispatch(ctx context.Context, req notifier.Request) (*notifier.Notification, error)
}

// RecencyStore answers "when did this alert last fire" for cooldowns.
type RecencyStore interface {
	LatestMatching(ctx context.Context, userID uuid.UUID, itemID, locationID *uuid.UUID, kind notifier.Kind) (*notifier.Notification, error)
}

// Announcer relays fired stock alerts to connected live sessions. Best
// effort; a nil announcer disables the relay.
type Announcer interface {
	AnnounceStockAlert(level stock.Level, severity string)
}

// Evaluator walks active alert rules against current stock levels and
// dispatches notifications for rules whose conditions hold.
type Evaluator struct {
	rules      Storage
	levels     stock.Provider
	dispatcher Dispatcher
	recent     RecencyStore
	announcer  Announcer
	cfg        Config
	logger     *slog.Logger
	now        func() time.Time
}

// EvaluatorOption configures an Evaluator.
type EvaluatorOption func(*Evaluator)

// WithCooldowns overrides the default cooldown windows.
func WithCooldowns(cfg Config) EvaluatorOption {
	return func(e *Evaluator) {
		if cfg.LowStockCooldown > 0 {
			e.cfg.LowStockCooldown = cfg.LowStockCooldown
		}
		if cfg.OutOfStockCooldown > 0 {
			e.cfg.OutOfStockCooldown = cfg.OutOfStockCooldown
		}
		if cfg.ExpirationCooldown > 0 {
			e.cfg.ExpirationCooldown = cfg.ExpirationCooldown
		}
	}
}

// WithAnnouncer sets the live relay for fired stock alerts.
func WithAnnouncer(a Announcer) EvaluatorOption {
	return func(e *Evaluator) {
		e.announcer = a
	}
}

// WithEvaluatorLogger sets the logger for the Evaluator.
func WithEvaluatorLogger(log *slog.Logger) EvaluatorOption {
	return func(e *Evaluator) {
		if log != nil {
			e.logger = log
		}
	}
}

// WithEvaluatorClock overrides the time source. Used by cooldown tests.
func WithEvaluatorClock(now func() time.Time) EvaluatorOption {
	return func(e *Evaluator) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEvaluator creates a rule evaluator.
func NewEvaluator(rules Storage, levels stock.Provider, dispatcher Dispatcher, recent RecencyStore, opts ...EvaluatorOption) *Evaluator {
	e := &Evaluator{
		rules:      rules,
		levels:     levels,
		dispatcher: dispatcher,
		recent:     recent,
		cfg: Config{
			LowStockCooldown:   24 * time.Hour,
			OutOfStockCooldown: 12 * time.Hour,
			ExpirationCooldown: 24 * time.Hour,
		},
		logger: slog.Default(),
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// fireKey dedupes dispatches within one pass: at most one notification per
// (rule, item, location) regardless of how many levels match.
type fireKey struct {
	rule     uuid.UUID
	item     uuid.UUID
	location uuid.UUID
}

func stockKinds() []notifier.Kind {
	return []notifier.Kind{notifier.KindLowStock, notifier.KindOutOfStock}
}

// EvaluateAll runs a full pass over every evaluated kind. Rule failures are
// isolated: a broken rule is logged and skipped, the pass continues, and all
// failures come back joined.
func (e *Evaluator) EvaluateAll(ctx context.Context) error {
	return e.evaluateKinds(ctx, notifier.KindLowStock, notifier.KindOutOfStock, notifier.KindExpirationWarning)
}

// EvaluateStock runs a pass over low-stock and out-of-stock rules only. The
// scheduler runs this on a tighter cadence than the full pass.
func (e *Evaluator) EvaluateStock(ctx context.Context) error {
	return e.evaluateKinds(ctx, stockKinds()...)
}

// EvaluateExpirations runs a pass over expiration-warning rules only.
func (e *Evaluator) EvaluateExpirations(ctx context.Context) error {
	return e.evaluateKinds(ctx, notifier.KindExpirationWarning)
}

func (e *Evaluator) evaluateKinds(ctx context.Context, kinds ...notifier.Kind) error {
	seen := make(map[fireKey]struct{})
	var errs []error

	for _, kind := range kinds {
		rules, err := e.rules.ListActiveByKind(ctx, kind)
		if err != nil {
			errs = append(errs, fmt.Errorf("%w: listing %s rules: %v", ErrEvaluationFailed, kind, err))
			continue
		}
		for _, rule := range rules {
			if err := e.evaluateRule(ctx, rule, seen); err != nil {
				e.logger.ErrorContext(ctx, "rule evaluation failed",
					logger.RuleID(rule.ID),
					slog.String("kind", string(rule.Kind)),
					logger.Error(err))
				errs = append(errs, fmt.Errorf("%w: rule %s: %v", ErrEvaluationFailed, rule.ID, err))
			}
		}
	}

	return errors.Join(errs...)
}

// evaluateRule checks one rule against every level in its scope. Panics from
// a single rule are contained here so one bad rule cannot take down a pass.
func (e *Evaluator) evaluateRule(ctx context.Context, rule Rule, seen map[fireKey]struct{}) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	levels, err := e.levels.List(ctx, stock.Filter{
		LocationID: rule.LocationID,
		Category:   rule.Category,
	})
	if err != nil {
		return fmt.Errorf("listing stock levels: %w", err)
	}

	for _, level := range levels {
		if !fires(rule, level) {
			continue
		}
		if err := e.fire(ctx, rule, level, seen); err != nil {
			return err
		}
	}
	return nil
}

// EvaluateItem runs a targeted pass for one (item, location) pair. The live
// and offline stock-change paths call this after every applied delta so
// threshold crossings alert immediately instead of waiting for the next
// scheduled pass.
func (e *Evaluator) EvaluateItem(ctx context.Context, itemID, locationID uuid.UUID) error {
	level, err := e.levels.Get(ctx, itemID, locationID)
	if err != nil {
		if errors.Is(err, stock.ErrStockNotFound) {
			return nil
		}
		return err
	}

	seen := make(map[fireKey]struct{})
	var errs []error

	for _, kind := range stockKinds() {
		rules, err := e.rules.ListActiveByKind(ctx, kind)
		if err != nil {
			errs = append(errs, fmt.Errorf("%w: listing %s rules: %v", ErrEvaluationFailed, kind, err))
			continue
		}
		for _, rule := range rules {
			if !ruleCovers(rule, level) || !fires(rule, level) {
				continue
			}
			if err := e.fire(ctx, rule, level, seen); err != nil {
				errs = append(errs, fmt.Errorf("%w: rule %s: %v", ErrEvaluationFailed, rule.ID, err))
			}
		}
	}

	return errors.Join(errs...)
}

// ruleCovers reports whether a level falls inside the rule's scope.
func ruleCovers(rule Rule, level stock.Level) bool {
	if rule.LocationID != nil && *rule.LocationID != level.LocationID {
		return false
	}
	if rule.Category != "" && rule.Category != level.Category {
		return false
	}
	return true
}

// fires evaluates the rule's trigger condition against one level.
func fires(rule Rule, level stock.Level) bool {
	switch rule.Kind {
	case notifier.KindLowStock:
		return rule.Condition.StockThreshold != nil && level.Quantity <= *rule.Condition.StockThreshold
	case notifier.KindOutOfStock:
		return level.Quantity <= 0
	case notifier.KindExpirationWarning:
		return rule.Condition.DaysUntilExpiration != nil &&
			level.ShelfLifeDays > 0 &&
			level.ShelfLifeDays <= *rule.Condition.DaysUntilExpiration
	}
	return false
}

// fire dispatches one alert, applying per-pass dedup and cooldown
// suppression first.
func (e *Evaluator) fire(ctx context.Context, rule Rule, level stock.Level, seen map[fireKey]struct{}) error {
	key := fireKey{rule: rule.ID, item: level.ItemID, location: level.LocationID}
	if _, ok := seen[key]; ok {
		return nil
	}
	seen[key] = struct{}{}

	suppressed, err := e.inCooldown(ctx, rule, level)
	if err != nil {
		return err
	}
	if suppressed {
		e.logger.DebugContext(ctx, "alert suppressed by cooldown",
			logger.RuleID(rule.ID),
			logger.ItemID(level.ItemID),
			logger.LocationID(level.LocationID))
		return nil
	}

	title, body := alertMessage(rule.Kind, rule.Condition, level)
	itemID, locationID := level.ItemID, level.LocationID
	severity := severityFor(level)

	_, err = e.dispatcher.Dispatch(ctx, notifier.Request{
		UserID:     rule.UserID,
		RuleID:     &rule.ID,
		Title:      title,
		Body:       body,
		Kind:       rule.Kind,
		Priority:   rule.priorityOrDefault(),
		ItemID:     &itemID,
		LocationID: &locationID,
		Channels:   rule.Channels,
		Data: map[string]any{
			"item_name": level.ItemName,
			"quantity":  level.Quantity,
			"severity":  severity,
			"rule_name": rule.Name,
			"category":  level.Category,
		},
	})
	if err != nil {
		return fmt.Errorf("dispatching alert: %w", err)
	}

	if e.announcer != nil && rule.Kind != notifier.KindExpirationWarning {
		e.announcer.AnnounceStockAlert(level, severity)
	}

	return nil
}

// inCooldown reports whether the same alert fired recently enough that this
// occurrence should be suppressed.
func (e *Evaluator) inCooldown(ctx context.Context, rule Rule, level stock.Level) (bool, error) {
	itemID, locationID := level.ItemID, level.LocationID
	last, err := e.recent.LatestMatching(ctx, rule.UserID, &itemID, &locationID, rule.Kind)
	if err != nil {
		if errors.Is(err, notifier.ErrNotificationNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("checking cooldown: %w", err)
	}
	return e.now().Sub(last.CreatedAt) < e.cfg.cooldownFor(rule.Kind), nil
}

func severityFor(level stock.Level) string {
	if level.Quantity <= 0 {
		return SeverityCritical
	}
	return SeverityWarning
}

// alertMessage builds the user-facing title and body for one fired alert.
func alertMessage(kind notifier.Kind, cond Condition, level stock.Level) (title, body string) {
	switch kind {
	case notifier.KindOutOfStock:
		title = "OUT OF STOCK: " + level.ItemName
		body = fmt.Sprintf("%s is completely out of stock and needs immediate restocking.", level.ItemName)
	case notifier.KindExpirationWarning:
		days := 0
		if cond.DaysUntilExpiration != nil {
			days = *cond.DaysUntilExpiration
		}
		title = "Expiration Warning: " + level.ItemName
		body = fmt.Sprintf("%s expires within %d days. Plan usage or disposal.", level.ItemName, days)
	default:
		threshold := level.ReorderPoint
		if cond.StockThreshold != nil {
			threshold = *cond.StockThreshold
		}
		title = "Low Stock Alert: " + level.ItemName
		body = fmt.Sprintf("%s is running low. Current stock: %.1f, Threshold: %.1f",
			level.ItemName, level.Quantity, threshold)
	}
	return title, body
}
