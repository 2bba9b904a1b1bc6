package alerts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/forgeops/stocksync/pkg/notifier"
)

// PGStorage is the Postgres-backed rule Storage.
type PGStorage struct {
	pool *pgxpool.Pool
}

// NewPGStorage creates a Postgres rule storage backed by the given pool.
func NewPGStorage(pool *pgxpool.Pool) *PGStorage {
	return &PGStorage{pool: pool}
}

const ruleColumns = `id, user_id, name, kind, location_id, category, stock_threshold, days_until_expiration, channels, priority, active, quiet_hours, created_at, updated_at`

func (s *PGStorage) Create(ctx context.Context, r Rule) error {
	quiet, err := marshalQuietHours(r.QuietHours)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO alert_rules (`+ruleColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		r.ID, r.UserID, r.Name, r.Kind, r.LocationID, r.Category,
		r.Condition.StockThreshold, r.Condition.DaysUntilExpiration,
		channelStrings(r.Channels), r.Priority, r.Active, quiet,
		r.CreatedAt, r.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert alert rule: %w", err)
	}
	return nil
}

func (s *PGStorage) Get(ctx context.Context, id, userID uuid.UUID) (*Rule, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+ruleColumns+` FROM alert_rules
		WHERE id = $1 AND user_id = $2`, id, userID)
	r, err := scanRule(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRuleNotFound
		}
		return nil, fmt.Errorf("failed to query alert rule: %w", err)
	}
	return r, nil
}

func (s *PGStorage) Update(ctx context.Context, r Rule) error {
	quiet, err := marshalQuietHours(r.QuietHours)
	if err != nil {
		return err
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE alert_rules
		SET name = $3, kind = $4, location_id = $5, category = $6,
		    stock_threshold = $7, days_until_expiration = $8, channels = $9,
		    priority = $10, active = $11, quiet_hours = $12, updated_at = $13
		WHERE id = $1 AND user_id = $2`,
		r.ID, r.UserID, r.Name, r.Kind, r.LocationID, r.Category,
		r.Condition.StockThreshold, r.Condition.DaysUntilExpiration,
		channelStrings(r.Channels), r.Priority, r.Active, quiet, r.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update alert rule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRuleNotFound
	}
	return nil
}

func (s *PGStorage) Delete(ctx context.Context, id, userID uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM alert_rules WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete alert rule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRuleNotFound
	}
	return nil
}

func (s *PGStorage) ListByUser(ctx context.Context, userID uuid.UUID) ([]Rule, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+ruleColumns+` FROM alert_rules
		WHERE user_id = $1
		ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list alert rules: %w", err)
	}
	defer rows.Close()
	return collectRules(rows)
}

func (s *PGStorage) ListActiveByKind(ctx context.Context, kind notifier.Kind) ([]Rule, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+ruleColumns+` FROM alert_rules
		WHERE active AND kind = $1
		ORDER BY created_at`, kind)
	if err != nil {
		return nil, fmt.Errorf("failed to list active alert rules: %w", err)
	}
	defer rows.Close()
	return collectRules(rows)
}

func collectRules(rows pgx.Rows) ([]Rule, error) {
	var out []Rule
	for rows.Next() {
		r, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alert rule: %w", err)
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

func scanRule(row pgx.Row) (*Rule, error) {
	var r Rule
	var channels []string
	var quiet []byte
	if err := row.Scan(&r.ID, &r.UserID, &r.Name, &r.Kind, &r.LocationID,
		&r.Category, &r.Condition.StockThreshold, &r.Condition.DaysUntilExpiration,
		&channels, &r.Priority, &r.Active, &quiet, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	for _, ch := range channels {
		r.Channels = append(r.Channels, notifier.Channel(ch))
	}
	if len(quiet) > 0 {
		var w notifier.Window
		if err := json.Unmarshal(quiet, &w); err != nil {
			return nil, fmt.Errorf("failed to decode quiet hours: %w", err)
		}
		r.QuietHours = &w
	}
	return &r, nil
}

func channelStrings(channels []notifier.Channel) []string {
	out := make([]string, len(channels))
	for i, ch := range channels {
		out[i] = string(ch)
	}
	return out
}

func marshalQuietHours(w *notifier.Window) ([]byte, error) {
	if w == nil {
		return nil, nil
	}
	b, err := json.Marshal(w)
	if err != nil {
		return nil, fmt.Errorf("failed to encode quiet hours: %w", err)
	}
	return b, nil
}
