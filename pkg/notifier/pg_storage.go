package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStorage is the Postgres-backed Storage. Table layout lives in the goose
// migrations shipped with cmd/stocksync.
type PGStorage struct {
	pool *pgxpool.Pool
}

// NewPGStorage creates a Postgres storage backed by the given pool.
func NewPGStorage(pool *pgxpool.Pool) *PGStorage {
	return &PGStorage{pool: pool}
}

const notificationColumns = `id, rule_id, user_id, title, body, kind, priority, item_id, location_id, data, created_at, expires_at`

func (s *PGStorage) CreateNotification(ctx context.Context, n Notification) error {
	data, err := marshalJSONB(n.Data)
	if err != nil {
		return fmt.Errorf("failed to encode notification data: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO notifications (`+notificationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		n.ID, n.RuleID, n.UserID, n.Title, n.Body, n.Kind, n.Priority,
		n.ItemID, n.LocationID, data, n.CreatedAt, n.ExpiresAt)
	if err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}
	return nil
}

func (s *PGStorage) GetNotification(ctx context.Context, id uuid.UUID) (*Notification, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+notificationColumns+` FROM notifications WHERE id = $1`, id)
	n, err := scanNotification(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotificationNotFound
		}
		return nil, fmt.Errorf("failed to query notification: %w", err)
	}
	return n, nil
}

func (s *PGStorage) ListNotifications(ctx context.Context, userID uuid.UUID, opts ListOptions) ([]Notification, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT ` + notificationColumns + ` FROM notifications WHERE user_id = $1`)
	args := []any{userID}

	if opts.OnlyUnread {
		sb.WriteString(` AND NOT EXISTS (
			SELECT 1 FROM delivery_attempts a
			WHERE a.notification_id = notifications.id
			  AND a.channel = 'in_app' AND a.status = 'read')`)
	}
	if len(opts.Kinds) > 0 {
		args = append(args, opts.Kinds)
		fmt.Fprintf(&sb, ` AND kind = ANY($%d)`, len(args))
	}
	if opts.Since != nil {
		args = append(args, *opts.Since)
		fmt.Fprintf(&sb, ` AND created_at > $%d`, len(args))
	}
	sb.WriteString(` ORDER BY created_at DESC`)
	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		fmt.Fprintf(&sb, ` LIMIT $%d`, len(args))
	}
	if opts.Offset > 0 {
		args = append(args, opts.Offset)
		fmt.Fprintf(&sb, ` OFFSET $%d`, len(args))
	}

	rows, err := s.pool.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	var out []Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		out = append(out, *n)
	}
	return out, rows.Err()
}

func (s *PGStorage) LatestMatching(ctx context.Context, userID uuid.UUID, itemID, locationID *uuid.UUID, kind Kind) (*Notification, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+notificationColumns+` FROM notifications
		WHERE user_id = $1 AND kind = $2
		  AND item_id IS NOT DISTINCT FROM $3
		  AND location_id IS NOT DISTINCT FROM $4
		ORDER BY created_at DESC
		LIMIT 1`, userID, kind, itemID, locationID)
	n, err := scanNotification(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotificationNotFound
		}
		return nil, fmt.Errorf("failed to query latest notification: %w", err)
	}
	return n, nil
}

func scanNotification(row pgx.Row) (*Notification, error) {
	var n Notification
	var data []byte
	if err := row.Scan(&n.ID, &n.RuleID, &n.UserID, &n.Title, &n.Body, &n.Kind,
		&n.Priority, &n.ItemID, &n.LocationID, &data, &n.CreatedAt, &n.ExpiresAt); err != nil {
		return nil, err
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &n.Data); err != nil {
			return nil, fmt.Errorf("failed to decode notification data: %w", err)
		}
	}
	return &n, nil
}

const attemptColumns = `id, notification_id, channel, status, recipient, provider_ref, error_message, retry_count, sent_at, delivered_at, read_at, failed_at, created_at`

func (s *PGStorage) CreateAttempt(ctx context.Context, a DeliveryAttempt) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO delivery_attempts (`+attemptColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		a.ID, a.NotificationID, a.Channel, a.Status, a.Recipient, a.ProviderRef,
		a.ErrorMessage, a.RetryCount, a.SentAt, a.DeliveredAt, a.ReadAt, a.FailedAt, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert delivery attempt: %w", err)
	}
	return nil
}

func (s *PGStorage) UpdateAttempt(ctx context.Context, a DeliveryAttempt) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE delivery_attempts
		SET status = $2, provider_ref = $3, error_message = $4, retry_count = $5,
		    sent_at = $6, delivered_at = $7, read_at = $8, failed_at = $9
		WHERE id = $1`,
		a.ID, a.Status, a.ProviderRef, a.ErrorMessage, a.RetryCount,
		a.SentAt, a.DeliveredAt, a.ReadAt, a.FailedAt)
	if err != nil {
		return fmt.Errorf("failed to update delivery attempt: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAttemptNotFound
	}
	return nil
}

func (s *PGStorage) GetAttempt(ctx context.Context, id uuid.UUID) (*DeliveryAttempt, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+attemptColumns+` FROM delivery_attempts WHERE id = $1`, id)
	a, err := scanAttempt(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to query delivery attempt: %w", err)
	}
	return a, nil
}

func (s *PGStorage) AttemptsFor(ctx context.Context, notificationID uuid.UUID) ([]DeliveryAttempt, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+attemptColumns+` FROM delivery_attempts
		WHERE notification_id = $1
		ORDER BY created_at`, notificationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list delivery attempts: %w", err)
	}
	defer rows.Close()

	var out []DeliveryAttempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan delivery attempt: %w", err)
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func (s *PGStorage) InAppAttempt(ctx context.Context, notificationID uuid.UUID) (*DeliveryAttempt, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+attemptColumns+` FROM delivery_attempts
		WHERE notification_id = $1 AND channel = 'in_app'
		LIMIT 1`, notificationID)
	a, err := scanAttempt(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to query in-app attempt: %w", err)
	}
	return a, nil
}

func scanAttempt(row pgx.Row) (*DeliveryAttempt, error) {
	var a DeliveryAttempt
	if err := row.Scan(&a.ID, &a.NotificationID, &a.Channel, &a.Status, &a.Recipient,
		&a.ProviderRef, &a.ErrorMessage, &a.RetryCount,
		&a.SentAt, &a.DeliveredAt, &a.ReadAt, &a.FailedAt, &a.CreatedAt); err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *PGStorage) Preference(ctx context.Context, userID uuid.UUID) (*Preference, error) {
	var p Preference
	var overrides []byte
	err := s.pool.QueryRow(ctx, `
		SELECT user_id, email, phone_number, push_token,
		       email_enabled, sms_enabled, push_enabled, in_app_enabled,
		       quiet_hours_enabled, quiet_hours_start, quiet_hours_end,
		       kind_overrides, created_at, updated_at
		FROM notification_preferences WHERE user_id = $1`, userID).Scan(
		&p.UserID, &p.Email, &p.PhoneNumber, &p.PushToken,
		&p.EmailEnabled, &p.SMSEnabled, &p.PushEnabled, &p.InAppEnabled,
		&p.QuietHoursEnabled, &p.QuietHours.Start, &p.QuietHours.End,
		&overrides, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPreferenceNotFound
		}
		return nil, fmt.Errorf("failed to query preference: %w", err)
	}
	if len(overrides) > 0 {
		if err := json.Unmarshal(overrides, &p.KindOverrides); err != nil {
			return nil, fmt.Errorf("failed to decode kind overrides: %w", err)
		}
	}
	return &p, nil
}

func (s *PGStorage) SavePreference(ctx context.Context, p Preference) error {
	overrides, err := marshalJSONB(p.KindOverrides)
	if err != nil {
		return fmt.Errorf("failed to encode kind overrides: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO notification_preferences (
			user_id, email, phone_number, push_token,
			email_enabled, sms_enabled, push_enabled, in_app_enabled,
			quiet_hours_enabled, quiet_hours_start, quiet_hours_end,
			kind_overrides, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (user_id) DO UPDATE SET
			email = EXCLUDED.email,
			phone_number = EXCLUDED.phone_number,
			push_token = EXCLUDED.push_token,
			email_enabled = EXCLUDED.email_enabled,
			sms_enabled = EXCLUDED.sms_enabled,
			push_enabled = EXCLUDED.push_enabled,
			in_app_enabled = EXCLUDED.in_app_enabled,
			quiet_hours_enabled = EXCLUDED.quiet_hours_enabled,
			quiet_hours_start = EXCLUDED.quiet_hours_start,
			quiet_hours_end = EXCLUDED.quiet_hours_end,
			kind_overrides = EXCLUDED.kind_overrides,
			updated_at = EXCLUDED.updated_at`,
		p.UserID, p.Email, p.PhoneNumber, p.PushToken,
		p.EmailEnabled, p.SMSEnabled, p.PushEnabled, p.InAppEnabled,
		p.QuietHoursEnabled, p.QuietHours.Start, p.QuietHours.End,
		overrides, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save preference: %w", err)
	}
	return nil
}

func (s *PGStorage) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	// delivery_attempts rows go with the notification via ON DELETE CASCADE.
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM notifications WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old notifications: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func marshalJSONB(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}
