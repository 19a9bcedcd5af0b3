package store

import (
	"context"
	"fmt"
	"time"

	"github.com/beewell/momentum/internal/domain/model"
	"github.com/beewell/momentum/internal/domain/validate"
)

// InsertNotification writes a notification row after running the payload
// gate. A duplicate (user, type, trigger_date) maps to ErrConflict; the
// unique index makes the rate-limit window race-proof.
func (s *Store) InsertNotification(ctx context.Context, n model.NotificationRecord) error {
	if res := validate.UserID(n.UserID); !res.Valid {
		return fmt.Errorf("insert notification: %w", res.Err())
	}
	if res := validate.NotificationPayload(n.Type, n.Title, n.Message, n.ActionType); !res.Valid {
		return fmt.Errorf("insert notification: %w", res.Err())
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO momentum_notifications
			(id, user_id, notification_type, trigger_date, title, message, action_type, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.UserID, n.Type, model.FormatDate(n.TriggerDate),
		n.Title, n.Message, n.ActionType, n.Status, n.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("notification %s/%s on %s: %w",
				n.UserID, n.Type, model.FormatDate(n.TriggerDate), model.ErrConflict)
		}
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// HasNotificationOn reports whether a notification of the given type
// already exists for the user on the given date.
func (s *Store) HasNotificationOn(ctx context.Context, userID, notificationType string, day time.Time) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM momentum_notifications
		WHERE user_id = ? AND notification_type = ? AND trigger_date = ?`,
		userID, notificationType, model.FormatDate(day),
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check notification ledger: %w", err)
	}
	return count > 0, nil
}

// NotificationsForUser returns the user's notifications, newest first.
func (s *Store) NotificationsForUser(ctx context.Context, userID string, limit int) ([]model.NotificationRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, notification_type, trigger_date, title, message, action_type, status, created_at, delivered_at, read_at
		FROM momentum_notifications
		WHERE user_id = ?
		ORDER BY created_at DESC
		LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query notifications: %w", err)
	}
	defer rows.Close()

	var out []model.NotificationRecord
	for rows.Next() {
		var (
			n                  model.NotificationRecord
			date, created      string
			delivered, readStr *string
		)
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &date, &n.Title, &n.Message,
			&n.ActionType, &n.Status, &created, &delivered, &readStr); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		if n.TriggerDate, err = model.ParseDate(date); err != nil {
			return nil, fmt.Errorf("parse trigger date %q: %w", date, err)
		}
		if n.CreatedAt, err = time.Parse(time.RFC3339, created); err != nil {
			return nil, fmt.Errorf("parse created at %q: %w", created, err)
		}
		if n.DeliveredAt, err = parseOptionalTime(delivered); err != nil {
			return nil, err
		}
		if n.ReadAt, err = parseOptionalTime(readStr); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notifications: %w", err)
	}
	return out, nil
}

func parseOptionalTime(s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, *s)
	if err != nil {
		return nil, fmt.Errorf("parse timestamp %q: %w", *s, err)
	}
	return &t, nil
}
