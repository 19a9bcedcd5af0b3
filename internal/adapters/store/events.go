package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/beewell/momentum/internal/domain/model"
	"github.com/beewell/momentum/internal/domain/validate"
)

// InsertEvent appends one engagement event. Ingestion proper lives
// outside this service; this write path exists for the seed tool and for
// tests exercising the read side.
func (s *Store) InsertEvent(ctx context.Context, ev model.EngagementEvent) error {
	if res := validate.UserID(ev.UserID); !res.Valid {
		return fmt.Errorf("insert event: %w", res.Err())
	}
	if ev.EventType == "" {
		return fmt.Errorf("insert event: %w: event type is required", model.ErrValidation)
	}

	meta, err := json.Marshal(orEmpty(ev.Metadata))
	if err != nil {
		return fmt.Errorf("marshal event metadata: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO engagement_events (id, user_id, event_type, event_date, event_timestamp, metadata)
		VALUES (?, ?, ?, ?, ?, ?)`,
		ev.ID, ev.UserID, ev.EventType,
		model.FormatDate(ev.EventDate), ev.Timestamp.UTC().Format(time.RFC3339), string(meta),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert event %s: %w", ev.ID, model.ErrConflict)
		}
		return fmt.Errorf("insert event %s: %w", ev.ID, err)
	}
	return nil
}

// EventsForDay returns every engagement event for the user on the given
// calendar date.
func (s *Store) EventsForDay(ctx context.Context, userID string, day time.Time) ([]model.EngagementEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, event_type, event_date, event_timestamp, metadata
		FROM engagement_events
		WHERE user_id = ? AND event_date = ?
		ORDER BY event_timestamp`,
		userID, model.FormatDate(day),
	)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []model.EngagementEvent
	for rows.Next() {
		var (
			ev       model.EngagementEvent
			date, ts string
			meta     string
		)
		if err := rows.Scan(&ev.ID, &ev.UserID, &ev.EventType, &date, &ts, &meta); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		if ev.EventDate, err = model.ParseDate(date); err != nil {
			return nil, fmt.Errorf("parse event date %q: %w", date, err)
		}
		if ev.Timestamp, err = time.Parse(time.RFC3339, ts); err != nil {
			return nil, fmt.Errorf("parse event timestamp %q: %w", ts, err)
		}
		if err := json.Unmarshal([]byte(meta), &ev.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal event metadata: %w", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

// ActiveUsers returns the distinct user ids with at least one engagement
// event on the given date.
func (s *Store) ActiveUsers(ctx context.Context, day time.Time) ([]string, error) {
	return s.queryUserIDs(ctx, `
		SELECT DISTINCT user_id FROM engagement_events WHERE event_date = ? ORDER BY user_id`,
		model.FormatDate(day))
}

func (s *Store) queryUserIDs(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query user ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan user id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate user ids: %w", err)
	}
	return ids, nil
}

func orEmpty(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}
