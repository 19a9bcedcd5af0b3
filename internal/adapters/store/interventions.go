package store

import (
	"context"
	"fmt"
	"time"

	"github.com/beewell/momentum/internal/domain/model"
	"github.com/beewell/momentum/internal/domain/validate"
)

// InsertIntervention writes a coaching intervention row. A duplicate
// (user, reason, trigger_date) maps to ErrConflict.
func (s *Store) InsertIntervention(ctx context.Context, iv model.InterventionRecord) error {
	if res := validate.UserID(iv.UserID); !res.Valid {
		return fmt.Errorf("insert intervention: %w", res.Err())
	}
	if res := validate.MomentumState(string(iv.TriggerState)); !res.Valid {
		return fmt.Errorf("insert intervention: %w", res.Err())
	}
	if iv.Type == "" || iv.TriggerReason == "" {
		return fmt.Errorf("insert intervention: %w: type and trigger reason are required", model.ErrValidation)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO coach_interventions
			(id, user_id, intervention_type, trigger_date, trigger_reason, trigger_state,
			 priority, status, scheduled_date, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		iv.ID, iv.UserID, iv.Type, model.FormatDate(iv.TriggerDate),
		iv.TriggerReason, string(iv.TriggerState), iv.Priority, iv.Status,
		model.FormatDate(iv.ScheduledDate), iv.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("intervention %s/%s on %s: %w",
				iv.UserID, iv.TriggerReason, model.FormatDate(iv.TriggerDate), model.ErrConflict)
		}
		return fmt.Errorf("insert intervention: %w", err)
	}
	return nil
}

// HasInterventionOn reports whether an intervention with the given reason
// already exists for the user on the given date.
func (s *Store) HasInterventionOn(ctx context.Context, userID, reason string, day time.Time) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM coach_interventions
		WHERE user_id = ? AND trigger_reason = ? AND trigger_date = ?`,
		userID, reason, model.FormatDate(day),
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check intervention ledger: %w", err)
	}
	return count > 0, nil
}

// InterventionsForUser returns the user's interventions, newest first.
func (s *Store) InterventionsForUser(ctx context.Context, userID string, limit int) ([]model.InterventionRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, intervention_type, trigger_date, trigger_reason, trigger_state,
		       priority, status, scheduled_date, created_at
		FROM coach_interventions
		WHERE user_id = ?
		ORDER BY created_at DESC
		LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query interventions: %w", err)
	}
	defer rows.Close()

	var out []model.InterventionRecord
	for rows.Next() {
		var (
			iv                        model.InterventionRecord
			trigger, scheduled, state string
			created                   string
		)
		if err := rows.Scan(&iv.ID, &iv.UserID, &iv.Type, &trigger, &iv.TriggerReason, &state,
			&iv.Priority, &iv.Status, &scheduled, &created); err != nil {
			return nil, fmt.Errorf("scan intervention: %w", err)
		}
		if iv.TriggerDate, err = model.ParseDate(trigger); err != nil {
			return nil, fmt.Errorf("parse trigger date %q: %w", trigger, err)
		}
		if iv.ScheduledDate, err = model.ParseDate(scheduled); err != nil {
			return nil, fmt.Errorf("parse scheduled date %q: %w", scheduled, err)
		}
		if iv.CreatedAt, err = time.Parse(time.RFC3339, created); err != nil {
			return nil, fmt.Errorf("parse created at %q: %w", created, err)
		}
		iv.TriggerState = model.State(state)
		out = append(out, iv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate interventions: %w", err)
	}
	return out, nil
}
