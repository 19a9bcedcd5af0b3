package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/beewell/momentum/internal/domain/model"
)

// InsertErrorLog appends one structured failure record.
func (s *Store) InsertErrorLog(ctx context.Context, e model.ErrorLogEntry) error {
	details, err := json.Marshal(e.Details)
	if err != nil {
		return fmt.Errorf("marshal error details: %w", err)
	}
	var userID any
	if e.UserID != "" {
		userID = e.UserID
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO momentum_error_logs
			(id, error_type, error_code, message, details, user_id, source, severity, is_resolved, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, ?)`,
		e.ID, e.ErrorType, e.ErrorCode, e.Message, string(details),
		userID, e.Source, e.Severity, e.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("insert error log: %w", err)
	}
	return nil
}

// ResolveErrorLog marks an entry resolved. ErrNotFound when id is unknown
// or the entry is already resolved.
func (s *Store) ResolveErrorLog(ctx context.Context, id, notes string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE momentum_error_logs
		SET is_resolved = 1, resolved_at = ?, resolution_notes = ?
		WHERE id = ? AND is_resolved = 0`,
		at.UTC().Format(time.RFC3339), notes, id,
	)
	if err != nil {
		return fmt.Errorf("resolve error log %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("resolve error log %s: %w", id, err)
	}
	if affected == 0 {
		return fmt.Errorf("resolve error log %s: %w", id, model.ErrNotFound)
	}
	return nil
}

// ErrorLogByID fetches one entry, for the resolution workflow UI.
func (s *Store) ErrorLogByID(ctx context.Context, id string) (model.ErrorLogEntry, error) {
	var (
		e                model.ErrorLogEntry
		details, created string
		userID, notes    sql.NullString
		resolvedAt       sql.NullString
		resolved         int
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, error_type, error_code, message, details, user_id, source, severity,
		       is_resolved, resolved_at, resolution_notes, created_at
		FROM momentum_error_logs WHERE id = ?`, id,
	).Scan(&e.ID, &e.ErrorType, &e.ErrorCode, &e.Message, &details, &userID, &e.Source,
		&e.Severity, &resolved, &resolvedAt, &notes, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return model.ErrorLogEntry{}, fmt.Errorf("error log %s: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return model.ErrorLogEntry{}, fmt.Errorf("query error log %s: %w", id, err)
	}

	if err := json.Unmarshal([]byte(details), &e.Details); err != nil {
		return model.ErrorLogEntry{}, fmt.Errorf("unmarshal error details: %w", err)
	}
	e.UserID = userID.String
	e.ResolutionNotes = notes.String
	e.Resolved = resolved == 1
	if e.CreatedAt, err = time.Parse(time.RFC3339, created); err != nil {
		return model.ErrorLogEntry{}, fmt.Errorf("parse created at %q: %w", created, err)
	}
	if resolvedAt.Valid && resolvedAt.String != "" {
		t, err := time.Parse(time.RFC3339, resolvedAt.String)
		if err != nil {
			return model.ErrorLogEntry{}, fmt.Errorf("parse resolved at %q: %w", resolvedAt.String, err)
		}
		e.ResolvedAt = &t
	}
	return e, nil
}

// ErrorStats aggregates error volume since the given instant.
func (s *Store) ErrorStats(ctx context.Context, since time.Time) (model.ErrorStats, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT error_type, severity, COUNT(*)
		FROM momentum_error_logs
		WHERE created_at >= ?
		GROUP BY error_type, severity`,
		since.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return model.ErrorStats{}, fmt.Errorf("query error stats: %w", err)
	}
	defer rows.Close()

	stats := model.ErrorStats{
		ByType:     make(map[string]int),
		BySeverity: make(map[string]int),
	}
	for rows.Next() {
		var (
			errorType, severity string
			count               int
		)
		if err := rows.Scan(&errorType, &severity, &count); err != nil {
			return model.ErrorStats{}, fmt.Errorf("scan error stats: %w", err)
		}
		stats.Total += count
		stats.ByType[errorType] += count
		stats.BySeverity[severity] += count
	}
	if err := rows.Err(); err != nil {
		return model.ErrorStats{}, fmt.Errorf("iterate error stats: %w", err)
	}
	return stats, nil
}

// PurgeResolvedBefore deletes resolved entries created before cutoff and
// returns the number removed.
func (s *Store) PurgeResolvedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM momentum_error_logs
		WHERE is_resolved = 1 AND created_at < ?`,
		cutoff.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return 0, fmt.Errorf("purge error logs: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge error logs: %w", err)
	}
	return n, nil
}
