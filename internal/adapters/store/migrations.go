package store

import "fmt"

type migration struct {
	Version     int
	Description string
	SQL         string
}

var migrations = []migration{
	{
		Version:     1,
		Description: "engagement_events: append-only engagement log (read-only to the engine)",
		SQL: `
CREATE TABLE engagement_events (
    id              TEXT PRIMARY KEY,
    user_id         TEXT NOT NULL,
    event_type      TEXT NOT NULL,
    event_date      TEXT NOT NULL,
    event_timestamp TEXT NOT NULL,
    metadata        TEXT NOT NULL DEFAULT '{}'
);

CREATE INDEX idx_events_user_date ON engagement_events(user_id, event_date);
CREATE INDEX idx_events_date      ON engagement_events(event_date);
`,
	},
	{
		Version:     2,
		Description: "daily_engagement_scores: one momentum row per (user, date)",
		SQL: `
CREATE TABLE daily_engagement_scores (
    user_id              TEXT NOT NULL,
    score_date           TEXT NOT NULL,
    raw_score            REAL NOT NULL CHECK (raw_score >= 0),
    normalized_score     REAL NOT NULL CHECK (normalized_score BETWEEN 0 AND 100),
    final_score          REAL NOT NULL CHECK (final_score BETWEEN 0 AND 100),
    momentum_state       TEXT NOT NULL CHECK (momentum_state IN ('Rising', 'Steady', 'NeedsCare')),
    breakdown            TEXT NOT NULL DEFAULT '{}',
    events_count         INTEGER NOT NULL DEFAULT 0,
    algorithm_version    TEXT NOT NULL,
    calculation_metadata TEXT NOT NULL DEFAULT '{}',
    PRIMARY KEY (user_id, score_date)
);

CREATE INDEX idx_scores_user_date ON daily_engagement_scores(user_id, score_date DESC);
CREATE INDEX idx_scores_date      ON daily_engagement_scores(score_date);
`,
	},
	{
		Version:     3,
		Description: "momentum_notifications: rule-engine nudges; unique per (user, type, day) so duplicate firings cannot land",
		SQL: `
CREATE TABLE momentum_notifications (
    id                TEXT PRIMARY KEY,
    user_id           TEXT NOT NULL,
    notification_type TEXT NOT NULL,
    trigger_date      TEXT NOT NULL,
    title             TEXT NOT NULL,
    message           TEXT NOT NULL,
    action_type       TEXT NOT NULL,
    status            TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'sent', 'delivered')),
    created_at        TEXT NOT NULL,
    delivered_at      TEXT,
    read_at           TEXT
);

CREATE UNIQUE INDEX idx_notifications_ledger ON momentum_notifications(user_id, notification_type, trigger_date);
CREATE INDEX idx_notifications_user ON momentum_notifications(user_id, created_at DESC);
`,
	},
	{
		Version:     4,
		Description: "coach_interventions: scheduled coaching actions; unique per (user, reason, day)",
		SQL: `
CREATE TABLE coach_interventions (
    id                TEXT PRIMARY KEY,
    user_id           TEXT NOT NULL,
    intervention_type TEXT NOT NULL,
    trigger_date      TEXT NOT NULL,
    trigger_reason    TEXT NOT NULL,
    trigger_state     TEXT NOT NULL,
    priority          TEXT NOT NULL CHECK (priority IN ('high', 'medium', 'low')),
    status            TEXT NOT NULL DEFAULT 'scheduled',
    scheduled_date    TEXT NOT NULL,
    created_at        TEXT NOT NULL
);

CREATE UNIQUE INDEX idx_interventions_ledger ON coach_interventions(user_id, trigger_reason, trigger_date);
CREATE INDEX idx_interventions_user ON coach_interventions(user_id, created_at DESC);
`,
	},
	{
		Version:     5,
		Description: "momentum_error_logs: structured failure records with resolution workflow",
		SQL: `
CREATE TABLE momentum_error_logs (
    id               TEXT PRIMARY KEY,
    error_type       TEXT NOT NULL,
    error_code       TEXT NOT NULL,
    message          TEXT NOT NULL,
    details          TEXT NOT NULL DEFAULT '{}',
    user_id          TEXT,
    source           TEXT NOT NULL,
    severity         TEXT NOT NULL CHECK (severity IN ('low', 'medium', 'high')),
    is_resolved      INTEGER NOT NULL DEFAULT 0,
    resolved_at      TEXT,
    resolution_notes TEXT,
    created_at       TEXT NOT NULL
);

CREATE INDEX idx_errlog_created  ON momentum_error_logs(created_at DESC);
CREATE INDEX idx_errlog_resolved ON momentum_error_logs(is_resolved, created_at);
`,
	},
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_versions (
			version     INTEGER PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at  INTEGER NOT NULL DEFAULT (strftime('%s', 'now') * 1000)
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_versions: %w", err)
	}

	for _, m := range migrations {
		var count int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_versions WHERE version = ?", m.Version).Scan(&count); err != nil {
			return fmt.Errorf("check migration %d: %w", m.Version, err)
		}
		if count > 0 {
			continue
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.Version, err)
		}
		if _, err := tx.Exec(m.SQL); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
		}
		if _, err := tx.Exec(
			"INSERT INTO schema_versions (version, description) VALUES (?, ?)",
			m.Version, m.Description,
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}
	return nil
}
