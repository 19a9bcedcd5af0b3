package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/beewell/momentum/internal/domain/model"
	"github.com/beewell/momentum/internal/domain/validate"
)

// UpsertDailyScore writes the momentum row for (user, date), replacing any
// existing row atomically. The validation gates run first; a row that
// fails them is rejected without touching the table.
func (s *Store) UpsertDailyScore(ctx context.Context, score model.DailyScore) error {
	if err := scoreGate(score); err != nil {
		return fmt.Errorf("upsert score: %w", err)
	}

	breakdown, err := json.Marshal(score.Breakdown)
	if err != nil {
		return fmt.Errorf("marshal breakdown: %w", err)
	}
	meta, err := json.Marshal(score.Metadata)
	if err != nil {
		return fmt.Errorf("marshal calculation metadata: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO daily_engagement_scores
			(user_id, score_date, raw_score, normalized_score, final_score,
			 momentum_state, breakdown, events_count, algorithm_version, calculation_metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, score_date) DO UPDATE SET
			raw_score            = excluded.raw_score,
			normalized_score     = excluded.normalized_score,
			final_score          = excluded.final_score,
			momentum_state       = excluded.momentum_state,
			breakdown            = excluded.breakdown,
			events_count         = excluded.events_count,
			algorithm_version    = excluded.algorithm_version,
			calculation_metadata = excluded.calculation_metadata`,
		score.UserID, model.FormatDate(score.ScoreDate),
		score.RawScore, score.NormalizedScore, score.FinalScore,
		string(score.MomentumState), string(breakdown), score.EventsCount,
		score.AlgorithmVersion, string(meta),
	)
	if err != nil {
		return fmt.Errorf("upsert score for %s on %s: %w",
			score.UserID, model.FormatDate(score.ScoreDate), err)
	}
	return nil
}

// scoreGate enforces the write-time validators on a DailyScore row.
func scoreGate(score model.DailyScore) error {
	if res := validate.UserID(score.UserID); !res.Valid {
		return res.Err()
	}
	raw, norm, final := score.RawScore, score.NormalizedScore, score.FinalScore
	if res := validate.ScoreValues(&raw, &norm, &final); !res.Valid {
		return res.Err()
	}
	if res := validate.MomentumState(string(score.MomentumState)); !res.Valid {
		return res.Err()
	}
	return nil
}

// ScoreHistory returns up to limit rows dated strictly before the target
// date, newest first.
func (s *Store) ScoreHistory(ctx context.Context, userID string, before time.Time, limit int) ([]model.DailyScore, error) {
	return s.queryScores(ctx, `
		SELECT user_id, score_date, raw_score, normalized_score, final_score,
		       momentum_state, breakdown, events_count, algorithm_version, calculation_metadata
		FROM daily_engagement_scores
		WHERE user_id = ? AND score_date < ?
		ORDER BY score_date DESC
		LIMIT ?`,
		userID, model.FormatDate(before), limit)
}

// RecentScores returns up to limit rows dated on or before the target
// date, newest first. This is the rule engine's view of history.
func (s *Store) RecentScores(ctx context.Context, userID string, upTo time.Time, limit int) ([]model.DailyScore, error) {
	return s.queryScores(ctx, `
		SELECT user_id, score_date, raw_score, normalized_score, final_score,
		       momentum_state, breakdown, events_count, algorithm_version, calculation_metadata
		FROM daily_engagement_scores
		WHERE user_id = ? AND score_date <= ?
		ORDER BY score_date DESC
		LIMIT ?`,
		userID, model.FormatDate(upTo), limit)
}

// LatestScore returns the newest score row for the user, or ErrNotFound.
func (s *Store) LatestScore(ctx context.Context, userID string) (model.DailyScore, error) {
	scores, err := s.queryScores(ctx, `
		SELECT user_id, score_date, raw_score, normalized_score, final_score,
		       momentum_state, breakdown, events_count, algorithm_version, calculation_metadata
		FROM daily_engagement_scores
		WHERE user_id = ?
		ORDER BY score_date DESC
		LIMIT 1`,
		userID)
	if err != nil {
		return model.DailyScore{}, err
	}
	if len(scores) == 0 {
		return model.DailyScore{}, fmt.Errorf("latest score for %s: %w", userID, model.ErrNotFound)
	}
	return scores[0], nil
}

// UsersWithScoreOn returns the distinct user ids holding a score row for
// the given date.
func (s *Store) UsersWithScoreOn(ctx context.Context, day time.Time) ([]string, error) {
	return s.queryUserIDs(ctx, `
		SELECT DISTINCT user_id FROM daily_engagement_scores WHERE score_date = ? ORDER BY user_id`,
		model.FormatDate(day))
}

func (s *Store) queryScores(ctx context.Context, query string, args ...any) ([]model.DailyScore, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query scores: %w", err)
	}
	defer rows.Close()

	var scores []model.DailyScore
	for rows.Next() {
		var (
			sc              model.DailyScore
			date            string
			state           string
			breakdown, meta string
		)
		if err := rows.Scan(&sc.UserID, &date, &sc.RawScore, &sc.NormalizedScore, &sc.FinalScore,
			&state, &breakdown, &sc.EventsCount, &sc.AlgorithmVersion, &meta); err != nil {
			return nil, fmt.Errorf("scan score: %w", err)
		}
		if sc.ScoreDate, err = model.ParseDate(date); err != nil {
			return nil, fmt.Errorf("parse score date %q: %w", date, err)
		}
		sc.MomentumState = model.State(state)
		if err := json.Unmarshal([]byte(breakdown), &sc.Breakdown); err != nil {
			return nil, fmt.Errorf("unmarshal breakdown: %w", err)
		}
		if err := json.Unmarshal([]byte(meta), &sc.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal calculation metadata: %w", err)
		}
		scores = append(scores, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate scores: %w", err)
	}
	return scores, nil
}
