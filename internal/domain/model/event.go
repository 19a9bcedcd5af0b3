// Package model contains domain entities passed between layers.
package model

import "time"

// DateLayout is the ISO calendar-date format used for score and event dates.
// Score rows carry no time component; timestamps stay RFC3339.
const DateLayout = "2006-01-02"

// ParseDate parses an ISO calendar date (YYYY-MM-DD) in UTC.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}

// FormatDate renders t as an ISO calendar date.
func FormatDate(t time.Time) string { return t.Format(DateLayout) }

// Day truncates t to its UTC calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Engagement event types. The catalog is fixed; the point weight per type
// lives in configuration so it can be tuned without a release.
const (
	EventLessonCompletion     = "lesson_completion"
	EventLessonStart          = "lesson_start"
	EventJournalEntry         = "journal_entry"
	EventCoachInteraction     = "coach_interaction"
	EventGoalSetting          = "goal_setting"
	EventGoalCompletion       = "goal_completion"
	EventAppSession           = "app_session"
	EventStreakMilestone      = "streak_milestone"
	EventAssessmentCompletion = "assessment_completion"
	EventResourceAccess       = "resource_access"
	EventPeerInteraction      = "peer_interaction"
	EventReminderResponse     = "reminder_response"
)

// EngagementEvent is one row of the append-only engagement log. The log is
// owned by the ingestion collaborator; this service only reads it.
type EngagementEvent struct {
	ID        string            // unique event id
	UserID    string            // subject user identifier (UUID)
	EventType string            // one of the catalog above
	EventDate time.Time         // calendar date the event counts toward
	Timestamp time.Time         // full event timestamp
	Metadata  map[string]string // free-form ingestion metadata
}

// ScoreUpdated signals that a DailyScore row was written and rule
// evaluation should run for the user. It is the explicit replacement for
// a storage-level trigger.
type ScoreUpdated struct {
	UserID    string
	ScoreDate time.Time
}
