package model

import "time"

// Intervention types and priorities.
const (
	InterventionAutomatedCallSchedule = "automated_call_schedule"

	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// Intervention statuses. Scheduled rows are picked up by the external
// coaching workflow, which owns all later transitions.
const (
	InterventionStatusScheduled = "scheduled"
	InterventionStatusCompleted = "completed"
	InterventionStatusCancelled = "cancelled"
)

// Trigger reasons, one per rule in the intervention engine.
const (
	ReasonConsecutiveNeedsCare = "consecutive_needs_care"
)

// InterventionRecord is a coaching action created when a rule fires.
type InterventionRecord struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	Type          string    `json:"intervention_type"`
	TriggerDate   time.Time `json:"trigger_date"` // calendar date of the evaluation
	TriggerReason string    `json:"trigger_reason"`
	TriggerState  State     `json:"trigger_state"`
	Priority      string    `json:"priority"`
	Status        string    `json:"status"`
	ScheduledDate time.Time `json:"scheduled_date"`
	CreatedAt     time.Time `json:"created_at"`
}

// Notification types form the allowed catalog for payload validation.
const (
	NotificationConsecutiveNeedsCare = "consecutive_needs_care"
	NotificationScoreDrop            = "score_drop"
	NotificationCelebration          = "celebration"
	NotificationConsistencyReminder  = "consistency_reminder"
	NotificationMomentumDrop         = "momentum_drop"
	NotificationDailyReminder        = "daily_reminder"
	NotificationCoachMessage         = "coach_message"
)

// NotificationTypes lists every allowed notification type.
var NotificationTypes = []string{
	NotificationConsecutiveNeedsCare,
	NotificationScoreDrop,
	NotificationCelebration,
	NotificationConsistencyReminder,
	NotificationMomentumDrop,
	NotificationDailyReminder,
	NotificationCoachMessage,
}

// Notification action types, consumed by the client to route taps.
const (
	ActionScheduleCall   = "schedule_call"
	ActionCompleteLesson = "complete_lesson"
	ActionViewMomentum   = "view_momentum"
	ActionJournalEntry   = "journal_entry"
	ActionOpenApp        = "open_app"
)

// Notification delivery statuses. Only "pending" is written here; the
// delivery collaborator advances the rest.
const (
	NotificationStatusPending   = "pending"
	NotificationStatusSent      = "sent"
	NotificationStatusDelivered = "delivered"
)

// NotificationRecord is a user-facing nudge created when a rule fires.
// Delivery is handled externally; this service only writes the row.
type NotificationRecord struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	Type        string     `json:"notification_type"`
	TriggerDate time.Time  `json:"trigger_date"`
	Title       string     `json:"title"`
	Message     string     `json:"message"`
	ActionType  string     `json:"action_type"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`
	ReadAt      *time.Time `json:"read_at,omitempty"`
}
