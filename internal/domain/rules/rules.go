// Package rules evaluates a user's momentum history against the coaching
// rule set. Evaluation is pure: rules read history and emit triggers; rate
// limiting and persistence happen in the caller.
package rules

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/beewell/momentum/internal/domain/model"
)

// Default rule tuning. Thresholds are options so product can adjust the
// sensitivity without a release.
const (
	defaultConsecutiveNeedsCareDays = 2
	defaultScoreDropWindowDays      = 3
	defaultScoreDropThreshold       = 15.0
	defaultCelebrationWindowDays    = 5
	defaultCelebrationMinRising     = 4
	defaultVolatilityWindowDays     = 7
	defaultVolatilityMinTransitions = 4
)

// Rule names double as notification types and rate-limit keys.
const (
	RuleConsecutiveNeedsCare = model.NotificationConsecutiveNeedsCare
	RuleScoreDrop            = model.NotificationScoreDrop
	RuleCelebration          = model.NotificationCelebration
	RuleConsistencyReminder  = model.NotificationConsistencyReminder
)

// Trigger is one rule firing: always a notification, sometimes a coaching
// intervention alongside it.
type Trigger struct {
	Rule         string
	Notification model.NotificationRecord
	Intervention *model.InterventionRecord
}

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithScoreDrop tunes the score-drop rule: minimum drop in points over a
// trailing window of days.
func WithScoreDrop(threshold float64, windowDays int) Option {
	return func(e *Engine) {
		if threshold > 0 {
			e.scoreDropThreshold = threshold
		}
		if windowDays > 1 {
			e.scoreDropWindowDays = windowDays
		}
	}
}

// WithCelebration tunes the celebration rule: minimum Rising days within a
// trailing window.
func WithCelebration(minRising, windowDays int) Option {
	return func(e *Engine) {
		if minRising > 0 {
			e.celebrationMinRising = minRising
		}
		if windowDays > 0 {
			e.celebrationWindowDays = windowDays
		}
	}
}

// WithVolatility tunes the consistency-reminder rule: minimum state
// transitions within a trailing window.
func WithVolatility(minTransitions, windowDays int) Option {
	return func(e *Engine) {
		if minTransitions > 0 {
			e.volatilityMinTransitions = minTransitions
		}
		if windowDays > 1 {
			e.volatilityWindowDays = windowDays
		}
	}
}

// Engine evaluates the rule set. Safe for concurrent use.
type Engine struct {
	consecutiveNeedsCareDays int
	scoreDropWindowDays      int
	scoreDropThreshold       float64
	celebrationWindowDays    int
	celebrationMinRising     int
	volatilityWindowDays     int
	volatilityMinTransitions int
}

// New creates an Engine with default tuning and applies opts.
func New(opts ...Option) *Engine {
	e := &Engine{
		consecutiveNeedsCareDays: defaultConsecutiveNeedsCareDays,
		scoreDropWindowDays:      defaultScoreDropWindowDays,
		scoreDropThreshold:       defaultScoreDropThreshold,
		celebrationWindowDays:    defaultCelebrationWindowDays,
		celebrationMinRising:     defaultCelebrationMinRising,
		volatilityWindowDays:     defaultVolatilityWindowDays,
		volatilityMinTransitions: defaultVolatilityMinTransitions,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// WindowDays reports how much history Evaluate can use, so callers know
// how many rows to fetch.
func (e *Engine) WindowDays() int {
	window := e.volatilityWindowDays
	if e.celebrationWindowDays > window {
		window = e.celebrationWindowDays
	}
	if e.scoreDropWindowDays > window {
		window = e.scoreDropWindowDays
	}
	return window
}

// Evaluate runs every rule over the user's score history and returns all
// triggers that match. history may arrive in any order; the newest row is
// treated as the current day. An empty history triggers nothing.
func (e *Engine) Evaluate(userID string, history []model.DailyScore) []Trigger {
	if len(history) == 0 {
		return nil
	}
	// Newest first.
	sorted := make([]model.DailyScore, len(history))
	copy(sorted, history)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].ScoreDate.After(sorted[j].ScoreDate)
	})

	var triggers []Trigger
	if t, ok := e.consecutiveNeedsCare(userID, sorted); ok {
		triggers = append(triggers, t)
	}
	if t, ok := e.scoreDrop(userID, sorted); ok {
		triggers = append(triggers, t)
	}
	if t, ok := e.celebration(userID, sorted); ok {
		triggers = append(triggers, t)
	}
	if t, ok := e.consistencyReminder(userID, sorted); ok {
		triggers = append(triggers, t)
	}
	return triggers
}

// consecutiveNeedsCare fires when the most recent N days, including the
// current one, are all classified NeedsCare. It is the only rule that
// schedules a coaching intervention in addition to the notification.
func (e *Engine) consecutiveNeedsCare(userID string, history []model.DailyScore) (Trigger, bool) {
	if len(history) < e.consecutiveNeedsCareDays {
		return Trigger{}, false
	}
	for i := 0; i < e.consecutiveNeedsCareDays; i++ {
		if history[i].MomentumState != model.StateNeedsCare {
			return Trigger{}, false
		}
	}

	current := history[0]
	now := time.Now().UTC()
	return Trigger{
		Rule: RuleConsecutiveNeedsCare,
		Notification: e.notification(userID, current, RuleConsecutiveNeedsCare,
			"Let's grow together! 🌱",
			"We noticed you might need some extra support. Your coach is here to help you get back on track.",
			model.ActionScheduleCall),
		Intervention: &model.InterventionRecord{
			ID:            uuid.NewString(),
			UserID:        userID,
			Type:          model.InterventionAutomatedCallSchedule,
			TriggerDate:   model.Day(current.ScoreDate),
			TriggerReason: model.ReasonConsecutiveNeedsCare,
			TriggerState:  current.MomentumState,
			Priority:      model.PriorityHigh,
			Status:        model.InterventionStatusScheduled,
			ScheduledDate: model.Day(current.ScoreDate).AddDate(0, 0, 1),
			CreatedAt:     now,
		},
	}, true
}

// scoreDrop fires when the final score fell by at least the threshold
// across the trailing window. Smaller dips stay silent.
func (e *Engine) scoreDrop(userID string, history []model.DailyScore) (Trigger, bool) {
	if len(history) < e.scoreDropWindowDays {
		return Trigger{}, false
	}
	newest := history[0]
	oldest := history[e.scoreDropWindowDays-1]
	if oldest.FinalScore-newest.FinalScore < e.scoreDropThreshold {
		return Trigger{}, false
	}
	return Trigger{
		Rule: RuleScoreDrop,
		Notification: e.notification(userID, newest, RuleScoreDrop,
			"You've got this! 💪",
			"Everyone has ups and downs. A quick lesson can help rebuild your momentum.",
			model.ActionCompleteLesson),
	}, true
}

// celebration fires on sustained Rising momentum: enough Rising days in
// the trailing window, and the current day itself Rising. A non-Rising
// current state suppresses the rule even when history qualifies.
func (e *Engine) celebration(userID string, history []model.DailyScore) (Trigger, bool) {
	if history[0].MomentumState != model.StateRising {
		return Trigger{}, false
	}
	window := history
	if len(window) > e.celebrationWindowDays {
		window = window[:e.celebrationWindowDays]
	}
	rising := 0
	for _, h := range window {
		if h.MomentumState == model.StateRising {
			rising++
		}
	}
	if rising < e.celebrationMinRising {
		return Trigger{}, false
	}
	return Trigger{
		Rule: RuleCelebration,
		Notification: e.notification(userID, history[0], RuleCelebration,
			"Amazing momentum! 🎉",
			"You've been consistently Rising. Keep up the incredible work!",
			model.ActionViewMomentum),
	}, true
}

// consistencyReminder fires on volatile momentum: too many state changes
// across the trailing window.
func (e *Engine) consistencyReminder(userID string, history []model.DailyScore) (Trigger, bool) {
	window := history
	if len(window) > e.volatilityWindowDays {
		window = window[:e.volatilityWindowDays]
	}
	transitions := 0
	for i := 1; i < len(window); i++ {
		if window[i].MomentumState != window[i-1].MomentumState {
			transitions++
		}
	}
	if transitions < e.volatilityMinTransitions {
		return Trigger{}, false
	}
	return Trigger{
		Rule: RuleConsistencyReminder,
		Notification: e.notification(userID, history[0], RuleConsistencyReminder,
			"Consistency is key 📅",
			"Small daily habits add up. Try a short journal entry to steady your momentum.",
			model.ActionJournalEntry),
	}, true
}

func (e *Engine) notification(userID string, current model.DailyScore, ntype, title, message, action string) model.NotificationRecord {
	return model.NotificationRecord{
		ID:          uuid.NewString(),
		UserID:      userID,
		Type:        ntype,
		TriggerDate: model.Day(current.ScoreDate),
		Title:       title,
		Message:     message,
		ActionType:  action,
		Status:      model.NotificationStatusPending,
		CreatedAt:   time.Now().UTC(),
	}
}
