// Package validate holds the pure validators gating every write into the
// momentum tables. Each validator collects all violations instead of
// stopping at the first, so callers can surface a complete rejection.
package validate

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/beewell/momentum/internal/domain/model"
)

// Limits enforced on payloads.
const (
	maxMessageLength = 500
	minScore         = 0.0
	maxScore         = 100.0
)

// Result is the outcome of one validator run.
type Result struct {
	Valid  bool     `json:"is_valid"`
	Errors []string `json:"errors"`
}

func result(errs []string) Result {
	return Result{Valid: len(errs) == 0, Errors: errs}
}

// Err converts a failed Result into a model.ErrValidation error. Returns
// nil for a valid result.
func (r Result) Err() error {
	if r.Valid {
		return nil
	}
	return fmt.Errorf("%w: %s", model.ErrValidation, strings.Join(r.Errors, "; "))
}

// UserID checks that id is a well-formed, non-nil UUID.
func UserID(id string) Result {
	var errs []string
	parsed, err := uuid.Parse(id)
	if err != nil {
		errs = append(errs, "Invalid user ID")
	} else if parsed == uuid.Nil {
		errs = append(errs, "User ID cannot be the nil UUID")
	}
	return result(errs)
}

// ScoreValues checks the raw/normalized/final score triple. Pointer
// arguments distinguish absent values from zero.
func ScoreValues(raw, normalized, final *float64) Result {
	var errs []string
	switch {
	case raw == nil:
		errs = append(errs, "Raw score is required")
	case *raw < minScore:
		errs = append(errs, "Raw score cannot be negative")
	}
	switch {
	case normalized == nil:
		errs = append(errs, "Normalized score is required")
	case *normalized < minScore || *normalized > maxScore:
		errs = append(errs, "Normalized score must be between 0 and 100")
	}
	switch {
	case final == nil:
		errs = append(errs, "Final score is required")
	case *final < minScore || *final > maxScore:
		errs = append(errs, "Final score must be between 0 and 100")
	}
	return result(errs)
}

// MomentumState checks that state is exactly one of the three literals.
// Comparison is case-sensitive.
func MomentumState(state string) Result {
	var errs []string
	if !model.State(state).Valid() {
		errs = append(errs, "Invalid momentum state")
	}
	return result(errs)
}

// DateRange checks that start does not lie after now and that end, when
// set, does not precede start. A zero end means an open-ended range.
func DateRange(start, end, now time.Time) Result {
	var errs []string
	if model.Day(start).After(model.Day(now)) {
		errs = append(errs, "Start date cannot be in the future")
	}
	if !end.IsZero() && model.Day(end).Before(model.Day(start)) {
		errs = append(errs, "End date cannot be before start date")
	}
	return result(errs)
}

// NotificationPayload checks the user-visible shape of a notification.
func NotificationPayload(notificationType, title, message, actionType string) Result {
	var errs []string
	if !knownNotificationType(notificationType) {
		errs = append(errs, "Invalid notification type")
	}
	if strings.TrimSpace(title) == "" {
		errs = append(errs, "Title cannot be empty")
	}
	if len([]rune(message)) > maxMessageLength {
		errs = append(errs, "Message cannot exceed 500 characters")
	}
	if strings.TrimSpace(actionType) == "" {
		errs = append(errs, "Action type cannot be empty")
	}
	return result(errs)
}

func knownNotificationType(t string) bool {
	for _, known := range model.NotificationTypes {
		if t == known {
			return true
		}
	}
	return false
}
