package store

import (
	"context"
	"time"

	"github.com/beewell/momentum/internal/domain/model"
	"github.com/beewell/momentum/internal/domain/rules"
)

// Limiter is the store-backed rate limiter: a (user, rule) combination
// has fired within the daily window exactly when its notification or
// intervention row exists for that date. The unique ledger indexes make
// concurrent double-firing impossible even if two probes race.
type Limiter struct {
	store *Store
}

// NewLimiter creates a rate limiter backed by this store's rows.
func NewLimiter(s *Store) *Limiter {
	return &Limiter{store: s}
}

// TryAcquire reports whether the rule may fire for the user on day. It
// does not write; the eventual record insert is the recording step.
func (l *Limiter) TryAcquire(ctx context.Context, userID, rule string, day time.Time) (bool, error) {
	fired, err := l.store.HasNotificationOn(ctx, userID, rule, day)
	if err != nil {
		return false, err
	}
	if fired {
		return false, nil
	}
	if rule == rules.RuleConsecutiveNeedsCare {
		fired, err = l.store.HasInterventionOn(ctx, userID, model.ReasonConsecutiveNeedsCare, day)
		if err != nil {
			return false, err
		}
		if fired {
			return false, nil
		}
	}
	return true, nil
}

// Release is a no-op: the ledger is the record rows themselves, and an
// emitted notification is never retracted.
func (l *Limiter) Release(context.Context, string, string, time.Time) error {
	return nil
}
