package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/beewell/momentum/internal/adapters/store"
	"github.com/beewell/momentum/internal/domain/model"
	"github.com/beewell/momentum/internal/domain/rules"
)

func day(s string) time.Time {
	t, err := model.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return t
}

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.OpenMemory()
	if err != nil {
		t.Fatalf("open memory store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func scoreRow(userID string, d time.Time, final float64, state model.State) model.DailyScore {
	return model.DailyScore{
		UserID:           userID,
		ScoreDate:        d,
		RawScore:         final,
		NormalizedScore:  final,
		FinalScore:       final,
		MomentumState:    state,
		Breakdown:        model.Breakdown{EventsByType: map[string]int{}, PointsByType: map[string]int{}},
		AlgorithmVersion: "v1.0",
		Metadata:         model.CalculationMetadata{CalculatedAt: time.Now().UTC()},
	}
}

func TestDailyScores(t *testing.T) {
	ctx := context.Background()

	Convey("Given an open store", t, func() {
		s := openTestStore(t)
		userID := uuid.NewString()

		Convey("When a valid score row is upserted", func() {
			row := scoreRow(userID, day("2026-08-20"), 72.5, model.StateRising)
			row.Breakdown.PointsByType["lesson_completion"] = 15
			row.EventsCount = 3
			So(s.UpsertDailyScore(ctx, row), ShouldBeNil)

			Convey("Then it can be read back intact", func() {
				got, err := s.LatestScore(ctx, userID)
				So(err, ShouldBeNil)
				So(got.FinalScore, ShouldEqual, 72.5)
				So(got.MomentumState, ShouldEqual, model.StateRising)
				So(got.ScoreDate, ShouldResemble, day("2026-08-20"))
				So(got.Breakdown.PointsByType["lesson_completion"], ShouldEqual, 15)
				So(got.EventsCount, ShouldEqual, 3)
			})

			Convey("And upserting the same day replaces the row in place", func() {
				updated := scoreRow(userID, day("2026-08-20"), 55, model.StateSteady)
				So(s.UpsertDailyScore(ctx, updated), ShouldBeNil)

				history, err := s.RecentScores(ctx, userID, day("2026-08-20"), 10)
				So(err, ShouldBeNil)
				So(len(history), ShouldEqual, 1)
				So(history[0].FinalScore, ShouldEqual, 55)
				So(history[0].MomentumState, ShouldEqual, model.StateSteady)
			})
		})

		Convey("When the row fails a validation gate", func() {
			Convey("A bad user id is rejected", func() {
				row := scoreRow("nope", day("2026-08-20"), 50, model.StateSteady)
				err := s.UpsertDailyScore(ctx, row)
				So(errors.Is(err, model.ErrValidation), ShouldBeTrue)
			})

			Convey("A negative raw score is rejected", func() {
				row := scoreRow(userID, day("2026-08-20"), 50, model.StateSteady)
				row.RawScore = -1
				err := s.UpsertDailyScore(ctx, row)
				So(errors.Is(err, model.ErrValidation), ShouldBeTrue)
			})

			Convey("An unknown state is rejected", func() {
				row := scoreRow(userID, day("2026-08-20"), 50, "Cruising")
				err := s.UpsertDailyScore(ctx, row)
				So(errors.Is(err, model.ErrValidation), ShouldBeTrue)
			})

			Convey("Nothing reaches the table", func() {
				row := scoreRow(userID, day("2026-08-20"), 50, "Cruising")
				_ = s.UpsertDailyScore(ctx, row)
				_, err := s.LatestScore(ctx, userID)
				So(errors.Is(err, model.ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("When several days are stored", func() {
			for i, final := range []float64{40, 50, 60, 70} {
				d := day("2026-08-17").AddDate(0, 0, i)
				So(s.UpsertDailyScore(ctx, scoreRow(userID, d, final, model.StateSteady)), ShouldBeNil)
			}

			Convey("ScoreHistory excludes the target day and orders newest first", func() {
				history, err := s.ScoreHistory(ctx, userID, day("2026-08-20"), 10)
				So(err, ShouldBeNil)
				So(len(history), ShouldEqual, 3)
				So(history[0].ScoreDate, ShouldResemble, day("2026-08-19"))
				So(history[0].FinalScore, ShouldEqual, 60)
				So(history[2].FinalScore, ShouldEqual, 40)
			})

			Convey("RecentScores includes the target day", func() {
				recent, err := s.RecentScores(ctx, userID, day("2026-08-20"), 2)
				So(err, ShouldBeNil)
				So(len(recent), ShouldEqual, 2)
				So(recent[0].FinalScore, ShouldEqual, 70)
			})

			Convey("UsersWithScoreOn finds the user", func() {
				users, err := s.UsersWithScoreOn(ctx, day("2026-08-20"))
				So(err, ShouldBeNil)
				So(users, ShouldContain, userID)
			})
		})

		Convey("LatestScore on an unknown user returns ErrNotFound", func() {
			_, err := s.LatestScore(ctx, uuid.NewString())
			So(errors.Is(err, model.ErrNotFound), ShouldBeTrue)
		})
	})
}

func TestEvents(t *testing.T) {
	ctx := context.Background()

	Convey("Given an open store", t, func() {
		s := openTestStore(t)
		userID := uuid.NewString()
		d := day("2026-08-20")

		event := func(id string) model.EngagementEvent {
			return model.EngagementEvent{
				ID:        id,
				UserID:    userID,
				EventType: model.EventJournalEntry,
				EventDate: d,
				Timestamp: d.Add(9 * time.Hour),
				Metadata:  map[string]string{"mood": "good"},
			}
		}

		Convey("Events round-trip by calendar day", func() {
			So(s.InsertEvent(ctx, event("ev-1")), ShouldBeNil)
			So(s.InsertEvent(ctx, event("ev-2")), ShouldBeNil)

			events, err := s.EventsForDay(ctx, userID, d)
			So(err, ShouldBeNil)
			So(len(events), ShouldEqual, 2)
			So(events[0].EventType, ShouldEqual, model.EventJournalEntry)
			So(events[0].Metadata["mood"], ShouldEqual, "good")
		})

		Convey("A duplicate event id maps to ErrConflict", func() {
			So(s.InsertEvent(ctx, event("ev-1")), ShouldBeNil)
			err := s.InsertEvent(ctx, event("ev-1"))
			So(errors.Is(err, model.ErrConflict), ShouldBeTrue)
		})

		Convey("ActiveUsers lists users with events on the day", func() {
			So(s.InsertEvent(ctx, event("ev-1")), ShouldBeNil)
			users, err := s.ActiveUsers(ctx, d)
			So(err, ShouldBeNil)
			So(users, ShouldResemble, []string{userID})

			empty, err := s.ActiveUsers(ctx, d.AddDate(0, 0, 1))
			So(err, ShouldBeNil)
			So(empty, ShouldBeEmpty)
		})

		Convey("An event with a bad user id is rejected", func() {
			bad := event("ev-x")
			bad.UserID = "whoever"
			err := s.InsertEvent(ctx, bad)
			So(errors.Is(err, model.ErrValidation), ShouldBeTrue)
		})
	})
}

func TestNotificationLedger(t *testing.T) {
	ctx := context.Background()

	Convey("Given an open store", t, func() {
		s := openTestStore(t)
		userID := uuid.NewString()
		d := day("2026-08-20")

		notification := func() model.NotificationRecord {
			return model.NotificationRecord{
				ID:          uuid.NewString(),
				UserID:      userID,
				Type:        model.NotificationCelebration,
				TriggerDate: d,
				Title:       "Amazing momentum! 🎉",
				Message:     "Keep it up",
				ActionType:  model.ActionViewMomentum,
				Status:      model.NotificationStatusPending,
				CreatedAt:   time.Now().UTC(),
			}
		}

		Convey("A valid notification inserts and reads back", func() {
			So(s.InsertNotification(ctx, notification()), ShouldBeNil)

			got, err := s.NotificationsForUser(ctx, userID, 10)
			So(err, ShouldBeNil)
			So(len(got), ShouldEqual, 1)
			So(got[0].Title, ShouldEqual, "Amazing momentum! 🎉")
			So(got[0].DeliveredAt, ShouldBeNil)
		})

		Convey("The per-day unique ledger maps duplicates to ErrConflict", func() {
			So(s.InsertNotification(ctx, notification()), ShouldBeNil)
			err := s.InsertNotification(ctx, notification())
			So(errors.Is(err, model.ErrConflict), ShouldBeTrue)
		})

		Convey("HasNotificationOn sees the ledger", func() {
			So(s.InsertNotification(ctx, notification()), ShouldBeNil)

			fired, err := s.HasNotificationOn(ctx, userID, model.NotificationCelebration, d)
			So(err, ShouldBeNil)
			So(fired, ShouldBeTrue)

			fired, err = s.HasNotificationOn(ctx, userID, model.NotificationCelebration, d.AddDate(0, 0, 1))
			So(err, ShouldBeNil)
			So(fired, ShouldBeFalse)
		})

		Convey("An invalid payload is rejected before the table", func() {
			bad := notification()
			bad.Title = ""
			err := s.InsertNotification(ctx, bad)
			So(errors.Is(err, model.ErrValidation), ShouldBeTrue)
		})
	})
}

func TestInterventionLedger(t *testing.T) {
	ctx := context.Background()

	Convey("Given an open store", t, func() {
		s := openTestStore(t)
		userID := uuid.NewString()
		d := day("2026-08-20")

		intervention := func() model.InterventionRecord {
			return model.InterventionRecord{
				ID:            uuid.NewString(),
				UserID:        userID,
				Type:          model.InterventionAutomatedCallSchedule,
				TriggerDate:   d,
				TriggerReason: model.ReasonConsecutiveNeedsCare,
				TriggerState:  model.StateNeedsCare,
				Priority:      model.PriorityHigh,
				Status:        model.InterventionStatusScheduled,
				ScheduledDate: d.AddDate(0, 0, 1),
				CreatedAt:     time.Now().UTC(),
			}
		}

		Convey("A valid intervention inserts and reads back", func() {
			So(s.InsertIntervention(ctx, intervention()), ShouldBeNil)

			got, err := s.InterventionsForUser(ctx, userID, 10)
			So(err, ShouldBeNil)
			So(len(got), ShouldEqual, 1)
			So(got[0].Priority, ShouldEqual, model.PriorityHigh)
			So(got[0].ScheduledDate, ShouldResemble, d.AddDate(0, 0, 1))
		})

		Convey("The per-day unique ledger maps duplicates to ErrConflict", func() {
			So(s.InsertIntervention(ctx, intervention()), ShouldBeNil)
			err := s.InsertIntervention(ctx, intervention())
			So(errors.Is(err, model.ErrConflict), ShouldBeTrue)
		})

		Convey("HasInterventionOn sees the ledger", func() {
			So(s.InsertIntervention(ctx, intervention()), ShouldBeNil)
			fired, err := s.HasInterventionOn(ctx, userID, model.ReasonConsecutiveNeedsCare, d)
			So(err, ShouldBeNil)
			So(fired, ShouldBeTrue)
		})
	})
}

func TestErrorLog(t *testing.T) {
	ctx := context.Background()

	Convey("Given an open store", t, func() {
		s := openTestStore(t)

		entry := func(severity string, created time.Time) model.ErrorLogEntry {
			return model.ErrorLogEntry{
				ID:        uuid.NewString(),
				ErrorType: "calculation_error",
				Message:   "boom",
				Source:    "test",
				Severity:  severity,
				CreatedAt: created,
			}
		}

		Convey("Entries insert and aggregate into stats", func() {
			now := time.Now().UTC()
			So(s.InsertErrorLog(ctx, entry(model.SeverityHigh, now)), ShouldBeNil)
			So(s.InsertErrorLog(ctx, entry(model.SeverityLow, now)), ShouldBeNil)

			stats, err := s.ErrorStats(ctx, now.Add(-time.Hour))
			So(err, ShouldBeNil)
			So(stats.Total, ShouldEqual, 2)
			So(stats.ByType["calculation_error"], ShouldEqual, 2)
			So(stats.BySeverity[model.SeverityHigh], ShouldEqual, 1)
		})

		Convey("Stats respect the window boundary", func() {
			now := time.Now().UTC()
			So(s.InsertErrorLog(ctx, entry(model.SeverityLow, now.Add(-2*time.Hour))), ShouldBeNil)

			stats, err := s.ErrorStats(ctx, now.Add(-time.Hour))
			So(err, ShouldBeNil)
			So(stats.Total, ShouldEqual, 0)
		})

		Convey("Resolution marks the entry and is not repeatable", func() {
			e := entry(model.SeverityMedium, time.Now().UTC())
			So(s.InsertErrorLog(ctx, e), ShouldBeNil)

			So(s.ResolveErrorLog(ctx, e.ID, "fixed upstream", time.Now().UTC()), ShouldBeNil)

			got, err := s.ErrorLogByID(ctx, e.ID)
			So(err, ShouldBeNil)
			So(got.Resolved, ShouldBeTrue)
			So(got.ResolutionNotes, ShouldEqual, "fixed upstream")
			So(got.ResolvedAt, ShouldNotBeNil)

			err = s.ResolveErrorLog(ctx, e.ID, "again", time.Now().UTC())
			So(errors.Is(err, model.ErrNotFound), ShouldBeTrue)
		})

		Convey("Resolving an unknown id returns ErrNotFound", func() {
			err := s.ResolveErrorLog(ctx, uuid.NewString(), "", time.Now().UTC())
			So(errors.Is(err, model.ErrNotFound), ShouldBeTrue)
		})

		Convey("Purge removes only resolved entries past the cutoff", func() {
			now := time.Now().UTC()
			old := entry(model.SeverityLow, now.AddDate(0, 0, -120))
			recent := entry(model.SeverityLow, now)
			unresolvedOld := entry(model.SeverityLow, now.AddDate(0, 0, -120))
			So(s.InsertErrorLog(ctx, old), ShouldBeNil)
			So(s.InsertErrorLog(ctx, recent), ShouldBeNil)
			So(s.InsertErrorLog(ctx, unresolvedOld), ShouldBeNil)
			So(s.ResolveErrorLog(ctx, old.ID, "", now), ShouldBeNil)
			So(s.ResolveErrorLog(ctx, recent.ID, "", now), ShouldBeNil)

			n, err := s.PurgeResolvedBefore(ctx, now.AddDate(0, 0, -90))
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 1)

			_, err = s.ErrorLogByID(ctx, old.ID)
			So(errors.Is(err, model.ErrNotFound), ShouldBeTrue)
			_, err = s.ErrorLogByID(ctx, unresolvedOld.ID)
			So(err, ShouldBeNil)
		})
	})
}

func TestStoreLimiter(t *testing.T) {
	ctx := context.Background()

	Convey("Given a store-backed rate limiter", t, func() {
		s := openTestStore(t)
		l := store.NewLimiter(s)
		userID := uuid.NewString()
		d := day("2026-08-20")

		Convey("An empty ledger admits the firing", func() {
			ok, err := l.TryAcquire(ctx, userID, rules.RuleCelebration, d)
			So(err, ShouldBeNil)
			So(ok, ShouldBeTrue)
		})

		Convey("An existing notification row refuses the firing", func() {
			So(s.InsertNotification(ctx, model.NotificationRecord{
				ID:          uuid.NewString(),
				UserID:      userID,
				Type:        rules.RuleCelebration,
				TriggerDate: d,
				Title:       "Amazing momentum! 🎉",
				Message:     "m",
				ActionType:  model.ActionViewMomentum,
				Status:      model.NotificationStatusPending,
				CreatedAt:   time.Now().UTC(),
			}), ShouldBeNil)

			ok, err := l.TryAcquire(ctx, userID, rules.RuleCelebration, d)
			So(err, ShouldBeNil)
			So(ok, ShouldBeFalse)

			Convey("But the next day is open again", func() {
				ok, err := l.TryAcquire(ctx, userID, rules.RuleCelebration, d.AddDate(0, 0, 1))
				So(err, ShouldBeNil)
				So(ok, ShouldBeTrue)
			})
		})

		Convey("For the care rule an intervention row alone refuses the firing", func() {
			So(s.InsertIntervention(ctx, model.InterventionRecord{
				ID:            uuid.NewString(),
				UserID:        userID,
				Type:          model.InterventionAutomatedCallSchedule,
				TriggerDate:   d,
				TriggerReason: model.ReasonConsecutiveNeedsCare,
				TriggerState:  model.StateNeedsCare,
				Priority:      model.PriorityHigh,
				Status:        model.InterventionStatusScheduled,
				ScheduledDate: d.AddDate(0, 0, 1),
				CreatedAt:     time.Now().UTC(),
			}), ShouldBeNil)

			ok, err := l.TryAcquire(ctx, userID, rules.RuleConsecutiveNeedsCare, d)
			So(err, ShouldBeNil)
			So(ok, ShouldBeFalse)
		})

		Convey("Release is a no-op", func() {
			So(l.Release(ctx, userID, rules.RuleCelebration, d), ShouldBeNil)
		})
	})
}
