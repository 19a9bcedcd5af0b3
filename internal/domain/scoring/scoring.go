// Package scoring computes the per-user, per-day momentum score: capped
// raw points, exponential-decay blending with history, and zone
// classification with hysteresis.
package scoring

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/beewell/momentum/internal/domain/model"
	"github.com/beewell/momentum/internal/domain/validate"
)

// Default algorithm constants. All are tunable through options; the
// defaults match algorithm version v1.0.
const (
	defaultHalfLifeDays       = 10.0
	defaultRisingThreshold    = 70.0
	defaultNeedsCareThreshold = 45.0
	defaultHysteresisBuffer   = 2.0
	defaultMaxDailyScore      = 100.0
	defaultMaxEventsPerType   = 5
	defaultLookbackDays       = 90
	defaultEventWeight        = 5
	topContributorCount       = 3

	// AlgorithmVersion is stamped on every DailyScore row.
	AlgorithmVersion = "v1.0"
)

// DefaultEventWeights is the point catalog for the fixed event types.
func DefaultEventWeights() map[string]int {
	return map[string]int{
		model.EventLessonCompletion:     15,
		model.EventLessonStart:          5,
		model.EventJournalEntry:         10,
		model.EventCoachInteraction:     20,
		model.EventGoalSetting:          12,
		model.EventGoalCompletion:       18,
		model.EventAppSession:           3,
		model.EventStreakMilestone:      25,
		model.EventAssessmentCompletion: 15,
		model.EventResourceAccess:       5,
		model.EventPeerInteraction:      8,
		model.EventReminderResponse:     7,
	}
}

// Option applies a configuration option to the Calculator.
type Option func(*Calculator)

// WithEventWeights sets the per-type point weights and the default weight
// for event types outside the catalog.
func WithEventWeights(weights map[string]int, defaultWeight int) Option {
	return func(c *Calculator) {
		c.eventWeights = make(map[string]int, len(weights))
		for t, w := range weights {
			if w > 0 {
				c.eventWeights[t] = w
			}
		}
		if defaultWeight > 0 {
			c.defaultWeight = defaultWeight
		}
	}
}

// WithHalfLife sets the decay half-life in days.
func WithHalfLife(days float64) Option {
	return func(c *Calculator) {
		if days > 0 {
			c.halfLifeDays = days
		}
	}
}

// WithThresholds sets the zone boundaries and the hysteresis buffer.
func WithThresholds(rising, needsCare, buffer float64) Option {
	return func(c *Calculator) {
		if rising > needsCare && needsCare > 0 {
			c.risingThreshold = rising
			c.needsCareThreshold = needsCare
		}
		if buffer >= 0 {
			c.hysteresisBuffer = buffer
		}
	}
}

// WithCaps sets the daily score cap and the per-type event cap.
func WithCaps(maxDailyScore float64, maxEventsPerType int) Option {
	return func(c *Calculator) {
		if maxDailyScore > 0 {
			c.maxDailyScore = maxDailyScore
		}
		if maxEventsPerType > 0 {
			c.maxEventsPerType = maxEventsPerType
		}
	}
}

// WithLookback caps the historical window in days. Weights beyond a few
// half-lives are negligible, so a generous cap loses nothing.
func WithLookback(days int) Option {
	return func(c *Calculator) {
		if days > 0 {
			c.lookbackDays = days
		}
	}
}

// Calculator computes DailyScore rows. It is pure: all state comes in
// through the arguments, so instances are safe for concurrent use.
type Calculator struct {
	eventWeights       map[string]int
	defaultWeight      int
	halfLifeDays       float64
	risingThreshold    float64
	needsCareThreshold float64
	hysteresisBuffer   float64
	maxDailyScore      float64
	maxEventsPerType   int
	lookbackDays       int
}

// New creates a Calculator with v1.0 defaults and applies opts.
func New(opts ...Option) *Calculator {
	c := &Calculator{
		eventWeights:       DefaultEventWeights(),
		defaultWeight:      defaultEventWeight,
		halfLifeDays:       defaultHalfLifeDays,
		risingThreshold:    defaultRisingThreshold,
		needsCareThreshold: defaultNeedsCareThreshold,
		hysteresisBuffer:   defaultHysteresisBuffer,
		maxDailyScore:      defaultMaxDailyScore,
		maxEventsPerType:   defaultMaxEventsPerType,
		lookbackDays:       defaultLookbackDays,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// LookbackDays reports the configured historical window.
func (c *Calculator) LookbackDays() int { return c.lookbackDays }

// DecayWeight returns w(d) = exp(-ln2/halfLife * d). The weight is 1 at
// d=0, halves every halfLife days, and never reaches 0.
func (c *Calculator) DecayWeight(daysAgo float64) float64 {
	if daysAgo < 0 {
		daysAgo = 0
	}
	return math.Exp(-math.Ln2 / c.halfLifeDays * daysAgo)
}

// RawScore sums capped points across event types. Only the first
// maxEventsPerType occurrences of a type contribute points; the breakdown
// still records the true counts.
func (c *Calculator) RawScore(events []model.EngagementEvent) (float64, model.Breakdown) {
	counts := make(map[string]int)
	points := make(map[string]int)
	for _, ev := range events {
		counts[ev.EventType]++
		if counts[ev.EventType] > c.maxEventsPerType {
			continue
		}
		w, ok := c.eventWeights[ev.EventType]
		if !ok {
			w = c.defaultWeight
		}
		points[ev.EventType] += w
	}

	total := 0.0
	for _, p := range points {
		total += float64(p)
	}
	total = clamp(total, 0, c.maxDailyScore)

	return total, model.Breakdown{
		EventsByType:    counts,
		PointsByType:    points,
		TopContributors: topContributors(points),
	}
}

// Blend folds decayed historical final scores into today's raw score
// using an exponential-kernel weighted average. With no history the final
// score equals the raw score exactly.
func (c *Calculator) Blend(raw float64, target time.Time, history []model.DailyScore) (final float64, analyzed int) {
	target = model.Day(target)
	weightSum := c.DecayWeight(0)
	scoreSum := raw * weightSum

	for _, h := range history {
		days := target.Sub(model.Day(h.ScoreDate)).Hours() / 24
		if days <= 0 || days > float64(c.lookbackDays) {
			continue
		}
		w := c.DecayWeight(days)
		weightSum += w
		scoreSum += h.FinalScore * w
		analyzed++
	}

	return clamp(scoreSum/weightSum, 0, c.maxDailyScore), analyzed
}

// Classify maps a final score to a momentum state, retaining yesterday's
// higher state when the score sits within the hysteresis buffer of the
// boundary that would have kept it.
func (c *Calculator) Classify(final float64, previous model.State) model.State {
	naive := c.classifyNaive(final)
	if !previous.Valid() || previous.Rank() <= naive.Rank() {
		return naive
	}
	if final >= c.zoneFloor(previous)-c.hysteresisBuffer {
		return previous
	}
	return naive
}

func (c *Calculator) classifyNaive(score float64) model.State {
	switch {
	case score >= c.risingThreshold:
		return model.StateRising
	case score >= c.needsCareThreshold:
		return model.StateSteady
	default:
		return model.StateNeedsCare
	}
}

// zoneFloor returns the lowest score that classifies into state.
func (c *Calculator) zoneFloor(state model.State) float64 {
	switch state {
	case model.StateRising:
		return c.risingThreshold
	case model.StateSteady:
		return c.needsCareThreshold
	default:
		return 0
	}
}

// Calculate produces the DailyScore row for one user and date. events must
// all belong to the target date; history holds prior DailyScore rows in
// any order. The previous state for hysteresis is taken from the row dated
// exactly one day before the target.
func (c *Calculator) Calculate(userID string, target time.Time, events []model.EngagementEvent, history []model.DailyScore) (model.DailyScore, error) {
	if res := validate.UserID(userID); !res.Valid {
		return model.DailyScore{}, fmt.Errorf("calculate for %q: %w", userID, res.Err())
	}
	if target.IsZero() {
		return model.DailyScore{}, fmt.Errorf("calculate: %w: target date is required", model.ErrValidation)
	}
	target = model.Day(target)

	raw, breakdown := c.RawScore(events)
	final, analyzed := c.Blend(raw, target, history)
	state := c.Classify(final, c.previousState(target, history))

	return model.DailyScore{
		UserID:           userID,
		ScoreDate:        target,
		RawScore:         raw,
		NormalizedScore:  clamp(raw, 0, c.maxDailyScore),
		FinalScore:       final,
		MomentumState:    state,
		Breakdown:        breakdown,
		EventsCount:      len(events),
		AlgorithmVersion: AlgorithmVersion,
		Metadata: model.CalculationMetadata{
			DecayApplied:           analyzed > 0,
			HistoricalDaysAnalyzed: analyzed,
			ConfigSnapshot:         c.snapshot(),
			CalculatedAt:           time.Now().UTC(),
		},
	}, nil
}

func (c *Calculator) previousState(target time.Time, history []model.DailyScore) model.State {
	yesterday := target.AddDate(0, 0, -1)
	for _, h := range history {
		if model.Day(h.ScoreDate).Equal(yesterday) {
			return h.MomentumState
		}
	}
	return ""
}

func (c *Calculator) snapshot() map[string]any {
	return map[string]any{
		"half_life_days":       c.halfLifeDays,
		"rising_threshold":     c.risingThreshold,
		"needs_care_threshold": c.needsCareThreshold,
		"hysteresis_buffer":    c.hysteresisBuffer,
		"max_daily_score":      c.maxDailyScore,
		"max_events_per_type":  c.maxEventsPerType,
		"lookback_days":        c.lookbackDays,
	}
}

func topContributors(points map[string]int) []string {
	types := make([]string, 0, len(points))
	for t := range points {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool {
		if points[types[i]] != points[types[j]] {
			return points[types[i]] > points[types[j]]
		}
		return types[i] < types[j]
	})
	if len(types) > topContributorCount {
		types = types[:topContributorCount]
	}
	return types
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
