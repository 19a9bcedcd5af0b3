// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	signalqueue "github.com/beewell/momentum/internal/adapters/mq/queue"
	workerpool "github.com/beewell/momentum/internal/adapters/mq/worker"
	"github.com/beewell/momentum/internal/adapters/store"
	"github.com/beewell/momentum/internal/domain/model"
	"github.com/beewell/momentum/internal/domain/ratelimit"
	"github.com/beewell/momentum/internal/domain/rules"
	"github.com/beewell/momentum/internal/domain/scoring"
	"github.com/beewell/momentum/internal/domain/validate"
	"github.com/beewell/momentum/internal/errlog"
	"github.com/beewell/momentum/pkg/logger"
	"github.com/beewell/momentum/pkg/metrics"
)

// Error codes surfaced by SafeCalculate.
const (
	CodeInvalidUserID    = "INVALID_USER_ID"
	CodeInvalidDate      = "INVALID_DATE"
	CodeCalculationError = "CALCULATION_ERROR"
)

// CalcResult is the never-fails envelope around one calculation.
type CalcResult struct {
	Success      bool              `json:"success"`
	Score        *model.DailyScore `json:"score,omitempty"`
	ErrorCode    string            `json:"error_code,omitempty"`
	ErrorMessage string            `json:"error_message,omitempty"`
}

// BatchDetail reports one user's outcome inside a batch run.
type BatchDetail struct {
	UserID string `json:"user_id"`
	Error  string `json:"error,omitempty"`
}

// BatchReport summarizes a batch calculation or evaluation run.
type BatchReport struct {
	Date       string        `json:"date"`
	TotalUsers int           `json:"total_users"`
	Successful int           `json:"successful"`
	Failed     int           `json:"failed"`
	DurationMS int64         `json:"duration_ms"`
	Details    []BatchDetail `json:"details,omitempty"`
}

// EvalReport summarizes one rule-engine pass for a user.
type EvalReport struct {
	UserID                string   `json:"user_id"`
	RulesFired            []string `json:"rules_fired"`
	NotificationsCreated  int      `json:"notifications_created"`
	InterventionsCreated  int      `json:"interventions_created"`
	SuppressedByRateLimit int      `json:"suppressed_by_rate_limit"`
}

// Service wires the calculator, rule engine, store, and async plumbing
// into the operations the HTTP API exposes.
type Service struct {
	mu sync.RWMutex

	// Core components
	store      *store.Store
	calculator *scoring.Calculator
	engine     *rules.Engine
	limiter    ratelimit.Limiter
	errs       *errlog.Service
	queue      signalqueue.Queue
	pool       *workerpool.Pool

	// Configuration
	workerCount      int
	queueSize        int
	limiterSize      int
	batchParallelism int

	// State
	started bool

	// Logging
	logger logger.Logger
	now    func() time.Time
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithCalculator replaces the default score calculator.
func WithCalculator(c *scoring.Calculator) Option {
	return func(s *Service) {
		if c != nil {
			s.calculator = c
		}
	}
}

// WithRuleEngine replaces the default rule engine.
func WithRuleEngine(e *rules.Engine) Option {
	return func(s *Service) {
		if e != nil {
			s.engine = e
		}
	}
}

// WithErrorLog replaces the default error-log service.
func WithErrorLog(e *errlog.Service) Option {
	return func(s *Service) {
		if e != nil {
			s.errs = e
		}
	}
}

// WithWorkerCount sets the number of rule-evaluation workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum size of the score-update queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithLimiterSize sets the size of the in-memory rate-limit cache.
func WithLimiterSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.limiterSize = size
		}
	}
}

// WithBatchParallelism bounds concurrent per-user work in batch runs.
func WithBatchParallelism(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.batchParallelism = n
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// New constructs a new Service over the given store.
func New(st *store.Store, opts ...Option) *Service {
	s := &Service{
		store:            st,
		workerCount:      runtime.NumCPU() * 4,
		queueSize:        100_000,
		limiterSize:      50_000,
		batchParallelism: 8,
		now:              time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.calculator == nil {
		s.calculator = scoring.New()
	}
	if s.engine == nil {
		s.engine = rules.New()
	}
	if s.errs == nil {
		s.errs = errlog.New(st)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	return s
}

// Start initializes and starts the async components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	s.logger.Info(ctx, "starting momentum service...")

	// The in-memory limiter fronts the store-backed one so repeat
	// evaluations in the same process never touch the database.
	s.limiter = ratelimit.Chain(
		ratelimit.NewMemoryLimiter(ratelimit.WithMaxSize(s.limiterSize)),
		store.NewLimiter(s.store),
	)

	s.queue = signalqueue.NewInMemoryQueue(
		signalqueue.WithCapacity(s.queueSize),
		signalqueue.WithBufferSize(s.queueSize),
	)

	s.pool = workerpool.NewPool(s.workerCount, s.queue, s)
	s.pool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "momentum service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
	)

	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.logger.Info(ctx, "stopping momentum service...")

	if q, ok := s.queue.(*signalqueue.InMemoryQueue); ok {
		_ = q.Close()
	}
	if s.pool != nil {
		if err := s.pool.Shutdown(ctx); err != nil {
			s.logger.Warn(ctx, "worker pool shutdown", logger.Error(err))
		}
	}

	s.started = false
	s.logger.Info(ctx, "momentum service stopped")
}

// Calculate computes, persists, and returns the momentum score for one
// user and day, then queues the update for rule evaluation.
func (s *Service) Calculate(ctx context.Context, userID string, day time.Time) (model.DailyScore, error) {
	start := s.now()

	day = model.Day(day)
	events, err := s.store.EventsForDay(ctx, userID, day)
	if err != nil {
		metrics.RecordScoreCalculationError()
		return model.DailyScore{}, fmt.Errorf("load events: %w", err)
	}

	history, err := s.store.ScoreHistory(ctx, userID, day, s.calculator.LookbackDays())
	if err != nil {
		metrics.RecordScoreCalculationError()
		return model.DailyScore{}, fmt.Errorf("load history: %w", err)
	}

	score, err := s.calculator.Calculate(userID, day, events, history)
	if err != nil {
		metrics.RecordScoreCalculationError()
		return model.DailyScore{}, err
	}

	if err := s.store.UpsertDailyScore(ctx, score); err != nil {
		metrics.RecordScoreCalculationError()
		return model.DailyScore{}, fmt.Errorf("persist score: %w", err)
	}

	metrics.RecordScoreCalculated()
	metrics.RecordScoreCalculationLatency(float64(s.now().Sub(start).Milliseconds()))

	s.enqueueUpdate(ctx, userID, day)

	return score, nil
}

// enqueueUpdate hands the score update to the rule-evaluation workers.
// A full queue is logged and dropped; the next batch run covers the gap.
func (s *Service) enqueueUpdate(ctx context.Context, userID string, day time.Time) {
	s.mu.RLock()
	q := s.queue
	started := s.started
	s.mu.RUnlock()

	if !started || q == nil {
		return
	}
	if ok := q.Enqueue(ctx, model.ScoreUpdated{UserID: userID, ScoreDate: day}); !ok {
		s.logger.Warn(ctx, "score update dropped, queue full",
			logger.String("userID", userID),
		)
	}
}

// SafeCalculate is the never-fails variant: invalid input and calculation
// failures come back as coded results instead of errors, and failures are
// recorded in the error log.
func (s *Service) SafeCalculate(ctx context.Context, userID, date string) CalcResult {
	if res := validate.UserID(userID); !res.Valid {
		return CalcResult{
			ErrorCode:    CodeInvalidUserID,
			ErrorMessage: fmt.Sprintf("invalid user id: %s", userID),
		}
	}

	day, err := model.ParseDate(date)
	if err != nil {
		return CalcResult{
			ErrorCode:    CodeInvalidDate,
			ErrorMessage: fmt.Sprintf("invalid date: %s", date),
		}
	}

	score, err := s.Calculate(ctx, userID, day)
	if err != nil {
		if _, logErr := s.errs.Log(ctx, model.ErrorLogEntry{
			ErrorType: "calculation_error",
			ErrorCode: CodeCalculationError,
			Message:   err.Error(),
			UserID:    userID,
			Source:    "service.SafeCalculate",
			Severity:  model.SeverityHigh,
			Details:   map[string]any{"date": date},
		}); logErr != nil {
			s.logger.Error(ctx, "error log write failed", logger.Error(logErr))
		}
		return CalcResult{
			ErrorCode:    CodeCalculationError,
			ErrorMessage: err.Error(),
		}
	}

	return CalcResult{Success: true, Score: &score}
}

// CalculateAll runs the calculation for every user with events on the
// given day, or for an explicit subset when userIDs is non-empty.
// Per-user failures are isolated and reported in the details.
func (s *Service) CalculateAll(ctx context.Context, day time.Time, userIDs []string) (BatchReport, error) {
	day = model.Day(day)
	users := userIDs
	if len(users) == 0 {
		var err error
		users, err = s.store.ActiveUsers(ctx, day)
		if err != nil {
			return BatchReport{}, fmt.Errorf("list active users: %w", err)
		}
	}

	report := s.runBatch(ctx, day, users, func(ctx context.Context, userID string) error {
		_, err := s.Calculate(ctx, userID, day)
		return err
	})

	metrics.RecordBatchRun()
	metrics.RecordBatchDuration(float64(report.DurationMS))

	s.logger.Info(ctx, "batch calculation finished",
		logger.String("date", model.FormatDate(day)),
		logger.Int("total", report.TotalUsers),
		logger.Int("failed", report.Failed),
	)
	return report, nil
}

// EvaluateAll runs the rule engine for every user with a score on the
// given day.
func (s *Service) EvaluateAll(ctx context.Context, day time.Time) (BatchReport, error) {
	day = model.Day(day)
	users, err := s.store.UsersWithScoreOn(ctx, day)
	if err != nil {
		return BatchReport{}, fmt.Errorf("list scored users: %w", err)
	}

	report := s.runBatch(ctx, day, users, func(ctx context.Context, userID string) error {
		_, err := s.EvaluateUser(ctx, userID, day)
		return err
	})

	s.logger.Info(ctx, "batch evaluation finished",
		logger.String("date", model.FormatDate(day)),
		logger.Int("total", report.TotalUsers),
		logger.Int("failed", report.Failed),
	)
	return report, nil
}

// runBatch fans one operation out over users with bounded parallelism.
// Worker errors are collected, never propagated, so one bad user cannot
// sink the run.
func (s *Service) runBatch(ctx context.Context, day time.Time, users []string, op func(context.Context, string) error) BatchReport {
	start := s.now()

	var mu sync.Mutex
	details := make([]BatchDetail, 0)
	succeeded := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.batchParallelism)
	for _, userID := range users {
		userID := userID
		g.Go(func() error {
			if err := op(gctx, userID); err != nil {
				metrics.RecordBatchUserFailed()
				mu.Lock()
				details = append(details, BatchDetail{UserID: userID, Error: err.Error()})
				mu.Unlock()
				return nil
			}
			metrics.RecordBatchUserSucceeded()
			mu.Lock()
			succeeded++
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(details, func(i, j int) bool { return details[i].UserID < details[j].UserID })

	return BatchReport{
		Date:       model.FormatDate(day),
		TotalUsers: len(users),
		Successful: succeeded,
		Failed:     len(details),
		DurationMS: s.now().Sub(start).Milliseconds(),
		Details:    details,
	}
}

// EvaluateUser runs the intervention rules for one user as of day and
// persists whatever fires. Re-evaluation on the same day is idempotent:
// the rate limiter and the ledger indexes suppress repeat emissions.
func (s *Service) EvaluateUser(ctx context.Context, userID string, day time.Time) (EvalReport, error) {
	report := EvalReport{UserID: userID, RulesFired: []string{}}

	if res := validate.UserID(userID); !res.Valid {
		return report, nil
	}
	day = model.Day(day)

	history, err := s.store.RecentScores(ctx, userID, day, s.engine.WindowDays())
	if err != nil {
		return report, fmt.Errorf("load recent scores: %w", err)
	}

	metrics.RecordRuleEvaluation()
	triggers := s.engine.Evaluate(userID, history)

	for _, t := range triggers {
		fired, err := s.applyTrigger(ctx, userID, day, t)
		if err != nil {
			s.logFiringError(ctx, userID, t.Rule, err)
			continue
		}
		if !fired {
			report.SuppressedByRateLimit++
			metrics.RecordNotificationSuppressed(t.Notification.Type)
			continue
		}
		report.RulesFired = append(report.RulesFired, t.Rule)
		report.NotificationsCreated++
		metrics.RecordNotificationCreated(t.Notification.Type)
		if t.Intervention != nil {
			report.InterventionsCreated++
			metrics.RecordInterventionTriggered(t.Intervention.TriggerReason)
		}
	}

	return report, nil
}

// applyTrigger persists one firing behind the rate limiter. A conflict
// on insert means another evaluation won the race; it counts as
// suppression, not failure.
func (s *Service) applyTrigger(ctx context.Context, userID string, day time.Time, t rules.Trigger) (bool, error) {
	ok, err := s.limiter.TryAcquire(ctx, userID, t.Rule, day)
	if err != nil {
		return false, fmt.Errorf("rate limit check: %w", err)
	}
	if !ok {
		return false, nil
	}

	if err := s.store.InsertNotification(ctx, t.Notification); err != nil {
		if errors.Is(err, model.ErrConflict) {
			return false, nil
		}
		_ = s.limiter.Release(ctx, userID, t.Rule, day)
		return false, fmt.Errorf("persist notification: %w", err)
	}

	if t.Intervention != nil {
		if err := s.store.InsertIntervention(ctx, *t.Intervention); err != nil && !errors.Is(err, model.ErrConflict) {
			return false, fmt.Errorf("persist intervention: %w", err)
		}
	}

	return true, nil
}

func (s *Service) logFiringError(ctx context.Context, userID, rule string, err error) {
	s.logger.Error(ctx, "rule firing failed",
		logger.String("userID", userID),
		logger.String("rule", rule),
		logger.Error(err),
	)
	if _, logErr := s.errs.Log(ctx, model.ErrorLogEntry{
		ErrorType: "rule_firing_error",
		Message:   err.Error(),
		UserID:    userID,
		Source:    "service.EvaluateUser",
		Severity:  model.SeverityMedium,
		Details:   map[string]any{"rule": rule},
	}); logErr != nil {
		s.logger.Error(ctx, "error log write failed", logger.Error(logErr))
	}
}

// EvaluateRules satisfies the worker pool's evaluator contract.
func (s *Service) EvaluateRules(ctx context.Context, userID string, day time.Time) error {
	_, err := s.EvaluateUser(ctx, userID, day)
	return err
}

// Score returns the stored score for one user and day, or the latest one
// when day is zero.
func (s *Service) Score(ctx context.Context, userID string, day time.Time) (model.DailyScore, error) {
	if res := validate.UserID(userID); !res.Valid {
		return model.DailyScore{}, res.Err()
	}
	if day.IsZero() {
		return s.store.LatestScore(ctx, userID)
	}
	scores, err := s.store.RecentScores(ctx, userID, model.Day(day), 1)
	if err != nil {
		return model.DailyScore{}, err
	}
	if len(scores) == 0 || !scores[0].ScoreDate.Equal(model.Day(day)) {
		return model.DailyScore{}, model.ErrNotFound
	}
	return scores[0], nil
}

// Notifications returns recent notifications for a user, newest first.
func (s *Service) Notifications(ctx context.Context, userID string, limit int) ([]model.NotificationRecord, error) {
	if res := validate.UserID(userID); !res.Valid {
		return nil, res.Err()
	}
	return s.store.NotificationsForUser(ctx, userID, limit)
}

// Interventions returns recent interventions for a user, newest first.
func (s *Service) Interventions(ctx context.Context, userID string, limit int) ([]model.InterventionRecord, error) {
	if res := validate.UserID(userID); !res.Valid {
		return nil, res.Err()
	}
	return s.store.InterventionsForUser(ctx, userID, limit)
}

// Health derives the service health from recent error volume and pushes
// it to the metrics surface.
func (s *Service) Health(ctx context.Context) (model.HealthReport, error) {
	report, err := s.errs.Health(ctx)
	if err != nil {
		return model.HealthReport{}, err
	}
	metrics.UpdateHealthStatus(report.Status)
	return report, nil
}

// LogError records a failure in the error log.
func (s *Service) LogError(ctx context.Context, entry model.ErrorLogEntry) (string, error) {
	return s.errs.Log(ctx, entry)
}

// ResolveError marks an error-log entry resolved.
func (s *Service) ResolveError(ctx context.Context, id, notes string) error {
	return s.errs.Resolve(ctx, id, notes)
}

// ErrorStatistics aggregates error volume over the trailing window.
func (s *Service) ErrorStatistics(ctx context.Context, windowHours int) (model.ErrorStats, error) {
	return s.errs.Statistics(ctx, windowHours)
}

// CleanupErrors purges resolved entries past retention.
func (s *Service) CleanupErrors(ctx context.Context) (int64, error) {
	return s.errs.Cleanup(ctx)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats(ctx context.Context) map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":          s.started,
		"workerCount":      s.workerCount,
		"queueSize":        s.queueSize,
		"batchParallelism": s.batchParallelism,
		"algorithmVersion": scoring.AlgorithmVersion,
	}

	if s.started {
		stats["queueLength"] = s.queue.Len(ctx)
		stats["workers"] = s.pool.Size()
	}

	return stats
}
