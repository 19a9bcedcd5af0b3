// Package errlog is the structured failure ledger: components log
// recoverable failures here, operators resolve them, and the health
// surface is derived from recent volume.
package errlog

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/beewell/momentum/internal/domain/model"
	"github.com/beewell/momentum/pkg/logger"
	"github.com/beewell/momentum/pkg/metrics"
)

// Default thresholds for deriving health from the trailing hour.
const (
	defaultRetentionDays        = 90
	defaultDegradedTotal        = 10
	defaultCriticalTotal        = 50
	defaultCriticalHighSeverity = 5
	healthWindowHours           = 1
	defaultStatsWindowHours     = 24
)

// Ledger is the slice of the store the service needs.
type Ledger interface {
	InsertErrorLog(ctx context.Context, e model.ErrorLogEntry) error
	ResolveErrorLog(ctx context.Context, id, notes string, at time.Time) error
	ErrorStats(ctx context.Context, since time.Time) (model.ErrorStats, error)
	PurgeResolvedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithRetention sets how long resolved entries are kept.
func WithRetention(days int) Option {
	return func(s *Service) {
		if days > 0 {
			s.retentionDays = days
		}
	}
}

// WithHealthThresholds tunes the degraded/critical boundaries over the
// trailing hour.
func WithHealthThresholds(degradedTotal, criticalTotal, criticalHighSeverity int) Option {
	return func(s *Service) {
		if degradedTotal > 0 {
			s.degradedTotal = degradedTotal
		}
		if criticalTotal > 0 {
			s.criticalTotal = criticalTotal
		}
		if criticalHighSeverity > 0 {
			s.criticalHighSeverity = criticalHighSeverity
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

// Service implements the error-log operations.
type Service struct {
	ledger               Ledger
	retentionDays        int
	degradedTotal        int
	criticalTotal        int
	criticalHighSeverity int
	now                  func() time.Time
	log                  logger.Logger
}

// New creates an error-log service over the given ledger.
func New(ledger Ledger, opts ...Option) *Service {
	s := &Service{
		ledger:               ledger,
		retentionDays:        defaultRetentionDays,
		degradedTotal:        defaultDegradedTotal,
		criticalTotal:        defaultCriticalTotal,
		criticalHighSeverity: defaultCriticalHighSeverity,
		now:                  time.Now,
		log:                  logger.Get().Named("errlog"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Log persists a structured entry and returns its id. Severity defaults
// to medium when unset.
func (s *Service) Log(ctx context.Context, entry model.ErrorLogEntry) (string, error) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Severity == "" {
		entry.Severity = model.SeverityMedium
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.now().UTC()
	}
	if err := s.ledger.InsertErrorLog(ctx, entry); err != nil {
		return "", fmt.Errorf("log error entry: %w", err)
	}

	metrics.RecordErrorLogged(entry.ErrorType, entry.Severity)
	s.log.Warn(ctx, "error logged",
		logger.String("errorType", entry.ErrorType),
		logger.String("errorCode", entry.ErrorCode),
		logger.String("severity", entry.Severity),
		logger.String("source", entry.Source),
	)
	return entry.ID, nil
}

// Resolve marks an entry resolved with notes. ErrNotFound for unknown ids.
func (s *Service) Resolve(ctx context.Context, id, notes string) error {
	if err := s.ledger.ResolveErrorLog(ctx, id, notes, s.now().UTC()); err != nil {
		return err
	}
	s.log.Info(ctx, "error resolved", logger.String("id", id))
	return nil
}

// Statistics aggregates error volume over the trailing window. A
// non-positive window falls back to 24 hours.
func (s *Service) Statistics(ctx context.Context, windowHours int) (model.ErrorStats, error) {
	if windowHours <= 0 {
		windowHours = defaultStatsWindowHours
	}
	since := s.now().UTC().Add(-time.Duration(windowHours) * time.Hour)
	stats, err := s.ledger.ErrorStats(ctx, since)
	if err != nil {
		return model.ErrorStats{}, err
	}
	stats.WindowHours = windowHours
	return stats, nil
}

// Health derives the overall status from trailing-hour error volume and
// returns it together with the statistics that produced it.
func (s *Service) Health(ctx context.Context) (model.HealthReport, error) {
	stats, err := s.Statistics(ctx, healthWindowHours)
	if err != nil {
		return model.HealthReport{}, err
	}

	status := model.HealthHealthy
	switch {
	case stats.BySeverity[model.SeverityHigh] >= s.criticalHighSeverity,
		stats.Total >= s.criticalTotal:
		status = model.HealthCritical
	case stats.Total >= s.degradedTotal:
		status = model.HealthDegraded
	}

	return model.HealthReport{
		Status:     status,
		ErrorStats: stats,
		CheckedAt:  s.now().UTC(),
	}, nil
}

// Cleanup purges resolved entries older than the retention period and
// returns the count removed.
func (s *Service) Cleanup(ctx context.Context) (int64, error) {
	cutoff := s.now().UTC().AddDate(0, 0, -s.retentionDays)
	n, err := s.ledger.PurgeResolvedBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.log.Info(ctx, "error log cleanup", logger.Int("removed", int(n)))
	}
	return n, nil
}
