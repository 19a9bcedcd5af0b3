// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load(ctx) layers defaults, optional YAML file, and env vars.
// - External errors must be wrapped via this package's error helpers.
package config

import (
	"runtime"

	"github.com/beewell/momentum/internal/domain/scoring"
)

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// DBPath is the SQLite database file path.
	DBPath string `koanf:"db_path"`

	// QueueSize bounds the in-memory score-update queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of rule-evaluation workers.
	WorkerCount int `koanf:"worker_count"`

	// LimiterSize sets the size of the in-memory rate-limit cache.
	LimiterSize int `koanf:"limiter_size"`

	// BatchParallelism bounds concurrent per-user calculations in batch runs.
	BatchParallelism int `koanf:"batch_parallelism"`

	// Scoring tunables.
	HalfLifeDays       float64 `koanf:"half_life_days"`
	RisingThreshold    float64 `koanf:"rising_threshold"`
	NeedsCareThreshold float64 `koanf:"needs_care_threshold"`
	HysteresisBuffer   float64 `koanf:"hysteresis_buffer"`
	MaxDailyScore      float64 `koanf:"max_daily_score"`
	MaxEventsPerType   int     `koanf:"max_events_per_type"`
	LookbackDays       int     `koanf:"lookback_days"`

	// EventWeights maps event types to their point values.
	EventWeights map[string]int `koanf:"event_weights"`

	// DefaultEventWeight is used for unknown event types.
	DefaultEventWeight int `koanf:"default_event_weight"`

	// Rule tunables.
	ScoreDropThreshold float64 `koanf:"score_drop_threshold"`
	ScoreDropWindow    int     `koanf:"score_drop_window"`

	// Error-log tunables.
	ErrorRetentionDays   int `koanf:"error_retention_days"`
	DegradedTotal        int `koanf:"degraded_total"`
	CriticalTotal        int `koanf:"critical_total"`
	CriticalHighSeverity int `koanf:"critical_high_severity"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:             "info",
		Addr:                 ":9080",
		DBPath:               "momentum.db",
		QueueSize:            100_000,
		WorkerCount:          runtime.NumCPU() * 4,
		LimiterSize:          50_000,
		BatchParallelism:     8,
		HalfLifeDays:         10,
		RisingThreshold:      70,
		NeedsCareThreshold:   45,
		HysteresisBuffer:     2.0,
		MaxDailyScore:        100,
		MaxEventsPerType:     5,
		LookbackDays:         90,
		EventWeights:         scoring.DefaultEventWeights(),
		DefaultEventWeight:   5,
		ScoreDropThreshold:   15.0,
		ScoreDropWindow:      3,
		ErrorRetentionDays:   90,
		DegradedTotal:        10,
		CriticalTotal:        50,
		CriticalHighSeverity: 5,
	}
}
