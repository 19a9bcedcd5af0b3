package model

import "time"

// Error log severities.
const (
	SeverityLow    = "low"
	SeverityMedium = "medium"
	SeverityHigh   = "high"
)

// ErrorLogEntry is an append-only record of a recoverable failure.
// Entries are mutated only by the explicit resolve operation and purged by
// retention cleanup once resolved.
type ErrorLogEntry struct {
	ID              string         `json:"id"`
	ErrorType       string         `json:"error_type"`
	ErrorCode       string         `json:"error_code,omitempty"`
	Message         string         `json:"message"`
	Details         map[string]any `json:"details,omitempty"`
	UserID          string         `json:"user_id,omitempty"` // empty when the failure is not user-scoped
	Source          string         `json:"source"`            // component/operation that logged the entry
	Severity        string         `json:"severity"`
	Resolved        bool           `json:"resolved"`
	ResolvedAt      *time.Time     `json:"resolved_at,omitempty"`
	ResolutionNotes string         `json:"resolution_notes,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
}

// ErrorStats aggregates error-log volume over a trailing window.
type ErrorStats struct {
	WindowHours int            `json:"window_hours"`
	Total       int            `json:"total"`
	ByType      map[string]int `json:"by_type"`
	BySeverity  map[string]int `json:"by_severity"`
}

// Health statuses derived from recent error volume.
const (
	HealthHealthy  = "healthy"
	HealthDegraded = "degraded"
	HealthCritical = "critical"
)

// HealthReport is the health-check surface: a status plus the statistics
// that produced it.
type HealthReport struct {
	Status     string     `json:"status"`
	ErrorStats ErrorStats `json:"error_stats"`
	CheckedAt  time.Time  `json:"checked_at"`
}
