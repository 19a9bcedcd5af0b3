package model

import "time"

// Breakdown explains how a day's raw score was assembled.
type Breakdown struct {
	EventsByType    map[string]int `json:"events_by_type"`   // true per-type counts
	PointsByType    map[string]int `json:"points_by_type"`   // capped points per type
	TopContributors []string       `json:"top_contributors"` // top-3 types by capped points
}

// CalculationMetadata records how a score was produced, for audit and replay.
type CalculationMetadata struct {
	DecayApplied           bool           `json:"decay_applied"`
	HistoricalDaysAnalyzed int            `json:"historical_days_analyzed"`
	ConfigSnapshot         map[string]any `json:"config_snapshot"`
	CalculatedAt           time.Time      `json:"calculated_at"`
}

// DailyScore is the single momentum row for one (user, date). The score
// calculator owns creation; recalculation replaces the row in place.
type DailyScore struct {
	UserID           string              `json:"user_id"`
	ScoreDate        time.Time           `json:"score_date"` // calendar date, UTC midnight
	RawScore         float64             `json:"raw_score"`
	NormalizedScore  float64             `json:"normalized_score"`
	FinalScore       float64             `json:"final_score"`
	MomentumState    State               `json:"momentum_state"`
	Breakdown        Breakdown           `json:"breakdown"`
	EventsCount      int                 `json:"events_count"` // true event count, including capped occurrences
	AlgorithmVersion string              `json:"algorithm_version"`
	Metadata         CalculationMetadata `json:"metadata"`
}
