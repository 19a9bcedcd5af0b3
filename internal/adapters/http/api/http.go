// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	service "github.com/beewell/momentum/internal/app"
	"github.com/beewell/momentum/internal/domain/model"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	SafeCalculate(ctx context.Context, userID, date string) service.CalcResult
	CalculateAll(ctx context.Context, day time.Time, userIDs []string) (service.BatchReport, error)
	EvaluateUser(ctx context.Context, userID string, day time.Time) (service.EvalReport, error)
	EvaluateAll(ctx context.Context, day time.Time) (service.BatchReport, error)
	Score(ctx context.Context, userID string, day time.Time) (model.DailyScore, error)
	Notifications(ctx context.Context, userID string, limit int) ([]model.NotificationRecord, error)
	Interventions(ctx context.Context, userID string, limit int) ([]model.InterventionRecord, error)
	Health(ctx context.Context) (model.HealthReport, error)
	ResolveError(ctx context.Context, id, notes string) error
	ErrorStatistics(ctx context.Context, windowHours int) (model.ErrorStats, error)
	CleanupErrors(ctx context.Context) (int64, error)
	GetStats(ctx context.Context) map[string]interface{}
}

// Server wires HTTP routes for the business API.
type Server struct {
	momentumHandler     *MomentumHandler
	interventionHandler *InterventionHandler
	errorLogHandler     *ErrorLogHandler
	healthHandler       *HealthHandler
	statsHandler        *StatsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies) *Server {
	return &Server{
		momentumHandler:     NewMomentumHandler(deps),
		interventionHandler: NewInterventionHandler(deps),
		errorLogHandler:     NewErrorLogHandler(deps),
		healthHandler:       NewHealthHandler(deps),
		statsHandler:        NewStatsHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleMetrics, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/v1/health", MetricsMiddleware(s.healthHandler.HandleHealth, "health"))
	mux.HandleFunc("/v1/momentum/calculate", MetricsMiddleware(s.momentumHandler.HandleCalculate, "calculate"))
	mux.HandleFunc("/v1/momentum/calculate-all", MetricsMiddleware(s.momentumHandler.HandleCalculateAll, "calculate_all"))
	mux.HandleFunc("/v1/momentum/score", MetricsMiddleware(s.momentumHandler.HandleGetScore, "score"))
	mux.HandleFunc("/v1/interventions/evaluate", MetricsMiddleware(s.interventionHandler.HandleEvaluate, "evaluate"))
	mux.HandleFunc("/v1/interventions", MetricsMiddleware(s.interventionHandler.HandleList, "interventions"))
	mux.HandleFunc("/v1/notifications", MetricsMiddleware(s.interventionHandler.HandleNotifications, "notifications"))
	mux.HandleFunc("/v1/errors/stats", MetricsMiddleware(s.errorLogHandler.HandleStats, "error_stats"))
	mux.HandleFunc("/v1/errors/resolve", MetricsMiddleware(s.errorLogHandler.HandleResolve, "error_resolve"))
	mux.HandleFunc("/v1/errors/cleanup", MetricsMiddleware(s.errorLogHandler.HandleCleanup, "error_cleanup"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeDomainError translates the domain sentinels into HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, model.ErrValidation):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, model.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, model.ErrConflict):
		writeError(w, http.StatusConflict, "conflict", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}

// parseDay reads a YYYY-MM-DD date, defaulting to today (UTC) when empty.
func parseDay(raw string) (time.Time, error) {
	if raw == "" {
		return model.Day(time.Now().UTC()), nil
	}
	return model.ParseDate(raw)
}

// today renders the current UTC date.
func today() string {
	return model.FormatDate(model.Day(time.Now().UTC()))
}

// decodeOptionalBody decodes a JSON body, tolerating an absent one.
func decodeOptionalBody(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
