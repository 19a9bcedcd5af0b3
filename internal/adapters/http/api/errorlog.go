// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
)

// ErrorLogHandler exposes the error-log operations.
type ErrorLogHandler struct {
	deps Dependencies
}

// NewErrorLogHandler creates a new error-log handler.
func NewErrorLogHandler(deps Dependencies) *ErrorLogHandler {
	return &ErrorLogHandler{deps: deps}
}

// HandleStats handles GET /v1/errors/stats?window_hours=... requests.
func (h *ErrorLogHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	window := 0
	if raw := r.URL.Query().Get("window_hours"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", errors.New("invalid window_hours"))
			return
		}
		window = parsed
	}

	stats, err := h.deps.ErrorStatistics(r.Context(), window)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// resolveRequest mirrors the body for POST /v1/errors/resolve.
type resolveRequest struct {
	ID    string `json:"id"`
	Notes string `json:"notes"`
}

// HandleResolve handles POST /v1/errors/resolve requests.
func (h *ErrorLogHandler) HandleResolve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	if strings.TrimSpace(req.ID) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", errors.New("missing id"))
		return
	}

	if err := h.deps.ResolveError(r.Context(), req.ID, req.Notes); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "resolved", "id": req.ID})
}

// HandleCleanup handles POST /v1/errors/cleanup requests.
func (h *ErrorLogHandler) HandleCleanup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	removed, err := h.deps.CleanupErrors(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"removed": removed})
}
