// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"
)

// MomentumHandler handles score calculation requests.
type MomentumHandler struct {
	deps Dependencies
}

// NewMomentumHandler creates a new momentum handler.
func NewMomentumHandler(deps Dependencies) *MomentumHandler {
	return &MomentumHandler{deps: deps}
}

// calculateRequest mirrors the body for POST /v1/momentum/calculate.
type calculateRequest struct {
	UserID string `json:"user_id"`
	Date   string `json:"date"`
}

func (c calculateRequest) validate() error {
	if strings.TrimSpace(c.UserID) == "" {
		return errors.New("missing user_id")
	}
	return nil
}

// batchRequest mirrors the body for batch operations. Omitting user_ids
// covers every user active on the date.
type batchRequest struct {
	Date    string   `json:"date"`
	UserIDs []string `json:"user_ids"`
}

// HandleCalculate handles POST /v1/momentum/calculate requests.
// The response is always 200 with a coded envelope; bad input never
// produces a transport-level failure.
func (h *MomentumHandler) HandleCalculate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req calculateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	if req.Date == "" {
		req.Date = today()
	}

	result := h.deps.SafeCalculate(r.Context(), req.UserID, req.Date)
	writeJSON(w, http.StatusOK, result)
}

// HandleCalculateAll handles POST /v1/momentum/calculate-all requests.
func (h *MomentumHandler) HandleCalculateAll(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req batchRequest
	if err := decodeOptionalBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	day, err := parseDay(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	report, err := h.deps.CalculateAll(r.Context(), day, req.UserIDs)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// HandleGetScore handles GET /v1/momentum/score?user_id=...&date=... requests.
// Omitting date returns the latest stored score.
func (h *MomentumHandler) HandleGetScore(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "bad_request", errors.New("missing user_id"))
		return
	}

	var day time.Time
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := parseDay(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", err)
			return
		}
		day = parsed
	}

	score, err := h.deps.Score(r.Context(), userID, day)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, score)
}
