// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
)

// Default and maximum page sizes for list endpoints.
const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// InterventionHandler handles rule evaluation and record listing.
type InterventionHandler struct {
	deps Dependencies
}

// NewInterventionHandler creates a new intervention handler.
func NewInterventionHandler(deps Dependencies) *InterventionHandler {
	return &InterventionHandler{deps: deps}
}

// evaluateRequest mirrors the body for POST /v1/interventions/evaluate.
// Omitting user_id evaluates every user scored on the date.
type evaluateRequest struct {
	UserID string `json:"user_id"`
	Date   string `json:"date"`
}

// HandleEvaluate handles POST /v1/interventions/evaluate requests.
func (h *InterventionHandler) HandleEvaluate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req evaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	day, err := parseDay(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	if req.UserID == "" {
		report, err := h.deps.EvaluateAll(r.Context(), day)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, report)
		return
	}

	report, err := h.deps.EvaluateUser(r.Context(), req.UserID, day)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// HandleList handles GET /v1/interventions?user_id=...&limit=... requests.
func (h *InterventionHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	userID, limit, err := listParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	records, err := h.deps.Interventions(r.Context(), userID, limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

// HandleNotifications handles GET /v1/notifications?user_id=...&limit=... requests.
func (h *InterventionHandler) HandleNotifications(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	userID, limit, err := listParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	records, err := h.deps.Notifications(r.Context(), userID, limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func listParams(r *http.Request) (userID string, limit int, err error) {
	userID = r.URL.Query().Get("user_id")
	if userID == "" {
		return "", 0, errors.New("missing user_id")
	}
	limit = defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return "", 0, errors.New("invalid limit")
		}
		if limit > maxListLimit {
			limit = maxListLimit
		}
	}
	return userID, limit, nil
}
