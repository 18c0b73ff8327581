package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"skylineAPI/internal/scoring"
	"skylineAPI/internal/storage"
	"skylineAPI/middleware"
	"skylineAPI/services"
)

type EngagementHandler struct {
	engagementService *services.EngagementService
}

func NewEngagementHandler(engagementService *services.EngagementService) *EngagementHandler {
	return &EngagementHandler{
		engagementService: engagementService,
	}
}

type reportActionRequest struct {
	Action   scoring.ActionType      `json:"action"`
	Metadata services.ActionMetadata `json:"metadata"`
}

// ReportAction scores a validated user action and returns the awarded points,
// level transition and any new badges.
func (h *EngagementHandler) ReportAction(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req reportActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Action == "" {
		respondWithError(w, http.StatusBadRequest, "Field 'action' is required")
		return
	}

	result, err := h.engagementService.ReportAction(ctx, userID, req.Action, req.Metadata)
	if err != nil {
		if errors.Is(err, services.ErrPlanIDRequired) {
			respondWithError(w, http.StatusBadRequest, "Field 'metadata.plan_id' is required for plan_hosted")
			return
		}
		if errors.Is(err, storage.ErrNotFound) {
			respondWithError(w, http.StatusNotFound, "User not found")
			return
		}
		log.Printf("ReportAction failed for user %s: %v", userID, err)
		respondWithError(w, http.StatusInternalServerError, "Failed to report action")
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}

// CheckInStreak advances the caller's daily streak and applies the bonus.
func (h *EngagementHandler) CheckInStreak(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	result, err := h.engagementService.CheckInStreak(ctx, userID, time.Now())
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondWithError(w, http.StatusNotFound, "User not found")
			return
		}
		log.Printf("CheckInStreak failed for user %s: %v", userID, err)
		respondWithError(w, http.StatusInternalServerError, "Failed to update streak")
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}

// GetBadges returns the full catalog with the caller's earned flags and
// progress fractions.
func (h *EngagementHandler) GetBadges(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	progress, err := h.engagementService.GetBadgeProgress(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondWithError(w, http.StatusNotFound, "User not found")
			return
		}
		log.Printf("GetBadges failed for user %s: %v", userID, err)
		respondWithError(w, http.StatusInternalServerError, "Failed to load badges")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]any{"badges": progress})
}

func (h *EngagementHandler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			respondWithError(w, http.StatusBadRequest, "Query parameter 'limit' must be a positive integer")
			return
		}
		limit = parsed
	}

	entries, err := h.engagementService.Leaderboard(ctx, limit)
	if err != nil {
		log.Printf("GetLeaderboard failed: %v", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to load leaderboard")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]any{"leaderboard": entries})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "Failed to marshal response"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}
