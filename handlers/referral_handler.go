package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"skylineAPI/internal/storage"
	"skylineAPI/middleware"
	"skylineAPI/services"

	"github.com/gorilla/mux"
)

type ReferralHandler struct {
	referralService *services.ReferralService
}

func NewReferralHandler(referralService *services.ReferralService) *ReferralHandler {
	return &ReferralHandler{
		referralService: referralService,
	}
}

type attributeReferralRequest struct {
	ReferrerID string `json:"referrer_id"`
}

// AttributeReferral records who invited the authenticated user. Rejections
// (self-referral, unknown referrer, repeat attribution) come back as 200 with
// accepted=false since racing clients make them routine.
func (h *ReferralHandler) AttributeReferral(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req attributeReferralRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.ReferrerID == "" {
		respondWithError(w, http.StatusBadRequest, "Field 'referrer_id' is required")
		return
	}

	result, err := h.referralService.AttributeReferral(ctx, userID, req.ReferrerID)
	if err != nil {
		log.Printf("AttributeReferral failed for user %s: %v", userID, err)
		respondWithError(w, http.StatusInternalServerError, "Failed to attribute referral")
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}

// ProfileCompleted is called when the authenticated user finishes a profile
// milestone; it credits their referrer if the completion fields are all set.
func (h *ReferralHandler) ProfileCompleted(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	result, err := h.referralService.CreditReferrerIfEligible(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondWithError(w, http.StatusNotFound, "User not found")
			return
		}
		log.Printf("ProfileCompleted failed for user %s: %v", userID, err)
		respondWithError(w, http.StatusInternalServerError, "Failed to process completion")
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}

// RecountReferrals is the maintenance endpoint: re-scan one referrer's
// referrals and reconcile the counter, returning the per-referral report.
func (h *ReferralHandler) RecountReferrals(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	referrerID := mux.Vars(r)["referrerId"]
	if referrerID == "" {
		respondWithError(w, http.StatusBadRequest, "Path parameter 'referrerId' is required")
		return
	}

	report, err := h.referralService.RecountReferrals(ctx, referrerID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondWithError(w, http.StatusNotFound, "Referrer not found")
			return
		}
		log.Printf("RecountReferrals failed for referrer %s: %v", referrerID, err)
		respondWithError(w, http.StatusInternalServerError, "Failed to recount referrals")
		return
	}

	respondWithJSON(w, http.StatusOK, report)
}
