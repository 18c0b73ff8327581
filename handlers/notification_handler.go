package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"skylineAPI/internal/notification"
	"skylineAPI/middleware"
	"skylineAPI/services"
)

type NotificationHandler struct {
	notificationService *services.NotificationService
}

func NewNotificationHandler(notificationService *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{
		notificationService: notificationService,
	}
}

func (h *NotificationHandler) GetPreferences(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	prefs, err := h.notificationService.GetPreferences(ctx, userID)
	if err != nil {
		log.Printf("GetPreferences failed for user %s: %v", userID, err)
		respondWithError(w, http.StatusInternalServerError, "Failed to load preferences")
		return
	}

	respondWithJSON(w, http.StatusOK, prefs)
}

type updatePreferencesRequest struct {
	PushEnabled bool                           `json:"push_enabled"`
	Categories  map[notification.Category]bool `json:"categories"`
}

func (h *NotificationHandler) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req updatePreferencesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	prefs, err := h.notificationService.UpdatePreferences(ctx, userID, req.PushEnabled, req.Categories)
	if err != nil {
		log.Printf("UpdatePreferences failed for user %s: %v", userID, err)
		respondWithError(w, http.StatusInternalServerError, "Failed to save preferences")
		return
	}

	respondWithJSON(w, http.StatusOK, prefs)
}

// GetDecision answers whether a notification of the given type would reach
// the authenticated user right now.
func (h *NotificationHandler) GetDecision(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	nType := r.URL.Query().Get("type")
	if nType == "" {
		respondWithError(w, http.StatusBadRequest, "Query parameter 'type' is required")
		return
	}

	enabled, err := h.notificationService.IsNotificationEnabled(ctx, userID, notification.NotificationType(nType))
	if err != nil {
		log.Printf("GetDecision failed for user %s type %s: %v", userID, nType, err)
		respondWithError(w, http.StatusInternalServerError, "Failed to evaluate preferences")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]any{"type": nType, "enabled": enabled})
}

type registerDeviceRequest struct {
	Token    string `json:"token"`
	Platform string `json:"platform"`
}

func (h *NotificationHandler) RegisterDevice(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req registerDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.notificationService.RegisterDevice(ctx, userID, req.Token, req.Platform); err != nil {
		respondWithError(w, http.StatusBadRequest, "Failed to register device")
		return
	}

	respondWithJSON(w, http.StatusCreated, map[string]string{"status": "registered"})
}
