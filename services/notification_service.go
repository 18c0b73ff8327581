package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"skylineAPI/internal/notification"
	"skylineAPI/internal/storage"
)

type NotificationService struct {
	store      storage.Store
	dispatcher *NotificationDispatcher
}

func NewNotificationService(store storage.Store) *NotificationService {
	service := &NotificationService{
		store: store,
	}
	service.dispatcher = NewNotificationDispatcher(service)
	return service
}

// Allow injecting the real FCM provider from main.go
func (s *NotificationService) SetPushProvider(provider PushNotificationProvider) {
	s.dispatcher.SetPushProvider(provider)
}

func (s *NotificationService) Stop() {
	s.dispatcher.Stop()
}

// IsNotificationEnabled decides whether a notification of the given type may
// reach the user:
//  1. administrative types are always on,
//  2. push_enabled=false mutes everything else,
//  3. a type without a category mapping is allowed (new types must not be
//     silently dropped),
//  4. otherwise the stored category flag decides, missing categories
//     defaulting to enabled.
func (s *NotificationService) IsNotificationEnabled(ctx context.Context, userID string, nType notification.NotificationType) (bool, error) {
	if notification.IsAdminType(nType) {
		return true, nil
	}

	prefs, err := s.store.GetPreferences(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			// Never saved preferences: everything is on.
			return true, nil
		}
		return false, fmt.Errorf("failed to load preferences: %w", err)
	}
	prefs = prefs.MergeWithDefaults()

	if !prefs.PushEnabled {
		return false, nil
	}

	category, ok := notification.CategoryOf(nType)
	if !ok {
		return true, nil
	}

	enabled, ok := prefs.Categories[category]
	if !ok {
		return true, nil
	}
	return enabled, nil
}

// GetPreferences returns the user's stored preferences merged with defaults,
// or pure defaults when nothing is stored.
func (s *NotificationService) GetPreferences(ctx context.Context, userID string) (notification.Preferences, error) {
	prefs, err := s.store.GetPreferences(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return notification.DefaultPreferences(userID), nil
		}
		return notification.Preferences{}, fmt.Errorf("failed to load preferences: %w", err)
	}
	return prefs.MergeWithDefaults(), nil
}

func (s *NotificationService) UpdatePreferences(ctx context.Context, userID string, pushEnabled bool, categories map[notification.Category]bool) (notification.Preferences, error) {
	prefs := notification.Preferences{
		UserID:      userID,
		PushEnabled: pushEnabled,
		Categories:  categories,
	}
	prefs = prefs.MergeWithDefaults()

	if err := s.store.SavePreferences(ctx, prefs); err != nil {
		return notification.Preferences{}, fmt.Errorf("failed to save preferences: %w", err)
	}
	return prefs, nil
}

func (s *NotificationService) RegisterDevice(ctx context.Context, userID, token, platform string) error {
	if token == "" {
		return fmt.Errorf("device token is required")
	}
	return s.store.RegisterDeviceToken(ctx, userID, notification.DeviceToken{Token: token, Platform: platform})
}

// Notify runs the preference gate and, when allowed, queues a push for
// asynchronous delivery. Gate or queue problems are logged, never returned:
// notifications are best-effort decorations on the triggering action.
func (s *NotificationService) Notify(ctx context.Context, userID string, nType notification.NotificationType, title, body string, data map[string]any) {
	enabled, err := s.IsNotificationEnabled(ctx, userID, nType)
	if err != nil {
		log.Printf("Notification gate failed for user %s type %s: %v", userID, nType, err)
		return
	}
	if !enabled {
		notificationsSuppressed.WithLabelValues(string(nType)).Inc()
		return
	}

	tokens, err := s.store.GetDeviceTokens(ctx, userID)
	if err != nil {
		log.Printf("Failed to load device tokens for user %s: %v", userID, err)
		return
	}
	if len(tokens) == 0 {
		return
	}

	s.dispatcher.Dispatch(&DispatchJob{
		Notification: notification.Notification{
			ID:        uuid.New(),
			UserID:    userID,
			Type:      nType,
			Title:     title,
			Message:   body,
			Data:      data,
			CreatedAt: time.Now(),
		},
		Tokens: tokens,
	})
}
