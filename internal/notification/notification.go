package notification

import (
	"time"

	"github.com/google/uuid"
)

type NotificationType string

const (
	// User-facing engagement notifications. Each maps to a preference
	// category the user can toggle off.
	NotificationBadgeEarned       NotificationType = "badge_earned"
	NotificationLevelUp           NotificationType = "level_up"
	NotificationStreakRisk        NotificationType = "streak_risk"
	NotificationStreakMilestone   NotificationType = "streak_milestone"
	NotificationReferralCredited  NotificationType = "referral_credited"
	NotificationRewardClaim       NotificationType = "reward_claim"
	NotificationConnectionRequest NotificationType = "connection_request"
	NotificationPlanInvite        NotificationType = "plan_invite"
	NotificationPlanReminder      NotificationType = "plan_reminder"

	// Administrative notifications bypass user preferences entirely.
	NotificationAdminAlert        NotificationType = "admin_alert"
	NotificationAccountSecurity   NotificationType = "account_security"
	NotificationSystemMaintenance NotificationType = "system_maintenance"
)

type Category string

const (
	CategoryAchievements Category = "achievements"
	CategoryStreaks      Category = "streaks"
	CategoryReferrals    Category = "referrals"
	CategorySocial       Category = "social"
	CategoryPlans        Category = "plans"
)

// typeCategories maps each user-facing type to the preference category that
// gates it. Admin types are deliberately absent.
var typeCategories = map[NotificationType]Category{
	NotificationBadgeEarned:       CategoryAchievements,
	NotificationLevelUp:           CategoryAchievements,
	NotificationStreakRisk:        CategoryStreaks,
	NotificationStreakMilestone:   CategoryStreaks,
	NotificationReferralCredited:  CategoryReferrals,
	NotificationRewardClaim:       CategoryReferrals,
	NotificationConnectionRequest: CategorySocial,
	NotificationPlanInvite:        CategoryPlans,
	NotificationPlanReminder:      CategoryPlans,
}

var adminTypes = map[NotificationType]bool{
	NotificationAdminAlert:        true,
	NotificationAccountSecurity:   true,
	NotificationSystemMaintenance: true,
}

// CategoryOf returns the preference category for a type, or ok=false when
// the type has no mapping (unknown or admin types).
func CategoryOf(t NotificationType) (Category, bool) {
	c, ok := typeCategories[t]
	return c, ok
}

// IsAdminType reports whether a type must always be delivered regardless of
// user preferences.
func IsAdminType(t NotificationType) bool {
	return adminTypes[t]
}

// Preferences is a user's notification settings. PushEnabled is the master
// switch; Categories toggles individual groups underneath it.
type Preferences struct {
	UserID      string            `json:"user_id" db:"user_id"`
	PushEnabled bool              `json:"push_enabled" db:"push_enabled"`
	Categories  map[Category]bool `json:"categories" db:"categories"`
	UpdatedAt   time.Time         `json:"updated_at" db:"updated_at"`
}

// DefaultPreferences is what a user who never touched settings gets: push on,
// every category on.
func DefaultPreferences(userID string) Preferences {
	return Preferences{
		UserID:      userID,
		PushEnabled: true,
		Categories: map[Category]bool{
			CategoryAchievements: true,
			CategoryStreaks:      true,
			CategoryReferrals:    true,
			CategorySocial:       true,
			CategoryPlans:        true,
		},
	}
}

// MergeWithDefaults fills categories missing from a stored record with their
// default (enabled) value, so adding a new category never silently mutes it
// for existing users.
func (p Preferences) MergeWithDefaults() Preferences {
	defaults := DefaultPreferences(p.UserID)
	merged := p
	merged.Categories = make(map[Category]bool, len(defaults.Categories))
	for cat, enabled := range defaults.Categories {
		merged.Categories[cat] = enabled
	}
	for cat, enabled := range p.Categories {
		merged.Categories[cat] = enabled
	}
	return merged
}

type DeviceToken struct {
	Token    string `json:"token" db:"token"`
	Platform string `json:"platform" db:"platform"`
}

type Notification struct {
	ID        uuid.UUID        `json:"id" db:"id"`
	UserID    string           `json:"user_id" db:"user_id"`
	Type      NotificationType `json:"type" db:"type"`
	Title     string           `json:"title" db:"title"`
	Message   string           `json:"message" db:"message"`
	IsRead    bool             `json:"is_read" db:"is_read"`
	Data      map[string]any   `json:"data" db:"data"`
	CreatedAt time.Time        `json:"created_at" db:"created_at"`
}
