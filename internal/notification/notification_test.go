package notification

import "testing"

func TestCategoryOf(t *testing.T) {
	tests := []struct {
		nType    NotificationType
		category Category
		ok       bool
	}{
		{NotificationBadgeEarned, CategoryAchievements, true},
		{NotificationLevelUp, CategoryAchievements, true},
		{NotificationStreakRisk, CategoryStreaks, true},
		{NotificationReferralCredited, CategoryReferrals, true},
		{NotificationPlanInvite, CategoryPlans, true},
		{NotificationAdminAlert, "", false},
		{NotificationType("made_up"), "", false},
	}

	for _, tt := range tests {
		cat, ok := CategoryOf(tt.nType)
		if ok != tt.ok || cat != tt.category {
			t.Errorf("CategoryOf(%s) = (%s, %v), want (%s, %v)", tt.nType, cat, ok, tt.category, tt.ok)
		}
	}
}

func TestIsAdminType(t *testing.T) {
	for _, nType := range []NotificationType{NotificationAdminAlert, NotificationAccountSecurity, NotificationSystemMaintenance} {
		if !IsAdminType(nType) {
			t.Errorf("expected %s to be an admin type", nType)
		}
	}
	if IsAdminType(NotificationBadgeEarned) {
		t.Error("badge_earned must not be an admin type")
	}
}

func TestDefaultPreferences(t *testing.T) {
	prefs := DefaultPreferences("user-1")
	if !prefs.PushEnabled {
		t.Error("defaults must have push enabled")
	}
	for cat, enabled := range prefs.Categories {
		if !enabled {
			t.Errorf("default category %s must be enabled", cat)
		}
	}
	if len(prefs.Categories) != 5 {
		t.Errorf("expected 5 default categories, got %d", len(prefs.Categories))
	}
}

func TestMergeWithDefaults(t *testing.T) {
	// Stored record predates the plans category and has streaks muted.
	stored := Preferences{
		UserID:      "user-1",
		PushEnabled: true,
		Categories: map[Category]bool{
			CategoryAchievements: true,
			CategoryStreaks:      false,
			CategoryReferrals:    true,
			CategorySocial:       true,
		},
	}

	merged := stored.MergeWithDefaults()

	if !merged.Categories[CategoryPlans] {
		t.Error("missing category must default to enabled")
	}
	if merged.Categories[CategoryStreaks] {
		t.Error("explicit opt-out must survive the merge")
	}
	if !merged.PushEnabled {
		t.Error("push flag must carry over unchanged")
	}

	// The input map must not be mutated.
	if _, ok := stored.Categories[CategoryPlans]; ok {
		t.Error("merge must not mutate the stored preferences")
	}
}
