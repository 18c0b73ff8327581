// Package storage is the persistence boundary for engagement state. Services
// talk to the Store interface; the Postgres implementation lives in pg.go and
// the tests use an in-memory fake.
package storage

import (
	"context"
	"errors"

	"skylineAPI/internal/notification"
	"skylineAPI/internal/referral"
	"skylineAPI/internal/stats"
	"skylineAPI/internal/streak"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
)

// LeaderboardEntry is one row of the global points ranking.
type LeaderboardEntry struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Points   int    `json:"points"`
	LevelID  string `json:"level_id"`
	Rank     int    `json:"rank"`
}

// Store is everything the engagement, referral and notification services need
// from persistence. Counter writes are atomic increments so concurrent
// actions never lose points; non-additive flips (badges, credited flags,
// claim requests) run as conditional updates that report whether they won.
type Store interface {
	UserExists(ctx context.Context, userID string) (bool, error)
	GetUserSnapshot(ctx context.Context, userID string) (stats.Snapshot, error)

	// ApplyPointsDelta adds delta to the user's points atomically and
	// returns the new total.
	ApplyPointsDelta(ctx context.Context, userID string, delta int) (int, error)
	SetLevel(ctx context.Context, userID, levelID string) error

	ApplyCheckInCounters(ctx context.Context, userID, city string, continent stats.Continent, spotType stats.SpotType) error
	ApplyPlanHostedCounters(ctx context.Context, userID string, attendeeCount int) error
	ApplyPlanJoinedCounters(ctx context.Context, userID string) error
	ApplyReviewCounters(ctx context.Context, userID string, withPhotos bool) error
	ApplyConnectionCounters(ctx context.Context, userID string) error

	// MarkPlanHostCompleted flips the plan's host-completion marker and
	// reports false when another request already scored it.
	MarkPlanHostCompleted(ctx context.Context, planID, hostID string) (bool, error)

	GetEarnedBadgeIDs(ctx context.Context, userID string) (map[string]bool, error)
	AwardBadges(ctx context.Context, userID string, badgeIDs []string) error

	GetStreakState(ctx context.Context, userID string) (streak.State, error)
	// TryAdvanceStreak writes the new streak state only when the stored
	// action date differs, reporting false when a concurrent request
	// already advanced the streak to the same day.
	TryAdvanceStreak(ctx context.Context, userID string, st streak.State) (bool, error)

	// GetPreferences returns ErrNotFound when the user never saved any.
	GetPreferences(ctx context.Context, userID string) (notification.Preferences, error)
	SavePreferences(ctx context.Context, prefs notification.Preferences) error
	GetDeviceTokens(ctx context.Context, userID string) ([]notification.DeviceToken, error)
	RegisterDeviceToken(ctx context.Context, userID string, token notification.DeviceToken) error

	GetReferralRecord(ctx context.Context, referredUserID string) (referral.Record, error)
	// SetReferrer writes the attribution exactly once; a second call for
	// the same referred user returns ErrAlreadyExists.
	SetReferrer(ctx context.Context, referredUserID, referrerID string) error
	// CreditReferral flips credited false -> true and bumps the
	// referrer's count in one transaction. credited=false means another
	// request already claimed it.
	CreditReferral(ctx context.Context, referredUserID, referrerID string) (credited bool, newCount int, err error)
	ListReferralsByReferrer(ctx context.Context, referrerID string) ([]referral.Record, error)
	GetCompletionFields(ctx context.Context, userID string) (referral.CompletionFields, error)
	SetReferralCount(ctx context.Context, referrerID string, count int) error
	// TrySetClaimRequested flips the one-time reward claim flag and
	// reports false when it was already set.
	TrySetClaimRequested(ctx context.Context, userID string) (bool, error)

	TopUsersByPoints(ctx context.Context, limit int) ([]LeaderboardEntry, error)
}
