package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"skylineAPI/internal/badge"
	"skylineAPI/internal/level"
	"skylineAPI/internal/notification"
	"skylineAPI/internal/scoring"
	"skylineAPI/internal/stats"
	"skylineAPI/internal/storage"
	"skylineAPI/internal/streak"
)

// Notifier is the gate-then-dispatch entry point. NotificationService
// implements it; tests record calls instead.
type Notifier interface {
	Notify(ctx context.Context, userID string, nType notification.NotificationType, title, body string, data map[string]any)
}

// ErrPlanIDRequired rejects plan-hosted reports that carry no plan id, since
// the completion marker keyed on it is what makes retries safe.
var ErrPlanIDRequired = errors.New("plan_hosted reports require metadata.plan_id")

type EngagementService struct {
	store        storage.Store
	calc         *scoring.Calculator
	levels       *level.Resolver
	badges       *badge.Evaluator
	notifier     Notifier
	streakPerDay int
}

func NewEngagementService(store storage.Store, calc *scoring.Calculator, levels *level.Resolver, badges *badge.Evaluator, notifier Notifier) *EngagementService {
	return &EngagementService{
		store:        store,
		calc:         calc,
		levels:       levels,
		badges:       badges,
		notifier:     notifier,
		streakPerDay: streak.DefaultPerDayBonus,
	}
}

// ActionMetadata carries the per-action context a caller reports alongside
// the action type. Unused fields are ignored for other action types.
type ActionMetadata struct {
	City          string          `json:"city,omitempty"`
	Continent     stats.Continent `json:"continent,omitempty"`
	SpotType      stats.SpotType  `json:"spot_type,omitempty"`
	International bool            `json:"international,omitempty"`
	PlanID        string          `json:"plan_id,omitempty"`
	AttendeeCount int             `json:"attendee_count,omitempty"`
	WithPhotos    bool            `json:"with_photos,omitempty"`
}

type ActionResult struct {
	PointsAwarded    int              `json:"points_awarded"`
	TotalPoints      int              `json:"total_points"`
	LeveledUp        bool             `json:"leveled_up"`
	Level            level.Definition `json:"level"`
	NewBadgeIDs      []string         `json:"new_badge_ids"`
	AlreadyCompleted bool             `json:"already_completed,omitempty"`
}

// ReportAction scores one validated user action: compute points, apply them
// atomically, detect a level-up, then re-check badges against the post-action
// counters. A retried plan-hosted event short-circuits on the plan's
// completion marker and returns a zero-effect success.
func (s *EngagementService) ReportAction(ctx context.Context, userID string, action scoring.ActionType, meta ActionMetadata) (*ActionResult, error) {
	snap, err := s.store.GetUserSnapshot(ctx, userID)
	if err != nil {
		return nil, err
	}

	if action == scoring.ActionPlanHosted {
		if meta.PlanID == "" {
			return nil, ErrPlanIDRequired
		}
		fresh, err := s.store.MarkPlanHostCompleted(ctx, meta.PlanID, userID)
		if err != nil {
			return nil, err
		}
		if !fresh {
			return &ActionResult{
				TotalPoints:      snap.Points,
				Level:            s.levels.Resolve(snap.Points),
				NewBadgeIDs:      []string{},
				AlreadyCompleted: true,
			}, nil
		}
	}

	points, updated, err := s.scoreAndCount(ctx, snap, action, meta)
	if err != nil {
		return nil, err
	}

	total := snap.Points
	if points > 0 {
		total, err = s.store.ApplyPointsDelta(ctx, userID, points)
		if err != nil {
			return nil, err
		}
		pointsAwarded.WithLabelValues(string(action)).Add(float64(points))
	}

	newBadgeIDs, badgePoints := s.awardNewBadges(ctx, userID, updated)
	if badgePoints > 0 {
		if bumped, err := s.store.ApplyPointsDelta(ctx, userID, badgePoints); err != nil {
			log.Printf("Failed to apply badge points for user %s: %v", userID, err)
		} else {
			total = bumped
			pointsAwarded.WithLabelValues("badge").Add(float64(badgePoints))
		}
	}

	result := &ActionResult{
		PointsAwarded: points + badgePoints,
		TotalPoints:   total,
		Level:         s.levels.Resolve(total),
		NewBadgeIDs:   newBadgeIDs,
	}

	if up, leveled := s.levels.CheckLevelUp(snap.Points, total); leveled {
		result.LeveledUp = true
		result.Level = up.NewLevel
		if err := s.store.SetLevel(ctx, userID, up.NewLevel.ID); err != nil {
			log.Printf("Failed to persist level for user %s: %v", userID, err)
		}
		levelUps.Inc()
		s.notifier.Notify(ctx, userID, notification.NotificationLevelUp,
			"Level up!",
			fmt.Sprintf("You reached %s.", up.NewLevel.Name),
			map[string]any{"level_id": up.NewLevel.ID})
	}

	actionsReported.WithLabelValues(string(action)).Inc()
	return result, nil
}

// scoreAndCount prices the action and applies its stat counters, returning
// the points and the snapshot as it looks after the counters commit.
func (s *EngagementService) scoreAndCount(ctx context.Context, snap stats.Snapshot, action scoring.ActionType, meta ActionMetadata) (int, stats.Snapshot, error) {
	switch action {
	case scoring.ActionCheckIn:
		mods := scoring.CheckInModifiers{
			NewUser:              snap.NewUser,
			NewCity:              meta.City != "" && snap.CityCheckIns[meta.City] == 0,
			FirstTimeInContinent: meta.Continent != "" && snap.ContinentCheckIns[meta.Continent] == 0,
			International:        meta.International,
			FoundingMember:       snap.FoundingMember,
		}
		if err := s.store.ApplyCheckInCounters(ctx, snap.UserID, meta.City, meta.Continent, meta.SpotType); err != nil {
			return 0, snap, err
		}
		return s.calc.CheckInPoints(mods), snap.ApplyCheckIn(meta.City, meta.Continent, meta.SpotType), nil

	case scoring.ActionPlanHosted:
		if err := s.store.ApplyPlanHostedCounters(ctx, snap.UserID, meta.AttendeeCount); err != nil {
			return 0, snap, err
		}
		return s.calc.PlanHostedPoints(meta.AttendeeCount, snap.NewUser, snap.FoundingMember), snap.ApplyPlanHosted(meta.AttendeeCount), nil

	case scoring.ActionReview:
		if err := s.store.ApplyReviewCounters(ctx, snap.UserID, meta.WithPhotos); err != nil {
			return 0, snap, err
		}
		return s.calc.ReviewPoints(meta.WithPhotos, snap.NewUser, snap.FoundingMember), snap.ApplyReview(meta.WithPhotos), nil

	case scoring.ActionPlanJoined:
		if err := s.store.ApplyPlanJoinedCounters(ctx, snap.UserID); err != nil {
			return 0, snap, err
		}
		return s.calc.FlatPoints(action), snap.ApplyPlanJoined(), nil

	case scoring.ActionConnectionAccepted:
		if err := s.store.ApplyConnectionCounters(ctx, snap.UserID); err != nil {
			return 0, snap, err
		}
		return s.calc.FlatPoints(action), snap.ApplyConnection(), nil

	case scoring.ActionSpotAdded:
		return s.calc.FlatPoints(action), snap, nil

	default:
		return 0, snap, fmt.Errorf("unknown action type %q", action)
	}
}

// awardNewBadges re-checks the catalog against the updated counters, persists
// any new grants, and notifies per badge. Returns the new ids and the sum of
// their point values. Failures are logged, not returned: badge awarding never
// blocks the action that triggered it.
func (s *EngagementService) awardNewBadges(ctx context.Context, userID string, snap stats.Snapshot) ([]string, int) {
	earned, err := s.store.GetEarnedBadgeIDs(ctx, userID)
	if err != nil {
		log.Printf("Failed to load earned badges for user %s: %v", userID, err)
		return []string{}, 0
	}

	newBadges := s.badges.CheckNewBadges(snap, earned)
	if len(newBadges) == 0 {
		return []string{}, 0
	}

	ids := make([]string, 0, len(newBadges))
	points := 0
	for _, b := range newBadges {
		ids = append(ids, b.ID)
		points += b.Points
	}

	if err := s.store.AwardBadges(ctx, userID, ids); err != nil {
		log.Printf("Failed to award badges for user %s: %v", userID, err)
		return []string{}, 0
	}

	for _, b := range newBadges {
		badgesAwarded.WithLabelValues(string(b.Category)).Inc()
		s.notifier.Notify(ctx, userID, notification.NotificationBadgeEarned,
			"Badge earned!",
			fmt.Sprintf("You earned %s.", b.Name),
			map[string]any{"badge_id": b.ID})
	}
	return ids, points
}

type StreakResult struct {
	StreakDays    int              `json:"streak_days"`
	LongestStreak int              `json:"longest_streak"`
	BonusPoints   int              `json:"bonus_points"`
	TotalPoints   int              `json:"total_points"`
	LeveledUp     bool             `json:"leveled_up"`
	Level         level.Definition `json:"level"`
}

// CheckInStreak advances the user's calendar-day streak and applies the
// streak bonus through the same points path as action scoring. A same-day
// repeat leaves the streak untouched and awards nothing.
func (s *EngagementService) CheckInStreak(ctx context.Context, userID string, now time.Time) (*StreakResult, error) {
	snap, err := s.store.GetUserSnapshot(ctx, userID)
	if err != nil {
		return nil, err
	}

	state, err := s.store.GetStreakState(ctx, userID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	next, changed := streak.Advance(state, now)
	result := &StreakResult{
		StreakDays:    next.CurrentStreak,
		LongestStreak: next.LongestStreak,
		TotalPoints:   snap.Points,
		Level:         s.levels.Resolve(snap.Points),
	}
	if !changed {
		return result, nil
	}

	won, err := s.store.TryAdvanceStreak(ctx, userID, next)
	if err != nil {
		return nil, err
	}
	if !won {
		// A concurrent request already advanced the streak to this day;
		// report the state without re-awarding the bonus.
		return result, nil
	}

	bonus := streak.Bonus(next.CurrentStreak, s.streakPerDay)
	total := snap.Points
	if bonus > 0 {
		total, err = s.store.ApplyPointsDelta(ctx, userID, bonus)
		if err != nil {
			return nil, err
		}
		pointsAwarded.WithLabelValues("streak").Add(float64(bonus))
	}
	result.BonusPoints = bonus
	result.TotalPoints = total
	result.Level = s.levels.Resolve(total)

	updated := snap.Clone()
	updated.CurrentStreak = next.CurrentStreak
	updated.LongestStreak = next.LongestStreak
	if ids, badgePoints := s.awardNewBadges(ctx, userID, updated); len(ids) > 0 && badgePoints > 0 {
		if bumped, err := s.store.ApplyPointsDelta(ctx, userID, badgePoints); err != nil {
			log.Printf("Failed to apply streak badge points for user %s: %v", userID, err)
		} else {
			result.TotalPoints = bumped
			result.Level = s.levels.Resolve(bumped)
			pointsAwarded.WithLabelValues("badge").Add(float64(badgePoints))
		}
	}

	if up, leveled := s.levels.CheckLevelUp(snap.Points, result.TotalPoints); leveled {
		result.LeveledUp = true
		result.Level = up.NewLevel
		if err := s.store.SetLevel(ctx, userID, up.NewLevel.ID); err != nil {
			log.Printf("Failed to persist level for user %s: %v", userID, err)
		}
		levelUps.Inc()
	}

	return result, nil
}

// BadgeProgress is one catalog entry annotated with the user's progress.
type BadgeProgress struct {
	ID          string `json:"id"`
	Category    string `json:"category"`
	Name        string `json:"name"`
	Requirement string `json:"requirement"`
	Points      int    `json:"points"`
	Tier        int    `json:"tier"`
	Earned      bool   `json:"earned"`
	Progress    string `json:"progress"`
	Percent     int    `json:"percent"`
}

// GetBadgeProgress returns the full catalog with earned flags and progress
// fractions for the user's badge screen.
func (s *EngagementService) GetBadgeProgress(ctx context.Context, userID string) ([]BadgeProgress, error) {
	snap, err := s.store.GetUserSnapshot(ctx, userID)
	if err != nil {
		return nil, err
	}
	earned, err := s.store.GetEarnedBadgeIDs(ctx, userID)
	if err != nil {
		return nil, err
	}

	defs := s.badges.Definitions()
	out := make([]BadgeProgress, 0, len(defs))
	for _, b := range defs {
		out = append(out, BadgeProgress{
			ID:          b.ID,
			Category:    string(b.Category),
			Name:        b.Name,
			Requirement: b.Requirement,
			Points:      b.Points,
			Tier:        b.Tier,
			Earned:      earned[b.ID],
			Progress:    s.badges.Progress(b, snap),
			Percent:     s.badges.CompletionPercent(b, snap),
		})
	}
	return out, nil
}

func (s *EngagementService) Leaderboard(ctx context.Context, limit int) ([]storage.LeaderboardEntry, error) {
	return s.store.TopUsersByPoints(ctx, limit)
}
