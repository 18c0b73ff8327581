package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"skylineAPI/internal/notification"
	"skylineAPI/internal/referral"
	"skylineAPI/internal/stats"
	"skylineAPI/internal/streak"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgStore is the Postgres-backed Store. Counter columns live in user_stats;
// the three per-key counters (cities, continents, spot types) are jsonb maps
// updated in place with jsonb_set.
type PgStore struct {
	db *pgxpool.Pool
}

func NewPgStore(db *pgxpool.Pool) *PgStore {
	return &PgStore{db: db}
}

func (s *PgStore) UserExists(ctx context.Context, userID string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check user: %w", err)
	}
	return exists, nil
}

func (s *PgStore) GetUserSnapshot(ctx context.Context, userID string) (stats.Snapshot, error) {
	query := `
	SELECT u.id, u.points, u.level_id, u.new_user, u.founding_member, u.referral_count,
	       st.total_check_ins, st.cities_visited, st.city_check_ins, st.continent_check_ins, st.spot_type_visits,
	       st.current_streak, st.longest_streak,
	       st.plans_completed, st.plans_completed_with_attendees, st.plans_joined, st.plans_this_month, st.plans_this_year,
	       st.connections, st.reviews_written, st.review_helpful_votes, st.photos_uploaded
	FROM users u
	LEFT JOIN user_stats st ON st.user_id = u.id
	WHERE u.id = $1
	`

	var snap stats.Snapshot
	var cityJSON, continentJSON, spotJSON []byte
	err := s.db.QueryRow(ctx, query, userID).Scan(
		&snap.UserID,
		&snap.Points,
		&snap.LevelID,
		&snap.NewUser,
		&snap.FoundingMember,
		&snap.SuccessfulReferrals,
		&snap.TotalCheckIns,
		&snap.CitiesVisited,
		&cityJSON,
		&continentJSON,
		&spotJSON,
		&snap.CurrentStreak,
		&snap.LongestStreak,
		&snap.PlansCompleted,
		&snap.PlansCompletedWithAttendees,
		&snap.PlansJoined,
		&snap.PlansThisMonth,
		&snap.PlansThisYear,
		&snap.Connections,
		&snap.ReviewsWritten,
		&snap.ReviewHelpfulVotes,
		&snap.PhotosUploaded,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return stats.Snapshot{}, ErrNotFound
		}
		return stats.Snapshot{}, fmt.Errorf("failed to load snapshot: %w", err)
	}

	if len(cityJSON) > 0 {
		if err := json.Unmarshal(cityJSON, &snap.CityCheckIns); err != nil {
			return stats.Snapshot{}, fmt.Errorf("failed to decode city counters: %w", err)
		}
	}
	if len(continentJSON) > 0 {
		if err := json.Unmarshal(continentJSON, &snap.ContinentCheckIns); err != nil {
			return stats.Snapshot{}, fmt.Errorf("failed to decode continent counters: %w", err)
		}
	}
	if len(spotJSON) > 0 {
		if err := json.Unmarshal(spotJSON, &snap.SpotTypeVisits); err != nil {
			return stats.Snapshot{}, fmt.Errorf("failed to decode spot counters: %w", err)
		}
	}

	snap.Normalize()
	return snap, nil
}

func (s *PgStore) ApplyPointsDelta(ctx context.Context, userID string, delta int) (int, error) {
	var total int
	query := `
	UPDATE users
	SET points = GREATEST(points + $1, 0), updated_at = NOW()
	WHERE id = $2
	RETURNING points
	`
	err := s.db.QueryRow(ctx, query, delta, userID).Scan(&total)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("failed to apply points delta: %w", err)
	}
	return total, nil
}

func (s *PgStore) SetLevel(ctx context.Context, userID, levelID string) error {
	tag, err := s.db.Exec(ctx, `UPDATE users SET level_id = $1, updated_at = NOW() WHERE id = $2`, levelID, userID)
	if err != nil {
		return fmt.Errorf("failed to set level: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PgStore) ApplyCheckInCounters(ctx context.Context, userID, city string, continent stats.Continent, spotType stats.SpotType) error {
	// Single statement so concurrent check-ins never lose map increments.
	// City, continent and spot type are optional; an empty key must not
	// enter the maps or bump cities_visited.
	query := `
	UPDATE user_stats SET
		total_check_ins = total_check_ins + 1,
		cities_visited = cities_visited + CASE WHEN $2 = '' OR city_check_ins ? $2 THEN 0 ELSE 1 END,
		city_check_ins = CASE WHEN $2 = '' THEN city_check_ins
			ELSE jsonb_set(city_check_ins, ARRAY[$2], (COALESCE((city_check_ins->>$2)::int, 0) + 1)::text::jsonb) END,
		continent_check_ins = CASE WHEN $3 = '' THEN continent_check_ins
			ELSE jsonb_set(continent_check_ins, ARRAY[$3], (COALESCE((continent_check_ins->>$3)::int, 0) + 1)::text::jsonb) END,
		spot_type_visits = CASE WHEN $4 = '' THEN spot_type_visits
			ELSE jsonb_set(spot_type_visits, ARRAY[$4], (COALESCE((spot_type_visits->>$4)::int, 0) + 1)::text::jsonb) END
	WHERE user_id = $1
	`
	tag, err := s.db.Exec(ctx, query, userID, city, string(continent), string(spotType))
	if err != nil {
		return fmt.Errorf("failed to apply check-in counters: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PgStore) ApplyPlanHostedCounters(ctx context.Context, userID string, attendeeCount int) error {
	withAttendees := 0
	if attendeeCount > 0 {
		withAttendees = 1
	}
	query := `
	UPDATE user_stats SET
		plans_completed = plans_completed + 1,
		plans_completed_with_attendees = plans_completed_with_attendees + $2,
		plans_this_month = plans_this_month + 1,
		plans_this_year = plans_this_year + 1
	WHERE user_id = $1
	`
	tag, err := s.db.Exec(ctx, query, userID, withAttendees)
	if err != nil {
		return fmt.Errorf("failed to apply plan counters: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PgStore) ApplyPlanJoinedCounters(ctx context.Context, userID string) error {
	return s.bumpStat(ctx, userID, `UPDATE user_stats SET plans_joined = plans_joined + 1 WHERE user_id = $1`)
}

func (s *PgStore) ApplyReviewCounters(ctx context.Context, userID string, withPhotos bool) error {
	photos := 0
	if withPhotos {
		photos = 1
	}
	query := `
	UPDATE user_stats SET
		reviews_written = reviews_written + 1,
		photos_uploaded = photos_uploaded + $2
	WHERE user_id = $1
	`
	tag, err := s.db.Exec(ctx, query, userID, photos)
	if err != nil {
		return fmt.Errorf("failed to apply review counters: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PgStore) ApplyConnectionCounters(ctx context.Context, userID string) error {
	return s.bumpStat(ctx, userID, `UPDATE user_stats SET connections = connections + 1 WHERE user_id = $1`)
}

func (s *PgStore) bumpStat(ctx context.Context, userID, query string) error {
	tag, err := s.db.Exec(ctx, query, userID)
	if err != nil {
		return fmt.Errorf("failed to bump stat: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PgStore) MarkPlanHostCompleted(ctx context.Context, planID, hostID string) (bool, error) {
	query := `
	UPDATE plans
	SET host_completed_at = NOW()
	WHERE id = $1 AND host_id = $2 AND host_completed_at IS NULL
	`
	tag, err := s.db.Exec(ctx, query, planID, hostID)
	if err != nil {
		return false, fmt.Errorf("failed to mark plan completed: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PgStore) GetEarnedBadgeIDs(ctx context.Context, userID string) (map[string]bool, error) {
	rows, err := s.db.Query(ctx, `SELECT badge_id FROM user_badges WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list badges: %w", err)
	}
	defer rows.Close()

	earned := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan badge: %w", err)
		}
		earned[id] = true
	}
	return earned, rows.Err()
}

func (s *PgStore) AwardBadges(ctx context.Context, userID string, badgeIDs []string) error {
	if len(badgeIDs) == 0 {
		return nil
	}
	// ON CONFLICT keeps concurrent awards idempotent.
	query := `
	INSERT INTO user_badges (user_id, badge_id, earned_at)
	VALUES ($1, $2, NOW())
	ON CONFLICT (user_id, badge_id) DO NOTHING
	`
	for _, id := range badgeIDs {
		if _, err := s.db.Exec(ctx, query, userID, id); err != nil {
			return fmt.Errorf("failed to award badge %s: %w", id, err)
		}
	}
	return nil
}

func (s *PgStore) GetStreakState(ctx context.Context, userID string) (streak.State, error) {
	var st streak.State
	var lastAction *string
	query := `SELECT current_streak, longest_streak, last_action_date FROM user_stats WHERE user_id = $1`
	err := s.db.QueryRow(ctx, query, userID).Scan(&st.CurrentStreak, &st.LongestStreak, &lastAction)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return streak.State{}, ErrNotFound
		}
		return streak.State{}, fmt.Errorf("failed to load streak: %w", err)
	}
	if lastAction != nil {
		st.LastActionDate = *lastAction
	}
	return st, nil
}

func (s *PgStore) TryAdvanceStreak(ctx context.Context, userID string, st streak.State) (bool, error) {
	// Conditional on the action date so two requests advancing to the same
	// day commit only once; the loser must not re-award the bonus.
	query := `
	UPDATE user_stats
	SET current_streak = $1, longest_streak = $2, last_action_date = $3
	WHERE user_id = $4 AND (last_action_date IS NULL OR last_action_date <> $3)
	`
	tag, err := s.db.Exec(ctx, query, st.CurrentStreak, st.LongestStreak, st.LastActionDate, userID)
	if err != nil {
		return false, fmt.Errorf("failed to advance streak: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PgStore) GetPreferences(ctx context.Context, userID string) (notification.Preferences, error) {
	var prefs notification.Preferences
	var categoriesJSON []byte
	query := `SELECT user_id, push_enabled, categories, updated_at FROM notification_preferences WHERE user_id = $1`
	err := s.db.QueryRow(ctx, query, userID).Scan(&prefs.UserID, &prefs.PushEnabled, &categoriesJSON, &prefs.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return notification.Preferences{}, ErrNotFound
		}
		return notification.Preferences{}, fmt.Errorf("failed to load preferences: %w", err)
	}
	if len(categoriesJSON) > 0 {
		if err := json.Unmarshal(categoriesJSON, &prefs.Categories); err != nil {
			return notification.Preferences{}, fmt.Errorf("failed to decode preference categories: %w", err)
		}
	}
	return prefs, nil
}

func (s *PgStore) SavePreferences(ctx context.Context, prefs notification.Preferences) error {
	categoriesJSON, err := json.Marshal(prefs.Categories)
	if err != nil {
		return fmt.Errorf("failed to encode preference categories: %w", err)
	}
	query := `
	INSERT INTO notification_preferences (user_id, push_enabled, categories, updated_at)
	VALUES ($1, $2, $3, NOW())
	ON CONFLICT (user_id) DO UPDATE SET push_enabled = $2, categories = $3, updated_at = NOW()
	`
	if _, err := s.db.Exec(ctx, query, prefs.UserID, prefs.PushEnabled, categoriesJSON); err != nil {
		return fmt.Errorf("failed to save preferences: %w", err)
	}
	return nil
}

func (s *PgStore) GetDeviceTokens(ctx context.Context, userID string) ([]notification.DeviceToken, error) {
	rows, err := s.db.Query(ctx, `SELECT token, platform FROM device_tokens WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list device tokens: %w", err)
	}
	defer rows.Close()

	var tokens []notification.DeviceToken
	for rows.Next() {
		var t notification.DeviceToken
		if err := rows.Scan(&t.Token, &t.Platform); err != nil {
			return nil, fmt.Errorf("failed to scan device token: %w", err)
		}
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}

func (s *PgStore) RegisterDeviceToken(ctx context.Context, userID string, token notification.DeviceToken) error {
	query := `
	INSERT INTO device_tokens (user_id, token, platform, created_at)
	VALUES ($1, $2, $3, NOW())
	ON CONFLICT (token) DO UPDATE SET user_id = $1, platform = $3
	`
	if _, err := s.db.Exec(ctx, query, userID, token.Token, token.Platform); err != nil {
		return fmt.Errorf("failed to register device token: %w", err)
	}
	return nil
}

func (s *PgStore) GetReferralRecord(ctx context.Context, referredUserID string) (referral.Record, error) {
	var rec referral.Record
	query := `SELECT referred_user_id, referrer_id, created_at, credited FROM referrals WHERE referred_user_id = $1`
	err := s.db.QueryRow(ctx, query, referredUserID).Scan(&rec.ReferredUserID, &rec.ReferrerID, &rec.CreatedAt, &rec.Credited)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return referral.Record{}, ErrNotFound
		}
		return referral.Record{}, fmt.Errorf("failed to load referral: %w", err)
	}
	return rec, nil
}

func (s *PgStore) SetReferrer(ctx context.Context, referredUserID, referrerID string) error {
	query := `
	INSERT INTO referrals (referred_user_id, referrer_id, created_at, credited)
	VALUES ($1, $2, $3, false)
	ON CONFLICT (referred_user_id) DO NOTHING
	`
	tag, err := s.db.Exec(ctx, query, referredUserID, referrerID, time.Now())
	if err != nil {
		return fmt.Errorf("failed to set referrer: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAlreadyExists
	}
	return nil
}

func (s *PgStore) CreditReferral(ctx context.Context, referredUserID, referrerID string) (bool, int, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return false, 0, fmt.Errorf("failed to begin credit tx: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `UPDATE referrals SET credited = true WHERE referred_user_id = $1 AND credited = false`, referredUserID)
	if err != nil {
		return false, 0, fmt.Errorf("failed to flip credited flag: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Already credited; report the current count without changing it.
		var count int
		if err := s.db.QueryRow(ctx, `SELECT referral_count FROM users WHERE id = $1`, referrerID).Scan(&count); err != nil {
			return false, 0, fmt.Errorf("failed to read referral count: %w", err)
		}
		return false, count, nil
	}

	var count int
	err = tx.QueryRow(ctx, `
	UPDATE users SET referral_count = referral_count + 1, updated_at = NOW()
	WHERE id = $1
	RETURNING referral_count
	`, referrerID).Scan(&count)
	if err != nil {
		return false, 0, fmt.Errorf("failed to bump referral count: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, 0, fmt.Errorf("failed to commit credit tx: %w", err)
	}
	return true, count, nil
}

func (s *PgStore) ListReferralsByReferrer(ctx context.Context, referrerID string) ([]referral.Record, error) {
	query := `
	SELECT referred_user_id, referrer_id, created_at, credited
	FROM referrals
	WHERE referrer_id = $1
	ORDER BY created_at
	`
	rows, err := s.db.Query(ctx, query, referrerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list referrals: %w", err)
	}
	defer rows.Close()

	var records []referral.Record
	for rows.Next() {
		var rec referral.Record
		if err := rows.Scan(&rec.ReferredUserID, &rec.ReferrerID, &rec.CreatedAt, &rec.Credited); err != nil {
			return nil, fmt.Errorf("failed to scan referral: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *PgStore) GetCompletionFields(ctx context.Context, userID string) (referral.CompletionFields, error) {
	var fields referral.CompletionFields
	var photo, airline, base *string
	query := `SELECT profile_photo_url, airline, base FROM users WHERE id = $1`
	err := s.db.QueryRow(ctx, query, userID).Scan(&photo, &airline, &base)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return referral.CompletionFields{}, ErrNotFound
		}
		return referral.CompletionFields{}, fmt.Errorf("failed to load completion fields: %w", err)
	}
	if photo != nil {
		fields.ProfilePhotoURL = *photo
	}
	if airline != nil {
		fields.Airline = *airline
	}
	if base != nil {
		fields.Base = *base
	}
	return fields, nil
}

func (s *PgStore) SetReferralCount(ctx context.Context, referrerID string, count int) error {
	tag, err := s.db.Exec(ctx, `UPDATE users SET referral_count = $1, updated_at = NOW() WHERE id = $2`, count, referrerID)
	if err != nil {
		return fmt.Errorf("failed to set referral count: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PgStore) TrySetClaimRequested(ctx context.Context, userID string) (bool, error) {
	query := `
	UPDATE users
	SET reward_claim_requested = true, updated_at = NOW()
	WHERE id = $1 AND reward_claim_requested = false
	`
	tag, err := s.db.Exec(ctx, query, userID)
	if err != nil {
		return false, fmt.Errorf("failed to set claim flag: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PgStore) TopUsersByPoints(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	query := `
	SELECT id, username, points, level_id
	FROM users
	ORDER BY points DESC, username ASC
	LIMIT $1
	`
	rows, err := s.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load leaderboard: %w", err)
	}
	defer rows.Close()

	var entries []LeaderboardEntry
	rank := 1
	for rows.Next() {
		var e LeaderboardEntry
		if err := rows.Scan(&e.UserID, &e.Username, &e.Points, &e.LevelID); err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard row: %w", err)
		}
		e.Rank = rank
		rank++
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
