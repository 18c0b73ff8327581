package services

import (
	"context"
	"sync"

	"skylineAPI/internal/notification"
	"skylineAPI/internal/referral"
	"skylineAPI/internal/stats"
	"skylineAPI/internal/storage"
	"skylineAPI/internal/streak"
)

// fakeStore is an in-memory storage.Store for service tests. It mirrors the
// Postgres semantics: counter methods mutate atomically under a mutex,
// conditional flips report whether they won.
type fakeStore struct {
	mu sync.Mutex

	snapshots map[string]stats.Snapshot
	levels    map[string]string
	badges    map[string]map[string]bool
	streaks   map[string]streak.State
	prefs     map[string]notification.Preferences
	tokens    map[string][]notification.DeviceToken
	referrals map[string]referral.Record
	fields    map[string]referral.CompletionFields
	claims    map[string]bool
	plansDone map[string]bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		snapshots: map[string]stats.Snapshot{},
		levels:    map[string]string{},
		badges:    map[string]map[string]bool{},
		streaks:   map[string]streak.State{},
		prefs:     map[string]notification.Preferences{},
		tokens:    map[string][]notification.DeviceToken{},
		referrals: map[string]referral.Record{},
		fields:    map[string]referral.CompletionFields{},
		claims:    map[string]bool{},
		plansDone: map[string]bool{},
	}
}

func (f *fakeStore) addUser(snap stats.Snapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	snap.Normalize()
	f.snapshots[snap.UserID] = snap
}

func (f *fakeStore) UserExists(_ context.Context, userID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.snapshots[userID]
	return ok, nil
}

func (f *fakeStore) GetUserSnapshot(_ context.Context, userID string) (stats.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	snap, ok := f.snapshots[userID]
	if !ok {
		return stats.Snapshot{}, storage.ErrNotFound
	}
	return snap.Clone(), nil
}

func (f *fakeStore) ApplyPointsDelta(_ context.Context, userID string, delta int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	snap, ok := f.snapshots[userID]
	if !ok {
		return 0, storage.ErrNotFound
	}
	snap.Points += delta
	if snap.Points < 0 {
		snap.Points = 0
	}
	f.snapshots[userID] = snap
	return snap.Points, nil
}

func (f *fakeStore) SetLevel(_ context.Context, userID, levelID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	snap, ok := f.snapshots[userID]
	if !ok {
		return storage.ErrNotFound
	}
	snap.LevelID = levelID
	f.snapshots[userID] = snap
	f.levels[userID] = levelID
	return nil
}

func (f *fakeStore) ApplyCheckInCounters(_ context.Context, userID, city string, continent stats.Continent, spotType stats.SpotType) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	snap, ok := f.snapshots[userID]
	if !ok {
		return storage.ErrNotFound
	}
	f.snapshots[userID] = snap.ApplyCheckIn(city, continent, spotType)
	return nil
}

func (f *fakeStore) ApplyPlanHostedCounters(_ context.Context, userID string, attendeeCount int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	snap, ok := f.snapshots[userID]
	if !ok {
		return storage.ErrNotFound
	}
	f.snapshots[userID] = snap.ApplyPlanHosted(attendeeCount)
	return nil
}

func (f *fakeStore) ApplyPlanJoinedCounters(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	snap, ok := f.snapshots[userID]
	if !ok {
		return storage.ErrNotFound
	}
	f.snapshots[userID] = snap.ApplyPlanJoined()
	return nil
}

func (f *fakeStore) ApplyReviewCounters(_ context.Context, userID string, withPhotos bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	snap, ok := f.snapshots[userID]
	if !ok {
		return storage.ErrNotFound
	}
	f.snapshots[userID] = snap.ApplyReview(withPhotos)
	return nil
}

func (f *fakeStore) ApplyConnectionCounters(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	snap, ok := f.snapshots[userID]
	if !ok {
		return storage.ErrNotFound
	}
	f.snapshots[userID] = snap.ApplyConnection()
	return nil
}

func (f *fakeStore) MarkPlanHostCompleted(_ context.Context, planID, hostID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := planID + "/" + hostID
	if f.plansDone[key] {
		return false, nil
	}
	f.plansDone[key] = true
	return true, nil
}

func (f *fakeStore) GetEarnedBadgeIDs(_ context.Context, userID string) (map[string]bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	earned := map[string]bool{}
	for id := range f.badges[userID] {
		earned[id] = true
	}
	return earned, nil
}

func (f *fakeStore) AwardBadges(_ context.Context, userID string, badgeIDs []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.badges[userID] == nil {
		f.badges[userID] = map[string]bool{}
	}
	for _, id := range badgeIDs {
		f.badges[userID][id] = true
	}
	return nil
}

func (f *fakeStore) GetStreakState(_ context.Context, userID string) (streak.State, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	st, ok := f.streaks[userID]
	if !ok {
		return streak.State{}, storage.ErrNotFound
	}
	return st, nil
}

func (f *fakeStore) TryAdvanceStreak(_ context.Context, userID string, st streak.State) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.streaks[userID].LastActionDate == st.LastActionDate {
		return false, nil
	}
	f.streaks[userID] = st
	snap, ok := f.snapshots[userID]
	if ok {
		snap.CurrentStreak = st.CurrentStreak
		snap.LongestStreak = st.LongestStreak
		f.snapshots[userID] = snap
	}
	return true, nil
}

func (f *fakeStore) GetPreferences(_ context.Context, userID string) (notification.Preferences, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	prefs, ok := f.prefs[userID]
	if !ok {
		return notification.Preferences{}, storage.ErrNotFound
	}
	return prefs, nil
}

func (f *fakeStore) SavePreferences(_ context.Context, prefs notification.Preferences) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prefs[prefs.UserID] = prefs
	return nil
}

func (f *fakeStore) GetDeviceTokens(_ context.Context, userID string) ([]notification.DeviceToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tokens[userID], nil
}

func (f *fakeStore) RegisterDeviceToken(_ context.Context, userID string, token notification.DeviceToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens[userID] = append(f.tokens[userID], token)
	return nil
}

func (f *fakeStore) GetReferralRecord(_ context.Context, referredUserID string) (referral.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.referrals[referredUserID]
	if !ok {
		return referral.Record{}, storage.ErrNotFound
	}
	return rec, nil
}

func (f *fakeStore) SetReferrer(_ context.Context, referredUserID, referrerID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.referrals[referredUserID]; ok {
		return storage.ErrAlreadyExists
	}
	f.referrals[referredUserID] = referral.Record{
		ReferredUserID: referredUserID,
		ReferrerID:     referrerID,
	}
	return nil
}

func (f *fakeStore) CreditReferral(_ context.Context, referredUserID, referrerID string) (bool, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.referrals[referredUserID]
	if !ok {
		return false, 0, storage.ErrNotFound
	}
	snap := f.snapshots[referrerID]
	if rec.Credited {
		return false, snap.SuccessfulReferrals, nil
	}
	rec.Credited = true
	f.referrals[referredUserID] = rec
	snap.SuccessfulReferrals++
	f.snapshots[referrerID] = snap
	return true, snap.SuccessfulReferrals, nil
}

func (f *fakeStore) ListReferralsByReferrer(_ context.Context, referrerID string) ([]referral.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var records []referral.Record
	for _, rec := range f.referrals {
		if rec.ReferrerID == referrerID {
			records = append(records, rec)
		}
	}
	return records, nil
}

func (f *fakeStore) GetCompletionFields(_ context.Context, userID string) (referral.CompletionFields, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fields, ok := f.fields[userID]
	if !ok {
		return referral.CompletionFields{}, storage.ErrNotFound
	}
	return fields, nil
}

func (f *fakeStore) SetReferralCount(_ context.Context, referrerID string, count int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	snap, ok := f.snapshots[referrerID]
	if !ok {
		return storage.ErrNotFound
	}
	snap.SuccessfulReferrals = count
	f.snapshots[referrerID] = snap
	return nil
}

func (f *fakeStore) TrySetClaimRequested(_ context.Context, userID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.claims[userID] {
		return false, nil
	}
	f.claims[userID] = true
	return true, nil
}

func (f *fakeStore) TopUsersByPoints(_ context.Context, limit int) ([]storage.LeaderboardEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var entries []storage.LeaderboardEntry
	for id, snap := range f.snapshots {
		entries = append(entries, storage.LeaderboardEntry{UserID: id, Points: snap.Points})
	}
	return entries, nil
}

// recordingNotifier captures gated notification calls for assertions.
type recordingNotifier struct {
	mu    sync.Mutex
	calls []notification.NotificationType
}

func (r *recordingNotifier) Notify(_ context.Context, _ string, nType notification.NotificationType, _, _ string, _ map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, nType)
}

func (r *recordingNotifier) count(nType notification.NotificationType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.calls {
		if c == nType {
			n++
		}
	}
	return n
}
