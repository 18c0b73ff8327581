package services

import (
	"context"
	"testing"

	"skylineAPI/internal/badge"
	"skylineAPI/internal/level"
	"skylineAPI/internal/notification"
	"skylineAPI/internal/referral"
	"skylineAPI/internal/stats"
)

func newTestReferral(t *testing.T, store *fakeStore, notifier Notifier) *ReferralService {
	t.Helper()
	levels, err := level.New(level.Defaults())
	if err != nil {
		t.Fatalf("failed to build level resolver: %v", err)
	}
	return NewReferralService(store, badge.NewEvaluator(badge.All()), levels, notifier)
}

func completeProfile() referral.CompletionFields {
	return referral.CompletionFields{
		ProfilePhotoURL: "https://cdn/p.jpg",
		Airline:         "Lufthansa",
		Base:            "FRA",
	}
}

func TestAttributeReferralRejectsSelfReference(t *testing.T) {
	store := newFakeStore()
	store.addUser(stats.Snapshot{UserID: "u1"})
	svc := newTestReferral(t, store, &recordingNotifier{})

	result, err := svc.AttributeReferral(context.Background(), "u1", "u1")
	if err != nil {
		t.Fatalf("AttributeReferral failed: %v", err)
	}
	if result.Accepted {
		t.Error("self-referral must be rejected")
	}
}

func TestAttributeReferralRejectsUnknownReferrer(t *testing.T) {
	store := newFakeStore()
	svc := newTestReferral(t, store, &recordingNotifier{})

	result, err := svc.AttributeReferral(context.Background(), "new-user", "ghost")
	if err != nil {
		t.Fatalf("AttributeReferral failed: %v", err)
	}
	if result.Accepted {
		t.Error("unknown referrer must be rejected")
	}
}

func TestAttributeReferralWriteOnce(t *testing.T) {
	store := newFakeStore()
	store.addUser(stats.Snapshot{UserID: "ref1"})
	store.addUser(stats.Snapshot{UserID: "ref2"})
	svc := newTestReferral(t, store, &recordingNotifier{})
	ctx := context.Background()

	first, err := svc.AttributeReferral(ctx, "new-user", "ref1")
	if err != nil || !first.Accepted {
		t.Fatalf("first attribution = (%+v, %v), want accepted", first, err)
	}

	second, err := svc.AttributeReferral(ctx, "new-user", "ref2")
	if err != nil {
		t.Fatalf("second attribution failed: %v", err)
	}
	if second.Accepted {
		t.Error("second attribution must no-op")
	}
	if rec := store.referrals["new-user"]; rec.ReferrerID != "ref1" {
		t.Errorf("referrer overwritten to %s, want ref1", rec.ReferrerID)
	}
}

func TestCreditReferrerFirstCompletion(t *testing.T) {
	store := newFakeStore()
	store.addUser(stats.Snapshot{UserID: "referrer"})
	store.addUser(stats.Snapshot{UserID: "invitee"})
	store.referrals["invitee"] = referral.Record{ReferredUserID: "invitee", ReferrerID: "referrer"}
	store.fields["invitee"] = completeProfile()
	notifier := &recordingNotifier{}
	svc := newTestReferral(t, store, notifier)

	result, err := svc.CreditReferrerIfEligible(context.Background(), "invitee")
	if err != nil {
		t.Fatalf("CreditReferrerIfEligible failed: %v", err)
	}
	if !result.Credited || result.ReferralCount != 1 {
		t.Errorf("result = %+v, want credited with count 1", result)
	}
	if len(result.NewBadgeIDs) != 1 || result.NewBadgeIDs[0] != "recruiter_1" {
		t.Errorf("NewBadgeIDs = %v, want [recruiter_1]", result.NewBadgeIDs)
	}
	if result.ClaimTriggered {
		t.Error("first referral must not trigger the top-tier claim")
	}
	// recruiter_1 is worth 25 points.
	if snap := store.snapshots["referrer"]; snap.Points != 25 {
		t.Errorf("referrer points = %d, want 25", snap.Points)
	}
	if got := notifier.count(notification.NotificationReferralCredited); got != 1 {
		t.Errorf("credit notifications = %d, want 1", got)
	}
}

func TestCreditReferrerLevelUpNotifies(t *testing.T) {
	store := newFakeStore()
	store.addUser(stats.Snapshot{UserID: "referrer", Points: 90, LevelID: "standby"})
	store.addUser(stats.Snapshot{UserID: "invitee"})
	store.referrals["invitee"] = referral.Record{ReferredUserID: "invitee", ReferrerID: "referrer"}
	store.fields["invitee"] = completeProfile()
	notifier := &recordingNotifier{}
	svc := newTestReferral(t, store, notifier)

	if _, err := svc.CreditReferrerIfEligible(context.Background(), "invitee"); err != nil {
		t.Fatalf("credit failed: %v", err)
	}

	// recruiter_1 is worth 25 points: 90 -> 115 crosses the economy threshold.
	if store.levels["referrer"] != "economy" {
		t.Errorf("persisted level = %s, want economy", store.levels["referrer"])
	}
	if got := notifier.count(notification.NotificationLevelUp); got != 1 {
		t.Errorf("level-up notifications = %d, want 1", got)
	}
}

func TestCreditReferrerIdempotent(t *testing.T) {
	store := newFakeStore()
	store.addUser(stats.Snapshot{UserID: "referrer"})
	store.addUser(stats.Snapshot{UserID: "invitee"})
	store.referrals["invitee"] = referral.Record{ReferredUserID: "invitee", ReferrerID: "referrer"}
	store.fields["invitee"] = completeProfile()
	svc := newTestReferral(t, store, &recordingNotifier{})
	ctx := context.Background()

	if _, err := svc.CreditReferrerIfEligible(ctx, "invitee"); err != nil {
		t.Fatalf("first credit failed: %v", err)
	}
	second, err := svc.CreditReferrerIfEligible(ctx, "invitee")
	if err != nil {
		t.Fatalf("second credit failed: %v", err)
	}
	if second.Credited {
		t.Error("second credit must be a no-op")
	}
	if snap := store.snapshots["referrer"]; snap.SuccessfulReferrals != 1 {
		t.Errorf("referral count = %d, want exactly 1", snap.SuccessfulReferrals)
	}
}

func TestCreditReferrerIncompleteProfile(t *testing.T) {
	store := newFakeStore()
	store.addUser(stats.Snapshot{UserID: "referrer"})
	store.referrals["invitee"] = referral.Record{ReferredUserID: "invitee", ReferrerID: "referrer"}
	store.fields["invitee"] = referral.CompletionFields{Airline: "KLM"}
	svc := newTestReferral(t, store, &recordingNotifier{})

	result, err := svc.CreditReferrerIfEligible(context.Background(), "invitee")
	if err != nil {
		t.Fatalf("CreditReferrerIfEligible failed: %v", err)
	}
	if result.Credited {
		t.Error("incomplete profile must not credit")
	}
	want := []string{"profile_photo", "base"}
	if len(result.MissingFields) != len(want) {
		t.Fatalf("MissingFields = %v, want %v", result.MissingFields, want)
	}
	for i, field := range want {
		if result.MissingFields[i] != field {
			t.Errorf("MissingFields[%d] = %s, want %s", i, result.MissingFields[i], field)
		}
	}
}

func TestCreditReferrerTopTierTriggersClaimOnce(t *testing.T) {
	store := newFakeStore()
	store.addUser(stats.Snapshot{UserID: "referrer", SuccessfulReferrals: 24})
	store.addUser(stats.Snapshot{UserID: "invitee-25"})
	store.badges["referrer"] = map[string]bool{
		"recruiter_1":  true,
		"recruiter_5":  true,
		"recruiter_10": true,
	}
	store.referrals["invitee-25"] = referral.Record{ReferredUserID: "invitee-25", ReferrerID: "referrer"}
	store.fields["invitee-25"] = completeProfile()
	notifier := &recordingNotifier{}
	svc := newTestReferral(t, store, notifier)
	ctx := context.Background()

	result, err := svc.CreditReferrerIfEligible(ctx, "invitee-25")
	if err != nil {
		t.Fatalf("credit failed: %v", err)
	}
	if result.ReferralCount != 25 {
		t.Errorf("count = %d, want 25", result.ReferralCount)
	}
	if len(result.NewBadgeIDs) != 1 || result.NewBadgeIDs[0] != "recruiter_25" {
		t.Errorf("NewBadgeIDs = %v, want [recruiter_25]", result.NewBadgeIDs)
	}
	if !result.ClaimTriggered {
		t.Error("top-tier badge must trigger the reward claim")
	}

	// A concurrent or retried completion check must not double anything.
	retry, err := svc.CreditReferrerIfEligible(ctx, "invitee-25")
	if err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if retry.Credited || retry.ClaimTriggered {
		t.Errorf("retry = %+v, want no-op", retry)
	}
	if snap := store.snapshots["referrer"]; snap.SuccessfulReferrals != 25 {
		t.Errorf("count after retry = %d, want 25", snap.SuccessfulReferrals)
	}
	if got := notifier.count(notification.NotificationRewardClaim); got != 1 {
		t.Errorf("claim notifications = %d, want exactly 1", got)
	}
}

func TestRecountReferralsReconcilesDrift(t *testing.T) {
	store := newFakeStore()
	// Counter drifted to 5; only two attributed referrals are actually complete.
	store.addUser(stats.Snapshot{UserID: "referrer", SuccessfulReferrals: 5})
	store.referrals["a"] = referral.Record{ReferredUserID: "a", ReferrerID: "referrer", Credited: true}
	store.referrals["b"] = referral.Record{ReferredUserID: "b", ReferrerID: "referrer", Credited: true}
	store.referrals["c"] = referral.Record{ReferredUserID: "c", ReferrerID: "referrer"}
	store.fields["a"] = completeProfile()
	store.fields["b"] = completeProfile()
	store.fields["c"] = referral.CompletionFields{ProfilePhotoURL: "https://cdn/c.jpg"}
	svc := newTestReferral(t, store, &recordingNotifier{})

	report, err := svc.RecountReferrals(context.Background(), "referrer")
	if err != nil {
		t.Fatalf("RecountReferrals failed: %v", err)
	}

	if report.PreviousCount != 5 || report.TrueCount != 2 {
		t.Errorf("counts = %d -> %d, want 5 -> 2", report.PreviousCount, report.TrueCount)
	}
	if !report.Reconciled {
		t.Error("drifted counter must be reconciled")
	}
	if snap := store.snapshots["referrer"]; snap.SuccessfulReferrals != 2 {
		t.Errorf("stored count = %d, want 2", snap.SuccessfulReferrals)
	}
	if len(report.Entries) != 3 {
		t.Fatalf("entries = %d, want 3", len(report.Entries))
	}
	for _, entry := range report.Entries {
		if entry.ReferredUserID == "c" {
			if entry.Complete {
				t.Error("referral c must be pending")
			}
			if len(entry.MissingFields) != 2 {
				t.Errorf("referral c missing fields = %v, want airline and base", entry.MissingFields)
			}
		}
	}
}
