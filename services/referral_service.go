package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"skylineAPI/internal/badge"
	"skylineAPI/internal/effect"
	"skylineAPI/internal/level"
	"skylineAPI/internal/notification"
	"skylineAPI/internal/referral"
	"skylineAPI/internal/stats"
	"skylineAPI/internal/storage"
)

// RecruiterClaimID names the one-time fulfillment record queued when a user
// earns the top recruiter badge.
const RecruiterClaimID = "recruiter_top_tier_reward"

type ReferralService struct {
	store    storage.Store
	badges   *badge.Evaluator
	levels   *level.Resolver
	notifier Notifier
}

func NewReferralService(store storage.Store, badges *badge.Evaluator, levels *level.Resolver, notifier Notifier) *ReferralService {
	return &ReferralService{
		store:    store,
		badges:   badges,
		levels:   levels,
		notifier: notifier,
	}
}

// AttributionResult reports whether an attribution took hold. Rejections are
// expected from racing clients and are never hard failures.
type AttributionResult struct {
	Accepted bool   `json:"accepted"`
	Reason   string `json:"reason,omitempty"`
}

// AttributeReferral records who referred a new user. The referrer field is
// write-once: self-references, unknown referrers and repeat attributions all
// no-op with a logged reason.
func (s *ReferralService) AttributeReferral(ctx context.Context, newUserID, referrerID string) (*AttributionResult, error) {
	if newUserID == referrerID {
		log.Printf("Referral attribution rejected: user %s referred themselves", newUserID)
		return &AttributionResult{Reason: "self-referral"}, nil
	}

	exists, err := s.store.UserExists(ctx, referrerID)
	if err != nil {
		return nil, err
	}
	if !exists {
		log.Printf("Referral attribution rejected: referrer %s not found", referrerID)
		return &AttributionResult{Reason: "referrer not found"}, nil
	}

	if err := s.store.SetReferrer(ctx, newUserID, referrerID); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			log.Printf("Referral attribution rejected: user %s already attributed", newUserID)
			return &AttributionResult{Reason: "already attributed"}, nil
		}
		return nil, err
	}
	return &AttributionResult{Accepted: true}, nil
}

// CreditResult reports what a completion check did for the referrer.
type CreditResult struct {
	Credited       bool     `json:"credited"`
	ReferrerID     string   `json:"referrer_id,omitempty"`
	ReferralCount  int      `json:"referral_count,omitempty"`
	NewBadgeIDs    []string `json:"new_badge_ids"`
	ClaimTriggered bool     `json:"claim_triggered,omitempty"`
	MissingFields  []string `json:"missing_fields,omitempty"`
}

// CreditReferrerIfEligible runs when a referred user hits a profile
// milestone. On the first transition into "complete" it credits the referrer
// exactly once, then cascades: recruiter badges are re-checked against the
// new count and the top tier triggers a one-time reward claim. Repeat calls
// are no-ops.
func (s *ReferralService) CreditReferrerIfEligible(ctx context.Context, referredUserID string) (*CreditResult, error) {
	record, err := s.store.GetReferralRecord(ctx, referredUserID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return &CreditResult{NewBadgeIDs: []string{}}, nil
		}
		return nil, err
	}
	if record.Credited {
		return &CreditResult{ReferrerID: record.ReferrerID, NewBadgeIDs: []string{}}, nil
	}

	fields, err := s.store.GetCompletionFields(ctx, referredUserID)
	if err != nil {
		return nil, err
	}
	if !fields.Complete() {
		return &CreditResult{
			ReferrerID:    record.ReferrerID,
			NewBadgeIDs:   []string{},
			MissingFields: fields.MissingFields(),
		}, nil
	}

	credited, newCount, err := s.store.CreditReferral(ctx, referredUserID, record.ReferrerID)
	if err != nil {
		return nil, err
	}
	if !credited {
		// Lost the race to a concurrent completion check.
		return &CreditResult{ReferrerID: record.ReferrerID, ReferralCount: newCount, NewBadgeIDs: []string{}}, nil
	}
	referralsCredited.Inc()

	snap, err := s.store.GetUserSnapshot(ctx, record.ReferrerID)
	if err != nil {
		log.Printf("Referral credited but referrer %s snapshot failed: %v", record.ReferrerID, err)
		return &CreditResult{Credited: true, ReferrerID: record.ReferrerID, ReferralCount: newCount, NewBadgeIDs: []string{}}, nil
	}
	snap.SuccessfulReferrals = newCount

	earned, err := s.store.GetEarnedBadgeIDs(ctx, record.ReferrerID)
	if err != nil {
		log.Printf("Referral credited but badge check for %s failed: %v", record.ReferrerID, err)
		return &CreditResult{Credited: true, ReferrerID: record.ReferrerID, ReferralCount: newCount, NewBadgeIDs: []string{}}, nil
	}

	effects, newBadgeIDs := s.buildCreditEffects(record.ReferrerID, snap, earned)
	claimTriggered := s.applyEffects(ctx, snap, effects)

	return &CreditResult{
		Credited:       true,
		ReferrerID:     record.ReferrerID,
		ReferralCount:  newCount,
		NewBadgeIDs:    newBadgeIDs,
		ClaimTriggered: claimTriggered,
	}, nil
}

// buildCreditEffects computes the post-credit cascade as pure data: new
// recruiter badges, their points, the one-time claim when the top tier is
// newly earned, and the user-facing notifications.
func (s *ReferralService) buildCreditEffects(referrerID string, snap stats.Snapshot, earned map[string]bool) ([]effect.Effect, []string) {
	newBadges := s.badges.CheckFamily(badge.FamilyRecruiter, snap, earned)

	effects := []effect.Effect{
		effect.Notify(referrerID, string(notification.NotificationReferralCredited),
			"Referral completed!", "Someone you invited just joined the crew."),
	}
	ids := make([]string, 0, len(newBadges))

	for _, b := range newBadges {
		ids = append(ids, b.ID)
		effects = append(effects, effect.AwardBadge(referrerID, b.ID))
		if b.Points > 0 {
			effects = append(effects, effect.ApplyPoints(referrerID, b.Points, "badge"))
		}
		effects = append(effects, effect.Notify(referrerID, string(notification.NotificationBadgeEarned),
			"Badge earned!", fmt.Sprintf("You earned %s.", b.Name)))
	}

	if top, ok := s.badges.HighestTier(badge.FamilyRecruiter); ok {
		for _, b := range newBadges {
			if b.ID == top.ID {
				effects = append(effects, effect.TriggerClaim(referrerID, RecruiterClaimID))
				effects = append(effects, effect.Notify(referrerID, string(notification.NotificationRewardClaim),
					"Reward unlocked!", "You reached the top recruiter tier. We'll be in touch about your reward."))
				break
			}
		}
	}

	return effects, ids
}

// applyEffects runs the cascade in order. Individual failures are logged and
// skipped so one broken side effect never voids the rest; the claim flag is
// checked atomically so concurrent cascades trigger fulfillment once.
func (s *ReferralService) applyEffects(ctx context.Context, snap stats.Snapshot, effects []effect.Effect) bool {
	claimTriggered := false
	total := snap.Points

	for _, e := range effects {
		switch e.Kind {
		case effect.KindApplyPoints:
			bumped, err := s.store.ApplyPointsDelta(ctx, e.UserID, e.Points)
			if err != nil {
				log.Printf("Effect apply_points failed for user %s: %v", e.UserID, err)
				continue
			}
			total = bumped
			pointsAwarded.WithLabelValues(e.Reason).Add(float64(e.Points))

		case effect.KindAwardBadge:
			if err := s.store.AwardBadges(ctx, e.UserID, []string{e.BadgeID}); err != nil {
				log.Printf("Effect award_badge failed for user %s badge %s: %v", e.UserID, e.BadgeID, err)
				continue
			}
			if b, ok := s.badges.ByID(e.BadgeID); ok {
				badgesAwarded.WithLabelValues(string(b.Category)).Inc()
			}

		case effect.KindTriggerClaim:
			won, err := s.store.TrySetClaimRequested(ctx, e.UserID)
			if err != nil {
				log.Printf("Effect trigger_claim failed for user %s: %v", e.UserID, err)
				continue
			}
			if won {
				claimTriggered = true
				log.Printf("Reward claim %s queued for user %s", e.ClaimID, e.UserID)
			}

		case effect.KindNotify:
			s.notifier.Notify(ctx, e.UserID, notification.NotificationType(e.NotificationType), e.Title, e.Body, nil)
		}
	}

	if up, leveled := s.levels.CheckLevelUp(snap.Points, total); leveled {
		if err := s.store.SetLevel(ctx, snap.UserID, up.NewLevel.ID); err != nil {
			log.Printf("Failed to persist level for user %s: %v", snap.UserID, err)
		}
		levelUps.Inc()
		s.notifier.Notify(ctx, snap.UserID, notification.NotificationLevelUp,
			"Level up!",
			fmt.Sprintf("You reached %s.", up.NewLevel.Name),
			map[string]any{"level_id": up.NewLevel.ID})
	}

	return claimTriggered
}

// RecountReferrals re-scans every referral attributed to one referrer,
// recomputes the completion predicate, and reconciles the stored counter to
// the true count. Maintenance operation, not part of the steady-state path.
func (s *ReferralService) RecountReferrals(ctx context.Context, referrerID string) (*referral.RecountReport, error) {
	snap, err := s.store.GetUserSnapshot(ctx, referrerID)
	if err != nil {
		return nil, err
	}

	records, err := s.store.ListReferralsByReferrer(ctx, referrerID)
	if err != nil {
		return nil, err
	}

	report := &referral.RecountReport{
		ReferrerID:    referrerID,
		PreviousCount: snap.SuccessfulReferrals,
		Entries:       make([]referral.RecountEntry, 0, len(records)),
	}

	trueCount := 0
	for _, rec := range records {
		entry := referral.RecountEntry{
			ReferredUserID: rec.ReferredUserID,
			Credited:       rec.Credited,
		}
		fields, err := s.store.GetCompletionFields(ctx, rec.ReferredUserID)
		if err != nil {
			log.Printf("Recount: completion fields for %s failed: %v", rec.ReferredUserID, err)
			report.Entries = append(report.Entries, entry)
			continue
		}
		entry.Complete = fields.Complete()
		entry.MissingFields = fields.MissingFields()
		if entry.Complete {
			trueCount++
		}
		report.Entries = append(report.Entries, entry)
	}

	report.TrueCount = trueCount
	if trueCount != report.PreviousCount {
		if err := s.store.SetReferralCount(ctx, referrerID, trueCount); err != nil {
			return nil, err
		}
		report.Reconciled = true
		log.Printf("Recount: referrer %s counter reconciled %d -> %d", referrerID, report.PreviousCount, trueCount)
	}
	return report, nil
}
