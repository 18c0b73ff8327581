// Package effect models the side effects a scoring or referral evaluation
// produces. Evaluations return a list of effects; the service layer applies
// them in order so points, badges, claims and notifications stay one
// pipeline instead of scattered writes.
package effect

// Kind identifies what an effect does when applied.
type Kind string

const (
	KindApplyPoints  Kind = "apply_points"
	KindAwardBadge   Kind = "award_badge"
	KindTriggerClaim Kind = "trigger_claim"
	KindNotify       Kind = "notify"
)

// Effect is one deferred side effect targeting a single user.
type Effect struct {
	Kind   Kind   `json:"kind"`
	UserID string `json:"user_id"`

	// ApplyPoints
	Points int    `json:"points,omitempty"`
	Reason string `json:"reason,omitempty"`

	// AwardBadge
	BadgeID string `json:"badge_id,omitempty"`

	// TriggerClaim
	ClaimID string `json:"claim_id,omitempty"`

	// Notify
	NotificationType string `json:"notification_type,omitempty"`
	Title            string `json:"title,omitempty"`
	Body             string `json:"body,omitempty"`
}

func ApplyPoints(userID string, points int, reason string) Effect {
	return Effect{Kind: KindApplyPoints, UserID: userID, Points: points, Reason: reason}
}

func AwardBadge(userID, badgeID string) Effect {
	return Effect{Kind: KindAwardBadge, UserID: userID, BadgeID: badgeID}
}

func TriggerClaim(userID, claimID string) Effect {
	return Effect{Kind: KindTriggerClaim, UserID: userID, ClaimID: claimID}
}

func Notify(userID, notificationType, title, body string) Effect {
	return Effect{Kind: KindNotify, UserID: userID, NotificationType: notificationType, Title: title, Body: body}
}
