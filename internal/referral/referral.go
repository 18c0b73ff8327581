// Package referral holds the referral ledger's record types and the
// completion rule shared by steady-state crediting and the recount job.
package referral

import "time"

// Record links a referred user to their referrer. ReferrerID is write-once;
// Credited flips false -> true exactly once when the referred user first
// completes their profile.
type Record struct {
	ReferredUserID string    `json:"referred_user_id"`
	ReferrerID     string    `json:"referrer_id"`
	CreatedAt      time.Time `json:"created_at"`
	Credited       bool      `json:"credited"`
}

// CompletionFields are the profile fields whose presence defines referral
// completion: profile photo, airline and base must all be set.
type CompletionFields struct {
	ProfilePhotoURL string `json:"profile_photo_url"`
	Airline         string `json:"airline"`
	Base            string `json:"base"`
}

func (f CompletionFields) Complete() bool {
	return f.ProfilePhotoURL != "" && f.Airline != "" && f.Base != ""
}

// MissingFields names what still blocks completion, for recount reports.
func (f CompletionFields) MissingFields() []string {
	var missing []string
	if f.ProfilePhotoURL == "" {
		missing = append(missing, "profile_photo")
	}
	if f.Airline == "" {
		missing = append(missing, "airline")
	}
	if f.Base == "" {
		missing = append(missing, "base")
	}
	return missing
}

// RecountEntry is one referral's line in a recount report.
type RecountEntry struct {
	ReferredUserID string   `json:"referred_user_id"`
	Credited       bool     `json:"credited"`
	Complete       bool     `json:"complete"`
	MissingFields  []string `json:"missing_fields,omitempty"`
}

// RecountReport is the operator-facing result of a referral backfill: the
// reconciled counter plus a per-referral breakdown of what is still pending.
type RecountReport struct {
	ReferrerID    string         `json:"referrer_id"`
	PreviousCount int            `json:"previous_count"`
	TrueCount     int            `json:"true_count"`
	Reconciled    bool           `json:"reconciled"`
	Entries       []RecountEntry `json:"entries"`
}
