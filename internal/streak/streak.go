// Package streak implements the day-granularity check-in continuity machine.
package streak

import "time"

// DateLayout is the calendar-date form stored for last_action_date. Streaks
// compare dates, never timestamps.
const DateLayout = "2006-01-02"

// DefaultPerDayBonus is the flat per-day rate for streak bonus points.
const DefaultPerDayBonus = 2

// State is the persisted streak record for one user. LastActionDate holds a
// DateLayout string; an empty or malformed value is treated as "no streak
// yet" rather than an error, so a corrupt row can never fail a check-in.
type State struct {
	CurrentStreak  int    `json:"current_streak"`
	LongestStreak  int    `json:"longest_streak"`
	LastActionDate string `json:"last_action_date"`
}

// Advance applies one check-in on the given day and returns the next state.
// changed is false only for a same-day repeat, which callers can use to skip
// the write entirely.
//
// Transitions:
//   - no previous date: streak starts at 1
//   - same calendar day: unchanged
//   - exactly one day later: streak + 1
//   - anything larger: reset to 1
func Advance(prev State, day time.Time) (next State, changed bool) {
	today := dateOnly(day)

	next = prev
	last, ok := parseDate(prev.LastActionDate)
	switch {
	case !ok:
		next.CurrentStreak = 1
	case last.Equal(today):
		return prev, false
	case today.Sub(last) == 24*time.Hour:
		next.CurrentStreak = prev.CurrentStreak + 1
	default:
		next.CurrentStreak = 1
	}

	next.LastActionDate = today.Format(DateLayout)
	if next.CurrentStreak > next.LongestStreak {
		next.LongestStreak = next.CurrentStreak
	}
	return next, true
}

// Bonus returns the streak bonus points for a run of streakDays. Streaks of
// 0 or 1 earn nothing; from two days on the whole run pays out at perDay.
func Bonus(streakDays, perDay int) int {
	if streakDays < 2 || perDay <= 0 {
		return 0
	}
	return streakDays * perDay
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func parseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
