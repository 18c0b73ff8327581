package badge

import (
	"strconv"
	"strings"

	"skylineAPI/internal/stats"
)

// Evaluator answers badge-rule questions from a fixed catalog. It holds no
// per-user state, so concurrent evaluations for different users need no
// locking.
type Evaluator struct {
	defs []Badge
	byID map[string]Badge
}

func NewEvaluator(defs []Badge) *Evaluator {
	byID := make(map[string]Badge, len(defs))
	for _, d := range defs {
		byID[d.ID] = d
	}
	return &Evaluator{defs: defs, byID: byID}
}

// CheckNewBadges returns every automated badge whose rule the snapshot now
// satisfies and whose id is not already in earned. Manual badges never
// match. Already-earned ids are never returned, so repeated evaluation only
// grows the earned set.
func (e *Evaluator) CheckNewBadges(s stats.Snapshot, earned map[string]bool) []Badge {
	var newly []Badge
	for _, def := range e.defs {
		if !def.Automated || earned[def.ID] {
			continue
		}
		if def.predicate != nil && def.predicate(s) {
			newly = append(newly, def)
		}
	}
	return newly
}

// CheckFamily is CheckNewBadges restricted to one id-prefix family (e.g. the
// recruiter series after a referral credit).
func (e *Evaluator) CheckFamily(prefix string, s stats.Snapshot, earned map[string]bool) []Badge {
	var newly []Badge
	for _, def := range e.CheckNewBadges(s, earned) {
		if strings.HasPrefix(def.ID, prefix+"_") {
			newly = append(newly, def)
		}
	}
	return newly
}

// ByID looks a badge up; unknown ids report ok=false and callers treat them
// as not earned rather than failing.
func (e *Evaluator) ByID(id string) (Badge, bool) {
	def, ok := e.byID[id]
	return def, ok
}

// HighestTier returns the top badge of an id-prefix family.
func (e *Evaluator) HighestTier(prefix string) (Badge, bool) {
	var top Badge
	found := false
	for _, def := range e.defs {
		if strings.HasPrefix(def.ID, prefix+"_") && (!found || def.Tier > top.Tier) {
			top = def
			found = true
		}
	}
	return top, found
}

// Definitions returns the catalog for display.
func (e *Evaluator) Definitions() []Badge {
	out := make([]Badge, len(e.defs))
	copy(out, e.defs)
	return out
}

// Progress renders a human-readable fraction like "7/25" for a badge. The
// threshold comes out of the requirement text; when it cannot be parsed (or
// the badge has no driving stat) the result is "0/0".
func (e *Evaluator) Progress(b Badge, s stats.Snapshot) string {
	threshold, ok := parseThreshold(b.Requirement)
	if !ok || b.statValue == nil {
		return "0/0"
	}
	current := b.statValue(s)
	if current > threshold {
		current = threshold
	}
	return strconv.Itoa(current) + "/" + strconv.Itoa(threshold)
}

// CompletionPercent returns progress toward the badge in [0,100]. Badges
// with no parseable numeric requirement report 0.
func (e *Evaluator) CompletionPercent(b Badge, s stats.Snapshot) int {
	threshold, ok := parseThreshold(b.Requirement)
	if !ok || threshold <= 0 || b.statValue == nil {
		return 0
	}
	pct := b.statValue(s) * 100 / threshold
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

// parseThreshold pulls the first integer out of a requirement sentence.
func parseThreshold(requirement string) (int, bool) {
	start := -1
	for i, r := range requirement {
		if r >= '0' && r <= '9' {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			n, err := strconv.Atoi(requirement[start:i])
			return n, err == nil
		}
	}
	if start >= 0 {
		n, err := strconv.Atoi(requirement[start:])
		return n, err == nil
	}
	return 0, false
}
