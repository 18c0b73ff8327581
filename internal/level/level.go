// Package level maps point totals to the cabin-class level ladder.
package level

import (
	"fmt"
	"sort"
)

type Definition struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	MinPoints int    `json:"min_points"`
}

// Defaults is the production ladder. The lowest level must start at 0 so a
// brand-new user always resolves to something.
func Defaults() []Definition {
	return []Definition{
		{ID: "standby", Name: "Standby", MinPoints: 0},
		{ID: "economy", Name: "Economy", MinPoints: 100},
		{ID: "premium_economy", Name: "Premium Economy", MinPoints: 250},
		{ID: "business", Name: "Business", MinPoints: 500},
		{ID: "first_class", Name: "First Class", MinPoints: 1000},
		{ID: "captain", Name: "Captain", MinPoints: 2500},
		{ID: "skyline_legend", Name: "Skyline Legend", MinPoints: 5000},
	}
}

// Resolver answers level lookups from an immutable, validated ladder. It is
// safe for concurrent use: the sorted slice is never mutated after New.
type Resolver struct {
	defs []Definition // ascending by MinPoints
}

func New(defs []Definition) (*Resolver, error) {
	if len(defs) == 0 {
		return nil, fmt.Errorf("level: no definitions")
	}
	sorted := make([]Definition, len(defs))
	copy(sorted, defs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].MinPoints < sorted[j].MinPoints })
	for i := 1; i < len(sorted); i++ {
		if sorted[i].MinPoints == sorted[i-1].MinPoints {
			return nil, fmt.Errorf("level: duplicate threshold %d (%s, %s)",
				sorted[i].MinPoints, sorted[i-1].ID, sorted[i].ID)
		}
	}
	return &Resolver{defs: sorted}, nil
}

// Resolve returns the highest level whose threshold is at or below points.
// Totals below the first threshold fall back to the lowest level rather than
// "no level".
func (r *Resolver) Resolve(points int) Definition {
	for i := len(r.defs) - 1; i >= 0; i-- {
		if points >= r.defs[i].MinPoints {
			return r.defs[i]
		}
	}
	return r.defs[0]
}

type LevelUp struct {
	OldLevel Definition `json:"old_level"`
	NewLevel Definition `json:"new_level"`
}

// CheckLevelUp reports whether moving from oldPoints to newPoints crosses a
// threshold. Returns false for equal or decreasing resolution.
func (r *Resolver) CheckLevelUp(oldPoints, newPoints int) (LevelUp, bool) {
	oldLevel := r.Resolve(oldPoints)
	newLevel := r.Resolve(newPoints)
	if newLevel.MinPoints <= oldLevel.MinPoints {
		return LevelUp{}, false
	}
	return LevelUp{OldLevel: oldLevel, NewLevel: newLevel}, true
}

// Definitions exposes the ladder for display (badge/progress screens).
func (r *Resolver) Definitions() []Definition {
	out := make([]Definition, len(r.defs))
	copy(out, r.defs)
	return out
}
