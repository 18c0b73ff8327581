// Package badge holds the achievement catalog and the rule evaluator.
// Badges are evaluated statelessly against a stats snapshot: snapshot in,
// newly-earned list out, so a re-run after any stats update is always safe.
package badge

import (
	"fmt"

	"skylineAPI/internal/stats"
)

type Category string

const (
	CategoryCheckIns    Category = "check_ins"
	CategoryExploration Category = "exploration"
	CategoryStreaks     Category = "streaks"
	CategoryHosting     Category = "hosting"
	CategorySocial      Category = "social"
	CategoryReviews     Category = "reviews"
	CategoryPhotos      Category = "photos"
	CategoryReferrals   Category = "referrals"
	CategorySpecial     Category = "special"
)

// FamilyRecruiter is the id prefix of the referral tier series; the referral
// ledger filters its post-credit badge check to this family.
const FamilyRecruiter = "recruiter"

// Badge is an immutable achievement definition. Automated badges carry a
// predicate over the stats snapshot; manual badges (Automated=false) are
// granted through an administrative path and never evaluate here.
type Badge struct {
	ID          string   `json:"id"`
	Category    Category `json:"category"`
	Name        string   `json:"name"`
	Requirement string   `json:"requirement"`
	Points      int      `json:"points"`
	Tier        int      `json:"tier"`
	Automated   bool     `json:"automated"`

	predicate func(stats.Snapshot) bool
	// statValue reads the stat this badge measures, for progress display.
	// Nil for manual badges and badges without a single driving counter.
	statValue func(stats.Snapshot) int
}

// tierSeries builds a monotonic badge family: one badge per threshold, ids
// "<prefix>_<threshold>". Every threshold at or below the stat counts as
// earned, so lower tiers are never lost when a higher one unlocks.
func tierSeries(prefix string, cat Category, name string, stat func(stats.Snapshot) int, thresholds []int, points []int, unit string) []Badge {
	out := make([]Badge, 0, len(thresholds))
	for i, threshold := range thresholds {
		threshold := threshold
		out = append(out, Badge{
			ID:          fmt.Sprintf("%s_%d", prefix, threshold),
			Category:    cat,
			Name:        fmt.Sprintf("%s %s", name, roman(i+1)),
			Requirement: fmt.Sprintf("Reach %d %s", threshold, unit),
			Points:      points[i],
			Tier:        i + 1,
			Automated:   true,
			predicate:   func(s stats.Snapshot) bool { return stat(s) >= threshold },
			statValue:   stat,
		})
	}
	return out
}

func roman(n int) string {
	numerals := []string{"I", "II", "III", "IV", "V", "VI"}
	if n >= 1 && n <= len(numerals) {
		return numerals[n-1]
	}
	return fmt.Sprintf("%d", n)
}

// All returns the full catalog.
func All() []Badge {
	var defs []Badge

	defs = append(defs, tierSeries("checkin", CategoryCheckIns, "Frequent Flyer",
		func(s stats.Snapshot) int { return s.TotalCheckIns },
		[]int{10, 25, 50, 100, 250},
		[]int{20, 40, 75, 150, 400}, "check-ins")...)

	defs = append(defs, tierSeries("explorer", CategoryExploration, "City Explorer",
		func(s stats.Snapshot) int { return s.CitiesVisited },
		[]int{5, 10, 25, 50},
		[]int{25, 50, 125, 300}, "cities visited")...)

	defs = append(defs, tierSeries("continent", CategoryExploration, "Globetrotter",
		func(s stats.Snapshot) int { return continentsVisited(s) },
		[]int{2, 4, 6},
		[]int{50, 150, 500}, "continents visited")...)

	defs = append(defs, tierSeries("streak", CategoryStreaks, "Streak",
		func(s stats.Snapshot) int { return s.LongestStreak },
		[]int{3, 7, 14, 30},
		[]int{15, 40, 100, 250}, "consecutive days")...)

	defs = append(defs, tierSeries("host", CategoryHosting, "Layover Host",
		func(s stats.Snapshot) int { return s.PlansCompleted },
		[]int{1, 5, 10, 25},
		[]int{20, 60, 125, 350}, "plans hosted")...)

	defs = append(defs, tierSeries("connector", CategorySocial, "Connector",
		func(s stats.Snapshot) int { return s.Connections },
		[]int{5, 25, 100},
		[]int{15, 75, 250}, "crew connections")...)

	defs = append(defs, tierSeries("reviewer", CategoryReviews, "Spot Critic",
		func(s stats.Snapshot) int { return s.ReviewsWritten },
		[]int{5, 25, 50},
		[]int{20, 90, 200}, "reviews written")...)

	defs = append(defs, tierSeries("shutterbug", CategoryPhotos, "Shutterbug",
		func(s stats.Snapshot) int { return s.PhotosUploaded },
		[]int{10, 50},
		[]int{20, 100}, "photos uploaded")...)

	defs = append(defs, tierSeries(FamilyRecruiter, CategoryReferrals, "Crew Recruiter",
		func(s stats.Snapshot) int { return s.SuccessfulReferrals },
		[]int{1, 5, 10, 25},
		[]int{25, 100, 200, 500}, "completed referrals")...)

	// Derived-aggregate badges: no single counter drives these.
	defs = append(defs,
		Badge{
			ID:          "regular_5",
			Category:    CategoryCheckIns,
			Name:        "Hometown Hero",
			Requirement: "Reach 5 check-ins in a single city",
			Points:      30,
			Tier:        1,
			Automated:   true,
			predicate:   func(s stats.Snapshot) bool { return maxCityCheckIns(s) >= 5 },
			statValue:   maxCityCheckIns,
		},
		Badge{
			ID:          "taste_25",
			Category:    CategoryExploration,
			Name:        "Taste of the World",
			Requirement: "Reach 25 visits across food, cafe and bar spots",
			Points:      60,
			Tier:        1,
			Automated:   true,
			predicate:   func(s stats.Snapshot) bool { return tasteVisits(s) >= 25 },
			statValue:   tasteVisits,
		},
		Badge{
			ID:          "helpful_10",
			Category:    CategoryReviews,
			Name:        "Trusted Voice",
			Requirement: "Reach 10 helpful votes on your reviews",
			Points:      40,
			Tier:        1,
			Automated:   true,
			predicate:   func(s stats.Snapshot) bool { return s.ReviewHelpfulVotes >= 10 },
			statValue:   func(s stats.Snapshot) int { return s.ReviewHelpfulVotes },
		},
	)

	// Manually awarded badges. Listed for display and point values only;
	// CheckNewBadges never grants them.
	defs = append(defs,
		Badge{
			ID:          "founding_member",
			Category:    CategorySpecial,
			Name:        "Founding Member",
			Requirement: "Joined during the founding period",
			Points:      100,
			Tier:        1,
			Automated:   false,
		},
		Badge{
			ID:          "crew_of_the_month",
			Category:    CategorySpecial,
			Name:        "Crew of the Month",
			Requirement: "Selected by the Skyline team",
			Points:      150,
			Tier:        1,
			Automated:   false,
		},
	)

	return defs
}

func continentsVisited(s stats.Snapshot) int {
	n := 0
	for _, count := range s.ContinentCheckIns {
		if count > 0 {
			n++
		}
	}
	return n
}

func maxCityCheckIns(s stats.Snapshot) int {
	max := 0
	for _, count := range s.CityCheckIns {
		if count > max {
			max = count
		}
	}
	return max
}

func tasteVisits(s stats.Snapshot) int {
	return s.SpotTypeVisits[stats.SpotFood] +
		s.SpotTypeVisits[stats.SpotCafe] +
		s.SpotTypeVisits[stats.SpotBar]
}
