package stats

type Continent string

const (
	ContinentAfrica       Continent = "africa"
	ContinentAsia         Continent = "asia"
	ContinentEurope       Continent = "europe"
	ContinentNorthAmerica Continent = "north_america"
	ContinentOceania      Continent = "oceania"
	ContinentSouthAmerica Continent = "south_america"
	ContinentAntarctica   Continent = "antarctica"
)

type SpotType string

const (
	SpotFood      SpotType = "food"
	SpotCafe      SpotType = "cafe"
	SpotBar       SpotType = "bar"
	SpotNightlife SpotType = "nightlife"
	SpotOutdoors  SpotType = "outdoors"
	SpotCulture   SpotType = "culture"
	SpotShopping  SpotType = "shopping"
	SpotWellness  SpotType = "wellness"
)

// Snapshot is a read-time copy of a user's engagement counters. It is built
// once at the storage boundary (missing fields normalized to zero values
// there) and treated as immutable by the rule evaluators; the Apply* methods
// return updated copies so badge checks can run against post-action numbers
// without a second read.
type Snapshot struct {
	UserID string `json:"user_id"`

	Points  int    `json:"points"`
	LevelID string `json:"level_id"`

	TotalCheckIns     int               `json:"total_check_ins"`
	CitiesVisited     int               `json:"cities_visited"`
	CityCheckIns      map[string]int    `json:"city_check_ins"`
	ContinentCheckIns map[Continent]int `json:"continent_check_ins"`
	SpotTypeVisits    map[SpotType]int  `json:"spot_type_visits"`

	CurrentStreak int `json:"current_streak"`
	LongestStreak int `json:"longest_streak"`

	PlansCompleted              int `json:"plans_completed"`
	PlansCompletedWithAttendees int `json:"plans_completed_with_attendees"`
	PlansJoined                 int `json:"plans_joined"`
	PlansThisMonth              int `json:"plans_this_month"`
	PlansThisYear               int `json:"plans_this_year"`

	Connections         int `json:"connections"`
	ReviewsWritten      int `json:"reviews_written"`
	ReviewHelpfulVotes  int `json:"review_helpful_votes"`
	PhotosUploaded      int `json:"photos_uploaded"`
	SuccessfulReferrals int `json:"successful_referrals"`

	// NewUser and FoundingMember are resolved from the user record at read
	// time so the scoring layer never touches account metadata directly.
	NewUser        bool `json:"new_user"`
	FoundingMember bool `json:"founding_member"`
}

// Normalize replaces nil maps and negative counters with usable zero values.
// Called once when a snapshot is constructed from stored rows.
func (s *Snapshot) Normalize() {
	if s.CityCheckIns == nil {
		s.CityCheckIns = map[string]int{}
	}
	if s.ContinentCheckIns == nil {
		s.ContinentCheckIns = map[Continent]int{}
	}
	if s.SpotTypeVisits == nil {
		s.SpotTypeVisits = map[SpotType]int{}
	}
	clampNonNegative(&s.Points)
	clampNonNegative(&s.TotalCheckIns)
	clampNonNegative(&s.CitiesVisited)
	clampNonNegative(&s.CurrentStreak)
	clampNonNegative(&s.LongestStreak)
	clampNonNegative(&s.PlansCompleted)
	clampNonNegative(&s.PlansCompletedWithAttendees)
	clampNonNegative(&s.PlansJoined)
	clampNonNegative(&s.PlansThisMonth)
	clampNonNegative(&s.PlansThisYear)
	clampNonNegative(&s.Connections)
	clampNonNegative(&s.ReviewsWritten)
	clampNonNegative(&s.ReviewHelpfulVotes)
	clampNonNegative(&s.PhotosUploaded)
	clampNonNegative(&s.SuccessfulReferrals)
	for k, v := range s.CityCheckIns {
		if v < 0 {
			s.CityCheckIns[k] = 0
		}
	}
	for k, v := range s.ContinentCheckIns {
		if v < 0 {
			s.ContinentCheckIns[k] = 0
		}
	}
	for k, v := range s.SpotTypeVisits {
		if v < 0 {
			s.SpotTypeVisits[k] = 0
		}
	}
}

func clampNonNegative(n *int) {
	if *n < 0 {
		*n = 0
	}
}

// Clone returns a deep copy so Apply* updates never mutate the snapshot the
// caller read.
func (s Snapshot) Clone() Snapshot {
	out := s
	out.CityCheckIns = make(map[string]int, len(s.CityCheckIns))
	for k, v := range s.CityCheckIns {
		out.CityCheckIns[k] = v
	}
	out.ContinentCheckIns = make(map[Continent]int, len(s.ContinentCheckIns))
	for k, v := range s.ContinentCheckIns {
		out.ContinentCheckIns[k] = v
	}
	out.SpotTypeVisits = make(map[SpotType]int, len(s.SpotTypeVisits))
	for k, v := range s.SpotTypeVisits {
		out.SpotTypeVisits[k] = v
	}
	return out
}

// ApplyCheckIn returns the snapshot as it will look once the check-in
// counters are committed.
func (s Snapshot) ApplyCheckIn(city string, continent Continent, spotType SpotType) Snapshot {
	out := s.Clone()
	out.TotalCheckIns++
	if city != "" {
		if out.CityCheckIns[city] == 0 {
			out.CitiesVisited++
		}
		out.CityCheckIns[city]++
	}
	if continent != "" {
		out.ContinentCheckIns[continent]++
	}
	if spotType != "" {
		out.SpotTypeVisits[spotType]++
	}
	return out
}

func (s Snapshot) ApplyPlanHosted(attendees int) Snapshot {
	out := s.Clone()
	out.PlansCompleted++
	out.PlansThisMonth++
	out.PlansThisYear++
	if attendees > 0 {
		out.PlansCompletedWithAttendees++
	}
	return out
}

func (s Snapshot) ApplyPlanJoined() Snapshot {
	out := s.Clone()
	out.PlansJoined++
	return out
}

func (s Snapshot) ApplyReview(withPhotos bool) Snapshot {
	out := s.Clone()
	out.ReviewsWritten++
	if withPhotos {
		out.PhotosUploaded++
	}
	return out
}

func (s Snapshot) ApplyConnection() Snapshot {
	out := s.Clone()
	out.Connections++
	return out
}

func (s Snapshot) ApplyReferralCredit() Snapshot {
	out := s.Clone()
	out.SuccessfulReferrals++
	return out
}
