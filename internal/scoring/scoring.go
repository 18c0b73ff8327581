package scoring

// ActionType identifies a scoreable user action reported by a caller. The
// caller has already validated the action (GPS checks etc.); this package
// only prices it.
type ActionType string

const (
	ActionCheckIn            ActionType = "check_in"
	ActionPlanHosted         ActionType = "plan_hosted"
	ActionPlanJoined         ActionType = "plan_joined"
	ActionReview             ActionType = "review"
	ActionConnectionAccepted ActionType = "connection_accepted"
	ActionSpotAdded          ActionType = "spot_added"
)

// AttendeeStep maps a minimum attendee count to a flat bonus. Steps are
// evaluated highest-first, so the bonus is capped at the top step no matter
// how large the group is.
type AttendeeStep struct {
	MinAttendees int
	Bonus        int
}

type Config struct {
	CheckInBase        int
	NewUserBonus       int
	NewCityBonus       int
	NewContinentBonus  int
	InternationalBonus int

	// FoundingMultiplier scales the full total (base + bonuses), applied
	// after everything else. Must be >= 1.
	FoundingMultiplier int

	PlanHostedBase int
	AttendeeSteps  []AttendeeStep

	ReviewBase       int
	ReviewPhotoBonus int

	PlanJoinedPoints         int
	ConnectionAcceptedPoints int
	SpotAddedPoints          int
}

// DefaultConfig is the production point sheet.
func DefaultConfig() Config {
	return Config{
		CheckInBase:        10,
		NewUserBonus:       5,
		NewCityBonus:       15,
		NewContinentBonus:  25,
		InternationalBonus: 10,
		FoundingMultiplier: 2,

		PlanHostedBase: 25,
		AttendeeSteps: []AttendeeStep{
			{MinAttendees: 10, Bonus: 50},
			{MinAttendees: 5, Bonus: 30},
			{MinAttendees: 3, Bonus: 15},
		},

		ReviewBase:       15,
		ReviewPhotoBonus: 10,

		PlanJoinedPoints:         10,
		ConnectionAcceptedPoints: 5,
		SpotAddedPoints:          20,
	}
}

// Calculator prices actions from an explicit Config instead of package-level
// tables, so two engines with different point sheets can coexist in one
// process (and tests never leak state).
type Calculator struct {
	cfg Config
}

func NewCalculator(cfg Config) *Calculator {
	if cfg.FoundingMultiplier < 1 {
		cfg.FoundingMultiplier = 1
	}
	return &Calculator{cfg: cfg}
}

// CheckInModifiers are the context flags a check-in can carry. Each true
// flag adds its flat bonus; FoundingMember multiplies the final total.
type CheckInModifiers struct {
	NewUser              bool
	NewCity              bool
	FirstTimeInContinent bool
	International        bool
	FoundingMember       bool
}

func (c *Calculator) CheckInPoints(m CheckInModifiers) int {
	points := c.cfg.CheckInBase
	if m.NewUser {
		points += c.cfg.NewUserBonus
	}
	if m.NewCity {
		points += c.cfg.NewCityBonus
	}
	if m.FirstTimeInContinent {
		points += c.cfg.NewContinentBonus
	}
	if m.International {
		points += c.cfg.InternationalBonus
	}
	if m.FoundingMember {
		points *= c.cfg.FoundingMultiplier
	}
	return clamp(points)
}

// PlanHostedPoints prices a completed hosted plan. The attendee bonus is a
// capped step function: past the top step, bigger groups earn no extra.
func (c *Calculator) PlanHostedPoints(attendeeCount int, newUser, foundingMember bool) int {
	points := c.cfg.PlanHostedBase
	for _, step := range c.cfg.AttendeeSteps {
		if attendeeCount >= step.MinAttendees {
			points += step.Bonus
			break
		}
	}
	if newUser {
		points += c.cfg.NewUserBonus
	}
	if foundingMember {
		points *= c.cfg.FoundingMultiplier
	}
	return clamp(points)
}

func (c *Calculator) ReviewPoints(withPhotos, newUser, foundingMember bool) int {
	points := c.cfg.ReviewBase
	if withPhotos {
		points += c.cfg.ReviewPhotoBonus
	}
	if newUser {
		points += c.cfg.NewUserBonus
	}
	if foundingMember {
		points *= c.cfg.FoundingMultiplier
	}
	return clamp(points)
}

// FlatPoints prices the modifier-free action types. Unknown types score 0.
func (c *Calculator) FlatPoints(action ActionType) int {
	switch action {
	case ActionPlanJoined:
		return clamp(c.cfg.PlanJoinedPoints)
	case ActionConnectionAccepted:
		return clamp(c.cfg.ConnectionAcceptedPoints)
	case ActionSpotAdded:
		return clamp(c.cfg.SpotAddedPoints)
	default:
		return 0
	}
}

func clamp(points int) int {
	if points < 0 {
		return 0
	}
	return points
}
