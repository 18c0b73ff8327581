package scoring

import "testing"

func TestCheckInPoints_BonusesStackAdditively(t *testing.T) {
	calc := NewCalculator(DefaultConfig())
	cfg := DefaultConfig()

	tests := []struct {
		name string
		mods CheckInModifiers
		want int
	}{
		{"plain", CheckInModifiers{}, cfg.CheckInBase},
		{"new user", CheckInModifiers{NewUser: true}, cfg.CheckInBase + cfg.NewUserBonus},
		{"new city", CheckInModifiers{NewCity: true}, cfg.CheckInBase + cfg.NewCityBonus},
		{"new continent", CheckInModifiers{FirstTimeInContinent: true}, cfg.CheckInBase + cfg.NewContinentBonus},
		{"international", CheckInModifiers{International: true}, cfg.CheckInBase + cfg.InternationalBonus},
		{
			"all four bonuses present",
			CheckInModifiers{NewUser: true, NewCity: true, FirstTimeInContinent: true, International: true},
			cfg.CheckInBase + cfg.NewUserBonus + cfg.NewCityBonus + cfg.NewContinentBonus + cfg.InternationalBonus,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := calc.CheckInPoints(tt.mods); got != tt.want {
				t.Errorf("CheckInPoints(%+v) = %d, want %d", tt.mods, got, tt.want)
			}
		})
	}
}

func TestCheckInPoints_FoundingMultiplierAppliedLast(t *testing.T) {
	cfg := DefaultConfig()
	calc := NewCalculator(cfg)

	mods := CheckInModifiers{NewCity: true, International: true, FoundingMember: true}
	want := (cfg.CheckInBase + cfg.NewCityBonus + cfg.InternationalBonus) * cfg.FoundingMultiplier
	if got := calc.CheckInPoints(mods); got != want {
		t.Errorf("founding member total = %d, want %d", got, want)
	}
}

func TestCheckInPoints_Deterministic(t *testing.T) {
	calc := NewCalculator(DefaultConfig())
	mods := CheckInModifiers{NewUser: true, International: true}

	first := calc.CheckInPoints(mods)
	for i := 0; i < 100; i++ {
		if got := calc.CheckInPoints(mods); got != first {
			t.Fatalf("run %d produced %d, first run produced %d", i, got, first)
		}
	}
}

func TestPlanHostedPoints_AttendeeStepsAreCapped(t *testing.T) {
	cfg := DefaultConfig()
	calc := NewCalculator(cfg)

	tests := []struct {
		attendees int
		want      int
	}{
		{0, cfg.PlanHostedBase},
		{2, cfg.PlanHostedBase},
		{3, cfg.PlanHostedBase + 15},
		{5, cfg.PlanHostedBase + 30},
		{9, cfg.PlanHostedBase + 30},
		{10, cfg.PlanHostedBase + 50},
		{500, cfg.PlanHostedBase + 50}, // huge groups hit the ceiling
	}
	for _, tt := range tests {
		if got := calc.PlanHostedPoints(tt.attendees, false, false); got != tt.want {
			t.Errorf("PlanHostedPoints(%d) = %d, want %d", tt.attendees, got, tt.want)
		}
	}
}

func TestReviewPoints(t *testing.T) {
	cfg := DefaultConfig()
	calc := NewCalculator(cfg)

	if got := calc.ReviewPoints(false, false, false); got != cfg.ReviewBase {
		t.Errorf("plain review = %d, want %d", got, cfg.ReviewBase)
	}
	if got := calc.ReviewPoints(true, false, false); got != cfg.ReviewBase+cfg.ReviewPhotoBonus {
		t.Errorf("review with photos = %d, want %d", got, cfg.ReviewBase+cfg.ReviewPhotoBonus)
	}
	want := (cfg.ReviewBase + cfg.ReviewPhotoBonus + cfg.NewUserBonus) * cfg.FoundingMultiplier
	if got := calc.ReviewPoints(true, true, true); got != want {
		t.Errorf("review all modifiers = %d, want %d", got, want)
	}
}

func TestFlatPoints(t *testing.T) {
	cfg := DefaultConfig()
	calc := NewCalculator(cfg)

	if got := calc.FlatPoints(ActionPlanJoined); got != cfg.PlanJoinedPoints {
		t.Errorf("plan joined = %d, want %d", got, cfg.PlanJoinedPoints)
	}
	if got := calc.FlatPoints(ActionConnectionAccepted); got != cfg.ConnectionAcceptedPoints {
		t.Errorf("connection accepted = %d, want %d", got, cfg.ConnectionAcceptedPoints)
	}
	if got := calc.FlatPoints(ActionSpotAdded); got != cfg.SpotAddedPoints {
		t.Errorf("spot added = %d, want %d", got, cfg.SpotAddedPoints)
	}
	if got := calc.FlatPoints(ActionType("bogus")); got != 0 {
		t.Errorf("unknown action = %d, want 0", got)
	}
}

func TestPoints_NeverNegative(t *testing.T) {
	// A hostile config with negative amounts must still never price an
	// action below zero.
	calc := NewCalculator(Config{
		CheckInBase:        -10,
		NewUserBonus:       -5,
		FoundingMultiplier: 2,
		ReviewBase:         -3,
		PlanJoinedPoints:   -1,
	})

	if got := calc.CheckInPoints(CheckInModifiers{NewUser: true, FoundingMember: true}); got != 0 {
		t.Errorf("negative check-in clamped to %d, want 0", got)
	}
	if got := calc.ReviewPoints(false, false, false); got != 0 {
		t.Errorf("negative review clamped to %d, want 0", got)
	}
	if got := calc.FlatPoints(ActionPlanJoined); got != 0 {
		t.Errorf("negative flat clamped to %d, want 0", got)
	}
}
