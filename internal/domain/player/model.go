package player

import (
	"fmt"
	"time"
)

// Role represents cricket role categories used in squad composition rules.
type Role string

const (
	RoleBatsman      Role = "BAT"
	RoleBowler       Role = "BOWL"
	RoleAllRounder   Role = "AR"
	RoleWicketKeeper Role = "WK"
)

var AllRoles = map[Role]struct{}{
	RoleBatsman:      {},
	RoleBowler:       {},
	RoleAllRounder:   {},
	RoleWicketKeeper: {},
}

const (
	MultiplierFloor   = 0.69
	MultiplierCeiling = 5.00
)

// Totals holds the primitive season counters for one player. Averages are
// always derived from these, never stored.
type Totals struct {
	Matches       int
	Runs          int
	BallsFaced    int
	Dismissals    int
	BallsBowled   int
	RunsConceded  int
	Wickets       int
	Maidens       int
	Catches       int
	Stumpings     int
	Runouts       int
	FantasyPoints float64
}

func (t Totals) Add(other Totals) Totals {
	return Totals{
		Matches:       t.Matches + other.Matches,
		Runs:          t.Runs + other.Runs,
		BallsFaced:    t.BallsFaced + other.BallsFaced,
		Dismissals:    t.Dismissals + other.Dismissals,
		BallsBowled:   t.BallsBowled + other.BallsBowled,
		RunsConceded:  t.RunsConceded + other.RunsConceded,
		Wickets:       t.Wickets + other.Wickets,
		Maidens:       t.Maidens + other.Maidens,
		Catches:       t.Catches + other.Catches,
		Stumpings:     t.Stumpings + other.Stumpings,
		Runouts:       t.Runouts + other.Runouts,
		FantasyPoints: t.FantasyPoints + other.FantasyPoints,
	}
}

// Sub removes a previously added delta. Used when a half-applied match is
// rolled back.
func (t Totals) Sub(other Totals) Totals {
	return Totals{
		Matches:       t.Matches - other.Matches,
		Runs:          t.Runs - other.Runs,
		BallsFaced:    t.BallsFaced - other.BallsFaced,
		Dismissals:    t.Dismissals - other.Dismissals,
		BallsBowled:   t.BallsBowled - other.BallsBowled,
		RunsConceded:  t.RunsConceded - other.RunsConceded,
		Wickets:       t.Wickets - other.Wickets,
		Maidens:       t.Maidens - other.Maidens,
		Catches:       t.Catches - other.Catches,
		Stumpings:     t.Stumpings - other.Stumpings,
		Runouts:       t.Runouts - other.Runouts,
		FantasyPoints: t.FantasyPoints - other.FantasyPoints,
	}
}

// BattingAverage is runs per dismissal; players never dismissed report their
// run total as the average.
func (t Totals) BattingAverage() float64 {
	if t.Dismissals == 0 {
		return float64(t.Runs)
	}
	return float64(t.Runs) / float64(t.Dismissals)
}

func (t Totals) StrikeRate() float64 {
	if t.BallsFaced == 0 {
		return 0
	}
	return float64(t.Runs) / float64(t.BallsFaced) * 100
}

func (t Totals) EconomyRate() float64 {
	if t.BallsBowled == 0 {
		return 0
	}
	return float64(t.RunsConceded) / (float64(t.BallsBowled) / 6.0)
}

func (t Totals) PointsPerMatch() float64 {
	if t.Matches == 0 {
		return 0
	}
	return t.FantasyPoints / float64(t.Matches)
}

// Player is a real-world cricketer shared by every league roster that lists
// them.
type Player struct {
	ID                 string
	Name               string
	Club               string
	RealTeam           string
	Role               Role
	BaselineMultiplier float64
	Legacy             bool
	Totals             Totals
	ProcessedMatchIDs  []string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func (p Player) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("player id is required")
	}
	if p.Name == "" {
		return fmt.Errorf("player name is required")
	}
	if p.Club == "" {
		return fmt.Errorf("player club is required")
	}
	if _, ok := AllRoles[p.Role]; !ok {
		return fmt.Errorf("invalid player role: %s", p.Role)
	}
	if p.BaselineMultiplier < MultiplierFloor || p.BaselineMultiplier > MultiplierCeiling {
		return fmt.Errorf("baseline multiplier %.2f outside [%.2f, %.2f]", p.BaselineMultiplier, MultiplierFloor, MultiplierCeiling)
	}

	return nil
}

// HasProcessedMatch reports whether the match already counted toward totals.
func (p Player) HasProcessedMatch(matchID string) bool {
	for _, id := range p.ProcessedMatchIDs {
		if id == matchID {
			return true
		}
	}
	return false
}
