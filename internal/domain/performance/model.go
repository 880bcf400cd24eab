package performance

import (
	"fmt"
	"time"
)

// BattingFacet is one player's batting line in a match. BallsFaced == 0 means
// the player did not bat, which is distinct from a 0-run dismissal.
type BattingFacet struct {
	Runs       int
	BallsFaced int
	Dismissed  bool
}

func (f BattingFacet) DidBat() bool {
	return f.BallsFaced > 0
}

// BowlingFacet counts overs as balls so partial overs stay exact.
type BowlingFacet struct {
	BallsBowled  int
	RunsConceded int
	Wickets      int
	Maidens      int
}

// Overs returns the bowled workload as a decimal over count.
func (f BowlingFacet) Overs() float64 {
	return float64(f.BallsBowled) / 6.0
}

func (f BowlingFacet) EconomyRate() float64 {
	if f.BallsBowled == 0 {
		return 0
	}
	return float64(f.RunsConceded) / f.Overs()
}

type FieldingFacet struct {
	Catches   int
	Stumpings int
	Runouts   int
}

// Record is one player's performance in one match. Records are immutable once
// written; identity is (MatchID, PlayerID).
type Record struct {
	MatchID     string
	PlayerID    string
	Batting     BattingFacet
	Bowling     BowlingFacet
	Fielding    FieldingFacet
	BasePoints  float64
	CatchPoints float64
	ScoredAt    time.Time
}

func (r Record) Validate() error {
	if r.MatchID == "" {
		return fmt.Errorf("match id is required")
	}
	if r.PlayerID == "" {
		return fmt.Errorf("player id is required")
	}

	return nil
}
