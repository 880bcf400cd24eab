package scorecard

import (
	"fmt"
	"strings"
	"time"
)

// MatchSummary is the upstream listing row for one played match.
type MatchSummary struct {
	MatchID  string
	PlayedAt time.Time
	HomeClub string
	AwayClub string
	Grade    string
}

func (m MatchSummary) Validate() error {
	if strings.TrimSpace(m.MatchID) == "" {
		return fmt.Errorf("match id is required")
	}
	if m.PlayedAt.IsZero() {
		return fmt.Errorf("played_at is required")
	}
	return nil
}

// BattingRow is one batter's line in an innings. A player who did not bat has
// no row at all.
type BattingRow struct {
	PlayerName string
	Club       string
	Runs       int
	BallsFaced int
	Dismissed  bool
}

type BowlingRow struct {
	PlayerName   string
	Club         string
	BallsBowled  int
	RunsConceded int
	Wickets      int
	Maidens      int
}

// FieldingCredit records catches, stumpings and runouts attributed to one
// fielder across the match.
type FieldingCredit struct {
	PlayerName string
	Club       string
	Catches    int
	Stumpings  int
	Runouts    int
}

type Innings struct {
	BattingClub string
	BattingRows []BattingRow
	BowlingRows []BowlingRow
}

// Scorecard is the upstream representation of one match's tallies. Any player
// may be missing from any list.
type Scorecard struct {
	MatchID         string
	PlayedAt        time.Time
	Innings         []Innings
	FieldingCredits []FieldingCredit
}

// PlayerLine is a flattened per-player view of a scorecard, merged across
// innings and credit lists.
type PlayerLine struct {
	PlayerName   string
	Club         string
	Runs         int
	BallsFaced   int
	Dismissed    bool
	BallsBowled  int
	RunsConceded int
	Wickets      int
	Maidens      int
	Catches      int
	Stumpings    int
	Runouts      int
}

// Flatten merges batting, bowling and fielding rows into one line per
// (player, club) pair.
func (s Scorecard) Flatten() []PlayerLine {
	index := make(map[string]int)
	out := make([]PlayerLine, 0)

	line := func(name, club string) *PlayerLine {
		key := strings.ToLower(strings.TrimSpace(name)) + "::" + strings.ToLower(strings.TrimSpace(club))
		if idx, ok := index[key]; ok {
			return &out[idx]
		}
		out = append(out, PlayerLine{PlayerName: strings.TrimSpace(name), Club: strings.TrimSpace(club)})
		index[key] = len(out) - 1
		return &out[len(out)-1]
	}

	for _, innings := range s.Innings {
		for _, row := range innings.BattingRows {
			l := line(row.PlayerName, row.Club)
			l.Runs += row.Runs
			l.BallsFaced += row.BallsFaced
			l.Dismissed = l.Dismissed || row.Dismissed
		}
		for _, row := range innings.BowlingRows {
			l := line(row.PlayerName, row.Club)
			l.BallsBowled += row.BallsBowled
			l.RunsConceded += row.RunsConceded
			l.Wickets += row.Wickets
			l.Maidens += row.Maidens
		}
	}
	for _, credit := range s.FieldingCredits {
		l := line(credit.PlayerName, credit.Club)
		l.Catches += credit.Catches
		l.Stumpings += credit.Stumpings
		l.Runouts += credit.Runouts
	}

	return out
}
