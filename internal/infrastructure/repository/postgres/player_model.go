package postgres

import (
	"time"

	"github.com/lib/pq"

	"github.com/wicketworks/fantasy-cricket/internal/domain/player"
)

type playerTableModel struct {
	ID                 string         `db:"id"`
	Name               string         `db:"name"`
	Club               string         `db:"club"`
	RealTeam           string         `db:"real_team"`
	Role               string         `db:"role"`
	BaselineMultiplier float64        `db:"baseline_multiplier"`
	Legacy             bool           `db:"legacy"`
	Matches            int            `db:"matches"`
	Runs               int            `db:"runs"`
	BallsFaced         int            `db:"balls_faced"`
	Dismissals         int            `db:"dismissals"`
	BallsBowled        int            `db:"balls_bowled"`
	RunsConceded       int            `db:"runs_conceded"`
	Wickets            int            `db:"wickets"`
	Maidens            int            `db:"maidens"`
	Catches            int            `db:"catches"`
	Stumpings          int            `db:"stumpings"`
	Runouts            int            `db:"runouts"`
	FantasyPoints      float64        `db:"fantasy_points"`
	ProcessedMatchIDs  pq.StringArray `db:"processed_match_ids"`
	CreatedAt          time.Time      `db:"created_at"`
	UpdatedAt          time.Time      `db:"updated_at"`
}

func playerFromRow(row playerTableModel) player.Player {
	return player.Player{
		ID:                 row.ID,
		Name:               row.Name,
		Club:               row.Club,
		RealTeam:           row.RealTeam,
		Role:               player.Role(row.Role),
		BaselineMultiplier: row.BaselineMultiplier,
		Legacy:             row.Legacy,
		Totals: player.Totals{
			Matches:       row.Matches,
			Runs:          row.Runs,
			BallsFaced:    row.BallsFaced,
			Dismissals:    row.Dismissals,
			BallsBowled:   row.BallsBowled,
			RunsConceded:  row.RunsConceded,
			Wickets:       row.Wickets,
			Maidens:       row.Maidens,
			Catches:       row.Catches,
			Stumpings:     row.Stumpings,
			Runouts:       row.Runouts,
			FantasyPoints: row.FantasyPoints,
		},
		ProcessedMatchIDs: []string(row.ProcessedMatchIDs),
		CreatedAt:         row.CreatedAt,
		UpdatedAt:         row.UpdatedAt,
	}
}
