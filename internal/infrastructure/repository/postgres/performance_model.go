package postgres

import (
	"time"

	"github.com/wicketworks/fantasy-cricket/internal/domain/performance"
)

type performanceTableModel struct {
	MatchID      string    `db:"match_id"`
	PlayerID     string    `db:"player_id"`
	Runs         int       `db:"runs"`
	BallsFaced   int       `db:"balls_faced"`
	Dismissed    bool      `db:"dismissed"`
	BallsBowled  int       `db:"balls_bowled"`
	RunsConceded int       `db:"runs_conceded"`
	Wickets      int       `db:"wickets"`
	Maidens      int       `db:"maidens"`
	Catches      int       `db:"catches"`
	Stumpings    int       `db:"stumpings"`
	Runouts      int       `db:"runouts"`
	BasePoints   float64   `db:"base_points"`
	CatchPoints  float64   `db:"catch_points"`
	ScoredAt     time.Time `db:"scored_at"`
}

func performanceToRow(rec performance.Record) performanceTableModel {
	return performanceTableModel{
		MatchID:      rec.MatchID,
		PlayerID:     rec.PlayerID,
		Runs:         rec.Batting.Runs,
		BallsFaced:   rec.Batting.BallsFaced,
		Dismissed:    rec.Batting.Dismissed,
		BallsBowled:  rec.Bowling.BallsBowled,
		RunsConceded: rec.Bowling.RunsConceded,
		Wickets:      rec.Bowling.Wickets,
		Maidens:      rec.Bowling.Maidens,
		Catches:      rec.Fielding.Catches,
		Stumpings:    rec.Fielding.Stumpings,
		Runouts:      rec.Fielding.Runouts,
		BasePoints:   rec.BasePoints,
		CatchPoints:  rec.CatchPoints,
		ScoredAt:     rec.ScoredAt,
	}
}

func performanceFromRow(row performanceTableModel) performance.Record {
	return performance.Record{
		MatchID:  row.MatchID,
		PlayerID: row.PlayerID,
		Batting: performance.BattingFacet{
			Runs:       row.Runs,
			BallsFaced: row.BallsFaced,
			Dismissed:  row.Dismissed,
		},
		Bowling: performance.BowlingFacet{
			BallsBowled:  row.BallsBowled,
			RunsConceded: row.RunsConceded,
			Wickets:      row.Wickets,
			Maidens:      row.Maidens,
		},
		Fielding: performance.FieldingFacet{
			Catches:   row.Catches,
			Stumpings: row.Stumpings,
			Runouts:   row.Runouts,
		},
		BasePoints:  row.BasePoints,
		CatchPoints: row.CatchPoints,
		ScoredAt:    row.ScoredAt,
	}
}
