package postgres

import (
	"database/sql"
	"time"

	"github.com/lib/pq"

	"github.com/wicketworks/fantasy-cricket/internal/domain/fantasyteam"
)

type teamTableModel struct {
	ID             string         `db:"id"`
	LeagueID       string         `db:"league_id"`
	UserID         string         `db:"user_id"`
	Name           string         `db:"name"`
	PlayerIDs      pq.StringArray `db:"player_ids"`
	CaptainID      string         `db:"captain_id"`
	ViceCaptainID  string         `db:"vice_captain_id"`
	WicketKeeperID string         `db:"wicket_keeper_id"`
	TransfersUsed  int            `db:"transfers_used"`
	FinalizedAt    sql.NullTime   `db:"finalized_at"`
	CreatedAt      time.Time      `db:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at"`
}

func teamFromRow(row teamTableModel) fantasyteam.Team {
	out := fantasyteam.Team{
		ID:             row.ID,
		LeagueID:       row.LeagueID,
		UserID:         row.UserID,
		Name:           row.Name,
		PlayerIDs:      []string(row.PlayerIDs),
		CaptainID:      row.CaptainID,
		ViceCaptainID:  row.ViceCaptainID,
		WicketKeeperID: row.WicketKeeperID,
		TransfersUsed:  row.TransfersUsed,
		CreatedAt:      row.CreatedAt,
		UpdatedAt:      row.UpdatedAt,
	}
	if row.FinalizedAt.Valid {
		finalized := row.FinalizedAt.Time
		out.FinalizedAt = &finalized
	}
	return out
}
