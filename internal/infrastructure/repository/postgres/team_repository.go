package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/wicketworks/fantasy-cricket/internal/domain/fantasyteam"
	qb "github.com/wicketworks/fantasy-cricket/internal/platform/querybuilder"
)

type TeamRepository struct {
	db *sqlx.DB
}

var teamSelectColumns = []string{
	"id",
	"league_id",
	"user_id",
	"name",
	"player_ids",
	"captain_id",
	"vice_captain_id",
	"wicket_keeper_id",
	"transfers_used",
	"finalized_at",
	"created_at",
	"updated_at",
}

func NewTeamRepository(db *sqlx.DB) *TeamRepository {
	return &TeamRepository{db: db}
}

func (r *TeamRepository) GetByID(ctx context.Context, teamID string) (fantasyteam.Team, bool, error) {
	return r.getOne(ctx, qb.Eq("id", teamID))
}

func (r *TeamRepository) GetByLeagueAndUser(ctx context.Context, leagueID, userID string) (fantasyteam.Team, bool, error) {
	return r.getOne(ctx, qb.Eq("league_id", leagueID), qb.Eq("user_id", userID))
}

func (r *TeamRepository) getOne(ctx context.Context, conditions ...qb.Condition) (fantasyteam.Team, bool, error) {
	query, args, err := qb.Select(teamSelectColumns...).From("fantasy_teams").
		Where(conditions...).
		ToSQL()
	if err != nil {
		return fantasyteam.Team{}, false, fmt.Errorf("build select team query: %w", err)
	}

	var row teamTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return fantasyteam.Team{}, false, nil
		}
		return fantasyteam.Team{}, false, fmt.Errorf("get team: %w", err)
	}

	return teamFromRow(row), true, nil
}

func (r *TeamRepository) ListByLeague(ctx context.Context, leagueID string) ([]fantasyteam.Team, error) {
	query, args, err := qb.Select(teamSelectColumns...).From("fantasy_teams").
		Where(qb.Eq("league_id", leagueID)).
		OrderBy("id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list teams query: %w", err)
	}

	var rows []teamTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list teams by league: %w", err)
	}

	out := make([]fantasyteam.Team, 0, len(rows))
	for _, row := range rows {
		out = append(out, teamFromRow(row))
	}

	return out, nil
}

func (r *TeamRepository) Save(ctx context.Context, team fantasyteam.Team) error {
	const upsertQuery = `
INSERT INTO fantasy_teams (
    id, league_id, user_id, name, player_ids,
    captain_id, vice_captain_id, wicket_keeper_id,
    transfers_used, finalized_at
) VALUES (
    :id, :league_id, :user_id, :name, :player_ids,
    :captain_id, :vice_captain_id, :wicket_keeper_id,
    :transfers_used, :finalized_at
)
ON CONFLICT (id) DO UPDATE SET
    name = EXCLUDED.name,
    player_ids = EXCLUDED.player_ids,
    captain_id = EXCLUDED.captain_id,
    vice_captain_id = EXCLUDED.vice_captain_id,
    wicket_keeper_id = EXCLUDED.wicket_keeper_id,
    transfers_used = EXCLUDED.transfers_used,
    finalized_at = EXCLUDED.finalized_at,
    updated_at = NOW()`

	var finalizedAt sql.NullTime
	if team.FinalizedAt != nil {
		finalizedAt = sql.NullTime{Time: *team.FinalizedAt, Valid: true}
	}

	args := map[string]any{
		"id":               team.ID,
		"league_id":        team.LeagueID,
		"user_id":          team.UserID,
		"name":             team.Name,
		"player_ids":       pq.StringArray(team.PlayerIDs),
		"captain_id":       team.CaptainID,
		"vice_captain_id":  team.ViceCaptainID,
		"wicket_keeper_id": team.WicketKeeperID,
		"transfers_used":   team.TransfersUsed,
		"finalized_at":     finalizedAt,
	}

	query, queryArgs, err := sqlx.Named(upsertQuery, args)
	if err != nil {
		return fmt.Errorf("bind upsert team query: %w", err)
	}
	query = r.db.Rebind(query)
	if _, err := r.db.ExecContext(ctx, query, queryArgs...); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("user %s already has a team in league %s", team.UserID, team.LeagueID)
		}
		return fmt.Errorf("upsert team %s: %w", team.ID, err)
	}

	return nil
}
