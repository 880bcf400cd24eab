package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/wicketworks/fantasy-cricket/internal/domain/player"
	qb "github.com/wicketworks/fantasy-cricket/internal/platform/querybuilder"
)

type PlayerRepository struct {
	db *sqlx.DB
}

var playerSelectColumns = []string{
	"id",
	"name",
	"club",
	"real_team",
	"role",
	"baseline_multiplier",
	"legacy",
	"matches",
	"runs",
	"balls_faced",
	"dismissals",
	"balls_bowled",
	"runs_conceded",
	"wickets",
	"maidens",
	"catches",
	"stumpings",
	"runouts",
	"fantasy_points",
	"processed_match_ids",
	"created_at",
	"updated_at",
}

func NewPlayerRepository(db *sqlx.DB) *PlayerRepository {
	return &PlayerRepository{db: db}
}

func (r *PlayerRepository) GetByID(ctx context.Context, playerID string) (player.Player, bool, error) {
	query, args, err := qb.Select(playerSelectColumns...).From("players").
		Where(qb.Eq("id", playerID)).
		ToSQL()
	if err != nil {
		return player.Player{}, false, fmt.Errorf("build select player query: %w", err)
	}

	var row playerTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return player.Player{}, false, nil
		}
		return player.Player{}, false, fmt.Errorf("get player: %w", err)
	}

	return playerFromRow(row), true, nil
}

func (r *PlayerRepository) GetByIDs(ctx context.Context, playerIDs []string) (map[string]player.Player, error) {
	if len(playerIDs) == 0 {
		return map[string]player.Player{}, nil
	}

	query, args, err := qb.Select(playerSelectColumns...).From("players").
		Where(qb.In("id", stringSliceToAny(playerIDs))).
		OrderBy("id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select players by ids query: %w", err)
	}

	var rows []playerTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select players by ids: %w", err)
	}

	out := make(map[string]player.Player, len(rows))
	for _, row := range rows {
		out[row.ID] = playerFromRow(row)
	}

	return out, nil
}

func (r *PlayerRepository) List(ctx context.Context, filter player.Filter) ([]player.Player, error) {
	conditions := make([]qb.Condition, 0, 4)
	if filter.Club != "" {
		conditions = append(conditions, qb.Eq("club", filter.Club))
	}
	if filter.RealTeam != "" {
		conditions = append(conditions, qb.Eq("real_team", filter.RealTeam))
	}
	if filter.Role != "" {
		conditions = append(conditions, qb.Eq("role", string(filter.Role)))
	}
	if filter.LegacyOnly {
		conditions = append(conditions, qb.Eq("legacy", true))
	}

	builder := qb.Select(playerSelectColumns...).From("players").OrderBy("id")
	if len(conditions) > 0 {
		builder = builder.Where(conditions...)
	}
	query, args, err := builder.ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list players query: %w", err)
	}

	var rows []playerTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}

	out := make([]player.Player, 0, len(rows))
	for _, row := range rows {
		out = append(out, playerFromRow(row))
	}

	return out, nil
}

func (r *PlayerRepository) Upsert(ctx context.Context, p player.Player) error {
	const upsertQuery = `
INSERT INTO players (
    id, name, club, real_team, role, baseline_multiplier, legacy,
    matches, runs, balls_faced, dismissals,
    balls_bowled, runs_conceded, wickets, maidens,
    catches, stumpings, runouts, fantasy_points,
    processed_match_ids
) VALUES (
    :id, :name, :club, :real_team, :role, :baseline_multiplier, :legacy,
    :matches, :runs, :balls_faced, :dismissals,
    :balls_bowled, :runs_conceded, :wickets, :maidens,
    :catches, :stumpings, :runouts, :fantasy_points,
    :processed_match_ids
)
ON CONFLICT (id) DO UPDATE SET
    name = EXCLUDED.name,
    club = EXCLUDED.club,
    real_team = EXCLUDED.real_team,
    role = EXCLUDED.role,
    baseline_multiplier = EXCLUDED.baseline_multiplier,
    legacy = EXCLUDED.legacy,
    matches = EXCLUDED.matches,
    runs = EXCLUDED.runs,
    balls_faced = EXCLUDED.balls_faced,
    dismissals = EXCLUDED.dismissals,
    balls_bowled = EXCLUDED.balls_bowled,
    runs_conceded = EXCLUDED.runs_conceded,
    wickets = EXCLUDED.wickets,
    maidens = EXCLUDED.maidens,
    catches = EXCLUDED.catches,
    stumpings = EXCLUDED.stumpings,
    runouts = EXCLUDED.runouts,
    fantasy_points = EXCLUDED.fantasy_points,
    processed_match_ids = EXCLUDED.processed_match_ids,
    updated_at = NOW()`

	args := map[string]any{
		"id":                  p.ID,
		"name":                p.Name,
		"club":                p.Club,
		"real_team":           p.RealTeam,
		"role":                string(p.Role),
		"baseline_multiplier": p.BaselineMultiplier,
		"legacy":              p.Legacy,
		"matches":             p.Totals.Matches,
		"runs":                p.Totals.Runs,
		"balls_faced":         p.Totals.BallsFaced,
		"dismissals":          p.Totals.Dismissals,
		"balls_bowled":        p.Totals.BallsBowled,
		"runs_conceded":       p.Totals.RunsConceded,
		"wickets":             p.Totals.Wickets,
		"maidens":             p.Totals.Maidens,
		"catches":             p.Totals.Catches,
		"stumpings":           p.Totals.Stumpings,
		"runouts":             p.Totals.Runouts,
		"fantasy_points":      p.Totals.FantasyPoints,
		"processed_match_ids": pq.StringArray(p.ProcessedMatchIDs),
	}

	query, queryArgs, err := sqlx.Named(upsertQuery, args)
	if err != nil {
		return fmt.Errorf("bind upsert player query: %w", err)
	}
	query = r.db.Rebind(query)
	if _, err := r.db.ExecContext(ctx, query, queryArgs...); err != nil {
		return fmt.Errorf("upsert player %s: %w", p.ID, err)
	}

	return nil
}
