package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/wicketworks/fantasy-cricket/internal/domain/league"
	qb "github.com/wicketworks/fantasy-cricket/internal/platform/querybuilder"
)

type LeagueRepository struct {
	db *sqlx.DB
}

var leagueSelectColumns = []string{
	"id",
	"name",
	"code",
	"status",
	"rules",
	"frozen_rules",
	"roster",
	"multipliers_snapshot",
	"multipliers_frozen_at",
	"created_at",
	"updated_at",
}

func NewLeagueRepository(db *sqlx.DB) *LeagueRepository {
	return &LeagueRepository{db: db}
}

func (r *LeagueRepository) GetByID(ctx context.Context, leagueID string) (league.League, bool, error) {
	return r.getOne(ctx, qb.Eq("id", leagueID))
}

func (r *LeagueRepository) GetByCode(ctx context.Context, code string) (league.League, bool, error) {
	return r.getOne(ctx, qb.Eq("code", code))
}

func (r *LeagueRepository) getOne(ctx context.Context, condition qb.Condition) (league.League, bool, error) {
	query, args, err := qb.Select(leagueSelectColumns...).From("leagues").
		Where(condition).
		ToSQL()
	if err != nil {
		return league.League{}, false, fmt.Errorf("build select league query: %w", err)
	}

	var row leagueTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return league.League{}, false, nil
		}
		return league.League{}, false, fmt.Errorf("get league: %w", err)
	}

	out, err := leagueFromRow(row)
	if err != nil {
		return league.League{}, false, err
	}
	return out, true, nil
}

func (r *LeagueRepository) List(ctx context.Context) ([]league.League, error) {
	return r.list(ctx)
}

func (r *LeagueRepository) ListByStatus(ctx context.Context, statuses ...league.Status) ([]league.League, error) {
	if len(statuses) == 0 {
		return []league.League{}, nil
	}

	values := make([]any, 0, len(statuses))
	for _, status := range statuses {
		values = append(values, string(status))
	}
	return r.list(ctx, qb.In("status", values))
}

// ListByRosterPlayers returns every league whose roster references at least
// one of the given players.
func (r *LeagueRepository) ListByRosterPlayers(ctx context.Context, playerIDs []string) ([]league.League, error) {
	if len(playerIDs) == 0 {
		return []league.League{}, nil
	}

	return r.list(ctx, qb.Expr(
		"EXISTS (SELECT 1 FROM jsonb_array_elements(roster) AS entry WHERE entry->>'player_id' = ANY(?))",
		pq.StringArray(playerIDs),
	))
}

func (r *LeagueRepository) list(ctx context.Context, conditions ...qb.Condition) ([]league.League, error) {
	builder := qb.Select(leagueSelectColumns...).From("leagues").OrderBy("id")
	if len(conditions) > 0 {
		builder = builder.Where(conditions...)
	}
	query, args, err := builder.ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list leagues query: %w", err)
	}

	var rows []leagueTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list leagues: %w", err)
	}

	out := make([]league.League, 0, len(rows))
	for _, row := range rows {
		l, err := leagueFromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}

	return out, nil
}

func (r *LeagueRepository) Save(ctx context.Context, l league.League) error {
	row, err := leagueToRow(l)
	if err != nil {
		return err
	}

	const upsertQuery = `
INSERT INTO leagues (
    id, name, code, status, rules, frozen_rules, roster,
    multipliers_snapshot, multipliers_frozen_at
) VALUES (
    :id, :name, :code, :status, :rules, :frozen_rules, :roster,
    :multipliers_snapshot, :multipliers_frozen_at
)
ON CONFLICT (id) DO UPDATE SET
    name = EXCLUDED.name,
    code = EXCLUDED.code,
    status = EXCLUDED.status,
    rules = EXCLUDED.rules,
    frozen_rules = EXCLUDED.frozen_rules,
    roster = EXCLUDED.roster,
    multipliers_snapshot = EXCLUDED.multipliers_snapshot,
    multipliers_frozen_at = EXCLUDED.multipliers_frozen_at,
    updated_at = NOW()`

	args := map[string]any{
		"id":                    row.ID,
		"name":                  row.Name,
		"code":                  row.Code,
		"status":                row.Status,
		"rules":                 row.Rules,
		"frozen_rules":          row.FrozenRules,
		"roster":                row.Roster,
		"multipliers_snapshot":  row.MultipliersSnapshot,
		"multipliers_frozen_at": row.MultipliersFrozenAt,
	}

	query, queryArgs, err := sqlx.Named(upsertQuery, args)
	if err != nil {
		return fmt.Errorf("bind upsert league query: %w", err)
	}
	query = r.db.Rebind(query)
	if _, err := r.db.ExecContext(ctx, query, queryArgs...); err != nil {
		return fmt.Errorf("upsert league %s: %w", l.ID, err)
	}

	return nil
}

func (r *LeagueRepository) Delete(ctx context.Context, leagueID string) error {
	const deleteQuery = `DELETE FROM leagues WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, deleteQuery, leagueID); err != nil {
		return fmt.Errorf("delete league %s: %w", leagueID, err)
	}
	return nil
}
