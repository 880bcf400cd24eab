package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/wicketworks/fantasy-cricket/internal/domain/performance"
	qb "github.com/wicketworks/fantasy-cricket/internal/platform/querybuilder"
)

type PerformanceRepository struct {
	db *sqlx.DB
}

var performanceSelectColumns = []string{
	"match_id",
	"player_id",
	"runs",
	"balls_faced",
	"dismissed",
	"balls_bowled",
	"runs_conceded",
	"wickets",
	"maidens",
	"catches",
	"stumpings",
	"runouts",
	"base_points",
	"catch_points",
	"scored_at",
}

func NewPerformanceRepository(db *sqlx.DB) *PerformanceRepository {
	return &PerformanceRepository{db: db}
}

func (r *PerformanceRepository) Get(ctx context.Context, matchID, playerID string) (performance.Record, bool, error) {
	query, args, err := qb.Select(performanceSelectColumns...).From("performances").
		Where(
			qb.Eq("match_id", matchID),
			qb.Eq("player_id", playerID),
		).
		ToSQL()
	if err != nil {
		return performance.Record{}, false, fmt.Errorf("build select performance query: %w", err)
	}

	var row performanceTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return performance.Record{}, false, nil
		}
		return performance.Record{}, false, fmt.Errorf("get performance: %w", err)
	}

	return performanceFromRow(row), true, nil
}

func (r *PerformanceRepository) ListByPlayer(ctx context.Context, playerID string) ([]performance.Record, error) {
	query, args, err := qb.Select(performanceSelectColumns...).From("performances").
		Where(qb.Eq("player_id", playerID)).
		OrderBy("scored_at", "match_id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list performances query: %w", err)
	}

	var rows []performanceTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list performances by player: %w", err)
	}

	out := make([]performance.Record, 0, len(rows))
	for _, row := range rows {
		out = append(out, performanceFromRow(row))
	}

	return out, nil
}

func (r *PerformanceRepository) ListByPlayers(ctx context.Context, playerIDs []string) (map[string][]performance.Record, error) {
	if len(playerIDs) == 0 {
		return map[string][]performance.Record{}, nil
	}

	query, args, err := qb.Select(performanceSelectColumns...).From("performances").
		Where(qb.In("player_id", stringSliceToAny(playerIDs))).
		OrderBy("player_id", "scored_at", "match_id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list performances by players query: %w", err)
	}

	var rows []performanceTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list performances by players: %w", err)
	}

	out := make(map[string][]performance.Record, len(playerIDs))
	for _, row := range rows {
		out[row.PlayerID] = append(out[row.PlayerID], performanceFromRow(row))
	}

	return out, nil
}

// Insert refuses duplicates: a (match, player) record is immutable once
// written.
func (r *PerformanceRepository) Insert(ctx context.Context, rec performance.Record) error {
	query, args, err := qb.InsertModel("performances", performanceToRow(rec), "")
	if err != nil {
		return fmt.Errorf("build insert performance query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("performance %s/%s: %w", rec.MatchID, rec.PlayerID, performance.ErrDuplicate)
		}
		return fmt.Errorf("insert performance %s/%s: %w", rec.MatchID, rec.PlayerID, err)
	}

	return nil
}

func (r *PerformanceRepository) Delete(ctx context.Context, matchID, playerID string) error {
	query, args, err := qb.DeleteFrom("performances").
		Where(
			qb.Eq("match_id", matchID),
			qb.Eq("player_id", playerID),
		).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build delete performance query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete performance %s/%s: %w", matchID, playerID, err)
	}

	return nil
}
