package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/wicketworks/fantasy-cricket/internal/infrastructure/repository/memory"
)

// BootstrapSeed loads the demo players and draft league into an empty
// database. Populated databases are left untouched.
func BootstrapSeed(ctx context.Context, db *sqlx.DB) error {
	var count int
	if err := db.GetContext(ctx, &count, `SELECT COUNT(1) FROM players`); err != nil {
		return fmt.Errorf("count players for bootstrap seed: %w", err)
	}
	if count > 0 {
		return nil
	}

	players := NewPlayerRepository(db)
	for _, p := range memory.SeedPlayers() {
		if err := players.Upsert(ctx, p); err != nil {
			return fmt.Errorf("seed player %s: %w", p.ID, err)
		}
	}

	leagues := NewLeagueRepository(db)
	for _, l := range memory.SeedLeagues() {
		if err := leagues.Save(ctx, l); err != nil {
			return fmt.Errorf("seed league %s: %w", l.ID, err)
		}
	}

	return nil
}
