package league

import "context"

// Repository describes league persistence needs from use cases.
type Repository interface {
	GetByID(ctx context.Context, leagueID string) (League, bool, error)
	GetByCode(ctx context.Context, code string) (League, bool, error)
	List(ctx context.Context) ([]League, error)
	ListByStatus(ctx context.Context, statuses ...Status) ([]League, error)
	// ListByRosterPlayers returns leagues whose roster intersects the given
	// player set.
	ListByRosterPlayers(ctx context.Context, playerIDs []string) ([]League, error)
	Save(ctx context.Context, l League) error
	Delete(ctx context.Context, leagueID string) error
}
