package fantasyteam

import "context"

// Repository describes team persistence needs from use cases.
type Repository interface {
	GetByID(ctx context.Context, teamID string) (Team, bool, error)
	GetByLeagueAndUser(ctx context.Context, leagueID, userID string) (Team, bool, error)
	ListByLeague(ctx context.Context, leagueID string) ([]Team, error)
	Save(ctx context.Context, t Team) error
}
