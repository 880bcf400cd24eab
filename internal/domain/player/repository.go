package player

import "context"

// Filter narrows ListPlayers results.
type Filter struct {
	Club       string
	RealTeam   string
	Role       Role
	LegacyOnly bool
}

// Repository describes player persistence needs from use cases.
type Repository interface {
	GetByID(ctx context.Context, playerID string) (Player, bool, error)
	// GetByIDs returns the found subset keyed by id; missing ids are absent.
	GetByIDs(ctx context.Context, playerIDs []string) (map[string]Player, error)
	List(ctx context.Context, filter Filter) ([]Player, error)
	Upsert(ctx context.Context, p Player) error
}
