package performance

import (
	"context"
	"errors"
)

// ErrDuplicate reports an insert for a (match, player) pair that is already
// stored. Records are immutable, so callers treat this as "already written",
// not as data loss.
var ErrDuplicate = errors.New("performance already stored")

// Repository describes performance persistence needs from use cases.
type Repository interface {
	Get(ctx context.Context, matchID, playerID string) (Record, bool, error)
	ListByPlayer(ctx context.Context, playerID string) ([]Record, error)
	ListByPlayers(ctx context.Context, playerIDs []string) (map[string][]Record, error)
	Insert(ctx context.Context, record Record) error
	Delete(ctx context.Context, matchID, playerID string) error
}
