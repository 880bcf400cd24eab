package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/wicketworks/fantasy-cricket/internal/domain/performance"
)

type perfKey struct {
	matchID  string
	playerID string
}

type PerformanceRepository struct {
	mu      sync.RWMutex
	records map[perfKey]performance.Record
}

func NewPerformanceRepository() *PerformanceRepository {
	return &PerformanceRepository{records: make(map[perfKey]performance.Record)}
}

func (r *PerformanceRepository) Get(_ context.Context, matchID, playerID string) (performance.Record, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[perfKey{matchID: matchID, playerID: playerID}]
	return rec, ok, nil
}

func (r *PerformanceRepository) ListByPlayer(_ context.Context, playerID string) ([]performance.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]performance.Record, 0)
	for key, rec := range r.records {
		if key.playerID == playerID {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MatchID < out[j].MatchID })
	return out, nil
}

func (r *PerformanceRepository) ListByPlayers(_ context.Context, playerIDs []string) (map[string][]performance.Record, error) {
	wanted := make(map[string]struct{}, len(playerIDs))
	for _, id := range playerIDs {
		wanted[id] = struct{}{}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string][]performance.Record, len(playerIDs))
	for key, rec := range r.records {
		if _, ok := wanted[key.playerID]; ok {
			out[key.playerID] = append(out[key.playerID], rec)
		}
	}
	for _, records := range out {
		sort.Slice(records, func(i, j int) bool { return records[i].MatchID < records[j].MatchID })
	}
	return out, nil
}

// Insert stores one immutable record. A second write for the same
// (match, player) pair reports ErrDuplicate.
func (r *PerformanceRepository) Insert(_ context.Context, rec performance.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := perfKey{matchID: rec.MatchID, playerID: rec.PlayerID}
	if _, exists := r.records[key]; exists {
		return fmt.Errorf("performance %s/%s: %w", rec.MatchID, rec.PlayerID, performance.ErrDuplicate)
	}
	r.records[key] = rec
	return nil
}

// Delete removes one record. Missing records are a no-op.
func (r *PerformanceRepository) Delete(_ context.Context, matchID, playerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.records, perfKey{matchID: matchID, playerID: playerID})
	return nil
}
