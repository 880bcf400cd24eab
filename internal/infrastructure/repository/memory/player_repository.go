package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/wicketworks/fantasy-cricket/internal/domain/player"
)

type PlayerRepository struct {
	mu      sync.RWMutex
	players map[string]player.Player
}

func NewPlayerRepository(players []player.Player) *PlayerRepository {
	index := make(map[string]player.Player, len(players))
	for _, p := range players {
		index[p.ID] = clonePlayer(p)
	}
	return &PlayerRepository{players: index}
}

func (r *PlayerRepository) GetByID(_ context.Context, playerID string) (player.Player, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.players[playerID]
	if !ok {
		return player.Player{}, false, nil
	}
	return clonePlayer(p), true, nil
}

func (r *PlayerRepository) GetByIDs(_ context.Context, playerIDs []string) (map[string]player.Player, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]player.Player, len(playerIDs))
	for _, id := range playerIDs {
		if p, ok := r.players[id]; ok {
			out[id] = clonePlayer(p)
		}
	}
	return out, nil
}

func (r *PlayerRepository) List(_ context.Context, filter player.Filter) ([]player.Player, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]player.Player, 0, len(r.players))
	for _, p := range r.players {
		if filter.Club != "" && p.Club != filter.Club {
			continue
		}
		if filter.RealTeam != "" && p.RealTeam != filter.RealTeam {
			continue
		}
		if filter.Role != "" && p.Role != filter.Role {
			continue
		}
		if filter.LegacyOnly && !p.Legacy {
			continue
		}
		out = append(out, clonePlayer(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *PlayerRepository) Upsert(_ context.Context, p player.Player) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.players[p.ID] = clonePlayer(p)
	return nil
}

func clonePlayer(p player.Player) player.Player {
	out := p
	if p.ProcessedMatchIDs != nil {
		out.ProcessedMatchIDs = append([]string(nil), p.ProcessedMatchIDs...)
	}
	return out
}
