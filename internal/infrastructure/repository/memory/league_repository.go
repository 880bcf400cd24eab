package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/wicketworks/fantasy-cricket/internal/domain/league"
)

type LeagueRepository struct {
	mu      sync.RWMutex
	leagues map[string]league.League
}

func NewLeagueRepository(leagues []league.League) *LeagueRepository {
	index := make(map[string]league.League, len(leagues))
	for _, l := range leagues {
		index[l.ID] = l.Clone()
	}
	return &LeagueRepository{leagues: index}
}

func (r *LeagueRepository) GetByID(_ context.Context, leagueID string) (league.League, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	l, ok := r.leagues[leagueID]
	if !ok {
		return league.League{}, false, nil
	}
	return l.Clone(), true, nil
}

func (r *LeagueRepository) GetByCode(_ context.Context, code string) (league.League, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, l := range r.leagues {
		if l.Code == code {
			return l.Clone(), true, nil
		}
	}
	return league.League{}, false, nil
}

func (r *LeagueRepository) List(_ context.Context) ([]league.League, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.collect(func(league.League) bool { return true }), nil
}

func (r *LeagueRepository) ListByStatus(_ context.Context, statuses ...league.Status) ([]league.League, error) {
	allowed := make(map[league.Status]struct{}, len(statuses))
	for _, s := range statuses {
		allowed[s] = struct{}{}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.collect(func(l league.League) bool {
		_, ok := allowed[l.Status]
		return ok
	}), nil
}

func (r *LeagueRepository) ListByRosterPlayers(_ context.Context, playerIDs []string) ([]league.League, error) {
	wanted := make(map[string]struct{}, len(playerIDs))
	for _, id := range playerIDs {
		wanted[id] = struct{}{}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.collect(func(l league.League) bool {
		for _, entry := range l.Roster {
			if _, ok := wanted[entry.PlayerID]; ok {
				return true
			}
		}
		return false
	}), nil
}

func (r *LeagueRepository) Save(_ context.Context, l league.League) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.leagues[l.ID] = l.Clone()
	return nil
}

func (r *LeagueRepository) Delete(_ context.Context, leagueID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.leagues, leagueID)
	return nil
}

// collect is called with the read lock held.
func (r *LeagueRepository) collect(keep func(league.League) bool) []league.League {
	out := make([]league.League, 0, len(r.leagues))
	for _, l := range r.leagues {
		if keep(l) {
			out = append(out, l.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
