package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/wicketworks/fantasy-cricket/internal/domain/fantasyteam"
)

type TeamRepository struct {
	mu    sync.RWMutex
	teams map[string]fantasyteam.Team
}

func NewTeamRepository() *TeamRepository {
	return &TeamRepository{teams: make(map[string]fantasyteam.Team)}
}

func (r *TeamRepository) GetByID(_ context.Context, teamID string) (fantasyteam.Team, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.teams[teamID]
	if !ok {
		return fantasyteam.Team{}, false, nil
	}
	return t.Clone(), true, nil
}

func (r *TeamRepository) GetByLeagueAndUser(_ context.Context, leagueID, userID string) (fantasyteam.Team, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, t := range r.teams {
		if t.LeagueID == leagueID && t.UserID == userID {
			return t.Clone(), true, nil
		}
	}
	return fantasyteam.Team{}, false, nil
}

func (r *TeamRepository) ListByLeague(_ context.Context, leagueID string) ([]fantasyteam.Team, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]fantasyteam.Team, 0)
	for _, t := range r.teams {
		if t.LeagueID == leagueID {
			out = append(out, t.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *TeamRepository) Save(_ context.Context, t fantasyteam.Team) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.teams[t.ID] = t.Clone()
	return nil
}
