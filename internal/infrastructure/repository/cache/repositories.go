// Package cache wraps repositories with a read-through TTL cache. Writes
// invalidate every key of the wrapped entity, so readers never observe a
// stale row longer than one in-flight load.
package cache

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/wicketworks/fantasy-cricket/internal/domain/fantasyteam"
	"github.com/wicketworks/fantasy-cricket/internal/domain/league"
	"github.com/wicketworks/fantasy-cricket/internal/domain/player"
	basecache "github.com/wicketworks/fantasy-cricket/internal/platform/cache"
)

type LeagueRepository struct {
	next  league.Repository
	cache *basecache.Store
}

func NewLeagueRepository(next league.Repository, cache *basecache.Store) *LeagueRepository {
	return &LeagueRepository{next: next, cache: cache}
}

type cachedLeague struct {
	value  league.League
	exists bool
}

func (r *LeagueRepository) GetByID(ctx context.Context, leagueID string) (league.League, bool, error) {
	key := "league:id:" + leagueID
	v, err := r.cache.GetOrLoad(ctx, key, func(ctx context.Context) (any, error) {
		item, exists, err := r.next.GetByID(ctx, leagueID)
		if err != nil {
			return nil, err
		}
		return cachedLeague{value: item, exists: exists}, nil
	})
	if err != nil {
		return league.League{}, false, err
	}

	cached, _ := v.(cachedLeague)
	return cached.value, cached.exists, nil
}

func (r *LeagueRepository) GetByCode(ctx context.Context, code string) (league.League, bool, error) {
	key := "league:code:" + code
	v, err := r.cache.GetOrLoad(ctx, key, func(ctx context.Context) (any, error) {
		item, exists, err := r.next.GetByCode(ctx, code)
		if err != nil {
			return nil, err
		}
		return cachedLeague{value: item, exists: exists}, nil
	})
	if err != nil {
		return league.League{}, false, err
	}

	cached, _ := v.(cachedLeague)
	return cached.value, cached.exists, nil
}

func (r *LeagueRepository) List(ctx context.Context) ([]league.League, error) {
	v, err := r.cache.GetOrLoad(ctx, "league:list", func(ctx context.Context) (any, error) {
		items, err := r.next.List(ctx)
		if err != nil {
			return nil, err
		}
		return append([]league.League(nil), items...), nil
	})
	if err != nil {
		return nil, err
	}

	items, _ := v.([]league.League)
	return append([]league.League(nil), items...), nil
}

func (r *LeagueRepository) ListByStatus(ctx context.Context, statuses ...league.Status) ([]league.League, error) {
	names := make([]string, 0, len(statuses))
	for _, status := range statuses {
		names = append(names, string(status))
	}
	sort.Strings(names)
	key := "league:status:" + strings.Join(names, ",")

	v, err := r.cache.GetOrLoad(ctx, key, func(ctx context.Context) (any, error) {
		items, err := r.next.ListByStatus(ctx, statuses...)
		if err != nil {
			return nil, err
		}
		return append([]league.League(nil), items...), nil
	})
	if err != nil {
		return nil, err
	}

	items, _ := v.([]league.League)
	return append([]league.League(nil), items...), nil
}

func (r *LeagueRepository) ListByRosterPlayers(ctx context.Context, playerIDs []string) ([]league.League, error) {
	ids := append([]string(nil), playerIDs...)
	sort.Strings(ids)
	key := "league:roster:" + strings.Join(ids, ",")

	v, err := r.cache.GetOrLoad(ctx, key, func(ctx context.Context) (any, error) {
		items, err := r.next.ListByRosterPlayers(ctx, playerIDs)
		if err != nil {
			return nil, err
		}
		return append([]league.League(nil), items...), nil
	})
	if err != nil {
		return nil, err
	}

	items, _ := v.([]league.League)
	return append([]league.League(nil), items...), nil
}

func (r *LeagueRepository) Save(ctx context.Context, l league.League) error {
	if err := r.next.Save(ctx, l); err != nil {
		return err
	}
	r.cache.DeletePrefix(ctx, "league:")
	return nil
}

func (r *LeagueRepository) Delete(ctx context.Context, leagueID string) error {
	if err := r.next.Delete(ctx, leagueID); err != nil {
		return err
	}
	r.cache.DeletePrefix(ctx, "league:")
	return nil
}

type PlayerRepository struct {
	next  player.Repository
	cache *basecache.Store
}

func NewPlayerRepository(next player.Repository, cache *basecache.Store) *PlayerRepository {
	return &PlayerRepository{next: next, cache: cache}
}

type cachedPlayer struct {
	value  player.Player
	exists bool
}

func (r *PlayerRepository) GetByID(ctx context.Context, playerID string) (player.Player, bool, error) {
	key := "player:id:" + playerID
	v, err := r.cache.GetOrLoad(ctx, key, func(ctx context.Context) (any, error) {
		item, exists, err := r.next.GetByID(ctx, playerID)
		if err != nil {
			return nil, err
		}
		return cachedPlayer{value: item, exists: exists}, nil
	})
	if err != nil {
		return player.Player{}, false, err
	}

	cached, _ := v.(cachedPlayer)
	return cached.value, cached.exists, nil
}

func (r *PlayerRepository) GetByIDs(ctx context.Context, playerIDs []string) (map[string]player.Player, error) {
	ids := append([]string(nil), playerIDs...)
	sort.Strings(ids)
	key := "player:ids:" + strings.Join(ids, ",")

	v, err := r.cache.GetOrLoad(ctx, key, func(ctx context.Context) (any, error) {
		items, err := r.next.GetByIDs(ctx, playerIDs)
		if err != nil {
			return nil, err
		}
		return clonePlayerMap(items), nil
	})
	if err != nil {
		return nil, err
	}

	items, _ := v.(map[string]player.Player)
	return clonePlayerMap(items), nil
}

func (r *PlayerRepository) List(ctx context.Context, filter player.Filter) ([]player.Player, error) {
	key := "player:list:" + playerFilterKey(filter)
	v, err := r.cache.GetOrLoad(ctx, key, func(ctx context.Context) (any, error) {
		items, err := r.next.List(ctx, filter)
		if err != nil {
			return nil, err
		}
		return append([]player.Player(nil), items...), nil
	})
	if err != nil {
		return nil, err
	}

	items, _ := v.([]player.Player)
	return append([]player.Player(nil), items...), nil
}

func (r *PlayerRepository) Upsert(ctx context.Context, p player.Player) error {
	if err := r.next.Upsert(ctx, p); err != nil {
		return err
	}
	r.cache.DeletePrefix(ctx, "player:")
	return nil
}

func playerFilterKey(filter player.Filter) string {
	return strings.Join([]string{
		filter.Club,
		filter.RealTeam,
		string(filter.Role),
		strconv.FormatBool(filter.LegacyOnly),
	}, "|")
}

func clonePlayerMap(in map[string]player.Player) map[string]player.Player {
	out := make(map[string]player.Player, len(in))
	for id, p := range in {
		out[id] = p
	}
	return out
}

type TeamRepository struct {
	next  fantasyteam.Repository
	cache *basecache.Store
}

func NewTeamRepository(next fantasyteam.Repository, cache *basecache.Store) *TeamRepository {
	return &TeamRepository{next: next, cache: cache}
}

type cachedTeam struct {
	value  fantasyteam.Team
	exists bool
}

func (r *TeamRepository) GetByID(ctx context.Context, teamID string) (fantasyteam.Team, bool, error) {
	key := "team:id:" + teamID
	v, err := r.cache.GetOrLoad(ctx, key, func(ctx context.Context) (any, error) {
		item, exists, err := r.next.GetByID(ctx, teamID)
		if err != nil {
			return nil, err
		}
		return cachedTeam{value: item, exists: exists}, nil
	})
	if err != nil {
		return fantasyteam.Team{}, false, err
	}

	cached, _ := v.(cachedTeam)
	return cached.value, cached.exists, nil
}

func (r *TeamRepository) GetByLeagueAndUser(ctx context.Context, leagueID, userID string) (fantasyteam.Team, bool, error) {
	key := "team:league-user:" + leagueID + ":" + userID
	v, err := r.cache.GetOrLoad(ctx, key, func(ctx context.Context) (any, error) {
		item, exists, err := r.next.GetByLeagueAndUser(ctx, leagueID, userID)
		if err != nil {
			return nil, err
		}
		return cachedTeam{value: item, exists: exists}, nil
	})
	if err != nil {
		return fantasyteam.Team{}, false, err
	}

	cached, _ := v.(cachedTeam)
	return cached.value, cached.exists, nil
}

func (r *TeamRepository) ListByLeague(ctx context.Context, leagueID string) ([]fantasyteam.Team, error) {
	key := "team:list:" + leagueID
	v, err := r.cache.GetOrLoad(ctx, key, func(ctx context.Context) (any, error) {
		items, err := r.next.ListByLeague(ctx, leagueID)
		if err != nil {
			return nil, err
		}
		return append([]fantasyteam.Team(nil), items...), nil
	})
	if err != nil {
		return nil, err
	}

	items, _ := v.([]fantasyteam.Team)
	return append([]fantasyteam.Team(nil), items...), nil
}

func (r *TeamRepository) Save(ctx context.Context, t fantasyteam.Team) error {
	if err := r.next.Save(ctx, t); err != nil {
		return err
	}
	r.cache.DeletePrefix(ctx, "team:")
	return nil
}
