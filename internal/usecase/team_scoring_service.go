package usecase

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/wicketworks/fantasy-cricket/internal/domain/fantasyteam"
	"github.com/wicketworks/fantasy-cricket/internal/domain/league"
	"github.com/wicketworks/fantasy-cricket/internal/domain/performance"
	"github.com/wicketworks/fantasy-cricket/internal/domain/player"
	"github.com/wicketworks/fantasy-cricket/internal/domain/scoring"
	"github.com/wicketworks/fantasy-cricket/internal/platform/cache"
)

// TeamScoringService computes fantasy team totals. Scoring is read-only and
// derived freshly from stored primitives, so it is safe to call on every
// read; the leaderboard is cached briefly to absorb hot reads.
type TeamScoringService struct {
	leagueRepo     league.Repository
	teamRepo       fantasyteam.Repository
	playerRepo     player.Repository
	perfRepo       performance.Repository
	rulesetVersion string
	cache          *cache.Store
	now            func() time.Time
}

// PlayerScore is one squad member's contribution to a team total.
type PlayerScore struct {
	PlayerID       string
	BasePoints     float64
	WicketKeeper   bool
	Captain        bool
	ViceCaptain    bool
	Multiplier     float64
	CountedPoints  float64
	DisplayCounted float64
}

// TeamScore is one team's total with its per-player breakdown.
type TeamScore struct {
	TeamID        string
	LeagueID      string
	TeamName      string
	TotalPoints   float64
	DisplayPoints float64
	Players       []PlayerScore
}

func NewTeamScoringService(
	leagueRepo league.Repository,
	teamRepo fantasyteam.Repository,
	playerRepo player.Repository,
	perfRepo performance.Repository,
	rulesetVersion string,
	store *cache.Store,
) *TeamScoringService {
	return &TeamScoringService{
		leagueRepo:     leagueRepo,
		teamRepo:       teamRepo,
		playerRepo:     playerRepo,
		perfRepo:       perfRepo,
		rulesetVersion: rulesetVersion,
		cache:          store,
		now:            time.Now,
	}
}

// ScoreTeam computes one team's current total from the league snapshot and
// the stored performance records.
func (s *TeamScoringService) ScoreTeam(ctx context.Context, teamID string) (TeamScore, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.TeamScoringService.ScoreTeam")
	defer span.End()

	t, found, err := s.teamRepo.GetByID(ctx, teamID)
	if err != nil {
		return TeamScore{}, fmt.Errorf("load team %s: %w", teamID, err)
	}
	if !found {
		return TeamScore{}, fmt.Errorf("%w: team %s", ErrNotFound, teamID)
	}

	l, found, err := s.leagueRepo.GetByID(ctx, t.LeagueID)
	if err != nil {
		return TeamScore{}, fmt.Errorf("load league %s: %w", t.LeagueID, err)
	}
	if !found {
		return TeamScore{}, fmt.Errorf("%w: league %s", ErrNotFound, t.LeagueID)
	}
	return s.scoreTeam(ctx, l, t)
}

func (s *TeamScoringService) scoreTeam(ctx context.Context, l league.League, t fantasyteam.Team) (TeamScore, error) {
	if l.Status != league.StatusDraft && l.MultipliersSnapshot == nil {
		return TeamScore{}, fmt.Errorf("%w: league %s status %s", ErrSnapshotMissing, l.ID, l.Status)
	}

	ruleset, err := scoring.ByVersion(s.rulesetVersion)
	if err != nil {
		return TeamScore{}, err
	}

	players, err := s.playerRepo.GetByIDs(ctx, t.PlayerIDs)
	if err != nil {
		return TeamScore{}, fmt.Errorf("load squad players: %w", err)
	}
	records, err := s.perfRepo.ListByPlayers(ctx, t.PlayerIDs)
	if err != nil {
		return TeamScore{}, fmt.Errorf("list performances: %w", err)
	}

	out := TeamScore{TeamID: t.ID, LeagueID: t.LeagueID, TeamName: t.Name}
	for _, playerID := range t.PlayerIDs {
		score := PlayerScore{
			PlayerID:     playerID,
			WicketKeeper: t.WicketKeeperID == playerID,
			Captain:      t.CaptainID == playerID,
			ViceCaptain:  t.ViceCaptainID == playerID,
		}

		base := 0.0
		for _, rec := range records[playerID] {
			base += rec.BasePoints
			if score.WicketKeeper {
				// The keeper designation doubles catch points: the engine
				// already counted them once, add the surplus here.
				base += rec.CatchPoints * (ruleset.WicketKeeperCatchFactor - 1)
			}
		}
		score.BasePoints = base

		multiplier, ok := l.SnapshotMultiplier(playerID)
		if !ok {
			// Legacy roster entries mid-transition fall back to the player's
			// baseline until the next drift assigns a league value.
			if p, known := players[playerID]; known {
				multiplier = p.BaselineMultiplier
			} else {
				multiplier = 1.0
			}
		}
		score.Multiplier = multiplier

		counted := base * multiplier
		switch {
		case score.Captain:
			counted *= 2.0
		case score.ViceCaptain:
			counted *= 1.5
		}
		score.CountedPoints = counted
		score.DisplayCounted = scoring.DisplayPoints(counted)

		out.TotalPoints += counted
		out.Players = append(out.Players, score)
	}

	out.DisplayPoints = scoring.DisplayPoints(out.TotalPoints)
	return out, nil
}

// LeaderboardRow is one ranked entry in a league leaderboard.
type LeaderboardRow struct {
	Rank          int
	TeamID        string
	TeamName      string
	UserID        string
	TotalPoints   float64
	DisplayPoints float64
}

// Leaderboard ranks every team in a league by total points. Served from a
// short-lived cache keyed by league.
func (s *TeamScoringService) Leaderboard(ctx context.Context, leagueID string) ([]LeaderboardRow, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.TeamScoringService.Leaderboard")
	defer span.End()

	key := "leaderboard:" + leagueID
	if s.cache != nil {
		if cached, ok := s.cache.Get(ctx, key); ok {
			if rows, ok := cached.([]LeaderboardRow); ok {
				return rows, nil
			}
		}
	}

	l, found, err := s.leagueRepo.GetByID(ctx, leagueID)
	if err != nil {
		return nil, fmt.Errorf("load league %s: %w", leagueID, err)
	}
	if !found {
		return nil, fmt.Errorf("%w: league %s", ErrNotFound, leagueID)
	}

	teams, err := s.teamRepo.ListByLeague(ctx, leagueID)
	if err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}

	rows := make([]LeaderboardRow, 0, len(teams))
	for _, t := range teams {
		score, err := s.scoreTeam(ctx, l, t)
		if err != nil {
			return nil, fmt.Errorf("score team %s: %w", t.ID, err)
		}
		rows = append(rows, LeaderboardRow{
			TeamID:        t.ID,
			TeamName:      t.Name,
			UserID:        t.UserID,
			TotalPoints:   score.TotalPoints,
			DisplayPoints: score.DisplayPoints,
		})
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].TotalPoints != rows[j].TotalPoints {
			return rows[i].TotalPoints > rows[j].TotalPoints
		}
		return rows[i].TeamName < rows[j].TeamName
	})
	// Competition ranking: tied totals share a rank, the next distinct total
	// resumes at its ordinal position.
	for i := range rows {
		if i > 0 && rows[i].TotalPoints == rows[i-1].TotalPoints {
			rows[i].Rank = rows[i-1].Rank
			continue
		}
		rows[i].Rank = i + 1
	}

	if s.cache != nil {
		s.cache.Set(ctx, key, rows)
	}
	return rows, nil
}
