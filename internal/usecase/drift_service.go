package usecase

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/sourcegraph/conc/pool"
	"github.com/wicketworks/fantasy-cricket/internal/domain/league"
	"github.com/wicketworks/fantasy-cricket/internal/domain/performance"
	"github.com/wicketworks/fantasy-cricket/internal/domain/player"
	"github.com/wicketworks/fantasy-cricket/internal/platform/logging"
	"github.com/wicketworks/fantasy-cricket/internal/platform/resilience"
)

// DriftService pulls every league multiplier a fixed fraction toward a target
// derived from that league's own score distribution. Leagues drift in
// parallel; inside one league the writer lock keeps the snapshot swap from
// interleaving with a state transition.
type DriftService struct {
	leagueRepo league.Repository
	playerRepo player.Repository
	perfRepo   performance.Repository
	locks      *resilience.KeyedMutex
	logger     *logging.Logger
	rate       float64
	workers    int
	now        func() time.Time
}

const (
	defaultDriftRate    = 0.15
	defaultDriftWorkers = 4

	// Fewer than this many distinct scores makes the min/median/max mapping
	// meaningless; the league skips this cycle.
	minDistinctScores = 3
)

// LeagueDrift reports one league's drift outcome. Skipped leagues are not
// errors; they retry next cycle.
type LeagueDrift struct {
	LeagueID   string
	Skipped    bool
	SkipReason string
	Updated    int
}

// DriftSummary aggregates one scheduler cycle.
type DriftSummary struct {
	Drifted int
	Skipped int
	Leagues []LeagueDrift
}

func NewDriftService(
	leagueRepo league.Repository,
	playerRepo player.Repository,
	perfRepo performance.Repository,
	locks *resilience.KeyedMutex,
	logger *logging.Logger,
	rate float64,
) *DriftService {
	if rate <= 0 || rate > 1 {
		rate = defaultDriftRate
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &DriftService{
		leagueRepo: leagueRepo,
		playerRepo: playerRepo,
		perfRepo:   perfRepo,
		locks:      locks,
		logger:     logger,
		rate:       rate,
		workers:    defaultDriftWorkers,
		now:        time.Now,
	}
}

// DriftAll runs one cycle over every active or locked league.
func (s *DriftService) DriftAll(ctx context.Context) (DriftSummary, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.DriftService.DriftAll")
	defer span.End()

	leagues, err := s.leagueRepo.ListByStatus(ctx, league.StatusActive, league.StatusLocked)
	if err != nil {
		return DriftSummary{}, fmt.Errorf("list driftable leagues: %w", err)
	}
	return s.driftLeagues(ctx, leagues)
}

// DriftForPlayers runs a cycle only for leagues whose roster intersects the
// given player set. The ingestion orchestrator calls this after a scrape.
func (s *DriftService) DriftForPlayers(ctx context.Context, playerIDs []string) (DriftSummary, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.DriftService.DriftForPlayers")
	defer span.End()

	if len(playerIDs) == 0 {
		return DriftSummary{}, nil
	}
	leagues, err := s.leagueRepo.ListByRosterPlayers(ctx, playerIDs)
	if err != nil {
		return DriftSummary{}, fmt.Errorf("list leagues by roster: %w", err)
	}
	driftable := leagues[:0]
	for _, l := range leagues {
		if l.Status.Driftable() {
			driftable = append(driftable, l)
		}
	}
	return s.driftLeagues(ctx, driftable)
}

func (s *DriftService) driftLeagues(ctx context.Context, leagues []league.League) (DriftSummary, error) {
	var mu sync.Mutex
	summary := DriftSummary{}

	workers := pool.New().WithContext(ctx).WithMaxGoroutines(s.workers)
	for _, l := range leagues {
		leagueID := l.ID
		workers.Go(func(ctx context.Context) error {
			result, err := s.DriftLeague(ctx, leagueID)
			if err != nil {
				return err
			}
			mu.Lock()
			summary.Leagues = append(summary.Leagues, result)
			if result.Skipped {
				summary.Skipped++
			} else {
				summary.Drifted++
			}
			mu.Unlock()
			return nil
		})
	}
	if err := workers.Wait(); err != nil {
		return summary, err
	}

	sort.Slice(summary.Leagues, func(i, j int) bool {
		return summary.Leagues[i].LeagueID < summary.Leagues[j].LeagueID
	})
	return summary, nil
}

// DriftLeague applies one drift step to a single league under its writer
// lock. The snapshot is swapped as a whole map so readers never observe a
// partial update.
func (s *DriftService) DriftLeague(ctx context.Context, leagueID string) (LeagueDrift, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.DriftService.DriftLeague")
	defer span.End()

	unlock, err := s.locks.Lock(ctx, leagueID)
	if err != nil {
		return LeagueDrift{}, fmt.Errorf("acquire league lock: %w", err)
	}
	defer unlock()

	l, found, err := s.leagueRepo.GetByID(ctx, leagueID)
	if err != nil {
		return LeagueDrift{}, fmt.Errorf("load league %s: %w", leagueID, err)
	}
	if !found {
		return LeagueDrift{}, fmt.Errorf("%w: league %s", ErrNotFound, leagueID)
	}
	if !l.Status.Driftable() {
		return LeagueDrift{LeagueID: leagueID, Skipped: true, SkipReason: "status " + string(l.Status)}, nil
	}
	if l.MultipliersSnapshot == nil {
		return LeagueDrift{}, fmt.Errorf("%w: league %s status %s", ErrSnapshotMissing, leagueID, l.Status)
	}

	scores, err := s.leagueScores(ctx, l)
	if err != nil {
		return LeagueDrift{}, err
	}
	dist, ok := newDistribution(scores)
	if !ok {
		s.logger.InfoContext(ctx, "drift skipped",
			"league_id", leagueID, "reason", "insufficient distinct scores")
		return LeagueDrift{LeagueID: leagueID, Skipped: true, SkipReason: "insufficient distinct scores"}, nil
	}

	players, err := s.playerRepo.GetByIDs(ctx, l.RosterPlayerIDs())
	if err != nil {
		return LeagueDrift{}, fmt.Errorf("load roster players: %w", err)
	}

	next := make(map[string]float64, len(l.Roster))
	for _, entry := range l.Roster {
		old, ok := l.MultipliersSnapshot[entry.PlayerID]
		if !ok {
			// Legacy entries added mid-season enter at the baseline and get a
			// league-computed value here, on their first drift.
			if p, known := players[entry.PlayerID]; known {
				old = p.BaselineMultiplier
			} else {
				old = 1.0
			}
		}
		target := dist.target(scores[entry.PlayerID])
		next[entry.PlayerID] = clampMultiplier(old*(1-s.rate) + target*s.rate)
	}

	l.MultipliersSnapshot = next
	l.MultipliersFrozenAt = s.now()
	l.UpdatedAt = s.now()
	if err := s.leagueRepo.Save(ctx, l); err != nil {
		return LeagueDrift{}, fmt.Errorf("save league %s: %w", leagueID, err)
	}

	s.logger.InfoContext(ctx, "league drifted", "league_id", leagueID, "players", len(next))
	return LeagueDrift{LeagueID: leagueID, Updated: len(next)}, nil
}

// leagueScores sums base points per roster player. Scoring is league-local:
// only players on this roster contribute, so two leagues sharing players can
// still disagree on every multiplier.
func (s *DriftService) leagueScores(ctx context.Context, l league.League) (map[string]float64, error) {
	records, err := s.perfRepo.ListByPlayers(ctx, l.RosterPlayerIDs())
	if err != nil {
		return nil, fmt.Errorf("list performances: %w", err)
	}

	scores := make(map[string]float64, len(l.Roster))
	for _, entry := range l.Roster {
		total := 0.0
		for _, rec := range records[entry.PlayerID] {
			total += rec.BasePoints
		}
		scores[entry.PlayerID] = total
	}
	return scores, nil
}

// distribution maps a league-local score onto a target multiplier: the worst
// scorer lands on 5.0, the median on 1.0, the best on 0.69.
type distribution struct {
	min    float64
	median float64
	max    float64
}

func newDistribution(scores map[string]float64) (distribution, bool) {
	distinct := make(map[float64]struct{}, len(scores))
	values := make([]float64, 0, len(scores))
	for _, v := range scores {
		distinct[v] = struct{}{}
		values = append(values, v)
	}
	if len(distinct) < minDistinctScores {
		return distribution{}, false
	}

	sort.Float64s(values)
	mid := len(values) / 2
	median := values[mid]
	if len(values)%2 == 0 {
		median = (values[mid-1] + values[mid]) / 2
	}
	return distribution{min: values[0], median: median, max: values[len(values)-1]}, true
}

func (d distribution) target(score float64) float64 {
	var target float64
	if score <= d.median {
		fraction := 1.0
		if d.median > d.min {
			fraction = (score - d.min) / (d.median - d.min)
		}
		target = 5.0 - 4.0*fraction
	} else {
		fraction := 1.0
		if d.max > d.median {
			fraction = (score - d.median) / (d.max - d.median)
		}
		target = 1.0 - 0.31*fraction
	}
	return clampMultiplier(target)
}

func clampMultiplier(m float64) float64 {
	return math.Min(player.MultiplierCeiling, math.Max(player.MultiplierFloor, m))
}
