package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/wicketworks/fantasy-cricket/internal/domain/identity"
	"github.com/wicketworks/fantasy-cricket/internal/domain/league"
	"github.com/wicketworks/fantasy-cricket/internal/domain/performance"
	"github.com/wicketworks/fantasy-cricket/internal/domain/player"
	"github.com/wicketworks/fantasy-cricket/internal/domain/scorecard"
	"github.com/wicketworks/fantasy-cricket/internal/platform/id"
	"github.com/wicketworks/fantasy-cricket/internal/platform/logging"
	"github.com/wicketworks/fantasy-cricket/internal/platform/resilience"
)

// MatchSource is the scraper contract the orchestrator consumes. Calls must
// be idempotent from the caller's viewpoint.
type MatchSource interface {
	ListRecentMatches(ctx context.Context, club string, since time.Time) ([]scorecard.MatchSummary, error)
	FetchScorecard(ctx context.Context, matchID string) (scorecard.Scorecard, error)
}

// IngestionService runs the scheduled scrape-score-drift pipeline. Matches
// are processed in parallel; per-match failures are isolated so one broken
// scorecard never aborts the batch.
type IngestionService struct {
	source     MatchSource
	aggregator *AggregatorService
	drifter    *DriftService
	leagueRepo league.Repository
	playerRepo player.Repository
	matcher    *identity.Matcher
	idGen      id.Generator
	locks      *resilience.KeyedMutex
	logger     *logging.Logger

	clubs   []string
	window  time.Duration
	workers int

	runFlight resilience.SingleFlight
	now       func() time.Time
}

const (
	defaultScrapeWindow     = 7 * 24 * time.Hour
	defaultIngestionWorkers = 4
)

// IngestionReport summarizes one orchestrator run.
type IngestionReport struct {
	StartedAt        time.Time
	FinishedAt       time.Time
	MatchesListed    int
	MatchesProcessed int
	MatchesFailed    int
	RecordsApplied   int
	RecordsSkipped   int
	PlayersCreated   int
	RowsAmbiguous    int
	Drift            DriftSummary
}

func NewIngestionService(
	source MatchSource,
	aggregator *AggregatorService,
	drifter *DriftService,
	leagueRepo league.Repository,
	playerRepo player.Repository,
	matcher *identity.Matcher,
	idGen id.Generator,
	locks *resilience.KeyedMutex,
	logger *logging.Logger,
	clubs []string,
	window time.Duration,
) *IngestionService {
	if window <= 0 {
		window = defaultScrapeWindow
	}
	if locks == nil {
		locks = &resilience.KeyedMutex{}
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &IngestionService{
		source:     source,
		aggregator: aggregator,
		drifter:    drifter,
		leagueRepo: leagueRepo,
		playerRepo: playerRepo,
		matcher:    matcher,
		idGen:      idGen,
		locks:      locks,
		logger:     logger,
		clubs:      clubs,
		window:     window,
		workers:    defaultIngestionWorkers,
		now:        time.Now,
	}
}

// RunNow triggers a run on demand. Concurrent triggers collapse into one
// in-flight run; later callers share its report.
func (s *IngestionService) RunNow(ctx context.Context) (IngestionReport, error) {
	value, err, _ := s.runFlight.Do("ingestion", func() (any, error) {
		return s.Run(ctx)
	})
	report, _ := value.(IngestionReport)
	return report, err
}

// Run executes one full ingestion cycle over the configured clubs.
func (s *IngestionService) Run(ctx context.Context) (IngestionReport, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.IngestionService.Run")
	defer span.End()

	report := IngestionReport{StartedAt: s.now()}
	since := report.StartedAt.Add(-s.window)

	matches := make(map[string]scorecard.MatchSummary)
	for _, club := range s.clubs {
		if err := ctx.Err(); err != nil {
			return report, fmt.Errorf("%w: %v", ErrIngestionCancelled, err)
		}
		listed, err := s.source.ListRecentMatches(ctx, club, since)
		if err != nil {
			// Transient upstream failures are absorbed here; the next run
			// re-covers the same window and idempotence soaks the overlap.
			s.logger.WarnContext(ctx, "list recent matches failed", "club", club, "error", err.Error())
			continue
		}
		for _, m := range listed {
			if err := m.Validate(); err != nil {
				s.logger.WarnContext(ctx, "dropping malformed match summary", "club", club, "error", err.Error())
				continue
			}
			matches[m.MatchID] = m
		}
	}
	report.MatchesListed = len(matches)

	ordered := make([]scorecard.MatchSummary, 0, len(matches))
	for _, m := range matches {
		ordered = append(ordered, m)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].MatchID < ordered[j].MatchID })

	pool, err := ants.NewPool(s.workers)
	if err != nil {
		return report, fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	var mu sync.Mutex
	updated := make(map[string]struct{})

	var workers sync.WaitGroup
	for _, summary := range ordered {
		if err := ctx.Err(); err != nil {
			break
		}
		summary := summary
		workers.Add(1)
		if err := pool.Submit(func() {
			defer workers.Done()

			outcome, err := s.processMatch(ctx, summary)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.MatchesFailed++
				s.logger.WarnContext(ctx, "match ingestion failed",
					"match_id", summary.MatchID, "error", err.Error())
				return
			}
			report.MatchesProcessed++
			report.RecordsApplied += outcome.applied
			report.RecordsSkipped += outcome.skipped
			report.PlayersCreated += outcome.created
			report.RowsAmbiguous += outcome.ambiguous
			for playerID := range outcome.updated {
				updated[playerID] = struct{}{}
			}
		}); err != nil {
			workers.Done()
			return report, fmt.Errorf("submit match to worker pool: %w", err)
		}
	}
	workers.Wait()

	if err := ctx.Err(); err != nil {
		report.FinishedAt = s.now()
		return report, fmt.Errorf("%w: %v", ErrIngestionCancelled, err)
	}

	updatedIDs := make([]string, 0, len(updated))
	for playerID := range updated {
		updatedIDs = append(updatedIDs, playerID)
	}
	sort.Strings(updatedIDs)

	if err := s.activateRosterEntries(ctx, updatedIDs); err != nil {
		report.FinishedAt = s.now()
		return report, fmt.Errorf("activate roster entries: %w", err)
	}

	drift, err := s.drifter.DriftForPlayers(ctx, updatedIDs)
	if err != nil {
		report.FinishedAt = s.now()
		return report, fmt.Errorf("post-ingestion drift: %w", err)
	}
	report.Drift = drift
	report.FinishedAt = s.now()

	s.logger.InfoContext(ctx, "ingestion run finished",
		"matches_processed", report.MatchesProcessed,
		"matches_failed", report.MatchesFailed,
		"records_applied", report.RecordsApplied,
		"players_created", report.PlayersCreated,
		"leagues_drifted", drift.Drifted)
	return report, nil
}

// activateRosterEntries marks the roster entries of players with a freshly
// applied performance as active in every league that lists them. Each league
// is rewritten under its writer lock.
func (s *IngestionService) activateRosterEntries(ctx context.Context, playerIDs []string) error {
	if len(playerIDs) == 0 {
		return nil
	}
	applied := make(map[string]struct{}, len(playerIDs))
	for _, playerID := range playerIDs {
		applied[playerID] = struct{}{}
	}

	leagues, err := s.leagueRepo.ListByRosterPlayers(ctx, playerIDs)
	if err != nil {
		return fmt.Errorf("list leagues by roster: %w", err)
	}

	for _, stale := range leagues {
		unlock, err := s.locks.Lock(ctx, stale.ID)
		if err != nil {
			return fmt.Errorf("acquire league lock: %w", err)
		}

		err = func() error {
			defer unlock()

			l, found, err := s.leagueRepo.GetByID(ctx, stale.ID)
			if err != nil {
				return fmt.Errorf("load league %s: %w", stale.ID, err)
			}
			if !found {
				return nil
			}

			changed := false
			for i, entry := range l.Roster {
				if entry.Active {
					continue
				}
				if _, ok := applied[entry.PlayerID]; ok {
					l.Roster[i].Active = true
					changed = true
				}
			}
			if !changed {
				return nil
			}

			l.UpdatedAt = s.now()
			if err := s.leagueRepo.Save(ctx, l); err != nil {
				return fmt.Errorf("save league %s: %w", l.ID, err)
			}
			return nil
		}()
		if err != nil {
			return err
		}
	}
	return nil
}

type matchOutcome struct {
	applied   int
	skipped   int
	created   int
	ambiguous int
	updated   map[string]struct{}
}

// processMatch fetches one scorecard, resolves every row to a player and
// applies the match's records as a unit.
func (s *IngestionService) processMatch(ctx context.Context, summary scorecard.MatchSummary) (matchOutcome, error) {
	outcome := matchOutcome{updated: make(map[string]struct{})}

	card, err := s.source.FetchScorecard(ctx, summary.MatchID)
	if err != nil {
		return outcome, fmt.Errorf("fetch scorecard %s: %w", summary.MatchID, err)
	}

	candidatesByClub := make(map[string][]identity.Candidate)
	records := make([]performance.Record, 0)
	for _, line := range card.Flatten() {
		playerID, created, ambiguous, err := s.resolveLine(ctx, summary, line, candidatesByClub)
		if err != nil {
			return outcome, err
		}
		if ambiguous {
			outcome.ambiguous++
			s.logger.WarnContext(ctx, "ambiguous scorecard row skipped",
				"match_id", summary.MatchID, "name", line.PlayerName, "club", line.Club)
			continue
		}
		if created {
			outcome.created++
		}

		records = append(records, performance.Record{
			MatchID:  summary.MatchID,
			PlayerID: playerID,
			Batting: performance.BattingFacet{
				Runs:       line.Runs,
				BallsFaced: line.BallsFaced,
				Dismissed:  line.Dismissed,
			},
			Bowling: performance.BowlingFacet{
				BallsBowled:  line.BallsBowled,
				RunsConceded: line.RunsConceded,
				Wickets:      line.Wickets,
				Maidens:      line.Maidens,
			},
			Fielding: performance.FieldingFacet{
				Catches:   line.Catches,
				Stumpings: line.Stumpings,
				Runouts:   line.Runouts,
			},
		})
	}

	results, err := s.aggregator.UpsertMatchPerformances(ctx, summary.MatchID, records)
	if err != nil {
		return outcome, err
	}
	for _, result := range results {
		if result.Applied {
			outcome.applied++
			outcome.updated[result.PlayerID] = struct{}{}
		} else {
			outcome.skipped++
		}
	}
	return outcome, nil
}

// resolveLine maps one scorecard row to a player id, creating a new player
// for unmatched rows.
func (s *IngestionService) resolveLine(
	ctx context.Context,
	summary scorecard.MatchSummary,
	line scorecard.PlayerLine,
	candidatesByClub map[string][]identity.Candidate,
) (playerID string, created, ambiguous bool, err error) {
	candidates, ok := candidatesByClub[line.Club]
	if !ok {
		known, err := s.playerRepo.List(ctx, player.Filter{Club: line.Club})
		if err != nil {
			return "", false, false, fmt.Errorf("list club players %s: %w", line.Club, err)
		}
		candidates = make([]identity.Candidate, 0, len(known))
		for _, p := range known {
			candidates = append(candidates, identity.Candidate{
				PlayerID: p.ID,
				Name:     p.Name,
				Club:     p.Club,
				Legacy:   p.Legacy,
			})
		}
		candidatesByClub[line.Club] = candidates
	}

	result := s.matcher.Match(line.PlayerName, line.Club, candidates)
	switch result.Kind {
	case identity.KindMatched:
		return result.PlayerID, false, false, nil
	case identity.KindAmbiguous:
		return "", false, true, nil
	}

	newID, err := s.idGen.NewID()
	if err != nil {
		return "", false, false, fmt.Errorf("generate player id: %w", err)
	}
	now := s.now()
	p := player.Player{
		ID:                 newID,
		Name:               line.PlayerName,
		Club:               line.Club,
		RealTeam:           realTeamHint(summary, line.Club),
		Role:               inferRole(line),
		BaselineMultiplier: 1.0,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := p.Validate(); err != nil {
		return "", false, false, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if err := s.playerRepo.Upsert(ctx, p); err != nil {
		return "", false, false, fmt.Errorf("create player %s: %w", p.Name, err)
	}

	candidatesByClub[line.Club] = append(candidatesByClub[line.Club], identity.Candidate{
		PlayerID: p.ID,
		Name:     p.Name,
		Club:     p.Club,
	})
	s.logger.InfoContext(ctx, "new player from scrape",
		"player_id", p.ID, "name", p.Name, "club", p.Club)
	return p.ID, true, false, nil
}

// inferRole guesses a role from the row's workload. A scrape can only see
// what the player did in this match, so the guess is conservative.
func inferRole(line scorecard.PlayerLine) player.Role {
	batted := line.BallsFaced > 0
	bowled := line.BallsBowled > 0
	switch {
	case batted && bowled:
		return player.RoleAllRounder
	case bowled:
		return player.RoleBowler
	case line.Stumpings > 0:
		return player.RoleWicketKeeper
	default:
		return player.RoleBatsman
	}
}

// realTeamHint derives an rl_team tag for a brand-new player from the match
// grade when present.
func realTeamHint(summary scorecard.MatchSummary, club string) string {
	if summary.Grade != "" {
		return club + " " + summary.Grade
	}
	return club
}
