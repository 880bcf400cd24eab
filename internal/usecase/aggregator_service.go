package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wicketworks/fantasy-cricket/internal/domain/performance"
	"github.com/wicketworks/fantasy-cricket/internal/domain/player"
	"github.com/wicketworks/fantasy-cricket/internal/domain/scoring"
	"github.com/wicketworks/fantasy-cricket/internal/platform/resilience"
)

// AggregatorService owns per-player season state. It is the only write path
// to totals and processed match sets; the keyed lock serializes upserts per
// player so parallel match workers cannot interleave the read-modify-write.
type AggregatorService struct {
	playerRepo     player.Repository
	perfRepo       performance.Repository
	locks          *resilience.KeyedMutex
	rulesetVersion string
	now            func() time.Time
}

// UpsertResult reports what one performance upsert did. Applied == false is
// the silent no-op for an already counted match, not an error. Promoted marks
// the apply that flipped a legacy player live.
type UpsertResult struct {
	MatchID    string
	PlayerID   string
	Applied    bool
	Promoted   bool
	BasePoints float64
}

func NewAggregatorService(
	playerRepo player.Repository,
	perfRepo performance.Repository,
	locks *resilience.KeyedMutex,
	rulesetVersion string,
) *AggregatorService {
	if locks == nil {
		locks = &resilience.KeyedMutex{}
	}
	return &AggregatorService{
		playerRepo:     playerRepo,
		perfRepo:       perfRepo,
		locks:          locks,
		rulesetVersion: rulesetVersion,
		now:            time.Now,
	}
}

// UpsertPerformance scores and stores one record and folds it into the
// player's season totals. Applying the same record twice is indistinguishable
// from applying it once.
func (s *AggregatorService) UpsertPerformance(ctx context.Context, rec performance.Record) (UpsertResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.AggregatorService.UpsertPerformance")
	defer span.End()

	if err := rec.Validate(); err != nil {
		return UpsertResult{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	unlock, err := s.locks.Lock(ctx, rec.PlayerID)
	if err != nil {
		return UpsertResult{}, fmt.Errorf("acquire player lock: %w", err)
	}
	defer unlock()

	p, found, err := s.playerRepo.GetByID(ctx, rec.PlayerID)
	if err != nil {
		return UpsertResult{}, fmt.Errorf("load player %s: %w", rec.PlayerID, err)
	}
	if !found {
		return UpsertResult{}, fmt.Errorf("%w: %s", ErrUnknownPlayer, rec.PlayerID)
	}
	if p.HasProcessedMatch(rec.MatchID) {
		return UpsertResult{MatchID: rec.MatchID, PlayerID: rec.PlayerID, Applied: false}, nil
	}

	ruleset, err := scoring.ByVersion(s.rulesetVersion)
	if err != nil {
		return UpsertResult{}, err
	}
	breakdown, err := ruleset.Score(rec)
	if err != nil {
		return UpsertResult{}, err
	}

	rec.BasePoints = breakdown.Total
	rec.CatchPoints = breakdown.CatchPoints
	rec.ScoredAt = s.now()
	if err := s.perfRepo.Insert(ctx, rec); err != nil {
		// A stored record missing from the processed set means an earlier run
		// died between the record write and the totals write. Folding the
		// totals now completes that half-applied upsert.
		if !errors.Is(err, performance.ErrDuplicate) {
			return UpsertResult{}, fmt.Errorf("store performance %s/%s: %w", rec.MatchID, rec.PlayerID, err)
		}
	}

	promoted := p.Legacy
	p.Totals = p.Totals.Add(totalsDelta(rec, breakdown.Total))
	p.ProcessedMatchIDs = append(p.ProcessedMatchIDs, rec.MatchID)
	// First live performance promotes a legacy import to an active player.
	p.Legacy = false
	p.UpdatedAt = s.now()

	if err := s.playerRepo.Upsert(ctx, p); err != nil {
		return UpsertResult{}, fmt.Errorf("store player %s: %w", p.ID, err)
	}

	return UpsertResult{
		MatchID:    rec.MatchID,
		PlayerID:   rec.PlayerID,
		Applied:    true,
		Promoted:   promoted,
		BasePoints: breakdown.Total,
	}, nil
}

// totalsDelta is the season counter contribution of one scored record. Apply
// adds it, rollback subtracts the identical value.
func totalsDelta(rec performance.Record, basePoints float64) player.Totals {
	dismissals := 0
	if rec.Batting.Dismissed {
		dismissals = 1
	}
	return player.Totals{
		Matches:       1,
		Runs:          rec.Batting.Runs,
		BallsFaced:    rec.Batting.BallsFaced,
		Dismissals:    dismissals,
		BallsBowled:   rec.Bowling.BallsBowled,
		RunsConceded:  rec.Bowling.RunsConceded,
		Wickets:       rec.Bowling.Wickets,
		Maidens:       rec.Bowling.Maidens,
		Catches:       rec.Fielding.Catches,
		Stumpings:     rec.Fielding.Stumpings,
		Runouts:       rec.Fielding.Runouts,
		FantasyPoints: basePoints,
	}
}

// UpsertMatchPerformances applies one scorecard's records as a unit: every
// record is validated and scored before any write happens, so a broken row
// rejects the whole match.
func (s *AggregatorService) UpsertMatchPerformances(ctx context.Context, matchID string, recs []performance.Record) ([]UpsertResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.AggregatorService.UpsertMatchPerformances")
	defer span.End()

	ruleset, err := scoring.ByVersion(s.rulesetVersion)
	if err != nil {
		return nil, err
	}
	for _, rec := range recs {
		if rec.MatchID != matchID {
			return nil, fmt.Errorf("%w: record for match %s inside batch %s", ErrInvalidInput, rec.MatchID, matchID)
		}
		if err := rec.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		if _, err := ruleset.Score(rec); err != nil {
			return nil, err
		}
	}

	out := make([]UpsertResult, 0, len(recs))
	for _, rec := range recs {
		if err := ctx.Err(); err != nil {
			// Cancellation midway must not leave a partially counted match:
			// the already applied rows are reverted so a retry replays the
			// whole scorecard from scratch.
			if rbErr := s.rollbackApplied(context.WithoutCancel(ctx), out); rbErr != nil {
				return nil, fmt.Errorf("%w: rollback after cancellation: %v", ErrIngestionCancelled, rbErr)
			}
			return nil, fmt.Errorf("%w: %v", ErrIngestionCancelled, err)
		}
		result, err := s.UpsertPerformance(ctx, rec)
		if err != nil {
			return out, err
		}
		out = append(out, result)
	}
	return out, nil
}

// rollbackApplied undoes the applied results of one interrupted batch, newest
// first. Runs on a detached context so the cancellation that triggered it
// cannot abort the cleanup.
func (s *AggregatorService) rollbackApplied(ctx context.Context, results []UpsertResult) error {
	for i := len(results) - 1; i >= 0; i-- {
		result := results[i]
		if !result.Applied {
			continue
		}
		if err := s.revertPerformance(ctx, result); err != nil {
			return err
		}
	}
	return nil
}

func (s *AggregatorService) revertPerformance(ctx context.Context, result UpsertResult) error {
	unlock, err := s.locks.Lock(ctx, result.PlayerID)
	if err != nil {
		return fmt.Errorf("acquire player lock: %w", err)
	}
	defer unlock()

	rec, found, err := s.perfRepo.Get(ctx, result.MatchID, result.PlayerID)
	if err != nil {
		return fmt.Errorf("load performance %s/%s: %w", result.MatchID, result.PlayerID, err)
	}
	if !found {
		return nil
	}

	p, found, err := s.playerRepo.GetByID(ctx, result.PlayerID)
	if err != nil {
		return fmt.Errorf("load player %s: %w", result.PlayerID, err)
	}
	if !found {
		return fmt.Errorf("%w: %s", ErrUnknownPlayer, result.PlayerID)
	}

	p.Totals = p.Totals.Sub(totalsDelta(rec, rec.BasePoints))
	p.ProcessedMatchIDs = withoutMatchID(p.ProcessedMatchIDs, result.MatchID)
	if result.Promoted {
		p.Legacy = true
	}
	p.UpdatedAt = s.now()

	if err := s.playerRepo.Upsert(ctx, p); err != nil {
		return fmt.Errorf("store player %s: %w", p.ID, err)
	}
	if err := s.perfRepo.Delete(ctx, result.MatchID, result.PlayerID); err != nil {
		return fmt.Errorf("delete performance %s/%s: %w", result.MatchID, result.PlayerID, err)
	}
	return nil
}

func withoutMatchID(ids []string, matchID string) []string {
	out := ids[:0]
	for _, id := range ids {
		if id != matchID {
			out = append(out, id)
		}
	}
	return out
}

// PlayerTotals returns the stored primitive counters for one player.
func (s *AggregatorService) PlayerTotals(ctx context.Context, playerID string) (player.Totals, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.AggregatorService.PlayerTotals")
	defer span.End()

	p, found, err := s.playerRepo.GetByID(ctx, playerID)
	if err != nil {
		return player.Totals{}, fmt.Errorf("load player %s: %w", playerID, err)
	}
	if !found {
		return player.Totals{}, fmt.Errorf("%w: %s", ErrUnknownPlayer, playerID)
	}
	return p.Totals, nil
}

// ListPlayers lists players matching the filter.
func (s *AggregatorService) ListPlayers(ctx context.Context, filter player.Filter) ([]player.Player, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.AggregatorService.ListPlayers")
	defer span.End()

	players, err := s.playerRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}
	return players, nil
}

// SeasonStats is a player's primitive counters plus the derived rates.
type SeasonStats struct {
	PlayerID       string
	Name           string
	Totals         player.Totals
	BattingAverage float64
	StrikeRate     float64
	EconomyRate    float64
	PointsPerMatch float64
}

// PlayerSeason returns the season view for one player. Rates are derived
// from the counters on every call.
func (s *AggregatorService) PlayerSeason(ctx context.Context, playerID string) (SeasonStats, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.AggregatorService.PlayerSeason")
	defer span.End()

	p, found, err := s.playerRepo.GetByID(ctx, playerID)
	if err != nil {
		return SeasonStats{}, fmt.Errorf("load player %s: %w", playerID, err)
	}
	if !found {
		return SeasonStats{}, fmt.Errorf("%w: %s", ErrUnknownPlayer, playerID)
	}

	return SeasonStats{
		PlayerID:       p.ID,
		Name:           p.Name,
		Totals:         p.Totals,
		BattingAverage: p.Totals.BattingAverage(),
		StrikeRate:     p.Totals.StrikeRate(),
		EconomyRate:    p.Totals.EconomyRate(),
		PointsPerMatch: p.Totals.PointsPerMatch(),
	}, nil
}

// PlayerHistory lists the stored performance records for one player.
func (s *AggregatorService) PlayerHistory(ctx context.Context, playerID string) ([]performance.Record, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.AggregatorService.PlayerHistory")
	defer span.End()

	records, err := s.perfRepo.ListByPlayer(ctx, playerID)
	if err != nil {
		return nil, fmt.Errorf("list performances for %s: %w", playerID, err)
	}
	return records, nil
}
