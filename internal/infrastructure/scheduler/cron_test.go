package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/wicketworks/fantasy-cricket/internal/domain/identity"
	"github.com/wicketworks/fantasy-cricket/internal/domain/scorecard"
	"github.com/wicketworks/fantasy-cricket/internal/infrastructure/repository/memory"
	"github.com/wicketworks/fantasy-cricket/internal/platform/id"
	"github.com/wicketworks/fantasy-cricket/internal/platform/logging"
	"github.com/wicketworks/fantasy-cricket/internal/platform/resilience"
	"github.com/wicketworks/fantasy-cricket/internal/usecase"
)

type noopSource struct{}

func (noopSource) ListRecentMatches(context.Context, string, time.Time) ([]scorecard.MatchSummary, error) {
	return nil, nil
}

func (noopSource) FetchScorecard(context.Context, string) (scorecard.Scorecard, error) {
	return scorecard.Scorecard{}, nil
}

// newIdleScheduler wires a pipeline over empty repositories and no configured
// clubs, so a triggered run finishes immediately.
func newIdleScheduler(t *testing.T, cfg Config) *Scheduler {
	t.Helper()

	playerRepo := memory.NewPlayerRepository(nil)
	perfRepo := memory.NewPerformanceRepository()
	leagueRepo := memory.NewLeagueRepository(nil)

	locks := &resilience.KeyedMutex{}
	aggregator := usecase.NewAggregatorService(playerRepo, perfRepo, locks, "2026.1")
	drifter := usecase.NewDriftService(leagueRepo, playerRepo, perfRepo, locks, logging.NewNop(), 0.15)
	ingestion := usecase.NewIngestionService(
		noopSource{},
		aggregator,
		drifter,
		leagueRepo,
		playerRepo,
		identity.NewMatcher(identity.DefaultThreshold),
		id.NewRandomGenerator(),
		locks,
		logging.NewNop(),
		nil,
		time.Hour,
	)

	return New(ingestion, drifter, logging.NewNop(), cfg)
}

func TestStart_RejectsBadSchedule(t *testing.T) {
	s := newIdleScheduler(t, Config{IngestionSchedule: "not a schedule"})
	if err := s.Start(); err == nil {
		t.Fatal("expected invalid cron expression to fail")
	}
}

func TestStart_RejectsDoubleStart(t *testing.T) {
	s := newIdleScheduler(t, Config{})
	if err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer s.Stop()

	if err := s.Start(); err == nil {
		t.Fatal("expected second start to fail")
	}
}

func TestTriggerIngestion_RecordsAudit(t *testing.T) {
	s := newIdleScheduler(t, Config{})

	report, err := s.TriggerIngestion(t.Context())
	if err != nil {
		t.Fatalf("trigger: %v", err)
	}
	if report.MatchesListed != 0 {
		t.Fatalf("expected idle run, got %+v", report)
	}

	run, ok := s.LastRun(JobIngestion)
	if !ok {
		t.Fatal("expected an audit record")
	}
	if run.Err != nil || run.FinishedAt.Before(run.StartedAt) {
		t.Fatalf("unexpected audit record: %+v", run)
	}
}

func TestLastRun_UnknownJob(t *testing.T) {
	s := newIdleScheduler(t, Config{})
	if _, ok := s.LastRun(JobDrift); ok {
		t.Fatal("expected no record before any run")
	}
}
