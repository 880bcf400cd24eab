package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/wicketworks/fantasy-cricket/internal/platform/logging"
	"github.com/wicketworks/fantasy-cricket/internal/usecase"
)

const (
	defaultIngestionSchedule = "0 1 * * 1"
	defaultJobTimeout        = 30 * time.Minute

	JobIngestion = "ingestion"
	JobDrift     = "drift"
)

// JobRun is the audit record of one scheduled execution.
type JobRun struct {
	Job        string
	StartedAt  time.Time
	FinishedAt time.Time
	Err        error
}

type Config struct {
	// IngestionSchedule is a standard five-field cron expression. The weekly
	// post-match window is the default.
	IngestionSchedule string
	// DriftSchedule is optional. Ingestion already drifts touched leagues, so
	// a standalone drift pass is only useful as a catch-up.
	DriftSchedule string
	JobTimeout    time.Duration
}

// Scheduler runs the ingestion pipeline and drift catch-ups on cron
// schedules.
type Scheduler struct {
	cron      *cron.Cron
	ingestion *usecase.IngestionService
	drifter   *usecase.DriftService
	logger    *logging.Logger

	ingestionSchedule string
	driftSchedule     string
	jobTimeout        time.Duration

	mu       sync.Mutex
	running  bool
	lastRuns map[string]JobRun
	now      func() time.Time
}

func New(ingestion *usecase.IngestionService, drifter *usecase.DriftService, logger *logging.Logger, cfg Config) *Scheduler {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.IngestionSchedule == "" {
		cfg.IngestionSchedule = defaultIngestionSchedule
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = defaultJobTimeout
	}

	return &Scheduler{
		cron:              cron.New(),
		ingestion:         ingestion,
		drifter:           drifter,
		logger:            logger,
		ingestionSchedule: cfg.IngestionSchedule,
		driftSchedule:     cfg.DriftSchedule,
		jobTimeout:        cfg.JobTimeout,
		lastRuns:          make(map[string]JobRun),
		now:               time.Now,
	}
}

func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler is already running")
	}

	if _, err := s.cron.AddFunc(s.ingestionSchedule, func() { s.runJob(JobIngestion, s.runIngestion) }); err != nil {
		return fmt.Errorf("schedule ingestion %q: %w", s.ingestionSchedule, err)
	}
	if s.driftSchedule != "" {
		if _, err := s.cron.AddFunc(s.driftSchedule, func() { s.runJob(JobDrift, s.runDrift) }); err != nil {
			return fmt.Errorf("schedule drift %q: %w", s.driftSchedule, err)
		}
	}

	s.cron.Start()
	s.running = true
	s.logger.Info("scheduler started",
		"ingestion_schedule", s.ingestionSchedule,
		"drift_schedule", s.driftSchedule,
	)
	return nil
}

// Stop halts scheduling and waits for any in-flight job to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

// TriggerIngestion runs the ingestion job immediately, outside the schedule.
// Concurrent triggers collapse onto the scheduled run.
func (s *Scheduler) TriggerIngestion(ctx context.Context) (usecase.IngestionReport, error) {
	started := s.now()
	report, err := s.ingestion.RunNow(ctx)
	s.record(JobRun{Job: JobIngestion, StartedAt: started, FinishedAt: s.now(), Err: err})
	return report, err
}

// LastRun reports the most recent execution of one job, if any.
func (s *Scheduler) LastRun(job string) (JobRun, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.lastRuns[job]
	return run, ok
}

func (s *Scheduler) runJob(job string, fn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.jobTimeout)
	defer cancel()

	started := s.now()
	s.logger.InfoContext(ctx, "scheduled job starting", "job", job)

	err := fn(ctx)
	run := JobRun{Job: job, StartedAt: started, FinishedAt: s.now(), Err: err}
	s.record(run)

	if err != nil {
		s.logger.ErrorContext(ctx, "scheduled job failed", "job", job, "error", err)
		return
	}
	s.logger.InfoContext(ctx, "scheduled job finished", "job", job, "duration", run.FinishedAt.Sub(run.StartedAt).String())
}

func (s *Scheduler) runIngestion(ctx context.Context) error {
	report, err := s.ingestion.RunNow(ctx)
	if err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "ingestion run summary",
		"matches_listed", report.MatchesListed,
		"matches_processed", report.MatchesProcessed,
		"matches_failed", report.MatchesFailed,
		"records_applied", report.RecordsApplied,
		"players_created", report.PlayersCreated,
		"leagues_drifted", report.Drift.Drifted,
	)
	return nil
}

func (s *Scheduler) runDrift(ctx context.Context) error {
	summary, err := s.drifter.DriftAll(ctx)
	if err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "drift run summary", "drifted", summary.Drifted, "skipped", summary.Skipped)
	return nil
}

func (s *Scheduler) record(run JobRun) {
	s.mu.Lock()
	s.lastRuns[run.Job] = run
	s.mu.Unlock()
}
