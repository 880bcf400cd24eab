package app

import (
	"context"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	"github.com/uptrace/opentelemetry-go-extra/otelsqlx"

	"github.com/wicketworks/fantasy-cricket/external/playcricket"
	"github.com/wicketworks/fantasy-cricket/internal/config"
	"github.com/wicketworks/fantasy-cricket/internal/domain/fantasyteam"
	"github.com/wicketworks/fantasy-cricket/internal/domain/identity"
	leaguedomain "github.com/wicketworks/fantasy-cricket/internal/domain/league"
	playerdomain "github.com/wicketworks/fantasy-cricket/internal/domain/player"
	cacherepo "github.com/wicketworks/fantasy-cricket/internal/infrastructure/repository/cache"
	postgresrepo "github.com/wicketworks/fantasy-cricket/internal/infrastructure/repository/postgres"
	"github.com/wicketworks/fantasy-cricket/internal/infrastructure/scheduler"
	basecache "github.com/wicketworks/fantasy-cricket/internal/platform/cache"
	idgen "github.com/wicketworks/fantasy-cricket/internal/platform/id"
	"github.com/wicketworks/fantasy-cricket/internal/platform/logging"
	"github.com/wicketworks/fantasy-cricket/internal/platform/resilience"
	"github.com/wicketworks/fantasy-cricket/internal/usecase"
)

// App wires repositories, use cases and the cron scheduler into one process.
type App struct {
	Leagues   *usecase.LeagueService
	Teams     *usecase.TeamService
	Scores    *usecase.TeamScoringService
	Drifter   *usecase.DriftService
	Ingestion *usecase.IngestionService
	Scheduler *scheduler.Scheduler

	logger  *logging.Logger
	closeDB func() error
}

func New(ctx context.Context, cfg config.Config, logger *logging.Logger) (*App, error) {
	if logger == nil {
		logger = logging.Default()
	}

	db, err := otelsqlx.Open("postgres", normalizeDBURL(cfg.DBURL, cfg.DBDisablePreparedBinary),
		otelsql.WithDBSystem("postgresql"),
		otelsql.WithDBName(dbNameFromURL(cfg.DBURL)),
		otelsql.WithQueryFormatter(formatDBQueryForTrace),
	)
	if err != nil {
		return nil, fmt.Errorf("open postgres connection: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if err := postgresrepo.BootstrapSeed(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap seed: %w", err)
	}

	var leagueRepo leaguedomain.Repository = postgresrepo.NewLeagueRepository(db)
	var playerRepo playerdomain.Repository = postgresrepo.NewPlayerRepository(db)
	var teamRepo fantasyteam.Repository = postgresrepo.NewTeamRepository(db)
	perfRepo := postgresrepo.NewPerformanceRepository(db)

	if cfg.CacheEnabled {
		cacheStore := basecache.NewStore(cfg.CacheTTL)
		leagueRepo = cacherepo.NewLeagueRepository(leagueRepo, cacheStore)
		playerRepo = cacherepo.NewPlayerRepository(playerRepo, cacheStore)
		teamRepo = cacherepo.NewTeamRepository(teamRepo, cacheStore)
	}

	locks := &resilience.KeyedMutex{}
	ids := idgen.NewRandomGenerator()

	aggregator := usecase.NewAggregatorService(playerRepo, perfRepo, locks, cfg.ScoringRulesetVersion)
	drifter := usecase.NewDriftService(leagueRepo, playerRepo, perfRepo, locks, logger, cfg.DriftRate)
	leagueSvc := usecase.NewLeagueService(leagueRepo, teamRepo, playerRepo, ids, locks, logger)
	teamSvc := usecase.NewTeamService(leagueRepo, teamRepo, playerRepo, ids, locks, logger)
	scoreSvc := usecase.NewTeamScoringService(leagueRepo, teamRepo, playerRepo, perfRepo, cfg.ScoringRulesetVersion, basecache.NewStore(cfg.CacheTTL))

	app := &App{
		Leagues: leagueSvc,
		Teams:   teamSvc,
		Scores:  scoreSvc,
		Drifter: drifter,
		logger:  logger,
		closeDB: db.Close,
	}

	if !cfg.PlayCricketEnabled {
		logger.Info("ingestion disabled", "reason", "PLAYCRICKET_ENABLED=false")
		return app, nil
	}

	source := playcricket.NewClient(playcricket.ClientConfig{
		BaseURL:    cfg.PlayCricketBaseURL,
		Token:      cfg.PlayCricketToken,
		SiteIDs:    cfg.PlayCricketSiteIDByClub,
		Timeout:    cfg.PlayCricketTimeout,
		MaxRetries: cfg.PlayCricketMaxRetries,
		Logger:     logger,
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          cfg.PlayCricketCircuitEnabled,
			FailureThreshold: cfg.PlayCricketCircuitFailureCount,
			OpenTimeout:      cfg.PlayCricketCircuitOpenTimeout,
			HalfOpenMaxReq:   cfg.PlayCricketCircuitHalfOpenMaxReq,
		},
	})

	app.Ingestion = usecase.NewIngestionService(
		source,
		aggregator,
		drifter,
		leagueRepo,
		playerRepo,
		identity.NewMatcher(cfg.FuzzyMatchThreshold),
		ids,
		locks,
		logger,
		cfg.ConfiguredClubs,
		cfg.ScrapeWindow,
	)
	app.Scheduler = scheduler.New(app.Ingestion, drifter, logger, scheduler.Config{
		IngestionSchedule: cfg.ScrapeSchedule,
		DriftSchedule:     cfg.DriftSchedule,
		JobTimeout:        cfg.IngestionJobTimeout,
	})

	return app, nil
}

// Start begins scheduled ingestion. It is a no-op when scraping is disabled.
func (a *App) Start() error {
	if a.Scheduler == nil {
		return nil
	}
	return a.Scheduler.Start()
}

// Stop waits for in-flight jobs and releases the database.
func (a *App) Stop() error {
	if a.Scheduler != nil {
		a.Scheduler.Stop()
	}
	if a.closeDB != nil {
		return a.closeDB()
	}
	return nil
}
