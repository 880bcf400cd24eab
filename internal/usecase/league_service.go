package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/wicketworks/fantasy-cricket/internal/domain/fantasyteam"
	"github.com/wicketworks/fantasy-cricket/internal/domain/league"
	"github.com/wicketworks/fantasy-cricket/internal/domain/player"
	"github.com/wicketworks/fantasy-cricket/internal/domain/scoring"
	"github.com/wicketworks/fantasy-cricket/internal/platform/id"
	"github.com/wicketworks/fantasy-cricket/internal/platform/logging"
	"github.com/wicketworks/fantasy-cricket/internal/platform/resilience"
)

// LeagueService drives the league state machine:
// draft -> active -> locked -> completed. All writes to one league take that
// league's writer lock so transitions, snapshot swaps and finalizations are
// totally ordered.
type LeagueService struct {
	leagueRepo league.Repository
	teamRepo   fantasyteam.Repository
	playerRepo player.Repository
	idGen      id.Generator
	validate   *validator.Validate
	logger     *logging.Logger
	locks      *resilience.KeyedMutex
	now        func() time.Time
}

func NewLeagueService(
	leagueRepo league.Repository,
	teamRepo fantasyteam.Repository,
	playerRepo player.Repository,
	idGen id.Generator,
	locks *resilience.KeyedMutex,
	logger *logging.Logger,
) *LeagueService {
	if logger == nil {
		logger = logging.Default()
	}
	return &LeagueService{
		leagueRepo: leagueRepo,
		teamRepo:   teamRepo,
		playerRepo: playerRepo,
		idGen:      idGen,
		validate:   validator.New(),
		logger:     logger,
		locks:      locks,
		now:        time.Now,
	}
}

// CreateDraftLeague registers a new league in draft with mutable rules.
func (s *LeagueService) CreateDraftLeague(ctx context.Context, name string, rules league.Rules) (league.League, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.LeagueService.CreateDraftLeague")
	defer span.End()

	name = strings.TrimSpace(name)
	if name == "" {
		return league.League{}, fmt.Errorf("%w: league name is required", ErrInvalidInput)
	}
	if err := s.checkRules(ctx, rules); err != nil {
		return league.League{}, err
	}

	leagueID, err := s.idGen.NewID()
	if err != nil {
		return league.League{}, fmt.Errorf("generate league id: %w", err)
	}
	code, err := s.newJoinCode()
	if err != nil {
		return league.League{}, err
	}

	now := s.now()
	l := league.League{
		ID:        leagueID,
		Name:      name,
		Code:      code,
		Status:    league.StatusDraft,
		Rules:     rules,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.leagueRepo.Save(ctx, l); err != nil {
		return league.League{}, fmt.Errorf("save league: %w", err)
	}

	s.logger.InfoContext(ctx, "draft league created", "league_id", l.ID, "name", l.Name)
	return l, nil
}

// EditDraftRules replaces the mutable rule set. Draft only.
func (s *LeagueService) EditDraftRules(ctx context.Context, leagueID string, rules league.Rules) (league.League, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.LeagueService.EditDraftRules")
	defer span.End()

	if err := s.checkRules(ctx, rules); err != nil {
		return league.League{}, err
	}

	return s.withLeagueLock(ctx, leagueID, func(l league.League) (league.League, error) {
		if l.Status != league.StatusDraft {
			return l, fmt.Errorf("%w: cannot edit rules in status %s", ErrIllegalTransition, l.Status)
		}
		l.Rules = rules
		return l, nil
	})
}

// EditDraftRoster replaces the eligibility roster. Draft only; every entry
// must reference a registered player.
func (s *LeagueService) EditDraftRoster(ctx context.Context, leagueID string, entries []league.RosterEntry) (league.League, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.LeagueService.EditDraftRoster")
	defer span.End()

	seen := make(map[string]struct{}, len(entries))
	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		if strings.TrimSpace(entry.PlayerID) == "" {
			return league.League{}, fmt.Errorf("%w: roster entry without player id", ErrInvalidInput)
		}
		if _, dup := seen[entry.PlayerID]; dup {
			return league.League{}, fmt.Errorf("%w: duplicate roster entry %s", ErrInvalidInput, entry.PlayerID)
		}
		seen[entry.PlayerID] = struct{}{}
		ids = append(ids, entry.PlayerID)
	}

	players, err := s.playerRepo.GetByIDs(ctx, ids)
	if err != nil {
		return league.League{}, fmt.Errorf("load roster players: %w", err)
	}
	for _, playerID := range ids {
		if _, ok := players[playerID]; !ok {
			return league.League{}, fmt.Errorf("%w: %s", ErrUnknownPlayer, playerID)
		}
	}

	return s.withLeagueLock(ctx, leagueID, func(l league.League) (league.League, error) {
		if l.Status != league.StatusDraft {
			return l, fmt.Errorf("%w: cannot edit roster in status %s", ErrIllegalTransition, l.Status)
		}
		l.Roster = entries
		return l, nil
	})
}

// LegacyPlayerInput seeds one prior-season roster entry.
type LegacyPlayerInput struct {
	Name     string `validate:"required"`
	Club     string `validate:"required"`
	RealTeam string `validate:"required"`
	Role     string `validate:"required,oneof=BAT BOWL AR WK"`
}

// ImportLegacyRoster creates legacy players with zero totals and appends them
// to a draft league's roster. Legacy entries flip to active on their first
// matched performance.
func (s *LeagueService) ImportLegacyRoster(ctx context.Context, leagueID string, inputs []LegacyPlayerInput) (league.League, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.LeagueService.ImportLegacyRoster")
	defer span.End()

	if len(inputs) == 0 {
		return league.League{}, fmt.Errorf("%w: empty legacy import", ErrInvalidInput)
	}
	for _, input := range inputs {
		if err := s.validate.StructCtx(ctx, input); err != nil {
			return league.League{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
	}

	created := make([]league.RosterEntry, 0, len(inputs))
	for _, input := range inputs {
		playerID, err := s.idGen.NewID()
		if err != nil {
			return league.League{}, fmt.Errorf("generate player id: %w", err)
		}
		now := s.now()
		p := player.Player{
			ID:                 playerID,
			Name:               strings.TrimSpace(input.Name),
			Club:               strings.TrimSpace(input.Club),
			RealTeam:           strings.TrimSpace(input.RealTeam),
			Role:               player.Role(input.Role),
			BaselineMultiplier: 1.0,
			Legacy:             true,
			CreatedAt:          now,
			UpdatedAt:          now,
		}
		if err := p.Validate(); err != nil {
			return league.League{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		if err := s.playerRepo.Upsert(ctx, p); err != nil {
			return league.League{}, fmt.Errorf("save legacy player %s: %w", p.Name, err)
		}
		created = append(created, league.RosterEntry{PlayerID: playerID, Legacy: true})
	}

	return s.withLeagueLock(ctx, leagueID, func(l league.League) (league.League, error) {
		if l.Status != league.StatusDraft {
			return l, fmt.Errorf("%w: cannot import roster in status %s", ErrIllegalTransition, l.Status)
		}
		l.Roster = append(l.Roster, created...)
		return l, nil
	})
}

// ConfirmLeague moves draft -> active. Atomically freezes the rules and
// captures the multiplier snapshot from the roster's baselines.
func (s *LeagueService) ConfirmLeague(ctx context.Context, leagueID string) (league.League, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.LeagueService.ConfirmLeague")
	defer span.End()

	return s.withLeagueLock(ctx, leagueID, func(l league.League) (league.League, error) {
		if l.Status != league.StatusDraft {
			return l, fmt.Errorf("%w: confirm from %s", ErrIllegalTransition, l.Status)
		}

		rules := l.Rules
		if len(l.Roster) < rules.SquadSize {
			return l, fmt.Errorf("%w: roster of %d cannot fill a squad of %d", ErrInvalidInput, len(l.Roster), rules.SquadSize)
		}

		players, err := s.playerRepo.GetByIDs(ctx, l.RosterPlayerIDs())
		if err != nil {
			return l, fmt.Errorf("load roster players: %w", err)
		}
		if rules.RequireFromEachRealTeam {
			if err := checkRosterCoverage(rules, l.Roster, players); err != nil {
				return l, err
			}
		}

		snapshot := make(map[string]float64, len(l.Roster))
		for _, entry := range l.Roster {
			p, ok := players[entry.PlayerID]
			if !ok {
				return l, fmt.Errorf("%w: %s", ErrUnknownPlayer, entry.PlayerID)
			}
			snapshot[entry.PlayerID] = p.BaselineMultiplier
		}

		frozen := rules
		l.FrozenRules = &frozen
		l.MultipliersSnapshot = snapshot
		l.MultipliersFrozenAt = s.now()
		l.Status = league.StatusActive

		s.logger.InfoContext(ctx, "league confirmed",
			"league_id", l.ID, "roster_size", len(l.Roster), "snapshot_size", len(snapshot))
		return l, nil
	})
}

// LockLeague moves active -> locked. Every joined team must be finalized.
func (s *LeagueService) LockLeague(ctx context.Context, leagueID string) (league.League, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.LeagueService.LockLeague")
	defer span.End()

	return s.withLeagueLock(ctx, leagueID, func(l league.League) (league.League, error) {
		if l.Status != league.StatusActive {
			return l, fmt.Errorf("%w: lock from %s", ErrIllegalTransition, l.Status)
		}

		teams, err := s.teamRepo.ListByLeague(ctx, l.ID)
		if err != nil {
			return l, fmt.Errorf("list teams: %w", err)
		}
		if len(teams) == 0 {
			return l, fmt.Errorf("%w: no teams joined", ErrTeamsNotFinalized)
		}

		var offenders []string
		for _, t := range teams {
			if !t.Finalized() {
				offenders = append(offenders, t.Name)
			}
		}
		if len(offenders) > 0 {
			sort.Strings(offenders)
			return l, fmt.Errorf("%w: %s", ErrTeamsNotFinalized, strings.Join(offenders, ", "))
		}

		l.Status = league.StatusLocked
		s.logger.InfoContext(ctx, "league locked", "league_id", l.ID, "teams", len(teams))
		return l, nil
	})
}

// CompleteLeague moves locked -> completed and removes the league from the
// drifter's candidate set.
func (s *LeagueService) CompleteLeague(ctx context.Context, leagueID string) (league.League, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.LeagueService.CompleteLeague")
	defer span.End()

	return s.withLeagueLock(ctx, leagueID, func(l league.League) (league.League, error) {
		if l.Status != league.StatusLocked {
			return l, fmt.Errorf("%w: complete from %s", ErrIllegalTransition, l.Status)
		}
		l.Status = league.StatusCompleted
		s.logger.InfoContext(ctx, "league completed", "league_id", l.ID)
		return l, nil
	})
}

// DeleteDraftLeague removes a league that never left draft.
func (s *LeagueService) DeleteDraftLeague(ctx context.Context, leagueID string) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.LeagueService.DeleteDraftLeague")
	defer span.End()

	unlock, err := s.locks.Lock(ctx, leagueID)
	if err != nil {
		return fmt.Errorf("acquire league lock: %w", err)
	}
	defer unlock()

	l, found, err := s.leagueRepo.GetByID(ctx, leagueID)
	if err != nil {
		return fmt.Errorf("load league %s: %w", leagueID, err)
	}
	if !found {
		return fmt.Errorf("%w: league %s", ErrNotFound, leagueID)
	}
	if l.Status != league.StatusDraft {
		return fmt.Errorf("%w: delete from %s", ErrIllegalTransition, l.Status)
	}
	return s.leagueRepo.Delete(ctx, leagueID)
}

// GetLeague returns one league.
func (s *LeagueService) GetLeague(ctx context.Context, leagueID string) (league.League, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.LeagueService.GetLeague")
	defer span.End()

	l, found, err := s.leagueRepo.GetByID(ctx, leagueID)
	if err != nil {
		return league.League{}, fmt.Errorf("load league %s: %w", leagueID, err)
	}
	if !found {
		return league.League{}, fmt.Errorf("%w: league %s", ErrNotFound, leagueID)
	}
	return l, nil
}

// ListLeagues returns every league.
func (s *LeagueService) ListLeagues(ctx context.Context) ([]league.League, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.LeagueService.ListLeagues")
	defer span.End()
	return s.leagueRepo.List(ctx)
}

func (s *LeagueService) checkRules(ctx context.Context, rules league.Rules) error {
	if err := s.validate.StructCtx(ctx, rules); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if err := rules.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if _, err := scoring.ByVersion(rules.RulesetVersion); err != nil {
		return err
	}
	return nil
}

// withLeagueLock loads, mutates and saves one league under its writer lock.
func (s *LeagueService) withLeagueLock(ctx context.Context, leagueID string, mutate func(league.League) (league.League, error)) (league.League, error) {
	unlock, err := s.locks.Lock(ctx, leagueID)
	if err != nil {
		return league.League{}, fmt.Errorf("acquire league lock: %w", err)
	}
	defer unlock()

	l, found, err := s.leagueRepo.GetByID(ctx, leagueID)
	if err != nil {
		return league.League{}, fmt.Errorf("load league %s: %w", leagueID, err)
	}
	if !found {
		return league.League{}, fmt.Errorf("%w: league %s", ErrNotFound, leagueID)
	}

	next, err := mutate(l)
	if err != nil {
		return league.League{}, err
	}
	next.UpdatedAt = s.now()
	if err := s.leagueRepo.Save(ctx, next); err != nil {
		return league.League{}, fmt.Errorf("save league %s: %w", leagueID, err)
	}
	return next, nil
}

// checkRosterCoverage verifies a coverage-requiring rule set is satisfiable:
// every real team in the roster carries the per-team minimum and the squad
// size can still cover all of them.
func checkRosterCoverage(rules league.Rules, roster []league.RosterEntry, players map[string]player.Player) error {
	minimum := rules.MinPlayersPerRealTeam
	if minimum <= 0 {
		minimum = 1
	}

	counts := make(map[string]int)
	for _, entry := range roster {
		if p, ok := players[entry.PlayerID]; ok && p.RealTeam != "" {
			counts[p.RealTeam]++
		}
	}
	if len(counts) == 0 {
		return fmt.Errorf("%w: roster carries no real team tags", ErrInvalidInput)
	}

	var short []string
	for realTeam, count := range counts {
		if count < minimum {
			short = append(short, realTeam)
		}
	}
	if len(short) > 0 {
		sort.Strings(short)
		return fmt.Errorf("%w: real teams below roster minimum: %s", ErrInvalidInput, strings.Join(short, ", "))
	}
	if len(counts)*minimum > rules.SquadSize {
		return fmt.Errorf("%w: squad size %d cannot cover %d real teams at %d each",
			ErrInvalidInput, rules.SquadSize, len(counts), minimum)
	}
	return nil
}

func (s *LeagueService) newJoinCode() (string, error) {
	raw, err := s.idGen.NewID()
	if err != nil {
		return "", fmt.Errorf("generate join code: %w", err)
	}
	code := strings.ToUpper(raw)
	if len(code) > 8 {
		code = code[:8]
	}
	return code, nil
}
