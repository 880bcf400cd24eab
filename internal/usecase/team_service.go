package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/wicketworks/fantasy-cricket/internal/domain/fantasyteam"
	"github.com/wicketworks/fantasy-cricket/internal/domain/league"
	"github.com/wicketworks/fantasy-cricket/internal/domain/player"
	"github.com/wicketworks/fantasy-cricket/internal/platform/id"
	"github.com/wicketworks/fantasy-cricket/internal/platform/logging"
	"github.com/wicketworks/fantasy-cricket/internal/platform/resilience"
)

// TeamService handles user-side squad building. Every mutation is validated
// against the league's effective rules; composition writes are single-row,
// finalization takes the league writer lock.
type TeamService struct {
	leagueRepo league.Repository
	teamRepo   fantasyteam.Repository
	playerRepo player.Repository
	idGen      id.Generator
	locks      *resilience.KeyedMutex
	logger     *logging.Logger
	now        func() time.Time
}

// Designations flags the roles a newly added player should hold.
type Designations struct {
	Captain      bool
	ViceCaptain  bool
	WicketKeeper bool
}

func NewTeamService(
	leagueRepo league.Repository,
	teamRepo fantasyteam.Repository,
	playerRepo player.Repository,
	idGen id.Generator,
	locks *resilience.KeyedMutex,
	logger *logging.Logger,
) *TeamService {
	if logger == nil {
		logger = logging.Default()
	}
	return &TeamService{
		leagueRepo: leagueRepo,
		teamRepo:   teamRepo,
		playerRepo: playerRepo,
		idGen:      idGen,
		locks:      locks,
		logger:     logger,
		now:        time.Now,
	}
}

// JoinLeague creates an empty team for the user in the league behind the join
// code. Joining is open only while the league is active.
func (s *TeamService) JoinLeague(ctx context.Context, code, userID, teamName string) (fantasyteam.Team, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.TeamService.JoinLeague")
	defer span.End()

	code = strings.ToUpper(strings.TrimSpace(code))
	userID = strings.TrimSpace(userID)
	teamName = strings.TrimSpace(teamName)
	if code == "" || userID == "" || teamName == "" {
		return fantasyteam.Team{}, fmt.Errorf("%w: join code, user id and team name are required", ErrInvalidInput)
	}

	l, found, err := s.leagueRepo.GetByCode(ctx, code)
	if err != nil {
		return fantasyteam.Team{}, fmt.Errorf("load league by code: %w", err)
	}
	if !found {
		return fantasyteam.Team{}, fmt.Errorf("%w: join code %s", ErrNotFound, code)
	}
	if l.Status != league.StatusActive {
		return fantasyteam.Team{}, fmt.Errorf("%w: league %s is %s", ErrLeagueNotJoinable, l.ID, l.Status)
	}

	if _, exists, err := s.teamRepo.GetByLeagueAndUser(ctx, l.ID, userID); err != nil {
		return fantasyteam.Team{}, fmt.Errorf("check existing team: %w", err)
	} else if exists {
		return fantasyteam.Team{}, fmt.Errorf("%w: user already joined league %s", ErrInvalidInput, l.ID)
	}

	teamID, err := s.idGen.NewID()
	if err != nil {
		return fantasyteam.Team{}, fmt.Errorf("generate team id: %w", err)
	}
	now := s.now()
	t := fantasyteam.Team{
		ID:        teamID,
		LeagueID:  l.ID,
		UserID:    userID,
		Name:      teamName,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := t.Validate(); err != nil {
		return fantasyteam.Team{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if err := s.teamRepo.Save(ctx, t); err != nil {
		return fantasyteam.Team{}, fmt.Errorf("save team: %w", err)
	}

	s.logger.InfoContext(ctx, "team joined league", "team_id", t.ID, "league_id", l.ID)
	return t, nil
}

// AddPlayer puts a roster player into an unfinalized squad.
func (s *TeamService) AddPlayer(ctx context.Context, teamID, playerID string, roles Designations) (fantasyteam.Team, []fantasyteam.Violation, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.TeamService.AddPlayer")
	defer span.End()

	t, l, checker, err := s.loadTeamContext(ctx, teamID)
	if err != nil {
		return fantasyteam.Team{}, nil, err
	}
	if err := s.requireEditable(l, t); err != nil {
		return fantasyteam.Team{}, nil, err
	}
	if t.HasPlayer(playerID) {
		return fantasyteam.Team{}, nil, fmt.Errorf("%w: player %s already in squad", ErrInvalidInput, playerID)
	}
	if !l.HasRosterPlayer(playerID) {
		return fantasyteam.Team{}, nil, fmt.Errorf("%w: player %s is not on the league roster", ErrInvalidInput, playerID)
	}

	next := t.Clone()
	next.PlayerIDs = append(next.PlayerIDs, playerID)
	if roles.Captain {
		next.CaptainID = playerID
	}
	if roles.ViceCaptain {
		next.ViceCaptainID = playerID
	}
	if roles.WicketKeeper {
		next.WicketKeeperID = playerID
	}

	if violations := checker.ValidateMutation(next); len(violations) > 0 {
		return t, violations, fmt.Errorf("%w: add %s", ErrRulesViolated, playerID)
	}
	return s.saveTeam(ctx, next)
}

// RemovePlayer takes a player out of an unfinalized squad, clearing any
// designations they held.
func (s *TeamService) RemovePlayer(ctx context.Context, teamID, playerID string) (fantasyteam.Team, []fantasyteam.Violation, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.TeamService.RemovePlayer")
	defer span.End()

	t, l, checker, err := s.loadTeamContext(ctx, teamID)
	if err != nil {
		return fantasyteam.Team{}, nil, err
	}
	if err := s.requireEditable(l, t); err != nil {
		return fantasyteam.Team{}, nil, err
	}
	if !t.HasPlayer(playerID) {
		return fantasyteam.Team{}, nil, fmt.Errorf("%w: player %s not in squad", ErrInvalidInput, playerID)
	}

	next := t.Clone()
	kept := next.PlayerIDs[:0]
	for _, pid := range next.PlayerIDs {
		if pid != playerID {
			kept = append(kept, pid)
		}
	}
	next.PlayerIDs = kept
	if next.CaptainID == playerID {
		next.CaptainID = ""
	}
	if next.ViceCaptainID == playerID {
		next.ViceCaptainID = ""
	}
	if next.WicketKeeperID == playerID {
		next.WicketKeeperID = ""
	}

	if violations := checker.ValidateMutation(next); len(violations) > 0 {
		return t, violations, fmt.Errorf("%w: remove %s", ErrRulesViolated, playerID)
	}
	return s.saveTeam(ctx, next)
}

// PreviewTransfer preflights a transfer without mutating anything. Callers
// use it to render messages before attempting the swap.
func (s *TeamService) PreviewTransfer(ctx context.Context, teamID, outID, inID string) ([]fantasyteam.Violation, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.TeamService.PreviewTransfer")
	defer span.End()

	t, _, checker, err := s.loadTeamContext(ctx, teamID)
	if err != nil {
		return nil, err
	}
	return checker.ValidateTransfer(t, outID, inID), nil
}

// Transfer applies an atomic (remove, add) pair to a finalized team. The swap
// is validated as a single operation against the full rule set.
func (s *TeamService) Transfer(ctx context.Context, teamID, outID, inID string) (fantasyteam.Team, []fantasyteam.Violation, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.TeamService.Transfer")
	defer span.End()

	t, l, checker, err := s.loadTeamContext(ctx, teamID)
	if err != nil {
		return fantasyteam.Team{}, nil, err
	}
	if l.Status != league.StatusActive {
		return fantasyteam.Team{}, nil, fmt.Errorf("%w: league %s is %s", ErrTeamNotEditable, l.ID, l.Status)
	}
	if !l.HasRosterPlayer(inID) {
		return fantasyteam.Team{}, nil, fmt.Errorf("%w: player %s is not on the league roster", ErrInvalidInput, inID)
	}

	if violations := checker.ValidateTransfer(t, outID, inID); len(violations) > 0 {
		return t, violations, fmt.Errorf("%w: transfer %s -> %s", ErrRulesViolated, outID, inID)
	}

	next := t.WithSwap(outID, inID)
	next.TransfersUsed++
	return s.saveTeam(ctx, next)
}

// FinalizeTeam runs the full rule set and stamps finalized_at. Serialized
// with the league's state transitions via the league writer lock.
func (s *TeamService) FinalizeTeam(ctx context.Context, teamID string) (fantasyteam.Team, []fantasyteam.Violation, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.TeamService.FinalizeTeam")
	defer span.End()

	t, found, err := s.teamRepo.GetByID(ctx, teamID)
	if err != nil {
		return fantasyteam.Team{}, nil, fmt.Errorf("load team %s: %w", teamID, err)
	}
	if !found {
		return fantasyteam.Team{}, nil, fmt.Errorf("%w: team %s", ErrNotFound, teamID)
	}

	unlock, err := s.locks.Lock(ctx, t.LeagueID)
	if err != nil {
		return fantasyteam.Team{}, nil, fmt.Errorf("acquire league lock: %w", err)
	}
	defer unlock()

	t, l, checker, err := s.loadTeamContext(ctx, teamID)
	if err != nil {
		return fantasyteam.Team{}, nil, err
	}
	if l.Status != league.StatusActive {
		return fantasyteam.Team{}, nil, fmt.Errorf("%w: finalize while league is %s", ErrIllegalTransition, l.Status)
	}
	if t.Finalized() {
		return t, nil, nil
	}

	if violations := checker.ValidateFinalize(t); len(violations) > 0 {
		return t, violations, fmt.Errorf("%w: finalize %s", ErrRulesViolated, teamID)
	}

	next := t.Clone()
	finalizedAt := s.now()
	next.FinalizedAt = &finalizedAt
	team, violations, err := s.saveTeam(ctx, next)
	if err == nil {
		s.logger.InfoContext(ctx, "team finalized", "team_id", team.ID, "league_id", team.LeagueID)
	}
	return team, violations, err
}

// GetTeam returns one team.
func (s *TeamService) GetTeam(ctx context.Context, teamID string) (fantasyteam.Team, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.TeamService.GetTeam")
	defer span.End()

	t, found, err := s.teamRepo.GetByID(ctx, teamID)
	if err != nil {
		return fantasyteam.Team{}, fmt.Errorf("load team %s: %w", teamID, err)
	}
	if !found {
		return fantasyteam.Team{}, fmt.Errorf("%w: team %s", ErrNotFound, teamID)
	}
	return t, nil
}

func (s *TeamService) requireEditable(l league.League, t fantasyteam.Team) error {
	if l.Status != league.StatusActive {
		return fmt.Errorf("%w: league %s is %s", ErrTeamNotEditable, l.ID, l.Status)
	}
	if t.Finalized() {
		return fmt.Errorf("%w: team %s is finalized, use transfers", ErrTeamNotEditable, t.ID)
	}
	return nil
}

// loadTeamContext loads the team, its league and a rule checker built from
// the league's roster.
func (s *TeamService) loadTeamContext(ctx context.Context, teamID string) (fantasyteam.Team, league.League, fantasyteam.Checker, error) {
	var checker fantasyteam.Checker

	t, found, err := s.teamRepo.GetByID(ctx, teamID)
	if err != nil {
		return fantasyteam.Team{}, league.League{}, checker, fmt.Errorf("load team %s: %w", teamID, err)
	}
	if !found {
		return fantasyteam.Team{}, league.League{}, checker, fmt.Errorf("%w: team %s", ErrNotFound, teamID)
	}

	l, found, err := s.leagueRepo.GetByID(ctx, t.LeagueID)
	if err != nil {
		return fantasyteam.Team{}, league.League{}, checker, fmt.Errorf("load league %s: %w", t.LeagueID, err)
	}
	if !found {
		return fantasyteam.Team{}, league.League{}, checker, fmt.Errorf("%w: league %s", ErrNotFound, t.LeagueID)
	}

	players, err := s.playerRepo.GetByIDs(ctx, l.RosterPlayerIDs())
	if err != nil {
		return fantasyteam.Team{}, league.League{}, checker, fmt.Errorf("load roster players: %w", err)
	}

	realTeams := make(map[string]struct{})
	for _, p := range players {
		if p.RealTeam != "" {
			realTeams[p.RealTeam] = struct{}{}
		}
	}
	required := make([]string, 0, len(realTeams))
	for rt := range realTeams {
		required = append(required, rt)
	}

	checker = fantasyteam.Checker{
		Rules:             l.EffectiveRules(),
		Players:           players,
		RequiredRealTeams: required,
	}
	return t, l, checker, nil
}

func (s *TeamService) saveTeam(ctx context.Context, t fantasyteam.Team) (fantasyteam.Team, []fantasyteam.Violation, error) {
	t.UpdatedAt = s.now()
	if err := s.teamRepo.Save(ctx, t); err != nil {
		return fantasyteam.Team{}, nil, fmt.Errorf("save team %s: %w", t.ID, err)
	}
	return t, nil, nil
}
