package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/wicketworks/fantasy-cricket/internal/domain/identity"
	"github.com/wicketworks/fantasy-cricket/internal/domain/league"
	"github.com/wicketworks/fantasy-cricket/internal/domain/player"
	"github.com/wicketworks/fantasy-cricket/internal/domain/scorecard"
	"github.com/wicketworks/fantasy-cricket/internal/infrastructure/repository/memory"
	"github.com/wicketworks/fantasy-cricket/internal/platform/logging"
	"github.com/wicketworks/fantasy-cricket/internal/platform/resilience"
)

type fakeMatchSource struct {
	matches    []scorecard.MatchSummary
	scorecards map[string]scorecard.Scorecard
	listErr    error
	fetchErr   map[string]error
}

func (f *fakeMatchSource) ListRecentMatches(_ context.Context, club string, _ time.Time) ([]scorecard.MatchSummary, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]scorecard.MatchSummary, 0)
	for _, m := range f.matches {
		if m.HomeClub == club || m.AwayClub == club {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeMatchSource) FetchScorecard(_ context.Context, matchID string) (scorecard.Scorecard, error) {
	if err := f.fetchErr[matchID]; err != nil {
		return scorecard.Scorecard{}, err
	}
	card, ok := f.scorecards[matchID]
	if !ok {
		return scorecard.Scorecard{}, errors.New("scorecard not found")
	}
	return card, nil
}

type ingestionFixture struct {
	service    *IngestionService
	playerRepo *memory.PlayerRepository
	leagueRepo *memory.LeagueRepository
	source     *fakeMatchSource
}

func newIngestionFixture(t *testing.T) ingestionFixture {
	t.Helper()

	playerRepo := memory.NewPlayerRepository(memory.SeedPlayers())
	perfRepo := memory.NewPerformanceRepository()

	// An active league over the Amstelveen roster so ingestion can trigger
	// its drift.
	roster := make([]league.RosterEntry, 0)
	snapshot := make(map[string]float64)
	for _, p := range memory.SeedPlayers() {
		if p.Club == "Amstelveen CC" {
			roster = append(roster, league.RosterEntry{PlayerID: p.ID})
			snapshot[p.ID] = 1.0
		}
	}
	leagueRepo := memory.NewLeagueRepository([]league.League{{
		ID:                  "l-live",
		Name:                "Live League",
		Code:                "LIVE0001",
		Status:              league.StatusActive,
		Rules:               league.Rules{SquadSize: 5, RulesetVersion: "2026.1"},
		Roster:              roster,
		MultipliersSnapshot: snapshot,
	}})

	locks := &resilience.KeyedMutex{}
	aggregator := NewAggregatorService(playerRepo, perfRepo, locks, "2026.1")
	drifter := NewDriftService(leagueRepo, playerRepo, perfRepo, locks, logging.NewNop(), 0.15)

	playedAt := time.Date(2026, 5, 2, 11, 0, 0, 0, time.UTC)
	source := &fakeMatchSource{
		matches: []scorecard.MatchSummary{{
			MatchID:  "m-100",
			PlayedAt: playedAt,
			HomeClub: "Amstelveen CC",
			AwayClub: "Rotterdam Rhinos",
			Grade:    "1",
		}},
		scorecards: map[string]scorecard.Scorecard{
			"m-100": {
				MatchID:  "m-100",
				PlayedAt: playedAt,
				Innings: []scorecard.Innings{
					{
						BattingClub: "Amstelveen CC",
						BattingRows: []scorecard.BattingRow{
							{PlayerName: "J. de Vries", Club: "Amstelveen CC", Runs: 105, BallsFaced: 84, Dismissed: true},
							{PlayerName: "Pieter Nieuw", Club: "Amstelveen CC", Runs: 20, BallsFaced: 25, Dismissed: true},
						},
						BowlingRows: []scorecard.BowlingRow{
							{PlayerName: "Lucas van Dam", Club: "Rotterdam Rhinos", BallsBowled: 60, RunsConceded: 40, Wickets: 5},
						},
					},
					{
						BattingClub: "Rotterdam Rhinos",
						BowlingRows: []scorecard.BowlingRow{
							{PlayerName: "Joost Bakker", Club: "Amstelveen CC", BallsBowled: 24, RunsConceded: 30, Wickets: 1},
						},
					},
				},
				FieldingCredits: []scorecard.FieldingCredit{
					{PlayerName: "Noah de Boer", Club: "Rotterdam Rhinos", Catches: 2},
				},
			},
		},
		fetchErr: map[string]error{},
	}

	service := NewIngestionService(
		source,
		aggregator,
		drifter,
		leagueRepo,
		playerRepo,
		identity.NewMatcher(identity.DefaultThreshold),
		&seqIDGenerator{prefix: "new"},
		locks,
		logging.NewNop(),
		[]string{"Amstelveen CC", "Rotterdam Rhinos"},
		7*24*time.Hour,
	)
	service.now = func() time.Time { return time.Date(2026, 5, 4, 1, 0, 0, 0, time.UTC) }
	return ingestionFixture{service: service, playerRepo: playerRepo, leagueRepo: leagueRepo, source: source}
}

func TestIngestionRun_MatchesAttributesAndCreates(t *testing.T) {
	f := newIngestionFixture(t)

	report, err := f.service.Run(t.Context())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.MatchesListed != 1 || report.MatchesProcessed != 1 {
		t.Fatalf("unexpected match counts: %+v", report)
	}
	if report.RecordsApplied != 5 {
		t.Fatalf("expected 5 applied records, got %d", report.RecordsApplied)
	}
	if report.PlayersCreated != 1 {
		t.Fatalf("expected 1 created player, got %d", report.PlayersCreated)
	}

	// "J. de Vries" resolved to the known Jan de Vries via initial expansion.
	jan, _, err := f.playerRepo.GetByID(t.Context(), "acc-bat-01")
	if err != nil {
		t.Fatalf("load jan: %v", err)
	}
	if jan.Totals.Runs != 105 || !jan.HasProcessedMatch("m-100") {
		t.Fatalf("expected century attributed to Jan, got %+v", jan.Totals)
	}

	// The unmatched row became a new active player.
	created, err := f.playerRepo.List(t.Context(), player.Filter{Club: "Amstelveen CC"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	found := false
	for _, p := range created {
		if p.Name == "Pieter Nieuw" {
			found = true
			if p.Legacy {
				t.Fatal("scrape-created players are not legacy")
			}
			if p.RealTeam != "Amstelveen CC 1" {
				t.Fatalf("expected grade-derived real team, got %q", p.RealTeam)
			}
		}
	}
	if !found {
		t.Fatal("expected Pieter Nieuw to be created")
	}
}

func TestIngestionRun_Idempotent(t *testing.T) {
	f := newIngestionFixture(t)

	if _, err := f.service.Run(t.Context()); err != nil {
		t.Fatalf("first run: %v", err)
	}
	before, _, _ := f.playerRepo.GetByID(t.Context(), "acc-bat-01")

	report, err := f.service.Run(t.Context())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if report.RecordsApplied != 0 {
		t.Fatalf("expected replay to apply nothing, got %d", report.RecordsApplied)
	}
	if report.RecordsSkipped != 5 {
		t.Fatalf("expected 5 skipped records, got %d", report.RecordsSkipped)
	}

	after, _, _ := f.playerRepo.GetByID(t.Context(), "acc-bat-01")
	if before.Totals != after.Totals {
		t.Fatalf("totals changed on replay: %+v vs %+v", before.Totals, after.Totals)
	}
}

func TestIngestionRun_IsolatesBrokenScorecard(t *testing.T) {
	f := newIngestionFixture(t)
	playedAt := time.Date(2026, 5, 3, 11, 0, 0, 0, time.UTC)
	f.source.matches = append(f.source.matches, scorecard.MatchSummary{
		MatchID:  "m-broken",
		PlayedAt: playedAt,
		HomeClub: "Amstelveen CC",
		AwayClub: "Rotterdam Rhinos",
	})
	f.source.fetchErr["m-broken"] = errors.New("upstream 502")

	report, err := f.service.Run(t.Context())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.MatchesProcessed != 1 || report.MatchesFailed != 1 {
		t.Fatalf("expected broken match isolated, got %+v", report)
	}
	if report.RecordsApplied != 5 {
		t.Fatalf("expected healthy match to land, got %d", report.RecordsApplied)
	}
}

func TestIngestionRun_TriggersDriftForTouchedLeagues(t *testing.T) {
	f := newIngestionFixture(t)

	report, err := f.service.Run(t.Context())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(report.Drift.Leagues) != 1 || report.Drift.Leagues[0].LeagueID != "l-live" {
		t.Fatalf("expected drift attempt for l-live, got %+v", report.Drift)
	}

	// Jan and Pieter scored; every other roster member sits on zero. Three
	// distinct score values, so the drift actually ran.
	l, _, _ := f.leagueRepo.GetByID(t.Context(), "l-live")
	if l.MultipliersSnapshot["acc-bat-01"] >= 1.0 {
		t.Fatalf("expected top scorer to drift downward, got %v", l.MultipliersSnapshot["acc-bat-01"])
	}
}

func TestIngestionRun_ActivatesRosterEntries(t *testing.T) {
	f := newIngestionFixture(t)

	// Mark Jan's entry as a prior-season import.
	l, _, _ := f.leagueRepo.GetByID(t.Context(), "l-live")
	for i, entry := range l.Roster {
		if entry.PlayerID == "acc-bat-01" {
			l.Roster[i].Legacy = true
		}
	}
	if err := f.leagueRepo.Save(t.Context(), l); err != nil {
		t.Fatalf("save league: %v", err)
	}

	if _, err := f.service.Run(t.Context()); err != nil {
		t.Fatalf("run: %v", err)
	}

	l, _, _ = f.leagueRepo.GetByID(t.Context(), "l-live")
	active := make(map[string]bool, len(l.Roster))
	for _, entry := range l.Roster {
		active[entry.PlayerID] = entry.Active
		if entry.PlayerID == "acc-bat-01" && !entry.Legacy {
			t.Fatal("activation must not erase the entry's import provenance")
		}
	}
	if !active["acc-bat-01"] || !active["acc-bwl-01"] {
		t.Fatalf("expected entries of scoring players to activate, got %v", active)
	}
	if active["acc-bat-02"] {
		t.Fatal("expected entries without a live performance to stay inactive")
	}
}

func TestIngestionRun_CancelledContext(t *testing.T) {
	f := newIngestionFixture(t)
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	_, err := f.service.Run(ctx)
	if !errors.Is(err, ErrIngestionCancelled) {
		t.Fatalf("expected ErrIngestionCancelled, got %v", err)
	}
}
