package fantasyteam

import (
	"testing"

	"github.com/wicketworks/fantasy-cricket/internal/domain/league"
	"github.com/wicketworks/fantasy-cricket/internal/domain/player"
)

func testChecker() Checker {
	players := map[string]player.Player{
		"bat-1": {ID: "bat-1", Role: player.RoleBatsman, RealTeam: "ACC 1"},
		"bat-2": {ID: "bat-2", Role: player.RoleBatsman, RealTeam: "ACC 2"},
		"bat-3": {ID: "bat-3", Role: player.RoleBatsman, RealTeam: "ACC 2"},
		"bwl-1": {ID: "bwl-1", Role: player.RoleBowler, RealTeam: "ACC 1"},
		"bwl-2": {ID: "bwl-2", Role: player.RoleBowler, RealTeam: "ACC 2"},
		"ar-1":  {ID: "ar-1", Role: player.RoleAllRounder, RealTeam: "ACC 1"},
		"wk-1":  {ID: "wk-1", Role: player.RoleWicketKeeper, RealTeam: "ACC 2"},
		"bat-4": {ID: "bat-4", Role: player.RoleBatsman, RealTeam: "ACC 2"},
		"bwl-3": {ID: "bwl-3", Role: player.RoleBowler, RealTeam: "ACC 2"},
	}
	return Checker{
		Rules: league.Rules{
			SquadSize:               6,
			MinBatsmen:              2,
			MinBowlers:              2,
			MaxPlayersPerRealTeam:   4,
			RequireFromEachRealTeam: true,
			MinPlayersPerRealTeam:   1,
			MaxTransfers:            3,
			RulesetVersion:          "2026.1",
		},
		Players:           players,
		RequiredRealTeams: []string{"ACC 1", "ACC 2"},
	}
}

func validTeam() Team {
	return Team{
		ID:             "t1",
		LeagueID:       "l1",
		UserID:         "u1",
		Name:           "Cover Drives",
		PlayerIDs:      []string{"bat-1", "bat-2", "bwl-1", "bwl-2", "ar-1", "wk-1"},
		CaptainID:      "bat-1",
		ViceCaptainID:  "bwl-1",
		WicketKeeperID: "wk-1",
	}
}

func hasCode(violations []Violation, code ViolationCode) bool {
	for _, v := range violations {
		if v.Code == code {
			return true
		}
	}
	return false
}

func TestValidateFinalize_PassesFullRuleSet(t *testing.T) {
	c := testChecker()
	if violations := c.ValidateFinalize(validTeam()); len(violations) != 0 {
		t.Fatalf("expected no violations, got %v", violations)
	}
}

func TestValidateFinalize_WrongSize(t *testing.T) {
	c := testChecker()
	team := validTeam()
	team.PlayerIDs = team.PlayerIDs[:5]

	violations := c.ValidateFinalize(team)
	if !hasCode(violations, CodeSquadWrongSize) {
		t.Fatalf("expected SquadWrongSize, got %v", violations)
	}
}

func TestValidateFinalize_AllRoundersDoNotCountTowardMinima(t *testing.T) {
	c := testChecker()
	team := validTeam()
	// Swap a bowler for an all-rounder: 2 batsmen remain but only 1 bowler.
	team.PlayerIDs = []string{"bat-1", "bat-2", "bwl-1", "ar-1", "wk-1", "bat-3"}
	team.ViceCaptainID = "bwl-1"

	violations := c.ValidateFinalize(team)
	if !hasCode(violations, CodeBelowMinBowlers) {
		t.Fatalf("expected BelowMinBowlers, got %v", violations)
	}
	if hasCode(violations, CodeBelowMinBatsmen) {
		t.Fatalf("did not expect BelowMinBatsmen, got %v", violations)
	}
}

func TestValidateFinalize_MaxPerRealTeam(t *testing.T) {
	c := testChecker()
	c.Rules.MaxPlayersPerRealTeam = 3
	team := validTeam()
	team.PlayerIDs = []string{"bat-2", "bat-3", "bat-4", "wk-1", "bwl-2", "bat-1"}

	violations := c.ValidateFinalize(team)
	if !hasCode(violations, CodeExceedsMaxPerRealTeam) {
		t.Fatalf("expected ExceedsMaxPerRealTeam, got %v", violations)
	}
}

func TestValidateFinalize_MissingRealTeams(t *testing.T) {
	c := testChecker()
	team := validTeam()
	team.PlayerIDs = []string{"bat-2", "bat-3", "bat-4", "wk-1", "bwl-2", "bwl-3"}
	team.CaptainID, team.ViceCaptainID = "bat-2", "bwl-2"

	violations := c.ValidateFinalize(team)
	found := false
	for _, v := range violations {
		if v.Code == CodeMissingRealTeams && v.Field == "ACC 1" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected MissingRealTeams naming ACC 1, got %v", violations)
	}
}

func TestValidateFinalize_DesignationOutsideSquad(t *testing.T) {
	c := testChecker()
	team := validTeam()
	team.CaptainID = "bat-4"

	violations := c.ValidateFinalize(team)
	if !hasCode(violations, CodeDesignationOutsideSquad) {
		t.Fatalf("expected DesignationOutsideSquad, got %v", violations)
	}
}

func TestValidateMutation_AllowsPartialSquad(t *testing.T) {
	c := testChecker()
	team := validTeam()
	team.PlayerIDs = []string{"bat-1", "bwl-2"}
	team.CaptainID, team.ViceCaptainID, team.WicketKeeperID = "", "", ""

	if violations := c.ValidateMutation(team); len(violations) != 0 {
		t.Fatalf("expected no violations during construction, got %v", violations)
	}
}

func TestValidateMutation_RejectsOverfullSquad(t *testing.T) {
	c := testChecker()
	team := validTeam()
	team.PlayerIDs = append(team.PlayerIDs, "bat-3")

	violations := c.ValidateMutation(team)
	if !hasCode(violations, CodeSquadWrongSize) {
		t.Fatalf("expected SquadWrongSize, got %v", violations)
	}
}

func TestValidateTransfer_LoneRepresentative(t *testing.T) {
	c := testChecker()
	c.Rules.MaxPlayersPerRealTeam = 0
	team := validTeam()
	// Shrink the ACC 1 cover down to just bat-1.
	team.PlayerIDs = []string{"bat-1", "bat-2", "bat-3", "bwl-2", "wk-1", "bat-4"}
	team.ViceCaptainID = "bwl-2"

	violations := c.ValidateTransfer(team, "bat-1", "bwl-1")
	if len(violations) != 0 {
		t.Fatalf("same-team replacement should pass, got %v", violations)
	}

	violations = c.ValidateTransfer(team, "bat-1", "bwl-3")
	if len(violations) != 1 || violations[0].Code != CodeLoneRepresentativeRemoved {
		t.Fatalf("expected LoneRepresentativeRemoved, got %v", violations)
	}
	if violations[0].Field != "ACC 1" {
		t.Fatalf("expected violation to name ACC 1, got %q", violations[0].Field)
	}
}

func TestValidateTransfer_BudgetExhausted(t *testing.T) {
	c := testChecker()
	team := validTeam()
	team.TransfersUsed = 3

	violations := c.ValidateTransfer(team, "bat-1", "bat-3")
	if !hasCode(violations, CodeTransferBudgetExhausted) {
		t.Fatalf("expected TransferBudgetExhausted, got %v", violations)
	}
}

func TestValidateTransfer_SimulatesPostSwapTeam(t *testing.T) {
	c := testChecker()
	team := validTeam()

	// Swapping a bowler for a batsman drops below the bowler minimum.
	violations := c.ValidateTransfer(team, "bwl-2", "bat-3")
	if !hasCode(violations, CodeBelowMinBowlers) {
		t.Fatalf("expected BelowMinBowlers on simulated team, got %v", violations)
	}
}

func TestWithSwap_ClearsDesignations(t *testing.T) {
	team := validTeam()
	swapped := team.WithSwap("bat-1", "bat-3")

	if swapped.HasPlayer("bat-1") || !swapped.HasPlayer("bat-3") {
		t.Fatalf("swap not applied: %v", swapped.PlayerIDs)
	}
	if swapped.CaptainID != "" {
		t.Fatalf("expected captaincy cleared, got %q", swapped.CaptainID)
	}
	if team.CaptainID != "bat-1" {
		t.Fatalf("original team mutated: %q", team.CaptainID)
	}
}
