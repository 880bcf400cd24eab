package memory

import (
	"time"

	"github.com/wicketworks/fantasy-cricket/internal/domain/league"
	"github.com/wicketworks/fantasy-cricket/internal/domain/player"
)

// Seed identifiers referenced by tests and the dev wiring.
const (
	LeagueIDAmstelveenSummer = "league-amstelveen-summer"
	LeagueCodeAmstelveen     = "AMSTLVN1"
)

var seedTime = time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

// SeedPlayers returns a small two-club player pool for development runs.
func SeedPlayers() []player.Player {
	specs := []struct {
		id       string
		name     string
		club     string
		realTeam string
		role     player.Role
	}{
		{"acc-bat-01", "Jan de Vries", "Amstelveen CC", "ACC 1", player.RoleBatsman},
		{"acc-bat-02", "Sanjay Patel", "Amstelveen CC", "ACC 1", player.RoleBatsman},
		{"acc-bat-03", "Tom Smit", "Amstelveen CC", "ACC 2", player.RoleBatsman},
		{"acc-bwl-01", "Joost Bakker", "Amstelveen CC", "ACC 1", player.RoleBowler},
		{"acc-bwl-02", "Imran Khan", "Amstelveen CC", "ACC 2", player.RoleBowler},
		{"acc-ar-01", "Pieter Janssen", "Amstelveen CC", "ACC 2", player.RoleAllRounder},
		{"acc-wk-01", "Daan Visser", "Amstelveen CC", "ACC 1", player.RoleWicketKeeper},
		{"rrh-bat-01", "Arjun Mehta", "Rotterdam Rhinos", "RRH 1", player.RoleBatsman},
		{"rrh-bwl-01", "Lucas van Dam", "Rotterdam Rhinos", "RRH 1", player.RoleBowler},
		{"rrh-wk-01", "Noah de Boer", "Rotterdam Rhinos", "RRH 1", player.RoleWicketKeeper},
	}

	out := make([]player.Player, 0, len(specs))
	for _, spec := range specs {
		out = append(out, player.Player{
			ID:                 spec.id,
			Name:               spec.name,
			Club:               spec.club,
			RealTeam:           spec.realTeam,
			Role:               spec.role,
			BaselineMultiplier: 1.0,
			CreatedAt:          seedTime,
			UpdatedAt:          seedTime,
		})
	}
	return out
}

// SeedLeagues returns one draft league over the seed player pool.
func SeedLeagues() []league.League {
	roster := make([]league.RosterEntry, 0)
	for _, p := range SeedPlayers() {
		if p.Club == "Amstelveen CC" {
			roster = append(roster, league.RosterEntry{PlayerID: p.ID})
		}
	}

	return []league.League{
		{
			ID:     LeagueIDAmstelveenSummer,
			Name:   "Amstelveen Summer League",
			Code:   LeagueCodeAmstelveen,
			Status: league.StatusDraft,
			Rules: league.Rules{
				SquadSize:               5,
				MinBatsmen:              1,
				MinBowlers:              1,
				MaxPlayersPerRealTeam:   4,
				RequireFromEachRealTeam: true,
				MinPlayersPerRealTeam:   1,
				MaxTransfers:            3,
				RulesetVersion:          "2026.1",
			},
			Roster:    roster,
			CreatedAt: seedTime,
			UpdatedAt: seedTime,
		},
	}
}
