package postgres

import (
	"database/sql"
	"fmt"
	"time"

	sonic "github.com/bytedance/sonic"

	"github.com/wicketworks/fantasy-cricket/internal/domain/league"
)

type leagueTableModel struct {
	ID                  string       `db:"id"`
	Name                string       `db:"name"`
	Code                string       `db:"code"`
	Status              string       `db:"status"`
	Rules               []byte       `db:"rules"`
	FrozenRules         []byte       `db:"frozen_rules"`
	Roster              []byte       `db:"roster"`
	MultipliersSnapshot []byte       `db:"multipliers_snapshot"`
	MultipliersFrozenAt sql.NullTime `db:"multipliers_frozen_at"`
	CreatedAt           time.Time    `db:"created_at"`
	UpdatedAt           time.Time    `db:"updated_at"`
}

// rulesDocument is the JSONB shape of league rules. The domain type carries
// no serialization tags, so the wire shape lives here.
type rulesDocument struct {
	SquadSize               int    `json:"squad_size"`
	MinBatsmen              int    `json:"min_batsmen"`
	MinBowlers              int    `json:"min_bowlers"`
	MaxPlayersPerRealTeam   int    `json:"max_players_per_real_team"`
	RequireFromEachRealTeam bool   `json:"require_from_each_real_team"`
	MinPlayersPerRealTeam   int    `json:"min_players_per_real_team"`
	MaxTransfers            int    `json:"max_transfers"`
	RulesetVersion          string `json:"ruleset_version"`
}

type rosterEntryDocument struct {
	PlayerID string `json:"player_id"`
	Legacy   bool   `json:"legacy"`
	Active   bool   `json:"active"`
}

func rulesToDocument(r league.Rules) rulesDocument {
	return rulesDocument(r)
}

func documentToRules(doc rulesDocument) league.Rules {
	return league.Rules(doc)
}

func leagueToRow(l league.League) (leagueTableModel, error) {
	rulesRaw, err := sonic.Marshal(rulesToDocument(l.Rules))
	if err != nil {
		return leagueTableModel{}, fmt.Errorf("marshal league rules: %w", err)
	}

	var frozenRaw []byte
	if l.FrozenRules != nil {
		frozenRaw, err = sonic.Marshal(rulesToDocument(*l.FrozenRules))
		if err != nil {
			return leagueTableModel{}, fmt.Errorf("marshal frozen rules: %w", err)
		}
	}

	rosterDocs := make([]rosterEntryDocument, 0, len(l.Roster))
	for _, entry := range l.Roster {
		rosterDocs = append(rosterDocs, rosterEntryDocument(entry))
	}
	rosterRaw, err := sonic.Marshal(rosterDocs)
	if err != nil {
		return leagueTableModel{}, fmt.Errorf("marshal roster: %w", err)
	}

	var snapshotRaw []byte
	if l.MultipliersSnapshot != nil {
		snapshotRaw, err = sonic.Marshal(l.MultipliersSnapshot)
		if err != nil {
			return leagueTableModel{}, fmt.Errorf("marshal multipliers snapshot: %w", err)
		}
	}

	row := leagueTableModel{
		ID:                  l.ID,
		Name:                l.Name,
		Code:                l.Code,
		Status:              string(l.Status),
		Rules:               rulesRaw,
		FrozenRules:         frozenRaw,
		Roster:              rosterRaw,
		MultipliersSnapshot: snapshotRaw,
		CreatedAt:           l.CreatedAt,
		UpdatedAt:           l.UpdatedAt,
	}
	if !l.MultipliersFrozenAt.IsZero() {
		row.MultipliersFrozenAt = sql.NullTime{Time: l.MultipliersFrozenAt, Valid: true}
	}

	return row, nil
}

func leagueFromRow(row leagueTableModel) (league.League, error) {
	var rulesDoc rulesDocument
	if err := sonic.Unmarshal(row.Rules, &rulesDoc); err != nil {
		return league.League{}, fmt.Errorf("unmarshal league rules: %w", err)
	}

	var frozen *league.Rules
	if len(row.FrozenRules) > 0 {
		var frozenDoc rulesDocument
		if err := sonic.Unmarshal(row.FrozenRules, &frozenDoc); err != nil {
			return league.League{}, fmt.Errorf("unmarshal frozen rules: %w", err)
		}
		rules := documentToRules(frozenDoc)
		frozen = &rules
	}

	var rosterDocs []rosterEntryDocument
	if len(row.Roster) > 0 {
		if err := sonic.Unmarshal(row.Roster, &rosterDocs); err != nil {
			return league.League{}, fmt.Errorf("unmarshal roster: %w", err)
		}
	}
	roster := make([]league.RosterEntry, 0, len(rosterDocs))
	for _, doc := range rosterDocs {
		roster = append(roster, league.RosterEntry(doc))
	}

	var snapshot map[string]float64
	if len(row.MultipliersSnapshot) > 0 {
		if err := sonic.Unmarshal(row.MultipliersSnapshot, &snapshot); err != nil {
			return league.League{}, fmt.Errorf("unmarshal multipliers snapshot: %w", err)
		}
	}

	out := league.League{
		ID:                  row.ID,
		Name:                row.Name,
		Code:                row.Code,
		Status:              league.Status(row.Status),
		Rules:               documentToRules(rulesDoc),
		FrozenRules:         frozen,
		Roster:              roster,
		MultipliersSnapshot: snapshot,
		CreatedAt:           row.CreatedAt,
		UpdatedAt:           row.UpdatedAt,
	}
	if row.MultipliersFrozenAt.Valid {
		out.MultipliersFrozenAt = row.MultipliersFrozenAt.Time
	}

	return out, nil
}
