package league

import (
	"fmt"
	"strings"
	"time"
)

// Status is the league lifecycle state. Transitions are monotonic:
// draft -> active -> locked -> completed.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusActive    Status = "active"
	StatusLocked    Status = "locked"
	StatusCompleted Status = "completed"
)

// Next reports the only legal transition out of the current status.
func (s Status) Next() (Status, bool) {
	switch s {
	case StatusDraft:
		return StatusActive, true
	case StatusActive:
		return StatusLocked, true
	case StatusLocked:
		return StatusCompleted, true
	default:
		return "", false
	}
}

// Driftable reports whether the weekly drifter considers this league.
func (s Status) Driftable() bool {
	return s == StatusActive || s == StatusLocked
}

// Rules is a league's composition rule set. Mutable while the league is in
// draft, copied into League.FrozenRules at confirm.
type Rules struct {
	SquadSize               int    `validate:"required,min=2,max=25"`
	MinBatsmen              int    `validate:"min=0"`
	MinBowlers              int    `validate:"min=0"`
	MaxPlayersPerRealTeam   int    `validate:"min=0"`
	RequireFromEachRealTeam bool   `validate:"-"`
	MinPlayersPerRealTeam   int    `validate:"min=0"`
	MaxTransfers            int    `validate:"min=0"`
	RulesetVersion          string `validate:"required"`
}

func (r Rules) Validate() error {
	if r.SquadSize <= 0 {
		return fmt.Errorf("squad size must be positive")
	}
	if r.MinBatsmen+r.MinBowlers > r.SquadSize {
		return fmt.Errorf("role minima %d exceed squad size %d", r.MinBatsmen+r.MinBowlers, r.SquadSize)
	}
	if r.RequireFromEachRealTeam && r.MinPlayersPerRealTeam <= 0 {
		return fmt.Errorf("min players per real team must be positive when coverage is required")
	}
	if strings.TrimSpace(r.RulesetVersion) == "" {
		return fmt.Errorf("ruleset version is required")
	}
	return nil
}

// RosterEntry is a (league, player) eligibility pair. Legacy records where
// the entry came from a prior-season import; Active flips on the player's
// first live performance and stays set.
type RosterEntry struct {
	PlayerID string
	Legacy   bool
	Active   bool
}

// League owns its roster and its multiplier snapshot exclusively.
type League struct {
	ID     string
	Name   string
	Code   string
	Status Status

	Rules       Rules
	FrozenRules *Rules

	Roster []RosterEntry

	// MultipliersSnapshot exists iff status is not draft. Whole-map swaps
	// only, under the league writer lock.
	MultipliersSnapshot map[string]float64
	MultipliersFrozenAt time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

func (l League) Validate() error {
	if strings.TrimSpace(l.ID) == "" {
		return fmt.Errorf("league id is required")
	}
	if strings.TrimSpace(l.Name) == "" {
		return fmt.Errorf("league name is required")
	}
	if l.Status == "" {
		return fmt.Errorf("league status is required")
	}
	return l.Rules.Validate()
}

// EffectiveRules returns the frozen copy once one exists. After confirm all
// rule reads must go through here.
func (l League) EffectiveRules() Rules {
	if l.FrozenRules != nil {
		return *l.FrozenRules
	}
	return l.Rules
}

// HasRosterPlayer reports roster membership.
func (l League) HasRosterPlayer(playerID string) bool {
	for _, entry := range l.Roster {
		if entry.PlayerID == playerID {
			return true
		}
	}
	return false
}

// RosterPlayerIDs lists the roster's player ids in roster order.
func (l League) RosterPlayerIDs() []string {
	out := make([]string, 0, len(l.Roster))
	for _, entry := range l.Roster {
		out = append(out, entry.PlayerID)
	}
	return out
}

// SnapshotMultiplier resolves a player's league multiplier.
func (l League) SnapshotMultiplier(playerID string) (float64, bool) {
	m, ok := l.MultipliersSnapshot[playerID]
	return m, ok
}

// Clone deep-copies the league so repository callers cannot alias the stored
// roster slice or snapshot map.
func (l League) Clone() League {
	out := l
	if l.FrozenRules != nil {
		frozen := *l.FrozenRules
		out.FrozenRules = &frozen
	}
	if l.Roster != nil {
		out.Roster = append([]RosterEntry(nil), l.Roster...)
	}
	if l.MultipliersSnapshot != nil {
		out.MultipliersSnapshot = make(map[string]float64, len(l.MultipliersSnapshot))
		for id, m := range l.MultipliersSnapshot {
			out.MultipliersSnapshot[id] = m
		}
	}
	return out
}
