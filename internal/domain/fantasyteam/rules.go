package fantasyteam

import (
	"fmt"
	"sort"
	"strings"

	"github.com/wicketworks/fantasy-cricket/internal/domain/league"
	"github.com/wicketworks/fantasy-cricket/internal/domain/player"
)

// ViolationCode identifies one quota rule failure.
type ViolationCode string

const (
	CodeSquadWrongSize            ViolationCode = "SquadWrongSize"
	CodeBelowMinBatsmen           ViolationCode = "BelowMinBatsmen"
	CodeBelowMinBowlers           ViolationCode = "BelowMinBowlers"
	CodeExceedsMaxPerRealTeam     ViolationCode = "ExceedsMaxPerRealTeam"
	CodeMissingRealTeams          ViolationCode = "MissingRealTeams"
	CodeLoneRepresentativeRemoved ViolationCode = "LoneRepresentativeRemoved"
	CodeDuplicatePlayer           ViolationCode = "DuplicatePlayer"
	CodePlayerNotInRoster         ViolationCode = "PlayerNotInRoster"
	CodeDesignationOutsideSquad   ViolationCode = "DesignationOutsideSquad"
	CodeTransferBudgetExhausted   ViolationCode = "TransferBudgetExhausted"
	CodeNotFinalizable            ViolationCode = "NotFinalizable"
)

// Violation is a structured quota failure, rendered to the user as-is.
type Violation struct {
	Code    ViolationCode
	Field   string
	Message string
}

func (v Violation) String() string {
	if v.Field == "" {
		return fmt.Sprintf("%s: %s", v.Code, v.Message)
	}
	return fmt.Sprintf("%s (%s): %s", v.Code, v.Field, v.Message)
}

// Checker validates team composition against one league's effective rules.
// Players holds the league roster keyed by id; RequiredRealTeams is the set
// of distinct real-life teams appearing in that roster.
type Checker struct {
	Rules             league.Rules
	Players           map[string]player.Player
	RequiredRealTeams []string
}

// ValidateMutation runs the checks that hold during squad construction:
// membership, duplicates, upper bounds. Size and role minima are deferred to
// finalize.
func (c Checker) ValidateMutation(t Team) []Violation {
	var out []Violation
	out = append(out, c.checkMembership(t)...)

	if len(t.PlayerIDs) > c.Rules.SquadSize {
		out = append(out, Violation{
			Code:    CodeSquadWrongSize,
			Field:   "squad_size",
			Message: fmt.Sprintf("squad holds %d players, limit is %d", len(t.PlayerIDs), c.Rules.SquadSize),
		})
	}
	out = append(out, c.checkMaxPerRealTeam(t)...)
	return out
}

// ValidateFinalize runs the full rule set: exact size, role minima, real-team
// bounds and coverage, designation placement.
func (c Checker) ValidateFinalize(t Team) []Violation {
	var out []Violation
	out = append(out, c.checkMembership(t)...)

	if len(t.PlayerIDs) != c.Rules.SquadSize {
		out = append(out, Violation{
			Code:    CodeSquadWrongSize,
			Field:   "squad_size",
			Message: fmt.Sprintf("squad holds %d players, rules require exactly %d", len(t.PlayerIDs), c.Rules.SquadSize),
		})
	}

	batsmen, bowlers := 0, 0
	for _, id := range t.PlayerIDs {
		switch c.Players[id].Role {
		case player.RoleBatsman:
			batsmen++
		case player.RoleBowler:
			bowlers++
		}
	}
	if batsmen < c.Rules.MinBatsmen {
		out = append(out, Violation{
			Code:    CodeBelowMinBatsmen,
			Field:   "min_batsmen",
			Message: fmt.Sprintf("squad has %d batsmen, rules require at least %d", batsmen, c.Rules.MinBatsmen),
		})
	}
	if bowlers < c.Rules.MinBowlers {
		out = append(out, Violation{
			Code:    CodeBelowMinBowlers,
			Field:   "min_bowlers",
			Message: fmt.Sprintf("squad has %d bowlers, rules require at least %d", bowlers, c.Rules.MinBowlers),
		})
	}

	out = append(out, c.checkMaxPerRealTeam(t)...)
	out = append(out, c.checkRealTeamCoverage(t)...)
	out = append(out, c.checkDesignations(t)...)
	return out
}

// ValidateTransfer preflights an atomic (remove out, add in) pair by
// simulating the post-swap team under the full rule set. Callers use it to
// render messages before attempting the mutation.
func (c Checker) ValidateTransfer(t Team, outID, inID string) []Violation {
	var out []Violation

	if !t.HasPlayer(outID) {
		out = append(out, Violation{
			Code:    CodePlayerNotInRoster,
			Field:   "player_out",
			Message: fmt.Sprintf("player %s is not in the squad", outID),
		})
	}
	if t.HasPlayer(inID) {
		out = append(out, Violation{
			Code:    CodeDuplicatePlayer,
			Field:   "player_in",
			Message: fmt.Sprintf("player %s is already in the squad", inID),
		})
	}
	if c.Rules.MaxTransfers > 0 && t.TransfersUsed >= c.Rules.MaxTransfers {
		out = append(out, Violation{
			Code:    CodeTransferBudgetExhausted,
			Field:   "transfers_used",
			Message: fmt.Sprintf("team already used %d of %d transfers", t.TransfersUsed, c.Rules.MaxTransfers),
		})
	}
	if len(out) > 0 {
		return out
	}

	// The lone-representative guard fires before the generic coverage check so
	// the message names the real team being vacated.
	if c.Rules.RequireFromEachRealTeam {
		outTeam := c.Players[outID].RealTeam
		inTeam := c.Players[inID].RealTeam
		if outTeam != "" && inTeam != outTeam && c.countRealTeam(t, outTeam) <= c.Rules.MinPlayersPerRealTeam {
			return []Violation{{
				Code:  CodeLoneRepresentativeRemoved,
				Field: outTeam,
				Message: fmt.Sprintf(
					"player %s is the only cover for %s; bring in another %s player first", outID, outTeam, outTeam),
			}}
		}
	}

	return c.ValidateFinalize(t.WithSwap(outID, inID))
}

func (c Checker) checkMembership(t Team) []Violation {
	var out []Violation
	seen := make(map[string]struct{}, len(t.PlayerIDs))
	for _, id := range t.PlayerIDs {
		if _, dup := seen[id]; dup {
			out = append(out, Violation{
				Code:    CodeDuplicatePlayer,
				Field:   id,
				Message: fmt.Sprintf("player %s appears twice in the squad", id),
			})
			continue
		}
		seen[id] = struct{}{}
		if _, ok := c.Players[id]; !ok {
			out = append(out, Violation{
				Code:    CodePlayerNotInRoster,
				Field:   id,
				Message: fmt.Sprintf("player %s is not on the league roster", id),
			})
		}
	}
	return out
}

func (c Checker) checkMaxPerRealTeam(t Team) []Violation {
	if c.Rules.MaxPlayersPerRealTeam <= 0 {
		return nil
	}

	counts := c.realTeamCounts(t)
	teams := make([]string, 0, len(counts))
	for realTeam := range counts {
		teams = append(teams, realTeam)
	}
	sort.Strings(teams)

	var out []Violation
	for _, realTeam := range teams {
		if counts[realTeam] > c.Rules.MaxPlayersPerRealTeam {
			out = append(out, Violation{
				Code:  CodeExceedsMaxPerRealTeam,
				Field: realTeam,
				Message: fmt.Sprintf("%d players from %s, limit is %d",
					counts[realTeam], realTeam, c.Rules.MaxPlayersPerRealTeam),
			})
		}
	}
	return out
}

func (c Checker) checkRealTeamCoverage(t Team) []Violation {
	if !c.Rules.RequireFromEachRealTeam {
		return nil
	}

	required := c.Rules.MinPlayersPerRealTeam
	if required <= 0 {
		required = 1
	}

	counts := c.realTeamCounts(t)
	var missing []string
	for _, realTeam := range c.RequiredRealTeams {
		if counts[realTeam] < required {
			missing = append(missing, realTeam)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return []Violation{{
		Code:    CodeMissingRealTeams,
		Field:   strings.Join(missing, ","),
		Message: fmt.Sprintf("squad must field at least %d from each of: %s", required, strings.Join(missing, ", ")),
	}}
}

func (c Checker) checkDesignations(t Team) []Violation {
	var out []Violation
	for field, id := range map[string]string{
		"captain_id":       t.CaptainID,
		"vice_captain_id":  t.ViceCaptainID,
		"wicket_keeper_id": t.WicketKeeperID,
	} {
		if id != "" && !t.HasPlayer(id) {
			out = append(out, Violation{
				Code:    CodeDesignationOutsideSquad,
				Field:   field,
				Message: fmt.Sprintf("player %s holds %s but is not in the squad", id, field),
			})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Field < out[j].Field })
	return out
}

func (c Checker) realTeamCounts(t Team) map[string]int {
	counts := make(map[string]int)
	for _, id := range t.PlayerIDs {
		if p, ok := c.Players[id]; ok && p.RealTeam != "" {
			counts[p.RealTeam]++
		}
	}
	return counts
}

func (c Checker) countRealTeam(t Team, realTeam string) int {
	return c.realTeamCounts(t)[realTeam]
}
