package fantasyteam

import (
	"fmt"
	"strings"
	"time"
)

// Team is a user-owned squad within one league. Captain, vice-captain and
// wicket-keeper are distinct designations; one player may hold several.
type Team struct {
	ID       string
	LeagueID string
	UserID   string
	Name     string

	PlayerIDs      []string
	CaptainID      string
	ViceCaptainID  string
	WicketKeeperID string

	TransfersUsed int
	FinalizedAt   *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (t Team) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return fmt.Errorf("team id is required")
	}
	if strings.TrimSpace(t.LeagueID) == "" {
		return fmt.Errorf("team league id is required")
	}
	if strings.TrimSpace(t.UserID) == "" {
		return fmt.Errorf("team user id is required")
	}
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("team name is required")
	}
	return nil
}

func (t Team) Finalized() bool {
	return t.FinalizedAt != nil
}

// HasPlayer reports squad membership.
func (t Team) HasPlayer(playerID string) bool {
	for _, id := range t.PlayerIDs {
		if id == playerID {
			return true
		}
	}
	return false
}

// WithSwap returns a copy of the team with out replaced by in. Designations
// held by the outgoing player are cleared.
func (t Team) WithSwap(outID, inID string) Team {
	next := t.Clone()
	for i, id := range next.PlayerIDs {
		if id == outID {
			next.PlayerIDs[i] = inID
			break
		}
	}
	if next.CaptainID == outID {
		next.CaptainID = ""
	}
	if next.ViceCaptainID == outID {
		next.ViceCaptainID = ""
	}
	if next.WicketKeeperID == outID {
		next.WicketKeeperID = ""
	}
	return next
}

func (t Team) Clone() Team {
	out := t
	if t.PlayerIDs != nil {
		out.PlayerIDs = append([]string(nil), t.PlayerIDs...)
	}
	if t.FinalizedAt != nil {
		finalized := *t.FinalizedAt
		out.FinalizedAt = &finalized
	}
	return out
}
