package scoring

import (
	"fmt"
	"math"

	"github.com/wicketworks/fantasy-cricket/internal/domain/performance"
)

// Breakdown is the scored view of one performance record, before any
// league-scoped multiplier. CatchPoints are reported separately so the team
// scorer can apply the wicket-keeper factor without re-deriving them.
type Breakdown struct {
	Batting     float64
	Bowling     float64
	Fielding    float64
	CatchPoints float64
	Total       float64
}

// Score computes base fantasy points for one performance. It is pure: no
// state, identical output for identical input.
func (rs Ruleset) Score(rec performance.Record) (Breakdown, error) {
	if err := validateFacets(rec); err != nil {
		return Breakdown{}, err
	}

	out := Breakdown{
		Batting:  rs.scoreBatting(rec.Batting),
		Bowling:  rs.scoreBowling(rec.Bowling),
		Fielding: rs.scoreFielding(rec.Fielding),
	}
	out.CatchPoints = float64(rec.Fielding.Catches) * rs.CatchPoints

	// The duck penalty must never drive a record's base below zero.
	out.Total = math.Max(0, out.Batting+out.Bowling+out.Fielding)
	return out, nil
}

func validateFacets(rec performance.Record) error {
	if rec.Batting.BallsFaced < 0 {
		return fmt.Errorf("%w: balls_faced=%d", ErrInvalidPerformance, rec.Batting.BallsFaced)
	}
	if rec.Batting.Runs < 0 {
		return fmt.Errorf("%w: runs=%d", ErrInvalidPerformance, rec.Batting.Runs)
	}
	if rec.Bowling.BallsBowled < 0 {
		return fmt.Errorf("%w: balls_bowled=%d", ErrInvalidPerformance, rec.Bowling.BallsBowled)
	}
	if rec.Bowling.Wickets < 0 || rec.Bowling.Wickets > 10 {
		return fmt.Errorf("%w: wickets=%d", ErrInvalidPerformance, rec.Bowling.Wickets)
	}
	if rec.Bowling.RunsConceded < 0 {
		return fmt.Errorf("%w: runs_conceded=%d", ErrInvalidPerformance, rec.Bowling.RunsConceded)
	}
	if rec.Fielding.Catches < 0 || rec.Fielding.Stumpings < 0 || rec.Fielding.Runouts < 0 {
		return fmt.Errorf("%w: negative fielding credit", ErrInvalidPerformance)
	}
	return nil
}

func (rs Ruleset) scoreBatting(facet performance.BattingFacet) float64 {
	if !facet.DidBat() {
		// Did not bat: no run points, no duck, regardless of the dismissal flag.
		return 0
	}

	subtotal := 0.0
	for _, tier := range rs.RunTiers {
		subtotal += float64(runsInTier(facet.Runs, tier)) * tier.Rate
	}

	if rs.StrikeRateScaling {
		strikeRate := float64(facet.Runs) / float64(facet.BallsFaced) * 100
		subtotal *= strikeRate / 100
	}

	switch {
	case facet.Runs >= 100:
		subtotal += rs.CenturyBonus
	case facet.Runs >= 50:
		subtotal += rs.FiftyBonus
	}

	if facet.Runs == 0 && facet.Dismissed {
		subtotal -= rs.DuckPenalty
	}

	return subtotal
}

func runsInTier(runs int, tier RunTier) int {
	hi := runs
	if tier.To > 0 && hi > tier.To {
		hi = tier.To
	}
	if hi < tier.From {
		return 0
	}
	return hi - tier.From + 1
}

func (rs Ruleset) scoreBowling(facet performance.BowlingFacet) float64 {
	subtotal := 0.0
	for _, tier := range rs.WicketTiers {
		subtotal += float64(wicketsInTier(facet.Wickets, tier)) * tier.Points
	}

	// Wicket points scale with economy only when there is a bowled workload to
	// derive it from. A spell conceding zero runs earns the full cap.
	if facet.BallsBowled > 0 {
		multiplier := rs.EconomyRateCap
		if economy := facet.EconomyRate(); economy > 0 {
			multiplier = math.Min(rs.EconomyRateCap, 6.0/economy)
		}
		subtotal *= multiplier
	}

	subtotal += float64(facet.Maidens) * rs.MaidenPoints
	if facet.Wickets >= 5 {
		subtotal += rs.FiveWicketBonus
	}

	return subtotal
}

func wicketsInTier(wickets int, tier WicketTier) int {
	hi := wickets
	if tier.To > 0 && hi > tier.To {
		hi = tier.To
	}
	if hi < tier.From {
		return 0
	}
	return hi - tier.From + 1
}

func (rs Ruleset) scoreFielding(facet performance.FieldingFacet) float64 {
	return float64(facet.Catches)*rs.CatchPoints +
		float64(facet.Stumpings)*rs.StumpingPoints +
		float64(facet.Runouts)*rs.RunoutPoints
}

// DisplayPoints floors a stored exact total to one decimal for presentation.
func DisplayPoints(points float64) float64 {
	return math.Floor(points*10) / 10
}
