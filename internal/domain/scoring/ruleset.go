package scoring

import (
	"errors"
	"fmt"
)

var (
	ErrUnsupportedRuleset = errors.New("unsupported scoring ruleset")
	ErrInvalidPerformance = errors.New("invalid performance")
)

// RunTier awards Rate points per run for runs scored inside [From, To].
// To == 0 marks an open-ended top tier.
type RunTier struct {
	From int
	To   int
	Rate float64
}

// WicketTier awards Points per wicket for wickets taken inside [From, To].
type WicketTier struct {
	From   int
	To     int
	Points float64
}

// Ruleset is a versioned scoring configuration. Every scoring constant lives
// here as data so alternative rulesets plug in without code changes.
type Ruleset struct {
	Version string

	RunTiers          []RunTier
	FiftyBonus        float64
	CenturyBonus      float64
	DuckPenalty       float64
	StrikeRateScaling bool

	WicketTiers     []WicketTier
	EconomyRateCap  float64
	MaidenPoints    float64
	FiveWicketBonus float64

	CatchPoints    float64
	StumpingPoints float64
	RunoutPoints   float64

	// WicketKeeperCatchFactor is applied by the team scorer, not the engine:
	// the engine only exposes catch points separately.
	WicketKeeperCatchFactor float64
}

// DefaultVersion selects the reference ruleset.
const DefaultVersion = "2026.1"

var rulesets = map[string]Ruleset{
	DefaultVersion: {
		Version: DefaultVersion,
		RunTiers: []RunTier{
			{From: 1, To: 30, Rate: 1.00},
			{From: 31, To: 49, Rate: 1.25},
			{From: 50, To: 99, Rate: 1.50},
			{From: 100, To: 0, Rate: 1.75},
		},
		FiftyBonus:        8,
		CenturyBonus:      16,
		DuckPenalty:       2,
		StrikeRateScaling: true,
		WicketTiers: []WicketTier{
			{From: 1, To: 2, Points: 15},
			{From: 3, To: 4, Points: 20},
			{From: 5, To: 10, Points: 30},
		},
		EconomyRateCap:          2.0,
		MaidenPoints:            15,
		FiveWicketBonus:         8,
		CatchPoints:             4,
		StumpingPoints:          6,
		RunoutPoints:            6,
		WicketKeeperCatchFactor: 2.0,
	},
}

// ByVersion resolves a ruleset or fails with ErrUnsupportedRuleset.
func ByVersion(version string) (Ruleset, error) {
	rs, ok := rulesets[version]
	if !ok {
		return Ruleset{}, fmt.Errorf("%w: %s", ErrUnsupportedRuleset, version)
	}
	return rs, nil
}

// Versions lists the known ruleset versions.
func Versions() []string {
	out := make([]string, 0, len(rulesets))
	for version := range rulesets {
		out = append(out, version)
	}
	return out
}
