package usecase

import "errors"

var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrNotFound              = errors.New("resource not found")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrDependencyUnavailable = errors.New("dependency unavailable")

	// State-machine errors surface to the admin unchanged; never retried.
	ErrIllegalTransition  = errors.New("illegal league transition")
	ErrTeamsNotFinalized  = errors.New("teams not finalized")
	ErrLeagueNotJoinable  = errors.New("league not joinable")
	ErrTeamNotEditable    = errors.New("team not editable")
	ErrRulesViolated      = errors.New("team rules violated")
	ErrUnknownPlayer      = errors.New("unknown player")
	ErrSnapshotMissing    = errors.New("multiplier snapshot missing")
	ErrIngestionCancelled = errors.New("ingestion cancelled")
)
