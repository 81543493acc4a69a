package authorisation

import "context"

// StartResult is what a strategy hands back when an authorisation opens:
// the initial SCA status plus the approach-specific artefact the TPP
// relays to the PSU.
type StartResult struct {
	ScaStatus    ScaStatus
	RedirectLink string
	PsuMessage   string
}

// UpdateResult is the outcome of one SCA update under a strategy.
type UpdateResult struct {
	ScaStatus     ScaStatus
	RedirectLink  string
	PsuMessage    string
	ChallengeData string
}

// ScaStrategy is the approach-specific half of the SCA flow. One concrete
// strategy is selected from bank configuration at startup and injected;
// the service never inspects the approach at runtime.
type ScaStrategy interface {
	Approach() string
	StartAuthorisation(ctx context.Context, auth *Authorisation) (*StartResult, error)
	ApplyUpdate(ctx context.Context, auth *Authorisation, req UpdateRequest) (*UpdateResult, error)
}
