package sca

import (
	"context"

	"xs2a-consent-engine/services/authorisation"
)

const decoupledPsuMessage = "Please confirm the operation in your banking app"

// DecoupledStrategy hands SCA to an out-of-band channel (mobile app
// push). The engine acknowledges the start and waits for the decoupled
// confirmation callback.
type DecoupledStrategy struct{}

func NewDecoupledStrategy() *DecoupledStrategy {
	return &DecoupledStrategy{}
}

func (s *DecoupledStrategy) Approach() string {
	return ApproachDecoupled.String()
}

func (s *DecoupledStrategy) StartAuthorisation(ctx context.Context, auth *authorisation.Authorisation) (*authorisation.StartResult, error) {
	return &authorisation.StartResult{
		ScaStatus:  authorisation.ScaStatusReceived,
		PsuMessage: decoupledPsuMessage,
	}, nil
}

func (s *DecoupledStrategy) ApplyUpdate(ctx context.Context, auth *authorisation.Authorisation, req authorisation.UpdateRequest) (*authorisation.UpdateResult, error) {
	next := auth.ScaStatus
	if auth.ScaStatus == authorisation.ScaStatusReceived && req.PsuID != "" {
		next = authorisation.ScaStatusPsuIdentified
	}
	return &authorisation.UpdateResult{
		ScaStatus:  next,
		PsuMessage: decoupledPsuMessage,
	}, nil
}
