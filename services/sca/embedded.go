package sca

import (
	"context"

	"xs2a-consent-engine/services/authorisation"
)

// EmbeddedStrategy walks the full SCA flow through the TPP-facing API.
// The stage-check validator already guaranteed the request carries the
// field the current stage requires; credential and OTP verification
// against the bank's core is an external collaborator.
type EmbeddedStrategy struct{}

func NewEmbeddedStrategy() *EmbeddedStrategy {
	return &EmbeddedStrategy{}
}

func (s *EmbeddedStrategy) Approach() string {
	return ApproachEmbedded.String()
}

func (s *EmbeddedStrategy) StartAuthorisation(ctx context.Context, auth *authorisation.Authorisation) (*authorisation.StartResult, error) {
	return &authorisation.StartResult{ScaStatus: authorisation.ScaStatusReceived}, nil
}

func (s *EmbeddedStrategy) ApplyUpdate(ctx context.Context, auth *authorisation.Authorisation, req authorisation.UpdateRequest) (*authorisation.UpdateResult, error) {
	switch auth.ScaStatus {
	case authorisation.ScaStatusReceived:
		return &authorisation.UpdateResult{ScaStatus: authorisation.ScaStatusPsuIdentified}, nil
	case authorisation.ScaStatusPsuIdentified:
		return &authorisation.UpdateResult{ScaStatus: authorisation.ScaStatusPsuAuthenticated}, nil
	case authorisation.ScaStatusPsuAuthenticated:
		return &authorisation.UpdateResult{
			ScaStatus:     authorisation.ScaStatusScaMethodSelected,
			ChallengeData: "An authentication code has been sent to your device",
		}, nil
	case authorisation.ScaStatusScaMethodSelected:
		return &authorisation.UpdateResult{ScaStatus: authorisation.ScaStatusFinalised}, nil
	default:
		return &authorisation.UpdateResult{ScaStatus: auth.ScaStatus}, nil
	}
}
