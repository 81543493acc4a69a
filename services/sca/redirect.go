package sca

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"xs2a-consent-engine/pkg/clock"
	"xs2a-consent-engine/services/authorisation"
	"xs2a-consent-engine/services/profile"
)

const redirectLinkLifetime = 10 * time.Minute

// RedirectStrategy sends the PSU to an ASPSP-hosted page. The engine's
// whole contribution is the redirect link; completion arrives later via
// the callback the service exposes.
type RedirectStrategy struct {
	profile profile.AspspProfile
	clock   clock.Clock
}

func NewRedirectStrategy(p profile.AspspProfile, clk clock.Clock) *RedirectStrategy {
	return &RedirectStrategy{profile: p, clock: clk}
}

func (s *RedirectStrategy) Approach() string {
	return ApproachRedirect.String()
}

func (s *RedirectStrategy) StartAuthorisation(ctx context.Context, auth *authorisation.Authorisation) (*authorisation.StartResult, error) {
	link := s.buildLink(uuid.NewString())
	auth.RedirectURI = link
	auth.RedirectExpiresAt = s.clock.Now().Add(redirectLinkLifetime)

	return &authorisation.StartResult{
		ScaStatus:    authorisation.ScaStatusReceived,
		RedirectLink: link,
	}, nil
}

// ApplyUpdate only accepts PSU identification; everything after that
// happens on the ASPSP page.
func (s *RedirectStrategy) ApplyUpdate(ctx context.Context, auth *authorisation.Authorisation, req authorisation.UpdateRequest) (*authorisation.UpdateResult, error) {
	next := auth.ScaStatus
	if auth.ScaStatus == authorisation.ScaStatusReceived && req.PsuID != "" {
		next = authorisation.ScaStatusPsuIdentified
	}
	return &authorisation.UpdateResult{
		ScaStatus:    next,
		RedirectLink: auth.RedirectURI,
	}, nil
}

func (s *RedirectStrategy) buildLink(redirectID string) string {
	base := strings.TrimSuffix(s.profile.RedirectURLToAspsp(), "/")
	return base + "/" + redirectID
}
