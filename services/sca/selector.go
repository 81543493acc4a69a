package sca

import (
	"fmt"
	"strings"

	"xs2a-consent-engine/pkg/clock"
	"xs2a-consent-engine/services/authorisation"
	"xs2a-consent-engine/services/profile"
)

// Select resolves the bank-configured SCA approach to its strategy. The
// approach is a bank-wide setting, so selection happens exactly once at
// construction.
func Select(p profile.AspspProfile, clk clock.Clock) (authorisation.ScaStrategy, error) {
	approach := Approach(strings.ToUpper(strings.TrimSpace(p.ScaApproach())))
	switch approach {
	case ApproachRedirect, "":
		return NewRedirectStrategy(p, clk), nil
	case ApproachDecoupled:
		return NewDecoupledStrategy(), nil
	case ApproachEmbedded:
		return NewEmbeddedStrategy(), nil
	case ApproachOauth:
		return NewOAuthStrategy(p), nil
	default:
		return nil, fmt.Errorf("sca: unknown approach %q", p.ScaApproach())
	}
}
