package authorisation

import (
	"go.uber.org/fx"

	"xs2a-consent-engine/services/consent"
)

var Module = fx.Module("authorisation.module",
	fx.Provide(
		NewService,
		provideCloser,
	),
)

// provideCloser exposes the service to the consent sweeps under the small
// interface they consume.
func provideCloser(s *Service) consent.AuthorisationCloser {
	return s
}
