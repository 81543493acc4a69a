package profile

import (
	"time"

	"go.uber.org/fx"

	"xs2a-consent-engine/pkg/config"
)

var Module = fx.Module("aspsp.profile",
	fx.Provide(New),
)

// AspspProfile exposes the bank-wide settings the engine consumes. The
// real profile system (bank YAML, remote updates) is an external
// collaborator; this implementation serves the values from static
// configuration.
type AspspProfile interface {
	MaxFrequencyPerDay() int
	NotConfirmedConsentExpiration() time.Duration
	NotConfirmedPaymentExpiration() time.Duration
	MultilevelScaEnabled() bool
	ScaApproach() string
	AuthorisationConfirmationRequestMandated() bool
	RedirectURLToAspsp() string
	OauthTokenSecret() string
}

type service struct {
	cfg *config.Config
}

func New(cfg *config.Config) AspspProfile {
	return &service{cfg: cfg}
}

func (s *service) MaxFrequencyPerDay() int {
	if s.cfg.BankProfile.MaxFrequencyPerDay <= 0 {
		return 4
	}
	return s.cfg.BankProfile.MaxFrequencyPerDay
}

func (s *service) NotConfirmedConsentExpiration() time.Duration {
	if s.cfg.BankProfile.NotConfirmedConsentExpiration <= 0 {
		return 24 * time.Hour
	}
	return s.cfg.BankProfile.NotConfirmedConsentExpiration
}

func (s *service) NotConfirmedPaymentExpiration() time.Duration {
	if s.cfg.BankProfile.NotConfirmedPaymentExpiration <= 0 {
		return 24 * time.Hour
	}
	return s.cfg.BankProfile.NotConfirmedPaymentExpiration
}

func (s *service) MultilevelScaEnabled() bool {
	return s.cfg.BankProfile.MultilevelScaEnabled
}

func (s *service) ScaApproach() string {
	return s.cfg.BankProfile.ScaApproach
}

func (s *service) AuthorisationConfirmationRequestMandated() bool {
	return s.cfg.BankProfile.AuthorisationConfirmationRequestMandated
}

func (s *service) RedirectURLToAspsp() string {
	return s.cfg.BankProfile.RedirectURLToAspsp
}

func (s *service) OauthTokenSecret() string {
	return s.cfg.BankProfile.OauthTokenSecret
}
