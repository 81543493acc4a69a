package sca

import (
	"testing"

	"github.com/stretchr/testify/require"

	"xs2a-consent-engine/pkg/clock"
	"xs2a-consent-engine/pkg/config"
	"xs2a-consent-engine/services/profile"
)

func profileWithApproach(approach string) profile.AspspProfile {
	cfg := &config.Config{}
	cfg.BankProfile.ScaApproach = approach
	cfg.BankProfile.RedirectURLToAspsp = "https://bank.example/sca"
	cfg.BankProfile.OauthTokenSecret = "oauth-secret"
	return profile.New(cfg)
}

func TestSelect(t *testing.T) {
	clk := clock.NewReal()

	cases := []struct {
		configured string
		want       string
	}{
		{"REDIRECT", "REDIRECT"},
		{"redirect", "REDIRECT"},
		{" Redirect ", "REDIRECT"},
		{"", "REDIRECT"},
		{"DECOUPLED", "DECOUPLED"},
		{"EMBEDDED", "EMBEDDED"},
		{"OAUTH", "OAUTH"},
	}
	for _, tc := range cases {
		strategy, err := Select(profileWithApproach(tc.configured), clk)
		require.NoError(t, err, tc.configured)
		require.Equal(t, tc.want, strategy.Approach(), tc.configured)
	}
}

func TestSelectUnknownApproach(t *testing.T) {
	_, err := Select(profileWithApproach("CARRIER_PIGEON"), clock.NewReal())
	require.Error(t, err)
	require.Contains(t, err.Error(), "CARRIER_PIGEON")
}
