package sca

import (
	"context"

	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"

	"xs2a-consent-engine/pkg/errutil"
	"xs2a-consent-engine/services/authorisation"
	"xs2a-consent-engine/services/profile"
)

// OAuthStrategy stands in for SCA with an OAuth2 token obtained in a
// pre-step: a valid bearer token finalises the authorisation in one
// update.
type OAuthStrategy struct {
	profile profile.AspspProfile
	parser  *jwt.Parser
}

func NewOAuthStrategy(p profile.AspspProfile) *OAuthStrategy {
	return &OAuthStrategy{
		profile: p,
		parser:  jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})),
	}
}

func (s *OAuthStrategy) Approach() string {
	return ApproachOauth.String()
}

func (s *OAuthStrategy) StartAuthorisation(ctx context.Context, auth *authorisation.Authorisation) (*authorisation.StartResult, error) {
	return &authorisation.StartResult{ScaStatus: authorisation.ScaStatusReceived}, nil
}

func (s *OAuthStrategy) ApplyUpdate(ctx context.Context, auth *authorisation.Authorisation, req authorisation.UpdateRequest) (*authorisation.UpdateResult, error) {
	if req.AccessToken == "" {
		return nil, errutil.Unauthorized("access token is required under the OAuth approach",
			errutil.WithTppMessage(authorisation.ErrorTypeFor(auth.Type), errutil.CodePsuCredentialsInvalid))
	}

	token, err := s.parser.Parse(req.AccessToken, func(t *jwt.Token) (interface{}, error) {
		return []byte(s.profile.OauthTokenSecret()), nil
	})
	if err != nil || !token.Valid {
		zap.L().Warn("rejected OAuth pre-step token", zap.Error(err))
		return nil, errutil.Unauthorized("access token is invalid",
			errutil.WithTppMessage(authorisation.ErrorTypeFor(auth.Type), errutil.CodePsuCredentialsInvalid))
	}

	return &authorisation.UpdateResult{ScaStatus: authorisation.ScaStatusFinalised}, nil
}
