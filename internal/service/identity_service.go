package service

import (
	"context"
	"time"

	"github.com/campushq/campus-api/internal/config"
	"github.com/campushq/campus-api/internal/domain"
	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

// IdentityVerifier validates a federated credential and normalizes the
// provider's profile. Exactly one of idToken/accessToken must be supplied.
type IdentityVerifier interface {
	Verify(ctx context.Context, idToken, accessToken string) (*domain.IdentityProfile, error)
	Provider() string
}

// OIDCIdentityService verifies against a single configured OIDC provider:
// id tokens cryptographically against the provider's JWKS (signature,
// audience, issuer), access tokens by calling the userinfo endpoint.
type OIDCIdentityService struct {
	provider *oidc.Provider
	verifier *oidc.IDTokenVerifier
	name     string
	timeout  time.Duration
}

func NewOIDCIdentityService(ctx context.Context, cfg *config.Config) (*OIDCIdentityService, error) {
	provider, err := oidc.NewProvider(ctx, cfg.OIDCIssuerURL)
	if err != nil {
		return nil, err
	}
	return &OIDCIdentityService{
		provider: provider,
		verifier: provider.Verifier(&oidc.Config{ClientID: cfg.OIDCClientID}),
		name:     cfg.OIDCProviderName,
		timeout:  cfg.ProviderTimeout,
	}, nil
}

// Endpoint exposes the provider's OAuth2 endpoint for the callback exchange.
func (s *OIDCIdentityService) Endpoint() oauth2.Endpoint {
	return s.provider.Endpoint()
}

func (s *OIDCIdentityService) Provider() string {
	return s.name
}

type providerClaims struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	GivenName     string `json:"given_name"`
	FamilyName    string `json:"family_name"`
	Picture       string `json:"picture"`
}

func (s *OIDCIdentityService) Verify(ctx context.Context, idToken, accessToken string) (*domain.IdentityProfile, error) {
	if idToken == "" && accessToken == "" {
		return nil, domain.ErrBadRequest
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var subject string
	var claims providerClaims

	if idToken != "" {
		token, err := s.verifier.Verify(ctx, idToken)
		if err != nil {
			return nil, domain.ErrInvalidToken
		}
		if err := token.Claims(&claims); err != nil {
			return nil, domain.ErrInvalidToken
		}
		subject = token.Subject
	} else {
		info, err := s.provider.UserInfo(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken}))
		if err != nil {
			return nil, domain.ErrInvalidToken
		}
		if err := info.Claims(&claims); err != nil {
			return nil, domain.ErrInvalidToken
		}
		subject = info.Subject
		claims.Email = info.Email
		claims.EmailVerified = info.EmailVerified
	}

	if claims.Email == "" || subject == "" {
		return nil, domain.ErrInvalidToken
	}

	return &domain.IdentityProfile{
		Provider:      s.name,
		Subject:       subject,
		Email:         domain.NormalizeEmail(claims.Email),
		EmailVerified: claims.EmailVerified,
		FirstName:     claims.GivenName,
		LastName:      claims.FamilyName,
		AvatarURL:     claims.Picture,
	}, nil
}

// disabledVerifier backs deployments with no OIDC provider configured.
type disabledVerifier struct{}

func NewDisabledVerifier() IdentityVerifier {
	return disabledVerifier{}
}

func (disabledVerifier) Verify(_ context.Context, idToken, accessToken string) (*domain.IdentityProfile, error) {
	if idToken == "" && accessToken == "" {
		return nil, domain.ErrBadRequest
	}
	return nil, domain.ErrInvalidToken
}

func (disabledVerifier) Provider() string { return "" }
