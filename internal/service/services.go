package service

import (
	"github.com/campushq/campus-api/internal/config"
	"github.com/campushq/campus-api/internal/repository"
	"github.com/rs/zerolog"
)

type Services struct {
	Auth   *AuthService
	Client *ClientService
	Token  *TokenService
}

func NewServices(
	repos *repository.Repositories,
	cfg *config.Config,
	identity IdentityVerifier,
	mailer VerificationMailer,
	log zerolog.Logger,
) *Services {
	clients := NewClientService(repos.ApiClient)
	tokens := NewTokenService(cfg)

	return &Services{
		Auth:   NewAuthService(repos, clients, tokens, identity, mailer, cfg, log),
		Client: clients,
		Token:  tokens,
	}
}
