package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/campushq/campus-api/internal/api"
	"github.com/campushq/campus-api/internal/config"
	"github.com/campushq/campus-api/internal/mail"
	"github.com/campushq/campus-api/internal/repository/postgres"
	"github.com/campushq/campus-api/internal/service"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
)

func main() {
	log := zerolog.New(os.Stderr).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	if cfg.Environment == "development" {
		log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	}

	// Initialize database
	db, err := postgres.NewConnection(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("connect to database")
	}
	repos := postgres.NewRepositories(db)

	// Verification mail dispatch; noop when no queue is configured
	var mailer service.VerificationMailer
	if cfg.RedisAddr != "" {
		enqueuer := mail.NewEnqueuer(cfg.RedisAddr, log)
		defer enqueuer.Close()
		mailer = enqueuer
	} else {
		log.Warn().Msg("REDIS_ADDR not set; verification emails disabled")
		mailer = mail.NewNoopMailer()
	}

	// Federated identity provider; disabled when no issuer is configured
	var identity service.IdentityVerifier = service.NewDisabledVerifier()
	var oauthCfg *oauth2.Config
	if cfg.OIDCIssuerURL != "" {
		idSvc, err := service.NewOIDCIdentityService(context.Background(), cfg)
		if err != nil {
			log.Fatal().Err(err).Msg("discover identity provider")
		}
		identity = idSvc
		oauthCfg = &oauth2.Config{
			ClientID:     cfg.OIDCClientID,
			ClientSecret: cfg.OIDCClientSecret,
			RedirectURL:  cfg.OIDCRedirectURL,
			Endpoint:     idSvc.Endpoint(),
			Scopes:       []string{"openid", "email", "profile"},
		}
	} else {
		log.Warn().Msg("OIDC_ISSUER_URL not set; federated login disabled")
	}

	services := service.NewServices(repos, cfg, identity, mailer, log)
	router := api.NewRouter(services, oauthCfg, cfg)

	srv := &http.Server{
		Addr:         "0.0.0.0:" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("forced shutdown")
	}

	log.Info().Msg("server stopped")
}
