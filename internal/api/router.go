package api

import (
	"net/http"

	"github.com/campushq/campus-api/internal/api/handlers"
	"github.com/campushq/campus-api/internal/api/middleware"
	"github.com/campushq/campus-api/internal/config"
	"github.com/campushq/campus-api/internal/service"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/oauth2"
)

func NewRouter(services *service.Services, oauth *oauth2.Config, cfg *config.Config) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.Prometheus)
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	authHandler := handlers.NewAuthHandler(services.Auth)
	federatedHandler := handlers.NewFederatedHandler(services.Auth, oauth, cfg)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/refresh", authHandler.Refresh)
			r.Post("/federated", federatedHandler.Login)
			r.Get("/federated/callback", federatedHandler.Callback)
			r.Post("/verification/resend", authHandler.ResendVerification)

			// Protected auth routes
			r.Group(func(r chi.Router) {
				r.Use(middleware.Auth(services.Token))
				r.Get("/me", authHandler.Me)
				r.Post("/logout", authHandler.Logout)
				r.Post("/logout-all", authHandler.LogoutAll)
			})
		})
	})

	return r
}
