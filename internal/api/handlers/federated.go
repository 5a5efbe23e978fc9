package handlers

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/campushq/campus-api/internal/api/middleware"
	"github.com/campushq/campus-api/internal/config"
	"github.com/campushq/campus-api/internal/domain"
	"github.com/campushq/campus-api/internal/service"
	"golang.org/x/oauth2"
)

type FederatedHandler struct {
	authService *service.AuthService
	oauth       *oauth2.Config // nil when no provider is configured
	cfg         *config.Config
}

func NewFederatedHandler(authService *service.AuthService, oauth *oauth2.Config, cfg *config.Config) *FederatedHandler {
	return &FederatedHandler{authService: authService, oauth: oauth, cfg: cfg}
}

type FederatedLoginRequest struct {
	ClientID     string `json:"client_id" validate:"required"`
	ClientSecret string `json:"client_secret" validate:"required"`
	IDToken      string `json:"id_token"`
	AccessToken  string `json:"access_token"`
}

// Login is the token-based federated entry: the caller already holds a
// provider credential and exchanges it directly.
func (h *FederatedHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req FederatedLoginRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeDomainError(w, err)
		return
	}

	result, err := h.authService.FederatedLogin(r.Context(), service.FederatedInput{
		Credentials: service.Credentials{ClientID: req.ClientID, ClientSecret: req.ClientSecret},
		IDToken:     req.IDToken,
		AccessToken: req.AccessToken,
		Meta:        sessionMeta(r),
	})
	middleware.RecordAuthAttempt("federated", err == nil)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, newAuthResponse(result))
}

// Callback is the browser redirect entry: exchange the provider code for an
// id token, sign the user in, and bounce back to the web app with tokens in
// the query string (or to the error page).
func (h *FederatedHandler) Callback(w http.ResponseWriter, r *http.Request) {
	if h.oauth == nil {
		http.Redirect(w, r, buildRedirectTarget(h.cfg.AppRedirectURL, h.cfg.ErrorRedirectURL, nil, domain.ErrInvalidToken), http.StatusFound)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		http.Redirect(w, r, buildRedirectTarget(h.cfg.AppRedirectURL, h.cfg.ErrorRedirectURL, nil, domain.ErrBadRequest), http.StatusFound)
		return
	}

	token, err := h.oauth.Exchange(r.Context(), code)
	if err != nil {
		http.Redirect(w, r, buildRedirectTarget(h.cfg.AppRedirectURL, h.cfg.ErrorRedirectURL, nil, domain.ErrInvalidToken), http.StatusFound)
		return
	}

	rawIDToken, _ := token.Extra("id_token").(string)
	result, err := h.authService.FederatedCallback(r.Context(), rawIDToken, sessionMeta(r))
	middleware.RecordAuthAttempt("federated_callback", err == nil)

	http.Redirect(w, r, buildRedirectTarget(h.cfg.AppRedirectURL, h.cfg.ErrorRedirectURL, result, err), http.StatusFound)
}

// buildRedirectTarget turns a federated outcome into the URL the browser is
// sent to. Pure; the HTTP binding above is the only caller.
func buildRedirectTarget(successURL, errorURL string, result *service.AuthResult, err error) string {
	if err != nil || result == nil {
		u, parseErr := url.Parse(errorURL)
		if parseErr != nil {
			return errorURL
		}
		q := u.Query()
		q.Set("error", errorCode(err))
		u.RawQuery = q.Encode()
		return u.String()
	}

	u, parseErr := url.Parse(successURL)
	if parseErr != nil {
		return successURL
	}
	q := u.Query()
	q.Set("access_token", result.AccessToken)
	q.Set("refresh_token", result.RefreshToken)
	q.Set("expires_in", strconv.FormatInt(result.ExpiresIn, 10))
	u.RawQuery = q.Encode()
	return u.String()
}

func errorCode(err error) string {
	switch err {
	case domain.ErrBadRequest:
		return "invalid_request"
	case domain.ErrAccountDisabled:
		return "account_disabled"
	case domain.ErrInvalidToken:
		return "invalid_token"
	default:
		return "server_error"
	}
}
