package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/campushq/campus-api/internal/domain"
)

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, errCode, message string) {
	writeJSON(w, code, map[string]string{"error": message, "code": errCode})
}

// writeDomainError maps the failure taxonomy onto stable HTTP codes. Anything
// outside the taxonomy is an internal fault and never leaks detail.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidClient):
		writeErr(w, http.StatusUnauthorized, "invalid_client", "invalid client credentials")
	case errors.Is(err, domain.ErrBadRequest):
		writeErr(w, http.StatusBadRequest, "invalid_request", "missing or malformed request fields")
	case errors.Is(err, domain.ErrEmailExists):
		writeErr(w, http.StatusConflict, "email_exists", "email is already registered")
	case errors.Is(err, domain.ErrInvalidCredentials):
		writeErr(w, http.StatusUnauthorized, "invalid_credentials", "invalid email or password")
	case errors.Is(err, domain.ErrInvalidToken):
		writeErr(w, http.StatusUnauthorized, "invalid_token", "identity token could not be verified")
	case errors.Is(err, domain.ErrAccountDisabled):
		writeErr(w, http.StatusUnauthorized, "account_disabled", "account is disabled")
	case errors.Is(err, domain.ErrInvalidRefreshToken):
		writeErr(w, http.StatusUnauthorized, "invalid_refresh_token", "refresh token is invalid or was already used")
	default:
		writeErr(w, http.StatusInternalServerError, "server_error", "internal server error")
	}
}
