package domain

import "errors"

// Failure taxonomy surfaced to callers. Handlers map these to HTTP statuses;
// anything else is an internal fault and comes back as a generic server error.
var (
	ErrInvalidClient       = errors.New("invalid client credentials")
	ErrBadRequest          = errors.New("missing or malformed request fields")
	ErrEmailExists         = errors.New("email already registered")
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrInvalidToken        = errors.New("invalid identity token")
	ErrAccountDisabled     = errors.New("account is disabled")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrUserNotFound        = errors.New("user not found")
)
