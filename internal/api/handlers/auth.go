package handlers

import (
	"encoding/json"
	"net"
	"net/http"

	"github.com/campushq/campus-api/internal/api/middleware"
	"github.com/campushq/campus-api/internal/domain"
	"github.com/campushq/campus-api/internal/service"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

type AuthHandler struct {
	authService *service.AuthService
}

func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

type RegisterRequest struct {
	ClientID     string `json:"client_id" validate:"required"`
	ClientSecret string `json:"client_secret" validate:"required"`
	Email        string `json:"email" validate:"required,email"`
	Password     string `json:"password" validate:"required,min=8,max=128"`
	FirstName    string `json:"firstName" validate:"required,max=100"`
	LastName     string `json:"lastName" validate:"required,max=100"`
}

type LoginRequest struct {
	ClientID     string `json:"client_id" validate:"required"`
	ClientSecret string `json:"client_secret" validate:"required"`
	Email        string `json:"email" validate:"required,email"`
	Password     string `json:"password" validate:"required"`
}

type RefreshRequest struct {
	ClientID     string `json:"client_id" validate:"required"`
	ClientSecret string `json:"client_secret" validate:"required"`
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type ResendVerificationRequest struct {
	ClientID     string `json:"client_id" validate:"required"`
	ClientSecret string `json:"client_secret" validate:"required"`
	Email        string `json:"email" validate:"required,email"`
}

type UserResponse struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"fullName"`
}

type AuthResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	TokenType    string       `json:"token_type"`
	ExpiresIn    int64        `json:"expires_in"`
	User         UserResponse `json:"user"`
}

func newAuthResponse(result *service.AuthResult) AuthResponse {
	return AuthResponse{
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    result.ExpiresIn,
		User: UserResponse{
			ID:       result.User.ID.String(),
			Email:    result.User.Email,
			FullName: result.User.FullName(),
		},
	}
}

func sessionMeta(r *http.Request) domain.SessionMeta {
	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		ip = host
	}
	return domain.SessionMeta{
		IP:         ip,
		UserAgent:  r.UserAgent(),
		DeviceType: r.Header.Get("X-Device-Type"),
	}
}

func decodeAndValidate(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return domain.ErrBadRequest
	}
	if err := validate.Struct(dst); err != nil {
		return domain.ErrBadRequest
	}
	return nil
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeDomainError(w, err)
		return
	}

	result, err := h.authService.Register(r.Context(), service.RegisterInput{
		Credentials: service.Credentials{ClientID: req.ClientID, ClientSecret: req.ClientSecret},
		Email:       req.Email,
		Password:    req.Password,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Meta:        sessionMeta(r),
	})
	middleware.RecordAuthAttempt("register", err == nil)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, newAuthResponse(result))
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeDomainError(w, err)
		return
	}

	result, err := h.authService.Login(r.Context(), service.LoginInput{
		Credentials: service.Credentials{ClientID: req.ClientID, ClientSecret: req.ClientSecret},
		Email:       req.Email,
		Password:    req.Password,
		Meta:        sessionMeta(r),
	})
	middleware.RecordAuthAttempt("login", err == nil)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, newAuthResponse(result))
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeDomainError(w, err)
		return
	}

	result, err := h.authService.Refresh(r.Context(), service.RefreshInput{
		Credentials:  service.Credentials{ClientID: req.ClientID, ClientSecret: req.ClientSecret},
		RefreshToken: req.RefreshToken,
	})
	middleware.RecordAuthAttempt("refresh", err == nil)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, newAuthResponse(result))
}

func (h *AuthHandler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	var req ResendVerificationRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeDomainError(w, err)
		return
	}

	err := h.authService.ResendVerification(r.Context(),
		service.Credentials{ClientID: req.ClientID, ClientSecret: req.ClientSecret},
		req.Email,
	)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"accepted": true})
}

type MeResponse struct {
	UserResponse
	EmailVerified bool                 `json:"emailVerified"`
	Subscription  *SubscriptionSummary `json:"subscription,omitempty"`
}

type SubscriptionSummary struct {
	Plan   string `json:"plan"`
	Status string `json:"status"`
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	user, sub, err := h.authService.CurrentUser(r.Context(), userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := MeResponse{
		UserResponse: UserResponse{
			ID:       user.ID.String(),
			Email:    user.Email,
			FullName: user.FullName(),
		},
		EmailVerified: user.EmailVerified,
	}
	if sub != nil {
		resp.Subscription = &SubscriptionSummary{
			Plan:   sub.Plan.Name,
			Status: sub.Status,
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := middleware.GetSessionID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if err := h.authService.Logout(r.Context(), sessionID); err != nil {
		writeDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (h *AuthHandler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if err := h.authService.LogoutAll(r.Context(), userID); err != nil {
		writeDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}
