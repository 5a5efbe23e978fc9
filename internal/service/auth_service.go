package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/campushq/campus-api/internal/config"
	"github.com/campushq/campus-api/internal/domain"
	"github.com/campushq/campus-api/internal/repository"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// VerificationMailer hands the verification mail off to an external
// dispatcher. Delivery is fire-and-forget from this core's perspective.
type VerificationMailer interface {
	SendVerificationEmail(ctx context.Context, email, verifyURL string) error
}

// AuthService composes the credential store, session store, token issuer,
// client gate and identity verifier into the authentication flows. It holds
// no in-process state; every decision reads the store, so multiple instances
// can run behind a load balancer.
type AuthService struct {
	users         repository.UserRepository
	accounts      repository.AccountRepository
	sessions      repository.SessionRepository
	subscriptions repository.SubscriptionRepository
	clients       *ClientService
	tokens        *TokenService
	identity      IdentityVerifier
	mailer        VerificationMailer
	cfg           *config.Config
	log           zerolog.Logger
}

func NewAuthService(
	repos *repository.Repositories,
	clients *ClientService,
	tokens *TokenService,
	identity IdentityVerifier,
	mailer VerificationMailer,
	cfg *config.Config,
	log zerolog.Logger,
) *AuthService {
	return &AuthService{
		users:         repos.User,
		accounts:      repos.Account,
		sessions:      repos.Session,
		subscriptions: repos.Subscription,
		clients:       clients,
		tokens:        tokens,
		identity:      identity,
		mailer:        mailer,
		cfg:           cfg,
		log:           log,
	}
}

// Credentials identify the first-party API client making the call.
type Credentials struct {
	ClientID     string
	ClientSecret string
}

type RegisterInput struct {
	Credentials
	Email     string
	Password  string
	FirstName string
	LastName  string
	Meta      domain.SessionMeta
}

type LoginInput struct {
	Credentials
	Email    string
	Password string
	Meta     domain.SessionMeta
}

type RefreshInput struct {
	Credentials
	RefreshToken string
}

type FederatedInput struct {
	Credentials
	IDToken     string
	AccessToken string
	Meta        domain.SessionMeta
}

type AuthResult struct {
	User         *domain.User
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64
}

func defaultPreferences() datatypes.JSON {
	return datatypes.JSON([]byte(`{"locale":"en","notifications":{"email":true}}`))
}

func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	if _, err := s.clients.Authenticate(ctx, input.ClientID, input.ClientSecret); err != nil {
		return nil, err
	}

	if input.Email == "" || input.Password == "" || input.FirstName == "" || input.LastName == "" {
		return nil, domain.ErrBadRequest
	}
	email := domain.NormalizeEmail(input.Email)

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, domain.ErrEmailExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: string(hashed),
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Active:       true,
		Preferences:  defaultPreferences(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	// The user row is valid on its own at this point; a mail failure must not
	// roll registration back.
	s.sendVerification(ctx, user)

	return s.startSession(ctx, user, input.Meta)
}

func (s *AuthService) Login(ctx context.Context, input LoginInput) (*AuthResult, error) {
	if _, err := s.clients.Authenticate(ctx, input.ClientID, input.ClientSecret); err != nil {
		return nil, err
	}

	user, err := s.users.GetByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(input.Password))
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	// Disabled accounts and federated-only accounts report the same failure
	// as a wrong password, and burn the same hashing cost.
	if !user.CanSignIn() || user.PasswordHash == "" {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(input.Password))
		return nil, domain.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, domain.ErrInvalidCredentials
	}

	return s.startSession(ctx, user, input.Meta)
}

func (s *AuthService) Refresh(ctx context.Context, input RefreshInput) (*AuthResult, error) {
	if _, err := s.clients.Authenticate(ctx, input.ClientID, input.ClientSecret); err != nil {
		return nil, err
	}
	if input.RefreshToken == "" {
		return nil, domain.ErrBadRequest
	}

	sessionID, err := s.tokens.ParseRefresh(input.RefreshToken)
	if err != nil {
		return nil, domain.ErrInvalidRefreshToken
	}

	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, domain.ErrInvalidRefreshToken
	}

	now := time.Now()
	if !session.Valid(now) {
		return nil, domain.ErrInvalidRefreshToken
	}

	// A well-signed token that is no longer the session's current one was
	// rotated out earlier. Replay is terminal for that token; the session and
	// its current token stay valid.
	presentedHash := hashToken(input.RefreshToken)
	if session.RefreshTokenHash != presentedHash {
		s.log.Warn().Str("session_id", session.ID.String()).Msg("rotated-out refresh token replayed")
		return nil, domain.ErrInvalidRefreshToken
	}

	user, err := s.users.GetByID(ctx, session.UserID)
	if err != nil || !user.CanSignIn() {
		return nil, domain.ErrInvalidRefreshToken
	}

	pair, err := s.tokens.Mint(user, session)
	if err != nil {
		return nil, err
	}

	// CAS rotation. Losing the race to a concurrent refresh with the same
	// token means that call already spent it.
	err = s.sessions.Rotate(ctx, session.ID, presentedHash, hashToken(pair.RefreshToken), now.Add(s.cfg.RefreshTokenTTL))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrInvalidRefreshToken
		}
		return nil, err
	}

	return &AuthResult{
		User:         user,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    pair.ExpiresIn,
	}, nil
}

func (s *AuthService) FederatedLogin(ctx context.Context, input FederatedInput) (*AuthResult, error) {
	if _, err := s.clients.Authenticate(ctx, input.ClientID, input.ClientSecret); err != nil {
		return nil, err
	}
	if input.IDToken == "" && input.AccessToken == "" {
		return nil, domain.ErrBadRequest
	}

	profile, err := s.identity.Verify(ctx, input.IDToken, input.AccessToken)
	if err != nil {
		return nil, err
	}

	user, err := s.reconcileIdentity(ctx, profile)
	if err != nil {
		return nil, err
	}

	return s.startSession(ctx, user, input.Meta)
}

// FederatedCallback is the browser redirect entry: the provider already
// authenticated the first-party web app via the code exchange, so there is no
// separate client credential to gate on.
func (s *AuthService) FederatedCallback(ctx context.Context, idToken string, meta domain.SessionMeta) (*AuthResult, error) {
	profile, err := s.identity.Verify(ctx, idToken, "")
	if err != nil {
		return nil, err
	}
	user, err := s.reconcileIdentity(ctx, profile)
	if err != nil {
		return nil, err
	}
	return s.startSession(ctx, user, meta)
}

// reconcileIdentity maps a verified provider identity onto a local user:
// follow an existing link, merge into an existing user by verified email, or
// create user and link together. This is the subsystem's most
// security-sensitive branch; merge-by-email only happens when the provider
// vouches for the address.
func (s *AuthService) reconcileIdentity(ctx context.Context, profile *domain.IdentityProfile) (*domain.User, error) {
	account, err := s.accounts.GetByProviderSubject(ctx, profile.Provider, profile.Subject)
	if err == nil {
		user, err := s.users.GetByID(ctx, account.UserID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, domain.ErrAccountDisabled
			}
			return nil, err
		}
		if !user.CanSignIn() {
			return nil, domain.ErrAccountDisabled
		}
		return user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	now := time.Now()

	user, err := s.users.GetByEmail(ctx, profile.Email)
	if err == nil {
		if !profile.EmailVerified {
			return nil, domain.ErrInvalidToken
		}
		if !user.CanSignIn() {
			return nil, domain.ErrAccountDisabled
		}
		if err := s.accounts.Create(ctx, &domain.Account{
			ID:                uuid.New(),
			UserID:            user.ID,
			Provider:          profile.Provider,
			ProviderAccountID: profile.Subject,
			Type:              "oauth",
		}); err != nil {
			return nil, err
		}
		if !user.EmailVerified {
			if err := s.users.MarkEmailVerified(ctx, user.ID, now); err != nil {
				return nil, err
			}
			user.EmailVerified = true
			user.EmailVerifiedAt = &now
		}
		return user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	user = &domain.User{
		ID:              uuid.New(),
		Email:           profile.Email,
		FirstName:       profile.FirstName,
		LastName:        profile.LastName,
		AvatarURL:       profile.AvatarURL,
		Active:          true,
		EmailVerified:   true,
		EmailVerifiedAt: &now,
		Preferences:     defaultPreferences(),
	}
	newAccount := &domain.Account{
		ID:                uuid.New(),
		Provider:          profile.Provider,
		ProviderAccountID: profile.Subject,
		Type:              "oauth",
	}
	if err := s.accounts.LinkNewUser(ctx, user, newAccount); err != nil {
		return nil, err
	}
	return user, nil
}

// Logout revokes the one session bound to the presented access token.
func (s *AuthService) Logout(ctx context.Context, sessionID uuid.UUID) error {
	return s.sessions.Revoke(ctx, sessionID)
}

// LogoutAll signs the user out everywhere: every live session is revoked, so
// every outstanding refresh token dies with it.
func (s *AuthService) LogoutAll(ctx context.Context, userID uuid.UUID) error {
	return s.sessions.RevokeAllForUser(ctx, userID)
}

// CurrentUser backs whoami. A missing subscription is not an error.
func (s *AuthService) CurrentUser(ctx context.Context, userID uuid.UUID) (*domain.User, *domain.Subscription, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, domain.ErrUserNotFound
		}
		return nil, nil, err
	}

	sub, err := s.subscriptions.GetByUserID(ctx, userID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, err
		}
		sub = nil
	}
	return user, sub, nil
}

// ResendVerification re-dispatches the verification mail. The response never
// discloses whether the address belongs to an account.
func (s *AuthService) ResendVerification(ctx context.Context, creds Credentials, email string) error {
	if _, err := s.clients.Authenticate(ctx, creds.ClientID, creds.ClientSecret); err != nil {
		return err
	}
	if email == "" {
		return domain.ErrBadRequest
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}
	if user.EmailVerified || !user.CanSignIn() {
		return nil
	}

	s.sendVerification(ctx, user)
	return nil
}

func (s *AuthService) sendVerification(ctx context.Context, user *domain.User) {
	token, err := s.tokens.MintEmailVerification(user.ID)
	if err != nil {
		s.log.Warn().Err(err).Str("user_id", user.ID.String()).Msg("mint verification token")
		return
	}
	verifyURL := fmt.Sprintf("%s?token=%s", s.cfg.VerifyBaseURL, token)
	if err := s.mailer.SendVerificationEmail(ctx, user.Email, verifyURL); err != nil {
		s.log.Warn().Err(err).Str("user_id", user.ID.String()).Msg("send verification email")
	}
}

// startSession creates the session record and mints the token pair for it.
func (s *AuthService) startSession(ctx context.Context, user *domain.User, meta domain.SessionMeta) (*AuthResult, error) {
	now := time.Now()
	session := &domain.Session{
		ID:         uuid.New(),
		UserID:     user.ID,
		IP:         meta.IP,
		UserAgent:  meta.UserAgent,
		DeviceType: meta.DeviceType,
		ExpiresAt:  now.Add(s.cfg.RefreshTokenTTL),
		CreatedAt:  now,
	}

	pair, err := s.tokens.Mint(user, session)
	if err != nil {
		return nil, err
	}
	session.RefreshTokenHash = hashToken(pair.RefreshToken)

	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, err
	}

	if err := s.users.TouchLastLogin(ctx, user.ID, now); err != nil {
		s.log.Warn().Err(err).Str("user_id", user.ID.String()).Msg("update last login")
	}

	return &AuthResult{
		User:         user,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    pair.ExpiresIn,
	}, nil
}
