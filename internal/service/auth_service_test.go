package service_test

import (
	"context"
	"testing"

	"github.com/campushq/campus-api/internal/domain"
	"github.com/campushq/campus-api/internal/service"
	"github.com/campushq/campus-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubVerifier stands in for the OIDC provider in federated-flow tests.
type stubVerifier struct {
	profile *domain.IdentityProfile
	err     error
}

func (s *stubVerifier) Verify(_ context.Context, idToken, accessToken string) (*domain.IdentityProfile, error) {
	if idToken == "" && accessToken == "" {
		return nil, domain.ErrBadRequest
	}
	if s.err != nil {
		return nil, s.err
	}
	p := *s.profile
	return &p, nil
}

func (s *stubVerifier) Provider() string { return "testprov" }

func TestAuthService_Register(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	services := testutil.NewServices(t, testDB, nil)
	ctx := context.Background()

	tests := []struct {
		name    string
		input   func(creds service.Credentials) service.RegisterInput
		setup   func()
		wantErr error
	}{
		{
			name: "successful registration",
			input: func(creds service.Credentials) service.RegisterInput {
				return service.RegisterInput{
					Credentials: creds,
					Email:       "Ana.Lee@Example.com",
					Password:    "Passw0rd!",
					FirstName:   "Ana",
					LastName:    "Lee",
				}
			},
		},
		{
			name: "duplicate email",
			input: func(creds service.Credentials) service.RegisterInput {
				return service.RegisterInput{
					Credentials: creds,
					Email:       "taken@example.com",
					Password:    "Passw0rd!",
					FirstName:   "Ana",
					LastName:    "Lee",
				}
			},
			setup: func() {
				testutil.NewUserBuilder().WithEmail("taken@example.com").Build(t, testDB.DB)
			},
			wantErr: domain.ErrEmailExists,
		},
		{
			name: "missing fields",
			input: func(creds service.Credentials) service.RegisterInput {
				return service.RegisterInput{
					Credentials: creds,
					Email:       "incomplete@example.com",
					Password:    "Passw0rd!",
				}
			},
			wantErr: domain.ErrBadRequest,
		},
		{
			name: "bad client credentials",
			input: func(creds service.Credentials) service.RegisterInput {
				return service.RegisterInput{
					Credentials: service.Credentials{ClientID: creds.ClientID, ClientSecret: "wrong"},
					Email:       "gated@example.com",
					Password:    "Passw0rd!",
					FirstName:   "Ana",
					LastName:    "Lee",
				}
			},
			wantErr: domain.ErrInvalidClient,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			testDB.Truncate(t)
			_, secret := testutil.NewApiClientBuilder().WithClientID("web").Build(t, testDB.DB)
			creds := service.Credentials{ClientID: "web", ClientSecret: secret}

			if tt.setup != nil {
				tt.setup()
			}

			result, err := services.Auth.Register(ctx, tt.input(creds))

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.NotEmpty(t, result.AccessToken)
			assert.NotEmpty(t, result.RefreshToken)
			assert.Equal(t, "ana.lee@example.com", result.User.Email)
			assert.False(t, result.User.EmailVerified)
		})
	}
}

func TestAuthService_Login(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	services := testutil.NewServices(t, testDB, nil)
	ctx := context.Background()

	_, secret := testutil.NewApiClientBuilder().WithClientID("web").Build(t, testDB.DB)
	creds := service.Credentials{ClientID: "web", ClientSecret: secret}

	user, rawPassword := testutil.NewUserBuilder().
		WithEmail("login@example.com").
		WithPassword("correctpassword").
		Build(t, testDB.DB)
	testutil.NewUserBuilder().
		WithEmail("inactive@example.com").
		WithPassword("correctpassword").
		Inactive().
		Build(t, testDB.DB)

	tests := []struct {
		name     string
		email    string
		password string
		wantErr  error
	}{
		{
			name:     "successful login",
			email:    user.Email,
			password: rawPassword,
		},
		{
			name:     "email case insensitive",
			email:    "LOGIN@example.com",
			password: rawPassword,
		},
		{
			name:     "wrong password",
			email:    user.Email,
			password: "wrongpassword",
			wantErr:  domain.ErrInvalidCredentials,
		},
		{
			name:     "non-existent user",
			email:    "nobody@example.com",
			password: "anypassword",
			wantErr:  domain.ErrInvalidCredentials,
		},
		{
			name:     "inactive user",
			email:    "inactive@example.com",
			password: "correctpassword",
			wantErr:  domain.ErrInvalidCredentials,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := services.Auth.Login(ctx, service.LoginInput{
				Credentials: creds,
				Email:       tt.email,
				Password:    tt.password,
			})

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, user.ID, result.User.ID)
			assert.NotEmpty(t, result.AccessToken)
			assert.NotEmpty(t, result.RefreshToken)
		})
	}
}

func TestAuthService_RefreshRotation(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	services := testutil.NewServices(t, testDB, nil)
	ctx := context.Background()

	_, secret := testutil.NewApiClientBuilder().WithClientID("web").Build(t, testDB.DB)
	creds := service.Credentials{ClientID: "web", ClientSecret: secret}

	registered, err := services.Auth.Register(ctx, service.RegisterInput{
		Credentials: creds,
		Email:       "rotate@example.com",
		Password:    "Passw0rd!",
		FirstName:   "Ana",
		LastName:    "Lee",
	})
	require.NoError(t, err)

	original := registered.RefreshToken

	// First refresh succeeds and returns a different token.
	first, err := services.Auth.Refresh(ctx, service.RefreshInput{Credentials: creds, RefreshToken: original})
	require.NoError(t, err)
	assert.NotEqual(t, original, first.RefreshToken)

	// Replaying the rotated-out token fails, even though it has not expired.
	_, err = services.Auth.Refresh(ctx, service.RefreshInput{Credentials: creds, RefreshToken: original})
	assert.ErrorIs(t, err, domain.ErrInvalidRefreshToken)

	// The rotated-in token is unaffected by the replay attempt.
	second, err := services.Auth.Refresh(ctx, service.RefreshInput{Credentials: creds, RefreshToken: first.RefreshToken})
	require.NoError(t, err)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)
}

func TestAuthService_Refresh_Failures(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	services := testutil.NewServices(t, testDB, nil)
	ctx := context.Background()

	_, secret := testutil.NewApiClientBuilder().WithClientID("web").Build(t, testDB.DB)
	creds := service.Credentials{ClientID: "web", ClientSecret: secret}

	_, err := services.Auth.Refresh(ctx, service.RefreshInput{Credentials: creds})
	assert.ErrorIs(t, err, domain.ErrBadRequest)

	_, err = services.Auth.Refresh(ctx, service.RefreshInput{Credentials: creds, RefreshToken: "not-a-token"})
	assert.ErrorIs(t, err, domain.ErrInvalidRefreshToken)
}

func TestAuthService_LogoutAll(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	services := testutil.NewServices(t, testDB, nil)
	ctx := context.Background()

	_, secret := testutil.NewApiClientBuilder().WithClientID("web").Build(t, testDB.DB)
	creds := service.Credentials{ClientID: "web", ClientSecret: secret}

	_, rawPassword := testutil.NewUserBuilder().
		WithEmail("everywhere@example.com").
		Build(t, testDB.DB)

	// Two devices, two sessions.
	login := func() *service.AuthResult {
		result, err := services.Auth.Login(ctx, service.LoginInput{
			Credentials: creds,
			Email:       "everywhere@example.com",
			Password:    rawPassword,
		})
		require.NoError(t, err)
		return result
	}
	deviceA := login()
	deviceB := login()

	require.NoError(t, services.Auth.LogoutAll(ctx, deviceA.User.ID))

	for _, token := range []string{deviceA.RefreshToken, deviceB.RefreshToken} {
		_, err := services.Auth.Refresh(ctx, service.RefreshInput{Credentials: creds, RefreshToken: token})
		assert.ErrorIs(t, err, domain.ErrInvalidRefreshToken)
	}
}

func TestAuthService_Logout_Idempotent(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	services := testutil.NewServices(t, testDB, nil)
	ctx := context.Background()

	_, secret := testutil.NewApiClientBuilder().WithClientID("web").Build(t, testDB.DB)
	creds := service.Credentials{ClientID: "web", ClientSecret: secret}

	result, err := services.Auth.Register(ctx, service.RegisterInput{
		Credentials: creds,
		Email:       "logout@example.com",
		Password:    "Passw0rd!",
		FirstName:   "Log",
		LastName:    "Out",
	})
	require.NoError(t, err)

	sessionID, err := services.Token.ParseRefresh(result.RefreshToken)
	require.NoError(t, err)

	require.NoError(t, services.Auth.Logout(ctx, sessionID))
	require.NoError(t, services.Auth.Logout(ctx, sessionID))

	_, err = services.Auth.Refresh(ctx, service.RefreshInput{Credentials: creds, RefreshToken: result.RefreshToken})
	assert.ErrorIs(t, err, domain.ErrInvalidRefreshToken)
}

func TestAuthService_FederatedLogin(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	ctx := context.Background()

	profile := &domain.IdentityProfile{
		Provider:      "testprov",
		Subject:       "subject-1",
		Email:         "fed@example.com",
		EmailVerified: true,
		FirstName:     "Fede",
		LastName:      "Rated",
	}
	verifier := &stubVerifier{profile: profile}
	services := testutil.NewServices(t, testDB, verifier)

	_, secret := testutil.NewApiClientBuilder().WithClientID("web").Build(t, testDB.DB)
	creds := service.Credentials{ClientID: "web", ClientSecret: secret}

	input := service.FederatedInput{Credentials: creds, IDToken: "provider-id-token"}

	// First login creates the user and its identity link in one unit.
	first, err := services.Auth.FederatedLogin(ctx, input)
	require.NoError(t, err)
	assert.True(t, first.User.EmailVerified)
	assert.Empty(t, first.User.PasswordHash)

	// Second login with the same provider identity resolves to the same user
	// and creates no second link.
	second, err := services.Auth.FederatedLogin(ctx, input)
	require.NoError(t, err)
	assert.Equal(t, first.User.ID, second.User.ID)

	var accountCount int64
	require.NoError(t, testDB.DB.Model(&domain.Account{}).Count(&accountCount).Error)
	assert.EqualValues(t, 1, accountCount)

	var userCount int64
	require.NoError(t, testDB.DB.Model(&domain.User{}).Count(&userCount).Error)
	assert.EqualValues(t, 1, userCount)
}

func TestAuthService_FederatedLogin_MergeByEmail(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	ctx := context.Background()

	profile := &domain.IdentityProfile{
		Provider:      "testprov",
		Subject:       "subject-merge",
		Email:         "merge@example.com",
		EmailVerified: true,
	}
	services := testutil.NewServices(t, testDB, &stubVerifier{profile: profile})

	_, secret := testutil.NewApiClientBuilder().WithClientID("web").Build(t, testDB.DB)
	creds := service.Credentials{ClientID: "web", ClientSecret: secret}

	existing, _ := testutil.NewUserBuilder().
		WithEmail("merge@example.com").
		Build(t, testDB.DB)
	require.False(t, existing.EmailVerified)

	result, err := services.Auth.FederatedLogin(ctx, service.FederatedInput{
		Credentials: creds,
		IDToken:     "provider-id-token",
	})
	require.NoError(t, err)

	// Same underlying user, one new link, email now verified.
	assert.Equal(t, existing.ID, result.User.ID)

	var userCount int64
	require.NoError(t, testDB.DB.Model(&domain.User{}).Count(&userCount).Error)
	assert.EqualValues(t, 1, userCount)

	var account domain.Account
	require.NoError(t, testDB.DB.First(&account, "provider = ? AND provider_account_id = ?", "testprov", "subject-merge").Error)
	assert.Equal(t, existing.ID, account.UserID)

	var reloaded domain.User
	require.NoError(t, testDB.DB.First(&reloaded, "id = ?", existing.ID).Error)
	assert.True(t, reloaded.EmailVerified)
	assert.NotNil(t, reloaded.EmailVerifiedAt)
}

func TestAuthService_FederatedLogin_Failures(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	ctx := context.Background()

	_, secret := testutil.NewApiClientBuilder().WithClientID("web").Build(t, testDB.DB)
	creds := service.Credentials{ClientID: "web", ClientSecret: secret}

	t.Run("no credential form", func(t *testing.T) {
		services := testutil.NewServices(t, testDB, &stubVerifier{})
		_, err := services.Auth.FederatedLogin(ctx, service.FederatedInput{Credentials: creds})
		assert.ErrorIs(t, err, domain.ErrBadRequest)
	})

	t.Run("provider rejects token", func(t *testing.T) {
		services := testutil.NewServices(t, testDB, &stubVerifier{err: domain.ErrInvalidToken})
		_, err := services.Auth.FederatedLogin(ctx, service.FederatedInput{Credentials: creds, IDToken: "bad"})
		assert.ErrorIs(t, err, domain.ErrInvalidToken)
	})

	t.Run("unverified provider email cannot merge", func(t *testing.T) {
		testutil.NewUserBuilder().WithEmail("unverified-merge@example.com").Build(t, testDB.DB)
		services := testutil.NewServices(t, testDB, &stubVerifier{profile: &domain.IdentityProfile{
			Provider:      "testprov",
			Subject:       "subject-unverified",
			Email:         "unverified-merge@example.com",
			EmailVerified: false,
		}})
		_, err := services.Auth.FederatedLogin(ctx, service.FederatedInput{Credentials: creds, IDToken: "tok"})
		assert.ErrorIs(t, err, domain.ErrInvalidToken)
	})

	t.Run("linked user disabled", func(t *testing.T) {
		disabled, _ := testutil.NewUserBuilder().
			WithEmail("disabled-fed@example.com").
			Inactive().
			Build(t, testDB.DB)
		require.NoError(t, testDB.DB.Create(&domain.Account{
			UserID:            disabled.ID,
			Provider:          "testprov",
			ProviderAccountID: "subject-disabled",
			Type:              "oauth",
		}).Error)

		services := testutil.NewServices(t, testDB, &stubVerifier{profile: &domain.IdentityProfile{
			Provider:      "testprov",
			Subject:       "subject-disabled",
			Email:         "disabled-fed@example.com",
			EmailVerified: true,
		}})
		_, err := services.Auth.FederatedLogin(ctx, service.FederatedInput{Credentials: creds, IDToken: "tok"})
		assert.ErrorIs(t, err, domain.ErrAccountDisabled)
	})
}

func TestAuthService_ResendVerification(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	services := testutil.NewServices(t, testDB, nil)
	ctx := context.Background()

	_, secret := testutil.NewApiClientBuilder().WithClientID("web").Build(t, testDB.DB)
	creds := service.Credentials{ClientID: "web", ClientSecret: secret}

	testutil.NewUserBuilder().WithEmail("pending@example.com").Build(t, testDB.DB)
	testutil.NewUserBuilder().WithEmail("done@example.com").Verified().Build(t, testDB.DB)

	// No account enumeration: unknown addresses and already-verified users
	// both come back clean.
	assert.NoError(t, services.Auth.ResendVerification(ctx, creds, "pending@example.com"))
	assert.NoError(t, services.Auth.ResendVerification(ctx, creds, "done@example.com"))
	assert.NoError(t, services.Auth.ResendVerification(ctx, creds, "ghost@example.com"))

	assert.ErrorIs(t,
		services.Auth.ResendVerification(ctx, creds, ""),
		domain.ErrBadRequest)
	assert.ErrorIs(t,
		services.Auth.ResendVerification(ctx, service.Credentials{ClientID: "web", ClientSecret: "nope"}, "pending@example.com"),
		domain.ErrInvalidClient)
}

func TestAuthService_CurrentUser(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	services := testutil.NewServices(t, testDB, nil)
	ctx := context.Background()

	user, _ := testutil.NewUserBuilder().
		WithEmail("who@example.com").
		WithName("Who", "Ami").
		Build(t, testDB.DB)

	got, sub, err := services.Auth.CurrentUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Who Ami", got.FullName())
	assert.Nil(t, sub)

	plan := &domain.Plan{Name: "premium"}
	require.NoError(t, testDB.DB.Create(plan).Error)
	require.NoError(t, testDB.DB.Create(&domain.Subscription{
		UserID: user.ID,
		PlanID: plan.ID,
		Status: "active",
	}).Error)

	_, sub, err = services.Auth.CurrentUser(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, sub)
	assert.Equal(t, "premium", sub.Plan.Name)
}
