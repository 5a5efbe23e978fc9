package testutil

import (
	"fmt"
	"testing"
	"time"

	"github.com/campushq/campus-api/internal/domain"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// UserBuilder creates test users with a builder pattern
type UserBuilder struct {
	email     string
	password  string
	firstName string
	lastName  string
	active    bool
	verified  bool
}

// NewUserBuilder creates a new UserBuilder with default values
func NewUserBuilder() *UserBuilder {
	return &UserBuilder{
		email:     fmt.Sprintf("user_%s@example.com", uuid.New().String()[:8]),
		password:  "testpassword123",
		firstName: "Test",
		lastName:  "User",
		active:    true,
	}
}

func (b *UserBuilder) WithEmail(email string) *UserBuilder {
	b.email = email
	return b
}

func (b *UserBuilder) WithPassword(password string) *UserBuilder {
	b.password = password
	return b
}

func (b *UserBuilder) WithName(first, last string) *UserBuilder {
	b.firstName = first
	b.lastName = last
	return b
}

func (b *UserBuilder) Inactive() *UserBuilder {
	b.active = false
	return b
}

func (b *UserBuilder) Verified() *UserBuilder {
	b.verified = true
	return b
}

// Build creates the user in the database and returns it with the raw password
func (b *UserBuilder) Build(t *testing.T, db *gorm.DB) (*domain.User, string) {
	t.Helper()

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(b.password), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &domain.User{
		ID:            uuid.New(),
		Email:         domain.NormalizeEmail(b.email),
		PasswordHash:  string(hashedPassword),
		FirstName:     b.firstName,
		LastName:      b.lastName,
		Active:        b.active,
		EmailVerified: b.verified,
	}
	if b.verified {
		now := time.Now()
		user.EmailVerifiedAt = &now
	}

	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	return user, b.password
}

// ApiClientBuilder creates first-party API clients
type ApiClientBuilder struct {
	clientID string
	secret   string
	active   bool
}

func NewApiClientBuilder() *ApiClientBuilder {
	return &ApiClientBuilder{
		clientID: fmt.Sprintf("client_%s", uuid.New().String()[:8]),
		secret:   "client-secret",
		active:   true,
	}
}

func (b *ApiClientBuilder) WithClientID(id string) *ApiClientBuilder {
	b.clientID = id
	return b
}

func (b *ApiClientBuilder) WithSecret(secret string) *ApiClientBuilder {
	b.secret = secret
	return b
}

func (b *ApiClientBuilder) Disabled() *ApiClientBuilder {
	b.active = false
	return b
}

// Build creates the client in the database and returns it with the raw secret
func (b *ApiClientBuilder) Build(t *testing.T, db *gorm.DB) (*domain.ApiClient, string) {
	t.Helper()

	hashed, err := bcrypt.GenerateFromPassword([]byte(b.secret), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("failed to hash client secret: %v", err)
	}

	client := &domain.ApiClient{
		ID:         uuid.New(),
		ClientID:   b.clientID,
		SecretHash: string(hashed),
		Name:       "test client",
		Active:     b.active,
	}

	if err := db.Create(client).Error; err != nil {
		t.Fatalf("failed to create api client: %v", err)
	}

	return client, b.secret
}

// BuildSession inserts a session row directly, for repository-level tests
func BuildSession(t *testing.T, db *gorm.DB, userID uuid.UUID, tokenHash string) *domain.Session {
	t.Helper()

	session := &domain.Session{
		ID:               uuid.New(),
		UserID:           userID,
		RefreshTokenHash: tokenHash,
		ExpiresAt:        time.Now().Add(24 * time.Hour),
		CreatedAt:        time.Now(),
	}
	if err := db.Create(session).Error; err != nil {
		t.Fatalf("failed to create session: %v", err)
	}
	return session
}
