package repository

import (
	"context"
	"time"

	"github.com/campushq/campus-api/internal/domain"
	"github.com/google/uuid"
)

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Update(ctx context.Context, user *domain.User) error
	TouchLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	MarkEmailVerified(ctx context.Context, id uuid.UUID, at time.Time) error
}

type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) error
	GetByProviderSubject(ctx context.Context, provider, subject string) (*domain.Account, error)
	ListByUserID(ctx context.Context, userID uuid.UUID) ([]*domain.Account, error)
	// LinkNewUser creates the user and its identity link in one transaction.
	LinkNewUser(ctx context.Context, user *domain.User, account *domain.Account) error
}

type SessionRepository interface {
	Create(ctx context.Context, session *domain.Session) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Session, error)
	// Rotate swaps the current refresh-token hash for a new one. The update is
	// conditional on the old hash still being current and the session not being
	// revoked; a concurrent rotation or a replayed token makes it report
	// gorm.ErrRecordNotFound without touching the row.
	Rotate(ctx context.Context, id uuid.UUID, oldHash, newHash string, expiresAt time.Time) error
	Revoke(ctx context.Context, id uuid.UUID) error
	RevokeAllForUser(ctx context.Context, userID uuid.UUID) error
}

type ApiClientRepository interface {
	GetByClientID(ctx context.Context, clientID string) (*domain.ApiClient, error)
	Create(ctx context.Context, client *domain.ApiClient) error
}

type SubscriptionRepository interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Subscription, error)
}

type Repositories struct {
	User         UserRepository
	Account      AccountRepository
	Session      SessionRepository
	ApiClient    ApiClientRepository
	Subscription SubscriptionRepository
}
