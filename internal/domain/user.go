package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type User struct {
	ID              uuid.UUID      `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Email           string         `json:"email" gorm:"uniqueIndex;not null"`
	PasswordHash    string         `json:"-"` // empty for federated-only accounts
	FirstName       string         `json:"firstName"`
	LastName        string         `json:"lastName"`
	AvatarURL       string         `json:"avatarUrl,omitempty"`
	Active          bool           `json:"active" gorm:"not null;default:true"`
	EmailVerified   bool           `json:"emailVerified" gorm:"not null;default:false"`
	EmailVerifiedAt *time.Time     `json:"emailVerifiedAt,omitempty"`
	LastLoginAt     *time.Time     `json:"lastLoginAt,omitempty"`
	Preferences     datatypes.JSON `json:"preferences,omitempty"`
	CreatedAt       time.Time      `json:"createdAt"`
	UpdatedAt       time.Time      `json:"updatedAt"`
	DeletedAt       gorm.DeletedAt `json:"-" gorm:"index"`
}

func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// CanSignIn reports whether the user may authenticate at all. Soft-deleted rows
// are already filtered out by gorm, but a freshly loaded struct can still carry
// the flag when queried Unscoped.
func (u *User) CanSignIn() bool {
	return u.Active && !u.DeletedAt.Valid
}

// NormalizeEmail is the single place email case/whitespace normalization
// happens; every lookup and insert must go through it.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Account links a User to one federated provider identity. The
// (provider, provider_account_id) pair is unique: at most one user per
// external identity.
type Account struct {
	ID                uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	UserID            uuid.UUID `json:"userId" gorm:"type:uuid;not null;index"`
	Provider          string    `json:"provider" gorm:"index:idx_provider_subject,unique;not null"`
	ProviderAccountID string    `json:"providerAccountId" gorm:"index:idx_provider_subject,unique;not null"`
	Type              string    `json:"type" gorm:"not null;default:oauth"`
	CreatedAt         time.Time `json:"createdAt"`
}

// IdentityProfile is a provider-verified identity, normalized. It is never
// persisted; the reconciliation in the auth service turns it into a User and
// an Account.
type IdentityProfile struct {
	Provider      string
	Subject       string
	Email         string
	EmailVerified bool
	FirstName     string
	LastName      string
	AvatarURL     string
}

type Plan struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Name      string    `json:"name" gorm:"uniqueIndex;not null"`
	CreatedAt time.Time `json:"createdAt"`
}

// Subscription is read-only from the auth core; it only feeds the whoami
// projection. Provisioned by the billing surface.
type Subscription struct {
	ID        uuid.UUID  `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	UserID    uuid.UUID  `json:"userId" gorm:"type:uuid;not null;uniqueIndex"`
	PlanID    uuid.UUID  `json:"planId" gorm:"type:uuid;not null"`
	Plan      Plan       `json:"plan" gorm:"foreignKey:PlanID"`
	Status    string     `json:"status" gorm:"not null;default:active"`
	RenewsAt  *time.Time `json:"renewsAt,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}
