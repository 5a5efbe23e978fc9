package domain

import (
	"time"

	"github.com/google/uuid"
)

// Session anchors one authenticated device/login. The refresh token currently
// valid for the session is stored as a hash; rotation swaps the hash in place
// so the row survives as an audit trail. Revoked sessions are never deleted.
type Session struct {
	ID               uuid.UUID  `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	UserID           uuid.UUID  `json:"userId" gorm:"type:uuid;not null;index"`
	RefreshTokenHash string     `json:"-" gorm:"not null"`
	IP               string     `json:"ip,omitempty"`
	UserAgent        string     `json:"userAgent,omitempty"`
	DeviceType       string     `json:"deviceType,omitempty"`
	ExpiresAt        time.Time  `json:"expiresAt" gorm:"not null"`
	RevokedAt        *time.Time `json:"revokedAt,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
}

// Valid reports whether the session can still back a refresh token. Expiry is
// enforced lazily here; no sweeper runs inside this core.
func (s *Session) Valid(now time.Time) bool {
	return s.RevokedAt == nil && now.Before(s.ExpiresAt)
}

// SessionMeta is the request-derived metadata recorded on session creation.
type SessionMeta struct {
	IP         string
	UserAgent  string
	DeviceType string
}

// ApiClient is a first-party caller (web app, mobile app). Provisioned out of
// band; the auth core only ever reads it.
type ApiClient struct {
	ID         uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	ClientID   string    `json:"clientId" gorm:"uniqueIndex;not null"`
	SecretHash string    `json:"-" gorm:"not null"`
	Name       string    `json:"name"`
	Active     bool      `json:"active" gorm:"not null;default:true"`
	CreatedAt  time.Time `json:"createdAt"`
}
