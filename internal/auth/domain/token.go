package domain

import (
	"time"

	"github.com/google/uuid"
)

// RefreshToken models the stored refresh token record in the DB. Only the
// fingerprint of the signed token is persisted.
type RefreshToken struct {
	ID         string // ULID
	UserID     uuid.UUID
	TokenHash  string // deterministic fingerprint (base64url SHA-256)
	Issuer     string
	Audience   string
	IssuedAt   time.Time
	ExpiresAt  time.Time
	Revoked    bool
	ReplacedBy string // ID of the record minted when this one was rotated
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Active reports whether the record may still be exchanged at now.
func (t RefreshToken) Active(now time.Time) bool {
	return !t.Revoked && now.Before(t.ExpiresAt)
}

// RefreshEnvelope is what the client holds on to: the signed refresh token
// plus its metadata. Only RefreshToken is trusted when presented back, the
// other fields are informational.
type RefreshEnvelope struct {
	RefreshToken string    `json:"refresh_token"`
	IssuedAt     time.Time `json:"issued_at"`
	ExpiresAt    time.Time `json:"expires_at"`
	Issuer       string    `json:"jwt_iss"`
	Audience     string    `json:"jwt_aud"`
	Revoked      bool      `json:"revoked"`
}

// LoginResult is returned from a successful password login.
type LoginResult struct {
	User        UserProjection
	AccessToken string
	Refresh     RefreshEnvelope
}

// RefreshResult is returned from a successful rotation.
type RefreshResult struct {
	AccessToken string
	Refresh     RefreshEnvelope
}
