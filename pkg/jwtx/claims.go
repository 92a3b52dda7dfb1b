package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Default token lifetimes and clock skew tolerance.
const (
	// DefaultAccessTokenTTL is the lifetime of an access token.
	DefaultAccessTokenTTL = time.Hour

	// DefaultRefreshTokenTTL is the lifetime of a refresh token.
	DefaultRefreshTokenTTL = 12 * time.Hour

	// DefaultLeeway is the tolerated clock skew on exp/nbf.
	DefaultLeeway = 60 * time.Second
)

// Registered claim names that can be demanded via VerifyOptions.Required.
const (
	ClaimExpiresAt = "exp"
	ClaimNotBefore = "nbf"
	ClaimIssuedAt  = "iat"
	ClaimSubject   = "sub"
	ClaimIssuer    = "iss"
	ClaimAudience  = "aud"
	ClaimID        = "jti"
)

// DefaultRequiredClaims is the set every token minted by this service
// carries and every verifier demands.
var DefaultRequiredClaims = []string{ClaimExpiresAt, ClaimNotBefore, ClaimSubject}

// Token uses, carried in the "use" claim so a refresh token can never be
// presented as an access token or the other way round.
const (
	UseAccess  = "access"
	UseRefresh = "refresh"
)

// Claims is the signed payload of both access and refresh tokens.
type Claims struct {
	jwt.RegisteredClaims

	Use string `json:"use,omitempty"`

	// Data is an opaque payload. Access tokens carry a user projection here,
	// refresh tokens leave it empty.
	Data json.RawMessage `json:"data,omitempty"`
}

// NewClaims builds minimally-correct claims for a subject. nbf is always set
// to the issue time so it can be validated.
func NewClaims(subject, issuer, audience string, ttl time.Duration, now time.Time) Claims {
	now = now.UTC().Truncate(time.Second)
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			Audience:  jwt.ClaimStrings{audience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(),
		},
	}
}

// NewJTI returns a URL-safe random identifier for the "jti" claim.
func NewJTI() string {
	var b [20]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}

// ValidateIssuer checks the issuer for exact equality.
func (c *Claims) ValidateIssuer(expected string) error {
	if expected == "" {
		return nil // nothing to enforce
	}

	if c.Issuer != expected {
		return ErrIssuer
	}

	return nil
}

// ValidateAudience requires the token to be bound to exactly the expected
// audience. A token minted for several audiences is not accepted.
func (c *Claims) ValidateAudience(expected string) error {
	if expected == "" {
		return nil // nothing to enforce
	}

	if len(c.Audience) != 1 || c.Audience[0] != expected {
		return ErrAudience
	}

	return nil
}

// ValidateExpiryAt checks exp and nbf against now, tolerating leeway of
// clock skew in both directions.
func (c *Claims) ValidateExpiryAt(now time.Time, leeway time.Duration) error {
	// Expired once now is past exp+leeway
	if c.ExpiresAt != nil && !now.Before(c.ExpiresAt.Add(leeway)) {
		return ErrExpired
	}

	// Not valid while now is before nbf-leeway
	if c.NotBefore != nil && now.Before(c.NotBefore.Add(-leeway)) {
		return ErrNotYetValid
	}

	return nil
}

// ValidateRequired reports ErrMissingClaim for the first named claim that
// is absent.
func (c *Claims) ValidateRequired(names []string) error {
	for _, name := range names {
		if !c.has(name) {
			return &MissingClaimError{Name: name}
		}
	}
	return nil
}

func (c *Claims) has(name string) bool {
	switch name {
	case ClaimExpiresAt:
		return c.ExpiresAt != nil
	case ClaimNotBefore:
		return c.NotBefore != nil
	case ClaimIssuedAt:
		return c.IssuedAt != nil
	case ClaimSubject:
		return c.Subject != ""
	case ClaimIssuer:
		return c.Issuer != ""
	case ClaimAudience:
		return len(c.Audience) > 0
	case ClaimID:
		return c.ID != ""
	default:
		return false
	}
}
