package service

import (
	"encoding/json"
	"time"

	"github.com/aussiebroadwan/authcore/internal/auth/domain"
	"github.com/aussiebroadwan/authcore/pkg/jwtx"
	"github.com/google/uuid"
)

// Policy binds issued tokens to this service and fixes their lifetimes.
// It is built once at startup and shared read-only.
type Policy struct {
	Issuer     string
	Audience   string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Leeway     time.Duration
}

// DefaultPolicy returns a policy with the standard lifetimes and leeway.
func DefaultPolicy(issuer, audience string) Policy {
	return Policy{
		Issuer:     issuer,
		Audience:   audience,
		AccessTTL:  jwtx.DefaultAccessTokenTTL,
		RefreshTTL: jwtx.DefaultRefreshTokenTTL,
		Leeway:     jwtx.DefaultLeeway,
	}
}

// VerifyOptions is the codec policy every presented token is checked
// against, access and refresh alike.
func (p Policy) VerifyOptions() jwtx.VerifyOptions {
	return jwtx.VerifyOptions{
		Issuer:   p.Issuer,
		Audience: p.Audience,
		Leeway:   p.Leeway,
		Required: jwtx.DefaultRequiredClaims,
	}
}

// TokenIssuer mints access and refresh tokens. It keeps no state between
// calls.
type TokenIssuer struct {
	Signer jwtx.Signer
	Policy Policy
	Now    func() time.Time
}

func (i *TokenIssuer) now() time.Time {
	if i.Now != nil {
		return i.Now()
	}
	return time.Now()
}

// IssueAccessToken signs a short lived token for u whose "data" claim
// carries the public projection of the user.
func (i *TokenIssuer) IssueAccessToken(u domain.User) (string, error) {
	data, err := json.Marshal(u.Projection())
	if err != nil {
		return "", domain.E(domain.KindEncodingFailure, "", err)
	}

	claims := jwtx.NewClaims(u.ID.String(), i.Policy.Issuer, i.Policy.Audience, i.Policy.AccessTTL, i.now())
	claims.Use = jwtx.UseAccess
	claims.Data = data

	token, err := i.Signer.Sign(claims)
	if err != nil {
		return "", domain.E(domain.KindEncodingFailure, "", err)
	}
	return token, nil
}

// IssueRefreshToken signs a long lived token for userID and returns it
// with the envelope the caller persists and hands to the client.
func (i *TokenIssuer) IssueRefreshToken(userID uuid.UUID) (string, domain.RefreshEnvelope, error) {
	claims := jwtx.NewClaims(userID.String(), i.Policy.Issuer, i.Policy.Audience, i.Policy.RefreshTTL, i.now())
	claims.Use = jwtx.UseRefresh

	token, err := i.Signer.Sign(claims)
	if err != nil {
		return "", domain.RefreshEnvelope{}, domain.E(domain.KindEncodingFailure, "", err)
	}

	return token, domain.RefreshEnvelope{
		RefreshToken: token,
		IssuedAt:     claims.IssuedAt.Time,
		ExpiresAt:    claims.ExpiresAt.Time,
		Issuer:       i.Policy.Issuer,
		Audience:     i.Policy.Audience,
		Revoked:      false,
	}, nil
}
