package jwtx

import (
	"errors"
	"fmt"
	"time"
)

// Verifier validates a JWT and gives you back the claims if it's legit.
type Verifier interface {
	Verify(token string, opts VerifyOptions) (*Claims, error)
}

// VerifyOptions captures the policy a token is checked against.
type VerifyOptions struct {
	// Issuer the token must have (claims.iss). Empty means "don't care".
	Issuer string

	// Audience the token must be bound to (claims.aud). Empty means "don't care".
	Audience string

	// Leeway allows small clock skew when validating exp/nbf.
	Leeway time.Duration

	// Required lists claim names that must be present.
	Required []string
}

var (
	ErrMalformed   = errors.New("jwtx: malformed token")
	ErrAlgMismatch = errors.New("jwtx: algorithm mismatch")
	ErrInvalidSig  = errors.New("jwtx: invalid signature")

	ErrIssuer       = errors.New("jwtx: issuer mismatch")
	ErrAudience     = errors.New("jwtx: audience mismatch")
	ErrExpired      = errors.New("jwtx: token expired")
	ErrNotYetValid  = errors.New("jwtx: token not yet valid")
	ErrMissingClaim = errors.New("jwtx: missing required claim")
	ErrEmptySecret  = errors.New("jwtx: empty signing secret")
)

// MissingClaimError names the required claim that was absent.
type MissingClaimError struct {
	Name string
}

func (e *MissingClaimError) Error() string {
	return fmt.Sprintf("jwtx: missing required claim %q", e.Name)
}

func (e *MissingClaimError) Unwrap() error { return ErrMissingClaim }

// validate runs the claim checks in their fixed order: expiry, issuer,
// audience, then required claims. Signature checks happen before this.
func validate(c *Claims, now time.Time, opts VerifyOptions) error {
	if err := c.ValidateExpiryAt(now, opts.Leeway); err != nil {
		return err
	}
	if err := c.ValidateIssuer(opts.Issuer); err != nil {
		return err
	}
	if err := c.ValidateAudience(opts.Audience); err != nil {
		return err
	}
	return c.ValidateRequired(opts.Required)
}
