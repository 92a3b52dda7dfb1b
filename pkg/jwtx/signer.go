package jwtx

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Signer is our interface for anything that can sign JWTs.
type Signer interface {
	Alg() string
	Sign(Claims) (string, error)
}

// HS256Codec signs and verifies tokens with a shared HMAC secret. It holds
// no mutable state and is safe for concurrent use.
type HS256Codec struct {
	secret []byte
	now    func() time.Time
	parser *jwt.Parser
}

// Option tweaks an HS256Codec.
type Option func(*HS256Codec)

// WithClock overrides the time source used during verification.
func WithClock(now func() time.Time) Option {
	return func(c *HS256Codec) { c.now = now }
}

// NewHS256 builds a codec around secret. The secret is copied.
func NewHS256(secret []byte, opts ...Option) (*HS256Codec, error) {
	if len(secret) == 0 {
		return nil, ErrEmptySecret
	}

	c := &HS256Codec{
		secret: append([]byte(nil), secret...),
		now:    time.Now,
		// Claims are validated by us in a fixed order, the library only
		// checks structure and signature.
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithoutClaimsValidation(),
		),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *HS256Codec) Alg() string { return jwt.SigningMethodHS256.Alg() }

// Sign takes your claims and turns them into a signed JWT string.
func (c *HS256Codec) Sign(claims Claims) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := t.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("jwtx: sign: %w", err)
	}
	return s, nil
}

// Verify checks structure and signature first, then the claims against
// opts. The first failing check wins.
func (c *HS256Codec) Verify(tokenStr string, opts VerifyOptions) (*Claims, error) {
	claims := &Claims{}
	token, err := c.parser.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (any, error) {
		return c.secret, nil
	})
	if err != nil {
		return nil, classifyParseError(err)
	}
	if !token.Valid {
		return nil, ErrInvalidSig
	}

	if err := validate(claims, c.now(), opts); err != nil {
		return nil, err
	}

	return claims, nil
}

func classifyParseError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		// Also raised for any alg other than HS256, "none" included.
		return fmt.Errorf("%w: %w", ErrInvalidSig, err)
	case errors.Is(err, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: %w", ErrAlgMismatch, err)
	default:
		return fmt.Errorf("%w: %w", ErrMalformed, err)
	}
}
