package service

import (
	"context"
	"errors"
	"log/slog"
	"net/mail"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/aussiebroadwan/authcore/internal/auth/domain"
	"github.com/aussiebroadwan/authcore/internal/auth/revocation"
	"github.com/aussiebroadwan/authcore/internal/auth/store"
	"github.com/aussiebroadwan/authcore/pkg/cryptox"
	"github.com/aussiebroadwan/authcore/pkg/idx"
	"github.com/aussiebroadwan/authcore/pkg/jwtx"
	"github.com/aussiebroadwan/authcore/pkg/slogx"
	"github.com/google/uuid"
)

const (
	MinPasswordLength = 8
	MaxPasswordLength = 128
	MaxUsernameLength = 64
)

// PasswordHasher is the password capability the service depends on.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, digest string) error
	NeedsRehash(digest string) bool
}

// AuthService owns the credential flows: register, login, refresh rotation
// and logout.
type AuthService struct {
	Store    store.Store
	Issuer   *TokenIssuer
	Verifier jwtx.Verifier
	Hasher   PasswordHasher
	Denylist revocation.Denylist // optional
	Now      func() time.Time

	dummyOnce   sync.Once
	dummyDigest string
}

func (s *AuthService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Register creates a user and returns its id.
func (s *AuthService) Register(ctx context.Context, username, email, password string) (uuid.UUID, error) {
	username = strings.TrimSpace(username)
	email = normaliseEmail(email)
	if err := validateRegistration(username, email, password); err != nil {
		return uuid.Nil, err
	}

	digest, err := s.Hasher.Hash(password)
	if err != nil {
		return uuid.Nil, domain.E(domain.KindUnknown, "", err)
	}

	now := s.now().UTC()
	u := domain.User{
		ID:           uuid.New(),
		Username:     username,
		Email:        email,
		PasswordHash: digest,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.Store.Users().CreateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return uuid.Nil, domain.E(domain.KindConflict, "email already registered", err)
		}
		return uuid.Nil, storeError(err)
	}

	slogx.FromContext(ctx).Info("user registered", slog.String("user_id", u.ID.String()))
	return u.ID, nil
}

// Login checks the password against the digest stored for that user and
// issues a token pair. Unknown emails and wrong passwords are
// indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, email, password string) (domain.LoginResult, error) {
	l := slogx.FromContext(ctx)
	email = normaliseEmail(email)
	if email == "" || password == "" {
		return domain.LoginResult{}, domain.E(domain.KindInvalidRequest, "email and password are required", nil)
	}

	u, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if !isNotFound(err) {
			return domain.LoginResult{}, storeError(err)
		}
		// Burn the same work as a real check.
		_ = s.Hasher.Verify(password, s.dummy())
		return domain.LoginResult{}, domain.E(domain.KindInvalidCredentials, "invalid email or password", nil)
	}

	if err := s.Hasher.Verify(password, u.PasswordHash); err != nil {
		if !errors.Is(err, cryptox.ErrPasswordMismatch) {
			l.Warn("stored password digest unusable", slog.String("user_id", u.ID.String()), slog.Any("error", err))
		}
		return domain.LoginResult{}, domain.E(domain.KindInvalidCredentials, "invalid email or password", err)
	}

	if s.Hasher.NeedsRehash(u.PasswordHash) {
		s.rehash(ctx, u, password)
	}

	access, err := s.Issuer.IssueAccessToken(u)
	if err != nil {
		return domain.LoginResult{}, err
	}
	refresh, env, err := s.Issuer.IssueRefreshToken(u.ID)
	if err != nil {
		return domain.LoginResult{}, err
	}

	now := s.now().UTC()
	if err := s.Store.RefreshTokens().CreateRefreshToken(ctx, refreshRecord(idx.New().String(), u.ID, refresh, env, now)); err != nil {
		return domain.LoginResult{}, storeError(err)
	}

	l.Info("user logged in", slog.String("user_id", u.ID.String()))
	return domain.LoginResult{User: u.Projection(), AccessToken: access, Refresh: env}, nil
}

// rehash upgrades a legacy digest after a successful login. Failure only
// delays the upgrade to the next login.
func (s *AuthService) rehash(ctx context.Context, u domain.User, password string) {
	l := slogx.FromContext(ctx)
	digest, err := s.Hasher.Hash(password)
	if err == nil {
		err = s.Store.Users().UpdatePasswordHash(ctx, u.ID, digest, s.now().UTC())
	}
	if err != nil {
		l.Warn("password rehash failed", slog.String("user_id", u.ID.String()), slog.Any("error", err))
		return
	}
	l.Info("password digest upgraded", slog.String("user_id", u.ID.String()))
}

// Refresh exchanges a refresh token for a new access token and a new
// refresh token. The presented token is consumed in the same transaction
// that stores its replacement, so it can be exchanged at most once.
//
// Presenting an already consumed token is treated as theft: every refresh
// token of that user is revoked.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (domain.RefreshResult, error) {
	l := slogx.FromContext(ctx)
	if refreshToken == "" {
		return domain.RefreshResult{}, domain.E(domain.KindInvalidRequest, "refresh token is required", nil)
	}

	// Decoded
	claims, err := s.Verifier.Verify(refreshToken, s.Issuer.Policy.VerifyOptions())
	if err != nil {
		return domain.RefreshResult{}, verifyError(err)
	}
	if claims.Use != jwtx.UseRefresh {
		return domain.RefreshResult{}, domain.E(domain.KindInvalidToken, "not a refresh token", nil)
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return domain.RefreshResult{}, domain.E(domain.KindInvalidToken, "invalid token subject", err)
	}

	var (
		now      = s.now().UTC()
		hash     = cryptox.FingerprintToken(refreshToken)
		nextID   = idx.New().String()
		result   domain.RefreshResult
		replayed bool
	)

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		// SubjectResolved
		u, err := tx.Users().GetUserByID(ctx, userID)
		if err != nil {
			if isNotFound(err) {
				return domain.E(domain.KindUserNotFound, "user not found", err)
			}
			return err
		}

		consumed, err := tx.RefreshTokens().ConsumeRefreshToken(ctx, hash, nextID, now)
		if err != nil {
			if !isNotFound(err) {
				return err
			}
			return s.classifyUnusable(ctx, tx, hash, userID, now, &replayed)
		}
		if consumed.UserID != userID {
			return domain.E(domain.KindInvalidToken, "invalid refresh token", nil)
		}

		// Rotated
		access, err := s.Issuer.IssueAccessToken(u)
		if err != nil {
			return err
		}
		refresh, env, err := s.Issuer.IssueRefreshToken(u.ID)
		if err != nil {
			return err
		}
		if err := tx.RefreshTokens().CreateRefreshToken(ctx, refreshRecord(nextID, u.ID, refresh, env, now)); err != nil {
			return err
		}

		result = domain.RefreshResult{AccessToken: access, Refresh: env}
		return nil
	})

	if replayed {
		n, rerr := s.Store.RefreshTokens().RevokeAllUserRefreshTokens(ctx, userID, now)
		if rerr != nil {
			l.Error("revoking refresh tokens after replay failed",
				slog.String("user_id", userID.String()), slog.Any("error", rerr))
			return domain.RefreshResult{}, storeError(rerr)
		}
		l.Warn("refresh token replay detected, revoked all refresh tokens",
			slog.String("user_id", userID.String()), slog.Int64("revoked", n))
	}
	if err != nil {
		return domain.RefreshResult{}, storeError(err)
	}

	l.Info("refresh token rotated", slog.String("user_id", userID.String()))
	return result, nil
}

// classifyUnusable explains why a presented token could not be consumed.
func (s *AuthService) classifyUnusable(
	ctx context.Context,
	tx store.Tx,
	hash string,
	userID uuid.UUID,
	now time.Time,
	replayed *bool,
) error {
	rt, err := tx.RefreshTokens().GetRefreshTokenByHash(ctx, hash)
	switch {
	case isNotFound(err):
		return domain.E(domain.KindInvalidToken, "unknown refresh token", nil)
	case err != nil:
		return err
	case rt.UserID != userID:
		return domain.E(domain.KindInvalidToken, "invalid refresh token", nil)
	case rt.Revoked:
		*replayed = true
		return domain.E(domain.KindInvalidToken, "refresh token already used", nil)
	case !now.Before(rt.ExpiresAt):
		return domain.E(domain.KindTokenExpired, "refresh token expired", nil)
	default:
		return domain.E(domain.KindInvalidToken, "invalid refresh token", nil)
	}
}

// Logout revokes the caller's refresh token, if one was presented, and
// denylists the access token that authenticated the call until it expires.
// Refresh tokens that are unknown or belong to somebody else are ignored.
func (s *AuthService) Logout(ctx context.Context, p Principal, refreshToken string) error {
	now := s.now().UTC()

	if refreshToken != "" {
		rt, err := s.Store.RefreshTokens().GetRefreshTokenByHash(ctx, cryptox.FingerprintToken(refreshToken))
		switch {
		case isNotFound(err):
		case err != nil:
			return storeError(err)
		case rt.UserID == p.UserID && !rt.Revoked:
			if err := s.Store.RefreshTokens().RevokeRefreshToken(ctx, rt.ID, now); err != nil && !isNotFound(err) {
				return storeError(err)
			}
		}
	}

	if s.Denylist != nil && p.Claims != nil && p.Claims.ExpiresAt != nil {
		if err := s.Denylist.Revoke(ctx, p.Claims.ID, p.Claims.ExpiresAt.Add(s.Issuer.Policy.Leeway)); err != nil {
			return storeError(err)
		}
	}

	slogx.FromContext(ctx).Info("user logged out", slog.String("user_id", p.UserID.String()))
	return nil
}

// dummy returns a digest used to equalise timing for unknown emails.
func (s *AuthService) dummy() string {
	s.dummyOnce.Do(func() {
		d, err := s.Hasher.Hash("dummy-password-for-timing")
		if err == nil {
			s.dummyDigest = d
		}
	})
	return s.dummyDigest
}

func refreshRecord(id string, userID uuid.UUID, token string, env domain.RefreshEnvelope, now time.Time) domain.RefreshToken {
	return domain.RefreshToken{
		ID:        id,
		UserID:    userID,
		TokenHash: cryptox.FingerprintToken(token),
		Issuer:    env.Issuer,
		Audience:  env.Audience,
		IssuedAt:  env.IssuedAt,
		ExpiresAt: env.ExpiresAt,
		Revoked:   false,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func normaliseEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateRegistration(username, email, password string) error {
	switch {
	case username == "":
		return domain.E(domain.KindInvalidRequest, "username is required", nil)
	case utf8.RuneCountInString(username) > MaxUsernameLength:
		return domain.E(domain.KindInvalidRequest, "username is too long", nil)
	case email == "":
		return domain.E(domain.KindInvalidRequest, "email is required", nil)
	case utf8.RuneCountInString(password) < MinPasswordLength:
		return domain.E(domain.KindInvalidRequest, "password is too short", nil)
	case len(password) > MaxPasswordLength:
		return domain.E(domain.KindInvalidRequest, "password is too long", nil)
	}

	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return domain.E(domain.KindInvalidRequest, "email is invalid", err)
	}
	return nil
}
