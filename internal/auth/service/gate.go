package service

import (
	"context"
	"strings"

	"github.com/aussiebroadwan/authcore/internal/auth/domain"
	"github.com/aussiebroadwan/authcore/internal/auth/revocation"
	"github.com/aussiebroadwan/authcore/internal/auth/store"
	"github.com/aussiebroadwan/authcore/pkg/jwtx"
	"github.com/google/uuid"
)

// Principal is the authenticated caller of a protected request.
type Principal struct {
	UserID uuid.UUID
	User   domain.User
	Claims *jwtx.Claims
}

// Gate decides whether a request may reach a protected handler. All of its
// fields are set once at startup and only read afterwards, so a single Gate
// serves every request concurrently.
type Gate struct {
	Verifier jwtx.Verifier
	Policy   Policy
	Store    store.Store

	// Denylist is optional. When set, access tokens revoked at logout are
	// refused until they expire.
	Denylist revocation.Denylist
}

const bearerScheme = "Bearer"

// Authenticate runs the gate against the raw Authorization header value.
// Checks run in a fixed order and the first failure is returned.
func (g *Gate) Authenticate(ctx context.Context, authorization string) (Principal, error) {
	if authorization == "" {
		return Principal{}, domain.E(domain.KindMissingHeader, "missing authorization header", nil)
	}

	token, err := bearerToken(authorization)
	if err != nil {
		return Principal{}, err
	}

	claims, err := g.Verifier.Verify(token, g.Policy.VerifyOptions())
	if err != nil {
		return Principal{}, verifyError(err)
	}
	if claims.Use == jwtx.UseRefresh {
		return Principal{}, domain.E(domain.KindInvalidToken, "invalid token", nil)
	}

	if g.Denylist != nil {
		revoked, err := g.Denylist.IsRevoked(ctx, claims.ID)
		if err != nil {
			return Principal{}, storeError(err)
		}
		if revoked {
			return Principal{}, domain.E(domain.KindInvalidToken, "token revoked", nil)
		}
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return Principal{}, domain.E(domain.KindInvalidToken, "invalid token subject", err)
	}

	user, err := g.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return Principal{}, domain.E(domain.KindUserNotFound, "user not found", err)
		}
		return Principal{}, storeError(err)
	}

	return Principal{UserID: userID, User: user, Claims: claims}, nil
}

// bearerToken extracts the credentials of a "Bearer <token>" header. The
// scheme is matched case-insensitively.
func bearerToken(header string) (string, error) {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, bearerScheme) {
		return "", domain.E(domain.KindInvalidHeader, "authorization header must use the Bearer scheme", nil)
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", domain.E(domain.KindInvalidHeader, "empty bearer token", nil)
	}
	return token, nil
}
