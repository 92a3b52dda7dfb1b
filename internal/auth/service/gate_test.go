package service

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/aussiebroadwan/authcore/internal/auth/domain"
	"github.com/aussiebroadwan/authcore/pkg/jwtx"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestGateAdmitsValidToken(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	id := h.register(t, "alice@example.com")

	res, err := h.auth.Login(ctx, "alice@example.com", testPassword)
	require.NoError(t, err)

	p, err := h.gate.Authenticate(ctx, "Bearer "+res.AccessToken)
	require.NoError(t, err)
	require.Equal(t, id, p.UserID)
	require.Equal(t, "alice@example.com", p.User.Email)
	require.Equal(t, id.String(), p.Claims.Subject)
}

func TestGateRejections(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	id := h.register(t, "alice@example.com")
	u, err := h.store.Users().GetUserByID(ctx, id)
	require.NoError(t, err)

	access, err := h.issuer.IssueAccessToken(u)
	require.NoError(t, err)

	refresh, _, err := h.issuer.IssueRefreshToken(id)
	require.NoError(t, err)

	otherCodec, err := jwtx.NewHS256([]byte("another-secret-0123456789-abcdefghijkl"))
	require.NoError(t, err)
	forged, err := (&TokenIssuer{Signer: otherCodec, Policy: h.issuer.Policy, Now: h.clock.Now}).IssueAccessToken(u)
	require.NoError(t, err)

	wrongIssuer, err := (&TokenIssuer{Signer: h.codec, Policy: DefaultPolicy("other", "app-users"), Now: h.clock.Now}).IssueAccessToken(u)
	require.NoError(t, err)

	badSubject, err := h.codec.Sign(jwtx.NewClaims("not-a-uuid", "app", "app-users", time.Hour, h.clock.Now()))
	require.NoError(t, err)

	ghost := u
	ghost.ID = uuid.New()
	unknownUser, err := h.issuer.IssueAccessToken(ghost)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		want   *domain.Error
		status int
	}{
		{"no header", "", domain.ErrMissingHeader, http.StatusBadRequest},
		{"basic scheme", "Basic dXNlcjpwYXNz", domain.ErrInvalidHeader, http.StatusBadRequest},
		{"bearer without token", "Bearer ", domain.ErrInvalidHeader, http.StatusBadRequest},
		{"token without scheme", access, domain.ErrInvalidHeader, http.StatusBadRequest},
		{"garbage token", "Bearer not.a.jwt", domain.ErrInvalidToken, http.StatusUnauthorized},
		{"other secret", "Bearer " + forged, domain.ErrInvalidToken, http.StatusUnauthorized},
		{"issuer mismatch", "Bearer " + wrongIssuer, domain.ErrIssuerOrAudienceMismatch, http.StatusUnauthorized},
		{"refresh token as access token", "Bearer " + refresh, domain.ErrInvalidToken, http.StatusUnauthorized},
		{"subject is not a uuid", "Bearer " + badSubject, domain.ErrInvalidToken, http.StatusUnauthorized},
		{"unknown subject", "Bearer " + unknownUser, domain.ErrUserNotFound, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.gate.Authenticate(ctx, tt.header)
			require.ErrorIs(t, err, tt.want)
			require.Equal(t, tt.status, domain.KindOf(err).Status())
		})
	}
}

func TestGateExpiredToken(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.register(t, "alice@example.com")

	res, err := h.auth.Login(ctx, "alice@example.com", testPassword)
	require.NoError(t, err)

	h.clock.Advance(2 * time.Hour)
	_, err = h.gate.Authenticate(ctx, "Bearer "+res.AccessToken)
	require.ErrorIs(t, err, domain.ErrTokenExpired)
	require.Equal(t, http.StatusUnauthorized, domain.KindOf(err).Status())
}

func TestGateDeletedUser(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	id := h.register(t, "alice@example.com")

	res, err := h.auth.Login(ctx, "alice@example.com", testPassword)
	require.NoError(t, err)
	require.NoError(t, h.store.Users().DeleteUser(ctx, id))

	_, err = h.gate.Authenticate(ctx, "Bearer "+res.AccessToken)
	require.ErrorIs(t, err, domain.ErrUserNotFound)
	require.Equal(t, http.StatusUnauthorized, domain.KindOf(err).Status(), "never 404")
}

func TestGateDenylistedToken(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.register(t, "alice@example.com")

	res, err := h.auth.Login(ctx, "alice@example.com", testPassword)
	require.NoError(t, err)

	p, err := h.gate.Authenticate(ctx, "Bearer "+res.AccessToken)
	require.NoError(t, err)
	require.NoError(t, h.auth.Logout(ctx, p, ""))

	_, err = h.gate.Authenticate(ctx, "Bearer "+res.AccessToken)
	require.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestGateStoreFailure(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.register(t, "alice@example.com")

	res, err := h.auth.Login(ctx, "alice@example.com", testPassword)
	require.NoError(t, err)
	require.NoError(t, h.store.Close())

	_, err = h.gate.Authenticate(ctx, "Bearer "+res.AccessToken)
	require.ErrorIs(t, err, domain.ErrStoreFailure)
	require.Equal(t, http.StatusInternalServerError, domain.KindOf(err).Status())
	require.Equal(t, "internal error", domain.PublicMessage(err))
}

func TestGateConcurrentRequests(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.register(t, "alice@example.com")

	res, err := h.auth.Login(ctx, "alice@example.com", testPassword)
	require.NoError(t, err)

	errs := make(chan error, 32)
	for range 32 {
		go func() {
			_, err := h.gate.Authenticate(ctx, "Bearer "+res.AccessToken)
			errs <- err
		}()
	}
	for range 32 {
		require.NoError(t, <-errs)
	}
}
