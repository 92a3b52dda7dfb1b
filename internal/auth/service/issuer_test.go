package service

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/aussiebroadwan/authcore/internal/auth/domain"
	"github.com/aussiebroadwan/authcore/pkg/jwtx"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func scenarioUser() domain.User {
	return domain.User{
		ID:           uuid.MustParse("11111111-1111-1111-1111-111111111111"),
		Username:     "alice",
		Email:        "alice@example.com",
		PasswordHash: "$argon2id$secret-digest",
	}
}

func TestIssueAccessTokenRoundTrip(t *testing.T) {
	h := newHarness(t)
	u := scenarioUser()

	token, err := h.issuer.IssueAccessToken(u)
	require.NoError(t, err)

	h.clock.Advance(time.Second)
	claims, err := h.codec.Verify(token, h.issuer.Policy.VerifyOptions())
	require.NoError(t, err)
	require.Equal(t, "11111111-1111-1111-1111-111111111111", claims.Subject)
	require.Equal(t, "app", claims.Issuer)
	require.Equal(t, []string{"app-users"}, []string(claims.Audience))
	require.Equal(t, jwtx.UseAccess, claims.Use)
	require.True(t, claims.ExpiresAt.Equal(h.clock.Now().Add(-time.Second).Add(time.Hour)))

	var data map[string]any
	require.NoError(t, json.Unmarshal(claims.Data, &data))
	require.Equal(t, map[string]any{
		"id":       u.ID.String(),
		"username": "alice",
		"email":    "alice@example.com",
	}, data, "the digest must never reach the token")
}

func TestAccessTokenExpiry(t *testing.T) {
	t.Run("no leeway expires after the lifetime", func(t *testing.T) {
		h := newHarness(t)
		h.issuer.Policy.Leeway = 0

		token, err := h.issuer.IssueAccessToken(scenarioUser())
		require.NoError(t, err)

		h.clock.Advance(3601 * time.Second)
		_, err = h.codec.Verify(token, h.issuer.Policy.VerifyOptions())
		require.ErrorIs(t, verifyError(err), domain.ErrTokenExpired)
	})

	t.Run("default leeway tolerates a minute of skew", func(t *testing.T) {
		h := newHarness(t)

		token, err := h.issuer.IssueAccessToken(scenarioUser())
		require.NoError(t, err)

		h.clock.Advance(3601 * time.Second)
		_, err = h.codec.Verify(token, h.issuer.Policy.VerifyOptions())
		require.NoError(t, err)

		h.clock.Advance(59 * time.Second)
		_, err = h.codec.Verify(token, h.issuer.Policy.VerifyOptions())
		require.ErrorIs(t, verifyError(err), domain.ErrTokenExpired)
	})
}

func TestIssueRefreshToken(t *testing.T) {
	h := newHarness(t)
	u := scenarioUser()

	token, env, err := h.issuer.IssueRefreshToken(u.ID)
	require.NoError(t, err)
	require.Equal(t, token, env.RefreshToken)
	require.False(t, env.Revoked)
	require.Equal(t, "app", env.Issuer)
	require.Equal(t, "app-users", env.Audience)
	require.Equal(t, h.clock.Now(), env.IssuedAt)
	require.Equal(t, h.clock.Now().Add(12*time.Hour), env.ExpiresAt)

	claims, err := h.codec.Verify(token, h.issuer.Policy.VerifyOptions())
	require.NoError(t, err)
	require.Equal(t, jwtx.UseRefresh, claims.Use)
	require.Empty(t, claims.Data)

	// Two tokens in the same second still differ.
	again, _, err := h.issuer.IssueRefreshToken(u.ID)
	require.NoError(t, err)
	require.NotEqual(t, token, again)
}

func TestVerifyErrorMapping(t *testing.T) {
	tests := []struct {
		err  error
		want *domain.Error
	}{
		{jwtx.ErrExpired, domain.ErrTokenExpired},
		{jwtx.ErrIssuer, domain.ErrIssuerOrAudienceMismatch},
		{jwtx.ErrAudience, domain.ErrIssuerOrAudienceMismatch},
		{jwtx.ErrInvalidSig, domain.ErrInvalidToken},
		{jwtx.ErrMalformed, domain.ErrInvalidToken},
		{jwtx.ErrNotYetValid, domain.ErrInvalidToken},
		{&jwtx.MissingClaimError{Name: "nbf"}, domain.ErrInvalidToken},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			require.ErrorIs(t, verifyError(tt.err), tt.want)
		})
	}
}
