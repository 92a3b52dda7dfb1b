package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	authhttp "github.com/aussiebroadwan/authcore/internal/auth/http"
	"github.com/aussiebroadwan/authcore/internal/auth/revocation"
	"github.com/aussiebroadwan/authcore/internal/auth/service"
	"github.com/aussiebroadwan/authcore/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/authcore/pkg/authsdk"
	"github.com/aussiebroadwan/authcore/pkg/cryptox"
	"github.com/aussiebroadwan/authcore/pkg/httpx"
	"github.com/aussiebroadwan/authcore/pkg/jwtx"
	"github.com/aussiebroadwan/authcore/pkg/slogx"
)

const testPassword = "correct horse battery"

type testServer struct {
	*httptest.Server
	sdk    *authsdk.SDKClient
	router *authhttp.Router
}

func newTestServer(t *testing.T, denylist revocation.Denylist) *testServer {
	t.Helper()

	st, err := sqlite.NewStore(sqlite.MemoryDSN)
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })

	codec, err := jwtx.NewHS256([]byte("http-test-secret-0123456789-abcdefgh"))
	require.NoError(t, err)
	if denylist == nil {
		denylist = revocation.NewMemory()
	}

	policy := service.DefaultPolicy("app", "app-users")
	issuer := &service.TokenIssuer{Signer: codec, Policy: policy}

	logger := slogx.New(slogx.Config{Level: "error", Format: "text", Output: io.Discard})
	r := authhttp.NewRouter("test", st, logger)
	r.Gate = &service.Gate{Verifier: codec, Policy: policy, Store: st, Denylist: denylist}
	r.AuthService = &service.AuthService{
		Store:    st,
		Issuer:   issuer,
		Verifier: codec,
		Hasher:   cryptox.NewPasswordHasher("pepper"),
		Denylist: denylist,
	}
	r.UserService = &service.UserService{Store: st}
	r.Denylist = denylist
	r.Cookie = authhttp.CookieConfig{Secure: false}
	r.Limits = authhttp.Limits{} // unlimited
	r.ApplyRoutes()

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, sdk: authsdk.NewSDKClient(srv.URL), router: r}
}

func (s *testServer) post(t *testing.T, path, token string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(http.MethodPost, s.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func requireErrorCode(t *testing.T, resp *http.Response, status int, code string) {
	t.Helper()
	require.Equal(t, status, resp.StatusCode)
	var body httpx.ErrorBody
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, code, body.Error)
}

func requireAPIError(t *testing.T, err error, status int, code string) {
	t.Helper()
	var apiErr *authsdk.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, status, apiErr.StatusCode)
	require.Equal(t, code, apiErr.Code)
}

func TestSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newTestServer(t, nil)

	id, err := s.sdk.Register(ctx, "alice", "Alice@Example.com", testPassword)
	require.NoError(t, err)

	sess, err := s.sdk.Login(ctx, "alice@example.com", testPassword)
	require.NoError(t, err)
	require.Equal(t, id, sess.UserID())

	u, err := sess.GetUser(ctx)
	require.NoError(t, err)
	require.Equal(t, "alice@example.com", u.Email)
	require.Equal(t, "alice", u.Username)

	first := sess.RefreshEnvelope()
	require.NoError(t, sess.Refresh(ctx))
	second := sess.RefreshEnvelope()
	require.NotEqual(t, first.RefreshToken, second.RefreshToken)

	// Reusing a consumed envelope is treated as theft
	_, err = s.sdk.Refresh(ctx, first)
	requireAPIError(t, err, http.StatusUnauthorized, authsdk.ErrorCodeInvalidToken)

	// ...and takes the rest of the family with it
	_, err = s.sdk.Refresh(ctx, second)
	requireAPIError(t, err, http.StatusUnauthorized, authsdk.ErrorCodeInvalidToken)

	// The access token is still valid until logout
	access := sess.AccessToken()
	require.NoError(t, sess.Logout(ctx))

	req, err := http.NewRequest(http.MethodGet, s.URL+"/v1/users/"+id.String(), nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+access)
	resp, err := s.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.NotEmpty(t, resp.Header.Get("WWW-Authenticate"))
	requireErrorCode(t, resp, http.StatusUnauthorized, "invalid_token")
}

func TestRegisterRejections(t *testing.T) {
	ctx := context.Background()
	s := newTestServer(t, nil)

	_, err := s.sdk.Register(ctx, "alice", "alice@example.com", testPassword)
	require.NoError(t, err)

	_, err = s.sdk.Register(ctx, "alice2", "ALICE@example.com", testPassword)
	requireAPIError(t, err, http.StatusConflict, authsdk.ErrorCodeConflict)

	_, err = s.sdk.Register(ctx, "bob", "not-an-email", testPassword)
	requireAPIError(t, err, http.StatusBadRequest, authsdk.ErrorCodeInvalidRequest)

	resp := s.post(t, "/v1/auth/register", "", map[string]string{"unexpected": "field"})
	requireErrorCode(t, resp, http.StatusBadRequest, "invalid_request")
}

func TestLoginRejections(t *testing.T) {
	ctx := context.Background()
	s := newTestServer(t, nil)

	_, err := s.sdk.Register(ctx, "alice", "alice@example.com", testPassword)
	require.NoError(t, err)

	_, err = s.sdk.LoginRaw(ctx, "alice@example.com", "wrong password")
	requireAPIError(t, err, http.StatusUnauthorized, authsdk.ErrorCodeInvalidCredentials)

	_, err = s.sdk.LoginRaw(ctx, "nobody@example.com", testPassword)
	requireAPIError(t, err, http.StatusUnauthorized, authsdk.ErrorCodeInvalidCredentials)
}

func TestGateResponses(t *testing.T) {
	s := newTestServer(t, nil)
	target := s.URL + "/v1/users/00000000-0000-0000-0000-000000000001"

	tests := []struct {
		name          string
		authorization string
		status        int
		code          string
	}{
		{"missing header", "", http.StatusBadRequest, "missing_header"},
		{"wrong scheme", "Basic dXNlcjpwYXNz", http.StatusBadRequest, "invalid_header"},
		{"empty bearer", "Bearer ", http.StatusBadRequest, "invalid_header"},
		{"garbage token", "Bearer not.a.jwt", http.StatusUnauthorized, "invalid_token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(http.MethodGet, target, nil)
			require.NoError(t, err)
			if tt.authorization != "" {
				req.Header.Set("Authorization", tt.authorization)
			}
			resp, err := s.Client().Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()

			requireErrorCode(t, resp, tt.status, tt.code)
			if tt.status == http.StatusUnauthorized {
				require.Contains(t, resp.Header.Get("WWW-Authenticate"), "Bearer")
			}
		})
	}
}

func TestRefreshTokenIsNotAnAccessToken(t *testing.T) {
	ctx := context.Background()
	s := newTestServer(t, nil)

	id, err := s.sdk.Register(ctx, "alice", "alice@example.com", testPassword)
	require.NoError(t, err)
	login, err := s.sdk.LoginRaw(ctx, "alice@example.com", testPassword)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodGet, s.URL+"/v1/users/"+id.String(), nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+login.Refresh.RefreshToken)
	resp, err := s.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	requireErrorCode(t, resp, http.StatusUnauthorized, "invalid_token")

	_, err = s.sdk.Refresh(ctx, authsdk.RefreshEnvelope{RefreshToken: login.AccessToken})
	requireAPIError(t, err, http.StatusUnauthorized, authsdk.ErrorCodeInvalidToken)
}

func TestUsersAreSelfService(t *testing.T) {
	ctx := context.Background()
	s := newTestServer(t, nil)

	_, err := s.sdk.Register(ctx, "alice", "alice@example.com", testPassword)
	require.NoError(t, err)
	bob, err := s.sdk.Register(ctx, "bob", "bob@example.com", testPassword)
	require.NoError(t, err)

	alice, err := s.sdk.Login(ctx, "alice@example.com", testPassword)
	require.NoError(t, err)

	for _, method := range []string{http.MethodGet, http.MethodDelete} {
		req, err := http.NewRequest(method, s.URL+"/v1/users/"+bob.String(), nil)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+alice.AccessToken())
		resp, err := s.Client().Do(req)
		require.NoError(t, err)
		requireErrorCode(t, resp, http.StatusForbidden, "forbidden")
		_ = resp.Body.Close()
	}

	access := alice.AccessToken()
	require.NoError(t, alice.DeleteUser(ctx))

	// The token still verifies but its subject is gone
	req, err := http.NewRequest(http.MethodGet, s.URL+"/v1/users/"+alice.UserID().String(), nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+access)
	resp, err := s.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	requireErrorCode(t, resp, http.StatusUnauthorized, "user_not_found")
}

func TestRefreshCookie(t *testing.T) {
	ctx := context.Background()
	s := newTestServer(t, nil)

	_, err := s.sdk.Register(ctx, "alice", "alice@example.com", testPassword)
	require.NoError(t, err)

	resp := s.post(t, "/v1/auth/login", "", authsdk.LoginRequest{Email: "alice@example.com", Password: testPassword})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var cookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == "refresh_token" {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	require.True(t, cookie.HttpOnly)
	require.Equal(t, http.SameSiteStrictMode, cookie.SameSite)
	require.Equal(t, "/v1/auth", cookie.Path)

	// No body: the cookie is used
	req, err := http.NewRequest(http.MethodPost, s.URL+"/v1/auth/refresh", nil)
	require.NoError(t, err)
	req.AddCookie(&http.Cookie{Name: cookie.Name, Value: cookie.Value})
	refreshed, err := s.Client().Do(req)
	require.NoError(t, err)
	defer refreshed.Body.Close()
	require.Equal(t, http.StatusOK, refreshed.StatusCode)

	var out authsdk.RefreshResponse
	require.NoError(t, json.NewDecoder(refreshed.Body).Decode(&out))
	require.Equal(t, "Bearer", out.TokenType)
	require.NotEmpty(t, out.AccessToken)

	// Replaying the old cookie fails and clears it
	req, err = http.NewRequest(http.MethodPost, s.URL+"/v1/auth/refresh", nil)
	require.NoError(t, err)
	req.AddCookie(&http.Cookie{Name: cookie.Name, Value: cookie.Value})
	replay, err := s.Client().Do(req)
	require.NoError(t, err)
	defer replay.Body.Close()
	require.Equal(t, http.StatusUnauthorized, replay.StatusCode)

	var cleared bool
	for _, c := range replay.Cookies() {
		if c.Name == "refresh_token" && c.MaxAge < 0 {
			cleared = true
		}
	}
	require.True(t, cleared)
}

func TestRefreshWithoutToken(t *testing.T) {
	s := newTestServer(t, nil)

	resp := s.post(t, "/v1/auth/refresh", "", nil)
	requireErrorCode(t, resp, http.StatusBadRequest, "invalid_request")
}

func TestHealth(t *testing.T) {
	ctx := context.Background()

	t.Run("livez", func(t *testing.T) {
		s := newTestServer(t, nil)
		h, err := s.sdk.GetLiveness(ctx)
		require.NoError(t, err)
		require.Equal(t, "ok", h.Status)
		require.Equal(t, "test", h.Version)
	})

	t.Run("readyz with redis", func(t *testing.T) {
		mr := miniredis.RunT(t)
		s := newTestServer(t, revocation.NewRedis(redis.NewClient(&redis.Options{Addr: mr.Addr()})))

		h, err := s.sdk.GetReadiness(ctx)
		require.NoError(t, err)
		require.Equal(t, "ok", h.Status)
		require.Equal(t, "ok", h.Checks.Database)
		require.Equal(t, "ok", h.Checks.Denylist)
	})

	t.Run("readyz redis down", func(t *testing.T) {
		mr, err := miniredis.Run()
		require.NoError(t, err)
		addr := mr.Addr()
		mr.Close()

		client := redis.NewClient(&redis.Options{Addr: addr, MaxRetries: -1})
		t.Cleanup(func() { _ = client.Close() })
		s := newTestServer(t, revocation.NewRedis(client))

		h, err := s.sdk.GetReadiness(ctx)
		requireAPIError(t, err, http.StatusServiceUnavailable, "degraded")
		require.NotNil(t, h)
		require.Equal(t, "degraded", h.Status)
		require.Equal(t, "ok", h.Checks.Database)
		require.Contains(t, h.Checks.Denylist, "error")
	})
}
