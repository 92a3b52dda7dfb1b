package httpx_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aussiebroadwan/authcore/pkg/httpx"
	"github.com/stretchr/testify/require"
)

func TestChainOrder(t *testing.T) {
	var order []string
	mark := func(name string) httpx.Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := httpx.Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "handler")
	}), mark("first"), mark("second"))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, []string{"first", "second", "handler"}, order)
}

type stubAuthenticator struct {
	userID string
	err    error
	header string
}

func (s *stubAuthenticator) Authenticate(ctx context.Context, authorization string) (context.Context, error) {
	s.header = authorization
	if s.err != nil {
		return nil, s.err
	}
	return httpx.ContextWithAuth(ctx, s.userID, nil), nil
}

func TestAuthnMiddleware(t *testing.T) {
	errDenied := errors.New("denied")

	onError := func(w http.ResponseWriter, r *http.Request, err error) {
		httpx.WriteBearerError(w, http.StatusUnauthorized, "invalid_token", err.Error())
	}

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uid, ok := httpx.UserIDFromContext(r.Context())
		require.True(t, ok)
		_, _ = w.Write([]byte(uid))
	})

	t.Run("admits", func(t *testing.T) {
		a := &stubAuthenticator{userID: "user-1"}
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer abc")

		httpx.Chain(next, httpx.AuthnMiddleware(a, onError)).ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "user-1", rec.Body.String())
		require.Equal(t, "Bearer abc", a.header)
	})

	t.Run("rejects", func(t *testing.T) {
		a := &stubAuthenticator{err: errDenied}
		rec := httptest.NewRecorder()

		httpx.Chain(next, httpx.AuthnMiddleware(a, onError)).
			ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Contains(t, rec.Header().Get("WWW-Authenticate"), `error="invalid_token"`)
		require.Contains(t, rec.Body.String(), "denied")
	})
}

func TestRequireSelf(t *testing.T) {
	mux := http.NewServeMux()
	mux.Handle("GET /users/{id}", httpx.Chain(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) }),
		httpx.AuthnMiddleware(&stubAuthenticator{userID: "me"}, nil),
		httpx.RequireSelf("id"),
	))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users/me", nil))
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users/someone-else", nil))
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Contains(t, rec.Body.String(), `"error":"forbidden"`)
}

func TestDecodeJSON(t *testing.T) {
	type body struct {
		Email string `json:"email"`
	}

	cases := []struct {
		name    string
		payload string
		wantErr bool
	}{
		{name: "valid", payload: `{"email":"a@example.com"}`},
		{name: "unknown field", payload: `{"email":"a@example.com","admin":true}`, wantErr: true},
		{name: "trailing object", payload: `{"email":"a"}{"email":"b"}`, wantErr: true},
		{name: "not json", payload: `email=a`, wantErr: true},
		{name: "too large", payload: `{"email":"` + strings.Repeat("a", httpx.MaxBodyBytes) + `"}`, wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var b body
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tc.payload))
			err := httpx.DecodeJSON(httptest.NewRecorder(), req, &b)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, "a@example.com", b.Email)
		})
	}
}

func TestWriteJSONNoCache(t *testing.T) {
	rec := httptest.NewRecorder()
	httpx.WriteJSON(rec, http.StatusCreated, map[string]string{"ok": "yes"})

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	require.JSONEq(t, `{"ok":"yes"}`, rec.Body.String())
}
