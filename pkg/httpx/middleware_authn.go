package httpx

import (
	"context"
	"net/http"
)

// Authenticator admits or rejects a request from its Authorization header.
// On success it returns the context downstream handlers should see.
type Authenticator interface {
	Authenticate(ctx context.Context, authorization string) (context.Context, error)
}

// ErrorWriter renders an authentication failure. It must write exactly one
// response.
type ErrorWriter func(w http.ResponseWriter, r *http.Request, err error)

// AuthnMiddleware runs a on every request and either forwards with the
// enriched context or hands the error to onError. Nothing is held across the
// call so concurrent requests never contend here.
func AuthnMiddleware(a Authenticator, onError ErrorWriter) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, err := a.Authenticate(r.Context(), r.Header.Get("Authorization"))
			if err != nil {
				onError(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
