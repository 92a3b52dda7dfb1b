package httpx

import "net/http"

// RequireSelf only lets the request through when the authenticated user is
// the one named by the {param} path value. Must run after AuthnMiddleware.
func RequireSelf(param string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			uid, ok := UserIDFromContext(r.Context())
			if !ok {
				WriteBearerError(w, http.StatusUnauthorized, "invalid_token", "missing authentication")
				return
			}

			if r.PathValue(param) != uid {
				WriteError(w, http.StatusForbidden, "forbidden", "not permitted to act on this resource")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
