package httpx

import "context"

type ctxKey string

const (
	CtxKeyUserID ctxKey = "user_id"
	CtxKeyClaims ctxKey = "claims" // full jwtx.Claims of the bearer token
)

// ContextWithAuth records the authenticated subject and its token claims.
func ContextWithAuth(ctx context.Context, userID string, claims any) context.Context {
	ctx = context.WithValue(ctx, CtxKeyUserID, userID)
	ctx = context.WithValue(ctx, CtxKeyClaims, claims)
	return ctx
}

// UserIDFromContext returns the subject admitted by the auth middleware.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(CtxKeyUserID).(string)
	return id, ok && id != ""
}
