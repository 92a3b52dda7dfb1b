package http

import (
	"context"

	"github.com/aussiebroadwan/authcore/internal/auth/service"
	"github.com/aussiebroadwan/authcore/pkg/httpx"
	"github.com/aussiebroadwan/authcore/pkg/slogx"
)

type principalKey struct{}

// gateAuthenticator adapts the service gate to httpx.AuthnMiddleware.
type gateAuthenticator struct {
	gate *service.Gate
}

func (a gateAuthenticator) Authenticate(ctx context.Context, authorization string) (context.Context, error) {
	p, err := a.gate.Authenticate(ctx, authorization)
	if err != nil {
		return ctx, err
	}

	ctx = context.WithValue(ctx, principalKey{}, p)
	ctx = httpx.ContextWithAuth(ctx, p.UserID.String(), p.Claims)
	ctx = slogx.With(ctx, "user_id", p.UserID.String())
	return ctx, nil
}

// principalFrom returns the principal admitted by the gate.
func principalFrom(ctx context.Context) (service.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(service.Principal)
	return p, ok
}
