package auth

import (
	"context"

	"github.com/jrsteele09/dormportal/sessions"
	"github.com/jrsteele09/dormportal/tenants"
)

// Principal is the authenticated tenant behind a request, with the session that proved it.
type Principal struct {
	Tenant  *tenants.Tenant
	Session sessions.Session
}

type principalKey struct{}

func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the principal attached by the authorization gate, if any.
func PrincipalFrom(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*Principal)
	return p, ok && p != nil
}
