package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/jrsteele09/dormportal/auth"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
)

// TokenFromRequest returns the session token from an "Authorization: Bearer" header, falling
// back to the session cookie. Empty if neither is present.
func TokenFromRequest(r *http.Request) string {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			if token := strings.TrimSpace(parts[1]); token != "" {
				return token
			}
		}
	}
	if cookie, err := r.Cookie(sessionCookieName); err == nil {
		return cookie.Value
	}
	return ""
}

// authorizeStep resolves the request's session to a tenant and attaches it to the context.
func (s *Server) authorizeStep(r *http.Request) (context.Context, error) {
	principal, err := s.gate.Authorize(r.Context(), TokenFromRequest(r))
	if err != nil {
		return nil, err
	}
	hlog.FromRequest(r).UpdateContext(func(c zerolog.Context) zerolog.Context {
		return c.Str("tenant_id", principal.Tenant.ID)
	})
	return auth.WithPrincipal(r.Context(), principal), nil
}
