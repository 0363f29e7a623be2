package auth

import (
	"context"
	"time"

	apperrors "github.com/jrsteele09/dormportal/internal/errors"
	"github.com/jrsteele09/dormportal/sessions"
	"github.com/jrsteele09/dormportal/tenants"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Gate resolves a session token to a live, active tenant. It is the only place a request's
// identity is established.
type Gate struct {
	repos   Repos
	nowTime func() time.Time
}

func NewGate(repos Repos, options ...Option) (*Gate, error) {
	if repos.Tenants == nil {
		return nil, errors.New("[NewGate] Tenants repo is required")
	}
	if repos.Sessions == nil {
		return nil, errors.New("[NewGate] Sessions repo is required")
	}
	o := applyOptions(options)
	return &Gate{repos: repos, nowTime: o.nowTime}, nil
}

// Authorize fails closed: anything other than a known, unexpired session owned by an active
// tenant is an authentication error, except store failures which are upstream errors.
func (g *Gate) Authorize(ctx context.Context, rawToken string) (*Principal, error) {
	if rawToken == "" {
		return nil, apperrors.Authentication(apperrors.MsgNotAuthenticated, errors.New("no session token"))
	}

	s, err := g.repos.Sessions.Get(ctx, rawToken)
	if errors.Is(err, sessions.ErrNotFound) {
		return nil, apperrors.Authentication(apperrors.MsgNotAuthenticated, err)
	}
	if err != nil {
		return nil, apperrors.Upstream(errors.Wrap(err, "[Gate.Authorize] session lookup"))
	}

	if err := sessions.Validate(g.nowTime(), s); err != nil {
		if errors.Is(err, sessions.ErrExpired) {
			g.purge(ctx, s)
		}
		return nil, apperrors.Authentication(apperrors.MsgNotAuthenticated, err)
	}

	tenant, err := g.repos.Tenants.GetByID(ctx, s.OwnerID)
	if errors.Is(err, tenants.ErrNotFound) {
		return nil, apperrors.Authentication(apperrors.MsgNotAuthenticated, errors.Wrap(err, "session owner"))
	}
	if err != nil {
		return nil, apperrors.Upstream(errors.Wrap(err, "[Gate.Authorize] owner lookup"))
	}
	if !tenant.IsActive() {
		return nil, apperrors.Authentication(apperrors.MsgNotAuthenticated, errors.New("session owner is inactive"))
	}

	return &Principal{Tenant: tenant, Session: *s}, nil
}

func (g *Gate) purge(ctx context.Context, s *sessions.Session) {
	if err := g.repos.Sessions.Delete(context.WithoutCancel(ctx), s.Token); err != nil {
		log.Warn().Err(err).Str("token", sessions.Redact(s.Token)).Msg("could not purge expired session")
	}
}
