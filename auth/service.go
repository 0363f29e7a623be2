package auth

import (
	"context"
	"strings"
	"time"

	"github.com/jrsteele09/dormportal/identity"
	apperrors "github.com/jrsteele09/dormportal/internal/errors"
	"github.com/jrsteele09/dormportal/sessions"
	"github.com/jrsteele09/dormportal/tenants"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Repos holds the repository dependencies shared by the login service and the gate.
type Repos struct {
	Tenants  tenants.Repo  // Tenant directory
	Sessions sessions.Repo // Issued sessions
}

// LoginResult has the same shape whichever way the tenant signed in.
type LoginResult struct {
	Tenant    tenants.Profile
	Token     string
	ExpiresAt time.Time
}

// LoginService turns credentials or a federated ID token into a session, and handles
// logout and tenant deactivation.
type LoginService struct {
	repos    Repos
	verifier identity.Verifier
	issuer   *Issuer
	limiter  *FailureLimiter
	sources  *FailureLimiter
	hasher   *tenants.Hasher
	nowTime  func() time.Time
}

func NewLoginService(repos Repos, verifier identity.Verifier, issuer *Issuer, options ...Option) (*LoginService, error) {
	if repos.Tenants == nil {
		return nil, errors.New("[NewLoginService] Tenants repo is required")
	}
	if repos.Sessions == nil {
		return nil, errors.New("[NewLoginService] Sessions repo is required")
	}
	if verifier == nil {
		return nil, errors.New("[NewLoginService] identity verifier is required")
	}
	if issuer == nil {
		return nil, errors.New("[NewLoginService] issuer is required")
	}
	o := applyOptions(options)
	return &LoginService{
		repos:    repos,
		verifier: verifier,
		issuer:   issuer,
		limiter:  o.limiter,
		sources:  o.sourceLimiter,
		hasher:   o.hasher,
		nowTime:  o.nowTime,
	}, nil
}

// LoginWithPassword signs a tenant in with email and password. source identifies the caller
// (usually the client IP) for throttling.
func (s *LoginService) LoginWithPassword(ctx context.Context, email, password, source string) (*LoginResult, error) {
	st := &loginState{
		method:    "password",
		email:     tenants.NormalizeEmail(email),
		password:  password,
		sourceKey: source,
	}
	st.limitKey = source + "|" + st.email

	return s.run(ctx, st,
		step{"validate", s.validateCredentials},
		step{"throttle", s.throttle},
		step{"eligibility", s.checkEligibility},
		step{"password", s.checkPassword},
		step{"issue", s.issueSession},
		step{"record", s.recordLogin},
	)
}

// LoginWithFederatedToken signs a tenant in with an ID token from the identity provider.
func (s *LoginService) LoginWithFederatedToken(ctx context.Context, idToken, source string) (*LoginResult, error) {
	st := &loginState{
		method:    "federated",
		idToken:   strings.TrimSpace(idToken),
		limitKey:  source + "|federated",
		sourceKey: source,
	}

	return s.run(ctx, st,
		step{"validate", s.validateIDToken},
		step{"throttle", s.throttle},
		step{"verify", s.verifyIDToken},
		step{"eligibility", s.checkEligibility},
		step{"subject", s.bindSubject},
		step{"issue", s.issueSession},
		step{"record", s.recordLogin},
	)
}

// Logout revokes one session. Unknown tokens are not an error.
func (s *LoginService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.repos.Sessions.Delete(ctx, token); err != nil {
		return apperrors.Upstream(errors.Wrap(err, "[LoginService.Logout]"))
	}
	return nil
}

// LogoutAll revokes every session the tenant holds and returns how many there were.
func (s *LoginService) LogoutAll(ctx context.Context, tenantID string) (int, error) {
	n, err := s.repos.Sessions.DeleteByOwner(ctx, tenantID)
	if err != nil {
		return 0, apperrors.Upstream(errors.Wrap(err, "[LoginService.LogoutAll]"))
	}
	log.Info().Str("tenant_id", tenantID).Int("sessions", n).Msg("revoked all sessions")
	return n, nil
}

// Deactivate marks the tenant inactive and revokes their outstanding sessions.
func (s *LoginService) Deactivate(ctx context.Context, tenantID string) (int, error) {
	if err := s.repos.Tenants.SetStatus(ctx, tenantID, tenants.StatusInactive); err != nil {
		return 0, errors.Wrap(err, "[LoginService.Deactivate] set status")
	}
	n, err := s.repos.Sessions.DeleteByOwner(ctx, tenantID)
	if err != nil {
		// the gate rejects inactive owners regardless, so the sessions are already unusable
		return 0, errors.Wrap(err, "[LoginService.Deactivate] revoke sessions")
	}
	log.Info().Str("tenant_id", tenantID).Int("sessions", n).Msg("tenant deactivated")
	return n, nil
}

func (s *LoginService) Activate(ctx context.Context, tenantID string) error {
	if err := s.repos.Tenants.SetStatus(ctx, tenantID, tenants.StatusActive); err != nil {
		return errors.Wrap(err, "[LoginService.Activate] set status")
	}
	return nil
}

// PruneExpired deletes sessions that are past their expiry.
func (s *LoginService) PruneExpired(ctx context.Context) (int, error) {
	n, err := s.repos.Sessions.DeleteExpired(ctx, s.nowTime())
	if err != nil {
		return 0, errors.Wrap(err, "[LoginService.PruneExpired]")
	}
	return n, nil
}
