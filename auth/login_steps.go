package auth

import (
	"context"

	"github.com/jrsteele09/dormportal/identity"
	apperrors "github.com/jrsteele09/dormportal/internal/errors"
	"github.com/jrsteele09/dormportal/sessions"
	"github.com/jrsteele09/dormportal/tenants"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// loginState is threaded through the login steps. Each step reads what earlier steps
// produced and either adds to it or stops the login with a classified error.
type loginState struct {
	method    string
	limitKey  string // source and account
	sourceKey string // source alone
	attempts  []*Attempt

	email    string
	password string
	idToken  string

	profile *identity.Profile
	tenant  *tenants.Tenant
	session sessions.Session
}

type step struct {
	name string
	run  func(ctx context.Context, st *loginState) error
}

func (s *LoginService) run(ctx context.Context, st *loginState, steps ...step) (*LoginResult, error) {
	for _, stp := range steps {
		if err := stp.run(ctx, st); err != nil {
			kind := apperrors.KindOf(err)
			s.settleAttempts(st, kind == apperrors.KindAuthentication || kind == apperrors.KindEligibility)
			event := log.Info()
			if kind == apperrors.KindUpstream || kind == apperrors.KindInternal {
				event = log.Warn()
			}
			event.Err(err).
				Str("method", st.method).
				Str("step", stp.name).
				Str("kind", string(kind)).
				Msg("login failed")
			return nil, err
		}
	}

	s.settleAttempts(st, false)
	s.limiter.Reset(st.limitKey)
	log.Info().Str("method", st.method).Str("tenant_id", st.tenant.ID).Msg("login succeeded")

	return &LoginResult{
		Tenant:    st.tenant.Public(),
		Token:     st.session.Token,
		ExpiresAt: st.session.ExpiresAt,
	}, nil
}

func (s *LoginService) validateCredentials(_ context.Context, st *loginState) error {
	if st.email == "" || st.password == "" {
		return apperrors.Validation("Email and password are required")
	}
	return nil
}

func (s *LoginService) validateIDToken(_ context.Context, st *loginState) error {
	if st.idToken == "" {
		return apperrors.Validation("ID token is required")
	}
	return nil
}

// throttle reserves budget in the per-account and per-source limiters before any lookup.
func (s *LoginService) throttle(_ context.Context, st *loginState) error {
	account, ok := s.limiter.Take(st.limitKey)
	if !ok {
		return apperrors.RateLimited(errors.Errorf("account failure budget exhausted for %s", st.method))
	}
	source, ok := s.sources.Take(st.sourceKey)
	if !ok {
		account.Release()
		return apperrors.RateLimited(errors.Errorf("source failure budget exhausted for %s", st.method))
	}
	st.attempts = append(st.attempts, account, source)
	return nil
}

// settleAttempts spends the reserved budget for counted failures and returns it otherwise.
func (s *LoginService) settleAttempts(st *loginState, failed bool) {
	for _, a := range st.attempts {
		if failed {
			a.Fail()
		} else {
			a.Release()
		}
	}
	st.attempts = nil
}

func (s *LoginService) verifyIDToken(ctx context.Context, st *loginState) error {
	profile, err := s.verifier.VerifyToken(ctx, st.idToken)
	switch {
	case errors.Is(err, identity.ErrUnreachable):
		return apperrors.Upstream(err)
	case err != nil:
		return apperrors.Authentication(apperrors.MsgInvalidIDToken, err)
	}
	st.profile = profile
	st.email = tenants.NormalizeEmail(profile.Email)
	return nil
}

func (s *LoginService) checkEligibility(ctx context.Context, st *loginState) error {
	tenant, err := s.repos.Tenants.GetByEmail(ctx, st.email)
	switch {
	case errors.Is(err, tenants.ErrNotFound):
		return apperrors.Eligibility(err)
	case err != nil:
		return apperrors.Upstream(errors.Wrap(err, "tenant lookup"))
	case !tenant.IsActive():
		return apperrors.Eligibility(errors.Errorf("tenant %s is %s", tenant.ID, tenant.Status))
	}
	st.tenant = tenant
	return nil
}

func (s *LoginService) checkPassword(_ context.Context, st *loginState) error {
	if !st.tenant.HasPassword() {
		return apperrors.Authentication(apperrors.MsgInvalidCredentials, errors.New("tenant has no password set"))
	}
	if !s.hasher.Compare(st.tenant.PasswordHash, st.password) {
		return apperrors.Authentication(apperrors.MsgInvalidCredentials, errors.New("password mismatch"))
	}
	return nil
}

// bindSubject ties the tenant to the provider subject on first federated login and rejects
// tokens for a different subject afterwards.
func (s *LoginService) bindSubject(ctx context.Context, st *loginState) error {
	subject := st.profile.Subject
	if st.tenant.FederatedSubject != "" {
		if st.tenant.FederatedSubject != subject {
			return apperrors.Authentication(apperrors.MsgInvalidIDToken, tenants.ErrSubjectBound)
		}
		return nil
	}

	err := s.repos.Tenants.BindFederatedSubject(ctx, st.tenant.ID, subject)
	switch {
	case errors.Is(err, tenants.ErrSubjectBound):
		return apperrors.Authentication(apperrors.MsgInvalidIDToken, err)
	case err != nil:
		log.Warn().Err(err).Str("tenant_id", st.tenant.ID).Msg("could not bind federated subject")
	default:
		st.tenant.FederatedSubject = subject
	}
	return nil
}

func (s *LoginService) issueSession(ctx context.Context, st *loginState) error {
	sess, err := s.issuer.Issue(ctx, st.tenant.ID)
	if err != nil {
		return apperrors.Upstream(err)
	}
	st.session = sess
	return nil
}

// recordLogin is best effort; the session already exists.
func (s *LoginService) recordLogin(ctx context.Context, st *loginState) error {
	at := st.session.IssuedAt
	if err := s.repos.Tenants.RecordLogin(ctx, st.tenant.ID, at); err != nil {
		log.Warn().Err(err).Str("tenant_id", st.tenant.ID).Msg("could not record last login")
		return nil
	}
	st.tenant.LastLoginAt = &at
	return nil
}
