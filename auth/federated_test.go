package auth_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/jrsteele09/dormportal/identity"
	apperrors "github.com/jrsteele09/dormportal/internal/errors"
	"github.com/stretchr/testify/require"
)

func TestLoginWithFederatedToken(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()
	f.verifier.profiles["good-token"] = &identity.Profile{
		Email:         "P.VinceBryn@gmail.com",
		Subject:       "uid-1",
		EmailVerified: true,
	}

	res, err := f.service.LoginWithFederatedToken(ctx, "good-token", testSource)
	require.NoError(t, err)
	require.Equal(t, f.tenant.ID, res.Tenant.ID)
	require.NotEmpty(t, res.Token)

	principal, err := f.gate.Authorize(ctx, res.Token)
	require.NoError(t, err)
	require.Equal(t, f.tenant.ID, principal.Tenant.ID)

	stored, err := f.tenants.GetByID(ctx, f.tenant.ID)
	require.NoError(t, err)
	require.Equal(t, "uid-1", stored.FederatedSubject)

	// the same result shape as a password login
	pw, err := f.service.LoginWithPassword(ctx, testEmail, testPassword, testSource)
	require.NoError(t, err)
	require.Equal(t, res.Tenant.ID, pw.Tenant.ID)
	require.Equal(t, res.Tenant.Email, pw.Tenant.Email)
}

func TestLoginWithFederatedToken_SubjectMismatch(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()
	f.verifier.profiles["first"] = &identity.Profile{Email: testEmail, Subject: "uid-1", EmailVerified: true}
	f.verifier.profiles["second"] = &identity.Profile{Email: testEmail, Subject: "uid-2", EmailVerified: true}

	_, err := f.service.LoginWithFederatedToken(ctx, "first", testSource)
	require.NoError(t, err)

	_, err = f.service.LoginWithFederatedToken(ctx, "second", testSource)
	requireKind(t, err, apperrors.KindAuthentication)
}

func TestLoginWithFederatedToken_Failures(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()
	f.verifier.profiles["stranger"] = &identity.Profile{Email: "nonexistent@test.com", Subject: "uid-9", EmailVerified: true}

	_, err := f.service.LoginWithFederatedToken(ctx, "  ", "a")
	requireKind(t, err, apperrors.KindValidation)

	_, err = f.service.LoginWithFederatedToken(ctx, "forged", "b")
	requireKind(t, err, apperrors.KindAuthentication)
	require.Equal(t, apperrors.MsgInvalidIDToken, apperrors.MessageOf(err))

	_, err = f.service.LoginWithFederatedToken(ctx, "stranger", "c")
	requireKind(t, err, apperrors.KindEligibility)

	f.verifier.err = fmt.Errorf("%w: jwks fetch timed out", identity.ErrUnreachable)
	_, err = f.service.LoginWithFederatedToken(ctx, "stranger", "d")
	requireKind(t, err, apperrors.KindUpstream)

	f.verifier.err = fmt.Errorf("%w: email not verified", identity.ErrInvalidToken)
	_, err = f.service.LoginWithFederatedToken(ctx, "stranger", "e")
	requireKind(t, err, apperrors.KindAuthentication)
}
