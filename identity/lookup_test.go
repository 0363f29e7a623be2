package identity_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jrsteele09/dormportal/identity"
	"github.com/stretchr/testify/require"
)

func lookupProvider(t *testing.T, handler http.HandlerFunc) *identity.Provider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	p, err := identity.NewProvider(identity.Config{
		Issuer:      testIssuer,
		Audience:    testAudience,
		LookupURL:   srv.URL + "/v1/projects/dorm-portal/accounts:lookup",
		AccessToken: "test-access",
		Timeout:     time.Second,
	})
	require.NoError(t, err)
	return p
}

func TestVerifyEmail(t *testing.T) {
	p := lookupProvider(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "Bearer test-access", r.Header.Get("Authorization"))

		var req struct {
			Email []string `json:"email"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.Email[0] != "p.vincebryn@gmail.com" {
			_, _ = w.Write([]byte(`{}`))
			return
		}
		_, _ = w.Write([]byte(`{"users":[{"localId":"uid-1","email":"p.vincebryn@gmail.com","emailVerified":true,"displayName":"Vince"}]}`))
	})

	profile, err := p.VerifyEmail(context.Background(), "p.vincebryn@gmail.com")
	require.NoError(t, err)
	require.Equal(t, "uid-1", profile.Subject)
	require.Equal(t, "Vince", profile.Name)

	_, err = p.VerifyEmail(context.Background(), "nobody@test.com")
	require.ErrorIs(t, err, identity.ErrNotFound)
}

func TestVerifyEmail_FailureClasses(t *testing.T) {
	notFound := lookupProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	_, err := notFound.VerifyEmail(context.Background(), "a@b.com")
	require.ErrorIs(t, err, identity.ErrNotFound)

	broken := lookupProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	_, err = broken.VerifyEmail(context.Background(), "a@b.com")
	require.ErrorIs(t, err, identity.ErrUnreachable)

	slow := lookupProvider(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(3 * time.Second):
		}
	})
	_, err = slow.VerifyEmail(context.Background(), "a@b.com")
	require.ErrorIs(t, err, identity.ErrUnreachable)
	require.NotErrorIs(t, err, identity.ErrNotFound)
}

func TestVerifyEmail_NotConfigured(t *testing.T) {
	p, err := identity.NewProvider(identity.Config{Issuer: testIssuer, Audience: testAudience})
	require.NoError(t, err)

	_, err = p.VerifyEmail(context.Background(), "a@b.com")
	require.ErrorIs(t, err, identity.ErrUnreachable)
}
