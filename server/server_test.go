package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/dormportal/auth"
	"github.com/jrsteele09/dormportal/identity"
	"github.com/jrsteele09/dormportal/internal/config"
	apperrors "github.com/jrsteele09/dormportal/internal/errors"
	"github.com/jrsteele09/dormportal/server"
	sessionrepofakes "github.com/jrsteele09/dormportal/sessions/repofakes"
	"github.com/jrsteele09/dormportal/tenants"
	tenantrepofakes "github.com/jrsteele09/dormportal/tenants/repofakes"
	"github.com/stretchr/testify/require"
)

const (
	testEmail    = "p.vincebryn@gmail.com"
	testPassword = "testpassword"
)

type clock struct {
	lock sync.Mutex
	now  time.Time
}

func (c *clock) Now() time.Time {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.now = c.now.Add(d)
}

type fakeVerifier struct {
	profiles map[string]*identity.Profile
}

func (v *fakeVerifier) VerifyEmail(context.Context, string) (*identity.Profile, error) {
	return nil, identity.ErrNotFound
}

func (v *fakeVerifier) VerifyToken(_ context.Context, raw string) (*identity.Profile, error) {
	p, ok := v.profiles[raw]
	if !ok {
		return nil, identity.ErrInvalidToken
	}
	return p, nil
}

type testFixture struct {
	clock    *clock
	tenants  *tenantrepofakes.FakeTenantRepo
	sessions *sessionrepofakes.FakeSessionRepo
	verifier *fakeVerifier
	server   *server.Server
	tenant   *tenants.Tenant
}

func setupTestFixture(t *testing.T, values map[string]any) *testFixture {
	t.Helper()
	f := &testFixture{
		clock:    &clock{now: time.Now().UTC().Truncate(time.Second)},
		tenants:  tenantrepofakes.NewFakeTenantRepo(),
		sessions: sessionrepofakes.NewFakeSessionRepo(),
		verifier: &fakeVerifier{profiles: map[string]*identity.Profile{}},
	}

	tenant, err := tenants.New(testEmail, "Vince Bryn", tenants.RoleResident)
	require.NoError(t, err)
	tenant.PasswordHash, err = tenants.NewHasher(4).Hash(testPassword)
	require.NoError(t, err)
	require.NoError(t, f.tenants.Create(context.Background(), tenant))
	f.tenant = tenant

	settings := map[string]any{
		"BCRYPT_COST":     4,
		"SESSION_TTL":     "168h",
		"ALLOWED_ORIGINS": "https://portal.example",
		"ENV":             "TEST",
	}
	for k, v := range values {
		settings[k] = v
	}
	cfg := config.New(config.WithValues(settings))

	f.server, err = server.New(cfg, server.Deps{
		Repos:    auth.Repos{Tenants: f.tenants, Sessions: f.sessions},
		Verifier: f.verifier,
	}, auth.WithNowTime(f.clock.Now))
	require.NoError(t, err)
	return f
}

func (f *testFixture) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	return rec
}

func (f *testFixture) login(t *testing.T) server.LoginResponse {
	t.Helper()
	rec := f.do(t, http.MethodPost, server.RouteAuthLogin, server.LoginRequest{Email: testEmail, Password: testPassword}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp server.LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) server.ErrorResponse {
	t.Helper()
	var resp server.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestLogin(t *testing.T) {
	f := setupTestFixture(t, nil)

	rec := f.do(t, http.MethodPost, server.RouteAuthLogin, server.LoginRequest{Email: testEmail, Password: testPassword}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	var resp server.LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, f.tenant.ID, resp.User.ID)
	require.Equal(t, testEmail, resp.User.Email)
	require.Len(t, resp.SessionToken, 43)
	require.WithinDuration(t, f.clock.Now().Add(168*time.Hour), resp.ExpiresAt, time.Second)
	require.NotContains(t, rec.Body.String(), "password")

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, "session_token", cookies[0].Name)
	require.Equal(t, resp.SessionToken, cookies[0].Value)
	require.True(t, cookies[0].HttpOnly)
	require.Equal(t, 168*60*60, cookies[0].MaxAge)
}

func TestLogin_Errors(t *testing.T) {
	f := setupTestFixture(t, nil)

	tests := []struct {
		name   string
		body   any
		status int
		kind   apperrors.Kind
		detail string
	}{
		{"malformed body", "{not json", http.StatusBadRequest, apperrors.KindValidation, ""},
		{"missing email", server.LoginRequest{Password: "test"}, http.StatusBadRequest, apperrors.KindValidation, ""},
		{"missing password", server.LoginRequest{Email: "test@test.com"}, http.StatusBadRequest, apperrors.KindValidation, ""},
		{"not a tenant", server.LoginRequest{Email: "nonexistent@test.com", Password: "test"}, http.StatusForbidden, apperrors.KindEligibility, apperrors.MsgAccessDenied},
		{"wrong password", server.LoginRequest{Email: testEmail, Password: "wrong"}, http.StatusUnauthorized, apperrors.KindAuthentication, apperrors.MsgInvalidCredentials},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, server.RouteAuthLogin, tt.body, "")
			require.Equal(t, tt.status, rec.Code)
			resp := decodeError(t, rec)
			require.Equal(t, tt.kind, resp.Error)
			if tt.detail != "" {
				require.Equal(t, tt.detail, resp.Detail)
			}
			require.Empty(t, rec.Result().Cookies())
		})
	}
}

func TestMe(t *testing.T) {
	f := setupTestFixture(t, nil)
	login := f.login(t)

	rec := f.do(t, http.MethodGet, server.RouteAuthMe, nil, login.SessionToken)
	require.Equal(t, http.StatusOK, rec.Code)
	var profile tenants.Profile
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &profile))
	require.Equal(t, f.tenant.ID, profile.ID)
	require.Equal(t, tenants.RoleResident, profile.Role)

	// cookie works when there is no header
	req := httptest.NewRequest(http.MethodGet, server.RouteAuthMe, nil)
	req.AddCookie(&http.Cookie{Name: "session_token", Value: login.SessionToken})
	rec = httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestMe_Unauthenticated(t *testing.T) {
	f := setupTestFixture(t, nil)

	for name, token := range map[string]string{"missing": "", "unknown": "not-a-real-token"} {
		t.Run(name, func(t *testing.T) {
			rec := f.do(t, http.MethodGet, server.RouteAuthMe, nil, token)
			require.Equal(t, http.StatusUnauthorized, rec.Code)
			require.Contains(t, rec.Header().Get("WWW-Authenticate"), "Bearer")
			require.Equal(t, apperrors.MsgNotAuthenticated, decodeError(t, rec).Detail)
		})
	}
}

func TestMe_ExpiredSession(t *testing.T) {
	f := setupTestFixture(t, nil)
	login := f.login(t)

	f.clock.Advance(168*time.Hour + time.Second)
	rec := f.do(t, http.MethodGet, server.RouteAuthMe, nil, login.SessionToken)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMe_DeactivatedTenant(t *testing.T) {
	f := setupTestFixture(t, nil)
	login := f.login(t)

	require.NoError(t, f.tenants.SetStatus(context.Background(), f.tenant.ID, tenants.StatusInactive))
	rec := f.do(t, http.MethodGet, server.RouteAuthMe, nil, login.SessionToken)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogout(t *testing.T) {
	f := setupTestFixture(t, nil)
	login := f.login(t)

	rec := f.do(t, http.MethodPost, server.RouteAuthLogout, nil, login.SessionToken)
	require.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Empty(t, cookies[0].Value)
	require.Negative(t, cookies[0].MaxAge)

	rec = f.do(t, http.MethodGet, server.RouteAuthMe, nil, login.SessionToken)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	// logging out again, or with nothing at all, still succeeds
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, server.RouteAuthLogout, nil, login.SessionToken).Code)
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, server.RouteAuthLogout, nil, "").Code)
}

func TestLogoutAll(t *testing.T) {
	f := setupTestFixture(t, nil)
	phone := f.login(t)
	laptop := f.login(t)
	require.NotEqual(t, phone.SessionToken, laptop.SessionToken)

	rec := f.do(t, http.MethodPost, server.RouteAuthLogoutAll, nil, phone.SessionToken)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp server.MessageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Revoked)
	require.Equal(t, 2, *resp.Revoked)

	for _, token := range []string{phone.SessionToken, laptop.SessionToken} {
		require.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodGet, server.RouteAuthMe, nil, token).Code)
	}

	require.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodPost, server.RouteAuthLogoutAll, nil, "").Code)
}

func TestLogin_RateLimited(t *testing.T) {
	f := setupTestFixture(t, map[string]any{"LOGIN_MAX_FAILURES": 3})
	wrong := server.LoginRequest{Email: testEmail, Password: "wrong"}

	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodPost, server.RouteAuthLogin, wrong, "").Code)
	}

	rec := f.do(t, http.MethodPost, server.RouteAuthLogin, server.LoginRequest{Email: testEmail, Password: testPassword}, "")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Equal(t, apperrors.KindRateLimit, decodeError(t, rec).Error)

	f.clock.Advance(15*time.Minute + time.Second)
	f.login(t)
}

func TestLogin_SourceRateLimited(t *testing.T) {
	f := setupTestFixture(t, map[string]any{"LOGIN_MAX_SOURCE_FAILURES": 3})

	for _, email := range []string{"a@dorm.example", "b@dorm.example", "c@dorm.example"} {
		rec := f.do(t, http.MethodPost, server.RouteAuthLogin, server.LoginRequest{Email: email, Password: "guess"}, "")
		require.Equal(t, http.StatusForbidden, rec.Code)
	}

	rec := f.do(t, http.MethodPost, server.RouteAuthLogin, server.LoginRequest{Email: "d@dorm.example", Password: "guess"}, "")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Equal(t, apperrors.KindRateLimit, decodeError(t, rec).Error)
}

func TestFederatedLogin(t *testing.T) {
	f := setupTestFixture(t, nil)
	f.verifier.profiles["good-token"] = &identity.Profile{
		Email:         "P.VinceBryn@gmail.com",
		Subject:       "google-sub-1",
		EmailVerified: true,
	}

	for _, route := range []string{server.RouteAuthFederated, server.RouteAuthGoogle} {
		rec := f.do(t, http.MethodPost, route, map[string]string{"idToken": "good-token"}, "")
		require.Equal(t, http.StatusOK, rec.Code, route)
		var resp server.LoginResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Equal(t, f.tenant.ID, resp.User.ID)
	}

	rec := f.do(t, http.MethodPost, server.RouteAuthFederated, map[string]string{"id_token": "forged"}, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, apperrors.MsgInvalidIDToken, decodeError(t, rec).Detail)

	rec = f.do(t, http.MethodPost, server.RouteAuthFederated, map[string]string{}, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFederatedLogin_NotConfigured(t *testing.T) {
	cfg := config.New(config.WithValues(map[string]any{"BCRYPT_COST": 4}))
	s, err := server.New(cfg, server.Deps{Repos: auth.Repos{
		Tenants:  tenantrepofakes.NewFakeTenantRepo(),
		Sessions: sessionrepofakes.NewFakeSessionRepo(),
	}})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, server.RouteAuthGoogle, bytes.NewBufferString(`{"idToken":"x"}`))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestCorsPreflight(t *testing.T) {
	f := setupTestFixture(t, nil)

	req := httptest.NewRequest(http.MethodOptions, server.RouteAuthLogin, nil)
	req.Header.Set("Origin", "https://portal.example")
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "https://portal.example", rec.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodOptions, server.RouteAuthLogin, nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	require.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestSeedTenant(t *testing.T) {
	f := setupTestFixture(t, map[string]any{
		"SEED_TENANT_EMAIL":    "Warden@Dorm.example",
		"SEED_TENANT_PASSWORD": "letmein-please",
	})

	seeded, err := f.tenants.GetByEmail(context.Background(), "warden@dorm.example")
	require.NoError(t, err)
	require.Equal(t, tenants.RoleAdmin, seeded.Role)

	rec := f.do(t, http.MethodPost, server.RouteAuthLogin, server.LoginRequest{Email: "warden@dorm.example", Password: "letmein-please"}, "")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestHealth(t *testing.T) {
	f := setupTestFixture(t, nil)
	rec := f.do(t, http.MethodGet, server.RouteHealth, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestProtect(t *testing.T) {
	f := setupTestFixture(t, nil)
	f.server.Protect("GET /api/rooms/mine", func(w http.ResponseWriter, r *http.Request) {
		principal, ok := auth.PrincipalFrom(r.Context())
		require.True(t, ok)
		w.Write([]byte(principal.Tenant.Email))
	})

	require.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodGet, "/api/rooms/mine", nil, "").Code)

	login := f.login(t)
	rec := f.do(t, http.MethodGet, "/api/rooms/mine", nil, login.SessionToken)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, testEmail, rec.Body.String())
}
