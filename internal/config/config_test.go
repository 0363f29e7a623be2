package config_test

import (
	"testing"
	"time"

	"github.com/jrsteele09/dormportal/internal/config"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	c := config.New()

	require.Equal(t, ":8080", c.GetPort())
	require.Equal(t, 7*24*time.Hour, c.GetSessionTTL())
	require.Equal(t, 12, c.GetBcryptCost())
	require.Equal(t, 5, c.GetLoginMaxFailures())
	require.Equal(t, 20, c.GetLoginMaxSourceFailures())
	require.Equal(t, config.BackendMemory, c.GetStoreBackend())
	require.True(t, c.GetAllowedOrigins().IsAllowedOrigin("*"))
}

func TestWithValues(t *testing.T) {
	c := config.New(config.WithValues(map[string]any{
		"PORT":            ":9000",
		"SESSION_TTL":     "2h",
		"ALLOWED_ORIGINS": "https://a.example, https://b.example",
		"ENV":             "prod",
		"SESSION_BACKEND": "Redis",
	}))

	require.Equal(t, ":9000", c.GetPort())
	require.Equal(t, 2*time.Hour, c.GetSessionTTL())
	require.Equal(t, "PROD", c.GetEnv())
	require.Equal(t, config.BackendRedis, c.GetSessionBackend())

	origins := c.GetAllowedOrigins()
	require.True(t, origins.IsAllowedOrigin("https://a.example"))
	require.True(t, origins.IsAllowedOrigin("https://b.example"))
	require.False(t, origins.IsAllowedOrigin("*"))
}

func TestInvalidDurationFallsBack(t *testing.T) {
	c := config.New(config.WithValues(map[string]any{
		"SESSION_TTL": "not-a-duration",
		"IDP_TIMEOUT": "-1s",
	}))

	require.Equal(t, 7*24*time.Hour, c.GetSessionTTL())
	require.Equal(t, 5*time.Second, c.GetIdentityTimeout())
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("BCRYPT_COST", "10")
	t.Setenv("IDP_ISSUER", "https://securetoken.google.com/dorm")

	c := config.New()
	require.Equal(t, 10, c.GetBcryptCost())
	require.Equal(t, "https://securetoken.google.com/dorm", c.GetIdentityIssuer())
}
