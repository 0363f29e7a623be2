// Package config exposes the portal's settings as small per-concern interfaces.
// Values come from an optional .env file and the process environment via Viper;
// environment variables win over the file.
package config

import (
	"strings"

	"github.com/spf13/viper"
)

type Config interface {
	EnvConfig
	CorsConfig
	SessionConfig
	SecurityConfig
	IdentityConfig
	StoreConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
	GetSeedTenantEmail() string
	GetSeedTenantPassword() string
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type mainConfig struct {
	EnvVars
	Cors
	Session
	Security
	Identity
	Store
}

// Option adjusts the underlying viper instance before it is used.
type Option func(v *viper.Viper)

// WithValues overrides individual keys, mainly for tests.
func WithValues(values map[string]any) Option {
	return func(v *viper.Viper) {
		for k, val := range values {
			v.Set(k, val)
		}
	}
}

// WithEnvFile reads the given dotenv file instead of ./.env.
func WithEnvFile(path string) Option {
	return func(v *viper.Viper) {
		v.SetConfigFile(path)
		_ = v.ReadInConfig()
	}
}

func New(options ...Option) Config {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // a missing .env is fine

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	for _, opt := range options {
		opt(v)
	}

	return mainConfig{
		EnvVars:  EnvVars{v: v},
		Cors:     Cors{v: v},
		Session:  Session{v: v},
		Security: Security{v: v},
		Identity: Identity{v: v},
		Store:    Store{v: v},
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(portEnvVar, "8080")
	v.SetDefault(appNameVar, "Dorm Portal")
	v.SetDefault(envVar, "DEV")
	v.SetDefault(logLevelVar, "info")

	v.SetDefault(allowedOriginsVar, "*")

	v.SetDefault(sessionTTLVar, "168h")
	v.SetDefault(cookieSecureVar, false)
	v.SetDefault(requestTimeoutVar, "10s")

	v.SetDefault(bcryptCostVar, 12)
	v.SetDefault(loginMaxFailuresVar, 5)
	v.SetDefault(sourceMaxFailuresVar, 20)
	v.SetDefault(loginFailureWindowVar, "15m")
	v.SetDefault(limiterMaxKeysVar, 10000)

	v.SetDefault(idpTimeoutVar, "5s")

	v.SetDefault(storeBackendVar, BackendMemory)
	v.SetDefault(sessionBackendVar, BackendMemory)
}
