package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const (
	portEnvVar         = "PORT"
	appNameVar         = "APP_NAME"
	envVar             = "ENV"
	logLevelVar        = "LOG_LEVEL"
	seedTenantEmailVar = "SEED_TENANT_EMAIL"
	seedTenantPassVar  = "SEED_TENANT_PASSWORD"
)

type EnvVars struct {
	v *viper.Viper
}

var _ EnvConfig = EnvVars{}

func (e EnvVars) GetPort() string {
	port := e.v.GetString(portEnvVar)
	if !strings.HasPrefix(port, ":") {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (e EnvVars) GetAppName() string {
	return e.v.GetString(appNameVar)
}

// GetEnv returns the deployment environment, upper-cased ("DEV", "PROD", ...).
func (e EnvVars) GetEnv() string {
	env := strings.ToUpper(strings.TrimSpace(e.v.GetString(envVar)))
	if env == "" {
		return "DEV"
	}
	return env
}

func (e EnvVars) GetLogLevel() string {
	return e.v.GetString(logLevelVar)
}

// GetSeedTenantEmail is the tenant ensured at startup; empty disables seeding.
func (e EnvVars) GetSeedTenantEmail() string {
	return e.v.GetString(seedTenantEmailVar)
}

func (e EnvVars) GetSeedTenantPassword() string {
	return e.v.GetString(seedTenantPassVar)
}
