package config

import (
	"time"

	"github.com/spf13/viper"
)

const (
	bcryptCostVar         = "BCRYPT_COST"
	loginMaxFailuresVar   = "LOGIN_MAX_FAILURES"
	sourceMaxFailuresVar  = "LOGIN_MAX_SOURCE_FAILURES"
	loginFailureWindowVar = "LOGIN_FAILURE_WINDOW"
	limiterMaxKeysVar     = "LIMITER_MAX_KEYS"
)

type SecurityConfig interface {
	GetBcryptCost() int
	GetLoginMaxFailures() int
	GetLoginMaxSourceFailures() int
	GetLoginFailureWindow() time.Duration
	GetLimiterMaxKeys() int
}

type Security struct {
	v *viper.Viper
}

var _ SecurityConfig = Security{}

func (s Security) GetBcryptCost() int {
	return s.v.GetInt(bcryptCostVar)
}

// GetLoginMaxFailures is the number of failed logins a source may make before it is
// throttled. Zero or less disables throttling.
func (s Security) GetLoginMaxFailures() int {
	return s.v.GetInt(loginMaxFailuresVar)
}

// GetLoginMaxSourceFailures caps failed logins from one source across every account. Zero or
// less disables the per-source cap.
func (s Security) GetLoginMaxSourceFailures() int {
	return s.v.GetInt(sourceMaxFailuresVar)
}

// GetLoginFailureWindow is how long it takes a throttled source to regain its full budget.
func (s Security) GetLoginFailureWindow() time.Duration {
	return positiveDuration(s.v, loginFailureWindowVar, 15*time.Minute)
}

func (s Security) GetLimiterMaxKeys() int {
	n := s.v.GetInt(limiterMaxKeysVar)
	if n <= 0 {
		return 10000
	}
	return n
}
