package config

import (
	"time"

	"github.com/spf13/viper"
)

const (
	sessionTTLVar     = "SESSION_TTL"
	cookieSecureVar   = "COOKIE_SECURE"
	requestTimeoutVar = "REQUEST_TIMEOUT"
)

type SessionConfig interface {
	GetSessionTTL() time.Duration
	GetCookieSecure() bool
	GetRequestTimeout() time.Duration
}

type Session struct {
	v *viper.Viper
}

var _ SessionConfig = Session{}

// GetSessionTTL is the fixed lifetime of an issued session. Tenants expect to stay signed
// in, so the default is a week.
func (s Session) GetSessionTTL() time.Duration {
	return positiveDuration(s.v, sessionTTLVar, 7*24*time.Hour)
}

func (s Session) GetCookieSecure() bool {
	return s.v.GetBool(cookieSecureVar)
}

func (s Session) GetRequestTimeout() time.Duration {
	return positiveDuration(s.v, requestTimeoutVar, 10*time.Second)
}

func positiveDuration(v *viper.Viper, key string, fallback time.Duration) time.Duration {
	d := v.GetDuration(key)
	if d <= 0 {
		return fallback
	}
	return d
}
