package config

import (
	"time"

	"github.com/spf13/viper"
)

const (
	idpIssuerVar      = "IDP_ISSUER"
	idpAudienceVar    = "IDP_AUDIENCE"
	idpLookupURLVar   = "IDP_LOOKUP_URL"
	idpAccessTokenVar = "IDP_ACCESS_TOKEN"
	idpTimeoutVar     = "IDP_TIMEOUT"
)

// IdentityConfig describes the external identity provider used for federated sign-in,
// e.g. issuer https://securetoken.google.com/<project> with the project id as audience.
type IdentityConfig interface {
	GetIdentityIssuer() string
	GetIdentityAudience() string
	GetIdentityLookupURL() string
	GetIdentityAccessToken() string
	GetIdentityTimeout() time.Duration
}

type Identity struct {
	v *viper.Viper
}

var _ IdentityConfig = Identity{}

func (i Identity) GetIdentityIssuer() string {
	return i.v.GetString(idpIssuerVar)
}

func (i Identity) GetIdentityAudience() string {
	return i.v.GetString(idpAudienceVar)
}

func (i Identity) GetIdentityLookupURL() string {
	return i.v.GetString(idpLookupURLVar)
}

func (i Identity) GetIdentityAccessToken() string {
	return i.v.GetString(idpAccessTokenVar)
}

func (i Identity) GetIdentityTimeout() time.Duration {
	return positiveDuration(i.v, idpTimeoutVar, 5*time.Second)
}
