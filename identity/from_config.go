package identity

import (
	"github.com/jrsteele09/dormportal/internal/config"
	"github.com/rs/zerolog/log"
)

// FromConfig returns a Provider for the configured issuer, or Disabled when IDP_ISSUER is unset.
func FromConfig(cfg config.IdentityConfig) (Verifier, error) {
	if cfg.GetIdentityIssuer() == "" {
		log.Warn().Msg("IDP_ISSUER not set, federated sign-in disabled")
		return Disabled{}, nil
	}
	return NewProvider(Config{
		Issuer:      cfg.GetIdentityIssuer(),
		Audience:    cfg.GetIdentityAudience(),
		LookupURL:   cfg.GetIdentityLookupURL(),
		AccessToken: cfg.GetIdentityAccessToken(),
		Timeout:     cfg.GetIdentityTimeout(),
	})
}
