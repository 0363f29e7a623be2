package server

import (
	"context"
	"strings"

	"github.com/jrsteele09/dormportal/internal/errors"
	"github.com/jrsteele09/dormportal/tenants"
	"github.com/rs/zerolog/log"
)

const generatedPasswordBytes = 18

// InitialiseSystem seeds one tenant from SEED_TENANT_EMAIL so a fresh deployment can be signed
// into. It does nothing when the variable is unset or the tenant already exists.
func (s *Server) InitialiseSystem(ctx context.Context) error {
	email := tenants.NormalizeEmail(s.config.GetSeedTenantEmail())
	if email == "" {
		return nil
	}

	existing, err := s.repos.Tenants.GetByEmail(ctx, email)
	if err == nil {
		log.Debug().Str("tenant_id", existing.ID).Msg("seed tenant already present")
		return nil
	}
	if !errors.Is(err, tenants.ErrNotFound) {
		return errors.Wrapf(err, "[Server.InitialiseSystem] lookup seed tenant")
	}

	name := email
	if at := strings.Index(email, "@"); at > 0 {
		name = email[:at]
	}
	tenant, err := tenants.New(email, name, tenants.RoleAdmin)
	if err != nil {
		return errors.Wrapf(err, "[Server.InitialiseSystem] seed tenant")
	}

	password := s.config.GetSeedTenantPassword()
	generated := password == ""
	if generated {
		if password, err = generateRandomString(generatedPasswordBytes); err != nil {
			return errors.Wrapf(err, "[Server.InitialiseSystem] generate seed password")
		}
	}
	if tenant.PasswordHash, err = s.hasher.Hash(password); err != nil {
		return errors.Wrapf(err, "[Server.InitialiseSystem] hash seed password")
	}

	if err := s.repos.Tenants.Create(ctx, tenant); err != nil {
		if errors.Is(err, tenants.ErrDuplicateEmail) {
			return nil // another replica got there first
		}
		return errors.Wrapf(err, "[Server.InitialiseSystem] create seed tenant")
	}

	event := log.Info().Str("tenant_id", tenant.ID).Str("email", email)
	if generated {
		// Shown once. SEED_TENANT_PASSWORD avoids this.
		event = event.Str("password", password)
	}
	event.Msg("seed tenant created")
	return nil
}
