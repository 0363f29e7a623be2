// Package stores builds the tenant directory and session store selected by configuration.
package stores

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jrsteele09/dormportal/internal/config"
	"github.com/jrsteele09/dormportal/internal/db"
	"github.com/jrsteele09/dormportal/sessions"
	sessionpostgres "github.com/jrsteele09/dormportal/sessions/postgres"
	"github.com/jrsteele09/dormportal/sessions/redisstore"
	sessionrepofakes "github.com/jrsteele09/dormportal/sessions/repofakes"
	"github.com/jrsteele09/dormportal/tenants"
	tenantpostgres "github.com/jrsteele09/dormportal/tenants/postgres"
	tenantrepofakes "github.com/jrsteele09/dormportal/tenants/repofakes"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

type Stores struct {
	Tenants  tenants.Repo
	Sessions sessions.Repo
	DB       *sql.DB // nil unless a backend is postgres
	closers  []func() error
}

// Open connects every configured backend. The caller must Close the result.
func Open(ctx context.Context, cfg config.StoreConfig) (*Stores, error) {
	tenantBackend := cfg.GetStoreBackend()
	sessionBackend := cfg.GetSessionBackend()

	// sessions reference tenants by foreign key
	if sessionBackend == config.BackendPostgres && tenantBackend != config.BackendPostgres {
		return nil, fmt.Errorf("[stores.Open] postgres sessions need the postgres tenant store, got %q", tenantBackend)
	}

	s := &Stores{}
	if tenantBackend == config.BackendPostgres || sessionBackend == config.BackendPostgres {
		conn, err := db.Open(ctx, cfg.GetDatabaseURL())
		if err != nil {
			return nil, fmt.Errorf("[stores.Open] %w", err)
		}
		s.DB = conn
		s.closers = append(s.closers, conn.Close)
	}

	switch tenantBackend {
	case config.BackendMemory:
		s.Tenants = tenantrepofakes.NewFakeTenantRepo()
	case config.BackendPostgres:
		s.Tenants = tenantpostgres.NewRepo(s.DB)
	default:
		_ = s.Close()
		return nil, fmt.Errorf("[stores.Open] unsupported tenant store %q", tenantBackend)
	}

	switch sessionBackend {
	case config.BackendMemory:
		s.Sessions = sessionrepofakes.NewFakeSessionRepo()
	case config.BackendPostgres:
		s.Sessions = sessionpostgres.NewRepo(s.DB)
	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.GetRedisAddr(),
			Password: cfg.GetRedisPassword(),
		})
		s.closers = append(s.closers, client.Close)
		if err := client.Ping(ctx).Err(); err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("[stores.Open] ping redis at %s: %w", cfg.GetRedisAddr(), err)
		}
		s.Sessions = redisstore.New(client)
	default:
		_ = s.Close()
		return nil, fmt.Errorf("[stores.Open] unsupported session store %q", sessionBackend)
	}

	log.Info().Str("tenants", tenantBackend).Str("sessions", sessionBackend).Msg("stores ready")
	return s, nil
}

// Migrate applies the schema when a postgres backend is in use.
func (s *Stores) Migrate(ctx context.Context) error {
	if s.DB == nil {
		return nil
	}
	return db.RunMigrations(ctx, s.DB)
}

func (s *Stores) Close() error {
	var firstErr error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	s.closers = nil
	return firstErr
}
