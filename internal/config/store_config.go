package config

import (
	"strings"

	"github.com/spf13/viper"
)

const (
	storeBackendVar   = "STORE_BACKEND"
	sessionBackendVar = "SESSION_BACKEND"
	databaseURLVar    = "DATABASE_URL"
	redisAddrVar      = "REDIS_ADDR"
	redisPasswordVar  = "REDIS_PASSWORD"
)

// Storage backends.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

type StoreConfig interface {
	GetStoreBackend() string
	GetSessionBackend() string
	GetDatabaseURL() string
	GetRedisAddr() string
	GetRedisPassword() string
}

type Store struct {
	v *viper.Viper
}

var _ StoreConfig = Store{}

// GetStoreBackend selects the tenant directory backend: memory or postgres.
func (s Store) GetStoreBackend() string {
	return strings.ToLower(s.v.GetString(storeBackendVar))
}

// GetSessionBackend selects the session store backend: memory, postgres or redis.
func (s Store) GetSessionBackend() string {
	return strings.ToLower(s.v.GetString(sessionBackendVar))
}

func (s Store) GetDatabaseURL() string {
	return s.v.GetString(databaseURLVar)
}

func (s Store) GetRedisAddr() string {
	return s.v.GetString(redisAddrVar)
}

func (s Store) GetRedisPassword() string {
	return s.v.GetString(redisPasswordVar)
}
