package sessions

import (
	"context"
	"time"
)

// Repo stores sessions keyed by token, with an owner index for bulk revocation.
//
// Create fails with ErrDuplicateToken if the token exists. Get returns ErrNotFound for an
// unknown token; it does not check expiry. Delete is idempotent.
type Repo interface {
	Create(ctx context.Context, s Session) error
	Get(ctx context.Context, token string) (*Session, error)
	Delete(ctx context.Context, token string) error
	DeleteByOwner(ctx context.Context, ownerID string) (int, error)
	ListByOwner(ctx context.Context, ownerID string) ([]Session, error)
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}
