package tenants

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound       = errors.New("tenant not found")
	ErrDuplicateEmail = errors.New("tenant email already registered")
	ErrSubjectBound   = errors.New("tenant already bound to a different federated subject")
)

// Repo is the tenant directory. Implementations return copies, never shared records, and
// look emails up case-insensitively.
//
// BindFederatedSubject only succeeds when the tenant has no subject yet or already has the
// same one; otherwise it returns ErrSubjectBound.
type Repo interface {
	Create(ctx context.Context, tenant *Tenant) error
	GetByID(ctx context.Context, id string) (*Tenant, error)
	GetByEmail(ctx context.Context, email string) (*Tenant, error)
	SetStatus(ctx context.Context, id string, status Status) error
	SetPasswordHash(ctx context.Context, id, hash string) error
	BindFederatedSubject(ctx context.Context, id, subject string) error
	RecordLogin(ctx context.Context, id string, at time.Time) error
	List(ctx context.Context, offset, limit int) ([]*Tenant, error)
}
