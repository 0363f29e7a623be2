package tenantrepofakes

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/dormportal/tenants"
)

var _ tenants.Repo = (*FakeTenantRepo)(nil)

// FakeTenantRepo is an in-memory tenant directory.
type FakeTenantRepo struct {
	tenants  map[string]*tenants.Tenant
	emailIDs map[string]string // email to tenant id
	lock     sync.RWMutex
	nowTime  func() time.Time
}

func NewFakeTenantRepo() *FakeTenantRepo {
	return &FakeTenantRepo{
		tenants:  make(map[string]*tenants.Tenant),
		emailIDs: make(map[string]string),
		nowTime:  time.Now,
	}
}

func (tr *FakeTenantRepo) Create(ctx context.Context, tenant *tenants.Tenant) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tr.lock.Lock()
	defer tr.lock.Unlock()

	email := tenants.NormalizeEmail(tenant.Email)
	if _, ok := tr.emailIDs[email]; ok {
		return tenants.ErrDuplicateEmail
	}
	if tenant.ID == "" {
		tenant.ID = uuid.New().String()
	}
	if tenant.CreatedAt.IsZero() {
		tenant.CreatedAt = tr.nowTime().UTC()
	}
	tenant.Email = email

	tr.tenants[tenant.ID] = tenant.Clone()
	tr.emailIDs[email] = tenant.ID
	return nil
}

func (tr *FakeTenantRepo) GetByID(ctx context.Context, id string) (*tenants.Tenant, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tr.lock.RLock()
	defer tr.lock.RUnlock()

	t, ok := tr.tenants[id]
	if !ok {
		return nil, tenants.ErrNotFound
	}
	return t.Clone(), nil
}

func (tr *FakeTenantRepo) GetByEmail(ctx context.Context, email string) (*tenants.Tenant, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tr.lock.RLock()
	defer tr.lock.RUnlock()

	id, ok := tr.emailIDs[tenants.NormalizeEmail(email)]
	if !ok {
		return nil, tenants.ErrNotFound
	}
	return tr.tenants[id].Clone(), nil
}

func (tr *FakeTenantRepo) SetStatus(ctx context.Context, id string, status tenants.Status) error {
	return tr.update(ctx, id, func(t *tenants.Tenant) error {
		t.Status = status
		return nil
	})
}

func (tr *FakeTenantRepo) SetPasswordHash(ctx context.Context, id, hash string) error {
	return tr.update(ctx, id, func(t *tenants.Tenant) error {
		t.PasswordHash = hash
		return nil
	})
}

func (tr *FakeTenantRepo) BindFederatedSubject(ctx context.Context, id, subject string) error {
	return tr.update(ctx, id, func(t *tenants.Tenant) error {
		if t.FederatedSubject != "" && t.FederatedSubject != subject {
			return tenants.ErrSubjectBound
		}
		t.FederatedSubject = subject
		return nil
	})
}

func (tr *FakeTenantRepo) RecordLogin(ctx context.Context, id string, at time.Time) error {
	return tr.update(ctx, id, func(t *tenants.Tenant) error {
		at := at.UTC()
		t.LastLoginAt = &at
		return nil
	})
}

func (tr *FakeTenantRepo) List(ctx context.Context, offset, limit int) ([]*tenants.Tenant, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tr.lock.RLock()
	defer tr.lock.RUnlock()

	list := make([]*tenants.Tenant, 0, len(tr.tenants))
	for _, t := range tr.tenants {
		list = append(list, t.Clone())
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].Email < list[j].Email
	})

	if offset < 0 {
		offset = 0
	}
	if offset >= len(list) {
		return nil, nil
	}
	end := len(list)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return list[offset:end], nil
}

func (tr *FakeTenantRepo) update(ctx context.Context, id string, fn func(t *tenants.Tenant) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tr.lock.Lock()
	defer tr.lock.Unlock()

	t, ok := tr.tenants[id]
	if !ok {
		return tenants.ErrNotFound
	}
	return fn(t)
}
