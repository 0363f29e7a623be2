package tenantrepofakes_test

import (
	"context"
	"testing"
	"time"

	"github.com/jrsteele09/dormportal/tenants"
	tenantrepofakes "github.com/jrsteele09/dormportal/tenants/repofakes"
	"github.com/stretchr/testify/require"
)

func TestFakeTenantRepo(t *testing.T) {
	ctx := context.Background()
	repo := tenantrepofakes.NewFakeTenantRepo()

	tenant, err := tenants.New("p.vincebryn@gmail.com", "Vince", tenants.RoleResident)
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, tenant))
	require.NotEmpty(t, tenant.ID)

	dup, _ := tenants.New("P.VINCEBRYN@gmail.com", "Other", tenants.RoleResident)
	require.ErrorIs(t, repo.Create(ctx, dup), tenants.ErrDuplicateEmail)

	got, err := repo.GetByEmail(ctx, "P.VinceBryn@Gmail.com")
	require.NoError(t, err)
	require.Equal(t, tenant.ID, got.ID)

	// returned records are copies
	got.Status = tenants.StatusInactive
	again, err := repo.GetByID(ctx, tenant.ID)
	require.NoError(t, err)
	require.Equal(t, tenants.StatusActive, again.Status)

	require.NoError(t, repo.SetStatus(ctx, tenant.ID, tenants.StatusInactive))
	again, _ = repo.GetByID(ctx, tenant.ID)
	require.False(t, again.IsActive())

	require.NoError(t, repo.BindFederatedSubject(ctx, tenant.ID, "sub-1"))
	require.NoError(t, repo.BindFederatedSubject(ctx, tenant.ID, "sub-1"))
	require.ErrorIs(t, repo.BindFederatedSubject(ctx, tenant.ID, "sub-2"), tenants.ErrSubjectBound)

	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, repo.RecordLogin(ctx, tenant.ID, at))
	again, _ = repo.GetByID(ctx, tenant.ID)
	require.Equal(t, at, *again.LastLoginAt)

	_, err = repo.GetByID(ctx, "missing")
	require.ErrorIs(t, err, tenants.ErrNotFound)
	require.ErrorIs(t, repo.SetStatus(ctx, "missing", tenants.StatusActive), tenants.ErrNotFound)
}

func TestFakeTenantRepo_List(t *testing.T) {
	ctx := context.Background()
	repo := tenantrepofakes.NewFakeTenantRepo()
	for _, email := range []string{"c@x.com", "a@x.com", "b@x.com"} {
		tenant, err := tenants.New(email, "", tenants.RoleResident)
		require.NoError(t, err)
		require.NoError(t, repo.Create(ctx, tenant))
	}

	all, err := repo.List(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, "a@x.com", all[0].Email)

	page, err := repo.List(ctx, 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	require.Equal(t, "b@x.com", page[0].Email)

	empty, err := repo.List(ctx, 5, 10)
	require.NoError(t, err)
	require.Empty(t, empty)
}

func TestFakeTenantRepo_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := tenantrepofakes.NewFakeTenantRepo().GetByEmail(ctx, "a@b.com")
	require.ErrorIs(t, err, context.Canceled)
}
