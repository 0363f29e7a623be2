package tenants_test

import (
	"encoding/json"
	"testing"

	"github.com/jrsteele09/dormportal/tenants"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tenant, err := tenants.New("  P.VinceBryn@Gmail.com ", " Vince ", "")
	require.NoError(t, err)
	require.Equal(t, "p.vincebryn@gmail.com", tenant.Email)
	require.Equal(t, "Vince", tenant.Name)
	require.Equal(t, tenants.RoleResident, tenant.Role)
	require.True(t, tenant.IsActive())

	_, err = tenants.New("not-an-email", "x", tenants.RoleResident)
	require.Error(t, err)

	_, err = tenants.New("a@b.com", "x", tenants.Role("landlord"))
	require.Error(t, err)
}

func TestPublic_OmitsCredentials(t *testing.T) {
	tenant := &tenants.Tenant{
		ID:               "t-1",
		Email:            "a@b.com",
		Status:           tenants.StatusActive,
		PasswordHash:     "$2a$12$secret",
		FederatedSubject: "sub-1",
	}

	b, err := json.Marshal(tenant.Public())
	require.NoError(t, err)
	require.NotContains(t, string(b), "secret")
	require.NotContains(t, string(b), "sub-1")
	require.Contains(t, string(b), `"user_id":"t-1"`)

	b, err = json.Marshal(tenant)
	require.NoError(t, err)
	require.NotContains(t, string(b), "secret")
}

func TestClone(t *testing.T) {
	phone := "123"
	orig := &tenants.Tenant{ID: "t-1", Phone: &phone}
	c := orig.Clone()
	*c.Phone = "456"
	require.Equal(t, "123", *orig.Phone)

	var nilTenant *tenants.Tenant
	require.Nil(t, nilTenant.Clone())
	require.False(t, nilTenant.IsActive())
}

func TestHasher(t *testing.T) {
	h := tenants.NewHasher(4)
	hash, err := h.Hash("testpassword")
	require.NoError(t, err)
	require.NotEqual(t, "testpassword", hash)

	require.True(t, h.Compare(hash, "testpassword"))
	require.False(t, h.Compare(hash, "wrong"))
	require.False(t, h.Compare("", "testpassword"))
	require.False(t, h.Compare(hash, ""))

	_, err = h.Hash("")
	require.Error(t, err)
}

func TestNewHasher_ClampsCost(t *testing.T) {
	require.Equal(t, tenants.DefaultCost, tenants.NewHasher(0).Cost())
	require.Equal(t, 4, tenants.NewHasher(1).Cost())
	require.Equal(t, 31, tenants.NewHasher(99).Cost())
}
