package tenants

import (
	"fmt"
	"net/mail"
	"strings"
	"time"
)

// Role is the tenant's role within the dormitory.
type Role string

const (
	RoleResident Role = "resident"
	RoleStaff    Role = "staff"
	RoleAdmin    Role = "admin"
)

// Status controls eligibility. Only active tenants can sign in or hold a working session.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// Tenant is the identity and eligibility record for a dormitory resident.
type Tenant struct {
	ID               string     `json:"user_id"`
	Email            string     `json:"email"`                   // Unique, stored lower-cased
	Name             string     `json:"name"`                    // Display name
	Phone            *string    `json:"phone,omitempty"`         // Optional contact number
	PictureURL       *string    `json:"picture_url,omitempty"`   // Optional profile picture
	Role             Role       `json:"role"`                    // resident, staff or admin
	Status           Status     `json:"status"`                  // active or inactive
	PasswordHash     string     `json:"-"`                       // bcrypt hash, empty for federated-only tenants
	FederatedSubject string     `json:"-"`                       // Provider subject bound on first federated login
	CreatedAt        time.Time  `json:"created_at"`              // When the record was created
	LastLoginAt      *time.Time `json:"last_login_at,omitempty"` // Last successful login
}

// Profile is the public view of a tenant, safe to return to clients.
type Profile struct {
	ID          string     `json:"user_id"`
	Email       string     `json:"email"`
	Name        string     `json:"name"`
	Phone       *string    `json:"phone,omitempty"`
	PictureURL  *string    `json:"picture_url,omitempty"`
	Role        Role       `json:"role"`
	Status      Status     `json:"status"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

// New creates an active tenant with a normalised email. The ID is left for the caller or the
// repository to assign.
func New(email, name string, role Role) (*Tenant, error) {
	email = NormalizeEmail(email)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("invalid email %q: %w", email, err)
	}
	if role == "" {
		role = RoleResident
	}
	if !role.Valid() {
		return nil, fmt.Errorf("invalid role %q", role)
	}
	return &Tenant{
		Email:  email,
		Name:   strings.TrimSpace(name),
		Role:   role,
		Status: StatusActive,
	}, nil
}

// NormalizeEmail trims and lower-cases an email so lookups are case insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (r Role) Valid() bool {
	switch r {
	case RoleResident, RoleStaff, RoleAdmin:
		return true
	}
	return false
}

func (t *Tenant) IsActive() bool {
	return t != nil && t.Status == StatusActive
}

// HasPassword reports whether the tenant can sign in with a password at all.
func (t *Tenant) HasPassword() bool {
	return t.PasswordHash != ""
}

func (t *Tenant) Public() Profile {
	return Profile{
		ID:          t.ID,
		Email:       t.Email,
		Name:        t.Name,
		Phone:       t.Phone,
		PictureURL:  t.PictureURL,
		Role:        t.Role,
		Status:      t.Status,
		LastLoginAt: t.LastLoginAt,
	}
}

// Clone returns a deep copy so callers can't mutate a repository's record.
func (t *Tenant) Clone() *Tenant {
	if t == nil {
		return nil
	}
	c := *t
	if t.Phone != nil {
		p := *t.Phone
		c.Phone = &p
	}
	if t.PictureURL != nil {
		p := *t.PictureURL
		c.PictureURL = &p
	}
	if t.LastLoginAt != nil {
		l := *t.LastLoginAt
		c.LastLoginAt = &l
	}
	return &c
}
