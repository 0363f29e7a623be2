// Package identity verifies who a person is against an external identity provider. It never
// decides whether that person may use the portal; that is the tenant directory's job.
package identity

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("identity not found")
	ErrInvalidToken = errors.New("identity token invalid")
	ErrUnreachable  = errors.New("identity provider unreachable")
)

// Profile is the normalised identity asserted by the provider.
type Profile struct {
	Email         string
	Subject       string
	EmailVerified bool
	Name          string
	PictureURL    string
}

type Verifier interface {
	// VerifyEmail looks up an account by email. ErrNotFound when the provider has no such
	// account, ErrUnreachable when the provider could not answer.
	VerifyEmail(ctx context.Context, email string) (*Profile, error)
	// VerifyToken checks a signed ID token. ErrInvalidToken for bad signature, expiry,
	// audience or unverified email; ErrUnreachable when signing keys can't be fetched.
	VerifyToken(ctx context.Context, rawIDToken string) (*Profile, error)
}

// Disabled is used when no provider is configured. Every call fails as unreachable so callers
// fail closed.
type Disabled struct{}

var _ Verifier = Disabled{}

func (Disabled) VerifyEmail(context.Context, string) (*Profile, error) {
	return nil, fmt.Errorf("%w: federated sign-in is not configured", ErrUnreachable)
}

func (Disabled) VerifyToken(context.Context, string) (*Profile, error) {
	return nil, fmt.Errorf("%w: federated sign-in is not configured", ErrUnreachable)
}
