package identity

import (
	"context"
	"errors"
	"net"
	"net/url"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
)

// go-oidc flattens key set errors into a string, so a key fetch failure would otherwise be
// indistinguishable from a bad signature. trackingKeySet records fetch failures on a holder
// carried in the request context.
type trackingKeySet struct {
	inner oidc.KeySet
}

type fetchResult struct {
	err error
}

type fetchResultKey struct{}

func withFetchResult(ctx context.Context, r *fetchResult) context.Context {
	return context.WithValue(ctx, fetchResultKey{}, r)
}

func (k *trackingKeySet) VerifySignature(ctx context.Context, jwt string) ([]byte, error) {
	payload, err := k.inner.VerifySignature(ctx, jwt)
	if err != nil && isFetchError(err) {
		if r, ok := ctx.Value(fetchResultKey{}).(*fetchResult); ok {
			r.err = err
		}
	}
	return payload, err
}

func isFetchError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	// remote key set errors are prefixed this way when the JWKS request fails
	return strings.HasPrefix(err.Error(), "fetching keys")
}
