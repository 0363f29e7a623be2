package client

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/rs/zerolog/log"
)

type anonymousKey struct{}

// withoutSession marks a request that must not carry the stored token, such as a login.
func withoutSession(ctx context.Context) context.Context {
	return context.WithValue(ctx, anonymousKey{}, true)
}

// Transport attaches the stored session token to every request and forgets it once the
// server rejects it. The token is read from the store per request, never captured.
type Transport struct {
	Store TokenStore
	Base  http.RoundTripper // http.DefaultTransport when nil

	lock sync.Mutex // serialises compare-and-clear for stores without ClearIf
}

var _ http.RoundTripper = (*Transport)(nil)

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	var token string
	if anonymous, _ := req.Context().Value(anonymousKey{}).(bool); !anonymous {
		var err error
		if token, err = t.Store.Load(); err != nil {
			return nil, fmt.Errorf("[Transport.RoundTrip] load session token: %w", err)
		}
	}
	if token != "" {
		req = req.Clone(req.Context())
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := t.base().RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized && token != "" {
		if cleared, err := t.clearIf(token); err != nil {
			log.Warn().Err(err).Msg("failed to clear rejected session token")
		} else if cleared {
			log.Debug().Msg("session rejected by server, local token cleared")
		}
	}
	return resp, nil
}

// clearIf removes token from the store unless a newer login has replaced it meanwhile.
func (t *Transport) clearIf(token string) (bool, error) {
	if c, ok := t.Store.(conditionalClearer); ok {
		return c.ClearIf(token)
	}
	t.lock.Lock()
	defer t.lock.Unlock()
	current, err := t.Store.Load()
	if err != nil || current != token {
		return false, err
	}
	return true, t.Store.Clear()
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}
