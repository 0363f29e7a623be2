package auth

import (
	"context"
	"encoding/base64"
	"io"
	"time"

	"github.com/jrsteele09/dormportal/sessions"
	"github.com/pkg/errors"
)

// tokenBytes of entropy, encoded as 43 base64url characters.
const tokenBytes = 32

// Issuer creates sessions for tenants that have already passed identity and eligibility checks.
type Issuer struct {
	sessions sessions.Repo
	ttl      time.Duration
	nowTime  func() time.Time
	random   io.Reader
}

func NewIssuer(repo sessions.Repo, ttl time.Duration, options ...Option) (*Issuer, error) {
	if repo == nil {
		return nil, errors.New("[NewIssuer] Sessions repo is required")
	}
	if ttl <= 0 {
		return nil, errors.New("[NewIssuer] session ttl must be positive")
	}
	o := applyOptions(options)
	return &Issuer{
		sessions: repo,
		ttl:      ttl,
		nowTime:  o.nowTime,
		random:   o.random,
	}, nil
}

func (i *Issuer) TTL() time.Duration {
	return i.ttl
}

// Issue writes a new session for ownerID. A token collision is retried once with fresh
// entropy before giving up.
func (i *Issuer) Issue(ctx context.Context, ownerID string) (sessions.Session, error) {
	if ownerID == "" {
		return sessions.Session{}, errors.New("[Issuer.Issue] owner id is required")
	}

	var err error
	for attempt := 0; attempt < 2; attempt++ {
		var token string
		token, err = i.newToken()
		if err != nil {
			return sessions.Session{}, errors.Wrap(err, "[Issuer.Issue] generate token")
		}

		now := i.nowTime().UTC()
		s := sessions.Session{
			Token:     token,
			OwnerID:   ownerID,
			IssuedAt:  now,
			ExpiresAt: now.Add(i.ttl),
		}
		err = i.sessions.Create(ctx, s)
		if err == nil {
			return s, nil
		}
		if !errors.Is(err, sessions.ErrDuplicateToken) {
			break
		}
	}
	return sessions.Session{}, errors.Wrap(err, "[Issuer.Issue] create session")
}

func (i *Issuer) newToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := io.ReadFull(i.random, b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
