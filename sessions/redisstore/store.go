// Package redisstore keeps sessions in Redis. Each session is a JSON value under
// "session:<token>" that Redis expires on its own; "owner-sessions:<owner>" is a set of the
// owner's tokens used for bulk revocation.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jrsteele09/dormportal/sessions"
	"github.com/redis/go-redis/v9"
)

const (
	sessionPrefix = "session:"
	ownerPrefix   = "owner-sessions:"

	// Redis expiry has second granularity; keep the key a little longer and let
	// sessions.Validate decide the exact boundary.
	expiryGrace = time.Second
)

var _ sessions.Repo = (*Store)(nil)

type Store struct {
	client redis.UniversalClient
}

func New(client redis.UniversalClient) *Store {
	return &Store{client: client}
}

func sessionKey(token string) string { return sessionPrefix + token }
func ownerKey(ownerID string) string { return ownerPrefix + ownerID }

func (s *Store) Create(ctx context.Context, sess sessions.Session) error {
	b, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	err = s.client.SetArgs(ctx, sessionKey(sess.Token), b, redis.SetArgs{
		Mode:     "NX",
		ExpireAt: sess.ExpiresAt.Add(expiryGrace),
	}).Err()
	if errors.Is(err, redis.Nil) {
		return sessions.ErrDuplicateToken
	}
	if err != nil {
		return fmt.Errorf("set session: %w", err)
	}

	if err := s.client.SAdd(ctx, ownerKey(sess.OwnerID), sess.Token).Err(); err != nil {
		// no half-written sessions
		_ = s.client.Del(context.WithoutCancel(ctx), sessionKey(sess.Token)).Err()
		return fmt.Errorf("index session: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, token string) (*sessions.Session, error) {
	b, err := s.client.Get(ctx, sessionKey(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sessions.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	var sess sessions.Session
	if err := json.Unmarshal(b, &sess); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &sess, nil
}

func (s *Store) Delete(ctx context.Context, token string) error {
	sess, err := s.Get(ctx, token)
	if errors.Is(err, sessions.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, sessionKey(token))
		pipe.SRem(ctx, ownerKey(sess.OwnerID), token)
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *Store) DeleteByOwner(ctx context.Context, ownerID string) (int, error) {
	tokens, err := s.client.SMembers(ctx, ownerKey(ownerID)).Result()
	if err != nil {
		return 0, fmt.Errorf("list owner sessions: %w", err)
	}
	if len(tokens) == 0 {
		return 0, nil
	}

	keys := make([]string, len(tokens))
	for i, token := range tokens {
		keys[i] = sessionKey(token)
	}
	var deleted *redis.IntCmd
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		deleted = pipe.Del(ctx, keys...)
		pipe.SRem(ctx, ownerKey(ownerID), toAny(tokens)...)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("delete owner sessions: %w", err)
	}
	return int(deleted.Val()), nil
}

func (s *Store) ListByOwner(ctx context.Context, ownerID string) ([]sessions.Session, error) {
	return s.ownerSessions(ctx, ownerID)
}

// DeleteExpired removes sessions past their expiry that Redis has not dropped yet, and
// prunes owner indexes of tokens whose keys are gone.
func (s *Store) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	removed := 0
	iter := s.client.Scan(ctx, 0, ownerPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		ownerID := iter.Val()[len(ownerPrefix):]
		live, err := s.ownerSessions(ctx, ownerID)
		if err != nil {
			return removed, err
		}
		for _, sess := range live {
			if sessions.Validate(now, &sess) == nil {
				continue
			}
			if err := s.Delete(ctx, sess.Token); err != nil {
				return removed, err
			}
			removed++
		}
	}
	if err := iter.Err(); err != nil {
		return removed, fmt.Errorf("scan owner indexes: %w", err)
	}
	return removed, nil
}

// ownerSessions loads the owner's sessions and drops index entries whose key has expired.
func (s *Store) ownerSessions(ctx context.Context, ownerID string) ([]sessions.Session, error) {
	tokens, err := s.client.SMembers(ctx, ownerKey(ownerID)).Result()
	if err != nil {
		return nil, fmt.Errorf("list owner sessions: %w", err)
	}
	if len(tokens) == 0 {
		return nil, nil
	}

	keys := make([]string, len(tokens))
	for i, token := range tokens {
		keys[i] = sessionKey(token)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("load owner sessions: %w", err)
	}

	var (
		live  []sessions.Session
		stale []any
	)
	for i, v := range values {
		str, ok := v.(string)
		if !ok {
			stale = append(stale, tokens[i])
			continue
		}
		var sess sessions.Session
		if err := json.Unmarshal([]byte(str), &sess); err != nil {
			return nil, fmt.Errorf("decode session: %w", err)
		}
		live = append(live, sess)
	}

	if len(stale) > 0 {
		if err := s.client.SRem(ctx, ownerKey(ownerID), stale...).Err(); err != nil {
			return nil, fmt.Errorf("prune owner index: %w", err)
		}
	}
	return live, nil
}

func toAny(in []string) []any {
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}
