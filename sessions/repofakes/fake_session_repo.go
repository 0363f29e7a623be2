package sessionrepofakes

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jrsteele09/dormportal/sessions"
)

var _ sessions.Repo = (*FakeSessionRepo)(nil)

// FakeSessionRepo keeps sessions in memory. A single lock serialises writes with reads, so a
// completed Delete is seen by every later Get.
type FakeSessionRepo struct {
	sessions map[string]sessions.Session
	owners   map[string]map[string]struct{} // owner id to tokens
	lock     sync.RWMutex
}

func NewFakeSessionRepo() *FakeSessionRepo {
	return &FakeSessionRepo{
		sessions: make(map[string]sessions.Session),
		owners:   make(map[string]map[string]struct{}),
	}
}

func (sr *FakeSessionRepo) Create(ctx context.Context, s sessions.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	sr.lock.Lock()
	defer sr.lock.Unlock()

	if _, ok := sr.sessions[s.Token]; ok {
		return sessions.ErrDuplicateToken
	}
	sr.sessions[s.Token] = s
	if sr.owners[s.OwnerID] == nil {
		sr.owners[s.OwnerID] = make(map[string]struct{})
	}
	sr.owners[s.OwnerID][s.Token] = struct{}{}
	return nil
}

func (sr *FakeSessionRepo) Get(ctx context.Context, token string) (*sessions.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sr.lock.RLock()
	defer sr.lock.RUnlock()

	s, ok := sr.sessions[token]
	if !ok {
		return nil, sessions.ErrNotFound
	}
	return &s, nil
}

func (sr *FakeSessionRepo) Delete(ctx context.Context, token string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	sr.lock.Lock()
	defer sr.lock.Unlock()

	sr.deleteLocked(token)
	return nil
}

func (sr *FakeSessionRepo) DeleteByOwner(ctx context.Context, ownerID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	sr.lock.Lock()
	defer sr.lock.Unlock()

	n := 0
	for token := range sr.owners[ownerID] {
		sr.deleteLocked(token)
		n++
	}
	return n, nil
}

func (sr *FakeSessionRepo) ListByOwner(ctx context.Context, ownerID string) ([]sessions.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sr.lock.RLock()
	defer sr.lock.RUnlock()

	list := make([]sessions.Session, 0, len(sr.owners[ownerID]))
	for token := range sr.owners[ownerID] {
		list = append(list, sr.sessions[token])
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].IssuedAt.Before(list[j].IssuedAt)
	})
	return list, nil
}

func (sr *FakeSessionRepo) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	sr.lock.Lock()
	defer sr.lock.Unlock()

	n := 0
	for token, s := range sr.sessions {
		if now.After(s.ExpiresAt) {
			sr.deleteLocked(token)
			n++
		}
	}
	return n, nil
}

func (sr *FakeSessionRepo) deleteLocked(token string) {
	s, ok := sr.sessions[token]
	if !ok {
		return
	}
	delete(sr.sessions, token)
	if tokens := sr.owners[s.OwnerID]; tokens != nil {
		delete(tokens, token)
		if len(tokens) == 0 {
			delete(sr.owners, s.OwnerID)
		}
	}
}
