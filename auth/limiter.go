package auth

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

// FailureLimiter throttles repeated failed logins per key. Each key gets a token bucket of
// maxFailures that refills fully over window; only failures spend tokens. Keys live in a
// bounded LRU so a flood of sources can't grow memory without limit.
//
// Attempts in flight hold a unit of budget from Take until they are settled, so concurrent
// guesses can never outnumber the remaining budget.
type FailureLimiter struct {
	burst   int
	every   rate.Limit
	nowTime func() time.Time

	lock sync.Mutex
	keys *lru.Cache[string, *bucket]
}

type bucket struct {
	lim      *rate.Limiter
	inflight int
}

func NewFailureLimiter(maxFailures int, window time.Duration, maxKeys int, options ...Option) (*FailureLimiter, error) {
	if maxFailures <= 0 {
		return nil, errors.New("[NewFailureLimiter] maxFailures must be positive")
	}
	if window <= 0 {
		return nil, errors.New("[NewFailureLimiter] window must be positive")
	}
	keys, err := lru.New[string, *bucket](maxKeys)
	if err != nil {
		return nil, errors.Wrap(err, "[NewFailureLimiter]")
	}
	o := applyOptions(options)
	return &FailureLimiter{
		burst:   maxFailures,
		every:   rate.Every(window / time.Duration(maxFailures)),
		nowTime: o.nowTime,
		keys:    keys,
	}, nil
}

// Attempt is one unit of budget reserved by Take. Exactly one of Fail or Release should be
// called; later calls are ignored.
type Attempt struct {
	limiter *FailureLimiter
	key     string
	once    sync.Once
}

// Take reserves one unit of key's budget. It returns false, reserving nothing, when failures
// already recorded plus attempts in flight use up the budget. A nil limiter always allows.
func (l *FailureLimiter) Take(key string) (*Attempt, bool) {
	if l == nil {
		return nil, true
	}
	l.lock.Lock()
	defer l.lock.Unlock()

	b, ok := l.keys.Get(key)
	if !ok {
		b = &bucket{lim: rate.NewLimiter(l.every, l.burst)}
		l.keys.Add(key, b)
	}
	if b.lim.TokensAt(l.nowTime())-float64(b.inflight) < 1 {
		return nil, false
	}
	b.inflight++
	return &Attempt{limiter: l, key: key}, true
}

// Fail settles the attempt as a failed login and spends its unit.
func (a *Attempt) Fail() {
	a.settle(true)
}

// Release settles the attempt without spending anything.
func (a *Attempt) Release() {
	a.settle(false)
}

func (a *Attempt) settle(spend bool) {
	if a == nil {
		return
	}
	a.once.Do(func() {
		l := a.limiter
		l.lock.Lock()
		defer l.lock.Unlock()

		b, ok := l.keys.Peek(a.key)
		if !ok {
			return // reset or evicted meanwhile
		}
		if b.inflight > 0 {
			b.inflight--
		}
		if spend {
			b.lim.AllowN(l.nowTime(), 1)
		}
	})
}

// Reset forgets key, typically after a successful login.
func (l *FailureLimiter) Reset(key string) {
	if l == nil {
		return
	}
	l.lock.Lock()
	defer l.lock.Unlock()
	l.keys.Remove(key)
}
