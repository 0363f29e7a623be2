package auth

import (
	"crypto/rand"
	"io"
	"time"

	"github.com/jrsteele09/dormportal/tenants"
)

type options struct {
	nowTime       func() time.Time
	limiter       *FailureLimiter
	sourceLimiter *FailureLimiter
	hasher        *tenants.Hasher
	random        io.Reader
}

// Option configures the auth services.
type Option func(*options)

func defaultOptions() options {
	return options{
		nowTime: time.Now,
		hasher:  tenants.NewHasher(tenants.DefaultCost),
		random:  rand.Reader,
	}
}

func applyOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) Option {
	return func(o *options) {
		o.nowTime = nowFunc
	}
}

// WithLimiter enables failed-login throttling per source and account.
func WithLimiter(limiter *FailureLimiter) Option {
	return func(o *options) {
		o.limiter = limiter
	}
}

// WithSourceLimiter caps failed logins per source across all accounts. Its budget should be
// larger than the per-account one.
func WithSourceLimiter(limiter *FailureLimiter) Option {
	return func(o *options) {
		o.sourceLimiter = limiter
	}
}

func WithHasher(hasher *tenants.Hasher) Option {
	return func(o *options) {
		o.hasher = hasher
	}
}

// WithRandom replaces the token entropy source (testing only).
func WithRandom(r io.Reader) Option {
	return func(o *options) {
		o.random = r
	}
}
