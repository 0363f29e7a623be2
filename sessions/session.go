// Package sessions defines the session record that proves a completed login, and the store
// contract the issuer and the authorization gate share.
package sessions

import (
	"errors"
	"time"
)

var (
	ErrNotFound       = errors.New("session not found")
	ErrExpired        = errors.New("session expired")
	ErrDuplicateToken = errors.New("session token already exists")
)

// Session is immutable once created.
type Session struct {
	Token     string    `json:"token"`
	OwnerID   string    `json:"owner_id"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Validate checks a looked-up session against the clock. A session is usable up to and
// including its ExpiresAt instant.
func Validate(now time.Time, s *Session) error {
	if s == nil || s.Token == "" {
		return ErrNotFound
	}
	if now.After(s.ExpiresAt) {
		return ErrExpired
	}
	return nil
}

// Redact shortens a token for logs.
func Redact(token string) string {
	if len(token) <= 6 {
		return "***"
	}
	return token[:6] + "***"
}
