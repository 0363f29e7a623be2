package sessions_test

import (
	"testing"
	"time"

	"github.com/jrsteele09/dormportal/sessions"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	issued := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s := &sessions.Session{
		Token:     "tok",
		OwnerID:   "t-1",
		IssuedAt:  issued,
		ExpiresAt: issued.Add(time.Hour),
	}

	tests := []struct {
		name string
		now  time.Time
		s    *sessions.Session
		want error
	}{
		{"nil session", issued, nil, sessions.ErrNotFound},
		{"empty token", issued, &sessions.Session{}, sessions.ErrNotFound},
		{"fresh", issued, s, nil},
		{"at expiry", s.ExpiresAt, s, nil},
		{"just after expiry", s.ExpiresAt.Add(time.Nanosecond), s, sessions.ErrExpired},
		{"long expired", s.ExpiresAt.Add(24 * time.Hour), s, sessions.ErrExpired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := sessions.Validate(tt.now, tt.s)
			if tt.want == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestRedact(t *testing.T) {
	require.Equal(t, "abcdef***", sessions.Redact("abcdefghijklmnop"))
	require.Equal(t, "***", sessions.Redact("abc"))
}
