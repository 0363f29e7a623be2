// Package postgres is the Postgres-backed session store.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jrsteele09/dormportal/internal/db"
	"github.com/jrsteele09/dormportal/sessions"
)

var _ sessions.Repo = (*Repo)(nil)

// Repo implements sessions.Repo over db.DBTX. Every operation is a single statement, so a
// session row is either fully written or absent.
type Repo struct {
	conn db.DBTX
}

func NewRepo(conn db.DBTX) *Repo {
	return &Repo{conn: conn}
}

func (r *Repo) Create(ctx context.Context, s sessions.Session) error {
	query := `
		INSERT INTO sessions (token, owner_id, issued_at, expires_at)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := r.conn.ExecContext(ctx, query, s.Token, s.OwnerID, s.IssuedAt.UTC(), s.ExpiresAt.UTC()); err != nil {
		if db.IsUniqueViolation(err) {
			return sessions.ErrDuplicateToken
		}
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (r *Repo) Get(ctx context.Context, token string) (*sessions.Session, error) {
	query := `
		SELECT token, owner_id, issued_at, expires_at
		FROM sessions
		WHERE token = $1
	`
	var s sessions.Session
	err := r.conn.QueryRowContext(ctx, query, token).Scan(&s.Token, &s.OwnerID, &s.IssuedAt, &s.ExpiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sessions.ErrNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	return &s, nil
}

func (r *Repo) Delete(ctx context.Context, token string) error {
	if _, err := r.conn.ExecContext(ctx, `DELETE FROM sessions WHERE token = $1`, token); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (r *Repo) DeleteByOwner(ctx context.Context, ownerID string) (int, error) {
	return r.deleteCount(ctx, `DELETE FROM sessions WHERE owner_id = $1`, ownerID)
}

func (r *Repo) ListByOwner(ctx context.Context, ownerID string) ([]sessions.Session, error) {
	query := `
		SELECT token, owner_id, issued_at, expires_at
		FROM sessions
		WHERE owner_id = $1
		ORDER BY issued_at
	`
	rows, err := r.conn.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var list []sessions.Session
	for rows.Next() {
		var s sessions.Session
		if err := rows.Scan(&s.Token, &s.OwnerID, &s.IssuedAt, &s.ExpiresAt); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		list = append(list, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return list, nil
}

func (r *Repo) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	return r.deleteCount(ctx, `DELETE FROM sessions WHERE expires_at < $1`, now.UTC())
}

func (r *Repo) deleteCount(ctx context.Context, query string, arg any) (int, error) {
	res, err := r.conn.ExecContext(ctx, query, arg)
	if err != nil {
		return 0, fmt.Errorf("delete sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete sessions: %w", err)
	}
	return int(n), nil
}
