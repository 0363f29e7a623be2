// Package postgres is the Postgres-backed tenant directory.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/dormportal/internal/db"
	"github.com/jrsteele09/dormportal/tenants"
)

var _ tenants.Repo = (*Repo)(nil)

const tenantColumns = `id, email, name, phone, picture_url, role, status, password_hash, federated_subject, created_at, last_login_at`

// Repo implements tenants.Repo over db.DBTX (a *sql.DB or *sql.Tx).
type Repo struct {
	conn db.DBTX
}

func NewRepo(conn db.DBTX) *Repo {
	return &Repo{conn: conn}
}

func (r *Repo) Create(ctx context.Context, t *tenants.Tenant) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	t.Email = tenants.NormalizeEmail(t.Email)

	query := `
		INSERT INTO tenants (` + tenantColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := r.conn.ExecContext(ctx, query,
		t.ID, t.Email, t.Name, t.Phone, t.PictureURL, string(t.Role), string(t.Status),
		t.PasswordHash, t.FederatedSubject, t.CreatedAt, t.LastLoginAt,
	)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return tenants.ErrDuplicateEmail
		}
		return fmt.Errorf("insert tenant: %w", err)
	}
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id string) (*tenants.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE id = $1`
	return r.getOne(ctx, query, id)
}

func (r *Repo) GetByEmail(ctx context.Context, email string) (*tenants.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE email = $1`
	return r.getOne(ctx, query, tenants.NormalizeEmail(email))
}

func (r *Repo) SetStatus(ctx context.Context, id string, status tenants.Status) error {
	return r.execOne(ctx, `UPDATE tenants SET status = $2 WHERE id = $1`, id, string(status))
}

func (r *Repo) SetPasswordHash(ctx context.Context, id, hash string) error {
	return r.execOne(ctx, `UPDATE tenants SET password_hash = $2 WHERE id = $1`, id, hash)
}

func (r *Repo) BindFederatedSubject(ctx context.Context, id, subject string) error {
	query := `
		UPDATE tenants SET federated_subject = $2
		WHERE id = $1 AND (federated_subject = '' OR federated_subject = $2)
	`
	err := r.execOne(ctx, query, id, subject)
	if !errors.Is(err, tenants.ErrNotFound) {
		return err
	}
	// nothing updated: either no such tenant or a different subject is bound
	if _, getErr := r.GetByID(ctx, id); getErr != nil {
		return getErr
	}
	return tenants.ErrSubjectBound
}

func (r *Repo) RecordLogin(ctx context.Context, id string, at time.Time) error {
	return r.execOne(ctx, `UPDATE tenants SET last_login_at = $2 WHERE id = $1`, id, at.UTC())
}

func (r *Repo) List(ctx context.Context, offset, limit int) ([]*tenants.Tenant, error) {
	if offset < 0 {
		offset = 0
	}
	var limitArg any // NULL means no limit
	if limit > 0 {
		limitArg = limit
	}
	query := `SELECT ` + tenantColumns + ` FROM tenants ORDER BY email LIMIT $1 OFFSET $2`
	rows, err := r.conn.QueryContext(ctx, query, limitArg, offset)
	if err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}
	defer rows.Close()

	var list []*tenants.Tenant
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, fmt.Errorf("scan tenant: %w", err)
		}
		list = append(list, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}
	return list, nil
}

func (r *Repo) getOne(ctx context.Context, query string, arg string) (*tenants.Tenant, error) {
	t, err := scanTenant(r.conn.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, tenants.ErrNotFound
		}
		return nil, fmt.Errorf("get tenant: %w", err)
	}
	return t, nil
}

func (r *Repo) execOne(ctx context.Context, query string, args ...any) error {
	res, err := r.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update tenant: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update tenant: %w", err)
	}
	if n == 0 {
		return tenants.ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTenant(s scanner) (*tenants.Tenant, error) {
	var (
		t                 tenants.Tenant
		role, status      string
		phone, pictureURL sql.NullString
		lastLogin         sql.NullTime
	)
	err := s.Scan(&t.ID, &t.Email, &t.Name, &phone, &pictureURL, &role, &status,
		&t.PasswordHash, &t.FederatedSubject, &t.CreatedAt, &lastLogin)
	if err != nil {
		return nil, err
	}
	t.Role = tenants.Role(role)
	t.Status = tenants.Status(status)
	if phone.Valid {
		t.Phone = &phone.String
	}
	if pictureURL.Valid {
		t.PictureURL = &pictureURL.String
	}
	if lastLogin.Valid {
		l := lastLogin.Time.UTC()
		t.LastLoginAt = &l
	}
	return &t, nil
}
