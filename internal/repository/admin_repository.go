package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/kidcheck/internal/model"
)

// AdminRepo persists administrator accounts.
type AdminRepo struct{ DB *sql.DB }

func NewAdminRepo(db *sql.DB) *AdminRepo { return &AdminRepo{DB: db} }

func scanAdmin(row *sql.Row) (model.Admin, error) {
	var a model.Admin
	err := row.Scan(&a.ID, &a.Name, &a.PasswordHash, &a.MustRotate, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Admin{}, ErrNotFound
	}
	return a, err
}

// AdminByName fetches an admin by exact (trimmed) name.
func (r *AdminRepo) AdminByName(ctx context.Context, name string) (model.Admin, error) {
	return scanAdmin(r.DB.QueryRowContext(ctx,
		"SELECT id, name, password_hash, must_rotate, created_at FROM admins WHERE name=? LIMIT 1",
		strings.TrimSpace(name)))
}

// AdminByID fetches an admin by id.
func (r *AdminRepo) AdminByID(ctx context.Context, id uint64) (model.Admin, error) {
	return scanAdmin(r.DB.QueryRowContext(ctx,
		"SELECT id, name, password_hash, must_rotate, created_at FROM admins WHERE id=? LIMIT 1", id))
}

// CreateAdmin inserts a; a taken name yields ErrDuplicate.
func (r *AdminRepo) CreateAdmin(ctx context.Context, a *model.Admin) error {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO admins (name, password_hash, must_rotate, created_at) VALUES (?,?,?,?)",
		a.Name, a.PasswordHash, a.MustRotate, a.CreatedAt)
	if err != nil {
		if isDuplicate(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert admin: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	a.ID = uint64(id)
	return nil
}

// UpdateAdminPassword replaces an admin's hash and rotation flag.
func (r *AdminRepo) UpdateAdminPassword(ctx context.Context, id uint64, hash string, mustRotate bool) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE admins SET password_hash=?, must_rotate=? WHERE id=?", hash, mustRotate, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		// MySQL reports 0 when the values are unchanged; confirm the row exists.
		if _, err := r.AdminByID(ctx, id); err != nil {
			return err
		}
	}
	return nil
}
