package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iliyamo/kidcheck/internal/model"
)

// UserRepo persists parent accounts and their children.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// CreateUser inserts u and, when child is non-nil, child in the same
// transaction. Generated ids are written back. A taken email yields
// ErrDuplicate.
func (r *UserRepo) CreateUser(ctx context.Context, u *model.User, child *model.Child) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx,
		"INSERT INTO users (email, name, password_hash, user_type, created_at) VALUES (?,?,?,?,?)",
		u.Email, u.Name, u.PasswordHash, string(u.Role), u.CreatedAt)
	if err != nil {
		if isDuplicate(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	u.ID = uint64(id)

	if child != nil {
		child.ParentID = u.ID
		if err := insertChild(ctx, tx, child); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	return nil
}

const userColumns = "id,email,name,password_hash,user_type,created_at"

func scanUser(row interface{ Scan(...any) error }) (model.User, error) {
	var (
		u    model.User
		role string
	)
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &role, &u.CreatedAt); err != nil {
		return model.User{}, err
	}
	u.Role = model.Role(role)
	return u, nil
}

// UserByEmail fetches a user by normalized email.
func (r *UserRepo) UserByEmail(ctx context.Context, email string) (model.User, error) {
	u, err := scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", model.NormalizeEmail(email)))
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrNotFound
	}
	return u, err
}

// UserByID fetches a user by id.
func (r *UserRepo) UserByID(ctx context.Context, id uint64) (model.User, error) {
	u, err := scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrNotFound
	}
	return u, err
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertChild(ctx context.Context, ex execer, c *model.Child) error {
	res, err := ex.ExecContext(ctx,
		"INSERT INTO children (parent_id, name, grade, created_at) VALUES (?,?,?,?)",
		c.ParentID, c.Name, c.Grade, c.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("parent %d: %w", c.ParentID, ErrNotFound)
		}
		return fmt.Errorf("insert child: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = uint64(id)
	return nil
}

// CreateChild inserts a child for an existing parent.
func (r *UserRepo) CreateChild(ctx context.Context, c *model.Child) error {
	return insertChild(ctx, r.DB, c)
}

// ListChildren returns a parent's children in insertion order.
func (r *UserRepo) ListChildren(ctx context.Context, parentID uint64) ([]model.Child, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id, parent_id, name, grade, created_at FROM children WHERE parent_id=? ORDER BY id",
		parentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Child{}
	for rows.Next() {
		var c model.Child
		if err := rows.Scan(&c.ID, &c.ParentID, &c.Name, &c.Grade, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
