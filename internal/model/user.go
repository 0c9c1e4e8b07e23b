package model

import (
	"strings"
	"time"
)

// User represents a parent account as stored in the `users` table. The
// email is kept normalized (trimmed, lower-cased) so that uniqueness is
// case-insensitive. Role is always RoleParent for rows in this table;
// administrators live in their own table.
type User struct {
	ID           uint64    // users.id
	Email        string    // users.email (normalized)
	Name         string    // users.name
	PasswordHash string    // users.password_hash (bcrypt)
	Role         Role      // users.user_type
	CreatedAt    time.Time // users.created_at
}

// Admin mirrors the `admins` table. Admins are never created through the
// public API; the default one is provisioned at startup. MustRotate is
// set while the well-known bootstrap password is still in use.
type Admin struct {
	ID           uint64    // admins.id
	Name         string    // admins.name
	PasswordHash string    // admins.password_hash
	MustRotate   bool      // admins.must_rotate
	CreatedAt    time.Time // admins.created_at
}

// Child belongs to exactly one parent.
type Child struct {
	ID        uint64    `json:"id"`
	ParentID  uint64    `json:"parent_id"`
	Name      string    `json:"name"`
	Grade     string    `json:"grade"`
	CreatedAt time.Time `json:"created_at"`
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
