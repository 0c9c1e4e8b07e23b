// Package service holds the core operations of KidCheck: credentials,
// children, the request registry and analytics. Every operation takes the
// caller's resolved actor explicitly, authorizes it with the session guard
// and returns one of the model error kinds on expected failures.
package service

import (
	"context"

	"github.com/iliyamo/kidcheck/internal/model"
)

// UserStore persists parent accounts. CreateUser also inserts child, when
// non-nil, atomically with the user.
type UserStore interface {
	CreateUser(ctx context.Context, u *model.User, child *model.Child) error
	UserByEmail(ctx context.Context, email string) (model.User, error)
	UserByID(ctx context.Context, id uint64) (model.User, error)
}

type ChildStore interface {
	CreateChild(ctx context.Context, c *model.Child) error
	ListChildren(ctx context.Context, parentID uint64) ([]model.Child, error)
}

type AdminStore interface {
	AdminByName(ctx context.Context, name string) (model.Admin, error)
	AdminByID(ctx context.Context, id uint64) (model.Admin, error)
	CreateAdmin(ctx context.Context, a *model.Admin) error
	UpdateAdminPassword(ctx context.Context, id uint64, hash string, mustRotate bool) error
}

// RequestStore persists requests. ModifyRequest must serialize concurrent
// calls for the same id and write back only when fn returns nil.
type RequestStore interface {
	CreateRequest(ctx context.Context, r *model.Request) error
	GetRequest(ctx context.Context, id uint64) (model.Request, error)
	ListRequestsByParent(ctx context.Context, parentID uint64) ([]model.Request, error)
	ListRequests(ctx context.Context) ([]model.RequestWithParent, error)
	ModifyRequest(ctx context.Context, id uint64, fn func(*model.Request) error) (model.Request, error)
	DeleteRequest(ctx context.Context, id uint64) (int64, error)
	DeleteRequestOwned(ctx context.Context, id, parentID uint64) (int64, error)
}

// SnapshotStore returns a read-consistent view of requests, users and children.
type SnapshotStore interface {
	Snapshot(ctx context.Context) (model.Snapshot, error)
}

// Hasher is a one-way password hash.
type Hasher interface {
	Hash(plain string) (string, error)
	Verify(hash, plain string) bool
}
