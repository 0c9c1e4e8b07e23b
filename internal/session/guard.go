package session

import (
	"context"
	"fmt"

	"github.com/iliyamo/kidcheck/internal/model"
)

// Operation names an action the guard can authorize.
type Operation int

const (
	OpListOwnRequests Operation = iota
	OpListAllRequests
	OpCreateRequest
	OpUpdateRequestStatus
	OpDeleteRequest
	OpManageChildren
	OpViewAnalytics
	OpRotateAdminPassword
)

var opNames = map[Operation]string{
	OpListOwnRequests:     "list own requests",
	OpListAllRequests:     "list all requests",
	OpCreateRequest:       "create request",
	OpUpdateRequestStatus: "update request status",
	OpDeleteRequest:       "delete request",
	OpManageChildren:      "manage children",
	OpViewAnalytics:       "view analytics",
	OpRotateAdminPassword: "rotate admin password",
}

func (op Operation) String() string {
	if n, ok := opNames[op]; ok {
		return n
	}
	return fmt.Sprintf("operation(%d)", int(op))
}

// allowed maps each operation to the roles that may invoke it. Ownership
// ("self only", "own only") is enforced by the registry, which scopes every
// parent operation to the actor's own id.
var allowed = map[Operation][]model.Role{
	OpListOwnRequests:     {model.RoleParent},
	OpListAllRequests:     {model.RoleAdmin},
	OpCreateRequest:       {model.RoleParent},
	OpUpdateRequestStatus: {model.RoleAdmin},
	OpDeleteRequest:       {model.RoleParent, model.RoleAdmin},
	OpManageChildren:      {model.RoleParent},
	OpViewAnalytics:       {model.RoleAdmin},
	OpRotateAdminPassword: {model.RoleAdmin},
}

// Authorize is a pure predicate: nil when actor may perform op,
// model.ErrUnauthorized for anonymous callers and model.ErrForbidden for
// authenticated callers with the wrong role.
func Authorize(actor model.Actor, op Operation) error {
	if actor.IsAnonymous() {
		return fmt.Errorf("%s: %w", op, model.ErrUnauthorized)
	}
	for _, r := range allowed[op] {
		if actor.Role == r {
			return nil
		}
	}
	return fmt.Errorf("%s as %s: %w", op, actor.Role, model.ErrForbidden)
}

type actorKey struct{}

// WithActor returns a context carrying actor.
func WithActor(ctx context.Context, actor model.Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFrom returns the actor stored in ctx, or the anonymous actor.
func ActorFrom(ctx context.Context) model.Actor {
	if a, ok := ctx.Value(actorKey{}).(model.Actor); ok {
		return a
	}
	return model.Anonymous()
}
