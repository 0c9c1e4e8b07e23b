package model

import (
	"fmt"
	"strings"
)

// Role identifies the kind of caller behind a session.
type Role string

const (
	RoleAnonymous Role = "anonymous"
	RoleParent    Role = "parent"
	RoleAdmin     Role = "admin"
)

// ParseRole validates a role claim. Anonymous is not a storable role.
func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleParent, RoleAdmin:
		return r, nil
	}
	return "", fmt.Errorf("unknown role %q: %w", s, ErrInvalidInput)
}

// Actor is the typed identity a session resolves to. It is resolved once
// per call and passed explicitly to every service operation.
type Actor struct {
	Role Role
	ID   uint64 // user id for parents, admin id for admins, zero when anonymous
}

// Anonymous is the actor of a call without a valid session.
func Anonymous() Actor { return Actor{Role: RoleAnonymous} }

// ParentActor returns the actor for the parent with the given user id.
func ParentActor(userID uint64) Actor { return Actor{Role: RoleParent, ID: userID} }

// AdminActor returns the actor for the admin with the given id.
func AdminActor(adminID uint64) Actor { return Actor{Role: RoleAdmin, ID: adminID} }

func (a Actor) IsAnonymous() bool { return a.Role != RoleParent && a.Role != RoleAdmin }
func (a Actor) IsParent() bool    { return a.Role == RoleParent }
func (a Actor) IsAdmin() bool     { return a.Role == RoleAdmin }

func (a Actor) String() string {
	if a.IsAnonymous() {
		return string(RoleAnonymous)
	}
	return fmt.Sprintf("%s:%d", a.Role, a.ID)
}
