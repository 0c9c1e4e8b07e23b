package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/iliyamo/kidcheck/internal/model"
	"github.com/iliyamo/kidcheck/internal/session"
)

const (
	// MinPasswordLen applies to parent registration and admin rotation.
	MinPasswordLen = 6
	// DefaultAdminName is the account provisioned on first start.
	DefaultAdminName = "admin"
	// DefaultChildGrade is stored for children created at registration.
	DefaultChildGrade = "Not specified"

	dummyPassword = "kidcheck-timing-equalizer"
)

// Registration is the input of RegisterUser.
type Registration struct {
	Email     string
	Name      string
	Password  string
	ChildName string
}

// Profile describes the caller behind a session.
type Profile struct {
	Role       model.Role `json:"user_type"`
	ID         uint64     `json:"id"`
	Name       string     `json:"name"`
	Email      string     `json:"email,omitempty"`
	MustRotate bool       `json:"must_rotate,omitempty"`
}

// CredentialService manages parents, their children and administrators.
type CredentialService struct {
	users    UserStore
	children ChildStore
	admins   AdminStore
	hasher   Hasher
	log      *slog.Logger
	now      func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

func NewCredentialService(users UserStore, children ChildStore, admins AdminStore, hasher Hasher, log *slog.Logger) *CredentialService {
	return &CredentialService{
		users:    users,
		children: children,
		admins:   admins,
		hasher:   hasher,
		log:      log,
		now:      time.Now,
	}
}

func validPassword(p string) error {
	if utf8.RuneCountInString(p) < MinPasswordLen {
		return fmt.Errorf("password must be at least %d characters: %w", MinPasswordLen, model.ErrInvalidInput)
	}
	return nil
}

// RegisterUser creates a parent account, and a child when ChildName is set.
func (s *CredentialService) RegisterUser(ctx context.Context, in Registration) (model.User, error) {
	email := model.NormalizeEmail(in.Email)
	name := strings.TrimSpace(in.Name)
	if email == "" || name == "" {
		return model.User{}, fmt.Errorf("email and name are required: %w", model.ErrInvalidInput)
	}
	if err := validPassword(in.Password); err != nil {
		return model.User{}, err
	}
	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return model.User{}, fmt.Errorf("hash password: %w", err)
	}

	now := s.now().UTC()
	u := model.User{Email: email, Name: name, PasswordHash: hash, Role: model.RoleParent, CreatedAt: now}
	var child *model.Child
	if cn := strings.TrimSpace(in.ChildName); cn != "" {
		child = &model.Child{Name: cn, Grade: DefaultChildGrade, CreatedAt: now}
	}
	if err := s.users.CreateUser(ctx, &u, child); err != nil {
		if errors.Is(err, model.ErrConflict) {
			return model.User{}, fmt.Errorf("email %s already registered: %w", email, model.ErrConflict)
		}
		return model.User{}, fmt.Errorf("create user: %w", err)
	}
	s.log.Info("parent registered", slog.Uint64("user_id", u.ID))
	return u, nil
}

// dummy returns a hash to compare against when the identity is unknown, so
// the cost of a failed login does not depend on whether it exists.
func (s *CredentialService) dummy() string {
	s.dummyOnce.Do(func() {
		h, err := s.hasher.Hash(dummyPassword)
		if err != nil {
			s.log.Error("hash dummy password; unknown-identity logins are not timing-equalized", slog.Any("error", err))
			return
		}
		s.dummyHash = h
	})
	return s.dummyHash
}

// rejectUnknown spends one hash comparison on a failed lookup. Without a
// dummy hash it hashes the attempt instead, which costs the same.
func (s *CredentialService) rejectUnknown(password string) {
	if h := s.dummy(); h != "" {
		s.hasher.Verify(h, password)
		return
	}
	_, _ = s.hasher.Hash(password)
}

// VerifyUser checks a parent's credentials. Unknown email and wrong
// password both return model.ErrAuthFailure.
func (s *CredentialService) VerifyUser(ctx context.Context, email, password string) (model.User, error) {
	u, err := s.users.UserByEmail(ctx, email)
	if errors.Is(err, model.ErrNotFound) {
		s.rejectUnknown(password)
		return model.User{}, model.ErrAuthFailure
	}
	if err != nil {
		return model.User{}, fmt.Errorf("load user: %w", err)
	}
	if !s.hasher.Verify(u.PasswordHash, password) {
		return model.User{}, model.ErrAuthFailure
	}
	return u, nil
}

// VerifyAdmin checks an administrator's credentials with the same contract
// as VerifyUser.
func (s *CredentialService) VerifyAdmin(ctx context.Context, name, password string) (model.Admin, error) {
	a, err := s.admins.AdminByName(ctx, name)
	if errors.Is(err, model.ErrNotFound) {
		s.rejectUnknown(password)
		return model.Admin{}, model.ErrAuthFailure
	}
	if err != nil {
		return model.Admin{}, fmt.Errorf("load admin: %w", err)
	}
	if !s.hasher.Verify(a.PasswordHash, password) {
		return model.Admin{}, model.ErrAuthFailure
	}
	return a, nil
}

// EnsureDefaultAdmin provisions the default administrator when it does not
// exist yet. The account is flagged for rotation. It reports whether an
// account was created.
func (s *CredentialService) EnsureDefaultAdmin(ctx context.Context, password string) (bool, error) {
	_, err := s.admins.AdminByName(ctx, DefaultAdminName)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, model.ErrNotFound) {
		return false, fmt.Errorf("load default admin: %w", err)
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return false, fmt.Errorf("hash password: %w", err)
	}
	a := model.Admin{Name: DefaultAdminName, PasswordHash: hash, MustRotate: true, CreatedAt: s.now().UTC()}
	if err := s.admins.CreateAdmin(ctx, &a); err != nil {
		if errors.Is(err, model.ErrConflict) {
			// another instance provisioned it first
			return false, nil
		}
		return false, fmt.Errorf("create default admin: %w", err)
	}
	s.log.Warn("default admin provisioned with the bootstrap password; rotate it via POST /api/admin/password",
		slog.String("name", DefaultAdminName))
	return true, nil
}

// RotateAdminPassword replaces the calling admin's password after checking
// the current one, and clears the rotation flag.
func (s *CredentialService) RotateAdminPassword(ctx context.Context, actor model.Actor, current, next string) error {
	if err := session.Authorize(actor, session.OpRotateAdminPassword); err != nil {
		return err
	}
	if err := validPassword(next); err != nil {
		return err
	}
	if current == next {
		return fmt.Errorf("new password must differ from the current one: %w", model.ErrInvalidInput)
	}
	a, err := s.admins.AdminByID(ctx, actor.ID)
	if err != nil {
		return fmt.Errorf("load admin: %w", err)
	}
	if !s.hasher.Verify(a.PasswordHash, current) {
		return model.ErrAuthFailure
	}
	hash, err := s.hasher.Hash(next)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.admins.UpdateAdminPassword(ctx, a.ID, hash, false); err != nil {
		return fmt.Errorf("update admin password: %w", err)
	}
	s.log.Info("admin password rotated", slog.Uint64("admin_id", a.ID))
	return nil
}

// Describe returns the profile of the actor's account.
func (s *CredentialService) Describe(ctx context.Context, actor model.Actor) (Profile, error) {
	switch {
	case actor.IsParent():
		u, err := s.users.UserByID(ctx, actor.ID)
		if err != nil {
			return Profile{}, fmt.Errorf("load user: %w", err)
		}
		return Profile{Role: model.RoleParent, ID: u.ID, Name: u.Name, Email: u.Email}, nil
	case actor.IsAdmin():
		a, err := s.admins.AdminByID(ctx, actor.ID)
		if err != nil {
			return Profile{}, fmt.Errorf("load admin: %w", err)
		}
		return Profile{Role: model.RoleAdmin, ID: a.ID, Name: a.Name, MustRotate: a.MustRotate}, nil
	}
	return Profile{}, model.ErrUnauthorized
}

// AddChild registers a child for the calling parent.
func (s *CredentialService) AddChild(ctx context.Context, actor model.Actor, name, grade string) (model.Child, error) {
	if err := session.Authorize(actor, session.OpManageChildren); err != nil {
		return model.Child{}, err
	}
	name, grade = strings.TrimSpace(name), strings.TrimSpace(grade)
	if name == "" || grade == "" {
		return model.Child{}, fmt.Errorf("name and grade are required: %w", model.ErrInvalidInput)
	}
	c := model.Child{ParentID: actor.ID, Name: name, Grade: grade, CreatedAt: s.now().UTC()}
	if err := s.children.CreateChild(ctx, &c); err != nil {
		return model.Child{}, fmt.Errorf("create child: %w", err)
	}
	return c, nil
}

// ListChildren returns the calling parent's children.
func (s *CredentialService) ListChildren(ctx context.Context, actor model.Actor) ([]model.Child, error) {
	if err := session.Authorize(actor, session.OpManageChildren); err != nil {
		return nil, err
	}
	return s.children.ListChildren(ctx, actor.ID)
}
