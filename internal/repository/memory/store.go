// Package memory is an in-process implementation of the stores the
// services depend on. A single RWMutex guards all tables: writers are
// serialized (which also serializes every mutation of a given request id)
// and readers see a consistent view for the duration of one call.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/kidcheck/internal/model"
	"github.com/iliyamo/kidcheck/internal/repository"
)

type Store struct {
	mu sync.RWMutex

	users    map[uint64]model.User
	admins   map[uint64]model.Admin
	children map[uint64]model.Child
	requests map[uint64]model.Request

	nextUser, nextAdmin, nextChild, nextRequest uint64
}

func New() *Store {
	return &Store{
		users:    make(map[uint64]model.User),
		admins:   make(map[uint64]model.Admin),
		children: make(map[uint64]model.Child),
		requests: make(map[uint64]model.Request),
	}
}

// cloneRequest copies the pointer fields so callers cannot mutate stored rows.
func cloneRequest(r model.Request) model.Request {
	if r.Feedback != nil {
		fb := *r.Feedback
		r.Feedback = &fb
	}
	if r.ResponseTime != nil {
		t := *r.ResponseTime
		r.ResponseTime = &t
	}
	return r
}

// ---- users & children ----

func (s *Store) CreateUser(_ context.Context, u *model.User, child *model.Child) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	email := model.NormalizeEmail(u.Email)
	for _, existing := range s.users {
		if existing.Email == email {
			return repository.ErrDuplicate
		}
	}
	s.nextUser++
	u.ID = s.nextUser
	u.Email = email
	s.users[u.ID] = *u
	if child != nil {
		child.ParentID = u.ID
		s.nextChild++
		child.ID = s.nextChild
		s.children[child.ID] = *child
	}
	return nil
}

func (s *Store) UserByEmail(_ context.Context, email string) (model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	email = model.NormalizeEmail(email)
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (s *Store) UserByID(_ context.Context, id uint64) (model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (s *Store) CreateChild(_ context.Context, c *model.Child) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[c.ParentID]; !ok {
		return fmt.Errorf("parent %d: %w", c.ParentID, repository.ErrNotFound)
	}
	s.nextChild++
	c.ID = s.nextChild
	s.children[c.ID] = *c
	return nil
}

func (s *Store) ListChildren(_ context.Context, parentID uint64) ([]model.Child, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []model.Child{}
	for _, c := range s.children {
		if c.ParentID == parentID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ---- admins ----

func (s *Store) AdminByName(_ context.Context, name string) (model.Admin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	name = strings.TrimSpace(name)
	for _, a := range s.admins {
		if a.Name == name {
			return a, nil
		}
	}
	return model.Admin{}, repository.ErrNotFound
}

func (s *Store) AdminByID(_ context.Context, id uint64) (model.Admin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.admins[id]
	if !ok {
		return model.Admin{}, repository.ErrNotFound
	}
	return a, nil
}

func (s *Store) CreateAdmin(_ context.Context, a *model.Admin) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.admins {
		if existing.Name == a.Name {
			return repository.ErrDuplicate
		}
	}
	s.nextAdmin++
	a.ID = s.nextAdmin
	s.admins[a.ID] = *a
	return nil
}

func (s *Store) UpdateAdminPassword(_ context.Context, id uint64, hash string, mustRotate bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.admins[id]
	if !ok {
		return repository.ErrNotFound
	}
	a.PasswordHash = hash
	a.MustRotate = mustRotate
	s.admins[id] = a
	return nil
}

// ---- requests ----

func (s *Store) CreateRequest(_ context.Context, r *model.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[r.ParentID]; !ok {
		return fmt.Errorf("parent %d: %w", r.ParentID, repository.ErrNotFound)
	}
	s.nextRequest++
	r.ID = s.nextRequest
	s.requests[r.ID] = cloneRequest(*r)
	return nil
}

func (s *Store) GetRequest(_ context.Context, id uint64) (model.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.requests[id]
	if !ok {
		return model.Request{}, repository.ErrNotFound
	}
	return cloneRequest(r), nil
}

// newestFirst orders by creation time descending, then id descending.
func newestFirst(a, b model.Request) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}

func (s *Store) ListRequestsByParent(_ context.Context, parentID uint64) ([]model.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []model.Request{}
	for _, r := range s.requests {
		if r.OwnedBy(parentID) {
			out = append(out, cloneRequest(r))
		}
	}
	sort.Slice(out, func(i, j int) bool { return newestFirst(out[i], out[j]) })
	return out, nil
}

func (s *Store) ListRequests(_ context.Context) ([]model.RequestWithParent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.RequestWithParent, 0, len(s.requests))
	for _, r := range s.requests {
		u, ok := s.users[r.ParentID]
		if !ok {
			continue // inner join semantics
		}
		out = append(out, model.RequestWithParent{Request: cloneRequest(r), ParentName: u.Name, ParentEmail: u.Email})
	}
	sort.Slice(out, func(i, j int) bool { return newestFirst(out[i].Request, out[j].Request) })
	return out, nil
}

func (s *Store) ModifyRequest(_ context.Context, id uint64, fn func(*model.Request) error) (model.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.requests[id]
	if !ok {
		return model.Request{}, repository.ErrNotFound
	}
	r = cloneRequest(r)
	if err := fn(&r); err != nil {
		return model.Request{}, err
	}
	s.requests[id] = cloneRequest(r)
	return r, nil
}

func (s *Store) DeleteRequest(_ context.Context, id uint64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.requests[id]; !ok {
		return 0, nil
	}
	delete(s.requests, id)
	return 1, nil
}

func (s *Store) DeleteRequestOwned(_ context.Context, id, parentID uint64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.requests[id]
	if !ok || !r.OwnedBy(parentID) {
		return 0, nil
	}
	delete(s.requests, id)
	return 1, nil
}

// Snapshot copies all tables under one read lock.
func (s *Store) Snapshot(_ context.Context) (model.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := model.Snapshot{
		Requests: make([]model.Request, 0, len(s.requests)),
		Users:    make([]model.User, 0, len(s.users)),
		Children: make([]model.Child, 0, len(s.children)),
		TakenAt:  time.Now().UTC(),
	}
	for _, r := range s.requests {
		snap.Requests = append(snap.Requests, cloneRequest(r))
	}
	for _, u := range s.users {
		u.PasswordHash = ""
		snap.Users = append(snap.Users, u)
	}
	for _, c := range s.children {
		snap.Children = append(snap.Children, c)
	}
	sort.Slice(snap.Requests, func(i, j int) bool { return snap.Requests[i].ID < snap.Requests[j].ID })
	sort.Slice(snap.Users, func(i, j int) bool { return snap.Users[i].ID < snap.Users[j].ID })
	sort.Slice(snap.Children, func(i, j int) bool { return snap.Children[i].ID < snap.Children[j].ID })
	return snap, nil
}
