// Package session issues and resolves caller sessions and decides which
// operations each resolved actor may invoke.
//
// A session is a signed token (JWT) whose jti names a server-side record.
// The record is the source of truth: logging out deletes it, after which
// the token resolves to the anonymous actor even though its signature is
// still valid.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/iliyamo/kidcheck/internal/model"
)

// ErrNotFound is returned by a Store when no live record exists for a key.
var ErrNotFound = errors.New("session not found")

// Record is the server-side half of a session. Key is the SHA-256 digest
// of the session id, never the id itself.
type Record struct {
	Key       string     `json:"key"`
	Role      model.Role `json:"role"`
	SubjectID uint64     `json:"subject_id"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt time.Time  `json:"expires_at"`
}

// Actor converts the record to the typed identity it grants.
func (r Record) Actor() model.Actor {
	switch r.Role {
	case model.RoleParent:
		return model.ParentActor(r.SubjectID)
	case model.RoleAdmin:
		return model.AdminActor(r.SubjectID)
	}
	return model.Anonymous()
}

// Store persists session records. Implementations live in this package
// (memory, Redis) and in the repository package (MySQL).
type Store interface {
	Save(ctx context.Context, rec Record) error
	Lookup(ctx context.Context, key string) (Record, error)
	Delete(ctx context.Context, key string) error
}

// MemoryStore keeps sessions in process memory. It is used by tests and
// single-instance deployments without Redis.
type MemoryStore struct {
	mu   sync.Mutex
	recs map[string]Record
	now  func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{recs: make(map[string]Record), now: time.Now}
}

func (s *MemoryStore) Save(_ context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recs[rec.Key] = rec
	return nil
}

func (s *MemoryStore) Lookup(_ context.Context, key string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.recs[key]
	if !ok {
		return Record{}, ErrNotFound
	}
	if !s.now().Before(rec.ExpiresAt) {
		delete(s.recs, key)
		return Record{}, ErrNotFound
	}
	return rec, nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.recs, key)
	return nil
}
