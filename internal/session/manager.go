package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/kidcheck/internal/model"
	"github.com/iliyamo/kidcheck/internal/utils"
)

// Manager issues, resolves and revokes sessions.
type Manager struct {
	secret string
	ttl    time.Duration
	store  Store
	now    func() time.Time
}

// NewManager returns a Manager signing tokens with secret. Sessions live
// for ttl unless revoked earlier.
func NewManager(secret string, ttl time.Duration, store Store) *Manager {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Manager{secret: secret, ttl: ttl, store: store, now: time.Now}
}

// SetClock replaces the time source; tests use it to control expiry.
func (m *Manager) SetClock(now func() time.Time) { m.now = now }

// Issue starts a new session for actor and returns the token to hand to
// the client.
func (m *Manager) Issue(ctx context.Context, actor model.Actor) (utils.SessionToken, error) {
	if actor.IsAnonymous() {
		return utils.SessionToken{}, fmt.Errorf("cannot issue session for anonymous actor: %w", model.ErrInvalidInput)
	}
	now := m.now().UTC()
	sid := uuid.NewString()
	tok, err := utils.NewSessionToken(m.secret, sid, actor.ID, string(actor.Role), m.ttl, now)
	if err != nil {
		return utils.SessionToken{}, fmt.Errorf("sign session: %w", err)
	}
	rec := Record{
		Key:       utils.HashToken(sid),
		Role:      actor.Role,
		SubjectID: actor.ID,
		CreatedAt: now,
		ExpiresAt: tok.Exp,
	}
	if err := m.store.Save(ctx, rec); err != nil {
		return utils.SessionToken{}, fmt.Errorf("save session: %w", err)
	}
	return tok, nil
}

// Resolve turns a raw token into the actor it grants. Missing, malformed,
// expired and revoked tokens all resolve to the anonymous actor; an error
// is returned only when the store itself fails.
func (m *Manager) Resolve(ctx context.Context, raw string) (model.Actor, error) {
	if raw == "" {
		return model.Anonymous(), nil
	}
	claims, err := utils.ParseSessionToken(m.secret, raw, m.now())
	if err != nil {
		return model.Anonymous(), nil
	}
	rec, err := m.store.Lookup(ctx, utils.HashToken(claims.ID))
	if errors.Is(err, ErrNotFound) {
		return model.Anonymous(), nil
	}
	if err != nil {
		return model.Anonymous(), fmt.Errorf("lookup session: %w", err)
	}
	// The record and the claims must agree; a mismatch means the token was
	// not issued for this record.
	if sub, err := strconv.ParseUint(claims.Subject, 10, 64); err != nil || sub != rec.SubjectID || claims.Role != string(rec.Role) {
		return model.Anonymous(), nil
	}
	if !m.now().Before(rec.ExpiresAt) {
		return model.Anonymous(), nil
	}
	return rec.Actor(), nil
}

// Revoke ends the session named by raw. Unknown or invalid tokens are
// ignored so logout is always safe to call.
func (m *Manager) Revoke(ctx context.Context, raw string) error {
	if raw == "" {
		return nil
	}
	claims, err := utils.ParseSessionToken(m.secret, raw, m.now())
	if err != nil {
		return nil
	}
	if err := m.store.Delete(ctx, utils.HashToken(claims.ID)); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// TTL reports the configured session lifetime.
func (m *Manager) TTL() time.Duration { return m.ttl }
