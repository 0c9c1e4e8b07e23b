package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/kidcheck/internal/model"
	"github.com/iliyamo/kidcheck/internal/session"
)

// SessionRepo persists session records in MySQL. It is the fallback
// session.Store when Redis is not configured. Only the SHA-256 digest of a
// session id is stored.
type SessionRepo struct{ DB *sql.DB }

func NewSessionRepo(db *sql.DB) *SessionRepo { return &SessionRepo{DB: db} }

// Save inserts a session row.
func (r *SessionRepo) Save(ctx context.Context, rec session.Record) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO sessions (token_hash, role, subject_id, created_at, expires_at) VALUES (?,?,?,?,?)",
		rec.Key, string(rec.Role), rec.SubjectID, rec.CreatedAt, rec.ExpiresAt)
	return err
}

// Lookup returns a non-revoked, non-expired session.
func (r *SessionRepo) Lookup(ctx context.Context, key string) (session.Record, error) {
	var (
		rec       session.Record
		role      string
		revokedAt sql.NullTime
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT token_hash, role, subject_id, created_at, expires_at, revoked_at FROM sessions WHERE token_hash=? LIMIT 1",
		key).Scan(&rec.Key, &role, &rec.SubjectID, &rec.CreatedAt, &rec.ExpiresAt, &revokedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return session.Record{}, session.ErrNotFound
	}
	if err != nil {
		return session.Record{}, err
	}
	if revokedAt.Valid || !time.Now().UTC().Before(rec.ExpiresAt) {
		return session.Record{}, session.ErrNotFound
	}
	rec.Role = model.Role(role)
	return rec, nil
}

// Delete marks a session as revoked.
func (r *SessionRepo) Delete(ctx context.Context, key string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE sessions SET revoked_at=UTC_TIMESTAMP(6) WHERE token_hash=? AND revoked_at IS NULL", key)
	return err
}

// PurgeExpired deletes sessions that expired before cutoff.
func (r *SessionRepo) PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM sessions WHERE expires_at < ?", cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
