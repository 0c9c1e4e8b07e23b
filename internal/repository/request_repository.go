package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/kidcheck/internal/model"
)

// RequestRepo provides persistence for check-in/check-out requests. All
// timestamps are stored in UTC. Listing is newest first with the id as a
// tie breaker so rows created in the same instant keep a stable order.
type RequestRepo struct {
	db *sql.DB
}

// NewRequestRepo returns a new RequestRepo bound to the given database.
func NewRequestRepo(db *sql.DB) *RequestRepo { return &RequestRepo{db: db} }

// DB exposes the underlying handle.
func (r *RequestRepo) DB() *sql.DB { return r.db }

const requestColumns = `r.id, r.parent_id, r.child_name, r.child_grade, r.request_type, r.request_message,
	r.status, r.feedback, r.response_time, r.created_at, r.updated_at`

// scanRequest reads requestColumns followed by any extra destinations.
func scanRequest(row interface{ Scan(...any) error }, extra ...any) (model.Request, error) {
	var (
		req      model.Request
		typ      string
		status   string
		feedback sql.NullString
		respTime sql.NullTime
	)
	dest := []any{&req.ID, &req.ParentID, &req.ChildName, &req.ChildGrade, &typ, &req.Message,
		&status, &feedback, &respTime, &req.CreatedAt, &req.UpdatedAt}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return model.Request{}, err
	}
	req.Type = model.RequestType(typ)
	req.Status = model.Status(status)
	if feedback.Valid {
		fb := feedback.String
		req.Feedback = &fb
	}
	if respTime.Valid {
		t := respTime.Time.UTC()
		req.ResponseTime = &t
	}
	return req, nil
}

// CreateRequest inserts req and fills in its id. The parent must exist;
// a dangling parent id is rejected by the foreign key and reported as
// ErrNotFound.
func (r *RequestRepo) CreateRequest(ctx context.Context, req *model.Request) error {
	const q = `INSERT INTO requests
		(parent_id, child_name, child_grade, request_type, request_message, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, req.ParentID, req.ChildName, req.ChildGrade,
		string(req.Type), req.Message, string(req.Status), req.CreatedAt, req.UpdatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("parent %d: %w", req.ParentID, ErrNotFound)
		}
		return fmt.Errorf("insert request: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	req.ID = uint64(id)
	return nil
}

// GetRequest loads a single request by id.
func (r *RequestRepo) GetRequest(ctx context.Context, id uint64) (model.Request, error) {
	req, err := scanRequest(r.db.QueryRowContext(ctx,
		"SELECT "+requestColumns+" FROM requests r WHERE r.id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Request{}, ErrNotFound
	}
	return req, err
}

// ListRequestsByParent returns only the given parent's requests.
func (r *RequestRepo) ListRequestsByParent(ctx context.Context, parentID uint64) ([]model.Request, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+requestColumns+" FROM requests r WHERE r.parent_id = ? ORDER BY r.created_at DESC, r.id DESC",
		parentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Request{}
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

// ListRequests returns every request joined with its owner's name and email.
func (r *RequestRepo) ListRequests(ctx context.Context) ([]model.RequestWithParent, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+requestColumns+`, u.name, u.email
		 FROM requests r JOIN users u ON u.id = r.parent_id
		 ORDER BY r.created_at DESC, r.id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.RequestWithParent{}
	for rows.Next() {
		var rp model.RequestWithParent
		req, err := scanRequest(rows, &rp.ParentName, &rp.ParentEmail)
		if err != nil {
			return nil, err
		}
		rp.Request = req
		out = append(out, rp)
	}
	return out, rows.Err()
}

// ModifyRequest applies fn to the request with the given id while holding
// its row lock, then writes the status fields back. Concurrent calls on
// the same id are serialized by the lock; if the row is deleted first the
// caller sees ErrNotFound. An error from fn aborts without writing.
func (r *RequestRepo) ModifyRequest(ctx context.Context, id uint64, fn func(*model.Request) error) (model.Request, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Request{}, fmt.Errorf("begin: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	req, err := scanRequest(tx.QueryRowContext(ctx,
		"SELECT "+requestColumns+" FROM requests r WHERE r.id = ? FOR UPDATE", id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Request{}, ErrNotFound
	}
	if err != nil {
		return model.Request{}, err
	}
	if err := fn(&req); err != nil {
		return model.Request{}, err
	}

	var feedback sql.NullString
	if req.Feedback != nil {
		feedback = sql.NullString{String: *req.Feedback, Valid: true}
	}
	var respTime sql.NullTime
	if req.ResponseTime != nil {
		respTime = sql.NullTime{Time: *req.ResponseTime, Valid: true}
	}
	const upd = `UPDATE requests SET status = ?, feedback = ?, response_time = ?, updated_at = ? WHERE id = ?`
	if _, err := tx.ExecContext(ctx, upd, string(req.Status), feedback, respTime, req.UpdatedAt, id); err != nil {
		return model.Request{}, fmt.Errorf("update request: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return model.Request{}, fmt.Errorf("commit: %w", err)
	}
	committed = true
	return req, nil
}

// DeleteRequest removes a request unconditionally and reports how many
// rows were affected.
func (r *RequestRepo) DeleteRequest(ctx context.Context, id uint64) (int64, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM requests WHERE id = ?", id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteRequestOwned removes a request only when parentID owns it. A
// mismatch affects zero rows and is not an error.
func (r *RequestRepo) DeleteRequestOwned(ctx context.Context, id, parentID uint64) (int64, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM requests WHERE id = ? AND parent_id = ?", id, parentID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Snapshot reads requests, parents and children inside one read-only
// repeatable-read transaction so the three sets are mutually consistent.
func (r *RequestRepo) Snapshot(ctx context.Context) (model.Snapshot, error) {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("begin snapshot: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	snap := model.Snapshot{Requests: []model.Request{}, Users: []model.User{}, Children: []model.Child{}, TakenAt: time.Now().UTC()}

	rows, err := tx.QueryContext(ctx, "SELECT "+requestColumns+" FROM requests r ORDER BY r.created_at, r.id")
	if err != nil {
		return model.Snapshot{}, err
	}
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			rows.Close()
			return model.Snapshot{}, err
		}
		snap.Requests = append(snap.Requests, req)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return model.Snapshot{}, err
	}

	rows, err = tx.QueryContext(ctx, "SELECT "+userColumns+" FROM users ORDER BY id")
	if err != nil {
		return model.Snapshot{}, err
	}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			rows.Close()
			return model.Snapshot{}, err
		}
		u.PasswordHash = ""
		snap.Users = append(snap.Users, u)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return model.Snapshot{}, err
	}

	rows, err = tx.QueryContext(ctx, "SELECT id, parent_id, name, grade, created_at FROM children ORDER BY id")
	if err != nil {
		return model.Snapshot{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var c model.Child
		if err := rows.Scan(&c.ID, &c.ParentID, &c.Name, &c.Grade, &c.CreatedAt); err != nil {
			return model.Snapshot{}, err
		}
		snap.Children = append(snap.Children, c)
	}
	return snap, rows.Err()
}
