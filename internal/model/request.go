package model

import (
	"fmt"
	"strings"
	"time"
)

// RequestType is the closed set of request kinds a parent can submit.
type RequestType string

const (
	RequestCheckin  RequestType = "checkin"
	RequestCheckout RequestType = "checkout"
)

// ParseRequestType validates a raw type string. Unknown values are
// rejected rather than stored verbatim.
func ParseRequestType(s string) (RequestType, error) {
	switch t := RequestType(strings.ToLower(strings.TrimSpace(s))); t {
	case RequestCheckin, RequestCheckout:
		return t, nil
	}
	return "", fmt.Errorf("unknown request type %q: %w", s, ErrInvalidInput)
}

// Status is a request's position in its approval lifecycle.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// ParseStatus validates a raw status string.
func ParseStatus(s string) (Status, error) {
	switch st := Status(strings.ToLower(strings.TrimSpace(s))); st {
	case StatusPending, StatusApproved, StatusRejected:
		return st, nil
	}
	return "", fmt.Errorf("unknown status %q: %w", s, ErrInvalidInput)
}

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool { return s == StatusApproved || s == StatusRejected }

// Request is a single check-in or check-out submission. ChildName and
// ChildGrade are copies taken when the request was created, not a live
// reference to the Child row.
//
// Fields:
//
//	ResponseTime – set if and only if Status is not pending.
//	Feedback     – optional admin note attached on approval/rejection.
type Request struct {
	ID           uint64      `json:"id"`
	ParentID     uint64      `json:"parent_id"`
	ChildName    string      `json:"child_name"`
	ChildGrade   string      `json:"child_grade"`
	Type         RequestType `json:"request_type"`
	Message      string      `json:"request_message"`
	Status       Status      `json:"status"`
	Feedback     *string     `json:"feedback"`
	ResponseTime *time.Time  `json:"response_time"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// NewRequest builds a pending request owned by parentID.
func NewRequest(parentID uint64, childName, childGrade string, typ RequestType, message string, now time.Time) Request {
	return Request{
		ParentID:   parentID,
		ChildName:  childName,
		ChildGrade: childGrade,
		Type:       typ,
		Message:    message,
		Status:     StatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Decide moves the request to a terminal status. Allowed moves are
// pending→approved and pending→rejected; re-applying the current terminal
// status succeeds and refreshes feedback and timestamps. Anything else
// fails with ErrInvalidInput and leaves r untouched.
func (r *Request) Decide(to Status, feedback string, now time.Time) error {
	if !to.Terminal() {
		return fmt.Errorf("cannot move request to %q: %w", to, ErrInvalidInput)
	}
	if r.Status != StatusPending && r.Status != to {
		return fmt.Errorf("request %d already %s: %w", r.ID, r.Status, ErrInvalidInput)
	}
	r.Status = to
	if feedback != "" {
		fb := feedback
		r.Feedback = &fb
	} else {
		r.Feedback = nil
	}
	t := now
	r.ResponseTime = &t
	r.UpdatedAt = now
	return nil
}

// OwnedBy reports whether parentID owns the request.
func (r Request) OwnedBy(parentID uint64) bool { return r.ParentID == parentID }

// RequestWithParent is the admin listing row: a request enriched with its
// owner's display fields.
type RequestWithParent struct {
	Request
	ParentName  string `json:"parent_name,omitempty"`
	ParentEmail string `json:"parent_email,omitempty"`
}

// Snapshot is a read-consistent view of stored entities taken at one
// instant, consumed by the analytics aggregator.
type Snapshot struct {
	Requests []Request
	Users    []User
	Children []Child
	TakenAt  time.Time
}
