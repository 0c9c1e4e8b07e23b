// Package queue carries request lifecycle events over RabbitMQ: a publisher
// used by the request registry and a background consumer that appends each
// event to an audit log.
package queue

import (
	"time"

	"github.com/iliyamo/kidcheck/internal/model"
)

// RequestEventsQueue is the durable queue all request events go to.
const RequestEventsQueue = "kidcheck.requests"

// EventKind distinguishes the two lifecycle events.
type EventKind string

const (
	EventRequestCreated EventKind = "request.created"
	EventRequestDecided EventKind = "request.decided"
)

// RequestEvent is published after a request is created or decided. It holds
// enough for the audit consumer to write a line without reading the database.
type RequestEvent struct {
	Kind        EventKind         `json:"kind"`
	RequestID   uint64            `json:"request_id"`
	ParentID    uint64            `json:"parent_id"`
	Actor       string            `json:"actor"`
	ChildName   string            `json:"child_name"`
	RequestType model.RequestType `json:"request_type"`
	Status      model.Status      `json:"status"`
	Feedback    string            `json:"feedback,omitempty"`
	OccurredAt  string            `json:"occurred_at"`
}

// NewRequestEvent snapshots r as an event of the given kind.
func NewRequestEvent(kind EventKind, r model.Request, actor model.Actor, at time.Time) RequestEvent {
	ev := RequestEvent{
		Kind:        kind,
		RequestID:   r.ID,
		ParentID:    r.ParentID,
		Actor:       actor.String(),
		ChildName:   r.ChildName,
		RequestType: r.Type,
		Status:      r.Status,
		OccurredAt:  at.UTC().Format(time.RFC3339),
	}
	if r.Feedback != nil {
		ev.Feedback = *r.Feedback
	}
	return ev
}
