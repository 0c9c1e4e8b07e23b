package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/iliyamo/kidcheck/internal/model"
	"github.com/iliyamo/kidcheck/internal/queue"
	"github.com/iliyamo/kidcheck/internal/session"
)

// NewRequestInput is the payload of RequestService.Create. Type is parsed
// here, so any string may be passed in.
type NewRequestInput struct {
	ChildName  string
	ChildGrade string
	Type       string
	Message    string
}

// RequestService is the request registry: it owns the status lifecycle
// and scopes every parent operation to the parent's own rows.
type RequestService struct {
	store  RequestStore
	events queue.Publisher
	log    *slog.Logger
	now    func() time.Time
}

func NewRequestService(store RequestStore, events queue.Publisher, log *slog.Logger) *RequestService {
	if events == nil {
		events = queue.Nop{}
	}
	return &RequestService{store: store, events: events, log: log, now: time.Now}
}

// SetClock replaces the time source.
func (s *RequestService) SetClock(now func() time.Time) { s.now = now }

func (s *RequestService) publish(ctx context.Context, kind queue.EventKind, r model.Request, actor model.Actor) {
	ev := queue.NewRequestEvent(kind, r, actor, s.now())
	if err := s.events.Publish(ctx, ev); err != nil {
		s.log.Warn("publish request event failed",
			slog.String("kind", string(kind)), slog.Uint64("request_id", r.ID), slog.Any("error", err))
	}
}

// Create stores a new pending request owned by the calling parent.
func (s *RequestService) Create(ctx context.Context, actor model.Actor, in NewRequestInput) (model.Request, error) {
	if err := session.Authorize(actor, session.OpCreateRequest); err != nil {
		return model.Request{}, err
	}
	typ, err := model.ParseRequestType(in.Type)
	if err != nil {
		return model.Request{}, err
	}
	name, grade := strings.TrimSpace(in.ChildName), strings.TrimSpace(in.ChildGrade)
	if name == "" || grade == "" {
		return model.Request{}, fmt.Errorf("child name and grade are required: %w", model.ErrInvalidInput)
	}
	r := model.NewRequest(actor.ID, name, grade, typ, strings.TrimSpace(in.Message), s.now().UTC())
	if err := s.store.CreateRequest(ctx, &r); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			// the session outlived its parent account
			return model.Request{}, fmt.Errorf("parent %d no longer exists: %w", actor.ID, model.ErrUnauthorized)
		}
		return model.Request{}, fmt.Errorf("create request: %w", err)
	}
	s.log.Info("request created", slog.Uint64("request_id", r.ID), slog.String("actor", actor.String()),
		slog.String("type", string(r.Type)))
	s.publish(ctx, queue.EventRequestCreated, r, actor)
	return r, nil
}

// ListForParent returns the parent's own requests, newest first.
func (s *RequestService) ListForParent(ctx context.Context, actor model.Actor) ([]model.Request, error) {
	if err := session.Authorize(actor, session.OpListOwnRequests); err != nil {
		return nil, err
	}
	return s.store.ListRequestsByParent(ctx, actor.ID)
}

// ListAll returns every request with its owner's name and email, newest first.
func (s *RequestService) ListAll(ctx context.Context, actor model.Actor) ([]model.RequestWithParent, error) {
	if err := session.Authorize(actor, session.OpListAllRequests); err != nil {
		return nil, err
	}
	return s.store.ListRequests(ctx)
}

// List dispatches on the actor's role. Parent rows carry no owner fields.
func (s *RequestService) List(ctx context.Context, actor model.Actor) ([]model.RequestWithParent, error) {
	switch {
	case actor.IsAdmin():
		return s.ListAll(ctx, actor)
	case actor.IsParent():
		own, err := s.ListForParent(ctx, actor)
		if err != nil {
			return nil, err
		}
		out := make([]model.RequestWithParent, len(own))
		for i, r := range own {
			out[i] = model.RequestWithParent{Request: r}
		}
		return out, nil
	}
	return nil, fmt.Errorf("list requests: %w", model.ErrUnauthorized)
}

// UpdateStatus moves a request to approved or rejected. Re-applying the
// current terminal status succeeds and refreshes feedback and timestamps.
func (s *RequestService) UpdateStatus(ctx context.Context, actor model.Actor, id uint64, status, feedback string) (model.Request, error) {
	if err := session.Authorize(actor, session.OpUpdateRequestStatus); err != nil {
		return model.Request{}, err
	}
	to, err := model.ParseStatus(status)
	if err != nil {
		return model.Request{}, err
	}
	feedback = strings.TrimSpace(feedback)
	updated, err := s.store.ModifyRequest(ctx, id, func(r *model.Request) error {
		return r.Decide(to, feedback, s.now().UTC())
	})
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.Request{}, fmt.Errorf("request %d: %w", id, model.ErrNotFound)
		}
		return model.Request{}, err
	}
	s.log.Info("request decided", slog.Uint64("request_id", id), slog.String("actor", actor.String()),
		slog.String("status", string(updated.Status)))
	s.publish(ctx, queue.EventRequestDecided, updated, actor)
	return updated, nil
}

// Delete removes a request. Admins delete any request, parents only their
// own. Deleting a missing request, or someone else's, is a successful no-op.
func (s *RequestService) Delete(ctx context.Context, actor model.Actor, id uint64) error {
	if err := session.Authorize(actor, session.OpDeleteRequest); err != nil {
		return err
	}
	var (
		n   int64
		err error
	)
	if actor.IsAdmin() {
		n, err = s.store.DeleteRequest(ctx, id)
	} else {
		n, err = s.store.DeleteRequestOwned(ctx, id, actor.ID)
	}
	if err != nil {
		return fmt.Errorf("delete request: %w", err)
	}
	if n > 0 {
		s.log.Info("request deleted", slog.Uint64("request_id", id), slog.String("actor", actor.String()))
	}
	return nil
}
