package handler

import (
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/kidcheck/internal/middleware"
	"github.com/iliyamo/kidcheck/internal/model"
	"github.com/iliyamo/kidcheck/internal/service"
	"github.com/iliyamo/kidcheck/internal/session"
)

// RequestHandler exposes the request registry.
type RequestHandler struct {
	responder
	Requests *service.RequestService
}

func NewRequestHandler(requests *service.RequestService, log *slog.Logger) *RequestHandler {
	return &RequestHandler{responder: responder{log: log}, Requests: requests}
}

type createRequestReq struct {
	Type           string `json:"type" validate:"required"`
	ChildName      string `json:"childName" validate:"required"`
	ChildGrade     string `json:"childGrade" validate:"required"`
	RequestMessage string `json:"requestMessage"`
}

type updateRequestReq struct {
	Status   string `json:"status" validate:"required"`
	Feedback string `json:"feedback"`
}

// requestView adds the timestamp alias clients expect.
type requestView struct {
	model.RequestWithParent
	Timestamp time.Time `json:"timestamp"`
}

var requestNotFound = messages{model.ErrNotFound: "Request not found"}

func parseID(c echo.Context) (uint64, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid request id: %w", model.ErrInvalidInput)
	}
	return id, nil
}

// List returns the caller's requests (parents) or all requests (admins).
func (h *RequestHandler) List(c echo.Context) error {
	rows, err := h.Requests.List(c.Request().Context(), middleware.ActorFrom(c))
	if err != nil {
		return h.fail(c, err, nil)
	}
	out := make([]requestView, len(rows))
	for i, r := range rows {
		out[i] = requestView{RequestWithParent: r, Timestamp: r.CreatedAt}
	}
	return ok(c, echo.Map{"requests": out})
}

// Create submits a new check-in or check-out request. The role is checked
// before the body so a wrong caller never sees a 400.
func (h *RequestHandler) Create(c echo.Context) error {
	msgs := messages{model.ErrUnauthorized: "Not authenticated as parent"}
	actor := middleware.ActorFrom(c)
	if err := session.Authorize(actor, session.OpCreateRequest); err != nil {
		return h.failParentRoute(c, err, msgs)
	}
	var req createRequestReq
	if err := bind(c, &req); err != nil {
		return h.fail(c, err, nil)
	}
	r, err := h.Requests.Create(c.Request().Context(), actor, service.NewRequestInput{
		ChildName: req.ChildName, ChildGrade: req.ChildGrade, Type: req.Type, Message: req.RequestMessage,
	})
	if err != nil {
		return h.failParentRoute(c, err, msgs)
	}
	return ok(c, echo.Map{"message": "Request created successfully", "request_id": r.ID})
}

// Update approves or rejects a request. Non-admins get 403 whatever the
// id or body.
func (h *RequestHandler) Update(c echo.Context) error {
	msgs := messages{model.ErrForbidden: "Admin access required", model.ErrNotFound: "Request not found"}
	actor := middleware.ActorFrom(c)
	if err := session.Authorize(actor, session.OpUpdateRequestStatus); err != nil {
		return h.fail(c, err, msgs)
	}
	id, err := parseID(c)
	if err != nil {
		return h.fail(c, err, msgs)
	}
	var req updateRequestReq
	if err := bind(c, &req); err != nil {
		return h.fail(c, err, msgs)
	}
	r, err := h.Requests.UpdateStatus(c.Request().Context(), actor, id, req.Status, req.Feedback)
	if err != nil {
		return h.fail(c, err, msgs)
	}
	return ok(c, echo.Map{"message": "Request updated successfully", "request": r})
}

// Delete removes a request. Deleting a missing request, or another
// parent's, succeeds and changes nothing.
func (h *RequestHandler) Delete(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return h.fail(c, err, requestNotFound)
	}
	if err := h.Requests.Delete(c.Request().Context(), middleware.ActorFrom(c), id); err != nil {
		return h.fail(c, err, requestNotFound)
	}
	return ok(c, echo.Map{"message": "Request deleted successfully"})
}
