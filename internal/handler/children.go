package handler

import (
	"log/slog"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/kidcheck/internal/middleware"
	"github.com/iliyamo/kidcheck/internal/model"
	"github.com/iliyamo/kidcheck/internal/service"
	"github.com/iliyamo/kidcheck/internal/session"
)

type ChildHandler struct {
	responder
	Creds *service.CredentialService
}

func NewChildHandler(creds *service.CredentialService, log *slog.Logger) *ChildHandler {
	return &ChildHandler{responder: responder{log: log}, Creds: creds}
}

type addChildReq struct {
	Name  string `json:"name" validate:"required"`
	Grade string `json:"grade" validate:"required"`
}

var parentOnly = messages{model.ErrUnauthorized: "Not authenticated as parent"}

func (h *ChildHandler) List(c echo.Context) error {
	kids, err := h.Creds.ListChildren(c.Request().Context(), middleware.ActorFrom(c))
	if err != nil {
		return h.failParentRoute(c, err, parentOnly)
	}
	return ok(c, echo.Map{"children": kids})
}

func (h *ChildHandler) Add(c echo.Context) error {
	// role is checked before the body so a wrong caller never sees a 400
	actor := middleware.ActorFrom(c)
	if err := session.Authorize(actor, session.OpManageChildren); err != nil {
		return h.failParentRoute(c, err, parentOnly)
	}
	var req addChildReq
	if err := bind(c, &req); err != nil {
		return h.fail(c, err, nil)
	}
	child, err := h.Creds.AddChild(c.Request().Context(), actor, req.Name, req.Grade)
	if err != nil {
		return h.failParentRoute(c, err, parentOnly)
	}
	return ok(c, echo.Map{"message": "Child added successfully", "child_id": child.ID, "child": child})
}
