package handler

import (
	"log/slog"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/kidcheck/internal/middleware"
	"github.com/iliyamo/kidcheck/internal/model"
	"github.com/iliyamo/kidcheck/internal/service"
)

type AnalyticsHandler struct {
	responder
	Analytics *service.AnalyticsService
}

func NewAnalyticsHandler(a *service.AnalyticsService, log *slog.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{responder: responder{log: log}, Analytics: a}
}

// Get returns the dashboard aggregates. With ?view=full it returns the
// extended summary used by the offline report.
func (h *AnalyticsHandler) Get(c echo.Context) error {
	msgs := messages{model.ErrForbidden: "Admin access required"}
	ctx := c.Request().Context()
	actor := middleware.ActorFrom(c)
	if c.QueryParam("view") == "full" {
		s, err := h.Analytics.Summary(ctx, actor)
		if err != nil {
			return h.fail(c, err, msgs)
		}
		return ok(c, echo.Map{"analytics": s})
	}
	r, err := h.Analytics.Report(ctx, actor)
	if err != nil {
		return h.fail(c, err, msgs)
	}
	return ok(c, echo.Map{"analytics": r})
}
