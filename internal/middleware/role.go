package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// RequireSession rejects anonymous callers with 401 before the handler
// runs. Role checks stay in the services so that every entry point is
// guarded the same way.
func RequireSession() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if ActorFrom(c).IsAnonymous() {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Not authenticated"})
			}
			return next(c)
		}
	}
}
