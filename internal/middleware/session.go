package middleware // reusable HTTP middleware for the KidCheck API

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/kidcheck/internal/session"
)

// SessionCookie is the cookie that carries the session token for browsers.
const SessionCookie = "session"

const (
	ctxActor = "actor"
	ctxToken = "session_token"
)

// tokenFrom returns the raw session token from the Authorization header,
// falling back to the session cookie.
func tokenFrom(c echo.Context) string {
	if auth := c.Request().Header.Get(echo.HeaderAuthorization); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	if ck, err := c.Cookie(SessionCookie); err == nil {
		return ck.Value
	}
	return ""
}

// Session resolves the caller's session once per request and stores the
// resulting actor both in the echo context and in the request context.
// Requests without a usable session continue as the anonymous actor; the
// services decide whether that is acceptable.
func Session(m *session.Manager, log *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := tokenFrom(c)
			req := c.Request()
			actor, err := m.Resolve(req.Context(), raw)
			if err != nil {
				log.ErrorContext(req.Context(), "resolve session", slog.Any("error", err))
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error"})
			}
			c.Set(ctxActor, actor)
			c.Set(ctxToken, raw)
			c.SetRequest(req.WithContext(session.WithActor(req.Context(), actor)))
			return next(c)
		}
	}
}
