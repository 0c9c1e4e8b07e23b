package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/kidcheck/internal/model"
)

// ActorFrom returns the actor resolved by Session, or the anonymous actor
// when the middleware did not run.
func ActorFrom(c echo.Context) model.Actor {
	if a, ok := c.Get(ctxActor).(model.Actor); ok {
		return a
	}
	return model.Anonymous()
}

// TokenFrom returns the raw token Session saw, if any.
func TokenFrom(c echo.Context) string {
	s, _ := c.Get(ctxToken).(string)
	return s
}

// actorKey identifies the caller in rate-limit and cache keys.
func actorKey(c echo.Context) string {
	a := ActorFrom(c)
	if a.IsAnonymous() {
		return "anon"
	}
	return a.String()
}
