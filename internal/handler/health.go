package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// Health reports liveness for load balancers and monitoring.
func Health(version string) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{
			"status":    "healthy",
			"timestamp": time.Now().UTC(),
			"version":   version,
		})
	}
}
