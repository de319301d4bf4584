package handler // declare the package name; contains HTTP handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Health is a simple health-check endpoint used by load balancers and
// monitoring systems to verify that the service is running.
func Health(c echo.Context) error {
	return respond(c, http.StatusOK, nil, "API is healthy")
}

// Welcome answers the bare root path with a plain text greeting.
func Welcome(c echo.Context) error {
	return c.String(http.StatusOK, "Welcome to Project management API")
}
