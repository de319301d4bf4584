package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Every endpoint answers with the same JSON envelope.  Success responses
// carry data under "data"; failures carry an "errors" list instead.  The
// statusCode field always mirrors the HTTP status.

type successEnvelope struct {
	StatusCode int         `json:"statusCode"`
	Data       interface{} `json:"data"`
	Message    string      `json:"message"`
	Success    bool        `json:"success"`
}

type errorEnvelope struct {
	StatusCode int      `json:"statusCode"`
	Message    string   `json:"message"`
	Success    bool     `json:"success"`
	Errors     []string `json:"errors"`
}

// respond writes a success envelope with the given status.
func respond(c echo.Context, status int, data interface{}, message string) error {
	return c.JSON(status, successEnvelope{
		StatusCode: status,
		Data:       data,
		Message:    message,
		Success:    true,
	})
}

// fail writes an error envelope with the given status.
func fail(c echo.Context, status int, message string, errs ...string) error {
	if errs == nil {
		errs = []string{}
	}
	return c.JSON(status, errorEnvelope{
		StatusCode: status,
		Message:    message,
		Success:    false,
		Errors:     errs,
	})
}

// HTTPErrorHandler converts anything a handler did not translate itself
// (panics recovered by echo, unknown routes, unexpected errors) into the
// error envelope.  Internals are never leaked: anything that is not an
// *echo.HTTPError becomes a plain 500.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	status := http.StatusInternalServerError
	message := "Internal server error"
	if he, ok := err.(*echo.HTTPError); ok {
		status = he.Code
		if m, ok := he.Message.(string); ok {
			message = m
		}
	}
	_ = fail(c, status, message)
}
