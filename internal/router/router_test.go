package router

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/project-camp/internal/handler"
)

func newApp() *echo.Echo {
	e := echo.New()
	e.HTTPErrorHandler = handler.HTTPErrorHandler
	RegisterRoutes(e)
	return e
}

func TestHealthCheck(t *testing.T) {
	e := newApp()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/health-check", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var env map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, true, env["success"])
	assert.Equal(t, "API is healthy", env["message"])
	assert.Equal(t, float64(http.StatusOK), env["statusCode"])
}

func TestWelcome(t *testing.T) {
	e := newApp()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Welcome to Project management API", rec.Body.String())
}

func TestUnknownRouteUsesErrorEnvelope(t *testing.T) {
	e := newApp()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/nope", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	var env map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, false, env["success"])
	assert.Equal(t, float64(http.StatusNotFound), env["statusCode"])
	assert.NotNil(t, env["errors"])
}
