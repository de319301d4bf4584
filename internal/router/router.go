package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/project-camp/internal/handler"
)

// RegisterRoutes registers routes that do not require authentication on the
// provided Echo instance: the root greeting and the health check.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/", handler.Welcome)
	// Used by load balancers and monitoring systems to verify the service
	// is up and running.
	e.GET("/api/v1/health-check", handler.Health)
}

// RegisterAuth registers all authentication-related routes.  Open
// operations (register, login, token redemption) live directly under
// /api/v1/auth; logout and current-user additionally run the supplied
// guard middleware.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, guard echo.MiddlewareFunc) {
	g := e.Group("/api/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	// The raw one-time token arrives as a path segment, exactly as embedded
	// in the emailed link.
	g.GET("/verify-email/:verificationToken", a.VerifyEmail)
	g.GET("/resend-email-verification", a.ResendEmailVerification)
	g.POST("/refresh-token", a.RefreshToken)
	g.POST("/forget-password", a.ForgetPassword)
	g.GET("/reset-password/:resetToken", a.ResetPassword)

	g.POST("/logout", a.Logout, guard)
	g.POST("/current-user", a.CurrentUser, guard)
}

// RegisterProject registers project endpoints.  All of them require a valid
// access token.
func RegisterProject(e *echo.Echo, p *handler.ProjectHandler, guard echo.MiddlewareFunc) {
	g := e.Group("/api/v1/project", guard)
	g.POST("", p.Create)
}
