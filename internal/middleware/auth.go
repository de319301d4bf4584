package middleware // middleware provides shared request processing for handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/project-camp/internal/model"
	"github.com/iliyamo/project-camp/internal/repository"
	"github.com/iliyamo/project-camp/internal/utils"
)

// AccessTokenCookie is the cookie the access token travels in.  The
// Authorization header is accepted as a fallback for non-browser clients.
const AccessTokenCookie = "accessToken"

// UserLoader is the read-only user lookup the guard needs.  *repository.UserRepo
// satisfies it; tests supply an in-memory fake.
type UserLoader interface {
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

// Auth returns an Echo middleware that validates the access token and
// resolves it to a user identity.  On success the sanitized user is stored
// in the context under "user" (and the numeric ID under "user_id") for
// downstream handlers.  The guard never mutates any state.
//
// Failures are normalized: a missing, malformed, expired or badly signed
// token all answer 401 with the same message so the response never reveals
// which check failed.  A token whose user no longer exists answers 404.
func Auth(secret string, users UserLoader) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := tokenFromRequest(c)
			if raw == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Access token is missing")
			}

			claims, err := utils.ParseBearerToken(raw, secret)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid or expired access token")
			}
			uid, err := utils.SubjectID(claims)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid or expired access token")
			}

			ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
			defer cancel()

			u, err := users.GetByID(ctx, uid)
			if err != nil {
				if err == repository.ErrUserNotFound {
					return echo.NewHTTPError(http.StatusNotFound, "User not found")
				}
				return err
			}

			c.Set("user", u.Sanitized())
			c.Set("user_id", u.ID)
			return next(c)
		}
	}
}

// tokenFromRequest pulls the access token from the cookie, falling back to
// a Bearer Authorization header.
func tokenFromRequest(c echo.Context) string {
	if ck, err := c.Cookie(AccessTokenCookie); err == nil && ck.Value != "" {
		return ck.Value
	}
	auth := c.Request().Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}
