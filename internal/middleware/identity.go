package middleware

// identity.go resolves the holder identity every reservation operation is
// scoped to.  An authenticated request (see jwt.go) uses the token
// subject; anonymous visitors get a transient per-session id minted into a
// cookie, so guests can select seats before signing in.

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const (
	holderContextKey = "holder_id"
	sessionCookie    = "seat_session"
)

// HolderIdentity populates the holder id for downstream handlers: the JWT
// subject when present, else the session cookie, else a freshly minted
// uuid written back as a cookie.
func HolderIdentity() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if sub := authenticatedSubject(c); sub != "" {
				c.Set(holderContextKey, sub)
				return next(c)
			}
			if ck, err := c.Cookie(sessionCookie); err == nil && ck.Value != "" {
				c.Set(holderContextKey, ck.Value)
				return next(c)
			}
			id := uuid.NewString()
			c.SetCookie(&http.Cookie{
				Name:     sessionCookie,
				Value:    id,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
				Expires:  time.Now().Add(24 * time.Hour),
			})
			c.Set(holderContextKey, id)
			return next(c)
		}
	}
}

// HolderID extracts the holder id placed by HolderIdentity.  Empty when
// the middleware did not run.
func HolderID(c echo.Context) string {
	if v, ok := c.Get(holderContextKey).(string); ok {
		return v
	}
	return ""
}
