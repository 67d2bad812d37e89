package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/Gladiston-Porto/GladPros-sub002/internal/usecase"
)

// SessionCookieName is the cookie carrying the opaque server-side session
// token issued at login.
const SessionCookieName = "gladpros_session"

// SessionActivity refreshes the request's session row. Resolving the cookie
// token stamps the session's last activity, so rows held by active clients
// survive the idle sweep. Requests without the cookie, and stale or unknown
// tokens, pass through untouched; the bearer check stays the sole gate.
func SessionActivity(sessions *usecase.SessionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token, err := c.Cookie(SessionCookieName); err == nil && token != "" {
			_, _ = sessions.Resolve(c.Request.Context(), token)
		}
		c.Next()
	}
}
