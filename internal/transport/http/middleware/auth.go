package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Gladiston-Porto/GladPros-sub002/internal/infra/security"
	"github.com/Gladiston-Porto/GladPros-sub002/internal/usecase"
)

// Context keys populated by RequireAuth.
const (
	AccountIDKey = "account_id"
	RoleKey      = "account_role"
	StatusKey    = "account_status"
	ClaimsKey    = "claims"
)

// Identity headers forwarded to proxied application services. Whatever the
// client sent under these names is stripped first.
const (
	HeaderUserID     = "X-User-Id"
	HeaderUserRole   = "X-User-Role"
	HeaderUserStatus = "X-User-Status"
)

// BearerCookieName is the cookie fallback consulted when no Authorization
// header is present.
const BearerCookieName = "gladpros_token"

// ErrorResponse matches the handlers.ErrorResponse structure.
type ErrorResponse struct {
	Error string `json:"error"`
}

// RequireAuth validates the bearer token and stamps the verified identity
// onto the request. Tokens whose embedded version fell behind the account's
// live counter are rejected as revoked.
func RequireAuth(tokens *usecase.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := BearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "missing bearer token"})
			return
		}

		claims, err := tokens.Verify(c.Request.Context(), token)
		if err != nil {
			switch {
			case errors.Is(err, security.ErrExpiredBearerToken):
				c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "token expired"})
			case errors.Is(err, usecase.ErrTokenRevoked):
				c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "token revoked"})
			case errors.Is(err, security.ErrInvalidBearerToken):
				c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid token"})
			default:
				c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{Error: "authentication failed"})
			}
			return
		}

		c.Set(AccountIDKey, claims.Subject)
		c.Set(RoleKey, claims.Role)
		c.Set(StatusKey, claims.Status)
		c.Set(ClaimsKey, claims)

		// Clients must not be able to smuggle identity headers past the
		// middleware.
		c.Request.Header.Del(HeaderUserID)
		c.Request.Header.Del(HeaderUserRole)
		c.Request.Header.Del(HeaderUserStatus)
		c.Request.Header.Set(HeaderUserID, claims.Subject)
		c.Request.Header.Set(HeaderUserRole, claims.Role)
		c.Request.Header.Set(HeaderUserStatus, claims.Status)

		c.Next()
	}
}

// RequireRole allows the request through when the authenticated account holds
// any of the listed roles.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		roleVal, exists := c.Get(RoleKey)
		if !exists {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "authentication required"})
			return
		}

		role, _ := roleVal.(string)
		for _, allowed := range roles {
			if strings.EqualFold(role, allowed) {
				c.Next()
				return
			}
		}

		c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{Error: "insufficient permissions"})
	}
}

// AccountID returns the authenticated account identifier, if any.
func AccountID(c *gin.Context) string {
	id, _ := c.Get(AccountIDKey)
	s, _ := id.(string)
	return s
}

// BearerToken extracts the bearer from the Authorization header, falling
// back to the token cookie.
func BearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}

	cookie, err := c.Cookie(BearerCookieName)
	if err != nil {
		return ""
	}
	return cookie
}
