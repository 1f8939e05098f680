package middleware

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/opencircle/backend/pkg/apperrors"
	"github.com/opencircle/backend/pkg/response"
)

const (
	// SessionCookie is the cookie carrying the session token.
	SessionCookie = "session_token"
	// ContextAccountUUID is the gin context key for the resolved caller UUID.
	ContextAccountUUID = "account_uuid"
)

// SessionResolver resolves a session token to an account UUID.
type SessionResolver interface {
	Resolve(ctx context.Context, token string) (string, error)
}

// SessionAuth returns a middleware that authenticates the caller from the
// session cookie. Missing, invalid and expired tokens are reported
// distinctly, all as 401.
func SessionAuth(resolver SessionResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(SessionCookie)
		if err != nil || token == "" {
			response.Unauthorized(c, "session token missing")
			c.Abort()
			return
		}
		accountUUID, err := resolver.Resolve(c.Request.Context(), token)
		if err != nil {
			switch {
			case errors.Is(err, apperrors.ErrExpired):
				response.Unauthorized(c, "session expired")
			case errors.Is(err, apperrors.ErrInvalidToken), errors.Is(err, apperrors.ErrNotFound):
				response.Unauthorized(c, "invalid session token")
			default:
				response.Internal(c, "session lookup failed")
			}
			c.Abort()
			return
		}
		c.Set(ContextAccountUUID, accountUUID)
		c.Next()
	}
}

// AccountUUID returns the authenticated caller's UUID from the gin context.
func AccountUUID(c *gin.Context) string {
	v, _ := c.Get(ContextAccountUUID)
	s, _ := v.(string)
	return s
}
