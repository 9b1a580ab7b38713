package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/aura-survey/backend/internal/auth"
	"github.com/aura-survey/backend/pkg/response"
)

const (
	// ContextUserID is the key for the editor's user ID in gin context.
	ContextUserID = "user_id"
	// ContextUserRole is the key for the editor's role in gin context.
	ContextUserRole = "user_role"
	// ContextUserEmail is the key for the editor's email in gin context.
	ContextUserEmail = "user_email"
)

// TokenValidator parses bearer tokens.
type TokenValidator interface {
	Validate(token string) (*auth.Claims, error)
}

// JWT returns a middleware that validates the bearer token and sets its claims in context.
func JWT(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Unauthorized(c, "missing authorization header")
			c.Abort()
			return
		}
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
			response.Unauthorized(c, "invalid authorization header")
			c.Abort()
			return
		}
		claims, err := validator.Validate(token)
		if err != nil {
			response.Unauthorized(c, "invalid or expired token")
			c.Abort()
			return
		}
		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextUserRole, claims.Role)
		c.Set(ContextUserEmail, claims.Email)
		c.Next()
	}
}
