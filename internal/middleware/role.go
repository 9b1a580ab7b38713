package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/aura-survey/backend/pkg/response"
)

// RequireRole returns a middleware that allows only the given roles.
// Survey authoring is limited to EDITOR_ROLES.
func RequireRole(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		role := c.GetString(ContextUserRole)
		if role == "" {
			response.Unauthorized(c, "missing user context")
			c.Abort()
			return
		}
		if _, ok := allowed[role]; !ok {
			response.Forbidden(c, "insufficient permissions")
			c.Abort()
			return
		}
		c.Next()
	}
}
