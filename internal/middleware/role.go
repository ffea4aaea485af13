package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/gatherly/backend/pkg/response"
)

// RequireRole rejects callers whose JWT role is not in the allowed set.
// Runs after JWT(), so a missing role claim means a broken token, not an
// anonymous caller.
func RequireRole(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		role, ok := c.Get(ContextUserRole)
		if !ok {
			response.Unauthorized(c, "missing user context")
			c.Abort()
			return
		}
		roleStr, _ := role.(string)
		if _, ok := allowed[roleStr]; !ok {
			response.Forbidden(c, "insufficient permissions")
			c.Abort()
			return
		}
		c.Next()
	}
}
