package middleware

import (
	"CourseMarket/internal/models"
	"net/http"

	"github.com/gin-gonic/gin"
)

// RequireRoles lets the request through when the caller holds any of allowed. It must run after AuthMiddleware.
func RequireRoles(allowed ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		roles, ok := c.Get(ClientRolesCtx)
		if !ok {
			abort(c, http.StatusForbidden, "roles not found")
			return
		}
		held, ok := roles.([]string)
		if !ok {
			abort(c, http.StatusInternalServerError, "invalid roles format")
			return
		}
		if !models.HasAnyRole(held, allowed...) {
			abort(c, http.StatusForbidden, "insufficient permissions")
			return
		}
		c.Next()
	}
}
