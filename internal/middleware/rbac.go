package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/foundation-api/internal/models"
	appErrors "github.com/noah-isme/foundation-api/pkg/errors"
	"github.com/noah-isme/foundation-api/pkg/response"
)

// RequireRoles only lets callers holding one of roles through. Services still
// apply their own finer-grained checks.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		claims := Claims(c)
		if claims == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if _, ok := allowed[claims.Role]; !ok {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "role "+string(claims.Role)+" may not access this resource"))
			c.Abort()
			return
		}
		c.Next()
	}
}

// Staff allows reviewers and administrators.
func Staff() gin.HandlerFunc {
	return RequireRoles(models.RoleReviewer, models.RoleAdmin, models.RoleSuperAdmin)
}

// Admins allows administrators only.
func Admins() gin.HandlerFunc {
	return RequireRoles(models.RoleAdmin, models.RoleSuperAdmin)
}
