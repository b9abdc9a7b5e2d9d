// admin_only.go
package middleware

import (
	"net/http"
	"slices"

	"petshop-order-service/internal/model"

	"github.com/gin-gonic/gin"
)

// RequireRoles deja pasar solo a los roles indicados. Va después de AuthMiddleware.
func RequireRoles(roles ...model.Rol) gin.HandlerFunc {
	return func(c *gin.Context) {
		rol := model.Rol(c.GetString(CtxUserRol))
		if !slices.Contains(roles, rol) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "no tiene permisos para esta operación"})
			return
		}
		c.Next()
	}
}

func AdminOnly() gin.HandlerFunc {
	return RequireRoles(model.RolAdmin)
}

func StaffOnly() gin.HandlerFunc {
	return RequireRoles(model.RolEmpleado, model.RolAdmin)
}
