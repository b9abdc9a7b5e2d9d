// auth_middleware.go
package middleware

import (
	"net/http"
	"strings"

	"petshop-order-service/internal/model"
	"petshop-order-service/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	CtxUserID  = "userID"
	CtxUserRol = "userRol"
)

// Middleware que valida el token y guarda la info del usuario en el contexto
func AuthMiddleware(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "falta el header Authorization"})
			return
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		token = strings.TrimSpace(token)
		actor, err := authService.ValidateToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}

		c.Set(CtxUserID, actor.ID)
		c.Set(CtxUserRol, string(actor.Rol))
		c.Next()
	}
}

// ActorFrom lee el actor que dejó AuthMiddleware.
func ActorFrom(c *gin.Context) model.Actor {
	return model.Actor{
		ID:  c.GetString(CtxUserID),
		Rol: model.Rol(c.GetString(CtxUserRol)),
	}
}
