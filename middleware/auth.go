package middleware

import (
	"net/http"
	"strings"

	"refripartes-backend/cache"
	"refripartes-backend/models"
	"refripartes-backend/utils"

	"github.com/gin-gonic/gin"
)

// GuestIDHeader carries the anonymous visitor's cart ID.
const GuestIDHeader = "X-Guest-ID"

func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Se requiere la cabecera Authorization"})
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Formato de cabecera Authorization inválido"})
			c.Abort()
			return
		}

		claims, err := utils.ValidateToken(parts[1])
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Token inválido o caducado"})
			c.Abort()
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("user_role", claims.Role)
		c.Next()
	}
}

func AdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		role, exists := c.Get("user_role")
		if !exists || role != models.RoleAdmin {
			c.JSON(http.StatusForbidden, gin.H{"error": "Se requiere acceso de administrador"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// GuestMiddleware requires a well-formed X-Guest-ID header and exposes it as "guest_id".
func GuestMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		guestID := c.GetHeader(GuestIDHeader)
		if !cache.ValidGuestID(guestID) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Cabecera X-Guest-ID ausente o inválida"})
			c.Abort()
			return
		}
		c.Set("guest_id", guestID)
		c.Next()
	}
}
