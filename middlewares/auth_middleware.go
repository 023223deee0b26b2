package middlewares

import (
	"net/http"
	"strings"

	"github.com/royamoon/FoodLens/utils"

	"github.com/gin-gonic/gin"
)

// AuthMiddleware verifies the bearer token and exposes the caller's
// identity plus the raw token (forwarded to services as the caller's
// authorization context) on the gin context.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		claims, err := utils.ParseToken(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		// Refresh tokens are not bearer credentials.
		if typ, _ := claims["typ"].(string); typ != "access" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		userID, _ := claims["sub"].(string)
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid claims"})
			return
		}
		email, _ := claims["email"].(string)

		c.Set("userID", userID)
		c.Set("email", email)
		c.Set("accessToken", tokenString)

		c.Next()
	}
}
