package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"gescom-system/internal/utils"
)

const ClaimsKey = "claims"

func JWTAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "missing or malformed authorization header",
			})
			return
		}

		claims, err := utils.ParseToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "invalid or expired token",
			})
			return
		}

		c.Set(ClaimsKey, claims)
		c.Next()
	}
}

// RoleOrAdmin gates a route on one named role. Admin users pass every gate.
func RoleOrAdmin(requiredRole string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := CurrentClaims(c)
		if claims == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "authentication required",
			})
			return
		}

		if claims.IsAdmin {
			c.Next()
			return
		}
		for _, role := range claims.Roles {
			if role == requiredRole {
				c.Next()
				return
			}
		}

		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"success": false,
			"message": "insufficient permissions",
		})
	}
}

func CurrentClaims(c *gin.Context) *utils.Claims {
	value, exists := c.Get(ClaimsKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*utils.Claims)
	if !ok {
		return nil
	}
	return claims
}
