// Package middlewares holds the gin middleware shared across routes.
package middlewares

import (
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shieldnetlabs/shieldnet_backend/utils"
)

// SessionMiddleware validates the bearer token and attaches the client
// identity to the request context. Auth is opt-in via API_AUTH_REQUIRED;
// the default deployment runs behind a trusted frontend and stays open.
func SessionMiddleware() gin.HandlerFunc {
	required := strings.EqualFold(strings.TrimSpace(os.Getenv("API_AUTH_REQUIRED")), "true")

	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			if required {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
				return
			}
			c.Next()
			return
		}

		parsed, err := utils.JwtValidate(token)
		if err != nil || !parsed.Valid {
			if required {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
				return
			}
			c.Next()
			return
		}
		claims, ok := parsed.Claims.(*utils.JwtCustomClaim)
		if !ok {
			if required {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
				return
			}
			c.Next()
			return
		}

		ctx := utils.SetTokenInContext(c.Request.Context(), token)
		ctx = utils.SetClientIdInContext(ctx, claims.ID)
		ctx = utils.SetClientRoleInContext(ctx, claims.Role)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	auth := c.GetHeader("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	// Legacy clients send the raw token in a "token" header.
	return strings.TrimSpace(c.GetHeader("token"))
}
