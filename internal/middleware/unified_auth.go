package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// AuthConfig holds inbound authentication configuration.
type AuthConfig struct {
	// RequiredKey is the expected API key; empty disables auth.
	RequiredKey string
}

// UnifiedAuth accepts the pass-through key from any of the client-SDK
// conventions:
//   - Authorization: Bearer <token>
//   - x-api-key: <token>
//   - x-goog-api-key: <token>
//   - ?key=<token>
func UnifiedAuth(cfg AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.RequiredKey == "" {
			c.Next()
			return
		}

		var providedKey string

		authHeader := c.GetHeader("Authorization")
		if authHeader != "" {
			if strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
				providedKey = strings.TrimSpace(authHeader[7:])
			} else {
				providedKey = authHeader
			}
		}
		if providedKey == "" {
			providedKey = c.GetHeader("x-api-key")
		}
		if providedKey == "" {
			providedKey = c.GetHeader("x-goog-api-key")
		}
		if providedKey == "" {
			providedKey = c.Query("key")
		}

		if providedKey == "" {
			respondUnauthorized(c, "API key not provided")
			return
		}
		if providedKey != cfg.RequiredKey {
			respondUnauthorized(c, "Invalid API key")
			return
		}

		c.Set("api_key", providedKey)
		c.Next()
	}
}

func respondUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": gin.H{
			"message": message,
			"type":    "invalid_request_error",
			"code":    "invalid_api_key",
		},
	})
}
