package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// authFailure describes why a bearer token was rejected.
type authFailure struct {
	message string
	code    string
}

// checkBearer validates the Authorization header against key.
// Returns nil when the header carries the key.
func checkBearer(c *gin.Context, key string) *authFailure {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return &authFailure{"Authorization header required", "AUTH_REQUIRED"}
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return &authFailure{"Invalid authorization format. Use: Bearer <admin_key>", "AUTH_INVALID_FORMAT"}
	}

	// Constant-time comparison to prevent timing attacks
	if subtle.ConstantTimeCompare([]byte(strings.TrimSpace(parts[1])), []byte(key)) != 1 {
		return &authFailure{"Invalid admin key", "AUTH_INVALID_KEY"}
	}
	return nil
}

// AdminKeyAuth guards the cache administration routes.
// An empty key disables the check so local runs need no setup.
func AdminKeyAuth(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if key == "" {
			c.Next()
			return
		}

		if fail := checkBearer(c, key); fail != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": fail.message,
				"code":  fail.code,
			})
			return
		}

		c.Next()
	}
}

// VerifyAdminKey lets an operator check a stored key without touching the cache.
func VerifyAdminKey(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if key == "" {
			c.JSON(http.StatusOK, gin.H{
				"valid":        true,
				"auth_enabled": false,
				"message":      "Authentication is not configured",
			})
			return
		}

		if fail := checkBearer(c, key); fail != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"valid": false,
				"error": fail.message,
				"code":  fail.code,
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"valid":        true,
			"auth_enabled": true,
		})
	}
}

// AuthStatus reports whether admin routes require a key.
func AuthStatus(key string) gin.HandlerFunc {
	enabled := key != ""
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"auth_enabled": enabled})
	}
}
