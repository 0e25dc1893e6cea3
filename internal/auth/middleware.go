package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const ctxDeviceClaims = "miner_device_claims"

// RequireToken returns a Gin middleware that enforces a valid device Bearer
// token. With a nil issuer it lets every request through.
func RequireToken(tokens *TokenIssuer) gin.HandlerFunc {
	if tokens == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Bearer device token required",
			})
			return
		}

		claims, err := tokens.Verify(strings.TrimPrefix(authHeader, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "invalid device token: " + err.Error(),
			})
			return
		}

		c.Set(ctxDeviceClaims, claims)
		c.Next()
	}
}

// ClaimsFromContext returns the device claims set by RequireToken.
func ClaimsFromContext(c *gin.Context) (*DeviceClaims, bool) {
	v, ok := c.Get(ctxDeviceClaims)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*DeviceClaims)
	return claims, ok
}
