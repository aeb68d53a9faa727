package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/newsbrief/core/internal/pkg/response"
)

// AdminSecret returns a middleware that checks the ?secret= query parameter
// against the admin shared secret. The comparison is ordinary equality: the
// secret is high-entropy and the endpoint surface is small, so a timing
// side-channel is not a practical concern here (unlike unsubscribe links,
// whose signatures are checked in constant time).
func AdminSecret(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" || c.Query("secret") != secret {
			response.Unauthorized(c)
			return
		}
		c.Next()
	}
}

// AdminBearer returns a middleware that checks the Authorization header for
// a Bearer token equal to the admin shared secret.
func AdminBearer(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" || normalizeBearer(c.GetHeader("Authorization")) != secret {
			response.Unauthorized(c)
			return
		}
		c.Next()
	}
}

// normalizeBearer trims spaces and strips the Bearer prefix.
func normalizeBearer(raw string) string {
	tok := strings.TrimSpace(raw)
	if tok == "" {
		return ""
	}
	if strings.HasPrefix(strings.ToLower(tok), "bearer ") {
		return strings.TrimSpace(tok[7:])
	}
	return tok
}
