package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const previewOriginSuffix = ".lovable.app"

// CORS reflects allow-listed origins and answers preflight requests. Preview deployments on
// lovable.app are always allowed.
func CORS(allowedOrigins []string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allowed[strings.TrimRight(origin, "/")] = true
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" && (allowed[origin] || isPreviewOrigin(origin)) {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Vary", "Origin")
		}

		if c.Request.Method == http.MethodOptions {
			c.Header("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
			c.Header("Access-Control-Max-Age", "86400")
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func isPreviewOrigin(origin string) bool {
	return strings.HasPrefix(origin, "https://") && strings.HasSuffix(origin, previewOriginSuffix)
}
