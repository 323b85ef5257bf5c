package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	pkgzerolog "github.com/duynhne/cms-service/pkg/logger/zerolog"
)

// RecoveryMiddleware turns a handler panic into a JSON 500 and logs it.
func RecoveryMiddleware() gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, recovered any) {
		pkgzerolog.FromContext(c.Request.Context()).Error().
			Interface("panic", recovered).
			Str("path", c.Request.URL.Path).
			Msg("Recovered from panic")
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Internal server error",
		})
	})
}
