// Package web assembles the gin engine: operational endpoints, the auth API
// and the gated page routes.
package web

import (
	"net/http"
	"sync/atomic"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	logicv1 "github.com/duynhne/cms-service/internal/logic/v1"
	v1 "github.com/duynhne/cms-service/internal/web/v1"
	"github.com/duynhne/cms-service/middleware"
)

// RouterConfig carries what NewRouter needs beyond the auth service.
type RouterConfig struct {
	ServiceName  string
	Tracing      bool
	SecureCookie bool
	// ShuttingDown flips /ready to 503 once set. May be nil.
	ShuttingDown *atomic.Bool
}

// NewRouter builds the HTTP handler for the service.
func NewRouter(auth *logicv1.AuthService, cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.ContextWithFallback = true

	if cfg.Tracing {
		r.Use(middleware.TracingMiddleware(cfg.ServiceName))
	}
	r.Use(
		middleware.LoggingMiddleware(),
		middleware.RecoveryMiddleware(),
		middleware.PrometheusMiddleware(),
		middleware.SessionGate(auth, middleware.WithBypassPrefixes("/health", "/ready", "/metrics")),
	)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Returns 503 once shutdown has started, to drain traffic before HTTP shutdown.
	r.GET("/ready", func(c *gin.Context) {
		if cfg.ShuttingDown != nil && cfg.ShuttingDown.Load() {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "shutting_down"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1.NewHandler(auth, v1.WithSecureCookie(cfg.SecureCookie)).RegisterRoutes(r.Group("/api"))
	v1.Pages{}.RegisterRoutes(r)

	return r
}
