package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	authgin "github.com/pilab-dev/homefin-auth/api/gin"
	"github.com/pilab-dev/homefin-auth/config"
	"github.com/pilab-dev/homefin-auth/log"
	"github.com/pilab-dev/homefin-auth/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// HealthCheck reports whether a backing store is reachable.
type HealthCheck func(ctx context.Context) error

// NewRouter builds the gin engine: recovery, request logging, tracing,
// security headers, health, metrics and the auth API.
func NewRouter(cfg *config.ServerConfig, appLogger log.Logger, api *authgin.AuthAPI, gatherer prometheus.Gatherer, checks ...HealthCheck) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(appLogger))
	router.Use(otelgin.Middleware(cfg.OtelServiceName))
	router.Use(middleware.SecurityHeaders())

	router.GET("/healthz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		for _, check := range checks {
			if err := check(ctx); err != nil {
				appLogger.Warn(ctx, "Health check failed", map[string]interface{}{"error": err.Error()})
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	api.RegisterRoutes(router)
	return router
}

// requestLogger logs one line per request through appLogger.
func requestLogger(appLogger log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := map[string]interface{}{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"latency":    time.Since(start).String(),
			"ip":         c.ClientIP(),
			"user_agent": c.Request.UserAgent(),
		}
		if id, ok := middleware.GetIdentity(c); ok {
			fields["user_id"] = id.UserID
		}
		if len(c.Errors) > 0 {
			appLogger.Error(c.Request.Context(), c.Errors.String(), c.Errors.Last().Err, fields)
			return
		}
		appLogger.Info(c.Request.Context(), "HTTP Request", fields)
	}
}

// NewHTTPServer wraps handler in an http.Server listening on cfg.HTTPPort.
func NewHTTPServer(cfg *config.ServerConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}
