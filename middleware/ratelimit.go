package middleware

import (
	"math"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	serrors "github.com/pilab-dev/homefin-auth/errors"
	"github.com/pilab-dev/homefin-auth/internal/audit"
	"github.com/pilab-dev/homefin-auth/internal/metrics"
	"github.com/pilab-dev/homefin-auth/services"
	"github.com/rs/zerolog/log"
)

// KeyFunc derives the rate-limit key for a request. An empty key skips the
// limiter.
type KeyFunc func(c *gin.Context) string

// ByUserID keys on the authenticated user, falling back to the client IP.
func ByUserID(c *gin.Context) string {
	if id, ok := GetIdentity(c); ok {
		return "user:" + id.UserID
	}
	return "ip:" + c.ClientIP()
}

// ByClientIP keys on the client IP.
func ByClientIP(c *gin.Context) string {
	return "ip:" + c.ClientIP()
}

// RateLimit rejects requests above limit per window with 429 and a
// Retry-After header. Limiter errors let the request through.
func RateLimit(limiter services.RateLimiter, name string, limit int, window time.Duration, key KeyFunc, now func() time.Time) gin.HandlerFunc {
	if now == nil {
		now = time.Now
	}
	return func(c *gin.Context) {
		k := key(c)
		if k == "" {
			c.Next()
			return
		}
		if !CheckRate(c, limiter, name, name+":"+k, limit, window, now) {
			return
		}
		c.Next()
	}
}

// CheckRate runs one limiter decision and aborts the request when it is
// denied. It reports whether the request may continue.
func CheckRate(c *gin.Context, limiter services.RateLimiter, name, key string, limit int, window time.Duration, now func() time.Time) bool {
	decision, err := limiter.Allow(c.Request.Context(), key, limit, window)
	if err != nil {
		log.Debug().Err(err).Str("limiter", name).Msg("Rate limiter failed open")
	}
	if decision.Allowed {
		return true
	}

	metrics.RateLimitedTotal.WithLabelValues(name).Inc()
	audit.Log("RateLimiter", name, key, c.ClientIP(), "Request rate limited", false, nil)
	c.Header("Retry-After", retryAfter(decision.ResetAt, now()))
	AbortWithError(c, serrors.ErrRateLimited)
	return false
}

func retryAfter(resetAt, now time.Time) string {
	secs := int64(math.Ceil(resetAt.Sub(now).Seconds()))
	if secs < 1 {
		secs = 1
	}
	return strconv.FormatInt(secs, 10)
}

// OnlyRoute narrows key to requests matching method and path, so a limiter
// can sit in a shared chain ahead of SessionActivity.
func OnlyRoute(method, path string, key KeyFunc) KeyFunc {
	return func(c *gin.Context) string {
		if c.Request.Method != method || c.Request.URL.Path != path {
			return ""
		}
		return key(c)
	}
}
